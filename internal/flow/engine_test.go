package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/store"
	"github.com/BTreeMap/DailyBoost/internal/testutil"
)

const testToday = "2024-03-10"

type harness struct {
	t      *testing.T
	ctx    context.Context
	gw     *testutil.FlakyGateway
	states *MemoryStateManager
	engine *Engine
}

func newHarness(t *testing.T) *harness {
	gw := testutil.NewFlakyGateway()
	states := NewMemoryStateManager()
	return &harness{
		t:      t,
		ctx:    context.Background(),
		gw:     gw,
		states: states,
		engine: NewEngine(gw, states, WithClock(testutil.FixedClock(testToday))),
	}
}

func (h *harness) start(ft models.FlowType) []models.Reply {
	h.t.Helper()
	replies, err := h.engine.Start(h.ctx, ft, "u1", "alex_tg")
	require.NoError(h.t, err)
	require.NotEmpty(h.t, replies)
	return replies
}

func (h *harness) send(text string) []models.Reply {
	h.t.Helper()
	replies, err := h.engine.Handle(h.ctx, models.Event{UserID: "u1", Username: "alex_tg", Kind: models.EventText, Payload: text})
	require.NoError(h.t, err)
	require.NotEmpty(h.t, replies)
	return replies
}

func (h *harness) session() models.Session {
	h.t.Helper()
	s, err := h.states.Load(h.ctx, "u1")
	require.NoError(h.t, err)
	return s
}

func (h *harness) user() *models.User {
	h.t.Helper()
	u, err := h.gw.GetUser(h.ctx, "u1")
	require.NoError(h.t, err)
	return u
}

func last(replies []models.Reply) models.Reply {
	return replies[len(replies)-1]
}

func TestOnboarding_HappyPath(t *testing.T) {
	h := newHarness(t)
	h.start(models.FlowOnboarding)
	assert.Equal(t, models.StepOnboardingName, h.session().Step)

	h.send("Alex")
	h.send("22:30")
	h.send("07:00")
	r := h.send("2500")
	assert.Equal(t, models.StepOnboardingModules, h.session().Step)
	require.NotNil(t, r[0].Keyboard)
	assert.Len(t, r[0].Keyboard.Buttons(), 4)

	r = h.send("✅ Done")
	assert.True(t, last(r).Terminal)
	assert.False(t, h.session().Active())

	u := h.user()
	require.NotNil(t, u)
	assert.Equal(t, "Alex", u.PreferredName)
	assert.Equal(t, "22:30", u.Bedtime)
	assert.Equal(t, "07:00", u.Waketime)
	assert.Equal(t, 2500, u.WaterTarget)
	assert.False(t, u.SpiritualEnabled)
	assert.False(t, u.ReadingEnabled)
	assert.True(t, u.HabitsEnabled)
	assert.Equal(t, "alex_tg", u.Username)
}

func TestOnboarding_ModuleToggles(t *testing.T) {
	h := newHarness(t)
	h.start(models.FlowOnboarding)
	for _, in := range []string{"Sam", "23:00", "06:30", "3000"} {
		h.send(in)
	}

	r := h.send("📿 Spiritual Check")
	assert.Contains(t, r[0].Text, "enabled")
	h.send("reading")
	h.send("HABITS")
	h.send("reading")
	assert.Equal(t, models.StepOnboardingModules, h.session().Step)

	// Unknown input re-displays the menu without changing anything.
	r = h.send("something else")
	assert.Contains(t, r[0].Text, "didn't recognize")
	h.send("done")

	u := h.user()
	require.NotNil(t, u)
	assert.True(t, u.SpiritualEnabled)
	assert.False(t, u.ReadingEnabled)
	assert.False(t, u.HabitsEnabled)
}

func TestOnboarding_InvalidTimeStaysOnStep(t *testing.T) {
	h := newHarness(t)
	h.start(models.FlowOnboarding)
	h.send("Alex")

	for _, bad := range []string{"25:00", "7:30", "", "noon"} {
		r := h.send(bad)
		assert.Contains(t, r[0].Text, "HH:MM")
		s := h.session()
		assert.Equal(t, models.StepOnboardingBedtime, s.Step)
		assert.Empty(t, s.Get(models.ScratchBedtime))
	}
}

func TestOnboarding_InvalidWaterTargetDoesNotWrite(t *testing.T) {
	h := newHarness(t)
	h.start(models.FlowOnboarding)
	h.send("Alex")
	h.send("22:30")
	h.send("07:00")

	for _, bad := range []string{"-5", "abc", "0"} {
		h.send(bad)
		assert.Equal(t, models.StepOnboardingWater, h.session().Step)
	}
	creates, updates := h.gw.UserWrites()
	assert.Zero(t, creates)
	assert.Zero(t, updates)
}

func TestOnboarding_PersistenceFailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.start(models.FlowOnboarding)
	for _, in := range []string{"Alex", "22:30", "07:00", "2500", "spiritual"} {
		h.send(in)
	}
	before := h.session()

	h.gw.SetFailWrites(true)
	r := h.send("done")
	assert.Equal(t, RetryText, r[0].Text)
	assert.Equal(t, before, h.session(), "session must be untouched")

	h.gw.SetFailWrites(false)
	h.send("done")
	assert.False(t, h.session().Active())
	u := h.user()
	require.NotNil(t, u)
	assert.True(t, u.SpiritualEnabled)
}

func TestOnboarding_ExistingUserIsInformational(t *testing.T) {
	h := newHarness(t)
	testutil.SeedUser(t, h.gw, "u1", "Alex")
	require.NoError(t, h.states.Save(h.ctx, models.Session{UserID: "u1", Flow: models.FlowMood, Step: models.StepMoodRating}))

	r := h.start(models.FlowOnboarding)
	assert.Contains(t, r[0].Text, "Welcome back")
	assert.Equal(t, models.FlowMood, h.session().Flow, "other flow is not abandoned")
}

func TestEngine_StartAbandonsOtherFlow(t *testing.T) {
	h := newHarness(t)
	testutil.SeedUser(t, h.gw, "u1", "Alex")
	h.start(models.FlowPreferences)
	h.start(models.FlowMood)

	s := h.session()
	assert.Equal(t, models.FlowMood, s.Flow)
	assert.Equal(t, models.StepMoodRating, s.Step)
}

func TestEngine_HandleWithoutSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Handle(h.ctx, models.Event{UserID: "u1", Kind: models.EventText, Payload: "hello"})
	assert.ErrorIs(t, err, ErrNoActiveFlow)
}

func TestEngine_UnknownStepResets(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.states.Save(h.ctx, models.Session{UserID: "u1", Flow: models.FlowMood, Step: "bogus"}))

	r := h.send("3")
	assert.Equal(t, FallbackText, r[0].Text)
	assert.False(t, h.session().Active())
}

func TestEngine_Cancel(t *testing.T) {
	h := newHarness(t)
	r, err := h.engine.Cancel(h.ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, r[0].Text, "nothing to cancel")

	h.start(models.FlowOnboarding)
	r, err = h.engine.Cancel(h.ctx, "u1")
	require.NoError(t, err)
	assert.True(t, last(r).Terminal)
	assert.False(t, h.session().Active())
}

func TestPreferences_RequiresUser(t *testing.T) {
	h := newHarness(t)
	r := h.start(models.FlowPreferences)
	assert.Contains(t, r[0].Text, "/start")
	assert.False(t, h.session().Active())
}

func TestPreferences_SleepCommitsAfterSecondStep(t *testing.T) {
	h := newHarness(t)
	testutil.SeedUser(t, h.gw, "u1", "Alex")
	h.start(models.FlowPreferences)

	h.send("🛏️ Change Sleep Times")
	h.send("23:45")
	_, updates := h.gw.UserWrites()
	assert.Zero(t, updates, "bedtime alone is not committed")
	assert.Equal(t, models.StepPrefsChangeWake, h.session().Step)

	h.send("06:15")
	u := h.user()
	assert.Equal(t, "23:45", u.Bedtime)
	assert.Equal(t, "06:15", u.Waketime)
	assert.False(t, h.session().Active())
}

func TestPreferences_ToggleSeededFromProfile(t *testing.T) {
	h := newHarness(t)
	testutil.SeedUser(t, h.gw, "u1", "Alex")
	on := true
	require.NoError(t, h.gw.UpdateUser(h.ctx, "u1", models.UserUpdate{ReadingEnabled: &on}))

	h.start(models.FlowPreferences)
	r := h.send("modules")
	assert.Contains(t, r[0].Text, "✅ Reading Tracker")

	h.send("spiritual")
	h.send("✅ Done")
	u := h.user()
	assert.True(t, u.SpiritualEnabled)
	assert.True(t, u.ReadingEnabled)
	assert.True(t, u.HabitsEnabled)
}

func TestPreferences_MenuUnrecognizedAndCancel(t *testing.T) {
	h := newHarness(t)
	testutil.SeedUser(t, h.gw, "u1", "Alex")
	h.start(models.FlowPreferences)

	r := h.send("make me a sandwich")
	assert.Contains(t, r[0].Text, "didn't recognize")
	assert.Equal(t, models.StepPrefsMainMenu, h.session().Step)

	r = h.send("❌ Cancel")
	assert.Contains(t, r[0].Text, "Preferences cancelled")
	assert.False(t, h.session().Active())
	_, updates := h.gw.UserWrites()
	assert.Zero(t, updates)
}

func TestPreferences_ChangeNameAndWater(t *testing.T) {
	h := newHarness(t)
	testutil.SeedUser(t, h.gw, "u1", "Alex")

	h.start(models.FlowPreferences)
	h.send("👤 Change Name")
	h.send("  Lex  ")
	assert.Equal(t, "Lex", h.user().PreferredName)

	h.start(models.FlowPreferences)
	h.send("water")
	h.send("-1")
	assert.Equal(t, models.StepPrefsChangeWater, h.session().Step)
	h.send("1800")
	assert.Equal(t, 1800, h.user().WaterTarget)
}

func TestMood_IdempotentPerDay(t *testing.T) {
	h := newHarness(t)
	testutil.SeedUser(t, h.gw, "u1", "Alex")

	h.start(models.FlowMood)
	h.send("4")
	h.send("skip")

	r := h.start(models.FlowMood)
	assert.Contains(t, r[0].Text, "already logged")
	h.send("2")
	h.send("rough afternoon")

	moods, err := h.gw.ListMoodsInRange(h.ctx, "u1", testToday, testToday)
	require.NoError(t, err)
	require.Len(t, moods, 1)
	assert.Equal(t, 2, moods[0].Score)
	assert.Equal(t, "rough afternoon", moods[0].Note)
}

func TestMood_RatingAcceptsOnlyLiteralTokens(t *testing.T) {
	h := newHarness(t)
	h.start(models.FlowMood)
	for _, bad := range []string{"0", "6", "four", "4.0", " "} {
		h.send(bad)
		assert.Equal(t, models.StepMoodRating, h.session().Step, "input %q", bad)
	}
	h.send(" 5 ")
	assert.Equal(t, models.StepMoodNote, h.session().Step)
	assert.Equal(t, "5", h.session().Get(models.ScratchScore))
}

func TestMood_SkipStoresNoNote(t *testing.T) {
	h := newHarness(t)
	h.start(models.FlowMood)
	h.send("3")
	r := h.send("SKIP")
	assert.NotContains(t, r[0].Text, "Note:")

	m, err := h.gw.GetMood(h.ctx, "u1", testToday)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "", m.Note)
}

func TestMood_NoteNoIsStored(t *testing.T) {
	h := newHarness(t)
	h.start(models.FlowMood)
	h.send("3")
	r := h.send("no")
	assert.Contains(t, r[0].Text, "Note: no")
	assert.False(t, h.session().Active())

	m, err := h.gw.GetMood(h.ctx, "u1", testToday)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "no", m.Note)
}

func TestFreeText_LongValuesAccepted(t *testing.T) {
	long := strings.Repeat("a", 201)

	h := newHarness(t)
	testutil.SeedUser(t, h.gw, "u1", "Alex")
	h.start(models.FlowHabit)
	h.send(long)
	habits, err := h.gw.ListHabits(h.ctx, "u1")
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, long, habits[0].Name)
	assert.False(t, h.session().Active())

	h.start(models.FlowMood)
	h.send("4")
	h.send(long)
	m, err := h.gw.GetMood(h.ctx, "u1", testToday)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, long, m.Note)

	h = newHarness(t)
	h.start(models.FlowOnboarding)
	h.send(long)
	assert.Equal(t, models.StepOnboardingBedtime, h.session().Step)
	assert.Equal(t, long, h.session().Get(models.ScratchName))
}

func TestHabit_AddFirstAndManage(t *testing.T) {
	h := newHarness(t)
	testutil.SeedUser(t, h.gw, "u1", "Alex")

	h.start(models.FlowHabit)
	assert.Equal(t, models.StepHabitAddFirst, h.session().Step)
	h.send("Stretch")

	h.start(models.FlowHabit)
	assert.Equal(t, models.StepHabitManage, h.session().Step)
	h.send("➕ Add Habit")
	h.send("Journal")

	habits, err := h.gw.ListHabits(h.ctx, "u1")
	require.NoError(t, err)
	require.Len(t, habits, 2)
	assert.Equal(t, "Stretch", habits[0].Name)
	assert.Equal(t, "Journal", habits[1].Name)
}

func TestHabit_CancelAddFirst(t *testing.T) {
	h := newHarness(t)
	h.start(models.FlowHabit)
	r := h.send("cancel")
	assert.Contains(t, r[0].Text, "cancelled")
	habits, _ := h.gw.ListHabits(h.ctx, "u1")
	assert.Empty(t, habits)
}

func TestHabit_DeleteCascades(t *testing.T) {
	h := newHarness(t)
	testutil.SeedUser(t, h.gw, "u1", "Alex")
	ids := testutil.SeedHabits(t, h.gw, "u1", "A", "B", "C", "D", "E")
	require.NoError(t, h.gw.UpsertHabitLog(h.ctx, "u1", ids[2], testToday, true))

	h.start(models.FlowHabit)
	r := h.send("🗑️ Delete Habit")
	kb := r[0].Keyboard
	require.NotNil(t, kb)
	require.Len(t, kb.Rows, 4, "five habits in rows of two plus Back")
	assert.Len(t, kb.Rows[0], 2)
	assert.Len(t, kb.Rows[2], 1)
	assert.Equal(t, "🔙 Back", kb.Rows[3][0].Label)

	r = h.send("❌ Z")
	assert.Contains(t, r[0].Text, "not found")
	assert.Equal(t, models.StepHabitDelete, h.session().Step)

	h.send("❌ C")
	assert.False(t, h.session().Active())

	logs, err := h.gw.ListHabitLogsInRange(h.ctx, "u1", "2000-01-01", "2100-01-01")
	require.NoError(t, err)
	for _, l := range logs {
		assert.NotEqual(t, ids[2], l.HabitID)
	}
	habits, _ := h.gw.ListHabits(h.ctx, "u1")
	assert.Len(t, habits, 4)
}

func TestHabit_BackReturnsToMenu(t *testing.T) {
	h := newHarness(t)
	testutil.SeedHabits(t, h.gw, "u1", "A")
	h.start(models.FlowHabit)
	h.send("delete")
	r := h.send("🔙 Back")
	assert.Contains(t, r[0].Text, "Your Habits")
	assert.Equal(t, models.StepHabitManage, h.session().Step)
}

func TestHabit_ProgressIsTerminal(t *testing.T) {
	h := newHarness(t)
	ids := testutil.SeedHabits(t, h.gw, "u1", "Walk", "Read")
	require.NoError(t, h.gw.UpsertHabitLog(h.ctx, "u1", ids[0], testToday, true))

	h.start(models.FlowHabit)
	r := h.send("📊 Today's Progress")
	assert.False(t, h.session().Active())
	assert.Contains(t, r[0].Text, "1/2 habits completed")
	require.NotNil(t, r[0].Keyboard)
	assert.True(t, r[0].Keyboard.Inline)
}

func TestHabit_PersistenceFailureOnAdd(t *testing.T) {
	h := newHarness(t)
	h.start(models.FlowHabit)
	h.gw.SetFailWrites(true)
	r := h.send("Meditate")
	assert.Equal(t, RetryText, r[0].Text)
	assert.Equal(t, models.StepHabitAddFirst, h.session().Step)
}

func TestHabitTogglePayload(t *testing.T) {
	p := HabitTogglePayload(42, true)
	assert.Equal(t, "habit_toggle_42_1", p)
	id, done, ok := ParseHabitToggle(p)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.True(t, done)

	for _, bad := range []string{"habit_toggle_x_1", "habit_toggle_4_2", "habit_toggle_", "other"} {
		_, _, ok := ParseHabitToggle(bad)
		assert.False(t, ok, bad)
	}
}

func TestHabitProgressReply(t *testing.T) {
	r := HabitProgressReply(nil)
	assert.Contains(t, r.Text, "/habits")

	r = HabitProgressReply([]models.DailyHabitStatus{
		{HabitID: 1, HabitName: "Read", Completed: true},
		{HabitID: 2, HabitName: "Walk", Completed: true},
	})
	assert.True(t, strings.Contains(r.Text, "All habits completed"))
	assert.Equal(t, "habit_toggle_1_0", r.Keyboard.Rows[0][0].Data)
}

func TestStoreBasedStateManager(t *testing.T) {
	ctx := context.Background()
	sm := NewStoreBasedStateManager(store.NewInMemoryStore())

	s, err := sm.Load(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, s.Active())

	s.Flow = models.FlowOnboarding
	s.Step = models.StepOnboardingBedtime
	s.Set(models.ScratchName, "Alex")
	require.NoError(t, sm.Save(ctx, s))

	got, err := sm.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StepOnboardingBedtime, got.Step)
	assert.Equal(t, "Alex", got.Get(models.ScratchName))

	require.NoError(t, sm.Reset(ctx, "u1"))
	got, err = sm.Load(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, got.Active())
}
