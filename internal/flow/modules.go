package flow

import (
	"fmt"
	"strconv"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// moduleFlags is the state of the optional-module toggle loop shared by
// onboarding and preferences. It lives in session scratch between events.
type moduleFlags struct {
	Spiritual bool
	Reading   bool
	Habits    bool
}

// defaultModules are the flags offered to a new user.
var defaultModules = moduleFlags{Spiritual: false, Reading: false, Habits: true}

func modulesFromUser(u *models.User) moduleFlags {
	if u == nil {
		return defaultModules
	}
	return moduleFlags{Spiritual: u.SpiritualEnabled, Reading: u.ReadingEnabled, Habits: u.HabitsEnabled}
}

func scratchBool(s models.Session, key models.ScratchKey, def bool) bool {
	v, err := strconv.ParseBool(s.Get(key))
	if err != nil {
		return def
	}
	return v
}

func loadModules(s models.Session) moduleFlags {
	return moduleFlags{
		Spiritual: scratchBool(s, models.ScratchSpiritual, defaultModules.Spiritual),
		Reading:   scratchBool(s, models.ScratchReading, defaultModules.Reading),
		Habits:    scratchBool(s, models.ScratchHabits, defaultModules.Habits),
	}
}

func (m moduleFlags) store(s *models.Session) {
	s.Set(models.ScratchSpiritual, strconv.FormatBool(m.Spiritual))
	s.Set(models.ScratchReading, strconv.FormatBool(m.Reading))
	s.Set(models.ScratchHabits, strconv.FormatBool(m.Habits))
}

func (m moduleFlags) update() models.UserUpdate {
	return models.UserUpdate{
		SpiritualEnabled: &m.Spiritual,
		ReadingEnabled:   &m.Reading,
		HabitsEnabled:    &m.Habits,
	}
}

// toggle flips the module named by input. It reports false when input names
// no module.
func (m *moduleFlags) toggle(input string) (notice string, ok bool) {
	var label string
	var on bool
	switch {
	case tokSpiritual.matches(input):
		m.Spiritual = !m.Spiritual
		label, on = tokSpiritual.Label, m.Spiritual
	case tokReading.matches(input):
		m.Reading = !m.Reading
		label, on = tokReading.Label, m.Reading
	case tokHabits.matches(input):
		m.Habits = !m.Habits
		label, on = tokHabits.Label, m.Habits
	default:
		return "", false
	}
	state := "disabled"
	if on {
		state = "enabled"
	}
	return fmt.Sprintf("%s %s!", label, state), true
}

func status(on bool) string {
	if on {
		return "✅"
	}
	return "⭕"
}

// modulesPrompt renders the toggle menu with the current state of each module.
func modulesPrompt(m moduleFlags) models.Reply {
	text := "Select which optional modules you'd like to enable:\n\n" +
		status(m.Spiritual) + " Spiritual Check: Daily prayer and scripture tracking\n" +
		status(m.Reading) + " Reading Tracker: Log your daily reading minutes\n" +
		status(m.Habits) + " Custom Habits: Track your personal habits\n\n" +
		"Tap a module to toggle it on/off, then press ✅ Done when finished."
	kb := replyKeyboard([]token{tokSpiritual}, []token{tokReading}, []token{tokHabits}, []token{tokDone})
	kb.OneTime = false
	return reply(text, kb)
}

// stepModules runs one event of the toggle loop. done is true when the user
// pressed Done; otherwise out is the Advance or Stay outcome to return.
func stepModules(t *Turn, input string) (flags moduleFlags, done bool, out Outcome) {
	flags = loadModules(t.Session)
	if tokDone.matches(input) {
		return flags, true, Outcome{}
	}
	notice, ok := flags.toggle(input)
	if !ok {
		return flags, false, stay(unrecognized(modulesPrompt(flags)))
	}
	flags.store(&t.Session)
	prompt := modulesPrompt(flags)
	prompt.Text = notice + "\n\n" + prompt.Text
	return flags, false, advance(prompt)
}
