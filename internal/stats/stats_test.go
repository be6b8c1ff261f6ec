package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/store"
)

func logEntry(habitID int64, name, date string, completed bool) models.HabitLogEntry {
	return models.HabitLogEntry{HabitID: habitID, HabitName: name, Date: date, Completed: completed}
}

func TestComputeWeeklyStats(t *testing.T) {
	today := "2024-03-10"
	logs := []models.HabitLogEntry{
		logEntry(1, "Walk", "2024-03-10", true),
		logEntry(1, "Walk", "2024-03-08", false),
		logEntry(1, "Walk", "2024-03-04", true),
		// Outside the window.
		logEntry(1, "Walk", "2024-03-03", true),
		logEntry(2, "Read", "2024-03-09", false),
	}

	weekly, err := ComputeWeeklyStats(logs, today)
	require.NoError(t, err)
	require.Len(t, weekly, 2)

	assert.Equal(t, WeeklyHabitStat{Completed: 2, DaysLogged: 3, Percentage: 66.67}, weekly["Walk"])
	assert.Equal(t, WeeklyHabitStat{Completed: 0, DaysLogged: 1, Percentage: 0}, weekly["Read"])
	assert.Equal(t, []string{"Read", "Walk"}, SortedHabitNames(weekly))
}

func TestComputeWeeklyStats_InvalidDate(t *testing.T) {
	_, err := ComputeWeeklyStats(nil, "10/03/2024")
	assert.Error(t, err)
}

func TestComputeStreak(t *testing.T) {
	d := "2024-03-10"
	logs := []models.HabitLogEntry{
		logEntry(1, "A", "2024-03-10", true),
		logEntry(2, "B", "2024-03-10", true),
		logEntry(1, "A", "2024-03-09", true),
		logEntry(2, "B", "2024-03-09", true),
		logEntry(1, "A", "2024-03-08", true),
		logEntry(2, "B", "2024-03-08", true),
		logEntry(1, "A", "2024-03-07", true),
		logEntry(2, "B", "2024-03-07", false),
		logEntry(1, "A", "2024-03-06", true),
		logEntry(2, "B", "2024-03-06", true),
	}

	streak, err := ComputeStreak(2, logs, d)
	require.NoError(t, err)
	assert.Equal(t, 3, streak)
}

func TestComputeStreak_TodayIncompleteIsZero(t *testing.T) {
	logs := []models.HabitLogEntry{
		logEntry(1, "A", "2024-03-09", true),
		logEntry(1, "A", "2024-03-08", true),
	}
	streak, err := ComputeStreak(1, logs, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 0, streak)
}

func TestComputeStreak_NoHabits(t *testing.T) {
	logs := []models.HabitLogEntry{logEntry(1, "A", "2024-03-10", true)}
	streak, err := ComputeStreak(0, logs, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 0, streak)
}

func TestComputeStreak_CrossesMonthBoundary(t *testing.T) {
	logs := []models.HabitLogEntry{
		logEntry(1, "A", "2024-03-01", true),
		logEntry(1, "A", "2024-02-29", true),
		logEntry(1, "A", "2024-02-28", true),
	}
	streak, err := ComputeStreak(1, logs, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 3, streak)
}

func TestComputeOverall(t *testing.T) {
	o := ComputeOverall(nil)
	assert.Equal(t, Overall{}, o)

	o = ComputeOverall([]models.HabitLogEntry{
		logEntry(1, "A", "2024-03-10", true),
		logEntry(1, "A", "2024-03-09", true),
		logEntry(1, "A", "2024-03-08", false),
	})
	assert.Equal(t, 3, o.TotalLogs)
	assert.Equal(t, 2, o.CompletedLogs)
	assert.Equal(t, 1, o.Missed())
	assert.Equal(t, 66.67, o.Percentage)
}

func TestClassifyBadge_Boundaries(t *testing.T) {
	cases := []struct {
		pct  float64
		want BadgeTier
	}{
		{100, BadgeLegend},
		{BadgeLegendThreshold, BadgeLegend},
		{89.9, BadgeChampion},
		{BadgeChampionThreshold, BadgeChampion},
		{79.99, BadgeAchiever},
		{BadgeAchieverThreshold, BadgeAchiever},
		{BadgeBuilderThreshold, BadgeBuilder},
		{59.9, BadgeStarter},
		{BadgeStarterThreshold, BadgeStarter},
		{39.9, BadgeBeginner},
		{0, BadgeBeginner},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyBadge(tc.pct).Tier, "pct=%v", tc.pct)
	}
	assert.Equal(t, "🏆 LEGEND", ClassifyBadge(95).Label())
}

func TestOverallBadge_UsesExactRatio(t *testing.T) {
	o := Overall{TotalLogs: 40000, CompletedLogs: 35999}
	o.Percentage = percentage(o.CompletedLogs, o.TotalLogs)
	assert.Equal(t, 90.0, o.Percentage)
	assert.Equal(t, BadgeChampion, o.Badge().Tier)

	o = Overall{TotalLogs: 10, CompletedLogs: 9}
	assert.Equal(t, BadgeLegend, o.Badge().Tier)
	assert.Equal(t, BadgeBeginner, Overall{}.Badge().Tier)
}

func TestStreakMilestone(t *testing.T) {
	emoji, _ := StreakMilestone(30)
	assert.Equal(t, "🏆", emoji)
	emoji, _ = StreakMilestone(21)
	assert.Equal(t, "🥇", emoji)
	emoji, _ = StreakMilestone(14)
	assert.Equal(t, "🥈", emoji)
	emoji, _ = StreakMilestone(7)
	assert.Equal(t, "🥉", emoji)
	emoji, _ = StreakMilestone(6)
	assert.Equal(t, "🔥", emoji)
}

func TestComputeMoodSummary(t *testing.T) {
	s := ComputeMoodSummary(2024, time.March, nil)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, "March 2024", s.Title())

	s = ComputeMoodSummary(2024, time.March, []models.MoodEntry{
		{Date: "2024-03-01", Score: 2},
		{Date: "2024-03-02", Score: 5},
		{Date: "2024-03-04", Score: 4},
	})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 3.7, s.Average)
	assert.Equal(t, 5, s.Highest)
	assert.Equal(t, 2, s.Lowest)
	require.Len(t, s.Series, 3)
	assert.Equal(t, MoodPoint{Date: "2024-03-04", Score: 4}, s.Series[2])
}

func TestMonthRange(t *testing.T) {
	from, to := MonthRange(2024, time.February)
	assert.Equal(t, "2024-02-01", from)
	assert.Equal(t, "2024-02-29", to)
}

func TestMoodEmoji(t *testing.T) {
	assert.Equal(t, "😞", MoodEmoji(1))
	assert.Equal(t, "😄", MoodEmoji(5))
	assert.Equal(t, "", MoodEmoji(6))
}

func TestService(t *testing.T) {
	ctx := context.Background()
	gw := store.NewInMemoryStore()
	svc := NewService(gw)

	require.NoError(t, gw.CreateUser(ctx, "u1", "", "Alex"))
	a, err := gw.AddHabit(ctx, "u1", "Stretch")
	require.NoError(t, err)
	b, err := gw.AddHabit(ctx, "u1", "Journal")
	require.NoError(t, err)

	streak, err := svc.Streak(ctx, "u1", "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 0, streak)

	for _, date := range []string{"2024-03-08", "2024-03-09", "2024-03-10"} {
		require.NoError(t, gw.UpsertHabitLog(ctx, "u1", a, date, true))
		require.NoError(t, gw.UpsertHabitLog(ctx, "u1", b, date, true))
	}
	require.NoError(t, gw.UpsertHabitLog(ctx, "u1", a, "2024-03-07", true))

	streak, err = svc.Streak(ctx, "u1", "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 3, streak)

	daily, err := svc.DailyCompletion(ctx, "u1", "2024-03-11")
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, "Journal", daily[0].HabitName)
	assert.False(t, daily[0].Completed)

	weekly, err := svc.WeeklyStats(ctx, "u1", "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 4, weekly["Stretch"].DaysLogged)
	assert.Equal(t, 100.0, weekly["Stretch"].Percentage)

	overall, err := svc.OverallStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, overall.TotalLogs)
	assert.Equal(t, 100.0, overall.Percentage)

	require.NoError(t, gw.UpsertMood(ctx, "u1", "2024-03-02", 3, ""))
	require.NoError(t, gw.UpsertMood(ctx, "u1", "2024-04-01", 5, ""))
	mood, err := svc.MonthlyMood(ctx, "u1", 2024, time.March)
	require.NoError(t, err)
	assert.Equal(t, 1, mood.Count)
	assert.Equal(t, 3.0, mood.Average)
}
