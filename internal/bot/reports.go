package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/flow"
	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/stats"
)

const noHabitsText = "You don't have any habits yet! 🎯\n\nCreate habits with /habits first!"

func (r *Router) moodStats(ctx context.Context, ev models.Event, _ string) ([]models.Reply, error) {
	u, hint, err := r.requireUser(ctx, ev.UserID)
	if u == nil {
		return hint, err
	}
	now := r.now().In(u.Location())
	summary, err := r.stats.MonthlyMood(ctx, u.UserID, now.Year(), now.Month())
	if err != nil {
		return nil, err
	}
	return []models.Reply{models.TextReply(MoodStatsText(summary))}, nil
}

// MoodStatsText renders a monthly mood summary.
func MoodStatsText(s stats.MoodSummary) string {
	if s.Count == 0 {
		return fmt.Sprintf("No mood entries found for %s 📊\n\nStart tracking your mood with /mood!", s.Title())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Mood Statistics for %s\n\n", s.Title())
	fmt.Fprintf(&b, "📝 Total entries: %d\n", s.Count)
	fmt.Fprintf(&b, "📈 Average rating: %.1f/5\n", s.Average)
	fmt.Fprintf(&b, "🔝 Highest rating: %d/5 %s\n", s.Highest, stats.MoodEmoji(s.Highest))
	fmt.Fprintf(&b, "🔻 Lowest rating: %d/5 %s\n\n", s.Lowest, stats.MoodEmoji(s.Lowest))
	for _, p := range s.Series {
		fmt.Fprintf(&b, "%s %s\n", p.Date[5:], stats.MoodEmoji(p.Score))
	}
	b.WriteString("\nKeep tracking your mood daily! 🌟")
	return b.String()
}

func (r *Router) todayProgress(ctx context.Context, ev models.Event, _ string) ([]models.Reply, error) {
	u, hint, err := r.requireUser(ctx, ev.UserID)
	if u == nil {
		return hint, err
	}
	rows, err := r.stats.DailyCompletion(ctx, u.UserID, r.today(u))
	if err != nil {
		return nil, err
	}
	return []models.Reply{flow.HabitProgressReply(rows)}, nil
}

func (r *Router) habitTracker(ctx context.Context, ev models.Event, _ string) ([]models.Reply, error) {
	u, hint, err := r.requireUser(ctx, ev.UserID)
	if u == nil {
		return hint, err
	}
	weekly, err := r.stats.WeeklyStats(ctx, u.UserID, r.today(u))
	if err != nil {
		return nil, err
	}
	return []models.Reply{models.TextReply(WeeklyReportText(weekly))}, nil
}

// WeeklyReportText renders per-habit completion over the last seven days.
func WeeklyReportText(weekly map[string]stats.WeeklyHabitStat) string {
	if len(weekly) == 0 {
		return "No habit data found for this week! 📊\n\nStart tracking habits with /habits!"
	}
	var b strings.Builder
	b.WriteString("📊 Weekly Habit Report (Last 7 Days)\n\n")
	completed, logged := 0, 0
	for _, name := range stats.SortedHabitNames(weekly) {
		s := weekly[name]
		completed += s.Completed
		logged += s.DaysLogged
		fmt.Fprintf(&b, "%s %s: %.0f%% (%d/%d)\n", progressBar(s.Percentage), name, s.Percentage, s.Completed, s.DaysLogged)
	}
	overall := 0.0
	if logged > 0 {
		overall = float64(completed) / float64(logged) * 100
	}
	fmt.Fprintf(&b, "\n📈 Overall completion: %.1f%%\n", overall)
	fmt.Fprintf(&b, "🎯 Habits tracked: %d\n\n", len(weekly))
	b.WriteString("Keep up the great work! 🌟")
	return b.String()
}

// progressBar draws a five-cell bar for a percentage.
func progressBar(pct float64) string {
	filled := int(pct / 20)
	if filled > 5 {
		filled = 5
	}
	return strings.Repeat("🟩", filled) + strings.Repeat("⬜", 5-filled)
}

func (r *Router) habitStreak(ctx context.Context, ev models.Event, _ string) ([]models.Reply, error) {
	u, hint, err := r.requireUser(ctx, ev.UserID)
	if u == nil {
		return hint, err
	}
	habits, err := r.st.ListHabits(ctx, u.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	if len(habits) == 0 {
		return []models.Reply{models.TextReply(noHabitsText)}, nil
	}
	streak, err := r.stats.Streak(ctx, u.UserID, r.today(u))
	if err != nil {
		return nil, err
	}
	return []models.Reply{models.TextReply(StreakText(streak))}, nil
}

// StreakText renders the current streak with its milestone message.
func StreakText(streak int) string {
	switch streak {
	case 0:
		return "🔥 Current Streak: 0 days\n\n" +
			"Complete all your habits today to start a new streak! 💪\n\n" +
			"Use /today to check today's progress."
	case 1:
		return "🔥 Current Streak: 1 day\n\n" +
			"Great start! Keep it up to build a longer streak! 🌟\n\n" +
			"Complete all habits today to reach 2 days! 💪"
	}
	emoji, message := stats.StreakMilestone(streak)
	return fmt.Sprintf("%s Current Streak: %d days\n\n%s\n\nDon't break the chain! Complete all habits today! 💪",
		emoji, streak, message)
}

func (r *Router) habitStats(ctx context.Context, ev models.Event, _ string) ([]models.Reply, error) {
	u, hint, err := r.requireUser(ctx, ev.UserID)
	if u == nil {
		return hint, err
	}
	habits, err := r.st.ListHabits(ctx, u.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	if len(habits) == 0 {
		return []models.Reply{models.TextReply(noHabitsText)}, nil
	}
	overall, err := r.stats.OverallStats(ctx, u.UserID)
	if err != nil {
		return nil, err
	}
	return []models.Reply{models.TextReply(BadgeText(overall))}, nil
}

// BadgeText renders the overall completion badge.
func BadgeText(o stats.Overall) string {
	badge := o.Badge()
	return fmt.Sprintf("%s HABIT COMPLETION BADGE %s\n\n%s\n%.1f%% Overall Completion\n\n"+
		"📊 Total habit checks: %d\n✅ Completed: %d\n❌ Missed: %d\n\n%s 🌟",
		badge.Color, badge.Color, badge.Label(), o.Percentage,
		o.TotalLogs, o.CompletedLogs, o.Missed(), badge.Message)
}

// weeklyInsight answers /insight with a generated reflection, falling back to
// the plain summary when no generator is configured or it fails.
func (r *Router) weeklyInsight(ctx context.Context, ev models.Event, _ string) ([]models.Reply, error) {
	u, hint, err := r.requireUser(ctx, ev.UserID)
	if u == nil {
		return hint, err
	}
	summary, err := r.weekSummary(ctx, u)
	if err != nil {
		return nil, err
	}
	if r.insight != nil {
		text, err := r.insight.WeeklyInsight(ctx, summary)
		if err == nil && strings.TrimSpace(text) != "" {
			return []models.Reply{models.TextReply("✨ Your Weekly Reflection\n\n" + strings.TrimSpace(text))}, nil
		}
		slog.Warn("Router insight generation failed, using summary", "error", err, "userID", u.UserID)
	}
	return []models.Reply{models.TextReply("✨ Your Week at a Glance\n\n" + summary)}, nil
}

// weekSummary collects the facts the weekly reflection is written from.
func (r *Router) weekSummary(ctx context.Context, u *models.User) (string, error) {
	today := r.today(u)
	from, err := stats.WeekStart(today)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nWeek: %s to %s\n", u.DisplayName(), from, today)

	moods, err := r.st.ListMoodsInRange(ctx, u.UserID, from, today)
	if err != nil {
		return "", fmt.Errorf("failed to load moods: %w", err)
	}
	if len(moods) > 0 {
		t, _ := time.Parse(models.DateLayout, today)
		ms := stats.ComputeMoodSummary(t.Year(), t.Month(), moods)
		fmt.Fprintf(&b, "Mood: %d entries, average %.1f/5\n", ms.Count, ms.Average)
	} else {
		b.WriteString("Mood: no entries\n")
	}

	weekly, err := r.stats.WeeklyStats(ctx, u.UserID, today)
	if err != nil {
		return "", err
	}
	for _, name := range stats.SortedHabitNames(weekly) {
		s := weekly[name]
		fmt.Fprintf(&b, "Habit %s: %d/%d days\n", name, s.Completed, s.DaysLogged)
	}
	streak, err := r.stats.Streak(ctx, u.UserID, today)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "Current streak: %d days\n", streak)

	w, err := r.st.GetDailyWellness(ctx, u.UserID, today)
	if err != nil {
		return "", fmt.Errorf("failed to load wellness: %w", err)
	}
	fmt.Fprintf(&b, "Today: %dml of %dml water, %d active minutes", w.WaterML, u.WaterTarget, w.ActivityMinutes)
	if u.ReadingEnabled {
		fmt.Fprintf(&b, ", %d reading minutes", w.ReadingMinutes)
	}
	return b.String(), nil
}
