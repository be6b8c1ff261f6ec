package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/store"
)

// Range bounds used to load a user's whole history.
const (
	historyStart = "0001-01-01"
	historyEnd   = "9999-12-31"
)

// Service loads rows through the gateway and runs the Compute functions.
type Service struct {
	gw store.Gateway
}

// NewService creates a Service over gw.
func NewService(gw store.Gateway) *Service {
	return &Service{gw: gw}
}

// DailyCompletion returns every habit of the user with its completion on date,
// ordered by habit name. Habits without a log are not completed.
func (s *Service) DailyCompletion(ctx context.Context, userID, date string) ([]models.DailyHabitStatus, error) {
	if err := models.ValidateDate(date); err != nil {
		return nil, err
	}
	rows, err := s.gw.ListHabitLogsForDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily completion: %w", err)
	}
	return rows, nil
}

// WeeklyStats returns per-habit completion for the 7 days ending today.
func (s *Service) WeeklyStats(ctx context.Context, userID, today string) (map[string]WeeklyHabitStat, error) {
	from, err := WeekStart(today)
	if err != nil {
		return nil, err
	}
	logs, err := s.gw.ListHabitLogsInRange(ctx, userID, from, today)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly habit logs: %w", err)
	}
	return ComputeWeeklyStats(logs, today)
}

// Streak returns the number of consecutive fully completed days ending today.
func (s *Service) Streak(ctx context.Context, userID, today string) (int, error) {
	habits, err := s.gw.ListHabits(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load habits: %w", err)
	}
	if len(habits) == 0 {
		return 0, nil
	}
	logs, err := s.gw.ListHabitLogsInRange(ctx, userID, historyStart, today)
	if err != nil {
		return 0, fmt.Errorf("failed to load habit history: %w", err)
	}
	streak, err := ComputeStreak(len(habits), logs, today)
	if err != nil {
		return 0, err
	}
	slog.Debug("stats.Streak computed", "userID", userID, "today", today, "habits", len(habits), "streak", streak)
	return streak, nil
}

// OverallStats returns the completion rate over the user's entire history.
func (s *Service) OverallStats(ctx context.Context, userID string) (Overall, error) {
	logs, err := s.gw.ListHabitLogsInRange(ctx, userID, historyStart, historyEnd)
	if err != nil {
		return Overall{}, fmt.Errorf("failed to load habit history: %w", err)
	}
	return ComputeOverall(logs), nil
}

// MonthlyMood returns the mood summary for a calendar month.
func (s *Service) MonthlyMood(ctx context.Context, userID string, year int, month time.Month) (MoodSummary, error) {
	from, to := MonthRange(year, month)
	entries, err := s.gw.ListMoodsInRange(ctx, userID, from, to)
	if err != nil {
		return MoodSummary{}, fmt.Errorf("failed to load mood entries: %w", err)
	}
	return ComputeMoodSummary(year, month, entries), nil
}
