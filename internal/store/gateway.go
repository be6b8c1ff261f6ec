// Package store provides storage backends for DailyBoost.
//
// Every backend implements Store: the data access gateway consumed by the
// conversation flows and the habit aggregator, plus wellness logs and
// persisted conversation sessions. Lookups of absent rows return nil, nil.
package store

import (
	"context"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// UserRepo manages user profiles.
type UserRepo interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// CreateUser inserts a user with default profile values. Creating an
	// existing user is a no-op.
	CreateUser(ctx context.Context, userID, username, preferredName string) error
	// UpdateUser applies a partial update. Returns models.ErrUserNotFound when
	// the user does not exist.
	UpdateUser(ctx context.Context, userID string, upd models.UserUpdate) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// MoodRepo manages the daily mood journal.
type MoodRepo interface {
	// UpsertMood inserts or replaces the entry for (userID, date).
	UpsertMood(ctx context.Context, userID, date string, score int, note string) error
	GetMood(ctx context.Context, userID, date string) (*models.MoodEntry, error)
	// ListMoodsInRange returns entries with from <= date <= to ordered by date.
	ListMoodsInRange(ctx context.Context, userID, from, to string) ([]models.MoodEntry, error)
}

// HabitRepo manages habits and their daily completion logs.
type HabitRepo interface {
	// ListHabits returns the user's habits in creation order.
	ListHabits(ctx context.Context, userID string) ([]models.Habit, error)
	AddHabit(ctx context.Context, userID, name string) (int64, error)
	// DeleteHabit removes the habit and all of its logs. Returns
	// models.ErrHabitNotFound when the habit is not owned by userID.
	DeleteHabit(ctx context.Context, userID string, habitID int64) error
	UpsertHabitLog(ctx context.Context, userID string, habitID int64, date string, completed bool) error
	// ListHabitLogsForDate returns every habit of the user joined with its log
	// for date, ordered by habit name. Habits without a log are not completed.
	ListHabitLogsForDate(ctx context.Context, userID, date string) ([]models.DailyHabitStatus, error)
	// ListHabitLogsInRange returns log rows with from <= date <= to ordered by
	// date then habit name.
	ListHabitLogsInRange(ctx context.Context, userID, from, to string) ([]models.HabitLogEntry, error)
}

// Gateway is the data access contract of the conversation core.
type Gateway interface {
	UserRepo
	MoodRepo
	HabitRepo
}

// WellnessRepo manages water, activity, reading and spiritual logs.
type WellnessRepo interface {
	AddWaterLog(ctx context.Context, userID, date string, amountML int) error
	AddActivityLog(ctx context.Context, log models.ActivityLog) error
	AddReadingLog(ctx context.Context, log models.ReadingLog) error
	// GetSpiritualLog returns the day's checklist, all false when absent.
	GetSpiritualLog(ctx context.Context, userID, date string) (models.SpiritualLog, error)
	UpsertSpiritualLog(ctx context.Context, log models.SpiritualLog) error
	GetDailyWellness(ctx context.Context, userID, date string) (models.DailyWellness, error)
}

// FlowStateRepo persists conversation sessions.
type FlowStateRepo interface {
	SaveFlowState(ctx context.Context, state models.FlowState) error
	GetFlowState(ctx context.Context, userID string) (*models.FlowState, error)
	DeleteFlowState(ctx context.Context, userID string) error
}

// Store is implemented by every backend.
type Store interface {
	Gateway
	WellnessRepo
	FlowStateRepo
	Close() error
}
