package store

import (
	"database/sql"
	"fmt"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// userUpdateColumns lists the columns and values set by a partial update.
// Column names come only from this fixed set.
func userUpdateColumns(upd models.UserUpdate) ([]string, []interface{}) {
	var cols []string
	var args []interface{}
	add := func(col string, v interface{}) {
		cols = append(cols, col)
		args = append(args, v)
	}
	if upd.PreferredName != nil {
		add("preferred_name", *upd.PreferredName)
	}
	if upd.Timezone != nil {
		add("timezone", *upd.Timezone)
	}
	if upd.Bedtime != nil {
		add("bedtime", *upd.Bedtime)
	}
	if upd.Waketime != nil {
		add("waketime", *upd.Waketime)
	}
	if upd.WaterTarget != nil {
		add("water_target", *upd.WaterTarget)
	}
	if upd.SpiritualEnabled != nil {
		add("spiritual_enabled", *upd.SpiritualEnabled)
	}
	if upd.ReadingEnabled != nil {
		add("reading_enabled", *upd.ReadingEnabled)
	}
	if upd.HabitsEnabled != nil {
		add("habits_enabled", *upd.HabitsEnabled)
	}
	return cols, args
}

const userColumns = `user_id, username, preferred_name, timezone, bedtime, waketime, water_target,
	spiritual_enabled, reading_enabled, habits_enabled, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.UserID, &u.Username, &u.PreferredName, &u.Timezone, &u.Bedtime, &u.Waketime,
		&u.WaterTarget, &u.SpiritualEnabled, &u.ReadingEnabled, &u.HabitsEnabled, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func collectUsers(rows *sql.Rows) ([]models.User, error) {
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row failed: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows failed: %w", err)
	}
	return users, nil
}

func collectMoods(rows *sql.Rows) ([]models.MoodEntry, error) {
	defer rows.Close()
	var out []models.MoodEntry
	for rows.Next() {
		var m models.MoodEntry
		if err := rows.Scan(&m.UserID, &m.Date, &m.Score, &m.Note, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mood row failed: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mood rows failed: %w", err)
	}
	return out, nil
}

func collectHabits(rows *sql.Rows) ([]models.Habit, error) {
	defer rows.Close()
	var out []models.Habit
	for rows.Next() {
		var h models.Habit
		if err := rows.Scan(&h.ID, &h.UserID, &h.Name, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan habit row failed: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate habit rows failed: %w", err)
	}
	return out, nil
}

func collectDailyStatus(rows *sql.Rows) ([]models.DailyHabitStatus, error) {
	defer rows.Close()
	var out []models.DailyHabitStatus
	for rows.Next() {
		var d models.DailyHabitStatus
		if err := rows.Scan(&d.HabitID, &d.HabitName, &d.Completed); err != nil {
			return nil, fmt.Errorf("scan daily habit row failed: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily habit rows failed: %w", err)
	}
	return out, nil
}

func collectHabitLogs(rows *sql.Rows) ([]models.HabitLogEntry, error) {
	defer rows.Close()
	var out []models.HabitLogEntry
	for rows.Next() {
		var e models.HabitLogEntry
		if err := rows.Scan(&e.HabitID, &e.HabitName, &e.Date, &e.Completed); err != nil {
			return nil, fmt.Errorf("scan habit log row failed: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate habit log rows failed: %w", err)
	}
	return out, nil
}

// scanOutboxMessage scans an OutboxMessage from sql.Rows.
func scanOutboxMessage(rows *sql.Rows) (OutboxMessage, error) {
	var m OutboxMessage
	var payloadJSON, dedupeKey, lastError sql.NullString
	var nextAttemptAt, lockedAt sql.NullTime
	err := rows.Scan(
		&m.ID, &m.UserID, &m.Kind, &payloadJSON, &m.Status, &m.Attempts,
		&nextAttemptAt, &dedupeKey, &lockedAt, &lastError, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return m, fmt.Errorf("scan outbox message failed: %w", err)
	}
	m.PayloadJSON = payloadJSON.String
	m.DedupeKey = dedupeKey.String
	m.LastError = lastError.String
	if nextAttemptAt.Valid {
		m.NextAttemptAt = &nextAttemptAt.Time
	}
	if lockedAt.Valid {
		m.LockedAt = &lockedAt.Time
	}
	return m, nil
}
