package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/BTreeMap/DailyBoost/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	// SQLite allows a single writer; one connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully", "dir", dir)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetUser not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetUser failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return &u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, userID, username, preferredName string) error {
	if userID == "" {
		return models.ErrEmptyUserID
	}
	u := models.NewUser(userID, username, preferredName)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		u.UserID, u.Username, u.PreferredName, u.Timezone, u.Bedtime, u.Waketime, u.WaterTarget,
		u.SpiritualEnabled, u.ReadingEnabled, u.HabitsEnabled, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateUser failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to create user %s: %w", userID, err)
	}
	slog.Debug("SQLiteStore CreateUser succeeded", "userID", userID)
	return nil
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, userID string, upd models.UserUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	cols, args := userUpdateColumns(upd)
	sets := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c+" = ?")
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now(), userID)

	res, err := s.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE user_id = ?`, args...)
	if err != nil {
		slog.Error("SQLiteStore UpdateUser failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to update user %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrUserNotFound
	}
	slog.Debug("SQLiteStore UpdateUser succeeded", "userID", userID, "fields", cols)
	return nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY user_id`)
	if err != nil {
		slog.Error("SQLiteStore ListUsers query failed", "error", err)
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return collectUsers(rows)
}

func (s *SQLiteStore) UpsertMood(ctx context.Context, userID, date string, score int, note string) error {
	if score < models.MinMoodScore || score > models.MaxMoodScore {
		return models.ErrInvalidMoodScore
	}
	if err := models.ValidateDate(date); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mood_logs (user_id, date, score, note, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET score = excluded.score, note = excluded.note, created_at = excluded.created_at`,
		userID, date, score, note, time.Now())
	if err != nil {
		slog.Error("SQLiteStore UpsertMood failed", "error", err, "userID", userID, "date", date)
		return fmt.Errorf("failed to upsert mood for %s on %s: %w", userID, date, err)
	}
	slog.Debug("SQLiteStore UpsertMood succeeded", "userID", userID, "date", date, "score", score)
	return nil
}

func (s *SQLiteStore) GetMood(ctx context.Context, userID, date string) (*models.MoodEntry, error) {
	var m models.MoodEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, date, score, note, created_at FROM mood_logs WHERE user_id = ? AND date = ?`,
		userID, date).Scan(&m.UserID, &m.Date, &m.Score, &m.Note, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetMood failed", "error", err, "userID", userID, "date", date)
		return nil, fmt.Errorf("failed to get mood for %s on %s: %w", userID, date, err)
	}
	return &m, nil
}

func (s *SQLiteStore) ListMoodsInRange(ctx context.Context, userID, from, to string) ([]models.MoodEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, date, score, note, created_at FROM mood_logs
		 WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date`,
		userID, from, to)
	if err != nil {
		slog.Error("SQLiteStore ListMoodsInRange query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query moods: %w", err)
	}
	return collectMoods(rows)
}

func (s *SQLiteStore) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM habits WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		slog.Error("SQLiteStore ListHabits query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	return collectHabits(rows)
}

func (s *SQLiteStore) AddHabit(ctx context.Context, userID, name string) (int64, error) {
	name, err := models.ValidateFreeText(name)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO habits (user_id, name, created_at) VALUES (?, ?, ?)`, userID, name, time.Now())
	if err != nil {
		slog.Error("SQLiteStore AddHabit failed", "error", err, "userID", userID)
		return 0, fmt.Errorf("failed to add habit for %s: %w", userID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read habit id: %w", err)
	}
	slog.Debug("SQLiteStore AddHabit succeeded", "userID", userID, "habitID", id)
	return id, nil
}

func (s *SQLiteStore) DeleteHabit(ctx context.Context, userID string, habitID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete habit transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, habitID, userID)
	if err != nil {
		slog.Error("SQLiteStore DeleteHabit failed", "error", err, "userID", userID, "habitID", habitID)
		return fmt.Errorf("failed to delete habit %d: %w", habitID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrHabitNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM habit_logs WHERE habit_id = ?`, habitID); err != nil {
		slog.Error("SQLiteStore DeleteHabit log cleanup failed", "error", err, "habitID", habitID)
		return fmt.Errorf("failed to delete logs of habit %d: %w", habitID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete habit: %w", err)
	}
	slog.Debug("SQLiteStore DeleteHabit succeeded", "userID", userID, "habitID", habitID)
	return nil
}

func (s *SQLiteStore) UpsertHabitLog(ctx context.Context, userID string, habitID int64, date string, completed bool) error {
	if err := models.ValidateDate(date); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO habit_logs (user_id, habit_id, date, completed)
		 SELECT ?, id, ?, ? FROM habits WHERE id = ? AND user_id = ?
		 ON CONFLICT(user_id, habit_id, date) DO UPDATE SET completed = excluded.completed`,
		userID, date, completed, habitID, userID)
	if err != nil {
		slog.Error("SQLiteStore UpsertHabitLog failed", "error", err, "userID", userID, "habitID", habitID)
		return fmt.Errorf("failed to upsert habit log %d on %s: %w", habitID, date, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrHabitNotFound
	}
	slog.Debug("SQLiteStore UpsertHabitLog succeeded", "userID", userID, "habitID", habitID, "date", date, "completed", completed)
	return nil
}

func (s *SQLiteStore) ListHabitLogsForDate(ctx context.Context, userID, date string) ([]models.DailyHabitStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.id, h.name, COALESCE(l.completed, 0)
		 FROM habits h LEFT JOIN habit_logs l ON l.habit_id = h.id AND l.user_id = h.user_id AND l.date = ?
		 WHERE h.user_id = ? ORDER BY h.name, h.id`,
		date, userID)
	if err != nil {
		slog.Error("SQLiteStore ListHabitLogsForDate query failed", "error", err, "userID", userID, "date", date)
		return nil, fmt.Errorf("failed to query daily habits: %w", err)
	}
	return collectDailyStatus(rows)
}

func (s *SQLiteStore) ListHabitLogsInRange(ctx context.Context, userID, from, to string) ([]models.HabitLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.habit_id, h.name, l.date, l.completed
		 FROM habit_logs l JOIN habits h ON h.id = l.habit_id
		 WHERE l.user_id = ? AND l.date >= ? AND l.date <= ?
		 ORDER BY l.date, h.name, l.habit_id`,
		userID, from, to)
	if err != nil {
		slog.Error("SQLiteStore ListHabitLogsInRange query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query habit logs: %w", err)
	}
	return collectHabitLogs(rows)
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}

// SaveFlowState stores or updates the session row for a user.
func (s *SQLiteStore) SaveFlowState(ctx context.Context, state models.FlowState) error {
	var stateDataJSON string
	if len(state.StateData) > 0 {
		b, err := json.Marshal(state.StateData)
		if err != nil {
			slog.Error("SQLiteStore SaveFlowState JSON marshal failed", "error", err, "userID", state.UserID)
			return err
		}
		stateDataJSON = string(b)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flow_states (user_id, flow_type, current_state, state_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET flow_type = excluded.flow_type, current_state = excluded.current_state,
		 state_data = excluded.state_data, updated_at = excluded.updated_at`,
		state.UserID, state.FlowType, state.CurrentState, stateDataJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveFlowState failed", "error", err, "userID", state.UserID, "flowType", state.FlowType)
		return err
	}
	slog.Debug("SQLiteStore SaveFlowState succeeded", "userID", state.UserID, "flowType", state.FlowType, "state", state.CurrentState)
	return nil
}

// GetFlowState retrieves the session row for a user.
func (s *SQLiteStore) GetFlowState(ctx context.Context, userID string) (*models.FlowState, error) {
	var state models.FlowState
	var stateDataJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, flow_type, current_state, state_data, created_at, updated_at FROM flow_states WHERE user_id = ?`,
		userID).Scan(&state.UserID, &state.FlowType, &state.CurrentState, &stateDataJSON, &state.CreatedAt, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetFlowState failed", "error", err, "userID", userID)
		return nil, err
	}
	if stateDataJSON.String != "" {
		state.StateData = make(map[models.ScratchKey]string)
		if err := json.Unmarshal([]byte(stateDataJSON.String), &state.StateData); err != nil {
			// Continue with empty scratch rather than failing
			slog.Error("SQLiteStore GetFlowState JSON unmarshal failed", "error", err, "userID", userID)
			state.StateData = make(map[models.ScratchKey]string)
		}
	}
	return &state, nil
}

// DeleteFlowState removes the session row for a user.
func (s *SQLiteStore) DeleteFlowState(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM flow_states WHERE user_id = ?`, userID); err != nil {
		slog.Error("SQLiteStore DeleteFlowState failed", "error", err, "userID", userID)
		return err
	}
	slog.Debug("SQLiteStore DeleteFlowState succeeded", "userID", userID)
	return nil
}
