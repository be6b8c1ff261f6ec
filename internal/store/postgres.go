package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	"github.com/BTreeMap/DailyBoost/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetUser not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetUser failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, userID, username, preferredName string) error {
	if userID == "" {
		return models.ErrEmptyUserID
	}
	u := models.NewUser(userID, username, preferredName)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (user_id) DO NOTHING`,
		u.UserID, u.Username, u.PreferredName, u.Timezone, u.Bedtime, u.Waketime, u.WaterTarget,
		u.SpiritualEnabled, u.ReadingEnabled, u.HabitsEnabled, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore CreateUser failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to create user %s: %w", userID, err)
	}
	slog.Debug("PostgresStore CreateUser succeeded", "userID", userID)
	return nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, userID string, upd models.UserUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	cols, args := userUpdateColumns(upd)
	sets := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+1))
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(cols)+1))
	args = append(args, time.Now(), userID)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE user_id = $%d`, strings.Join(sets, ", "), len(cols)+2)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Error("PostgresStore UpdateUser failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to update user %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrUserNotFound
	}
	slog.Debug("PostgresStore UpdateUser succeeded", "userID", userID, "fields", cols)
	return nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY user_id`)
	if err != nil {
		slog.Error("PostgresStore ListUsers query failed", "error", err)
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return collectUsers(rows)
}

func (s *PostgresStore) UpsertMood(ctx context.Context, userID, date string, score int, note string) error {
	if score < models.MinMoodScore || score > models.MaxMoodScore {
		return models.ErrInvalidMoodScore
	}
	if err := models.ValidateDate(date); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mood_logs (user_id, date, score, note, created_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, date) DO UPDATE SET score = EXCLUDED.score, note = EXCLUDED.note, created_at = EXCLUDED.created_at`,
		userID, date, score, note, time.Now())
	if err != nil {
		slog.Error("PostgresStore UpsertMood failed", "error", err, "userID", userID, "date", date)
		return fmt.Errorf("failed to upsert mood for %s on %s: %w", userID, date, err)
	}
	slog.Debug("PostgresStore UpsertMood succeeded", "userID", userID, "date", date, "score", score)
	return nil
}

func (s *PostgresStore) GetMood(ctx context.Context, userID, date string) (*models.MoodEntry, error) {
	var m models.MoodEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, date, score, note, created_at FROM mood_logs WHERE user_id = $1 AND date = $2`,
		userID, date).Scan(&m.UserID, &m.Date, &m.Score, &m.Note, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetMood failed", "error", err, "userID", userID, "date", date)
		return nil, fmt.Errorf("failed to get mood for %s on %s: %w", userID, date, err)
	}
	return &m, nil
}

func (s *PostgresStore) ListMoodsInRange(ctx context.Context, userID, from, to string) ([]models.MoodEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, date, score, note, created_at FROM mood_logs
		 WHERE user_id = $1 AND date >= $2 AND date <= $3 ORDER BY date`,
		userID, from, to)
	if err != nil {
		slog.Error("PostgresStore ListMoodsInRange query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query moods: %w", err)
	}
	return collectMoods(rows)
}

func (s *PostgresStore) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM habits WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		slog.Error("PostgresStore ListHabits query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	return collectHabits(rows)
}

func (s *PostgresStore) AddHabit(ctx context.Context, userID, name string) (int64, error) {
	name, err := models.ValidateFreeText(name)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO habits (user_id, name, created_at) VALUES ($1, $2, $3) RETURNING id`,
		userID, name, time.Now()).Scan(&id)
	if err != nil {
		slog.Error("PostgresStore AddHabit failed", "error", err, "userID", userID)
		return 0, fmt.Errorf("failed to add habit for %s: %w", userID, err)
	}
	slog.Debug("PostgresStore AddHabit succeeded", "userID", userID, "habitID", id)
	return id, nil
}

func (s *PostgresStore) DeleteHabit(ctx context.Context, userID string, habitID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete habit transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM habit_logs WHERE habit_id = $1 AND user_id = $2`, habitID, userID); err != nil {
		slog.Error("PostgresStore DeleteHabit log cleanup failed", "error", err, "habitID", habitID)
		return fmt.Errorf("failed to delete logs of habit %d: %w", habitID, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, habitID, userID)
	if err != nil {
		slog.Error("PostgresStore DeleteHabit failed", "error", err, "userID", userID, "habitID", habitID)
		return fmt.Errorf("failed to delete habit %d: %w", habitID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrHabitNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete habit: %w", err)
	}
	slog.Debug("PostgresStore DeleteHabit succeeded", "userID", userID, "habitID", habitID)
	return nil
}

func (s *PostgresStore) UpsertHabitLog(ctx context.Context, userID string, habitID int64, date string, completed bool) error {
	if err := models.ValidateDate(date); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO habit_logs (user_id, habit_id, date, completed)
		 SELECT $1, id, $2, $3 FROM habits WHERE id = $4 AND user_id = $1
		 ON CONFLICT (user_id, habit_id, date) DO UPDATE SET completed = EXCLUDED.completed`,
		userID, date, completed, habitID)
	if err != nil {
		slog.Error("PostgresStore UpsertHabitLog failed", "error", err, "userID", userID, "habitID", habitID)
		return fmt.Errorf("failed to upsert habit log %d on %s: %w", habitID, date, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrHabitNotFound
	}
	slog.Debug("PostgresStore UpsertHabitLog succeeded", "userID", userID, "habitID", habitID, "date", date, "completed", completed)
	return nil
}

func (s *PostgresStore) ListHabitLogsForDate(ctx context.Context, userID, date string) ([]models.DailyHabitStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.id, h.name, COALESCE(l.completed, FALSE)
		 FROM habits h LEFT JOIN habit_logs l ON l.habit_id = h.id AND l.user_id = h.user_id AND l.date = $1
		 WHERE h.user_id = $2 ORDER BY h.name, h.id`,
		date, userID)
	if err != nil {
		slog.Error("PostgresStore ListHabitLogsForDate query failed", "error", err, "userID", userID, "date", date)
		return nil, fmt.Errorf("failed to query daily habits: %w", err)
	}
	return collectDailyStatus(rows)
}

func (s *PostgresStore) ListHabitLogsInRange(ctx context.Context, userID, from, to string) ([]models.HabitLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.habit_id, h.name, l.date, l.completed
		 FROM habit_logs l JOIN habits h ON h.id = l.habit_id
		 WHERE l.user_id = $1 AND l.date >= $2 AND l.date <= $3
		 ORDER BY l.date, h.name, l.habit_id`,
		userID, from, to)
	if err != nil {
		slog.Error("PostgresStore ListHabitLogsInRange query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query habit logs: %w", err)
	}
	return collectHabitLogs(rows)
}

// Close closes the Postgres database connection pool.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}

// SaveFlowState stores or updates the session row for a user.
func (s *PostgresStore) SaveFlowState(ctx context.Context, state models.FlowState) error {
	var stateData interface{}
	if len(state.StateData) > 0 {
		b, err := json.Marshal(state.StateData)
		if err != nil {
			slog.Error("PostgresStore SaveFlowState JSON marshal failed", "error", err, "userID", state.UserID)
			return err
		}
		stateData = string(b)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flow_states (user_id, flow_type, current_state, state_data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET flow_type = EXCLUDED.flow_type, current_state = EXCLUDED.current_state,
		 state_data = EXCLUDED.state_data, updated_at = EXCLUDED.updated_at`,
		state.UserID, state.FlowType, state.CurrentState, stateData, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveFlowState failed", "error", err, "userID", state.UserID, "flowType", state.FlowType)
		return err
	}
	slog.Debug("PostgresStore SaveFlowState succeeded", "userID", state.UserID, "flowType", state.FlowType, "state", state.CurrentState)
	return nil
}

// GetFlowState retrieves the session row for a user.
func (s *PostgresStore) GetFlowState(ctx context.Context, userID string) (*models.FlowState, error) {
	var state models.FlowState
	var stateDataJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, flow_type, current_state, state_data, created_at, updated_at FROM flow_states WHERE user_id = $1`,
		userID).Scan(&state.UserID, &state.FlowType, &state.CurrentState, &stateDataJSON, &state.CreatedAt, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetFlowState failed", "error", err, "userID", userID)
		return nil, err
	}
	if stateDataJSON.Valid && stateDataJSON.String != "" {
		state.StateData = make(map[models.ScratchKey]string)
		if err := json.Unmarshal([]byte(stateDataJSON.String), &state.StateData); err != nil {
			slog.Error("PostgresStore GetFlowState JSON unmarshal failed", "error", err, "userID", userID)
			state.StateData = make(map[models.ScratchKey]string)
		}
	}
	return &state, nil
}

// DeleteFlowState removes the session row for a user.
func (s *PostgresStore) DeleteFlowState(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM flow_states WHERE user_id = $1`, userID); err != nil {
		slog.Error("PostgresStore DeleteFlowState failed", "error", err, "userID", userID)
		return err
	}
	slog.Debug("PostgresStore DeleteFlowState succeeded", "userID", userID)
	return nil
}
