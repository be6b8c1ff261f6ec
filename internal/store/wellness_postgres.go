package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

func (s *PostgresStore) AddWaterLog(ctx context.Context, userID, date string, amountML int) error {
	if amountML <= 0 {
		return fmt.Errorf("water amount must be positive: %d", amountML)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO water_logs (user_id, date, amount_ml, created_at) VALUES ($1, $2, $3, $4)`,
		userID, date, amountML, time.Now())
	if err != nil {
		slog.Error("PostgresStore AddWaterLog failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to add water log: %w", err)
	}
	slog.Debug("PostgresStore AddWaterLog succeeded", "userID", userID, "date", date, "amount_ml", amountML)
	return nil
}

func (s *PostgresStore) AddActivityLog(ctx context.Context, log models.ActivityLog) error {
	if log.Minutes <= 0 {
		return models.ErrInvalidMinutes
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_logs (user_id, date, minutes, activity_text, created_at) VALUES ($1, $2, $3, $4, $5)`,
		log.UserID, log.Date, log.Minutes, log.ActivityText, time.Now())
	if err != nil {
		slog.Error("PostgresStore AddActivityLog failed", "error", err, "userID", log.UserID)
		return fmt.Errorf("failed to add activity log: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddReadingLog(ctx context.Context, log models.ReadingLog) error {
	if log.Minutes <= 0 {
		return models.ErrInvalidMinutes
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reading_logs (user_id, date, minutes, book_title, created_at) VALUES ($1, $2, $3, $4, $5)`,
		log.UserID, log.Date, log.Minutes, log.BookTitle, time.Now())
	if err != nil {
		slog.Error("PostgresStore AddReadingLog failed", "error", err, "userID", log.UserID)
		return fmt.Errorf("failed to add reading log: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSpiritualLog(ctx context.Context, userID, date string) (models.SpiritualLog, error) {
	l := models.SpiritualLog{UserID: userID, Date: date}
	err := s.db.QueryRowContext(ctx,
		`SELECT prayer_done, scripture_done FROM spiritual_logs WHERE user_id = $1 AND date = $2`,
		userID, date).Scan(&l.PrayerDone, &l.ScriptureDone)
	if err != nil && err != sql.ErrNoRows {
		slog.Error("PostgresStore GetSpiritualLog failed", "error", err, "userID", userID)
		return l, fmt.Errorf("failed to get spiritual log: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) UpsertSpiritualLog(ctx context.Context, log models.SpiritualLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spiritual_logs (user_id, date, prayer_done, scripture_done, updated_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, date) DO UPDATE SET prayer_done = EXCLUDED.prayer_done,
		 scripture_done = EXCLUDED.scripture_done, updated_at = EXCLUDED.updated_at`,
		log.UserID, log.Date, log.PrayerDone, log.ScriptureDone, time.Now())
	if err != nil {
		slog.Error("PostgresStore UpsertSpiritualLog failed", "error", err, "userID", log.UserID)
		return fmt.Errorf("failed to upsert spiritual log: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDailyWellness(ctx context.Context, userID, date string) (models.DailyWellness, error) {
	d := models.DailyWellness{Date: date}
	err := s.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COALESCE(SUM(amount_ml), 0) FROM water_logs WHERE user_id = $1 AND date = $2),
		   (SELECT COALESCE(SUM(minutes), 0) FROM activity_logs WHERE user_id = $1 AND date = $2),
		   (SELECT COALESCE(SUM(minutes), 0) FROM reading_logs WHERE user_id = $1 AND date = $2)`,
		userID, date).Scan(&d.WaterML, &d.ActivityMinutes, &d.ReadingMinutes)
	if err != nil {
		slog.Error("PostgresStore GetDailyWellness failed", "error", err, "userID", userID)
		return d, fmt.Errorf("failed to summarize wellness logs: %w", err)
	}
	d.Spiritual, err = s.GetSpiritualLog(ctx, userID, date)
	return d, err
}
