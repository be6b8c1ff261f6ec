package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

func (s *SQLiteStore) AddWaterLog(ctx context.Context, userID, date string, amountML int) error {
	if amountML <= 0 {
		return fmt.Errorf("water amount must be positive: %d", amountML)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO water_logs (user_id, date, amount_ml, created_at) VALUES (?, ?, ?, ?)`,
		userID, date, amountML, time.Now())
	if err != nil {
		slog.Error("SQLiteStore AddWaterLog failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to add water log: %w", err)
	}
	slog.Debug("SQLiteStore AddWaterLog succeeded", "userID", userID, "date", date, "amount_ml", amountML)
	return nil
}

func (s *SQLiteStore) AddActivityLog(ctx context.Context, log models.ActivityLog) error {
	if log.Minutes <= 0 {
		return models.ErrInvalidMinutes
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_logs (user_id, date, minutes, activity_text, created_at) VALUES (?, ?, ?, ?, ?)`,
		log.UserID, log.Date, log.Minutes, log.ActivityText, time.Now())
	if err != nil {
		slog.Error("SQLiteStore AddActivityLog failed", "error", err, "userID", log.UserID)
		return fmt.Errorf("failed to add activity log: %w", err)
	}
	slog.Debug("SQLiteStore AddActivityLog succeeded", "userID", log.UserID, "minutes", log.Minutes)
	return nil
}

func (s *SQLiteStore) AddReadingLog(ctx context.Context, log models.ReadingLog) error {
	if log.Minutes <= 0 {
		return models.ErrInvalidMinutes
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reading_logs (user_id, date, minutes, book_title, created_at) VALUES (?, ?, ?, ?, ?)`,
		log.UserID, log.Date, log.Minutes, log.BookTitle, time.Now())
	if err != nil {
		slog.Error("SQLiteStore AddReadingLog failed", "error", err, "userID", log.UserID)
		return fmt.Errorf("failed to add reading log: %w", err)
	}
	slog.Debug("SQLiteStore AddReadingLog succeeded", "userID", log.UserID, "minutes", log.Minutes)
	return nil
}

func (s *SQLiteStore) GetSpiritualLog(ctx context.Context, userID, date string) (models.SpiritualLog, error) {
	l := models.SpiritualLog{UserID: userID, Date: date}
	err := s.db.QueryRowContext(ctx,
		`SELECT prayer_done, scripture_done FROM spiritual_logs WHERE user_id = ? AND date = ?`,
		userID, date).Scan(&l.PrayerDone, &l.ScriptureDone)
	if err != nil && err != sql.ErrNoRows {
		slog.Error("SQLiteStore GetSpiritualLog failed", "error", err, "userID", userID)
		return l, fmt.Errorf("failed to get spiritual log: %w", err)
	}
	return l, nil
}

func (s *SQLiteStore) UpsertSpiritualLog(ctx context.Context, log models.SpiritualLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spiritual_logs (user_id, date, prayer_done, scripture_done, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET prayer_done = excluded.prayer_done,
		 scripture_done = excluded.scripture_done, updated_at = excluded.updated_at`,
		log.UserID, log.Date, log.PrayerDone, log.ScriptureDone, time.Now())
	if err != nil {
		slog.Error("SQLiteStore UpsertSpiritualLog failed", "error", err, "userID", log.UserID)
		return fmt.Errorf("failed to upsert spiritual log: %w", err)
	}
	slog.Debug("SQLiteStore UpsertSpiritualLog succeeded", "userID", log.UserID, "date", log.Date)
	return nil
}

func (s *SQLiteStore) GetDailyWellness(ctx context.Context, userID, date string) (models.DailyWellness, error) {
	d := models.DailyWellness{Date: date}
	err := s.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COALESCE(SUM(amount_ml), 0) FROM water_logs WHERE user_id = ? AND date = ?),
		   (SELECT COALESCE(SUM(minutes), 0) FROM activity_logs WHERE user_id = ? AND date = ?),
		   (SELECT COALESCE(SUM(minutes), 0) FROM reading_logs WHERE user_id = ? AND date = ?)`,
		userID, date, userID, date, userID, date).Scan(&d.WaterML, &d.ActivityMinutes, &d.ReadingMinutes)
	if err != nil {
		slog.Error("SQLiteStore GetDailyWellness failed", "error", err, "userID", userID)
		return d, fmt.Errorf("failed to summarize wellness logs: %w", err)
	}
	d.Spiritual, err = s.GetSpiritualLog(ctx, userID, date)
	if err != nil {
		return d, err
	}
	return d, nil
}
