package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/DailyBoost/internal/flow"
	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/store"
)

// DefaultCheckinSchedule is the cron expression of the evening check-in.
const DefaultCheckinSchedule = "30 21 * * *"

// ErrNoDelivery is returned when neither an outbox nor a sender is configured.
var ErrNoDelivery = errors.New("no check-in delivery configured")

// CheckinDedupeKey identifies one user's check-in for one date.
func CheckinDedupeKey(userID, date string) string {
	return fmt.Sprintf("checkin:%s:%s", userID, date)
}

// CheckinReply is the evening message with today's habit toggles.
func CheckinReply(u models.User, rows []models.DailyHabitStatus) models.Reply {
	out := flow.HabitProgressReply(rows)
	out.Text = fmt.Sprintf("🌙 Evening check-in, %s!\n\nHow did your habits go today?\n\n", u.DisplayName()) + out.Text
	return out
}

// SendCheckins queues or sends the daily check-in to every user with habits
// enabled and at least one habit. It returns the number of users reached.
// Failures for one user are logged and do not stop the others.
func (r *Router) SendCheckins(ctx context.Context) (int, error) {
	if r.outbox == nil && r.sender == nil {
		return 0, ErrNoDelivery
	}
	users, err := r.st.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}
	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if !u.HabitsEnabled {
			continue
		}
		ok, err := r.checkin(ctx, u)
		if err != nil {
			slog.Error("Router check-in failed", "error", err, "userID", u.UserID)
			continue
		}
		if ok {
			sent++
		}
	}
	slog.Info("Router check-ins dispatched", "users", len(users), "sent", sent)
	return sent, nil
}

func (r *Router) checkin(ctx context.Context, u models.User) (bool, error) {
	today := r.today(&u)
	rows, err := r.stats.DailyCompletion(ctx, u.UserID, today)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	msg := CheckinReply(u, rows)

	if r.outbox != nil {
		payload, err := json.Marshal(msg)
		if err != nil {
			return false, fmt.Errorf("failed to encode check-in: %w", err)
		}
		id, err := r.outbox.EnqueueOutboxMessage(ctx, u.UserID, store.OutboxKindCheckin, string(payload), CheckinDedupeKey(u.UserID, today))
		if err != nil {
			return false, fmt.Errorf("failed to enqueue check-in: %w", err)
		}
		slog.Debug("Router check-in enqueued", "userID", u.UserID, "date", today, "outboxID", id)
		return true, nil
	}

	if err := r.sender.SendReply(ctx, u.UserID, msg); err != nil {
		return false, fmt.Errorf("failed to send check-in: %w", err)
	}
	return true, nil
}

// DecodeOutboxReply decodes the reply stored in an outbox message.
func DecodeOutboxReply(msg store.OutboxMessage) (models.Reply, error) {
	var out models.Reply
	if err := json.Unmarshal([]byte(msg.PayloadJSON), &out); err != nil {
		return models.Reply{}, fmt.Errorf("failed to decode outbox payload %s: %w", msg.ID, err)
	}
	return out, nil
}

// OutboxSendFunc adapts a ReplySender to the outbox sender callback.
func OutboxSendFunc(s ReplySender) store.OutboxSendFunc {
	return func(ctx context.Context, msg store.OutboxMessage) error {
		reply, err := DecodeOutboxReply(msg)
		if err != nil {
			return err
		}
		return s.SendReply(ctx, msg.UserID, reply)
	}
}
