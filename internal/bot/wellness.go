package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/DailyBoost/internal/flow"
	"github.com/BTreeMap/DailyBoost/internal/models"
)

// splitArgs separates the leading number from an optional free-text rest.
func splitArgs(args string) (first, rest string) {
	first, rest, _ = strings.Cut(strings.TrimSpace(args), " ")
	return first, strings.TrimSpace(rest)
}

func (r *Router) logWater(ctx context.Context, ev models.Event, args string) ([]models.Reply, error) {
	u, hint, err := r.requireUser(ctx, ev.UserID)
	if u == nil {
		return hint, err
	}
	amount, err := models.ParseWaterTarget(args)
	if err != nil {
		return []models.Reply{models.TextReply("Usage: /water <ml>, for example /water 250")}, nil
	}
	today := r.today(u)
	if err := r.st.AddWaterLog(ctx, u.UserID, today, amount); err != nil {
		return nil, fmt.Errorf("failed to log water: %w", err)
	}
	w, err := r.st.GetDailyWellness(ctx, u.UserID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to load wellness: %w", err)
	}
	slog.Info("Water logged", "userID", u.UserID, "date", today, "amount_ml", amount)

	text := fmt.Sprintf("💧 Logged %dml!\n\nToday: %dml / %dml", amount, w.WaterML, u.WaterTarget)
	if w.WaterML >= u.WaterTarget {
		text += "\n\n🎉 You've reached your water goal today!"
	} else {
		text += fmt.Sprintf("\n\n%dml to go. Keep sipping! 🥤", u.WaterTarget-w.WaterML)
	}
	return []models.Reply{models.TextReply(text)}, nil
}

func (r *Router) logActivity(ctx context.Context, ev models.Event, args string) ([]models.Reply, error) {
	u, hint, err := r.requireUser(ctx, ev.UserID)
	if u == nil {
		return hint, err
	}
	first, rest := splitArgs(args)
	minutes, err := models.ParseMinutes(first)
	if err != nil {
		return []models.Reply{models.TextReply("Usage: /activity <minutes> [what you did], for example /activity 30 running")}, nil
	}
	today := r.today(u)
	if err := r.st.AddActivityLog(ctx, models.ActivityLog{UserID: u.UserID, Date: today, Minutes: minutes, ActivityText: rest}); err != nil {
		return nil, fmt.Errorf("failed to log activity: %w", err)
	}
	w, err := r.st.GetDailyWellness(ctx, u.UserID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to load wellness: %w", err)
	}
	slog.Info("Activity logged", "userID", u.UserID, "date", today, "minutes", minutes)

	what := ""
	if rest != "" {
		what = " of " + rest
	}
	return []models.Reply{models.TextReply(fmt.Sprintf("🏃 Logged %d minutes%s!\n\nActive today: %d minutes 💪",
		minutes, what, w.ActivityMinutes))}, nil
}

func (r *Router) logReading(ctx context.Context, ev models.Event, args string) ([]models.Reply, error) {
	u, hint, err := r.requireUser(ctx, ev.UserID)
	if u == nil {
		return hint, err
	}
	if !u.ReadingEnabled {
		return []models.Reply{models.TextReply("📚 The Reading Tracker is turned off. Enable it with /preferences.")}, nil
	}
	first, title := splitArgs(args)
	minutes, err := models.ParseMinutes(first)
	if err != nil {
		return []models.Reply{models.TextReply("Usage: /reading <minutes> [book title], for example /reading 20 Dune")}, nil
	}
	today := r.today(u)
	if err := r.st.AddReadingLog(ctx, models.ReadingLog{UserID: u.UserID, Date: today, Minutes: minutes, BookTitle: title}); err != nil {
		return nil, fmt.Errorf("failed to log reading: %w", err)
	}
	w, err := r.st.GetDailyWellness(ctx, u.UserID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to load wellness: %w", err)
	}
	slog.Info("Reading logged", "userID", u.UserID, "date", today, "minutes", minutes)

	book := ""
	if title != "" {
		book = " (" + title + ")"
	}
	return []models.Reply{models.TextReply(fmt.Sprintf("📚 Logged %d minutes of reading%s!\n\nRead today: %d minutes 📖",
		minutes, book, w.ReadingMinutes))}, nil
}

func (r *Router) spiritual(ctx context.Context, ev models.Event, _ string) ([]models.Reply, error) {
	u, hint, err := r.requireUser(ctx, ev.UserID)
	if u == nil {
		return hint, err
	}
	if !u.SpiritualEnabled {
		return []models.Reply{models.TextReply("📿 The Spiritual Check is turned off. Enable it with /preferences.")}, nil
	}
	log, err := r.st.GetSpiritualLog(ctx, u.UserID, r.today(u))
	if err != nil {
		return nil, fmt.Errorf("failed to load spiritual log: %w", err)
	}
	return []models.Reply{SpiritualReply(log)}, nil
}

// SpiritualReply renders the day's checklist with an inline toggle per item.
func SpiritualReply(log models.SpiritualLog) models.Reply {
	mark := func(done bool) string {
		if done {
			return "✅"
		}
		return "⬜"
	}
	text := "📿 Today's Spiritual Check\n\n" +
		mark(log.PrayerDone) + " Prayer\n" +
		mark(log.ScriptureDone) + " Scripture reading"
	if log.PrayerDone && log.ScriptureDone {
		text += "\n\n🙏 All done for today!"
	}
	return models.Reply{
		Text: text,
		Keyboard: &models.Keyboard{Inline: true, Rows: [][]models.Button{
			{{Label: mark(!log.PrayerDone) + " Prayer", Data: flow.SpiritualTogglePrefix + flow.SpiritualPrayer}},
			{{Label: mark(!log.ScriptureDone) + " Scripture", Data: flow.SpiritualTogglePrefix + flow.SpiritualScripture}},
		}},
	}
}

// toggleHabit records today's completion from a progress button and
// re-renders the progress message.
func (r *Router) toggleHabit(ctx context.Context, userID, payload string) ([]models.Reply, error) {
	habitID, completed, ok := flow.ParseHabitToggle(payload)
	if !ok {
		slog.Warn("Router malformed habit button", "userID", userID, "payload", payload)
		return []models.Reply{models.TextReply(flow.FallbackText)}, nil
	}
	u, err := r.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := r.today(u)
	err = r.st.UpsertHabitLog(ctx, userID, habitID, today, completed)
	if errors.Is(err, models.ErrHabitNotFound) {
		slog.Debug("Router stale habit button", "userID", userID, "habitID", habitID)
		rows, lerr := r.stats.DailyCompletion(ctx, userID, today)
		if lerr != nil {
			return nil, lerr
		}
		out := flow.HabitProgressReply(rows)
		out.Text = "That habit no longer exists.\n\n" + out.Text
		return []models.Reply{out}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to log habit: %w", err)
	}
	slog.Info("Habit toggled", "userID", userID, "habitID", habitID, "date", today, "completed", completed)

	rows, err := r.stats.DailyCompletion(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	return []models.Reply{flow.HabitProgressReply(rows)}, nil
}

// toggleSpiritual flips one item of today's spiritual checklist.
func (r *Router) toggleSpiritual(ctx context.Context, userID, payload string) ([]models.Reply, error) {
	item := strings.TrimPrefix(payload, flow.SpiritualTogglePrefix)
	if item != flow.SpiritualPrayer && item != flow.SpiritualScripture {
		slog.Warn("Router malformed spiritual button", "userID", userID, "payload", payload)
		return []models.Reply{models.TextReply(flow.FallbackText)}, nil
	}
	u, err := r.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return []models.Reply{models.TextReply(needsStartText)}, nil
	}
	today := r.today(u)
	log, err := r.st.GetSpiritualLog(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to load spiritual log: %w", err)
	}
	log.UserID, log.Date = userID, today
	if item == flow.SpiritualPrayer {
		log.PrayerDone = !log.PrayerDone
	} else {
		log.ScriptureDone = !log.ScriptureDone
	}
	if err := r.st.UpsertSpiritualLog(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to save spiritual log: %w", err)
	}
	slog.Info("Spiritual toggled", "userID", userID, "item", item, "date", today)
	return []models.Reply{SpiritualReply(log)}, nil
}
