package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// Command names.
const (
	CmdStart        = "/start"
	CmdHelp         = "/help"
	CmdPreferences  = "/preferences"
	CmdMood         = "/mood"
	CmdMoodStats    = "/moodstats"
	CmdHabits       = "/habits"
	CmdToday        = "/today"
	CmdHabitTracker = "/habittracker"
	CmdHabitStreak  = "/habitstreak"
	CmdHabitStats   = "/habitstats"
	CmdWater        = "/water"
	CmdActivity     = "/activity"
	CmdReading      = "/reading"
	CmdSpiritual    = "/spiritual"
	CmdInsight      = "/insight"
	CmdCancel       = "/cancel"
)

const (
	helpText = "🤖 Daily Boost Bot Commands\n\n" +
		"⚙️ Setup & Settings\n" +
		"/start - Set up your profile\n" +
		"/preferences - Update your preferences and settings\n\n" +
		"😊 Mood Tracking\n" +
		"/mood - Track your daily mood (1-5 rating + note)\n" +
		"/moodstats - View monthly mood statistics\n\n" +
		"🎯 Habit Tracking\n" +
		"/habits - Create or delete your habits\n" +
		"/today - Tick off today's habits\n" +
		"/habittracker - Weekly habit completion report\n" +
		"/habitstreak - Current streak of all habits completed\n" +
		"/habitstats - Overall completion percentage badge\n\n" +
		"💪 Daily Logs\n" +
		"/water <ml> - Log water intake\n" +
		"/activity <minutes> [what you did] - Log physical activity\n" +
		"/reading <minutes> [book] - Log reading (Reading Tracker)\n" +
		"/spiritual - Prayer and scripture checklist (Spiritual Check)\n" +
		"/insight - Your weekly reflection\n\n" +
		"ℹ️ Help\n" +
		"/cancel - Stop what you're doing\n" +
		"/help - Show this command list\n\n" +
		"📅 Daily Reminders:\n" +
		"• 21:30 - Daily habit check-in with interactive buttons\n\n" +
		"Start building better habits today! 🌟"

	needsStartText = "Please use /start first to set up your account!"
)

// commandFunc handles one slash command. args is the text after the command name.
type commandFunc func(r *Router, ctx context.Context, ev models.Event, args string) ([]models.Reply, error)

var commands = map[string]commandFunc{
	CmdStart:        startFlow(models.FlowOnboarding, false),
	CmdHelp:         (*Router).help,
	CmdPreferences:  startFlow(models.FlowPreferences, false),
	CmdMood:         startFlow(models.FlowMood, true),
	CmdMoodStats:    (*Router).moodStats,
	CmdHabits:       startFlow(models.FlowHabit, true),
	CmdToday:        (*Router).todayProgress,
	CmdHabitTracker: (*Router).habitTracker,
	CmdHabitStreak:  (*Router).habitStreak,
	CmdHabitStats:   (*Router).habitStats,
	CmdWater:        (*Router).logWater,
	CmdActivity:     (*Router).logActivity,
	CmdReading:      (*Router).logReading,
	CmdSpiritual:    (*Router).spiritual,
	CmdInsight:      (*Router).weeklyInsight,
	CmdCancel:       (*Router).cancel,
}

func (r *Router) command(ctx context.Context, ev models.Event) ([]models.Reply, error) {
	name, args := ev.Command()
	fn, ok := commands[name]
	if !ok {
		slog.Debug("Router unknown command", "userID", ev.UserID, "command", name)
		return []models.Reply{models.TextReply(fmt.Sprintf("Unknown command %s. Use /help to see available commands.", name))}, nil
	}
	slog.Info("Router command", "userID", ev.UserID, "command", name)
	return fn(r, ctx, ev, args)
}

// startFlow returns a command that enters flowType. With ensureUser the user
// is created with default settings first.
func startFlow(flowType models.FlowType, ensureUser bool) commandFunc {
	return func(r *Router, ctx context.Context, ev models.Event, _ string) ([]models.Reply, error) {
		if ensureUser {
			if err := r.st.CreateUser(ctx, ev.UserID, ev.Username, ""); err != nil {
				return nil, fmt.Errorf("failed to create user: %w", err)
			}
		}
		return r.engine.Start(ctx, flowType, ev.UserID, ev.Username)
	}
}

func (r *Router) help(ctx context.Context, ev models.Event, _ string) ([]models.Reply, error) {
	return []models.Reply{models.TextReply(helpText)}, nil
}

func (r *Router) cancel(ctx context.Context, ev models.Event, _ string) ([]models.Reply, error) {
	return r.engine.Cancel(ctx, ev.UserID)
}

// requireUser loads the user or returns the /start hint as a reply.
func (r *Router) requireUser(ctx context.Context, userID string) (*models.User, []models.Reply, error) {
	u, err := r.user(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if u == nil {
		return nil, []models.Reply{models.TextReply(needsStartText)}, nil
	}
	return u, nil, nil
}
