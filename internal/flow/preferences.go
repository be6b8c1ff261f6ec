package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/store"
)

// Preferences lets an onboarded user change one part of their profile.
type Preferences struct {
	gw store.UserRepo
}

// NewPreferences creates the preferences flow.
func NewPreferences(gw store.UserRepo) *Preferences {
	return &Preferences{gw: gw}
}

func (f *Preferences) Type() models.FlowType { return models.FlowPreferences }

const prefsFooter = "\n\nUse /preferences to change other settings."

func (f *Preferences) Begin(ctx context.Context, t *Turn) (Outcome, error) {
	if t.User == nil {
		return complete(models.TextReply("You haven't completed onboarding yet! Use /start to set up your profile first.")), nil
	}
	t.Goto(models.StepPrefsMainMenu)
	return advance(f.menu(t.User)), nil
}

func (f *Preferences) menu(u *models.User) models.Reply {
	text := "Your Current Preferences:\n\n" +
		fmt.Sprintf("👤 Name: %s\n", u.DisplayName()) +
		fmt.Sprintf("🛏️ Sleep: %s - %s\n", u.Bedtime, u.Waketime) +
		fmt.Sprintf("💧 Water Goal: %dml\n\n", u.WaterTarget) +
		"Optional Modules:\n" +
		fmt.Sprintf("📿 Spiritual Check: %s\n", checkmark(u.SpiritualEnabled)) +
		fmt.Sprintf("📚 Reading Tracker: %s\n", checkmark(u.ReadingEnabled)) +
		fmt.Sprintf("🎯 Custom Habits: %s\n\n", checkmark(u.HabitsEnabled)) +
		"What would you like to change?"
	return reply(text, replyKeyboard(
		[]token{tokChangeName, tokChangeSleep},
		[]token{tokChangeWater, tokToggle},
		[]token{tokCancel},
	))
}

func (f *Preferences) Prompt(ctx context.Context, t *Turn) (models.Reply, error) {
	switch t.Session.Step {
	case models.StepPrefsMainMenu:
		if t.User == nil {
			return models.Reply{}, &StateError{Flow: f.Type(), Step: t.Session.Step}
		}
		return f.menu(t.User), nil
	case models.StepPrefsChangeName:
		return models.TextReply("What would you like me to call you? (Enter your preferred name or nickname)"), nil
	case models.StepPrefsChangeBedtime:
		return models.TextReply(bedtimePrompt), nil
	case models.StepPrefsChangeWake:
		return models.TextReply(waketimePrompt), nil
	case models.StepPrefsChangeWater:
		return models.TextReply(waterPrompt), nil
	case models.StepPrefsToggleModules:
		return modulesPrompt(loadModules(t.Session)), nil
	}
	return models.Reply{}, &StateError{Flow: f.Type(), Step: t.Session.Step}
}

func (f *Preferences) Step(ctx context.Context, t *Turn, input string) (Outcome, error) {
	step := t.Session.Step
	if t.User == nil {
		return Outcome{}, &StateError{Flow: f.Type(), Step: step}
	}
	switch step {
	case models.StepPrefsMainMenu:
		return f.stepMenu(ctx, t, input)

	case models.StepPrefsChangeName:
		name, err := models.ValidateFreeText(input)
		if err != nil {
			return Outcome{}, invalid(step, "Please enter a name.", err)
		}
		if err := f.update(ctx, t, models.UserUpdate{PreferredName: &name}); err != nil {
			return Outcome{}, err
		}
		return complete(reply("✅ Name updated to: "+name+prefsFooter, textKeyboard("/preferences"))), nil

	case models.StepPrefsChangeBedtime:
		bed, err := models.ParseTime(input)
		if err != nil {
			return Outcome{}, invalid(step, fmt.Sprintf(badTimeMsg, "22:30"), err)
		}
		t.Session.Set(models.ScratchBedtime, bed)
		t.Goto(models.StepPrefsChangeWake)
		return advance(models.TextReply("Great! " + waketimePrompt)), nil

	case models.StepPrefsChangeWake:
		wake, err := models.ParseTime(input)
		if err != nil {
			return Outcome{}, invalid(step, fmt.Sprintf(badTimeMsg, "07:00"), err)
		}
		bed := t.Session.Get(models.ScratchBedtime)
		if !models.IsValidTime(bed) {
			return Outcome{}, &StateError{Flow: f.Type(), Step: step}
		}
		if err := f.update(ctx, t, models.UserUpdate{Bedtime: &bed, Waketime: &wake}); err != nil {
			return Outcome{}, err
		}
		return complete(reply(fmt.Sprintf("✅ Sleep times updated!\n🛏️ Bedtime: %s\n⏰ Wake time: %s%s", bed, wake, prefsFooter),
			textKeyboard("/preferences"))), nil

	case models.StepPrefsChangeWater:
		water, err := models.ParseWaterTarget(input)
		if err != nil {
			return Outcome{}, invalid(step, badWaterMsg, err)
		}
		if err := f.update(ctx, t, models.UserUpdate{WaterTarget: &water}); err != nil {
			return Outcome{}, err
		}
		return complete(reply(fmt.Sprintf("✅ Water goal updated to %dml!%s", water, prefsFooter), textKeyboard("/preferences"))), nil

	case models.StepPrefsToggleModules:
		flags, done, out := stepModules(t, input)
		if !done {
			return out, nil
		}
		if err := f.update(ctx, t, flags.update()); err != nil {
			return Outcome{}, err
		}
		text := "✅ Modules updated!\n\n" +
			fmt.Sprintf("📿 Spiritual Check: %s\n", checkmark(flags.Spiritual)) +
			fmt.Sprintf("📚 Reading Tracker: %s\n", checkmark(flags.Reading)) +
			fmt.Sprintf("🎯 Custom Habits: %s", checkmark(flags.Habits)) +
			prefsFooter
		return complete(reply(text, textKeyboard("/preferences"))), nil
	}
	return Outcome{}, &StateError{Flow: f.Type(), Step: step}
}

func (f *Preferences) stepMenu(ctx context.Context, t *Turn, input string) (Outcome, error) {
	switch {
	case tokChangeName.matches(input):
		t.Goto(models.StepPrefsChangeName)
	case tokChangeSleep.matches(input):
		t.Goto(models.StepPrefsChangeBedtime)
		return advance(models.TextReply("Let's update your sleep schedule.\n\n" + bedtimePrompt)), nil
	case tokChangeWater.matches(input):
		t.Goto(models.StepPrefsChangeWater)
	case tokToggle.matches(input):
		modulesFromUser(t.User).store(&t.Session)
		t.Goto(models.StepPrefsToggleModules)
	case tokCancel.matches(input):
		return cancel(reply("Preferences cancelled. Use /preferences anytime to update your settings!", textKeyboard("/help"))), nil
	default:
		return stay(unrecognized(f.menu(t.User))), nil
	}
	prompt, err := f.Prompt(ctx, t)
	if err != nil {
		return Outcome{}, err
	}
	return advance(prompt), nil
}

func (f *Preferences) update(ctx context.Context, t *Turn, upd models.UserUpdate) error {
	if err := f.gw.UpdateUser(ctx, t.UserID, upd); err != nil {
		return persistence("UpdateUser", err)
	}
	slog.Info("Preferences updated", "userID", t.UserID, "step", t.Session.Step)
	return nil
}
