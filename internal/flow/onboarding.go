package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/store"
)

// Onboarding collects name, sleep times, water goal and modules from a new
// user and commits them in one go.
type Onboarding struct {
	gw store.UserRepo
}

// NewOnboarding creates the onboarding flow.
func NewOnboarding(gw store.UserRepo) *Onboarding {
	return &Onboarding{gw: gw}
}

func (f *Onboarding) Type() models.FlowType { return models.FlowOnboarding }

const (
	bedtimePrompt  = "What's your target bedtime? (Format: HH:MM, e.g., 22:30)"
	waketimePrompt = "What time do you usually wake up? (Format: HH:MM, e.g., 07:00)"
	waterPrompt    = "What's your daily water intake goal in ml? (e.g., 2500)"
	badTimeMsg     = "Please enter a valid time in HH:MM format (e.g., %s)"
	badWaterMsg    = "Please enter a valid number for your water target (e.g., 2500)"
)

func (f *Onboarding) Begin(ctx context.Context, t *Turn) (Outcome, error) {
	if t.User != nil {
		return complete(models.TextReply(welcomeBackText)), nil
	}
	t.Goto(models.StepOnboardingName)
	return advance(models.TextReply(
		"Welcome to Daily Boost! 🚀\n\n" +
			"I'm here to help you track your daily wellness activities and build healthy habits.\n\n" +
			"Let's get you set up! First, what would you like me to call you? " +
			"(Just your preferred name or nickname)")), nil
}

const welcomeBackText = "Welcome back! 🌟\n\n" +
	"Your Daily Boost is ready to help you track your wellness journey.\n" +
	"Use /help to see all available commands or /preferences to update your settings."

func (f *Onboarding) Prompt(ctx context.Context, t *Turn) (models.Reply, error) {
	switch t.Session.Step {
	case models.StepOnboardingName:
		return models.TextReply("What would you like me to call you?"), nil
	case models.StepOnboardingBedtime:
		return models.TextReply(bedtimePrompt), nil
	case models.StepOnboardingWaketime:
		return models.TextReply(waketimePrompt), nil
	case models.StepOnboardingWater:
		return models.TextReply(waterPrompt), nil
	case models.StepOnboardingModules:
		return modulesPrompt(loadModules(t.Session)), nil
	}
	return models.Reply{}, &StateError{Flow: f.Type(), Step: t.Session.Step}
}

func (f *Onboarding) Step(ctx context.Context, t *Turn, input string) (Outcome, error) {
	step := t.Session.Step
	switch step {
	case models.StepOnboardingName:
		name, err := models.ValidateFreeText(input)
		if err != nil {
			return Outcome{}, invalid(step, "Please tell me a name I can call you.", err)
		}
		t.Session.Set(models.ScratchName, name)
		t.Goto(models.StepOnboardingBedtime)
		return advance(models.TextReply(fmt.Sprintf("Nice to meet you, %s! 😊\n\nNow, %s", name, lowerFirst(bedtimePrompt)))), nil

	case models.StepOnboardingBedtime:
		bed, err := models.ParseTime(input)
		if err != nil {
			return Outcome{}, invalid(step, fmt.Sprintf(badTimeMsg, "22:30"), err)
		}
		t.Session.Set(models.ScratchBedtime, bed)
		t.Goto(models.StepOnboardingWaketime)
		return advance(models.TextReply("Great! " + waketimePrompt)), nil

	case models.StepOnboardingWaketime:
		wake, err := models.ParseTime(input)
		if err != nil {
			return Outcome{}, invalid(step, fmt.Sprintf(badTimeMsg, "07:00"), err)
		}
		t.Session.Set(models.ScratchWaketime, wake)
		t.Goto(models.StepOnboardingWater)
		return advance(models.TextReply("Perfect! " + waterPrompt)), nil

	case models.StepOnboardingWater:
		water, err := models.ParseWaterTarget(input)
		if err != nil {
			return Outcome{}, invalid(step, badWaterMsg, err)
		}
		t.Session.Set(models.ScratchWater, strconv.Itoa(water))
		defaultModules.store(&t.Session)
		t.Goto(models.StepOnboardingModules)
		prompt := modulesPrompt(defaultModules)
		prompt.Text = "Almost done! " + prompt.Text
		return advance(prompt), nil

	case models.StepOnboardingModules:
		flags, done, out := stepModules(t, input)
		if !done {
			return out, nil
		}
		return f.commit(ctx, t, flags)
	}
	return Outcome{}, &StateError{Flow: f.Type(), Step: step}
}

// commit creates the user when absent and writes every collected field.
func (f *Onboarding) commit(ctx context.Context, t *Turn, flags moduleFlags) (Outcome, error) {
	name := t.Session.Get(models.ScratchName)
	bed := t.Session.Get(models.ScratchBedtime)
	wake := t.Session.Get(models.ScratchWaketime)
	water, err := strconv.Atoi(t.Session.Get(models.ScratchWater))
	if err != nil || water <= 0 {
		water = models.DefaultWaterTarget
	}

	if err := f.gw.CreateUser(ctx, t.UserID, t.Username, name); err != nil {
		return Outcome{}, persistence("CreateUser", err)
	}
	upd := flags.update()
	upd.PreferredName = &name
	upd.Bedtime = &bed
	upd.Waketime = &wake
	upd.WaterTarget = &water
	if err := f.gw.UpdateUser(ctx, t.UserID, upd); err != nil {
		return Outcome{}, persistence("UpdateUser", err)
	}
	slog.Info("Onboarding completed", "userID", t.UserID)

	var b strings.Builder
	b.WriteString("🎉 Setup complete! Welcome to your Daily Boost journey!\n\n")
	b.WriteString("Here's what I'll help you track:\n")
	fmt.Fprintf(&b, "💧 Water intake (goal: %dml)\n", water)
	b.WriteString("😊 Daily mood journal\n")
	b.WriteString("🏃 Physical activity\n")
	if flags.Spiritual {
		b.WriteString("📿 Spiritual check\n")
	}
	if flags.Reading {
		b.WriteString("📚 Reading tracker\n")
	}
	if flags.Habits {
		b.WriteString("🎯 Custom habits\n")
	}
	b.WriteString("\nUse /help to see all commands. Let's boost your daily wellness! 🚀")
	return complete(reply(b.String(), textKeyboard("/help"))), nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
