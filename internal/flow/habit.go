package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/store"
)

// deleteRowSize is the number of habits per keyboard row on the delete step.
const deleteRowSize = 2

// Habit adds, deletes and reviews the user's custom habits.
type Habit struct {
	gw store.HabitRepo
}

// NewHabit creates the habit management flow.
func NewHabit(gw store.HabitRepo) *Habit {
	return &Habit{gw: gw}
}

func (f *Habit) Type() models.FlowType { return models.FlowHabit }

const (
	addFirstText = "You don't have any habits yet! 🎯\n\n" +
		"Let's create your first habit. What would you like to track?\n" +
		"(e.g., 'Exercise', 'Read 30 min', 'Drink water')\n\n" +
		"Type your habit name or 'cancel' to exit:"
	addNewText = "What new habit would you like to track?\n" +
		"(e.g., 'Meditate 10 min', 'Call family', 'Stretch')\n\n" +
		"Type your habit name or 'cancel' to exit:"
	badHabitNameMsg = "Please type a habit name or 'cancel' to exit:"
)

func (f *Habit) Begin(ctx context.Context, t *Turn) (Outcome, error) {
	habits, err := f.gw.ListHabits(ctx, t.UserID)
	if err != nil {
		return Outcome{}, persistence("ListHabits", err)
	}
	if len(habits) == 0 {
		t.Goto(models.StepHabitAddFirst)
		return advance(reply(addFirstText, textKeyboard("cancel"))), nil
	}
	t.Goto(models.StepHabitManage)
	return advance(manageMenu(habits)), nil
}

func manageMenu(habits []models.Habit) models.Reply {
	var b strings.Builder
	b.WriteString("🎯 Your Habits:\n\n")
	for _, h := range habits {
		fmt.Fprintf(&b, "• %s\n", h.Name)
	}
	b.WriteString("\nWhat would you like to do?")
	return reply(b.String(), replyKeyboard(
		[]token{tokAddHabit, tokDeleteHabit},
		[]token{tokProgress, tokCancel},
	))
}

func deleteMenu(habits []models.Habit) models.Reply {
	kb := &models.Keyboard{OneTime: true}
	for i := 0; i < len(habits); i += deleteRowSize {
		end := min(i+deleteRowSize, len(habits))
		var row []models.Button
		for _, h := range habits[i:end] {
			row = append(row, models.Button{Label: deletePrefix + h.Name})
		}
		kb.Rows = append(kb.Rows, row)
	}
	kb.Rows = append(kb.Rows, []models.Button{tokBack.button()})
	return reply("Which habit would you like to delete?\n\n"+
		"⚠️ This will permanently delete the habit and all its history!", kb)
}

func (f *Habit) Prompt(ctx context.Context, t *Turn) (models.Reply, error) {
	switch t.Session.Step {
	case models.StepHabitAddFirst:
		return reply(addFirstText, textKeyboard("cancel")), nil
	case models.StepHabitAddNew:
		return reply(addNewText, textKeyboard("cancel")), nil
	case models.StepHabitManage, models.StepHabitDelete:
		habits, err := f.gw.ListHabits(ctx, t.UserID)
		if err != nil {
			return models.Reply{}, persistence("ListHabits", err)
		}
		if t.Session.Step == models.StepHabitDelete {
			return deleteMenu(habits), nil
		}
		return manageMenu(habits), nil
	}
	return models.Reply{}, &StateError{Flow: f.Type(), Step: t.Session.Step}
}

func (f *Habit) Step(ctx context.Context, t *Turn, input string) (Outcome, error) {
	step := t.Session.Step
	switch step {
	case models.StepHabitAddFirst, models.StepHabitAddNew:
		if tokCancel.matches(input) {
			return cancel(models.TextReply("Habit creation cancelled! ❌")), nil
		}
		name, err := models.ValidateFreeText(input)
		if err != nil {
			return Outcome{}, invalid(step, badHabitNameMsg, err)
		}
		if _, err := f.gw.AddHabit(ctx, t.UserID, name); err != nil {
			return Outcome{}, persistence("AddHabit", err)
		}
		slog.Info("Habit added", "userID", t.UserID, "name", name)
		if step == models.StepHabitAddFirst {
			return complete(reply(fmt.Sprintf("Great! Your first habit '%s' has been created! 🎯\n\n"+
				"You'll receive a daily check-in in the evening to tick off your habits.\n\n"+
				"Use /habits to manage your habits or add more!", name), textKeyboard("/habits"))), nil
		}
		return complete(reply(fmt.Sprintf("Excellent! New habit '%s' added! 🎯\n\n"+
			"Use /habits to manage all your habits.", name), textKeyboard("/habits"))), nil

	case models.StepHabitManage:
		return f.stepManage(ctx, t, input)

	case models.StepHabitDelete:
		return f.stepDelete(ctx, t, input)
	}
	return Outcome{}, &StateError{Flow: f.Type(), Step: step}
}

func (f *Habit) stepManage(ctx context.Context, t *Turn, input string) (Outcome, error) {
	switch {
	case tokAddHabit.matches(input):
		t.Goto(models.StepHabitAddNew)
		return advance(reply(addNewText, textKeyboard("cancel"))), nil

	case tokDeleteHabit.matches(input):
		habits, err := f.gw.ListHabits(ctx, t.UserID)
		if err != nil {
			return Outcome{}, persistence("ListHabits", err)
		}
		if len(habits) == 0 {
			return cancel(models.TextReply("You don't have any habits to delete!")), nil
		}
		t.Goto(models.StepHabitDelete)
		return advance(deleteMenu(habits)), nil

	case tokProgress.matches(input):
		rows, err := f.gw.ListHabitLogsForDate(ctx, t.UserID, t.Today())
		if err != nil {
			return Outcome{}, persistence("ListHabitLogsForDate", err)
		}
		return complete(HabitProgressReply(rows)), nil

	case tokCancel.matches(input):
		return cancel(models.TextReply("Habit management cancelled! 👍")), nil
	}

	menu, err := f.Prompt(ctx, t)
	if err != nil {
		return Outcome{}, err
	}
	return stay(unrecognized(menu)), nil
}

func (f *Habit) stepDelete(ctx context.Context, t *Turn, input string) (Outcome, error) {
	habits, err := f.gw.ListHabits(ctx, t.UserID)
	if err != nil {
		return Outcome{}, persistence("ListHabits", err)
	}
	if tokBack.matches(input) {
		t.Goto(models.StepHabitManage)
		return advance(manageMenu(habits)), nil
	}

	name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), strings.TrimSpace(deletePrefix)))
	var target *models.Habit
	for i := range habits {
		if strings.EqualFold(habits[i].Name, name) {
			target = &habits[i]
			break
		}
	}
	if target == nil {
		menu := deleteMenu(habits)
		menu.Text = "Habit not found. Please pick one from the list.\n\n" + menu.Text
		return stay(menu), nil
	}

	if err := f.gw.DeleteHabit(ctx, t.UserID, target.ID); err != nil {
		return Outcome{}, persistence("DeleteHabit", err)
	}
	slog.Info("Habit deleted", "userID", t.UserID, "habitID", target.ID)
	return complete(models.TextReply(fmt.Sprintf("Habit '%s' has been deleted! 🗑️\n\n"+
		"All associated history has been removed.", target.Name))), nil
}
