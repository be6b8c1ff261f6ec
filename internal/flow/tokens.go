package flow

import (
	"strings"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// token is a reply the user can send either by pressing the button labelled
// Label or by typing one of the aliases.
type token struct {
	Label   string
	Aliases []string
}

func (t token) matches(input string) bool {
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, t.Label) {
		return true
	}
	for _, a := range t.Aliases {
		if strings.EqualFold(input, a) {
			return true
		}
	}
	return false
}

func (t token) button() models.Button {
	return models.Button{Label: t.Label}
}

var (
	tokDone   = token{"✅ Done", []string{"done", "finish"}}
	tokCancel = token{"❌ Cancel", []string{"cancel"}}
	tokSkip   = token{"skip", []string{"⏭️ skip"}}
	tokBack   = token{"🔙 Back", []string{"back"}}

	tokSpiritual = token{"📿 Spiritual Check", []string{"spiritual", "spiritual check"}}
	tokReading   = token{"📚 Reading Tracker", []string{"reading", "reading tracker"}}
	tokHabits    = token{"🎯 Custom Habits", []string{"habits", "custom habits"}}

	tokChangeName  = token{"👤 Change Name", []string{"name", "change name"}}
	tokChangeSleep = token{"🛏️ Change Sleep Times", []string{"sleep", "change sleep times"}}
	tokChangeWater = token{"💧 Change Water Goal", []string{"water", "change water goal"}}
	tokToggle      = token{"⚙️ Toggle Modules", []string{"modules", "toggle modules"}}

	tokAddHabit    = token{"➕ Add Habit", []string{"add", "add habit"}}
	tokDeleteHabit = token{"🗑️ Delete Habit", []string{"delete", "delete habit"}}
	tokProgress    = token{"📊 Today's Progress", []string{"progress", "today", "today's progress"}}
)

// deletePrefix marks habit names on the delete keyboard.
const deletePrefix = "❌ "

// replyKeyboard builds a one-time reply keyboard from rows of tokens.
func replyKeyboard(rows ...[]token) *models.Keyboard {
	kb := &models.Keyboard{OneTime: true}
	for _, row := range rows {
		var buttons []models.Button
		for _, t := range row {
			buttons = append(buttons, t.button())
		}
		kb.Rows = append(kb.Rows, buttons)
	}
	return kb
}

// textKeyboard builds a one-time reply keyboard with a single row of labels.
func textKeyboard(labels ...string) *models.Keyboard {
	row := make([]models.Button, 0, len(labels))
	for _, l := range labels {
		row = append(row, models.Button{Label: l})
	}
	return &models.Keyboard{Rows: [][]models.Button{row}, OneTime: true}
}

func reply(text string, kb *models.Keyboard) models.Reply {
	return models.Reply{Text: text, Keyboard: kb}
}

// unrecognized prefixes a menu re-display with a notice.
func unrecognized(menu models.Reply) models.Reply {
	menu.Text = "🤔 I didn't recognize that option. Please choose one below.\n\n" + menu.Text
	return menu
}

// checkmark renders a module flag.
func checkmark(on bool) string {
	if on {
		return "✅"
	}
	return "❌"
}
