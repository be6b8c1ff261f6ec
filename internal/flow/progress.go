package flow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// Button payloads understood by the router.
const (
	HabitTogglePrefix     = "habit_toggle_"
	SpiritualTogglePrefix = "spiritual_toggle_"
	SpiritualPrayer       = "prayer"
	SpiritualScripture    = "scripture"
)

// HabitTogglePayload encodes "mark habitID as completed (or not) today".
func HabitTogglePayload(habitID int64, completed bool) string {
	v := "0"
	if completed {
		v = "1"
	}
	return fmt.Sprintf("%s%d_%s", HabitTogglePrefix, habitID, v)
}

// ParseHabitToggle decodes a HabitTogglePayload.
func ParseHabitToggle(payload string) (habitID int64, completed bool, ok bool) {
	rest, found := strings.CutPrefix(payload, HabitTogglePrefix)
	if !found {
		return 0, false, false
	}
	idPart, flag, found := strings.Cut(rest, "_")
	if !found || (flag != "0" && flag != "1") {
		return 0, false, false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, false
	}
	return id, flag == "1", true
}

// HabitProgressReply renders today's habits with an inline toggle button each.
func HabitProgressReply(rows []models.DailyHabitStatus) models.Reply {
	if len(rows) == 0 {
		return models.TextReply("You don't have any habits to track yet! 🎯\n\nUse /habits to create your first habit!")
	}
	var b strings.Builder
	b.WriteString("📊 Today's Habit Progress\n\n")
	kb := &models.Keyboard{Inline: true}
	done := 0
	for _, h := range rows {
		mark, action := "❌", "✅"
		if h.Completed {
			mark, action = "✅", "❌"
			done++
		}
		fmt.Fprintf(&b, "%s %s\n", mark, h.HabitName)
		kb.Rows = append(kb.Rows, []models.Button{{
			Label: action + " " + h.HabitName,
			Data:  HabitTogglePayload(h.HabitID, !h.Completed),
		}})
	}
	fmt.Fprintf(&b, "\n📈 Progress: %d/%d habits completed", done, len(rows))
	if done == len(rows) {
		b.WriteString("\n\n🎉 All habits completed today! Great job! 🌟")
	}
	return models.Reply{Text: b.String(), Keyboard: kb}
}
