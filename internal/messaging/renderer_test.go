package messaging

import (
	"testing"

	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/stretchr/testify/assert"
)

func moodKeyboard() *models.Keyboard {
	return &models.Keyboard{OneTime: true, Rows: [][]models.Button{
		{{Label: "1"}, {Label: "2"}, {Label: "3"}},
		{{Label: "Cancel"}},
	}}
}

func TestRendererNumbersButtons(t *testing.T) {
	r := NewRenderer()
	got := r.Render("u1", models.Reply{Text: "How are you?", Keyboard: moodKeyboard()})
	assert.Equal(t, "How are you?\n\n#1 1\n#2 2\n#3 3\n#4 Cancel", got)
	assert.Equal(t, "plain", r.Render("u1", models.TextReply("plain")))
}

func TestRendererResolveReplyKeyboard(t *testing.T) {
	r := NewRenderer()
	r.Render("u1", models.Reply{Text: "?", Keyboard: moodKeyboard()})

	assert.Equal(t, models.Event{UserID: "u1", Kind: models.EventText, Payload: "Cancel"}, r.Resolve("u1", "", "#4"))
	assert.Equal(t, models.Event{UserID: "u1", Kind: models.EventText, Payload: "2"}, r.Resolve("u1", "", " #2 "))
	// Bare digits stay literal.
	assert.Equal(t, "4", r.Resolve("u1", "", "4").Payload)
	// Out of range and other users fall through.
	assert.Equal(t, "#9", r.Resolve("u1", "", "#9").Payload)
	assert.Equal(t, "#1", r.Resolve("u2", "", "#1").Payload)
}

func TestRendererResolveInlineKeyboard(t *testing.T) {
	r := NewRenderer()
	r.Render("u1", models.Reply{Text: "Today", Keyboard: &models.Keyboard{Inline: true, Rows: [][]models.Button{
		{{Label: "✅ Walk", Data: "habit_toggle_1_1"}},
	}}})

	ev := r.Resolve("u1", "Ana", "#1")
	assert.Equal(t, models.EventButton, ev.Kind)
	assert.Equal(t, "habit_toggle_1_1", ev.Payload)
	assert.Equal(t, "Ana", ev.Username)
}

func TestRendererTerminalClearsKeyboard(t *testing.T) {
	r := NewRenderer()
	r.Render("u1", models.Reply{Text: "?", Keyboard: moodKeyboard()})
	r.Render("u1", models.TextReply("not terminal"))
	assert.Equal(t, "Cancel", r.Resolve("u1", "", "#4").Payload)

	r.Render("u1", models.Reply{Text: "done", Terminal: true})
	assert.Equal(t, "#4", r.Resolve("u1", "", "#4").Payload)

	r.Render("u2", models.Reply{Text: "?", Keyboard: moodKeyboard()})
	assert.Equal(t, "#1", r.Resolve("u1", "", "#1").Payload)
}
