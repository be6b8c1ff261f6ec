package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/stats"
	"github.com/BTreeMap/DailyBoost/internal/store"
)

// Mood records today's 1-5 rating and an optional note.
type Mood struct {
	gw store.MoodRepo
}

// NewMood creates the mood flow.
func NewMood(gw store.MoodRepo) *Mood {
	return &Mood{gw: gw}
}

func (f *Mood) Type() models.FlowType { return models.FlowMood }

func ratingKeyboard() *models.Keyboard {
	return textKeyboard("1", "2", "3", "4", "5")
}

func (f *Mood) Begin(ctx context.Context, t *Turn) (Outcome, error) {
	existing, err := f.gw.GetMood(ctx, t.UserID, t.Today())
	if err != nil {
		return Outcome{}, persistence("GetMood", err)
	}
	t.Goto(models.StepMoodRating)
	if existing != nil {
		note := "No note"
		if existing.Note != "" {
			note = "Note: " + existing.Note
		}
		return advance(reply(fmt.Sprintf("You've already logged your mood today! 📝\n\n"+
			"Rating: %d/5 %s\n%s\n\n"+
			"Would you like to update it? Rate your day from 1-5:",
			existing.Score, stats.MoodEmoji(existing.Score), note), ratingKeyboard())), nil
	}
	return advance(reply("How are you feeling today? 😊\n\n"+ratingScale(), ratingKeyboard())), nil
}

func ratingScale() string {
	s := "Rate your day from 1-5:"
	for i, label := range stats.MoodLabels {
		s += fmt.Sprintf("\n%d = %s %s", i+1, label, stats.MoodEmojis[i])
	}
	return s
}

func (f *Mood) Prompt(ctx context.Context, t *Turn) (models.Reply, error) {
	switch t.Session.Step {
	case models.StepMoodRating:
		return reply(ratingScale(), ratingKeyboard()), nil
	case models.StepMoodNote:
		return reply("Type your note or 'skip' to finish:", textKeyboard(tokSkip.Label)), nil
	}
	return models.Reply{}, &StateError{Flow: f.Type(), Step: t.Session.Step}
}

func (f *Mood) Step(ctx context.Context, t *Turn, input string) (Outcome, error) {
	step := t.Session.Step
	switch step {
	case models.StepMoodRating:
		score, err := models.ParseMoodScore(input)
		if err != nil {
			return Outcome{}, invalid(step, "Please select a rating from 1-5:", err)
		}
		t.Session.Set(models.ScratchScore, strconv.Itoa(score))
		t.Goto(models.StepMoodNote)
		return advance(reply(fmt.Sprintf("You rated your day: %d/5 %s\n\n"+
			"Would you like to add a note about your day? (optional)\n"+
			"Type your note or 'skip' to finish:", score, stats.MoodEmoji(score)),
			textKeyboard(tokSkip.Label))), nil

	case models.StepMoodNote:
		score, err := models.ParseMoodScore(t.Session.Get(models.ScratchScore))
		if err != nil {
			return Outcome{}, &StateError{Flow: f.Type(), Step: step}
		}
		note := ""
		if !tokSkip.matches(input) {
			note, err = models.ValidateFreeText(input)
			if err != nil {
				return Outcome{}, invalid(step, "Please type a note or 'skip':", err)
			}
		}
		today := t.Today()
		if err := f.gw.UpsertMood(ctx, t.UserID, today, score, note); err != nil {
			return Outcome{}, persistence("UpsertMood", err)
		}
		slog.Info("Mood logged", "userID", t.UserID, "date", today, "score", score)

		text := fmt.Sprintf("Mood logged successfully! %s\n\nRating: %d/5\n", stats.MoodEmoji(score), score)
		if note != "" {
			text += "Note: " + note + "\n"
		}
		text += "\nKeep tracking your daily mood! Use /moodstats to see your progress. 📈"
		return complete(reply(text, textKeyboard("/moodstats"))), nil
	}
	return Outcome{}, &StateError{Flow: f.Type(), Step: step}
}
