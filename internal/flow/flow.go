// Package flow implements the per-user conversation state machine: the
// onboarding, preferences, mood and habit flows and the Engine that runs them.
package flow

import (
	"context"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// Transition is what a flow step asks the engine to do with the session.
type Transition int

const (
	// Advance saves the working session (new step and scratch).
	Advance Transition = iota
	// Stay leaves the stored session untouched.
	Stay
	// Complete resets the session after a successful commit.
	Complete
	// Cancel resets the session without committing.
	Cancel
)

func (t Transition) String() string {
	switch t {
	case Advance:
		return "advance"
	case Stay:
		return "stay"
	case Complete:
		return "complete"
	case Cancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Outcome is the result of one step.
type Outcome struct {
	Transition Transition
	Replies    []models.Reply
}

func advance(replies ...models.Reply) Outcome  { return Outcome{Transition: Advance, Replies: replies} }
func stay(replies ...models.Reply) Outcome     { return Outcome{Transition: Stay, Replies: replies} }
func complete(replies ...models.Reply) Outcome { return Outcome{Transition: Complete, Replies: replies} }
func cancel(replies ...models.Reply) Outcome   { return Outcome{Transition: Cancel, Replies: replies} }

// Turn carries everything a flow sees while handling one event. Session is a
// working copy; the engine decides whether it is saved.
type Turn struct {
	UserID   string
	Username string
	Now      time.Time
	// User is nil until onboarding has been committed.
	User    *models.User
	Session models.Session
}

// Today returns the current date in the user's timezone.
func (t *Turn) Today() string {
	if t.User != nil {
		return t.User.Today(t.Now)
	}
	return t.Now.UTC().Format(models.DateLayout)
}

// Goto moves the working session to step.
func (t *Turn) Goto(step models.StepType) {
	t.Session.Step = step
}

// Flow is one multi-step conversation.
type Flow interface {
	Type() models.FlowType
	// Begin sets the first step on t.Session and returns its prompt. A
	// Complete or Cancel outcome means the flow was not entered.
	Begin(ctx context.Context, t *Turn) (Outcome, error)
	// Step interprets input at t.Session.Step.
	Step(ctx context.Context, t *Turn, input string) (Outcome, error)
	// Prompt re-renders the current step, used after a validation error.
	Prompt(ctx context.Context, t *Turn) (models.Reply, error)
}
