package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/store"
)

// User-facing texts for engine-level recoveries.
const (
	RetryText    = "⚠️ Sorry, I couldn't save that right now. Please send it again."
	FallbackText = "I didn't understand that. Use /help to see available commands."
)

// Opts holds optional Engine settings.
type Opts struct {
	Now func() time.Time
}

// Option configures the Engine.
type Option func(*Opts)

// WithClock overrides the time source. Tests use it to pin "today".
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// Engine runs flows against per-user sessions. Callers must not process two
// events of the same user concurrently.
type Engine struct {
	users  store.UserRepo
	states StateManager
	flows  map[models.FlowType]Flow
	now    func() time.Time
}

// NewEngine creates an Engine with the four built-in flows.
func NewEngine(gw store.Gateway, states StateManager, opts ...Option) *Engine {
	cfg := Opts{Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		users:  gw,
		states: states,
		flows:  make(map[models.FlowType]Flow),
		now:    cfg.Now,
	}
	e.Register(NewOnboarding(gw))
	e.Register(NewPreferences(gw))
	e.Register(NewMood(gw))
	e.Register(NewHabit(gw))
	return e
}

// Register adds or replaces a flow.
func (e *Engine) Register(f Flow) {
	e.flows[f.Type()] = f
}

// Session returns the user's current session.
func (e *Engine) Session(ctx context.Context, userID string) (models.Session, error) {
	return e.states.Load(ctx, userID)
}

func (e *Engine) newTurn(ctx context.Context, userID, username string, s models.Session) (*Turn, error) {
	u, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return nil, persistence("GetUser", err)
	}
	return &Turn{UserID: userID, Username: username, Now: e.now(), User: u, Session: s.Clone()}, nil
}

// Start begins flowType for the user, abandoning any flow in progress. When
// the flow declines to start (for example onboarding an existing user) the
// current session is left alone.
func (e *Engine) Start(ctx context.Context, flowType models.FlowType, userID, username string) ([]models.Reply, error) {
	f, ok := e.flows[flowType]
	if !ok {
		return nil, fmt.Errorf("unknown flow type: %s", flowType)
	}
	s := models.NewSession(userID)
	s.Flow = flowType
	t, err := e.newTurn(ctx, userID, username, s)
	if err != nil {
		return e.recover(ctx, nil, userID, err)
	}
	out, err := f.Begin(ctx, t)
	if err != nil {
		return e.recover(ctx, f, userID, err)
	}
	if out.Transition != Advance {
		return out.Replies, nil
	}
	if err := e.save(ctx, t); err != nil {
		return nil, err
	}
	slog.Info("Flow started", "userID", userID, "flow", flowType, "step", t.Session.Step)
	return out.Replies, nil
}

// Handle feeds one event to the user's active flow. It returns
// ErrNoActiveFlow when the user is idle.
func (e *Engine) Handle(ctx context.Context, ev models.Event) ([]models.Reply, error) {
	s, err := e.states.Load(ctx, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !s.Active() {
		return nil, ErrNoActiveFlow
	}
	f, ok := e.flows[s.Flow]
	if !ok {
		return e.recover(ctx, nil, ev.UserID, &StateError{Flow: s.Flow, Step: s.Step})
	}
	t, err := e.newTurn(ctx, ev.UserID, ev.Username, s)
	if err != nil {
		return e.recover(ctx, f, ev.UserID, err)
	}

	out, err := f.Step(ctx, t, ev.Payload)
	if err != nil {
		return e.recoverTurn(ctx, f, t, err)
	}

	switch out.Transition {
	case Advance:
		if err := e.save(ctx, t); err != nil {
			return nil, err
		}
		slog.Debug("Flow advanced", "userID", ev.UserID, "flow", s.Flow, "from", s.Step, "to", t.Session.Step)
	case Stay:
		slog.Debug("Flow stayed", "userID", ev.UserID, "flow", s.Flow, "step", s.Step)
	case Complete, Cancel:
		if err := e.states.Reset(ctx, ev.UserID); err != nil {
			slog.Error("Engine reset after finish failed", "error", err, "userID", ev.UserID)
		}
		slog.Info("Flow finished", "userID", ev.UserID, "flow", s.Flow, "step", s.Step, "transition", out.Transition)
		return markTerminal(out.Replies), nil
	}
	return out.Replies, nil
}

// Cancel resets any active flow.
func (e *Engine) Cancel(ctx context.Context, userID string) ([]models.Reply, error) {
	s, err := e.states.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !s.Active() {
		return []models.Reply{models.TextReply("There's nothing to cancel. Use /help to see available commands.")}, nil
	}
	if err := e.states.Reset(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to reset session: %w", err)
	}
	slog.Info("Flow cancelled", "userID", userID, "flow", s.Flow, "step", s.Step)
	return markTerminal([]models.Reply{models.TextReply("Cancelled. 👍 Use /help to see available commands.")}), nil
}

func (e *Engine) save(ctx context.Context, t *Turn) error {
	t.Session.UpdatedAt = t.Now
	if err := e.states.Save(ctx, t.Session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// recoverTurn maps a step error onto a reply. The stored session is never
// modified except on a StateError, which resets it.
func (e *Engine) recoverTurn(ctx context.Context, f Flow, t *Turn, err error) ([]models.Reply, error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		slog.Debug("Flow validation failed", "userID", t.UserID, "flow", f.Type(), "step", verr.Step, "error", err)
		r := models.TextReply(verr.Message)
		// The re-prompt keyboard is best effort.
		if prompt, perr := f.Prompt(ctx, t); perr == nil {
			r.Keyboard = prompt.Keyboard
		}
		return []models.Reply{r}, nil
	}
	return e.recover(ctx, f, t.UserID, err)
}

func (e *Engine) recover(ctx context.Context, f Flow, userID string, err error) ([]models.Reply, error) {
	var perr *PersistenceError
	if errors.As(err, &perr) {
		slog.Error("Flow persistence failed", "userID", userID, "op", perr.Op, "error", perr.Err)
		return []models.Reply{models.TextReply(RetryText)}, nil
	}
	var serr *StateError
	if errors.As(err, &serr) {
		slog.Warn("Flow state invalid, resetting", "userID", userID, "flow", serr.Flow, "step", serr.Step)
		if rerr := e.states.Reset(ctx, userID); rerr != nil {
			slog.Error("Engine reset failed", "error", rerr, "userID", userID)
		}
		return markTerminal([]models.Reply{models.TextReply(FallbackText)}), nil
	}
	flowType := models.FlowNone
	if f != nil {
		flowType = f.Type()
	}
	slog.Error("Flow step failed", "userID", userID, "flow", flowType, "error", err)
	return nil, err
}

// markTerminal flags the last reply so transports can drop reply keyboards.
func markTerminal(replies []models.Reply) []models.Reply {
	if len(replies) > 0 {
		replies[len(replies)-1].Terminal = true
	}
	return replies
}
