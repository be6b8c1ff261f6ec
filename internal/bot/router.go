// Package bot routes inbound chat events to commands, button actions and the
// conversation engine, and runs the scheduled daily check-in.
//
// Events of one user are processed one at a time; different users run in
// parallel. A fault while handling one event is recovered and answered with a
// fallback reply so the caller's event loop keeps running.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/flow"
	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/stats"
	"github.com/BTreeMap/DailyBoost/internal/store"
)

// ErrInvalidEvent is returned for events without a user id.
var ErrInvalidEvent = errors.New("invalid event: user id is required")

// InsightGenerator writes a short weekly reflection from a plain-text summary
// of the user's week.
type InsightGenerator interface {
	WeeklyInsight(ctx context.Context, summary string) (string, error)
}

// ReplySender delivers a reply that is not an answer to an inbound event.
type ReplySender interface {
	SendReply(ctx context.Context, userID string, reply models.Reply) error
}

// Opts holds optional Router settings.
type Opts struct {
	Now     func() time.Time
	Insight InsightGenerator
	Outbox  store.OutboxRepo
	Sender  ReplySender
}

// Option configures the Router.
type Option func(*Opts)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// WithInsight enables generated weekly reflections for /insight.
func WithInsight(g InsightGenerator) Option {
	return func(o *Opts) {
		o.Insight = g
	}
}

// WithOutbox makes scheduled check-ins go through the durable outbox.
func WithOutbox(repo store.OutboxRepo) Option {
	return func(o *Opts) {
		o.Outbox = repo
	}
}

// WithSender sets the direct delivery path for scheduled check-ins.
func WithSender(s ReplySender) Option {
	return func(o *Opts) {
		o.Sender = s
	}
}

// Router is the dispatch router.
type Router struct {
	st      store.Store
	engine  *flow.Engine
	stats   *stats.Service
	insight InsightGenerator
	outbox  store.OutboxRepo
	sender  ReplySender
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRouter creates a Router over st, driving flows through engine.
func NewRouter(st store.Store, engine *flow.Engine, opts ...Option) *Router {
	cfg := Opts{Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Router{
		st:      st,
		engine:  engine,
		stats:   stats.NewService(st),
		insight: cfg.Insight,
		outbox:  cfg.Outbox,
		sender:  cfg.Sender,
		now:     cfg.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing events of userID.
func (r *Router) userLock(userID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	return l
}

// Handle processes one inbound event and returns the replies to deliver. Only
// a malformed event yields an error; every other failure becomes a reply.
func (r *Router) Handle(ctx context.Context, ev models.Event) (replies []models.Reply, err error) {
	ev.UserID = strings.TrimSpace(ev.UserID)
	if ev.UserID == "" {
		return nil, ErrInvalidEvent
	}

	l := r.userLock(ev.UserID)
	l.Lock()
	defer l.Unlock()

	defer func() {
		if p := recover(); p != nil {
			slog.Error("Router recovered from panic", "userID", ev.UserID, "panic", p, "stack", string(debug.Stack()))
			replies, err = []models.Reply{models.TextReply(flow.FallbackText)}, nil
		}
	}()

	slog.Debug("Router handling event", "userID", ev.UserID, "kind", ev.Kind, "payload_length", len(ev.Payload))
	replies, err = r.dispatch(ctx, ev)
	if err != nil {
		slog.Error("Router event failed", "error", err, "userID", ev.UserID, "kind", ev.Kind)
		return []models.Reply{models.TextReply(flow.RetryText)}, nil
	}
	return replies, nil
}

func (r *Router) dispatch(ctx context.Context, ev models.Event) ([]models.Reply, error) {
	payload := strings.TrimSpace(ev.Payload)

	if ev.Kind == models.EventButton {
		switch {
		case strings.HasPrefix(payload, flow.HabitTogglePrefix):
			return r.toggleHabit(ctx, ev.UserID, payload)
		case strings.HasPrefix(payload, flow.SpiritualTogglePrefix):
			return r.toggleSpiritual(ctx, ev.UserID, payload)
		}
	}

	if ev.IsCommand() {
		return r.command(ctx, ev)
	}

	replies, err := r.engine.Handle(ctx, ev)
	if errors.Is(err, flow.ErrNoActiveFlow) {
		slog.Debug("Router event outside of a flow", "userID", ev.UserID, "kind", ev.Kind)
		return []models.Reply{models.TextReply(flow.FallbackText)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("flow step failed: %w", err)
	}
	return replies, nil
}

// user loads the profile, which may be nil.
func (r *Router) user(ctx context.Context, userID string) (*models.User, error) {
	u, err := r.st.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// today returns the user's calendar date, in UTC when the user is unknown.
func (r *Router) today(u *models.User) string {
	if u == nil {
		return r.now().UTC().Format(models.DateLayout)
	}
	return u.Today(r.now())
}
