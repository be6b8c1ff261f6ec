// Package api provides the DailyBoost HTTP server and the bootstrap that wires
// the store, flow engine, router, chat transport, scheduler and outbox.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/bot"
	"github.com/BTreeMap/DailyBoost/internal/flow"
	"github.com/BTreeMap/DailyBoost/internal/genai"
	"github.com/BTreeMap/DailyBoost/internal/lockfile"
	"github.com/BTreeMap/DailyBoost/internal/messaging"
	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/scheduler"
	"github.com/BTreeMap/DailyBoost/internal/stats"
	"github.com/BTreeMap/DailyBoost/internal/store"
	"github.com/BTreeMap/DailyBoost/internal/twiliowhatsapp"
	"github.com/BTreeMap/DailyBoost/internal/whatsapp"
)

// Transport names accepted by WithTransport.
const (
	TransportWhatsApp = "whatsapp"
	TransportTwilio   = "twilio"
	// TransportNone serves only the HTTP event endpoint.
	TransportNone = "none"
)

const (
	DefaultAddr          = ":8080"
	DefaultShutdownGrace = 10 * time.Second
)

var ErrUnknownTransport = errors.New("unknown transport")

var _ bot.ReplySender = (*messaging.ResponseHandler)(nil)

// Opts holds the server configuration.
type Opts struct {
	Addr            string
	StateDir        string // lock file directory; empty disables the lock
	Transport       string
	CheckinCron     string
	PersistSessions bool
	WebhookURL      string // public Twilio webhook URL; enables signature checks
	OutboxInterval  time.Duration
}

// Option configures the server.
type Option func(*Opts)

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithStateDir takes the single-instance lock in dir.
func WithStateDir(dir string) Option {
	return func(o *Opts) { o.StateDir = dir }
}

// WithTransport selects the chat transport.
func WithTransport(name string) Option {
	return func(o *Opts) { o.Transport = name }
}

// WithCheckinCron sets the cron expression of the evening check-in.
func WithCheckinCron(expr string) Option {
	return func(o *Opts) { o.CheckinCron = expr }
}

// WithPersistSessions keeps flow sessions in the store instead of memory.
func WithPersistSessions(persist bool) Option {
	return func(o *Opts) { o.PersistSessions = persist }
}

// WithWebhookURL sets the public URL Twilio signs webhook calls for.
func WithWebhookURL(url string) Option {
	return func(o *Opts) { o.WebhookURL = url }
}

// WithOutboxInterval sets the outbox polling interval.
func WithOutboxInterval(d time.Duration) Option {
	return func(o *Opts) { o.OutboxInterval = d }
}

// Server serves the HTTP endpoints.
type Server struct {
	st        store.Store
	router    *bot.Router
	stats     *stats.Service
	twilio    *messaging.TwilioService
	now       func() time.Time
	startedAt time.Time
}

// NewServer creates a server over an already wired router. twilio may be nil.
func NewServer(st store.Store, router *bot.Router, twilio *messaging.TwilioService) *Server {
	return &Server{
		st:        st,
		router:    router,
		stats:     stats.NewService(st),
		twilio:    twilio,
		now:       time.Now,
		startedAt: time.Now(),
	}
}

// Handler returns the HTTP routes wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/events", s.eventsHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.HandleFunc("/checkins/run", s.runCheckinsHandler)
	if s.twilio != nil {
		mux.HandleFunc("/twilio/webhook", s.twilio.TwilioWebhookHandler)
	}
	return withRequestID(withLogging(mux))
}

// Run starts DailyBoost and blocks until SIGINT or SIGTERM.
func Run(waOpts []whatsapp.Option, twilioOpts []twiliowhatsapp.Option, storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	cfg := Opts{
		Addr:        DefaultAddr,
		Transport:   TransportWhatsApp,
		CheckinCron: bot.DefaultCheckinSchedule,
	}
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StateDir != "" {
		lock, err := lockfile.AcquireLock(cfg.StateDir)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	st, err := openStore(storeOpts)
	if err != nil {
		return err
	}
	defer st.Close()

	var states flow.StateManager = flow.NewMemoryStateManager()
	if cfg.PersistSessions {
		states = flow.NewStoreBasedStateManager(st)
	}
	engine := flow.NewEngine(st, states)

	msgService, twilioService, err := openTransport(ctx, cfg, waOpts, twilioOpts)
	if err != nil {
		return err
	}
	if msgService != nil {
		if err := msgService.Start(ctx); err != nil {
			return fmt.Errorf("failed to start messaging service: %w", err)
		}
		defer msgService.Stop()
	}

	var routerOpts []bot.Option
	if g, err := genai.NewClient(genaiOpts...); err == nil {
		routerOpts = append(routerOpts, bot.WithInsight(g))
	} else {
		slog.Info("GenAI disabled, /insight will show the plain summary", "reason", err)
	}
	outbox, _ := st.(store.OutboxRepo)
	if outbox != nil {
		routerOpts = append(routerOpts, bot.WithOutbox(outbox))
	}

	var router *bot.Router
	var respHandler *messaging.ResponseHandler
	if msgService != nil {
		var handlerOpts []messaging.Option
		if dedup, ok := st.(store.DedupRepo); ok {
			handlerOpts = append(handlerOpts, messaging.WithDedup(dedup))
		}
		respHandler = messaging.NewResponseHandler(msgService, messaging.HandlerFunc(func(ctx context.Context, ev models.Event) ([]models.Reply, error) {
			return router.Handle(ctx, ev)
		}), handlerOpts...)
		routerOpts = append(routerOpts, bot.WithSender(respHandler))
	}
	router = bot.NewRouter(st, engine, routerOpts...)

	if respHandler != nil {
		respHandler.Start(ctx)
		if outbox != nil {
			sender := store.NewOutboxSender(outbox, bot.OutboxSendFunc(respHandler), cfg.OutboxInterval)
			if err := sender.RecoverStaleMessages(ctx); err != nil {
				slog.Warn("Outbox recovery failed", "error", err)
			}
			go sender.Run(ctx)
		}

		sched := scheduler.NewScheduler()
		defer sched.Stop()
		if err := sched.AddJob("checkin", cfg.CheckinCron, func() {
			if _, err := router.SendCheckins(ctx); err != nil {
				slog.Error("Check-in run failed", "error", err)
			}
		}); err != nil {
			return err
		}
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: NewServer(st, router, twilioService).Handler()}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("DailyBoost API listening", "addr", cfg.Addr, "transport", cfg.Transport)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("DailyBoost shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore picks the backend from the configured DSN; no DSN means memory.
func openStore(opts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.DSN == "":
		slog.Warn("No database DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	case store.DetectDSNType(cfg.DSN) == "postgres":
		st, err := store.NewPostgresStore(opts...)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		st, err := store.NewSQLiteStore(opts...)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

// openTransport builds the configured chat transport. TransportNone yields nil.
func openTransport(ctx context.Context, cfg Opts, waOpts []whatsapp.Option, twilioOpts []twiliowhatsapp.Option) (messaging.Service, *messaging.TwilioService, error) {
	switch cfg.Transport {
	case TransportWhatsApp:
		client, err := whatsapp.NewClient(ctx, waOpts...)
		if err != nil {
			return nil, nil, err
		}
		return messaging.NewWhatsAppService(client), nil, nil
	case TransportTwilio:
		client, err := twiliowhatsapp.NewClient(twilioOpts...)
		if err != nil {
			return nil, nil, err
		}
		svc := messaging.NewTwilioService(client)
		if cfg.WebhookURL != "" {
			svc.RequireSignature(client, cfg.WebhookURL)
		}
		return svc, svc, nil
	case TransportNone:
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
}
