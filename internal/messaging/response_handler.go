package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/store"
	"github.com/google/uuid"
)

// Handler turns one inbound event into replies. The bot router implements it.
type Handler interface {
	Handle(ctx context.Context, ev models.Event) ([]models.Reply, error)
}

// Opts configures a ResponseHandler.
type Opts struct {
	Dedup store.DedupRepo
}

// Option configures a ResponseHandler.
type Option func(*Opts)

// WithDedup drops inbound messages whose transport id was already recorded.
func WithDedup(repo store.DedupRepo) Option {
	return func(o *Opts) {
		o.Dedup = repo
	}
}

// ResponseHandler reads inbound messages from a Service, dispatches them to
// the Handler and sends the replies back.
type ResponseHandler struct {
	msgService Service
	handler    Handler
	renderer   *Renderer
	dedup      store.DedupRepo
}

// NewResponseHandler creates a ResponseHandler.
func NewResponseHandler(msgService Service, handler Handler, opts ...Option) *ResponseHandler {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ResponseHandler{
		msgService: msgService,
		handler:    handler,
		renderer:   NewRenderer(),
		dedup:      cfg.Dedup,
	}
}

// Start begins processing inbound messages and draining receipts until ctx
// ends or the service closes its channels. Messages are handled one at a
// time in arrival order.
func (rh *ResponseHandler) Start(ctx context.Context) {
	slog.Info("ResponseHandler starting response processing")

	go func() {
		defer slog.Info("ResponseHandler stopped response processing")
		for {
			select {
			case response, ok := <-rh.msgService.Responses():
				if !ok {
					slog.Debug("ResponseHandler responses channel closed")
					return
				}
				if err := rh.ProcessResponse(ctx, response); err != nil {
					slog.Error("ResponseHandler failed to process response", "error", err, "from", response.From)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case receipt, ok := <-rh.msgService.Receipts():
				if !ok {
					return
				}
				slog.Debug("ResponseHandler receipt", "to", receipt.To, "status", receipt.Status)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// ProcessResponse handles one inbound message end to end.
func (rh *ResponseHandler) ProcessResponse(ctx context.Context, response models.Response) error {
	from, err := rh.msgService.ValidateAndCanonicalizeRecipient(response.From)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	messageID := response.ID
	if messageID == "" {
		messageID = uuid.NewString()
	}

	if rh.dedup != nil {
		fresh, err := rh.dedup.RecordInbound(ctx, messageID, from)
		if err != nil {
			// Dedup is best effort.
			slog.Warn("ResponseHandler dedup record failed", "error", err, "messageID", messageID)
		} else if !fresh {
			slog.Info("ResponseHandler dropping duplicate message", "messageID", messageID, "from", from)
			return nil
		}
	}

	ev := rh.renderer.Resolve(from, response.Username, response.Body)
	slog.Debug("ResponseHandler dispatching", "from", from, "messageID", messageID, "kind", ev.Kind)
	replies, err := rh.handler.Handle(ctx, ev)
	if err != nil {
		return fmt.Errorf("handler failed: %w", err)
	}
	for _, reply := range replies {
		if err := rh.SendReply(ctx, from, reply); err != nil {
			return err
		}
	}

	if rh.dedup != nil {
		if err := rh.dedup.MarkProcessed(ctx, messageID); err != nil {
			slog.Warn("ResponseHandler mark processed failed", "error", err, "messageID", messageID)
		}
	}
	return nil
}

// SendReply renders a reply and sends it to userID.
func (rh *ResponseHandler) SendReply(ctx context.Context, userID string, reply models.Reply) error {
	body := rh.renderer.Render(userID, reply)
	if err := rh.msgService.SendMessage(ctx, userID, body); err != nil {
		return fmt.Errorf("failed to send reply to %s: %w", userID, err)
	}
	return nil
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev models.Event) ([]models.Reply, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, ev models.Event) ([]models.Reply, error) {
	return f(ctx, ev)
}
