package messaging

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// ButtonMarker prefixes the number of a rendered button.
const ButtonMarker = "#"

// Renderer turns replies into plain text for transports without buttons.
// Buttons are listed as "#1 Label"; a later "#1" reply from the same user is
// mapped back to the button. Plain digits are left alone since flows such as
// mood rating read them as text.
type Renderer struct {
	mu   sync.Mutex
	last map[string]*models.Keyboard
}

// NewRenderer creates a renderer with no remembered keyboards.
func NewRenderer() *Renderer {
	return &Renderer{last: make(map[string]*models.Keyboard)}
}

// Render formats one reply for userID and remembers its keyboard. A terminal
// reply without a keyboard forgets the previous one.
func (r *Renderer) Render(userID string, reply models.Reply) string {
	buttons := reply.Keyboard.Buttons()

	r.mu.Lock()
	switch {
	case len(buttons) > 0:
		r.last[userID] = reply.Keyboard
	case reply.Terminal:
		delete(r.last, userID)
	}
	r.mu.Unlock()

	if len(buttons) == 0 {
		return reply.Text
	}
	var b strings.Builder
	b.WriteString(reply.Text)
	b.WriteString("\n")
	for i, btn := range buttons {
		fmt.Fprintf(&b, "\n%s%d %s", ButtonMarker, i+1, btn.Label)
	}
	return b.String()
}

// Resolve converts an inbound message body into an event. "#N" selects the
// Nth button of the last keyboard shown to the user: inline buttons become
// button events carrying their data, reply-keyboard buttons become text
// events carrying their label. Anything else is text.
func (r *Renderer) Resolve(userID, username, body string) models.Event {
	ev := models.Event{UserID: userID, Username: username, Kind: models.EventText, Payload: body}
	n, ok := buttonNumber(body)
	if !ok {
		return ev
	}

	r.mu.Lock()
	kb := r.last[userID]
	r.mu.Unlock()

	buttons := kb.Buttons()
	if n < 1 || n > len(buttons) {
		return ev
	}
	btn := buttons[n-1]
	if kb.Inline {
		ev.Kind = models.EventButton
		ev.Payload = btn.Payload()
	} else {
		ev.Payload = btn.Label
	}
	return ev
}

func buttonNumber(body string) (int, bool) {
	s := strings.TrimSpace(body)
	if !strings.HasPrefix(s, ButtonMarker) {
		return 0, false
	}
	n, err := strconv.Atoi(s[len(ButtonMarker):])
	if err != nil {
		return 0, false
	}
	return n, true
}
