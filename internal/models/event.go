package models

import "strings"

// EventKind distinguishes typed text from a button press.
type EventKind string

const (
	EventText   EventKind = "text"
	EventButton EventKind = "button"
)

// Event is one inbound message from the chat transport.
type Event struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username,omitempty"`
	Kind     EventKind `json:"kind"`
	Payload  string    `json:"payload"`
}

// IsCommand reports whether the event is a slash command. Reply-keyboard
// buttons such as "/help" arrive as their label, so the kind does not matter.
func (e Event) IsCommand() bool {
	return strings.HasPrefix(strings.TrimSpace(e.Payload), "/")
}

// Command splits a slash command into its lowercased name and argument string.
func (e Event) Command() (name, args string) {
	text := strings.TrimSpace(e.Payload)
	name, args, _ = strings.Cut(text, " ")
	// Telegram-style "/cmd@botname"
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name), strings.TrimSpace(args)
}

// Button is one selectable option. Data is the payload sent back when pressed;
// an empty Data means the label itself is sent.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data,omitempty"`
}

// Payload returns what the transport should send back for this button.
func (b Button) Payload() string {
	if b.Data != "" {
		return b.Data
	}
	return b.Label
}

// Keyboard describes reply options. Inline keyboards are attached to a message
// and send button events; reply keyboards replace the text input.
type Keyboard struct {
	Rows    [][]Button `json:"rows"`
	Inline  bool       `json:"inline,omitempty"`
	OneTime bool       `json:"one_time,omitempty"`
}

// Buttons flattens the keyboard rows in display order.
func (k *Keyboard) Buttons() []Button {
	if k == nil {
		return nil
	}
	var out []Button
	for _, row := range k.Rows {
		out = append(out, row...)
	}
	return out
}

// Reply is one outbound message.
type Reply struct {
	Text     string    `json:"text"`
	Keyboard *Keyboard `json:"keyboard,omitempty"`
	// Terminal marks the last reply of a finished flow; transports may remove
	// any reply keyboard when they see it.
	Terminal bool `json:"terminal,omitempty"`
}

// TextReply builds a plain reply.
func TextReply(text string) Reply {
	return Reply{Text: text}
}
