// Package chat describes the transport boundary of the bot: inbound events,
// outbound keyboards and the Messenger capability used to talk back.
package chat

import "strings"

// EventKind classifies an inbound event.
type EventKind uint8

const (
	// EventText is free text typed by the user.
	EventText EventKind = iota + 1
	// EventCommand is a slash command such as /start.
	EventCommand
	// EventPhoto is a photo attachment.
	EventPhoto
	// EventInteraction is an inline button press tied to a previous outbound message.
	EventInteraction
	// EventNotice is an internal notification addressed to a chat by another chat's handler.
	EventNotice
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventCommand:
		return "command"
	case EventPhoto:
		return "photo"
	case EventInteraction:
		return "interaction"
	case EventNotice:
		return "notice"
	}
	return "unknown"
}

// MessageRef points at an outbound message already delivered to a chat.
type MessageRef struct {
	ChatID      int64
	MessageID   int
	HasKeyboard bool
}

// IsZero reports whether the reference points at nothing.
func (r MessageRef) IsZero() bool {
	return r.MessageID == 0
}

// Interaction is a button press.
type Interaction struct {
	ID      string
	Action  string
	Payload string
	Origin  MessageRef

	answered bool
}

// MarkAnswered records that the interaction was acknowledged.
func (i *Interaction) MarkAnswered() {
	if i != nil {
		i.answered = true
	}
}

// Answered reports whether the interaction was acknowledged.
func (i *Interaction) Answered() bool {
	return i != nil && i.answered
}

// Notice is the payload of an EventNotice.
type Notice struct {
	Text     string
	Keyboard Keyboard
}

// Event is a single inbound update for one chat.
type Event struct {
	Kind     EventKind
	ChatID   int64
	Username string
	Text     string
	PhotoRef string

	Interaction *Interaction
	Notice      *Notice
}

// Command returns the command name (without arguments and bot suffix) for slash texts.
func (e Event) Command() string {
	if e.Kind != EventCommand && e.Kind != EventText {
		return ""
	}
	text := strings.TrimSpace(e.Text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name := strings.Fields(text)[0]
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	return strings.ToLower(name)
}

// Button is a single inline keyboard button.
type Button struct {
	Text    string
	Action  string
	Payload string
}

// Keyboard is a set of inline button rows. A nil keyboard means no markup.
type Keyboard [][]Button

// Row is a convenience constructor for a keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// Empty reports whether the keyboard has no buttons.
func (k Keyboard) Empty() bool {
	for _, row := range k {
		if len(row) > 0 {
			return false
		}
	}
	return true
}
