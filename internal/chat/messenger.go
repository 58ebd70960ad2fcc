package chat

import "context"

// Messenger delivers outbound messages. Implementations talk to the chat transport.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, kb Keyboard) (MessageRef, error)
	SendPhoto(ctx context.Context, chatID int64, photoRef, caption string, kb Keyboard) (MessageRef, error)
	// EditReplyMarkup replaces the keyboard of a delivered message; a nil keyboard removes it.
	EditReplyMarkup(ctx context.Context, ref MessageRef, kb Keyboard) error
	// Answer acknowledges an interaction with an optional transient text.
	Answer(ctx context.Context, interactionID, text string) error
}
