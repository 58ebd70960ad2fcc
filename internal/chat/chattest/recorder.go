// Package chattest provides an in-memory Messenger for tests.
package chattest

import (
	"context"
	"sync"

	"github.com/m3rciful/soulbot/internal/chat"
)

// Op names a recorded Messenger call.
type Op string

const (
	OpText   Op = "text"
	OpPhoto  Op = "photo"
	OpEdit   Op = "edit"
	OpAnswer Op = "answer"
)

// Call is one recorded Messenger invocation.
type Call struct {
	Op        Op
	ChatID    int64
	MessageID int
	Text      string
	PhotoRef  string
	Keyboard  chat.Keyboard
	AnswerID  string
}

// Recorder records every call and hands out increasing message ids.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	nextID int

	// Err, when set, is returned by every send.
	Err error
}

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(c Call) (chat.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return chat.MessageRef{}, r.Err
	}
	if c.Op == OpText || c.Op == OpPhoto {
		r.nextID++
		c.MessageID = r.nextID
	}
	r.calls = append(r.calls, c)
	return chat.MessageRef{ChatID: c.ChatID, MessageID: c.MessageID, HasKeyboard: !c.Keyboard.Empty()}, nil
}

// SendText records a text message.
func (r *Recorder) SendText(_ context.Context, chatID int64, text string, kb chat.Keyboard) (chat.MessageRef, error) {
	return r.record(Call{Op: OpText, ChatID: chatID, Text: text, Keyboard: kb})
}

// SendPhoto records a photo message.
func (r *Recorder) SendPhoto(_ context.Context, chatID int64, photoRef, caption string, kb chat.Keyboard) (chat.MessageRef, error) {
	return r.record(Call{Op: OpPhoto, ChatID: chatID, PhotoRef: photoRef, Text: caption, Keyboard: kb})
}

// EditReplyMarkup records a keyboard edit.
func (r *Recorder) EditReplyMarkup(_ context.Context, ref chat.MessageRef, kb chat.Keyboard) error {
	_, err := r.record(Call{Op: OpEdit, ChatID: ref.ChatID, MessageID: ref.MessageID, Keyboard: kb})
	return err
}

// Answer records an interaction acknowledgement.
func (r *Recorder) Answer(_ context.Context, interactionID, text string) error {
	_, err := r.record(Call{Op: OpAnswer, AnswerID: interactionID, Text: text})
	return err
}

// Calls returns a copy of all recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// For returns the calls addressed to chatID.
func (r *Recorder) For(chatID int64) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.ChatID == chatID {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the last send (text or photo) to chatID.
func (r *Recorder) Last(chatID int64) (Call, bool) {
	calls := r.For(chatID)
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Op == OpText || calls[i].Op == OpPhoto {
			return calls[i], true
		}
	}
	return Call{}, false
}

// Answers returns every recorded acknowledgement.
func (r *Recorder) Answers() []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == OpAnswer {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
