package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/soulbot/core/logger"
	"github.com/m3rciful/soulbot/internal/chat"
)

// Soul is the session of one chat. All fields except lastActive are guarded by mu.
type Soul struct {
	mu  sync.Mutex
	reg *Registry

	chatID int64
	msgr   chat.Messenger

	state    State
	last     chat.MessageRef
	detached bool

	// requests raised by the active state, applied by the registry after the callback returns
	ended bool
	next  State

	lastActive atomic.Int64
}

func newSoul(reg *Registry, chatID int64, msgr chat.Messenger, now time.Time) *Soul {
	s := &Soul{reg: reg, chatID: chatID, msgr: msgr}
	s.touch(now)
	return s
}

// ChatID returns the chat identity of the soul.
func (s *Soul) ChatID() int64 {
	return s.chatID
}

// State returns the active mode or nil.
func (s *Soul) State() State {
	return s.state
}

// StateName returns the active mode name or "none".
func (s *Soul) StateName() string {
	if s.state == nil {
		return "none"
	}
	return s.state.Name()
}

// LastActive returns the last activity time.
func (s *Soul) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// LastMessage returns the last outbound message of the session.
func (s *Soul) LastMessage() chat.MessageRef {
	return s.last
}

// IsCurrent reports whether ref is the last outbound message, i.e. a button on it is live.
func (s *Soul) IsCurrent(ref chat.MessageRef) bool {
	return !s.last.IsZero() && s.last.MessageID == ref.MessageID
}

// Detached reports whether the soul was removed from the registry.
func (s *Soul) Detached() bool {
	return s.detached
}

// End asks the registry to remove the active mode once the current callback returns.
func (s *Soul) End() {
	s.ended = true
}

// Switch asks the registry to transition to next once the current callback returns.
func (s *Soul) Switch(next State) {
	s.next = next
}

// Release unlocks a soul obtained from Get or GetOrCreate.
// A soul left without a mode is detached first so it is never dispatched to.
func (s *Soul) Release() {
	if !s.detached && s.state == nil {
		s.reg.detach(context.Background(), s)
	}
	s.mu.Unlock()
}

// SendText sends a message, clearing the keyboard of the previous one first.
func (s *Soul) SendText(ctx context.Context, text string, kb chat.Keyboard) error {
	s.clearKeyboard(ctx)
	ref, err := s.msgr.SendText(ctx, s.chatID, text, kb)
	if err != nil {
		return err
	}
	s.last = ref
	return nil
}

// SendPhoto sends a photo with caption, clearing the keyboard of the previous message first.
func (s *Soul) SendPhoto(ctx context.Context, photoRef, caption string, kb chat.Keyboard) error {
	s.clearKeyboard(ctx)
	ref, err := s.msgr.SendPhoto(ctx, s.chatID, photoRef, caption, kb)
	if err != nil {
		return err
	}
	s.last = ref
	return nil
}

// EditKeyboard replaces the keyboard of the last outbound message.
func (s *Soul) EditKeyboard(ctx context.Context, kb chat.Keyboard) error {
	if s.last.IsZero() {
		return nil
	}
	if err := s.msgr.EditReplyMarkup(ctx, s.last, kb); err != nil {
		return err
	}
	s.last.HasKeyboard = !kb.Empty()
	return nil
}

// Answer acknowledges the interaction carried by ev, at most once.
func (s *Soul) Answer(ctx context.Context, ev chat.Event, text string) error {
	in := ev.Interaction
	if in == nil || in.Answered() {
		return nil
	}
	in.MarkAnswered()
	return s.msgr.Answer(ctx, in.ID, text)
}

func (s *Soul) clearKeyboard(ctx context.Context) {
	if s.last.IsZero() || !s.last.HasKeyboard {
		return
	}
	if err := s.msgr.EditReplyMarkup(ctx, s.last, nil); err != nil {
		logger.Warn(ctx, "session", "keyboard.clear",
			slog.String("status", "fail"),
			slog.Int64("chat_id", s.chatID),
			slog.String("err", err.Error()),
		)
	}
	s.last.HasKeyboard = false
}

func (s *Soul) touch(now time.Time) {
	s.lastActive.Store(now.UnixNano())
}
