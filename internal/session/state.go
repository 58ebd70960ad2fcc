// Package session owns per-chat conversation sessions ("souls") and the
// transition protocol between conversation modes.
package session

import (
	"context"

	"github.com/m3rciful/soulbot/internal/chat"
)

// State is one conversation mode. The registry invokes the callbacks with the
// soul locked, so a state never observes concurrent events for its chat.
type State interface {
	Name() string
	// OnCreate runs once with the event that triggered the mode.
	OnCreate(ctx context.Context, s *Soul, ev chat.Event) error
	// OnEvent runs for every later event routed to the mode.
	OnEvent(ctx context.Context, s *Soul, ev chat.Event) error
	// OnRemove commits or discards pending data before the mode is dropped.
	OnRemove(ctx context.Context, s *Soul) error
}
