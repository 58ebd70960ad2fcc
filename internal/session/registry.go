package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/soulbot/core/logger"
	"github.com/m3rciful/soulbot/internal/chat"
)

const (
	// DefaultIdleTimeout is the inactivity window after which a soul is evicted.
	DefaultIdleTimeout = 5 * time.Minute
	// DefaultSweepInterval is how often idle souls are looked for.
	DefaultSweepInterval = time.Minute
)

// ErrNoState is returned when an event is delivered to a soul without a mode.
var ErrNoState = errors.New("session: no active state")

// Options configures a Registry.
type Options struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	// EvictNotice is sent to a chat whose session expired. Empty disables it.
	EvictNotice string
	Now         func() time.Time
}

// Registry maps chat identities to souls. The map lock is only held for map
// operations; per-soul work runs under the soul's own lock.
type Registry struct {
	mu    sync.RWMutex
	souls map[int64]*Soul
	msgr  chat.Messenger
	opts  Options
}

// NewRegistry creates an empty registry sending through msgr.
func NewRegistry(msgr chat.Messenger, opts Options) *Registry {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		souls: make(map[int64]*Soul),
		msgr:  msgr,
		opts:  opts,
	}
}

// GetOrCreate returns the locked soul of chatID, creating an empty one if needed.
// The caller must Release it.
func (r *Registry) GetOrCreate(chatID int64) *Soul {
	for {
		r.mu.Lock()
		s, ok := r.souls[chatID]
		if !ok {
			s = newSoul(r, chatID, r.msgr, r.opts.Now())
			r.souls[chatID] = s
		}
		r.mu.Unlock()

		s.mu.Lock()
		if !s.detached {
			s.touch(r.opts.Now())
			return s
		}
		// evicted between lookup and lock; the map no longer holds it
		s.mu.Unlock()
	}
}

// Get returns the locked soul of chatID if it has an active mode.
// The caller must Release it.
func (r *Registry) Get(chatID int64) (*Soul, bool) {
	r.mu.RLock()
	s, ok := r.souls[chatID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	if s.detached || s.state == nil {
		s.mu.Unlock()
		return nil, false
	}
	s.touch(r.opts.Now())
	return s, true
}

// Len returns the number of live souls.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.souls)
}

// ChangeState removes the active mode of s and creates next with ev.
// s must be locked. If the old mode fails to remove it stays active;
// if the new mode fails to create the soul is detached.
func (r *Registry) ChangeState(ctx context.Context, s *Soul, next State, ev chat.Event) error {
	if err := r.transition(ctx, s, next, ev); err != nil {
		return err
	}
	return r.settle(ctx, s, ev)
}

// Deliver routes ev to the active mode of s and applies any requested transition.
// s must be locked.
func (r *Registry) Deliver(ctx context.Context, s *Soul, ev chat.Event) error {
	if s.state == nil || s.detached {
		return ErrNoState
	}
	if err := s.state.OnEvent(ctx, s, ev); err != nil {
		s.ended, s.next = false, nil
		return fmt.Errorf("session: %s on event: %w", s.state.Name(), err)
	}
	return r.settle(ctx, s, ev)
}

// Remove runs the on-remove of the active mode and detaches s. s must be locked.
// A failing on-remove keeps the mode active so the caller can retry.
func (r *Registry) Remove(ctx context.Context, s *Soul) error {
	if s.detached {
		return nil
	}
	if st := s.state; st != nil {
		if err := st.OnRemove(ctx, s); err != nil {
			s.ended = false
			return fmt.Errorf("session: %s on remove: %w", st.Name(), err)
		}
		logger.Debug(ctx, "session", "state.remove",
			slog.String("status", "ok"),
			slog.Int64("chat_id", s.chatID),
			slog.String("state", st.Name()),
		)
	}
	s.state = nil
	r.detach(ctx, s)
	return nil
}

func (r *Registry) transition(ctx context.Context, s *Soul, next State, ev chat.Event) error {
	s.ended, s.next = false, nil
	if old := s.state; old != nil {
		s.state = nil
		if err := old.OnRemove(ctx, s); err != nil {
			s.state = old
			return fmt.Errorf("session: %s on remove: %w", old.Name(), err)
		}
		s.ended, s.next = false, nil
	}
	s.state = next
	if err := next.OnCreate(ctx, s, ev); err != nil {
		s.state = nil
		r.detach(ctx, s)
		return fmt.Errorf("session: %s on create: %w", next.Name(), err)
	}
	logger.Debug(ctx, "session", "state.create",
		slog.String("status", "ok"),
		slog.Int64("chat_id", s.chatID),
		slog.String("state", next.Name()),
	)
	return nil
}

func (r *Registry) settle(ctx context.Context, s *Soul, ev chat.Event) error {
	for !s.detached {
		switch {
		case s.next != nil:
			if err := r.transition(ctx, s, s.next, ev); err != nil {
				return err
			}
		case s.ended:
			return r.Remove(ctx, s)
		default:
			return nil
		}
	}
	return nil
}

// detach drops s from the map. s must be locked.
func (r *Registry) detach(ctx context.Context, s *Soul) {
	if s.detached {
		return
	}
	s.clearKeyboard(ctx)
	s.detached = true
	s.ended, s.next = false, nil
	r.mu.Lock()
	if cur, ok := r.souls[s.chatID]; ok && cur == s {
		delete(r.souls, s.chatID)
	}
	r.mu.Unlock()
}

// evict removes s regardless of on-remove failures. s must be locked.
func (r *Registry) evict(ctx context.Context, s *Soul, notice string) {
	if s.detached {
		return
	}
	if notice != "" {
		if err := s.SendText(ctx, notice, nil); err != nil {
			logger.Warn(ctx, "session", "evict.notice",
				slog.String("status", "fail"),
				slog.Int64("chat_id", s.chatID),
				slog.String("err", err.Error()),
			)
		}
	}
	if st := s.state; st != nil {
		s.state = nil
		if err := st.OnRemove(ctx, s); err != nil {
			logger.Error(ctx, "session", "evict.remove",
				slog.String("status", "fail"),
				slog.Int64("chat_id", s.chatID),
				slog.String("state", st.Name()),
				slog.String("err", err.Error()),
			)
		}
	}
	r.detach(ctx, s)
}

// Sweep evicts every soul idle for longer than the idle timeout and returns how many were evicted.
// Souls busy handling an event are active by definition and skipped.
func (r *Registry) Sweep(ctx context.Context) int {
	now := r.opts.Now()

	r.mu.RLock()
	total := len(r.souls)
	candidates := make([]*Soul, 0)
	for _, s := range r.souls {
		if now.Sub(s.LastActive()) > r.opts.IdleTimeout {
			candidates = append(candidates, s)
		}
	}
	r.mu.RUnlock()

	removed := 0
	for _, s := range candidates {
		if !s.mu.TryLock() {
			continue
		}
		if !s.detached && now.Sub(s.LastActive()) > r.opts.IdleTimeout {
			r.evict(ctx, s, r.opts.EvictNotice)
			removed++
		}
		s.mu.Unlock()
	}

	if removed > 0 {
		logger.Info(ctx, "session", "sweep",
			slog.String("status", "ok"),
			slog.Int("count", removed),
			slog.Int("total", total),
		)
	}
	return removed
}

// Run sweeps on every interval until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()

	logger.Info(ctx, "session", "sweeper.start",
		slog.Duration("interval", r.opts.SweepInterval),
		slog.Duration("idle_timeout", r.opts.IdleTimeout),
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Drain removes every soul, committing or discarding pending data through on-remove.
func (r *Registry) Drain(ctx context.Context) int {
	r.mu.RLock()
	all := make([]*Soul, 0, len(r.souls))
	for _, s := range r.souls {
		all = append(all, s)
	}
	r.mu.RUnlock()

	for _, s := range all {
		s.mu.Lock()
		r.evict(ctx, s, "")
		s.mu.Unlock()
	}
	if len(all) > 0 {
		logger.Info(ctx, "session", "drain",
			slog.String("status", "ok"),
			slog.Int("count", len(all)),
		)
	}
	return len(all)
}
