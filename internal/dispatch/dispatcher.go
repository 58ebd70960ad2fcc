// Package dispatch routes inbound chat events to sessions. Events of one chat
// are handled strictly in arrival order; different chats run concurrently.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/m3rciful/soulbot/core/logger"
	"github.com/m3rciful/soulbot/internal/chat"
	"github.com/m3rciful/soulbot/internal/modes"
	"github.com/m3rciful/soulbot/internal/session"
	"github.com/m3rciful/soulbot/internal/store"
)

// ErrStopped is returned by Submit when the dispatcher is not running.
var ErrStopped = errors.New("dispatch: stopped")

// Options configures a Dispatcher.
type Options struct {
	Registry  *session.Registry
	Messenger chat.Messenger
	Store     modes.Store
	// CategoryFilter limits browsing to profiles sharing a category.
	CategoryFilter bool
	Commands       []Command
}

type item struct {
	ctx context.Context
	ev  chat.Event
}

// lane is the FIFO of one chat. It exists while events are pending or running.
type lane struct {
	queue []item
}

// Dispatcher fans events out to per-chat lanes.
type Dispatcher struct {
	reg      *session.Registry
	msgr     chat.Messenger
	modes    *modes.Modes
	commands map[string]Command

	mu      sync.Mutex
	lanes   map[int64]*lane
	running bool
	ctx     context.Context
	wg      sync.WaitGroup
	// loose holds the last message sent to a chat with no session, so its keyboard
	// can be cleared before the next one.
	loose map[int64]chat.MessageRef
}

// redisplayer is implemented by modes whose prompt must stay the live message.
type redisplayer interface {
	Redisplay(ctx context.Context, s *session.Soul) error
}

// New builds a dispatcher and the modes it drives.
func New(opts Options) *Dispatcher {
	cmds := opts.Commands
	if cmds == nil {
		cmds = DefaultCommands()
	}
	d := &Dispatcher{
		reg:      opts.Registry,
		msgr:     opts.Messenger,
		commands: make(map[string]Command, len(cmds)),
		lanes:    make(map[int64]*lane),
		ctx:      context.Background(),
		loose:    make(map[int64]chat.MessageRef),
	}
	for _, c := range cmds {
		d.commands[c.Name] = c
	}
	d.modes = modes.New(modes.Deps{
		Store:          opts.Store,
		Notifier:       d,
		CategoryFilter: opts.CategoryFilter,
	})
	return d
}

// Modes returns the mode factory driven by the dispatcher.
func (d *Dispatcher) Modes() *modes.Modes {
	return d.modes
}

// Start opens the intake. Events still queued once ctx is done are dropped.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = ctx
	d.running = true
}

// Stop closes the intake and waits for running events to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.running = false
	pending := len(d.lanes)
	d.mu.Unlock()

	d.wg.Wait()
	logger.Info(context.Background(), "dispatch", "stop",
		slog.String("status", "ok"),
		slog.Int("lanes", pending),
	)
}

// Pending returns the number of chats with queued or running events.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lanes)
}

// Submit queues ev on its chat's lane. It never blocks.
func (d *Dispatcher) Submit(ctx context.Context, ev chat.Event) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ErrStopped
	}
	l, ok := d.lanes[ev.ChatID]
	if !ok {
		l = &lane{}
		d.lanes[ev.ChatID] = l
		d.wg.Add(1)
		go d.drain(ev.ChatID, l)
	}
	l.queue = append(l.queue, item{ctx: ctx, ev: ev})
	return nil
}

func (d *Dispatcher) drain(chatID int64, l *lane) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(l.queue) == 0 {
			delete(d.lanes, chatID)
			d.mu.Unlock()
			return
		}
		it := l.queue[0]
		l.queue[0] = item{}
		l.queue = l.queue[1:]
		base := d.ctx
		d.mu.Unlock()

		if base.Err() != nil {
			logger.Warn(it.ctx, "dispatch", "event.dropped",
				slog.String("status", "skip"),
				slog.Int64("chat_id", chatID),
				slog.String("kind", it.ev.Kind.String()),
				slog.String("reason", "shutdown"),
			)
			continue
		}
		d.handle(it.ctx, it.ev)
	}
}

// handle is the top-level handler: failures are logged and the event is dropped.
func (d *Dispatcher) handle(ctx context.Context, ev chat.Event) {
	start := time.Now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			logger.Error(ctx, "dispatch", "event.panic",
				slog.Int64("chat_id", ev.ChatID),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
		d.ack(ctx, ev)
		d.logHandled(ctx, ev, start, err)
	}()
	err = d.route(ctx, ev)
}

func (d *Dispatcher) route(ctx context.Context, ev chat.Event) error {
	switch ev.Kind {
	case chat.EventNotice:
		return d.deliverNotice(ctx, ev)
	case chat.EventCommand:
		if cmd, ok := d.commands[ev.Command()]; ok {
			return d.runCommand(ctx, cmd, ev)
		}
		ev.Kind = chat.EventText
	case chat.EventInteraction:
		if ev.Interaction != nil && ev.Interaction.Action == modes.ActionInbox {
			if cmd, ok := d.commands["/check"]; ok {
				return d.runCommand(ctx, cmd, ev)
			}
		}
	}
	return d.forward(ctx, ev)
}

// forward hands ev to the active mode of its chat.
func (d *Dispatcher) forward(ctx context.Context, ev chat.Event) error {
	s, ok := d.reg.Get(ev.ChatID)
	if !ok {
		if ev.Kind == chat.EventInteraction {
			return d.answer(ctx, ev, textExpired)
		}
		return d.sendLoose(ctx, ev.ChatID, textNoMode, nil)
	}
	defer s.Release()
	return d.deliver(ctx, s, ev)
}

func (d *Dispatcher) deliver(ctx context.Context, s *session.Soul, ev chat.Event) error {
	if ev.Kind == chat.EventInteraction && (ev.Interaction == nil || !s.IsCurrent(ev.Interaction.Origin)) {
		logger.Debug(ctx, "dispatch", "interaction.stale",
			slog.Int64("chat_id", ev.ChatID),
			slog.String("state", s.StateName()),
		)
		return s.Answer(ctx, ev, textExpired)
	}
	if ev.Kind == chat.EventCommand {
		ev.Kind = chat.EventText
	}
	return d.reg.Deliver(logger.WithState(ctx, s.StateName()), s, ev)
}

func (d *Dispatcher) runCommand(ctx context.Context, cmd Command, ev chat.Event) error {
	ok, err := cmd.allowed(ctx, d.modes.Store(), ev.ChatID)
	if err != nil {
		return err
	}
	s := d.reg.GetOrCreate(ev.ChatID)
	defer s.Release()

	if !ok {
		if s.State() != nil {
			return d.deliver(ctx, s, ev)
		}
		if ev.Kind == chat.EventInteraction {
			return s.Answer(ctx, ev, cmd.Rejection)
		}
		return d.sendLoose(ctx, ev.ChatID, cmd.Rejection, nil)
	}

	logger.Debug(ctx, "dispatch", "command",
		slog.Int64("chat_id", ev.ChatID),
		slog.String("command", cmd.Name),
		slog.String("from", s.StateName()),
	)
	d.clearLoose(ctx, ev.ChatID)
	return d.reg.ChangeState(ctx, s, cmd.Enter(d.modes), ev)
}

func (d *Dispatcher) deliverNotice(ctx context.Context, ev chat.Event) error {
	if ev.Notice == nil {
		return nil
	}
	s, ok := d.reg.Get(ev.ChatID)
	if !ok {
		return d.sendLoose(ctx, ev.ChatID, ev.Notice.Text, ev.Notice.Keyboard)
	}
	defer s.Release()
	if r, ok := s.State().(redisplayer); ok {
		if err := s.SendText(ctx, ev.Notice.Text, nil); err != nil {
			return err
		}
		return r.Redisplay(ctx, s)
	}
	return s.SendText(ctx, ev.Notice.Text, ev.Notice.Keyboard)
}

// sendLoose sends a message to a chat that has no session.
func (d *Dispatcher) sendLoose(ctx context.Context, chatID int64, text string, kb chat.Keyboard) error {
	d.clearLoose(ctx, chatID)
	ref, err := d.msgr.SendText(ctx, chatID, text, kb)
	if err != nil {
		return err
	}
	if ref.HasKeyboard {
		d.mu.Lock()
		d.loose[chatID] = ref
		d.mu.Unlock()
	}
	return nil
}

// clearLoose removes the keyboard of the last sessionless message of chatID.
func (d *Dispatcher) clearLoose(ctx context.Context, chatID int64) {
	d.mu.Lock()
	ref, ok := d.loose[chatID]
	delete(d.loose, chatID)
	d.mu.Unlock()
	if !ok {
		return
	}
	if err := d.msgr.EditReplyMarkup(ctx, ref, nil); err != nil {
		logger.Warn(ctx, "dispatch", "keyboard.clear",
			slog.String("status", "fail"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}
}

func (d *Dispatcher) answer(ctx context.Context, ev chat.Event, text string) error {
	in := ev.Interaction
	if in == nil || in.Answered() {
		return nil
	}
	in.MarkAnswered()
	return d.msgr.Answer(ctx, in.ID, text)
}

// ack acknowledges an interaction nobody answered.
func (d *Dispatcher) ack(ctx context.Context, ev chat.Event) {
	if ev.Kind != chat.EventInteraction {
		return
	}
	if err := d.answer(ctx, ev, ""); err != nil {
		logger.Warn(ctx, "dispatch", "interaction.ack",
			slog.String("status", "fail"),
			slog.Int64("chat_id", ev.ChatID),
			slog.String("err", err.Error()),
		)
	}
}

func (d *Dispatcher) logHandled(ctx context.Context, ev chat.Event, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Int64("chat_id", ev.ChatID),
		slog.String("kind", ev.Kind.String()),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.Error(ctx, "dispatch", "event.handled", attrs...)
		return
	}
	logger.Debug(ctx, "dispatch", "event.handled", attrs...)
}

// NotifyLike queues a new-like notice on the liked chat's lane.
func (d *Dispatcher) NotifyLike(ctx context.Context, chatID int64) error {
	n := modes.NewLikeNotice()
	return d.Submit(ctx, chat.Event{Kind: chat.EventNotice, ChatID: chatID, Notice: &n})
}

// NotifyMatch queues a match notice on the liker's lane.
func (d *Dispatcher) NotifyMatch(ctx context.Context, chatID int64, p store.Profile) error {
	n := modes.MatchNotice(p)
	return d.Submit(ctx, chat.Event{Kind: chat.EventNotice, ChatID: chatID, Notice: &n})
}
