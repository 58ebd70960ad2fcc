// Package router turns telebot updates into chat events and hands them to a
// Sink. It does no handling of its own beyond filtering unknown callbacks.
package router

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/soulbot/core/telegram"
	"github.com/m3rciful/soulbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/soulbot/core/telegram/helpers"
	"github.com/m3rciful/soulbot/core/telegram/middleware"
	"github.com/m3rciful/soulbot/internal/chat"
)

const textUnsupported = "Unsupported action"

// Sink receives converted events. It must not block.
type Sink interface {
	Submit(ctx context.Context, ev chat.Event) error
}

// Options configures Routes.
type Options struct {
	Registry *tg.Registry
	Sink     Sink
	// OnUnknownAction answers callbacks whose key is not registered.
	// The default shows a short "unsupported" toast.
	OnUnknownAction tele.HandlerFunc
}

type router struct {
	reg     *tg.Registry
	sink    Sink
	unknown tele.HandlerFunc
}

// Routes returns the text, photo and callback routes, each wrapped with the
// shared recover and logger middlewares.
func Routes(opts Options) []tg.Route {
	r := &router{reg: opts.Registry, sink: opts.Sink, unknown: opts.OnUnknownAction}
	if r.reg == nil {
		r.reg = tg.NewRegistry()
	}
	if r.unknown == nil {
		r.unknown = func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: textUnsupported})
		}
	}
	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(r.onText)},
		{Endpoint: tele.OnPhoto, Handler: wrap(r.onPhoto)},
		{Endpoint: tele.OnCallback, Handler: wrap(r.onCallback)},
	}
}

func (r *router) onText(c tele.Context) error {
	start := time.Now()
	msg := c.Message()
	if msg == nil {
		return nil
	}
	ev := r.baseEvent(c, chat.EventText)
	ev.Text = msg.Text

	name := "text"
	if strings.HasPrefix(strings.TrimSpace(msg.Text), "/") {
		ev.Kind = chat.EventCommand
		name = "unknown_command"
		if key, _, ok := r.reg.LookupCommand(ev.Command()); ok {
			ev.Text = canonicalCommand(key, msg.Text)
			name = normalizeHandlerName(key)
		}
	}
	return r.submit(c, name, start, ev)
}

func (r *router) onPhoto(c tele.Context) error {
	start := time.Now()
	msg := c.Message()
	if msg == nil || msg.Photo == nil {
		return nil
	}
	ev := r.baseEvent(c, chat.EventPhoto)
	// telebot keeps the largest size of the photo.
	ev.PhotoRef = msg.Photo.FileID
	return r.submit(c, "photo", start, ev)
}

func (r *router) onCallback(c tele.Context) error {
	start := time.Now()
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	key, payload := callbacks.Parse(cb)
	name := "callback." + normalizeHandlerName(key)
	if !r.reg.KnownAction(key) {
		err := r.unknown(c)
		logHandlerSummary(c, name, start, "skip", err,
			slog.String("cb_key", key),
			slog.String("reason", "not_found"),
		)
		return err
	}

	ev := r.baseEvent(c, chat.EventInteraction)
	in := &chat.Interaction{ID: cb.ID, Action: key, Payload: payload}
	if m := cb.Message; m != nil {
		in.Origin = chat.MessageRef{ChatID: ev.ChatID, MessageID: m.ID}
		if m.Chat != nil {
			in.Origin.ChatID = m.Chat.ID
		}
	}
	ev.Interaction = in
	err := r.submit(c, name, start, ev, slog.String("cb_key", key))
	if err != nil {
		// Nothing downstream will answer; stop the client spinner here.
		_ = c.Respond()
	}
	return err
}

func (r *router) baseEvent(c tele.Context, kind chat.EventKind) chat.Event {
	return chat.Event{
		Kind:     kind,
		ChatID:   tghelpers.ChatID(c),
		Username: tghelpers.Username(c),
	}
}

func (r *router) submit(c tele.Context, name string, start time.Time, ev chat.Event, extras ...slog.Attr) error {
	extras = append(extras, slog.String("kind", ev.Kind.String()))
	return handleWithSummary(c, name, start, func() error {
		return r.sink.Submit(tghelpers.WithHandler(c, name), ev)
	}, extras...)
}

// canonicalCommand rewrites an aliased command to its registered name and
// keeps the arguments.
func canonicalCommand(key, text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		return key + text[i:]
	}
	return key
}
