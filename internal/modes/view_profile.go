package modes

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/soulbot/core/logger"
	"github.com/m3rciful/soulbot/internal/chat"
	"github.com/m3rciful/soulbot/internal/session"
	"github.com/m3rciful/soulbot/internal/store"
)

// viewProfile browses profiles in ascending id order, never revisiting one.
type viewProfile struct {
	m *Modes
	// cursor is the id of the last shown profile, 0 before the first.
	cursor int64
	// shown is the chat of the profile on screen, 0 when none.
	shown int64
	card  card
}

// card is a rendered profile, kept so it can be shown again without a store round trip.
type card struct {
	photoRef string
	caption  string
}

func (c card) send(ctx context.Context, s *session.Soul, kb chat.Keyboard) error {
	return s.SendPhoto(ctx, c.photoRef, c.caption, kb)
}

func (v *viewProfile) Name() string { return "view_profile" }

func (v *viewProfile) OnCreate(ctx context.Context, s *session.Soul, _ chat.Event) error {
	return v.showNext(ctx, s)
}

func (v *viewProfile) OnEvent(ctx context.Context, s *session.Soul, ev chat.Event) error {
	switch action(ev) {
	case ActionNext:
		if err := s.Answer(ctx, ev, ""); err != nil {
			return err
		}
		return v.showNext(ctx, s)
	case ActionLike:
		if v.shown == 0 {
			return s.Answer(ctx, ev, "")
		}
		if err := v.like(ctx, s); err != nil {
			return err
		}
		if err := s.Answer(ctx, ev, textLiked); err != nil {
			return err
		}
		return v.showNext(ctx, s)
	}
	return nil
}

func (v *viewProfile) OnRemove(context.Context, *session.Soul) error { return nil }

// Redisplay shows the current profile again with live buttons. The cursor does not move.
func (v *viewProfile) Redisplay(ctx context.Context, s *session.Soul) error {
	if v.shown == 0 {
		return nil
	}
	return v.card.send(ctx, s, browseKeyboard())
}

func (v *viewProfile) like(ctx context.Context, s *session.Soul) error {
	created, err := v.m.deps.Store.AddLike(ctx, s.ChatID(), v.shown)
	if err != nil {
		return err
	}
	if !created || v.m.deps.Notifier == nil {
		return nil
	}
	if err := v.m.deps.Notifier.NotifyLike(ctx, v.shown); err != nil {
		logger.Warn(ctx, "modes", "like.notify",
			slog.String("status", "fail"),
			slog.Int64("chat_id", v.shown),
			slog.String("err", err.Error()),
		)
	}
	return nil
}

func (v *viewProfile) showNext(ctx context.Context, s *session.Soul) error {
	st := v.m.deps.Store
	p, err := st.NextProfileAfter(ctx, store.ProfileQuery{
		After:            v.cursor,
		Requester:        s.ChatID(),
		SharedCategories: v.m.deps.CategoryFilter,
	})
	if errors.Is(err, store.ErrNotFound) {
		v.shown, v.card = 0, card{}
		return s.SendText(ctx, textNothingLeft, nil)
	}
	if err != nil {
		return err
	}
	categories, err := st.UserCategories(ctx, p.ChatID)
	if err != nil {
		return err
	}
	c := card{photoRef: p.PhotoRef, caption: caption(p, categories)}
	if err := c.send(ctx, s, browseKeyboard()); err != nil {
		return err
	}
	v.cursor, v.shown, v.card = p.ID, p.ChatID, c
	return nil
}
