package modes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/soulbot/core/logger"
	"github.com/m3rciful/soulbot/internal/chat"
	"github.com/m3rciful/soulbot/internal/session"
	"github.com/m3rciful/soulbot/internal/store"
)

// viewLikedProfile shows incoming likes oldest first.
type viewLikedProfile struct {
	m      *Modes
	likeID int64
	liker  int64
	card   card
}

func (v *viewLikedProfile) Name() string { return "view_liked_profile" }

func (v *viewLikedProfile) OnCreate(ctx context.Context, s *session.Soul, _ chat.Event) error {
	return v.showNext(ctx, s)
}

func (v *viewLikedProfile) OnEvent(ctx context.Context, s *session.Soul, ev chat.Event) error {
	if v.likeID == 0 {
		return nil
	}
	st := v.m.deps.Store
	switch action(ev) {
	case ActionReject:
		if err := st.RemoveLike(ctx, v.likeID); err != nil {
			return err
		}
		if err := s.Answer(ctx, ev, ""); err != nil {
			return err
		}
		return v.showNext(ctx, s)
	case ActionAccept:
		return v.accept(ctx, s, ev)
	}
	return nil
}

func (v *viewLikedProfile) OnRemove(context.Context, *session.Soul) error { return nil }

// Redisplay shows the pending like again so it can still be accepted or rejected.
func (v *viewLikedProfile) Redisplay(ctx context.Context, s *session.Soul) error {
	if v.likeID == 0 {
		return nil
	}
	return v.card.send(ctx, s, inboxKeyboard())
}

func (v *viewLikedProfile) accept(ctx context.Context, s *session.Soul, ev chat.Event) error {
	st := v.m.deps.Store
	liker, err := st.GetProfile(ctx, v.liker)
	if errors.Is(err, store.ErrNotFound) {
		if err := st.RemoveLike(ctx, v.likeID); err != nil {
			return err
		}
		if err := s.Answer(ctx, ev, ""); err != nil {
			return err
		}
		return v.showNext(ctx, s)
	}
	if err != nil {
		return err
	}
	if err := st.RemoveLike(ctx, v.likeID); err != nil {
		return err
	}
	if err := s.Answer(ctx, ev, ""); err != nil {
		return err
	}
	if err := s.SendText(ctx, fmt.Sprintf(textMatch, handle(liker)), nil); err != nil {
		return err
	}
	v.notifyMatch(ctx, s)
	s.End()
	return nil
}

func (v *viewLikedProfile) notifyMatch(ctx context.Context, s *session.Soul) {
	if v.m.deps.Notifier == nil {
		return
	}
	own, err := v.m.deps.Store.GetProfile(ctx, s.ChatID())
	if err == nil {
		err = v.m.deps.Notifier.NotifyMatch(ctx, v.liker, own)
	}
	if err != nil {
		logger.Warn(ctx, "modes", "match.notify",
			slog.String("status", "fail"),
			slog.Int64("chat_id", v.liker),
			slog.String("err", err.Error()),
		)
	}
}

// showNext renders the oldest like, dropping likes whose liker has no profile anymore.
func (v *viewLikedProfile) showNext(ctx context.Context, s *session.Soul) error {
	st := v.m.deps.Store
	v.likeID, v.liker, v.card = 0, 0, card{}
	for {
		l, err := st.OldestPendingLike(ctx, s.ChatID())
		if errors.Is(err, store.ErrNotFound) {
			s.End()
			return s.SendText(ctx, textInboxEmpty, nil)
		}
		if err != nil {
			return err
		}
		p, err := st.GetProfile(ctx, l.FromChatID)
		if errors.Is(err, store.ErrNotFound) {
			if err := st.RemoveLike(ctx, l.ID); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		categories, err := st.UserCategories(ctx, p.ChatID)
		if err != nil {
			return err
		}
		c := card{photoRef: p.PhotoRef, caption: caption(p, categories)}
		if err := c.send(ctx, s, inboxKeyboard()); err != nil {
			return err
		}
		v.likeID, v.liker, v.card = l.ID, l.FromChatID, c
		return nil
	}
}
