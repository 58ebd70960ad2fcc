package modes

import (
	"context"
	"errors"

	"github.com/m3rciful/soulbot/internal/chat"
	"github.com/m3rciful/soulbot/internal/session"
	"github.com/m3rciful/soulbot/internal/store"
)

type showProfile struct {
	m    *Modes
	card card
}

func (v *showProfile) Name() string { return "show_profile" }

func (v *showProfile) OnCreate(ctx context.Context, s *session.Soul, _ chat.Event) error {
	st := v.m.deps.Store
	p, err := st.GetProfile(ctx, s.ChatID())
	if errors.Is(err, store.ErrNotFound) {
		s.End()
		return s.SendText(ctx, textNoProfile, nil)
	}
	if err != nil {
		return err
	}
	categories, err := st.UserCategories(ctx, s.ChatID())
	if err != nil {
		return err
	}
	v.card = card{photoRef: p.PhotoRef, caption: caption(p, categories)}
	return v.card.send(ctx, s, editKeyboard())
}

func (v *showProfile) OnEvent(ctx context.Context, s *session.Soul, ev chat.Event) error {
	if action(ev) == ActionEdit {
		if err := s.Answer(ctx, ev, ""); err != nil {
			return err
		}
		s.Switch(v.m.EditProfile())
	}
	return nil
}

func (v *showProfile) OnRemove(context.Context, *session.Soul) error { return nil }

func (v *showProfile) Redisplay(ctx context.Context, s *session.Soul) error {
	if v.card.photoRef == "" {
		return nil
	}
	return v.card.send(ctx, s, editKeyboard())
}
