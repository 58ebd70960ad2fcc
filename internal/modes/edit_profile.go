package modes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/soulbot/core/logger"
	"github.com/m3rciful/soulbot/internal/chat"
	"github.com/m3rciful/soulbot/internal/form"
	"github.com/m3rciful/soulbot/internal/session"
	"github.com/m3rciful/soulbot/internal/store"
)

// editProfile collects a profile through the form and persists it on removal.
type editProfile struct {
	m        *Modes
	username string
	out      *soulPrompter
	form     *form.Manager
}

func (e *editProfile) Name() string { return "edit_profile" }

func (e *editProfile) OnCreate(ctx context.Context, s *session.Soul, ev chat.Event) error {
	e.username = strings.TrimPrefix(strings.TrimSpace(ev.Username), "@")
	if e.username == "" {
		if err := s.SendText(ctx, textNeedUsername, nil); err != nil {
			return err
		}
		s.End()
		return nil
	}

	categories, err := e.m.deps.Store.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		logger.Warn(ctx, "modes", "edit_profile.categories",
			slog.String("status", "empty"),
			slog.Int64("chat_id", s.ChatID()),
		)
	}

	e.out = &soulPrompter{}
	e.out.bind(s, ev)
	e.form = form.New(e.out, profileSteps(categories)...)
	return e.form.Start(ctx)
}

func (e *editProfile) OnEvent(ctx context.Context, s *session.Soul, ev chat.Event) error {
	if e.form == nil {
		return nil
	}
	in := form.InputFromEvent(ev)
	if in.Shape == 0 {
		return nil
	}
	e.out.bind(s, ev)
	done, err := e.form.ProcessInput(ctx, in)
	if err != nil {
		return err
	}
	if done {
		s.End()
	}
	return nil
}

// Redisplay shows the current question again, e.g. after a notice replaced the prompt.
func (e *editProfile) Redisplay(ctx context.Context, s *session.Soul) error {
	if e.form == nil || e.form.Completed() {
		return nil
	}
	e.out.bind(s, chat.Event{ChatID: s.ChatID()})
	return e.form.Start(ctx)
}

// OnRemove persists a completed form; an incomplete one is discarded.
// Without a category step the stored category set is cleared.
func (e *editProfile) OnRemove(ctx context.Context, s *session.Soul) error {
	if e.form == nil || !e.form.Completed() {
		return nil
	}
	p, categories, err := e.profile(s.ChatID())
	if err != nil {
		return err
	}
	if err := e.m.deps.Store.SaveProfile(ctx, p, categories); err != nil {
		return err
	}
	logger.Info(ctx, "modes", "profile.saved",
		slog.String("status", "ok"),
		slog.Int64("chat_id", p.ChatID),
		slog.Int("categories", len(categories)),
	)
	return s.SendText(ctx, textProfileSaved, nil)
}

func (e *editProfile) profile(chatID int64) (store.Profile, []int64, error) {
	answers := e.form.Answers()
	p := store.Profile{ChatID: chatID, Username: e.username}
	var err error
	if p.Name, err = answers.String(KeyName); err != nil {
		return p, nil, fmt.Errorf("edit profile: %w", err)
	}
	if p.Age, err = answers.Int(KeyAge); err != nil {
		return p, nil, fmt.Errorf("edit profile: %w", err)
	}
	if p.Description, err = answers.String(KeyDescription); err != nil {
		return p, nil, fmt.Errorf("edit profile: %w", err)
	}
	if p.PhotoRef, err = answers.String(KeyPhoto); err != nil {
		return p, nil, fmt.Errorf("edit profile: %w", err)
	}
	var categories []int64
	if answers.Has(KeyCategories) {
		if categories, err = answers.IDs(KeyCategories); err != nil {
			return p, nil, fmt.Errorf("edit profile: %w", err)
		}
	}
	return p, categories, nil
}
