// Package modes implements the conversation modes of a chat: profile editing,
// own profile view, browsing and the like inbox.
package modes

import (
	"context"

	"github.com/m3rciful/soulbot/internal/session"
	"github.com/m3rciful/soulbot/internal/store"
)

// Store is the persistence the modes depend on.
type Store interface {
	UserExists(ctx context.Context, chatID int64) (bool, error)
	// SaveProfile stores p together with its full category set.
	SaveProfile(ctx context.Context, p store.Profile, categoryIDs []int64) error
	GetProfile(ctx context.Context, chatID int64) (store.Profile, error)
	NextProfileAfter(ctx context.Context, q store.ProfileQuery) (store.Profile, error)
	AddLike(ctx context.Context, from, to int64) (bool, error)
	OldestPendingLike(ctx context.Context, chatID int64) (store.Like, error)
	RemoveLike(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]store.Category, error)
	UserCategories(ctx context.Context, chatID int64) ([]string, error)
}

// Notifier reaches chats other than the one being handled.
type Notifier interface {
	// NotifyLike tells chatID that someone liked its profile.
	NotifyLike(ctx context.Context, chatID int64) error
	// NotifyMatch tells chatID that its like was accepted by the owner of p.
	NotifyMatch(ctx context.Context, chatID int64, p store.Profile) error
}

// Deps are the collaborators shared by all modes.
type Deps struct {
	Store    Store
	Notifier Notifier
	// CategoryFilter limits browsing to profiles sharing a category with the viewer.
	CategoryFilter bool
}

// Modes builds fresh mode instances.
type Modes struct {
	deps Deps
}

// New returns a mode factory.
func New(deps Deps) *Modes {
	return &Modes{deps: deps}
}

// Store returns the store the modes use.
func (m *Modes) Store() Store {
	return m.deps.Store
}

// EditProfile starts the profile form.
func (m *Modes) EditProfile() session.State {
	return &editProfile{m: m}
}

// ShowProfile renders the caller's own profile.
func (m *Modes) ShowProfile() session.State {
	return &showProfile{m: m}
}

// ViewProfile browses other profiles.
func (m *Modes) ViewProfile() session.State {
	return &viewProfile{m: m}
}

// ViewLikedProfile walks the incoming likes.
func (m *Modes) ViewLikedProfile() session.State {
	return &viewLikedProfile{m: m}
}
