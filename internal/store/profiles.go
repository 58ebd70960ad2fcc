package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/soulbot/core/logger"
)

const profileColumns = `p.id, p.chat_id, p.username, p.name, p.age, p.description, p.photo_ref`

// ProfileQuery selects the next profile of a forward-only enumeration.
type ProfileQuery struct {
	// After is the id of the last shown profile; 0 starts before all profiles.
	After int64
	// Requester is never returned to itself.
	Requester int64
	// SharedCategories limits results to profiles sharing at least one category with Requester.
	SharedCategories bool
}

// UserExists reports whether chatID has a stored profile.
func (s *Store) UserExists(ctx context.Context, chatID int64) (bool, error) {
	var exists bool
	err := s.get(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM profiles WHERE chat_id = ?)`, chatID)
	if err != nil {
		return false, fmt.Errorf("store: user exists: %w", err)
	}
	return exists, nil
}

const upsertProfileQuery = `
	INSERT INTO profiles (chat_id, username, name, age, description, photo_ref)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (chat_id) DO UPDATE SET
		username = excluded.username,
		name = excluded.name,
		age = excluded.age,
		description = excluded.description,
		photo_ref = excluded.photo_ref,
		updated_at = CURRENT_TIMESTAMP`

// UpsertProfile creates or overwrites the profile of p.ChatID. The internal id is kept on update.
func (s *Store) UpsertProfile(ctx context.Context, p Profile) error {
	_, err := s.exec(ctx, upsertProfileQuery,
		p.ChatID, p.Username, p.Name, p.Age, p.Description, p.PhotoRef,
	)
	if err != nil {
		return fmt.Errorf("store: upsert profile: %w", err)
	}
	logger.Debug(ctx, "store", "profile.upsert",
		slog.String("status", "ok"),
		slog.Int64("chat_id", p.ChatID),
	)
	return nil
}

// SaveProfile upserts p and replaces its category set in one transaction.
// A nil categoryIDs leaves the profile without categories.
func (s *Store) SaveProfile(ctx context.Context, p Profile, categoryIDs []int64) error {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(upsertProfileQuery),
			p.ChatID, p.Username, p.Name, p.Age, p.Description, p.PhotoRef,
		)
		if err != nil {
			return err
		}
		return replaceCategories(ctx, tx, p.ChatID, categoryIDs)
	})
	if err != nil {
		return fmt.Errorf("store: save profile: %w", err)
	}
	logger.Debug(ctx, "store", "profile.save",
		slog.String("status", "ok"),
		slog.Int64("chat_id", p.ChatID),
		slog.Int("categories", len(categoryIDs)),
	)
	return nil
}

// GetProfile returns the profile of chatID or ErrNotFound.
func (s *Store) GetProfile(ctx context.Context, chatID int64) (Profile, error) {
	var p Profile
	err := s.get(ctx, &p, `SELECT `+profileColumns+` FROM profiles p WHERE p.chat_id = ?`, chatID)
	if err != nil {
		return Profile{}, fmt.Errorf("store: get profile: %w", err)
	}
	return p, nil
}

// NextProfileAfter returns the profile with the smallest id greater than q.After, or ErrNotFound.
func (s *Store) NextProfileAfter(ctx context.Context, q ProfileQuery) (Profile, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + profileColumns + ` FROM profiles p WHERE p.id > ? AND p.chat_id <> ?`)
	args := []any{q.After, q.Requester}
	if q.SharedCategories {
		b.WriteString(` AND EXISTS (
			SELECT 1 FROM profile_categories theirs
			JOIN profile_categories mine ON mine.category_id = theirs.category_id
			WHERE theirs.chat_id = p.chat_id AND mine.chat_id = ?)`)
		args = append(args, q.Requester)
	}
	b.WriteString(` ORDER BY p.id ASC LIMIT 1`)

	var p Profile
	if err := s.get(ctx, &p, b.String(), args...); err != nil {
		return Profile{}, fmt.Errorf("store: next profile: %w", err)
	}
	return p, nil
}
