// Package store persists profiles, likes and categories through sqlx.
// Queries are written with "?" placeholders and rebound for the active driver.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Profile is the public record of a user.
type Profile struct {
	ID          int64  `db:"id"`
	ChatID      int64  `db:"chat_id"`
	Username    string `db:"username"`
	Name        string `db:"name"`
	Age         int    `db:"age"`
	Description string `db:"description"`
	PhotoRef    string `db:"photo_ref"`
}

// Like is a pending "from likes to" fact.
type Like struct {
	ID         int64 `db:"id"`
	FromChatID int64 `db:"from_chat_id"`
	ToChatID   int64 `db:"to_chat_id"`
}

// Category is an interest tag.
type Category struct {
	ID    int64  `db:"id"`
	Title string `db:"title"`
}

// Store is the SQL implementation of the profile repository.
type Store struct {
	db *sqlx.DB
}

// New wraps an open database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) get(ctx context.Context, dest any, query string, args ...any) error {
	err := s.db.GetContext(ctx, dest, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.db.Rebind(query), args...)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
