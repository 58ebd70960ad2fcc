package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/soulbot/core/logger"
)

// ListCategories returns every category ordered by id.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := s.db.SelectContext(ctx, &out, `SELECT id, title FROM categories ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("store: list categories: %w", err)
	}
	return out, nil
}

// EnsureCategories inserts the missing titles and returns how many were added.
func (s *Store) EnsureCategories(ctx context.Context, titles []string) (int, error) {
	added := 0
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		q := tx.Rebind(`INSERT INTO categories (title) VALUES (?) ON CONFLICT (title) DO NOTHING`)
		for _, title := range titles {
			title = strings.TrimSpace(title)
			if title == "" {
				continue
			}
			res, err := tx.ExecContext(ctx, q, title)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: ensure categories: %w", err)
	}
	return added, nil
}

// SetUserCategories replaces the category set of chatID.
func (s *Store) SetUserCategories(ctx context.Context, chatID int64, categoryIDs []int64) error {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		return replaceCategories(ctx, tx, chatID, categoryIDs)
	})
	if err != nil {
		return fmt.Errorf("store: set user categories: %w", err)
	}
	logger.Debug(ctx, "store", "categories.set",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
		slog.Int("count", len(categoryIDs)),
	)
	return nil
}

func replaceCategories(ctx context.Context, tx *sqlx.Tx, chatID int64, categoryIDs []int64) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM profile_categories WHERE chat_id = ?`), chatID); err != nil {
		return err
	}
	q := tx.Rebind(`INSERT INTO profile_categories (chat_id, category_id) VALUES (?, ?) ON CONFLICT DO NOTHING`)
	for _, id := range categoryIDs {
		if _, err := tx.ExecContext(ctx, q, chatID, id); err != nil {
			return err
		}
	}
	return nil
}

// UserCategories returns the category titles of chatID ordered by category id.
func (s *Store) UserCategories(ctx context.Context, chatID int64) ([]string, error) {
	var out []string
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT c.title FROM categories c
		JOIN profile_categories pc ON pc.category_id = c.id
		WHERE pc.chat_id = ? ORDER BY c.id ASC`),
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: user categories: %w", err)
	}
	return out, nil
}
