package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/soulbot/core/logger"
)

// AddLike records that from likes to. Repeated likes collapse into one row;
// created reports whether this call inserted it.
func (s *Store) AddLike(ctx context.Context, from, to int64) (created bool, err error) {
	res, err := s.exec(ctx, `
		INSERT INTO likes (from_chat_id, to_chat_id) VALUES (?, ?)
		ON CONFLICT (from_chat_id, to_chat_id) DO NOTHING`,
		from, to,
	)
	if err != nil {
		return false, fmt.Errorf("store: add like: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: add like: %w", err)
	}
	logger.Debug(ctx, "store", "like.add",
		slog.Int64("from", from),
		slog.Int64("to", to),
		slog.Bool("created", n > 0),
	)
	return n > 0, nil
}

// OldestPendingLike returns the oldest like addressed to chatID, or ErrNotFound.
func (s *Store) OldestPendingLike(ctx context.Context, chatID int64) (Like, error) {
	var l Like
	err := s.get(ctx, &l, `
		SELECT id, from_chat_id, to_chat_id FROM likes
		WHERE to_chat_id = ? ORDER BY id ASC LIMIT 1`,
		chatID,
	)
	if err != nil {
		return Like{}, fmt.Errorf("store: oldest like: %w", err)
	}
	return l, nil
}

// RemoveLike deletes a like. Removing an absent like is not an error.
func (s *Store) RemoveLike(ctx context.Context, id int64) error {
	if _, err := s.exec(ctx, `DELETE FROM likes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: remove like: %w", err)
	}
	return nil
}
