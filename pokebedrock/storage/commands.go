package storage

import (
	"context"
	"fmt"
	"time"
)

// HasProcessedCommand reports whether a web command with the given id was already processed.
func (s *Store) HasProcessedCommand(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM web_commands_log WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("check processed command %s: %w", id, err)
	}
	return n > 0, nil
}

// MarkCommandProcessed records a web command as processed. Marking it twice is a no-op.
func (s *Store) MarkCommandProcessed(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO web_commands_log (id, processed_at) VALUES (?, ?)", id, time.Now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("mark command %s processed: %w", id, err)
	}
	return nil
}
