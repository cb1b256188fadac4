package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Note is a staff note left on a player.
type Note struct {
	ID         int64
	PlayerID   int64
	IssuerUUID string
	Message    string
	CreatedAt  time.Time
}

// CreateNote stores a note on a player and returns its row id.
func (s *Store) CreateNote(ctx context.Context, playerID int64, issuer, message string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO staff_notes (player_id, issuer_uuid, message, created_at) VALUES (?, ?, ?, ?)",
		playerID, nullString(issuer), message, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("create note on player %d: %w", playerID, err)
	}
	return res.LastInsertId()
}

// Notes returns the notes left on a player, newest first.
func (s *Store) Notes(ctx context.Context, playerID int64) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, player_id, issuer_uuid, message, created_at FROM staff_notes WHERE player_id = ? ORDER BY created_at DESC, id DESC",
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query notes of player %d: %w", playerID, err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var (
			n       Note
			issuer  sql.NullString
			created int64
		)
		if err = rows.Scan(&n.ID, &n.PlayerID, &issuer, &n.Message, &created); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.IssuerUUID = issuer.String
		n.CreatedAt = time.UnixMilli(created)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
