package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Player is the stored record of a player that has been in contact with the server.
type Player struct {
	ID        int64
	UUID      uuid.UUID
	Username  string
	FirstSeen time.Time
	LastSeen  time.Time
	// Locale is the preferred locale code, or empty if the player never chose one.
	Locale string
}

const playerColumns = "id, uuid, username, first_seen, last_seen, locale"

// GetOrCreatePlayer returns the player with the given uuid, creating it on first contact. Existing players
// have their name and last seen time refreshed. The last seen time is strictly increasing across calls.
func (s *Store) GetOrCreatePlayer(ctx context.Context, id uuid.UUID, name string) (Player, error) {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `INSERT INTO players (uuid, username, first_seen, last_seen) VALUES (?, ?, ?, ?)
ON CONFLICT (uuid) DO UPDATE SET
    username = COALESCE(NULLIF(excluded.username, ''), players.username),
    last_seen = MAX(excluded.last_seen, COALESCE(players.last_seen, 0) + 1)`,
		id.String(), nullString(name), now, now,
	)
	if err != nil {
		return Player{}, fmt.Errorf("upsert player %s: %w", id, err)
	}
	return s.PlayerByUUID(ctx, id)
}

// PlayerByUUID returns the player with the given uuid, or ErrNotFound.
func (s *Store) PlayerByUUID(ctx context.Context, id uuid.UUID) (Player, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+playerColumns+" FROM players WHERE uuid = ?", id.String())
	p, err := scanPlayer(row)
	if err != nil {
		return Player{}, fmt.Errorf("player %s: %w", id, err)
	}
	return p, nil
}

// PlayerByName returns the player last seen with the given name, compared case-insensitively.
func (s *Store) PlayerByName(ctx context.Context, name string) (Player, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+playerColumns+" FROM players WHERE username = ? COLLATE NOCASE ORDER BY last_seen DESC LIMIT 1", name)
	p, err := scanPlayer(row)
	if err != nil {
		return Player{}, fmt.Errorf("player %q: %w", name, err)
	}
	return p, nil
}

// UUIDByName resolves the uuid of a player by their last known name.
func (s *Store) UUIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	p, err := s.PlayerByName(ctx, name)
	if err != nil {
		return uuid.Nil, err
	}
	return p.UUID, nil
}

// PlayerLocale returns the preferred locale of a player, or an empty string if none was set.
func (s *Store) PlayerLocale(ctx context.Context, id uuid.UUID) (string, error) {
	var locale sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT locale FROM players WHERE uuid = ?", id.String()).Scan(&locale)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("player locale %s: %w", id, err)
	}
	return locale.String, nil
}

// SetPlayerLocale stores the preferred locale of a player.
func (s *Store) SetPlayerLocale(ctx context.Context, id uuid.UUID, locale string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE players SET locale = ? WHERE uuid = ?", nullString(locale), id.String())
	if err != nil {
		return fmt.Errorf("set player locale %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set player locale %s: %w", id, ErrNotFound)
	}
	return nil
}

// scanPlayer ...
func scanPlayer(row *sql.Row) (Player, error) {
	var (
		p         Player
		id        string
		username  sql.NullString
		firstSeen sql.NullInt64
		lastSeen  sql.NullInt64
		locale    sql.NullString
	)
	if err := row.Scan(&p.ID, &id, &username, &firstSeen, &lastSeen, &locale); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Player{}, ErrNotFound
		}
		return Player{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Player{}, fmt.Errorf("parse player uuid: %w", err)
	}
	p.UUID = parsed
	p.Username = username.String
	p.FirstSeen = time.UnixMilli(firstSeen.Int64)
	p.LastSeen = time.UnixMilli(lastSeen.Int64)
	p.Locale = locale.String
	return p, nil
}
