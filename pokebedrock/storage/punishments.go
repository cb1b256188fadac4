package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

// Record is a stored punishment.
type Record struct {
	ID         int64
	PlayerID   int64
	Type       punishment.Type
	IssuerUUID string
	Reason     string
	CreatedAt  time.Time
	// ExpiresAt is the zero time for permanent punishments.
	ExpiresAt time.Time
	Active    bool
	ExtraData string
}

// Permanent reports whether the record never expires.
func (r Record) Permanent() bool {
	return r.ExpiresAt.IsZero()
}

// Expired reports whether a timed record has run out at now.
func (r Record) Expired(now time.Time) bool {
	return !r.Permanent() && !now.Before(r.ExpiresAt)
}

// Duration returns the length of the punishment, or 0 if it is permanent.
func (r Record) Duration() time.Duration {
	if r.Permanent() {
		return 0
	}
	return r.ExpiresAt.Sub(r.CreatedAt)
}

// Filter narrows the punishments returned by Store.Punishments.
type Filter struct {
	PlayerID   int64
	ActiveOnly bool
	// Types restricts the result to the given types. An empty slice matches every type.
	Types []punishment.Type
	// ExpiredAt, if set, only matches timed punishments that expired at or before the given time.
	ExpiredAt time.Time
	Limit     uint64
}

// EnsureType stores a punishment type if it is not stored yet.
func (s *Store) EnsureType(ctx context.Context, t punishment.Type) error {
	if _, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO punishment_types (name) VALUES (?)", t.String()); err != nil {
		return fmt.Errorf("ensure punishment type %s: %w", t, err)
	}
	return nil
}

// InsertPunishment inserts rec and returns its row id. Inserting a second active punishment of an exclusive
// type for the same player fails with ErrDuplicateActive.
func (s *Store) InsertPunishment(ctx context.Context, rec Record) (int64, error) {
	var expires sql.NullInt64
	if !rec.ExpiresAt.IsZero() {
		expires = sql.NullInt64{Int64: rec.ExpiresAt.UnixMilli(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO punishments
    (player_id, type_id, issuer_uuid, reason, created_at, expires_at, active, extra_data, exclusive)
SELECT ?, id, ?, ?, ?, ?, ?, ?, ? FROM punishment_types WHERE name = ?`,
		rec.PlayerID, nullString(rec.IssuerUUID), nullString(rec.Reason), rec.CreatedAt.UnixMilli(), expires,
		rec.Active, nullString(rec.ExtraData), rec.Type.Exclusive(), rec.Type.String(),
	)
	if err != nil {
		if isConstraintError(err) {
			return 0, fmt.Errorf("insert %s punishment: %w", rec.Type, ErrDuplicateActive)
		}
		return 0, fmt.Errorf("insert %s punishment: %w", rec.Type, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("insert %s punishment: %w", rec.Type, ErrUnknownType)
	}
	return res.LastInsertId()
}

// CreatePunishment inserts rec and returns it with its row id set.
func (s *Store) CreatePunishment(ctx context.Context, rec Record) (Record, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	id, err := s.InsertPunishment(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	rec.ID = id
	return rec, nil
}

// Punishments returns the punishments matching f, newest first.
func (s *Store) Punishments(ctx context.Context, f Filter) ([]Record, error) {
	q := s.sb.Select("p.id", "p.player_id", "t.name", "p.issuer_uuid", "p.reason", "p.created_at", "p.expires_at",
		"p.active", "p.extra_data").
		From("punishments p").
		Join("punishment_types t ON t.id = p.type_id").
		Where(sq.Eq{"p.player_id": f.PlayerID}).
		OrderBy("p.created_at DESC", "p.id DESC")
	if f.ActiveOnly {
		q = q.Where(sq.Eq{"p.active": 1})
	}
	if len(f.Types) > 0 {
		names := make([]string, 0, len(f.Types))
		for _, t := range f.Types {
			names = append(names, t.String())
		}
		q = q.Where(sq.Eq{"t.name": names})
	}
	if !f.ExpiredAt.IsZero() {
		q = q.Where(sq.And{sq.Gt{"p.expires_at": 0}, sq.LtOrEq{"p.expires_at": f.ExpiredAt.UnixMilli()}})
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build punishments query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query punishments: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec     Record
			typ     string
			issuer  sql.NullString
			reason  sql.NullString
			created int64
			expires sql.NullInt64
			extra   sql.NullString
		)
		if err = rows.Scan(&rec.ID, &rec.PlayerID, &typ, &issuer, &reason, &created, &expires, &rec.Active, &extra); err != nil {
			return nil, fmt.Errorf("scan punishment: %w", err)
		}
		rec.Type = punishment.Type(typ)
		rec.IssuerUUID = issuer.String
		rec.Reason = reason.String
		rec.CreatedAt = time.UnixMilli(created)
		if expires.Valid && expires.Int64 > 0 {
			rec.ExpiresAt = time.UnixMilli(expires.Int64)
		}
		rec.ExtraData = extra.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PunishmentsForPlayer returns every punishment of a player, newest first.
func (s *Store) PunishmentsForPlayer(ctx context.Context, playerID int64, activeOnly bool) ([]Record, error) {
	return s.Punishments(ctx, Filter{PlayerID: playerID, ActiveOnly: activeOnly})
}

// ActivePunishments returns the active punishments of a player.
func (s *Store) ActivePunishments(ctx context.Context, playerID int64) ([]Record, error) {
	return s.Punishments(ctx, Filter{PlayerID: playerID, ActiveOnly: true})
}

// ActivePunishmentsByType returns the active punishments of a given type of a player.
func (s *Store) ActivePunishmentsByType(ctx context.Context, playerID int64, t punishment.Type) ([]Record, error) {
	return s.Punishments(ctx, Filter{PlayerID: playerID, ActiveOnly: true, Types: []punishment.Type{t}})
}

// DueExpirations returns the active timed punishments of a player that expired at or before now.
func (s *Store) DueExpirations(ctx context.Context, playerID int64, now time.Time) ([]Record, error) {
	return s.Punishments(ctx, Filter{PlayerID: playerID, ActiveOnly: true, ExpiredAt: now})
}

// DeactivatePunishment marks a single punishment inactive.
func (s *Store) DeactivatePunishment(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE punishments SET active = 0 WHERE id = ?", id); err != nil {
		return fmt.Errorf("deactivate punishment %d: %w", id, err)
	}
	return nil
}

// DeactivatePunishmentsByType marks every active punishment of a type of a player inactive and returns the
// number of punishments that were deactivated.
func (s *Store) DeactivatePunishmentsByType(ctx context.Context, playerID int64, t punishment.Type) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE punishments SET active = 0
WHERE player_id = ? AND active = 1 AND type_id = (SELECT id FROM punishment_types WHERE name = ?)`,
		playerID, t.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate %s punishments of player %d: %w", t, playerID, err)
	}
	return res.RowsAffected()
}
