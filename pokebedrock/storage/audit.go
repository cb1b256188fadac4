package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// AuditEntry is a stored audit record.
type AuditEntry struct {
	ID        int64             `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Actor     string            `json:"actor"`
	Action    string            `json:"action"`
	Target    string            `json:"target,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// InsertAudit stores an audit entry and returns its row id.
func (s *Store) InsertAudit(ctx context.Context, e AuditEntry) (int64, error) {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return 0, fmt.Errorf("encode audit metadata: %w", err)
	}
	if e.Metadata == nil {
		meta = []byte("{}")
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_log (created_at, actor_uuid, action, target_uuid, metadata) VALUES (?, ?, ?, ?, ?)",
		e.CreatedAt.UnixMilli(), e.Actor, e.Action, nullString(e.Target), string(meta),
	)
	if err != nil {
		return 0, fmt.Errorf("insert audit entry %s: %w", e.Action, err)
	}
	return res.LastInsertId()
}

// RecentAudit returns the latest audit entries, newest first.
func (s *Store) RecentAudit(ctx context.Context, limit uint64) ([]AuditEntry, error) {
	return s.audit(ctx, nil, limit)
}

// AuditForTarget returns the latest audit entries concerning a target, newest first.
func (s *Store) AuditForTarget(ctx context.Context, target string, limit uint64) ([]AuditEntry, error) {
	return s.audit(ctx, sq.Eq{"target_uuid": target}, limit)
}

// audit ...
func (s *Store) audit(ctx context.Context, where sq.Sqlizer, limit uint64) ([]AuditEntry, error) {
	q := s.sb.Select("id", "created_at", "actor_uuid", "action", "target_uuid", "metadata").
		From("audit_log").
		OrderBy("created_at DESC", "id DESC")
	if where != nil {
		q = q.Where(where)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			e       AuditEntry
			created int64
			target  sql.NullString
			meta    string
		)
		if err = rows.Scan(&e.ID, &created, &e.Actor, &e.Action, &target, &meta); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created)
		e.Target = target.String
		if err = json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode audit metadata of entry %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
