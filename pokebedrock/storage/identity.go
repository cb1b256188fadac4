package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Identity is the credential pair the server presents to the web panel.
type Identity struct {
	ServerID string
	Secret   string
	Claimed  bool
}

// ServerIdentity returns the identity of this server, generating and storing one on first use.
func (s *Store) ServerIdentity(ctx context.Context) (Identity, error) {
	id, err := s.readIdentity(ctx)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Identity{}, err
	}

	secret, err := randomString(32, base64.StdEncoding)
	if err != nil {
		return Identity{}, err
	}
	if _, err = s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO server_identity (id, server_id, server_secret) VALUES (1, ?, ?)",
		uuid.NewString(), secret,
	); err != nil {
		return Identity{}, fmt.Errorf("store server identity: %w", err)
	}
	s.log.Info("generated new server identity")
	return s.readIdentity(ctx)
}

// ClaimToken returns the one-time token used to claim this server on the web panel, generating one if
// needed. The second return value is false once the server has been claimed.
func (s *Store) ClaimToken(ctx context.Context) (string, bool, error) {
	if _, err := s.ServerIdentity(ctx); err != nil {
		return "", false, err
	}

	var (
		claimed bool
		token   sql.NullString
	)
	if err := s.db.QueryRowContext(ctx, "SELECT is_claimed, claim_token FROM server_identity WHERE id = 1").Scan(&claimed, &token); err != nil {
		return "", false, fmt.Errorf("read claim token: %w", err)
	}
	if claimed {
		return "", false, nil
	}
	if token.Valid && token.String != "" {
		return token.String, true, nil
	}

	generated, err := randomString(16, base64.RawURLEncoding)
	if err != nil {
		return "", false, err
	}
	if _, err = s.db.ExecContext(ctx, "UPDATE server_identity SET claim_token = ? WHERE id = 1", generated); err != nil {
		return "", false, fmt.Errorf("store claim token: %w", err)
	}
	return generated, true, nil
}

// CompleteClaim marks the server claimed if token matches the stored claim token.
func (s *Store) CompleteClaim(ctx context.Context, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE server_identity SET is_claimed = 1, claim_token = NULL WHERE id = 1 AND is_claimed = 0 AND claim_token = ?",
		token,
	)
	if err != nil {
		return false, fmt.Errorf("complete claim: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// readIdentity ...
func (s *Store) readIdentity(ctx context.Context) (Identity, error) {
	var id Identity
	err := s.db.QueryRowContext(ctx, "SELECT server_id, server_secret, is_claimed FROM server_identity WHERE id = 1").
		Scan(&id.ServerID, &id.Secret, &id.Claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, fmt.Errorf("read server identity: %w", err)
	}
	return id, nil
}

// randomString ...
func randomString(n int, enc *base64.Encoding) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return enc.EncodeToString(b), nil
}
