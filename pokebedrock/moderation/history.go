package moderation

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/storage"
)

// History returns every punishment of a player, newest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]storage.Record, error) {
	pl, err := s.store.PlayerByUUID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("load player", err)
	}
	recs, err := s.store.PunishmentsForPlayer(ctx, pl.ID, false)
	if err != nil {
		return nil, s.fail("load history", err)
	}
	return recs, nil
}

// Notes returns the staff notes left on a player, newest first.
func (s *Service) Notes(ctx context.Context, id uuid.UUID) ([]storage.Note, error) {
	pl, err := s.store.PlayerByUUID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("load player", err)
	}
	notes, err := s.store.Notes(ctx, pl.ID)
	if err != nil {
		return nil, s.fail("load notes", err)
	}
	return notes, nil
}

// AddNote leaves a staff note on target.
func (s *Service) AddNote(ctx context.Context, target punishment.Target, message string, ec punishment.ExecutionContext) error {
	pl, err := s.player(ctx, &target)
	if err != nil {
		return err
	}
	if _, err = s.store.CreateNote(ctx, pl.ID, ec.Issuer.String(), message); err != nil {
		return s.fail("create note", err)
	}
	s.log.Info("staff note added", "actor", ec.IssuerName, "target", target.Display())
	return nil
}

// ResolveTarget resolves a player name to a target. Online players are matched first, then the last known names
// of stored players. Names are compared case-insensitively.
func (s *Service) ResolveTarget(ctx context.Context, name string) (punishment.Target, error) {
	var (
		target punishment.Target
		found  bool
	)
	err := s.exec(ctx, func(w World) {
		for _, p := range w.Players() {
			if strings.EqualFold(p.Name(), name) {
				target, found = punishment.Target{UUID: p.UUID(), Name: p.Name()}, true
				return
			}
		}
	})
	if err != nil || found {
		return target, err
	}

	pl, err := s.store.PlayerByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return punishment.Target{}, ErrUnknownPlayer
	}
	if err != nil {
		return punishment.Target{}, s.fail("resolve player", err)
	}
	return punishment.Target{UUID: pl.UUID, Name: pl.Username}, nil
}

// Seen returns the stored record of the player last known under name.
func (s *Service) Seen(ctx context.Context, name string) (storage.Player, error) {
	pl, err := s.store.PlayerByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Player{}, ErrUnknownPlayer
	}
	if err != nil {
		return storage.Player{}, s.fail("load player", err)
	}
	return pl, nil
}

// Flush checkpoints the store to disk.
func (s *Service) Flush(ctx context.Context) error {
	if err := s.store.Flush(ctx); err != nil {
		return s.fail("flush store", err)
	}
	return nil
}

// Loader loads the active punishments of players from the store for the state cache.
type Loader struct {
	Store *storage.Store
}

// ActivePunishments ...
func (l Loader) ActivePunishments(ctx context.Context, id uuid.UUID) ([]punishment.Punishment, error) {
	pl, err := l.Store.PlayerByUUID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	recs, err := l.Store.ActivePunishments(ctx, pl.ID)
	if err != nil {
		return nil, err
	}
	target := punishment.Target{UUID: pl.UUID, Name: pl.Username}
	out := make([]punishment.Punishment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec, target))
	}
	return out, nil
}

// IssuerName returns the last known name of the issuer stored with a punishment or note.
func (s *Service) IssuerName(ctx context.Context, issuer string) string {
	id, err := uuid.Parse(issuer)
	if err != nil || id == punishment.ConsoleUUID {
		return punishment.Console().IssuerName
	}
	pl, err := s.store.PlayerByUUID(ctx, id)
	if err != nil {
		return issuer
	}
	return pl.Username
}
