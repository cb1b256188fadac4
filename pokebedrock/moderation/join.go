package moderation

import (
	"context"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

// HandleJoin prepares the moderation state of a player that just joined: stale punishments are expired, the
// state cache is warmed and active jails are enforced again.
func (s *Service) HandleJoin(ctx context.Context, target punishment.Target) error {
	unlock := s.lock(target.UUID)
	defer unlock()

	pl, err := s.store.GetOrCreatePlayer(ctx, target.UUID, target.Name)
	if err != nil {
		return s.fail("record joining player", err)
	}
	if err = s.expireStale(ctx, target, pl.ID); err != nil {
		return err
	}
	if err = s.cache.Warm(ctx, target.UUID); err != nil {
		return s.fail("warm moderation state", err)
	}

	recs, err := s.store.ActivePunishmentsByType(ctx, pl.ID, punishment.Jail)
	if err != nil {
		return s.fail("load active jails", err)
	}
	jail, configured := s.jail.Jail()

	return s.exec(ctx, func(w World) {
		joiner, ok := w.Player(target.UUID)
		if !ok {
			return
		}
		s.hideVanished(w, joiner)
		if len(recs) > 0 && configured {
			s.confine(joiner, jail, recs[0].ExpiresAt)
		}
	})
}

// HandleQuit drops the live moderation state of a player that left. A freeze ends when the player logs out. It
// must be called on the main thread.
func (s *Service) HandleQuit(w World, target punishment.Target) {
	_, frozen := s.markers.Frozen(target.UUID)
	s.markers.Release(target.UUID)
	s.session.Quit(target.UUID)

	if frozen {
		console := punishment.Console()
		s.expired(w, s.cached(target, punishment.Freeze, console), console, "")
		s.notify(w, target.Display(), "logged out while", "frozen", "", false)
	}
	s.cache.Evict(target.UUID)
}
