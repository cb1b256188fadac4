package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/storage"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/util"
)

// Mute permanently mutes target.
func (s *Service) Mute(ctx context.Context, target punishment.Target, reason string, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	return s.mute(ctx, target, reason, 0, ec)
}

// TempMute mutes target for d.
func (s *Service) TempMute(ctx context.Context, target punishment.Target, reason string, d time.Duration, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	if d <= 0 {
		return punishment.Punishment{}, s.reject(punishment.Mute, ErrInvalidDuration)
	}
	return s.mute(ctx, target, reason, d, ec)
}

// mute ...
func (s *Service) mute(ctx context.Context, target punishment.Target, reason string, d time.Duration, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	if s.perms.HasPermission(target.UUID, PermissionBypass) {
		return punishment.Punishment{}, s.reject(punishment.Mute, ErrBypass)
	}
	unlock := s.lock(target.UUID)
	defer unlock()

	pl, err := s.player(ctx, &target)
	if err != nil {
		return punishment.Punishment{}, err
	}
	if err = s.expireStale(ctx, target, pl.ID, punishment.Mute); err != nil {
		return punishment.Punishment{}, err
	}
	if active, err := s.hasActive(ctx, pl.ID, punishment.Mute); err != nil {
		return punishment.Punishment{}, err
	} else if active {
		return punishment.Punishment{}, s.reject(punishment.Mute, ErrAlreadyActive)
	}

	p, err := s.preApply(ctx, punishment.New(punishment.Mute, target, ec, reason, d))
	if err != nil {
		return punishment.Punishment{}, err
	}
	if p, err = s.persist(ctx, pl.ID, p, true); err != nil {
		return punishment.Punishment{}, err
	}

	notice := "You have been permanently muted."
	verb := "muted"
	if !p.Permanent() {
		notice = fmt.Sprintf("You have been muted for %s.", util.FormatDuration(p.Duration))
		verb = fmt.Sprintf("temporarily muted (%s)", util.FormatDuration(p.Duration))
	}
	err = s.exec(ctx, func(w World) {
		if online, ok := w.Player(target.UUID); ok {
			online.Message(text.Colourf("<red>%s</red>", notice))
		}
		s.applied(w, p, verb)
	})
	return p, err
}

// Unmute lifts the mute of target.
func (s *Service) Unmute(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) error {
	unlock := s.lock(target.UUID)
	defer unlock()

	pl, err := s.player(ctx, &target)
	if err != nil {
		return err
	}
	p := s.cached(target, punishment.Mute, ec)
	if recs, err := s.store.ActivePunishmentsByType(ctx, pl.ID, punishment.Mute); err != nil {
		return s.fail("load active mutes", err)
	} else if len(recs) > 0 {
		p = fromRecord(recs[0], target)
	}

	n, err := s.store.DeactivatePunishmentsByType(ctx, pl.ID, punishment.Mute)
	if err != nil {
		return s.fail("deactivate mutes", err)
	}
	if n == 0 {
		return s.reject(punishment.Mute, ErrNotActive)
	}

	return s.exec(ctx, func(w World) {
		s.expired(w, p, ec, "unmuted")
		if online, ok := w.Player(target.UUID); ok {
			online.Message(text.Colourf("<green>You have been unmuted.</green>"))
		}
	})
}

// ExpireIfDue expires the punishments of type t of a player that have run out. It returns true if anything
// expired. Chat gating calls it once the cached mute of a player has passed its expiry.
func (s *Service) ExpireIfDue(ctx context.Context, target punishment.Target, t punishment.Type) (bool, error) {
	unlock := s.lock(target.UUID)
	defer unlock()

	pl, err := s.player(ctx, &target)
	if err != nil {
		return false, err
	}
	due, err := s.store.Punishments(ctx, storage.Filter{
		PlayerID:   pl.ID,
		ActiveOnly: true,
		Types:      []punishment.Type{t},
		ExpiredAt:  time.Now(),
	})
	if err != nil {
		return false, s.fail("load due expirations", err)
	}
	if len(due) > 0 {
		return true, s.expireStale(ctx, target, pl.ID, t)
	}

	// The row may already be inactive while the cache still holds the punishment.
	if p, ok := s.cache.Active(target.UUID, t); ok && p.Expired(time.Now()) {
		return true, s.exec(ctx, func(w World) {
			s.expired(w, p, punishment.Console(), "")
		})
	}
	return false, nil
}

// MuteNotice returns the message shown to a muted player trying to chat.
func MuteNotice(p punishment.Punishment, now time.Time) string {
	if p.Permanent() {
		return fmt.Sprintf("You are permanently muted. Reason: %s", p.Reason)
	}
	return fmt.Sprintf("You are muted for %s. Reason: %s", util.FormatDuration(p.Remaining(now)), p.Reason)
}
