package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/util"
)

// Ban permanently bans target.
func (s *Service) Ban(ctx context.Context, target punishment.Target, reason string, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	return s.ban(ctx, target, reason, 0, ec)
}

// TempBan bans target for d.
func (s *Service) TempBan(ctx context.Context, target punishment.Target, reason string, d time.Duration, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	if d <= 0 {
		return punishment.Punishment{}, s.reject(punishment.Ban, ErrInvalidDuration)
	}
	return s.ban(ctx, target, reason, d, ec)
}

// ban ...
func (s *Service) ban(ctx context.Context, target punishment.Target, reason string, d time.Duration, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	if s.perms.HasPermission(target.UUID, PermissionBypass) {
		return punishment.Punishment{}, s.reject(punishment.Ban, ErrBypass)
	}
	unlock := s.lock(target.UUID)
	defer unlock()

	pl, err := s.player(ctx, &target)
	if err != nil {
		return punishment.Punishment{}, err
	}
	if err = s.expireStale(ctx, target, pl.ID, punishment.Ban); err != nil {
		return punishment.Punishment{}, err
	}
	if active, err := s.hasActive(ctx, pl.ID, punishment.Ban); err != nil {
		return punishment.Punishment{}, err
	} else if active {
		return punishment.Punishment{}, s.reject(punishment.Ban, ErrAlreadyActive)
	}

	p, err := s.preApply(ctx, punishment.New(punishment.Ban, target, ec, reason, d))
	if err != nil {
		return punishment.Punishment{}, err
	}

	if !s.bans.Has(target.UUID) {
		err = s.bans.Add(BanEntry{
			UUID:    target.UUID,
			Name:    target.Name,
			Reason:  p.Reason,
			Source:  p.ActorName,
			Expires: p.ExpiresAt(),
		})
		if err != nil {
			return punishment.Punishment{}, s.fail("add ban list entry", err)
		}
	}
	if p, err = s.persist(ctx, pl.ID, p, true); err != nil {
		return punishment.Punishment{}, err
	}

	msg := BanMessage(p.Reason, p.Duration)
	verb := "banned"
	if !p.Permanent() {
		verb = fmt.Sprintf("temporarily banned (%s)", util.FormatDuration(p.Duration))
	}
	err = s.exec(ctx, func(w World) {
		if online, ok := w.Player(target.UUID); ok {
			online.Disconnect(msg)
		}
		s.applied(w, p, verb)
	})
	return p, err
}

// Unban lifts the ban of target from storage and the ban list.
func (s *Service) Unban(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) error {
	unlock := s.lock(target.UUID)
	defer unlock()

	pl, err := s.player(ctx, &target)
	if err != nil {
		return err
	}
	p := s.cached(target, punishment.Ban, ec)
	if recs, err := s.store.ActivePunishmentsByType(ctx, pl.ID, punishment.Ban); err != nil {
		return s.fail("load active bans", err)
	} else if len(recs) > 0 {
		p = fromRecord(recs[0], target)
	}

	n, err := s.store.DeactivatePunishmentsByType(ctx, pl.ID, punishment.Ban)
	if err != nil {
		return s.fail("deactivate bans", err)
	}
	listed, err := s.bans.Remove(target.UUID)
	if err != nil {
		return s.fail("remove ban list entry", err)
	}
	if n == 0 && !listed {
		return s.reject(punishment.Ban, ErrNotActive)
	}

	return s.exec(ctx, func(w World) {
		s.expired(w, p, ec, "unbanned")
	})
}

// CheckLogin records a connecting player and reports whether they may join. If not, the returned message
// explains why.
func (s *Service) CheckLogin(ctx context.Context, target punishment.Target) (string, bool) {
	pl, err := s.store.GetOrCreatePlayer(ctx, target.UUID, target.Name)
	if err != nil {
		_ = s.fail("record connecting player", err)
		return LoginErrorMessage, false
	}
	if err = s.expireStale(ctx, target, pl.ID); err != nil {
		return LoginErrorMessage, false
	}
	if err = s.cache.Warm(ctx, target.UUID); err != nil {
		_ = s.fail("warm moderation state", err)
		return LoginErrorMessage, false
	}

	recs, err := s.store.ActivePunishmentsByType(ctx, pl.ID, punishment.Ban)
	if err != nil {
		_ = s.fail("load active bans", err)
		return LoginErrorMessage, false
	}
	if len(recs) == 0 {
		return "", true
	}
	rec := recs[0]
	if rec.Permanent() {
		return BanMessage(rec.Reason, 0), false
	}
	return BanMessage(rec.Reason, max(time.Until(rec.ExpiresAt), time.Second)), false
}

// LoginErrorMessage is shown to connecting players whose punishments could not be loaded.
const LoginErrorMessage = "There was an error whilst loading your punishments. Please try relogging and contact support if the issue persists."

// BanMessage returns the message shown to a player banned for d. A zero duration is a permanent ban.
func BanMessage(reason string, d time.Duration) string {
	if d <= 0 {
		return fmt.Sprintf("You are permanently banned.\nReason: %s", reason)
	}
	return fmt.Sprintf("You are banned for %s.\nReason: %s", util.FormatDuration(d), reason)
}
