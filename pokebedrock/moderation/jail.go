package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/containment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/event"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/util"
)

// DefaultJailReason is used for jails issued without a reason.
const DefaultJailReason = "Jailed by staff"

// Jail sends target to the configured jail for d, or until released if d is zero. The location of an online
// target is stored so that they can be returned there once released.
func (s *Service) Jail(ctx context.Context, target punishment.Target, reason string, d time.Duration, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	jail, ok := s.jail.Jail()
	if !ok {
		return punishment.Punishment{}, s.reject(punishment.Jail, ErrNoJail)
	}
	if d < 0 {
		return punishment.Punishment{}, s.reject(punishment.Jail, ErrInvalidDuration)
	}
	if s.perms.HasPermission(target.UUID, PermissionJailBypass) {
		return punishment.Punishment{}, s.reject(punishment.Jail, ErrBypass)
	}
	if reason == "" {
		reason = DefaultJailReason
	}

	unlock := s.lock(target.UUID)
	defer unlock()

	pl, err := s.player(ctx, &target)
	if err != nil {
		return punishment.Punishment{}, err
	}
	if err = s.expireStale(ctx, target, pl.ID, punishment.Jail); err != nil {
		return punishment.Punishment{}, err
	}
	if active, err := s.hasActive(ctx, pl.ID, punishment.Jail); err != nil {
		return punishment.Punishment{}, err
	} else if active {
		return punishment.Punishment{}, s.reject(punishment.Jail, ErrAlreadyActive)
	}

	staff := &event.StaffJail{
		StaffAction: event.NewStaffAction(ec.Issuer, target.UUID, ec.Source),
		Duration:    d,
		Reason:      reason,
	}
	if err = s.staffAction(ctx, staff); err != nil {
		return punishment.Punishment{}, s.reject(punishment.Jail, err)
	}
	p, err := s.preApply(ctx, punishment.New(punishment.Jail, target, ec, reason, d))
	if err != nil {
		return punishment.Punishment{}, err
	}

	if err = s.exec(ctx, func(w World) {
		if online, ok := w.Player(target.UUID); ok {
			p.Extra = online.Location().String()
		}
	}); err != nil {
		return punishment.Punishment{}, err
	}
	if p, err = s.persist(ctx, pl.ID, p, true); err != nil {
		return punishment.Punishment{}, err
	}

	verb := "jailed"
	if !p.Permanent() {
		verb = fmt.Sprintf("jailed (%s)", util.FormatDuration(p.Duration))
	}
	err = s.exec(ctx, func(w World) {
		if online, ok := w.Player(target.UUID); ok {
			s.confine(online, jail, p.ExpiresAt())
			online.Message(text.Colourf("<red>You have been jailed. Reason: %s</red>", p.Reason))
		}
		s.applied(w, p, verb)
	})
	return p, err
}

// confine teleports an online player into the jail and attaches their Jailed marker. It must be called on the
// main thread.
func (s *Service) confine(p Player, jail Jail, expires time.Time) {
	p.Teleport(jail.Position)
	s.markers.Jail(p.UUID(), containment.Jailed{
		Origin:    jail.Position,
		Radius:    jail.Radius,
		ExpiresAt: expires,
	})
}

// Unjail releases target from jail and returns them to where they were jailed if they are online.
func (s *Service) Unjail(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) error {
	staff := &event.StaffUnjail{StaffAction: event.NewStaffAction(ec.Issuer, target.UUID, ec.Source)}
	if err := s.staffAction(ctx, staff); err != nil {
		return s.reject(punishment.Jail, err)
	}

	unlock := s.lock(target.UUID)
	defer unlock()

	pl, err := s.player(ctx, &target)
	if err != nil {
		return err
	}
	p := s.cached(target, punishment.Jail, ec)
	recs, err := s.store.ActivePunishmentsByType(ctx, pl.ID, punishment.Jail)
	if err != nil {
		return s.fail("load active jails", err)
	}
	if len(recs) > 0 {
		p = fromRecord(recs[0], target)
	}

	n, err := s.store.DeactivatePunishmentsByType(ctx, pl.ID, punishment.Jail)
	if err != nil {
		return s.fail("deactivate jails", err)
	}
	_, wasFrozen := s.markers.Frozen(target.UUID)
	marked := s.markers.Release(target.UUID)
	if n == 0 && !marked {
		return s.reject(punishment.Jail, ErrNotActive)
	}

	return s.exec(ctx, func(w World) {
		if online, ok := w.Player(target.UUID); ok {
			if loc, err := punishment.ParseLocation(p.Extra); err == nil {
				online.Teleport(loc.Position)
			}
			online.Message(text.Colourf("<green>You have been released from jail.</green>"))
		}
		s.expired(w, p, ec, "unjailed")
		// Releasing the jail also drops the freeze marker.
		if wasFrozen || s.cache.Frozen(target.UUID) {
			s.expired(w, s.cached(target, punishment.Freeze, ec), ec, "")
		}
	})
}

// ExpireJail ends the jail of a player whose sentence ran out while they were online. The containment loop has
// already removed their markers.
func (s *Service) ExpireJail(ctx context.Context, id uuid.UUID) error {
	unlock := s.lock(id)
	defer unlock()

	target := punishment.Target{UUID: id}
	pl, err := s.player(ctx, &target)
	if err != nil {
		return err
	}
	recs, err := s.store.ActivePunishmentsByType(ctx, pl.ID, punishment.Jail)
	if err != nil {
		return s.fail("load active jails", err)
	}
	if len(recs) == 0 {
		return nil
	}
	p := fromRecord(recs[0], target)
	if _, err = s.store.DeactivatePunishmentsByType(ctx, pl.ID, punishment.Jail); err != nil {
		return s.fail("deactivate jails", err)
	}
	_, marked := s.markers.Frozen(id)
	frozen := !marked && s.cache.Frozen(id)

	return s.exec(ctx, func(w World) {
		if online, ok := w.Player(id); ok {
			if loc, err := punishment.ParseLocation(p.Extra); err == nil {
				online.Teleport(loc.Position)
			}
			online.Message(text.Colourf("<green>Your jail sentence has ended.</green>"))
		}
		s.expired(w, p, punishment.Console(), "")
		// The containment loop drops the freeze marker together with the jail.
		if frozen {
			s.expired(w, s.cached(target, punishment.Freeze, punishment.Console()), punishment.Console(), "")
		}
	})
}
