package moderation

import (
	"context"
	"fmt"

	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

// Kick disconnects target and records the kick.
func (s *Service) Kick(ctx context.Context, target punishment.Target, reason string, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	if s.perms.HasPermission(target.UUID, PermissionBypass) {
		return punishment.Punishment{}, s.reject(punishment.Kick, ErrBypass)
	}
	if online, err := s.online(ctx, target.UUID); err != nil {
		return punishment.Punishment{}, err
	} else if !online {
		return punishment.Punishment{}, s.reject(punishment.Kick, ErrOffline)
	}

	unlock := s.lock(target.UUID)
	defer unlock()

	pl, err := s.player(ctx, &target)
	if err != nil {
		return punishment.Punishment{}, err
	}
	p, err := s.preApply(ctx, punishment.New(punishment.Kick, target, ec, reason, 0))
	if err != nil {
		return punishment.Punishment{}, err
	}
	if p, err = s.persist(ctx, pl.ID, p, false); err != nil {
		return punishment.Punishment{}, err
	}

	msg := fmt.Sprintf("You have been kicked.\nReason: %s", p.Reason)
	err = s.exec(ctx, func(w World) {
		if online, ok := w.Player(target.UUID); ok {
			online.Disconnect(msg)
		}
		s.applied(w, p, "kicked")
	})
	return p, err
}

// Warn records a warning against target and tells them about it if they are online.
func (s *Service) Warn(ctx context.Context, target punishment.Target, reason string, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	unlock := s.lock(target.UUID)
	defer unlock()

	pl, err := s.player(ctx, &target)
	if err != nil {
		return punishment.Punishment{}, err
	}
	p, err := s.preApply(ctx, punishment.New(punishment.Warn, target, ec, reason, 0))
	if err != nil {
		return punishment.Punishment{}, err
	}
	if p, err = s.persist(ctx, pl.ID, p, true); err != nil {
		return punishment.Punishment{}, err
	}

	err = s.exec(ctx, func(w World) {
		if online, ok := w.Player(target.UUID); ok {
			online.Message(text.Colourf("<yellow>You have been warned. Reason: %s</yellow>", p.Reason))
		}
		s.applied(w, p, "warned")
	})
	return p, err
}
