package moderation

import (
	"context"

	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/containment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/event"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

// Freeze pins an online target in place until unfrozen. Freezes are live only and are never stored.
func (s *Service) Freeze(ctx context.Context, target punishment.Target, reason string, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	if s.perms.HasPermission(target.UUID, PermissionFreezeBypass) {
		return punishment.Punishment{}, s.reject(punishment.Freeze, ErrBypass)
	}
	if online, err := s.online(ctx, target.UUID); err != nil {
		return punishment.Punishment{}, err
	} else if !online {
		return punishment.Punishment{}, s.reject(punishment.Freeze, ErrOffline)
	}

	unlock := s.lock(target.UUID)
	defer unlock()

	if _, ok := s.markers.Frozen(target.UUID); ok {
		return punishment.Punishment{}, s.reject(punishment.Freeze, ErrAlreadyActive)
	}
	staff := &event.StaffFreeze{StaffAction: event.NewStaffAction(ec.Issuer, target.UUID, ec.Source)}
	if err := s.staffAction(ctx, staff); err != nil {
		return punishment.Punishment{}, s.reject(punishment.Freeze, err)
	}
	p, err := s.preApply(ctx, punishment.New(punishment.Freeze, target, ec, reason, 0))
	if err != nil {
		return punishment.Punishment{}, err
	}

	var result error
	err = s.exec(ctx, func(w World) {
		online, ok := w.Player(target.UUID)
		if !ok {
			result = ErrOffline
			return
		}
		if !s.markers.Freeze(target.UUID, containment.Frozen{Origin: online.Location().Position}) {
			result = ErrAlreadyActive
			return
		}
		if p.TargetName == "" {
			p.TargetName = online.Name()
		}
		online.Message(text.Colourf("<red>You have been frozen by staff. Do not log out.</red>"))
		s.applied(w, p, "froze")
	})
	if err != nil {
		return punishment.Punishment{}, err
	}
	if result != nil {
		return punishment.Punishment{}, s.reject(punishment.Freeze, result)
	}
	return p, nil
}

// Unfreeze releases a frozen target.
func (s *Service) Unfreeze(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) error {
	staff := &event.StaffUnfreeze{StaffAction: event.NewStaffAction(ec.Issuer, target.UUID, ec.Source)}
	if err := s.staffAction(ctx, staff); err != nil {
		return s.reject(punishment.Freeze, err)
	}

	unlock := s.lock(target.UUID)
	defer unlock()

	if !s.markers.Unfreeze(target.UUID) {
		return s.reject(punishment.Freeze, ErrNotActive)
	}
	p := s.cached(target, punishment.Freeze, ec)
	return s.exec(ctx, func(w World) {
		if online, ok := w.Player(target.UUID); ok {
			online.Message(text.Colourf("<green>You have been unfrozen.</green>"))
		}
		s.expired(w, p, ec, "unfroze")
	})
}
