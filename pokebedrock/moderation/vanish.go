package moderation

import (
	"context"

	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

// ToggleVanish hides or shows target from every player that may not see vanished staff. It returns whether the
// target is vanished afterwards.
func (s *Service) ToggleVanish(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) (bool, error) {
	if online, err := s.online(ctx, target.UUID); err != nil {
		return false, err
	} else if !online {
		return false, ErrOffline
	}

	vanished := s.session.ToggleVanish(target.UUID)
	err := s.exec(ctx, func(w World) {
		p, ok := w.Player(target.UUID)
		if !ok {
			return
		}
		for _, viewer := range w.Players() {
			if viewer.UUID() == p.UUID() {
				continue
			}
			p.SetVisible(viewer, !vanished || s.perms.HasPermission(viewer.UUID(), PermissionVanishSee))
		}
		if vanished {
			p.Message(text.Colourf("<grey>You are now vanished.</grey>"))
		} else {
			p.Message(text.Colourf("<grey>You are no longer vanished.</grey>"))
		}
	})
	if err != nil {
		return vanished, err
	}

	verb := "unvanished"
	if vanished {
		verb = "vanished"
	}
	s.log.Info("vanish toggled", "actor", ec.IssuerName, "target", target.Display(), "action", verb)
	return vanished, nil
}

// hideVanished hides every vanished player from joiner unless they may see vanished staff. It must be called on
// the main thread.
func (s *Service) hideVanished(w World, joiner Player) {
	if s.perms.HasPermission(joiner.UUID(), PermissionVanishSee) {
		return
	}
	for _, id := range s.session.VanishedPlayers() {
		if p, ok := w.Player(id); ok && id != joiner.UUID() {
			p.SetVisible(joiner, false)
		}
	}
}
