package handler

import (
	"context"
	"errors"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/rank"
)

// RoleSource fetches the external roles linked to an Xbox account.
type RoleSource interface {
	RolesOfXUID(ctx context.Context, xuid string) ([]string, error)
}

// loadRank fetches the roles of a player and stores the rank they grant. Players whose roles cannot be fetched
// keep the lowest rank and are told why.
func (h *PlayerHandler) loadRank(ctx context.Context, id uuid.UUID, xuid string, handle *world.EntityHandle) {
	if h.d.Roles == nil {
		return
	}
	roles, err := h.d.Roles.RolesOfXUID(ctx, xuid)
	if err != nil {
		if !errors.Is(err, rank.ErrUserNotFound) {
			h.d.Log.Warn("failed to fetch roles", "xuid", xuid, "error", err)
		}
		msg := rank.RolesError(err)
		handle.ExecWorld(func(_ *world.Tx, e world.Entity) {
			e.(*player.Player).Message(text.Colourf("<red>%s</red>", msg))
		})
		return
	}

	r := h.d.RoleMap.Highest(roles)
	h.d.Permissions.Set(id, r)
	if r >= rank.Helper {
		h.d.Log.Info("staff member joined", "player", id, "rank", r.Name())
	}
}
