// Package handler provides the player and inventory handlers enforcing moderation state on online players.
package handler

import (
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/item/inventory"
	"github.com/google/uuid"
)

// InventoryHandler locks the inventory of a player while they are frozen or jailed.
type InventoryHandler struct {
	inventory.NopHandler

	contained func(id uuid.UUID) bool
	id        uuid.UUID
}

// HandleTake ...
func (i InventoryHandler) HandleTake(ctx *inventory.Context, _ int, _ item.Stack) {
	if i.contained(i.id) {
		ctx.Cancel()
	}
}

// HandlePlace ...
func (i InventoryHandler) HandlePlace(ctx *inventory.Context, _ int, _ item.Stack) {
	if i.contained(i.id) {
		ctx.Cancel()
	}
}

// HandleDrop ...
func (i InventoryHandler) HandleDrop(ctx *inventory.Context, _ int, _ item.Stack) {
	if i.contained(i.id) {
		ctx.Cancel()
	}
}
