package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/chat"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/containment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/host"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/locale"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/moderation"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/rank"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/session"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/worker"
)

// joinTimeout bounds the moderation work done for a joining player.
const joinTimeout = 15 * time.Second

// Deps holds everything the player handler needs. It is shared between the handlers of every player.
type Deps struct {
	Log         *slog.Logger
	Host        *host.Host
	Service     *moderation.Service
	Markers     *containment.Registry
	Session     *session.Session
	Pool        *worker.Pool
	Locale      *locale.Translator
	Permissions *rank.Permissions
	// Roles may be nil, in which case every player keeps the default rank.
	Roles   RoleSource
	RoleMap rank.Roles
}

// PlayerHandler ...
type PlayerHandler struct {
	player.NopHandler

	d *Deps
}

// NewPlayerHandler ...
func NewPlayerHandler(d *Deps) *PlayerHandler {
	return &PlayerHandler{d: d}
}

// HandleJoin loads the rank, moderation state and language of a player that joined. The work is done off the
// world goroutine; active jails and vanished staff are applied once it completes.
func (h *PlayerHandler) HandleJoin(p *player.Player) {
	h.d.Host.Track(p)
	p.Inventory().Handle(InventoryHandler{contained: h.contained, id: p.UUID()})

	target := punishment.Target{UUID: p.UUID(), Name: p.Name()}
	xuid, handle := p.XUID(), p.H()
	h.d.Pool.Submit(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, joinTimeout)
		defer cancel()

		h.loadRank(ctx, target.UUID, xuid, handle)
		if err := h.d.Service.HandleJoin(ctx, target); err != nil {
			h.d.Log.Error("failed to prepare joining player", "player", target.Name, "error", err)
		}
		if err := h.d.Locale.Load(ctx, target.UUID); err != nil {
			h.d.Log.Warn("failed to load player language", "player", target.Name, "error", err)
		}
	})
}

// HandleChat ...
func (h *PlayerHandler) HandleChat(ctx *player.Context, message *string) {
	ctx.Cancel()
	p := ctx.Val()
	tx := p.Tx()

	sender := h.d.Host.Adapt(tx, p)
	decision := h.d.Service.GateChat(h.d.Host.Wrap(tx), sender, *message)
	if decision.ExpireMute {
		target := sender.Target()
		h.d.Pool.Submit(func(ctx context.Context) {
			if _, err := h.d.Service.ExpireIfDue(ctx, target, punishment.Mute); err != nil {
				h.d.Log.Error("failed to expire mute", "player", target.Name, "error", err)
			}
		})
	}
	if !decision.Allow {
		return
	}
	r := h.d.Permissions.Rank(p.UUID())
	_, _ = chat.Global.WriteString(r.FormatName(p.Name()) + text.Colourf("<white>: %s</white>", *message))
}

// HandleMove ...
func (h *PlayerHandler) HandleMove(ctx *player.Context, newPos mgl64.Vec3, _ cube.Rotation) {
	id := ctx.Val().UUID()
	switch confine(h.d.Markers, id, newPos) {
	case moveHeld:
		ctx.Cancel()
		h.d.Session.Movement(id).Hold()
	case moveRefused:
		ctx.Cancel()
	}
}

// HandleQuit ...
func (h *PlayerHandler) HandleQuit(p *player.Player) {
	id := p.UUID()
	h.d.Service.HandleQuit(h.d.Host.Wrap(p.Tx()), punishment.Target{UUID: id, Name: p.Name()})
	h.d.Host.Forget(id)
	h.d.Permissions.Forget(id)
	h.d.Locale.Forget(id)
}

// contained reports whether a player is frozen or jailed.
func (h *PlayerHandler) contained(id uuid.UUID) bool {
	if _, ok := h.d.Markers.Frozen(id); ok {
		return true
	}
	_, ok := h.d.Markers.Jailed(id)
	return ok
}

// cancelContained cancels ctx if its player is frozen or jailed.
func (h *PlayerHandler) cancelContained(ctx *player.Context) {
	if h.contained(ctx.Val().UUID()) {
		ctx.Cancel()
	}
}

// HandleFoodLoss ...
func (h *PlayerHandler) HandleFoodLoss(ctx *player.Context, _ int, _ *int) {
	h.cancelContained(ctx)
}

// HandleHurt ...
func (h *PlayerHandler) HandleHurt(ctx *player.Context, _ *float64, _ bool, _ *time.Duration, _ world.DamageSource) {
	h.cancelContained(ctx)
}

// HandleBlockPlace ...
func (h *PlayerHandler) HandleBlockPlace(ctx *player.Context, _ cube.Pos, _ world.Block) {
	h.cancelContained(ctx)
}

// HandleBlockBreak ...
func (h *PlayerHandler) HandleBlockBreak(ctx *player.Context, _ cube.Pos, _ *[]item.Stack, _ *int) {
	h.cancelContained(ctx)
}

// HandleItemUse ...
func (h *PlayerHandler) HandleItemUse(ctx *player.Context) {
	h.cancelContained(ctx)
}

// HandleItemUseOnBlock ...
func (h *PlayerHandler) HandleItemUseOnBlock(ctx *player.Context, _ cube.Pos, _ cube.Face, _ mgl64.Vec3) {
	h.cancelContained(ctx)
}

// HandleAttackEntity ...
func (h *PlayerHandler) HandleAttackEntity(ctx *player.Context, _ world.Entity, _, _ *float64, _ *bool) {
	h.cancelContained(ctx)
}

// HandleItemDrop ...
func (h *PlayerHandler) HandleItemDrop(ctx *player.Context, _ item.Stack) {
	h.cancelContained(ctx)
}

// move is the outcome of a movement of a contained player.
type move int

const (
	moveAllowed move = iota
	// moveHeld is a movement of a frozen player. It is refused and counted as held back input.
	moveHeld
	// moveRefused is a movement that would take a jailed player out of the jail.
	moveRefused
)

// confine decides what happens to a player moving to pos.
func confine(markers *containment.Registry, id uuid.UUID, pos mgl64.Vec3) move {
	if _, ok := markers.Frozen(id); ok {
		return moveHeld
	}
	if j, ok := markers.Jailed(id); ok && pos.Sub(j.Origin).Len() > j.Radius {
		return moveRefused
	}
	return moveAllowed
}
