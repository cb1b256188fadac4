// Package host adapts the dragonfly world to the interfaces of the moderation engine.
package host

import (
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/hider"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/moderation"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

// Visibility is the bookkeeping of the players hidden from each viewer.
type Visibility = hider.Manager[world.Entity]

// Host runs moderation work on the world goroutine.
type Host struct {
	w       *world.World
	visible *Visibility
	handles *xsync.MapOf[uuid.UUID, *world.EntityHandle]
}

// New ...
func New(w *world.World) *Host {
	return &Host{
		w:       w,
		visible: hider.NewManager[world.Entity](),
		handles: xsync.NewMapOf[uuid.UUID, *world.EntityHandle](),
	}
}

// Exec ...
func (h *Host) Exec(f func(w moderation.World)) <-chan struct{} {
	return h.w.Exec(func(tx *world.Tx) {
		f(h.Wrap(tx))
	})
}

// Wrap exposes the players of tx to the moderation engine.
func (h *Host) Wrap(tx *world.Tx) World {
	return World{tx: tx, visible: h.visible, handles: h.handles}
}

// Track indexes the handle of a player that joined so that it can be looked up by uuid.
func (h *Host) Track(p *player.Player) {
	h.track(p.UUID(), p.H())
}

// track ...
func (h *Host) track(id uuid.UUID, handle *world.EntityHandle) {
	h.handles.Store(id, handle)
}

// handle ...
func (h *Host) handle(id uuid.UUID) (*world.EntityHandle, bool) {
	return h.handles.Load(id)
}

// Forget drops the handle and visibility bookkeeping of a player that left.
func (h *Host) Forget(id uuid.UUID) {
	h.handles.Delete(id)
	h.visible.HandleQuit(id)
}

// World exposes the players of a transaction.
type World struct {
	tx      *world.Tx
	visible *Visibility
	handles *xsync.MapOf[uuid.UUID, *world.EntityHandle]
}

// Lookup returns the online player with the given uuid. Players that are not in the world of the transaction
// are not found.
func (w World) Lookup(id uuid.UUID) (*player.Player, bool) {
	handle, ok := w.handles.Load(id)
	if !ok {
		return nil, false
	}
	ent, ok := handle.Entity(w.tx)
	if !ok {
		return nil, false
	}
	p, ok := ent.(*player.Player)
	return p, ok
}

// Player ...
func (w World) Player(id uuid.UUID) (moderation.Player, bool) {
	p, ok := w.Lookup(id)
	if !ok {
		return nil, false
	}
	return w.adapt(p), true
}

// Players ...
func (w World) Players() []moderation.Player {
	var out []moderation.Player
	for ent := range w.tx.Players() {
		out = append(out, w.adapt(ent.(*player.Player)))
	}
	return out
}

// adapt ...
func (w World) adapt(p *player.Player) Player {
	return Player{p: p, world: w.tx.World().Name(), visible: w.visible}
}

// Player adapts an online dragonfly player.
type Player struct {
	p       *player.Player
	world   string
	visible *Visibility
}

// Adapt wraps a player of tx.
func (h *Host) Adapt(tx *world.Tx, p *player.Player) Player {
	return h.Wrap(tx).adapt(p)
}

// UUID ...
func (p Player) UUID() uuid.UUID {
	return p.p.UUID()
}

// Name ...
func (p Player) Name() string {
	return p.p.Name()
}

// Target ...
func (p Player) Target() punishment.Target {
	return punishment.Target{UUID: p.p.UUID(), Name: p.p.Name()}
}

// Location ...
func (p Player) Location() punishment.Location {
	rot := p.p.Rotation()
	return punishment.Location{
		World:    p.world,
		Position: p.p.Position(),
		Rotation: mgl64.Vec3{rot.Yaw(), rot.Pitch(), 0},
	}
}

// Teleport ...
func (p Player) Teleport(pos mgl64.Vec3) {
	p.p.Teleport(pos)
}

// Disconnect ...
func (p Player) Disconnect(message string) {
	p.p.Disconnect(message)
}

// Message ...
func (p Player) Message(message string) {
	p.p.Message(message)
}

// SetVisible ...
func (p Player) SetVisible(viewer moderation.Player, visible bool) {
	v, ok := viewer.(Player)
	if !ok || v.p == p.p {
		return
	}
	if visible {
		p.visible.Show(v.p, p.p.UUID(), p.p)
		return
	}
	p.visible.Hide(v.p, p.p.UUID(), p.p)
}
