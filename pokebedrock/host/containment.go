package host

import (
	"context"
	"time"

	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/containment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/session"
)

// Containment drives the containment loop from the world goroutine.
type Containment struct {
	h       *Host
	session *session.Session
	loop    *containment.Loop

	tx *world.Tx
}

// NewContainment returns a driver enforcing the markers of reg. onJailExpired is called on the world goroutine
// and must not block.
func NewContainment(h *Host, s *session.Session, reg *containment.Registry, onJailExpired func(id uuid.UUID)) *Containment {
	c := &Containment{h: h, session: s}
	c.loop = containment.NewLoop(reg, c, onJailExpired)
	return c
}

// tick is one game tick, used when no interval is configured.
const tick = time.Second / 20

// Run ticks the loop every interval until ctx is cancelled.
func (c *Containment) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = tick
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			<-c.h.w.Exec(c.tick)
		}
	}
}

// tick ...
func (c *Containment) tick(tx *world.Tx) {
	c.tx = tx
	defer func() { c.tx = nil }()
	c.loop.Tick(entities{w: c.h.Wrap(tx), session: c.session}, time.Now())
}

// Teleport moves a player within the running tick.
func (c *Containment) Teleport(id uuid.UUID, pos mgl64.Vec3, done func()) {
	defer done()
	if c.tx == nil {
		return
	}
	if p, ok := c.h.Wrap(c.tx).Lookup(id); ok {
		p.Teleport(pos)
	}
}

// entities resolves contained players within a tick.
type entities struct {
	w       World
	session *session.Session
}

// Entity ...
func (e entities) Entity(id uuid.UUID) (containment.Entity, bool) {
	p, ok := e.w.Lookup(id)
	if !ok {
		return nil, false
	}
	return entity{pos: p.Position(), movement: e.session.Movement(id)}, true
}

// entity ...
type entity struct {
	pos      mgl64.Vec3
	movement *session.Movement
}

// Position ...
func (e entity) Position() mgl64.Vec3 {
	return e.pos
}

// DrainMovementInput ...
func (e entity) DrainMovementInput() int {
	return e.movement.Drain()
}
