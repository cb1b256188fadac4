package containment

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// driftEpsilonSq is the squared distance a frozen player may drift before being teleported back.
const driftEpsilonSq = 0.01

// Entity is a contained player as seen by the loop.
type Entity interface {
	// Position returns the current position of the entity.
	Position() mgl64.Vec3
	// DrainMovementInput discards the movement input queued since the last tick and returns how much was
	// discarded.
	DrainMovementInput() int
}

// World resolves contained players to their live entities.
type World interface {
	Entity(id uuid.UUID) (Entity, bool)
}

// Teleporter schedules a teleport without waiting for it. done must be called once the teleport has been
// carried out or abandoned.
type Teleporter interface {
	Teleport(id uuid.UUID, pos mgl64.Vec3, done func())
}

// Loop enforces containment markers. Tick must be called from the main thread once per game tick.
type Loop struct {
	reg *Registry
	tp  Teleporter

	onJailExpired func(id uuid.UUID)
}

// NewLoop creates a loop over the markers of reg. onJailExpired is called exactly once for every jail that runs
// out while its player is online, after both markers have been removed. It must not block.
func NewLoop(reg *Registry, tp Teleporter, onJailExpired func(id uuid.UUID)) *Loop {
	return &Loop{reg: reg, tp: tp, onJailExpired: onJailExpired}
}

// Tick checks every contained player once. The work done is proportional to the number of contained players.
func (l *Loop) Tick(w World, now time.Time) {
	for _, c := range l.reg.snapshot() {
		if c.jailed != nil && c.jailed.Expired(now) {
			if l.reg.releaseExpired(c.id, c.jailed) && l.onJailExpired != nil {
				l.onJailExpired(c.id)
			}
			continue
		}

		e, ok := w.Entity(c.id)
		if !ok {
			continue
		}
		switch {
		case c.frozen != nil:
			e.DrainMovementInput()
			if e.Position().Sub(c.frozen.Origin).LenSqr() > driftEpsilonSq {
				l.teleport(c.id, c.frozen.Origin)
			}
		case c.jailed != nil:
			if e.Position().Sub(c.jailed.Origin).LenSqr() > c.jailed.Radius*c.jailed.Radius {
				l.teleport(c.id, c.jailed.Origin)
			}
		}
	}
}

// teleport ...
func (l *Loop) teleport(id uuid.UUID, pos mgl64.Vec3) {
	if !l.reg.beginTeleport(id) {
		return
	}
	l.tp.Teleport(id, pos, func() {
		l.reg.endTeleport(id)
	})
}
