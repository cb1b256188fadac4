// Package state keeps an in-memory projection of the punishments currently active on each player, derived
// from the punishment events on the bus.
package state

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/event"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

// kinds maps the tracked punishment types to the state they put a player in. Types missing from this map,
// such as kicks and warnings, are point-in-time actions and never cached.
var kinds = map[punishment.Type]event.StateKind{
	punishment.Ban:    event.StateBanned,
	punishment.Mute:   event.StateMuted,
	punishment.Freeze: event.StateFrozen,
	punishment.Jail:   event.StateJailed,
}

// Tracked reports whether punishments of type t are held in the cache.
func Tracked(t punishment.Type) bool {
	_, ok := kinds[t]
	return ok
}

// Loader loads the active punishments of a player from durable storage.
type Loader interface {
	ActivePunishments(ctx context.Context, id uuid.UUID) ([]punishment.Punishment, error)
}

// snapshot is the immutable state of one player. It is replaced as a whole on every change.
type snapshot struct {
	loaded bool
	active map[punishment.Type]punishment.Punishment
}

// Cache holds the moderation state of every player seen since startup.
type Cache struct {
	bus    *event.Bus
	loader Loader
	states *xsync.MapOf[uuid.UUID, snapshot]
}

// NewCache creates a cache and subscribes it to the punishment events on bus.
func NewCache(bus *event.Bus, loader Loader) *Cache {
	c := &Cache{
		bus:    bus,
		loader: loader,
		states: xsync.NewMapOf[uuid.UUID, snapshot](),
	}
	event.Register(bus, event.Monitor, true, c.applied)
	event.Register(bus, event.Monitor, true, c.expired)
	return c
}

// Warm loads the state of a player from the loader unless it was loaded before. Punishments observed on the
// bus before loading take precedence over the loaded ones.
func (c *Cache) Warm(ctx context.Context, id uuid.UUID) error {
	if s, ok := c.states.Load(id); ok && s.loaded {
		return nil
	}
	loaded, err := c.loader.ActivePunishments(ctx, id)
	if err != nil {
		return fmt.Errorf("warm moderation state of %s: %w", id, err)
	}

	c.states.Compute(id, func(old snapshot, _ bool) (snapshot, bool) {
		if old.loaded {
			return old, false
		}
		next := snapshot{loaded: true, active: make(map[punishment.Type]punishment.Punishment, len(loaded))}
		for _, p := range loaded {
			if Tracked(p.Type) {
				next.active[p.Type] = p
			}
		}
		maps.Copy(next.active, old.active)
		return next, false
	})
	return nil
}

// State lazily loads the state of a player and returns a copy of their active punishments.
func (c *Cache) State(ctx context.Context, id uuid.UUID) (map[punishment.Type]punishment.Punishment, error) {
	if err := c.Warm(ctx, id); err != nil {
		return nil, err
	}
	s, _ := c.states.Load(id)
	return maps.Clone(s.active), nil
}

// Active returns the cached active punishment of type t of a player. It never touches storage.
func (c *Cache) Active(id uuid.UUID, t punishment.Type) (punishment.Punishment, bool) {
	s, ok := c.states.Load(id)
	if !ok {
		return punishment.Punishment{}, false
	}
	p, ok := s.active[t]
	return p, ok
}

// Loaded reports whether the state of a player has been loaded from storage. Until then Active may miss
// punishments that were issued before startup.
func (c *Cache) Loaded(id uuid.UUID) bool {
	s, ok := c.states.Load(id)
	return ok && s.loaded
}

// Muted ...
func (c *Cache) Muted(id uuid.UUID) bool {
	_, ok := c.Active(id, punishment.Mute)
	return ok
}

// Frozen ...
func (c *Cache) Frozen(id uuid.UUID) bool {
	_, ok := c.Active(id, punishment.Freeze)
	return ok
}

// Jailed ...
func (c *Cache) Jailed(id uuid.UUID) bool {
	_, ok := c.Active(id, punishment.Jail)
	return ok
}

// Banned ...
func (c *Cache) Banned(id uuid.UUID) bool {
	_, ok := c.Active(id, punishment.Ban)
	return ok
}

// ExpiredMute returns the cached mute of a player if it has run out at now.
func (c *Cache) ExpiredMute(id uuid.UUID, now time.Time) (punishment.Punishment, bool) {
	p, ok := c.Active(id, punishment.Mute)
	if !ok || !p.Expired(now) {
		return punishment.Punishment{}, false
	}
	return p, true
}

// Evict drops the cached state of a player. It is rebuilt from storage on the next Warm.
func (c *Cache) Evict(id uuid.UUID) {
	c.states.Delete(id)
}

// applied ...
func (c *Cache) applied(e *event.PunishmentApplied) {
	p := e.Punishment
	if !Tracked(p.Type) {
		return
	}

	var added bool
	c.states.Compute(p.Target, func(old snapshot, _ bool) (snapshot, bool) {
		_, had := old.active[p.Type]
		added = !had

		next := snapshot{loaded: old.loaded, active: maps.Clone(old.active)}
		if next.active == nil {
			next.active = make(map[punishment.Type]punishment.Punishment)
		}
		next.active[p.Type] = p
		return next, false
	})
	if added {
		c.bus.Dispatch(&event.PlayerModerationStateChange{Player: p.Target, State: kinds[p.Type], Enabled: true})
	}
}

// expired ...
func (c *Cache) expired(e *event.PunishmentExpired) {
	p := e.Punishment
	if !Tracked(p.Type) {
		return
	}

	var removed bool
	c.states.Compute(p.Target, func(old snapshot, loaded bool) (snapshot, bool) {
		if !loaded {
			return old, true
		}
		_, removed = old.active[p.Type]
		if !removed {
			return old, false
		}
		next := snapshot{loaded: old.loaded, active: maps.Clone(old.active)}
		delete(next.active, p.Type)
		return next, false
	})
	if removed {
		c.bus.Dispatch(&event.PlayerModerationStateChange{Player: p.Target, State: kinds[p.Type], Enabled: false})
	}
}
