// Package containment enforces the freeze and jail boundaries of online players every tick.
package containment

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Frozen anchors a player at a fixed position.
type Frozen struct {
	Origin mgl64.Vec3
}

// Jailed keeps a player within a radius of the jail.
type Jailed struct {
	Origin mgl64.Vec3
	Radius float64
	// ExpiresAt is the zero time for jails without an expiry.
	ExpiresAt time.Time
}

// Expired reports whether a timed jail has run out at now.
func (j Jailed) Expired(now time.Time) bool {
	return !j.ExpiresAt.IsZero() && !now.Before(j.ExpiresAt)
}

// markers holds the containment state of one player.
type markers struct {
	frozen  *Frozen
	jailed  *Jailed
	pending bool
}

// Registry holds the containment markers of online players. Markers are live state only and are never
// persisted.
type Registry struct {
	mu      sync.Mutex
	markers map[uuid.UUID]*markers
}

// NewRegistry ...
func NewRegistry() *Registry {
	return &Registry{markers: make(map[uuid.UUID]*markers)}
}

// Freeze attaches a Frozen marker. It returns false if the player was already frozen.
func (r *Registry) Freeze(id uuid.UUID, f Frozen) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.entry(id)
	if m.frozen != nil {
		return false
	}
	m.frozen = &f
	return true
}

// Unfreeze removes the Frozen marker. It returns false if the player was not frozen.
func (r *Registry) Unfreeze(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markers[id]
	if !ok || m.frozen == nil {
		return false
	}
	m.frozen = nil
	r.prune(id, m)
	return true
}

// Jail attaches or replaces the Jailed marker. An existing Frozen marker is moved to the jail origin so that
// the freeze holds the player inside the jail.
func (r *Registry) Jail(id uuid.UUID, j Jailed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.entry(id)
	m.jailed = &j
	if m.frozen != nil {
		m.frozen = &Frozen{Origin: j.Origin}
	}
}

// Release removes both markers of a player and reports whether the player was jailed.
func (r *Registry) Release(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markers[id]
	if !ok {
		return false
	}
	delete(r.markers, id)
	return m.jailed != nil
}

// Frozen returns the Frozen marker of a player.
func (r *Registry) Frozen(id uuid.UUID) (Frozen, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.markers[id]; ok && m.frozen != nil {
		return *m.frozen, true
	}
	return Frozen{}, false
}

// Jailed returns the Jailed marker of a player.
func (r *Registry) Jailed(id uuid.UUID) (Jailed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.markers[id]; ok && m.jailed != nil {
		return *m.jailed, true
	}
	return Jailed{}, false
}

// Len returns the number of contained players.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.markers)
}

// entry ...
func (r *Registry) entry(id uuid.UUID) *markers {
	m, ok := r.markers[id]
	if !ok {
		m = &markers{}
		r.markers[id] = m
	}
	return m
}

// prune ...
func (r *Registry) prune(id uuid.UUID, m *markers) {
	if m.frozen == nil && m.jailed == nil {
		delete(r.markers, id)
	}
}

// contained is a copy of the markers of one player taken at the start of a tick.
type contained struct {
	id     uuid.UUID
	frozen *Frozen
	jailed *Jailed
}

// snapshot ...
func (r *Registry) snapshot() []contained {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]contained, 0, len(r.markers))
	for id, m := range r.markers {
		out = append(out, contained{id: id, frozen: m.frozen, jailed: m.jailed})
	}
	return out
}

// releaseExpired removes both markers if the jail j is still attached. It returns false if another tick or an
// unjail already removed it.
func (r *Registry) releaseExpired(id uuid.UUID, j *Jailed) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markers[id]
	if !ok || m.jailed != j {
		return false
	}
	delete(r.markers, id)
	return true
}

// beginTeleport marks a corrective teleport as pending. It returns false if one is already pending.
func (r *Registry) beginTeleport(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markers[id]
	if !ok || m.pending {
		return false
	}
	m.pending = true
	return true
}

// endTeleport ...
func (r *Registry) endTeleport(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.markers[id]; ok {
		m.pending = false
	}
}
