// Package hider keeps track of the players hidden from each viewer, so that vanished staff stay hidden
// consistently and the bookkeeping is dropped when either side leaves.
package hider

import (
	"sync"

	"github.com/google/uuid"
)

// Viewer is a player that can hide and show entities of type E.
type Viewer[E any] interface {
	UUID() uuid.UUID
	HideEntity(e E)
	ShowEntity(e E)
}

// Manager ...
type Manager[E any] struct {
	mu     sync.RWMutex
	hidden map[uuid.UUID]map[uuid.UUID]struct{}
}

// NewManager ...
func NewManager[E any]() *Manager[E] {
	return &Manager[E]{hidden: make(map[uuid.UUID]map[uuid.UUID]struct{})}
}

// Hide hides target, the entity with the uuid id, from viewer. It returns false if target was already hidden.
func (m *Manager[E]) Hide(viewer Viewer[E], id uuid.UUID, target E) bool {
	if viewer.UUID() == id {
		return false
	}
	m.mu.Lock()
	set, ok := m.hidden[viewer.UUID()]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		m.hidden[viewer.UUID()] = set
	}
	_, already := set[id]
	set[id] = struct{}{}
	m.mu.Unlock()

	if already {
		return false
	}
	viewer.HideEntity(target)
	return true
}

// Show shows target, the entity with the uuid id, to viewer again. It returns false if target was not hidden.
func (m *Manager[E]) Show(viewer Viewer[E], id uuid.UUID, target E) bool {
	m.mu.Lock()
	set := m.hidden[viewer.UUID()]
	_, ok := set[id]
	delete(set, id)
	if len(set) == 0 {
		delete(m.hidden, viewer.UUID())
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	viewer.ShowEntity(target)
	return true
}

// Hidden reports whether target is hidden from viewer.
func (m *Manager[E]) Hidden(viewer, target uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.hidden[viewer][target]
	return ok
}

// HandleQuit forgets every pair a player that left was part of.
func (m *Manager[E]) HandleQuit(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hidden, id)
	for viewer, set := range m.hidden {
		delete(set, id)
		if len(set) == 0 {
			delete(m.hidden, viewer)
		}
	}
}
