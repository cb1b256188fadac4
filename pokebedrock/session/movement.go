package session

import (
	"github.com/df-mc/atomic"
)

// Movement counts the movement input of a player that was held back while they were frozen.
type Movement struct {
	pending atomic.Int64
}

// NewMovement creates a new instance of Movement.
func NewMovement() *Movement {
	return &Movement{}
}

// Hold counts a movement input that was refused.
func (m *Movement) Hold() {
	m.pending.Inc()
}

// Drain discards the held movement input and returns how much there was.
func (m *Movement) Drain() int {
	return int(m.pending.Swap(0))
}
