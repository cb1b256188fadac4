// Package session holds the live, non-persistent state shared between the chat, movement and moderation
// handlers of the server.
package session

import (
	"time"

	"github.com/df-mc/atomic"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

const (
	// MuteFeedbackCooldown is the minimum time between two "you are muted" notices sent to the same player.
	MuteFeedbackCooldown = 2 * time.Second
	// ReportCooldown is the minimum time between two reports filed by the same player.
	ReportCooldown = 30 * time.Second
)

// Session is the live state of the server that is not tied to a single punishment. A single Session is created
// at startup and passed to everything that needs it.
type Session struct {
	chatLocked atomic.Bool
	vanished   *xsync.MapOf[uuid.UUID, struct{}]

	muteFeedback *cooldowns
	reports      *cooldowns
	movement     *xsync.MapOf[uuid.UUID, *Movement]
}

// New ...
func New() *Session {
	return &Session{
		vanished:     xsync.NewMapOf[uuid.UUID, struct{}](),
		muteFeedback: newCooldowns(MuteFeedbackCooldown),
		reports:      newCooldowns(ReportCooldown),
		movement:     xsync.NewMapOf[uuid.UUID, *Movement](),
	}
}

// ChatLocked reports whether chat is locked for players without the bypass permission.
func (s *Session) ChatLocked() bool {
	return s.chatLocked.Load()
}

// ToggleChatLock flips the chat lock and returns the new state.
func (s *Session) ToggleChatLock() bool {
	return !s.chatLocked.Toggle()
}

// Vanished reports whether a player is vanished.
func (s *Session) Vanished(id uuid.UUID) bool {
	_, ok := s.vanished.Load(id)
	return ok
}

// ToggleVanish flips the vanish state of a player and returns the new state.
func (s *Session) ToggleVanish(id uuid.UUID) bool {
	var vanished bool
	s.vanished.Compute(id, func(_ struct{}, loaded bool) (struct{}, bool) {
		vanished = !loaded
		return struct{}{}, loaded
	})
	return vanished
}

// VanishedPlayers returns the uuids of every vanished player.
func (s *Session) VanishedPlayers() []uuid.UUID {
	ids := make([]uuid.UUID, 0, s.vanished.Size())
	s.vanished.Range(func(id uuid.UUID, _ struct{}) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// AllowMuteFeedback reports whether a muted player may be told about their mute again. It consumes the
// cooldown when it returns true.
func (s *Session) AllowMuteFeedback(id uuid.UUID) bool {
	return s.muteFeedback.allow(id)
}

// AllowReport reports whether a player may file a report. It consumes the cooldown when it returns true.
func (s *Session) AllowReport(id uuid.UUID) bool {
	return s.reports.allow(id)
}

// Movement returns the movement tracker of a player, creating it on first use.
func (s *Session) Movement(id uuid.UUID) *Movement {
	m, _ := s.movement.LoadOrCompute(id, NewMovement)
	return m
}

// Quit drops every piece of state held for a player that left the server.
func (s *Session) Quit(id uuid.UUID) {
	s.vanished.Delete(id)
	s.muteFeedback.forget(id)
	s.movement.Delete(id)
}

// cooldowns is a set of per-player limiters allowing one action per interval.
type cooldowns struct {
	interval time.Duration
	limiters *xsync.MapOf[uuid.UUID, *rate.Limiter]
}

// newCooldowns ...
func newCooldowns(interval time.Duration) *cooldowns {
	return &cooldowns{interval: interval, limiters: xsync.NewMapOf[uuid.UUID, *rate.Limiter]()}
}

// allow ...
func (c *cooldowns) allow(id uuid.UUID) bool {
	l, _ := c.limiters.LoadOrCompute(id, func() *rate.Limiter {
		return rate.NewLimiter(rate.Every(c.interval), 1)
	})
	return l.Allow()
}

// forget ...
func (c *cooldowns) forget(id uuid.UUID) {
	c.limiters.Delete(id)
}
