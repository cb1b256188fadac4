package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestChatLock(t *testing.T) {
	s := New()
	assert.False(t, s.ChatLocked())
	assert.True(t, s.ToggleChatLock())
	assert.True(t, s.ChatLocked())
	assert.False(t, s.ToggleChatLock())
	assert.False(t, s.ChatLocked())
}

func TestVanish(t *testing.T) {
	s := New()
	id := uuid.New()

	assert.True(t, s.ToggleVanish(id))
	assert.True(t, s.Vanished(id))
	assert.Equal(t, []uuid.UUID{id}, s.VanishedPlayers())

	assert.False(t, s.ToggleVanish(id))
	assert.False(t, s.Vanished(id))

	s.ToggleVanish(id)
	s.Quit(id)
	assert.False(t, s.Vanished(id))
	assert.Empty(t, s.VanishedPlayers())
}

func TestCooldowns(t *testing.T) {
	s := New()
	a, b := uuid.New(), uuid.New()

	assert.True(t, s.AllowMuteFeedback(a))
	assert.False(t, s.AllowMuteFeedback(a))
	assert.True(t, s.AllowMuteFeedback(b))

	assert.True(t, s.AllowReport(a))
	assert.False(t, s.AllowReport(a))
}

func TestMovementDrain(t *testing.T) {
	s := New()
	id := uuid.New()
	m := s.Movement(id)
	assert.Same(t, m, s.Movement(id))

	m.Hold()
	m.Hold()
	assert.Equal(t, 2, m.Drain())
	assert.Zero(t, m.Drain())
}
