package handler

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/containment"
)

func TestConfine(t *testing.T) {
	reg := containment.NewRegistry()
	free, frozen, jailed := uuid.New(), uuid.New(), uuid.New()

	reg.Freeze(frozen, containment.Frozen{Origin: mgl64.Vec3{0, 64, 0}})
	reg.Jail(jailed, containment.Jailed{Origin: mgl64.Vec3{100, 64, 100}, Radius: 10})

	assert.Equal(t, moveAllowed, confine(reg, free, mgl64.Vec3{5, 64, 5}))
	assert.Equal(t, moveHeld, confine(reg, frozen, mgl64.Vec3{0, 64, 0}))
	assert.Equal(t, moveAllowed, confine(reg, jailed, mgl64.Vec3{105, 64, 100}))
	assert.Equal(t, moveRefused, confine(reg, jailed, mgl64.Vec3{111, 64, 100}))

	reg.Release(jailed)
	assert.Equal(t, moveAllowed, confine(reg, jailed, mgl64.Vec3{111, 64, 100}))
}
