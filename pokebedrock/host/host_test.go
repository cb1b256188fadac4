package host

import (
	"testing"

	"github.com/df-mc/dragonfly/server/world"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlesAreIndexedByUUID(t *testing.T) {
	h := New(nil)
	a, b := uuid.New(), uuid.New()
	ha, hb := &world.EntityHandle{}, &world.EntityHandle{}

	h.track(a, ha)
	h.track(b, hb)

	got, ok := h.handle(a)
	require.True(t, ok)
	assert.Same(t, ha, got)
	got, ok = h.handle(b)
	require.True(t, ok)
	assert.Same(t, hb, got)

	h.Forget(a)
	_, ok = h.handle(a)
	assert.False(t, ok)
	_, ok = h.handle(b)
	assert.True(t, ok)
}
