package hider

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type viewer struct {
	id    uuid.UUID
	calls *[]string
}

func (v viewer) UUID() uuid.UUID {
	return v.id
}

func (v viewer) HideEntity(e viewer) {
	*v.calls = append(*v.calls, "hide "+e.id.String())
}

func (v viewer) ShowEntity(e viewer) {
	*v.calls = append(*v.calls, "show "+e.id.String())
}

func TestHideAndShow(t *testing.T) {
	var calls []string
	a := viewer{id: uuid.New(), calls: &calls}
	b := viewer{id: uuid.New(), calls: &calls}
	m := NewManager[viewer]()

	assert.True(t, m.Hide(a, b.id, b))
	assert.False(t, m.Hide(a, b.id, b), "hiding twice only reaches the player once")
	assert.False(t, m.Hide(a, a.id, a))
	assert.True(t, m.Hidden(a.id, b.id))
	assert.False(t, m.Hidden(b.id, a.id))

	assert.True(t, m.Show(a, b.id, b))
	assert.False(t, m.Show(a, b.id, b))
	assert.Equal(t, []string{"hide " + b.id.String(), "show " + b.id.String()}, calls)
}

func TestHandleQuitForgetsBothSides(t *testing.T) {
	var calls []string
	a := viewer{id: uuid.New(), calls: &calls}
	b := viewer{id: uuid.New(), calls: &calls}
	c := viewer{id: uuid.New(), calls: &calls}
	m := NewManager[viewer]()

	m.Hide(a, b.id, b)
	m.Hide(b, c.id, c)
	m.Hide(c, a.id, a)
	m.HandleQuit(a.id)

	assert.False(t, m.Hidden(a.id, b.id))
	assert.False(t, m.Hidden(c.id, a.id))
	assert.True(t, m.Hidden(b.id, c.id))
}
