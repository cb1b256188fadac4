package event

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

func newTestBus() *Bus {
	return NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newPreApply() *PunishmentPreApply {
	return NewPunishmentPreApply(punishment.New(punishment.Ban, punishment.Target{UUID: uuid.New()}, punishment.Console(), "spam", 0))
}

func TestDispatchRunsInPriorityOrder(t *testing.T) {
	b := newTestBus()

	var order []string
	Register(b, Monitor, false, func(*PunishmentPreApply) { order = append(order, "monitor") })
	Register(b, High, false, func(*PunishmentPreApply) { order = append(order, "high") })
	Register(b, Lowest, false, func(*PunishmentPreApply) { order = append(order, "lowest") })
	Register(b, Normal, false, func(*PunishmentPreApply) { order = append(order, "normal-1") })
	Register(b, Normal, false, func(*PunishmentPreApply) { order = append(order, "normal-2") })

	b.Dispatch(newPreApply())
	assert.Equal(t, []string{"lowest", "normal-1", "normal-2", "high", "monitor"}, order)
}

func TestRegisterDuringDispatch(t *testing.T) {
	b := newTestBus()

	var order []string
	Register(b, Normal, false, func(*PunishmentPreApply) { order = append(order, "first") })
	Register(b, Normal, false, func(*PunishmentPreApply) {
		order = append(order, "second")
		Register(b, Lowest, false, func(*PunishmentPreApply) { order = append(order, "late") })
	})
	Register(b, Normal, false, func(*PunishmentPreApply) { order = append(order, "third") })

	b.Dispatch(newPreApply())
	assert.Equal(t, []string{"first", "second", "third"}, order)

	order = nil
	b.Dispatch(newPreApply())
	assert.Equal(t, []string{"late", "first", "second", "third"}, order)
}

func TestCancelledEventSkipsHandlers(t *testing.T) {
	b := newTestBus()

	var ran []string
	Register(b, Low, false, func(e *PunishmentPreApply) { e.Cancel() })
	Register(b, Normal, false, func(*PunishmentPreApply) { ran = append(ran, "normal") })
	Register(b, High, true, func(e *PunishmentPreApply) {
		ran = append(ran, "ignore-cancelled")
		e.SetCancelled(false)
		e.Cancel()
	})
	Register(b, Monitor, false, func(*PunishmentPreApply) { ran = append(ran, "monitor") })

	e := newPreApply()
	b.Dispatch(e)
	assert.Equal(t, []string{"ignore-cancelled", "monitor"}, ran)
	assert.True(t, e.Cancelled())
}

func TestMonitorCannotChangeCancellation(t *testing.T) {
	b := newTestBus()

	var seen []bool
	Register(b, Monitor, false, func(e *PunishmentPreApply) { e.Cancel() })
	Register(b, Monitor, false, func(e *PunishmentPreApply) { seen = append(seen, e.Cancelled()) })

	e := newPreApply()
	b.Dispatch(e)
	require.Len(t, seen, 1)
	assert.False(t, seen[0], "monitor change must be reverted before the next handler")
	assert.False(t, e.Cancelled())

	Register(b, Normal, false, func(e *PunishmentPreApply) { e.Cancel() })
	Register(b, Monitor, false, func(e *PunishmentPreApply) { e.SetCancelled(false) })
	e = newPreApply()
	b.Dispatch(e)
	assert.True(t, e.Cancelled())
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	b := newTestBus()

	var after bool
	Register(b, Low, false, func(*PunishmentApplied) { panic("boom") })
	Register(b, Normal, false, func(*PunishmentApplied) { after = true })

	assert.NotPanics(t, func() {
		b.Dispatch(&PunishmentApplied{})
	})
	assert.True(t, after)
}

func TestNonCancellableEventIgnoresCancel(t *testing.T) {
	e := &PunishmentApplied{}
	e.Cancel()
	assert.False(t, e.Cancelled())
	assert.False(t, e.IsCancellable())
}

func TestDispatchByConcreteVariant(t *testing.T) {
	b := newTestBus()

	var freezes, jails int
	Register(b, Normal, false, func(*StaffFreeze) { freezes++ })
	Register(b, Normal, false, func(e *StaffJail) {
		jails++
		assert.Equal(t, "griefing", e.Reason)
	})

	b.Dispatch(&StaffFreeze{StaffAction: NewStaffAction(uuid.New(), uuid.New(), punishment.SourceCommand)})
	b.Dispatch(&StaffJail{StaffAction: NewStaffAction(uuid.New(), uuid.New(), punishment.SourceCommand), Reason: "griefing"})
	assert.Equal(t, 1, freezes)
	assert.Equal(t, 1, jails)
}
