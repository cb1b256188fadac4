package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/event"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

type loaderFunc func(ctx context.Context, id uuid.UUID) ([]punishment.Punishment, error)

func (f loaderFunc) ActivePunishments(ctx context.Context, id uuid.UUID) ([]punishment.Punishment, error) {
	return f(ctx, id)
}

func newTestCache(t *testing.T, loader Loader) (*Cache, *event.Bus, *[]event.PlayerModerationStateChange) {
	t.Helper()
	bus := event.NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	changes := &[]event.PlayerModerationStateChange{}
	event.Register(bus, event.Monitor, false, func(e *event.PlayerModerationStateChange) {
		*changes = append(*changes, *e)
	})
	if loader == nil {
		loader = loaderFunc(func(context.Context, uuid.UUID) ([]punishment.Punishment, error) { return nil, nil })
	}
	return NewCache(bus, loader), bus, changes
}

func mute(target uuid.UUID, d time.Duration) punishment.Punishment {
	return punishment.New(punishment.Mute, punishment.Target{UUID: target}, punishment.Console(), "spam", d)
}

func TestCacheFollowsEvents(t *testing.T) {
	c, bus, changes := newTestCache(t, nil)
	target := uuid.New()

	assert.False(t, c.Muted(target))

	p := mute(target, 0)
	bus.Dispatch(&event.PunishmentApplied{Punishment: p})
	assert.True(t, c.Muted(target))
	got, ok := c.Active(target, punishment.Mute)
	require.True(t, ok)
	assert.Equal(t, p.ID, got.ID)

	// A second applied event replaces the record without another state change.
	bus.Dispatch(&event.PunishmentApplied{Punishment: mute(target, time.Hour)})
	require.Len(t, *changes, 1)
	assert.Equal(t, event.PlayerModerationStateChange{Player: target, State: event.StateMuted, Enabled: true}, (*changes)[0])

	bus.Dispatch(&event.PunishmentExpired{Punishment: p})
	assert.False(t, c.Muted(target))
	require.Len(t, *changes, 2)
	assert.False(t, (*changes)[1].Enabled)

	// Expiring something that is not active changes nothing.
	bus.Dispatch(&event.PunishmentExpired{Punishment: p})
	assert.Len(t, *changes, 2)
}

func TestCacheIgnoresPointInTimeTypes(t *testing.T) {
	c, bus, changes := newTestCache(t, nil)
	target := uuid.New()

	kick := punishment.New(punishment.Kick, punishment.Target{UUID: target}, punishment.Console(), "", 0)
	bus.Dispatch(&event.PunishmentApplied{Punishment: kick})
	_, ok := c.Active(target, punishment.Kick)
	assert.False(t, ok)
	assert.Empty(t, *changes)
}

func TestCacheWarmsLazilyOnce(t *testing.T) {
	target := uuid.New()
	jail := punishment.New(punishment.Jail, punishment.Target{UUID: target}, punishment.Console(), "", 0)
	var loads int
	c, bus, _ := newTestCache(t, loaderFunc(func(_ context.Context, id uuid.UUID) ([]punishment.Punishment, error) {
		loads++
		assert.Equal(t, target, id)
		return []punishment.Punishment{jail, mute(target, 0)}, nil
	}))

	freeze := punishment.New(punishment.Freeze, punishment.Target{UUID: target}, punishment.Console(), "", 0)
	bus.Dispatch(&event.PunishmentApplied{Punishment: freeze})

	state, err := c.State(context.Background(), target)
	require.NoError(t, err)
	assert.Len(t, state, 3)
	assert.True(t, c.Jailed(target))
	assert.True(t, c.Frozen(target))

	_, err = c.State(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 1, loads)

	c.Evict(target)
	assert.False(t, c.Jailed(target))
	require.NoError(t, c.Warm(context.Background(), target))
	assert.Equal(t, 2, loads)
}

func TestCacheWarmError(t *testing.T) {
	c, _, _ := newTestCache(t, loaderFunc(func(context.Context, uuid.UUID) ([]punishment.Punishment, error) {
		return nil, errors.New("disk on fire")
	}))
	assert.Error(t, c.Warm(context.Background(), uuid.New()))
}

func TestExpiredMute(t *testing.T) {
	c, bus, _ := newTestCache(t, nil)
	target := uuid.New()

	p := mute(target, time.Minute)
	bus.Dispatch(&event.PunishmentApplied{Punishment: p})

	_, ok := c.ExpiredMute(target, p.CreatedAt.Add(30*time.Second))
	assert.False(t, ok)
	got, ok := c.ExpiredMute(target, p.CreatedAt.Add(time.Minute))
	assert.True(t, ok)
	assert.Equal(t, p.ID, got.ID)
}

func TestLoadedOnlyAfterWarm(t *testing.T) {
	c, bus, _ := newTestCache(t, nil)
	target := uuid.New()
	assert.False(t, c.Loaded(target))

	// Events seen before loading do not mark the state as loaded.
	bus.Dispatch(&event.PunishmentApplied{Punishment: mute(target, 0)})
	assert.False(t, c.Loaded(target))

	require.NoError(t, c.Warm(context.Background(), target))
	assert.True(t, c.Loaded(target))
	assert.True(t, c.Muted(target))

	c.Evict(target)
	assert.False(t, c.Loaded(target))
}
