package moderation

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/containment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/event"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/session"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/state"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/storage"
)

type fakePlayer struct {
	id   uuid.UUID
	name string
	loc  punishment.Location

	messages     []string
	disconnected string
	teleports    []mgl64.Vec3
	hiddenFrom   map[uuid.UUID]bool
}

func (p *fakePlayer) UUID() uuid.UUID { return p.id }
func (p *fakePlayer) Name() string { return p.name }
func (p *fakePlayer) Location() punishment.Location { return p.loc }
func (p *fakePlayer) Message(message string) { p.messages = append(p.messages, message) }
func (p *fakePlayer) Teleport(pos mgl64.Vec3) {
	p.teleports = append(p.teleports, pos)
	p.loc.Position = pos
}
func (p *fakePlayer) Disconnect(message string) { p.disconnected = message }
func (p *fakePlayer) SetVisible(v Player, show bool) { p.hiddenFrom[v.UUID()] = !show }

func (p *fakePlayer) target() punishment.Target {
	return punishment.Target{UUID: p.id, Name: p.name}
}

type fakeHost struct {
	mu      sync.Mutex
	players map[uuid.UUID]*fakePlayer
	perms   map[uuid.UUID][]string
}

func (h *fakeHost) Exec(f func(w World)) <-chan struct{} {
	h.mu.Lock()
	f(h)
	h.mu.Unlock()
	c := make(chan struct{})
	close(c)
	return c
}

func (h *fakeHost) Player(id uuid.UUID) (Player, bool) {
	p, ok := h.players[id]
	if !ok || p.disconnected != "" {
		return nil, false
	}
	return p, true
}

func (h *fakeHost) Players() []Player {
	out := make([]Player, 0, len(h.players))
	for id := range h.players {
		if p, ok := h.Player(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func (h *fakeHost) HasPermission(id uuid.UUID, node string) bool {
	for _, n := range h.perms[id] {
		if n == node {
			return true
		}
	}
	return false
}

type fakeBanList struct {
	mu      sync.Mutex
	entries map[uuid.UUID]BanEntry
}

func (b *fakeBanList) Has(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.entries[id]
	return ok
}

func (b *fakeBanList) Add(e BanEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[e.UUID] = e
	return nil
}

func (b *fakeBanList) Remove(id uuid.UUID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.entries[id]
	delete(b.entries, id)
	return ok, nil
}

type fakeJail struct {
	jail Jail
	set  bool
}

func (j *fakeJail) Jail() (Jail, bool) { return j.jail, j.set }

type fixture struct {
	t       *testing.T
	ctx     context.Context
	svc     *Service
	host    *fakeHost
	bans    *fakeBanList
	jail    *fakeJail
	store   *storage.Store
	bus     *event.Bus
	cache   *state.Cache
	markers *containment.Registry
	session *session.Session
	staff   *fakePlayer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	store, err := storage.Open(ctx, log, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		t:       t,
		ctx:     ctx,
		host:    &fakeHost{players: make(map[uuid.UUID]*fakePlayer), perms: make(map[uuid.UUID][]string)},
		bans:    &fakeBanList{entries: make(map[uuid.UUID]BanEntry)},
		jail:    &fakeJail{},
		store:   store,
		bus:     event.NewBus(log),
		markers: containment.NewRegistry(),
		session: session.New(),
	}
	f.cache = state.NewCache(f.bus, Loader{Store: store})
	f.svc = NewService(Config{
		Log:         log,
		Store:       store,
		Bus:         f.bus,
		Cache:       f.cache,
		Markers:     f.markers,
		Session:     f.session,
		Permissions: f.host,
		BanList:     f.bans,
		MainThread:  f.host,
		Jail:        f.jail,
	})
	f.staff = f.join("Mod", PermissionNotify, PermissionVanishSee, PermissionStaffChat, PermissionReportReceive,
		PermissionChatLockBypass)
	return f
}

func (f *fixture) join(name string, perms ...string) *fakePlayer {
	p := &fakePlayer{
		id:         uuid.New(),
		name:       name,
		loc:        punishment.Location{World: "world", Position: mgl64.Vec3{1, 64, 1}},
		hiddenFrom: make(map[uuid.UUID]bool),
	}
	f.host.players[p.id] = p
	f.host.perms[p.id] = perms
	require.NoError(f.t, f.cache.Warm(f.ctx, p.id))
	return p
}

func (f *fixture) offline(name string) punishment.Target {
	return punishment.Target{UUID: uuid.New(), Name: name}
}

func (p *fakePlayer) received(text string) bool {
	return strings.Contains(strings.Join(p.messages, "\n"), text)
}

func (f *fixture) actor() punishment.ExecutionContext {
	return punishment.Command(f.staff.id, f.staff.name)
}

// tickWorld runs the containment loop against the fake host.
type tickWorld struct {
	h *fakeHost
}

func (w tickWorld) Entity(id uuid.UUID) (containment.Entity, bool) {
	p, ok := w.h.players[id]
	if !ok {
		return nil, false
	}
	return tickEntity{p: p}, true
}

func (w tickWorld) Teleport(id uuid.UUID, pos mgl64.Vec3, done func()) {
	if p, ok := w.h.players[id]; ok {
		p.Teleport(pos)
	}
	done()
}

type tickEntity struct {
	p *fakePlayer
}

func (e tickEntity) Position() mgl64.Vec3 { return e.p.loc.Position }
func (e tickEntity) DrainMovementInput() int { return 0 }
