package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/moderation"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type call struct {
	action   string
	target   punishment.Target
	ec       punishment.ExecutionContext
	duration time.Duration
}

type fakeModerator struct {
	mu    sync.Mutex
	calls []call
	errs  map[string]error
	named map[string]punishment.Target
}

func (f *fakeModerator) record(action string, t punishment.Target, ec punishment.ExecutionContext, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{action: action, target: t, ec: ec, duration: d})
	return f.errs[action]
}

func (f *fakeModerator) Ban(_ context.Context, t punishment.Target, _ string, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	return punishment.Punishment{}, f.record("BAN", t, ec, 0)
}

func (f *fakeModerator) TempBan(_ context.Context, t punishment.Target, _ string, d time.Duration, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	return punishment.Punishment{}, f.record("TEMPBAN", t, ec, d)
}

func (f *fakeModerator) Mute(_ context.Context, t punishment.Target, _ string, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	return punishment.Punishment{}, f.record("MUTE", t, ec, 0)
}

func (f *fakeModerator) TempMute(_ context.Context, t punishment.Target, _ string, d time.Duration, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	return punishment.Punishment{}, f.record("TEMPMUTE", t, ec, d)
}

func (f *fakeModerator) Kick(_ context.Context, t punishment.Target, _ string, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	return punishment.Punishment{}, f.record("KICK", t, ec, 0)
}

func (f *fakeModerator) Warn(_ context.Context, t punishment.Target, _ string, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	return punishment.Punishment{}, f.record("WARN", t, ec, 0)
}

func (f *fakeModerator) Unban(_ context.Context, t punishment.Target, ec punishment.ExecutionContext) error {
	return f.record("UNBAN", t, ec, 0)
}

func (f *fakeModerator) Unmute(_ context.Context, t punishment.Target, ec punishment.ExecutionContext) error {
	return f.record("UNMUTE", t, ec, 0)
}

func (f *fakeModerator) Jail(_ context.Context, t punishment.Target, _ string, d time.Duration, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	return punishment.Punishment{}, f.record("JAIL", t, ec, d)
}

func (f *fakeModerator) Unjail(_ context.Context, t punishment.Target, ec punishment.ExecutionContext) error {
	return f.record("UNJAIL", t, ec, 0)
}

func (f *fakeModerator) Freeze(_ context.Context, t punishment.Target, _ string, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	return punishment.Punishment{}, f.record("FREEZE", t, ec, 0)
}

func (f *fakeModerator) Unfreeze(_ context.Context, t punishment.Target, ec punishment.ExecutionContext) error {
	return f.record("UNFREEZE", t, ec, 0)
}

func (f *fakeModerator) ToggleVanish(_ context.Context, t punishment.Target, ec punishment.ExecutionContext) (bool, error) {
	return true, f.record("VANISH", t, ec, 0)
}

func (f *fakeModerator) ResolveTarget(_ context.Context, name string) (punishment.Target, error) {
	t, ok := f.named[name]
	if !ok {
		return punishment.Target{}, moderation.ErrUnknownPlayer
	}
	return t, nil
}

type ackRecord struct {
	id      string
	success bool
	message string
}

type recordingAcker struct {
	mu   sync.Mutex
	acks []ackRecord
}

func (r *recordingAcker) Ack(id string, success bool, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acks = append(r.acks, ackRecord{id: id, success: success, message: message})
}

type syncRunner struct{}

func (syncRunner) Go(f func(ctx context.Context)) bool {
	f(context.Background())
	return true
}

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(context.Background(), discard, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newExecutor(t *testing.T) (*Executor, *fakeModerator, *recordingAcker, *storage.Store) {
	t.Helper()
	store := openStore(t)
	mod := &fakeModerator{errs: map[string]error{}, named: map[string]punishment.Target{}}
	acker := &recordingAcker{}
	return NewExecutor(discard, mod, store, acker), mod, acker, store
}

func TestDecodeIntents(t *testing.T) {
	target := uuid.New()
	intents, err := DecodeIntents([]byte(`[{"id":"c1","action":"tempban","targetUuid":"` + target.String() +
		`","targetName":"Steve","reason":"spam","duration":3600000,"issuerUuid":null,"issuerName":"Admin"}]`))
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, "c1", intents[0].ID)
	assert.Equal(t, time.Hour, intents[0].Duration())
	assert.Equal(t, uuid.Nil, intents[0].Issuer())

	intents, err = DecodeIntents([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, intents)

	for _, body := range []string{
		`{"id":"c1"}`,
		`[{"action":"BAN"}]`,
		`[{"id":"c1","action":"BAN","duration":-5}]`,
		`[{"id":"","action":"BAN"}]`,
		`not json`,
	} {
		_, err = DecodeIntents([]byte(body))
		assert.ErrorIs(t, err, ErrInvalidPayload, body)
	}
}

func TestExecutorRunsEveryAction(t *testing.T) {
	e, mod, acker, _ := newExecutor(t)
	target := uuid.New()

	names := []string{"BAN", "TEMPBAN", "MUTE", "TEMPMUTE", "KICK", "WARN", "UNBAN", "UNMUTE", "JAIL", "UNJAIL",
		"FREEZE", "UNFREEZE", "VANISH"}
	intents := make([]Intent, 0, len(names))
	for _, n := range names {
		intents = append(intents, Intent{ID: "cmd-" + n, Action: n, TargetUUID: target.String(), DurationMillis: 60000})
	}
	e.ProcessIntents(context.Background(), intents)

	require.Len(t, mod.calls, len(names))
	for i, n := range names {
		assert.Equal(t, n, mod.calls[i].action)
		assert.Equal(t, target, mod.calls[i].target.UUID)
	}
	assert.Equal(t, time.Minute, mod.calls[1].duration)
	require.Len(t, acker.acks, len(names))
	for _, a := range acker.acks {
		assert.True(t, a.success)
		assert.Equal(t, "Command executed successfully", a.message)
	}
}

func TestExecutorDefaultsIssuerToWebPanel(t *testing.T) {
	e, mod, _, _ := newExecutor(t)
	e.ProcessIntents(context.Background(), []Intent{{ID: "c1", Action: "kick", TargetUUID: uuid.NewString()}})

	require.Len(t, mod.calls, 1)
	ec := mod.calls[0].ec
	assert.Equal(t, "WebPanel", ec.IssuerName)
	assert.Equal(t, punishment.ConsoleUUID, ec.Issuer)
	assert.Equal(t, punishment.SourceWeb, ec.Source)
}

func TestExecutorSkipsDuplicates(t *testing.T) {
	e, mod, acker, store := newExecutor(t)
	require.NoError(t, store.MarkCommandProcessed(context.Background(), "old"))

	target := uuid.NewString()
	e.ProcessIntents(context.Background(), []Intent{
		{ID: "old", Action: "BAN", TargetUUID: target},
		{ID: "new", Action: "BAN", TargetUUID: target},
		{ID: "new", Action: "BAN", TargetUUID: target},
	})

	assert.Len(t, mod.calls, 1)
	require.Len(t, acker.acks, 3)
	assert.Equal(t, ackRecord{id: "old", success: true, message: "Duplicate: Already processed"}, acker.acks[0])
	assert.Equal(t, ackRecord{id: "new", success: true, message: "Command executed successfully"}, acker.acks[1])
	assert.Equal(t, ackRecord{id: "new", success: true, message: "Duplicate: Already processed"}, acker.acks[2])

	done, err := store.HasProcessedCommand(context.Background(), "new")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestExecutorReportsFailures(t *testing.T) {
	e, mod, acker, store := newExecutor(t)
	mod.errs["KICK"] = moderation.ErrOffline
	mod.errs["BAN"] = assert.AnError
	target := uuid.NewString()

	e.ProcessIntents(context.Background(), []Intent{
		{ID: "a", Action: "explode", TargetUUID: target},
		{ID: "b", Action: "KICK", TargetUUID: target},
		{ID: "c", Action: "BAN", TargetUUID: target},
		{ID: "d", Action: "MUTE"},
	})

	require.Len(t, acker.acks, 4)
	assert.Equal(t, ackRecord{id: "a", message: "Unknown or unsupported action: EXPLODE"}, acker.acks[0])
	assert.False(t, acker.acks[1].success)
	assert.Contains(t, acker.acks[1].message, "Command execution returned false (e.g., player offline or bypassed)")
	assert.Contains(t, acker.acks[1].message, moderation.ErrOffline.Error())
	assert.False(t, acker.acks[2].success)
	assert.Contains(t, acker.acks[2].message, "Exception: ")
	assert.False(t, acker.acks[3].success)
	assert.Contains(t, acker.acks[3].message, moderation.ErrUnknownPlayer.Error())

	done, err := store.HasProcessedCommand(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, done, "unknown actions are still marked processed")
}

func TestExecutorResolvesTargetByName(t *testing.T) {
	e, mod, acker, _ := newExecutor(t)
	steve := punishment.Target{UUID: uuid.New(), Name: "Steve"}
	mod.named["Steve"] = steve

	e.ProcessIntents(context.Background(), []Intent{{ID: "c1", Action: "WARN", TargetName: "Steve", Reason: "spam"}})

	require.Len(t, mod.calls, 1)
	assert.Equal(t, steve, mod.calls[0].target)
	require.Len(t, acker.acks, 1)
	assert.True(t, acker.acks[0].success)
}

// panel is a fake web panel recording the requests it receives.
type panel struct {
	mu       sync.Mutex
	acks     []ack
	paths    []string
	headers  []http.Header
	failures int
	status   int
	claims   []string
	intents  string
}

func (p *panel) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /claim", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		p.mu.Lock()
		p.claims = append(p.claims, body["claim_token"])
		p.headers = append(p.headers, r.Header.Clone())
		p.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /poll", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.headers = append(p.headers, r.Header.Clone())
		body := p.intents
		p.intents = "[]"
		p.mu.Unlock()
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("POST /api/v1/server/commands/{id}/ack", func(w http.ResponseWriter, r *http.Request) {
		var body ack
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		p.mu.Lock()
		defer p.mu.Unlock()
		p.paths = append(p.paths, r.PathValue("id"))
		p.headers = append(p.headers, r.Header.Clone())
		if p.failures > 0 {
			p.failures--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		p.acks = append(p.acks, body)
		w.WriteHeader(p.status)
	})
	return mux
}

func newPanel(t *testing.T) (*panel, *httptest.Server) {
	t.Helper()
	p := &panel{status: http.StatusOK, intents: "[]"}
	srv := httptest.NewServer(p.handler(t))
	t.Cleanup(srv.Close)
	return p, srv
}

func newClient(srv *httptest.Server, claimed bool) *Client {
	return NewClient(discard, Config{
		URL:       srv.URL + "/",
		PollURL:   srv.URL + "/poll",
		ClaimURL:  srv.URL + "/claim",
		RetryWait: time.Millisecond,
	}, storage.Identity{ServerID: "server-1", Secret: "secret", Claimed: claimed})
}

func TestAcknowledgerRetriesServerErrors(t *testing.T) {
	p, srv := newPanel(t)
	p.failures = 2
	a := NewAcknowledger(discard, newClient(srv, true), syncRunner{})

	a.Ack("cmd-1", true, "Command executed successfully")

	assert.Equal(t, []string{"cmd-1", "cmd-1", "cmd-1"}, p.paths)
	require.Len(t, p.acks, 1)
	assert.Equal(t, ack{CommandID: "cmd-1", Status: StatusSuccess, Message: "Command executed successfully"}, p.acks[0])
	for _, h := range p.headers {
		assert.Equal(t, "server-1", h.Get("X-Server-ID"))
		assert.Equal(t, "secret", h.Get("X-Server-Secret"))
		assert.Equal(t, "application/json", h.Get("Content-Type"))
	}
}

func TestAcknowledgerGivesUpAfterThreeAttempts(t *testing.T) {
	p, srv := newPanel(t)
	p.failures = 10
	a := NewAcknowledger(discard, newClient(srv, true), syncRunner{})

	a.Ack("cmd-1", false, "nope")
	assert.Len(t, p.paths, 3)
	assert.Empty(t, p.acks)
}

func TestAcknowledgerDoesNotRetryClientErrors(t *testing.T) {
	p, srv := newPanel(t)
	p.status = http.StatusBadRequest
	a := NewAcknowledger(discard, newClient(srv, true), syncRunner{})

	a.Ack("cmd-1", false, "Unknown or unsupported action: X")
	assert.Len(t, p.paths, 1)
	require.Len(t, p.acks, 1)
	assert.Equal(t, StatusFailed, p.acks[0].Status)
}

func TestAcknowledgerWaitsForClaim(t *testing.T) {
	p, srv := newPanel(t)
	a := NewAcknowledger(discard, newClient(srv, false), syncRunner{})

	a.Ack("cmd-1", true, "ok")
	assert.Empty(t, p.paths)
}

func TestPollerClaimsThenExecutes(t *testing.T) {
	ctx := context.Background()
	p, srv := newPanel(t)
	store := openStore(t)
	id, err := store.ServerIdentity(ctx)
	require.NoError(t, err)

	client := NewClient(discard, Config{
		URL:       srv.URL,
		PollURL:   srv.URL + "/poll",
		ClaimURL:  srv.URL + "/claim",
		RetryWait: time.Millisecond,
	}, id)
	mod := &fakeModerator{errs: map[string]error{}}
	exec := NewExecutor(discard, mod, store, NewAcknowledger(discard, client, syncRunner{}))
	poller := NewPoller(discard, client, store, exec, time.Second)
	require.NoError(t, poller.Bootstrap(ctx))

	token, ok, err := store.ClaimToken(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	target := uuid.NewString()
	p.intents = `[{"id":"c1","action":"BAN","targetUuid":"` + target + `","reason":"cheating"}]`

	poller.Tick(ctx)
	assert.Equal(t, []string{token}, p.claims)
	assert.True(t, client.Claimed())
	assert.Empty(t, mod.calls, "the claim tick does not poll")

	_, ok, err = store.ClaimToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	poller.Tick(ctx)
	require.Len(t, mod.calls, 1)
	assert.Equal(t, "BAN", mod.calls[0].action)
	require.Len(t, p.acks, 1)
	assert.Equal(t, ack{CommandID: "c1", Status: StatusSuccess, Message: "Command executed successfully"}, p.acks[0])

	poller.Tick(ctx)
	assert.Len(t, mod.calls, 1)

	last := p.headers[len(p.headers)-1]
	assert.Equal(t, id.ServerID, last.Get("X-Server-ID"))
	assert.Equal(t, id.Secret, last.Get("X-Server-Secret"))
}

func TestPollerStopsOnCancel(t *testing.T) {
	_, srv := newPanel(t)
	store := openStore(t)
	client := newClient(srv, true)
	exec := NewExecutor(discard, &fakeModerator{}, store, NewAcknowledger(discard, client, syncRunner{}))
	poller := NewPoller(discard, client, store, exec, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	client := newClient(srv, true)
	_, err := client.Poll(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
