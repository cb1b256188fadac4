package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/storage"
)

const key = "admin-key"

type history map[uuid.UUID][]storage.Record

func (h history) History(_ context.Context, id uuid.UUID) ([]storage.Record, error) {
	return h[id], nil
}

func newTestServer(t *testing.T, h history) (*Server, *storage.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.Open(context.Background(), log, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(log, Config{AdminKey: key}, punishment.NewRegistry(), h, store, store), store
}

func get(t *testing.T, s *Server, path string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth {
		req.Header.Set("Authorization", key)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthNeedsNoKey(t *testing.T) {
	s, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, get(t, s, "/health", false).Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, s, "/audit", false).Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, s, "/metrics", false).Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/metrics", true).Code)
}

func TestPunishments(t *testing.T) {
	id := uuid.New()
	created := time.Now().Truncate(time.Second)
	s, _ := newTestServer(t, history{id: {
		{ID: 2, Type: punishment.Mute, Reason: "spam", CreatedAt: created, ExpiresAt: created.Add(time.Hour), Active: true},
		{ID: 1, Type: punishment.Ban, Reason: "cheating", CreatedAt: created},
	}})

	rec := get(t, s, "/players/"+id.String()+"/punishments", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var views []punishmentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "MUTE", views[0].Type)
	require.NotNil(t, views[0].ExpiresAt)
	assert.True(t, views[0].ExpiresAt.Equal(created.Add(time.Hour)))
	assert.Nil(t, views[1].ExpiresAt)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/players/nope/punishments", true).Code)
}

func TestPunishmentsByType(t *testing.T) {
	id := uuid.New()
	s, _ := newTestServer(t, history{id: {
		{ID: 3, Type: punishment.Warn, Reason: "language"},
		{ID: 2, Type: punishment.Mute, Reason: "spam"},
		{ID: 1, Type: punishment.Warn, Reason: "caps"},
	}})

	rec := get(t, s, "/players/"+id.String()+"/punishments?type=warn", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []punishmentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, int64(3), views[0].ID)
	assert.Equal(t, int64(1), views[1].ID)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/players/"+id.String()+"/punishments?type=slap", true).Code)
}

func TestAudit(t *testing.T) {
	s, store := newTestServer(t, nil)
	target := uuid.NewString()
	for i := range 3 {
		_, err := store.InsertAudit(context.Background(), storage.AuditEntry{
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
			Actor:     "actor",
			Action:    "PUNISH_APPLIED",
			Target:    target,
		})
		require.NoError(t, err)
	}

	var entries []storage.AuditEntry
	rec := get(t, s, "/audit?limit=2", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)

	rec = get(t, s, "/audit?target="+uuid.NewString(), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/audit?limit=zero", true).Code)
}

func TestClaim(t *testing.T) {
	s, store := newTestServer(t, nil)

	var body map[string]any
	rec := get(t, s, "/claim", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["claimed"])
	token, ok := body["claim_token"].(string)
	require.True(t, ok)

	claimed, err := store.CompleteClaim(context.Background(), token)
	require.NoError(t, err)
	require.True(t, claimed)

	body = nil
	rec = get(t, s, "/claim", true)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["claimed"])
	assert.NotContains(t, body, "claim_token")
}
