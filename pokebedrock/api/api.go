// Package api serves the admin HTTP API of the moderation engine.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/storage"
)

const (
	// defaultAuditLimit is the number of audit entries returned when no limit is given.
	defaultAuditLimit = 50
	// maxAuditLimit ...
	maxAuditLimit = 500
)

// History returns the punishments of a player, newest first.
type History interface {
	History(ctx context.Context, id uuid.UUID) ([]storage.Record, error)
}

// Types resolves punishment type names.
type Types interface {
	Lookup(name string) (punishment.Type, bool)
}

// AuditLog reads the persisted audit log.
type AuditLog interface {
	RecentAudit(ctx context.Context, limit uint64) ([]storage.AuditEntry, error)
	AuditForTarget(ctx context.Context, target string, limit uint64) ([]storage.AuditEntry, error)
}

// Identity reads the identity of the server on the web panel.
type Identity interface {
	ServerIdentity(ctx context.Context) (storage.Identity, error)
	ClaimToken(ctx context.Context) (string, bool, error)
}

// Config ...
type Config struct {
	Address string
	// AdminKey is compared to the authorization header of every request but health checks.
	AdminKey string
}

// Server ...
type Server struct {
	log    *slog.Logger
	conf   Config
	router *gin.Engine

	types    Types
	history  History
	audit    AuditLog
	identity Identity
}

// New ...
func New(log *slog.Logger, conf Config, types Types, history History, audit AuditLog, identity Identity) *Server {
	s := &Server{
		log:      log,
		conf:     conf,
		types:    types,
		history:  history,
		audit:    audit,
		identity: identity,
	}
	s.router = s.routes()
	return s
}

// Handler returns the router of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves the API until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.conf.Address, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("admin api listening", "address", s.conf.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// routes ...
func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authorised := router.Group("/", s.authorise)
	authorised.GET("/metrics", gin.WrapH(promhttp.Handler()))
	authorised.GET("/players/:uuid/punishments", s.punishments)
	authorised.GET("/audit", s.auditLog)
	authorised.GET("/claim", s.claim)
	return router
}

// authorise ...
func (s *Server) authorise(c *gin.Context) {
	if s.conf.AdminKey == "" || c.GetHeader("authorization") != s.conf.AdminKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

// punishmentView is the JSON shape of a stored punishment.
type punishmentView struct {
	ID        int64      `json:"id"`
	Type      string     `json:"type"`
	Issuer    string     `json:"issuer"`
	Reason    string     `json:"reason"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	Active    bool       `json:"active"`
}

// punishments ...
func (s *Server) punishments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}
	var t punishment.Type
	if raw := c.Query("type"); raw != "" {
		var ok bool
		if t, ok = s.types.Lookup(raw); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown punishment type"})
			return
		}
	}
	recs, err := s.history.History(c.Request.Context(), id)
	if err != nil {
		s.internal(c, "load history", err)
		return
	}
	if t != "" {
		recs = lo.Filter(recs, func(r storage.Record, _ int) bool {
			return r.Type == t
		})
	}
	c.JSON(http.StatusOK, lo.Map(recs, func(r storage.Record, _ int) punishmentView {
		v := punishmentView{
			ID:        r.ID,
			Type:      r.Type.String(),
			Issuer:    r.IssuerUUID,
			Reason:    r.Reason,
			CreatedAt: r.CreatedAt,
			Active:    r.Active,
		}
		if !r.Permanent() {
			v.ExpiresAt = lo.ToPtr(r.ExpiresAt)
		}
		return v
	}))
}

// auditLog ...
func (s *Server) auditLog(c *gin.Context) {
	limit := uint64(defaultAuditLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxAuditLimit)
	}

	var (
		entries []storage.AuditEntry
		err     error
	)
	if target := c.Query("target"); target != "" {
		entries, err = s.audit.AuditForTarget(c.Request.Context(), target, limit)
	} else {
		entries, err = s.audit.RecentAudit(c.Request.Context(), limit)
	}
	if err != nil {
		s.internal(c, "load audit log", err)
		return
	}
	if entries == nil {
		entries = []storage.AuditEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// claim returns the identity of the server and, while it is unclaimed, the token used to claim it.
func (s *Server) claim(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := s.identity.ServerIdentity(ctx)
	if err != nil {
		s.internal(c, "load server identity", err)
		return
	}
	resp := gin.H{"server_id": id.ServerID, "claimed": id.Claimed}
	if !id.Claimed {
		token, ok, err := s.identity.ClaimToken(ctx)
		if err != nil {
			s.internal(c, "load claim token", err)
			return
		}
		if ok {
			resp["claim_token"] = token
		}
	}
	c.JSON(http.StatusOK, resp)
}

// internal ...
func (s *Server) internal(c *gin.Context, op string, err error) {
	s.log.Error("admin api request failed", "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
