// Package moderation implements the punishment pipelines of the server: validation, events, persistence and
// the live effects of every punishment.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/containment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/event"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/session"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/state"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/storage"
)

// Config holds the dependencies of a Service.
type Config struct {
	Log         *slog.Logger
	Store       *storage.Store
	Bus         *event.Bus
	Cache       *state.Cache
	Markers     *containment.Registry
	Session     *session.Session
	Permissions Permissions
	BanList     BanList
	MainThread  MainThread
	Jail        JailSource
	// Types holds the known punishment types. Nil uses the built-in types.
	Types       *punishment.Registry
}

// Service runs the moderation pipelines. Its methods block on storage and on the main thread, so they must
// never be called from the main thread itself.
type Service struct {
	log     *slog.Logger
	store   *storage.Store
	bus     *event.Bus
	cache   *state.Cache
	markers *containment.Registry
	session *session.Session
	perms   Permissions
	bans    BanList
	main    MainThread
	jail    JailSource

	locks *xsync.MapOf[uuid.UUID, *sync.Mutex]
	types *punishment.Registry
}

// NewService ...
func NewService(c Config) *Service {
	if c.Types == nil {
		c.Types = punishment.NewRegistry()
	}
	return &Service{
		log:     c.Log,
		store:   c.Store,
		bus:     c.Bus,
		cache:   c.Cache,
		markers: c.Markers,
		session: c.Session,
		perms:   c.Permissions,
		bans:    c.BanList,
		main:    c.MainThread,
		jail:    c.Jail,
		locks:   xsync.NewMapOf[uuid.UUID, *sync.Mutex](),
		types:   c.Types,
	}
}

// Types returns the punishment types known to the service.
func (s *Service) Types() *punishment.Registry {
	return s.types
}

// lock serialises the pipelines acting on the same target and returns the function releasing the lock.
func (s *Service) lock(id uuid.UUID) func() {
	mu, _ := s.locks.LoadOrCompute(id, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	mu.Lock()
	return mu.Unlock
}

// exec runs f on the main thread and waits for it to return.
func (s *Service) exec(ctx context.Context, f func(w World)) error {
	select {
	case <-s.main.Exec(f):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// online reports whether a player is online.
func (s *Service) online(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := s.exec(ctx, func(w World) {
		_, ok = w.Player(id)
	})
	return ok, err
}

// fail logs and reports an unexpected error and returns it wrapped with op.
func (s *Service) fail(op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	s.log.Error("moderation operation failed", "op", op, "error", err)
	sentry.CaptureException(err)
	return err
}

// reject counts a punishment that failed validation and returns err.
func (s *Service) reject(t punishment.Type, err error) error {
	punishmentsRejected.WithLabelValues(t.String()).Inc()
	return err
}

// player returns the stored record of target, creating it if the player was never seen.
func (s *Service) player(ctx context.Context, target *punishment.Target) (storage.Player, error) {
	pl, err := s.store.PlayerByUUID(ctx, target.UUID)
	if errors.Is(err, storage.ErrNotFound) {
		pl, err = s.store.GetOrCreatePlayer(ctx, target.UUID, target.Name)
	}
	if err != nil {
		return storage.Player{}, s.fail("load player", err)
	}
	if target.Name == "" {
		target.Name = pl.Username
	}
	return pl, nil
}

// preApply dispatches the PunishmentPreApply event of p and returns the punishment as left by the listeners.
func (s *Service) preApply(ctx context.Context, p punishment.Punishment) (punishment.Punishment, error) {
	e := event.NewPunishmentPreApply(p)
	if err := s.exec(ctx, func(World) { s.bus.Dispatch(e) }); err != nil {
		return p, err
	}
	if e.Cancelled() {
		return p, s.reject(p.Type, ErrCancelled)
	}
	return e.Punishment, nil
}

// staffAction dispatches a cancellable staff action event.
func (s *Service) staffAction(ctx context.Context, e interface {
	event.Event
	Cancelled() bool
}) error {
	if err := s.exec(ctx, func(World) { s.bus.Dispatch(e) }); err != nil {
		return err
	}
	if e.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// hasActive reports whether a player has an active punishment of type t in storage.
func (s *Service) hasActive(ctx context.Context, playerID int64, t punishment.Type) (bool, error) {
	recs, err := s.store.ActivePunishmentsByType(ctx, playerID, t)
	if err != nil {
		return false, s.fail("check active punishments", err)
	}
	return len(recs) > 0, nil
}

// persist stores p and returns it with its record id set.
func (s *Service) persist(ctx context.Context, playerID int64, p punishment.Punishment, active bool) (punishment.Punishment, error) {
	rec, err := s.store.CreatePunishment(ctx, storage.Record{
		PlayerID:   playerID,
		Type:       p.Type,
		IssuerUUID: p.Actor.String(),
		Reason:     p.Reason,
		CreatedAt:  p.CreatedAt,
		ExpiresAt:  p.ExpiresAt(),
		Active:     active,
		ExtraData:  p.Extra,
	})
	if errors.Is(err, storage.ErrDuplicateActive) {
		return p, s.reject(p.Type, ErrAlreadyActive)
	}
	if err != nil {
		return p, s.fail("persist punishment", err)
	}
	p.RecordID = rec.ID
	return p, nil
}

// applied dispatches PunishmentApplied and notifies staff. It must be called on the main thread.
func (s *Service) applied(w World, p punishment.Punishment, verb string) {
	s.bus.Dispatch(&event.PunishmentApplied{Punishment: p})
	punishmentsApplied.WithLabelValues(p.Type.String()).Inc()
	s.notify(w, p.ActorName, verb, p.TargetName, p.Reason, p.Silent)
}

// expired dispatches PunishmentExpired and notifies staff if verb is set. It must be called on the main thread.
func (s *Service) expired(w World, p punishment.Punishment, lifter punishment.ExecutionContext, verb string) {
	s.bus.Dispatch(&event.PunishmentExpired{Punishment: p, Lifter: lifter})
	punishmentsExpired.WithLabelValues(p.Type.String()).Inc()
	if verb != "" {
		s.notify(w, lifter.IssuerName, verb, p.TargetName, "", false)
	}
}

// notify sends a staff notification to every online player allowed to see it. Silent notifications are only
// logged. It must be called on the main thread.
func (s *Service) notify(w World, actor, verb, target, reason string, silent bool) {
	msg := fmt.Sprintf("[Staff] %s %s %s", actor, verb, target)
	if reason != "" {
		msg += fmt.Sprintf(" (%s)", reason)
	}
	s.log.Info(msg, "silent", silent)
	if silent {
		return
	}

	s.broadcast(w, PermissionNotify, text.Colourf("<grey>%s</grey>", msg))
}

// expireStale deactivates the active punishments of a player that have run out and dispatches their expiry.
func (s *Service) expireStale(ctx context.Context, target punishment.Target, playerID int64, types ...punishment.Type) error {
	due, err := s.store.Punishments(ctx, storage.Filter{
		PlayerID:   playerID,
		ActiveOnly: true,
		Types:      types,
		ExpiredAt:  time.Now(),
	})
	if err != nil {
		return s.fail("load due expirations", err)
	}
	if len(due) == 0 {
		return nil
	}

	expired := make([]punishment.Punishment, 0, len(due))
	for _, rec := range due {
		if err = s.store.DeactivatePunishment(ctx, rec.ID); err != nil {
			return s.fail("expire punishment", err)
		}
		if rec.Type == punishment.Ban {
			if _, err = s.bans.Remove(target.UUID); err != nil {
				s.log.Error("failed to remove expired ban from the ban list", "player", target.UUID, "error", err)
			}
		}
		expired = append(expired, fromRecord(rec, target))
	}
	return s.exec(ctx, func(w World) {
		for _, p := range expired {
			s.expired(w, p, punishment.Console(), "")
		}
	})
}

// fromRecord converts a stored punishment of target.
func fromRecord(rec storage.Record, target punishment.Target) punishment.Punishment {
	actor, err := uuid.Parse(rec.IssuerUUID)
	if err != nil {
		actor = punishment.ConsoleUUID
	}
	return punishment.Punishment{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte("punishment:"+strconv.FormatInt(rec.ID, 10))),
		RecordID:   rec.ID,
		Target:     target.UUID,
		TargetName: target.Name,
		Actor:      actor,
		Type:       rec.Type,
		Duration:   rec.Duration(),
		Reason:     rec.Reason,
		Extra:      rec.ExtraData,
		CreatedAt:  rec.CreatedAt,
	}
}

// cached returns the cached punishment of type t of target, or a new one built from ec if none is cached.
func (s *Service) cached(target punishment.Target, t punishment.Type, ec punishment.ExecutionContext) punishment.Punishment {
	if p, ok := s.cache.Active(target.UUID, t); ok {
		if p.TargetName == "" {
			p.TargetName = target.Name
		}
		return p
	}
	return punishment.New(t, target, ec, "", 0)
}
