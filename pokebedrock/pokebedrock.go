package pokebedrock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/df-mc/dragonfly/server"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/api"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/audit"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/banlist"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/command"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/containment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/event"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/form"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/handler"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/host"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/locale"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/moderation"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/rank"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/session"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/state"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/storage"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/web"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/worker"
)

// PokeBedrock represents the main server struct.
// It holds configuration, logging, and manages various server components.
type PokeBedrock struct {
	log  *slog.Logger
	conf Config

	srv   *server.Server
	store *storage.Store
	pool  *worker.Pool

	types       *punishment.Registry
	svc         *moderation.Service
	host        *host.Host
	audit       *audit.Service
	containment *host.Containment
	poller      *web.Poller
	api         *api.Server
	handler     *handler.Deps

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPokeBedrock creates a new instance of PokeBedrock.
func NewPokeBedrock(log *slog.Logger, conf Config) (*PokeBedrock, error) {
	ctx, cancel := context.WithCancel(context.Background())
	poke := &PokeBedrock{log: log, conf: conf, ctx: ctx, cancel: cancel}
	if err := poke.setup(); err != nil {
		cancel()
		if poke.store != nil {
			_ = poke.store.Close()
		}
		return nil, err
	}
	return poke, nil
}

// setup ...
func (poke *PokeBedrock) setup() error {
	conf, log := poke.conf, poke.log

	log.Info("Opening moderation database...", "path", conf.PokeBedrock.DatabasePath)
	store, err := storage.Open(poke.ctx, log.With("subsystem", "storage"), conf.PokeBedrock.DatabasePath)
	if err != nil {
		return err
	}
	poke.store = store
	poke.types = punishment.NewRegistry()
	for _, t := range poke.types.Types() {
		if err = store.EnsureType(poke.ctx, t); err != nil {
			return fmt.Errorf("register punishment type %s: %w", t, err)
		}
	}

	bans, err := banlist.Open(conf.PokeBedrock.BanListPath)
	if err != nil {
		return fmt.Errorf("open ban list: %w", err)
	}
	roleMap, err := conf.RoleMap()
	if err != nil {
		return err
	}
	translator, err := locale.New(conf.PokeBedrock.LocalePath, conf.PokeBedrock.DefaultLocale, store)
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}

	log.Info("Starting Server...")
	c, err := conf.UserConfig.Config(log)
	if err != nil {
		return err
	}
	allower := &Allower{bans: bans}
	c.Allower = allower
	poke.srv = c.New()
	poke.srv.CloseOnProgramEnd()

	bus := event.NewBus(log.With("subsystem", "events"))
	markers := containment.NewRegistry()
	sess := session.New()
	perms := rank.NewPermissions()
	jail := NewJailConfig(conf, configPath)
	poke.host = host.New(poke.srv.World())
	poke.pool = worker.NewPool(log.With("subsystem", "workers"), conf.PokeBedrock.Workers)
	poke.audit = audit.New(log.With("subsystem", "audit"), bus, store)

	poke.svc = moderation.NewService(moderation.Config{
		Log:         log.With("subsystem", "moderation"),
		Store:       store,
		Bus:         bus,
		Cache:       state.NewCache(bus, moderation.Loader{Store: store}),
		Markers:     markers,
		Session:     sess,
		Permissions: perms,
		BanList:     bans,
		MainThread:  poke.host,
		Jail:        jail,
		Types:       poke.types,
	})
	allower.svc = poke.svc

	poke.containment = host.NewContainment(poke.host, sess, markers, func(id uuid.UUID) {
		poke.pool.Submit(func(ctx context.Context) {
			if err := poke.svc.ExpireJail(ctx, id); err != nil {
				log.Error("failed to expire jail", "player", id, "error", err)
			}
		})
	})

	poke.handler = &handler.Deps{
		Log:         log,
		Host:        poke.host,
		Service:     poke.svc,
		Markers:     markers,
		Session:     sess,
		Pool:        poke.pool,
		Locale:      translator,
		Permissions: perms,
		RoleMap:     roleMap,
	}
	if conf.Service.RolesURL != "" {
		poke.handler.Roles = rank.NewService(log, conf.Service.RolesURL)
	}

	command.Register(&command.Deps{
		Deps: &form.Deps{
			Log:     log.With("subsystem", "commands"),
			Service: poke.svc,
			Pool:    poke.pool,
			Locale:  translator,
		},
		Host:        poke.host,
		Session:     sess,
		Permissions: perms,
		Jail:        jail,
	})

	if err = poke.setupWebPanel(); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	poke.api = api.New(log.With("subsystem", "api"), api.Config{
		Address:  conf.Service.GinAddress,
		AdminKey: conf.Service.AdminKey,
	}, poke.types, poke.svc, store, store)
	return nil
}

// setupWebPanel prepares the intake of commands from the web panel if it is enabled.
func (poke *PokeBedrock) setupWebPanel() error {
	conf := poke.conf.WebPanel
	if !conf.Enabled {
		return nil
	}
	identity, err := poke.store.ServerIdentity(poke.ctx)
	if err != nil {
		return fmt.Errorf("load server identity: %w", err)
	}
	log := poke.log.With("subsystem", "web")
	client := web.NewClient(log, web.Config{
		URL:          conf.URL,
		PollURL:      conf.PollURL,
		ClaimURL:     conf.ClaimURL,
		PollInterval: conf.PollInterval.Std(),
	}, identity)
	exec := web.NewExecutor(log, poke.svc, poke.store, web.NewAcknowledger(log, client, poke.pool))
	poke.poller = web.NewPoller(log, client, poke.store, exec, conf.PollInterval.Std())
	return nil
}

// Start begins the server's main loop, accepting connections and handling players.
// It blocks until the server is closed.
func (poke *PokeBedrock) Start() {
	poke.srv.Listen()
	poke.handleWorld()

	for pl := range poke.srv.Accept() {
		poke.accept(pl)
	}

	poke.Close()
}

// handleWorld starts every background loop.
func (poke *PokeBedrock) handleWorld() {
	poke.goLoop(func(ctx context.Context) {
		poke.containment.Run(ctx, poke.conf.Containment.TickInterval.Std())
	})
	poke.goLoop(poke.audit.Run)
	poke.goLoop(poke.flushLoop)
	poke.goLoop(func(ctx context.Context) {
		if err := poke.api.Run(ctx); err != nil {
			poke.log.Error("admin api stopped", "error", err)
			sentry.CaptureException(err)
		}
	})
	if poke.poller != nil {
		poke.goLoop(func(ctx context.Context) {
			if err := poke.poller.Bootstrap(ctx); err != nil {
				poke.log.Error("failed to bootstrap web panel", "error", err)
			}
			poke.poller.Run(ctx)
		})
	}
}

// goLoop runs f until the server closes.
func (poke *PokeBedrock) goLoop(f func(ctx context.Context)) {
	poke.wg.Add(1)
	go func() {
		defer poke.wg.Done()
		f(poke.ctx)
	}()
}

// flushLoop checkpoints the database every flush interval.
func (poke *PokeBedrock) flushLoop(ctx context.Context) {
	interval := poke.conf.Database.FlushInterval.Std()
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := poke.svc.Flush(ctx); err != nil {
				poke.log.Error("failed to flush database", "error", err)
			}
		}
	}
}

// accept handles a new player joining the server.
func (poke *PokeBedrock) accept(p *player.Player) {
	h := handler.NewPlayerHandler(poke.handler)
	p.Handle(h)
	h.HandleJoin(p)
}

// Close closes the server and all its associated services.
func (poke *PokeBedrock) Close() {
	poke.log.Debug("Stopping background loops...")
	poke.cancel()
	poke.wg.Wait()
	poke.log.Debug("Stopping workers...")
	poke.pool.Close()
	poke.log.Debug("Closing moderation database...")
	if err := poke.store.Flush(context.Background()); err != nil {
		poke.log.Error("failed to flush database", "error", err)
	}
	if err := poke.store.Close(); err != nil {
		poke.log.Error("failed to close database", "error", err)
	}
}

// World returns the default world.
func (poke *PokeBedrock) World() *world.World {
	return poke.srv.World()
}
