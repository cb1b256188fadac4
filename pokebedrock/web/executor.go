package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/lo"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/moderation"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

// processedMemoSize is the number of recently processed command ids kept in memory.
const processedMemoSize = 1024

// Ack messages.
const (
	msgDuplicate = "Duplicate: Already processed"
	msgSuccess   = "Command executed successfully"
	msgRejected  = "Command execution returned false (e.g., player offline or bypassed)"
)

// Moderator is the set of moderation operations reachable from the panel. It is implemented by
// moderation.Service.
type Moderator interface {
	Ban(ctx context.Context, target punishment.Target, reason string, ec punishment.ExecutionContext) (punishment.Punishment, error)
	TempBan(ctx context.Context, target punishment.Target, reason string, d time.Duration, ec punishment.ExecutionContext) (punishment.Punishment, error)
	Mute(ctx context.Context, target punishment.Target, reason string, ec punishment.ExecutionContext) (punishment.Punishment, error)
	TempMute(ctx context.Context, target punishment.Target, reason string, d time.Duration, ec punishment.ExecutionContext) (punishment.Punishment, error)
	Kick(ctx context.Context, target punishment.Target, reason string, ec punishment.ExecutionContext) (punishment.Punishment, error)
	Warn(ctx context.Context, target punishment.Target, reason string, ec punishment.ExecutionContext) (punishment.Punishment, error)
	Unban(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) error
	Unmute(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) error
	Jail(ctx context.Context, target punishment.Target, reason string, d time.Duration, ec punishment.ExecutionContext) (punishment.Punishment, error)
	Unjail(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) error
	Freeze(ctx context.Context, target punishment.Target, reason string, ec punishment.ExecutionContext) (punishment.Punishment, error)
	Unfreeze(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) error
	ToggleVanish(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) (bool, error)
	ResolveTarget(ctx context.Context, name string) (punishment.Target, error)
}

// Ledger records which commands were already processed.
type Ledger interface {
	HasProcessedCommand(ctx context.Context, id string) (bool, error)
	MarkCommandProcessed(ctx context.Context, id string) error
}

// Acker reports the outcome of a command.
type Acker interface {
	Ack(commandID string, success bool, message string)
}

// action runs one intent against the moderator.
type action func(ctx context.Context, m Moderator, t punishment.Target, i Intent, ec punishment.ExecutionContext) error

// actions ...
var actions = map[string]action{
	"BAN": func(ctx context.Context, m Moderator, t punishment.Target, i Intent, ec punishment.ExecutionContext) error {
		_, err := m.Ban(ctx, t, i.Reason, ec)
		return err
	},
	"TEMPBAN": func(ctx context.Context, m Moderator, t punishment.Target, i Intent, ec punishment.ExecutionContext) error {
		_, err := m.TempBan(ctx, t, i.Reason, i.Duration(), ec)
		return err
	},
	"MUTE": func(ctx context.Context, m Moderator, t punishment.Target, i Intent, ec punishment.ExecutionContext) error {
		_, err := m.Mute(ctx, t, i.Reason, ec)
		return err
	},
	"TEMPMUTE": func(ctx context.Context, m Moderator, t punishment.Target, i Intent, ec punishment.ExecutionContext) error {
		_, err := m.TempMute(ctx, t, i.Reason, i.Duration(), ec)
		return err
	},
	"KICK": func(ctx context.Context, m Moderator, t punishment.Target, i Intent, ec punishment.ExecutionContext) error {
		_, err := m.Kick(ctx, t, i.Reason, ec)
		return err
	},
	"WARN": func(ctx context.Context, m Moderator, t punishment.Target, i Intent, ec punishment.ExecutionContext) error {
		_, err := m.Warn(ctx, t, i.Reason, ec)
		return err
	},
	"UNBAN": func(ctx context.Context, m Moderator, t punishment.Target, _ Intent, ec punishment.ExecutionContext) error {
		return m.Unban(ctx, t, ec)
	},
	"UNMUTE": func(ctx context.Context, m Moderator, t punishment.Target, _ Intent, ec punishment.ExecutionContext) error {
		return m.Unmute(ctx, t, ec)
	},
	"JAIL": func(ctx context.Context, m Moderator, t punishment.Target, i Intent, ec punishment.ExecutionContext) error {
		_, err := m.Jail(ctx, t, i.Reason, i.Duration(), ec)
		return err
	},
	"UNJAIL": func(ctx context.Context, m Moderator, t punishment.Target, _ Intent, ec punishment.ExecutionContext) error {
		return m.Unjail(ctx, t, ec)
	},
	"FREEZE": func(ctx context.Context, m Moderator, t punishment.Target, i Intent, ec punishment.ExecutionContext) error {
		_, err := m.Freeze(ctx, t, i.Reason, ec)
		return err
	},
	"UNFREEZE": func(ctx context.Context, m Moderator, t punishment.Target, _ Intent, ec punishment.ExecutionContext) error {
		return m.Unfreeze(ctx, t, ec)
	},
	"VANISH": func(ctx context.Context, m Moderator, t punishment.Target, _ Intent, ec punishment.ExecutionContext) error {
		_, err := m.ToggleVanish(ctx, t, ec)
		return err
	},
}

// rejections are the moderation errors reported as a refused command rather than a failure.
var rejections = []error{
	moderation.ErrBypass,
	moderation.ErrOffline,
	moderation.ErrAlreadyActive,
	moderation.ErrNotActive,
	moderation.ErrNoJail,
	moderation.ErrCancelled,
	moderation.ErrInvalidDuration,
	moderation.ErrUnknownPlayer,
}

// Executor runs polled commands at most once each and acknowledges every outcome.
type Executor struct {
	log    *slog.Logger
	mod    Moderator
	ledger Ledger
	acker  Acker
	memo   *lru.Cache[string, struct{}]
}

// NewExecutor ...
func NewExecutor(log *slog.Logger, mod Moderator, ledger Ledger, acker Acker) *Executor {
	memo, err := lru.New[string, struct{}](processedMemoSize)
	if err != nil {
		panic(err)
	}
	return &Executor{log: log, mod: mod, ledger: ledger, acker: acker, memo: memo}
}

// ProcessIntents executes intents in order.
func (e *Executor) ProcessIntents(ctx context.Context, intents []Intent) {
	for _, i := range intents {
		if ctx.Err() != nil {
			return
		}
		e.process(ctx, i)
	}
}

// process ...
func (e *Executor) process(ctx context.Context, i Intent) {
	if i.ID == "" {
		return
	}
	done, err := e.processed(ctx, i.ID)
	if err != nil {
		// Left unmarked so the next poll retries it.
		e.log.Error("failed to check processed command", "command", i.ID, "error", err)
		intentsProcessed.WithLabelValues("error").Inc()
		return
	}
	if done {
		intentsProcessed.WithLabelValues("duplicate").Inc()
		e.acker.Ack(i.ID, true, msgDuplicate)
		return
	}
	if err = e.ledger.MarkCommandProcessed(ctx, i.ID); err != nil {
		e.log.Error("failed to mark command processed", "command", i.ID, "error", err)
		intentsProcessed.WithLabelValues("error").Inc()
		return
	}
	e.memo.Add(i.ID, struct{}{})

	name := strings.ToUpper(strings.TrimSpace(i.Action))
	e.log.Info("processing web command", "command", i.ID, "action", name)

	run, ok := actions[name]
	if !ok {
		e.log.Warn("unknown web action", "command", i.ID, "action", name)
		intentsProcessed.WithLabelValues("unknown").Inc()
		e.acker.Ack(i.ID, false, "Unknown or unsupported action: "+name)
		return
	}

	ec := punishment.Web(i.Issuer(), i.IssuerName)
	target, err := e.target(ctx, i)
	if err == nil {
		err = run(ctx, e.mod, target, i, ec)
	}
	switch {
	case err == nil:
		intentsProcessed.WithLabelValues("success").Inc()
		e.acker.Ack(i.ID, true, msgSuccess)
	case rejected(err):
		intentsProcessed.WithLabelValues("rejected").Inc()
		e.acker.Ack(i.ID, false, fmt.Sprintf("%s: %s", msgRejected, err))
	default:
		e.log.Error("failed to execute web command", "command", i.ID, "action", name, "error", err)
		intentsProcessed.WithLabelValues("error").Inc()
		e.acker.Ack(i.ID, false, "Exception: "+err.Error())
	}
}

// processed checks the in-memory memo before the store.
func (e *Executor) processed(ctx context.Context, id string) (bool, error) {
	if e.memo.Contains(id) {
		return true, nil
	}
	done, err := e.ledger.HasProcessedCommand(ctx, id)
	if err != nil {
		return false, err
	}
	if done {
		e.memo.Add(id, struct{}{})
	}
	return done, nil
}

// target resolves the player an intent is aimed at, falling back to a name lookup when no uuid was sent.
func (e *Executor) target(ctx context.Context, i Intent) (punishment.Target, error) {
	if id, err := uuid.Parse(strings.TrimSpace(i.TargetUUID)); err == nil {
		return punishment.Target{UUID: id, Name: i.TargetName}, nil
	}
	if strings.TrimSpace(i.TargetName) == "" {
		return punishment.Target{}, moderation.ErrUnknownPlayer
	}
	return e.mod.ResolveTarget(ctx, i.TargetName)
}

// rejected ...
func rejected(err error) bool {
	return lo.ContainsBy(rejections, func(r error) bool {
		return errors.Is(err, r)
	})
}
