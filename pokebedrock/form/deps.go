// Package form provides the moderation forms sent to staff.
package form

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/locale"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/moderation"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/util"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/worker"
)

// Deps holds what forms and commands need to run moderation actions.
type Deps struct {
	Log     *slog.Logger
	Service *moderation.Service
	Pool    *worker.Pool
	Locale  *locale.Translator
}

// Issuer returns the execution context of an action started by p, or the console if p is nil.
func Issuer(p *player.Player) punishment.ExecutionContext {
	if p == nil {
		return punishment.Console()
	}
	return punishment.Command(p.UUID(), p.Name())
}

// Messenger returns a function translating and sending messages to p from any goroutine. Messages for a nil p
// are logged for the console instead. Messages to a player that left are dropped.
func (d *Deps) Messenger(p *player.Player) func(key string, args ...any) {
	if p == nil {
		return func(key string, args ...any) {
			d.Log.Info(text.Clean(d.Locale.TranslateL(d.Locale.Default(), key, args...)))
		}
	}
	id, handle := p.UUID(), p.H()
	return func(key string, args ...any) {
		msg := d.Locale.Translate(id, key, args...)
		handle.ExecWorld(func(_ *world.Tx, e world.Entity) {
			e.(*player.Player).Message(msg)
		})
	}
}

// Failure sends the localised reason an action against name failed.
func (d *Deps) Failure(send func(key string, args ...any), p *player.Player, verb, name string, err error) {
	lang := d.Locale.Default()
	if p != nil {
		lang = d.Locale.Of(p.UUID())
	}
	send("command.failed", verb, name, d.Locale.TranslateL(lang, moderation.MessageKey(err)))
}

// Punish applies a punishment of type t to target. A positive d makes bans and mutes temporary.
func (d *Deps) Punish(ctx context.Context, t punishment.Type, target punishment.Target, reason string, dur time.Duration, ec punishment.ExecutionContext) (punishment.Punishment, error) {
	svc := d.Service
	switch t {
	case punishment.Ban:
		if dur > 0 {
			return svc.TempBan(ctx, target, reason, dur, ec)
		}
		return svc.Ban(ctx, target, reason, ec)
	case punishment.Mute:
		if dur > 0 {
			return svc.TempMute(ctx, target, reason, dur, ec)
		}
		return svc.Mute(ctx, target, reason, ec)
	case punishment.Kick:
		return svc.Kick(ctx, target, reason, ec)
	case punishment.Warn:
		return svc.Warn(ctx, target, reason, ec)
	case punishment.Jail:
		return svc.Jail(ctx, target, reason, dur, ec)
	case punishment.Freeze:
		return svc.Freeze(ctx, target, reason, ec)
	}
	return punishment.Punishment{}, moderation.ErrNotActive
}

// Lift lifts the active punishment of type t of target.
func (d *Deps) Lift(ctx context.Context, t punishment.Type, target punishment.Target, ec punishment.ExecutionContext) error {
	svc := d.Service
	switch t {
	case punishment.Ban:
		return svc.Unban(ctx, target, ec)
	case punishment.Mute:
		return svc.Unmute(ctx, target, ec)
	case punishment.Jail:
		return svc.Unjail(ctx, target, ec)
	case punishment.Freeze:
		return svc.Unfreeze(ctx, target, ec)
	}
	return moderation.ErrNotActive
}

// successKey returns the locale key confirming a punishment of type t.
func successKey(t punishment.Type, temporary bool) string {
	name := strings.ToLower(t.String())
	if temporary && t != punishment.Kick && t != punishment.Warn && t != punishment.Freeze {
		name = "temp" + name
	}
	return "command." + name + ".success"
}

// liftKey returns the locale key confirming a lifted punishment of type t.
func liftKey(t punishment.Type) string {
	return "command.un" + strings.ToLower(t.String()) + ".success"
}

// Run resolves the player named name and runs f on the pool. The outcome is reported back to p, or logged if p
// is nil.
func (d *Deps) Run(p *player.Player, verb, name string, f func(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) (string, []any, error)) {
	send, ec := d.Messenger(p), Issuer(p)
	d.Pool.Submit(func(ctx context.Context) {
		target, err := d.Service.ResolveTarget(ctx, name)
		if err == nil {
			var (
				key  string
				args []any
			)
			if key, args, err = f(ctx, target, ec); err == nil {
				send(key, args...)
				return
			}
		}
		d.Failure(send, p, verb, name, err)
	})
}

// Apply runs the punishment of type t against the player named name on behalf of p.
func (d *Deps) Apply(p *player.Player, t punishment.Type, name, reason string, dur time.Duration) {
	d.Run(p, strings.ToLower(t.String()), name, func(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) (string, []any, error) {
		pun, err := d.Punish(ctx, t, target, reason, dur, ec)
		if err != nil {
			return "", nil, err
		}
		if pun.Permanent() {
			return successKey(t, false), []any{target.Display()}, nil
		}
		return successKey(t, true), []any{target.Display(), util.FormatDuration(pun.Duration)}, nil
	})
}

// Revoke lifts the punishment of type t of the player named name on behalf of p.
func (d *Deps) Revoke(p *player.Player, t punishment.Type, name string) {
	d.Run(p, "un"+strings.ToLower(t.String()), name, func(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) (string, []any, error) {
		if err := d.Lift(ctx, t, target, ec); err != nil {
			return "", nil, err
		}
		return liftKey(t), []any{target.Display()}, nil
	})
}
