package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/locale"
)

// SetJail moves the jail to the position of the player running it and saves it to the config.
type SetJail struct {
	staff
	Radius cmd.Optional[float64] `cmd:"radius"`
}

// Run ...
func (c SetJail) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	p, ok := c.playerOnly(src, o)
	if !ok {
		return
	}
	pos := p.Position()
	send := c.d.Messenger(p)
	c.d.Pool.Submit(func(context.Context) {
		radius, err := c.d.Jail.SetJail(pos, c.Radius.LoadOr(0))
		if err != nil {
			c.d.Log.Error("failed to save jail", "error", err)
			c.d.Failure(send, p, "set", "the jail", err)
			return
		}
		send("command.setjail.success", fmt.Sprintf("%.1f, %.1f, %.1f", pos[0], pos[1], pos[2]), radius)
	})
}

// Flush checkpoints the moderation database to disk.
type Flush struct {
	staff
}

// Run ...
func (c Flush) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	p := sourcePlayer(src)
	send := c.d.Messenger(p)
	c.d.Pool.Submit(func(ctx context.Context) {
		if err := c.d.Service.Flush(ctx); err != nil {
			c.d.Failure(send, p, "flush", "the database", err)
			return
		}
		send("command.flush.success")
	})
}

// Language sets the language messages are sent to the player running it in.
type Language struct {
	staff
	Code string `cmd:"code"`
}

// Run ...
func (c Language) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	p, ok := c.playerOnly(src, o)
	if !ok {
		return
	}
	id, code := p.UUID(), c.Code
	send := c.d.Messenger(p)
	c.d.Pool.Submit(func(ctx context.Context) {
		tag, err := c.d.Locale.Set(ctx, id, code)
		switch {
		case errors.Is(err, locale.ErrUnknownLocale):
			send("command.locale.unknown", code)
		case err != nil:
			c.d.Log.Error("failed to save language", "player", id, "error", err)
			c.d.Failure(send, p, "set", "your language", err)
		default:
			send("command.locale.set", tag.String())
		}
	})
}
