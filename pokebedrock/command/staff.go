package command

import (
	"context"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/form"
)

// Moderate opens the moderation menu of a player.
type Moderate struct {
	staff
	Target string `cmd:"target"`
}

// Run ...
func (c Moderate) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	if p, ok := c.playerOnly(src, o); ok {
		p.SendForm(form.NewModerate(c.d.Deps, p, c.Target))
	}
}

// Vanish hides the player running it from everyone who may not see vanished staff.
type Vanish struct {
	staff
}

// Run ...
func (c Vanish) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
	p, ok := c.playerOnly(src, o)
	if !ok {
		return
	}
	target := c.d.Host.Adapt(tx, p).Target()
	ec := form.Issuer(p)
	c.d.Pool.Submit(func(ctx context.Context) {
		if _, err := c.d.Service.ToggleVanish(ctx, target, ec); err != nil {
			c.d.Log.Error("failed to toggle vanish", "player", target.Name, "error", err)
		}
	})
}

// ChatLock locks or unlocks the chat for every player without the bypass permission.
type ChatLock struct {
	staff
}

// Run ...
func (c ChatLock) Run(src cmd.Source, _ *cmd.Output, tx *world.Tx) {
	key := "command.chatlock.off"
	if c.d.Session.ToggleChatLock() {
		key = "command.chatlock.on"
	}
	for ent := range tx.Players() {
		p := ent.(*player.Player)
		p.Message(c.d.Locale.Translate(p.UUID(), key))
	}
	c.d.Log.Info("chat lock toggled", "actor", form.Issuer(sourcePlayer(src)).IssuerName, "locked", c.d.Session.ChatLocked())
}

// StaffChat sends a message to the staff chat.
type StaffChat struct {
	staff
	Message cmd.Varargs `cmd:"message"`
}

// Run ...
func (c StaffChat) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
	p, ok := c.playerOnly(src, o)
	if !ok {
		return
	}
	c.d.Service.StaffChat(c.d.Host.Wrap(tx), c.d.Host.Adapt(tx, p), string(c.Message))
}

// Report forwards a report about a player to staff.
type Report struct {
	staff
	Target string      `cmd:"target"`
	Reason cmd.Varargs `cmd:"reason"`
}

// Run ...
func (c Report) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
	p, ok := c.playerOnly(src, o)
	if !ok {
		return
	}
	if !c.d.Service.Report(c.d.Host.Wrap(tx), c.d.Host.Adapt(tx, p), c.Target, string(c.Reason)) {
		o.Error(c.d.Locale.Translate(p.UUID(), "command.report.cooldown"))
		return
	}
	o.Print(c.d.Locale.Translate(p.UUID(), "command.report.success", c.Target))
}
