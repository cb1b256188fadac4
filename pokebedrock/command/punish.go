package command

import (
	"strings"
	"time"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/util"
)

// Ban permanently bans a player, online or not.
type Ban struct {
	staff
	Target string                    `cmd:"target"`
	Reason cmd.Optional[cmd.Varargs] `cmd:"reason"`
}

// Run ...
func (c Ban) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	c.d.Apply(sourcePlayer(src), punishment.Ban, c.Target, string(c.Reason.LoadOr("")), 0)
}

// TempBan bans a player for a duration such as 1d12h.
type TempBan struct {
	staff
	Target   string                    `cmd:"target"`
	Duration string                    `cmd:"duration"`
	Reason   cmd.Optional[cmd.Varargs] `cmd:"reason"`
}

// Run ...
func (c TempBan) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	if d, ok := c.duration(src, o, c.Duration); ok {
		c.d.Apply(sourcePlayer(src), punishment.Ban, c.Target, string(c.Reason.LoadOr("")), d)
	}
}

// Unban ...
type Unban struct {
	staff
	Target string `cmd:"target"`
}

// Run ...
func (c Unban) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	c.d.Revoke(sourcePlayer(src), punishment.Ban, c.Target)
}

// Mute permanently mutes a player.
type Mute struct {
	staff
	Target string                    `cmd:"target"`
	Reason cmd.Optional[cmd.Varargs] `cmd:"reason"`
}

// Run ...
func (c Mute) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	c.d.Apply(sourcePlayer(src), punishment.Mute, c.Target, string(c.Reason.LoadOr("")), 0)
}

// TempMute mutes a player for a duration.
type TempMute struct {
	staff
	Target   string                    `cmd:"target"`
	Duration string                    `cmd:"duration"`
	Reason   cmd.Optional[cmd.Varargs] `cmd:"reason"`
}

// Run ...
func (c TempMute) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	if d, ok := c.duration(src, o, c.Duration); ok {
		c.d.Apply(sourcePlayer(src), punishment.Mute, c.Target, string(c.Reason.LoadOr("")), d)
	}
}

// Unmute ...
type Unmute struct {
	staff
	Target string `cmd:"target"`
}

// Run ...
func (c Unmute) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	c.d.Revoke(sourcePlayer(src), punishment.Mute, c.Target)
}

// Kick disconnects an online player.
type Kick struct {
	staff
	Target string                    `cmd:"target"`
	Reason cmd.Optional[cmd.Varargs] `cmd:"reason"`
}

// Run ...
func (c Kick) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	c.d.Apply(sourcePlayer(src), punishment.Kick, c.Target, string(c.Reason.LoadOr("")), 0)
}

// Warn ...
type Warn struct {
	staff
	Target string                    `cmd:"target"`
	Reason cmd.Optional[cmd.Varargs] `cmd:"reason"`
}

// Run ...
func (c Warn) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	c.d.Apply(sourcePlayer(src), punishment.Warn, c.Target, string(c.Reason.LoadOr("")), 0)
}

// Jail sends a player to the jail, until released or for a duration.
type Jail struct {
	staff
	Target   string                    `cmd:"target"`
	Duration cmd.Optional[string]      `cmd:"duration"`
	Reason   cmd.Optional[cmd.Varargs] `cmd:"reason"`
}

// Run ...
func (c Jail) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	var d time.Duration
	reason := string(c.Reason.LoadOr(""))
	if raw, ok := c.Duration.Load(); ok && !permanent(raw) {
		// Anything that is not a duration is the first word of the reason.
		if parsed, err := util.ParseDuration(raw); err == nil && parsed > 0 {
			d = parsed
		} else {
			reason = strings.TrimSpace(raw + " " + reason)
		}
	}
	c.d.Apply(sourcePlayer(src), punishment.Jail, c.Target, reason, d)
}

// Unjail ...
type Unjail struct {
	staff
	Target string `cmd:"target"`
}

// Run ...
func (c Unjail) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	c.d.Revoke(sourcePlayer(src), punishment.Jail, c.Target)
}

// Freeze holds an online player in place until unfrozen or until they log out.
type Freeze struct {
	staff
	Target string                    `cmd:"target"`
	Reason cmd.Optional[cmd.Varargs] `cmd:"reason"`
}

// Run ...
func (c Freeze) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	c.d.Apply(sourcePlayer(src), punishment.Freeze, c.Target, string(c.Reason.LoadOr("")), 0)
}

// Unfreeze ...
type Unfreeze struct {
	staff
	Target string `cmd:"target"`
}

// Run ...
func (c Unfreeze) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	c.d.Revoke(sourcePlayer(src), punishment.Freeze, c.Target)
}

// duration parses a duration argument, printing an error if it is invalid.
func (s staff) duration(src cmd.Source, o *cmd.Output, raw string) (time.Duration, bool) {
	d, err := util.ParseDuration(raw)
	if err != nil || d <= 0 {
		o.Error(s.d.Locale.Translate(idOf(sourcePlayer(src)), "command.invalid.duration", raw))
		return 0, false
	}
	return d, true
}

// permanent reports whether a duration argument asks for no expiry.
func permanent(raw string) bool {
	switch strings.ToLower(raw) {
	case "perm", "permanent", "forever", "0":
		return true
	}
	return false
}
