package form

import (
	"strings"
	"time"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/form"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/samber/lo"
	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/util"
)

// punishable holds the punishments staff can apply from the menu, in display order.
var punishable = []punishment.Type{
	punishment.Ban,
	punishment.Mute,
	punishment.Kick,
	punishment.Warn,
	punishment.Jail,
	punishment.Freeze,
}

// liftable holds the punishments staff can lift from the menu, in display order.
var liftable = []punishment.Type{
	punishment.Ban,
	punishment.Mute,
	punishment.Jail,
	punishment.Freeze,
}

// Moderate is the menu of actions against a single player.
type Moderate struct {
	d      *Deps
	target string
}

// NewModerate creates a new moderation menu for target, translated for p.
func NewModerate(d *Deps, p *player.Player, target string) form.Menu {
	tr := func(key string, args ...any) string { return d.Locale.Translate(p.UUID(), key, args...) }
	return form.NewMenu(Moderate{d: d, target: target}, tr("form.moderate.title", target)).WithButtons(
		form.NewButton(tr("form.moderate.punish"), ""),
		form.NewButton(tr("form.moderate.lift"), ""),
	)
}

// Submit ...
func (m Moderate) Submit(sub form.Submitter, b form.Button, _ *world.Tx) {
	p := sub.(*player.Player)
	switch text.Clean(b.Text) {
	case text.Clean(m.d.Locale.Translate(p.UUID(), "form.moderate.punish")):
		p.SendForm(NewPunish(m.d, p, m.target))
	case text.Clean(m.d.Locale.Translate(p.UUID(), "form.moderate.lift")):
		p.SendForm(NewLift(m.d, p, m.target))
	}
}

// Punish is the form applying a punishment to a player.
type Punish struct {
	Action   form.Dropdown
	Duration form.Input
	Reason   form.Input

	d      *Deps
	target string
}

// NewPunish ...
func NewPunish(d *Deps, p *player.Player, target string) form.Custom {
	tr := func(key string, args ...any) string { return d.Locale.Translate(p.UUID(), key, args...) }
	options := lo.Map(punishable, func(t punishment.Type, _ int) string {
		return t.String()
	})
	return form.New(Punish{
		Action:   form.NewDropdown(tr("form.moderate.action"), options, 0),
		Duration: form.NewInput(tr("form.moderate.duration"), "", "1d12h"),
		Reason:   form.NewInput(tr("form.moderate.reason"), "", ""),
		d:        d,
		target:   target,
	}, tr("form.moderate.title", target))
}

// Submit ...
func (f Punish) Submit(sub form.Submitter, _ *world.Tx) {
	p := sub.(*player.Player)
	t := punishable[f.Action.Value()]

	var dur time.Duration
	if raw := strings.TrimSpace(f.Duration.Value()); raw != "" {
		parsed, err := util.ParseDuration(raw)
		if err != nil {
			p.Message(f.d.Locale.Translate(p.UUID(), "command.invalid.duration", raw))
			return
		}
		dur = parsed
	}
	f.d.Apply(p, t, f.target, strings.TrimSpace(f.Reason.Value()), dur)
}

// Lift is the menu lifting a punishment of a player.
type Lift struct {
	d      *Deps
	target string
}

// NewLift ...
func NewLift(d *Deps, p *player.Player, target string) form.Menu {
	buttons := lo.Map(liftable, func(t punishment.Type, _ int) form.Button {
		return form.NewButton(t.String(), "")
	})
	return form.NewMenu(Lift{d: d, target: target}, d.Locale.Translate(p.UUID(), "form.lift.title", target)).
		WithButtons(buttons...)
}

// Submit ...
func (l Lift) Submit(sub form.Submitter, b form.Button, _ *world.Tx) {
	t, ok := lo.Find(liftable, func(t punishment.Type) bool {
		return t.String() == text.Clean(b.Text)
	})
	if !ok {
		return
	}
	l.d.Revoke(sub.(*player.Player), t, l.target)
}
