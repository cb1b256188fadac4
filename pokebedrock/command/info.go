package command

import (
	"context"
	"strings"
	"time"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/util"
)

// dateLayout is the layout of dates listed to staff.
const dateLayout = "2006-01-02 15:04"

// Note leaves a staff note on a player.
type Note struct {
	staff
	Target  string      `cmd:"target"`
	Message cmd.Varargs `cmd:"message"`
}

// Run ...
func (c Note) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	c.d.Run(sourcePlayer(src), "note", c.Target, func(ctx context.Context, target punishment.Target, ec punishment.ExecutionContext) (string, []any, error) {
		if err := c.d.Service.AddNote(ctx, target, string(c.Message), ec); err != nil {
			return "", nil, err
		}
		return "command.note.success", []any{target.Display()}, nil
	})
}

// Notes lists the staff notes of a player, newest first.
type Notes struct {
	staff
	Target string `cmd:"target"`
}

// Run ...
func (c Notes) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	p := sourcePlayer(src)
	c.list(p, "view the notes of", c.Target, func(ctx context.Context, target punishment.Target) ([]string, error) {
		notes, err := c.d.Service.Notes(ctx, target.UUID)
		if err != nil || len(notes) == 0 {
			return nil, err
		}
		lines := []string{c.d.Locale.Translate(idOf(p), "command.notes.header", target.Display())}
		for _, n := range notes {
			lines = append(lines, c.d.Locale.Translate(idOf(p), "command.notes.entry",
				n.CreatedAt.Format(dateLayout), c.d.Service.IssuerName(ctx, n.IssuerUUID), n.Message))
		}
		return lines, nil
	}, "command.notes.empty")
}

// History lists the punishments of a player, newest first.
type History struct {
	staff
	Target string `cmd:"target"`
}

// Run ...
func (c History) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	p := sourcePlayer(src)
	id := idOf(p)
	c.list(p, "view the history of", c.Target, func(ctx context.Context, target punishment.Target) ([]string, error) {
		recs, err := c.d.Service.History(ctx, target.UUID)
		if err != nil || len(recs) == 0 {
			return nil, err
		}
		lines := []string{c.d.Locale.Translate(id, "command.history.header", target.Display())}
		for _, r := range recs {
			length := "Permanent"
			if !r.Permanent() {
				length = util.FormatDuration(r.Duration())
			}
			var active string
			if r.Active && !r.Expired(time.Now()) {
				active = c.d.Locale.Translate(id, "command.history.active")
			}
			lines = append(lines, c.d.Locale.Translate(id, "command.history.entry", r.CreatedAt.Format(dateLayout),
				r.Type, length, c.d.Service.IssuerName(ctx, r.IssuerUUID), r.Reason, active))
		}
		return lines, nil
	}, "command.history.empty")
}

// list resolves name and sends the lines returned by f as one message, or the empty key if there are none.
func (s staff) list(p *player.Player, verb, name string, f func(ctx context.Context, target punishment.Target) ([]string, error), empty string) {
	s.d.Run(p, verb, name, func(ctx context.Context, target punishment.Target, _ punishment.ExecutionContext) (string, []any, error) {
		lines, err := f(ctx, target)
		if err != nil {
			return "", nil, err
		}
		if len(lines) == 0 {
			return empty, []any{target.Display()}, nil
		}
		return "command.list", []any{strings.Join(lines, "\n")}, nil
	})
}

// Seen shows when a player first joined and was last online.
type Seen struct {
	staff
	Target string `cmd:"target"`
}

// Run ...
func (c Seen) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
	p := sourcePlayer(src)
	for ent := range tx.Players() {
		if other := ent.(*player.Player); strings.EqualFold(other.Name(), c.Target) {
			o.Print(c.d.Locale.Translate(idOf(p), "command.seen.online", other.Name()))
			return
		}
	}

	send := c.d.Messenger(p)
	c.d.Pool.Submit(func(ctx context.Context) {
		pl, err := c.d.Service.Seen(ctx, c.Target)
		if err != nil {
			c.d.Failure(send, p, "look up", c.Target, err)
			return
		}
		now := time.Now()
		send("command.seen.offline", pl.Username, util.FormatDuration(now.Sub(pl.LastSeen)))
		send("command.seen.first", pl.Username, util.FormatDuration(now.Sub(pl.FirstSeen)))
	})
}
