// Package command provides the moderation commands of the server.
package command

import (
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/form"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/host"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/moderation"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/rank"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/session"
)

// JailSetter moves the jail of the server and saves it.
type JailSetter interface {
	// SetJail moves the jail to pos. A radius of zero or less keeps the current radius.
	SetJail(pos mgl64.Vec3, radius float64) (float64, error)
}

// Deps holds everything the commands need.
type Deps struct {
	*form.Deps

	Host        *host.Host
	Session     *session.Session
	Permissions *rank.Permissions
	Jail        JailSetter
}

// Register registers every moderation command.
func Register(d *Deps) {
	for _, c := range Commands(d) {
		cmd.Register(c)
	}
}

// Commands returns every moderation command.
func Commands(d *Deps) []cmd.Command {
	s := func(r rank.Rank) staff {
		return staff{rankAllower: rankAllower{rank: r, perms: d.Permissions}, d: d}
	}
	staffChat, _ := rank.Required(moderation.PermissionStaffChat)

	return []cmd.Command{
		cmd.New("ban", "Permanently ban a player", nil, Ban{staff: s(rank.SeniorModerator)}),
		cmd.New("tempban", "Temporarily ban a player", nil, TempBan{staff: s(rank.Moderator)}),
		cmd.New("unban", "Lift the ban of a player", nil, Unban{staff: s(rank.SeniorModerator)}),
		cmd.New("mute", "Permanently mute a player", nil, Mute{staff: s(rank.Moderator)}),
		cmd.New("tempmute", "Temporarily mute a player", nil, TempMute{staff: s(rank.Helper)}),
		cmd.New("unmute", "Lift the mute of a player", nil, Unmute{staff: s(rank.Helper)}),
		cmd.New("kick", "Kick a player from the server", []string{"k"}, Kick{staff: s(rank.Helper)}),
		cmd.New("warn", "Warn a player", nil, Warn{staff: s(rank.Helper)}),
		cmd.New("jail", "Send a player to jail", nil, Jail{staff: s(rank.Moderator)}),
		cmd.New("unjail", "Release a player from jail", nil, Unjail{staff: s(rank.Moderator)}),
		cmd.New("freeze", "Freeze a player in place", nil, Freeze{staff: s(rank.Helper)}),
		cmd.New("unfreeze", "Unfreeze a player", nil, Unfreeze{staff: s(rank.Helper)}),
		cmd.New("moderate", "Open the moderation menu of a player", []string{"mod"}, Moderate{staff: s(rank.Moderator)}),

		cmd.New("vanish", "Toggle your visibility to players", []string{"v"}, Vanish{staff: s(rank.Moderator)}),
		cmd.New("chatlock", "Lock or unlock the chat", []string{"lockchat"}, ChatLock{staff: s(rank.Moderator)}),
		cmd.New("sc", "Talk in the staff chat", []string{"staffchat"}, StaffChat{staff: s(staffChat)}),
		cmd.New("report", "Report a player to staff", nil, Report{staff: s(rank.UnLinked)}),

		cmd.New("note", "Leave a staff note on a player", nil, Note{staff: s(rank.Helper)}),
		cmd.New("notes", "List the staff notes of a player", nil, Notes{staff: s(rank.Helper)}),
		cmd.New("history", "List the punishments of a player", []string{"hist"}, History{staff: s(rank.Helper)}),
		cmd.New("seen", "Show when a player was last online", nil, Seen{staff: s(rank.Helper)}),

		cmd.New("setjail", "Set the jail to your position", nil, SetJail{staff: s(rank.Admin)}),
		cmd.New("flush", "Flush the moderation database to disk", nil, Flush{staff: s(rank.Admin)}),
		cmd.New("language", "Choose your language", []string{"lang"}, Language{staff: s(rank.UnLinked)}),
	}
}

// rankAllower allows players holding at least rank. Sources other than players are the console and are
// always allowed.
type rankAllower struct {
	rank  rank.Rank
	perms *rank.Permissions
}

// Allow ...
func (r rankAllower) Allow(s cmd.Source) bool {
	p, ok := s.(*player.Player)
	if !ok {
		return true
	}
	return r.perms.Rank(p.UUID()) >= r.rank
}

// staff is embedded in every command.
type staff struct {
	rankAllower
	d *Deps
}

// sourcePlayer returns the player running a command, or nil for the console.
func sourcePlayer(src cmd.Source) *player.Player {
	p, _ := src.(*player.Player)
	return p
}

// idOf returns the uuid of p, or uuid.Nil for the console.
func idOf(p *player.Player) uuid.UUID {
	if p == nil {
		return uuid.Nil
	}
	return p.UUID()
}

// playerOnly returns the player running a command and prints an error if it is run from the console.
func (s staff) playerOnly(src cmd.Source, o *cmd.Output) (*player.Player, bool) {
	p, ok := src.(*player.Player)
	if !ok {
		o.Error(s.d.Locale.Translate(uuid.Nil, "command.player.only"))
	}
	return p, ok
}
