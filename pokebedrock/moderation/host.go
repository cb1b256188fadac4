package moderation

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

// Permission nodes checked by the moderation engine.
const (
	PermissionBypass         = "moderation.bypass"
	PermissionJailBypass     = "moderation.jail.bypass"
	PermissionFreezeBypass   = "moderation.freeze.bypass"
	PermissionNotify         = "moderation.notify"
	PermissionChatLockBypass = "moderation.chatlockdown.bypass"
	PermissionVanishSee      = "moderation.vanish.see"
	PermissionReportReceive  = "moderation.report.receive"
	PermissionStaffChat      = "mod.staff.chat"
)

// Permissions resolves permission nodes of players. Offline players hold no permissions.
type Permissions interface {
	HasPermission(id uuid.UUID, node string) bool
}

// BanEntry is an entry of the native ban list of the server.
type BanEntry struct {
	UUID   uuid.UUID
	Name   string
	Reason string
	Source string
	// Expires is the zero time for permanent bans.
	Expires time.Time
}

// BanList is the ban list enforced by the server itself when players connect.
type BanList interface {
	Has(id uuid.UUID) bool
	Add(e BanEntry) error
	// Remove removes the entry of a player and reports whether there was one.
	Remove(id uuid.UUID) (bool, error)
}

// MainThread runs functions on the thread that owns the live game state. The returned channel is closed once f
// has returned.
type MainThread interface {
	Exec(f func(w World)) <-chan struct{}
}

// World is the live game state. It may only be used from within MainThread.Exec.
type World interface {
	Player(id uuid.UUID) (Player, bool)
	Players() []Player
}

// Player is an online player. It may only be used from within MainThread.Exec.
type Player interface {
	UUID() uuid.UUID
	Name() string
	Location() punishment.Location
	Teleport(pos mgl64.Vec3)
	Disconnect(message string)
	Message(message string)
	// SetVisible shows or hides the player from viewer.
	SetVisible(viewer Player, visible bool)
}

// Jail is the configured jail of the server.
type Jail struct {
	Position mgl64.Vec3
	Radius   float64
}

// JailSource returns the configured jail, if any.
type JailSource interface {
	Jail() (Jail, bool)
}
