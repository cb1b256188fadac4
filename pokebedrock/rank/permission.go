package rank

import (
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/moderation"
)

// nodes holds the lowest rank holding each permission node. Unknown nodes are never granted.
var nodes = map[string]Rank{
	moderation.PermissionNotify:         Helper,
	moderation.PermissionVanishSee:      Helper,
	moderation.PermissionReportReceive:  Helper,
	moderation.PermissionStaffChat:      Helper,
	moderation.PermissionChatLockBypass: Moderator,
	moderation.PermissionFreezeBypass:   HeadModerator,
	moderation.PermissionJailBypass:     HeadModerator,
	moderation.PermissionBypass:         Admin,
}

// Required returns the lowest rank holding node.
func Required(node string) (Rank, bool) {
	r, ok := nodes[node]
	return r, ok
}

// Permissions tracks the ranks of online players and answers permission checks from them.
type Permissions struct {
	ranks *xsync.MapOf[uuid.UUID, Rank]
}

// NewPermissions ...
func NewPermissions() *Permissions {
	return &Permissions{ranks: xsync.NewMapOf[uuid.UUID, Rank]()}
}

// Set stores the rank of a player.
func (p *Permissions) Set(id uuid.UUID, r Rank) {
	p.ranks.Store(id, r)
}

// Forget drops the rank of a player that left.
func (p *Permissions) Forget(id uuid.UUID) {
	p.ranks.Delete(id)
}

// Rank returns the rank of a player, or UnLinked if it is unknown.
func (p *Permissions) Rank(id uuid.UUID) Rank {
	r, ok := p.ranks.Load(id)
	if !ok {
		return UnLinked
	}
	return r
}

// HasPermission ...
func (p *Permissions) HasPermission(id uuid.UUID, node string) bool {
	required, ok := nodes[node]
	if !ok {
		return false
	}
	return p.Rank(id) >= required
}
