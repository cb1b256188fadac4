package command

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/rank"
)

func TestRankAllower(t *testing.T) {
	perms := rank.NewPermissions()
	allow := rankAllower{rank: rank.Moderator, perms: perms}

	// Sources other than players run with console rights.
	assert.True(t, allow.Allow(nil))

	id := uuid.New()
	perms.Set(id, rank.Helper)
	assert.Less(t, perms.Rank(id), allow.rank)
	perms.Set(id, rank.SeniorModerator)
	assert.GreaterOrEqual(t, perms.Rank(id), allow.rank)
}

func TestPermanent(t *testing.T) {
	for _, raw := range []string{"perm", "Permanent", "forever", "0"} {
		assert.True(t, permanent(raw), raw)
	}
	assert.False(t, permanent("1d"))
}

func TestCommandsAreUnique(t *testing.T) {
	d := &Deps{Permissions: rank.NewPermissions()}
	seen := make(map[string]bool)
	for _, c := range Commands(d) {
		assert.False(t, seen[c.Name()], c.Name())
		seen[c.Name()] = true
		for _, alias := range c.Aliases() {
			// Aliases include the name of the command itself.
			if alias == c.Name() {
				continue
			}
			assert.False(t, seen[alias], alias)
			seen[alias] = true
		}
	}
	assert.Len(t, seen, 31)
}
