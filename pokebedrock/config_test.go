package pokebedrock

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/restartfu/gophig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/rank"
)

func TestRoleMap(t *testing.T) {
	c := DefaultConfig()
	c.Ranks = map[string]string{"111": "Moderator", "222": "Admin"}

	roles, err := c.RoleMap()
	require.NoError(t, err)
	assert.Equal(t, rank.Moderator, roles["111"])
	assert.Equal(t, rank.Admin, roles["222"])

	c.Ranks["333"] = "Janitor"
	_, err = c.RoleMap()
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLogLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestJailConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	j := NewJailConfig(DefaultConfig(), path)

	_, ok := j.Jail()
	assert.False(t, ok)

	radius, err := j.SetJail(mgl64.Vec3{10, 64, -5}, 0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, radius)

	jail, ok := j.Jail()
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{10, 64, -5}, jail.Position)

	radius, err = j.SetJail(mgl64.Vec3{0, 70, 0}, 25)
	require.NoError(t, err)
	assert.Equal(t, 25.0, radius)

	saved, err := gophig.NewGophig[Config](path, gophig.TOMLMarshaler{}, os.ModePerm).LoadConf()
	require.NoError(t, err)
	assert.True(t, saved.Jail.Set)
	assert.Equal(t, 70.0, saved.Jail.Y)
	assert.Equal(t, 25.0, saved.Jail.Radius)
}
