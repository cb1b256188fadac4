package pokebedrock

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/df-mc/dragonfly/server"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/restartfu/gophig"
	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/moderation"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/rank"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/util"
)

// configPath is the file the configuration is read from and saved to.
const configPath = "./config.toml"

// Config holds the server configuration.
type Config struct {
	PokeBedrock struct {
		SentryDsn     string
		LogLevel      string // Can be "debug", "info", "warn", "error"
		DatabasePath  string
		LocalePath    string
		DefaultLocale string
		BanListPath   string
		Workers       int
	}
	Database struct {
		// FlushInterval is the pause between checkpoints of the database. Zero disables them.
		FlushInterval util.Duration
	}
	Jail struct {
		Set     bool
		X, Y, Z float64
		Radius  float64
	}
	WebPanel struct {
		Enabled      bool
		URL          string
		PollURL      string
		ClaimURL     string
		PollInterval util.Duration
	}
	Service struct {
		GinAddress string
		AdminKey   string
		RolesURL   string
	}
	Containment struct {
		TickInterval util.Duration
	}
	// Ranks maps external role ids to rank names.
	Ranks map[string]string
	server.UserConfig
}

// DefaultConfig returns a config with prefilled default values.
func DefaultConfig() Config {
	c := Config{}

	c.PokeBedrock.SentryDsn = ""
	c.PokeBedrock.LogLevel = "info" // Default to info level in production
	c.PokeBedrock.DatabasePath = "resources/moderation.db"
	c.PokeBedrock.LocalePath = "resources/locales"
	c.PokeBedrock.DefaultLocale = "en_US"
	c.PokeBedrock.BanListPath = "resources/banned-players.json"
	c.PokeBedrock.Workers = 16

	c.Database.FlushInterval = util.Duration(5 * time.Minute)

	c.Jail.Radius = 10

	c.WebPanel.URL = "http://localhost:3000"
	c.WebPanel.PollInterval = util.Duration(30 * time.Second)

	c.Service.GinAddress = ":8080"
	c.Service.RolesURL = "http://127.0.0.1:4000/api/roles"

	c.Containment.TickInterval = util.Duration(50 * time.Millisecond)

	c.Ranks = map[string]string{}

	userConfig := server.DefaultConfig()
	userConfig.Server.Name = text.Colourf("<red>Poke</red><aqua>Bedrock</aqua>")
	userConfig.World.Folder = "resources/world"
	userConfig.Players.Folder = "resources/player_data"

	c.UserConfig = userConfig

	return c
}

// RoleMap resolves the configured role to rank mapping. Unknown rank names are returned as an error.
func (c Config) RoleMap() (rank.Roles, error) {
	roles := make(rank.Roles, len(c.Ranks))
	for role, name := range c.Ranks {
		r, ok := rank.Parse(name)
		if !ok {
			return nil, fmt.Errorf("role %s: unknown rank %q", role, name)
		}
		roles[role] = r
	}
	return roles, nil
}

// ParseLogLevel returns the appropriate slog.Level based on string configuration.
// Returns an error if the provided log level string is not recognized.
func ParseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unrecognized log level: %q", level)
	}
}

// ReadConfig loads the server configuration from config.toml.
// If the file doesn't exist, it creates a new one with default values.
// Returns the loaded configuration and any error encountered.
func ReadConfig() (Config, error) {
	g := gophig.NewGophig[Config](configPath, gophig.TOMLMarshaler{}, os.ModePerm)
	_, err := g.LoadConf()
	if os.IsNotExist(err) {
		err = g.SaveConf(DefaultConfig())
		if err != nil {
			return Config{}, err
		}
	}
	c, err := g.LoadConf()
	return c, err
}

// JailConfig serves the jail of the configuration and saves it back to the config file when it is moved.
type JailConfig struct {
	mu   sync.RWMutex
	conf Config
	path string
}

// NewJailConfig ...
func NewJailConfig(conf Config, path string) *JailConfig {
	return &JailConfig{conf: conf, path: path}
}

// Jail ...
func (j *JailConfig) Jail() (moderation.Jail, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if !j.conf.Jail.Set {
		return moderation.Jail{}, false
	}
	return moderation.Jail{
		Position: mgl64.Vec3{j.conf.Jail.X, j.conf.Jail.Y, j.conf.Jail.Z},
		Radius:   j.conf.Jail.Radius,
	}, true
}

// SetJail moves the jail to pos and saves the config. A radius of zero or less keeps the current radius. The
// radius in use afterwards is returned.
func (j *JailConfig) SetJail(pos mgl64.Vec3, radius float64) (float64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	conf := j.conf
	conf.Jail.Set = true
	conf.Jail.X, conf.Jail.Y, conf.Jail.Z = pos[0], pos[1], pos[2]
	if radius > 0 {
		conf.Jail.Radius = radius
	}
	g := gophig.NewGophig[Config](j.path, gophig.TOMLMarshaler{}, os.ModePerm)
	if err := g.SaveConf(conf); err != nil {
		return 0, fmt.Errorf("save jail: %w", err)
	}
	j.conf = conf
	return conf.Jail.Radius, nil
}
