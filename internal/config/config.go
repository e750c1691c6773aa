package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "OTGO_CONFIG"

// DefaultPath is used when EnvPath is unset.
const DefaultPath = "config/server.toml"

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Network   NetworkConfig   `toml:"network"`
	World     WorldConfig     `toml:"world"`
	Logging   LoggingConfig   `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	Motd      string `toml:"motd"`
	StartTime int64  // set at boot, not from config
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty disables persistence
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	SaveInterval    time.Duration `toml:"save_interval"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.DSN != "" }

type NetworkConfig struct {
	BindAddress       string        `toml:"bind_address"`
	TickRate          time.Duration `toml:"tick_rate"`
	InQueueSize       int           `toml:"in_queue_size"`
	OutQueueSize      int           `toml:"out_queue_size"`
	MaxPacketsPerTick int           `toml:"max_packets_per_tick"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	ReadTimeout       time.Duration `toml:"read_timeout"`
	// MaxConnections caps concurrent sessions; 0 means unlimited.
	MaxConnections int `toml:"max_connections"`
}

type WorldConfig struct {
	MapFile    string `toml:"map_file"`
	ItemFile   string `toml:"item_file"`
	SpawnFile  string `toml:"spawn_file"`
	ScriptsDir string `toml:"scripts_dir"`

	// Temple is where characters without a stored position enter.
	TempleX int32 `toml:"temple_x"`
	TempleY int32 `toml:"temple_y"`
	TempleZ int8  `toml:"temple_z"`

	// Spectator window half-widths.
	ViewMinX int32 `toml:"view_min_x"`
	ViewMaxX int32 `toml:"view_max_x"`
	ViewMinY int32 `toml:"view_min_y"`
	ViewMaxY int32 `toml:"view_max_y"`

	IndexCellSize int32 `toml:"index_cell_size"`
	// NPCs take one wander decision every WanderEvery ticks.
	WanderEvery int `toml:"wander_every"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type RateLimitConfig struct {
	Enabled          bool `toml:"enabled"`
	PacketsPerSecond int  `toml:"packets_per_second"`
	MaxPerIP         int  `toml:"max_per_ip"`
}

// Path returns the config file to load: $OTGO_CONFIG if set, else DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Network.TickRate <= 0 {
		return fmt.Errorf("network.tick_rate must be positive, got %s", c.Network.TickRate)
	}
	if c.World.TempleZ < 0 || c.World.TempleZ > 15 {
		return fmt.Errorf("world.temple_z %d out of range [0, 15]", c.World.TempleZ)
	}
	for name, v := range map[string]int32{
		"view_min_x": c.World.ViewMinX, "view_max_x": c.World.ViewMaxX,
		"view_min_y": c.World.ViewMinY, "view_max_y": c.World.ViewMaxY,
	} {
		if v <= 0 {
			return fmt.Errorf("world.%s must be positive, got %d", name, v)
		}
	}
	if c.Network.MaxConnections < 0 {
		return fmt.Errorf("network.max_connections must not be negative, got %d", c.Network.MaxConnections)
	}
	if c.World.IndexCellSize <= 0 {
		return fmt.Errorf("world.index_cell_size must be positive, got %d", c.World.IndexCellSize)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "OTGo",
			Motd: "Welcome to OTGo.",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			SaveInterval:    time.Minute,
		},
		Network: NetworkConfig{
			BindAddress:       "0.0.0.0:7172",
			TickRate:          50 * time.Millisecond,
			InQueueSize:       128,
			OutQueueSize:      256,
			MaxPacketsPerTick: 32,
			WriteTimeout:      10 * time.Second,
			ReadTimeout:       60 * time.Second,
			MaxConnections:    500,
		},
		World: WorldConfig{
			MapFile:       "data/yaml/map.yaml",
			ItemFile:      "data/yaml/items.yaml",
			SpawnFile:     "data/yaml/spawns.yaml",
			ScriptsDir:    "scripts",
			TempleX:       100,
			TempleY:       100,
			TempleZ:       7,
			ViewMinX:      11,
			ViewMaxX:      11,
			ViewMinY:      11,
			ViewMaxY:      11,
			IndexCellSize: 16,
			WanderEvery:   20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			PacketsPerSecond: 60,
			MaxPerIP:         4,
		},
	}
}
