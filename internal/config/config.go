// Package config loads the server configuration: embedded YAML defaults, an
// optional user file on top, then environment overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"swarm/server/internal/creature"
	"swarm/server/internal/observability"
	"swarm/server/internal/terrain"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Server        ServerConfig         `yaml:"server"`
	Match         MatchConfig          `yaml:"match"`
	Terrain       terrain.Params       `yaml:"terrain"`
	Rules         creature.Rules       `yaml:"rules"`
	Logging       LoggingConfig        `yaml:"logging"`
	Telemetry     TelemetryConfig      `yaml:"telemetry"`
	Observability observability.Config `yaml:"observability"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	ClientDir  string `yaml:"client_dir"`
}

// MatchConfig shapes one running match.
type MatchConfig struct {
	Seed     string `yaml:"seed"`
	TickRate int    `yaml:"tick_rate"`
	// HeartbeatInterval is the expected client ping period; a player is
	// dropped after three missed intervals.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	StarterKinds      []string      `yaml:"starter_kinds"`
	CommandCapacity   int           `yaml:"command_capacity"`
	PerPlayerCommands int           `yaml:"per_player_commands"`
}

type LoggingConfig struct {
	Sinks         []string      `yaml:"sinks"`
	BufferSize    int           `yaml:"buffer_size"`
	MinSeverity   string        `yaml:"min_severity"`
	JSONPath      string        `yaml:"json_path"`
	JSONFlush     time.Duration `yaml:"json_flush"`
	ZapLevel      string        `yaml:"zap_level"`
	ZapProduction bool          `yaml:"zap_production"`
}

type TelemetryConfig struct {
	WindowTicks int    `yaml:"window_ticks"`
	CSVPath     string `yaml:"csv_path"`
}

// Load reads the embedded defaults and, when path is set, the user file on
// top of them. Keys missing from the user file keep their default.
func Load(path string) (*Config, error) {
	cfg := &Config{Rules: creature.DefaultRules()}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides individual settings from the environment. Invalid
// values are skipped and reported together.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	var errs []error
	if raw := getenv("LISTEN_ADDR"); raw != "" {
		c.Server.ListenAddr = raw
	}
	if raw := getenv("MATCH_SEED"); raw != "" {
		c.Match.Seed = raw
	}
	if raw := getenv("TICK_RATE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			c.Match.TickRate = value
		} else {
			errs = append(errs, fmt.Errorf("invalid TICK_RATE=%q", raw))
		}
	}
	if raw := getenv("HEARTBEAT_INTERVAL"); raw != "" {
		if value, err := time.ParseDuration(raw); err == nil && value > 0 {
			c.Match.HeartbeatInterval = value
		} else {
			errs = append(errs, fmt.Errorf("invalid HEARTBEAT_INTERVAL=%q", raw))
		}
	}
	if raw := getenv("LOG_JSON_PATH"); raw != "" {
		c.Logging.JSONPath = raw
		if !contains(c.Logging.Sinks, "json") {
			c.Logging.Sinks = append(c.Logging.Sinks, "json")
		}
	}
	if raw := getenv("TELEMETRY_CSV_PATH"); raw != "" {
		c.Telemetry.CSVPath = raw
	}
	if raw := getenv("ENABLE_PPROF_TRACE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			c.Observability.EnablePprofTrace = value
		} else {
			errs = append(errs, fmt.Errorf("invalid ENABLE_PPROF_TRACE=%q: %w", raw, err))
		}
	}
	return errors.Join(errs...)
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Match.TickRate <= 0 || c.Match.TickRate > 60 {
		return fmt.Errorf("match.tick_rate %d out of range 1..60", c.Match.TickRate)
	}
	if c.Match.HeartbeatInterval <= 0 {
		return fmt.Errorf("match.heartbeat_interval must be positive")
	}
	if _, err := c.StarterKinds(); err != nil {
		return err
	}
	if c.Terrain.Width < terrain.MinSize || c.Terrain.Width > terrain.MaxSize ||
		c.Terrain.Height < terrain.MinSize || c.Terrain.Height > terrain.MaxSize {
		return fmt.Errorf("terrain %dx%d outside %d..%d", c.Terrain.Width, c.Terrain.Height, terrain.MinSize, terrain.MaxSize)
	}
	for _, sink := range c.Logging.Sinks {
		switch sink {
		case "console", "json", "zap":
		default:
			return fmt.Errorf("unknown logging sink %q", sink)
		}
	}
	return nil
}

// StarterKinds resolves the configured starter kind names.
func (c *Config) StarterKinds() ([]creature.Kind, error) {
	kinds := make([]creature.Kind, 0, len(c.Match.StarterKinds))
	for _, name := range c.Match.StarterKinds {
		kind, ok := creature.ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown starter kind %q", name)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// HeartbeatTimeout is how long a silent player is kept.
func (c *Config) HeartbeatTimeout() time.Duration {
	return 3 * c.Match.HeartbeatInterval
}

// WriteYAML writes the effective configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
