package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"swarm/server/internal/creature"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" || cfg.Match.TickRate != 10 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.HeartbeatTimeout() != 6*time.Second {
		t.Fatalf("expected 6s timeout, got %v", cfg.HeartbeatTimeout())
	}
	if cfg.Rules.MaxHealth != creature.DefaultRules().MaxHealth {
		t.Fatalf("balance tables not seeded from built-in rules")
	}
	kinds, err := cfg.StarterKinds()
	if err != nil || len(kinds) != 2 || kinds[0] != creature.KindSmall {
		t.Fatalf("unexpected starter kinds %v (%v)", kinds, err)
	}
}

func TestLoadOverlaysUserFile(t *testing.T) {
	path := writeFile(t, `
match:
  seed: arena
  starter_kinds: [big]
terrain:
  width: 40
rules:
  kill_reward: 25
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Match.Seed != "arena" || cfg.Terrain.Width != 40 || cfg.Rules.KillReward != 25 {
		t.Fatalf("user values not applied: %+v", cfg)
	}
	if cfg.Match.TickRate != 10 || cfg.Terrain.Height != 30 {
		t.Fatalf("missing keys lost their defaults: %+v", cfg)
	}
	if cfg.Rules.BaseSpeed != creature.DefaultRules().BaseSpeed {
		t.Fatalf("untouched tables should keep built-in values")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"tick rate", "match:\n  tick_rate: 0\n", "tick_rate"},
		{"starter kind", "match:\n  starter_kinds: [dragon]\n", "dragon"},
		{"terrain", "terrain:\n  width: 5\n", "terrain"},
		{"sink", "logging:\n  sinks: [syslog]\n", "syslog"},
		{"yaml", "match: [", "parsing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	env := map[string]string{
		"LISTEN_ADDR":        ":9090",
		"TICK_RATE":          "20",
		"HEARTBEAT_INTERVAL": "bogus",
		"LOG_JSON_PATH":      "/tmp/events.log",
		"ENABLE_PPROF_TRACE": "true",
		"MATCH_SEED":         "env-seed",
	}
	err = cfg.ApplyEnv(func(key string) string { return env[key] })
	if err == nil || !strings.Contains(err.Error(), "HEARTBEAT_INTERVAL") {
		t.Fatalf("expected heartbeat error, got %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" || cfg.Match.TickRate != 20 || cfg.Match.Seed != "env-seed" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Match.HeartbeatInterval != 2*time.Second {
		t.Fatalf("invalid value should keep previous setting, got %v", cfg.Match.HeartbeatInterval)
	}
	if !cfg.Observability.EnablePprofTrace {
		t.Fatalf("expected pprof enabled")
	}
	if cfg.Logging.JSONPath != "/tmp/events.log" || !contains(cfg.Logging.Sinks, "json") {
		t.Fatalf("json sink not enabled: %+v", cfg.Logging)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Match.Seed = "saved"
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Match.Seed != "saved" || loaded.Rules.SpawnType != cfg.Rules.SpawnType {
		t.Fatalf("round trip lost values: %+v", loaded.Match)
	}
}
