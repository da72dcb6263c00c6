package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
env: staging
http:
  addr: ":9090"
discord:
  token: bot-token
  guild_id: "123456"
governance:
  session_ttl: 10m
  sweep_interval: 5s
  fallback_allowed:
    - warn
    - slowmode
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Env != "staging" {
		t.Fatalf("unexpected env: %s", cfg.Env)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Discord.Token != "bot-token" || cfg.Discord.GuildID != "123456" {
		t.Fatalf("unexpected discord config: %+v", cfg.Discord)
	}
	if cfg.Governance.SessionTTL != 10*time.Minute {
		t.Fatalf("unexpected session ttl: %s", cfg.Governance.SessionTTL)
	}
	if cfg.Governance.SweepInterval != 5*time.Second {
		t.Fatalf("unexpected sweep interval: %s", cfg.Governance.SweepInterval)
	}
	if len(cfg.Governance.FallbackAllowed) != 2 || cfg.Governance.FallbackAllowed[0] != "warn" {
		t.Fatalf("unexpected fallback actions: %v", cfg.Governance.FallbackAllowed)
	}

	if cfg.HTTP.ReadTimeout != 5*time.Second {
		t.Fatalf("http read timeout default should stay 5s")
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level default should stay debug")
	}
	if cfg.Auth.JWTAccessTTL != 15*time.Minute {
		t.Fatalf("jwt access ttl default should stay 15m")
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Env != "dev" {
		t.Fatalf("unexpected default env: %s", cfg.Env)
	}
	if cfg.Governance.SessionTTL != 5*time.Minute {
		t.Fatalf("unexpected default session ttl: %s", cfg.Governance.SessionTTL)
	}
	if cfg.Governance.SweepInterval != 30*time.Second {
		t.Fatalf("unexpected default sweep interval: %s", cfg.Governance.SweepInterval)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected default redis addr: %s", cfg.Redis.Addr)
	}
}

func TestEnvOverridesWinOverYAML(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("GOVERNANCE_SESSION_TTL", "7m")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
discord:
  token: yaml-token
governance:
  session_ttl: 3m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Discord.Token != "env-token" {
		t.Fatalf("env must override yaml, got %s", cfg.Discord.Token)
	}
	if cfg.Governance.SessionTTL != 7*time.Minute {
		t.Fatalf("env must override yaml ttl, got %s", cfg.Governance.SessionTTL)
	}
}

func TestBadDurationOverrideFails(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GOVERNANCE_SWEEP_INTERVAL", "often")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for unparseable duration override")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"DISCORD_TOKEN",
		"DISCORD_APP_ID",
		"DISCORD_GUILD_ID",
		"JWT_SECRET",
		"JWT_ACCESS_TTL",
		"GOVERNANCE_SESSION_TTL",
		"GOVERNANCE_SWEEP_INTERVAL",
	} {
		t.Setenv(key, "")
	}
}
