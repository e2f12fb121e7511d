package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const sampleYAML = `
telegram:
  token: "123:abc"
  channel: "@skywatch"
logging:
  level: info
  console: true
cycle:
  enabled: true
  daily_at: "09:00"
state:
  driver: file
  path: ./state.json
`

func TestLoadYAML(t *testing.T) {
	m := NewManager(writeTemp(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Channel != "@skywatch" || cfg.Cycle.DailyAt != "09:00" || cfg.State.Driver != "file" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestLoadJSON(t *testing.T) {
	m := NewManager(writeTemp(t, "config.json",
		`{"telegram":{"token":"t","channel":"@c"},"logging":{"level":"debug","console":true,"file":{"enabled":false},"telegram":{"enabled":false}},"cycle":{"enabled":false},"state":{"driver":"file","path":"s.json"}}`))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	m := NewManager(writeTemp(t, "config.yaml", sampleYAML+"\nbogus_section:\n  x: 1\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestEnvOverridesToken(t *testing.T) {
	t.Setenv("ASTRO_TELEGRAM_TOKEN", "env-token")
	m := NewManager(writeTemp(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("env override ignored: %q", cfg.Telegram.Token)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = "" }},
		{"missing channel", func(c *Config) { c.Telegram.Channel = "" }},
		{"bad poll timeout", func(c *Config) { c.Telegram.PollTimeout = "soon" }},
		{"bad daily_at", func(c *Config) { c.Cycle.DailyAt = "25:00" }},
		{"bad interval", func(c *Config) { c.Cycle.Interval = "every day" }},
		{"bad timezone", func(c *Config) { c.Cycle.Timezone = "Mars/Olympus" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				Telegram: TelegramConfig{Token: "t", Channel: "@c"},
				Cycle:    CycleConfig{Enabled: true, DailyAt: "09:00"},
			}
			tc.mut(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestParseHHMM(t *testing.T) {
	h, m, err := ParseHHMM("23:59")
	if err != nil || h != 23 || m != 59 {
		t.Fatalf("ParseHHMM(23:59) = %d:%d, %v", h, m, err)
	}
	for _, bad := range []string{"9", "9:5x", "-1:00", "10:60", ""} {
		if _, _, err := ParseHHMM(bad); err == nil {
			t.Fatalf("ParseHHMM(%q) should fail", bad)
		}
	}
}

func TestParseDurationField(t *testing.T) {
	d, err := ParseDurationField("x", " 90s ")
	if err != nil || d != 90*time.Second {
		t.Fatalf("ParseDurationField(90s) = %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty field should parse as zero, got %v, %v", d, err)
	}
	for _, bad := range []string{"soon", "-5m", "10"} {
		if _, err := ParseDurationField("x", bad); err == nil {
			t.Fatalf("ParseDurationField(%q) should fail", bad)
		}
	}
}

func TestSummarizeChange(t *testing.T) {
	oldCfg := &Config{Telegram: TelegramConfig{Token: "t", Channel: "@a"}}
	newCfg := &Config{
		Telegram: TelegramConfig{Token: "t", Channel: "@b"},
		Cycle:    CycleConfig{Enabled: true, DailyAt: "08:00"},
	}
	changed, _ := SummarizeChange(oldCfg, newCfg)
	if len(changed) != 2 || changed[0] != "cycle" || changed[1] != "telegram" {
		t.Fatalf("changed = %v", changed)
	}
}
