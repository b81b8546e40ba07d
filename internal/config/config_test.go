package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func assertDefaults(t *testing.T, cfg *Config) {
	t.Helper()
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
	}
	if cfg.HealthPath != "/health" {
		t.Errorf("HealthPath = %q, want /health", cfg.HealthPath)
	}
	if cfg.ReadyTimeout.Duration != 15*time.Second {
		t.Errorf("ReadyTimeout = %s, want 15s", cfg.ReadyTimeout.Duration)
	}
	if cfg.PollInterval.Duration != 250*time.Millisecond {
		t.Errorf("PollInterval = %s, want 250ms", cfg.PollInterval.Duration)
	}
	if cfg.DialTimeout.Duration != 500*time.Millisecond || cfg.IOTimeout.Duration != 500*time.Millisecond {
		t.Errorf("DialTimeout/IOTimeout = %s/%s, want 500ms", cfg.DialTimeout.Duration, cfg.IOTimeout.Duration)
	}
	if cfg.DevMode {
		t.Error("DevMode should default to false")
	}
}

func TestLoadValidConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `port: 8100
health_path: /ready
ready_timeout: 30s
poll_interval: 100ms
resource_dir: /opt/app/resources
dev_mode: true
journal: /var/tmp/sidecar.jsonl
metrics_addr: 127.0.0.1:9464
log:
  file: /var/tmp/sidecar.log
  level: debug
  max_backups: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8100 {
		t.Errorf("Port = %d, want 8100", cfg.Port)
	}
	if cfg.HealthPath != "/ready" {
		t.Errorf("HealthPath = %q, want /ready", cfg.HealthPath)
	}
	if cfg.ReadyTimeout.Duration != 30*time.Second {
		t.Errorf("ReadyTimeout = %s, want 30s", cfg.ReadyTimeout.Duration)
	}
	if cfg.PollInterval.Duration != 100*time.Millisecond {
		t.Errorf("PollInterval = %s, want 100ms", cfg.PollInterval.Duration)
	}
	if cfg.ResourceDir != "/opt/app/resources" || !cfg.DevMode {
		t.Errorf("ResourceDir/DevMode = %q/%v", cfg.ResourceDir, cfg.DevMode)
	}
	if cfg.Journal != "/var/tmp/sidecar.jsonl" || cfg.MetricsAddr != "127.0.0.1:9464" {
		t.Errorf("Journal/MetricsAddr = %q/%q", cfg.Journal, cfg.MetricsAddr)
	}
	if cfg.Log.File != "/var/tmp/sidecar.log" || cfg.Log.Level != "debug" || cfg.Log.MaxBackups != 5 {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if cfg.Log.MaxSizeMB != 10 || cfg.Log.MaxAgeDays != 7 {
		t.Errorf("expected rotation defaults for unset fields, got %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	assertDefaults(t, cfg)
}

func TestLoadEmptyFile(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertDefaults(t, cfg)
}

func TestLoadCommentsOnly(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, "# port: 9000\n# dev_mode: true\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertDefaults(t, cfg)
}

func TestLoadPartialConfig(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, "ready_timeout: 5s\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ReadyTimeout.Duration != 5*time.Second {
		t.Errorf("ReadyTimeout = %s, want 5s", cfg.ReadyTimeout.Duration)
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want default 8000", cfg.Port)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, "ready_timeout: soon\n"))
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "soon") {
		t.Errorf("error should name the bad value: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()
	cases := map[string]func(*Config){
		"port":          func(c *Config) { c.Port = 70000 },
		"health_path":   func(c *Config) { c.HealthPath = "health" },
		"poll_interval": func(c *Config) { c.PollInterval.Duration = -time.Second },
		"log.level":     func(c *Config) { c.Log.Level = "verbose" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", name)
			continue
		}
		if !strings.Contains(err.Error(), name) {
			t.Errorf("%s: error should name the field: %v", name, err)
		}
	}
}

func TestValidateRejectsHealthPathInjection(t *testing.T) {
	t.Parallel()
	for _, p := range []string{"/health\r\nX-Evil: 1", "/health check", "/h\x00"} {
		cfg := Default()
		cfg.HealthPath = p
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "health_path") {
			t.Errorf("HealthPath %q: expected health_path error, got %v", p, err)
		}
	}
}

func TestHealthConfig(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Port = 8123
	h := cfg.Health()
	if h.Port != 8123 || h.Path != "/health" || h.Timeout != 15*time.Second || h.Interval != 250*time.Millisecond {
		t.Errorf("unexpected health config %+v", h)
	}
}

func TestDurationMarshalRoundTrip(t *testing.T) {
	t.Parallel()
	out, err := yaml.Marshal(Default())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "ready_timeout: 15s") {
		t.Errorf("expected human readable duration, got:\n%s", out)
	}
}
