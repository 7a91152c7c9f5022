package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shellbridge/shellbridge/pkg/resilience"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shellbridge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write settings file: %v", err)
	}
	return path
}

func TestLoad_FullDocument(t *testing.T) {
	path := writeSettings(t, `
logging:
  level: debug
  format: json
bridge:
  default_timeout: 90s
  max_concurrent: 4
  candidates:
    - name: pwsh
      path: /usr/bin/pwsh
      args: ["-NoProfile", "-NonInteractive", "-Command"]
      probe: "$PSVersionTable.PSVersion.ToString()"
breaker:
  failure_threshold: 3
  recovery_timeout: 10s
profiles:
  graph:
    max_attempts: 5
    base_delay: 2s
    max_delay: 120s
    backoff_multiplier: 2
    strategy: exponential
    non_retryable_codes: ["PERMISSION_DENIED"]
`)

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if settings.Logging.Level != "debug" || settings.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", settings.Logging)
	}
	if settings.Bridge.DefaultTimeout != 90*time.Second {
		t.Errorf("DefaultTimeout = %v, want 90s", settings.Bridge.DefaultTimeout)
	}
	if settings.Bridge.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d, want 4", settings.Bridge.MaxConcurrent)
	}
	if settings.Breaker.FailureThreshold != 3 {
		t.Errorf("FailureThreshold = %d, want 3", settings.Breaker.FailureThreshold)
	}

	cands := settings.Candidates()
	if len(cands) != 1 || cands[0].Path != "/usr/bin/pwsh" {
		t.Errorf("Candidates() = %+v, want one pwsh entry", cands)
	}

	cfg := settings.Profile("graph")
	if cfg.MaxAttempts != 5 {
		t.Errorf("Profile(graph).MaxAttempts = %d, want 5", cfg.MaxAttempts)
	}
	if len(cfg.NonRetryableCodes) != 1 || cfg.NonRetryableCodes[0] != "PERMISSION_DENIED" {
		t.Errorf("NonRetryableCodes = %v, want [PERMISSION_DENIED]", cfg.NonRetryableCodes)
	}
}

func TestLoad_PartialDocumentGetsDefaults(t *testing.T) {
	path := writeSettings(t, `
logging:
  level: warn
`)

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if settings.Logging.Level != "warn" {
		t.Errorf("Level = %s, want warn", settings.Logging.Level)
	}
	if settings.Logging.Format != "console" {
		t.Errorf("Format = %s, want console default", settings.Logging.Format)
	}
	if settings.Bridge.DefaultTimeout != 60*time.Second {
		t.Errorf("DefaultTimeout = %v, want 60s default", settings.Bridge.DefaultTimeout)
	}
	if settings.Breaker.FailureThreshold != resilience.DefaultFailureThreshold {
		t.Errorf("FailureThreshold = %d, want %d", settings.Breaker.FailureThreshold, resilience.DefaultFailureThreshold)
	}
	if _, ok := settings.Profiles["default"]; !ok {
		t.Error("Profiles missing the seeded default profile")
	}
	if settings.Candidates() != nil {
		t.Errorf("Candidates() = %+v, want nil for the built-in order", settings.Candidates())
	}
}

func TestLoad_InvalidDocuments(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "zero max_attempts",
			content: `
profiles:
  broken:
    max_attempts: 0
`,
		},
		{
			name: "unknown strategy",
			content: `
profiles:
  broken:
    max_attempts: 3
    strategy: quadratic
`,
		},
		{
			name: "unknown log level",
			content: `
logging:
  level: loud
  format: console
`,
		},
		{
			name: "candidate without path",
			content: `
bridge:
  candidates:
    - name: pwsh
`,
		},
		{
			name:    "not yaml",
			content: "{{nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeSettings(t, tt.content)); err == nil {
				t.Error("Expected an error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected an error for a missing file, got nil")
	}
}

func TestProfile_UnknownNameFallsBack(t *testing.T) {
	settings := Default()

	cfg := settings.Profile("no-such-profile")
	want := resilience.DefaultConfig()
	if cfg.MaxAttempts != want.MaxAttempts || cfg.Strategy != want.Strategy {
		t.Errorf("Profile(unknown) = %+v, want the default config", cfg)
	}
}

func TestRetryProfile_ToRetryConfig(t *testing.T) {
	p := RetryProfile{
		MaxAttempts:       7,
		BaseDelay:         2 * time.Second,
		MaxDelay:          90 * time.Second,
		BackoffMultiplier: 3,
		Strategy:          "linear",
		RetryableCodes:    []string{"TIMEOUT"},
	}

	cfg := p.ToRetryConfig()
	if cfg.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d, want 7", cfg.MaxAttempts)
	}
	if cfg.BaseDelay != 2*time.Second {
		t.Errorf("BaseDelay = %v, want 2s", cfg.BaseDelay)
	}
	if cfg.Strategy != resilience.StrategyLinear {
		t.Errorf("Strategy = %v, want linear", cfg.Strategy)
	}
	if len(cfg.RetryableCodes) != 1 || cfg.RetryableCodes[0] != "TIMEOUT" {
		t.Errorf("RetryableCodes = %v, want [TIMEOUT]", cfg.RetryableCodes)
	}
}

func TestRetryProfile_ZeroFieldsFallBack(t *testing.T) {
	cfg := RetryProfile{MaxAttempts: 2}.ToRetryConfig()
	want := resilience.DefaultConfig()

	if cfg.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want 2", cfg.MaxAttempts)
	}
	if cfg.BaseDelay != want.BaseDelay {
		t.Errorf("BaseDelay = %v, want default %v", cfg.BaseDelay, want.BaseDelay)
	}
	if cfg.BackoffMultiplier != want.BackoffMultiplier {
		t.Errorf("BackoffMultiplier = %v, want default %v", cfg.BackoffMultiplier, want.BackoffMultiplier)
	}
	if cfg.Strategy != want.Strategy {
		t.Errorf("Strategy = %v, want default %v", cfg.Strategy, want.Strategy)
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}
