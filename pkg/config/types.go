package config

import (
	"time"

	"github.com/shellbridge/shellbridge/pkg/bridge"
	"github.com/shellbridge/shellbridge/pkg/resilience"
)

// Settings is the root configuration document.
type Settings struct {
	// Logging configures the process-wide logger.
	Logging LoggingSettings `yaml:"logging"`

	// Bridge configures interpreter resolution and invocation limits.
	Bridge BridgeSettings `yaml:"bridge"`

	// Breaker configures the circuit breakers handed out per dependency.
	Breaker BreakerSettings `yaml:"breaker"`

	// Profiles are named retry configurations selectable by callers.
	Profiles map[string]RetryProfile `yaml:"profiles" validate:"dive"`
}

// LoggingSettings configures log output.
type LoggingSettings struct {
	// Level is the minimum level that gets logged.
	Level string `yaml:"level" validate:"required,oneof=trace debug info warn error fatal"`

	// Format selects console or json output.
	Format string `yaml:"format" validate:"required,oneof=console json"`
}

// BridgeSettings configures the interpreter bridge.
type BridgeSettings struct {
	// Candidates overrides the interpreter resolution order. Empty means
	// the built-in PowerShell order.
	Candidates []CandidateSettings `yaml:"candidates" validate:"dive"`

	// DefaultTimeout bounds invocations whose request sets no timeout.
	DefaultTimeout time.Duration `yaml:"default_timeout" validate:"min=0"`

	// MaxConcurrent caps simultaneous interpreter processes.
	MaxConcurrent int `yaml:"max_concurrent" validate:"min=0"`
}

// CandidateSettings describes one interpreter candidate in YAML form.
type CandidateSettings struct {
	// Name identifies the interpreter in logs and results.
	Name string `yaml:"name" validate:"required"`

	// Path is the executable name or absolute path.
	Path string `yaml:"path" validate:"required"`

	// Args are the base arguments placed before the command text.
	Args []string `yaml:"args"`

	// Probe is the expression run to verify the interpreter works.
	Probe string `yaml:"probe"`
}

// BreakerSettings configures circuit breaker thresholds.
type BreakerSettings struct {
	// FailureThreshold is the consecutive failure count that opens a
	// breaker.
	FailureThreshold int `yaml:"failure_threshold" validate:"min=0"`

	// RecoveryTimeout is how long an open breaker rejects calls before
	// admitting a trial.
	RecoveryTimeout time.Duration `yaml:"recovery_timeout" validate:"min=0"`
}

// RetryProfile is a named retry configuration in YAML form.
type RetryProfile struct {
	// MaxAttempts is the total invocation budget including the first try.
	MaxAttempts int `yaml:"max_attempts" validate:"required,min=1"`

	// BaseDelay is the starting delay for the backoff families.
	BaseDelay time.Duration `yaml:"base_delay" validate:"min=0"`

	// MaxDelay caps the delay for the linear and fixed strategies.
	MaxDelay time.Duration `yaml:"max_delay" validate:"min=0"`

	// BackoffMultiplier is the growth factor for exponential families.
	BackoffMultiplier float64 `yaml:"backoff_multiplier" validate:"min=0"`

	// Strategy selects the delay family.
	Strategy string `yaml:"strategy" validate:"omitempty,oneof=exponential linear fixed immediate"`

	// RetryableCodes lists error codes that are always retried.
	RetryableCodes []string `yaml:"retryable_codes"`

	// NonRetryableCodes lists error codes that are never retried.
	NonRetryableCodes []string `yaml:"non_retryable_codes"`
}

// ToRetryConfig converts the profile into the resilience package's form.
// Zero-valued fields fall back to the standard retry configuration.
func (p RetryProfile) ToRetryConfig() resilience.Config {
	cfg := resilience.DefaultConfig()
	if p.MaxAttempts > 0 {
		cfg.MaxAttempts = p.MaxAttempts
	}
	if p.BaseDelay > 0 {
		cfg.BaseDelay = p.BaseDelay
	}
	if p.MaxDelay > 0 {
		cfg.MaxDelay = p.MaxDelay
	}
	if p.BackoffMultiplier > 0 {
		cfg.BackoffMultiplier = p.BackoffMultiplier
	}
	if p.Strategy != "" {
		cfg.Strategy = resilience.Strategy(p.Strategy)
	}
	cfg.RetryableCodes = p.RetryableCodes
	cfg.NonRetryableCodes = p.NonRetryableCodes
	return cfg
}

// Candidates converts the configured interpreter candidates into the
// bridge's form. Nil when none are configured, which keeps the bridge on
// its built-in resolution order.
func (s *Settings) Candidates() []bridge.Candidate {
	if len(s.Bridge.Candidates) == 0 {
		return nil
	}
	out := make([]bridge.Candidate, 0, len(s.Bridge.Candidates))
	for _, c := range s.Bridge.Candidates {
		out = append(out, bridge.Candidate{
			Name:  c.Name,
			Path:  c.Path,
			Args:  c.Args,
			Probe: c.Probe,
		})
	}
	return out
}

// Profile returns the named retry profile as a resilience config. Unknown
// names fall back to the standard configuration so callers never have to
// special-case a missing profile.
func (s *Settings) Profile(name string) resilience.Config {
	if p, ok := s.Profiles[name]; ok {
		return p.ToRetryConfig()
	}
	return resilience.DefaultConfig()
}

// Default returns the settings used when no configuration file is given.
func Default() *Settings {
	return &Settings{
		Logging: LoggingSettings{
			Level:  "info",
			Format: "console",
		},
		Bridge: BridgeSettings{
			DefaultTimeout: bridge.DefaultTimeout,
			MaxConcurrent:  bridge.DefaultMaxConcurrent,
		},
		Breaker: BreakerSettings{
			FailureThreshold: resilience.DefaultFailureThreshold,
			RecoveryTimeout:  resilience.DefaultRecoveryTimeout,
		},
		Profiles: map[string]RetryProfile{
			"default": {
				MaxAttempts:       3,
				BaseDelay:         time.Second,
				MaxDelay:          60 * time.Second,
				BackoffMultiplier: 2,
				Strategy:          string(resilience.StrategyExponential),
			},
			"aggressive": {
				MaxAttempts:       5,
				BaseDelay:         500 * time.Millisecond,
				MaxDelay:          30 * time.Second,
				BackoffMultiplier: 2,
				Strategy:          string(resilience.StrategyExponential),
			},
			"single": {
				MaxAttempts: 1,
				Strategy:    string(resilience.StrategyImmediate),
			},
		},
	}
}
