package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shellbridge/shellbridge/pkg/bridge"
	"github.com/shellbridge/shellbridge/pkg/config"
	"github.com/shellbridge/shellbridge/pkg/journal"
	"github.com/shellbridge/shellbridge/pkg/resilience"
	"github.com/shellbridge/shellbridge/pkg/telemetry"
)

func newInvokeCommand() *cobra.Command {
	var (
		params      []string
		modules     []string
		scriptPath  string
		timeout     time.Duration
		profile     string
		dependency  string
		journalPath string
	)

	cmd := &cobra.Command{
		Use:   "invoke <operation>",
		Short: "Run one operation through the bridge",
		Long: `Invoke a single operation in the resolved shell interpreter with
classified retries and circuit breaking, and print its JSON result.

Parameter values are parsed as JSON when possible, so numbers and
booleans keep their types on the way into the interpreter; anything
that is not valid JSON is passed as a string.`,
		Example: `  # Simple invocation
  relayctl invoke Get-Date

  # Module import, typed parameters and a retry profile
  relayctl invoke Get-MgUser \
    --module Microsoft.Graph.Users \
    --param UserId=jane@contoso.com \
    --param Top=25 \
    --profile aggressive \
    --dependency ms_graph

  # Record diagnostics in a local journal
  relayctl invoke Get-MgUser --journal ./shellbridge.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			settings, err := loadSettings()
			if err != nil {
				return err
			}

			parameters, err := parseParams(params)
			if err != nil {
				return err
			}

			tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
			if err != nil {
				return fmt.Errorf("failed to set up telemetry: %w", err)
			}
			defer func() {
				if err := tel.Shutdown(ctx); err != nil {
					log.Debug().Err(err).Msg("Telemetry shutdown failed")
				}
			}()

			if journalPath != "" {
				store, err := journal.NewSQLiteStore(journal.Config{Path: journalPath})
				if err != nil {
					return err
				}
				if err := store.Init(ctx); err != nil {
					return err
				}
				defer store.Close()
				tel.Events.Subscribe(journal.Subscriber(store, log.Logger), nil)
			}

			b, err := newBridge(ctx, settings, tel)
			if err != nil {
				return err
			}

			executor := resilience.NewExecutor(
				resilience.WithLogger(log.Logger),
				resilience.WithHook(telemetry.NewExecutionHook(tel)),
				resilience.WithBreakers(resilience.NewRegistry(
					settings.Breaker.FailureThreshold,
					settings.Breaker.RecoveryTimeout,
					resilience.WithTransitionObserver(telemetry.BreakerObserver(tel)),
				)),
			)

			req := bridge.Request{
				ScriptPath: scriptPath,
				Operation:  args[0],
				Parameters: parameters,
				Modules:    modules,
				Timeout:    timeout,
			}

			result, err := resilience.Do(ctx, executor, dependency, req.Operation, settings.Profile(profile),
				func(ctx context.Context) (*bridge.Result, error) {
					return b.Invoke(ctx, req)
				})
			if err != nil {
				return err
			}

			return printResult(result)
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "operation parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&modules, "module", "m", nil, "module to load before the operation (repeatable, ordered)")
	cmd.Flags().StringVar(&scriptPath, "script", "", "script dot-sourced before modules load")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "invocation timeout (default from settings)")
	cmd.Flags().StringVar(&profile, "profile", "default", "retry profile name")
	cmd.Flags().StringVar(&dependency, "dependency", "shell", "dependency name for circuit breaking")
	cmd.Flags().StringVar(&journalPath, "journal", "", "SQLite journal path for invocation diagnostics")

	return cmd
}

// newBridge constructs the bridge from settings with telemetry attached.
func newBridge(ctx context.Context, settings *config.Settings, tel *telemetry.Telemetry) (*bridge.Bridge, error) {
	opts := []bridge.Option{
		bridge.WithTimeout(settings.Bridge.DefaultTimeout),
		bridge.WithMaxConcurrent(settings.Bridge.MaxConcurrent),
		bridge.WithObserver(telemetry.InvocationObserver(tel)),
	}
	if cands := settings.Candidates(); cands != nil {
		opts = append(opts, bridge.WithCandidates(cands...))
	}

	b, err := bridge.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	_ = tel.Events.PublishInterpreterResolved(b.Interpreter().Name, b.Version())
	return b, nil
}

// parseParams turns key=value arguments into typed parameters. Values that
// parse as JSON keep their type; everything else stays a string.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	parameters := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}

		dec := json.NewDecoder(strings.NewReader(value))
		dec.UseNumber()
		var typed any
		if err := dec.Decode(&typed); err == nil && !dec.More() {
			parameters[key] = typed
		} else {
			parameters[key] = value
		}
	}
	return parameters, nil
}

// printResult writes the invocation outcome to stdout.
func printResult(result *bridge.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if jsonOutput {
		return enc.Encode(result)
	}
	if result.Data == nil {
		fmt.Println("(no output)")
		return nil
	}
	return enc.Encode(result.Data)
}
