package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shellbridge/shellbridge/pkg/bridge"
)

func newProbeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Resolve the shell interpreter",
		Long: `Probe the interpreter candidates in order and report the first one
that works, together with its version. Exits non-zero when no usable
interpreter is found, which callers can use as an environment check.`,
		Example: `  # Check the default resolution order (pwsh, then powershell)
  relayctl probe

  # Check a custom interpreter from a settings file
  relayctl --config shellbridge.yaml probe`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			var opts []bridge.Option
			if cands := settings.Candidates(); cands != nil {
				opts = append(opts, bridge.WithCandidates(cands...))
			}

			b, err := bridge.New(cmd.Context(), opts...)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(map[string]string{
					"interpreter": b.Interpreter().Name,
					"path":        b.Interpreter().Path,
					"version":     b.Version(),
				})
			}

			fmt.Printf("interpreter: %s\n", b.Interpreter().Name)
			fmt.Printf("path:        %s\n", b.Interpreter().Path)
			fmt.Printf("version:     %s\n", b.Version())
			return nil
		},
	}
}
