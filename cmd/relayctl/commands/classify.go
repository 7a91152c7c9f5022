package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shellbridge/shellbridge/pkg/resilience"
)

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <message>",
		Short: "Classify an error message",
		Long: `Classify raw error text the way the retry executor does and report
the resulting category. When the text carries a server-provided
"retry after N seconds" hint, that is reported too.

Useful for checking how a failure seen in production logs would have
been treated by the retry policy.`,
		Example: `  relayctl classify "429 too many requests, retry after 30 seconds"
  relayctl classify "Insufficient privileges to complete the operation"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			category := resilience.Classify(message)
			hint, hasHint := resilience.ParseRetryAfterHint(message)

			if jsonOutput {
				out := map[string]any{
					"category": string(category),
				}
				if hasHint {
					out["retry_after_seconds"] = hint.Seconds()
				}
				return json.NewEncoder(os.Stdout).Encode(out)
			}

			fmt.Printf("category: %s\n", category)
			if hasHint {
				fmt.Printf("retry-after hint: %s\n", hint)
			}
			return nil
		},
	}
}
