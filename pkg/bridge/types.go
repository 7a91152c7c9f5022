package bridge

import (
	"fmt"
	"regexp"
	"time"
)

// Candidate describes one interpreter the bridge may resolve.
type Candidate struct {
	// Name identifies the interpreter in logs and results.
	Name string

	// Path is the executable name or absolute path.
	Path string

	// Args are the base arguments placed before the command text.
	Args []string

	// Probe is an expression whose successful run proves the interpreter
	// works. Its stdout is kept as the interpreter version.
	Probe string
}

// DefaultCandidates returns the PowerShell resolution order: pwsh first,
// Windows PowerShell as the fallback.
func DefaultCandidates() []Candidate {
	probe := "$PSVersionTable.PSVersion.ToString()"
	args := []string{"-NoProfile", "-NonInteractive", "-Command"}
	return []Candidate{
		{Name: "pwsh", Path: "pwsh", Args: args, Probe: probe},
		{Name: "powershell", Path: "powershell", Args: args, Probe: probe},
	}
}

// operationNamePattern matches PowerShell command names such as Get-MgUser
// or Connect-ExchangeOnline. Anything else is rejected before a process is
// spawned so request data can never change the command structure.
var operationNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Request describes one operation invocation.
type Request struct {
	// ScriptPath is a script dot-sourced before any modules load, for
	// operations defined in a local file rather than an installed module.
	ScriptPath string `json:"script_path,omitempty"`

	// Operation is the command to invoke, usually a Verb-Noun cmdlet name.
	Operation string `json:"operation"`

	// Parameters are passed to the operation by name.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Modules are loaded in order before the operation runs. Entries
	// ending in .ps1 are dot-sourced, everything else is imported by name
	// or path.
	Modules []string `json:"modules,omitempty"`

	// Timeout bounds the whole invocation including interpreter startup.
	// Zero uses the bridge default.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Validate checks the request shape.
func (r Request) Validate() error {
	if r.Operation == "" {
		return fmt.Errorf("operation is required")
	}
	if !operationNamePattern.MatchString(r.Operation) {
		return fmt.Errorf("operation name %q contains invalid characters", r.Operation)
	}
	for i, m := range r.Modules {
		if m == "" {
			return fmt.Errorf("module %d is empty", i)
		}
	}
	if r.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// Result captures one finished invocation.
type Result struct {
	// InvocationID correlates logs, metrics and journal entries.
	InvocationID string `json:"invocation_id"`

	// Success is true when the interpreter exited cleanly and its output
	// was understood.
	Success bool `json:"success"`

	// Data is the decoded JSON payload. Nil for operations that produce no
	// output. Numbers are json.Number so values round-trip without
	// precision loss.
	Data any `json:"data,omitempty"`

	// ExitCode is the interpreter exit code. -1 when the process did not
	// run to completion.
	ExitCode int `json:"exit_code"`

	// Stdout and Stderr hold the raw captured streams.
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	// Elapsed is the wall-clock invocation time, recorded on every outcome
	// including failures and timeouts.
	Elapsed time.Duration `json:"elapsed"`
}
