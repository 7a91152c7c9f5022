package bridge

import (
	"fmt"
	"strings"
)

// jsonDepth bounds ConvertTo-Json recursion. Graph and Exchange result
// objects nest deeply; the PowerShell default of 2 silently truncates them.
const jsonDepth = 10

// BuildCommand assembles the interpreter program for one request. The
// program stops on the first error, dot-sources the script path when one is
// set, loads the requested modules in order, invokes the operation with
// named parameters via splatting, and emits the result as a single
// compressed JSON document on stdout. Any failure writes its reason to
// stderr and exits non-zero. Parameter values outside the JSON value set
// are an error.
func BuildCommand(req Request) (string, error) {
	var sb strings.Builder

	sb.WriteString("$ErrorActionPreference = 'Stop'\n")
	sb.WriteString("try {\n")

	if req.ScriptPath != "" {
		fmt.Fprintf(&sb, "  . %s\n", quote(req.ScriptPath))
	}

	for _, m := range req.Modules {
		if strings.HasSuffix(strings.ToLower(m), ".ps1") {
			fmt.Fprintf(&sb, "  . %s\n", quote(m))
		} else {
			fmt.Fprintf(&sb, "  Import-Module %s -ErrorAction Stop\n", quote(m))
		}
	}

	if len(req.Parameters) > 0 {
		params, err := hashtable(req.Parameters)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "  $params = %s\n", params)
		fmt.Fprintf(&sb, "  & %s @params | ConvertTo-Json -Depth %d -Compress\n", quote(req.Operation), jsonDepth)
	} else {
		fmt.Fprintf(&sb, "  & %s | ConvertTo-Json -Depth %d -Compress\n", quote(req.Operation), jsonDepth)
	}

	sb.WriteString("} catch {\n")
	sb.WriteString("  [Console]::Error.WriteLine($_.Exception.Message)\n")
	sb.WriteString("  exit 1\n")
	sb.WriteString("}\n")

	return sb.String(), nil
}
