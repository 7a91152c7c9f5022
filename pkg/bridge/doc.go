// Package bridge invokes operations in an external shell interpreter and
// decodes their JSON output.
//
// A Bridge resolves its interpreter once at construction by probing a list
// of candidates in order (by default pwsh, then powershell) and binds to
// the first one that responds. Every invocation then runs in a fresh
// interpreter process: the bridge assembles a small program that loads the
// requested modules, invokes the operation with named parameters, and
// pipes the result through ConvertTo-Json onto stdout.
//
//	br, err := bridge.New(ctx)
//	if err != nil {
//	    // no usable interpreter, nothing will work
//	}
//
//	res, err := br.Invoke(ctx, bridge.Request{
//	    Operation: "Get-MgUser",
//	    Modules:   []string{"Microsoft.Graph.Users"},
//	    Parameters: map[string]any{
//	        "UserId": "user@contoso.com",
//	    },
//	})
//
// All request data is rendered as single-quoted PowerShell literals, so
// parameter values can never change the structure of the generated
// program. Decoded numbers are json.Number to keep integer and float
// values exact.
//
// The bridge performs no retries and no classification of its own beyond
// marking timeouts and malformed output; callers compose it with the
// resilience package for that:
//
//	exec := resilience.NewExecutor()
//	res, err := resilience.Do(ctx, exec, "graph", "Get-MgUser", cfg,
//	    func(ctx context.Context) (*bridge.Result, error) {
//	        return br.Invoke(ctx, req)
//	    })
//
// Invocations are bounded by a per-request timeout (the subprocess is
// killed when it expires) and by a concurrency limiter shared across the
// bridge. Both are safe for concurrent use.
package bridge
