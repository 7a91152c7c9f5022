// Package resilience provides classified retries, backoff calculation and
// circuit breaking for calls into external dependencies.
//
// The package is built from four cooperating parts:
//
//  1. Classifier - Maps failure text onto error categories
//  2. Calculator - Computes category-aware retry delays
//  3. Breaker    - Per-dependency consecutive-failure circuit breakers
//  4. Executor   - Drives the retry loop and ties the parts together
//
// # Error Classification
//
// Failures are classified by case-insensitive keyword matching into a fixed
// priority order: rate limiting, authentication, authorization, network,
// transient, other. The first matching category wins, so a message naming
// both a 429 and a timeout is treated as rate limiting:
//
//	category := resilience.Classify("HTTP 429: too many requests")
//	// category == resilience.CategoryRateLimit
//
// ClassifyError additionally recognizes Go connectivity faults (timeouts,
// DNS failures, refused connections) and passes through errors that are
// already classified.
//
// # Delay Calculation
//
// Each category has its own delay family. Rate-limit and transient failures
// back off exponentially with jitter, authentication and network failures
// grow linearly, everything else backs off exponentially without jitter.
// Every family has a hard cap, and a server-provided "retry after N
// seconds" hint in the failure text overrides all of them:
//
//	calc := resilience.NewCalculator()
//	d := calc.Delay(2, resilience.CategoryRateLimit, msg, cfg)
//
// # Circuit Breakers
//
// Breakers are keyed by dependency so one misbehaving service never blocks
// calls to another. A breaker opens after a run of consecutive failures,
// rejects calls for the recovery timeout, then admits trial calls and
// closes again on the first success:
//
//	reg := resilience.NewRegistry(5, 30*time.Second)
//	if reg.Get("graph").CanExecute() {
//	    // proceed
//	}
//
// # Executing Operations
//
// The executor combines the three mechanisms behind a single call:
//
//	exec := resilience.NewExecutor(resilience.WithLogger(logger))
//	err := exec.Execute(ctx, "graph", "ListUsers", resilience.DefaultConfig(),
//	    func(ctx context.Context) error {
//	        return callDependency(ctx)
//	    })
//
// Operations that produce a value use the typed wrapper:
//
//	users, err := resilience.Do(ctx, exec, "graph", "ListUsers", cfg, list)
//
// A terminal error is always a *resilience.Error carrying the category,
// the full attempt history and the cumulative delay, so callers can log
// or persist exactly what happened.
//
// # Thread Safety
//
// Executors, registries and breakers are safe for concurrent use. The
// classifier and calculator are stateless after construction.
package resilience
