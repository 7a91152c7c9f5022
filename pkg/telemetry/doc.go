// Package telemetry provides observability instrumentation for shellbridge.
//
// The telemetry package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry), metrics (Prometheus), and event publishing into a
// unified system for monitoring retry sequences, circuit breakers, and shell
// invocations.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for operational insights
//  4. Event Publishing - Event system for audit and progress reporting
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "shellbridge"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	// Start metrics server
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context
// propagation:
//
//	logger := tel.Logger.NewComponentLogger("executor")
//	logger = logger.WithDependency("ms_graph").WithOperation("Get-MgUser")
//	logger.Info("Starting invocation")
//	logger.WithError(err).Error("Invocation failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Tracing provides visibility into retry flow and invocation latency:
//
//	ctx, span := tel.Tracer.StartSequenceSpan(ctx, "ms_graph", "Get-MgUser")
//	defer span.End()
//
//	// Add attributes
//	span.SetAttributes(
//	    telemetry.AttrAttempt.Int(attempt),
//	    telemetry.AttrErrorCategory.String("rate_limit"),
//	)
//
//	// Record errors
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: OTLP (production), Stdout (development), None (testing)
//
// # Metrics
//
// Prometheus metrics track retry behavior, breaker health, and invocation
// latency:
//
//	// Record retry activity
//	tel.Metrics.RecordRetryAttempt("ms_graph", "rate_limit")
//	tel.Metrics.RecordSequenceOutcome("ms_graph", telemetry.OutcomeSuccess, totalDelay)
//
//	// Record breaker transitions
//	tel.Metrics.RecordBreakerTransition("ms_graph", "open")
//
//	// Record invocations
//	tel.Metrics.RecordInvocation("Get-MgUser", telemetry.OutcomeSuccess, elapsed)
//
//	// Record errors
//	tel.Metrics.RecordError("transient", "TIMEOUT")
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics)
//
// # Event Publishing
//
// The event system provides publishing with optional buffering and filtering:
//
//	// Subscribe to events
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("warning"))
//
//	// Publish events
//	tel.Events.PublishRetryScheduled("ms_graph", "Get-MgUser", 1, "rate_limit", delay)
//	tel.Events.PublishBreakerStateChanged("ms_graph", "closed", "open")
//
// Event filters: FilterByLevel, FilterByType, FilterByDependency,
// FilterByOperation
//
// # Wiring Into Execution
//
// The hook adapters connect the retry executor, breaker registry, and shell
// bridge to telemetry without those packages importing this one:
//
//	registry := resilience.NewRegistry(5, 30*time.Second,
//	    resilience.WithTransitionObserver(telemetry.BreakerObserver(tel)))
//
//	exec := resilience.NewExecutor(
//	    resilience.WithBreakers(registry),
//	    resilience.WithLogger(tel.Logger.Zerolog()),
//	    resilience.WithHook(telemetry.NewExecutionHook(tel)))
//
//	b, err := bridge.New(ctx,
//	    bridge.WithObserver(telemetry.InvocationObserver(tel)))
//
// # Configuration
//
// The package provides pre-configured setups for different environments:
//
//	// Development (verbose logging, stdout traces, full sampling)
//	cfg := telemetry.DevelopmentConfig()
//
//	// Production (JSON logs, OTLP traces, 10% sampling, metrics server)
//	cfg := telemetry.ProductionConfig()
//
//	// Custom configuration
//	cfg := &telemetry.Config{
//	    ServiceName:    "shellbridge",
//	    ServiceVersion: "1.0.0",
//	    Environment:    "staging",
//	    Logging: telemetry.LoggingConfig{
//	        Level:  "info",
//	        Format: "json",
//	    },
//	    Tracing: telemetry.TracingConfig{
//	        Enabled:      true,
//	        Exporter:     "otlp",
//	        Endpoint:     "otel-collector:4317",
//	        SamplingRate: 0.1,
//	    },
//	    Metrics: telemetry.MetricsConfig{
//	        Enabled:       true,
//	        ListenAddress: ":9090",
//	    },
//	}
//
// # Common Metrics
//
// Key metrics exposed:
//
//   - shellbridge_retry_attempts_total{dependency,category}
//   - shellbridge_retry_sequences_total{dependency,outcome}
//   - shellbridge_retry_total_delay_seconds{dependency}
//   - shellbridge_breaker_transitions_total{dependency,state}
//   - shellbridge_breaker_state{dependency}
//   - shellbridge_invocations_total{operation,outcome}
//   - shellbridge_invocation_duration_seconds{operation}
//   - shellbridge_errors_by_category_total{category}
//   - shellbridge_errors_by_code_total{code}
//
// # Graceful Shutdown
//
// Always shut down telemetry gracefully to flush pending data:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("Telemetry shutdown error: %v", err)
//	}
//
// This ensures buffered events are delivered and pending traces are
// exported before the process exits.
//
// # Security Considerations
//
//   - Never log sensitive data (credentials, keys, tokens)
//   - Operation parameters are not recorded in metrics or events
//   - Use secure connections (TLS) for trace exporters in production
//   - Limit metrics endpoint access via network policies
package telemetry
