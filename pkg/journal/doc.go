// Package journal persists invocation and retry diagnostics in SQLite.
//
// The journal is a passive observer: it subscribes to telemetry events and
// records one row per bridge invocation and one row per failed retry
// attempt. Nothing in the resilience core ever reads it back; the data
// exists for operators investigating failures after the fact. Retry
// decisions stay stateless.
package journal
