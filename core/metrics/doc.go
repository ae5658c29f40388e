// Package metrics defines the sinks receiving command results, applied
// allocations and surplus updates. Only RecordCommand is mandatory; the
// other recorders are discovered by type assertion. Concrete sinks live in
// infra/metrics and register themselves by name.
package metrics
