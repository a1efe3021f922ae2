package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Sweep pipeline
	MetricSweepDuration  = "sweep.run_duration_seconds"
	MetricOracleSpend    = "sweep.oracle_calls_total"
	MetricSweepTruncated = "sweep.truncated_runs"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricPlacesHydrated = "business.places_hydrated"
	MetricSnapshotsSaved = "business.snapshots_saved"
)
