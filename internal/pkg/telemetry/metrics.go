package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Data freshness
	MetricDatasetFreshness = "cadastre.dataset_age_seconds"
	MetricRefreshLatency   = "cadastre.refresh_latency"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricLookupsServed = "business.lookups_served"
	MetricRoofsIngested = "business.roofs_ingested"
)
