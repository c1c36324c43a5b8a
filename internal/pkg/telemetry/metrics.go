package telemetry

// Span and attribute names.
const (
	TracerName = "github.com/samirrijal/hikepal"

	SpanAdvise = "knowledge.advise"

	AttrOutcome  = "hikepal.advisory.outcome"
	AttrCacheHit = "hikepal.advisory.cache_hit"
)
