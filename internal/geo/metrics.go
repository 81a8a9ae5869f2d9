package geo

// Metrics is an interface for collecting statistics of the geo package.
type Metrics interface {
	// ObserveLookups records the outcome of a batch of lookups.
	ObserveLookups(matched, unmatched int)

	// ObserveReload records an index rebuild.  ranges is the size of the new
	// index and is only meaningful when ok is true.
	ObserveReload(ok bool, ranges int)
}

// EmptyMetrics is the implementation of the [Metrics] interface that does
// nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// ObserveLookups implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) ObserveLookups(_, _ int) {}

// ObserveReload implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) ObserveReload(_ bool, _ int) {}
