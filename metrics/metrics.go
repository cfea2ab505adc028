// Package metrics exposes prometheus counters for segment usage activity.
// Counters are registered with the default registry at init time; embedders
// serve them through their own /metrics endpoint.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AllocationsTotal counts segments handed out to the log writer.
	AllocationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "segkit_allocations_total",
		Help: "Number of clean segments allocated for writing.",
	})

	// FreedTotal counts segments returned to the clean pool.
	FreedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "segkit_freed_total",
		Help: "Number of segments freed by the garbage collector.",
	})

	// ScrappedTotal counts segments forcibly invalidated prior to reclaim.
	ScrappedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "segkit_scrapped_total",
		Help: "Number of segments scrapped (marked garbage).",
	})

	// ErrorsMarkedTotal counts segments flagged faulty.
	ErrorsMarkedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "segkit_errors_marked_total",
		Help: "Number of segments marked as erroneous.",
	})

	// NoSpaceTotal counts allocation attempts that found no clean segment.
	NoSpaceTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "segkit_no_space_total",
		Help: "Number of allocation attempts that failed with no space.",
	})

	// DiscardedBytesTotal counts bytes released to the device by trim.
	DiscardedBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "segkit_discarded_bytes_total",
		Help: "Number of bytes discarded by filesystem trim.",
	})
)

func init() {
	prometheus.MustRegister(AllocationsTotal, FreedTotal, ScrappedTotal,
		ErrorsMarkedTotal, NoSpaceTotal, DiscardedBytesTotal)
}
