// Package metrics holds the Prometheus collectors exported by adshield.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "adshield"

	subsystemClassifier = "classifier"
	subsystemFilter     = "filter"
)

var (
	// ClassifierDecisions counts classification outcomes by category. Cached
	// decisions are counted as well.
	ClassifierDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "decisions_total",
		Subsystem: subsystemClassifier,
		Namespace: namespace,
		Help:      "Total number of classification decisions by category.",
	}, []string{"category"})

	// classifierCacheLookups is a counter with the total number of decision
	// cache lookups.  "hit" is "1" if the URL was found in the cache.
	classifierCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "cache_lookups_total",
		Subsystem: subsystemClassifier,
		Namespace: namespace,
		Help:      "Total number of decision cache lookups.",
	}, []string{"hit"})

	// ClassifierCacheHits is the hit half of classifierCacheLookups.
	ClassifierCacheHits = classifierCacheLookups.With(prometheus.Labels{"hit": "1"})

	// ClassifierCacheMisses is the miss half of classifierCacheLookups.
	ClassifierCacheMisses = classifierCacheLookups.With(prometheus.Labels{"hit": "0"})

	// ClassifierRulesetSwaps counts how many times a new ruleset was installed.
	ClassifierRulesetSwaps = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "ruleset_swaps_total",
		Subsystem: subsystemClassifier,
		Namespace: namespace,
		Help:      "Total number of ruleset swaps, each of which clears the decision cache.",
	})
)

var (
	// FilterRulesTotal is a gauge with the number of entries loaded from each
	// source ("config", "hosts", "easylist").
	FilterRulesTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name:      "rules_total",
		Subsystem: subsystemFilter,
		Namespace: namespace,
		Help:      "The number of rules loaded per filter source.",
	}, []string{"source"})

	// FilterUpdatedTime is a gauge with the unix time of the last successful
	// refresh of each source.
	FilterUpdatedTime = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name:      "updated_time",
		Subsystem: subsystemFilter,
		Namespace: namespace,
		Help:      "Time when the filter source was last refreshed.",
	}, []string{"source"})

	// FilterUpdateStatus is a gauge with the status of the last refresh of
	// each source.  "0" means error, "1" means success.
	FilterUpdateStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name:      "update_status",
		Subsystem: subsystemFilter,
		Namespace: namespace,
		Help:      "Status of the last filter refresh. 1 means success.",
	}, []string{"source"})
)

// SetStatusOK is a helper that sets a 0/1 gauge from a boolean.
func SetStatusOK(g prometheus.Gauge, ok bool) {
	if ok {
		g.Set(1)
	} else {
		g.Set(0)
	}
}
