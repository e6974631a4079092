// Package cachemetrics exports cache statistics as Prometheus metrics.
//
// The collector reads a snapshot on every scrape, so it never drifts from the
// cache's own counters:
//
//	c := cache.NewMemory[[]byte]()
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(cachemetrics.NewCollector("sitekit", "pages", c))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package cachemetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/webstudio/sitekit/core/cache"
)

// StatsSource is the part of a cache the collector reads.
type StatsSource interface {
	Stats() cache.Stats
	Len() int
}

// Collector implements prometheus.Collector for one cache instance.
type Collector struct {
	source StatsSource

	hits      *prometheus.Desc
	misses    *prometheus.Desc
	sets      *prometheus.Desc
	deletes   *prometheus.Desc
	evictions *prometheus.Desc
	entries   *prometheus.Desc
	hitRatio  *prometheus.Desc
}

// NewCollector creates a collector for source. name is exported as the "cache" label
// so several caches can share one namespace.
func NewCollector(namespace, name string, source StatsSource) *Collector {
	labels := prometheus.Labels{"cache": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", metric), help, nil, labels)
	}

	return &Collector{
		source:    source,
		hits:      desc("hits_total", "Total number of cache hits"),
		misses:    desc("misses_total", "Total number of cache misses"),
		sets:      desc("sets_total", "Total number of cache writes"),
		deletes:   desc("deletes_total", "Total number of explicit cache deletes"),
		evictions: desc("evictions_total", "Total number of entries removed by LRU eviction or expiry"),
		entries:   desc("entries", "Current number of stored entries"),
		hitRatio:  desc("hit_ratio", "Ratio of hits to reads since start"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.sets
	ch <- c.deletes
	ch <- c.evictions
	ch <- c.entries
	ch <- c.hitRatio
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.sets, prometheus.CounterValue, float64(s.Sets))
	ch <- prometheus.MustNewConstMetric(c.deletes, prometheus.CounterValue, float64(s.Deletes))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(c.source.Len()))
	ch <- prometheus.MustNewConstMetric(c.hitRatio, prometheus.GaugeValue, s.HitRatio())
}
