// Package poolmetrics exposes a RegionPool's/SlabPool's counters as
// Prometheus gauges, modeled on seaweedfs's per-subsystem gauge-vector
// pattern (stats/metrics.go): one registry, one collector goroutine-free
// Collect call per scrape, an http.Handler for /metrics.
package poolmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "poolkit"

// Source is anything whose size/count counters can be scraped. Both
// pool.RegionPool and pool.SlabPool[T] implement the size accessors;
// Source only needs the subset a region pool exposes, since that is the
// only pool wired up to a running server (cmd/poolctl's serve command).
type Source interface {
	AllocatedSize() uintptr
	TotalSize() uintptr
	NumFreeBlocks() int
	NumUsedBlocks() int
}

// Collector adapts a Source into a prometheus.Collector, computing gauge
// values on each scrape rather than keeping them updated eagerly —
// avoids a write on every Allocate/Deallocate call in the hot path.
type Collector struct {
	source Source

	allocatedBytes *prometheus.Desc
	totalBytes     *prometheus.Desc
	freeBlocks     *prometheus.Desc
	usedBlocks     *prometheus.Desc
}

// NewCollector builds a Collector over source.
func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,
		allocatedBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "allocated_bytes"),
			"Bytes currently handed out to callers.", nil, nil,
		),
		totalBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "total_bytes"),
			"Bytes held from the backing source, including metadata overhead.", nil, nil,
		),
		freeBlocks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "free_blocks"),
			"Number of blocks currently on the free list.", nil, nil,
		),
		usedBlocks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "used_blocks"),
			"Number of blocks currently on the used list.", nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocatedBytes
	ch <- c.totalBytes
	ch <- c.freeBlocks
	ch <- c.usedBlocks
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.allocatedBytes, prometheus.GaugeValue, float64(c.source.AllocatedSize()))
	ch <- prometheus.MustNewConstMetric(c.totalBytes, prometheus.GaugeValue, float64(c.source.TotalSize()))
	ch <- prometheus.MustNewConstMetric(c.freeBlocks, prometheus.GaugeValue, float64(c.source.NumFreeBlocks()))
	ch <- prometheus.MustNewConstMetric(c.usedBlocks, prometheus.GaugeValue, float64(c.source.NumUsedBlocks()))
}

// Handler registers a Collector over source on a fresh registry and
// returns an http.Handler suitable for mounting at /metrics.
func Handler(source Source) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(source))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
