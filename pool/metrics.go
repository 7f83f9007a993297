package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector 把缓冲池计数导出为 Prometheus 指标，采集时读取一次 Stats，不影响取用热路径。
type Collector struct {
	pool *Pool

	allocated      *prometheus.Desc
	inUse          *prometheus.Desc
	allocatedBytes *prometheus.Desc
	inUseBytes     *prometheus.Desc
	hits           *prometheus.Desc
	misses         *prometheus.Desc
	evicted        *prometheus.Desc
	sweeps         *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector 创建指标采集器。
// 参数：
// - p: 目标缓冲池
// - namespace: 指标前缀（如 bufpool）
func NewCollector(p *Pool, namespace string) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, nil, nil)
	}
	return &Collector{
		pool:           p,
		allocated:      desc("buffers_allocated", "Buffers held by the pool, in use or free."),
		inUse:          desc("buffers_in_use", "Buffers currently handed out."),
		allocatedBytes: desc("allocated_bytes", "Capacity of all buffers held by the pool."),
		inUseBytes:     desc("in_use_bytes", "Capacity of buffers currently handed out."),
		hits:           desc("reuse_total", "Acquisitions served by an existing free buffer."),
		misses:         desc("alloc_total", "Acquisitions that allocated a new buffer."),
		evicted:        desc("evicted_total", "Buffers reclaimed after exceeding the idle timeout."),
		sweeps:         desc("sweeps_total", "Eviction sweeps run."),
	}
}

// Describe 实现 prometheus.Collector。
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocated
	ch <- c.inUse
	ch <- c.allocatedBytes
	ch <- c.inUseBytes
	ch <- c.hits
	ch <- c.misses
	ch <- c.evicted
	ch <- c.sweeps
}

// Collect 实现 prometheus.Collector。
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()
	ch <- prometheus.MustNewConstMetric(c.allocated, prometheus.GaugeValue, float64(s.Allocated))
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(s.InUse))
	ch <- prometheus.MustNewConstMetric(c.allocatedBytes, prometheus.GaugeValue, float64(s.AllocatedBytes))
	ch <- prometheus.MustNewConstMetric(c.inUseBytes, prometheus.GaugeValue, float64(s.InUseBytes))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.evicted, prometheus.CounterValue, float64(s.Evicted))
	ch <- prometheus.MustNewConstMetric(c.sweeps, prometheus.CounterValue, float64(s.Sweeps))
}
