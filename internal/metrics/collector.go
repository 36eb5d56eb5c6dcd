// Package metrics collects in-process pipeline metrics: per-stage latency,
// per-collection search outcomes, and cache effectiveness. Snapshots are
// served on the HTTP surface for scraping.
package metrics

import (
	"sync"
	"time"
)

// Collector aggregates engine metrics. All methods are safe for
// concurrent use.
type Collector struct {
	mutex sync.RWMutex

	counters  map[string]int64
	latencies map[string]*latencySummary
	startedAt time.Time
}

// latencySummary tracks count, sum, and max for one labelled duration.
type latencySummary struct {
	Count int64
	Sum   time.Duration
	Max   time.Duration
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		counters:  make(map[string]int64),
		latencies: make(map[string]*latencySummary),
		startedAt: time.Now(),
	}
}

// Inc increments a named counter.
func (c *Collector) Inc(name string) {
	c.Add(name, 1)
}

// Add increments a named counter by delta.
func (c *Collector) Add(name string, delta int64) {
	c.mutex.Lock()
	c.counters[name] += delta
	c.mutex.Unlock()
}

// Observe records one duration under a label.
func (c *Collector) Observe(name string, d time.Duration) {
	c.mutex.Lock()
	s, ok := c.latencies[name]
	if !ok {
		s = &latencySummary{}
		c.latencies[name] = s
	}
	s.Count++
	s.Sum += d
	if d > s.Max {
		s.Max = d
	}
	c.mutex.Unlock()
}

// Timer returns a function that records the elapsed time under the label
// when called. Intended for defer.
func (c *Collector) Timer(name string) func() {
	start := time.Now()
	return func() {
		c.Observe(name, time.Since(start))
	}
}

// LatencyStat is the exported form of a latency summary.
type LatencyStat struct {
	Count     int64   `json:"count"`
	AvgMillis float64 `json:"avg_ms"`
	MaxMillis float64 `json:"max_ms"`
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	UptimeSeconds float64                `json:"uptime_seconds"`
	Counters      map[string]int64       `json:"counters"`
	Latencies     map[string]LatencyStat `json:"latencies"`
}

// Snapshot returns a consistent copy of the current metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startedAt).Seconds(),
		Counters:      make(map[string]int64, len(c.counters)),
		Latencies:     make(map[string]LatencyStat, len(c.latencies)),
	}
	for name, value := range c.counters {
		snap.Counters[name] = value
	}
	for name, s := range c.latencies {
		stat := LatencyStat{
			Count:     s.Count,
			MaxMillis: float64(s.Max) / float64(time.Millisecond),
		}
		if s.Count > 0 {
			stat.AvgMillis = float64(s.Sum) / float64(s.Count) / float64(time.Millisecond)
		}
		snap.Latencies[name] = stat
	}
	return snap
}
