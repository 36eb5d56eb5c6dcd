package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()
	c.Inc("analyses_started")
	c.Inc("analyses_started")
	c.Add("queries_expanded", 7)

	snap := c.Snapshot()
	if snap.Counters["analyses_started"] != 2 {
		t.Errorf("counter = %d, want 2", snap.Counters["analyses_started"])
	}
	if snap.Counters["queries_expanded"] != 7 {
		t.Errorf("counter = %d, want 7", snap.Counters["queries_expanded"])
	}
}

func TestCollectorLatencies(t *testing.T) {
	c := NewCollector()
	c.Observe("retrieval", 10*time.Millisecond)
	c.Observe("retrieval", 30*time.Millisecond)

	snap := c.Snapshot()
	stat, ok := snap.Latencies["retrieval"]
	if !ok {
		t.Fatal("latency label missing")
	}
	if stat.Count != 2 {
		t.Errorf("count = %d, want 2", stat.Count)
	}
	if stat.AvgMillis != 20 {
		t.Errorf("avg = %v, want 20", stat.AvgMillis)
	}
	if stat.MaxMillis != 30 {
		t.Errorf("max = %v, want 30", stat.MaxMillis)
	}
}

func TestCollectorTimer(t *testing.T) {
	c := NewCollector()
	stop := c.Timer("stage")
	time.Sleep(time.Millisecond)
	stop()

	snap := c.Snapshot()
	if snap.Latencies["stage"].Count != 1 {
		t.Error("timer did not record")
	}
	if snap.Latencies["stage"].MaxMillis <= 0 {
		t.Error("timer recorded a zero duration")
	}
}

func TestCollectorConcurrentUse(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc("hits")
				c.Observe("lat", time.Microsecond)
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.Counters["hits"] != 1600 {
		t.Errorf("hits = %d, want 1600", snap.Counters["hits"])
	}
	if snap.Latencies["lat"].Count != 1600 {
		t.Errorf("lat count = %d, want 1600", snap.Latencies["lat"].Count)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := NewCollector()
	c.Inc("a")
	snap := c.Snapshot()
	snap.Counters["a"] = 99

	if c.Snapshot().Counters["a"] != 1 {
		t.Error("mutating a snapshot must not affect the collector")
	}
}
