package metrics

import (
	"context"
	"time"

	"github.com/nlweb-ai/schemacrawler/pkg/queue"
	"github.com/nlweb-ai/schemacrawler/pkg/store"
)

// Collector periodically samples Store-derived gauges (sites/files/ids
// totals) and, when the configured Queue backend supports it, the
// Queue backlog depth that feeds GetReadiness's degraded tier.
type Collector struct {
	store   store.Store
	depth   queue.DepthReporter // nil if the backend doesn't implement it
	backend string
	stopCh  chan struct{}
}

// NewCollector creates a metrics collector over the given Store and
// Queue. q is type-asserted against queue.DepthReporter; backends that
// don't implement it (the cloud queues) simply aren't sampled for
// depth.
func NewCollector(st store.Store, q queue.Queue, backend string) *Collector {
	depth, _ := q.(queue.DepthReporter)
	return &Collector{
		store:   st,
		depth:   depth,
		backend: backend,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15s tick.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	counts, err := c.store.Counts(ctx)
	if err != nil {
		return
	}

	SitesTotal.WithLabelValues("true").Set(float64(counts.ActiveSites))
	SitesTotal.WithLabelValues("false").Set(float64(counts.InactiveSites))
	FilesTotal.WithLabelValues("true").Set(float64(counts.ActiveFiles))
	FilesTotal.WithLabelValues("false").Set(float64(counts.InactiveFiles))
	IdsTotal.Set(float64(counts.Ids))

	if c.depth != nil {
		if n, err := c.depth.Depth(ctx); err == nil {
			ReportQueueDepth(c.backend, n)
		}
	}
}
