package scheduler

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rs/zerolog"

	"github.com/nlweb-ai/schemacrawler/pkg/discoverer"
	"github.com/nlweb-ai/schemacrawler/pkg/log"
	"github.com/nlweb-ai/schemacrawler/pkg/metrics"
	"github.com/nlweb-ai/schemacrawler/pkg/queue"
	"github.com/nlweb-ai/schemacrawler/pkg/store"
)

// Config holds scheduler configuration.
type Config struct {
	TickInterval time.Duration
	Concurrency  int64
	TickTimeout  time.Duration
}

func defaultConfig() Config {
	return Config{
		TickInterval: 60 * time.Second,
		Concurrency:  8,
		TickTimeout:  10 * time.Minute,
	}
}

// Scheduler periodically selects sites whose crawl interval has
// elapsed (types.Site.Due) and runs the Discoverer against each one,
// bounded to a fixed concurrency so one tick can't overrun the next
// (spec.md §4.6, ported from master.py's semaphore-bounded
// asyncio.gather over process_site).
type Scheduler struct {
	cfg        Config
	st         store.Store
	q          queue.Queue
	discoverer *discoverer.Discoverer
	logger     zerolog.Logger
	stopCh     chan struct{}
}

// NewScheduler creates a Scheduler over the given Store and Queue,
// using d to run each due site's discovery.
func NewScheduler(cfg Config, st store.Store, q queue.Queue, d *discoverer.Discoverer) *Scheduler {
	def := defaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = def.TickTimeout
	}
	return &Scheduler{
		cfg:        cfg,
		st:         st,
		q:          q,
		discoverer: d,
		logger:     log.WithComponent("scheduler"),
		stopCh:     make(chan struct{}),
	}
}

// Start begins the tick loop in a goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop signals the tick loop to exit.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stopCh:
			return
		}
	}
}

// tick runs one scheduling cycle: select due sites, discover each
// with bounded concurrency, and record how the cycle went.
func (s *Scheduler) tick() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SchedulerTickDuration)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TickTimeout)
	defer cancel()

	sites, err := s.st.GetDueSites(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list due sites")
		return
	}
	if len(sites) == 0 {
		return
	}

	metrics.SitesDueTotal.Add(float64(len(sites)))
	sem := semaphore.NewWeighted(s.cfg.Concurrency)

	for _, site := range sites {
		if err := sem.Acquire(ctx, 1); err != nil {
			s.logger.Warn().Err(err).Msg("tick context cancelled before all due sites were scheduled")
			break
		}

		site := site
		go func() {
			defer sem.Release(1)
			s.discoverOne(ctx, site.SiteURL, site.UserID)
		}()
	}

	// Wait for all in-flight discoveries this tick to finish before
	// the next tick's GetDueSites call, so the same site is never run
	// concurrently with itself across ticks.
	if err := sem.Acquire(ctx, s.cfg.Concurrency); err != nil {
		s.logger.Warn().Err(err).Msg("timed out waiting for tick to drain")
	}
}

func (s *Scheduler) discoverOne(ctx context.Context, siteURL, userID string) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DiscoverCycleDuration)

	if err := s.discoverer.Run(ctx, s.st, s.q, siteURL, userID); err != nil {
		metrics.DiscoveryErrorsTotal.WithLabelValues("run").Inc()
		log.WithSite(s.logger, siteURL, userID).Error().Err(err).Msg("discovery failed")
	}
}
