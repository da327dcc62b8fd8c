package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nlweb-ai/schemacrawler/pkg/log"
	"github.com/nlweb-ai/schemacrawler/pkg/metrics"
	"github.com/nlweb-ai/schemacrawler/pkg/store"
)

// Config holds reconciler configuration.
type Config struct {
	Interval time.Duration
	// Repair, when true, corrects a drifted File.NumberOfItems by
	// re-running DiffFileIds with the file's own current id set
	// (a no-op diff that still rewrites number_of_items and
	// last_read_time). When false the reconciler only logs and counts
	// drift, leaving correction to a human or a future worker run.
	Repair bool
}

func defaultConfig() Config {
	return Config{Interval: 10 * time.Minute, Repair: true}
}

// Reconciler periodically sweeps every active site's files and
// verifies invariant I4 (files.number_of_items equals the count of
// ids rows for that file), correcting drift it finds. It exists
// because DiffFileIds is the only writer of that pair and nothing
// else re-derives it; a worker crash between the id-table write and the
// number_of_items update (or a row edited directly in the backing
// store) can leave the two out of sync, and nothing else in the
// pipeline would ever notice.
type Reconciler struct {
	cfg    Config
	st     store.Store
	logger zerolog.Logger
	mu     sync.Mutex
	stopCh chan struct{}
}

// NewReconciler creates a Reconciler over st.
func NewReconciler(cfg Config, st store.Store) *Reconciler {
	if cfg.Interval == 0 {
		cfg = defaultConfig()
	}
	return &Reconciler{
		cfg:    cfg,
		st:     st,
		logger: log.WithComponent("reconciler"),
		stopCh: make(chan struct{}),
	}
}

// Start begins the sweep loop in a goroutine.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop signals the sweep loop to exit.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.cfg.Interval).Msg("reconciler started")

	for {
		select {
		case <-ticker.C:
			if err := r.sweep(context.Background()); err != nil {
				r.logger.Error().Err(err).Msg("reconciliation sweep failed")
			}
		case <-r.stopCh:
			r.logger.Info().Msg("reconciler stopped")
			return
		}
	}
}

// sweep runs one consistency pass across every active site. Sweeps
// never overlap: run calls sweep one at a time, and a call made while
// another sweep holds the lock returns nil without sweeping.
func (r *Reconciler) sweep(ctx context.Context) error {
	if !r.mu.TryLock() {
		r.logger.Warn().Msg("previous sweep still running, skipping this tick")
		return nil
	}
	defer r.mu.Unlock()

	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	sites, err := r.st.ListAllSites(ctx)
	if err != nil {
		return fmt.Errorf("reconciler: list all sites: %w", err)
	}

	for _, site := range sites {
		if err := r.sweepSite(ctx, site.SiteURL, site.UserID); err != nil {
			log.WithSite(r.logger, site.SiteURL, site.UserID).Error().Err(err).Msg("failed to sweep site")
		}
	}
	return nil
}

// sweepSite checks invariant I4 for every file under one (site, user).
func (r *Reconciler) sweepSite(ctx context.Context, siteURL, userID string) error {
	files, err := r.st.ListSiteFiles(ctx, siteURL, userID)
	if err != nil {
		return fmt.Errorf("list site files: %w", err)
	}

	for _, f := range files {
		if !f.IsActive {
			continue
		}
		fileLog := log.WithFile(r.logger, f.FileURL, userID)

		ids, err := r.st.ListFileIds(ctx, f.FileURL, userID)
		if err != nil {
			fileLog.Error().Err(err).Msg("failed to list file ids")
			continue
		}
		if len(ids) == f.NumberOfItems {
			continue
		}

		fileLog.Warn().
			Int("recorded", f.NumberOfItems).
			Int("actual", len(ids)).
			Msg("number_of_items drifted from ids table")
		metrics.ReconciliationDriftTotal.WithLabelValues("number_of_items").Inc()

		if !r.cfg.Repair {
			continue
		}
		if _, _, err := r.st.DiffFileIds(ctx, f.FileURL, userID, ids); err != nil {
			fileLog.Error().Err(err).Msg("failed to repair number_of_items")
		}
	}
	return nil
}
