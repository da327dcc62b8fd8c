// Package runtime wires one schemacrawler process's long-running
// components — Store, Queue, Indexer, Discoverer, Scheduler, a Worker
// pool, the event Broker, and the consistency Reconciler — into a
// single WorkerRuntime, the way the teacher's pkg/manager.Manager wires
// Store/Raft/DNS/ingress into one cluster node. The replication and
// cluster-membership machinery that filled most of that file has no
// analogue here: a schemacrawler deployment scales by running more
// independent workers against the same Store/Queue, not by Raft
// consensus over a shared log.
package runtime

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nlweb-ai/schemacrawler/pkg/config"
	"github.com/nlweb-ai/schemacrawler/pkg/discoverer"
	"github.com/nlweb-ai/schemacrawler/pkg/events"
	"github.com/nlweb-ai/schemacrawler/pkg/httpfetch"
	"github.com/nlweb-ai/schemacrawler/pkg/indexer"
	"github.com/nlweb-ai/schemacrawler/pkg/log"
	"github.com/nlweb-ai/schemacrawler/pkg/metrics"
	"github.com/nlweb-ai/schemacrawler/pkg/queue"
	"github.com/nlweb-ai/schemacrawler/pkg/reconciler"
	"github.com/nlweb-ai/schemacrawler/pkg/scheduler"
	"github.com/nlweb-ai/schemacrawler/pkg/store"
	"github.com/nlweb-ai/schemacrawler/pkg/types"
	"github.com/nlweb-ai/schemacrawler/pkg/worker"
)

// WorkerRuntime owns every long-running goroutine in one process and
// the Store/Queue/Indexer backends they share.
type WorkerRuntime struct {
	cfg config.Config

	st     store.Store
	q      queue.Queue
	ix     indexer.Indexer
	http   *httpfetch.Client
	events *events.Broker
	disc   *discoverer.Discoverer

	sched      *scheduler.Scheduler
	workers    []*worker.Worker
	reconciler *reconciler.Reconciler
	collector  *metrics.Collector

	log zerolog.Logger
}

// New builds a WorkerRuntime, constructing whichever Store, Queue, and
// Indexer backends cfg selects, and provisioning the Queue.
func New(ctx context.Context, cfg config.Config) (*WorkerRuntime, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("runtime: open store: %w", err)
	}

	q, err := openQueue(cfg)
	if err != nil {
		return nil, fmt.Errorf("runtime: open queue: %w", err)
	}
	if err := q.Provision(ctx); err != nil {
		return nil, fmt.Errorf("runtime: provision queue: %w", err)
	}

	httpClient := httpfetch.New(cfg.HTTPTimeout)
	ix := openIndexer(cfg, httpClient)

	broker := events.NewBroker()
	disc := discoverer.New(httpClient, log.WithComponent("discoverer")).WithEvents(broker)

	sched := scheduler.NewScheduler(scheduler.Config{
		TickInterval: cfg.SchedulerInterval,
		Concurrency:  int64(cfg.SchedulerConcurrency),
	}, st, q, disc)

	poolSize := cfg.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	workers := make([]*worker.Worker, poolSize)
	for i := range workers {
		workers[i] = worker.New(worker.Config{}, st, q, ix, httpClient).WithEvents(broker)
	}

	rec := reconciler.NewReconciler(reconciler.Config{
		Interval: cfg.ReconcileInterval,
		Repair:   cfg.ReconcileRepair,
	}, st)

	return &WorkerRuntime{
		cfg:        cfg,
		st:         st,
		q:          q,
		ix:         ix,
		http:       httpClient,
		events:     broker,
		disc:       disc,
		sched:      sched,
		workers:    workers,
		reconciler: rec,
		collector:  metrics.NewCollector(st, q, string(cfg.QueueType)),
		log:        log.WithComponent("runtime"),
	}, nil
}

// Start launches every background goroutine: the event Broker, the
// metrics Collector, the Reconciler, the Worker pool, and finally the
// Scheduler.
func (r *WorkerRuntime) Start() {
	r.events.Start()
	r.collector.Start()
	r.reconciler.Start()
	for _, w := range r.workers {
		w.Start()
	}
	r.sched.Start()

	metrics.RegisterComponent("store", true, "")
	metrics.RegisterComponent("queue", true, "")
	metrics.RegisterComponent("indexer", true, "")
	metrics.SetQueueDepthWarnThreshold(r.cfg.QueueDepthWarnAt)

	r.log.Info().Int("workers", len(r.workers)).Msg("runtime started")
}

// Stop shuts every component down in reverse-dependency order (the
// Scheduler stops producing before Workers stop consuming) and closes
// the Store.
func (r *WorkerRuntime) Stop() error {
	r.sched.Stop()
	for _, w := range r.workers {
		w.Stop()
	}
	r.reconciler.Stop()
	r.collector.Stop()
	r.events.Stop()

	if err := r.q.Close(); err != nil {
		r.log.Warn().Err(err).Msg("failed to close queue")
	}
	if err := r.st.Close(); err != nil {
		return fmt.Errorf("runtime: close store: %w", err)
	}

	r.log.Info().Msg("runtime stopped")
	return nil
}

// AddSite registers a new site for the scheduler to pick up, the
// entry point cmd/schemacrawler's "add-site" subcommand calls.
func (r *WorkerRuntime) AddSite(ctx context.Context, site *types.Site) error {
	return r.st.AddSite(ctx, site)
}

// DiscoverOnce runs the Discoverer against one site synchronously,
// outside the scheduler's tick loop — cmd/schemacrawler's "discover"
// subcommand calls this directly.
func (r *WorkerRuntime) DiscoverOnce(ctx context.Context, siteURL, userID string) error {
	return r.disc.Run(ctx, r.st, r.q, siteURL, userID)
}

// Events returns the runtime's event broker, so callers (e.g. a CLI
// "--watch" flag) can Subscribe to it.
func (r *WorkerRuntime) Events() *events.Broker {
	return r.events
}

// Store exposes the underlying Store for read-only CLI operations
// (listing sites, inspecting errors) that don't belong on WorkerRuntime
// itself.
func (r *WorkerRuntime) Store() store.Store {
	return r.st
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.BoltPath != "" {
		return store.NewBoltStore(cfg.BoltPath)
	}
	dialect := store.DialectMySQL
	if cfg.DBDialect == string(store.DialectPostgres) {
		dialect = store.DialectPostgres
	}
	return store.OpenSQLStore(ctx, store.DSN{
		Dialect:  dialect,
		Server:   cfg.DBServer,
		Database: cfg.DBDatabase,
		Username: cfg.DBUser,
		Password: cfg.DBPassword,
	})
}

func openQueue(cfg config.Config) (queue.Queue, error) {
	switch cfg.QueueType {
	case config.QueueServiceBus:
		return queue.NewServiceBusQueue(cfg.QueueConnectionString, cfg.QueueName)
	case config.QueueStorage:
		return queue.NewStorageQueue(cfg.QueueConnectionString, cfg.QueueName)
	case config.QueueFile, "":
		return queue.NewFileQueue(cfg.QueueDir), nil
	default:
		return nil, fmt.Errorf("runtime: unknown queue type %q", cfg.QueueType)
	}
}

func openIndexer(cfg config.Config, client *httpfetch.Client) indexer.Indexer {
	if cfg.SearchEndpoint == "" {
		return indexer.NewMemIndexer()
	}
	embedder := indexer.NewAzureOpenAIEmbedder(client, cfg.EmbeddingEndpoint, cfg.EmbeddingAPIKey, cfg.EmbeddingDeployment)
	return indexer.NewAzureSearchIndexer(client, cfg.SearchEndpoint, cfg.SearchAPIKey, cfg.SearchIndex, embedder)
}
