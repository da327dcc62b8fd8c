package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nlweb-ai/schemacrawler/pkg/events"
	"github.com/nlweb-ai/schemacrawler/pkg/httpfetch"
	"github.com/nlweb-ai/schemacrawler/pkg/indexer"
	"github.com/nlweb-ai/schemacrawler/pkg/log"
	"github.com/nlweb-ai/schemacrawler/pkg/metrics"
	"github.com/nlweb-ai/schemacrawler/pkg/queue"
	"github.com/nlweb-ai/schemacrawler/pkg/store"
	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

// IndexerFailurePolicy governs what the Worker does when an Indexer
// Add/Delete call fails after the Store has already converged the id
// set (spec.md's Open Question 1).
type IndexerFailurePolicy int

const (
	// LogAndContinue records a ProcessingError and acks the job anyway,
	// matching worker.py: the ids table is the source of truth and a
	// failed vector_db_batch_add does not roll it back.
	LogAndContinue IndexerFailurePolicy = iota
	// NackOnIndexerFailure returns the job to the queue for redelivery
	// instead of acking, trading duplicate Store writes (idempotent,
	// so safe) for a stronger indexer-consistency guarantee.
	NackOnIndexerFailure
)

// Config holds worker configuration.
type Config struct {
	VisibilityTimeout    time.Duration
	EmptyQueueBackoff    time.Duration
	FetchTimeout         time.Duration
	IndexerFailurePolicy IndexerFailurePolicy
}

func defaultConfig() Config {
	return Config{
		VisibilityTimeout: 5 * time.Minute,
		EmptyQueueBackoff: 5 * time.Second,
		FetchTimeout:      30 * time.Second,
	}
}

// Worker pulls jobs off the Queue and converges pkg/store and
// pkg/indexer accordingly (spec.md §4.5). One Worker can run many
// concurrent instances over the same Queue/Store/Indexer; all
// invariants are enforced by the Store's convergence primitives, not
// by worker-side locking.
type Worker struct {
	cfg    Config
	st     store.Store
	q      queue.Queue
	ix     indexer.Indexer
	http   *httpfetch.Client
	log    zerolog.Logger
	events *events.Broker
	stopCh chan struct{}
}

// New creates a Worker over the given Store, Queue, and Indexer.
func New(cfg Config, st store.Store, q queue.Queue, ix indexer.Indexer, client *httpfetch.Client) *Worker {
	if cfg.VisibilityTimeout == 0 {
		cfg = defaultConfig()
	}
	return &Worker{
		cfg:    cfg,
		st:     st,
		q:      q,
		ix:     ix,
		http:   client,
		log:    log.WithComponent("worker"),
		stopCh: make(chan struct{}),
	}
}

// WithEvents attaches a broker the Worker publishes to; nil (the
// default) disables publishing entirely.
func (w *Worker) WithEvents(b *events.Broker) *Worker {
	w.events = b
	return w
}

func (w *Worker) publish(evtType events.EventType, msg string, meta map[string]string) {
	if w.events == nil {
		return
	}
	w.events.Publish(&events.Event{Type: evtType, Message: msg, Metadata: meta})
}

// Start runs the receive/process loop in a goroutine until Stop is called.
func (w *Worker) Start() {
	go w.run()
}

// Stop signals the run loop to exit. It does not wait for an
// in-flight job to finish.
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) run() {
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		ctx := context.Background()
		msg, err := w.q.Receive(ctx, w.cfg.VisibilityTimeout)
		if err != nil {
			if err != queue.ErrEmpty {
				w.log.Error().Err(err).Msg("queue receive failed")
			}
			select {
			case <-time.After(w.cfg.EmptyQueueBackoff):
			case <-w.stopCh:
				return
			}
			continue
		}

		w.handle(ctx, msg)
	}
}

func (w *Worker) handle(ctx context.Context, msg *queue.Message) {
	var job types.JobBody
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		w.log.Error().Err(err).Msg("malformed job body, acking to drop it")
		_ = w.q.Ack(ctx, msg)
		return
	}

	jobLog := log.WithJob(w.log, msg.ID, job)
	timer := metrics.NewTimer()

	var err error
	switch job.Type {
	case types.JobProcessFile:
		err = w.processFile(ctx, job)
	case types.JobProcessRemovedFile:
		err = w.processRemovedFile(ctx, job)
	default:
		err = fmt.Errorf("unknown job type %q", job.Type)
	}

	timer.ObserveDurationVec(metrics.JobProcessDuration, string(job.Type))

	if err != nil {
		jobLog.Error().Err(err).Msg("job failed")
		metrics.JobsProcessedTotal.WithLabelValues(string(job.Type), "failed").Inc()
		w.publish(events.EventSiteErrored, err.Error(), map[string]string{"site": job.Site, "user_id": job.UserID, "job_type": string(job.Type)})
		if nackErr := w.q.Nack(ctx, msg); nackErr != nil {
			jobLog.Error().Err(nackErr).Msg("failed to nack job")
		}
		return
	}

	metrics.JobsProcessedTotal.WithLabelValues(string(job.Type), "success").Inc()
	if err := w.q.Ack(ctx, msg); err != nil {
		jobLog.Error().Err(err).Msg("failed to ack job")
	}
}

// processFile extracts schema.org objects from job.FileURL, converges
// the id set in the Store, and stages Indexer Add/Delete calls for ids
// whose per-user ref count crossed 0<->1. Mirrors worker.py's
// process_job 'process_file' branch.
func (w *Worker) processFile(ctx context.Context, job types.JobBody) error {
	if _, err := w.st.GetFile(ctx, job.FileURL, job.UserID); err == store.ErrNotFound {
		w.log.Info().Str("file_url", job.FileURL).Msg("file no longer tracked, skipping")
		return nil
	} else if err != nil {
		return fmt.Errorf("worker: get file: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, w.cfg.FetchTimeout)
	ids, objects, err := w.extractSchemaData(fetchCtx, job.FileURL)
	cancel()
	if err != nil {
		w.logError(ctx, job, types.ErrorExtractionFailed, "failed to extract schema data", err)
		return err
	}

	// recorded is set when this run logs a ProcessingError, so the
	// ClearErrors at the end does not erase it.
	recorded := false
	if len(ids) == 0 {
		w.logError(ctx, job, types.ErrorNoIDsFound, "no schema.org objects with @id found in file", nil)
		recorded = true
	}

	added, removed, err := w.st.DiffFileIds(ctx, job.FileURL, job.UserID, ids)
	if err != nil {
		return fmt.Errorf("worker: diff file ids: %w", err)
	}

	var toAdd []indexer.PendingDocument
	for _, id := range added {
		count, err := w.st.RefCount(ctx, id, job.UserID)
		if err != nil {
			return fmt.Errorf("worker: ref count for %s: %w", id, err)
		}
		if count != 1 {
			continue
		}
		obj, ok := objects[id]
		if !ok {
			w.log.Warn().Str("id", id).Msg("added id has no matching object, skipping index add")
			continue
		}
		toAdd = append(toAdd, indexer.PendingDocument{ID: id, Site: job.Site, Payload: obj.Payload})
	}

	if len(toAdd) > 0 {
		if err := w.ix.Add(ctx, toAdd); err != nil {
			metrics.IndexerErrorsTotal.WithLabelValues("add").Inc()
			w.logError(ctx, job, types.ErrorVectorDBAddFailed, "failed to add items to vector db", err)
			recorded = true
			w.publish(events.EventIndexAddFailed, "vector db add failed", map[string]string{"file_url": job.FileURL, "user_id": job.UserID})
			if w.cfg.IndexerFailurePolicy == NackOnIndexerFailure {
				return err
			}
		} else {
			metrics.IndexerDocsTotal.WithLabelValues("add").Add(float64(len(toAdd)))
		}
	}

	var toDelete []string
	for _, id := range removed {
		count, err := w.st.RefCount(ctx, id, job.UserID)
		if err != nil {
			return fmt.Errorf("worker: ref count for %s: %w", id, err)
		}
		if count == 0 {
			toDelete = append(toDelete, id)
		}
	}

	if len(toDelete) > 0 {
		if err := w.ix.Delete(ctx, toDelete); err != nil {
			metrics.IndexerErrorsTotal.WithLabelValues("delete").Inc()
			w.logError(ctx, job, types.ErrorVectorDBDelFailed, "failed to delete items from vector db", err)
			recorded = true
			w.publish(events.EventIndexDelFailed, "vector db delete failed", map[string]string{"file_url": job.FileURL, "user_id": job.UserID})
			if w.cfg.IndexerFailurePolicy == NackOnIndexerFailure {
				return err
			}
		} else {
			metrics.IndexerDocsTotal.WithLabelValues("delete").Add(float64(len(toDelete)))
		}
	}

	if err := w.st.UpdateSiteLastProcessed(ctx, job.Site, job.UserID, time.Now().UTC()); err != nil && err != store.ErrNotFound {
		w.log.Warn().Err(err).Str("site", job.Site).Msg("failed to update site last_processed")
	}

	w.publish(events.EventFileProcessed, "processed "+job.FileURL, map[string]string{"file_url": job.FileURL, "user_id": job.UserID, "site": job.Site})
	if recorded {
		return nil
	}
	return w.st.ClearErrors(ctx, job.FileURL, job.UserID)
}

// processRemovedFile drops every id mapping for job.FileURL, removes
// any id that is now globally unreferenced (for this user) from the
// Indexer, and deletes the File row. Mirrors worker.py's
// process_job 'process_removed_file' branch.
func (w *Worker) processRemovedFile(ctx context.Context, job types.JobBody) error {
	existingIds, err := w.st.ListFileIds(ctx, job.FileURL, job.UserID)
	if err != nil {
		return fmt.Errorf("worker: list file ids: %w", err)
	}

	if _, _, err := w.st.DiffFileIds(ctx, job.FileURL, job.UserID, nil); err != nil {
		return fmt.Errorf("worker: diff file ids: %w", err)
	}

	var toDelete []string
	for _, id := range existingIds {
		count, err := w.st.RefCount(ctx, id, job.UserID)
		if err != nil {
			return fmt.Errorf("worker: ref count for %s: %w", id, err)
		}
		if count == 0 {
			toDelete = append(toDelete, id)
		}
	}

	if len(toDelete) > 0 {
		if err := w.ix.Delete(ctx, toDelete); err != nil {
			metrics.IndexerErrorsTotal.WithLabelValues("delete").Inc()
			w.logError(ctx, job, types.ErrorVectorDBDelFailed, "failed to delete items from vector db", err)
			w.publish(events.EventIndexDelFailed, "vector db delete failed", map[string]string{"file_url": job.FileURL, "user_id": job.UserID})
			if w.cfg.IndexerFailurePolicy == NackOnIndexerFailure {
				return err
			}
		} else {
			metrics.IndexerDocsTotal.WithLabelValues("delete").Add(float64(len(toDelete)))
		}
	}

	w.publish(events.EventFileRemoved, "removed "+job.FileURL, map[string]string{"file_url": job.FileURL, "user_id": job.UserID, "site": job.Site})
	return w.st.DeleteFile(ctx, job.FileURL, job.UserID)
}

func (w *Worker) logError(ctx context.Context, job types.JobBody, errType types.ErrorType, msg string, cause error) {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	metrics.ProcessingErrorsTotal.WithLabelValues(string(errType)).Inc()
	if err := w.st.LogError(ctx, &types.ProcessingError{
		FileURL:      job.FileURL,
		UserID:       job.UserID,
		ErrorType:    errType,
		ErrorMessage: msg,
		ErrorDetails: details,
		OccurredAt:   time.Now().UTC(),
	}); err != nil {
		w.log.Error().Err(err).Str("file_url", job.FileURL).Msg("failed to log processing error")
	}
}
