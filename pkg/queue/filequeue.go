package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// FileQueue is the local-development backend: jobs are files in a
// directory, claimed by atomic rename to a ".processing" suffix so two
// Workers polling the same directory can never claim the same job
// twice. Ported from queue_interface.py's FileQueue; visTimeout-based
// reclaim of abandoned ".processing" files is new (the original relies
// on a human restarting the worker).
type FileQueue struct {
	dir     string
	watcher *fsnotify.Watcher
	notify  chan struct{}
}

// NewFileQueue creates a FileQueue rooted at dir. Call Provision before
// first use to create the directory and start the fsnotify watch.
func NewFileQueue(dir string) *FileQueue {
	return &FileQueue{dir: dir, notify: make(chan struct{}, 1)}
}

func (q *FileQueue) Provision(ctx context.Context) error {
	if err := os.MkdirAll(q.dir, 0755); err != nil {
		return fmt.Errorf("queue: create dir: %w", err)
	}
	if q.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		// fsnotify is a convenience wake-up, not a correctness
		// requirement: Receive still works via polling if the watch
		// never starts.
		return nil
	}
	if err := w.Add(q.dir); err != nil {
		w.Close()
		return nil
	}
	q.watcher = w
	go q.watchLoop()
	return nil
}

func (q *FileQueue) watchLoop() {
	for {
		select {
		case ev, ok := <-q.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
				select {
				case q.notify <- struct{}{}:
				default:
				}
			}
		case _, ok := <-q.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Notify returns a channel that receives a value shortly after a new
// job file appears, letting a Worker skip its poll interval instead of
// sleeping through it.
func (q *FileQueue) Notify() <-chan struct{} { return q.notify }

func (q *FileQueue) Send(ctx context.Context, body []byte) error {
	ts := strings.ReplaceAll(time.Now().UTC().Format("20060102-150405.000000"), ".", "-")
	name := fmt.Sprintf("job-%s-%s.json", ts, uuid.NewString())
	finalPath := filepath.Join(q.dir, name)
	tmpPath := filepath.Join(q.dir, ".tmp-"+name)

	if err := os.WriteFile(tmpPath, body, 0644); err != nil {
		return fmt.Errorf("queue: write temp job: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("queue: publish job: %w", err)
	}
	return nil
}

func (q *FileQueue) Receive(ctx context.Context, visTimeout time.Duration) (*Message, error) {
	q.reclaimStale(visTimeout)

	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("queue: list dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "job-") && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		jobPath := filepath.Join(q.dir, name)
		processingPath := jobPath + ".processing"
		if err := os.Rename(jobPath, processingPath); err != nil {
			continue // another receiver claimed it first
		}
		// Rename keeps the send-time mtime; stamp the claim time so
		// reclaimStale measures how long the claim has been held.
		now := time.Now()
		_ = os.Chtimes(processingPath, now, now)
		data, err := os.ReadFile(processingPath)
		if err != nil {
			continue
		}
		return &Message{ID: name, Body: data, ReceiptHandle: processingPath}, nil
	}
	return nil, ErrEmpty
}

// reclaimStale renames back to visible any ".processing" file whose
// claim is older than visTimeout, so a Worker that died mid-job
// doesn't strand it forever.
func (q *FileQueue) reclaimStale(visTimeout time.Duration) {
	if visTimeout <= 0 {
		return
	}
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-visTimeout)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".processing") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		processingPath := filepath.Join(q.dir, name)
		originalPath := strings.TrimSuffix(processingPath, ".processing")
		os.Rename(processingPath, originalPath)
	}
}

func (q *FileQueue) Ack(ctx context.Context, msg *Message) error {
	path, ok := msg.ReceiptHandle.(string)
	if !ok {
		return fmt.Errorf("queue: invalid receipt handle for ack")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("queue: ack: %w", err)
	}
	return nil
}

func (q *FileQueue) Nack(ctx context.Context, msg *Message) error {
	path, ok := msg.ReceiptHandle.(string)
	if !ok {
		return fmt.Errorf("queue: invalid receipt handle for nack")
	}
	original := strings.TrimSuffix(path, ".processing")
	if err := os.Rename(path, original); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("queue: nack: %w", err)
	}
	return nil
}

func (q *FileQueue) Close() error {
	if q.watcher != nil {
		return q.watcher.Close()
	}
	return nil
}

// Depth implements DepthReporter: every "job-*.json" (pending) and
// "*.processing" (claimed but not yet acked) file counts toward the
// backlog.
func (q *FileQueue) Depth(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return 0, fmt.Errorf("queue: list dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".processing") || (strings.HasPrefix(name, "job-") && strings.HasSuffix(name, ".json")) {
			n++
		}
	}
	return n, nil
}
