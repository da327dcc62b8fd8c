// Package queue is the job transport between the Discoverer and the
// Worker (spec.md §4.2): three interchangeable backends behind one
// interface, all offering at-least-once delivery with no ordering
// guarantee, so every consumer must already be idempotent (pkg/store's
// diff_site_files/diff_file_ids are).
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrEmpty is returned by Receive when no message is currently
// available; callers should back off and retry rather than treat it as
// a failure.
var ErrEmpty = errors.New("queue: empty")

// Message is one queued job plus whatever the backend needs to
// ack/nack it later (a file path, a Service Bus lock token, a Storage
// Queue pop receipt).
type Message struct {
	ID            string
	Body          []byte
	ReceiptHandle any
}

// Queue is the transport contract every backend implements identically.
// Receive's visTimeout controls how long a claimed-but-unacked message
// stays invisible to other receivers before it's eligible for redelivery.
type Queue interface {
	Send(ctx context.Context, body []byte) error
	Receive(ctx context.Context, visTimeout time.Duration) (*Message, error)
	Ack(ctx context.Context, msg *Message) error
	Nack(ctx context.Context, msg *Message) error
	// Provision creates any backend resource (directory, queue,
	// topic) the Queue needs before Send/Receive can be called.
	Provision(ctx context.Context) error
	Close() error
}

// DepthReporter is implemented by Queue backends that can cheaply
// report an approximate backlog size. Local backends (MemQueue,
// FileQueue) count in-process or on disk; the cloud backends don't
// implement it, since a depth count there costs its own API call per
// health check rather than reusing state the backend already holds.
// Callers must type-assert for it; its absence just means readiness
// skips the queue-depth check for that deployment.
type DepthReporter interface {
	Depth(ctx context.Context) (int, error)
}
