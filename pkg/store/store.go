// Package store is the durable relational state for users, sites,
// files, ids, and processing errors (spec.md §3-§4.1). It is the
// convergence primitive the rest of the pipeline is built on:
// DiffSiteFiles is the only call that adds, tombstones or reactivates
// File rows and DiffFileIds the only writer of Id rows, so every other
// component observes membership changes only through their return
// values. Site rows are written by AddSite/RemoveSite/
// UpdateSiteLastProcessed, and DeleteFile removes a File row.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

// ErrUnavailable is returned by any Store call on loss of the
// underlying connection. Callers must treat the operation as not
// performed and may retry with backoff.
var ErrUnavailable = errors.New("store: backend unavailable")

// ErrNotFound is returned by single-row lookups that found nothing.
var ErrNotFound = errors.New("store: not found")

// Counts is a cheap aggregate snapshot used by pkg/metrics.Collector.
type Counts struct {
	ActiveSites   int
	InactiveSites int
	ActiveFiles   int
	InactiveFiles int
	Ids           int
}

// Store is the interface every backend (pkg/store/sqlstore.go,
// pkg/store/boltstore.go, pkg/store/memstore.go) implements, mirroring
// the teacher's one-interface-many-backends shape. The backends differ
// in two reads: SQLStore's ListSiteFiles returns active files only
// (BoltStore and MemStore include tombstones), and SQLStore's ListErrors
// returns newest first with a limit of 50 when limit <= 0 (the others
// return oldest first, unlimited when limit <= 0).
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *types.User) error
	GetUser(ctx context.Context, userID string) (*types.User, error)
	GetUserByAPIKey(ctx context.Context, apiKey string) (*types.User, error)
	TouchLogin(ctx context.Context, userID string, at time.Time) error

	// Sites
	AddSite(ctx context.Context, site *types.Site) error
	RemoveSite(ctx context.Context, siteURL, userID string) error
	GetSite(ctx context.Context, siteURL, userID string) (*types.Site, error)
	GetDueSites(ctx context.Context, now time.Time) ([]*types.Site, error)
	// ListAllSites returns every active site across every tenant, for
	// pkg/reconciler's consistency sweep (not scoped to "due" sites).
	ListAllSites(ctx context.Context) ([]*types.Site, error)
	UpdateSiteLastProcessed(ctx context.Context, siteURL, userID string, at time.Time) error

	// Files
	ListSiteFiles(ctx context.Context, siteURL, userID string) ([]*types.File, error)
	// DiffSiteFiles is the central convergence primitive for the
	// Discoverer: given the authoritative triples for ONE schema map,
	// upserts additions (reactivating tombstones) and tombstones
	// removals, scoped to that schema map. Serialized per (siteURL,
	// userID) by an in-process mutex (spec.md §4.1/§5).
	DiffSiteFiles(ctx context.Context, siteURL, userID, schemaMap string, triples []types.FileTriple) (added, removed []string, err error)
	GetFile(ctx context.Context, fileURL, userID string) (*types.File, error)
	DeleteFile(ctx context.Context, fileURL, userID string) error

	// Ids
	ListFileIds(ctx context.Context, fileURL, userID string) ([]string, error)
	// DiffFileIds is the central convergence primitive for the Worker:
	// given the authoritative id set for a file, inserts missing rows,
	// deletes extraneous ones (batched to respect backend parameter
	// limits), and updates last_read_time/number_of_items.
	DiffFileIds(ctx context.Context, fileURL, userID string, newIds []string) (added, removed []string, err error)
	// RefCount returns how many File rows reference id for userID. Must
	// observe the writes of the immediately preceding DiffFileIds call.
	RefCount(ctx context.Context, id, userID string) (int, error)

	// Errors
	LogError(ctx context.Context, pe *types.ProcessingError) error
	ClearErrors(ctx context.Context, fileURL, userID string) error
	ListErrors(ctx context.Context, fileURL, userID string, limit int) ([]*types.ProcessingError, error)

	// Counts is a cheap aggregate used for metrics.
	Counts(ctx context.Context) (Counts, error)

	Close() error
}
