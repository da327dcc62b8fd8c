// Package types holds the data model shared by every component of the
// crawler: the relational entities persisted by pkg/store, and the wire
// shapes carried on the job queue.
package types

import "time"

// User is the tenant boundary. Every Store operation that touches a Site,
// File, Id, or ProcessingError is keyed by UserID to prevent cross-tenant
// contamination of ref counts and index state.
type User struct {
	UserID    string // "<provider>:<external_id>"
	Email     string
	Name      string
	Provider  string
	APIKey    string // cryptographically random, globally unique
	CreatedAt time.Time
	LastLogin time.Time
}

// Site is a monitored host. SiteURL is stored exactly as given: no
// Store backend strips its scheme, "www." prefix or trailing slash.
type Site struct {
	SiteURL              string
	UserID               string
	ProcessIntervalHours int
	LastProcessed        *time.Time
	IsActive             bool
	CreatedAt            time.Time
}

// Due reports whether the site should be handed to the Discoverer: never
// processed, or the interval has elapsed as of now.
func (s *Site) Due(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	if s.LastProcessed == nil {
		return true
	}
	return !now.Before(s.LastProcessed.Add(time.Duration(s.ProcessIntervalHours) * time.Hour))
}

// File is a schema-map entry: one payload URL belonging to exactly one
// (schema_map, site, user) triple at a time. IsActive=false is a
// tombstone, retained so id provenance survives until a removal job
// drains it.
type File struct {
	SiteURL       string
	UserID        string
	FileURL       string
	SchemaMap     string
	LastReadTime  *time.Time
	NumberOfItems int
	IsManual      bool
	IsActive      bool
}

// FileTriple is the (site, schema_map, file_url) shape the Discoverer
// extracts from a sitemap entry, paired with its optional content type.
type FileTriple struct {
	SiteURL     string
	SchemaMap   string
	FileURL     string
	ContentType string
}

// Id represents "object ID appears in file FileURL for user UserID".
// Rows form a multiset keyed by (FileURL, UserID, ID); the count of rows
// matching (ID, UserID) across all files is the per-user ref count that
// gates Indexer insert/delete.
type Id struct {
	FileURL string
	UserID  string
	ID      string
}

// ErrorType enumerates ProcessingError.ErrorType values.
type ErrorType string

const (
	ErrorExtractionFailed  ErrorType = "extraction_failed"
	ErrorNoIDsFound        ErrorType = "no_ids_found"
	ErrorVectorDBAddFailed ErrorType = "vector_db_add_failed"
	ErrorVectorDBDelFailed ErrorType = "vector_db_delete_failed"
)

// ProcessingError is an append-only diagnostic row, cleared on the next
// successful process of the same file.
type ProcessingError struct {
	ID           int64
	FileURL      string
	UserID       string
	ErrorType    ErrorType
	ErrorMessage string
	ErrorDetails string
	OccurredAt   time.Time
}

// JobType enumerates the two queue message bodies the Worker handles.
type JobType string

const (
	JobProcessFile        JobType = "process_file"
	JobProcessRemovedFile JobType = "process_removed_file"
)

// JobBody is the wire schema for queue messages (spec.md §4.2).
type JobBody struct {
	Type        JobType   `json:"type"`
	UserID      string    `json:"user_id"`
	Site        string    `json:"site"`
	FileURL     string    `json:"file_url"`
	SchemaMap   string    `json:"schema_map,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	QueuedAt    time.Time `json:"queued_at"`
}

// SchemaObject is an extracted schema.org object: its @id, @type(s), and
// the full decoded payload used both for skip-set filtering and as the
// Indexer's document source.
type SchemaObject struct {
	ID      string
	Type    []string
	Payload map[string]any
}
