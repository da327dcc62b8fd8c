// Package indexer is the pluggable vector-search sink the Worker
// stages per-user ref-count transitions into (spec.md §4.5): any
// backend implementing Indexer can sit behind it, as long as it
// accepts the same hash-keyed Document shape. Grounded on
// original_source/code/core/vector_db.py's VectorDB.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	// maxEmbeddingChars caps the text handed to the embedding
	// provider (vector_db.py's EmbeddingWrapper.MAX_CHARS).
	maxEmbeddingChars = 20000
	// maxContentChars caps the stored "key: value" content field
	// (vector_db.py's _prepare_document content truncation).
	maxContentChars = 10000
	// maxListValueChars caps a single list/dict field's JSON encoding
	// within the content join (vector_db.py: json.dumps(value)[:500]).
	maxListValueChars = 500
	// batchSize is vector_db.py's batch_add/batch_delete chunk size.
	batchSize = 100
	// keyHexChars is the truncated SHA-256 hex digest length
	// (vector_db.py: hexdigest()[:32], 128 bits).
	keyHexChars = 32
)

// Document is one schema.org object prepared for indexing.
type Document struct {
	Key       string // HashKey(URL); the backend's primary key
	URL       string // original @id, unmodified
	Site      string
	Type      string // comma-joined @type values
	Content   string // truncated "key: value" join of the object's fields
	Embedding []float32
}

// Indexer is the contract the Worker stages Add/Delete calls against.
// Implementations must treat Add as an upsert (spec.md's at-least-once
// delivery means the same document may be added more than once) and
// Delete as a no-op on an already-absent key.
type Indexer interface {
	Add(ctx context.Context, docs []PendingDocument) error
	Delete(ctx context.Context, ids []string) error
}

// PendingDocument is the pre-embedding input to Add: the Worker
// supplies the raw object, Add is responsible for truncation, hashing,
// embedding, and batching.
type PendingDocument struct {
	ID      string // original @id URL
	Site    string
	Payload map[string]any // decoded schema.org object
}

// HashKey is vector_db.py's url_hash: SHA-256 of the id, truncated to
// 32 hex chars (128 bits) to keep the backend's key field short.
func HashKey(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])[:keyHexChars]
}

// prepare mirrors vector_db.py's _prepare_document: derive type,
// content, and key from the raw payload, but stop short of attaching
// an embedding (callers add that after a batch embedding call).
func prepare(pd PendingDocument) Document {
	return Document{
		Key:     HashKey(pd.ID),
		URL:     pd.ID,
		Site:    pd.Site,
		Type:    objType(pd.Payload),
		Content: content(pd.Payload),
	}
}

func objType(payload map[string]any) string {
	switch v := payload["@type"].(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return "Unknown"
	}
}

// content joins the payload's fields in sorted key order, so the same
// object always yields the same (truncated) content.
func content(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var parts []string
	for _, key := range keys {
		switch v := payload[key].(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%s: %s", key, v))
		case []any, map[string]any:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}
			s := string(encoded)
			if len(s) > maxListValueChars {
				s = s[:maxListValueChars]
			}
			parts = append(parts, fmt.Sprintf("%s: %s", key, s))
		}
	}
	joined := strings.Join(parts, " ")
	if len(joined) > maxContentChars {
		joined = joined[:maxContentChars]
	}
	return joined
}

// embeddingText is the text embedded for a PendingDocument: the JSON
// encoding of its payload, truncated to maxEmbeddingChars.
func embeddingText(pd PendingDocument) (string, error) {
	encoded, err := json.Marshal(pd.Payload)
	if err != nil {
		return "", fmt.Errorf("indexer: marshal payload for %s: %w", pd.ID, err)
	}
	s := string(encoded)
	if len(s) > maxEmbeddingChars {
		s = s[:maxEmbeddingChars]
	}
	return s, nil
}

func chunk(items []PendingDocument, size int) [][]PendingDocument {
	if len(items) == 0 {
		return nil
	}
	var out [][]PendingDocument
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

func chunkIDs(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	var out [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end])
	}
	return out
}
