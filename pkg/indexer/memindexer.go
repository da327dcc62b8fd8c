package indexer

import (
	"context"
	"sync"
)

// MemIndexer is an in-process Indexer test double used by pkg/worker
// tests: it runs the same prepare()/HashKey() logic as the production
// backends but stores documents in a map instead of calling out to
// Azure AI Search.
type MemIndexer struct {
	mu       sync.Mutex
	docs     map[string]Document
	Embedder EmbeddingProvider
}

func NewMemIndexer() *MemIndexer {
	return &MemIndexer{docs: make(map[string]Document), Embedder: &StaticEmbedder{}}
}

func (m *MemIndexer) Add(ctx context.Context, docs []PendingDocument) error {
	texts := make([]string, len(docs))
	for i, pd := range docs {
		text, err := embeddingText(pd)
		if err != nil {
			return err
		}
		texts[i] = text
	}
	embeddings, err := m.Embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, pd := range docs {
		d := prepare(pd)
		if i < len(embeddings) {
			d.Embedding = embeddings[i]
		}
		m.docs[d.Key] = d
	}
	return nil
}

func (m *MemIndexer) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.docs, HashKey(id))
	}
	return nil
}

// Has reports whether the document for the given original id is
// currently staged, for assertions in tests.
func (m *MemIndexer) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[HashKey(id)]
	return ok
}

func (m *MemIndexer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}
