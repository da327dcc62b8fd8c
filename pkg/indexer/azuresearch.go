package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nlweb-ai/schemacrawler/pkg/httpfetch"
)

// AzureSearchIndexer is the production Indexer backend, a REST port of
// vector_db.py's VectorDB (search_client.upload_documents /
// delete_documents) against Azure AI Search's documents-index API.
type AzureSearchIndexer struct {
	client     *httpfetch.Client
	endpoint   string
	apiKey     string
	indexName  string
	apiVersion string
	embedder   EmbeddingProvider
}

// NewAzureSearchIndexer builds an Indexer against one Azure AI Search
// index (the AZURE_SEARCH_ENDPOINT/_KEY/_INDEX_NAME config keys).
func NewAzureSearchIndexer(client *httpfetch.Client, endpoint, apiKey, indexName string, embedder EmbeddingProvider) *AzureSearchIndexer {
	return &AzureSearchIndexer{
		client:     client,
		endpoint:   endpoint,
		apiKey:     apiKey,
		indexName:  indexName,
		apiVersion: "2023-11-01",
		embedder:   embedder,
	}
}

type searchDoc struct {
	SearchAction string    `json:"@search.action"`
	ID           string    `json:"id"`
	URL          string    `json:"url,omitempty"`
	Site         string    `json:"site,omitempty"`
	Type         string    `json:"type,omitempty"`
	Content      string    `json:"content,omitempty"`
	Timestamp    string    `json:"timestamp,omitempty"`
	Embedding    []float32 `json:"embedding,omitempty"`
}

type searchBatch struct {
	Value []searchDoc `json:"value"`
}

func (ix *AzureSearchIndexer) docsURL() string {
	return fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s", ix.endpoint, ix.indexName, ix.apiVersion)
}

// Add upserts the given documents: it embeds each payload's JSON
// encoding, prepares the searchable fields (vector_db.py's
// _prepare_document), and uploads in batches of 100
// (vector_db.py's batch_add).
func (ix *AzureSearchIndexer) Add(ctx context.Context, docs []PendingDocument) error {
	for _, batch := range chunk(docs, batchSize) {
		texts := make([]string, len(batch))
		for i, pd := range batch {
			text, err := embeddingText(pd)
			if err != nil {
				return err
			}
			texts[i] = text
		}

		embeddings, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("indexer: embed batch: %w", err)
		}

		searchDocs := make([]searchDoc, len(batch))
		now := time.Now().UTC().Format(time.RFC3339)
		for i, pd := range batch {
			d := prepare(pd)
			var emb []float32
			if i < len(embeddings) {
				emb = embeddings[i]
			}
			searchDocs[i] = searchDoc{
				SearchAction: "mergeOrUpload",
				ID:           d.Key,
				URL:          d.URL,
				Site:         d.Site,
				Type:         d.Type,
				Content:      d.Content,
				Timestamp:    now,
				Embedding:    emb,
			}
		}

		if err := ix.upload(ctx, searchDocs); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes documents by original id, batched to 100
// (vector_db.py's batch_delete).
func (ix *AzureSearchIndexer) Delete(ctx context.Context, ids []string) error {
	for _, batch := range chunkIDs(ids, batchSize) {
		docs := make([]searchDoc, len(batch))
		for i, id := range batch {
			docs[i] = searchDoc{SearchAction: "delete", ID: HashKey(id)}
		}
		if err := ix.upload(ctx, docs); err != nil {
			return err
		}
	}
	return nil
}

func (ix *AzureSearchIndexer) upload(ctx context.Context, docs []searchDoc) error {
	payload, err := json.Marshal(searchBatch{Value: docs})
	if err != nil {
		return fmt.Errorf("indexer: marshal batch: %w", err)
	}
	body, status, err := ix.client.Do(ctx, "POST", ix.docsURL(), "application/json", payload, map[string]string{
		"api-key": ix.apiKey,
	})
	if err != nil {
		return fmt.Errorf("indexer: upload batch: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("indexer: upload batch failed with status %d: %s", status, string(body))
	}
	return nil
}
