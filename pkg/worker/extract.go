package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

// skipTypes is the schema.org @type set excluded from indexing and
// from the tracked id set entirely: structural/navigational
// boilerplate (breadcrumbs, list wrappers, site furniture) that isn't
// a distinct retrievable document. Checked against every element of a
// possibly-multivalued @type.
var skipTypes = map[string]bool{
	"ListItem":              true,
	"ItemList":              true,
	"Organization":          true,
	"BreadcrumbList":        true,
	"Breadcrumb":            true,
	"WebSite":               true,
	"SearchAction":          true,
	"SiteNavigationElement": true,
	"WebPageElement":        true,
	"WebPage":               true,
	"NewsMediaOrganization": true,
	"MerchantReturnPolicy":  true,
	"ReturnPolicy":          true,
	"CollectionPage":        true,
	"Brand":                 true,
	"Corporation":           true,
	"ReadAction":            true,
}

// inSkipSet reports whether any of objTypes is a member of skipTypes.
func inSkipSet(objTypes []string) bool {
	for _, t := range objTypes {
		if skipTypes[t] {
			return true
		}
	}
	return false
}

// extractSchemaData fetches fileURL and extracts every schema.org
// object that carries an "@id": top-level array/object entries, plus
// entries nested one level down in an object's "@graph" array when
// that object itself has no "@id" (worker.py's
// extract_schema_data_from_url + process_json_array). Objects whose
// @type falls in the skip set (spec step 4) are dropped here, before
// the caller ever diffs the id set against the Store, so neither the
// Store nor the Indexer ever sees them.
func (w *Worker) extractSchemaData(ctx context.Context, fileURL string) ([]string, map[string]types.SchemaObject, error) {
	body, status, err := w.http.Get(ctx, fileURL)
	if err != nil {
		return nil, nil, fmt.Errorf("worker: fetch %s: %w", fileURL, err)
	}
	if status < 200 || status >= 300 {
		return nil, nil, fmt.Errorf("worker: fetch %s: status %d", fileURL, status)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, fmt.Errorf("worker: parse json from %s: %w", fileURL, err)
	}

	var entries []any
	switch v := raw.(type) {
	case []any:
		entries = v
	case map[string]any:
		entries = []any{v}
	default:
		return nil, nil, nil
	}

	var ids []string
	objects := make(map[string]types.SchemaObject)

	addObjectsWithID := func(items []any) {
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			id, ok := obj["@id"].(string)
			if !ok || id == "" {
				continue
			}
			ids = append(ids, id)
			objects[id] = types.SchemaObject{ID: id, Type: schemaTypes(obj), Payload: obj}
		}
	}

	addObjectsWithID(entries)

	for _, item := range entries {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if _, hasID := obj["@id"]; hasID {
			continue
		}
		graph, ok := obj["@graph"].([]any)
		if !ok {
			continue
		}
		addObjectsWithID(graph)
	}

	filtered := ids[:0]
	for _, id := range ids {
		obj := objects[id]
		if inSkipSet(obj.Type) {
			delete(objects, id)
			continue
		}
		filtered = append(filtered, id)
	}

	return filtered, objects, nil
}

// schemaTypes normalizes a decoded "@type" value, which schema.org
// JSON-LD permits as either a bare string or an array of strings.
func schemaTypes(obj map[string]any) []string {
	switch v := obj["@type"].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
