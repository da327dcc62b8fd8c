package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

// backends runs every test in this file against both the in-memory and
// the BoltDB implementations of Store, since they must agree exactly.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	bolt, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })
	return map[string]Store{
		"mem":  NewMemStore(),
		"bolt": bolt,
	}
}

func triples(schemaMap string, fileURLs ...string) []types.FileTriple {
	out := make([]types.FileTriple, len(fileURLs))
	for i, f := range fileURLs {
		out[i] = types.FileTriple{SchemaMap: schemaMap, FileURL: f}
	}
	return out
}

func TestDiffSiteFiles_AddsAndTombstones(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			added, removed, err := s.DiffSiteFiles(ctx, "example.com", "u1", "https://example.com/schema_map.xml",
				triples("https://example.com/schema_map.xml", "https://example.com/a.json", "https://example.com/b.json"))
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"https://example.com/a.json", "https://example.com/b.json"}, added)
			assert.Empty(t, removed)

			files, err := s.ListSiteFiles(ctx, "example.com", "u1")
			require.NoError(t, err)
			assert.Len(t, files, 2)

			added, removed, err = s.DiffSiteFiles(ctx, "example.com", "u1", "https://example.com/schema_map.xml",
				triples("https://example.com/schema_map.xml", "https://example.com/a.json"))
			require.NoError(t, err)
			assert.Empty(t, added)
			assert.Equal(t, []string{"https://example.com/b.json"}, removed)

			files, err = s.ListSiteFiles(ctx, "example.com", "u1")
			require.NoError(t, err)
			var active int
			for _, f := range files {
				if f.IsActive {
					active++
				}
			}
			assert.Equal(t, 1, active, "tombstoned file must stay in the store, just inactive")
		})
	}
}

func TestDiffSiteFiles_ReactivatesTombstone(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			schemaMap := "https://example.com/schema_map.xml"
			_, _, err := s.DiffSiteFiles(ctx, "example.com", "u1", schemaMap, triples(schemaMap, "https://example.com/a.json"))
			require.NoError(t, err)
			_, removed, err := s.DiffSiteFiles(ctx, "example.com", "u1", schemaMap, nil)
			require.NoError(t, err)
			assert.Equal(t, []string{"https://example.com/a.json"}, removed)

			added, _, err := s.DiffSiteFiles(ctx, "example.com", "u1", schemaMap, triples(schemaMap, "https://example.com/a.json"))
			require.NoError(t, err)
			assert.Equal(t, []string{"https://example.com/a.json"}, added, "re-listed file must reactivate, not duplicate")

			files, err := s.ListSiteFiles(ctx, "example.com", "u1")
			require.NoError(t, err)
			assert.Len(t, files, 1)
			assert.True(t, files[0].IsActive)
		})
	}
}

func TestDiffSiteFiles_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			schemaMap := "https://example.com/schema_map.xml"
			want := triples(schemaMap, "https://example.com/a.json", "https://example.com/b.json")

			_, _, err := s.DiffSiteFiles(ctx, "example.com", "u1", schemaMap, want)
			require.NoError(t, err)

			added, removed, err := s.DiffSiteFiles(ctx, "example.com", "u1", schemaMap, want)
			require.NoError(t, err)
			assert.Empty(t, added, "redelivery of the same triples must not re-add")
			assert.Empty(t, removed, "redelivery of the same triples must not remove")
		})
	}
}

func TestDiffSiteFiles_ScopedToSchemaMap(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := s.DiffSiteFiles(ctx, "example.com", "u1", "https://example.com/map1.xml",
				triples("https://example.com/map1.xml", "https://example.com/a.json"))
			require.NoError(t, err)

			// A diff scoped to a different schema_map must not touch map1's files.
			added, removed, err := s.DiffSiteFiles(ctx, "example.com", "u1", "https://example.com/map2.xml",
				triples("https://example.com/map2.xml", "https://example.com/c.json"))
			require.NoError(t, err)
			assert.Equal(t, []string{"https://example.com/c.json"}, added)
			assert.Empty(t, removed)

			files, err := s.ListSiteFiles(ctx, "example.com", "u1")
			require.NoError(t, err)
			assert.Len(t, files, 2)
		})
	}
}

func TestDiffFileIds_AddsRemovesAndTouchesFile(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			schemaMap := "https://example.com/schema_map.xml"
			fileURL := "https://example.com/a.json"
			_, _, err := s.DiffSiteFiles(ctx, "example.com", "u1", schemaMap, triples(schemaMap, fileURL))
			require.NoError(t, err)

			added, removed, err := s.DiffFileIds(ctx, fileURL, "u1", []string{"id1", "id2"})
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"id1", "id2"}, added)
			assert.Empty(t, removed)

			ids, err := s.ListFileIds(ctx, fileURL, "u1")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"id1", "id2"}, ids)

			f, err := s.GetFile(ctx, fileURL, "u1")
			require.NoError(t, err)
			assert.Equal(t, 2, f.NumberOfItems)
			require.NotNil(t, f.LastReadTime)

			added, removed, err = s.DiffFileIds(ctx, fileURL, "u1", []string{"id2", "id3"})
			require.NoError(t, err)
			assert.Equal(t, []string{"id3"}, added)
			assert.Equal(t, []string{"id1"}, removed)
		})
	}
}

func TestDiffFileIds_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			schemaMap := "https://example.com/schema_map.xml"
			fileURL := "https://example.com/a.json"
			_, _, err := s.DiffSiteFiles(ctx, "example.com", "u1", schemaMap, triples(schemaMap, fileURL))
			require.NoError(t, err)

			_, _, err = s.DiffFileIds(ctx, fileURL, "u1", []string{"id1", "id2"})
			require.NoError(t, err)

			added, removed, err := s.DiffFileIds(ctx, fileURL, "u1", []string{"id1", "id2"})
			require.NoError(t, err)
			assert.Empty(t, added)
			assert.Empty(t, removed)
		})
	}
}

func TestRefCount_IsolatedPerUserAndObservesPriorDiff(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			schemaMap := "https://example.com/schema_map.xml"
			_, _, err := s.DiffSiteFiles(ctx, "example.com", "u1", schemaMap, triples(schemaMap, "https://example.com/a.json", "https://example.com/b.json"))
			require.NoError(t, err)

			_, _, err = s.DiffFileIds(ctx, "https://example.com/a.json", "u1", []string{"shared-id"})
			require.NoError(t, err)
			_, _, err = s.DiffFileIds(ctx, "https://example.com/b.json", "u1", []string{"shared-id"})
			require.NoError(t, err)

			count, err := s.RefCount(ctx, "shared-id", "u1")
			require.NoError(t, err)
			assert.Equal(t, 2, count)

			count, err = s.RefCount(ctx, "shared-id", "u2")
			require.NoError(t, err)
			assert.Equal(t, 0, count, "ref counts must not leak across tenants")

			_, _, err = s.DiffFileIds(ctx, "https://example.com/a.json", "u1", nil)
			require.NoError(t, err)

			count, err = s.RefCount(ctx, "shared-id", "u1")
			require.NoError(t, err)
			assert.Equal(t, 1, count, "ref count must observe the immediately preceding DiffFileIds call")
		})
	}
}

func TestSiteDue(t *testing.T) {
	now := time.Now()
	past := now.Add(-25 * time.Hour)

	tests := []struct {
		name string
		site types.Site
		due  bool
	}{
		{"never processed", types.Site{IsActive: true, ProcessIntervalHours: 24}, true},
		{"interval elapsed", types.Site{IsActive: true, ProcessIntervalHours: 24, LastProcessed: &past}, true},
		{"interval not elapsed", types.Site{IsActive: true, ProcessIntervalHours: 24, LastProcessed: &now}, false},
		{"inactive site never due", types.Site{IsActive: false, ProcessIntervalHours: 24}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.due, tt.site.Due(now))
		})
	}
}

func TestGetDueSites(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now()
			require.NoError(t, s.AddSite(ctx, &types.Site{SiteURL: "due.com", UserID: "u1", IsActive: true, ProcessIntervalHours: 24, CreatedAt: now}))
			require.NoError(t, s.AddSite(ctx, &types.Site{SiteURL: "fresh.com", UserID: "u1", IsActive: true, ProcessIntervalHours: 24, LastProcessed: &now, CreatedAt: now}))
			require.NoError(t, s.AddSite(ctx, &types.Site{SiteURL: "disabled.com", UserID: "u1", IsActive: false, ProcessIntervalHours: 24, CreatedAt: now}))

			due, err := s.GetDueSites(ctx, now)
			require.NoError(t, err)
			require.Len(t, due, 1)
			assert.Equal(t, "due.com", due[0].SiteURL)
		})
	}
}

func TestListAllSites(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now()
			require.NoError(t, s.AddSite(ctx, &types.Site{SiteURL: "a.com", UserID: "u1", IsActive: true, ProcessIntervalHours: 24, CreatedAt: now}))
			require.NoError(t, s.AddSite(ctx, &types.Site{SiteURL: "b.com", UserID: "u2", IsActive: true, ProcessIntervalHours: 24, LastProcessed: &now, CreatedAt: now}))
			require.NoError(t, s.AddSite(ctx, &types.Site{SiteURL: "c.com", UserID: "u1", IsActive: false, ProcessIntervalHours: 24, CreatedAt: now}))

			sites, err := s.ListAllSites(ctx)
			require.NoError(t, err)
			assert.Len(t, sites, 2, "inactive sites should be excluded regardless of due status")
		})
	}
}

func TestUserLookupAndErrorLog(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now()
			u := &types.User{UserID: "google:123", Email: "a@b.com", Provider: "google", APIKey: "key-123", CreatedAt: now, LastLogin: now}
			require.NoError(t, s.CreateUser(ctx, u))

			got, err := s.GetUserByAPIKey(ctx, "key-123")
			require.NoError(t, err)
			assert.Equal(t, "google:123", got.UserID)

			_, err = s.GetUserByAPIKey(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			pe := &types.ProcessingError{FileURL: "https://example.com/a.json", UserID: "google:123", ErrorType: types.ErrorNoIDsFound, ErrorMessage: "no ids"}
			require.NoError(t, s.LogError(ctx, pe))

			errs, err := s.ListErrors(ctx, "https://example.com/a.json", "google:123", 10)
			require.NoError(t, err)
			require.Len(t, errs, 1)
			assert.Equal(t, types.ErrorNoIDsFound, errs[0].ErrorType)

			require.NoError(t, s.ClearErrors(ctx, "https://example.com/a.json", "google:123"))
			errs, err = s.ListErrors(ctx, "https://example.com/a.json", "google:123", 10)
			require.NoError(t, err)
			assert.Empty(t, errs)
		})
	}
}
