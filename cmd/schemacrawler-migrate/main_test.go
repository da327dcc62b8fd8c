package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlweb-ai/schemacrawler/pkg/store"
	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

func seedSource(t *testing.T, src store.Store) *types.Site {
	t.Helper()
	ctx := context.Background()

	u := &types.User{UserID: "u1", Email: "u1@example.com", Provider: "github", APIKey: "key-1"}
	require.NoError(t, src.CreateUser(ctx, u))

	site := &types.Site{SiteURL: "https://example.com", UserID: u.UserID, IsActive: true, ProcessIntervalHours: 24}
	require.NoError(t, src.AddSite(ctx, site))

	schemaMap := "https://example.com/schema_map.xml"
	_, _, err := src.DiffSiteFiles(ctx, site.SiteURL, site.UserID, schemaMap, []types.FileTriple{
		{SiteURL: site.SiteURL, SchemaMap: schemaMap, FileURL: "https://example.com/a.html"},
	})
	require.NoError(t, err)

	_, _, err = src.DiffFileIds(ctx, "https://example.com/a.html", site.UserID, []string{"item-1", "item-2"})
	require.NoError(t, err)

	require.NoError(t, src.LogError(ctx, &types.ProcessingError{
		FileURL:      "https://example.com/a.html",
		UserID:       site.UserID,
		ErrorType:    types.ErrorVectorDBAddFailed,
		ErrorMessage: "timeout",
	}))

	return site
}

func TestMigrate_CopiesSitesFilesIdsAndErrors(t *testing.T) {
	src := store.NewMemStore()
	dst := store.NewMemStore()
	site := seedSource(t, src)

	ctx := context.Background()
	require.NoError(t, migrate(ctx, src, dst, false))

	gotSite, err := dst.GetSite(ctx, site.SiteURL, site.UserID)
	require.NoError(t, err)
	assert.Equal(t, site.SiteURL, gotSite.SiteURL)

	gotUser, err := dst.GetUser(ctx, site.UserID)
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", gotUser.Email)

	ids, err := dst.ListFileIds(ctx, "https://example.com/a.html", site.UserID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"item-1", "item-2"}, ids)

	errs, err := dst.ListErrors(ctx, "https://example.com/a.html", site.UserID, 100)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, types.ErrorVectorDBAddFailed, errs[0].ErrorType)
}

func TestMigrate_DryRunWritesNothing(t *testing.T) {
	src := store.NewMemStore()
	site := seedSource(t, src)

	ctx := context.Background()
	require.NoError(t, migrate(ctx, src, nil, true))

	// Source is left untouched; there's no destination to inspect in
	// dry-run mode, so the only thing to assert is that migrate didn't
	// try to dereference the nil dst.
	got, err := src.GetSite(ctx, site.SiteURL, site.UserID)
	require.NoError(t, err)
	assert.Equal(t, site.SiteURL, got.SiteURL)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	src := store.NewMemStore()
	dst := store.NewMemStore()
	seedSource(t, src)

	ctx := context.Background()
	require.NoError(t, migrate(ctx, src, dst, false))
	require.NoError(t, migrate(ctx, src, dst, false))

	sites, err := dst.ListAllSites(ctx)
	require.NoError(t, err)
	assert.Len(t, sites, 1)
}
