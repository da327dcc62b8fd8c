package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlweb-ai/schemacrawler/pkg/store"
	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

// driftStore embeds store.Store (nil) so it satisfies the full
// interface, overriding only the handful of methods sweepSite
// actually calls. This lets the test put a File row and its ids table
// out of sync without reaching into an unexported backend field.
type driftStore struct {
	store.Store
	sites      []*types.Site
	files      []*types.File
	ids        []string
	diffCalls  int
	diffNewIds []string
}

func (d *driftStore) ListAllSites(ctx context.Context) ([]*types.Site, error) { return d.sites, nil }

func (d *driftStore) ListSiteFiles(ctx context.Context, siteURL, userID string) ([]*types.File, error) {
	return d.files, nil
}

func (d *driftStore) ListFileIds(ctx context.Context, fileURL, userID string) ([]string, error) {
	return d.ids, nil
}

func (d *driftStore) DiffFileIds(ctx context.Context, fileURL, userID string, newIds []string) ([]string, []string, error) {
	d.diffCalls++
	d.diffNewIds = newIds
	return nil, nil, nil
}

func TestSweepSite_RepairsDriftedCount(t *testing.T) {
	ds := &driftStore{
		sites: []*types.Site{{SiteURL: "https://example.com", UserID: "u1", IsActive: true}},
		files: []*types.File{{
			SiteURL:       "https://example.com",
			UserID:        "u1",
			FileURL:       "https://example.com/f.json",
			NumberOfItems: 1,
			IsActive:      true,
		}},
		ids: []string{"id-1", "id-2"},
	}

	r := NewReconciler(Config{Interval: time.Minute, Repair: true}, ds)
	require.NoError(t, r.sweep(context.Background()))

	assert.Equal(t, 1, ds.diffCalls, "drifted file should trigger exactly one repair diff")
	assert.ElementsMatch(t, []string{"id-1", "id-2"}, ds.diffNewIds)
}

func TestSweepSite_NoDriftIsANoop(t *testing.T) {
	ds := &driftStore{
		sites: []*types.Site{{SiteURL: "https://example.com", UserID: "u1", IsActive: true}},
		files: []*types.File{{
			SiteURL:       "https://example.com",
			UserID:        "u1",
			FileURL:       "https://example.com/f.json",
			NumberOfItems: 2,
			IsActive:      true,
		}},
		ids: []string{"id-1", "id-2"},
	}

	r := NewReconciler(Config{Interval: time.Minute, Repair: true}, ds)
	require.NoError(t, r.sweep(context.Background()))

	assert.Equal(t, 0, ds.diffCalls)
}

func TestSweepSite_RepairDisabledOnlyLogsDrift(t *testing.T) {
	ds := &driftStore{
		sites: []*types.Site{{SiteURL: "https://example.com", UserID: "u1", IsActive: true}},
		files: []*types.File{{
			SiteURL:       "https://example.com",
			UserID:        "u1",
			FileURL:       "https://example.com/f.json",
			NumberOfItems: 5,
			IsActive:      true,
		}},
		ids: []string{"id-1"},
	}

	r := NewReconciler(Config{Interval: time.Minute, Repair: false}, ds)
	require.NoError(t, r.sweep(context.Background()))

	assert.Equal(t, 0, ds.diffCalls, "Repair=false should count drift without correcting it")
}

func TestReconciler_LifecycleStartStop(t *testing.T) {
	r := NewReconciler(Config{Interval: time.Hour}, store.NewMemStore())
	r.Start()
	r.Stop()

	select {
	case <-r.stopCh:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("stopCh should be closed after Stop")
	}
}
