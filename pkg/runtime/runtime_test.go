package runtime

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlweb-ai/schemacrawler/pkg/config"
	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	return config.Config{
		BoltPath:             dir,
		QueueType:            config.QueueFile,
		QueueDir:             filepath.Join(dir, "queue"),
		SchedulerInterval:    time.Hour,
		SchedulerConcurrency: 2,
		WorkerPoolSize:       1,
		HTTPTimeout:          5 * time.Second,
		ReconcileInterval:    time.Hour,
		ReconcileRepair:      true,
	}
}

func TestNew_WiresBoltStoreAndFileQueueAndMemIndexer(t *testing.T) {
	rt, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	require.NotNil(t, rt)

	assert.NotNil(t, rt.st)
	assert.NotNil(t, rt.q)
	assert.NotNil(t, rt.ix)
	assert.Len(t, rt.workers, 1)

	require.NoError(t, rt.Stop())
}

func TestWorkerRuntime_StartStopLifecycle(t *testing.T) {
	rt, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)

	rt.Start()
	require.NoError(t, rt.Stop())
}

func TestWorkerRuntime_AddSiteAndDiscoverOnce(t *testing.T) {
	rt, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer rt.Stop()

	ctx := context.Background()
	site := &types.Site{
		SiteURL:              "https://example.test",
		UserID:               "u1",
		IsActive:             true,
		ProcessIntervalHours: 24,
	}
	require.NoError(t, rt.AddSite(ctx, site))

	got, err := rt.Store().GetSite(ctx, site.SiteURL, site.UserID)
	require.NoError(t, err)
	assert.Equal(t, site.SiteURL, got.SiteURL)

	// DiscoverOnce will fail since example.test isn't reachable, but it
	// must fail cleanly (network error), not panic from missing wiring.
	err = rt.DiscoverOnce(ctx, site.SiteURL, site.UserID)
	assert.Error(t, err)
}
