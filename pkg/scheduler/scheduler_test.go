package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlweb-ai/schemacrawler/pkg/discoverer"
	"github.com/nlweb-ai/schemacrawler/pkg/httpfetch"
	"github.com/nlweb-ai/schemacrawler/pkg/log"
	"github.com/nlweb-ai/schemacrawler/pkg/queue"
	"github.com/nlweb-ai/schemacrawler/pkg/store"
	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

const oneFileSchemaMap = `<?xml version="1.0"?>
<urlset>
  <url><loc>%s/recipe-1.json</loc></url>
</urlset>`

// TestTick_DiscoversDueSitesAndEnqueuesJobs runs one scheduling cycle
// against a real (httptest) site and verifies the tick moved the site
// through discovery and queued a process_file job for its one file.
func TestTick_DiscoversDueSitesAndEnqueuesJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprintf(w, "User-agent: *\nSchemamap: %s/schema_map.xml\n", "http://"+r.Host)
		case "/schema_map.xml":
			fmt.Fprintf(w, oneFileSchemaMap, "http://"+r.Host)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	st := store.NewMemStore()
	q := queue.NewMemQueue()
	d := discoverer.New(httpfetch.New(2*time.Second), log.WithComponent("test"))

	require.NoError(t, st.AddSite(ctx, &types.Site{
		SiteURL:              srv.URL,
		UserID:               "u1",
		ProcessIntervalHours: 24,
		IsActive:             true,
	}))

	sched := NewScheduler(Config{Concurrency: 4, TickTimeout: 5 * time.Second}, st, q, d)
	sched.tick()

	assert.Equal(t, 1, q.Len())
}

// TestTick_SkipsSitesNotYetDue verifies a freshly processed site is not
// rediscovered until its interval elapses.
func TestTick_SkipsSitesNotYetDue(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	q := queue.NewMemQueue()
	d := discoverer.New(httpfetch.New(2*time.Second), log.WithComponent("test"))

	now := time.Now().UTC()
	require.NoError(t, st.AddSite(ctx, &types.Site{
		SiteURL:              "https://example.com",
		UserID:               "u1",
		ProcessIntervalHours: 24,
		IsActive:             true,
		LastProcessed:        &now,
	}))

	sched := NewScheduler(Config{Concurrency: 4, TickTimeout: 5 * time.Second}, st, q, d)
	sched.tick()

	assert.Equal(t, 0, q.Len(), "site processed moments ago should not be due again")
}

// TestTick_BoundsConcurrency runs several due sites through one tick with
// Concurrency set below the site count and checks the tick still drains
// every site before returning.
func TestTick_BoundsConcurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprintf(w, "Schemamap: %s/schema_map.xml\n", "http://"+r.Host)
		case "/schema_map.xml":
			fmt.Fprintf(w, oneFileSchemaMap, "http://"+r.Host)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	st := store.NewMemStore()
	q := queue.NewMemQueue()
	d := discoverer.New(httpfetch.New(2*time.Second), log.WithComponent("test"))

	for i := 0; i < 5; i++ {
		require.NoError(t, st.AddSite(ctx, &types.Site{
			SiteURL:              srv.URL,
			UserID:               fmt.Sprintf("user-%d", i),
			ProcessIntervalHours: 24,
			IsActive:             true,
		}))
	}

	sched := NewScheduler(Config{Concurrency: 2, TickTimeout: 5 * time.Second}, st, q, d)
	sched.tick()

	assert.Equal(t, 5, q.Len(), "every due site's file job should be enqueued by the time tick() returns")
}
