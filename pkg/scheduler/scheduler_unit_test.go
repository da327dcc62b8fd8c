package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nlweb-ai/schemacrawler/pkg/log"
	"github.com/nlweb-ai/schemacrawler/pkg/queue"
	"github.com/nlweb-ai/schemacrawler/pkg/store"
)

// TestDefaultConfig verifies NewScheduler fills in defaults when an
// empty Config is passed, rather than ticking on every call.
func TestDefaultConfig(t *testing.T) {
	sched := NewScheduler(Config{}, store.NewMemStore(), queue.NewMemQueue(), nil)
	assert.Equal(t, defaultConfig().TickInterval, sched.cfg.TickInterval)
	assert.Equal(t, defaultConfig().Concurrency, sched.cfg.Concurrency)
	assert.Equal(t, defaultConfig().TickTimeout, sched.cfg.TickTimeout)
}

// TestTick_NoDueSitesIsANoop checks that a tick against an empty store
// neither enqueues anything nor blocks.
func TestTick_NoDueSitesIsANoop(t *testing.T) {
	sched := NewScheduler(Config{Concurrency: 4, TickTimeout: time.Second}, store.NewMemStore(), queue.NewMemQueue(), nil)
	sched.tick()
}

// TestSchedulerLifecycle exercises Start/Stop without a ticking
// interval racing the assertions.
func TestSchedulerLifecycle(t *testing.T) {
	sched := &Scheduler{
		cfg:    defaultConfig(),
		st:     store.NewMemStore(),
		q:      queue.NewMemQueue(),
		logger: log.WithComponent("test"),
		stopCh: make(chan struct{}),
	}

	sched.Start()
	sched.Stop()

	select {
	case <-sched.stopCh:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("stopCh should be closed after Stop")
	}
}
