/*
Package scheduler drives periodic site discovery: on a fixed tick it
asks the Store which sites are due for a crawl and runs pkg/discoverer
against each one, bounded to a fixed concurrency so a slow site can't
starve the rest of the tick.

# Architecture

	┌──────────────────────────────────────────────────────────┐
	│                    Scheduler Loop                         │
	│                 (every TickInterval)                      │
	└────────────────┬────────────────────────────────────────┘
	                 │
	                 ▼
	┌──────────────────────────────────────────────────────────┐
	│  1. Store.GetDueSites(now) — sites whose                   │
	│     last_processed + process_interval_hours has elapsed    │
	│  2. Acquire a weighted semaphore slot per site              │
	│  3. discoverer.Run(site_url, user_id) in its own goroutine  │
	│  4. Drain the semaphore before the next tick fires          │
	└──────────────────────────────────────────────────────────┘

The Scheduler holds no state of its own beyond the Store/Queue/
Discoverer references passed to NewScheduler; which sites are due is
read fresh from the Store on every tick, so a restarted Scheduler picks
up exactly where the previous process left off.

# Concurrency

Concurrency controls how many sites are discovered in parallel within
one tick. A weighted semaphore (golang.org/x/sync/semaphore) is
acquired once per site before launching its goroutine and released when
that goroutine returns; after launching every due site the tick
acquires the full weight again, which blocks until all in-flight
discoveries for this tick have released their slot. This guarantees the
same site is never discovered concurrently with itself across two
ticks, without needing a per-site lock in the Scheduler itself — that
serialization already lives in Store.DiffSiteFiles.

# Usage

	sched := scheduler.NewScheduler(scheduler.Config{
		TickInterval: time.Minute,
		Concurrency:  8,
	}, store, queue, discoverer.New(httpfetch.New(10*time.Second), logger))
	sched.Start()
	defer sched.Stop()

# See Also

  - pkg/discoverer — per-site robots.txt/schema_map resolution and diff
  - pkg/store — GetDueSites and the per-site DiffSiteFiles mutex
  - pkg/worker — consumes the jobs the Discoverer enqueues
*/
package scheduler
