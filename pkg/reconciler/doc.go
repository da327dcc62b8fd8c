/*
Package reconciler runs a periodic consistency sweep over every active
site's files, verifying that files.number_of_items still equals the
count of ids rows for that file (invariant I4) and correcting drift it
finds.

# Why this exists

DiffFileIds is the only writer of a File's id set and its
number_of_items counter; outside this package it is called by
pkg/worker's job handlers and by cmd/schemacrawler-migrate. A worker that crashes between
writing the ids table and updating number_of_items, or a row edited
directly against the backing store, leaves the two permanently out of
sync — nothing downstream re-derives number_of_items from the ids
table on its own. The reconciler is that re-derivation, running
out-of-band so an operator doesn't have to notice the drift manually.

# Sweep

	┌──────────────────────────────────────────────────────────┐
	│                  Reconciliation Sweep                      │
	│                   (every Config.Interval)                  │
	└────────────────┬────────────────────────────────────────┘
	                 │
	                 ▼
	  Store.ListAllSites() — every active (site, user)
	                 │
	                 ▼
	  for each site: ListSiteFiles → for each active file:
	    ListFileIds vs File.NumberOfItems
	    mismatch → log + metrics.ReconciliationDriftTotal
	    Config.Repair → DiffFileIds(file, ids) re-derives the count

Repairing calls DiffFileIds with the file's own current id set, which
is a no-op diff (added/removed both empty) that still rewrites
number_of_items and last_read_time — the same convergence primitive
the worker uses, not a special-cased direct write.

Sweeps never overlap: they run one after another on the loop
goroutine, so a tick that fires while a sweep is running waits in the
ticker and starts the next sweep as soon as the current one returns.
sweep also returns without sweeping if another sweep holds its lock.

# Usage

	rec := reconciler.NewReconciler(reconciler.Config{
		Interval: 10 * time.Minute,
		Repair:   true,
	}, store)
	rec.Start()
	defer rec.Stop()

# See Also

  - pkg/worker — the main other caller of Store.DiffFileIds
  - pkg/store — DiffFileIds/ListFileIds/ListAllSites
*/
package reconciler
