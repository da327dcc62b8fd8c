/*
Package worker implements the crawler's processing agent: it drains
process_file and process_removed_file jobs off pkg/queue and converges
pkg/store and pkg/indexer to match.

# Architecture

A Worker is a single-purpose consumer loop with no state of its own;
every fact about what has been crawled lives in the Store, so any
number of Workers can run concurrently against the same Queue/Store/
Indexer without coordinating with each other:

	┌─────────────────────── WORKER ──────────────────────────┐
	│                                                           │
	│   Queue.Receive(visTimeout) ──▶ decode JobBody            │
	│                                     │                     │
	│                 ┌───────────────────┴──────────────────┐ │
	│                 ▼                                      ▼ │
	│         process_file                         process_removed_file
	│         fetch file_url                        list existing ids
	│         extract @id/@graph objects            DiffFileIds(nil)
	│         Store.DiffFileIds(ids)                ref-count gated
	│         ref-count gated Indexer               Indexer.Delete
	│         Add/Delete                            Store.DeleteFile
	│                 │                                      │      │
	│                 └──────────────┬───────────────────────┘      │
	│                                ▼                               │
	│                      Queue.Ack / Queue.Nack                    │
	└───────────────────────────────────────────────────────────────┘

# Job handling

process_file:

 1. Skip if the File row no longer exists (a process_removed_file job
    already deleted it). A tombstoned row still exists and is processed.
 2. Fetch file_url and extract every schema.org object carrying an
    "@id" — both top-level entries and entries nested in an
    "@graph" array on an object that has no "@id" of its own.
 3. Objects whose @type is in the skip set (breadcrumbs, list items,
    site furniture and similar navigation boilerplate) are dropped at
    extraction, so they never reach the Store or the Indexer.
 4. DiffFileIds converges the id set; added/removed ids are each
    checked with RefCount before touching the Indexer, so an id still
    referenced by another file is never re-added or deleted.
 5. Indexer failures are recorded as a ProcessingError but do not fail
    the job by default (Config.IndexerFailurePolicy), since the ids
    table has already converged and is the system's source of truth.
    A run that records no ProcessingError clears the file's earlier
    ones; a run that records one keeps it.

process_removed_file:

 1. Read the file's current id set, then diff it to empty.
 2. Any id that drops to a zero ref count is removed from the Indexer.
 3. The File row itself is deleted.

# Delivery semantics

The Queue offers at-least-once delivery with no ordering guarantee, so
every handler is safe to run twice: DiffFileIds/DiffSiteFiles are
idempotent, and a repeated Indexer Add/Delete for an id already in the
desired state is a no-op for Azure AI Search's mergeOrUpload/delete
actions.
*/
package worker
