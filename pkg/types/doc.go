/*
Package types defines the data model shared by every component of the
crawler and indexer pipeline: users, monitored sites, discovered schema
map files, the ids extracted from them, and the processing errors logged
against a file.

# Core Types

User, Site, File, Id, and ProcessingError mirror the relational tables
described in spec.md §3. JobBody is the wire shape carried on pkg/queue
messages, and SchemaObject is what pkg/worker extracts from a payload
before it reaches pkg/indexer.

# Ownership

A User owns Sites; Sites own Files; Files own Ids and ProcessingErrors.
Every Store operation is keyed by UserID so that ref counts and index
state never cross tenants.

# See Also

  - pkg/store for persistence and the diff_site_files/diff_file_ids
    convergence primitives
  - pkg/queue for the JobBody wire format
  - pkg/worker for SchemaObject extraction
*/
package types
