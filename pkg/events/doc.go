/*
Package events provides an in-memory event broker for broadcasting
pipeline events to interested subscribers: buffered publish (Publish
waits only while the broker's 100-event buffer is full and the broker
is not stopped), one buffered channel per subscriber, fire-and-forget
delivery.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			log.Info().Str("type", string(event.Type)).Msg(event.Message)
		}
	}()

	broker.Publish(&events.Event{
		Type:    events.EventFileProcessed,
		Message: "processed https://example.com/recipe.json",
		Metadata: map[string]string{"site_url": site, "user_id": userID},
	})

# Event types

  - site.discovered: Discoverer converged a site's file set
  - file.processed: Worker converged a file's id set into the Indexer
  - file.removed: Worker deleted a tombstoned File row
  - index.add_failed / index.delete_failed: Indexer call failed; the
    same fact is also recorded as a ProcessingError in the Store
  - site.errored: Discoverer or Worker hit an unrecoverable error for a
    site

Subscribers with a full buffer miss events rather than block the
broadcaster — this is a convenience channel for dashboards/CLI
"--watch" streams, not the system of record. The ProcessingError table
in pkg/store is authoritative for error history.
*/
package events
