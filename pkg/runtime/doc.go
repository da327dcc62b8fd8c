/*
Package runtime assembles one schemacrawler process from pkg/config.

	rt, err := runtime.New(ctx, *cfg)
	if err != nil { ... }
	rt.Start()
	defer rt.Stop()

New picks concrete backends from config.Config: a bbolt Store when
BoltPath is set, otherwise a SQL Store over DBDialect/DBServer/...; a
FileQueue/ServiceBusQueue/StorageQueue depending on QueueType; an
in-memory Indexer when no SearchEndpoint is configured, otherwise
Azure AI Search fronted by an Azure OpenAI embedder. Start launches the
event Broker, the metrics Collector, the Reconciler, the Worker pool,
and the Scheduler, in that order; Stop reverses it, stopping the
Scheduler first so no new jobs are produced while Workers drain.

cmd/schemacrawler's "serve" subcommand is a thin shell around New/
Start/Stop; "discover" and "add-site" call WorkerRuntime's synchronous
helpers directly instead of going through the tick loop.
*/
package runtime
