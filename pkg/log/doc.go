/*
Package log provides structured logging via zerolog: a package-level
Logger configured once with log.Init, a component-scoped child logger
(WithComponent) for the scheduler, discoverer, worker, store, queue,
and indexer, and enrichment helpers (WithSite, WithFile, WithJob) that
take a component logger and tag it with the site/file/user/job
identifiers a given log line is about.
*/
package log
