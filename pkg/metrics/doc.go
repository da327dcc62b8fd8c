/*
Package metrics exposes Prometheus gauges/counters/histograms for the
crawl-index pipeline (sites, files, ids, discovery cycles, queue depth,
job outcomes, indexer batches) plus a small health-check registry
(RegisterComponent/GetHealth/GetReadiness) used for the /healthz,
/ready, and /live HTTP handlers. Collector polls pkg/store on a tick to
keep the sites/files/ids gauges current outside the request path.
*/
package metrics
