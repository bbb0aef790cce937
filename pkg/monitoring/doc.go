// Package monitoring exposes Prometheus collectors for the storage engine:
// buffer pool hit/miss/eviction counts, transaction outcomes and lock
// contention. Components hold a *StorageMetrics that may be nil.
package monitoring
