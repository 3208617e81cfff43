package tmscan

import "sync/atomic"

// Stats tracks cache behaviour of a List.
type Stats struct {
	// Compiles counts successful scanner factory calls
	Compiles uint64

	// CompileErrors counts failed scanner factory calls
	CompileErrors uint64

	// CacheHits counts Compile calls answered from a cache slot
	CacheHits uint64

	// Invalidations counts how often warm slots were dropped
	Invalidations uint64
}

// Stats returns a snapshot of the list statistics.
// It may be called from another goroutine than the one using the list.
func (l *List) Stats() Stats {
	return Stats{
		Compiles:      atomic.LoadUint64(&l.stats.Compiles),
		CompileErrors: atomic.LoadUint64(&l.stats.CompileErrors),
		CacheHits:     atomic.LoadUint64(&l.stats.CacheHits),
		Invalidations: atomic.LoadUint64(&l.stats.Invalidations),
	}
}

// ResetStats resets the statistics to zero.
func (l *List) ResetStats() {
	atomic.StoreUint64(&l.stats.Compiles, 0)
	atomic.StoreUint64(&l.stats.CompileErrors, 0)
	atomic.StoreUint64(&l.stats.CacheHits, 0)
	atomic.StoreUint64(&l.stats.Invalidations, 0)
}
