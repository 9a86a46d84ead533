package hnsw

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordBatchInsert is called after each AddItems call.
	RecordBatchInsert(rows int, duration time.Duration, err error)

	// RecordSearch is called after each Search or SearchFlat call.
	RecordSearch(rows, k int, duration time.Duration, err error)

	// RecordSave is called after each Save.
	RecordSave(duration time.Duration, err error)

	// RecordLoad is called after each Load.
	RecordLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBatchInsert(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSave(time.Duration, error)             {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)             {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	BatchInsertCount      atomic.Int64
	BatchInsertErrors     atomic.Int64
	BatchInsertRows       atomic.Int64
	BatchInsertTotalNanos atomic.Int64
	SearchCount           atomic.Int64
	SearchErrors          atomic.Int64
	SearchRows            atomic.Int64
	SearchTotalNanos      atomic.Int64
	SaveCount             atomic.Int64
	SaveErrors            atomic.Int64
	LoadCount             atomic.Int64
	LoadErrors            atomic.Int64
}

// RecordBatchInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchInsert(rows int, duration time.Duration, err error) {
	b.BatchInsertCount.Add(1)
	b.BatchInsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BatchInsertErrors.Add(1)
		return
	}
	b.BatchInsertRows.Add(int64(rows))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(rows, _ int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	b.SearchRows.Add(int64(rows))
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(_ time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BatchInsertCount:    b.BatchInsertCount.Load(),
		BatchInsertErrors:   b.BatchInsertErrors.Load(),
		BatchInsertRows:     b.BatchInsertRows.Load(),
		BatchInsertAvgNanos: avg(b.BatchInsertTotalNanos.Load(), b.BatchInsertCount.Load()),
		SearchCount:         b.SearchCount.Load(),
		SearchErrors:        b.SearchErrors.Load(),
		SearchRows:          b.SearchRows.Load(),
		SearchAvgNanos:      avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		SaveCount:           b.SaveCount.Load(),
		SaveErrors:          b.SaveErrors.Load(),
		LoadCount:           b.LoadCount.Load(),
		LoadErrors:          b.LoadErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BatchInsertCount    int64
	BatchInsertErrors   int64
	BatchInsertRows     int64
	BatchInsertAvgNanos int64
	SearchCount         int64
	SearchErrors        int64
	SearchRows          int64
	SearchAvgNanos      int64
	SaveCount           int64
	SaveErrors          int64
	LoadCount           int64
	LoadErrors          int64
}
