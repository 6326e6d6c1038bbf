package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	refreshes       atomic.Uint64
	refreshFailures atomic.Uint64
	accountsFetched atomic.Uint64
	quotes          atomic.Uint64
	quoteFailures   atomic.Uint64

	// Latency tracking
	quoteLatencySumNs atomic.Int64
	quoteLatencyCount atomic.Uint64

	// Gauges
	readyMarkets atomic.Int32
}

// NewMetrics returns a zeroed metrics set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRefresh records one market refresh attempt.
func (m *Metrics) RecordRefresh(err error) {
	m.refreshes.Add(1)
	if err != nil {
		m.refreshFailures.Add(1)
	}
}

// RecordFetched adds n fetched accounts.
func (m *Metrics) RecordFetched(n int) {
	m.accountsFetched.Add(uint64(n))
}

// RecordQuote records a quote with its latency.
func (m *Metrics) RecordQuote(latencyNs int64, err error) {
	m.quotes.Add(1)
	if err != nil {
		m.quoteFailures.Add(1)
	}
	m.quoteLatencySumNs.Add(latencyNs)
	m.quoteLatencyCount.Add(1)
}

// SetReadyMarkets sets the number of markets able to quote.
func (m *Metrics) SetReadyMarkets(n int32) {
	m.readyMarkets.Store(n)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Refreshes         uint64
	RefreshFailures   uint64
	AccountsFetched   uint64
	Quotes            uint64
	QuoteFailures     uint64
	AvgQuoteLatencyNs int64
	ReadyMarkets      int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.quoteLatencyCount.Load()
	if count > 0 {
		avgLatency = m.quoteLatencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		Refreshes:         m.refreshes.Load(),
		RefreshFailures:   m.refreshFailures.Load(),
		AccountsFetched:   m.accountsFetched.Load(),
		Quotes:            m.quotes.Load(),
		QuoteFailures:     m.quoteFailures.Load(),
		AvgQuoteLatencyNs: avgLatency,
		ReadyMarkets:      m.readyMarkets.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.refreshes.Store(0)
	m.refreshFailures.Store(0)
	m.accountsFetched.Store(0)
	m.quotes.Store(0)
	m.quoteFailures.Store(0)
	m.quoteLatencySumNs.Store(0)
	m.quoteLatencyCount.Store(0)
	m.readyMarkets.Store(0)
}
