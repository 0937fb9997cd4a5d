package consumer

import (
	"sync"
	"time"
)

// Metrics tracks what happened to the sensor feed. Safe for concurrent use
// from the broker callback and the ingest workers.
type Metrics struct {
	mu sync.RWMutex

	MessagesReceived int64
	MessagesSkipped  int64

	SamplesEnqueued int64
	SamplesDropped  int64
	SamplesSaved    int64
	SamplesFailed   int64

	StartTime time.Time
}

// GetSnapshot returns a point-in-time copy of the counters.
func (m *Metrics) GetSnapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		MessagesReceived: m.MessagesReceived,
		MessagesSkipped:  m.MessagesSkipped,
		SamplesEnqueued:  m.SamplesEnqueued,
		SamplesDropped:   m.SamplesDropped,
		SamplesSaved:     m.SamplesSaved,
		SamplesFailed:    m.SamplesFailed,
		StartTime:        m.StartTime,
	}
}

// IncrementReceived counts one raw payload from the broker.
func (m *Metrics) IncrementReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesReceived++
}

// IncrementSkipped counts one payload rejected before ingestion.
func (m *Metrics) IncrementSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSkipped++
}

// IncrementEnqueued counts one sample handed to the workers.
func (m *Metrics) IncrementEnqueued() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SamplesEnqueued++
}

// IncrementDropped counts one sample lost because the queue was full.
func (m *Metrics) IncrementDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SamplesDropped++
}

// IncrementSaved counts one sample persisted and published.
func (m *Metrics) IncrementSaved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SamplesSaved++
}

// IncrementFailed counts one sample the pipeline could not persist.
func (m *Metrics) IncrementFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SamplesFailed++
}
