package netbridge

import (
	"sync"
	"time"
)

// MeterWindow is the sliding window the bandwidth meter averages over.
const MeterWindow = 5 * time.Second

// BandwidthMeter tracks byte rates over a sliding window.
type BandwidthMeter struct {
	window time.Duration

	mu     sync.Mutex
	reads  []meterEvent
	writes []meterEvent
}

type meterEvent struct {
	at time.Time
	n  uint64
}

// NewBandwidthMeter creates a meter with the given window.
func NewBandwidthMeter(window time.Duration) *BandwidthMeter {
	return &BandwidthMeter{window: window}
}

// AddRead records n bytes received from the device.
func (m *BandwidthMeter) AddRead(n int) {
	m.mu.Lock()
	m.reads = m.push(m.reads, n)
	m.mu.Unlock()
}

// AddWritten records n bytes sent toward the device.
func (m *BandwidthMeter) AddWritten(n int) {
	m.mu.Lock()
	m.writes = m.push(m.writes, n)
	m.mu.Unlock()
}

// ReadSpeed returns the device→host byte rate in bytes per second.
func (m *BandwidthMeter) ReadSpeed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = m.evict(m.reads, time.Now())
	return speed(m.reads)
}

// WriteSpeed returns the host→device byte rate in bytes per second.
func (m *BandwidthMeter) WriteSpeed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = m.evict(m.writes, time.Now())
	return speed(m.writes)
}

func (m *BandwidthMeter) push(q []meterEvent, n int) []meterEvent {
	now := time.Now()
	q = append(q, meterEvent{at: now, n: uint64(n)})
	return m.evict(q, now)
}

func (m *BandwidthMeter) evict(q []meterEvent, now time.Time) []meterEvent {
	cut := 0
	for cut < len(q) && now.Sub(q[cut].at) > m.window {
		cut++
	}
	return q[cut:]
}

func speed(q []meterEvent) float64 {
	if len(q) == 0 {
		return 0
	}
	var total uint64
	for _, e := range q {
		total += e.n
	}
	if total == 0 {
		return 0
	}
	elapsed := time.Since(q[0].at).Seconds()
	if elapsed < 0.001 {
		elapsed = 0.001
	}
	return float64(total) / elapsed
}
