package queue

import (
	"sync"
	"sync/atomic"
	"time"
)

// processingWindowSize bounds the rolling average history.
const processingWindowSize = 1000

// rollingWindow keeps a bounded ring of processing durations and a running
// sum so the average is O(1) to read.
type rollingWindow struct {
	mu      sync.Mutex
	samples [processingWindowSize]time.Duration
	next    int
	count   int
	sum     time.Duration
}

func (w *rollingWindow) record(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.count == len(w.samples) {
		w.sum -= w.samples[w.next]
	} else {
		w.count++
	}
	w.samples[w.next] = d
	w.sum += d
	w.next = (w.next + 1) % len(w.samples)
}

func (w *rollingWindow) average() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.count == 0 {
		return 0
	}
	return w.sum / time.Duration(w.count)
}

// counters holds the queue's atomic counters.
type counters struct {
	pending    atomic.Int64
	active     atomic.Int64
	processed  atomic.Int64
	failed     atomic.Int64
	deadLetter atomic.Int64
	throughput atomic.Int64 // processed delta over the last 1s tick
}

// Metrics is a point-in-time view of queue health.
type Metrics struct {
	Pending           int64         `json:"pending"`
	Active            int64         `json:"active"`
	Processed         int64         `json:"processed"`
	Failed            int64         `json:"failed"`
	DeadLetter        int64         `json:"deadLetter"`
	AvgProcessingTime time.Duration `json:"avgProcessingTime"`
	ThroughputPerSec  int64         `json:"throughputPerSec"`
}
