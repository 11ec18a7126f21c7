package memory

import (
	"sync"
	"time"
)

// Statistics is a snapshot of gateway counters.
type Statistics struct {
	// Operations is the total number of gateway calls attempted.
	Operations int64 `json:"operations"`
	// Successes counts calls that returned a successful Result.
	Successes int64 `json:"successes"`
	// Failures counts calls that exhausted retries or failed validation.
	Failures int64 `json:"failures"`
	// AvgResponseTime is the moving average over successful calls.
	AvgResponseTime time.Duration `json:"avg_response_time"`
	// LastHealthCheck is when the service last answered a liveness probe.
	LastHealthCheck time.Time `json:"last_health_check"`
	// Connected reports the gateway's view of the connection.
	Connected bool `json:"connected"`
}

// statsTracker accumulates operation counters behind a mutex.
type statsTracker struct {
	mu         sync.Mutex
	operations int64
	successes  int64
	failures   int64
	avgLatency time.Duration
}

func (s *statsTracker) recordSuccess(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations++
	s.successes++
	// Moving average over successful calls only.
	s.avgLatency += (d - s.avgLatency) / time.Duration(s.successes)
}

func (s *statsTracker) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations++
	s.failures++
}

func (s *statsTracker) snapshot() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Statistics{
		Operations:      s.operations,
		Successes:       s.successes,
		Failures:        s.failures,
		AvgResponseTime: s.avgLatency,
	}
}
