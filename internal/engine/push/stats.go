package push

import (
	"sync"
	"time"
)

// Stats are the process-wide broadcast counters. They only grow and are
// reset by a restart.
type Stats struct {
	mu          sync.Mutex
	totalSent   int64
	totalErrors int64
	lastSentAt  time.Time
}

type StatsSnapshot struct {
	TotalSent   int64      `json:"totalSent"`
	TotalErrors int64      `json:"totalErrors"`
	LastSentAt  *time.Time `json:"lastSentAt"`
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) Record(sent, errors int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalSent += int64(sent)
	s.totalErrors += int64(errors)
	s.lastSentAt = at
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		TotalSent:   s.totalSent,
		TotalErrors: s.totalErrors,
	}
	if !s.lastSentAt.IsZero() {
		at := s.lastSentAt
		snap.LastSentAt = &at
	}
	return snap
}
