package upload

import (
	"sync"
	"time"
)

// Stats tracks the attempts made by an Uploader.
type Stats struct {
	mu        sync.Mutex
	attempts  int64
	succeeded int64
	sentBytes int64
	sum       time.Duration
}

// NewStats ...
func NewStats() *Stats {
	return &Stats{}
}

// Update records one finished attempt that sent size bytes.
func (s *Stats) Update(d time.Duration, size int64, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	s.sentBytes += size
	s.sum += d
	if success {
		s.succeeded++
	}
}

// Average returns the average duration of the recorded attempts.
func (s *Stats) Average() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempts == 0 {
		return 0
	}
	return s.sum / time.Duration(s.attempts)
}

// Attempts returns the number of requests sent.
func (s *Stats) Attempts() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Succeeded returns the number of attempts that ended in Success.
func (s *Stats) Succeeded() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.succeeded
}

// SentBytes returns the total size of the request bodies sent.
func (s *Stats) SentBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sentBytes
}
