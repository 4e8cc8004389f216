package catalog

import (
	"context"
	"sync"
)

// tokenSemaphore is a counting semaphore whose limit can be changed while
// tokens are held. Lowering the limit only gates new acquisitions; tokens
// already held are never revoked.
type tokenSemaphore struct {
	mu      sync.Mutex
	limit   int
	held    int
	waiters []chan struct{}
}

func newTokenSemaphore(limit int) *tokenSemaphore {
	if limit < 1 {
		limit = 1
	}
	return &tokenSemaphore{limit: limit}
}

// Acquire blocks until a token is available or ctx is done.
func (s *tokenSemaphore) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.held < s.limit {
		s.held++
		s.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	s.waiters = append(s.waiters, ready)
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		granted := true
		for i, w := range s.waiters {
			if w == ready {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				granted = false
				break
			}
		}
		if granted {
			// The token arrived while we were cancelling; hand it back.
			s.held--
			s.wakeLocked()
		}
		s.mu.Unlock()
		return ctx.Err()
	}
}

// Release returns one token.
func (s *tokenSemaphore) Release() {
	s.mu.Lock()
	s.held--
	s.wakeLocked()
	s.mu.Unlock()
}

// SetLimit changes the token limit (floor 1) and wakes waiters if it grew.
func (s *tokenSemaphore) SetLimit(n int) {
	if n < 1 {
		n = 1
	}
	s.mu.Lock()
	s.limit = n
	s.wakeLocked()
	s.mu.Unlock()
}

// Limit returns the current token limit.
func (s *tokenSemaphore) Limit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit
}

func (s *tokenSemaphore) wakeLocked() {
	for s.held < s.limit && len(s.waiters) > 0 {
		ready := s.waiters[0]
		s.waiters = s.waiters[1:]
		s.held++
		close(ready)
	}
}
