package pipeline

import (
	"errors"
	"sync"
)

// ErrNotReady is returned before the first pipeline has been stored.
var ErrNotReady = errors.New("pipeline not ready")

// Store holds the current pipeline. Readers never see a partially built
// pipeline; a reload swaps the pointer.
type Store struct {
	mu  sync.RWMutex
	cur *Pipeline
}

func (s *Store) Current() (*Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return nil, ErrNotReady
	}
	return s.cur, nil
}

// Swap installs p and returns the pipeline it replaced, if any.
func (s *Store) Swap(p *Pipeline) *Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cur
	s.cur = p
	return prev
}

func (s *Store) Query(ts float64) (Result, error) {
	p, err := s.Current()
	if err != nil {
		return Result{}, err
	}
	return p.Query(ts), nil
}
