package server

import (
	"sync"

	"auto_laudo_pericial/generator"
)

// runStore keeps the most recent runs in memory so their documents can be downloaded.
type runStore struct {
	mu    sync.Mutex
	max   int
	runs  map[string]*generator.RunResult
	order []string
}

func newStore(max int) *runStore {
	return &runStore{max: max, runs: make(map[string]*generator.RunResult)}
}

func (s *runStore) set(res *generator.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[res.ID]; !ok {
		s.order = append(s.order, res.ID)
	}
	s.runs[res.ID] = res
	for len(s.order) > s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.runs, oldest)
	}
}

func (s *runStore) get(id string) (*generator.RunResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.runs[id]
	return res, ok
}

func (s *runStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}
