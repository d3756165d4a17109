package space

import (
	"sync"

	"github.com/hupe1980/missionmesh/core"
)

// InMemoryStore is a volatile SpaceStore keeping spaces in a process-local
// map. Safe for concurrent access and best suited for tests and ephemeral
// setups. Returned spaces are cloned so callers cannot mutate internal state.
type InMemoryStore struct {
	mu     sync.RWMutex
	spaces map[string]*core.Space
}

// NewInMemoryStore constructs an empty in-memory space store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{spaces: make(map[string]*core.Space)}
}

// Get returns an existing space (clone) or creates one lazily.
func (s *InMemoryStore) Get(id string) (*core.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if space, ok := s.spaces[id]; ok {
		return space.Clone(), nil
	}
	space := core.NewSpace(id)
	s.spaces[id] = space
	return space.Clone(), nil
}

// Save stores a clone of the provided space snapshot.
func (s *InMemoryStore) Save(space *core.Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spaces[space.ID] = space.Clone()
	return nil
}

// InMemoryPlanStore keeps at most one plan per space in a process-local map.
// Plans are stored by reference; the scheduler is the only writer while a
// plan runs.
type InMemoryPlanStore struct {
	mu    sync.RWMutex
	plans map[string]*core.Plan
}

// NewInMemoryPlanStore constructs an empty in-memory plan store.
func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{plans: make(map[string]*core.Plan)}
}

// Get returns the plan for the space, or nil when none was saved.
func (s *InMemoryPlanStore) Get(spaceID string) (*core.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plans[spaceID], nil
}

// Save stores the plan for the space, replacing any previous one.
func (s *InMemoryPlanStore) Save(spaceID string, plan *core.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[spaceID] = plan
	return nil
}
