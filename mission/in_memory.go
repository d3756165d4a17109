package mission

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/missionmesh/core"
)

// InMemoryStore is a process-local MissionStore. It offers:
//  1. Mission persistence keyed by space id and mission id
//  2. Active-mission lookup per space
//  3. Substring search over mission intents (Find)
//
// Concurrency: protected by RWMutex. Search is a linear scan with substring
// matching, suitable for tests and small deployments; swap for an indexed
// store when mission history grows large.
type InMemoryStore struct {
	mu       sync.RWMutex
	missions map[string]map[string]*core.Mission // spaceID -> missionID -> mission
	order    map[string][]string                 // spaceID -> mission ids in save order
}

// NewInMemoryStore creates an empty in-memory mission store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		missions: make(map[string]map[string]*core.Mission),
		order:    make(map[string][]string),
	}
}

// Get returns the mission by id within the space.
func (s *InMemoryStore) Get(spaceID, missionID string) (*core.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.missions[spaceID][missionID]
	if !ok {
		return nil, fmt.Errorf("mission %s not found in space %s", missionID, spaceID)
	}
	return m, nil
}

// Save stores the mission under its space, keeping first-save order for List.
func (s *InMemoryStore) Save(m *core.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.missions[m.SpaceID]; !ok {
		s.missions[m.SpaceID] = make(map[string]*core.Mission)
	}
	if _, seen := s.missions[m.SpaceID][m.ID]; !seen {
		s.order[m.SpaceID] = append(s.order[m.SpaceID], m.ID)
	}
	s.missions[m.SpaceID][m.ID] = m
	return nil
}

// List returns the space's missions in the order they were first saved.
func (s *InMemoryStore) List(spaceID string) ([]*core.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order[spaceID]
	out := make([]*core.Mission, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.missions[spaceID][id])
	}
	return out, nil
}

// Active returns the most recently saved non-terminal mission for the space,
// or nil when every mission is completed or abandoned.
func (s *InMemoryStore) Active(spaceID string) (*core.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order[spaceID]
	for i := len(ids) - 1; i >= 0; i-- {
		m := s.missions[spaceID][ids[i]]
		if m.Status == core.MissionActive || m.Status == core.MissionPaused {
			return m, nil
		}
	}
	return nil, nil
}

// Find performs a substring match over mission intents, returning up to
// limit hits in save order.
func (s *InMemoryStore) Find(spaceID, query string, limit int) ([]*core.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.Mission
	for _, id := range s.order[spaceID] {
		if limit > 0 && len(out) >= limit {
			break
		}
		m := s.missions[spaceID][id]
		if query == "" || strings.Contains(m.Intent, query) {
			out = append(out, m)
		}
	}
	return out, nil
}
