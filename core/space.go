package core

import (
	"sync"
	"time"
)

// Space is the persistent workspace a mission lives in. It tracks mutable
// key/value state and metadata; conversation history and artifacts live in
// their respective stores. Safe for concurrent access.
type Space struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	State    map[string]any    `json:"state"`
	Metadata map[string]string `json:"metadata"`
	Created  time.Time         `json:"created"`
	Updated  time.Time         `json:"updated"`
	mu       sync.RWMutex
}

// NewSpace creates an empty space with the given id.
func NewSpace(id string) *Space {
	now := time.Now().UTC()
	return &Space{ID: id, State: map[string]any{}, Metadata: map[string]string{}, Created: now, Updated: now}
}

// GetState returns the value and existence flag for a state key.
func (s *Space) GetState(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.State[key]
	return v, ok
}

// SetState sets a state key, updating the Updated timestamp.
func (s *Space) SetState(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State[key] = value
	s.Updated = time.Now().UTC()
}

// Clone returns a deep copy safe for independent mutation.
func (s *Space) Clone() *Space {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := &Space{ID: s.ID, Name: s.Name, State: make(map[string]any, len(s.State)), Metadata: make(map[string]string, len(s.Metadata)), Created: s.Created, Updated: s.Updated}
	for k, v := range s.State {
		c.State[k] = v
	}
	for k, v := range s.Metadata {
		c.Metadata[k] = v
	}
	return c
}

// ArtifactInfo describes a stored artifact. Size is filled in by the store.
type ArtifactInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mime_type"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// SpaceStore persists spaces. The orchestration core calls it after
// state-changing operations but treats failures as non-fatal; the system
// must remain fully functional with storage unavailable.
type SpaceStore interface {
	Get(id string) (*Space, error)
	Save(space *Space) error
}

// PlanStore persists at most one plan per space.
type PlanStore interface {
	Get(spaceID string) (*Plan, error)
	Save(spaceID string, plan *Plan) error
}

// MissionStore persists missions scoped by space id. Active returns the
// current non-terminal mission for a space, or nil when there is none.
type MissionStore interface {
	Get(spaceID, missionID string) (*Mission, error)
	Save(mission *Mission) error
	List(spaceID string) ([]*Mission, error)
	Active(spaceID string) (*Mission, error)
}

// ArtifactStore persists binary artifacts scoped by space id.
type ArtifactStore interface {
	Save(spaceID string, info ArtifactInfo, data []byte) (ArtifactInfo, error)
	Get(spaceID, artifactID string) ([]byte, error)
	List(spaceID string) ([]ArtifactInfo, error)
	Delete(spaceID, artifactID string) error
}
