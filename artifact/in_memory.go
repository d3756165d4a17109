package artifact

import (
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/missionmesh/core"
)

// stored pairs an artifact's metadata with its bytes.
type stored struct {
	info core.ArtifactInfo
	data []byte
}

// InMemoryStore is a volatile ArtifactStore keeping artifacts in a nested map
// guarded by an RWMutex, best suited for tests and single-process use. Data
// is copied on save and retrieval so callers cannot mutate internal buffers.
//
// Layout: spaceID -> artifactID -> {info, bytes}
//
// No retention limits, quotas or eviction are enforced. For durability,
// provide a store backed by object storage or a database instead.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string]stored
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string]stored)}
}

// Save stores (or overwrites) an artifact. The store fills in Size and
// CreatedAt and generates an id when the caller left it empty; the final
// metadata is returned.
func (a *InMemoryStore) Save(spaceID string, info core.ArtifactInfo, data []byte) (core.ArtifactInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if info.ID == "" {
		info.ID = core.NewID()
	}
	info.Size = len(data)
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now().UTC()
	}

	if _, exists := a.artifacts[spaceID]; !exists {
		a.artifacts[spaceID] = make(map[string]stored)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	a.artifacts[spaceID][info.ID] = stored{info: info, data: cp}

	return info, nil
}

// Get returns a copy of the stored artifact bytes or ErrNotFound.
func (a *InMemoryStore) Get(spaceID, artifactID string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.artifacts[spaceID]
	if !ok {
		return nil, ErrNotFound
	}
	st, ok := m[artifactID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(st.data))
	copy(cp, st.data)
	return cp, nil
}

// List returns the artifact metadata stored for the space, newest first.
func (a *InMemoryStore) List(spaceID string) ([]core.ArtifactInfo, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.artifacts[spaceID]
	if !ok {
		return []core.ArtifactInfo{}, nil
	}
	infos := make([]core.ArtifactInfo, 0, len(m))
	for _, st := range m {
		infos = append(infos, st.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.After(infos[j].CreatedAt) })
	return infos, nil
}

// Delete removes the artifact if present or returns ErrNotFound.
func (a *InMemoryStore) Delete(spaceID, artifactID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.artifacts[spaceID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m[artifactID]; !ok {
		return ErrNotFound
	}
	delete(m, artifactID)
	return nil
}
