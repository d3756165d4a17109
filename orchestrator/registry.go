package orchestrator

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hupe1980/missionmesh/logging"
)

// DefaultRegistrySize bounds how many per-space orchestrators stay resident.
const DefaultRegistrySize = 128

// Factory builds the orchestrator for a space on first use (and again after
// an eviction).
type Factory func(spaceID string) *Orchestrator

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Size bounds the cache. Defaults to DefaultRegistrySize.
	Size int
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Registry hands out one orchestrator per space with an LRU-bounded
// lifecycle: creating on first request, resuming while resident, and
// silently evicting the least recently used entry when full. Evicted spaces
// lose only in-process state; anything persisted through the stores
// survives.
type Registry struct {
	mu      sync.Mutex
	cache   *lru.Cache[string, *Orchestrator]
	factory Factory
	logger  logging.Logger
}

// NewRegistry creates a registry around the given factory.
func NewRegistry(factory Factory, optFns ...func(o *RegistryOptions)) (*Registry, error) {
	opts := RegistryOptions{
		Size:   DefaultRegistrySize,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Size <= 0 {
		opts.Size = DefaultRegistrySize
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	cache, err := lru.NewWithEvict[string, *Orchestrator](opts.Size, func(spaceID string, _ *Orchestrator) {
		opts.Logger.Debug("orchestrator evicted", "space_id", spaceID)
	})
	if err != nil {
		return nil, err
	}

	return &Registry{cache: cache, factory: factory, logger: opts.Logger}, nil
}

// GetOrCreate returns the resident orchestrator for the space, creating it
// through the factory when absent or evicted.
func (r *Registry) GetOrCreate(spaceID string) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if orch, ok := r.cache.Get(spaceID); ok {
		return orch
	}

	orch := r.factory(spaceID)
	r.cache.Add(spaceID, orch)
	r.logger.Debug("orchestrator created", "space_id", spaceID)
	return orch
}

// Peek reports whether a space currently has a resident orchestrator,
// without refreshing its recency.
func (r *Registry) Peek(spaceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cache.Peek(spaceID)
	return ok
}

// Remove drops the orchestrator for a space explicitly.
func (r *Registry) Remove(spaceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(spaceID)
}

// Len returns the number of resident orchestrators.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
