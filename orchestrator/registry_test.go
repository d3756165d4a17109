package orchestrator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/missionmesh/model"
)

func countingFactory(created *int) Factory {
	return func(spaceID string) *Orchestrator {
		*created++
		return New(spaceID, model.NewMockModel("mock"))
	}
}

func TestRegistry_GetOrCreateResumesExisting(t *testing.T) {
	created := 0
	reg, err := NewRegistry(countingFactory(&created))
	require.NoError(t, err)

	first := reg.GetOrCreate("space-1")
	second := reg.GetOrCreate("space-1")

	assert.Same(t, first, second)
	assert.Equal(t, 1, created)
	assert.Equal(t, "space-1", first.SpaceID())
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	created := 0
	reg, err := NewRegistry(countingFactory(&created), func(o *RegistryOptions) {
		o.Size = 2
	})
	require.NoError(t, err)

	reg.GetOrCreate("space-1")
	reg.GetOrCreate("space-2")
	reg.GetOrCreate("space-1") // refresh space-1
	reg.GetOrCreate("space-3") // evicts space-2

	assert.Equal(t, 2, reg.Len())
	assert.True(t, reg.Peek("space-1"))
	assert.False(t, reg.Peek("space-2"))
	assert.True(t, reg.Peek("space-3"))

	// A fresh orchestrator is built for the evicted space.
	reg.GetOrCreate("space-2")
	assert.Equal(t, 4, created)
}

func TestRegistry_Remove(t *testing.T) {
	created := 0
	reg, err := NewRegistry(countingFactory(&created))
	require.NoError(t, err)

	reg.GetOrCreate("space-1")
	reg.Remove("space-1")

	assert.False(t, reg.Peek("space-1"))
	assert.Equal(t, 0, reg.Len())

	reg.GetOrCreate("space-1")
	assert.Equal(t, 2, created)
}

func TestRegistry_IsolatesSpaces(t *testing.T) {
	created := 0
	reg, err := NewRegistry(countingFactory(&created))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		reg.GetOrCreate(fmt.Sprintf("space-%d", i))
	}

	assert.Equal(t, 5, reg.Len())
	assert.Equal(t, 5, created)
}
