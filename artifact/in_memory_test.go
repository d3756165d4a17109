package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/missionmesh/core"
)

func TestInMemoryStore_RoundTrip(t *testing.T) {
	store := NewInMemoryStore()

	info, err := store.Save("space-1", core.ArtifactInfo{Name: "report.md", MimeType: "text/markdown"}, []byte("# Findings"))
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, len("# Findings"), info.Size)
	assert.False(t, info.CreatedAt.IsZero())

	data, err := store.Get("space-1", info.ID)
	require.NoError(t, err)
	assert.Equal(t, "# Findings", string(data))

	infos, err := store.List("space-1")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "report.md", infos[0].Name)

	require.NoError(t, store.Delete("space-1", info.ID))
	_, err = store.Get("space-1", info.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_SpaceIsolation(t *testing.T) {
	store := NewInMemoryStore()

	info, err := store.Save("space-a", core.ArtifactInfo{Name: "x"}, []byte("a"))
	require.NoError(t, err)

	_, err = store.Get("space-b", info.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	infos, err := store.List("space-b")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestInMemoryStore_CopiesData(t *testing.T) {
	store := NewInMemoryStore()

	raw := []byte("original")
	info, err := store.Save("s", core.ArtifactInfo{Name: "buf"}, raw)
	require.NoError(t, err)

	raw[0] = 'X'
	data, err := store.Get("s", info.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestInMemoryStore_DeleteMissing(t *testing.T) {
	store := NewInMemoryStore()
	assert.ErrorIs(t, store.Delete("s", "nope"), ErrNotFound)
}
