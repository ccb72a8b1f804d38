package artifacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndList(t *testing.T) {
	store := NewStore()

	store.Add("s1", Artifact{Name: "shot-1.png", ContentType: "image/png", Data: []byte("abc")})
	store.Add("s1", Artifact{Name: "shot-2.png", ContentType: "image/png", Data: []byte("defg")})
	store.Add("s2", Artifact{Name: "other.png", ContentType: "image/png", Data: []byte("x")})

	list := store.List("s1")
	require.Len(t, list, 2)
	assert.Equal(t, "shot-1.png", list[0].Name)
	assert.Equal(t, 3, list[0].Size)
	assert.False(t, list[0].CapturedAt.IsZero())

	assert.Len(t, store.List("s2"), 1)
	assert.Empty(t, store.List("unknown"))
}

func TestGet(t *testing.T) {
	store := NewStore()
	store.Add("s1", Artifact{Name: "shot.png", Data: []byte("abc")})

	got, ok := store.Get("s1", "shot.png")
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), got.Data)

	_, ok = store.Get("s1", "missing.png")
	assert.False(t, ok)
}

func TestPurge(t *testing.T) {
	store := NewStore()
	store.Add("s1", Artifact{Name: "a.png"})
	store.Add("s1", Artifact{Name: "b.png"})

	assert.Equal(t, 2, store.Purge("s1"))
	assert.Empty(t, store.List("s1"))

	assert.Equal(t, 0, store.Purge("s1"), "second purge is a no-op")
	assert.Equal(t, 0, store.Purge("never-seen"))
}
