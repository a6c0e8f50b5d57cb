package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Interface {
	t.Helper()
	store := New(":memory:")
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBookmarkRoundTrip(t *testing.T) {
	store := newTestStore(t)

	b := &Bookmark{
		NormalizedPath: "/music/albums",
		Token:          []byte("svbm:v1:1:/music/albums"),
		Active:         true,
	}
	require.NoError(t, store.SaveBookmark(b))

	got, err := store.GetBookmark("/music/albums")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b.Token, got.Token)
	assert.True(t, got.Active)
}

func TestBookmarkOverwritePreservesKey(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveBookmark(&Bookmark{
		NormalizedPath: "/music",
		Token:          []byte("old"),
	}))
	require.NoError(t, store.SaveBookmark(&Bookmark{
		NormalizedPath: "/music",
		Token:          []byte("fresh"),
		Active:         true,
	}))

	all, err := store.ListBookmarks()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []byte("fresh"), all[0].Token)
	assert.True(t, all[0].Active)
}

func TestBookmarkMissingAndDelete(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetBookmark("/nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting a missing entry is a no-op.
	require.NoError(t, store.DeleteBookmark("/nope"))

	require.NoError(t, store.SaveBookmark(&Bookmark{NormalizedPath: "/a", Token: []byte("t")}))
	require.NoError(t, store.DeleteBookmark("/a"))
	got, err = store.GetBookmark("/a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPresetRoundTrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SavePreset(&EQPreset{Name: "bass boost", Gains: "[6,4,0,0,0]"}))
	require.NoError(t, store.SavePreset(&EQPreset{Name: "flat", Gains: "[0,0,0,0,0]"}))

	got, err := store.GetPreset("bass boost")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "[6,4,0,0,0]", got.Gains)

	all, err := store.ListPresets()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "bass boost", all[0].Name)

	require.NoError(t, store.DeletePreset("flat"))
	missing, err := store.GetPreset("flat")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
