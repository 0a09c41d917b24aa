package clientdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUIStateStore_StringRoundTrip(t *testing.T) {
	store := NewUIStateStore(setupTestDB(t))

	_, ok, err := store.GetString("theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetString("theme", "dark"))
	require.NoError(t, store.SetString("theme", "light"))

	value, ok, err := store.GetString("theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", value)

	require.NoError(t, store.Delete("theme"))
	_, ok, err = store.GetString("theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUIStateStore_Int64(t *testing.T) {
	store := NewUIStateStore(setupTestDB(t))

	require.NoError(t, store.SetInt64("dismissed_at", 1760000000000))

	value, ok, err := store.GetInt64("dismissed_at")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1760000000000), value)

	require.NoError(t, store.SetString("broken", "abc"))
	_, _, err = store.GetInt64("broken")
	assert.Error(t, err)

	_, ok, err = store.GetInt64("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
