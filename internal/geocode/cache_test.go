package geocode_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afisha/internal/geocode"
	"afisha/internal/model"
)

var testRegion = geocode.Region{MinLat: 54, MaxLat: 55, MinLon: 19, MaxLon: 21}

func newTestCache(t *testing.T) (*geocode.Cache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geocode_cache.json")
	c := geocode.NewCache(path, testRegion)
	c.Load()
	return c, path
}

func TestCache_MissingFileStartsEmpty(t *testing.T) {
	c, _ := newTestCache(t)
	assert.Equal(t, 0, c.Len())
}

func TestCache_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocode_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c := geocode.NewCache(path, testRegion)
	c.Load()
	assert.Equal(t, 0, c.Len())
}

func TestCache_RoundTrip(t *testing.T) {
	c, path := newTestCache(t)
	c.Put("ул. Мира, 5", &model.Coordinates{Lat: 54.71, Lon: 20.5})
	c.Put("неизвестный адрес", nil)
	require.NoError(t, c.Save(false))

	reloaded := geocode.NewCache(path, testRegion)
	reloaded.Load()
	require.Equal(t, 2, reloaded.Len())

	coords, attempted := reloaded.Lookup("ул. Мира, 5")
	require.True(t, attempted)
	require.NotNil(t, coords)
	assert.InDelta(t, 54.71, coords.Lat, 1e-9)
	assert.InDelta(t, 20.5, coords.Lon, 1e-9)

	coords, attempted = reloaded.Lookup("неизвестный адрес")
	assert.True(t, attempted)
	assert.Nil(t, coords)
}

func TestCache_SkipsSaveWhenUnchanged(t *testing.T) {
	c, path := newTestCache(t)
	require.NoError(t, c.Save(false))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "unchanged cache must not be written")
}

func TestCache_ForceSaveWritesAnyway(t *testing.T) {
	c, path := newTestCache(t)
	require.NoError(t, c.Save(true))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestCache_SaveResetsDirtyState(t *testing.T) {
	c, path := newTestCache(t)
	c.Put("адрес", &model.Coordinates{Lat: 54.5, Lon: 20.0})
	require.NoError(t, c.Save(false))

	info1, err := os.Stat(path)
	require.NoError(t, err)

	// Second save with no changes must not rewrite the file.
	require.NoError(t, os.Remove(path))
	require.NoError(t, c.Save(false))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_ = info1
}

func TestCache_OutOfRegionEntryEvicted(t *testing.T) {
	c, _ := newTestCache(t)
	// Somewhere far outside the service region.
	c.Put("плохой адрес", &model.Coordinates{Lat: 59.93, Lon: 30.33})

	coords, attempted := c.Lookup("плохой адрес")
	assert.Nil(t, coords)
	assert.False(t, attempted, "evicted entry must look never-attempted")

	// The eviction removed the entry entirely.
	assert.Equal(t, 0, c.Len())
}

func TestCache_PartialEntryDiscardedOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocode_cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"адрес": [54.7, null]}`), 0o644))

	c := geocode.NewCache(path, testRegion)
	c.Load()
	assert.Equal(t, 0, c.Len())
}

func TestCache_PutOverwrites(t *testing.T) {
	c, _ := newTestCache(t)
	c.Put("адрес", &model.Coordinates{Lat: 54.1, Lon: 20.1})
	c.Put("адрес", nil)

	coords, attempted := c.Lookup("адрес")
	assert.True(t, attempted)
	assert.Nil(t, coords)
}
