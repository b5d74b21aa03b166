package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLocator(t *testing.T) {
	l := DefaultLocator()

	assert.Equal(t, Location{Lat: 28.6139, Lon: 77.2090}, l.Locate("DELHI_01"))
	assert.True(t, l.Known("BLR_01"))
	assert.False(t, l.Known("GHOST_99"))
	assert.Equal(t, DefaultLocation, l.Locate("GHOST_99"))
}

func TestNewStaticLocator_CopiesTable(t *testing.T) {
	table := map[string]Location{"U1": {Lat: 1, Lon: 2}}
	l := NewStaticLocator(table, Location{})
	table["U1"] = Location{Lat: 9, Lon: 9}

	assert.Equal(t, Location{Lat: 1, Lon: 2}, l.Locate("U1"))
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "units.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadLocatorFile(t *testing.T) {
	path := writeFile(t, `
default: {lat: 10.5, lon: 76.2}
units:
  DRAIN_D04: {lat: 19.1, lon: 72.9}
  DELHI_01: {lat: 28.0, lon: 77.0}
`)

	l, err := LoadLocatorFile(path)
	require.NoError(t, err)

	assert.Equal(t, Location{Lat: 19.1, Lon: 72.9}, l.Locate("DRAIN_D04"))
	assert.Equal(t, Location{Lat: 28.0, Lon: 77.0}, l.Locate("DELHI_01"))
	assert.Equal(t, Location{Lat: 12.9716, Lon: 77.5946}, l.Locate("BLR_01"))
	assert.Equal(t, Location{Lat: 10.5, Lon: 76.2}, l.Locate("GHOST_99"))
}

func TestLoadLocatorFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadLocatorFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := LoadLocatorFile(writeFile(t, "units: [1, 2"))
		assert.Error(t, err)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := LoadLocatorFile(writeFile(t, "units:\n  BAD: {lat: 91, lon: 0}\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BAD")
	})
}
