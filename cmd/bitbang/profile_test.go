package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pins.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cs: 5\nsck: 6\nmosi: 7\nmiso: 8\ngpiochip: 0\n"), 0o644))

	params := map[string]int{}
	require.NoError(t, loadProfile(path, params))
	assert.Equal(t, map[string]int{"cs": 5, "sck": 6, "mosi": 7, "miso": 8, "gpiochip": 0}, params)
}

func TestLoadProfile_PartialKeysStayAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pins.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cs: 0\nsck: 11\n"), 0o644))

	params := map[string]int{}
	require.NoError(t, loadProfile(path, params))
	assert.Equal(t, map[string]int{"cs": 0, "sck": 11}, params)
	_, ok := params["miso"]
	assert.False(t, ok)
}

func TestLoadProfile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pins.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cs: [broken\n"), 0o644))
	assert.Error(t, loadProfile(path, map[string]int{}))
}

func TestLoadProfile_Missing(t *testing.T) {
	assert.Error(t, loadProfile("/nonexistent/pins.yaml", map[string]int{}))
}
