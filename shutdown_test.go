package bitbang

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRegistry_RunsInReverseOrder(t *testing.T) {
	reg := NewShutdownRegistry()
	var order []string
	require.NoError(t, reg.Register(func() error {
		order = append(order, "first")
		return nil
	}))
	require.NoError(t, reg.Register(func() error {
		order = append(order, "second")
		return nil
	}))
	require.NoError(t, reg.RunAll())
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestShutdownRegistry_RunsAtMostOnce(t *testing.T) {
	reg := NewShutdownRegistry()
	runs := 0
	require.NoError(t, reg.Register(func() error {
		runs++
		return nil
	}))
	require.NoError(t, reg.RunAll())
	require.NoError(t, reg.RunAll())
	assert.Equal(t, 1, runs)
}

func TestShutdownRegistry_RegisterAfterRun(t *testing.T) {
	reg := NewShutdownRegistry()
	require.NoError(t, reg.RunAll())
	err := reg.Register(func() error { return nil })
	assert.ErrorIs(t, err, ErrRegistryClosed)
}

func TestShutdownRegistry_NilCleanup(t *testing.T) {
	reg := NewShutdownRegistry()
	assert.Error(t, reg.Register(nil))
}

func TestShutdownRegistry_CollectsErrors(t *testing.T) {
	reg := NewShutdownRegistry()
	boom := fmt.Errorf("release failed")
	require.NoError(t, reg.Register(func() error { return boom }))
	require.NoError(t, reg.Register(func() error { return nil }))
	err := reg.RunAll()
	assert.ErrorIs(t, err, boom)
}
