package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockChip_LookupAndDrive(t *testing.T) {
	chip := NewMockChip()
	open := chip.Opener()
	c, err := open(2)
	require.NoError(t, err)
	assert.Equal(t, 2, chip.Index)

	lines, err := c.Lines(5, 6)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	require.NoError(t, lines[0].RequestOutput("test", 1))
	assert.Equal(t, 1, chip.Line(5).Level)
	assert.Equal(t, "output", chip.Line(5).Direction)
	assert.Equal(t, "test", chip.Line(5).Consumer)

	require.NoError(t, lines[0].SetValue(0))
	v, err := lines[0].Value()
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	assert.Equal(t, []string{
		"open gpiochip2",
		"lookup [5 6]",
		"request-output 5 init 1",
		"set 5=0",
		"get 5",
	}, chip.Calls)
}

func TestMockChip_FailureSwitches(t *testing.T) {
	chip := NewMockChip()
	chip.FailLookup = true
	_, err := chip.Lines(1)
	assert.Error(t, err)

	chip.FailLookup = false
	lines, err := chip.Lines(1)
	require.NoError(t, err)
	chip.Line(1).FailRequest = true
	assert.Error(t, lines[0].RequestInput("test"))
	assert.False(t, chip.Line(1).Requested)

	chip.Line(1).FailRead = true
	v, err := lines[0].Value()
	assert.Error(t, err)
	assert.Equal(t, -1, v)
}

func TestRelease_Bulk(t *testing.T) {
	chip := NewMockChip()
	lines, err := chip.Lines(3, 4)
	require.NoError(t, err)
	require.NoError(t, lines[0].RequestOutput("test", 1))
	require.NoError(t, lines[1].RequestInput("test"))

	require.NoError(t, Release(lines...))
	assert.Equal(t, 1, chip.Line(3).Released)
	assert.Equal(t, 1, chip.Line(4).Released)
}

func TestRelease_EmptySet(t *testing.T) {
	assert.NoError(t, Release())
	assert.NoError(t, Release(nil))
}

func TestRelease_CollectsErrors(t *testing.T) {
	chip := NewMockChip()
	lines, err := chip.Lines(1, 2)
	require.NoError(t, err)
	chip.Line(1).FailRelease = true

	err = Release(lines...)
	assert.Error(t, err)
	// the failing line does not stop the second release
	assert.Equal(t, 1, chip.Line(2).Released)
}
