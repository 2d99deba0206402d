package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdaptor implements DigitalPins over a plain map.
type fakeAdaptor struct {
	levels map[string]byte
}

func (f *fakeAdaptor) DigitalWrite(pin string, level byte) error {
	f.levels[pin] = level
	return nil
}

func (f *fakeAdaptor) DigitalRead(pin string) (int, error) {
	return int(f.levels[pin]), nil
}

func TestDigitalChip_DrivesAdaptorPins(t *testing.T) {
	adaptor := &fakeAdaptor{levels: map[string]byte{}}
	chip := NewDigitalChip(adaptor)

	lines, err := chip.Lines(7, 8)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, 7, lines[0].Offset())

	require.NoError(t, lines[0].RequestOutput("test", 1))
	assert.Equal(t, byte(1), adaptor.levels["7"])

	require.NoError(t, lines[0].SetValue(0))
	assert.Equal(t, byte(0), adaptor.levels["7"])

	adaptor.levels["8"] = 1
	require.NoError(t, lines[1].RequestInput("test"))
	v, err := lines[1].Value()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	assert.NoError(t, Release(lines...))
	assert.NoError(t, chip.Close())
}
