package spi

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopbackMaster wires MISO to MOSI and records line transitions.
type loopbackMaster struct {
	cs, sck, mosi int
	csEdges       []int
	failSCKAfter  int // fail the n-th SetSCK call, 0 disables
	sckCalls      int
}

func newLoopbackMaster() *loopbackMaster {
	return &loopbackMaster{cs: 1, sck: 1, mosi: 1}
}

func (m *loopbackMaster) SetCS(level int) error {
	if level != m.cs {
		m.csEdges = append(m.csEdges, level)
	}
	m.cs = level
	return nil
}

func (m *loopbackMaster) SetSCK(level int) error {
	m.sckCalls++
	if m.failSCKAfter > 0 && m.sckCalls >= m.failSCKAfter {
		return fmt.Errorf("sck stuck")
	}
	m.sck = level
	return nil
}

func (m *loopbackMaster) SetMOSI(level int) error {
	m.mosi = level
	return nil
}

func (m *loopbackMaster) GetMISO() (int, error) {
	return m.mosi, nil
}

// deviceMaster replays a programmed bit stream on MISO, most significant
// bit first, the way a flash chip answers a command.
type deviceMaster struct {
	loopbackMaster
	stream []byte
	bit    int
}

func (m *deviceMaster) GetMISO() (int, error) {
	i := m.bit / 8
	if i >= len(m.stream) {
		return 0, nil
	}
	v := int(m.stream[i]>>(7-uint(m.bit%8))) & 1
	m.bit++
	return v, nil
}

func TestNewEngine_RequiresMaster(t *testing.T) {
	_, err := NewEngine(nil)
	assert.ErrorIs(t, err, ErrNoMaster)
}

func TestNewEngine_DrivesBusIdle(t *testing.T) {
	m := newLoopbackMaster()
	_, err := NewEngine(m)
	require.NoError(t, err)
	assert.Equal(t, 0, m.sck)
	assert.Equal(t, 1, m.cs)
}

func TestEngine_TransferLoopback(t *testing.T) {
	m := newLoopbackMaster()
	e, err := NewEngine(m)
	require.NoError(t, err)

	tx := []byte{0xA5, 0x3C, 0x00, 0xFF}
	rx := make([]byte, len(tx))
	require.NoError(t, e.Transfer(context.Background(), tx, rx))
	assert.Equal(t, tx, rx)

	// exactly one select/deselect pair around the frame
	assert.Equal(t, []int{0, 1}, m.csEdges)
	assert.Equal(t, 0, m.sck, "clock idles low after the frame")
}

func TestEngine_TransferLengthMismatch(t *testing.T) {
	m := newLoopbackMaster()
	e, err := NewEngine(m)
	require.NoError(t, err)
	assert.Error(t, e.Transfer(context.Background(), []byte{1, 2}, make([]byte, 3)))
}

func TestEngine_CommandReadsResponse(t *testing.T) {
	m := &deviceMaster{loopbackMaster: *newLoopbackMaster()}
	e, err := NewEngine(m)
	require.NoError(t, err)

	// one command byte clocks through first, then the three id bytes
	m.stream = []byte{0x00, 0xEF, 0x40, 0x18}
	in := make([]byte, 3)
	require.NoError(t, e.Command(context.Background(), []byte{0x9F}, in))
	assert.Equal(t, []byte{0xEF, 0x40, 0x18}, in)
	assert.Equal(t, []int{0, 1}, m.csEdges)
}

func TestEngine_AbortRaisesChipSelect(t *testing.T) {
	m := newLoopbackMaster()
	e, err := NewEngine(m)
	require.NoError(t, err)

	m.failSCKAfter = m.sckCalls + 5
	err = e.Transfer(context.Background(), []byte{0xFF, 0xFF}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, m.cs, "an aborted transfer must deselect the target")
}

func TestEngine_ContextCancelled(t *testing.T) {
	m := newLoopbackMaster()
	e, err := NewEngine(m)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Transfer(ctx, []byte{0x01}, nil), context.Canceled)
}

func TestEngine_EmptyTransfer(t *testing.T) {
	m := newLoopbackMaster()
	e, err := NewEngine(m)
	require.NoError(t, err)
	require.NoError(t, e.Transfer(context.Background(), nil, nil))
	assert.Empty(t, m.csEdges, "no chip select activity without data")
}
