package flash

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptBus records command frames and answers them by opcode.
type scriptBus struct {
	frames    [][]byte
	responses map[byte][]byte
}

func newScriptBus() *scriptBus {
	return &scriptBus{responses: map[byte][]byte{
		cmdReadStatus: {0x00}, // ready immediately
	}}
}

func (b *scriptBus) Command(_ context.Context, out, in []byte) error {
	frame := append([]byte{}, out...)
	b.frames = append(b.frames, frame)
	if len(in) > 0 {
		copy(in, b.responses[out[0]])
	}
	return nil
}

func (b *scriptBus) Transfer(ctx context.Context, tx, rx []byte) error {
	return b.Command(ctx, tx, rx)
}

func (b *scriptBus) opcodes() []byte {
	ops := make([]byte, 0, len(b.frames))
	for _, f := range b.frames {
		ops = append(ops, f[0])
	}
	return ops
}

func TestDevice_ID(t *testing.T) {
	bus := newScriptBus()
	bus.responses[cmdReadID] = []byte{0xEF, 0x40, 0x18}

	id, err := New(bus).ID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ID{Manufacturer: 0xEF, MemoryType: 0x40, Capacity: 0x18}, id)
	assert.Equal(t, "ef 40 18", id.String())
}

func TestDevice_Read(t *testing.T) {
	bus := newScriptBus()
	bus.responses[cmdRead] = []byte{0xDE, 0xAD, 0xBE, 0xEF}

	data, err := New(bus).Read(context.Background(), 0x012345, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, data)
	require.Len(t, bus.frames, 1)
	assert.Equal(t, []byte{cmdRead, 0x01, 0x23, 0x45}, bus.frames[0])
}

func TestDevice_WriteSplitsPages(t *testing.T) {
	bus := newScriptBus()
	dev := New(bus)

	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i)
	}
	// address 200 leaves 56 bytes in the first page
	require.NoError(t, dev.Write(context.Background(), 200, data))

	assert.Equal(t, []byte{
		cmdWriteEnable, cmdPageProgram, cmdReadStatus,
		cmdWriteEnable, cmdPageProgram, cmdReadStatus,
	}, bus.opcodes())

	first, second := bus.frames[1], bus.frames[4]
	assert.Equal(t, []byte{cmdPageProgram, 0x00, 0x00, 200}, first[:4])
	assert.Len(t, first[4:], 56)
	assert.Equal(t, []byte{cmdPageProgram, 0x00, 0x01, 0x00}, second[:4])
	assert.Len(t, second[4:], 244)
	assert.Equal(t, data[:56], first[4:])
	assert.Equal(t, data[56:], second[4:])
}

func TestDevice_WritePollsUntilReady(t *testing.T) {
	bus := newScriptBus()
	busy := 2
	poll := &pollBus{scriptBus: bus, busy: &busy}

	require.NoError(t, New(poll).Write(context.Background(), 0, []byte{0x42}))
	// WREN, PP, then three status reads: busy, busy, ready
	assert.Equal(t, []byte{
		cmdWriteEnable, cmdPageProgram,
		cmdReadStatus, cmdReadStatus, cmdReadStatus,
	}, bus.opcodes())
}

// pollBus reports the write-in-progress bit for the first busy polls.
type pollBus struct {
	*scriptBus
	busy *int
}

func (b *pollBus) Command(ctx context.Context, out, in []byte) error {
	if out[0] == cmdReadStatus && *b.busy > 0 {
		*b.busy--
		b.frames = append(b.frames, append([]byte{}, out...))
		if len(in) > 0 {
			in[0] = statusWIP
		}
		return nil
	}
	return b.scriptBus.Command(ctx, out, in)
}

func TestDevice_EraseSector(t *testing.T) {
	bus := newScriptBus()
	require.NoError(t, New(bus).EraseSector(context.Background(), 0x001000))
	assert.Equal(t, []byte{cmdWriteEnable, cmdSectorErase, cmdReadStatus}, bus.opcodes())
	assert.Equal(t, []byte{cmdSectorErase, 0x00, 0x10, 0x00}, bus.frames[1])
}

func TestDevice_EraseChip(t *testing.T) {
	bus := newScriptBus()
	require.NoError(t, New(bus).EraseChip(context.Background()))
	assert.Equal(t, []byte{cmdWriteEnable, cmdChipErase, cmdReadStatus}, bus.opcodes())
}

func TestDevice_CustomPageSize(t *testing.T) {
	bus := newScriptBus()
	dev := New(bus, WithPageSize(16))

	require.NoError(t, dev.Write(context.Background(), 0, make([]byte, 32)))
	assert.Equal(t, []byte{
		cmdWriteEnable, cmdPageProgram, cmdReadStatus,
		cmdWriteEnable, cmdPageProgram, cmdReadStatus,
	}, bus.opcodes())
	assert.Len(t, bus.frames[1][4:], 16)
}
