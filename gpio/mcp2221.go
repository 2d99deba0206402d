package gpio

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/bitbang/cmd/bitbang/console"
)

// USB identification of the MCP2221/MCP2221A adapter.
const (
	MCP2221VendorID  = 0x04D8
	MCP2221ProductID = 0x00DD
)

// HID command codes used by the MCP2221 protocol.
const (
	mcpSetGPIOValues = 0x50
	mcpGetGPIOValues = 0x51
	mcpGetParameters = 0xB0
	mcpSetParameters = 0xB1
)

type mcpMode byte

const (
	mcpModeOut mcpMode = 0b00000000
	mcpModeIn  mcpMode = 0b00001000
)

// pin designation 0 puts a GP pin in plain GPIO operation
const mcpDesignationGPIO = 0x00

const mcpPinCount = 4

// OpenMCP2221 opens the index-th MCP2221 adapter found on the USB bus
// and exposes its four GP pins as a controller.
func OpenMCP2221(index int) (Chip, error) {
	devs := hid.Enumerate(MCP2221VendorID, MCP2221ProductID)
	if len(devs) == 0 {
		return nil, fmt.Errorf("no MCP2221 adapter found")
	}
	if index < 0 || index >= len(devs) {
		return nil, fmt.Errorf("no MCP2221 adapter with index %d (%d found)", index, len(devs))
	}
	dev, err := devs[index].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening MCP2221: %w", err)
	}
	return &mcp2221Chip{
		dev:          dev,
		request:      make([]byte, 64),
		response:     make([]byte, 64),
		responseWait: 50 * time.Millisecond,
	}, nil
}

type mcp2221Chip struct {
	mx           sync.Mutex
	dev          *hid.Device
	request      []byte
	response     []byte
	responseWait time.Duration
}

func (c *mcp2221Chip) Lines(offsets ...int) ([]Line, error) {
	lines := make([]Line, 0, len(offsets))
	for _, offset := range offsets {
		if offset < 0 || offset >= mcpPinCount {
			return nil, fmt.Errorf("MCP2221 has pins GP0-GP3, no pin %d", offset)
		}
		lines = append(lines, &mcp2221Line{chip: c, offset: offset})
	}
	return lines, nil
}

func (c *mcp2221Chip) Close() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.dev == nil {
		return nil
	}
	err := c.dev.Close()
	c.dev = nil
	return err
}

// configurePin switches one GP pin to plain GPIO operation with the given
// direction, preserving the settings of the other three pins.
func (c *mcp2221Chip) configurePin(pin int, mode mcpMode) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.resetBuffers()
	c.request[0] = mcpGetParameters
	c.request[1] = 0x01
	if err := c.send(true); err != nil {
		return fmt.Errorf("get GP parameters command write failed: %w", err)
	}
	var settings [mcpPinCount]byte
	copy(settings[:], c.response[4:4+mcpPinCount])
	settings[pin] = mcpDesignationGPIO | byte(mode)

	c.resetBuffers()
	c.request[0] = mcpSetParameters
	c.request[1] = 0x01
	copy(c.request[2:], settings[:])
	if err := c.send(true); err != nil {
		return fmt.Errorf("set GP parameters command write failed: %w", err)
	}
	if c.response[1] == 0x01 {
		return fmt.Errorf("adapter rejected GP parameters for pin %d", pin)
	}
	return nil
}

func (c *mcp2221Chip) setPin(pin, level int) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.resetBuffers()
	c.request[0] = mcpSetGPIOValues
	c.request[2+4*pin] = 0x01 // alter output value
	if level != 0 {
		c.request[3+4*pin] = 0x01
	}
	if err := c.send(true); err != nil {
		return fmt.Errorf("set GPIO values command write failed: %w", err)
	}
	return nil
}

func (c *mcp2221Chip) readPin(pin int) (int, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.resetBuffers()
	c.request[0] = mcpGetGPIOValues
	if err := c.send(true); err != nil {
		return -1, fmt.Errorf("read GPIO values command write failed: %w", err)
	}
	v := c.response[2+2*pin]
	if v == 0xEE {
		return -1, fmt.Errorf("pin %d is not in GPIO operation", pin)
	}
	return int(v), nil
}

func (c *mcp2221Chip) send(response bool) error {
	if c.dev == nil {
		return fmt.Errorf("adapter closed")
	}
	if console.Trace {
		console.Printf("sending message to adapter:\n%s\n", hex.Dump(c.request))
	}
	n, err := c.dev.Write(c.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short write: %d", n)
	}
	if !response {
		return nil
	}
	time.Sleep(c.responseWait)
	n, err = c.dev.Read(c.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short read: %d", n)
	}
	if console.Trace {
		console.Printf("read message from adapter:\n%s\n", hex.Dump(c.response))
	}
	return nil
}

func (c *mcp2221Chip) resetBuffers() {
	for i := range c.request {
		c.request[i] = 0x00
	}
	for i := range c.response {
		c.response[i] = 0x00
	}
}

type mcp2221Line struct {
	chip      *mcp2221Chip
	offset    int
	requested bool
}

func (l *mcp2221Line) Offset() int { return l.offset }

func (l *mcp2221Line) RequestOutput(consumer string, initial int) error {
	if err := l.chip.configurePin(l.offset, mcpModeOut); err != nil {
		return err
	}
	if err := l.chip.setPin(l.offset, initial); err != nil {
		return err
	}
	l.requested = true
	return nil
}

func (l *mcp2221Line) RequestInput(consumer string) error {
	if err := l.chip.configurePin(l.offset, mcpModeIn); err != nil {
		return err
	}
	l.requested = true
	return nil
}

func (l *mcp2221Line) SetValue(level int) error {
	return l.chip.setPin(l.offset, level)
}

func (l *mcp2221Line) Value() (int, error) {
	return l.chip.readPin(l.offset)
}

func (l *mcp2221Line) Release() error {
	// the adapter holds no per-consumer reservation to undo
	l.requested = false
	return nil
}
