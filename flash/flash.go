// Package flash talks to 25-series SPI NOR flash and EEPROM chips over a
// byte-level SPI bus.
//
// The instruction set is the common denominator of the JEDEC SPI flash
// command table: READ/PAGE PROGRAM with 24-bit addresses, WREN latching
// before every program or erase, and STATUS polling of the
// write-in-progress bit between operations.
package flash

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/bitbang"
)

const (
	cmdPageProgram = 0x02
	cmdRead        = 0x03
	cmdReadStatus  = 0x05
	cmdWriteEnable = 0x06
	cmdSectorErase = 0x20
	cmdChipErase   = 0xC7
	cmdReadID      = 0x9F

	statusWIP = 0x01 // STATUS bit 0 - write in progress
)

// ID is the JEDEC identification tuple returned by RDID.
type ID struct {
	Manufacturer byte
	MemoryType   byte
	Capacity     byte
}

func (id ID) String() string {
	return fmt.Sprintf("%02x %02x %02x", id.Manufacturer, id.MemoryType, id.Capacity)
}

// Device is one flash or EEPROM chip behind an SPI bus.
type Device struct {
	bus       bitbang.SPIBus
	pageSize  int
	writeWait time.Duration
	eraseWait time.Duration
}

type Option func(*Device)

// WithPageSize overrides the 256 byte default program page.
func WithPageSize(n int) Option {
	return func(d *Device) { d.pageSize = n }
}

// WithWriteTimeout bounds the STATUS poll after each page program.
func WithWriteTimeout(t time.Duration) Option {
	return func(d *Device) { d.writeWait = t }
}

// WithEraseTimeout bounds the STATUS poll after an erase.
func WithEraseTimeout(t time.Duration) Option {
	return func(d *Device) { d.eraseWait = t }
}

func New(bus bitbang.SPIBus, opts ...Option) *Device {
	d := &Device{
		bus:       bus,
		pageSize:  256,
		writeWait: 10 * time.Millisecond,
		eraseWait: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ID reads the JEDEC identification of the chip.
func (d *Device) ID(ctx context.Context) (ID, error) {
	var id [3]byte
	if err := d.bus.Command(ctx, []byte{cmdReadID}, id[:]); err != nil {
		return ID{}, fmt.Errorf("could not read JEDEC id: %w", err)
	}
	return ID{Manufacturer: id[0], MemoryType: id[1], Capacity: id[2]}, nil
}

// Read returns length bytes starting at address.
func (d *Device) Read(ctx context.Context, address uint32, length int) ([]byte, error) {
	buf := make([]byte, length)
	if err := d.bus.Command(ctx, addressed(cmdRead, address), buf); err != nil {
		return nil, fmt.Errorf("could not read %d bytes at %#x: %w", length, address, err)
	}
	return buf, nil
}

// Write programs data starting at address. Data is split into page sized
// chunks, as the chip requires, and the STATUS register is polled until
// each internal write cycle completes.
func (d *Device) Write(ctx context.Context, address uint32, data []byte) error {
	offset := 0
	for offset < len(data) {
		space := d.pageSize - int(address)%d.pageSize
		chunk := data[offset:]
		if len(chunk) > space {
			chunk = chunk[:space]
		}
		if err := d.pageWrite(ctx, address, chunk); err != nil {
			return err
		}
		offset += len(chunk)
		address += uint32(len(chunk))
	}
	return nil
}

// EraseSector erases the sector containing address.
func (d *Device) EraseSector(ctx context.Context, address uint32) error {
	if err := d.writeEnable(ctx); err != nil {
		return err
	}
	if err := d.bus.Command(ctx, addressed(cmdSectorErase, address), nil); err != nil {
		return fmt.Errorf("could not erase sector at %#x: %w", address, err)
	}
	return d.waitUntilReady(ctx, d.eraseWait)
}

// EraseChip erases the whole chip.
func (d *Device) EraseChip(ctx context.Context) error {
	if err := d.writeEnable(ctx); err != nil {
		return err
	}
	if err := d.bus.Command(ctx, []byte{cmdChipErase}, nil); err != nil {
		return fmt.Errorf("could not erase chip: %w", err)
	}
	return d.waitUntilReady(ctx, d.eraseWait)
}

// Status reads the STATUS register.
func (d *Device) Status(ctx context.Context) (byte, error) {
	var st [1]byte
	if err := d.bus.Command(ctx, []byte{cmdReadStatus}, st[:]); err != nil {
		return 0, fmt.Errorf("could not read status: %w", err)
	}
	return st[0], nil
}

func (d *Device) pageWrite(ctx context.Context, address uint32, data []byte) error {
	if err := d.writeEnable(ctx); err != nil {
		return err
	}
	out := append(addressed(cmdPageProgram, address), data...)
	if err := d.bus.Command(ctx, out, nil); err != nil {
		return fmt.Errorf("could not program page at %#x: %w", address, err)
	}
	return d.waitUntilReady(ctx, d.writeWait)
}

func (d *Device) writeEnable(ctx context.Context) error {
	if err := d.bus.Command(ctx, []byte{cmdWriteEnable}, nil); err != nil {
		return fmt.Errorf("could not set write enable latch: %w", err)
	}
	return nil
}

func (d *Device) waitUntilReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		st, err := d.Status(ctx)
		if err != nil {
			return err
		}
		if st&statusWIP == 0 {
			return nil
		}
		time.Sleep(500 * time.Microsecond)
	}
	return fmt.Errorf("timeout waiting for write completion")
}

// addressed builds an opcode followed by a 24-bit big-endian address.
func addressed(cmd byte, address uint32) []byte {
	return []byte{cmd, byte(address >> 16), byte(address >> 8), byte(address)}
}
