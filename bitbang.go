// Package bitbang drives SPI flash and EEPROM chips over raw GPIO lines
// when the only wiring to the target is a handful of general-purpose pins.
package bitbang

import "context"

// SPIMaster is the capability set a backend exposes to the generic
// bit-bang engine: three driven lines and one sampled line. A master is
// not safe for concurrent use; the engine is the single caller.
type SPIMaster interface {
	SetCS(level int) error
	SetSCK(level int) error
	SetMOSI(level int) error
	// GetMISO returns the sampled level of the data-in line, or -1
	// together with an error when the read fails so a failed sample can
	// never be mistaken for a logic level.
	GetMISO() (int, error)
}

// SPIBus is a byte-level SPI transport.
type SPIBus interface {
	// Transfer exchanges tx and rx full duplex within one chip-select
	// frame. Either slice may be nil.
	Transfer(ctx context.Context, tx, rx []byte) error
	// Command writes out and then clocks len(in) response bytes in, all
	// within one chip-select frame.
	Command(ctx context.Context, out, in []byte) error
}
