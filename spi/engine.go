// Package spi implements a generic bit-banged SPI master engine and the
// GPIO-backed backend that feeds it its four signal lines.
package spi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mklimuk/bitbang"
)

var ErrNoMaster = errors.New("no SPI master to bind")

var _ bitbang.SPIBus = &Engine{}

// Engine shifts bytes over a bitbang.SPIMaster: SPI mode 0, most
// significant bit first, data sampled on the rising clock edge.
type Engine struct {
	m    bitbang.SPIMaster
	half time.Duration
}

type EngineOption func(*Engine) error

// WithHalfPeriod sets the delay between clock edges. Zero clocks as fast
// as the underlying controller allows.
func WithHalfPeriod(d time.Duration) EngineOption {
	return func(e *Engine) error {
		if d < 0 {
			return fmt.Errorf("negative half period %s", d)
		}
		e.half = d
		return nil
	}
}

// NewEngine binds the capability set and drives the bus to its idle
// state: clock low, chip select high.
func NewEngine(m bitbang.SPIMaster, opts ...EngineOption) (*Engine, error) {
	if m == nil {
		return nil, ErrNoMaster
	}
	e := &Engine{m: m}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if err := m.SetSCK(0); err != nil {
		return nil, fmt.Errorf("could not drive clock to idle: %w", err)
	}
	if err := m.SetCS(1); err != nil {
		return nil, fmt.Errorf("could not deassert chip select: %w", err)
	}
	return e, nil
}

// Transfer exchanges tx and rx full duplex within one chip-select frame.
// Either slice may be nil; when both are set they must be the same
// length.
func (e *Engine) Transfer(ctx context.Context, tx, rx []byte) error {
	if tx != nil && rx != nil && len(tx) != len(rx) {
		return fmt.Errorf("tx/rx length mismatch: %d != %d", len(tx), len(rx))
	}
	n := len(tx)
	if n == 0 {
		n = len(rx)
	}
	if n == 0 {
		return nil
	}
	return e.frame(func() error {
		return e.clock(ctx, tx, rx, n)
	})
}

// Command writes out and then clocks len(in) response bytes in, all
// within one chip-select frame.
func (e *Engine) Command(ctx context.Context, out, in []byte) error {
	return e.frame(func() error {
		if err := e.clock(ctx, out, nil, len(out)); err != nil {
			return err
		}
		return e.clock(ctx, nil, in, len(in))
	})
}

// frame brackets fn with the chip-select assertion. The line is raised
// again even when fn fails, so an aborted transfer does not leave the
// target selected.
func (e *Engine) frame(fn func() error) error {
	if err := e.m.SetCS(0); err != nil {
		return fmt.Errorf("could not assert chip select: %w", err)
	}
	err := fn()
	if cerr := e.m.SetCS(1); cerr != nil && err == nil {
		err = fmt.Errorf("could not deassert chip select: %w", cerr)
	}
	return err
}

func (e *Engine) clock(ctx context.Context, tx, rx []byte, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var out byte
		if tx != nil {
			out = tx[i]
		}
		in, err := e.transferByte(out)
		if err != nil {
			return fmt.Errorf("transfer aborted at byte %d: %w", i, err)
		}
		if rx != nil {
			rx[i] = in
		}
	}
	return nil
}

// transferByte clocks one byte out on MOSI while sampling MISO on every
// rising edge.
func (e *Engine) transferByte(out byte) (byte, error) {
	var in byte
	for bit := 7; bit >= 0; bit-- {
		if err := e.m.SetMOSI(int(out>>uint(bit)) & 1); err != nil {
			return 0, err
		}
		e.delay()
		if err := e.m.SetSCK(1); err != nil {
			return 0, err
		}
		v, err := e.m.GetMISO()
		if err != nil {
			return 0, err
		}
		in = in<<1 | byte(v&1)
		e.delay()
		if err := e.m.SetSCK(0); err != nil {
			return 0, err
		}
	}
	return in, nil
}

func (e *Engine) delay() {
	if e.half > 0 {
		time.Sleep(e.half)
	}
}
