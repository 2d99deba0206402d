package spi

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mklimuk/bitbang"
	"github.com/mklimuk/bitbang/gpio"
)

// consumer tag attached to requested lines, visible in gpioinfo
const consumer = "bitbang"

// the five required parameters, in the positional order of the line set:
// chip select, clock, data out, data in, controller index
var paramNames = [...]string{"cs", "sck", "mosi", "miso", "gpiochip"}

var ErrMissingParam = errors.New("missing required parameter")

var _ bitbang.SPIMaster = &GPIOBackend{}

// GPIOBackend drives the four SPI signals over lines of a single GPIO
// controller. It owns the controller handle and the reserved lines for
// its whole lifetime and releases both exactly once.
type GPIOBackend struct {
	chip      gpio.Chip
	lines     []gpio.Line // bulk lookup result, cs/sck/mosi/miso order
	requested []gpio.Line // lines actually reserved, released together

	cs   gpio.Line
	sck  gpio.Line
	mosi gpio.Line
	miso gpio.Line

	released bool
}

// Init brings up a GPIO bit-banged SPI bus. It opens the controller
// named by params["gpiochip"], looks up the cs/sck/mosi/miso line
// offsets in one bulk call, reserves the three outputs driven high and
// the input, registers the release with shutdowns and binds the engine.
//
// On any failure everything acquired so far is released before the error
// is returned. Once the shutdown registration has succeeded the registry
// owns the release instead, so a late engine failure is not followed by
// a second release here.
func Init(params map[string]int, open gpio.Opener, shutdowns *bitbang.ShutdownRegistry, opts ...EngineOption) (*Engine, error) {
	offsets := make([]int, 0, len(paramNames))
	for _, name := range paramNames {
		v, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("%w %s=<n>", ErrMissingParam, name)
		}
		offsets = append(offsets, v)
	}

	chip, err := open(offsets[4])
	if err != nil {
		return nil, fmt.Errorf("could not open gpiochip%d: %w", offsets[4], err)
	}

	b := &GPIOBackend{chip: chip}
	b.lines, err = chip.Lines(offsets[:4]...)
	if err != nil {
		b.rollback()
		return nil, fmt.Errorf("could not get GPIO lines: %w", err)
	}
	b.cs, b.sck, b.mosi, b.miso = b.lines[0], b.lines[1], b.lines[2], b.lines[3]

	// every line is attempted even after a failure so a single pass
	// reports all failing offsets
	var errs []error
	for _, l := range []gpio.Line{b.cs, b.sck, b.mosi} {
		if rerr := l.RequestOutput(consumer, 1); rerr != nil {
			errs = append(errs, rerr)
			continue
		}
		b.requested = append(b.requested, l)
	}
	if rerr := b.miso.RequestInput(consumer); rerr != nil {
		errs = append(errs, rerr)
	} else {
		b.requested = append(b.requested, b.miso)
	}
	if err := errors.Join(errs...); err != nil {
		b.rollback()
		return nil, fmt.Errorf("requesting GPIO lines failed: %w", err)
	}

	if err := shutdowns.Register(b.Shutdown); err != nil {
		b.rollback()
		return nil, fmt.Errorf("could not register shutdown: %w", err)
	}

	// from here on the registered shutdown owns the cleanup
	engine, err := NewEngine(b, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not bind bit-bang engine: %w", err)
	}
	return engine, nil
}

// SetCS drives the chip-select line.
func (b *GPIOBackend) SetCS(level int) error {
	if err := b.cs.SetValue(level); err != nil {
		slog.Error("setting cs line failed", "error", err)
		return fmt.Errorf("setting cs line failed: %w", err)
	}
	return nil
}

// SetSCK drives the clock line.
func (b *GPIOBackend) SetSCK(level int) error {
	if err := b.sck.SetValue(level); err != nil {
		slog.Error("setting sck line failed", "error", err)
		return fmt.Errorf("setting sck line failed: %w", err)
	}
	return nil
}

// SetMOSI drives the data-out line.
func (b *GPIOBackend) SetMOSI(level int) error {
	if err := b.mosi.SetValue(level); err != nil {
		slog.Error("setting mosi line failed", "error", err)
		return fmt.Errorf("setting mosi line failed: %w", err)
	}
	return nil
}

// GetMISO samples the data-in line. On failure it returns -1 so the
// engine can tell a failed sample from a logic level.
func (b *GPIOBackend) GetMISO() (int, error) {
	v, err := b.miso.Value()
	if err != nil {
		slog.Error("getting miso line failed", "error", err)
		return -1, fmt.Errorf("getting miso line failed: %w", err)
	}
	return v, nil
}

// Shutdown releases any reserved lines in one bulk pass and closes the
// controller. It is safe on a backend that never finished arming and a
// second call is a no-op.
func (b *GPIOBackend) Shutdown() error {
	if b.released {
		return nil
	}
	b.released = true
	var errs []error
	if len(b.requested) > 0 {
		if err := gpio.Release(b.requested...); err != nil {
			errs = append(errs, err)
		}
		b.requested = nil
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("could not close gpiochip: %w", err))
		}
		b.chip = nil
	}
	return errors.Join(errs...)
}

// rollback is Shutdown on the init error path, where a failure can only
// be reported as a diagnostic.
func (b *GPIOBackend) rollback() {
	if err := b.Shutdown(); err != nil {
		slog.Error("rollback of GPIO resources failed", "error", err)
	}
}
