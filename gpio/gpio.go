// Package gpio abstracts addressable GPIO controllers behind a small
// provider contract so the same SPI backend can run on the Linux
// character device, the periph.io pin registry, a USB adapter or a test
// double.
package gpio

import (
	"errors"
	"fmt"
)

// Line is a single GPIO line looked up on a controller. Looking a line
// up does not reserve it; no I/O happens until one of the request calls
// succeeds.
type Line interface {
	Offset() int
	// RequestOutput reserves the line as an output driven to initial.
	// The consumer tag identifies the owner to other processes.
	RequestOutput(consumer string, initial int) error
	// RequestInput reserves the line as an input.
	RequestInput(consumer string) error
	SetValue(level int) error
	Value() (int, error)
	// Release returns the line to the controller. Releasing a line that
	// was never requested is a no-op.
	Release() error
}

// Chip is one open GPIO controller.
type Chip interface {
	// Lines looks up the given offsets in one bulk operation.
	Lines(offsets ...int) ([]Line, error)
	Close() error
}

// Opener opens a controller by index.
type Opener func(index int) (Chip, error)

// Release bulk-releases lines. The empty set is a no-op; every line is
// attempted even if an earlier one fails.
func Release(lines ...Line) error {
	var errs []error
	for _, l := range lines {
		if l == nil {
			continue
		}
		if err := l.Release(); err != nil {
			errs = append(errs, fmt.Errorf("could not release line %d: %w", l.Offset(), err))
		}
	}
	return errors.Join(errs...)
}
