package gpio

import (
	"fmt"
	"strconv"
	"sync"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var (
	periphOnce sync.Once
	periphErr  error
)

// OpenPeriph resolves lines through the periph.io pin registry. The
// registry is host wide, so only controller index 0 is addressable.
func OpenPeriph(index int) (Chip, error) {
	if index != 0 {
		return nil, fmt.Errorf("periph driver exposes a single pin registry, got gpiochip%d", index)
	}
	periphOnce.Do(func() {
		_, periphErr = host.Init()
	})
	if periphErr != nil {
		return nil, fmt.Errorf("could not init periph host: %w", periphErr)
	}
	return periphChip{}, nil
}

type periphChip struct{}

func (periphChip) Lines(offsets ...int) ([]Line, error) {
	lines := make([]Line, 0, len(offsets))
	for _, offset := range offsets {
		pin := gpioreg.ByName(strconv.Itoa(offset))
		if pin == nil {
			return nil, fmt.Errorf("no pin %d in the periph registry", offset)
		}
		lines = append(lines, &periphLine{offset: offset, pin: pin})
	}
	return lines, nil
}

func (periphChip) Close() error { return nil }

type periphLine struct {
	offset    int
	pin       pgpio.PinIO
	requested bool
}

func (l *periphLine) Offset() int { return l.offset }

func (l *periphLine) RequestOutput(consumer string, initial int) error {
	if err := l.pin.Out(pgpio.Level(initial != 0)); err != nil {
		return fmt.Errorf("could not drive pin %s: %w", l.pin, err)
	}
	l.requested = true
	return nil
}

func (l *periphLine) RequestInput(consumer string) error {
	if err := l.pin.In(pgpio.PullNoChange, pgpio.NoEdge); err != nil {
		return fmt.Errorf("could not configure pin %s as input: %w", l.pin, err)
	}
	l.requested = true
	return nil
}

func (l *periphLine) SetValue(level int) error {
	return l.pin.Out(pgpio.Level(level != 0))
}

func (l *periphLine) Value() (int, error) {
	if l.pin.Read() == pgpio.High {
		return 1, nil
	}
	return 0, nil
}

func (l *periphLine) Release() error {
	if !l.requested {
		return nil
	}
	l.requested = false
	return l.pin.Halt()
}
