package gpio

import (
	"fmt"
	"strconv"

	gobotgpio "gobot.io/x/gobot/v2/drivers/gpio"
)

// DigitalPins is the subset of a gobot platform adaptor needed to expose
// its digital pins as a controller.
type DigitalPins interface {
	gobotgpio.DigitalWriter
	gobotgpio.DigitalReader
}

// NewDigitalChip exposes a gobot digital pin adaptor as a Chip. Offsets
// map to the adaptor's pin names by decimal number, so any board gobot
// supports can carry the bit-banged bus.
func NewDigitalChip(pins DigitalPins) Chip {
	return &digitalChip{pins: pins}
}

type digitalChip struct {
	pins DigitalPins
}

func (c *digitalChip) Lines(offsets ...int) ([]Line, error) {
	lines := make([]Line, 0, len(offsets))
	for _, offset := range offsets {
		lines = append(lines, &digitalLine{pins: c.pins, offset: offset, pin: strconv.Itoa(offset)})
	}
	return lines, nil
}

func (c *digitalChip) Close() error { return nil }

type digitalLine struct {
	pins   DigitalPins
	offset int
	pin    string
}

func (l *digitalLine) Offset() int { return l.offset }

func (l *digitalLine) RequestOutput(consumer string, initial int) error {
	if err := l.pins.DigitalWrite(l.pin, byte(initial)); err != nil {
		return fmt.Errorf("could not drive pin %s: %w", l.pin, err)
	}
	return nil
}

func (l *digitalLine) RequestInput(consumer string) error {
	// gobot adaptors flip pin direction on the first read
	if _, err := l.pins.DigitalRead(l.pin); err != nil {
		return fmt.Errorf("could not configure pin %s as input: %w", l.pin, err)
	}
	return nil
}

func (l *digitalLine) SetValue(level int) error {
	return l.pins.DigitalWrite(l.pin, byte(level))
}

func (l *digitalLine) Value() (int, error) {
	return l.pins.DigitalRead(l.pin)
}

func (l *digitalLine) Release() error { return nil }
