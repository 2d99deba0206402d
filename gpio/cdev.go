package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// OpenCdev opens /dev/gpiochip<index> through the GPIO character device.
// This is the production provider on any recent Linux kernel.
func OpenCdev(index int) (Chip, error) {
	c, err := gpiocdev.NewChip(fmt.Sprintf("gpiochip%d", index))
	if err != nil {
		return nil, fmt.Errorf("could not open gpiochip%d: %w", index, err)
	}
	return &cdevChip{chip: c}, nil
}

type cdevChip struct {
	chip *gpiocdev.Chip
}

func (c *cdevChip) Lines(offsets ...int) ([]Line, error) {
	lines := make([]Line, 0, len(offsets))
	for _, offset := range offsets {
		if _, err := c.chip.LineInfo(offset); err != nil {
			return nil, fmt.Errorf("no line %d on %s: %w", offset, c.chip.Name, err)
		}
		lines = append(lines, &cdevLine{chip: c.chip, offset: offset})
	}
	return lines, nil
}

func (c *cdevChip) Close() error {
	return c.chip.Close()
}

// cdevLine defers the kernel request until a direction is chosen: the
// character device reserves a line and configures it in a single call.
type cdevLine struct {
	chip   *gpiocdev.Chip
	offset int
	line   *gpiocdev.Line
}

func (l *cdevLine) Offset() int { return l.offset }

func (l *cdevLine) RequestOutput(consumer string, initial int) error {
	line, err := l.chip.RequestLine(l.offset, gpiocdev.AsOutput(initial), gpiocdev.WithConsumer(consumer))
	if err != nil {
		return fmt.Errorf("could not request line %d as output: %w", l.offset, err)
	}
	l.line = line
	return nil
}

func (l *cdevLine) RequestInput(consumer string) error {
	line, err := l.chip.RequestLine(l.offset, gpiocdev.AsInput, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return fmt.Errorf("could not request line %d as input: %w", l.offset, err)
	}
	l.line = line
	return nil
}

func (l *cdevLine) SetValue(level int) error {
	if l.line == nil {
		return fmt.Errorf("line %d not requested", l.offset)
	}
	return l.line.SetValue(level)
}

func (l *cdevLine) Value() (int, error) {
	if l.line == nil {
		return -1, fmt.Errorf("line %d not requested", l.offset)
	}
	return l.line.Value()
}

func (l *cdevLine) Release() error {
	if l.line == nil {
		return nil
	}
	err := l.line.Close()
	l.line = nil
	return err
}
