package gpio

import "fmt"

// MockChip is a programmable in-memory controller for testing code that
// acquires and drives GPIO lines without any hardware. Every provider
// operation is appended to Calls so tests can assert on the exact
// sequence of lookups, requests, releases and closes.
type MockChip struct {
	Index  int
	Calls  []string
	Closed int

	// failure switches
	FailOpen   bool
	FailLookup bool

	lines map[int]*MockLine
}

func NewMockChip() *MockChip {
	return &MockChip{lines: map[int]*MockLine{}}
}

// Opener returns an Opener handing out this chip, so the mock can stand
// in for OpenCdev and friends.
func (c *MockChip) Opener() Opener {
	return func(index int) (Chip, error) {
		if c.FailOpen {
			return nil, fmt.Errorf("no such device")
		}
		c.Index = index
		c.Calls = append(c.Calls, fmt.Sprintf("open gpiochip%d", index))
		return c, nil
	}
}

// Line returns the mock line at offset, creating it on first use, so
// tests can program levels and failure switches before or after lookup.
func (c *MockChip) Line(offset int) *MockLine {
	l, ok := c.lines[offset]
	if !ok {
		l = &MockLine{chip: c, offset: offset}
		c.lines[offset] = l
	}
	return l
}

func (c *MockChip) Lines(offsets ...int) ([]Line, error) {
	c.Calls = append(c.Calls, fmt.Sprintf("lookup %v", offsets))
	if c.FailLookup {
		return nil, fmt.Errorf("lookup failed")
	}
	lines := make([]Line, 0, len(offsets))
	for _, offset := range offsets {
		lines = append(lines, c.Line(offset))
	}
	return lines, nil
}

func (c *MockChip) Close() error {
	c.Closed++
	c.Calls = append(c.Calls, "close")
	return nil
}

// MockLine is a single line of a MockChip.
type MockLine struct {
	chip   *MockChip
	offset int

	Requested bool
	Direction string
	Consumer  string
	Level     int
	Released  int

	// failure switches
	FailRequest bool
	FailSet     bool
	FailRead    bool
	FailRelease bool
}

func (l *MockLine) Offset() int { return l.offset }

func (l *MockLine) RequestOutput(consumer string, initial int) error {
	l.chip.Calls = append(l.chip.Calls, fmt.Sprintf("request-output %d init %d", l.offset, initial))
	if l.FailRequest {
		return fmt.Errorf("line %d busy", l.offset)
	}
	l.Requested = true
	l.Direction = "output"
	l.Consumer = consumer
	l.Level = initial
	return nil
}

func (l *MockLine) RequestInput(consumer string) error {
	l.chip.Calls = append(l.chip.Calls, fmt.Sprintf("request-input %d", l.offset))
	if l.FailRequest {
		return fmt.Errorf("line %d busy", l.offset)
	}
	l.Requested = true
	l.Direction = "input"
	l.Consumer = consumer
	return nil
}

func (l *MockLine) SetValue(level int) error {
	l.chip.Calls = append(l.chip.Calls, fmt.Sprintf("set %d=%d", l.offset, level))
	if l.FailSet {
		return fmt.Errorf("could not set line %d", l.offset)
	}
	l.Level = level
	return nil
}

func (l *MockLine) Value() (int, error) {
	l.chip.Calls = append(l.chip.Calls, fmt.Sprintf("get %d", l.offset))
	if l.FailRead {
		return -1, fmt.Errorf("could not read line %d", l.offset)
	}
	return l.Level, nil
}

func (l *MockLine) Release() error {
	l.chip.Calls = append(l.chip.Calls, fmt.Sprintf("release %d", l.offset))
	l.Released++
	if l.FailRelease {
		return fmt.Errorf("could not release line %d", l.offset)
	}
	l.Requested = false
	return nil
}
