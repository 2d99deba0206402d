package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// profile is a YAML pinmap for a wiring setup. Fields are pointers so an
// absent key stays absent instead of defaulting to line 0; the required
// parameter check in the SPI init reports whatever is still missing.
type profile struct {
	CS       *int `yaml:"cs"`
	SCK      *int `yaml:"sck"`
	MOSI     *int `yaml:"mosi"`
	MISO     *int `yaml:"miso"`
	GPIOChip *int `yaml:"gpiochip"`
}

func loadProfile(path string, params map[string]int) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read profile %s: %w", path, err)
	}
	var p profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("could not parse profile %s: %w", path, err)
	}
	for name, v := range map[string]*int{
		"cs":       p.CS,
		"sck":      p.SCK,
		"mosi":     p.MOSI,
		"miso":     p.MISO,
		"gpiochip": p.GPIOChip,
	} {
		if v != nil {
			params[name] = *v
		}
	}
	return nil
}
