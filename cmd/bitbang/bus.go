package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/bitbang/gpio"
	"github.com/mklimuk/bitbang/spi"
)

// busFlags configure the bit-banged bus: the four line offsets, the
// controller index, the GPIO provider and the clock pace. Pins may come
// from flags or from a YAML profile; flags win.
var busFlags = []cli.Flag{
	&cli.IntFlag{Name: "cs", Usage: "chip select line offset", Value: -1},
	&cli.IntFlag{Name: "sck", Usage: "clock line offset", Value: -1},
	&cli.IntFlag{Name: "mosi", Usage: "data out line offset", Value: -1},
	&cli.IntFlag{Name: "miso", Usage: "data in line offset", Value: -1},
	&cli.IntFlag{Name: "gpiochip", Usage: "GPIO controller index", Value: -1},
	&cli.StringFlag{Name: "driver", Usage: "GPIO provider: cdev, periph, mcp2221", Value: "cdev"},
	&cli.StringFlag{Name: "profile", Usage: "YAML pin profile file"},
	&cli.DurationFlag{Name: "half-period", Usage: "delay between clock edges", Value: 500 * time.Nanosecond},
}

func openBus(c *cli.Context) (*spi.Engine, error) {
	params, err := busParams(c)
	if err != nil {
		return nil, err
	}
	open, err := opener(c.String("driver"))
	if err != nil {
		return nil, err
	}
	return spi.Init(params, open, shutdowns, spi.WithHalfPeriod(c.Duration("half-period")))
}

func busParams(c *cli.Context) (map[string]int, error) {
	params := map[string]int{}
	if path := c.String("profile"); path != "" {
		if err := loadProfile(path, params); err != nil {
			return nil, err
		}
	}
	for _, name := range []string{"cs", "sck", "mosi", "miso", "gpiochip"} {
		if v := c.Int(name); v >= 0 {
			params[name] = v
		}
	}
	return params, nil
}

func opener(driver string) (gpio.Opener, error) {
	switch driver {
	case "cdev":
		return gpio.OpenCdev, nil
	case "periph":
		return gpio.OpenPeriph, nil
	case "mcp2221":
		return gpio.OpenMCP2221, nil
	}
	return nil, fmt.Errorf("unknown GPIO driver %q", driver)
}
