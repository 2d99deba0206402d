package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/bitbang/cmd/bitbang/console"
	"github.com/mklimuk/bitbang/flash"
)

var idCmd = cli.Command{
	Name:  "id",
	Usage: "read the JEDEC identification of the attached chip",
	Flags: busFlags,
	Action: func(c *cli.Context) error {
		bus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "could not initialize SPI bus: %v", err)
		}
		id, err := flash.New(bus).ID(c.Context)
		if err != nil {
			return console.Exit(1, "could not read chip id: %v", err)
		}
		fmt.Printf("JEDEC id: %s\n", id)
		return nil
	},
}

var readCmd = cli.Command{
	Name:  "read",
	Usage: "read chip contents",
	Flags: append([]cli.Flag{
		&cli.IntFlag{Name: "address", Usage: "start address", Value: 0},
		&cli.IntFlag{Name: "length", Usage: "number of bytes to read", Required: true},
		&cli.StringFlag{Name: "output", Usage: "write bytes to file instead of dumping them"},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		bus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "could not initialize SPI bus: %v", err)
		}
		data, err := flash.New(bus).Read(c.Context, uint32(c.Int("address")), c.Int("length"))
		if err != nil {
			return console.Exit(1, "could not read chip: %v", err)
		}
		if out := c.String("output"); out != "" {
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return console.Exit(1, "could not write %s: %v", out, err)
			}
			console.Infof("wrote %d bytes to %s", len(data), out)
			return nil
		}
		fmt.Print(hex.Dump(data))
		return nil
	},
}

var writeCmd = cli.Command{
	Name:  "write",
	Usage: "program chip contents",
	Flags: append([]cli.Flag{
		&cli.IntFlag{Name: "address", Usage: "start address", Value: 0},
		&cli.StringFlag{Name: "data", Usage: "hex bytes to write (e.g. '01FF23')"},
		&cli.StringFlag{Name: "input", Usage: "file to write instead of --data"},
		&cli.BoolFlag{Name: "yes", Usage: "skip the confirmation prompt"},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		data, err := writePayload(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		if !c.Bool("yes") {
			answer, err := console.YesOrNo(fmt.Sprintf("write %d bytes at %#x?", len(data), c.Int("address")))
			if err != nil {
				return console.Exit(1, "could not read answer: %v", err)
			}
			if answer != console.Yes {
				console.Info("aborted")
				return nil
			}
		}
		bus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "could not initialize SPI bus: %v", err)
		}
		if err := flash.New(bus).Write(c.Context, uint32(c.Int("address")), data); err != nil {
			return console.Exit(1, "could not program chip: %v", err)
		}
		console.Infof("wrote %d bytes at %#x", len(data), c.Int("address"))
		return nil
	},
}

func writePayload(c *cli.Context) ([]byte, error) {
	switch {
	case c.String("data") != "" && c.String("input") != "":
		return nil, fmt.Errorf("--data and --input are mutually exclusive")
	case c.String("data") != "":
		data, err := hex.DecodeString(c.String("data"))
		if err != nil {
			return nil, fmt.Errorf("could not decode data: %w", err)
		}
		return data, nil
	case c.String("input") != "":
		data, err := os.ReadFile(c.String("input"))
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", c.String("input"), err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("either --data or --input is required")
}

var eraseCmd = cli.Command{
	Name:  "erase",
	Usage: "erase a sector or the whole chip",
	Flags: append([]cli.Flag{
		&cli.IntFlag{Name: "address", Usage: "address inside the sector to erase", Value: -1},
		&cli.BoolFlag{Name: "chip", Usage: "erase the whole chip"},
		&cli.BoolFlag{Name: "yes", Usage: "skip the confirmation prompt"},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		if c.Bool("chip") == (c.Int("address") >= 0) {
			return console.Exit(1, "pass either --chip or --address")
		}
		if !c.Bool("yes") {
			answer, err := console.YesOrNo("erase is irreversible, continue?")
			if err != nil {
				return console.Exit(1, "could not read answer: %v", err)
			}
			if answer != console.Yes {
				console.Info("aborted")
				return nil
			}
		}
		bus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "could not initialize SPI bus: %v", err)
		}
		dev := flash.New(bus)
		if c.Bool("chip") {
			err = dev.EraseChip(c.Context)
		} else {
			err = dev.EraseSector(c.Context, uint32(c.Int("address")))
		}
		if err != nil {
			return console.Exit(1, "erase failed: %v", err)
		}
		console.Info("erase complete")
		return nil
	},
}
