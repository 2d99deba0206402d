package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/bitbang"
	"github.com/mklimuk/bitbang/cmd/bitbang/console"
)

var version string
var commit string
var date string

// shutdowns releases GPIO lines and controllers at process teardown,
// whichever command acquired them.
var shutdowns = bitbang.NewShutdownRegistry()

func main() {
	os.Exit(run())
}

func run() int {
	app := cli.NewApp()
	app.Name = "bitbang"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "talk to SPI flash and EEPROM chips over raw GPIO lines"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stdout, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
			console.Trace = true
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.After = func(ctx *cli.Context) error {
		if err := shutdowns.RunAll(); err != nil {
			console.Errorf("shutdown: %v", err)
		}
		return nil
	}
	app.Commands = cli.Commands{
		&idCmd,
		&readCmd,
		&writeCmd,
		&eraseCmd,
		&usbCmd,
	}
	err := app.Run(os.Args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		return 1
	}
	return 0
}
