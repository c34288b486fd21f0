package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/twi/cmd/twi/console"
)

var version string
var commit string
var date string

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := cli.NewApp()
	app.Name = "twi"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "two-wire bus controller cli"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging",
		},
		&cli.BoolFlag{
			Name:  "trace",
			Usage: "print bus commands issued by the simulated peripheral",
		},
		&cli.StringFlag{
			Name:    "backend",
			Aliases: []string{"b"},
			Usage:   "bus backend: sim, linux or mcp2221",
			Value:   backendSim,
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "controller configuration file (yaml)",
		},
		&cli.StringFlag{
			Name:  "scenario",
			Usage: "simulated bus description (yaml)",
		},
		&cli.StringFlag{
			Name:  "device",
			Usage: "linux i2c bus name, e.g. 1 or /dev/i2c-1",
		},
		&cli.IntFlag{
			Name:  "adapter",
			Usage: "index of the MCP2221 bridge when several are plugged in",
			Value: -1,
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		ctx.Context = console.WithTrace(ctx.Context, ctx.Bool("trace"))
		return nil
	}
	app.Commands = cli.Commands{
		&sendCmd,
		&receiveCmd,
		&scanCmd,
		&registerCmd,
		&memoryCmd,
		&slaveCmd,
		&shellCmd,
		&configCmd,
		&mcp2221Cmd,
	}
	err := app.Run(args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			return exerr.ExitCode()
		}
		slog.Error("unexpected error", "error", err)
		return 1
	}
	return 0
}
