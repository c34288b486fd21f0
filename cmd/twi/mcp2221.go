package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/twi/adapter"
	"github.com/mklimuk/twi/cmd/twi/console"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "MCP2221 USB bridge maintenance",
	Subcommands: cli.Commands{
		mcp2221StatusCmd,
		mcp2221ReleaseCmd,
		mcp2221DetectCmd,
	},
}

func bridge(c *cli.Context) *adapter.MCP2221 {
	if id := c.Int("adapter"); id >= 0 {
		return adapter.NewMCP2221(id)
	}
	return adapter.NewMCP2221()
}

var mcp2221StatusCmd = &cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		status, err := bridge(c).Status(c.Context)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		enc := yaml.NewEncoder(console.Output())
		err = enc.Encode(status)
		if err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		return nil
	},
}

var mcp2221ReleaseCmd = &cli.Command{
	Name:  "release",
	Usage: "cancel the current transfer and free the bus",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		if !c.Bool("yes") {
			ok, err := console.Confirm("cancel the transfer in progress?")
			if err != nil {
				return console.Exit(1, "%s", err)
			}
			if !ok {
				return nil
			}
		}
		status, err := bridge(c).ReleaseBus(c.Context)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		enc := yaml.NewEncoder(console.Output())
		err = enc.Encode(status)
		if err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		return nil
	},
}

var mcp2221DetectCmd = &cli.Command{
	Name: "detect",
	Action: func(c *cli.Context) error {
		devices := adapter.Detect()
		if len(devices) == 0 {
			console.Warnf("no MCP2221 bridge found")
			return nil
		}
		w := tabwriter.NewWriter(console.Output(), 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "ID\tPATH\tSERIAL\tVENDOR\tPRODUCT ID\tPRODUCT\n")
		for i, dev := range devices {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%#x\t%#x\t%s\n",
				i, dev.Path, dev.Serial, dev.VendorID, dev.ProductID, dev.Product)
		}
		_ = w.Flush()
		console.PInfof(console.PictoPlug, "%d bridges", len(devices))
		return nil
	},
}
