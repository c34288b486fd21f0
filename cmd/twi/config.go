package main

import (
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/twi/cmd/twi/console"
	"github.com/mklimuk/twi/controller"
)

type configDump struct {
	Config  controller.Config `yaml:"config"`
	BitRate byte              `yaml:"bit_rate"`
}

var configDumpCmd = &cli.Command{
	Name:  "dump",
	Usage: "print the effective controller configuration",
	Action: func(c *cli.Context) error {
		cfg := controller.DefaultConfig()
		if path := c.String("config"); path != "" {
			var err error
			cfg, err = controller.LoadConfig(path)
			if err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
		}
		setup, err := cfg.Validate()
		if err != nil {
			return console.Exit(1, "invalid configuration: %s", console.Red(err))
		}
		enc := yaml.NewEncoder(console.Output())
		err = enc.Encode(configDump{Config: cfg, BitRate: setup.BitRate})
		if err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		return nil
	},
}

var configCmd = cli.Command{
	Name:  "config",
	Usage: "controller configuration",
	Subcommands: []*cli.Command{
		configDumpCmd,
	},
}
