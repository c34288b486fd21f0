package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/twi/adapter"
	"github.com/mklimuk/twi/cmd/twi/console"
)

var registerGetCmd = &cli.Command{
	Name:      "get",
	Usage:     "read a register",
	ArgsUsage: "[--word] <address> <register>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "word", Usage: "read a 16-bit little endian word"},
	},
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 2, "register get [--word] <address> <register>"); err != nil {
			return err
		}
		address, err := parseAddress(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		reg, err := parseByte(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		b, err := openBackend(c)
		if err != nil {
			return console.Exit(1, "could not open bus: %s", console.Red(err))
		}
		defer b.Close()
		connector := adapter.NewGobotConnector(b)
		conn, err := connector.GetI2cConnection(int(address), connector.DefaultI2cBus())
		if err != nil {
			return console.Exit(1, "connection error: %s", console.Red(err))
		}
		defer func() { _ = conn.Close() }()
		var val uint16
		if c.Bool("word") {
			val, err = conn.ReadWordData(reg)
		} else {
			var v uint8
			v, err = conn.ReadByteData(reg)
			val = uint16(v)
		}
		b.trace(c.Context)
		if err != nil {
			return console.ExitResult(err, "register 0x%02x read failed", reg)
		}
		console.Printf("register %s (addr %s) value: %s\n", console.White(fmt.Sprintf("0x%02x", reg)), console.White(fmt.Sprintf("0x%02x", address)), console.White(fmt.Sprintf("%#x", val)))
		return nil
	},
}

var registerSetCmd = &cli.Command{
	Name:      "set",
	Usage:     "write a register",
	ArgsUsage: "<address> <register> <value>",
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 3, "register set <address> <register> <value>"); err != nil {
			return err
		}
		address, err := parseAddress(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		reg, err := parseByte(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		val, err := parseByte(c.Args().Get(2))
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		b, err := openBackend(c)
		if err != nil {
			return console.Exit(1, "could not open bus: %s", console.Red(err))
		}
		defer b.Close()

		board := i2c.NewGenericDriver(adapter.NewGobotConnector(b), "register", int(address), func(c i2c.Config) {
			c.SetBus(0)
		})
		err = board.Start()
		if err != nil {
			return console.Exit(1, "device 0x%02x start error: %s", address, console.Red(err))
		}
		defer func() { _ = board.Halt() }()
		err = board.WriteByteData(reg, val)
		b.trace(c.Context)
		if err != nil {
			return console.ExitResult(err, "register 0x%02x write failed", reg)
		}
		console.Printf("register %s (addr %s) set to %s\n", console.White(fmt.Sprintf("0x%02x", reg)), console.White(fmt.Sprintf("0x%02x", address)), console.White(fmt.Sprintf("0x%02x", val)))
		return nil
	},
}

var registerCmd = cli.Command{
	Name:    "register",
	Aliases: []string{"reg"},
	Usage:   "access byte-addressed device registers",
	Subcommands: []*cli.Command{
		registerGetCmd,
		registerSetCmd,
	},
}
