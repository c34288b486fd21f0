package main

import (
	"encoding/hex"

	"github.com/urfave/cli/v2"
	"periph.io/x/conn/v3/i2c"

	"github.com/mklimuk/twi/adapter"
	"github.com/mklimuk/twi/cmd/twi/console"
)

// memory commands target register-pointer memories: the first written byte
// selects the cell, reads continue from there.

var memoryReadCmd = &cli.Command{
	Name:      "read",
	Usage:     "read a memory block",
	ArgsUsage: "[--offset n] [--length n] <address>",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "offset", Usage: "first cell to read"},
		&cli.IntFlag{Name: "length", Usage: "number of bytes to read", Value: 16},
	},
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 1, "memory read [--offset n] [--length n] <address>"); err != nil {
			return err
		}
		address, err := parseAddress(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		offset, length := c.Int("offset"), c.Int("length")
		if offset < 0 || offset > 0xff {
			return console.Exit(1, "offset out of range: %d", offset)
		}
		if length <= 0 || length > 0xff {
			return console.Exit(1, "length out of range: %d", length)
		}
		b, err := openBackend(c)
		if err != nil {
			return console.Exit(1, "could not open bus: %s", console.Red(err))
		}
		defer b.Close()
		dev := i2c.Dev{Bus: adapter.NewPeriphBus(c.String("backend"), b), Addr: uint16(address)}
		buf := make([]byte, length)
		err = dev.Tx([]byte{byte(offset)}, buf)
		b.trace(c.Context)
		if err != nil {
			return console.ExitResult(err, "memory read failed")
		}
		console.Print(hex.Dump(buf))
		return nil
	},
}

var memoryWriteCmd = &cli.Command{
	Name:      "write",
	Usage:     "write a memory block",
	ArgsUsage: "[--offset n] <address> <hex data>",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "offset", Usage: "first cell to write"},
	},
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 2, "memory write [--offset n] <address> <hex data>"); err != nil {
			return err
		}
		address, err := parseAddress(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		data, err := hex.DecodeString(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "invalid data hex string: %s", err)
		}
		offset := c.Int("offset")
		if offset < 0 || offset > 0xff {
			return console.Exit(1, "offset out of range: %d", offset)
		}
		b, err := openBackend(c)
		if err != nil {
			return console.Exit(1, "could not open bus: %s", console.Red(err))
		}
		defer b.Close()
		dev := i2c.Dev{Bus: adapter.NewPeriphBus(c.String("backend"), b), Addr: uint16(address)}
		_, err = dev.Write(append([]byte{byte(offset)}, data...))
		b.trace(c.Context)
		if err != nil {
			return console.ExitResult(err, "memory write failed")
		}
		console.PInfof(console.PictoOK, "%d bytes written at 0x%02x", len(data), offset)
		return nil
	},
}

var memoryCmd = cli.Command{
	Name:  "memory",
	Usage: "read and write register-pointer memories",
	Subcommands: []*cli.Command{
		memoryReadCmd,
		memoryWriteCmd,
	},
}
