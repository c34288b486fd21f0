package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/twi"
	"github.com/mklimuk/twi/cmd/twi/console"
)

var timeoutFlag = &cli.DurationFlag{
	Name:  "timeout",
	Usage: "transaction timeout",
	Value: time.Second,
}

var sendCmd = cli.Command{
	Name:      "send",
	Usage:     "write bytes to a slave",
	ArgsUsage: "<address> <hex data>",
	Flags:     []cli.Flag{timeoutFlag},
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 2, "send [--timeout d] <address> <hex data>"); err != nil {
			return err
		}
		address, err := parseAddress(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		data, err := hex.DecodeString(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "invalid data: %s", err)
		}
		b, err := openBackend(c)
		if err != nil {
			return console.Exit(1, "could not open bus: %s", console.Red(err))
		}
		defer b.Close()
		ctx, cancel := withTimeout(c)
		defer cancel()
		err = b.Send(ctx, address, data)
		b.trace(c.Context)
		if err != nil {
			return console.ExitResult(err, "send to 0x%02x failed", address)
		}
		console.PInfof(console.PictoOutbox, "%d bytes sent to %s", len(data), console.White(fmt.Sprintf("0x%02x", address)))
		return nil
	},
}

var receiveCmd = cli.Command{
	Name:      "receive",
	Aliases:   []string{"recv"},
	Usage:     "read bytes from a slave",
	ArgsUsage: "[--length n] <address>",
	Flags: []cli.Flag{
		timeoutFlag,
		&cli.IntFlag{Name: "length", Aliases: []string{"n"}, Usage: "number of bytes to read", Value: 1},
	},
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 1, "receive [--length n] <address>"); err != nil {
			return err
		}
		address, err := parseAddress(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		if c.Int("length") < 1 {
			return console.Exit(1, "invalid length %d", c.Int("length"))
		}
		b, err := openBackend(c)
		if err != nil {
			return console.Exit(1, "could not open bus: %s", console.Red(err))
		}
		defer b.Close()
		ctx, cancel := withTimeout(c)
		defer cancel()
		buf := make([]byte, c.Int("length"))
		err = b.Receive(ctx, address, buf)
		b.trace(c.Context)
		if err != nil {
			return console.ExitResult(err, "receive from 0x%02x failed", address)
		}
		console.PInfof(console.PictoInbox, "%d bytes received from %s", len(buf), console.White(fmt.Sprintf("0x%02x", address)))
		console.Print(hex.Dump(buf))
		return nil
	},
}

var scanCmd = cli.Command{
	Name:  "scan",
	Usage: "probe every address with a one byte read",
	Flags: []cli.Flag{timeoutFlag},
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 0, "scan [--timeout d]"); err != nil {
			return err
		}
		b, err := openBackend(c)
		if err != nil {
			return console.Exit(1, "could not open bus: %s", console.Red(err))
		}
		defer b.Close()
		console.PInfof(console.PictoSearch, "scanning addresses 0x08-0x77")
		w := tabwriter.NewWriter(console.Output(), 8, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "ADDRESS\tRESULT\n")
		found := 0
		for address := byte(0x08); address <= 0x77; address++ {
			ctx, cancel := withTimeout(c)
			err := b.Receive(ctx, address, make([]byte, 1))
			cancel()
			if errors.Is(err, twi.ErrNotFound) {
				continue
			}
			if err == nil {
				found++
			}
			_, _ = fmt.Fprintf(w, "0x%02x\t%s\n", address, twi.ResultOf(err))
		}
		_ = w.Flush()
		b.trace(c.Context)
		console.Infof("%d devices found", found)
		return nil
	},
}
