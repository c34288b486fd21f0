package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/twi"
	"github.com/mklimuk/twi/cmd/twi/console"
)

var errExit = errors.New("exit")

const shellHelp = `commands:
  send <address> <hex data>   write bytes to a slave
  recv <address> [n]          read n bytes (default 1)
  scan                        list answering addresses
  stats                       controller counters (sim backend)
  help                        this text
  exit                        leave the shell`

var shellCmd = cli.Command{
	Name:  "shell",
	Usage: "interactive bus session",
	Flags: []cli.Flag{timeoutFlag},
	Action: func(c *cli.Context) error {
		b, err := openBackend(c)
		if err != nil {
			return console.Exit(1, "could not open bus: %s", console.Red(err))
		}
		defer b.Close()
		completer := readline.NewPrefixCompleter(
			readline.PcItem("send"),
			readline.PcItem("recv"),
			readline.PcItem("scan"),
			readline.PcItem("stats"),
			readline.PcItem("help"),
			readline.PcItem("exit"),
		)
		rl, err := console.Shell(fmt.Sprintf("twi(%s)> ", c.String("backend")), completer)
		if err != nil {
			return console.Exit(1, "could not start shell: %s", err)
		}
		defer func() { _ = rl.Close() }()
		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return console.Exit(1, "shell error: %s", err)
			}
			err = execLine(c, b, strings.Fields(line))
			if errors.Is(err, errExit) {
				return nil
			}
			if err != nil {
				console.Errorf("%s", err)
			}
		}
	},
}

func execLine(c *cli.Context, b *backend, args []string) error {
	if len(args) == 0 {
		return nil
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	defer b.trace(c.Context)
	switch args[0] {
	case "exit", "quit":
		return errExit
	case "help":
		console.Print(shellHelp)
		return nil
	case "send":
		if len(args) < 3 {
			return fmt.Errorf("usage: send <address> <hex data>")
		}
		address, err := parseAddress(args[1])
		if err != nil {
			return err
		}
		data, err := hex.DecodeString(args[2])
		if err != nil {
			return fmt.Errorf("invalid data: %w", err)
		}
		return report(b.Send(ctx, address, data))
	case "recv":
		if len(args) < 2 {
			return fmt.Errorf("usage: recv <address> [n]")
		}
		address, err := parseAddress(args[1])
		if err != nil {
			return err
		}
		n := 1
		if len(args) > 2 {
			n, err = strconv.Atoi(args[2])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid length %q", args[2])
			}
		}
		buf := make([]byte, n)
		err = b.Receive(ctx, address, buf)
		if err == nil {
			console.Printf("% x\n", buf)
		}
		return report(err)
	case "scan":
		return scanInto(ctx, b)
	case "stats":
		if b.ctrl == nil {
			return fmt.Errorf("stats are only kept by the sim backend")
		}
		return yaml.NewEncoder(console.Output()).Encode(b.ctrl.Stats())
	default:
		return fmt.Errorf("unknown command %q, try help", args[0])
	}
}

// report prints the result of a transaction; failed transactions do not end the shell.
func report(err error) error {
	if err == nil {
		console.Print(console.Green(twi.OK))
		return nil
	}
	console.Printf("%s %s\n", console.Red(twi.ResultOf(err)), err)
	return nil
}

func scanInto(ctx context.Context, b *backend) error {
	var found []string
	for address := byte(0x08); address <= 0x77; address++ {
		err := b.Receive(ctx, address, make([]byte, 1))
		if err == nil {
			found = append(found, fmt.Sprintf("0x%02x", address))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	console.Printf("%s\n", strings.Join(found, " "))
	return nil
}
