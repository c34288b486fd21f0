package main

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/twi"
	"github.com/mklimuk/twi/cmd/twi/console"
	"github.com/mklimuk/twi/controller"
	"github.com/mklimuk/twi/sim"
)

// slaveDemo collects what a remote master wrote and serves output on reads.
type slaveDemo struct {
	mx       sync.Mutex
	accept   bool
	received []byte
	output   []byte
	sent     int
}

func (s *slaveDemo) receive(action twi.Action, data byte) bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	switch action {
	case twi.ActionStart, twi.ActionBroadcastStart:
		console.Infof("remote write session opened (%s)", action)
		return s.accept
	case twi.ActionData:
		s.received = append(s.received, data)
	case twi.ActionEnd:
		console.Infof("remote write session closed")
	}
	return true
}

func (s *slaveDemo) transmit(action twi.Action) (byte, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	switch action {
	case twi.ActionStart:
		s.sent = 0
		console.Infof("remote read session opened")
	case twi.ActionEnd, twi.ActionMore:
		console.Infof("remote read session closed (%s)", action)
		return 0, false
	}
	if s.sent >= len(s.output) {
		return 0xFF, false
	}
	b := s.output[s.sent]
	s.sent++
	return b, s.sent < len(s.output)
}

var slaveCmd = cli.Command{
	Name:  "slave",
	Usage: "answer a simulated remote master as an addressed slave",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "address", Usage: "own slave address", Value: "0x10"},
		&cli.BoolFlag{Name: "broadcast", Usage: "answer the general call address"},
		&cli.BoolFlag{Name: "refuse", Usage: "refuse remote writes"},
		&cli.StringFlag{Name: "write", Usage: "hex bytes the remote master writes"},
		&cli.StringFlag{Name: "to", Usage: "address the remote master writes to (defaults to own address)"},
		&cli.IntFlag{Name: "read", Usage: "number of bytes the remote master reads"},
		&cli.StringFlag{Name: "output", Usage: "hex bytes served on remote reads", Value: "c0ffee"},
	},
	Action: func(c *cli.Context) error {
		address, err := parseAddress(c.String("address"))
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		target := address
		if c.String("to") != "" {
			target, err = parseAddress(c.String("to"))
			if err != nil {
				return console.Exit(1, "%s", err)
			}
		}
		written, err := hex.DecodeString(c.String("write"))
		if err != nil {
			return console.Exit(1, "invalid write data: %s", err)
		}
		output, err := hex.DecodeString(c.String("output"))
		if err != nil {
			return console.Exit(1, "invalid output data: %s", err)
		}
		demo := &slaveDemo{accept: !c.Bool("refuse"), output: output}
		b, err := startSim(c, controller.WithSlave(address, c.Bool("broadcast"), demo.receive, demo.transmit))
		if err != nil {
			return console.Exit(1, "could not start simulation: %s", console.Red(err))
		}
		defer b.Close()

		var sessions []*sim.Session
		if len(written) > 0 {
			sessions = append(sessions, b.bus.RemoteWrite(target, written))
		}
		if n := c.Int("read"); n > 0 {
			sessions = append(sessions, b.bus.RemoteRead(target, n))
		}
		for _, s := range sessions {
			select {
			case <-s.Done():
			case <-c.Context.Done():
				return console.Exit(1, "interrupted")
			}
			printSession(s)
		}
		b.trace(c.Context)
		demo.mx.Lock()
		defer demo.mx.Unlock()
		if len(demo.received) > 0 {
			console.PInfof(console.PictoInbox, "slave received %d bytes", len(demo.received))
			console.Print(hex.Dump(demo.received))
		}
		return nil
	},
}

func printSession(s *sim.Session) {
	kind := "write"
	if s.Read {
		kind = "read"
	}
	if s.Refused() {
		console.PInfof(console.PictoFail, "remote %s to 0x%02x refused", kind, s.Address)
		return
	}
	if s.Read {
		console.PInfof(console.PictoOK, "remote read from 0x%02x got %s", s.Address, console.White(fmt.Sprintf("% x", s.Received())))
		return
	}
	console.PInfof(console.PictoOK, "remote write to 0x%02x: %d bytes acknowledged", s.Address, s.Acked())
}
