package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/twi"
	"github.com/mklimuk/twi/adapter"
	"github.com/mklimuk/twi/cmd/twi/console"
	"github.com/mklimuk/twi/controller"
	"github.com/mklimuk/twi/i2c"
	"github.com/mklimuk/twi/sim"
)

const (
	backendSim     = "sim"
	backendLinux   = "linux"
	backendMCP2221 = "mcp2221"
)

// defaultScenario is used by the sim backend when no scenario file is given.
var defaultScenario = sim.Scenario{
	Devices: []sim.DeviceSpec{
		{Address: 0x50, Kind: sim.KindMemory, Size: 256},
		{Address: 0x20, Kind: sim.KindResponder, Output: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
	},
}

type backend struct {
	twi.Transactor
	bus   *sim.Bus
	ctrl  *controller.Controller
	close func()
}

func (b *backend) Close() {
	if b.close != nil {
		b.close()
	}
}

func controllerConfig(c *cli.Context, opts ...controller.Option) ([]controller.Option, error) {
	all := []controller.Option{}
	if path := c.String("config"); path != "" {
		cfg, err := controller.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		all = append(all, controller.WithConfig(cfg))
	}
	all = append(all, controller.WithLogger(slog.Default()))
	return append(all, opts...), nil
}

func simBus(c *cli.Context) (*sim.Bus, error) {
	scenario := defaultScenario
	if path := c.String("scenario"); path != "" {
		var err error
		scenario, err = sim.LoadScenario(path)
		if err != nil {
			return nil, err
		}
	}
	return scenario.Build(sim.WithLogger(slog.Default()))
}

// startSim creates the simulated peripheral, the controller driving it and the
// goroutine delivering its interrupts.
func startSim(c *cli.Context, opts ...controller.Option) (*backend, error) {
	bus, err := simBus(c)
	if err != nil {
		return nil, fmt.Errorf("could not build simulated bus: %w", err)
	}
	all, err := controllerConfig(c, opts...)
	if err != nil {
		return nil, err
	}
	ctrl, err := controller.Init(bus, all...)
	if err != nil {
		return nil, fmt.Errorf("could not init controller: %w", err)
	}
	ctx, cancel := context.WithCancel(c.Context)
	done := make(chan struct{})
	go func() {
		defer close(done)
		bus.Run(ctx, ctrl.Interrupt)
	}()
	return &backend{
		Transactor: ctrl,
		bus:        bus,
		ctrl:       ctrl,
		close: func() {
			cancel()
			<-done
			controller.Shutdown()
		},
	}, nil
}

func openBackend(c *cli.Context) (*backend, error) {
	switch c.String("backend") {
	case backendSim:
		return startSim(c)
	case backendLinux:
		bus, err := i2c.NewGenericBus(c.String("device"))
		if err != nil {
			return nil, err
		}
		return &backend{Transactor: bus, close: func() {
			if err := bus.Close(); err != nil {
				slog.Warn("could not close bus", "error", err)
			}
		}}, nil
	case backendMCP2221:
		var ids []int
		if id := c.Int("adapter"); id >= 0 {
			ids = append(ids, id)
		}
		return &backend{Transactor: adapter.NewMCP2221(ids...)}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", c.String("backend"))
	}
}

// trace prints and forgets the commands the simulated peripheral received.
func (b *backend) trace(ctx context.Context) {
	if b.bus == nil || !console.IsTrace(ctx) {
		return
	}
	for _, op := range b.bus.Ops() {
		console.Printf("  %s\n", console.Cyan(op))
	}
	b.bus.ResetOps()
}

// checkArgs fails unless exactly want positional arguments are given. Flags
// written after the first argument are not parsed and land here too.
func checkArgs(c *cli.Context, want int, usage string) error {
	if c.NArg() != want {
		return console.Exit(1, "usage: twi %s (flags go before arguments)", usage)
	}
	return nil
}

func parseAddress(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil || v > 0x7f {
		return 0, fmt.Errorf("invalid 7-bit address %q", s)
	}
	return byte(v), nil
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return byte(v), nil
}

func withTimeout(c *cli.Context) (context.Context, context.CancelFunc) {
	timeout := c.Duration("timeout")
	if timeout <= 0 {
		return context.WithCancel(c.Context)
	}
	return context.WithTimeout(c.Context, timeout)
}
