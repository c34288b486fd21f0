// Package i2c performs master transactions on a Linux i2c-dev bus through
// periph.io.
package i2c

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/twi"
)

var _ twi.Transactor = &GenericBus{}

var hostOnce sync.Once
var hostErr error

type GenericBus struct {
	bus i2c.BusCloser
}

// NewGenericBus initializes host drivers and opens the named bus ("" selects
// the first one, "1" or "/dev/i2c-1" a specific one).
func NewGenericBus(dev string) (*GenericBus, error) {
	hostOnce.Do(func() {
		state, err := host.Init()
		if err != nil {
			hostErr = err
			return
		}
		for _, driver := range state.Loaded {
			slog.Debug("host driver loaded", "driver", driver.String())
		}
	})
	if hostErr != nil {
		return nil, fmt.Errorf("could not init host: %w", hostErr)
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return NewBus(bus), nil
}

// NewBus wraps an already opened bus.
func NewBus(bus i2c.BusCloser) *GenericBus {
	return &GenericBus{
		bus: bus,
	}
}

func (b *GenericBus) Receive(ctx context.Context, address byte, buffer []byte) error {
	if err := check(ctx, address, len(buffer)); err != nil {
		return fmt.Errorf("could not read from 0x%02x: %w", address, err)
	}
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus 0x%02x: %w: %w", address, twi.ErrUnknown, err)
	}
	return nil
}

func (b *GenericBus) Send(ctx context.Context, address byte, data []byte) error {
	if err := check(ctx, address, len(data)); err != nil {
		return fmt.Errorf("could not write to 0x%02x: %w", address, err)
	}
	err := b.bus.Tx(uint16(address), data, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus 0x%02x: %w: %w", address, twi.ErrUnknown, err)
	}
	return nil
}

func check(ctx context.Context, address byte, length int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if address > 0x7f {
		return fmt.Errorf("address out of range: %w", twi.ErrBadParameter)
	}
	if length == 0 {
		return fmt.Errorf("empty transfer: %w", twi.ErrBadParameter)
	}
	return nil
}

func (b *GenericBus) String() string {
	return b.bus.String()
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}
