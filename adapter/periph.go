package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/twi"
)

var ErrSpeedFixed = errors.New("bus speed is fixed at init")

var _ i2c.Bus = &PeriphBus{}

// PeriphBus lets periph.io device drivers run on top of a twi.Transactor.
// A transaction with both a write and a read part is performed as a send
// followed by a separate receive.
type PeriphBus struct {
	Name    string
	Timeout time.Duration
	tr      twi.Transactor
}

func NewPeriphBus(name string, tr twi.Transactor) *PeriphBus {
	return &PeriphBus{
		Name:    name,
		Timeout: time.Second,
		tr:      tr,
	}
}

func (b *PeriphBus) String() string {
	return b.Name
}

func (b *PeriphBus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7f {
		return fmt.Errorf("address %#x is not a 7-bit address: %w", addr, twi.ErrBadParameter)
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()
	if len(w) > 0 {
		err := b.tr.Send(ctx, byte(addr), w)
		if err != nil {
			return err
		}
	}
	if len(r) > 0 {
		return b.tr.Receive(ctx, byte(addr), r)
	}
	return nil
}

func (b *PeriphBus) SetSpeed(physic.Frequency) error {
	return ErrSpeedFixed
}
