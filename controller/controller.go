// Package controller drives a two-wire peripheral as bus master and,
// optionally, as addressed slave. There is a single controller per process:
// it is created with Init and serviced by the bus backend calling Interrupt
// for every hardware event.
//
// Transactions are started with StartSend/StartReceive, which return a
// Transfer handle, or with the blocking Send/Receive built on top of them.
// Only one transaction is in flight at a time; a request made meanwhile fails
// with twi.ErrBusy.
//
// A slave address that never answers is retried a bounded number of times.
// Lost arbitration is retried without bound as soon as the bus is free, so a
// permanently contended bus can starve the controller.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mklimuk/twi"
	"github.com/mklimuk/twi/protocol"
)

var ErrInitialized = errors.New("bus controller already initialized")

var (
	instanceMx sync.Mutex
	instance   *Controller
)

var _ twi.Transactor = &Controller{}

type Controller struct {
	mx         sync.Mutex
	bus        twi.Bus
	config     Config
	setup      twi.Setup
	log        *slog.Logger
	dispatcher protocol.Dispatcher
	gate       gate
	stats      counters
}

// Init configures the peripheral behind bus and creates the process-wide
// controller. It fails with ErrInitialized while a controller exists.
func Init(bus twi.Bus, opts ...Option) (*Controller, error) {
	instanceMx.Lock()
	defer instanceMx.Unlock()
	if instance != nil {
		return nil, ErrInitialized
	}
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	setup, err := config.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid bus controller config: %w", err)
	}
	c := &Controller{
		bus:    bus,
		config: config,
		setup:  setup,
		log:    config.Logger,
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if config.Slave != nil {
		c.dispatcher.Slave = protocol.Responder{
			Receive:  config.Slave.Receive,
			Transmit: config.Slave.Transmit,
		}
	}
	if conf, ok := bus.(twi.Configurer); ok {
		conf.Configure(setup)
	}
	bus.Release()
	c.log.Debug("bus controller initialized",
		"clock", config.ClockRate.String(), "bitrate", setup.BitRate, "slave", setup.Slave, "address", setup.Address)
	instance = c
	return c, nil
}

// Default returns the controller created by Init or nil.
func Default() *Controller {
	instanceMx.Lock()
	defer instanceMx.Unlock()
	return instance
}

// Shutdown releases the peripheral and forgets the controller. A transaction
// still in flight ends with twi.Unknown.
func Shutdown() {
	instanceMx.Lock()
	c := instance
	instance = nil
	instanceMx.Unlock()
	if c == nil {
		return
	}
	c.mx.Lock()
	step := c.dispatcher.Master.Abort()
	step.Apply(c.bus)
	t := c.gate.close()
	c.mx.Unlock()
	if t != nil {
		t.complete(step.Result)
	}
}

// Config returns the configuration the controller was created with.
func (c *Controller) Config() Config { return c.config }

// Setup returns the peripheral setup computed at init.
func (c *Controller) Setup() twi.Setup { return c.setup }

// Busy reports whether a transaction is in flight.
func (c *Controller) Busy() bool { return c.gate.busy.Load() }

// Stats returns event counters.
func (c *Controller) Stats() Stats { return c.stats.snapshot() }

// StartSend accepts a write of data to address and returns immediately.
// notify, when not nil, is called once with the result from the interrupt
// goroutine; it must be quick and may start the next transaction.
func (c *Controller) StartSend(address byte, data []byte, notify func(twi.Result)) (*Transfer, error) {
	return c.start(address, len(data), notify, func(m *protocol.Transaction) {
		m.BeginWrite(address, data, c.config.MaxTries)
	})
}

// StartReceive accepts a read of len(buffer) bytes from address. The bytes are
// written to buffer as they arrive; it must not be touched before the transfer
// is done.
func (c *Controller) StartReceive(address byte, buffer []byte, notify func(twi.Result)) (*Transfer, error) {
	if address == 0 {
		return nil, fmt.Errorf("cannot read from broadcast address: %w", twi.ErrBadParameter)
	}
	return c.start(address, len(buffer), notify, func(m *protocol.Transaction) {
		m.BeginRead(address, buffer, c.config.MaxTries)
	})
}

func (c *Controller) start(address byte, length int, notify func(twi.Result), begin func(*protocol.Transaction)) (*Transfer, error) {
	if c.Busy() {
		return nil, twi.ErrBusy
	}
	if address > 0x7f {
		return nil, fmt.Errorf("address 0x%02x is not a 7-bit address: %w", address, twi.ErrBadParameter)
	}
	if length < 1 || length > c.config.BufferSize {
		return nil, fmt.Errorf("length %d out of range [1, %d]: %w", length, c.config.BufferSize, twi.ErrBadParameter)
	}
	t := newTransfer(notify)
	c.mx.Lock()
	defer c.mx.Unlock()
	if !c.gate.open(t) {
		return nil, twi.ErrBusy
	}
	begin(&c.dispatcher.Master)
	c.log.Debug("transaction accepted", "address", address, "read", c.dispatcher.Master.Reading(), "length", length)
	c.bus.Start()
	return t, nil
}

// Send writes data to address and waits for the result.
func (c *Controller) Send(ctx context.Context, address byte, data []byte) error {
	t, err := c.StartSend(address, data, nil)
	if err != nil {
		return fmt.Errorf("send to 0x%02x: %w", address, err)
	}
	err = t.Wait(ctx)
	if err != nil {
		return fmt.Errorf("send to 0x%02x: %w", address, err)
	}
	return nil
}

// Receive reads len(buffer) bytes from address and waits for the result.
func (c *Controller) Receive(ctx context.Context, address byte, buffer []byte) error {
	t, err := c.StartReceive(address, buffer, nil)
	if err != nil {
		return fmt.Errorf("receive from 0x%02x: %w", address, err)
	}
	err = t.Wait(ctx)
	if err != nil {
		return fmt.Errorf("receive from 0x%02x: %w", address, err)
	}
	return nil
}

// Wait blocks until the transaction in flight, if any, has ended.
func (c *Controller) Wait(ctx context.Context) error {
	c.mx.Lock()
	t := c.gate.current
	c.mx.Unlock()
	if t == nil {
		return nil
	}
	select {
	case <-t.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Interrupt services one hardware event: it reads the status, arms the next
// bus command and completes the transaction when the event was terminal.
// Calls must be serialized, as hardware interrupts are.
func (c *Controller) Interrupt() {
	c.mx.Lock()
	status := c.bus.Status()
	step := c.dispatcher.Dispatch(status, c.bus.Data())
	c.stats.count(status)
	step.Apply(c.bus)
	var t *Transfer
	if step.Done {
		t = c.gate.close()
		c.stats.result(step.Result)
	}
	c.mx.Unlock()

	c.log.Debug("bus event", "status", status, "step", step)
	if t != nil {
		t.complete(step.Result)
	}
}
