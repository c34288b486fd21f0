package twi

import (
	"context"
)

// Bus is the set of low-level primitives of a two-wire peripheral. Every method
// maps to a single register access and must not block or buffer: Start, Stop,
// Ack, Nack and Release hand control back to the hardware which reports the
// outcome with the next interrupt.
//
// Implementations deliver interrupts asynchronously; calling the interrupt
// handler from inside one of these methods is not allowed.
type Bus interface {
	// Start requests a start (or repeated start) condition.
	Start()
	// Stop issues a stop condition. No interrupt follows.
	Stop()
	// Ack lets the hardware proceed with acknowledge enabled.
	Ack()
	// Nack lets the hardware proceed with acknowledge disabled.
	Nack()
	// Release returns the peripheral to idle, or to listening when a slave
	// address was configured.
	Release()
	// Load puts the next outgoing byte in the data register.
	Load(b byte)
	// Data returns the content of the data register.
	Data() byte
	// Status returns the status code of the pending event.
	Status() Status
}

// Setup is the one-time peripheral configuration computed at init.
type Setup struct {
	BitRate   byte
	Address   byte
	Broadcast bool
	Slave     bool
}

// Configurer is implemented by buses that need the one-time register setup.
type Configurer interface {
	Configure(setup Setup)
}

// Transactor performs complete master transactions addressed to a 7-bit slave.
type Transactor interface {
	Send(ctx context.Context, address byte, data []byte) error
	Receive(ctx context.Context, address byte, buffer []byte) error
}

// Address converts a 7-bit address and direction into the address byte put on the wire.
func Address(address byte, read bool) byte {
	sla := (address & 0x7f) << 1
	if read {
		sla |= 0x01
	}
	return sla
}
