// Package protocol implements the event-driven state machine of a two-wire bus
// controller. Dispatcher.Dispatch maps the status code of one hardware event to
// the next bus command, updating the master transaction or consulting the
// slave handlers on the way. It never blocks nor allocates and can be driven by
// a scripted sequence of status codes.
package protocol

import (
	"github.com/mklimuk/twi"
)

// Dispatcher routes bus events to the master transaction or the slave responder.
type Dispatcher struct {
	Master Transaction
	Slave  Responder
}

// Dispatch handles one event. data is the content of the data register at the
// time of the event.
func (d *Dispatcher) Dispatch(status twi.Status, data byte) Step {
	switch status.Class() {
	case twi.ClassStart, twi.ClassMasterTransmit, twi.ClassMasterReceive, twi.ClassArbitrationLost:
		return d.Master.handle(status, data)
	case twi.ClassSlaveReceive, twi.ClassSlaveTransmit:
		step := d.Slave.handle(status, data)
		if step.Command == CommandRelease && d.Master.Active() {
			// a start requested while the remote master held the bus is still pending
			step.Command = CommandStart
		}
		return step
	}
	return d.Master.Abort()
}
