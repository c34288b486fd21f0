package protocol

import (
	"github.com/mklimuk/twi"
)

// filler is put on the bus when there is no transmit handler to ask.
const filler = 0xFF

// Responder answers a remote master that addressed the local peripheral.
// Either handler may be nil: sessions are then refused.
type Responder struct {
	Receive  twi.ReceiveFunc
	Transmit twi.TransmitFunc
}

func (r Responder) handle(status twi.Status, data byte) Step {
	switch status {
	case twi.StatusSRAddrAck, twi.StatusSRArbLostAddrAck:
		return r.open(twi.ActionStart)
	case twi.StatusSRBroadcastAck, twi.StatusSRArbLostBroadcastAck:
		return r.open(twi.ActionBroadcastStart)

	case twi.StatusSRDataAck, twi.StatusSRBroadcastDataAck:
		if r.Receive != nil {
			r.Receive(twi.ActionData, data)
		}
		return Step{Command: CommandAck}

	case twi.StatusSRDataNack, twi.StatusSRBroadcastDataNack:
		// tail of a refused session, the handler already said no
		return Step{Command: CommandRelease}

	case twi.StatusSRStop:
		if r.Receive != nil {
			r.Receive(twi.ActionEnd, 0)
		}
		return Step{Command: CommandRelease}

	case twi.StatusSTAddrAck, twi.StatusSTArbLostAddrAck:
		return r.transmit(twi.ActionStart)
	case twi.StatusSTDataAck:
		return r.transmit(twi.ActionData)

	case twi.StatusSTLastData:
		// remote keeps clocking after our last byte and reads filler
		if r.Transmit != nil {
			r.Transmit(twi.ActionMore)
		}
		return Step{Command: CommandRelease}

	case twi.StatusSTDataNack:
		if r.Transmit != nil {
			r.Transmit(twi.ActionEnd)
		}
		return Step{Command: CommandRelease}
	}
	return Step{Command: CommandRelease}
}

func (r Responder) open(action twi.Action) Step {
	if r.Receive != nil && r.Receive(action, 0) {
		return Step{Command: CommandAck}
	}
	return Step{Command: CommandNack}
}

func (r Responder) transmit(action twi.Action) Step {
	if r.Transmit == nil {
		return Step{Command: CommandNack, Load: true, Out: filler}
	}
	out, more := r.Transmit(action)
	if more {
		return Step{Command: CommandAck, Load: true, Out: out}
	}
	return Step{Command: CommandNack, Load: true, Out: out}
}
