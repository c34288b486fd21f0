package protocol

import (
	"github.com/mklimuk/twi"
)

// MaxBufferSize is the hard limit of the outgoing buffer.
const MaxBufferSize = 255

// DefaultMaxTries is the number of address attempts before a slave is reported missing.
const DefaultMaxTries = 3

// Transaction describes the master transfer in flight. It is written by the
// caller side while the bus controller is idle and only by the dispatcher
// afterwards.
type Transaction struct {
	sla    byte
	tx     [MaxBufferSize]byte
	rx     []byte
	size   int
	index  int
	tries  int
	active bool
	result twi.Result
}

// BeginWrite resets the descriptor for sending data to address. data is copied;
// its length must already be validated against the buffer capacity.
func (t *Transaction) BeginWrite(address byte, data []byte, tries int) {
	t.sla = twi.Address(address, false)
	t.size = copy(t.tx[:], data)
	t.rx = nil
	t.begin(tries)
}

// BeginRead resets the descriptor for reading len(buffer) bytes from address.
// Received bytes are stored straight into buffer.
func (t *Transaction) BeginRead(address byte, buffer []byte, tries int) {
	t.sla = twi.Address(address, true)
	t.rx = buffer
	t.size = len(buffer)
	t.begin(tries)
}

func (t *Transaction) begin(tries int) {
	if tries < 1 {
		tries = 1
	}
	t.index = 0
	t.tries = tries
	t.result = twi.Unknown
	t.active = true
}

// Active reports whether the transaction waits for a terminal event.
func (t *Transaction) Active() bool { return t.active }

// Reading reports the direction of the transaction.
func (t *Transaction) Reading() bool { return t.sla&0x01 != 0 }

// Address returns the 7-bit destination address.
func (t *Transaction) Address() byte { return t.sla >> 1 }

// Len returns the requested length.
func (t *Transaction) Len() int { return t.size }

// Index returns the number of bytes loaded or stored so far.
func (t *Transaction) Index() int { return t.index }

// TriesLeft returns the remaining address attempts.
func (t *Transaction) TriesLeft() int { return t.tries }

// Result returns the last terminal result.
func (t *Transaction) Result() twi.Result { return t.result }

func (t *Transaction) handle(status twi.Status, data byte) Step {
	if !t.active {
		// spurious event after completion; let go of the bus without reporting
		return Step{Command: CommandStop}
	}
	switch status {
	case twi.StatusStart, twi.StatusRepStart:
		return Step{Command: CommandAck, Load: true, Out: t.sla}

	case twi.StatusMTAddrAck, twi.StatusMTDataAck:
		if t.Reading() {
			return t.Abort()
		}
		if t.index < t.size {
			out := t.tx[t.index]
			t.index++
			return Step{Command: CommandNack, Load: true, Out: out}
		}
		return t.finish(twi.OK)

	case twi.StatusMRAddrAck:
		if !t.Reading() {
			return t.Abort()
		}
		if t.size > 1 {
			return Step{Command: CommandAck}
		}
		// the only byte wanted is also the last one
		return Step{Command: CommandNack}

	case twi.StatusMRDataAck:
		if !t.store(data) {
			return t.Abort()
		}
		if t.index < t.size-1 {
			return Step{Command: CommandAck}
		}
		return Step{Command: CommandNack}

	case twi.StatusMRDataNack:
		if !t.store(data) {
			return t.Abort()
		}
		return t.finish(twi.OK)

	case twi.StatusArbLost:
		// retried as soon as the bus is free, does not use up a try
		return Step{Command: CommandStart}

	case twi.StatusMTAddrNack, twi.StatusMRAddrNack:
		t.tries--
		if t.tries > 0 {
			return Step{Command: CommandStart}
		}
		return t.finish(twi.NotFound)

	case twi.StatusMTDataNack:
		if t.Reading() {
			return t.Abort()
		}
		if t.index > 1 {
			return t.finish(twi.Aborted)
		}
		return t.finish(twi.Rejected)
	}
	return t.Abort()
}

func (t *Transaction) store(data byte) bool {
	if !t.Reading() || t.index >= t.size {
		return false
	}
	t.rx[t.index] = data
	t.index++
	return true
}

func (t *Transaction) finish(result twi.Result) Step {
	t.active = false
	t.result = result
	return Step{Command: CommandStop, Done: true, Result: result}
}

// Abort resets the bus and ends the transaction with twi.Unknown. When no
// transaction is active the step carries no result.
func (t *Transaction) Abort() Step {
	step := Step{Command: CommandRelease}
	if t.active {
		t.active = false
		t.result = twi.Unknown
		step.Done = true
		step.Result = twi.Unknown
	}
	return step
}
