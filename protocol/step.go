package protocol

import (
	"fmt"

	"github.com/mklimuk/twi"
)

// Command is the bus primitive armed at the end of an event.
type Command byte

const (
	CommandStart Command = iota + 1
	CommandStop
	CommandAck
	CommandNack
	CommandRelease
)

func (c Command) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	case CommandAck:
		return "ack"
	case CommandNack:
		return "nack"
	case CommandRelease:
		return "release"
	default:
		return fmt.Sprintf("command(%d)", byte(c))
	}
}

// Step is the outcome of dispatching one event: an optional byte to load into
// the data register, the command to arm and, when Done is set, the result of
// the master transaction that just ended.
type Step struct {
	Command Command
	Load    bool
	Out     byte
	Done    bool
	Result  twi.Result
}

// Apply loads the outgoing byte and arms the command on the bus.
func (s Step) Apply(bus twi.Bus) {
	if s.Load {
		bus.Load(s.Out)
	}
	switch s.Command {
	case CommandStart:
		bus.Start()
	case CommandStop:
		bus.Stop()
	case CommandAck:
		bus.Ack()
	case CommandNack:
		bus.Nack()
	default:
		bus.Release()
	}
}

func (s Step) String() string {
	out := s.Command.String()
	if s.Load {
		out = fmt.Sprintf("load 0x%02x, %s", s.Out, out)
	}
	if s.Done {
		out = fmt.Sprintf("%s, done %s", out, s.Result)
	}
	return out
}
