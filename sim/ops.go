package sim

import (
	"fmt"
)

type OpKind int

const (
	OpStart OpKind = iota + 1
	OpStop
	OpAck
	OpNack
	OpRelease
	OpLoad
)

func (k OpKind) String() string {
	switch k {
	case OpStart:
		return "start"
	case OpStop:
		return "stop"
	case OpAck:
		return "ack"
	case OpNack:
		return "nack"
	case OpRelease:
		return "release"
	case OpLoad:
		return "load"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op is a command issued to the simulated peripheral.
type Op struct {
	Kind OpKind
	Data byte
}

func (o Op) String() string {
	if o.Kind == OpLoad {
		return fmt.Sprintf("load 0x%02x", o.Data)
	}
	return o.Kind.String()
}

func (b *Bus) record(kind OpKind, data byte) {
	b.ops = append(b.ops, Op{Kind: kind, Data: data})
}

// Ops returns the commands issued so far.
func (b *Bus) Ops() []Op {
	b.mx.Lock()
	defer b.mx.Unlock()
	return append([]Op(nil), b.ops...)
}

// ResetOps forgets the recorded commands.
func (b *Bus) ResetOps() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.ops = nil
}
