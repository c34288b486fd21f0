// Package sim simulates a two-wire peripheral and the bus behind it. Bus
// implements twi.Bus the way the hardware does: every command that hands
// control back to the peripheral produces the next status code, and the
// interrupt is delivered later by Run or Tick, never from inside a command.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mklimuk/twi"
)

type phase int

const (
	phaseIdle phase = iota
	phaseAddress
	phaseAddressNacked
	phaseMasterTx
	phaseMasterRx
	phaseMasterRxDone
	phaseSlaveRx
	phaseSlaveTx
	phaseSlaveDone
	phaseError
)

const filler = 0xFF

var _ twi.Bus = &Bus{}
var _ twi.Configurer = &Bus{}

type Option func(*Bus)

func WithDevice(d Device) Option {
	return func(b *Bus) {
		b.devices = append(b.devices, d)
	}
}

// WithArbitrationLosses makes the next n address phases lose arbitration.
func WithArbitrationLosses(n int) Option {
	return func(b *Bus) {
		b.arbLosses = n
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(b *Bus) {
		b.log = log
	}
}

type Bus struct {
	mx      sync.Mutex
	devices []Device
	setup   twi.Setup
	log     *slog.Logger

	status       twi.Status
	data         byte
	phase        phase
	owned        bool
	targets      []Device
	startPending bool
	arbLosses    int
	sessions     []*Session
	session      *Session

	pending bool
	irq     chan struct{}
	ops     []Op
}

func New(opts ...Option) *Bus {
	b := &Bus{
		irq:    make(chan struct{}, 1),
		status: twi.StatusNoInfo,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	return b
}

// Attach adds a device to the bus.
func (b *Bus) Attach(d Device) {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.devices = append(b.devices, d)
}

// LoseArbitration makes the next n address phases lose arbitration.
func (b *Bus) LoseArbitration(n int) {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.arbLosses += n
}

// InjectBusError reports an illegal start or stop condition.
func (b *Bus) InjectBusError() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.stopTargets()
	b.phase = phaseError
	b.status = twi.StatusBusError
	b.raise()
}

func (b *Bus) Configure(setup twi.Setup) {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.setup = setup
}

// Setup returns the configuration written at init.
func (b *Bus) Setup() twi.Setup {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.setup
}

func (b *Bus) Status() twi.Status {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.status
}

func (b *Bus) Data() byte {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.data
}

func (b *Bus) Load(v byte) {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.record(OpLoad, v)
	b.data = v
}

func (b *Bus) Start() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.record(OpStart, 0)
	switch {
	case b.pending, b.phase == phaseSlaveRx, b.phase == phaseSlaveTx:
		// bus taken by a remote master or an event not serviced yet
		b.startPending = true
	case b.phase == phaseSlaveDone:
		b.endSession()
		b.grantStart()
	default:
		b.grantStart()
	}
}

func (b *Bus) Stop() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.record(OpStop, 0)
	b.stopTargets()
	if b.session != nil {
		b.endSession()
	}
	b.phase = phaseIdle
	if b.startPending {
		b.grantStart()
		return
	}
	b.kick()
}

func (b *Bus) Ack() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.record(OpAck, 0)
	b.proceed(true)
}

func (b *Bus) Nack() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.record(OpNack, 0)
	b.proceed(false)
}

func (b *Bus) Release() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.record(OpRelease, 0)
	b.stopTargets()
	if b.session != nil {
		b.endSession()
	}
	b.phase = phaseIdle
	if b.startPending {
		b.grantStart()
		return
	}
	b.kick()
}

// RemoteWrite queues a remote master writing data to address.
func (b *Bus) RemoteWrite(address byte, data []byte) *Session {
	return b.enqueue(newSession(address, false, data, 0))
}

// RemoteRead queues a remote master reading n bytes from address.
func (b *Bus) RemoteRead(address byte, n int) *Session {
	return b.enqueue(newSession(address, true, nil, n))
}

func (b *Bus) enqueue(s *Session) *Session {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.sessions = append(b.sessions, s)
	b.kick()
	return s
}

// Run delivers interrupts to handler until ctx is done.
func (b *Bus) Run(ctx context.Context, handler func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.irq:
		}
		if b.take() {
			handler()
		}
	}
}

// Tick delivers the pending interrupt, if any, from the calling goroutine.
func (b *Bus) Tick(handler func()) bool {
	if !b.take() {
		return false
	}
	select {
	case <-b.irq:
	default:
	}
	handler()
	return true
}

// Drain delivers interrupts until none is pending and returns how many were delivered.
func (b *Bus) Drain(handler func()) int {
	n := 0
	for b.Tick(handler) {
		n++
	}
	return n
}

// Pending reports whether an interrupt waits to be serviced.
func (b *Bus) Pending() bool {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.pending
}

func (b *Bus) take() bool {
	b.mx.Lock()
	defer b.mx.Unlock()
	p := b.pending
	b.pending = false
	return p
}

func (b *Bus) raise() {
	b.pending = true
	b.log.Debug("sim event", "status", b.status, "data", fmt.Sprintf("0x%02x", b.data))
	select {
	case b.irq <- struct{}{}:
	default:
	}
}

func (b *Bus) grantStart() {
	b.startPending = false
	if b.owned {
		b.status = twi.StatusRepStart
	} else {
		b.status = twi.StatusStart
	}
	b.owned = true
	b.phase = phaseAddress
	b.raise()
}

func (b *Bus) proceed(ack bool) {
	switch b.phase {
	case phaseAddress:
		b.address()
	case phaseMasterTx:
		accepted := false
		for _, d := range b.targets {
			if d.Write(b.data) {
				accepted = true
			}
		}
		if accepted {
			b.status = twi.StatusMTDataAck
		} else {
			b.status = twi.StatusMTDataNack
		}
		b.raise()
	case phaseMasterRx:
		b.data = b.targets[0].Read()
		if ack {
			b.status = twi.StatusMRDataAck
		} else {
			b.status = twi.StatusMRDataNack
			b.phase = phaseMasterRxDone
		}
		b.raise()
	case phaseSlaveRx:
		b.slaveReceive(ack)
	case phaseSlaveTx:
		b.slaveTransmit(ack)
	}
}

func (b *Bus) address() {
	addr, read := b.data>>1, b.data&0x01 != 0
	if b.arbLosses > 0 {
		b.arbLosses--
		b.owned = false
		b.phase = phaseIdle
		if s := b.nextSession(); s != nil {
			// the winner addresses us
			b.beginSession(s, true)
			return
		}
		b.status = twi.StatusArbLost
		b.raise()
		return
	}
	b.targets = b.targets[:0]
	for _, d := range b.devices {
		if d.Address() != addr && (addr != 0 || read) {
			continue
		}
		if d.Start(read) {
			b.targets = append(b.targets, d)
		}
	}
	switch {
	case len(b.targets) == 0 && read:
		b.status = twi.StatusMRAddrNack
		b.phase = phaseAddressNacked
	case len(b.targets) == 0:
		b.status = twi.StatusMTAddrNack
		b.phase = phaseAddressNacked
	case read:
		b.status = twi.StatusMRAddrAck
		b.phase = phaseMasterRx
	default:
		b.status = twi.StatusMTAddrAck
		b.phase = phaseMasterTx
	}
	b.raise()
}

func (b *Bus) stopTargets() {
	if !b.owned {
		return
	}
	for _, d := range b.targets {
		d.Stop()
	}
	b.targets = b.targets[:0]
	b.owned = false
}

func (b *Bus) addressed(s *Session) bool {
	if !b.setup.Slave {
		return false
	}
	if s.Address == 0 {
		return b.setup.Broadcast && !s.Read
	}
	return s.Address == b.setup.Address
}

// nextSession pops the first queued session the local peripheral answers to.
// Sessions for other addresses complete as refused.
func (b *Bus) nextSession() *Session {
	for len(b.sessions) > 0 {
		s := b.sessions[0]
		b.sessions = b.sessions[1:]
		if b.addressed(s) {
			return s
		}
		s.finish(true)
	}
	return nil
}

func (b *Bus) kick() {
	if b.phase != phaseIdle || b.owned || b.pending || b.session != nil || b.startPending {
		return
	}
	if s := b.nextSession(); s != nil {
		b.beginSession(s, false)
	}
}

func (b *Bus) beginSession(s *Session, lost bool) {
	b.session = s
	switch {
	case s.Read:
		b.phase = phaseSlaveTx
		b.status = twi.StatusSTAddrAck
		if lost {
			b.status = twi.StatusSTArbLostAddrAck
		}
	case s.Address == 0:
		b.phase = phaseSlaveRx
		b.status = twi.StatusSRBroadcastAck
		if lost {
			b.status = twi.StatusSRArbLostBroadcastAck
		}
	default:
		b.phase = phaseSlaveRx
		b.status = twi.StatusSRAddrAck
		if lost {
			b.status = twi.StatusSRArbLostAddrAck
		}
	}
	b.raise()
}

func (b *Bus) endSession() {
	s := b.session
	b.session = nil
	if s != nil {
		s.finish(false)
	}
}

func (b *Bus) slaveReceive(ack bool) {
	s := b.session
	broadcast := s.Address == 0
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.pos >= len(s.data) {
		b.status = twi.StatusSRStop
		b.phase = phaseSlaveDone
		b.raise()
		return
	}
	b.data = s.data[s.pos]
	s.pos++
	switch {
	case ack && broadcast:
		b.status = twi.StatusSRBroadcastDataAck
	case ack:
		b.status = twi.StatusSRDataAck
	default:
		// the remote master gives up after the first unacknowledged byte
		if s.acked == 0 {
			s.refused = true
		}
		b.status = twi.StatusSRDataNack
		if broadcast {
			b.status = twi.StatusSRBroadcastDataNack
		}
		b.phase = phaseSlaveDone
		b.raise()
		return
	}
	s.acked++
	b.raise()
}

func (b *Bus) slaveTransmit(more bool) {
	s := b.session
	s.mx.Lock()
	defer s.mx.Unlock()
	s.received = append(s.received, b.data)
	switch {
	case len(s.received) >= s.want:
		b.status = twi.StatusSTDataNack
		b.phase = phaseSlaveDone
	case more:
		b.status = twi.StatusSTDataAck
	default:
		for len(s.received) < s.want {
			s.received = append(s.received, filler)
		}
		b.status = twi.StatusSTLastData
		b.phase = phaseSlaveDone
	}
	b.raise()
}
