package sim

import (
	"sync"
)

// Device is a slave sitting on the simulated bus.
type Device interface {
	Address() byte
	// Start is called for the address phase; returning false leaves the address unacknowledged.
	Start(read bool) bool
	// Write receives a byte from the master; returning false leaves it unacknowledged.
	Write(b byte) bool
	// Read returns the next byte for the master.
	Read() byte
	// Stop ends the transaction.
	Stop()
}

// Memory is a register-pointer memory in the manner of small EEPROMs: the first
// byte written after a start sets the pointer, following bytes are stored and
// reads return consecutive cells. The pointer wraps at the end of the array.
type Memory struct {
	mx      sync.Mutex
	addr    byte
	mem     []byte
	pointer int
	fresh   bool
}

func NewMemory(addr byte, size int) *Memory {
	if size < 1 {
		size = 256
	}
	return &Memory{addr: addr, mem: make([]byte, size)}
}

func (m *Memory) Address() byte { return m.addr }

func (m *Memory) Start(read bool) bool {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.fresh = !read
	return true
}

func (m *Memory) Write(b byte) bool {
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.fresh {
		m.pointer = int(b) % len(m.mem)
		m.fresh = false
		return true
	}
	m.mem[m.pointer] = b
	m.pointer = (m.pointer + 1) % len(m.mem)
	return true
}

func (m *Memory) Read() byte {
	m.mx.Lock()
	defer m.mx.Unlock()
	b := m.mem[m.pointer]
	m.pointer = (m.pointer + 1) % len(m.mem)
	return b
}

func (m *Memory) Stop() {}

// Load copies data into the array starting at offset.
func (m *Memory) Load(offset int, data []byte) {
	m.mx.Lock()
	defer m.mx.Unlock()
	copy(m.mem[offset:], data)
}

// Dump returns a copy of the array.
func (m *Memory) Dump() []byte {
	m.mx.Lock()
	defer m.mx.Unlock()
	out := make([]byte, len(m.mem))
	copy(out, m.mem)
	return out
}

// Responder is a scriptable device: it ignores its first AddressNacks address
// phases, acknowledges Accept data bytes per transaction (all of them when
// Accept is negative) and serves Output on reads, 0xFF once it runs out.
type Responder struct {
	mx           sync.Mutex
	Addr         byte
	AddressNacks int
	Accept       int
	Output       []byte

	received []byte
	accepted int
	sent     int
	starts   int
}

func (r *Responder) Address() byte { return r.Addr }

func (r *Responder) Start(read bool) bool {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.starts++
	if r.AddressNacks > 0 {
		r.AddressNacks--
		return false
	}
	r.accepted = 0
	return true
}

func (r *Responder) Write(b byte) bool {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.Accept >= 0 && r.accepted >= r.Accept {
		return false
	}
	r.accepted++
	r.received = append(r.received, b)
	return true
}

func (r *Responder) Read() byte {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.sent >= len(r.Output) {
		return 0xFF
	}
	b := r.Output[r.sent]
	r.sent++
	return b
}

func (r *Responder) Stop() {}

// Received returns the bytes the device acknowledged so far.
func (r *Responder) Received() []byte {
	r.mx.Lock()
	defer r.mx.Unlock()
	return append([]byte(nil), r.received...)
}

// Starts returns the number of address phases seen.
func (r *Responder) Starts() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.starts
}
