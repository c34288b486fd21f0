package sim

import (
	"sync"
)

// Session is a transaction started by a simulated remote master against the
// local peripheral.
type Session struct {
	Address byte
	Read    bool

	mx       sync.Mutex
	data     []byte
	want     int
	pos      int
	acked    int
	received []byte
	refused  bool
	done     chan struct{}
}

func newSession(address byte, read bool, data []byte, want int) *Session {
	return &Session{
		Address: address,
		Read:    read,
		data:    append([]byte(nil), data...),
		want:    want,
		done:    make(chan struct{}),
	}
}

// Done is closed when the session is over.
func (s *Session) Done() <-chan struct{} { return s.done }

// Refused reports whether the local peripheral did not take part: either the
// address did not match or the first data byte was not acknowledged.
func (s *Session) Refused() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.refused
}

// Acked returns the number of written bytes the peripheral acknowledged.
func (s *Session) Acked() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.acked
}

// Received returns the bytes read from the peripheral, filler included.
func (s *Session) Received() []byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([]byte(nil), s.received...)
}

func (s *Session) finish(refused bool) {
	s.mx.Lock()
	if refused {
		s.refused = true
	}
	s.mx.Unlock()
	close(s.done)
}
