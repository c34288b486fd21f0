package controller

import (
	"context"
	"sync"

	"github.com/mklimuk/twi"
)

// Transfer is the handle of an accepted master transaction. It completes
// exactly once, from the goroutine that services bus interrupts.
type Transfer struct {
	result twi.Result
	notify func(twi.Result)
	done   chan struct{}
	once   sync.Once
}

func newTransfer(notify func(twi.Result)) *Transfer {
	return &Transfer{
		result: twi.Unknown,
		notify: notify,
		done:   make(chan struct{}),
	}
}

// complete stores the result, runs the notify callback and wakes up waiters.
// Calls after the first one are ignored.
func (t *Transfer) complete(result twi.Result) {
	t.once.Do(func() {
		t.result = result
		if t.notify != nil {
			t.notify(result)
			t.notify = nil
		}
		close(t.done)
	})
}

// Done is closed when the transaction has ended.
func (t *Transfer) Done() <-chan struct{} { return t.done }

// Result returns the outcome; it is twi.Unknown until Done is closed.
func (t *Transfer) Result() twi.Result {
	select {
	case <-t.done:
		return t.result
	default:
		return twi.Unknown
	}
}

// Wait blocks until the transaction ends and returns its error. The
// transaction keeps running when ctx expires first.
func (t *Transfer) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.result.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
