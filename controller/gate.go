package controller

import (
	"sync/atomic"
)

// gate serializes transactions. busy can be polled without locking; current
// is only touched with the controller mutex held.
type gate struct {
	busy    atomic.Bool
	current *Transfer
}

func (g *gate) open(t *Transfer) bool {
	if !g.busy.CompareAndSwap(false, true) {
		return false
	}
	g.current = t
	return true
}

// close hands back the transfer in flight, if any, and lets new transactions in.
// It is safe to call when nothing is in flight.
func (g *gate) close() *Transfer {
	t := g.current
	g.current = nil
	g.busy.Store(false)
	return t
}
