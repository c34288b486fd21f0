package controller

import (
	"sync/atomic"

	"github.com/mklimuk/twi"
)

// Stats counts bus events since init.
type Stats struct {
	Events          uint32 `yaml:"events"`
	ArbitrationLost uint32 `yaml:"arbitration_lost"`
	AddressNacks    uint32 `yaml:"address_nacks"`
	SlaveEvents     uint32 `yaml:"slave_events"`
	Completed       uint32 `yaml:"completed"`
	Failed          uint32 `yaml:"failed"`
}

type counters struct {
	events          atomic.Uint32
	arbitrationLost atomic.Uint32
	addressNacks    atomic.Uint32
	slaveEvents     atomic.Uint32
	completed       atomic.Uint32
	failed          atomic.Uint32
}

func (c *counters) count(status twi.Status) {
	c.events.Add(1)
	switch status.Class() {
	case twi.ClassArbitrationLost:
		c.arbitrationLost.Add(1)
	case twi.ClassSlaveReceive, twi.ClassSlaveTransmit:
		c.slaveEvents.Add(1)
	}
	if status == twi.StatusMTAddrNack || status == twi.StatusMRAddrNack {
		c.addressNacks.Add(1)
	}
}

func (c *counters) result(r twi.Result) {
	if r == twi.OK {
		c.completed.Add(1)
		return
	}
	c.failed.Add(1)
}

func (c *counters) snapshot() Stats {
	return Stats{
		Events:          c.events.Load(),
		ArbitrationLost: c.arbitrationLost.Load(),
		AddressNacks:    c.addressNacks.Load(),
		SlaveEvents:     c.slaveEvents.Load(),
		Completed:       c.completed.Load(),
		Failed:          c.failed.Load(),
	}
}
