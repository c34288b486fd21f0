package twi

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Class(t *testing.T) {
	tests := []struct {
		status   Status
		expected Class
	}{
		{StatusStart, ClassStart},
		{StatusRepStart, ClassStart},
		{StatusMTAddrNack, ClassMasterTransmit},
		{StatusMRDataNack, ClassMasterReceive},
		{StatusArbLost, ClassArbitrationLost},
		{StatusSRArbLostBroadcastAck, ClassSlaveReceive},
		{StatusSRStop, ClassSlaveReceive},
		{StatusSTLastData, ClassSlaveTransmit},
		{StatusBusError, ClassUnknown},
		{StatusNoInfo, ClassUnknown},
		{Status(0x13), ClassUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.Class())
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "MT_SLA_ACK", StatusMTAddrAck.String())
	assert.Equal(t, "SR_GCALL_ACK", StatusSRBroadcastAck.String())
	assert.Equal(t, "STATUS(0x13)", Status(0x13).String())
	assert.Equal(t, "slave-transmit", ClassSlaveTransmit.String())
}

func TestResult(t *testing.T) {
	for r := OK; r <= Unknown; r++ {
		err := r.Err()
		assert.Equal(t, r, ResultOf(err), r.String())
		if r == OK {
			assert.NoError(t, err)
			continue
		}
		assert.Equal(t, r, ResultOf(fmt.Errorf("wrapped: %w", err)), r.String())
	}
	assert.Equal(t, Unknown, ResultOf(context.Canceled))
	assert.Equal(t, ErrUnknown, Result(42).Err())
	assert.Equal(t, "RESULT(42)", Result(42).String())
	assert.Equal(t, "NOT_FOUND", NotFound.String())
}

func TestAddress(t *testing.T) {
	assert.Equal(t, byte(0xA0), Address(0x50, false))
	assert.Equal(t, byte(0xA1), Address(0x50, true))
	assert.Equal(t, byte(0x00), Address(0, false))
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "broadcast-start", ActionBroadcastStart.String())
	assert.Equal(t, "action(9)", Action(9).String())
}
