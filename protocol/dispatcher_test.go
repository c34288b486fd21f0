package protocol

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/twi"
)

type event struct {
	status twi.Status
	data   byte
}

func ev(status twi.Status) event { return event{status: status} }

func rx(status twi.Status, data byte) event { return event{status: status, data: data} }

func run(d *Dispatcher, events ...event) []Step {
	steps := make([]Step, 0, len(events))
	for _, e := range events {
		steps = append(steps, d.Dispatch(e.status, e.data))
	}
	return steps
}

func results(steps []Step) []twi.Result {
	var out []twi.Result
	for _, s := range steps {
		if s.Done {
			out = append(out, s.Result)
		}
	}
	return out
}

func payload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + 1)
	}
	return data
}

func TestDispatcher_WriteAcknowledged(t *testing.T) {
	for _, n := range []int{1, 2, 5, 32, MaxBufferSize} {
		t.Run(fmt.Sprintf("len %d", n), func(t *testing.T) {
			var d Dispatcher
			data := payload(n)
			d.Master.BeginWrite(0x21, data, DefaultMaxTries)

			step := d.Dispatch(twi.StatusStart, 0)
			assert.Equal(t, Step{Command: CommandAck, Load: true, Out: 0x42}, step)

			step = d.Dispatch(twi.StatusMTAddrAck, 0)
			var sent []byte
			for step.Load {
				assert.Equal(t, CommandNack, step.Command)
				sent = append(sent, step.Out)
				step = d.Dispatch(twi.StatusMTDataAck, 0)
			}
			assert.Equal(t, data, sent)
			assert.Equal(t, Step{Command: CommandStop, Done: true, Result: twi.OK}, step)
			assert.False(t, d.Master.Active())
			assert.Equal(t, twi.OK, d.Master.Result())
		})
	}
}

func TestDispatcher_AddressRetries(t *testing.T) {
	tests := []struct {
		name     string
		nacks    int
		expected twi.Result
	}{
		{"found on first try", 0, twi.OK},
		{"found on last try", DefaultMaxTries - 1, twi.OK},
		{"not found", DefaultMaxTries, twi.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Dispatcher
			d.Master.BeginWrite(0x10, []byte{0xAA}, DefaultMaxTries)
			var steps []Step
			steps = append(steps, d.Dispatch(twi.StatusStart, 0))
			for i := 0; i < tt.nacks; i++ {
				step := d.Dispatch(twi.StatusMTAddrNack, 0)
				steps = append(steps, step)
				if step.Done {
					break
				}
				require.Equal(t, CommandStart, step.Command, "address nack %d should restart", i)
				steps = append(steps, d.Dispatch(twi.StatusRepStart, 0))
			}
			if tt.expected == twi.OK {
				steps = append(steps, run(&d, ev(twi.StatusMTAddrAck), ev(twi.StatusMTDataAck))...)
			}
			assert.Equal(t, []twi.Result{tt.expected}, results(steps))
			last := steps[len(steps)-1]
			assert.Equal(t, CommandStop, last.Command)
		})
	}
}

func TestDispatcher_ReadAddressNotFound(t *testing.T) {
	var d Dispatcher
	buf := make([]byte, 2)
	d.Master.BeginRead(0x33, buf, 2)
	steps := run(&d,
		ev(twi.StatusStart), ev(twi.StatusMRAddrNack),
		ev(twi.StatusRepStart), ev(twi.StatusMRAddrNack),
	)
	assert.Equal(t, Step{Command: CommandAck, Load: true, Out: 0x67}, steps[0])
	assert.Equal(t, CommandStart, steps[1].Command)
	assert.Equal(t, Step{Command: CommandStop, Done: true, Result: twi.NotFound}, steps[3])
}

func TestDispatcher_DataNack(t *testing.T) {
	tests := []struct {
		name     string
		accepted int
		expected twi.Result
	}{
		{"refused first byte", 0, twi.Rejected},
		{"refused after one byte", 1, twi.Aborted},
		{"refused after three bytes", 3, twi.Aborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Dispatcher
			d.Master.BeginWrite(0x50, payload(8), DefaultMaxTries)
			steps := run(&d, ev(twi.StatusStart), ev(twi.StatusMTAddrAck))
			for i := 0; i < tt.accepted; i++ {
				steps = append(steps, d.Dispatch(twi.StatusMTDataAck, 0))
			}
			steps = append(steps, d.Dispatch(twi.StatusMTDataNack, 0))
			assert.Equal(t, []twi.Result{tt.expected}, results(steps))
			assert.Equal(t, CommandStop, steps[len(steps)-1].Command)
			assert.Equal(t, tt.accepted+1, d.Master.Index())
		})
	}
}

func TestDispatcher_ArbitrationLostKeepsTries(t *testing.T) {
	var d Dispatcher
	d.Master.BeginWrite(0x11, []byte{1, 2}, DefaultMaxTries)
	steps := run(&d, ev(twi.StatusStart))
	for i := 0; i < 10; i++ {
		step := d.Dispatch(twi.StatusArbLost, 0)
		assert.Equal(t, Step{Command: CommandStart}, step)
		steps = append(steps, step, d.Dispatch(twi.StatusStart, 0))
	}
	assert.Empty(t, results(steps))
	assert.Equal(t, DefaultMaxTries, d.Master.TriesLeft())
	assert.True(t, d.Master.Active())

	steps = run(&d, ev(twi.StatusMTAddrAck), ev(twi.StatusMTDataAck), ev(twi.StatusMTDataAck))
	assert.Equal(t, []twi.Result{twi.OK}, results(steps))
}

func TestDispatcher_Read(t *testing.T) {
	for _, n := range []int{1, 2, 4, 32} {
		t.Run(fmt.Sprintf("len %d", n), func(t *testing.T) {
			var d Dispatcher
			buf := make([]byte, n)
			remote := payload(n)
			d.Master.BeginRead(0x48, buf, DefaultMaxTries)

			assert.Equal(t, Step{Command: CommandAck, Load: true, Out: 0x91}, d.Dispatch(twi.StatusStart, 0))
			step := d.Dispatch(twi.StatusMRAddrAck, 0)
			for i := 0; i < n; i++ {
				if i == n-1 {
					require.Equal(t, CommandNack, step.Command, "last byte must be nacked")
					step = d.Dispatch(twi.StatusMRDataNack, remote[i])
					break
				}
				require.Equal(t, CommandAck, step.Command, "byte %d", i)
				step = d.Dispatch(twi.StatusMRDataAck, remote[i])
			}
			assert.Equal(t, Step{Command: CommandStop, Done: true, Result: twi.OK}, step)
			assert.Equal(t, remote, buf)
		})
	}
}

func TestDispatcher_UnknownStatus(t *testing.T) {
	for _, status := range []twi.Status{twi.StatusBusError, twi.StatusNoInfo, twi.Status(0x03)} {
		t.Run(status.String(), func(t *testing.T) {
			var d Dispatcher
			d.Master.BeginWrite(0x20, []byte{1, 2, 3}, DefaultMaxTries)
			steps := run(&d, ev(twi.StatusStart), ev(twi.StatusMTAddrAck), ev(status))
			assert.Equal(t, Step{Command: CommandRelease, Done: true, Result: twi.Unknown}, steps[2])
			assert.False(t, d.Master.Active())
		})
	}
}

func TestDispatcher_UnknownStatusWhenIdle(t *testing.T) {
	var d Dispatcher
	assert.Equal(t, Step{Command: CommandRelease}, d.Dispatch(twi.StatusBusError, 0))
}

func TestDispatcher_DirectionMismatch(t *testing.T) {
	var d Dispatcher
	d.Master.BeginRead(0x20, make([]byte, 2), DefaultMaxTries)
	steps := run(&d, ev(twi.StatusStart), ev(twi.StatusMTAddrAck))
	assert.Equal(t, []twi.Result{twi.Unknown}, results(steps))
}

func TestDispatcher_ResultDeliveredOnce(t *testing.T) {
	var d Dispatcher
	d.Master.BeginWrite(0x20, []byte{9}, DefaultMaxTries)
	steps := run(&d,
		ev(twi.StatusStart), ev(twi.StatusMTAddrAck), ev(twi.StatusMTDataAck),
		ev(twi.StatusMTDataAck), ev(twi.StatusMTDataNack), ev(twi.StatusBusError), ev(twi.StatusArbLost),
	)
	assert.Equal(t, []twi.Result{twi.OK}, results(steps))
	assert.Equal(t, twi.OK, d.Master.Result())
}

type recorder struct {
	calls  []twi.Action
	data   []byte
	accept bool
	out    []byte
}

func (r *recorder) receive(action twi.Action, data byte) bool {
	r.calls = append(r.calls, action)
	if action == twi.ActionData {
		r.data = append(r.data, data)
	}
	return r.accept
}

func (r *recorder) transmit(action twi.Action) (byte, bool) {
	r.calls = append(r.calls, action)
	if action != twi.ActionStart && action != twi.ActionData {
		return 0, false
	}
	if len(r.out) == 0 {
		return 0xEE, false
	}
	b := r.out[0]
	r.out = r.out[1:]
	return b, len(r.out) > 0
}

func TestDispatcher_SlaveReceive(t *testing.T) {
	rec := &recorder{accept: true}
	d := Dispatcher{Slave: Responder{Receive: rec.receive}}
	steps := run(&d,
		ev(twi.StatusSRAddrAck),
		rx(twi.StatusSRDataAck, 0x10),
		rx(twi.StatusSRDataAck, 0x20),
		ev(twi.StatusSRStop),
	)
	assert.Equal(t, []Command{CommandAck, CommandAck, CommandAck, CommandRelease},
		[]Command{steps[0].Command, steps[1].Command, steps[2].Command, steps[3].Command})
	assert.Equal(t, []twi.Action{twi.ActionStart, twi.ActionData, twi.ActionData, twi.ActionEnd}, rec.calls)
	assert.Equal(t, []byte{0x10, 0x20}, rec.data)
	assert.Empty(t, results(steps))
}

func TestDispatcher_SlaveBroadcast(t *testing.T) {
	rec := &recorder{accept: true}
	d := Dispatcher{Slave: Responder{Receive: rec.receive}}
	run(&d, ev(twi.StatusSRBroadcastAck), rx(twi.StatusSRBroadcastDataAck, 0x5A), ev(twi.StatusSRStop))
	assert.Equal(t, []twi.Action{twi.ActionBroadcastStart, twi.ActionData, twi.ActionEnd}, rec.calls)
	assert.Equal(t, []byte{0x5A}, rec.data)
}

func TestDispatcher_SlaveRejects(t *testing.T) {
	rec := &recorder{accept: false}
	d := Dispatcher{Slave: Responder{Receive: rec.receive}}
	steps := run(&d, ev(twi.StatusSRAddrAck), rx(twi.StatusSRDataNack, 0x77))
	assert.Equal(t, CommandNack, steps[0].Command)
	assert.Equal(t, CommandRelease, steps[1].Command)
	assert.Equal(t, []twi.Action{twi.ActionStart}, rec.calls)
	assert.Empty(t, rec.data)
}

func TestDispatcher_SlaveWithoutHandlers(t *testing.T) {
	var d Dispatcher
	assert.Equal(t, CommandNack, d.Dispatch(twi.StatusSRAddrAck, 0).Command)
	assert.Equal(t, Step{Command: CommandNack, Load: true, Out: filler}, d.Dispatch(twi.StatusSTAddrAck, 0))
	assert.Equal(t, CommandRelease, d.Dispatch(twi.StatusSRStop, 0).Command)
}

func TestDispatcher_SlaveTransmit(t *testing.T) {
	t.Run("remote reads everything", func(t *testing.T) {
		rec := &recorder{out: []byte{1, 2, 3}}
		d := Dispatcher{Slave: Responder{Transmit: rec.transmit}}
		steps := run(&d, ev(twi.StatusSTAddrAck), ev(twi.StatusSTDataAck), ev(twi.StatusSTDataAck), ev(twi.StatusSTDataNack))
		assert.Equal(t, Step{Command: CommandAck, Load: true, Out: 1}, steps[0])
		assert.Equal(t, Step{Command: CommandAck, Load: true, Out: 2}, steps[1])
		assert.Equal(t, Step{Command: CommandNack, Load: true, Out: 3}, steps[2])
		assert.Equal(t, Step{Command: CommandRelease}, steps[3])
		assert.Equal(t, []twi.Action{twi.ActionStart, twi.ActionData, twi.ActionData, twi.ActionEnd}, rec.calls)
	})
	t.Run("remote wants more", func(t *testing.T) {
		rec := &recorder{out: []byte{1}}
		d := Dispatcher{Slave: Responder{Transmit: rec.transmit}}
		steps := run(&d, ev(twi.StatusSTAddrAck), ev(twi.StatusSTLastData))
		assert.Equal(t, Step{Command: CommandNack, Load: true, Out: 1}, steps[0])
		assert.Equal(t, Step{Command: CommandRelease}, steps[1])
		assert.Equal(t, []twi.Action{twi.ActionStart, twi.ActionMore}, rec.calls)
	})
}

func TestDispatcher_SlaveSessionKeepsPendingMaster(t *testing.T) {
	rec := &recorder{accept: true}
	d := Dispatcher{Slave: Responder{Receive: rec.receive}}
	d.Master.BeginWrite(0x22, []byte{1}, DefaultMaxTries)

	// addressed by the remote master that won the bus
	steps := run(&d, ev(twi.StatusSRArbLostAddrAck), rx(twi.StatusSRDataAck, 0x01), ev(twi.StatusSRStop))
	assert.Equal(t, CommandAck, steps[0].Command)
	assert.Equal(t, CommandStart, steps[2].Command, "pending master start must be re-armed")
	assert.Empty(t, results(steps))
	assert.Equal(t, DefaultMaxTries, d.Master.TriesLeft())

	steps = run(&d, ev(twi.StatusStart), ev(twi.StatusMTAddrAck), ev(twi.StatusMTDataAck))
	assert.Equal(t, []twi.Result{twi.OK}, results(steps))
}

func TestStep_String(t *testing.T) {
	assert.Equal(t, "load 0x42, ack", Step{Command: CommandAck, Load: true, Out: 0x42}.String())
	assert.Equal(t, "stop, done NOT_FOUND", Step{Command: CommandStop, Done: true, Result: twi.NotFound}.String())
}
