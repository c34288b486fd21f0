package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/twi"
)

type fakeHID struct {
	requests  [][]byte
	responses [][]byte
	closed    int
}

func (f *fakeHID) Write(b []byte) (int, error) {
	f.requests = append(f.requests, append([]byte(nil), b...))
	return len(b), nil
}

func (f *fakeHID) Read(b []byte) (int, error) {
	if len(f.responses) == 0 {
		return 0, errors.New("no response")
	}
	n := copy(b, f.responses[0])
	f.responses = f.responses[1:]
	return n, nil
}

func (f *fakeHID) Close() error {
	f.closed++
	return nil
}

func report(b ...byte) []byte {
	r := make([]byte, reportSize)
	copy(r, b)
	return r
}

func fakeMCP2221(f *fakeHID) *MCP2221 {
	d := newMCP2221(func() (device, error) { return f, nil })
	d.responseWait = 0
	return d
}

func TestMCP2221_Send(t *testing.T) {
	f := &fakeHID{responses: [][]byte{report(cmdWriteData, 0x00)}}
	d := fakeMCP2221(f)

	require.NoError(t, d.Send(context.Background(), 0x50, []byte{0x01, 0x02}))
	require.Len(t, f.requests, 1)
	assert.Equal(t, report(cmdWriteData, 0x02, 0x00, 0xA0, 0x01, 0x02), f.requests[0])
	assert.Equal(t, 1, f.closed)
}

func TestMCP2221_SendBusy(t *testing.T) {
	f := &fakeHID{responses: [][]byte{report(cmdWriteData, 0x01)}}
	d := fakeMCP2221(f)

	err := d.Send(context.Background(), 0x50, []byte{0x01})
	assert.ErrorIs(t, err, twi.ErrBusy)
}

func TestMCP2221_Receive(t *testing.T) {
	f := &fakeHID{responses: [][]byte{
		report(cmdReadData, 0x00),
		report(cmdGetData, 0x00, 0x00, 0x03, 0x0A, 0x0B, 0x0C),
	}}
	d := fakeMCP2221(f)

	buf := make([]byte, 3)
	require.NoError(t, d.Receive(context.Background(), 0x50, buf))
	assert.Equal(t, []byte{0x0A, 0x0B, 0x0C}, buf)
	require.Len(t, f.requests, 2)
	assert.Equal(t, report(cmdReadData, 0x03, 0x00, 0xA1), f.requests[0])
	assert.Equal(t, report(cmdGetData), f.requests[1])
}

func TestMCP2221_ReceiveErrors(t *testing.T) {
	tests := []struct {
		name      string
		responses [][]byte
		expected  error
	}{
		{"busy", [][]byte{report(cmdReadData, 0x01)}, twi.ErrBusy},
		{"engine error", [][]byte{report(cmdReadData), report(cmdGetData, 0x41)}, twi.ErrUnknown},
		{"size mismatch", [][]byte{report(cmdReadData), report(cmdGetData, 0x00, 0x00, 0x01, 0x0A)}, twi.ErrUnknown},
		{"wrong echo", [][]byte{report(cmdStatus)}, ErrCommandFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := fakeMCP2221(&fakeHID{responses: tt.responses})
			err := d.Receive(context.Background(), 0x50, make([]byte, 2))
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestMCP2221_BadParameter(t *testing.T) {
	f := &fakeHID{}
	d := fakeMCP2221(f)
	ctx := context.Background()

	assert.ErrorIs(t, d.Send(ctx, 0x80, []byte{1}), twi.ErrBadParameter)
	assert.ErrorIs(t, d.Send(ctx, 0x20, nil), twi.ErrBadParameter)
	assert.ErrorIs(t, d.Receive(ctx, 0x20, make([]byte, MaxMCP2221Transfer+1)), twi.ErrBadParameter)
	assert.Empty(t, f.requests)
}

func TestMCP2221_Status(t *testing.T) {
	resp := report(cmdStatus)
	resp[9], resp[10] = 0x05, 0x00
	resp[11], resp[12] = 0x03, 0x00
	resp[13] = 2
	resp[14] = 0x76
	resp[15] = 1
	resp[16], resp[17] = 0xA0, 0x00
	resp[25] = 1
	f := &fakeHID{responses: [][]byte{resp, resp}}
	d := fakeMCP2221(f)

	status, err := d.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &MCP2221Status{
		I2CDataBufferCounter:   2,
		I2CSpeedDivider:        0x76,
		I2CTimeout:             1,
		CurrentAddress:         "a000",
		LastWriteRequestedSize: 5,
		LastWriteSentSize:      3,
		ReadPending:            1,
	}, status)

	_, err = d.ReleaseBus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report(cmdStatus, 0x00, cancelTransfer), f.requests[1])
}

func TestMCP2221_Cancelled(t *testing.T) {
	f := &fakeHID{}
	d := fakeMCP2221(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Status(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.requests)
}
