package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	periphi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/twi"
)

// MockTransactor is a mock implementation of twi.Transactor using testify/mock.
type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) Send(ctx context.Context, address byte, data []byte) error {
	args := m.Called(ctx, address, data)
	return args.Error(0)
}

func (m *MockTransactor) Receive(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

var anyCtx = mock.Anything

func TestPeriphBus_Tx(t *testing.T) {
	tr := &MockTransactor{}
	tr.On("Send", anyCtx, byte(0x50), []byte{0x10}).Return(nil).Once()
	tr.On("Receive", anyCtx, byte(0x50), mock.AnythingOfType("[]uint8")).Return([]byte{1, 2}, nil).Once()
	bus := NewPeriphBus("sim", tr)

	dev := periphi2c.Dev{Bus: bus, Addr: 0x50}
	buf := make([]byte, 2)
	require.NoError(t, dev.Tx([]byte{0x10}, buf))
	assert.Equal(t, []byte{1, 2}, buf)
	assert.Equal(t, "sim", bus.String())
	tr.AssertExpectations(t)
}

func TestPeriphBus_Errors(t *testing.T) {
	tr := &MockTransactor{}
	tr.On("Send", anyCtx, byte(0x20), []byte{1}).Return(twi.ErrRejected).Once()
	bus := NewPeriphBus("sim", tr)

	err := bus.Tx(0x20, []byte{1}, make([]byte, 1))
	assert.ErrorIs(t, err, twi.ErrRejected)
	assert.ErrorIs(t, bus.Tx(0x100, []byte{1}, nil), twi.ErrBadParameter)
	assert.ErrorIs(t, bus.SetSpeed(100*physic.KiloHertz), ErrSpeedFixed)
	tr.AssertExpectations(t)
	tr.AssertNotCalled(t, "Receive", anyCtx, byte(0x20), mock.Anything)
}

func TestGobotConnector(t *testing.T) {
	tr := &MockTransactor{}
	conn := NewGobotConnector(tr)
	assert.Equal(t, 0, conn.DefaultI2cBus())

	_, err := conn.GetI2cConnection(0x50, 1)
	assert.ErrorIs(t, err, twi.ErrBadParameter)
	_, err = conn.GetI2cConnection(0x80, 0)
	assert.ErrorIs(t, err, twi.ErrBadParameter)

	c, err := conn.GetI2cConnection(0x50, 0)
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}

func TestGobotConnection_Registers(t *testing.T) {
	tr := &MockTransactor{}
	tr.On("Send", anyCtx, byte(0x48), []byte{0x01, 0x34, 0x12}).Return(nil).Once()
	tr.On("Send", anyCtx, byte(0x48), []byte{0x02, 0x7F}).Return(nil).Once()
	tr.On("Send", anyCtx, byte(0x48), []byte{0x03, 0xAA, 0xBB}).Return(nil).Once()
	tr.On("Send", anyCtx, byte(0x48), []byte{0x04}).Return(nil).Twice()
	tr.On("Receive", anyCtx, byte(0x48), mock.MatchedBy(func(b []byte) bool { return len(b) == 2 })).Return([]byte{0x78, 0x56}, nil).Twice()
	tr.On("Send", anyCtx, byte(0x48), []byte{0x05}).Return(nil).Once()
	tr.On("Receive", anyCtx, byte(0x48), mock.MatchedBy(func(b []byte) bool { return len(b) == 1 })).Return([]byte{0x99}, nil).Once()

	conn, err := NewGobotConnector(tr).GetI2cConnection(0x48, 0)
	require.NoError(t, err)

	require.NoError(t, conn.WriteWordData(0x01, 0x1234))
	require.NoError(t, conn.WriteByteData(0x02, 0x7F))
	require.NoError(t, conn.WriteBlockData(0x03, []byte{0xAA, 0xBB}))

	word, err := conn.ReadWordData(0x04)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x5678), word)
	block := make([]byte, 2)
	require.NoError(t, conn.ReadBlockData(0x04, block))
	assert.Equal(t, []byte{0x78, 0x56}, block)

	b, err := conn.ReadByteData(0x05)
	require.NoError(t, err)
	assert.Equal(t, byte(0x99), b)
	tr.AssertExpectations(t)
}

func TestGobotConnection_ReadWrite(t *testing.T) {
	tr := &MockTransactor{}
	tr.On("Send", anyCtx, byte(0x48), []byte{0x01, 0x02}).Return(nil).Once()
	tr.On("Send", anyCtx, byte(0x48), []byte{0x03}).Return(nil).Once()
	tr.On("Receive", anyCtx, byte(0x48), mock.Anything).Return([]byte{0x44, 0x55}, nil).Once()
	tr.On("Receive", anyCtx, byte(0x48), mock.Anything).Return(nil, twi.ErrNotFound).Once()

	conn, err := NewGobotConnector(tr).GetI2cConnection(0x48, 0)
	require.NoError(t, err)

	n, err := conn.Write([]byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, conn.WriteByte(0x03))

	buf := make([]byte, 2)
	n, err = conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0x44, 0x55}, buf)

	_, err = conn.ReadByte()
	assert.ErrorIs(t, err, twi.ErrNotFound)
	tr.AssertExpectations(t)
}

func TestGobotGenericDriver(t *testing.T) {
	tr := &MockTransactor{}
	tr.On("Send", anyCtx, byte(0x28), []byte{0x00, 0x80}).Return(nil).Once()
	tr.On("Send", anyCtx, byte(0x28), []byte{0x10}).Return(errors.New("wire cut")).Once()

	board := i2c.NewGenericDriver(NewGobotConnector(tr), "pot", 0x28, func(c i2c.Config) {
		c.SetBus(0)
	})
	require.NoError(t, board.Start())
	defer func() { _ = board.Halt() }()

	require.NoError(t, board.WriteByteData(0x00, 0x80))
	assert.Error(t, board.Write([]byte{0x10}))
	tr.AssertExpectations(t)
}
