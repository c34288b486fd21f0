package adapter

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/twi"
)

var _ i2c.Connector = &GobotConnector{}
var _ i2c.Connection = &GobotConnection{}

// GobotConnector hands out gobot i2c connections backed by a twi.Transactor.
// There is one bus, numbered Bus.
type GobotConnector struct {
	Bus     int
	Timeout time.Duration
	tr      twi.Transactor
}

func NewGobotConnector(tr twi.Transactor) *GobotConnector {
	return &GobotConnector{
		Timeout: time.Second,
		tr:      tr,
	}
}

func (c *GobotConnector) GetI2cConnection(address int, busNr int) (i2c.Connection, error) {
	if busNr != c.Bus {
		return nil, fmt.Errorf("bus number %d not available, only %d is: %w", busNr, c.Bus, twi.ErrBadParameter)
	}
	if address < 1 || address > 0x7f {
		return nil, fmt.Errorf("address %#x is not a 7-bit address: %w", address, twi.ErrBadParameter)
	}
	return &GobotConnection{
		address: byte(address),
		timeout: c.Timeout,
		tr:      c.tr,
	}, nil
}

func (c *GobotConnector) DefaultI2cBus() int {
	return c.Bus
}

// GobotConnection implements the SMBus style helpers gobot drivers use.
// Register reads are a register write followed by a separate read.
type GobotConnection struct {
	address byte
	timeout time.Duration
	tr      twi.Transactor
}

func (c *GobotConnection) send(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.tr.Send(ctx, c.address, data)
}

func (c *GobotConnection) receive(buf []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.tr.Receive(ctx, c.address, buf)
}

func (c *GobotConnection) readRegister(reg uint8, buf []byte) error {
	err := c.send([]byte{reg})
	if err != nil {
		return fmt.Errorf("could not select register 0x%02x: %w", reg, err)
	}
	return c.receive(buf)
}

func (c *GobotConnection) Read(b []byte) (int, error) {
	err := c.receive(b)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *GobotConnection) Write(b []byte) (int, error) {
	err := c.send(b)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *GobotConnection) Close() error {
	return nil
}

func (c *GobotConnection) ReadByte() (byte, error) {
	buf := []byte{0}
	err := c.receive(buf)
	return buf[0], err
}

func (c *GobotConnection) ReadByteData(reg uint8) (uint8, error) {
	buf := []byte{0}
	err := c.readRegister(reg, buf)
	return buf[0], err
}

// ReadWordData reads a little endian word as SMBus does.
func (c *GobotConnection) ReadWordData(reg uint8) (uint16, error) {
	buf := []byte{0, 0}
	err := c.readRegister(reg, buf)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (c *GobotConnection) ReadBlockData(reg uint8, b []byte) error {
	return c.readRegister(reg, b)
}

func (c *GobotConnection) WriteByte(val byte) error {
	return c.send([]byte{val})
}

func (c *GobotConnection) WriteByteData(reg uint8, val uint8) error {
	return c.send([]byte{reg, val})
}

func (c *GobotConnection) WriteWordData(reg uint8, val uint16) error {
	buf := []byte{reg, 0, 0}
	binary.LittleEndian.PutUint16(buf[1:], val)
	return c.send(buf)
}

func (c *GobotConnection) WriteBlockData(reg uint8, b []byte) error {
	return c.send(append([]byte{reg}, b...))
}

func (c *GobotConnection) WriteBytes(b []byte) error {
	return c.send(b)
}
