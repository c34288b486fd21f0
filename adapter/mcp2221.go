// Package adapter connects the two-wire vocabulary of this module with other
// worlds: a USB-to-I2C bridge performing master transactions, and facades
// presenting any twi.Transactor as a periph.io or gobot bus.
package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/twi"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

// MaxMCP2221Transfer is the largest payload fitting a single report.
const MaxMCP2221Transfer = 60

const reportSize = 64

const (
	cmdStatus     = 0x10
	cmdWriteData  = 0x90
	cmdReadData   = 0x91
	cmdGetData    = 0x40
	cancelTransfer = 0x10
)

var ErrCommandFailed = errors.New("command failed")

var _ twi.Transactor = &MCP2221{}

type device interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

type opener func() (device, error)

type MCP2221 struct {
	mx           sync.Mutex
	open         opener
	request      []byte
	response     []byte
	responseWait time.Duration
	log          *slog.Logger
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

// Detect lists the MCP2221 bridges plugged in.
func Detect() []hid.DeviceInfo {
	return hid.Enumerate(VendorID, ProductID)
}

// NewMCP2221 talks to the bridge with index id among the detected ones; with
// no id there must be exactly one.
func NewMCP2221(id ...int) *MCP2221 {
	return newMCP2221(func() (device, error) {
		return openHID(id...)
	})
}

func newMCP2221(open opener) *MCP2221 {
	return &MCP2221{
		open:         open,
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: 50 * time.Millisecond,
		log:          slog.Default(),
	}
}

func (d *MCP2221) Send(ctx context.Context, address byte, data []byte) error {
	if err := checkTransfer(address, len(data)); err != nil {
		return fmt.Errorf("write to 0x%02x failed: %w", address, err)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdWriteData
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(data)))
	d.request[3] = twi.Address(address, false)
	copy(d.request[4:], data)
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("write to 0x%02x failed: %w", address, err)
	}
	// write could not be performed
	if d.response[1] == 0x01 {
		d.log.Debug("adapter busy")
		return twi.ErrBusy
	}
	return nil
}

func (d *MCP2221) Receive(ctx context.Context, address byte, buffer []byte) error {
	if err := checkTransfer(address, len(buffer)); err != nil {
		return fmt.Errorf("read from 0x%02x failed: %w", address, err)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdReadData
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = twi.Address(address, true)
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("bus read from 0x%02x failed: %w", address, err)
	}
	if d.response[1] == 0x01 {
		d.log.Debug("adapter busy")
		return twi.ErrBusy
	}
	d.resetBuffers()
	d.request[0] = cmdGetData
	err = d.send(ctx)
	if err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == 0x41 {
		return fmt.Errorf("error reading the I2C slave data from the I2C engine: %w", twi.ErrUnknown)
	}
	if d.response[3] == 127 || int(d.response[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d: %w", len(buffer), d.response[3], twi.ErrUnknown)
	}
	copy(buffer, d.response[4:])
	return nil
}

func checkTransfer(address byte, length int) error {
	if address > 0x7f {
		return fmt.Errorf("address out of range: %w", twi.ErrBadParameter)
	}
	if length < 1 || length > MaxMCP2221Transfer {
		return fmt.Errorf("length %d out of range [1, %d]: %w", length, MaxMCP2221Transfer, twi.ErrBadParameter)
	}
	return nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
	*/
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

// ReleaseBus cancels the transfer the bridge is stuck in and frees the bus.
func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	d.request[2] = cancelTransfer
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) send(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dev, err := d.open()
	if err != nil {
		return err
	}
	defer func() {
		err := dev.Close()
		if err != nil {
			d.log.Warn("could not close adapter", "error", err)
		}
	}()
	d.log.Debug("sending message to adapter", "report", hex.EncodeToString(d.request))
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.responseWait):
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	d.log.Debug("read message from adapter", "report", hex.EncodeToString(d.response))
	if d.response[0] != d.request[0] {
		return fmt.Errorf("response to command 0x%02x, expected 0x%02x: %w", d.response[0], d.request[0], ErrCommandFailed)
	}
	return nil
}

func openHID(id ...int) (device, error) {
	devs := Detect()
	if len(devs) > 1 && len(id) == 0 {
		return nil, fmt.Errorf("ambiguous device identification")
	}
	if len(devs) == 0 {
		return nil, fmt.Errorf("MCP2221 device not found")
	}
	index := 0
	if len(id) > 0 {
		index = id[0]
	}
	if index < 0 || index >= len(devs) {
		return nil, fmt.Errorf("no device with id %d", index)
	}
	dev, err := devs[index].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

func (d *MCP2221) resetBuffers() {
	resetBuffer(d.request)
	resetBuffer(d.response)
}

func resetBuffer(buf []byte) {
	for i := range buf {
		buf[i] = 0x00
	}
}
