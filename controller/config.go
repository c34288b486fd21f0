package controller

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/twi"
	"github.com/mklimuk/twi/protocol"
)

const (
	DefaultClockRate  = 200 * physic.KiloHertz
	DefaultCPUClock   = 16 * physic.MegaHertz
	DefaultBufferSize = 32
)

// Frequency is a physic.Frequency readable from yaml as "200kHz".
type Frequency struct {
	physic.Frequency
}

func (f *Frequency) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("could not decode frequency: %w", err)
	}
	return f.Set(s)
}

func (f Frequency) MarshalYAML() (interface{}, error) {
	return f.String(), nil
}

type SlaveConfig struct {
	Address   byte             `yaml:"address"`
	Broadcast bool             `yaml:"broadcast"`
	Receive   twi.ReceiveFunc  `yaml:"-"`
	Transmit  twi.TransmitFunc `yaml:"-"`
}

type Config struct {
	ClockRate  Frequency    `yaml:"clock_rate"`
	CPUClock   Frequency    `yaml:"cpu_clock"`
	BufferSize int          `yaml:"buffer_size"`
	MaxTries   int          `yaml:"max_tries"`
	Slave      *SlaveConfig `yaml:"slave,omitempty"`
	Logger     *slog.Logger `yaml:"-"`
}

type Option func(*Config)

func DefaultConfig() Config {
	return Config{
		ClockRate:  Frequency{DefaultClockRate},
		CPUClock:   Frequency{DefaultCPUClock},
		BufferSize: DefaultBufferSize,
		MaxTries:   protocol.DefaultMaxTries,
	}
}

// WithConfig replaces the whole configuration, typically one read with LoadConfig.
// Options given after it still apply.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithClockRate(rate physic.Frequency) Option {
	return func(c *Config) {
		c.ClockRate = Frequency{rate}
	}
}

func WithBufferSize(size int) Option {
	return func(c *Config) {
		c.BufferSize = size
	}
}

func WithMaxTries(tries int) Option {
	return func(c *Config) {
		c.MaxTries = tries
	}
}

// WithSlave makes the peripheral answer to address (and to broadcasts when
// broadcast is set). Without it the controller is master only. The handlers
// run inside Interrupt and must not start master transactions.
func WithSlave(address byte, broadcast bool, receive twi.ReceiveFunc, transmit twi.TransmitFunc) Option {
	return func(c *Config) {
		c.Slave = &SlaveConfig{
			Address:   address,
			Broadcast: broadcast,
			Receive:   receive,
			Transmit:  transmit,
		}
	}
}

// LoadConfig reads a yaml configuration on top of the defaults. An empty file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("could not open config: %w", err)
	}
	defer func() { _ = f.Close() }()
	err = yaml.NewDecoder(f).Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("could not decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration and computes the peripheral setup.
func (c Config) Validate() (twi.Setup, error) {
	var setup twi.Setup
	if c.BufferSize < 1 || c.BufferSize > protocol.MaxBufferSize {
		return setup, fmt.Errorf("buffer size %d out of range [1, %d]: %w", c.BufferSize, protocol.MaxBufferSize, twi.ErrBadParameter)
	}
	if c.MaxTries < 1 {
		return setup, fmt.Errorf("max tries must be positive, got %d: %w", c.MaxTries, twi.ErrBadParameter)
	}
	rate, err := BitRate(c.CPUClock.Frequency, c.ClockRate.Frequency)
	if err != nil {
		return setup, err
	}
	setup.BitRate = rate
	if c.Slave != nil {
		if c.Slave.Address == 0 || c.Slave.Address > 0x7f {
			return setup, fmt.Errorf("slave address 0x%02x out of range: %w", c.Slave.Address, twi.ErrBadParameter)
		}
		setup.Slave = true
		setup.Address = c.Slave.Address
		setup.Broadcast = c.Slave.Broadcast
	}
	return setup, nil
}

// BitRate computes the bit rate register value for the requested bus clock
// with a prescaler of 1: ((cpu / scl) - 16) / 2.
func BitRate(cpu, scl physic.Frequency) (byte, error) {
	if scl <= 0 || cpu <= 0 {
		return 0, fmt.Errorf("clock rates must be positive: %w", twi.ErrBadParameter)
	}
	ratio := int64(cpu / scl)
	if ratio < 16 {
		return 0, fmt.Errorf("bus clock %s too fast for cpu clock %s: %w", scl, cpu, twi.ErrBadParameter)
	}
	rate := (ratio - 16) / 2
	if rate > 0xff {
		return 0, fmt.Errorf("bus clock %s too slow for cpu clock %s: %w", scl, cpu, twi.ErrBadParameter)
	}
	return byte(rate), nil
}
