package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	KindMemory    = "memory"
	KindResponder = "responder"
)

// DeviceSpec describes a device attached to a simulated bus.
type DeviceSpec struct {
	Address      byte   `yaml:"address"`
	Kind         string `yaml:"kind"`
	Size         int    `yaml:"size,omitempty"`
	Contents     []byte `yaml:"contents,omitempty"`
	AddressNacks int    `yaml:"address_nacks,omitempty"`
	Accept       *int   `yaml:"accept,omitempty"`
	Output       []byte `yaml:"output,omitempty"`
}

// Scenario is a yaml description of a simulated bus.
type Scenario struct {
	Devices           []DeviceSpec `yaml:"devices"`
	ArbitrationLosses int          `yaml:"arbitration_losses,omitempty"`
}

func LoadScenario(path string) (Scenario, error) {
	var s Scenario
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("could not read scenario: %w", err)
	}
	err = yaml.Unmarshal(data, &s)
	if err != nil {
		return s, fmt.Errorf("could not decode scenario %s: %w", path, err)
	}
	return s, nil
}

// Build creates the bus described by the scenario.
func (s Scenario) Build(opts ...Option) (*Bus, error) {
	all := make([]Option, 0, len(s.Devices)+len(opts)+1)
	for i, dev := range s.Devices {
		d, err := dev.Build()
		if err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}
		all = append(all, WithDevice(d))
	}
	all = append(all, WithArbitrationLosses(s.ArbitrationLosses))
	all = append(all, opts...)
	return New(all...), nil
}

func (d DeviceSpec) Build() (Device, error) {
	if d.Address == 0 || d.Address > 0x7f {
		return nil, fmt.Errorf("invalid device address 0x%02x", d.Address)
	}
	switch d.Kind {
	case KindMemory, "":
		m := NewMemory(d.Address, d.Size)
		if len(d.Contents) > len(m.mem) {
			return nil, fmt.Errorf("contents do not fit in %d bytes", len(m.mem))
		}
		m.Load(0, d.Contents)
		return m, nil
	case KindResponder:
		accept := -1
		if d.Accept != nil {
			accept = *d.Accept
		}
		return &Responder{
			Addr:         d.Address,
			AddressNacks: d.AddressNacks,
			Accept:       accept,
			Output:       append([]byte(nil), d.Output...),
		}, nil
	default:
		return nil, fmt.Errorf("unknown device kind %q", d.Kind)
	}
}
