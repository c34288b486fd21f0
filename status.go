package twi

import "fmt"

// Status is the code reported by the peripheral for every bus event.
type Status byte

const (
	StatusBusError Status = 0x00
	StatusStart    Status = 0x08
	StatusRepStart Status = 0x10

	StatusMTAddrAck  Status = 0x18
	StatusMTAddrNack Status = 0x20
	StatusMTDataAck  Status = 0x28
	StatusMTDataNack Status = 0x30
	StatusArbLost    Status = 0x38
	StatusMRAddrAck  Status = 0x40
	StatusMRAddrNack Status = 0x48
	StatusMRDataAck  Status = 0x50
	StatusMRDataNack Status = 0x58

	StatusSRAddrAck             Status = 0x60
	StatusSRArbLostAddrAck      Status = 0x68
	StatusSRBroadcastAck        Status = 0x70
	StatusSRArbLostBroadcastAck Status = 0x78
	StatusSRDataAck             Status = 0x80
	StatusSRDataNack            Status = 0x88
	StatusSRBroadcastDataAck    Status = 0x90
	StatusSRBroadcastDataNack   Status = 0x98
	StatusSRStop                Status = 0xA0

	StatusSTAddrAck        Status = 0xA8
	StatusSTArbLostAddrAck Status = 0xB0
	StatusSTDataAck        Status = 0xB8
	StatusSTDataNack       Status = 0xC0
	StatusSTLastData       Status = 0xC8

	StatusNoInfo Status = 0xF8
)

// Class groups status codes by the role that has to handle them.
type Class int

const (
	ClassUnknown Class = iota
	ClassStart
	ClassMasterTransmit
	ClassMasterReceive
	ClassArbitrationLost
	ClassSlaveReceive
	ClassSlaveTransmit
)

var classNames = map[Class]string{
	ClassUnknown:         "unknown",
	ClassStart:           "start",
	ClassMasterTransmit:  "master-transmit",
	ClassMasterReceive:   "master-receive",
	ClassArbitrationLost: "arbitration-lost",
	ClassSlaveReceive:    "slave-receive",
	ClassSlaveTransmit:   "slave-transmit",
}

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("class(%d)", int(c))
}

var statusNames = map[Status]string{
	StatusBusError:              "BUS_ERROR",
	StatusStart:                 "START",
	StatusRepStart:              "REP_START",
	StatusMTAddrAck:             "MT_SLA_ACK",
	StatusMTAddrNack:            "MT_SLA_NACK",
	StatusMTDataAck:             "MT_DATA_ACK",
	StatusMTDataNack:            "MT_DATA_NACK",
	StatusArbLost:               "ARB_LOST",
	StatusMRAddrAck:             "MR_SLA_ACK",
	StatusMRAddrNack:            "MR_SLA_NACK",
	StatusMRDataAck:             "MR_DATA_ACK",
	StatusMRDataNack:            "MR_DATA_NACK",
	StatusSRAddrAck:             "SR_SLA_ACK",
	StatusSRArbLostAddrAck:      "SR_ARB_LOST_SLA_ACK",
	StatusSRBroadcastAck:        "SR_GCALL_ACK",
	StatusSRArbLostBroadcastAck: "SR_ARB_LOST_GCALL_ACK",
	StatusSRDataAck:             "SR_DATA_ACK",
	StatusSRDataNack:            "SR_DATA_NACK",
	StatusSRBroadcastDataAck:    "SR_GCALL_DATA_ACK",
	StatusSRBroadcastDataNack:   "SR_GCALL_DATA_NACK",
	StatusSRStop:                "SR_STOP",
	StatusSTAddrAck:             "ST_SLA_ACK",
	StatusSTArbLostAddrAck:      "ST_ARB_LOST_SLA_ACK",
	StatusSTDataAck:             "ST_DATA_ACK",
	StatusSTDataNack:            "ST_DATA_NACK",
	StatusSTLastData:            "ST_LAST_DATA",
	StatusNoInfo:                "NO_INFO",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(0x%02x)", byte(s))
}

// Class returns the role a status code belongs to. Bus errors, "no info" and
// codes the peripheral never produces are ClassUnknown.
func (s Status) Class() Class {
	switch s {
	case StatusStart, StatusRepStart:
		return ClassStart
	case StatusMTAddrAck, StatusMTAddrNack, StatusMTDataAck, StatusMTDataNack:
		return ClassMasterTransmit
	case StatusMRAddrAck, StatusMRAddrNack, StatusMRDataAck, StatusMRDataNack:
		return ClassMasterReceive
	case StatusArbLost:
		return ClassArbitrationLost
	case StatusSRAddrAck, StatusSRArbLostAddrAck, StatusSRBroadcastAck, StatusSRArbLostBroadcastAck,
		StatusSRDataAck, StatusSRDataNack, StatusSRBroadcastDataAck, StatusSRBroadcastDataNack, StatusSRStop:
		return ClassSlaveReceive
	case StatusSTAddrAck, StatusSTArbLostAddrAck, StatusSTDataAck, StatusSTDataNack, StatusSTLastData:
		return ClassSlaveTransmit
	default:
		return ClassUnknown
	}
}
