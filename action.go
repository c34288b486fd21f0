package twi

import "fmt"

// Action tells a slave handler which part of a session is being processed.
type Action byte

const (
	ActionStart Action = iota
	ActionBroadcastStart
	ActionData
	ActionEnd
	ActionMore
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionBroadcastStart:
		return "broadcast-start"
	case ActionData:
		return "data"
	case ActionEnd:
		return "end"
	case ActionMore:
		return "more"
	default:
		return fmt.Sprintf("action(%d)", byte(a))
	}
}

// ReceiveFunc handles sessions where a remote master writes to us. data is only
// meaningful for ActionData. The return value accepts or refuses a session and
// is ignored for the other actions.
type ReceiveFunc func(action Action, data byte) bool

// TransmitFunc handles sessions where a remote master reads from us. For
// ActionStart and ActionData it returns the byte to put on the bus; accept
// reports that more bytes follow this one.
type TransmitFunc func(action Action) (data byte, accept bool)
