package waitroom

import "github.com/dkeye/talkabout/internal/domain"

// State is a room lifecycle stage. States only move forward.
type State int32

const (
	StateEmpty State = iota
	StateWaiting
	StateCountingDown
	StateLaunching
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateWaiting:
		return "waiting"
	case StateCountingDown:
		return "counting_down"
	case StateLaunching:
		return "launching"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// RoomInfo is a read-only view for APIs.
type RoomInfo struct {
	Slot        domain.SlotID `json:"slot"`
	State       State         `json:"state"`
	MemberCount int           `json:"member_count"`
	Remaining   int           `json:"remaining"`
}
