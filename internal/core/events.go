package core

import "encoding/json"

type EventType string

const (
	EventConnectionAck EventType = "connection_ack"
	EventCountdownTick EventType = "countdown_tick"
	EventCallReady     EventType = "call_ready"
	EventError         EventType = "error"
	EventPong          EventType = "pong"
)

// Event is the outbound wire message. Unused fields are omitted.
type Event struct {
	Type        EventType `json:"type"`
	Message     string    `json:"message,omitempty"`
	Remaining   int       `json:"remaining,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Error       string    `json:"error,omitempty"`
}

func ConnectionAck(msg string) Event { return Event{Type: EventConnectionAck, Message: msg} }

func CountdownTick(remaining int) Event {
	return Event{Type: EventCountdownTick, Remaining: remaining}
}

func CallReady(dest string) Event { return Event{Type: EventCallReady, Destination: dest} }

func ErrorEvent(msg string) Event { return Event{Type: EventError, Error: msg} }

func (e Event) Encode() (Frame, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}
