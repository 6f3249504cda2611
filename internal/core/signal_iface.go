package core

import "errors"

// Frame is a raw encoded payload.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// FinalSender is implemented by connections that can guarantee delivery of a
// session's last frame, dropping queued frames to make room for it.
type FinalSender interface {
	SendFinal(Frame) error
}
