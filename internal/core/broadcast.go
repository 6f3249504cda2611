package core

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// DeliveryError reports a failed send to a single session.
type DeliveryError struct {
	SessionID SessionID
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.SessionID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SentTo int
	Failed []*DeliveryError
}

// Publish fans ev out to every member. A failed member never affects the others.
func Publish(members []MemberSession, ev Event) PublishResult {
	res := PublishResult{}
	frame, err := ev.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "core.broadcast").Str("event", string(ev.Type)).Msg("encode event")
		for _, m := range members {
			res.Failed = append(res.Failed, &DeliveryError{SessionID: m.ID(), Err: err})
		}
		return res
	}
	for _, m := range members {
		if err := send(m, frame); err != nil {
			res.Failed = append(res.Failed, err)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.broadcast").Str("event", string(ev.Type)).Int("sent_to", res.SentTo).Int("failed", len(res.Failed)).Msg("publish result")
	return res
}

// Unicast delivers ev to exactly one session.
func Unicast(m MemberSession, ev Event) error {
	frame, err := ev.Encode()
	if err != nil {
		return &DeliveryError{SessionID: m.ID(), Err: err}
	}
	if err := send(m, frame); err != nil {
		return err
	}
	return nil
}

// UnicastFinal delivers the last event a session will get from its room.
// It uses FinalSender when the connection has it. A connection that stays
// backpressured is closed, so the client sees a close instead of waiting.
func UnicastFinal(m MemberSession, ev Event) error {
	frame, err := ev.Encode()
	if err != nil {
		return &DeliveryError{SessionID: m.ID(), Err: err}
	}
	sig := m.Signal()
	if sig == nil {
		return &DeliveryError{SessionID: m.ID(), Err: ErrConnClosed}
	}
	if fs, ok := sig.(FinalSender); ok {
		err = fs.SendFinal(frame)
	} else {
		err = sig.TrySend(frame)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBackpressure) {
		log.Warn().Str("module", "core.broadcast").Str("sid", string(m.ID())).Str("event", string(ev.Type)).Msg("final event backpressured, closing connection")
		sig.Close()
	}
	return &DeliveryError{SessionID: m.ID(), Err: err}
}

func send(m MemberSession, frame Frame) *DeliveryError {
	sig := m.Signal()
	if sig == nil {
		return &DeliveryError{SessionID: m.ID(), Err: ErrConnClosed}
	}
	if err := sig.TrySend(frame); err != nil {
		return &DeliveryError{SessionID: m.ID(), Err: err}
	}
	return nil
}
