package orch

import (
	"context"
	"errors"

	"github.com/dkeye/talkabout/internal/app"
	"github.com/dkeye/talkabout/internal/app/waitroom"
	"github.com/dkeye/talkabout/internal/core"
	"github.com/dkeye/talkabout/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator ties connected sessions to waiting rooms.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *waitroom.Registry
	Slots    core.SlotDirectory
}

// CheckSlot is the room-not-found path: it fails for unknown slots and for
// slots whose room already launched.
func (o *Orchestrator) CheckSlot(ctx context.Context, slot domain.SlotID) error {
	if o.Rooms.Launched(slot) {
		return waitroom.ErrRoomClosed
	}
	if _, err := o.Slots.LookupSlot(ctx, slot); err != nil {
		return &domain.LookupError{Slot: slot, Err: err}
	}
	return nil
}

// Connect binds a freshly opened session. A previous session under the same
// sid is cancelled and leaves its room first.
func (o *Orchestrator) Connect(ctx context.Context, sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	if slot, _, ok := o.Registry.SlotOf(sid); ok {
		o.leaveRoom(ctx, sid, slot)
	}
	if _, replaced := o.Registry.BindSession(sid, sess, cancel); replaced {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("replaced previous connection")
	}
}

func (o *Orchestrator) OnDisconnect(ctx context.Context, sid core.SessionID, sess core.MemberSession) {
	cur, ok := o.Registry.GetSession(sid)
	if !ok || cur != sess {
		return
	}
	if slot, _, ok := o.Registry.SlotOf(sid); ok {
		o.leaveRoom(ctx, sid, slot)
	}
	o.Registry.Unbind(sid, sess)
}

func (o *Orchestrator) leaveRoom(ctx context.Context, sid core.SessionID, slot domain.SlotID) {
	if room, ok := o.Rooms.Lookup(slot); ok {
		if err := room.Leave(ctx, sid); err != nil && !errors.Is(err, waitroom.ErrRoomClosed) && !errors.Is(err, waitroom.ErrNotMember) {
			log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("slot", string(slot)).Msg("leave room")
		}
	}
	o.Registry.ClearSlot(sid)
}

// Info is what a session learns about itself from whoami.
type Info struct {
	SID         core.SessionID       `json:"sid"`
	Participant domain.ParticipantID `json:"participant,omitempty"`
	Slot        domain.SlotID        `json:"slot,omitempty"`
	State       string               `json:"state,omitempty"`
	Remaining   int                  `json:"remaining,omitempty"`
}

func (o *Orchestrator) WhoAmI(sid core.SessionID) (Info, error) {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return Info{}, app.ErrSessionNotBound
	}
	info := Info{SID: sid, Participant: sess.Meta().Participant}
	if slot, _, ok := o.Registry.SlotOf(sid); ok {
		info.Slot = slot
		if room, ok := o.Rooms.Lookup(slot); ok {
			ri := room.Info()
			info.State = ri.State.String()
			info.Remaining = ri.Remaining
		} else {
			info.State = waitroom.StateClosed.String()
		}
	}
	return info, nil
}
