package orch

import (
	"context"

	"github.com/dkeye/talkabout/internal/app"
	"github.com/dkeye/talkabout/internal/app/waitroom"
	"github.com/dkeye/talkabout/internal/core"
	"github.com/dkeye/talkabout/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join moves the session into slot's waiting room, leaving any other room first.
func (o *Orchestrator) Join(ctx context.Context, sid core.SessionID, slot domain.SlotID) error {
	current, _, ok := o.Registry.SlotOf(sid)
	if ok && current == slot {
		if _, live := o.Rooms.Lookup(slot); live {
			return nil
		}
	}
	if ok {
		o.leaveRoom(ctx, sid, current)
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_slot", string(current)).Msg("left previous room")
	}

	session, ok := o.Registry.GetSession(sid)
	if !ok {
		return app.ErrSessionNotBound
	}
	if err := o.CheckSlot(ctx, slot); err != nil {
		return err
	}
	if _, err := o.Rooms.Admit(ctx, slot, session); err != nil {
		return err
	}
	o.Registry.UpdateSlot(sid, slot)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("slot", string(slot)).Msg("joined waiting room")
	return nil
}

// Ready forwards the participant-ready signal to the session's room.
func (o *Orchestrator) Ready(ctx context.Context, sid core.SessionID) error {
	slot, _, ok := o.Registry.SlotOf(sid)
	if !ok {
		return app.ErrSessionNotBound
	}
	room, ok := o.Rooms.Lookup(slot)
	if !ok {
		return waitroom.ErrRoomClosed
	}
	return room.Ready(ctx, sid)
}

// Leave takes the session out of its room without closing the connection.
func (o *Orchestrator) Leave(ctx context.Context, sid core.SessionID) bool {
	slot, _, ok := o.Registry.SlotOf(sid)
	if !ok {
		return false
	}
	o.leaveRoom(ctx, sid, slot)
	return true
}

// EvictRoom tears a room down without launching and detaches its sessions.
func (o *Orchestrator) EvictRoom(slot domain.SlotID) bool {
	ok := o.Rooms.Evict(slot)
	for _, snap := range o.Registry.MembersOfSlot(slot) {
		o.Registry.ClearSlot(snap.SID)
	}
	return ok
}
