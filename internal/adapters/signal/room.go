package signal

import (
	"context"
	"errors"

	"github.com/dkeye/talkabout/internal/app"
	"github.com/dkeye/talkabout/internal/app/waitroom"
	"github.com/dkeye/talkabout/internal/core"
	"github.com/rs/zerolog/log"
)

// handleReady is the participant-ready signal. Repeats are harmless; the
// room starts its countdown once.
func (ctl *SignalWSController) handleReady(ctx context.Context, sid core.SessionID, conn *WsSignalConn) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("ready")
	err := ctl.Orch.Ready(ctx, sid)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrSessionNotBound), errors.Is(err, waitroom.ErrNotMember):
		ctl.sendError(conn, "not_in_room")
	case errors.Is(err, waitroom.ErrRoomClosed):
		ctl.sendError(conn, "room_closed")
	default:
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("ready")
		ctl.sendError(conn, "ready_failed")
	}
}

// handleLeave takes the session out of its room; the connection stays open.
func (ctl *SignalWSController) handleLeave(ctx context.Context, sid core.SessionID, conn *WsSignalConn) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	if !ctl.Orch.Leave(ctx, sid) {
		ctl.sendError(conn, "not_in_room")
		return
	}
	ctl.sendJSON(conn, map[string]any{
		"type": "left",
	})
}
