package signal

import (
	"github.com/dkeye/talkabout/internal/app/orch"
	"github.com/dkeye/talkabout/internal/core"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleWhoAmI(sid core.SessionID, conn *WsSignalConn) {
	info, err := ctl.Orch.WhoAmI(sid)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("whoami")
		ctl.sendError(conn, "unknown_session")
		return
	}
	resp := struct {
		Type string `json:"type"`
		orch.Info
	}{
		Type: "whoami",
		Info: info,
	}
	ctl.sendJSON(conn, resp)
}
