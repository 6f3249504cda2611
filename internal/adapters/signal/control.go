package signal

import "github.com/dkeye/talkabout/internal/core"

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendEvent(conn, core.Event{Type: core.EventPong})
}
