package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/talkabout/internal/app/orch"
	"github.com/dkeye/talkabout/internal/app/waitroom"
	"github.com/dkeye/talkabout/internal/core"
	"github.com/dkeye/talkabout/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Options tune a single signalling connection.
type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
	RateLimit  rate.Limit
	RateBurst  int
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:  32768,
		PingPeriod: 54 * time.Second,
		SendBuffer: 32,
		RateLimit:  5,
		RateBurst:  10,
	}
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Opts    Options
	limiter *SignalRateLimiter
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 1
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = DefaultOptions().PingPeriod
	}
	return &SignalWSController{
		Orch:    o,
		Opts:    opts,
		limiter: NewSignalRateLimiter(opts.RateLimit, opts.RateBurst),
	}
}

// WsSignalConn is the core.SignalConnection of one websocket. Frames are
// queued on send and written by writePump; a full queue is backpressure.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, buffer),
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

// SendFinal queues f even when the buffer is full by dropping the oldest
// queued frames. The write lock keeps other senders out while it makes room.
func (c *WsSignalConn) SendFinal(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	for {
		select {
		case c.send <- f:
			return nil
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

// Close stops accepting frames. writePump flushes what is queued and then
// closes the socket.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and joins the socket to slot's waiting
// room. The slot is expected to have passed Orchestrator.CheckSlot already.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, slot domain.SlotID, participant domain.ParticipantID) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("slot", string(slot)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.Opts.SendBuffer)
	sess := core.NewMemberSession(sid, domain.NewMember(participant), conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Connect(ctx, sid, sess, cancel)

	go ctl.writePump(ctx, conn)
	if err := ctl.Orch.Join(ctx, sid, slot); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("slot", string(slot)).Msg("join failed")
		ctl.sendError(conn, joinErrorCode(err))
	}
	go ctl.readPump(ctx, sid, sess, conn, cancel)
}

func joinErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrSlotNotFound):
		return "slot_not_found"
	case errors.Is(err, waitroom.ErrRoomClosed), errors.Is(err, waitroom.ErrRegistryClosed):
		return "room_closed"
	default:
		return "join_failed"
	}
}
