package core

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/talkabout/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	mu     sync.Mutex
	frames []Frame
	err    error
}

func (c *recordingConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *recordingConn) Close() {}

func (c *recordingConn) events(t *testing.T) []Event {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, 0, len(c.frames))
	for _, f := range c.frames {
		var ev Event
		require.NoError(t, json.Unmarshal(f, &ev))
		out = append(out, ev)
	}
	return out
}

func newMember(sid string, conn SignalConnection) MemberSession {
	return NewMemberSession(SessionID(sid), domain.NewMember(""), conn)
}

func TestPublish(t *testing.T) {
	t.Run("delivers to every member", func(t *testing.T) {
		a, b := &recordingConn{}, &recordingConn{}
		res := Publish([]MemberSession{newMember("a", a), newMember("b", b)}, CountdownTick(3))

		assert.Equal(t, 2, res.SentTo)
		assert.Empty(t, res.Failed)
		assert.Equal(t, []Event{CountdownTick(3)}, a.events(t))
		assert.Equal(t, []Event{CountdownTick(3)}, b.events(t))
	})

	t.Run("stale member does not affect others", func(t *testing.T) {
		good := &recordingConn{}
		stale := &recordingConn{err: ErrConnClosed}
		res := Publish([]MemberSession{newMember("stale", stale), newMember("good", good)}, CountdownTick(1))

		assert.Equal(t, 1, res.SentTo)
		require.Len(t, res.Failed, 1)
		assert.Equal(t, SessionID("stale"), res.Failed[0].SessionID)
		assert.True(t, errors.Is(res.Failed[0], ErrConnClosed))
		assert.Len(t, good.events(t), 1)
	})

	t.Run("nil signal is a delivery failure", func(t *testing.T) {
		res := Publish([]MemberSession{newMember("x", nil)}, CountdownTick(1))
		assert.Equal(t, 0, res.SentTo)
		require.Len(t, res.Failed, 1)
	})

	t.Run("no members", func(t *testing.T) {
		res := Publish(nil, CountdownTick(1))
		assert.Equal(t, PublishResult{}, res)
	})
}

func TestUnicast(t *testing.T) {
	conn := &recordingConn{}
	require.NoError(t, Unicast(newMember("a", conn), CallReady("https://meet.example/x")))
	assert.Equal(t, []Event{{Type: EventCallReady, Destination: "https://meet.example/x"}}, conn.events(t))

	err := Unicast(newMember("b", &recordingConn{err: ErrBackpressure}), ConnectionAck("hi"))
	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, SessionID("b"), de.SessionID)
	assert.ErrorIs(t, err, ErrBackpressure)
}

func TestEventEncodeOmitsUnusedFields(t *testing.T) {
	f, err := CountdownTick(7).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"countdown_tick","remaining":7}`, string(f))

	f, err = ConnectionAck("welcome").Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"connection_ack","message":"welcome"}`, string(f))
}

// fullConn is always backpressured unless it can send finals.
type fullConn struct {
	mu     sync.Mutex
	final  []Frame
	closed bool
}

func (c *fullConn) TrySend(Frame) error { return ErrBackpressure }

func (c *fullConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fullConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type finalConn struct{ fullConn }

func (c *finalConn) SendFinal(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.final = append(c.final, f)
	return nil
}

func TestUnicastFinal(t *testing.T) {
	t.Run("uses the final path when the connection has one", func(t *testing.T) {
		conn := &finalConn{}
		require.NoError(t, UnicastFinal(newMember("a", conn), CallReady("call://x")))

		require.Len(t, conn.final, 1)
		var ev Event
		require.NoError(t, json.Unmarshal(conn.final[0], &ev))
		assert.Equal(t, CallReady("call://x"), ev)
		assert.False(t, conn.isClosed())
	})

	t.Run("closes a backpressured connection", func(t *testing.T) {
		conn := &fullConn{}
		err := UnicastFinal(newMember("a", conn), CallReady("call://x"))

		var de *DeliveryError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, SessionID("a"), de.SessionID)
		assert.ErrorIs(t, err, ErrBackpressure)
		assert.True(t, conn.isClosed())
	})

	t.Run("closed connection is reported, not closed again", func(t *testing.T) {
		conn := &recordingConn{err: ErrConnClosed}
		err := UnicastFinal(newMember("a", conn), CallReady("call://x"))
		assert.ErrorIs(t, err, ErrConnClosed)
	})
}
