package waitroom

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/talkabout/internal/core"
	"github.com/dkeye/talkabout/internal/domain"
	"github.com/dkeye/talkabout/internal/store/memory"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	frames  []core.Frame
	failErr error
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return c.failErr
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failErr = err
}

func (c *fakeConn) events(t *testing.T) []core.Event {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Event, 0, len(c.frames))
	for _, f := range c.frames {
		var ev core.Event
		require.NoError(t, json.Unmarshal(f, &ev))
		out = append(out, ev)
	}
	return out
}

func (c *fakeConn) ofType(t *testing.T, typ core.EventType) []core.Event {
	t.Helper()
	var out []core.Event
	for _, ev := range c.events(t) {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) ticks(t *testing.T) []int {
	t.Helper()
	var out []int
	for _, ev := range c.ofType(t, core.EventCountdownTick) {
		out = append(out, ev.Remaining)
	}
	return out
}

// boundedConn holds at most size frames and is never drained, like a client
// that stopped reading.
type boundedConn struct {
	fakeConn
	size   int
	closed bool
}

func (c *boundedConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if len(c.frames) >= c.size {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *boundedConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *boundedConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// evictingConn is a boundedConn that drops its oldest frame for a final one.
type evictingConn struct{ boundedConn }

func (c *evictingConn) SendFinal(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if len(c.frames) >= c.size {
		c.frames = c.frames[1:]
	}
	c.frames = append(c.frames, f)
	return nil
}

func newSession(sid string, participant domain.ParticipantID) (core.MemberSession, *fakeConn) {
	conn := &fakeConn{}
	return core.NewMemberSession(core.SessionID(sid), domain.NewMember(participant), conn), conn
}

// seqMinter mints predictable destinations.
type seqMinter struct {
	mu sync.Mutex
	n  int
}

func (m *seqMinter) Mint(slot domain.SlotID, group int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	return fmt.Sprintf("call://%s/g%d/%d", slot, group, m.n)
}

func (m *seqMinter) minted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.n
}

func testSettings() Settings {
	return Settings{
		Ticks:         3,
		Interval:      25 * time.Millisecond,
		AutoStart:     true,
		LookupTimeout: time.Second,
		LookupRetries: 0,
		RetryDelay:    time.Millisecond,
	}
}

func newTestRegistry(t *testing.T, dir core.SlotDirectory, s Settings) (*Registry, *seqMinter) {
	t.Helper()
	minter := &seqMinter{}
	reg := NewRegistry(context.Background(), dir, WithSettings(s), WithMinter(minter))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = reg.Shutdown(ctx)
	})
	return reg, minter
}

func storeWithSlot(slot domain.SlotID, capacity int, enrolled ...domain.ParticipantID) *memory.Store {
	s := memory.New()
	s.PutSlot(slot, capacity)
	_ = s.Enroll(slot, enrolled...)
	return s
}

func waitDone(t *testing.T, room *Room) {
	t.Helper()
	select {
	case <-room.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("room %s did not close", room.Slot())
	}
}
