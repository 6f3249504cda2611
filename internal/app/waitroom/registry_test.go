package waitroom

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/talkabout/internal/core"
	"github.com/dkeye/talkabout/internal/domain"
	"github.com/dkeye/talkabout/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreateConcurrent(t *testing.T) {
	reg, _ := newTestRegistry(t, memory.New(), testSettings())

	const n = 64
	rooms := make([]*Room, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rooms[i] = reg.GetOrCreate("5")
		}()
	}
	wg.Wait()

	for _, r := range rooms {
		assert.Same(t, rooms[0], r)
	}
	assert.EqualValues(t, 1, reg.Stats().RoomsCreated)
	assert.Equal(t, 1, reg.Stats().RoomsActive)
	assert.Equal(t, StateEmpty, rooms[0].Info().State)
}

func TestRegistryList(t *testing.T) {
	s := testSettings()
	s.AutoStart = false
	reg, _ := newTestRegistry(t, memory.New(), s)
	sess, _ := newSession("s", "")

	reg.GetOrCreate("b")
	_, err := reg.Admit(context.Background(), "a", sess)
	require.NoError(t, err)

	assert.Equal(t, []RoomInfo{
		{Slot: "a", State: StateWaiting, MemberCount: 1},
		{Slot: "b", State: StateEmpty},
	}, reg.List())
}

func TestRegistryEvict(t *testing.T) {
	s := testSettings()
	s.AutoStart = false
	reg, _ := newTestRegistry(t, storeWithSlot("1", 4), s)
	sess, conn := newSession("s", "")

	room, err := reg.Admit(context.Background(), "1", sess)
	require.NoError(t, err)

	assert.True(t, reg.Evict("1"))
	assert.False(t, reg.Evict("1"))
	assert.Equal(t, StateClosed, room.Info().State)
	assert.False(t, reg.Launched("1"), "evicted rooms can be recreated")

	events := conn.events(t)
	require.Len(t, events, 2)
	assert.Equal(t, core.ErrorEvent("room_closed"), events[1])
	assert.Empty(t, conn.ofType(t, core.EventCallReady))
}

func TestRegistryShutdown(t *testing.T) {
	s := testSettings()
	s.Interval = time.Hour
	reg := NewRegistry(context.Background(), storeWithSlot("1", 4), WithSettings(s))
	sess, _ := newSession("s", "")

	room, err := reg.Admit(context.Background(), "1", sess)
	require.NoError(t, err)
	assert.Equal(t, StateCountingDown, room.Info().State)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
	waitDone(t, room)
	assert.Zero(t, reg.Stats().Launches)

	_, err = reg.Admit(context.Background(), "1", sess)
	assert.ErrorIs(t, err, ErrRegistryClosed)
	assert.Equal(t, StateClosed, reg.GetOrCreate("2").Info().State)
}

func TestRegistryDefaultsClampTicks(t *testing.T) {
	s := testSettings()
	s.Ticks = 0
	reg, _ := newTestRegistry(t, storeWithSlot("1", 4), s)
	sess, conn := newSession("s", "")

	room, err := reg.Admit(context.Background(), "1", sess)
	require.NoError(t, err)
	waitDone(t, room)
	assert.Equal(t, []int{1}, conn.ticks(t))
}

func TestJitsiMinter(t *testing.T) {
	m := NewJitsiMinter("https://meet.example.org/", "talkabout")
	m.Now = func() time.Time { return time.Unix(1700000000, 0) }
	m.Nonce = func() string { return "abcd1234" }

	assert.Equal(t, "https://meet.example.org/talkabout_12_1700000000_g1_abcd1234", m.Mint("12", 0))
	assert.Equal(t, "https://meet.example.org/talkabout_12_1700000000_g3_abcd1234", m.Mint(domain.SlotID("12"), 2))
	assert.Equal(t, "https://meet.example.org/talkabout_a%2Fb_1700000000_g1_abcd1234", m.Mint("a/b", 0))

	fresh := NewJitsiMinter("https://meet.example.org", "x")
	assert.NotEqual(t, fresh.Mint("1", 0), fresh.Mint("1", 0))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "counting_down", StateCountingDown.String())
	b, err := StateClosed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "closed", string(b))
	assert.Equal(t, "unknown", State(99).String())
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestRegistryForgetsLaunchedSlotsAfterTTL(t *testing.T) {
	s := testSettings()
	s.Ticks = 1
	s.LaunchedTTL = time.Hour
	dir := storeWithSlot("1", 4)
	dir.PutSlot("2", 4)
	reg, _ := newTestRegistry(t, dir, s)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	reg.now = clock.Now

	launch := func(slot domain.SlotID) {
		sess, _ := newSession("s-"+string(slot), "")
		room, err := reg.Admit(context.Background(), slot, sess)
		require.NoError(t, err)
		waitDone(t, room)
	}

	launch("1")
	require.True(t, reg.Launched("1"))
	_, err := reg.Admit(context.Background(), "1", core.NewMemberSession("late", domain.NewMember(""), &fakeConn{}))
	assert.ErrorIs(t, err, ErrRoomClosed)

	clock.Advance(2 * time.Hour)
	assert.False(t, reg.Launched("1"), "expired records no longer block the slot")

	launch("2")
	reg.mu.RLock()
	_, kept := reg.launched["1"]
	n := len(reg.launched)
	reg.mu.RUnlock()
	assert.False(t, kept, "expired records are pruned on the next launch")
	assert.Equal(t, 1, n)
}
