package waitroom

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/talkabout/internal/app"
	"github.com/dkeye/talkabout/internal/core"
	"github.com/dkeye/talkabout/internal/domain"
	"github.com/rs/zerolog/log"
)

// Option configures a Registry.
type Option func(*Registry)

func WithSettings(s Settings) Option {
	return func(g *Registry) { g.deps.settings = s }
}

func WithMinter(m Minter) Option {
	return func(g *Registry) { g.deps.minter = m }
}

func WithPolicy(p app.Policy) Option {
	return func(g *Registry) { g.deps.policy = p }
}

// Registry is the table of active waiting rooms keyed by slot. It is created
// at process start; rooms remove themselves when they close. Slots whose room
// launched stay recorded for Settings.LaunchedTTL so late connections get
// ErrRoomClosed instead of a fresh countdown.
type Registry struct {
	ctx    context.Context
	cancel context.CancelFunc
	deps   *roomDeps
	wg     sync.WaitGroup

	mu       sync.RWMutex
	rooms    map[domain.SlotID]*Room
	launched map[domain.SlotID]time.Time
	now      func() time.Time
}

func NewRegistry(parent context.Context, dir core.SlotDirectory, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(parent)
	g := &Registry{
		ctx:    ctx,
		cancel: cancel,
		deps: &roomDeps{
			settings: DefaultSettings(),
			dir:      dir,
			minter:   NewJitsiMinter("https://meet.jit.si", "talkabout"),
			policy:   app.SimplePolicy{},
			stats:    &Stats{},
		},
		rooms:    make(map[domain.SlotID]*Room),
		launched: make(map[domain.SlotID]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.deps.settings.Ticks < 1 {
		g.deps.settings.Ticks = 1
	}
	return g
}

// GetOrCreate returns the room for slot, starting it on first use. Concurrent
// calls for one slot always return the same room. For a launched slot, or
// after Shutdown, the returned room is already closed.
func (g *Registry) GetOrCreate(slot domain.SlotID) *Room {
	room, _ := g.getOrCreate(slot)
	return room
}

func (g *Registry) getOrCreate(slot domain.SlotID) (*Room, error) {
	g.mu.RLock()
	room, ok := g.rooms[slot]
	g.mu.RUnlock()
	if ok {
		return room, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if room, ok = g.rooms[slot]; ok {
		return room, nil
	}
	if g.ctx.Err() != nil {
		return g.closedRoom(slot), ErrRegistryClosed
	}
	if g.launchedLocked(slot) {
		return g.closedRoom(slot), ErrRoomClosed
	}

	roomCtx, roomCancel := context.WithCancel(g.ctx)
	room = newRoom(slot, g.deps, roomCancel, g.remove)
	g.rooms[slot] = room
	g.deps.stats.roomsCreated.Add(1)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		room.run(roomCtx)
	}()
	log.Info().Str("module", "waitroom.registry").Str("slot", string(slot)).Msg("room created")
	return room, nil
}

// closedRoom is a room that never runs; every call on it returns ErrRoomClosed.
func (g *Registry) closedRoom(slot domain.SlotID) *Room {
	room := newRoom(slot, g.deps, nil, nil)
	room.state = StateClosed
	room.publishView()
	close(room.done)
	return room
}

// Admit joins sess to the room of slot. A room that retired between lookup
// and join is replaced by a fresh one; a launched slot yields ErrRoomClosed.
func (g *Registry) Admit(ctx context.Context, slot domain.SlotID, sess core.MemberSession) (*Room, error) {
	for {
		room, err := g.getOrCreate(slot)
		if err != nil {
			return nil, err
		}
		err = room.Join(ctx, sess)
		if errors.Is(err, ErrRoomClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return room, nil
	}
}

func (g *Registry) Lookup(slot domain.SlotID) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[slot]
	return room, ok
}

// Launched reports whether slot's room already went through launch.
func (g *Registry) Launched(slot domain.SlotID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.launchedLocked(slot)
}

func (g *Registry) launchedLocked(slot domain.SlotID) bool {
	at, ok := g.launched[slot]
	if !ok {
		return false
	}
	ttl := g.deps.settings.LaunchedTTL
	return ttl <= 0 || g.now().Sub(at) < ttl
}

// pruneLaunched drops launched records older than the TTL. Caller holds mu.
func (g *Registry) pruneLaunched() {
	ttl := g.deps.settings.LaunchedTTL
	if ttl <= 0 {
		return
	}
	now := g.now()
	for slot, at := range g.launched {
		if now.Sub(at) >= ttl {
			delete(g.launched, slot)
		}
	}
}

// remove is the room's close hook; it runs on the room goroutine.
func (g *Registry) remove(room *Room, final bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.rooms[room.slot]; ok && cur == room {
		delete(g.rooms, room.slot)
	}
	if final {
		g.pruneLaunched()
		g.launched[room.slot] = g.now()
	}
	log.Info().Str("module", "waitroom.registry").Str("slot", string(room.slot)).Bool("launched", final).Msg("room removed")
}

// Evict tears a room down without launching it.
func (g *Registry) Evict(slot domain.SlotID) bool {
	room, ok := g.Lookup(slot)
	if !ok {
		return false
	}
	if room.cancel != nil {
		room.cancel()
	}
	<-room.Done()
	return true
}

func (g *Registry) List() []RoomInfo {
	g.mu.RLock()
	out := make([]RoomInfo, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r.Info())
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

func (g *Registry) Stats() StatsSnapshot {
	g.mu.RLock()
	active := len(g.rooms)
	g.mu.RUnlock()
	return g.deps.stats.snapshot(active)
}

// Shutdown cancels every room and waits for their goroutines to exit.
func (g *Registry) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.cancel()
	g.mu.Unlock()
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Str("module", "waitroom.registry").Msg("all rooms stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
