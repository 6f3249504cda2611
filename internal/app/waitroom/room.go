package waitroom

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dkeye/talkabout/internal/app"
	"github.com/dkeye/talkabout/internal/core"
	"github.com/dkeye/talkabout/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type roomDeps struct {
	settings Settings
	dir      core.SlotDirectory
	minter   Minter
	policy   app.Policy
	stats    *Stats
}

type member struct {
	sess core.MemberSession
	seq  uint64
}

// Room is the waiting room of one time slot. All mutable state below the
// marker is owned by the run goroutine; other goroutines reach it only
// through cmds, so joins, leaves, ready signals and ticks are serialized.
type Room struct {
	slot    domain.SlotID
	deps    *roomDeps
	cmds    chan func()
	done    chan struct{}
	cancel  context.CancelFunc
	onClose func(r *Room, final bool)
	logger  zerolog.Logger
	view    atomic.Pointer[RoomInfo]

	// owned by run
	state     State
	members   map[core.SessionID]*member
	seq       uint64
	started   bool
	remaining int
	ticker    *time.Ticker
}

func newRoom(slot domain.SlotID, deps *roomDeps, cancel context.CancelFunc, onClose func(*Room, bool)) *Room {
	r := &Room{
		slot:    slot,
		deps:    deps,
		cmds:    make(chan func()),
		done:    make(chan struct{}),
		cancel:  cancel,
		onClose: onClose,
		logger:  log.With().Str("module", "waitroom.room").Str("slot", string(slot)).Logger(),
		members: make(map[core.SessionID]*member),
	}
	r.publishView()
	return r
}

func (r *Room) Slot() domain.SlotID { return r.slot }

// Done is closed once the room has closed and its goroutine exited.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) Info() RoomInfo { return *r.view.Load() }

// Join adds sess and sends it a connection_ack. The first join may start the countdown.
func (r *Room) Join(ctx context.Context, sess core.MemberSession) error {
	return r.call(ctx, func() error { return r.join(sess) })
}

// Leave removes the session. A session that left receives no further events.
func (r *Room) Leave(ctx context.Context, sid core.SessionID) error {
	return r.call(ctx, func() error { return r.leave(sid) })
}

// Ready is the participant-ready signal; it starts the countdown if not yet started.
func (r *Room) Ready(ctx context.Context, sid core.SessionID) error {
	return r.call(ctx, func() error {
		if _, ok := r.members[sid]; !ok {
			return ErrNotMember
		}
		r.startCountdown("ready")
		return nil
	})
}

func (r *Room) call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reply := make(chan error, 1)
	cmd := func() {
		err := fn()
		r.publishView()
		reply <- err
	}
	select {
	case r.cmds <- cmd:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-reply
}

func (r *Room) run(ctx context.Context) {
	defer close(r.done)
	defer r.stopTicker()

	for r.state != StateClosed {
		select {
		case fn := <-r.cmds:
			fn()
		case <-r.tickC():
			r.tick(ctx)
		case <-ctx.Done():
			r.teardown()
		}
		r.publishView()
	}
}

func (r *Room) join(sess core.MemberSession) error {
	sid := sess.ID()
	if m, ok := r.members[sid]; ok {
		// reconnect under the same sid keeps its place
		m.sess = sess
	} else {
		r.seq++
		r.members[sid] = &member{sess: sess, seq: r.seq}
	}
	r.advance(StateWaiting)
	r.logger.Info().Str("sid", string(sid)).Str("participant", string(sess.Meta().Participant)).Int("members", len(r.members)).Msg("member joined")

	ack := core.ConnectionAck(fmt.Sprintf("connected to waiting room %s", r.slot))
	if err := core.Unicast(sess, ack); err != nil {
		r.deps.stats.deliveryFailures.Add(1)
		r.logger.Warn().Err(err).Str("sid", string(sid)).Msg("connection ack not delivered")
	}

	if r.deps.settings.AutoStart {
		r.startCountdown("first join")
	}
	return nil
}

func (r *Room) leave(sid core.SessionID) error {
	if _, ok := r.members[sid]; !ok {
		return ErrNotMember
	}
	delete(r.members, sid)
	r.logger.Info().Str("sid", string(sid)).Int("members", len(r.members)).Msg("member left")

	// a room that never started has nothing left to run once empty
	if len(r.members) == 0 && !r.started {
		r.logger.Info().Msg("room empty before countdown, retiring")
		r.close(false)
	}
	return nil
}

// teardown closes the room without launching.
func (r *Room) teardown() {
	if r.state == StateClosed {
		return
	}
	r.logger.Info().Str("state", r.state.String()).Msg("room torn down")
	r.broadcast(core.ErrorEvent("room_closed"))
	r.close(false)
}

func (r *Room) close(final bool) {
	r.stopTicker()
	r.advance(StateClosed)
	r.members = map[core.SessionID]*member{}
	if r.cancel != nil {
		r.cancel()
	}
	if r.onClose != nil {
		r.onClose(r, final)
	}
}

// advance moves the lifecycle forward; earlier or equal states are ignored.
func (r *Room) advance(to State) {
	if to <= r.state {
		return
	}
	r.logger.Debug().Str("from", r.state.String()).Str("to", to.String()).Msg("state")
	r.state = to
}

// orderedMembers returns sessions in join order.
func (r *Room) orderedMembers() []core.MemberSession {
	ms := make([]*member, 0, len(r.members))
	for _, m := range r.members {
		ms = append(ms, m)
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].seq < ms[j].seq })
	out := make([]core.MemberSession, len(ms))
	for i, m := range ms {
		out[i] = m.sess
	}
	return out
}

// broadcast publishes ev to the current members and applies the delivery policy.
func (r *Room) broadcast(ev core.Event) core.PublishResult {
	res := core.Publish(r.orderedMembers(), ev)
	r.deps.stats.deliveries.Add(int64(res.SentTo))
	r.deps.stats.deliveryFailures.Add(int64(len(res.Failed)))
	for _, failure := range res.Failed {
		r.logger.Warn().Err(failure.Err).Str("sid", string(failure.SessionID)).Str("event", string(ev.Type)).Msg("delivery failed")
		if r.deps.policy == nil {
			continue
		}
		switch r.deps.policy.OnDeliveryFailure(r.slot, failure) {
		case app.KickMember:
			delete(r.members, failure.SessionID)
			r.deps.stats.kicked.Add(1)
			r.logger.Info().Str("sid", string(failure.SessionID)).Msg("kicked stale member")
		case app.NoAction:
		}
	}
	return res
}

func (r *Room) publishView() {
	r.view.Store(&RoomInfo{
		Slot:        r.slot,
		State:       r.state,
		MemberCount: len(r.members),
		Remaining:   r.remaining,
	})
}
