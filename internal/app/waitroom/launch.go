package waitroom

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dkeye/talkabout/internal/app/grouping"
	"github.com/dkeye/talkabout/internal/core"
	"github.com/dkeye/talkabout/internal/domain"
)

type assignment struct {
	sess        core.MemberSession
	destination string
}

// launch fetches capacity and attendees, groups them and sends each current
// member exactly one call_ready. It runs to completion even if the room is
// torn down meanwhile; a lookup or capacity failure closes the room silently.
func (r *Room) launch(ctx context.Context) {
	r.advance(StateLaunching)
	r.publishView()
	defer r.close(true)

	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.deps.settings.LookupTimeout)
	defer cancel()

	plan, err := r.plan(lctx)
	if err != nil {
		r.deps.stats.launchFailures.Add(1)
		r.logger.Error().Err(err).Msg("launch aborted")
		return
	}

	delivered := 0
	for _, a := range plan {
		if err := core.UnicastFinal(a.sess, core.CallReady(a.destination)); err != nil {
			r.deps.stats.deliveryFailures.Add(1)
			r.logger.Warn().Err(err).Str("sid", string(a.sess.ID())).Msg("call_ready not delivered")
			continue
		}
		delivered++
	}
	r.deps.stats.deliveries.Add(int64(delivered))
	r.deps.stats.launches.Add(1)
	r.logger.Info().Int("sessions", len(plan)).Int("delivered", delivered).Msg("launched")
}

func (r *Room) plan(ctx context.Context) ([]assignment, error) {
	slot, err := withRetry(ctx, r.deps.settings, func(ctx context.Context) (domain.Slot, error) {
		return r.deps.dir.LookupSlot(ctx, r.slot)
	})
	if err != nil {
		return nil, &domain.LookupError{Slot: r.slot, Err: err}
	}
	attendees, err := withRetry(ctx, r.deps.settings, func(ctx context.Context) ([]domain.Attendee, error) {
		return r.deps.dir.LookupAttendees(ctx, r.slot)
	})
	if err != nil {
		return nil, &domain.LookupError{Slot: r.slot, Err: err}
	}

	sessions := r.orderedMembers()
	connected := make(map[domain.ParticipantID]bool, len(sessions))
	for _, s := range sessions {
		if p := s.Meta().Participant; !p.Anonymous() {
			connected[p] = true
		}
	}

	ids := presentAttendees(attendees, connected)
	groups, err := grouping.Group(ids, slot.Capacity)
	if err != nil {
		return nil, err
	}
	r.logger.Info().Int("capacity", slot.Capacity).Int("attendees", len(ids)).Int("groups", len(groups)).Int("sessions", len(sessions)).Msg("grouped attendees")

	r.markAttendance(ctx, connected)

	destinations := make([]string, len(groups))
	groupOf := make(map[domain.ParticipantID]int, len(ids))
	for i, g := range groups {
		destinations[i] = r.deps.minter.Mint(r.slot, i)
		for _, p := range g {
			groupOf[p] = i
		}
	}

	if len(sessions) == 0 {
		return nil, nil
	}
	if len(destinations) == 0 {
		// nobody to group, everyone connected shares one call
		destinations = []string{r.deps.minter.Mint(r.slot, 0)}
	}

	plan := make([]assignment, 0, len(sessions))
	for _, s := range sessions {
		gi, ok := groupOf[s.Meta().Participant]
		if !ok {
			gi = 0
		}
		plan = append(plan, assignment{sess: s, destination: destinations[gi]})
	}
	return plan, nil
}

// presentAttendees keeps enrollment order and drops duplicates. An attendee
// counts as present if the store says so or a session with their identity is connected.
func presentAttendees(attendees []domain.Attendee, connected map[domain.ParticipantID]bool) []domain.ParticipantID {
	seen := make(map[domain.ParticipantID]bool, len(attendees))
	out := make([]domain.ParticipantID, 0, len(attendees))
	for _, a := range attendees {
		if a.Participant.Anonymous() || seen[a.Participant] {
			continue
		}
		if !a.Present && !connected[a.Participant] {
			continue
		}
		seen[a.Participant] = true
		out = append(out, a.Participant)
	}
	return out
}

func (r *Room) markAttendance(ctx context.Context, connected map[domain.ParticipantID]bool) {
	if !r.deps.settings.MarkAttendance || len(connected) == 0 {
		return
	}
	marker, ok := r.deps.dir.(core.AttendanceMarker)
	if !ok {
		return
	}
	ids := make([]domain.ParticipantID, 0, len(connected))
	for p := range connected {
		ids = append(ids, p)
	}
	slices.Sort(ids)
	if err := marker.MarkAttended(ctx, r.slot, ids); err != nil {
		r.logger.Warn().Err(err).Msg("mark attendance")
	}
}

// withRetry retries transient lookup errors. ErrSlotNotFound is final.
func withRetry[T any](ctx context.Context, s Settings, fn func(context.Context) (T, error)) (T, error) {
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil || errors.Is(err, domain.ErrSlotNotFound) || attempt >= s.LookupRetries {
			return v, err
		}
		select {
		case <-time.After(s.RetryDelay):
		case <-ctx.Done():
			return v, err
		}
	}
}
