package waitroom

import (
	"context"
	"time"

	"github.com/dkeye/talkabout/internal/core"
)

// startCountdown moves idle -> running. Only the run goroutine writes
// started, so concurrent joins and ready signals start at most one countdown.
func (r *Room) startCountdown(reason string) {
	if r.started || r.state >= StateLaunching {
		return
	}
	r.started = true
	r.advance(StateCountingDown)
	r.remaining = r.deps.settings.Ticks
	r.ticker = time.NewTicker(r.deps.settings.Interval)
	r.deps.stats.countdownsStarted.Add(1)

	r.logger.Info().Str("reason", reason).Int("ticks", r.remaining).Dur("interval", r.deps.settings.Interval).Msg("countdown started")
	r.broadcast(core.CountdownTick(r.remaining))
}

// tick runs once per interval. Ticks go out as remaining counts down to 1;
// the interval after the last tick triggers launch.
func (r *Room) tick(ctx context.Context) {
	r.remaining--
	if r.remaining > 0 {
		r.broadcast(core.CountdownTick(r.remaining))
		return
	}
	r.stopTicker()
	r.logger.Info().Int("members", len(r.members)).Msg("countdown expired")
	r.launch(ctx)
}

// tickC is nil, and so never ready, until the countdown runs.
func (r *Room) tickC() <-chan time.Time {
	if r.ticker == nil {
		return nil
	}
	return r.ticker.C
}

func (r *Room) stopTicker() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
}
