package waitroom

import "sync/atomic"

// Stats counts orchestrator events across all rooms of a registry.
type Stats struct {
	roomsCreated      atomic.Int64
	countdownsStarted atomic.Int64
	launches          atomic.Int64
	launchFailures    atomic.Int64
	deliveries        atomic.Int64
	deliveryFailures  atomic.Int64
	kicked            atomic.Int64
}

type StatsSnapshot struct {
	RoomsActive       int   `json:"rooms_active"`
	RoomsCreated      int64 `json:"rooms_created"`
	CountdownsStarted int64 `json:"countdowns_started"`
	Launches          int64 `json:"launches"`
	LaunchFailures    int64 `json:"launch_failures"`
	Deliveries        int64 `json:"deliveries"`
	DeliveryFailures  int64 `json:"delivery_failures"`
	Kicked            int64 `json:"kicked"`
}

func (s *Stats) snapshot(active int) StatsSnapshot {
	return StatsSnapshot{
		RoomsActive:       active,
		RoomsCreated:      s.roomsCreated.Load(),
		CountdownsStarted: s.countdownsStarted.Load(),
		Launches:          s.launches.Load(),
		LaunchFailures:    s.launchFailures.Load(),
		Deliveries:        s.deliveries.Load(),
		DeliveryFailures:  s.deliveryFailures.Load(),
		Kicked:            s.kicked.Load(),
	}
}
