package waitroom

import "time"

// Settings controls countdown and launch behaviour of every room in a registry.
type Settings struct {
	// Ticks is the number of countdown_tick events sent before launch.
	Ticks    int
	Interval time.Duration
	// AutoStart starts the countdown on the first join instead of waiting for a ready signal.
	AutoStart bool

	LookupTimeout  time.Duration
	LookupRetries  int
	RetryDelay     time.Duration
	MarkAttendance bool

	// LaunchedTTL is how long a launched slot keeps refusing new rooms.
	LaunchedTTL time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Ticks:         10,
		Interval:      time.Second,
		AutoStart:     true,
		LookupTimeout: 5 * time.Second,
		LookupRetries: 2,
		RetryDelay:    250 * time.Millisecond,
		LaunchedTTL:   24 * time.Hour,
	}
}
