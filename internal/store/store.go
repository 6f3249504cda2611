// Package store opens the slot directory selected by configuration.
package store

import (
	"context"
	"fmt"

	"github.com/dkeye/talkabout/internal/core"
	"github.com/dkeye/talkabout/internal/domain"
	"github.com/dkeye/talkabout/internal/store/badger"
	"github.com/dkeye/talkabout/internal/store/memory"
	"github.com/dkeye/talkabout/internal/store/sqlite"
	"github.com/rs/zerolog/log"
)

// Store is a slot directory that accepts attendance write-back and seeding.
type Store interface {
	core.SlotDirectory
	core.AttendanceMarker
	Seed(ctx context.Context, seeds ...domain.SlotSeed) error
	Close() error
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*badger.Store)(nil)
)

func Open(driver, path string) (Store, error) {
	log.Info().Str("module", "store").Str("driver", driver).Str("path", path).Msg("opening store")
	switch driver {
	case "", "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.Open(path)
	case "badger":
		return badger.Open(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
