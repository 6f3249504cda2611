package app

import (
	"errors"

	"github.com/dkeye/talkabout/internal/core"
	"github.com/dkeye/talkabout/internal/domain"
)

type DeliveryAction int

const (
	NoAction DeliveryAction = iota
	KickMember
)

// Policy decides what a room does with a session whose delivery failed.
type Policy interface {
	OnDeliveryFailure(slot domain.SlotID, failure *core.DeliveryError) DeliveryAction
}

// SimplePolicy kicks sessions whose transport is gone and tolerates backpressure.
type SimplePolicy struct{}

func (SimplePolicy) OnDeliveryFailure(_ domain.SlotID, failure *core.DeliveryError) DeliveryAction {
	if errors.Is(failure, core.ErrConnClosed) {
		return KickMember
	}
	return NoAction
}
