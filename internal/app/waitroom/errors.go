package waitroom

import "errors"

var (
	ErrRoomClosed     = errors.New("waiting room closed")
	ErrRegistryClosed = errors.New("room registry shut down")
	ErrNotMember      = errors.New("session is not in this room")
)
