package domain

import "time"

// Member represents a session's participation meta for a waiting room.
// No transport or lifecycle logic here.
type Member struct {
	Participant ParticipantID
	JoinedAt    time.Time
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(p ParticipantID) *Member {
	return &Member{Participant: p, JoinedAt: time.Now()}
}
