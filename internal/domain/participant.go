// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const MaxParticipantIDLen = 64

var (
	ErrParticipantTooLong = errors.New("participant id too long")
	ErrParticipantEmpty   = errors.New("participant id empty")
)

// ParticipantID identifies an enrolled user. The zero value is an anonymous session.
type ParticipantID string

func (p ParticipantID) Anonymous() bool { return p == "" }

// NewParticipantID is a tiny helper to avoid ad-hoc conversions in adapters.
func NewParticipantID(raw string) (ParticipantID, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 0 {
		return "", ErrParticipantEmpty
	}
	if len(raw) > MaxParticipantIDLen {
		return "", ErrParticipantTooLong
	}
	return ParticipantID(raw), nil
}
