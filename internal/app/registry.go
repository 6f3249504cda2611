package app

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/talkabout/internal/core"
	"github.com/dkeye/talkabout/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrSessionNotBound = errors.New("session not bound")

type sessionEntry struct {
	Slot    domain.SlotID
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry tracks live sessions and the one waiting room each is joined to.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

// BindSession registers sess under sid. A session already bound to sid is
// cancelled and replaced; the replaced session is returned.
func (r *Registry) BindSession(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) (core.MemberSession, bool) {
	r.mu.Lock()
	old, replaced := r.sessions[sid]
	r.sessions[sid] = &sessionEntry{Session: sess, Cancel: cancel}
	r.mu.Unlock()

	if replaced && old.Cancel != nil {
		old.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Bool("replaced", replaced).Msg("bound session")
	if !replaced {
		return nil, false
	}
	return old.Session, true
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// Unbind removes sid only while it still refers to sess, so a replaced
// connection tearing down late cannot unbind its replacement.
func (r *Registry) Unbind(sid core.SessionID, sess core.MemberSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.Session != sess {
		return false
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return true
}

func (r *Registry) SlotOf(sid core.SessionID) (domain.SlotID, core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.Slot == "" {
		return "", nil, false
	}
	return entry.Slot, entry.Session, true
}

func (r *Registry) UpdateSlot(sid core.SessionID, slot domain.SlotID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	entry.Slot = slot
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("slot", string(slot)).Msg("updated slot")
	return true
}

func (r *Registry) ClearSlot(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[sid]; ok {
		entry.Slot = ""
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed slot association")
}

type regSnap struct {
	SID     core.SessionID
	Session core.MemberSession
}

func (r *Registry) MembersOfSlot(slot domain.SlotID) []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if e.Slot == slot {
			out = append(out, regSnap{SID: sid, Session: e.Session})
		}
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
