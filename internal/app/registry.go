package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Davy-M/chat-app/internal/core"
	"github.com/Davy-M/chat-app/internal/domain"
)

type sessionEntry struct {
	Name   string
	Joined bool
	Status domain.MediaStatus
	Conn   core.SignalConnection
	Cancel context.CancelFunc
}

// Registry is the process-wide mapping of connection id to session. The keys
// of the joined set always equal the currently connected, joined sessions;
// removal happens synchronously with disconnect.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	order    []core.SessionID // joined sessions, registration order
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

// Bind attaches a freshly upgraded connection. The session is not part of the
// presence view until Join.
func (r *Registry) Bind(sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session")
}

// Join records the display name and makes the session visible in the presence
// view. A repeated Join overwrites the name but keeps the original position.
func (r *Registry) Join(sid core.SessionID, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	if !e.Joined {
		e.Joined = true
		r.order = append(r.order, sid)
	}
	e.Name = name
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("username", name).Msg("joined")
	return true
}

func (r *Registry) SetStatus(sid core.SessionID, st domain.MediaStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Status = st
	}
}

// Remove purges the session. Idempotent: removing an absent id is a no-op.
// Returns whether an entry existed at all.
func (r *Registry) Remove(sid core.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	delete(r.sessions, sid)
	if e.Cancel != nil {
		e.Cancel()
	}
	if e.Joined {
		for i, id := range r.order {
			if id == sid {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed session")
	return true
}

// Snapshot returns the display names of joined sessions in registration order.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.order))
	for _, sid := range r.order {
		if e, ok := r.sessions[sid]; ok {
			out = append(out, e.Name)
		}
	}
	return out
}

// Conn resolves the transport endpoint of a session, if still registered.
func (r *Registry) Conn(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Conn, true
	}
	return nil, false
}

type connSnap struct {
	SID  core.SessionID
	Conn core.SignalConnection
}

// conns returns every bound connection, joined or not.
func (r *Registry) conns() []connSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]connSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		out = append(out, connSnap{SID: sid, Conn: e.Conn})
	}
	return out
}
