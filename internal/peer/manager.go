package peer

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Davy-M/chat-app/internal/core"
)

// State is the negotiation state of one direct media session.
type State int

const (
	StateNone State = iota
	StateOffering
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOffering:
		return "offering"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "none"
	}
}

// Sender is the signaling-out surface the manager needs. Implementations must
// not block: sends are fire-and-forget.
type Sender interface {
	SendWatch(target core.SessionID)
	SendOffer(target core.SessionID, sdp json.RawMessage)
	SendAnswer(target core.SessionID, sdp json.RawMessage)
	SendCandidate(target core.SessionID, candidate json.RawMessage)
	SendBroadcast()
	SendBroadcastStop()
}

type session struct {
	state   State
	media   MediaSession
	ready   bool // remote description applied, candidates can flow
	pending []json.RawMessage
}

// Manager owns the map from remote session identity to direct media session
// and drives the per-remote negotiation state machine. All handler methods
// are safe for concurrent use; the map is the single source of truth, never
// ad hoc nullable fields.
type Manager struct {
	mu           sync.Mutex
	engine       Engine
	out          Sender
	selfID       core.SessionID
	broadcasting bool
	sessions     map[core.SessionID]*session
	// candidates that arrived before any session existed for the remote,
	// kept in arrival order
	early map[core.SessionID][]json.RawMessage
}

func NewManager(engine Engine, out Sender) *Manager {
	return &Manager{
		engine:   engine,
		out:      out,
		sessions: make(map[core.SessionID]*session),
		early:    make(map[core.SessionID][]json.RawMessage),
	}
}

// SetSelf records our own connection id, learned from the coordinator after
// the upgrade.
func (m *Manager) SetSelf(id core.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selfID = id
}

// StartBroadcast marks us as an active broadcaster and announces the stream.
// The engine's capture must already be configured by the caller.
func (m *Manager) StartBroadcast() {
	m.mu.Lock()
	m.broadcasting = true
	m.mu.Unlock()
	m.out.SendBroadcast()
}

// StopBroadcast ends our stream: every direct media session is released
// before the stop announcement goes out, so no cleanup is deferred past this
// call.
func (m *Manager) StopBroadcast() {
	m.mu.Lock()
	m.broadcasting = false
	m.closeAllLocked()
	m.mu.Unlock()
	m.out.SendBroadcastStop()
}

// HandleBroadcasterAnnounce reacts to a new stream by requesting to watch it,
// unless we are the broadcaster ourselves.
func (m *Manager) HandleBroadcasterAnnounce(id core.SessionID) {
	m.mu.Lock()
	self := m.selfID
	m.mu.Unlock()
	if id == self {
		return
	}
	m.out.SendWatch(id)
}

// HandleWatchRequest runs the broadcaster side: create a session in OFFERING,
// attach local tracks, send the offer, move to CONNECTING. A request from an
// identity we already serve is a renegotiation: the old session's tracks are
// released before the new one is wired up.
func (m *Manager) HandleWatchRequest(id core.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.broadcasting {
		log.Warn().Str("module", "peer").Str("remote", string(id)).Msg("watch request while not broadcasting")
		return
	}
	s, ok := m.newSessionLocked(id)
	if !ok {
		return
	}
	s.state = StateOffering
	if err := s.media.AddLocalTracks(); err != nil {
		log.Error().Err(err).Str("module", "peer").Str("remote", string(id)).Msg("add tracks")
		m.abandonLocked(id)
		return
	}
	sdp, err := s.media.CreateOffer()
	if err != nil {
		log.Error().Err(err).Str("module", "peer").Str("remote", string(id)).Msg("create offer")
		m.abandonLocked(id)
		return
	}
	m.out.SendOffer(id, sdp)
	s.state = StateConnecting
}

// HandleOffer runs the watcher side: create (or replace) the session, apply
// the remote description, answer, move to CONNECTING. Candidates buffered
// before this point are flushed in arrival order.
func (m *Manager) HandleOffer(id core.SessionID, sdp json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.newSessionLocked(id)
	if !ok {
		return
	}
	answer, err := s.media.CreateAnswer(sdp)
	if err != nil {
		log.Error().Err(err).Str("module", "peer").Str("remote", string(id)).Msg("answer offer")
		m.abandonLocked(id)
		return
	}
	s.ready = true
	m.flushLocked(id, s)
	m.out.SendAnswer(id, answer)
	s.state = StateConnecting
}

// HandleAnswer applies the remote answer to an existing session. An answer
// with no session (late or duplicate, after teardown) is dropped, not an
// error.
func (m *Manager) HandleAnswer(id core.SessionID, sdp json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		log.Debug().Str("module", "peer").Str("remote", string(id)).Msg("late answer, dropping")
		return
	}
	if err := s.media.ApplyAnswer(sdp); err != nil {
		log.Error().Err(err).Str("module", "peer").Str("remote", string(id)).Msg("apply answer")
		m.abandonLocked(id)
		return
	}
	s.ready = true
	m.flushLocked(id, s)
}

// HandleCandidate applies a remote candidate, buffering it if the session
// does not exist yet or has no remote description. Trickling order is
// preserved per peer.
func (m *Manager) HandleCandidate(id core.SessionID, candidate json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		m.early[id] = append(m.early[id], candidate)
		return
	}
	if !s.ready {
		s.pending = append(s.pending, candidate)
		return
	}
	if err := s.media.AddICECandidate(candidate); err != nil {
		log.Error().Err(err).Str("module", "peer").Str("remote", string(id)).Msg("add candidate")
	}
}

// HandlePeerGone tears down the session for a remote that disconnected or
// stopped broadcasting. Idempotent: an unknown identity is a no-op.
func (m *Manager) HandlePeerGone(id core.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.early, id)
	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.media.Close()
	s.state = StateClosed
	delete(m.sessions, id)
	log.Info().Str("module", "peer").Str("remote", string(id)).Msg("closed media session")
}

// Close releases every session; called when the coordinator-facing channel
// closes.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeAllLocked()
}

// State reports the negotiation state for a remote identity; StateNone if no
// session exists.
func (m *Manager) State(id core.SessionID) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s.state
	}
	return StateNone
}

// Broadcasting reports whether we currently announce a stream.
func (m *Manager) Broadcasting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.broadcasting
}

// newSessionLocked replaces any existing session for the remote, releasing
// its tracks first, and wires the engine callbacks. Early candidates move
// into the session's pending queue.
func (m *Manager) newSessionLocked(id core.SessionID) (*session, bool) {
	if old, ok := m.sessions[id]; ok {
		old.media.Close()
		delete(m.sessions, id)
		log.Info().Str("module", "peer").Str("remote", string(id)).Msg("renegotiating, released old session")
	}
	ms, err := m.engine.NewSession(string(id))
	if err != nil {
		log.Error().Err(err).Str("module", "peer").Str("remote", string(id)).Msg("new media session")
		return nil, false
	}
	s := &session{media: ms, pending: m.early[id]}
	delete(m.early, id)
	m.sessions[id] = s

	remote := id
	ms.OnICECandidate(func(c json.RawMessage) {
		m.out.SendCandidate(remote, c)
	})
	ms.OnConnected(func() {
		m.markConnected(remote)
	})
	return s, true
}

func (m *Manager) markConnected(id core.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok && s.state == StateConnecting {
		s.state = StateConnected
		log.Info().Str("module", "peer").Str("remote", string(id)).Msg("media session connected")
	}
}

func (m *Manager) flushLocked(id core.SessionID, s *session) {
	for _, c := range s.pending {
		if err := s.media.AddICECandidate(c); err != nil {
			log.Error().Err(err).Str("module", "peer").Str("remote", string(id)).Msg("flush candidate")
		}
	}
	s.pending = nil
}

// abandonLocked drops a failed negotiation. No retry: the user re-triggers
// via a fresh watch/broadcast cycle.
func (m *Manager) abandonLocked(id core.SessionID) {
	if s, ok := m.sessions[id]; ok {
		s.media.Close()
		delete(m.sessions, id)
	}
}

func (m *Manager) closeAllLocked() {
	for id, s := range m.sessions {
		s.media.Close()
		s.state = StateClosed
		delete(m.sessions, id)
	}
	for id := range m.early {
		delete(m.early, id)
	}
}
