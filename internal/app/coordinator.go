package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/Davy-M/chat-app/internal/core"
	"github.com/Davy-M/chat-app/internal/domain"
)

// Coordinator is the signaling/presence core: a registry plus an
// address-keyed router. It never inspects SDP or candidate payloads and never
// blocks on a remote peer; undeliverable frames are dropped.
//
// Handlers are invoked from each connection's read pump, so frames from one
// source are processed sequentially and per-target order is preserved by the
// target's buffered send channel.
type Coordinator struct {
	Registry *Registry
}

func NewCoordinator(reg *Registry) *Coordinator {
	return &Coordinator{Registry: reg}
}

// Join registers the display name and pushes the refreshed presence view to
// everyone, the joiner included.
func (co *Coordinator) Join(sid core.SessionID, username string) error {
	if err := domain.ValidateUsername(username); err != nil {
		return err
	}
	if !co.Registry.Join(sid, username) {
		return nil
	}
	co.broadcastClients()
	return nil
}

// Message fans a chat message out to every session including the sender; the
// sender renders from the echo so all clients agree on arrival order.
func (co *Coordinator) Message(ev core.ChatEvent) {
	ev.Type = core.EvMessage
	co.broadcast(ev)
}

func (co *Coordinator) Typing(sid core.SessionID, username string) {
	co.broadcastExcept(sid, core.TypingEvent{Type: core.EvTyping, Username: username})
}

func (co *Coordinator) StopTyping(sid core.SessionID, username string) {
	co.broadcastExcept(sid, core.TypingEvent{Type: core.EvStopTyping, Username: username})
}

// UpdateStatus records the sender's media status and relays it to all other
// sessions with the sender's id stamped on.
func (co *Coordinator) UpdateStatus(sid core.SessionID, ev core.StatusEvent) {
	co.Registry.SetStatus(sid, domain.MediaStatus{Video: ev.Video, Mic: ev.Mic})
	ev.Type = core.EvUpdateStatus
	ev.ID = sid
	co.broadcastExcept(sid, ev)
}

// Broadcaster announces a new stream to every session except the source.
func (co *Coordinator) Broadcaster(sid core.SessionID) {
	co.broadcastExcept(sid, core.PeerEvent{Type: core.EvBroadcaster, ID: sid})
}

// BroadcasterStop announces the end of a stream to every session except the
// source.
func (co *Coordinator) BroadcasterStop(sid core.SessionID) {
	co.broadcastExcept(sid, core.PeerEvent{Type: core.EvBroadcastStop, ID: sid})
}

// Watcher forwards a watch request to the broadcaster only, carrying the
// requester's id.
func (co *Coordinator) Watcher(sid, target core.SessionID) {
	co.sendTo(target, core.PeerEvent{Type: core.EvWatcher, ID: sid})
}

// Relay forwards an offer, answer or candidate to its target, rewriting the
// envelope so the recipient sees the caller instead of the target. The body
// stays opaque.
func (co *Coordinator) Relay(sid core.SessionID, ev core.SignalEvent) {
	out := core.SignalEvent{
		Type:      ev.Type,
		Caller:    sid,
		SDP:       ev.SDP,
		Candidate: ev.Candidate,
	}
	co.sendTo(ev.Target, out)
}

// OnDisconnect is the disconnection sweeper. It runs exactly once per
// connection: registry removal, presence broadcast, then disconnectPeer to
// the remaining sessions. Duplicate signals are no-ops.
func (co *Coordinator) OnDisconnect(sid core.SessionID) {
	if !co.Registry.Remove(sid) {
		return
	}
	co.broadcastClients()
	co.broadcastExcept(sid, core.PeerEvent{Type: core.EvDisconnectPeer, ID: sid})
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Msg("swept session")
}

func (co *Coordinator) broadcastClients() {
	co.broadcast(core.ClientsEvent{Type: core.EvClients, Clients: co.Registry.Snapshot()})
}

func (co *Coordinator) broadcast(v any) {
	frame, ok := marshal(v)
	if !ok {
		return
	}
	for _, snap := range co.Registry.conns() {
		if err := snap.Conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.coordinator").Str("sid", string(snap.SID)).Msg("broadcast drop")
		}
	}
}

func (co *Coordinator) broadcastExcept(sid core.SessionID, v any) {
	frame, ok := marshal(v)
	if !ok {
		return
	}
	for _, snap := range co.Registry.conns() {
		if snap.SID == sid {
			continue
		}
		if err := snap.Conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.coordinator").Str("sid", string(snap.SID)).Msg("broadcast drop")
		}
	}
}

// sendTo delivers to a single target. A vanished target is a silent drop, not
// an error: target loss races are expected and the sweeper notifies the
// source separately.
func (co *Coordinator) sendTo(target core.SessionID, v any) {
	conn, ok := co.Registry.Conn(target)
	if !ok {
		log.Debug().Str("module", "app.coordinator").Str("target", string(target)).Msg("relay target gone")
		return
	}
	frame, okm := marshal(v)
	if !okm {
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Str("target", string(target)).Msg("relay drop")
	}
}

func marshal(v any) (core.Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("marshal")
		return nil, false
	}
	return b, true
}
