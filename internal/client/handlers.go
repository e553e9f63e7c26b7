package client

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/Davy-M/chat-app/internal/core"
)

func (c *Client) dispatch(data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("bad json")
		return
	}

	switch env.Type {
	case core.EvID:
		c.handleID(data)
	case core.EvClients:
		c.handleClients(data)
	case core.EvMessage:
		c.handleMessage(data)
	case core.EvTyping, core.EvStopTyping:
		c.handleTyping(env.Type, data)
	case core.EvUpdateStatus:
		c.handleStatus(data)
	case core.EvBroadcaster:
		c.handlePeerEvent(data, c.peers.HandleBroadcasterAnnounce)
	case core.EvBroadcastStop:
		c.handlePeerEvent(data, c.handlePeerGone)
	case core.EvWatcher:
		c.handlePeerEvent(data, c.peers.HandleWatchRequest)
	case core.EvOffer, core.EvAnswer, core.EvCandidate:
		c.handleSignal(env.Type, data)
	case core.EvDisconnectPeer:
		c.handlePeerEvent(data, c.handlePeerGone)
	default:
		log.Warn().Str("module", "client").Str("type", env.Type).Msg("unknown event")
	}
}

func (c *Client) handleID(data []byte) {
	var p core.IDEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("bad id payload")
		return
	}
	c.idOnce.Do(func() {
		c.id = p.ID
		c.peers.SetSelf(p.ID)
		close(c.idReady)
	})
	log.Info().Str("module", "client").Str("sid", string(p.ID)).Msg("session id assigned")
}

func (c *Client) handleClients(data []byte) {
	var p core.ClientsEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("bad clients payload")
		return
	}
	if c.events.OnClients != nil {
		c.events.OnClients(p.Clients)
	}
}

func (c *Client) handleMessage(data []byte) {
	var p core.ChatEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("bad message payload")
		return
	}
	if c.events.OnMessage != nil {
		c.events.OnMessage(p.Username, p.Message)
	}
}

func (c *Client) handleTyping(kind string, data []byte) {
	var p core.TypingEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("bad typing payload")
		return
	}
	if kind == core.EvTyping {
		if c.events.OnTyping != nil {
			c.events.OnTyping(p.Username)
		}
		return
	}
	if c.events.OnStopTyping != nil {
		c.events.OnStopTyping(p.Username)
	}
}

func (c *Client) handleStatus(data []byte) {
	var p core.StatusEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("bad status payload")
		return
	}
	c.mu.Lock()
	c.statuses[p.ID] = RemoteStatus{Video: p.Video, Mic: p.Mic, Username: p.Username}
	c.mu.Unlock()
	if c.events.OnStatus != nil {
		c.events.OnStatus(p)
	}
}

func (c *Client) handlePeerEvent(data []byte, fn func(core.SessionID)) {
	var p core.PeerEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("bad peer payload")
		return
	}
	fn(p.ID)
}

func (c *Client) handleSignal(kind string, data []byte) {
	var p core.SignalEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("bad signal payload")
		return
	}
	switch kind {
	case core.EvOffer:
		c.peers.HandleOffer(p.Caller, p.SDP)
	case core.EvAnswer:
		c.peers.HandleAnswer(p.Caller, p.SDP)
	case core.EvCandidate:
		c.peers.HandleCandidate(p.Caller, p.Candidate)
	}
}

// handlePeerGone covers disconnectPeer and broadcasterStop: tear down the
// media session and purge the remote-status record. Both must be safe to
// receive for an identity we never had a session with.
func (c *Client) handlePeerGone(id core.SessionID) {
	c.peers.HandlePeerGone(id)
	c.mu.Lock()
	delete(c.statuses, id)
	c.mu.Unlock()
	if c.events.OnPeerGone != nil {
		c.events.OnPeerGone(id)
	}
}
