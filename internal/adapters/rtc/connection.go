// Package rtc implements the peer media engine on top of pion/webrtc.
package rtc

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/Davy-M/chat-app/internal/peer"
)

// Engine builds WebRTC sessions against a fixed ICE configuration. Local
// capture tracks, if any, are shared by every session the engine creates.
type Engine struct {
	cfg    webrtc.Configuration
	tracks []webrtc.TrackLocal
}

func NewEngine(iceServers []string) *Engine {
	cfg := webrtc.Configuration{}
	if len(iceServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}
	return &Engine{cfg: cfg}
}

// SetLocalTracks installs the capture tracks attached to future sessions.
// A headless watcher leaves this empty and receives only.
func (e *Engine) SetLocalTracks(tracks []webrtc.TrackLocal) {
	e.tracks = tracks
}

func (e *Engine) NewSession(remote string) (peer.MediaSession, error) {
	pc, err := webrtc.NewPeerConnection(e.cfg)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	s := &mediaSession{pc: pc, remote: remote, tracks: e.tracks}
	s.wire()
	return s, nil
}

type mediaSession struct {
	pc     *webrtc.PeerConnection
	remote string
	tracks []webrtc.TrackLocal

	onICE       func(json.RawMessage)
	onConnected func()
	onTrack     func(kind, id string)
}

func (s *mediaSession) wire() {
	s.pc.OnICEConnectionStateChange(func(st webrtc.ICEConnectionState) {
		log.Info().Str("module", "rtc").Str("remote", s.remote).Str("ice_state", st.String()).Msg("ICE state")
	})

	s.pc.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("remote", s.remote).Str("peer_connection_state", st.String()).Msg("Peer state")
		if st == webrtc.PeerConnectionStateConnected && s.onConnected != nil {
			s.onConnected()
		}
	})

	s.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil || s.onICE == nil {
			return
		}
		b, err := json.Marshal(cand.ToJSON())
		if err != nil {
			log.Error().Err(err).Str("module", "rtc").Msg("marshal candidate")
			return
		}
		s.onICE(b)
	})

	s.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("remote", s.remote).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Msg("OnTrack received")
		if s.onTrack != nil {
			s.onTrack(track.Kind().String(), track.ID())
		}
	})
}

func (s *mediaSession) AddLocalTracks() error {
	for _, t := range s.tracks {
		if _, err := s.pc.AddTrack(t); err != nil {
			return fmt.Errorf("add track: %w", err)
		}
	}
	return nil
}

func (s *mediaSession) CreateOffer() (json.RawMessage, error) {
	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	// Candidates trickle through OnICECandidate; no need to wait for
	// gathering here.
	return json.Marshal(offer)
}

func (s *mediaSession) CreateAnswer(offer json.RawMessage) (json.RawMessage, error) {
	var remote webrtc.SessionDescription
	if err := json.Unmarshal(offer, &remote); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	if err := s.pc.SetRemoteDescription(remote); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}
	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return json.Marshal(answer)
}

func (s *mediaSession) ApplyAnswer(answer json.RawMessage) error {
	var remote webrtc.SessionDescription
	if err := json.Unmarshal(answer, &remote); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	return s.pc.SetRemoteDescription(remote)
}

func (s *mediaSession) AddICECandidate(candidate json.RawMessage) error {
	var ci webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &ci); err != nil {
		return fmt.Errorf("decode candidate: %w", err)
	}
	return s.pc.AddICECandidate(ci)
}

func (s *mediaSession) OnICECandidate(fn func(json.RawMessage)) { s.onICE = fn }
func (s *mediaSession) OnConnected(fn func())                   { s.onConnected = fn }
func (s *mediaSession) OnRemoteTrack(fn func(kind, id string))  { s.onTrack = fn }

func (s *mediaSession) Close() {
	if err := s.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("remote", s.remote).Msg("close error")
		return
	}
	log.Info().Str("module", "rtc").Str("remote", s.remote).Msg("closed")
}
