package peer

import "encoding/json"

// Engine is the media-negotiation capability the manager drives. The
// production implementation wraps a WebRTC peer connection; tests use a fake.
// SDP and candidate bodies are raw JSON end to end, mirroring what the
// coordinator relays.
type Engine interface {
	NewSession(remote string) (MediaSession, error)
}

// MediaSession is one direct media session with a single remote peer.
// Ownership is exclusive to the Manager that created it.
type MediaSession interface {
	// AddLocalTracks attaches the engine's current capture tracks.
	AddLocalTracks() error
	// CreateOffer generates and applies the local description.
	CreateOffer() (json.RawMessage, error)
	// CreateAnswer applies the remote offer, then generates and applies the
	// local answer.
	CreateAnswer(offer json.RawMessage) (json.RawMessage, error)
	// ApplyAnswer applies the remote answer to a previously offered session.
	ApplyAnswer(answer json.RawMessage) error
	// AddICECandidate applies a remote connectivity candidate. Only valid
	// once a remote description has been applied.
	AddICECandidate(candidate json.RawMessage) error
	// OnICECandidate registers the callback for locally gathered candidates.
	OnICECandidate(func(candidate json.RawMessage))
	// OnConnected fires once the session reaches the connected state.
	OnConnected(func())
	// OnRemoteTrack fires for each inbound media track.
	OnRemoteTrack(func(kind, id string))
	// Close releases local and remote track references. Safe to call twice.
	Close()
}
