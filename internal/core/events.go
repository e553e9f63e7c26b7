package core

import "encoding/json"

// Wire event names. Every frame is a JSON object with a "type" discriminator;
// the remaining fields depend on the event.
const (
	EvID             = "id"
	EvJoin           = "join"
	EvClients        = "clients"
	EvMessage        = "message"
	EvTyping         = "typing"
	EvStopTyping     = "stopTyping"
	EvUpdateStatus   = "updateStatus"
	EvBroadcaster    = "broadcaster"
	EvBroadcastStop  = "broadcasterStop"
	EvWatcher        = "watcher"
	EvOffer          = "offer"
	EvAnswer         = "answer"
	EvCandidate      = "candidate"
	EvDisconnectPeer = "disconnectPeer"
)

// Envelope carries only the discriminator, used for dispatch before the
// payload shape is known.
type Envelope struct {
	Type string `json:"type"`
}

// IDEvent is sent to a session right after the upgrade so it learns its own
// connection identifier.
type IDEvent struct {
	Type string    `json:"type"`
	ID   SessionID `json:"id"`
}

// JoinEvent registers a display name for the sending session.
type JoinEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// ClientsEvent is the full presence snapshot, ordered by registration.
type ClientsEvent struct {
	Type    string   `json:"type"`
	Clients []string `json:"clients"`
}

// ChatEvent is a chat message, relayed to all sessions including the sender.
type ChatEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// TypingEvent doubles for typing and stopTyping.
type TypingEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// StatusEvent carries a session's media status. Inbound the ID is empty;
// outbound the coordinator stamps the sender's session id on it.
type StatusEvent struct {
	Type     string    `json:"type"`
	ID       SessionID `json:"id,omitempty"`
	Video    bool      `json:"video"`
	Mic      bool      `json:"mic"`
	Username string    `json:"username"`
}

// PeerEvent is any single-identity notification: broadcaster announcements,
// watch requests as delivered to the broadcaster, and disconnectPeer.
type PeerEvent struct {
	Type string    `json:"type"`
	ID   SessionID `json:"id"`
}

// SignalEvent is an offer, answer or candidate in either direction. The SDP
// and candidate bodies are opaque to the coordinator: they are relayed as raw
// JSON and never parsed. Inbound carries Target; delivered carries Caller.
type SignalEvent struct {
	Type      string          `json:"type"`
	Target    SessionID       `json:"target,omitempty"`
	Caller    SessionID       `json:"caller,omitempty"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// WatchEvent is the inbound watch request naming the broadcaster to watch.
type WatchEvent struct {
	Type   string    `json:"type"`
	Target SessionID `json:"target"`
}
