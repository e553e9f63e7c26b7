// Package client is the coordinator-facing side of a peer: one long-lived
// WebSocket, the typing timer contract, and the outbound signaling surface
// the peer-session manager drives.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Davy-M/chat-app/internal/core"
	"github.com/Davy-M/chat-app/internal/peer"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	typingIdle = 2 * time.Second
)

// Events are the UI-facing callbacks. Any of them may be nil.
type Events struct {
	OnClients    func(names []string)
	OnMessage    func(username, text string)
	OnTyping     func(username string)
	OnStopTyping func(username string)
	OnStatus     func(ev core.StatusEvent)
	OnPeerGone   func(id core.SessionID)
}

// RemoteStatus is the last advertised media status of a remote session.
type RemoteStatus struct {
	Video    bool
	Mic      bool
	Username string
}

type Client struct {
	url      string
	username string
	events   Events

	conn *websocket.Conn
	send chan core.Frame

	id      core.SessionID
	idReady chan struct{}

	peers  *peer.Manager
	typing *typingTracker

	mu       sync.RWMutex
	statuses map[core.SessionID]RemoteStatus

	closeOnce  sync.Once
	idOnce     sync.Once
	done       chan struct{}
	writerDone chan struct{}
}

func New(url, username string, engine peer.Engine, events Events) *Client {
	c := &Client{
		url:        url,
		username:   username,
		events:     events,
		send:       make(chan core.Frame, 32),
		idReady:    make(chan struct{}),
		statuses:   make(map[core.SessionID]RemoteStatus),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	c.peers = peer.NewManager(engine, c)
	c.typing = newTypingTracker(typingIdle, func(start bool) {
		if start {
			c.sendJSON(core.TypingEvent{Type: core.EvTyping, Username: c.username})
			return
		}
		c.sendJSON(core.TypingEvent{Type: core.EvStopTyping, Username: c.username})
	})
	return c
}

// Connect dials the coordinator, waits for our session id, and joins under
// the configured display name.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial coordinator: %w", err)
	}
	c.conn = conn

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readPump()
	go c.writePump()

	select {
	case <-c.idReady:
	case <-ctx.Done():
		c.Close()
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("connection closed before id was assigned")
	}

	c.sendJSON(core.JoinEvent{Type: core.EvJoin, Username: c.username})
	c.sendJSON(core.StatusEvent{Type: core.EvUpdateStatus, Username: c.username})
	return nil
}

// ID returns our coordinator-assigned session id.
func (c *Client) ID() core.SessionID {
	return c.id
}

// Peers exposes the peer-session manager, mainly for local broadcast control.
func (c *Client) Peers() *peer.Manager {
	return c.peers
}

// Status returns the last known media status of a remote session.
func (c *Client) Status(id core.SessionID) (RemoteStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.statuses[id]
	return st, ok
}

// SendMessage relays a chat line. It also ends any typing burst: send acts
// as the stopTyping boundary.
func (c *Client) SendMessage(text string) {
	c.typing.Stop()
	c.sendJSON(core.ChatEvent{Type: core.EvMessage, Username: c.username, Message: text})
}

// TypingPulse is called on every local keystroke. A burst emits exactly one
// typing event; stopTyping follows after the idle window or on send.
func (c *Client) TypingPulse() {
	c.typing.Pulse()
}

// UpdateStatus advertises the local media status to every other session.
func (c *Client) UpdateStatus(video, micMuted bool) {
	c.sendJSON(core.StatusEvent{
		Type:     core.EvUpdateStatus,
		Video:    video,
		Mic:      micMuted,
		Username: c.username,
	})
}

// Close synchronously releases all media sessions, notifies the coordinator
// if we were broadcasting, and closes the transport. No cleanup is deferred
// past this call.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.peers.Broadcasting() {
			c.peers.StopBroadcast()
		} else {
			c.peers.Close()
		}
		c.typing.Cancel()
		close(c.done)
		if c.conn == nil {
			return
		}
		// Let the write pump flush the stop announcement before the socket
		// goes away.
		select {
		case <-c.writerDone:
		case <-time.After(writeWait):
		}
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		_ = c.conn.Close()
	})
}

// Done is closed once the connection is torn down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// peer.Sender implementation; every send is fire-and-forget.

func (c *Client) SendWatch(target core.SessionID) {
	c.sendJSON(core.WatchEvent{Type: core.EvWatcher, Target: target})
}

func (c *Client) SendOffer(target core.SessionID, sdp json.RawMessage) {
	c.sendJSON(core.SignalEvent{Type: core.EvOffer, Target: target, SDP: sdp})
}

func (c *Client) SendAnswer(target core.SessionID, sdp json.RawMessage) {
	c.sendJSON(core.SignalEvent{Type: core.EvAnswer, Target: target, SDP: sdp})
}

func (c *Client) SendCandidate(target core.SessionID, candidate json.RawMessage) {
	c.sendJSON(core.SignalEvent{Type: core.EvCandidate, Target: target, Candidate: candidate})
}

func (c *Client) SendBroadcast() {
	c.sendJSON(core.Envelope{Type: core.EvBroadcaster})
}

func (c *Client) SendBroadcastStop() {
	c.sendJSON(core.Envelope{Type: core.EvBroadcastStop})
}

func (c *Client) sendJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "client").Msg("sendJSON marshal")
		return
	}
	select {
	case c.send <- b:
	case <-c.done:
	default:
		log.Warn().Str("module", "client").Msg("send buffer full, dropping frame")
	}
}

func (c *Client) readPump() {
	defer c.Close()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Info().Err(err).Str("module", "client").Msg("readPump read error")
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer close(c.writerDone)

	for {
		select {
		case <-c.done:
			c.flush()
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "client").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush drains frames enqueued before shutdown, so the coordinator still
// hears a final broadcasterStop.
func (c *Client) flush() {
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}
