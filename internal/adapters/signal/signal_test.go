package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Davy-M/chat-app/internal/app"
	"github.com/Davy-M/chat-app/internal/config"
	"github.com/Davy-M/chat-app/internal/core"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{ReadLimit: 32768, ChatBurst: 100, ChatWindow: time.Minute}
	ctl := NewSignalWSController(app.NewCoordinator(app.NewRegistry()), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type testPeer struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func dialPeer(t *testing.T, srv *httptest.Server) *testPeer {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	p := &testPeer{t: t, conn: conn}
	ev := p.read()
	if ev["type"] != core.EvID {
		t.Fatalf("first event = %v, want id", ev["type"])
	}
	p.id, _ = ev["id"].(string)
	return p
}

func (p *testPeer) read() map[string]any {
	p.t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := p.conn.ReadMessage()
	if err != nil {
		p.t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		p.t.Fatalf("bad frame %q: %v", data, err)
	}
	return m
}

func (p *testPeer) send(v any) {
	p.t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		p.t.Fatalf("marshal: %v", err)
	}
	if err := p.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		p.t.Fatalf("write: %v", err)
	}
}

func (p *testPeer) join(name string) {
	p.t.Helper()
	p.send(core.JoinEvent{Type: core.EvJoin, Username: name})
}

func (p *testPeer) expect(typ string) map[string]any {
	p.t.Helper()
	ev := p.read()
	if ev["type"] != typ {
		p.t.Fatalf("event = %v, want %s (full: %v)", ev["type"], typ, ev)
	}
	return ev
}

func clientList(ev map[string]any) []string {
	raw, _ := ev["clients"].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, _ := v.(string)
		out = append(out, s)
	}
	return out
}

func TestSignal_JoinPresenceFlow(t *testing.T) {
	srv := newTestServer(t)

	a := dialPeer(t, srv)
	a.join("alice")
	if got := clientList(a.expect(core.EvClients)); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("clients = %v, want [alice]", got)
	}

	b := dialPeer(t, srv)
	b.join("bob")
	if got := clientList(b.expect(core.EvClients)); len(got) != 2 || got[1] != "bob" {
		t.Fatalf("clients = %v, want [alice bob]", got)
	}
	if got := clientList(a.expect(core.EvClients)); len(got) != 2 {
		t.Fatalf("clients = %v, want [alice bob]", got)
	}
}

func TestSignal_BroadcastWatchOfferAnswerCandidates(t *testing.T) {
	srv := newTestServer(t)

	a := dialPeer(t, srv)
	a.join("alice")
	a.expect(core.EvClients)

	b := dialPeer(t, srv)
	b.join("bob")
	b.expect(core.EvClients)
	a.expect(core.EvClients)

	// B announces a stream; only A hears it.
	b.send(core.Envelope{Type: core.EvBroadcaster})
	ev := a.expect(core.EvBroadcaster)
	if ev["id"] != b.id {
		t.Fatalf("broadcaster id = %v, want %s", ev["id"], b.id)
	}

	// A asks to watch; the request reaches B with A's id.
	a.send(core.WatchEvent{Type: core.EvWatcher, Target: core.SessionID(b.id)})
	ev = b.expect(core.EvWatcher)
	if ev["id"] != a.id {
		t.Fatalf("watcher id = %v, want %s", ev["id"], a.id)
	}

	// B offers; A receives it with caller rewritten.
	b.send(core.SignalEvent{Type: core.EvOffer, Target: core.SessionID(a.id), SDP: json.RawMessage(`{"type":"offer","sdp":"x"}`)})
	ev = a.expect(core.EvOffer)
	if ev["caller"] != b.id {
		t.Fatalf("offer caller = %v, want %s", ev["caller"], b.id)
	}

	// A answers and trickles candidates; B sees them in send order.
	a.send(core.SignalEvent{Type: core.EvAnswer, Target: core.SessionID(b.id), SDP: json.RawMessage(`{"type":"answer","sdp":"y"}`)})
	for i := 1; i <= 3; i++ {
		a.send(core.SignalEvent{
			Type:      core.EvCandidate,
			Target:    core.SessionID(b.id),
			Candidate: json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)),
		})
	}

	ev = b.expect(core.EvAnswer)
	if ev["caller"] != a.id {
		t.Fatalf("answer caller = %v, want %s", ev["caller"], a.id)
	}
	for i := 1; i <= 3; i++ {
		ev = b.expect(core.EvCandidate)
		cand, _ := ev["candidate"].(map[string]any)
		if int(cand["n"].(float64)) != i {
			t.Fatalf("candidate %d arrived out of order: %v", i, cand)
		}
	}
}

func TestSignal_DisconnectSweep(t *testing.T) {
	srv := newTestServer(t)

	a := dialPeer(t, srv)
	a.join("alice")
	a.expect(core.EvClients)

	b := dialPeer(t, srv)
	b.join("bob")
	b.expect(core.EvClients)
	a.expect(core.EvClients)

	a.conn.Close()

	// Presence refresh first, then the peer teardown trigger.
	if got := clientList(b.expect(core.EvClients)); len(got) != 1 || got[0] != "bob" {
		t.Fatalf("clients = %v, want [bob]", got)
	}
	ev := b.expect(core.EvDisconnectPeer)
	if ev["id"] != a.id {
		t.Fatalf("disconnectPeer id = %v, want %s", ev["id"], a.id)
	}

	// Relaying to the vanished id is a silent drop; the chat echo proves the
	// coordinator is still live and nothing leaked to B.
	b.send(core.SignalEvent{Type: core.EvOffer, Target: core.SessionID(a.id), SDP: json.RawMessage(`{}`)})
	b.send(core.ChatEvent{Type: core.EvMessage, Username: "bob", Message: "still here"})
	ev = b.expect(core.EvMessage)
	if ev["message"] != "still here" {
		t.Fatalf("message = %v", ev["message"])
	}
}

func TestSignal_ChatAndTyping(t *testing.T) {
	srv := newTestServer(t)

	a := dialPeer(t, srv)
	a.join("alice")
	a.expect(core.EvClients)

	b := dialPeer(t, srv)
	b.join("bob")
	b.expect(core.EvClients)
	a.expect(core.EvClients)

	a.send(core.TypingEvent{Type: core.EvTyping, Username: "alice"})
	ev := b.expect(core.EvTyping)
	if ev["username"] != "alice" {
		t.Fatalf("typing username = %v", ev["username"])
	}

	a.send(core.ChatEvent{Type: core.EvMessage, Username: "alice", Message: "hello"})
	// Sender gets the echo; no typing event ever came back to it.
	ev = a.expect(core.EvMessage)
	if ev["message"] != "hello" {
		t.Fatalf("echo = %v", ev["message"])
	}
	ev = b.expect(core.EvMessage)
	if ev["message"] != "hello" {
		t.Fatalf("fanout = %v", ev["message"])
	}
}
