package http

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coder/websocket"

	"github.com/vovakirdan/meshroom/internal/config"
	"github.com/vovakirdan/meshroom/internal/core"
	"github.com/vovakirdan/meshroom/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t, nil)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)
	dial(t, ctx, ts)

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "meshroom_sessions 1") {
		t.Fatalf("sessions gauge missing from metrics output")
	}
}

func TestStaticFilesServed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>meshroom</h1>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	ts := startTestServer(t, func(cfg *config.Config) { cfg.StaticDir = dir })

	resp, err := ts.Client().Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("static request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "meshroom") {
		t.Fatalf("unexpected static response: %d %q", resp.StatusCode, body)
	}
}

func TestWebSocketGreeting(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)

	_, first := dial(t, ctx, ts)
	_, second := dial(t, ctx, ts)

	if first == 0 || second == 0 || first == second {
		t.Fatalf("expected distinct non-zero ids, got %d and %d", first, second)
	}
	if n := ts.hub.SessionCount(); n != 2 {
		t.Fatalf("expected 2 registered sessions, got %d", n)
	}
}

func TestWebSocketRoomFlow(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)

	connA, idA := dial(t, ctx, ts)
	connB, idB := dial(t, ctx, ts)

	setProfile(t, ctx, connA, "alice")
	setProfile(t, ctx, connB, "bob")

	room := createRoom(t, ctx, connA, "Lobby", 2)
	if room.RoomName != "Lobby" || room.Capacity != 2 || len(room.Members) != 0 {
		t.Fatalf("unexpected joined payload: %+v", room)
	}
	if room.Self.ID != idA || room.Self.Name != "alice" {
		t.Fatalf("unexpected self: %+v", room.Self)
	}

	joined := joinRoom(t, ctx, connB, room.RoomID)
	if len(joined.Members) != 1 || joined.Members[0].ID != idA {
		t.Fatalf("bob should see alice, got %+v", joined.Members)
	}
	if joined.Members[0].Initiate {
		t.Fatalf("the later session must not initiate towards the earlier one")
	}

	var arrived proto.EventMemberJoinedData
	expectEvent(t, ctx, connA, proto.EventMemberJoined, &arrived)
	if arrived.Member.ID != idB || arrived.Member.Name != "bob" || !arrived.Member.Initiate {
		t.Fatalf("unexpected memberJoined payload: %+v", arrived)
	}

	send(t, ctx, connA, proto.InboundTypeChat, proto.ChatData{Text: "hi there"})
	for _, conn := range []*websocket.Conn{connA, connB} {
		var chat proto.EventChatData
		expectEvent(t, ctx, conn, proto.EventChat, &chat)
		if chat.Text != "hi there" || chat.From.ID != idA || chat.RoomID != room.RoomID || chat.TS == 0 {
			t.Fatalf("unexpected chat payload: %+v", chat)
		}
	}

	send(t, ctx, connB, proto.InboundTypeLeaveRoom, nil)
	var left proto.EventLeftData
	expectEvent(t, ctx, connB, proto.EventLeft, &left)
	if left.RoomID != room.RoomID {
		t.Fatalf("unexpected left payload: %+v", left)
	}

	var gone proto.EventMemberLeftData
	expectEvent(t, ctx, connA, proto.EventMemberLeft, &gone)
	if gone.ID != idB {
		t.Fatalf("unexpected memberLeft payload: %+v", gone)
	}
}

func TestWebSocketRoomFull(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)

	connA, _ := dial(t, ctx, ts)
	connB, _ := dial(t, ctx, ts)
	connC, _ := dial(t, ctx, ts)
	setProfile(t, ctx, connA, "a")
	setProfile(t, ctx, connB, "b")
	setProfile(t, ctx, connC, "c")

	room := createRoom(t, ctx, connA, "pair", 2)
	joinRoom(t, ctx, connB, room.RoomID)

	send(t, ctx, connC, proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomID: room.RoomID})
	expectError(t, ctx, connC, core.ErrCodeRoomFull)

	send(t, ctx, connC, proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomID: "missing"})
	expectError(t, ctx, connC, core.ErrCodeRoomNotFound)
}

func TestWebSocketSignalRelay(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)

	connA, idA := dial(t, ctx, ts)
	connB, idB := dial(t, ctx, ts)
	setProfile(t, ctx, connA, "alice")
	setProfile(t, ctx, connB, "bob")

	room := createRoom(t, ctx, connA, "call", 3)
	joinRoom(t, ctx, connB, room.RoomID)

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	send(t, ctx, connA, proto.InboundTypeSignal, proto.SignalData{To: idB, Payload: payload})

	var sig proto.EventSignalData
	expectEvent(t, ctx, connB, proto.EventSignal, &sig)
	if sig.From.ID != idA {
		t.Fatalf("unexpected signal sender: %+v", sig.From)
	}

	var got, want map[string]any
	_ = json.Unmarshal(sig.Payload, &got)
	_ = json.Unmarshal(payload, &want)
	if got["type"] != want["type"] || got["sdp"] != want["sdp"] {
		t.Fatalf("payload altered in transit: %s", sig.Payload)
	}
}

func TestWebSocketMalformedKeepsConnection(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)

	conn, _ := dial(t, ctx, ts)

	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectError(t, ctx, conn, core.ErrCodeMalformedMessage)

	send(t, ctx, conn, "teleport", map[string]string{"to": "mars"})
	expectError(t, ctx, conn, core.ErrCodeMalformedMessage)

	send(t, ctx, conn, proto.InboundTypeJoinRoom, nil)
	expectError(t, ctx, conn, core.ErrCodeMalformedMessage)

	send(t, ctx, conn, proto.InboundTypeChat, proto.ChatData{Text: "hello"})
	expectError(t, ctx, conn, core.ErrCodeNotInRoom)

	send(t, ctx, conn, proto.InboundTypeListRooms, nil)
	expectEvent(t, ctx, conn, proto.EventRooms, nil)
}

func TestWebSocketRateLimit(t *testing.T) {
	ts := startTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = 0.001
		cfg.RateBurst = 1
	})
	ctx := testContext(t)

	conn, _ := dial(t, ctx, ts)

	send(t, ctx, conn, proto.InboundTypeListRooms, nil)
	expectEvent(t, ctx, conn, proto.EventRooms, nil)

	send(t, ctx, conn, proto.InboundTypeListRooms, nil)
	expectError(t, ctx, conn, core.ErrCodeRateLimited)
}

func TestWebSocketDisconnectCleansUp(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)

	connA, _ := dial(t, ctx, ts)
	connB, idB := dial(t, ctx, ts)
	setProfile(t, ctx, connA, "alice")
	setProfile(t, ctx, connB, "bob")

	room := createRoom(t, ctx, connA, "drop", 2)
	joinRoom(t, ctx, connB, room.RoomID)

	connB.Close(websocket.StatusNormalClosure, "bye")

	var gone proto.EventMemberLeftData
	expectEvent(t, ctx, connA, proto.EventMemberLeft, &gone)
	if gone.ID != idB {
		t.Fatalf("unexpected memberLeft payload: %+v", gone)
	}
}

func TestHealthzAlias(t *testing.T) {
	ts := startTestServer(t, nil)

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", resp.StatusCode, body)
	}
}

func TestForceHTTPSRedirect(t *testing.T) {
	ts := startTestServer(t, func(cfg *config.Config) { cfg.ForceHTTPS = true })

	client := ts.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	tests := []struct {
		name     string
		method   string
		proto    string
		wantCode int
	}{
		{name: "plain get", method: http.MethodGet, proto: "http", wantCode: http.StatusMovedPermanently},
		{name: "plain head", method: http.MethodHead, proto: "http", wantCode: http.StatusMovedPermanently},
		{name: "already https", method: http.MethodGet, proto: "https", wantCode: http.StatusOK},
		{name: "no proxy header", method: http.MethodGet, proto: "", wantCode: http.StatusOK},
		{name: "post untouched", method: http.MethodPost, proto: "http", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+"/health?x=1", nil)
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			if tt.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.proto)
			}

			resp, err := client.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if tt.wantCode == http.StatusMovedPermanently {
				want := "https://" + req.URL.Host + "/health?x=1"
				if got := resp.Header.Get("Location"); got != want {
					t.Fatalf("location = %q, want %q", got, want)
				}
			}
		})
	}
}

func TestForceHTTPSLeavesWebSocketAlone(t *testing.T) {
	ts := startTestServer(t, func(cfg *config.Config) { cfg.ForceHTTPS = true })
	ctx := testContext(t)

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"X-Forwarded-Proto": []string{"http"}},
	})
	if err != nil {
		t.Fatalf("dial behind proxy header: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	expectEvent(t, ctx, conn, proto.EventWelcome, nil)
}
