package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/meshroom/internal/config"
	"github.com/vovakirdan/meshroom/internal/core"
	"github.com/vovakirdan/meshroom/internal/liveness"
	"github.com/vovakirdan/meshroom/internal/metrics"
	"github.com/vovakirdan/meshroom/internal/proto"
)

// wireOutbound mirrors proto.Outbound with the payload left raw.
type wireOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

type testServer struct {
	*httptest.Server
	hub     *core.Hub
	metrics *metrics.Metrics
}

// startTestServer runs a hub and an HTTP server. mutate may adjust the config.
func startTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.StaticDir = ""
	cfg.RateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}

	disabledLogger := zerolog.Nop()
	m := metrics.New()
	hub := core.NewHub(nil, core.HubConfig{DefaultCapacity: cfg.DefaultCapacity, Recorder: m}, &disabledLogger)
	monitor := liveness.New(cfg.PingInterval, &disabledLogger, func(core.SessionID) {
		m.LivenessEvicted()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	go monitor.Run(ctx)

	server := NewServer(hub, monitor, m, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})

	return &testServer{Server: ts, hub: hub, metrics: m}
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// dial connects and consumes the welcome and rooms greeting. It returns the
// session id assigned by the server.
func dial(t *testing.T, ctx context.Context, ts *testServer) (*websocket.Conn, uint64) {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	var welcome proto.EventWelcomeData
	expectEvent(t, ctx, conn, proto.EventWelcome, &welcome)
	expectEvent(t, ctx, conn, proto.EventRooms, nil)

	return conn, welcome.ID
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	var raw json.RawMessage
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal %s: %v", typ, err)
		}
		raw = payload
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readOutbound(t *testing.T, ctx context.Context, conn *websocket.Conn) wireOutbound {
	t.Helper()

	var out wireOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

// expectEvent reads until the named event arrives, skipping other events.
// Errors are never skipped.
func expectEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, name string, into any) {
	t.Helper()

	for {
		out := readOutbound(t, ctx, conn)
		if out.Type == proto.OutboundTypeError {
			t.Fatalf("expected event %q, got error %+v", name, out.Error)
		}
		if out.Event != name {
			continue
		}
		if into != nil {
			if err := json.Unmarshal(out.Data, into); err != nil {
				t.Fatalf("unmarshal %s: %v", name, err)
			}
		}
		return
	}
}

// expectError reads until an error arrives and checks its code.
func expectError(t *testing.T, ctx context.Context, conn *websocket.Conn, code string) {
	t.Helper()

	for {
		out := readOutbound(t, ctx, conn)
		if out.Type != proto.OutboundTypeError {
			continue
		}
		if out.Error == nil || out.Error.Code != code {
			t.Fatalf("expected error %q, got %+v", code, out.Error)
		}
		return
	}
}

func setProfile(t *testing.T, ctx context.Context, conn *websocket.Conn, name string) {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeSetProfile, proto.SetProfileData{Name: name})
	expectEvent(t, ctx, conn, proto.EventProfile, nil)
}

func createRoom(t *testing.T, ctx context.Context, conn *websocket.Conn, name string, capacity int) proto.EventJoinedData {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeCreateRoom, proto.CreateRoomData{Name: name, Capacity: &capacity})
	var joined proto.EventJoinedData
	expectEvent(t, ctx, conn, proto.EventJoined, &joined)
	return joined
}

func joinRoom(t *testing.T, ctx context.Context, conn *websocket.Conn, roomID string) proto.EventJoinedData {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomID: roomID})
	var joined proto.EventJoinedData
	expectEvent(t, ctx, conn, proto.EventJoined, &joined)
	return joined
}
