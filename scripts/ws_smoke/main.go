package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/meshroom/internal/proto"
)

type outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	name := flag.String("name", "tester", "display name to announce")
	room := flag.String("room", "smoke", "room to create")
	text := flag.String("text", "hello from smoke test", "chat text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeSetProfile, proto.SetProfileData{Name: *name}); err != nil {
		return err
	}

	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		if out.Type == proto.OutboundTypeError {
			return fmt.Errorf("server error %s: %s", out.Error.Code, out.Error.Msg)
		}
		fmt.Printf("Received event=%s\n", out.Event)

		switch out.Event {
		case proto.EventWelcome:
			var evt proto.EventWelcomeData
			if err := json.Unmarshal(out.Data, &evt); err == nil {
				fmt.Printf("Welcome: id=%d\n", evt.ID)
			}
		case proto.EventProfile:
			if err := send(proto.InboundTypeCreateRoom, proto.CreateRoomData{Name: *room}); err != nil {
				return err
			}
		case proto.EventJoined:
			var evt proto.EventJoinedData
			if err := json.Unmarshal(out.Data, &evt); err == nil {
				fmt.Printf("Joined: room=%s name=%q capacity=%d\n", evt.RoomID, evt.RoomName, evt.Capacity)
			}
			if err := send(proto.InboundTypeChat, proto.ChatData{Text: *text}); err != nil {
				return err
			}
		case proto.EventChat:
			var evt proto.EventChatData
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				return fmt.Errorf("unmarshal chat: %w", err)
			}
			fmt.Printf("Chat: room=%s from=%s text=%q ts=%d\n", evt.RoomID, evt.From.Name, evt.Text, evt.TS)
			return nil
		default:
			// keep looping for the chat echo
		}
	}
}
