package http

import (
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/meshroom/internal/core"
	"github.com/vovakirdan/meshroom/internal/proto"
)

// inboundToCommand decodes one inbound frame into a core command.
// Every failure is reported as a malformed message; the connection stays open.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeSetProfile:
		var data proto.SetProfileData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, malformed(err)
		}
		return &core.Command{
			Kind:    core.CommandSetProfile,
			Profile: core.Profile{Name: data.Name, Photo: data.Photo},
		}, nil
	case proto.InboundTypeCreateRoom:
		var data proto.CreateRoomData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, malformed(err)
		}
		if data.Name == "" {
			return nil, &proto.Error{Code: core.ErrCodeMalformedMessage, Msg: "name is required"}
		}
		return &core.Command{
			Kind:     core.CommandCreateRoom,
			RoomName: data.Name,
			Capacity: data.Capacity,
		}, nil
	case proto.InboundTypeListRooms:
		return &core.Command{Kind: core.CommandListRooms}, nil
	case proto.InboundTypeJoinRoom:
		var data proto.JoinRoomData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, malformed(err)
		}
		if data.RoomID == "" {
			return nil, &proto.Error{Code: core.ErrCodeMalformedMessage, Msg: "roomId is required"}
		}
		return &core.Command{
			Kind: core.CommandJoinRoom,
			Room: core.RoomID(data.RoomID),
		}, nil
	case proto.InboundTypeLeaveRoom:
		return &core.Command{Kind: core.CommandLeaveRoom}, nil
	case proto.InboundTypeChat:
		var data proto.ChatData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, malformed(err)
		}
		return &core.Command{
			Kind: core.CommandChat,
			Text: data.Text,
		}, nil
	case proto.InboundTypeSignal:
		var data proto.SignalData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, malformed(err)
		}
		if len(data.Payload) == 0 || string(data.Payload) == "null" {
			return nil, &proto.Error{Code: core.ErrCodeMalformedMessage, Msg: "payload is required"}
		}
		return &core.Command{
			Kind:    core.CommandSignal,
			To:      core.SessionID(data.To),
			Payload: data.Payload,
		}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeMalformedMessage, Msg: fmt.Sprintf("unknown message type %q", inbound.Type)}
	}
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("data is required")
	}
	return json.Unmarshal(raw, v)
}

func malformed(err error) *proto.Error {
	return &proto.Error{Code: core.ErrCodeMalformedMessage, Msg: err.Error()}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventWelcome:
		return eventOutbound(proto.EventWelcome, proto.EventWelcomeData{ID: uint64(event.Self.ID)})
	case core.EventProfile:
		return eventOutbound(proto.EventProfile, proto.EventProfileData{Self: memberFromCore(*event.Self, false)})
	case core.EventRooms:
		return eventOutbound(proto.EventRooms, proto.EventRoomsData{Rooms: roomSummaries(event.Rooms)})
	case core.EventJoined:
		return eventOutbound(proto.EventJoined, proto.EventJoinedData{
			RoomID:   string(event.Room.ID),
			RoomName: event.Room.Name,
			Capacity: event.Room.Capacity,
			Self:     memberFromCore(*event.Self, false),
			Members:  peersFromCore(event.Members),
		})
	case core.EventMembers:
		return eventOutbound(proto.EventMembers, proto.EventMembersData{
			RoomID:  string(event.Room.ID),
			Members: peersFromCore(event.Members),
		})
	case core.EventMemberJoined:
		return eventOutbound(proto.EventMemberJoined, proto.EventMemberJoinedData{
			RoomID: string(event.Room.ID),
			Member: memberFromCore(event.Member.Member, event.Member.Initiate),
		})
	case core.EventMemberLeft:
		return eventOutbound(proto.EventMemberLeft, proto.EventMemberLeftData{
			RoomID: string(event.Room.ID),
			ID:     uint64(event.User),
		})
	case core.EventLeft:
		return eventOutbound(proto.EventLeft, proto.EventLeftData{RoomID: string(event.Room.ID)})
	case core.EventChat:
		return eventOutbound(proto.EventChat, proto.EventChatData{
			RoomID: string(event.Message.Room),
			From:   memberFromCore(event.Message.From, false),
			Text:   event.Message.Text,
			TS:     event.Message.CreatedAt.UnixMilli(),
		})
	case core.EventSignal:
		return eventOutbound(proto.EventSignal, proto.EventSignalData{
			From:    memberFromCore(event.Signal.From, false),
			Payload: event.Signal.Payload,
		})
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventOutbound(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func memberFromCore(m core.Member, initiate bool) proto.Member {
	return proto.Member{
		ID:       uint64(m.ID),
		Name:     m.Name,
		Photo:    m.Photo,
		Initiate: initiate,
	}
}

func peersFromCore(peers []core.Peer) []proto.Member {
	out := make([]proto.Member, 0, len(peers))
	for _, p := range peers {
		out = append(out, memberFromCore(p.Member, p.Initiate))
	}
	return out
}

func roomSummaries(rooms []core.RoomInfo) []proto.RoomSummary {
	out := make([]proto.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, proto.RoomSummary{
			ID:       string(r.ID),
			Name:     r.Name,
			Count:    r.Count,
			Capacity: r.Capacity,
		})
	}
	return out
}
