package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeSetProfile = "setProfile"
	InboundTypeCreateRoom = "createRoom"
	InboundTypeListRooms  = "listRooms"
	InboundTypeJoinRoom   = "joinRoom"
	InboundTypeLeaveRoom  = "leaveRoom"
	InboundTypeChat       = "chat"
	InboundTypeSignal     = "signal"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventWelcome      = "welcome"
	EventProfile      = "profile"
	EventRooms        = "rooms"
	EventJoined       = "joined"
	EventMembers      = "members"
	EventMemberJoined = "memberJoined"
	EventMemberLeft   = "memberLeft"
	EventLeft         = "left"
	EventChat         = "chat"
	EventSignal       = "signal"
)

// SetProfileData declares the sender's display name and optional photo.
type SetProfileData struct {
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
}

// CreateRoomData requests a new room. Capacity is optional.
type CreateRoomData struct {
	Name     string `json:"name"`
	Capacity *int   `json:"capacity,omitempty"`
}

// JoinRoomData requests to join a specific room.
type JoinRoomData struct {
	RoomID string `json:"roomId"`
}

// ChatData is a chat message from the client.
type ChatData struct {
	Text string `json:"text"`
}

// SignalData carries an opaque negotiation payload, optionally addressed to one peer.
type SignalData struct {
	To      uint64          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Member describes a participant. Initiate tells the recipient to send the offer.
type Member struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Photo    string `json:"photo,omitempty"`
	Initiate bool   `json:"initiate,omitempty"`
}

// RoomSummary is one entry of the room list.
type RoomSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Capacity int    `json:"capacity"`
}

// EventWelcomeData tells a fresh connection its id.
type EventWelcomeData struct {
	ID uint64 `json:"id"`
}

// EventProfileData acknowledges a profile update.
type EventProfileData struct {
	Self Member `json:"self"`
}

// EventRoomsData is the full room list.
type EventRoomsData struct {
	Rooms []RoomSummary `json:"rooms"`
}

// EventJoinedData confirms a join.
type EventJoinedData struct {
	RoomID   string   `json:"roomId"`
	RoomName string   `json:"roomName"`
	Capacity int      `json:"capacity"`
	Self     Member   `json:"self"`
	Members  []Member `json:"members"`
}

// EventMembersData is the full member list of a room.
type EventMembersData struct {
	RoomID  string   `json:"roomId"`
	Members []Member `json:"members"`
}

// EventMemberJoinedData notifies that a member joined a room.
type EventMemberJoinedData struct {
	RoomID string `json:"roomId"`
	Member Member `json:"member"`
}

// EventMemberLeftData notifies that a member left a room.
type EventMemberLeftData struct {
	RoomID string `json:"roomId"`
	ID     uint64 `json:"id"`
}

// EventLeftData confirms an explicit leave.
type EventLeftData struct {
	RoomID string `json:"roomId"`
}

// EventChatData is a chat message delivery.
type EventChatData struct {
	RoomID string `json:"roomId"`
	From   Member `json:"from"`
	Text   string `json:"text"`
	TS     int64  `json:"ts"`
}

// EventSignalData relays a negotiation payload.
type EventSignalData struct {
	From    Member          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
