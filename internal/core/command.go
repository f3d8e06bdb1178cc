package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSetProfile replaces the session's declared profile.
	CommandSetProfile CommandKind = iota
	// CommandCreateRoom creates a room and joins the creator to it.
	CommandCreateRoom
	// CommandListRooms asks for the current room list.
	CommandListRooms
	// CommandJoinRoom joins an existing room.
	CommandJoinRoom
	// CommandLeaveRoom leaves the current room.
	CommandLeaveRoom
	// CommandChat delivers a chat message to the current room.
	CommandChat
	// CommandSignal relays an opaque negotiation payload.
	CommandSignal
)

func (k CommandKind) String() string {
	switch k {
	case CommandSetProfile:
		return "set_profile"
	case CommandCreateRoom:
		return "create_room"
	case CommandListRooms:
		return "list_rooms"
	case CommandJoinRoom:
		return "join_room"
	case CommandLeaveRoom:
		return "leave_room"
	case CommandChat:
		return "chat"
	case CommandSignal:
		return "signal"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
// Only the fields belonging to Kind are meaningful.
type Command struct {
	Kind CommandKind

	Profile  Profile // CommandSetProfile
	RoomName string  // CommandCreateRoom
	Capacity *int    // CommandCreateRoom; nil uses the hub default
	Room     RoomID  // CommandJoinRoom
	Text     string  // CommandChat

	// To is the signal target; zero relays to the whole room.
	To      SessionID
	Payload json.RawMessage
}
