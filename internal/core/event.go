package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventWelcome tells a new connection its session id.
	EventWelcome EventKind = iota
	// EventProfile acknowledges a profile update.
	EventProfile
	// EventRooms carries the full room list.
	EventRooms
	// EventJoined confirms a join and lists the members already present.
	EventJoined
	// EventMembers carries the full member list of the recipient's room.
	EventMembers
	// EventMemberJoined notifies members about a newcomer.
	EventMemberJoined
	// EventMemberLeft notifies members about a departure.
	EventMemberLeft
	// EventLeft confirms an explicit leave to the leaver.
	EventLeft
	// EventChat delivers a chat message.
	EventChat
	// EventSignal delivers a negotiation payload.
	EventSignal
	// EventError notifies clients about a domain error.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventWelcome:
		return "welcome"
	case EventProfile:
		return "profile"
	case EventRooms:
		return "rooms"
	case EventJoined:
		return "joined"
	case EventMembers:
		return "members"
	case EventMemberJoined:
		return "member_joined"
	case EventMemberLeft:
		return "member_left"
	case EventLeft:
		return "left"
	case EventChat:
		return "chat"
	case EventSignal:
		return "signal"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind EventKind

	Room    RoomInfo   // joined, members, member_joined, member_left, left
	Self    *Member    // welcome, profile, joined
	Rooms   []RoomInfo // rooms
	Members []Peer     // joined, members
	Member  *Peer      // member_joined
	User    SessionID  // member_left

	Message *ChatMessage
	Signal  *Signal
	Error   *CoreError
}
