package core

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/vovakirdan/meshroom/internal/utils"
)

// JoinResult describes a successful join.
type JoinResult struct {
	Room    RoomInfo
	Members []SessionID // every member after the join, joiner included
	// Previous is set when the session was moved out of another room.
	Previous *LeaveResult
}

// LeaveResult describes a removal from a room.
type LeaveResult struct {
	Room      RoomInfo // state after removal
	Remaining []SessionID
	Deleted   bool
}

// Registry is the process-wide table of active rooms.
// Every read-then-write on membership runs under a single lock acquisition.
type Registry struct {
	mu        sync.Mutex
	rooms     map[RoomID]*Room
	bySession map[SessionID]RoomID
	newID     func() RoomID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:     make(map[RoomID]*Room),
		bySession: make(map[SessionID]RoomID),
		newID:     func() RoomID { return RoomID(utils.NewID()) },
	}
}

// CreateRoom registers an empty room and returns its id.
// Names may repeat; a repeated name gets a counter suffix for display.
func (r *Registry) CreateRoom(name string, capacity int) RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.createLocked(name, capacity).ID
}

// CreateAndJoin creates a room with the session as its first member.
// The room is never observable empty.
func (r *Registry) CreateAndJoin(session SessionID, name string, capacity int) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var prev *LeaveResult
	if _, ok := r.bySession[session]; ok {
		res := r.leaveLocked(session)
		prev = &res
	}

	room := r.createLocked(name, capacity)
	room.AddMember(session)
	r.bySession[session] = room.ID

	return JoinResult{Room: room.Info(), Members: room.MemberIDs(), Previous: prev}
}

// Join adds the session to an existing room.
// A session already in another room is moved only once the target has accepted it.
func (r *Registry) Join(session SessionID, roomID RoomID) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return JoinResult{}, ErrRoomNotFound
	}
	if room.Has(session) {
		return JoinResult{}, ErrAlreadyJoined
	}
	if room.Full() {
		return JoinResult{}, fmt.Errorf("%w: %d/%d", ErrRoomFull, len(room.members), room.Capacity)
	}

	var prev *LeaveResult
	if _, ok := r.bySession[session]; ok {
		res := r.leaveLocked(session)
		prev = &res
	}

	room.AddMember(session)
	r.bySession[session] = roomID

	return JoinResult{Room: room.Info(), Members: room.MemberIDs(), Previous: prev}, nil
}

// Leave removes the session from its room, deleting the room once empty.
// Returns false when the session was not in any room.
func (r *Registry) Leave(session SessionID) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySession[session]; !ok {
		return LeaveResult{}, false
	}
	return r.leaveLocked(session), true
}

// ListRooms returns a fresh snapshot ordered by display name, then id.
func (r *Registry) ListRooms() []RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]RoomInfo, 0, len(r.rooms))
	for _, room := range r.rooms {
		list = append(list, room.Info())
	}
	slices.SortFunc(list, func(a, b RoomInfo) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return list
}

// Room returns a snapshot of one room.
func (r *Registry) Room(id RoomID) (RoomInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return RoomInfo{}, false
	}
	return room.Info(), true
}

// Members lists the sessions in a room.
func (r *Registry) Members(id RoomID) ([]SessionID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, false
	}
	return room.MemberIDs(), true
}

// RoomOf returns the room the session is in.
func (r *Registry) RoomOf(session SessionID) (RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.bySession[session]
	return id, ok
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms)
}

func (r *Registry) createLocked(name string, capacity int) *Room {
	room := NewRoom(r.newID(), r.displayNameLocked(name), capacity)
	r.rooms[room.ID] = room
	return room
}

func (r *Registry) leaveLocked(session SessionID) LeaveResult {
	roomID := r.bySession[session]
	delete(r.bySession, session)

	room, ok := r.rooms[roomID]
	if !ok {
		return LeaveResult{Room: RoomInfo{ID: roomID}, Deleted: true}
	}
	room.RemoveMember(session)

	res := LeaveResult{Room: room.Info(), Remaining: room.MemberIDs()}
	if room.Empty() {
		delete(r.rooms, roomID)
		res.Deleted = true
	}
	return res
}

// displayNameLocked picks a name no live room shows, suffixing " (n)" when needed.
func (r *Registry) displayNameLocked(base string) string {
	taken := make(map[string]struct{})
	for _, room := range r.rooms {
		taken[room.Name] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
