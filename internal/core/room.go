package core

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// Capacity bounds applied to every room regardless of what was requested.
const (
	MinCapacity = 2
	MaxCapacity = 5

	// MaxRoomNameLength caps room names, in runes.
	MaxRoomNameLength = 32
)

// RoomID identifies a room. Generated, never chosen by clients.
type RoomID string

// ClampCapacity forces a requested capacity into [MinCapacity, MaxCapacity].
func ClampCapacity(requested int) int {
	return min(max(requested, MinCapacity), MaxCapacity)
}

// NormalizeRoomName trims the name and cuts it to MaxRoomNameLength runes.
func NormalizeRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: room name is required", ErrMalformedMessage)
	}
	if utf8.RuneCountInString(name) > MaxRoomNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxRoomNameLength]))
	}
	return name, nil
}

// RoomInfo is a point-in-time summary of a room.
type RoomInfo struct {
	ID       RoomID
	Name     string
	Count    int
	Capacity int
}

// Room groups sessions negotiating a shared call.
// Only the registry touches it, under the registry lock.
type Room struct {
	ID       RoomID
	Name     string
	Capacity int

	members map[SessionID]struct{}
}

// NewRoom constructs a room with no members.
func NewRoom(id RoomID, name string, capacity int) *Room {
	return &Room{
		ID:       id,
		Name:     name,
		Capacity: ClampCapacity(capacity),
		members:  make(map[SessionID]struct{}),
	}
}

// AddMember inserts a session. Returns true if newly added.
func (r *Room) AddMember(id SessionID) bool {
	if _, exists := r.members[id]; exists {
		return false
	}
	r.members[id] = struct{}{}
	return true
}

// RemoveMember deletes a session. Returns true if removed.
func (r *Room) RemoveMember(id SessionID) bool {
	if _, exists := r.members[id]; !exists {
		return false
	}
	delete(r.members, id)
	return true
}

// Has reports whether the session is a member.
func (r *Room) Has(id SessionID) bool {
	_, ok := r.members[id]
	return ok
}

// Full returns true when no seat is left.
func (r *Room) Full() bool {
	return len(r.members) >= r.Capacity
}

// Empty returns true if no sessions are in the room.
func (r *Room) Empty() bool {
	return len(r.members) == 0
}

// MemberIDs returns the members in ascending id order.
func (r *Room) MemberIDs() []SessionID {
	ids := make([]SessionID, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Info snapshots the room.
func (r *Room) Info() RoomInfo {
	return RoomInfo{
		ID:       r.ID,
		Name:     r.Name,
		Count:    len(r.members),
		Capacity: r.Capacity,
	}
}
