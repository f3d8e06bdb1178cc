package core

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

// MaxNameLength caps display names, in runes.
const MaxNameLength = 24

// DefaultEventBuffer is the outbound queue size used when none is given.
const DefaultEventBuffer = 32

// SessionID identifies a connection for the lifetime of the process.
// Ids are never reused, and comparing two ids decides which peer initiates.
type SessionID uint64

func (id SessionID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

var lastSessionID atomic.Uint64

// NextSessionID hands out a fresh process-unique session id.
func NextSessionID() SessionID {
	return SessionID(lastSessionID.Add(1))
}

// Profile is what a participant declares about itself.
type Profile struct {
	Name  string
	Photo string
}

// NormalizeProfile trims the name and rejects empty or oversized ones.
// The photo reference is passed through untouched.
func NormalizeProfile(p Profile) (Profile, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return Profile{}, fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return Profile{}, fmt.Errorf("%w: name longer than %d characters", ErrInvalidProfile, MaxNameLength)
	}
	return Profile{Name: name, Photo: p.Photo}, nil
}

// SessionState tracks where a session is in its lifecycle.
type SessionState int

const (
	StateConnected SessionState = iota
	StateIdentified
	StateInRoom
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateIdentified:
		return "identified"
	case StateInRoom:
		return "in_room"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one connected participant as seen by the core layer.
// Profile and state are owned by the hub goroutine.
type Session struct {
	ID       SessionID
	Commands chan *Command
	Events   chan *Event

	profile    Profile
	identified bool
	room       RoomID
	state      SessionState
	done       chan struct{}
}

// NewSession constructs a session with initialized channels.
func NewSession(id SessionID, buffer int) *Session {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Session{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, buffer),
		state:    StateConnected,
		done:     make(chan struct{}),
	}
}

// Done is closed once the hub has released the session.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) member() Member {
	return Member{ID: s.ID, Name: s.profile.Name, Photo: s.profile.Photo}
}

func (s *Session) setRoom(id RoomID) {
	s.room = id
	switch {
	case s.state == StateClosed:
	case id != "":
		s.state = StateInRoom
	case s.identified:
		s.state = StateIdentified
	default:
		s.state = StateConnected
	}
}

// Member is the public view of a session inside a room.
type Member struct {
	ID    SessionID
	Name  string
	Photo string
}

// Peer is a member annotated, relative to one recipient, with whether that
// recipient should start negotiation towards it.
type Peer struct {
	Member
	Initiate bool
}

// ShouldInitiate is the glare tie-break: the smaller id offers to the larger.
// Clients must apply the same rule, so exactly one side of a pair initiates.
func ShouldInitiate(self, peer SessionID) bool {
	return self < peer
}
