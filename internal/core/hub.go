package core

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

// DefaultRoomCapacity is used when a create request names no capacity.
const DefaultRoomCapacity = MaxCapacity

// Recorder receives hub activity for metrics.
type Recorder interface {
	SessionOpened()
	SessionClosed()
	RoomsActive(n int)
	CommandHandled(kind string)
	JoinRejected(code string)
	EventDropped(kind string)
	SignalDropped()
}

type nopRecorder struct{}

func (nopRecorder) SessionOpened()        {}
func (nopRecorder) SessionClosed()        {}
func (nopRecorder) RoomsActive(int)       {}
func (nopRecorder) CommandHandled(string) {}
func (nopRecorder) JoinRejected(string)   {}
func (nopRecorder) EventDropped(string)   {}
func (nopRecorder) SignalDropped()        {}

// HubConfig tunes hub behaviour. Zero values pick defaults.
type HubConfig struct {
	DefaultCapacity int
	Recorder        Recorder
	Now             func() time.Time
}

type envelope struct {
	session *Session
	cmd     *Command
}

type membership struct {
	session *Session
	join    bool
}

// Hub coordinates sessions and rooms. All commands are processed
// sequentially on the goroutine running Run.
type Hub struct {
	registry *Registry
	sessions *xsync.MapOf[SessionID, *Session]

	control chan membership // register and unregister share one queue to keep their order
	inbox   chan envelope
	done    chan struct{}

	defaultCapacity int
	metrics         Recorder
	now             func() time.Time
	log             *zerolog.Logger
}

// NewHub creates a hub around the registry. A nil registry gets a fresh one.
func NewHub(registry *Registry, cfg HubConfig, logger *zerolog.Logger) *Hub {
	if registry == nil {
		registry = NewRegistry()
	}
	if cfg.DefaultCapacity == 0 {
		cfg.DefaultCapacity = DefaultRoomCapacity
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		registry:        registry,
		sessions:        xsync.NewMapOf[SessionID, *Session](),
		control:         make(chan membership, 64),
		inbox:           make(chan envelope, 256),
		done:            make(chan struct{}),
		defaultCapacity: cfg.DefaultCapacity,
		metrics:         cfg.Recorder,
		now:             cfg.Now,
		log:             logger,
	}
}

// Registry exposes the room table for read-only listing.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// SessionCount returns the number of registered sessions.
func (h *Hub) SessionCount() int {
	return h.sessions.Size()
}

// RegisterClient hands a new session to the hub.
func (h *Hub) RegisterClient(s *Session) {
	select {
	case h.control <- membership{session: s, join: true}:
	case <-h.done:
	}
}

// UnregisterClient releases a session. Safe to call more than once.
func (h *Hub) UnregisterClient(s *Session) {
	select {
	case h.control <- membership{session: s}:
	case <-h.done:
	}
}

// Run processes hub traffic until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-h.control:
			if m.join {
				h.handleRegister(ctx, m.session)
			} else {
				h.handleUnregister(m.session)
			}
		case env := <-h.inbox:
			h.handleCommand(env.session, env.cmd)
		}
	}
}

// pump forwards one session's commands into the shared inbox, preserving order.
func (h *Hub) pump(ctx context.Context, s *Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case cmd := <-s.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- envelope{session: s, cmd: cmd}:
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}
	}
}

func (h *Hub) handleRegister(ctx context.Context, s *Session) {
	if _, loaded := h.sessions.LoadOrStore(s.ID, s); loaded {
		return
	}
	h.metrics.SessionOpened()
	h.log.Debug().Str("client_id", s.ID.String()).Msg("session registered")

	go h.pump(ctx, s)

	self := s.member()
	h.send(s, &Event{Kind: EventWelcome, Self: &self})
	h.send(s, &Event{Kind: EventRooms, Rooms: h.registry.ListRooms()})
}

func (h *Hub) handleUnregister(s *Session) {
	if _, ok := h.sessions.Load(s.ID); !ok {
		return
	}

	if res, left := h.registry.Leave(s.ID); left {
		s.setRoom("")
		h.announceLeave(res, s.ID)
		h.broadcastRooms()
	}

	h.sessions.Delete(s.ID)
	s.state = StateClosed
	close(s.done)
	close(s.Events)
	h.metrics.SessionClosed()
	h.log.Debug().Str("client_id", s.ID.String()).Msg("session released")
}

func (h *Hub) handleCommand(s *Session, cmd *Command) {
	if _, ok := h.sessions.Load(s.ID); !ok {
		return
	}
	h.metrics.CommandHandled(cmd.Kind.String())

	switch cmd.Kind {
	case CommandSetProfile:
		h.handleSetProfile(s, cmd)
	case CommandCreateRoom:
		h.handleCreateRoom(s, cmd)
	case CommandListRooms:
		h.send(s, &Event{Kind: EventRooms, Rooms: h.registry.ListRooms()})
	case CommandJoinRoom:
		h.handleJoinRoom(s, cmd)
	case CommandLeaveRoom:
		h.handleLeaveRoom(s)
	case CommandChat:
		h.handleChat(s, cmd)
	case CommandSignal:
		h.handleSignal(s, cmd)
	default:
		h.sendError(s, coreError(ErrCodeMalformedMessage, "unknown command"))
	}
}

func (h *Hub) handleSetProfile(s *Session, cmd *Command) {
	profile, err := NormalizeProfile(cmd.Profile)
	if err != nil {
		h.sendError(s, ToCoreError(err))
		return
	}

	s.profile = profile
	s.identified = true
	s.setRoom(s.room)

	self := s.member()
	h.send(s, &Event{Kind: EventProfile, Self: &self})

	if s.room != "" {
		h.pushMembers(s.room)
	}
}

func (h *Hub) handleCreateRoom(s *Session, cmd *Command) {
	if !s.identified {
		h.sendError(s, coreError(ErrCodeInvalidProfile, "set a profile before creating a room"))
		return
	}
	name, err := NormalizeRoomName(cmd.RoomName)
	if err != nil {
		h.sendError(s, ToCoreError(err))
		return
	}
	capacity := h.defaultCapacity
	if cmd.Capacity != nil {
		capacity = *cmd.Capacity
	}

	res := h.registry.CreateAndJoin(s.ID, name, capacity)
	h.log.Info().
		Str("room_id", string(res.Room.ID)).
		Str("room_name", res.Room.Name).
		Int("capacity", res.Room.Capacity).
		Str("client_id", s.ID.String()).
		Msg("room created")

	h.completeJoin(s, res)
}

func (h *Hub) handleJoinRoom(s *Session, cmd *Command) {
	if !s.identified {
		h.sendError(s, coreError(ErrCodeInvalidProfile, "set a profile before joining a room"))
		return
	}

	res, err := h.registry.Join(s.ID, cmd.Room)
	if err != nil {
		ce := ToCoreError(err)
		h.metrics.JoinRejected(ce.Code)
		h.sendError(s, ce)
		return
	}
	h.completeJoin(s, res)
}

func (h *Hub) completeJoin(s *Session, res JoinResult) {
	if res.Previous != nil {
		h.announceLeave(*res.Previous, s.ID)
	}
	s.setRoom(res.Room.ID)

	h.log.Info().
		Str("room_id", string(res.Room.ID)).
		Str("client_id", s.ID.String()).
		Int("count", res.Room.Count).
		Int("capacity", res.Room.Capacity).
		Msg("joined room")

	self := s.member()
	h.send(s, &Event{
		Kind:    EventJoined,
		Room:    res.Room,
		Self:    &self,
		Members: h.peersFor(s.ID, res.Members, false),
	})

	for _, id := range res.Members {
		if id == s.ID {
			continue
		}
		other, ok := h.sessions.Load(id)
		if !ok {
			continue
		}
		h.send(other, &Event{
			Kind:   EventMemberJoined,
			Room:   res.Room,
			Member: &Peer{Member: self, Initiate: ShouldInitiate(id, s.ID)},
		})
	}

	h.pushMembers(res.Room.ID)
	h.broadcastRooms()
}

func (h *Hub) handleLeaveRoom(s *Session) {
	res, left := h.registry.Leave(s.ID)
	if !left {
		return
	}
	s.setRoom("")

	h.log.Info().
		Str("room_id", string(res.Room.ID)).
		Str("client_id", s.ID.String()).
		Int("count", res.Room.Count).
		Msg("left room")

	h.send(s, &Event{Kind: EventLeft, Room: res.Room})
	h.announceLeave(res, s.ID)
	h.broadcastRooms()
}

func (h *Hub) announceLeave(res LeaveResult, leaver SessionID) {
	if res.Deleted {
		h.log.Info().Str("room_id", string(res.Room.ID)).Str("room_name", res.Room.Name).Msg("room deleted")
		return
	}
	for _, id := range res.Remaining {
		if other, ok := h.sessions.Load(id); ok {
			h.send(other, &Event{Kind: EventMemberLeft, Room: res.Room, User: leaver})
		}
	}
	h.pushMembers(res.Room.ID)
}

func (h *Hub) handleChat(s *Session, cmd *Command) {
	roomID, ok := h.registry.RoomOf(s.ID)
	if !ok {
		h.sendError(s, ToCoreError(fmt.Errorf("%w: join a room before chatting", ErrNotInRoom)))
		return
	}
	text, err := NormalizeChatText(cmd.Text)
	if err != nil {
		h.sendError(s, ToCoreError(err))
		return
	}

	msg := &ChatMessage{
		Room:      roomID,
		From:      s.member(),
		Text:      text,
		CreatedAt: h.now(),
	}
	members, _ := h.registry.Members(roomID)
	for _, id := range members {
		if target, ok := h.sessions.Load(id); ok {
			h.send(target, &Event{Kind: EventChat, Message: msg})
		}
	}
}

// handleSignal relays at most once. Stale targets and senders outside a room
// are dropped without an error since renegotiation races are expected.
func (h *Hub) handleSignal(s *Session, cmd *Command) {
	roomID, ok := h.registry.RoomOf(s.ID)
	if !ok {
		h.dropSignal(s, cmd, "sender not in room")
		return
	}
	members, _ := h.registry.Members(roomID)
	sig := &Signal{From: s.member(), Payload: cmd.Payload}

	if cmd.To != 0 {
		if cmd.To == s.ID || !slices.Contains(members, cmd.To) {
			h.dropSignal(s, cmd, "target not in room")
			return
		}
		if target, ok := h.sessions.Load(cmd.To); ok {
			h.send(target, &Event{Kind: EventSignal, Signal: sig})
		}
		return
	}

	for _, id := range members {
		if id == s.ID {
			continue
		}
		if target, ok := h.sessions.Load(id); ok {
			h.send(target, &Event{Kind: EventSignal, Signal: sig})
		}
	}
}

func (h *Hub) dropSignal(s *Session, cmd *Command, reason string) {
	h.metrics.SignalDropped()
	h.log.Debug().
		Str("client_id", s.ID.String()).
		Str("to", cmd.To.String()).
		Str("reason", reason).
		Msg("signal dropped")
}

// pushMembers sends every member the full member list, with initiate flags
// computed relative to each recipient.
func (h *Hub) pushMembers(roomID RoomID) {
	info, ok := h.registry.Room(roomID)
	if !ok {
		return
	}
	members, _ := h.registry.Members(roomID)
	for _, id := range members {
		target, ok := h.sessions.Load(id)
		if !ok {
			continue
		}
		h.send(target, &Event{
			Kind:    EventMembers,
			Room:    info,
			Members: h.peersFor(id, members, true),
		})
	}
}

func (h *Hub) peersFor(self SessionID, ids []SessionID, includeSelf bool) []Peer {
	peers := make([]Peer, 0, len(ids))
	for _, id := range ids {
		if id == self && !includeSelf {
			continue
		}
		s, ok := h.sessions.Load(id)
		if !ok {
			continue
		}
		peers = append(peers, Peer{Member: s.member(), Initiate: ShouldInitiate(self, id)})
	}
	return peers
}

func (h *Hub) broadcastRooms() {
	rooms := h.registry.ListRooms()
	h.metrics.RoomsActive(len(rooms))
	h.sessions.Range(func(_ SessionID, s *Session) bool {
		h.send(s, &Event{Kind: EventRooms, Rooms: rooms})
		return true
	})
}

func (h *Hub) sendError(s *Session, err *CoreError) {
	h.log.Debug().Str("client_id", s.ID.String()).Str("code", err.Code).Msg(err.Message)
	h.send(s, &Event{Kind: EventError, Error: err})
}

func (h *Hub) send(s *Session, ev *Event) {
	select {
	case s.Events <- ev:
	default:
		// Drop if slow consumer.
		h.metrics.EventDropped(ev.Kind.String())
		h.log.Warn().Str("client_id", s.ID.String()).Str("event", ev.Kind.String()).Msg("event dropped")
	}
}
