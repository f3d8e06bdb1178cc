package core

import (
	"context"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// noEvent drains the channel for a short window and fails if kind shows up.
func noEvent(t *testing.T, ch <-chan *Event, kind EventKind, window time.Duration) {
	t.Helper()

	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event %v: %+v", kind, ev)
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil, HubConfig{}, nil)
	go hub.Run(ctx)
	return hub
}

// connect registers a session and sets its profile.
func connect(t *testing.T, hub *Hub, id SessionID, name string) *Session {
	t.Helper()

	s := NewSession(id, 128)
	hub.RegisterClient(s)
	mustEvent(t, s.Events, EventWelcome)

	s.Commands <- &Command{Kind: CommandSetProfile, Profile: Profile{Name: name}}
	mustEvent(t, s.Events, EventProfile)
	return s
}

func createRoom(t *testing.T, s *Session, name string, capacity int) RoomID {
	t.Helper()

	s.Commands <- &Command{Kind: CommandCreateRoom, RoomName: name, Capacity: &capacity}
	ev := mustEvent(t, s.Events, EventJoined)
	return ev.Room.ID
}

func joinRoom(t *testing.T, s *Session, id RoomID) *Event {
	t.Helper()

	s.Commands <- &Command{Kind: CommandJoinRoom, Room: id}
	return mustEvent(t, s.Events, EventJoined)
}
