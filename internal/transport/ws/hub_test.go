package ws

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestConnection(id string, buffer int) *Connection {
	return &Connection{ID: id, send: make(chan []byte, buffer)}
}

func drain(t *testing.T, conn *Connection, want int) []Envelope {
	t.Helper()
	received := make([]Envelope, 0, want)
	deadline := time.After(5 * time.Second)
	for len(received) < want {
		select {
		case data := <-conn.send:
			var env Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("decode frame: %v", err)
			}
			received = append(received, env)
		case <-deadline:
			t.Fatalf("received %d of %d frames", len(received), want)
		}
	}
	return received
}

func TestBurstLargerThanQueueIsNotDropped(t *testing.T) {
	hub := NewHub()
	conn := newTestConnection("conn-1", 2048)
	hub.Register(conn, "ROOM01", false)

	// Well past the broadcast queue capacity; every frame must arrive.
	const burst = 1000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < burst; i++ {
			hub.ToRoom("ROOM01", "tick", map[string]int{"n": i})
		}
	}()

	received := drain(t, conn, burst)
	<-done
	for _, env := range received {
		if env.Type != "tick" {
			t.Fatalf("unexpected frame type %s", env.Type)
		}
	}
}

func TestAudienceRouting(t *testing.T) {
	hub := NewHub()
	host := newTestConnection("host-conn", 16)
	alice := newTestConnection("conn-a", 16)
	bob := newTestConnection("conn-b", 16)
	hub.Register(host, "ROOM01", true)
	hub.Register(alice, "ROOM01", false)
	hub.Register(bob, "ROOM01", false)

	hub.ToHost("ROOM01", "hostOnly", nil)
	hub.ToConn("ROOM01", "conn-a", "private", nil)
	hub.ToRoomExcept("ROOM01", "conn-b", "almostAll", nil)

	if env := drain(t, host, 2); env[0].Type != "hostOnly" || env[1].Type != "almostAll" {
		t.Fatalf("unexpected host frames: %+v", env)
	}
	if env := drain(t, alice, 2); env[0].Type != "private" || env[1].Type != "almostAll" {
		t.Fatalf("unexpected alice frames: %+v", env)
	}

	// Bob was excluded from the room send and targeted by nothing else.
	hub.ToRoom("ROOM01", "flush", nil)
	if env := drain(t, bob, 1); env[0].Type != "flush" {
		t.Fatalf("expected only the flush frame for bob, got %+v", env)
	}
}

func TestUnregisterRemovesFromRoom(t *testing.T) {
	hub := NewHub()
	host := newTestConnection("host-conn", 16)
	alice := newTestConnection("conn-a", 16)
	hub.Register(host, "ROOM01", true)
	hub.Register(alice, "ROOM01", false)

	hub.Unregister(alice)
	hub.ToRoom("ROOM01", "afterLeave", nil)

	drain(t, host, 1)
	select {
	case data := <-alice.send:
		t.Fatalf("unregistered connection still receiving: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}
