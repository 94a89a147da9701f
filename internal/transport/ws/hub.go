package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Envelope is the wire format for every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Connection is one live socket, identified independently of any room.
// It joins a room only after a successful create/hostJoin/join message.
type Connection struct {
	ID     string
	Code   string
	IsHost bool
	send   chan []byte
}

// Send queues an already-encoded frame, dropping it if the client cannot
// keep up. A slow reader never blocks the room.
func (c *Connection) Send(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

type broadcastMessage struct {
	code   string
	toHost bool
	toConn string // send to this connection only
	except string // skip this connection on room-wide sends
	data   []byte
}

type registration struct {
	conn   *Connection
	code   string
	isHost bool
}

// Hub maps each game code to its live connections (one host, N players)
// and fans events out to them. It holds no game state; membership changes
// only on register/unregister driven by the protocol handler.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room

	register   chan registration
	unregister chan *Connection
	broadcast  chan broadcastMessage
}

type room struct {
	host    *Connection
	players map[string]*Connection // connectionID -> conn
}

func NewHub() *Hub {
	h := &Hub{
		rooms:      make(map[string]*room),
		register:   make(chan registration),
		unregister: make(chan *Connection),
		broadcast:  make(chan broadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case reg := <-h.register:
			h.mu.Lock()
			rm, ok := h.rooms[reg.code]
			if !ok {
				rm = &room{players: make(map[string]*Connection)}
				h.rooms[reg.code] = rm
			}
			if reg.isHost {
				rm.host = reg.conn
			} else {
				rm.players[reg.conn.ID] = reg.conn
			}
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if rm, ok := h.rooms[conn.Code]; ok {
				if rm.host == conn {
					rm.host = nil
				}
				delete(rm.players, conn.ID)
				if rm.host == nil && len(rm.players) == 0 {
					delete(h.rooms, conn.Code)
					log.Printf("room %s closed", conn.Code)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if rm, ok := h.rooms[msg.code]; ok {
				switch {
				case msg.toHost:
					if rm.host != nil {
						rm.host.Send(msg.data)
					}
				case msg.toConn != "":
					if rm.host != nil && rm.host.ID == msg.toConn {
						rm.host.Send(msg.data)
					} else if conn, ok := rm.players[msg.toConn]; ok {
						conn.Send(msg.data)
					}
				default:
					if rm.host != nil && rm.host.ID != msg.except {
						rm.host.Send(msg.data)
					}
					for id, conn := range rm.players {
						if id == msg.except {
							continue
						}
						conn.Send(msg.data)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register binds a connection to a room, as host or player. The caller's
// goroutine owns conn.Code/IsHost; they are set before the room sees it.
func (h *Hub) Register(conn *Connection, code string, isHost bool) {
	conn.Code = code
	conn.IsHost = isHost
	h.register <- registration{conn: conn, code: code, isHost: isHost}
}

// Unregister removes a connection from its room, if any.
func (h *Hub) Unregister(conn *Connection) {
	if conn.Code == "" {
		return
	}
	h.unregister <- conn
}

// ToRoom sends an event to every member of a room (implements app.Broadcaster).
func (h *Hub) ToRoom(code, event string, payload any) {
	h.enqueue(broadcastMessage{code: code, data: encode(event, payload)})
}

// ToRoomExcept sends to every member but the named connection.
func (h *Hub) ToRoomExcept(code, exceptConnectionID, event string, payload any) {
	h.enqueue(broadcastMessage{code: code, except: exceptConnectionID, data: encode(event, payload)})
}

// ToHost sends to the room's host connection only.
func (h *Hub) ToHost(code, event string, payload any) {
	h.enqueue(broadcastMessage{code: code, toHost: true, data: encode(event, payload)})
}

// ToConn sends to one connection in the room.
func (h *Hub) ToConn(code, connectionID, event string, payload any) {
	h.enqueue(broadcastMessage{code: code, toConn: connectionID, data: encode(event, payload)})
}

// enqueue blocks when the queue is full: the run loop never stalls on a
// client, so room events may back-pressure briefly but are never lost.
// Only the per-connection layer sheds frames, and only for its own slow
// reader.
func (h *Hub) enqueue(msg broadcastMessage) {
	h.broadcast <- msg
}

func encode(event string, payload any) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("encode %s payload: %v", event, err)
		return nil
	}
	data, _ := json.Marshal(Envelope{Type: event, Payload: raw})
	return data
}
