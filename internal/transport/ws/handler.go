package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/Hrishi-524/Quiz-Burst/internal/app"
	"github.com/Hrishi-524/Quiz-Burst/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Inbound message types. Outbound event names live in the app package.
const (
	msgCreateSession = "createSession"
	msgHostJoin      = "hostJoin"
	msgJoinGame      = "joinGame"
	msgStartGame     = "startGame"
	msgSubmitAnswer  = "submitAnswer"
	msgRevealAnswer  = "revealAnswer"
	msgNextQuestion  = "nextQuestion"
	msgEndGame       = "endGame"
)

type createSessionPayload struct {
	QuizID   string          `json:"quizId"`
	HostID   string          `json:"hostId"`
	Settings domain.Settings `json:"settings"`
}

type hostJoinPayload struct {
	Code   string `json:"code"`
	HostID string `json:"hostId"`
}

type joinGamePayload struct {
	Code       string `json:"code"`
	PlayerName string `json:"playerName"`
}

type hostActionPayload struct {
	Code   string `json:"code"`
	HostID string `json:"hostId"`
}

type submitAnswerPayload struct {
	Code           string `json:"code"`
	OptionIndex    int    `json:"optionIndex"`
	ResponseTimeMs int    `json:"responseTimeMs"`
}

type revealPayload struct {
	Code string `json:"code"`
}

// Handler upgrades sockets and bridges the message protocol to the
// coordinator. Each connection gets an identity at upgrade time; it is
// bound to a room only by an explicit create/hostJoin/join message.
type Handler struct {
	hub         *Hub
	coordinator *app.Coordinator
	upgrader    websocket.Upgrader
}

func NewHandler(hub *Hub, coordinator *app.Coordinator) *Handler {
	return &Handler{
		hub:         hub,
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS handles GET /ws.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	conn := &Connection{
		ID:   uuid.NewString(),
		send: make(chan []byte, 64),
	}

	go h.writePump(wsConn, conn)
	h.readLoop(r.Context(), wsConn, conn)
}

func (h *Handler) readLoop(ctx context.Context, wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		h.coordinator.Disconnect(context.Background(), conn.ID)
		close(conn.send)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var inbound Envelope
		if err := wsConn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error on %s: %v", conn.ID, err)
			}
			return
		}
		h.dispatch(ctx, conn, inbound)
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *Connection, inbound Envelope) {
	var err error
	switch inbound.Type {
	case msgCreateSession:
		err = h.handleCreateSession(ctx, conn, inbound.Payload)
	case msgHostJoin:
		err = h.handleHostJoin(ctx, conn, inbound.Payload)
	case msgJoinGame:
		err = h.handleJoinGame(ctx, conn, inbound.Payload)
	case msgStartGame:
		err = h.withHostAction(ctx, inbound.Payload, h.coordinator.Start)
	case msgSubmitAnswer:
		err = h.handleSubmitAnswer(ctx, conn, inbound.Payload)
	case msgRevealAnswer:
		err = h.handleReveal(ctx, conn, inbound.Payload)
	case msgNextQuestion:
		err = h.withHostAction(ctx, inbound.Payload, func(ctx context.Context, code, hostID string) error {
			_, err := h.coordinator.Advance(ctx, code, hostID)
			return err
		})
	case msgEndGame:
		err = h.withHostAction(ctx, inbound.Payload, h.coordinator.End)
	default:
		h.sendError(conn, "unsupported message type")
		return
	}
	if err != nil {
		h.sendError(conn, err.Error())
	}
}

func (h *Handler) handleCreateSession(ctx context.Context, conn *Connection, raw json.RawMessage) error {
	var payload createSessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.QuizID == "" || payload.HostID == "" {
		h.sendError(conn, "invalid createSession payload")
		return nil
	}
	sess, quizTitle, err := h.coordinator.CreateSession(ctx, payload.QuizID, payload.HostID, conn.ID, payload.Settings)
	if err != nil {
		return err
	}
	h.hub.Register(conn, sess.Code, true)
	h.send(conn, app.EventLobbyInfo, app.LobbyInfo{
		Code:           sess.Code,
		QuizTitle:      quizTitle,
		TotalQuestions: len(sess.QuestionOrder),
		Stage:          sess.Stage,
	})
	return nil
}

func (h *Handler) handleHostJoin(ctx context.Context, conn *Connection, raw json.RawMessage) error {
	var payload hostJoinPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Code == "" {
		h.sendError(conn, "invalid hostJoin payload")
		return nil
	}
	info, err := h.coordinator.HostJoin(ctx, payload.Code, payload.HostID, conn.ID)
	if err != nil {
		return err
	}
	h.hub.Register(conn, payload.Code, true)
	h.send(conn, app.EventLobbyInfo, info)
	return nil
}

func (h *Handler) handleJoinGame(ctx context.Context, conn *Connection, raw json.RawMessage) error {
	var payload joinGamePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Code == "" || payload.PlayerName == "" {
		h.sendError(conn, "invalid joinGame payload")
		return nil
	}
	joined, err := h.coordinator.Join(ctx, payload.Code, payload.PlayerName, conn.ID)
	if err != nil {
		return err
	}
	h.hub.Register(conn, payload.Code, false)
	h.send(conn, app.EventJoinSuccess, joined)
	return nil
}

func (h *Handler) handleSubmitAnswer(ctx context.Context, conn *Connection, raw json.RawMessage) error {
	var payload submitAnswerPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Code == "" || payload.ResponseTimeMs < 0 {
		h.sendError(conn, "invalid submitAnswer payload")
		return nil
	}
	return h.coordinator.SubmitAnswer(ctx, payload.Code, conn.ID, payload.OptionIndex, payload.ResponseTimeMs)
}

// handleReveal is host-only: the countdown reveals on its own for everyone
// else, and a player must not be able to cut a question short.
func (h *Handler) handleReveal(ctx context.Context, conn *Connection, raw json.RawMessage) error {
	if !conn.IsHost {
		return domain.ErrUnauthorized
	}
	var payload revealPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Code == "" {
		return domain.ErrSessionNotFound
	}
	_, err := h.coordinator.Reveal(ctx, payload.Code)
	return err
}

func (h *Handler) withHostAction(ctx context.Context, raw json.RawMessage, action func(ctx context.Context, code, hostID string) error) error {
	var payload hostActionPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Code == "" {
		return domain.ErrSessionNotFound
	}
	return action(ctx, payload.Code, payload.HostID)
}

// send delivers an event straight to this handler's own connection,
// bypassing the hub: replies and errors must reach the sender even before
// it has joined any room.
func (h *Handler) send(conn *Connection, event string, payload any) {
	if data := encode(event, payload); data != nil {
		conn.Send(data)
	}
}

func (h *Handler) sendError(conn *Connection, message string) {
	h.send(conn, app.EventError, app.ErrorPayload{Message: message})
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.send:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
