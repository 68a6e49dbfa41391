package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"classpulse/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Inbound event types
const (
	eventJoin           = "join"
	eventCreateQuestion = "create_question"
)

type joinPayload struct {
	Name string `json:"name"`
	Room string `json:"room"`
}

type createQuestionPayload struct {
	Title       string `json:"title"`
	Body        string `json:"question_body"`
	SessionCode string `json:"session_code"`
}

// Handler handles WebSocket connections
type Handler struct {
	hub        *Hub
	sessionSvc *service.SessionService
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, sessionSvc *service.SessionService) *Handler {
	return &Handler{
		hub:        hub,
		sessionSvc: sessionSvc,
	}
}

// Serve handles GET /ws
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		ID:   uuid.New().String()[:8],
		Send: make(chan []byte, 256),
	}

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		room, name := conn.Room, conn.Name
		h.hub.Unregister(conn)
		wsConn.Close()
		if room != "" {
			if err := h.sessionSvc.LeaveRoom(context.Background(), room, name); err != nil {
				log.Printf("ws: leave after disconnect: %v", err)
			}
		}
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(conn, "malformed message")
			continue
		}

		switch msg.Type {
		case eventJoin:
			h.handleJoin(conn, msg.Payload)
		case eventCreateQuestion:
			h.handleCreateQuestion(conn, msg.Payload)
		default:
			h.sendError(conn, "unknown event type "+msg.Type)
		}
	}
}

func (h *Handler) handleJoin(conn *Connection, payload json.RawMessage) {
	var req joinPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.Name == "" || req.Room == "" {
		h.sendError(conn, "join requires name and room")
		return
	}
	if conn.Room != "" {
		h.sendError(conn, "already joined room "+conn.Room)
		return
	}

	// Subscribe before joining so the join-triggered member list reaches
	// this connection too.
	h.hub.Subscribe(conn, req.Room)
	if _, err := h.sessionSvc.JoinRoom(context.Background(), req.Room, req.Name); err != nil {
		h.hub.Unsubscribe(conn, req.Room)
		h.sendError(conn, err.Error())
		return
	}
	conn.Room = req.Room
	conn.Name = req.Name
}

func (h *Handler) handleCreateQuestion(conn *Connection, payload json.RawMessage) {
	var req createQuestionPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.SessionCode == "" {
		h.sendError(conn, "create_question requires session_code")
		return
	}

	if _, err := h.sessionSvc.SubmitQuestion(context.Background(), req.SessionCode, req.Title, req.Body); err != nil {
		h.sendError(conn, err.Error())
	}
}

func (h *Handler) sendError(conn *Connection, msg string) {
	h.hub.SendTo(conn, "error", map[string]string{"error": msg})
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
