package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/spigell/navihire/internal/assistant"
	"github.com/spigell/navihire/internal/workflow"
	"go.uber.org/zap"
)

const (
	welcomeMessage = "Welcome to NaviHire! I can help you with resume analysis, candidate matching, and travel optimization. How can I assist you today?"
	thinking       = "NaviHire is thinking..."
	systemAgent    = "system"

	defaultPongWait = 120 * time.Second
	writeWait       = 10 * time.Second
	maxFrameSize    = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type frame struct {
	Type         string                       `json:"type"`
	Content      string                       `json:"content,omitempty"`
	Agent        string                       `json:"agent,omitempty"`
	SessionID    string                       `json:"session_id,omitempty"`
	TaskProgress map[string]workflow.Progress `json:"task_progress,omitempty"`
	Timestamp    time.Time                    `json:"timestamp"`
}

type inbound struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// chatSocket keeps one session per connection. Frames are answered in order.
func (s *Server) chatSocket(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := s.logger.With(zap.String("user_id", userID))
	log.Info("websocket connected")

	conn.SetReadLimit(maxFrameSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.ping(conn, done)

	if err := s.send(conn, frame{Type: "message", Content: welcomeMessage, Agent: systemAgent}); err != nil {
		return
	}

	var sessionID string
	for {
		// Refreshed per read so a slow turn does not eat into the idle window.
		_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			log.Info("websocket disconnected")
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			if s.send(conn, frame{Type: "error", Content: "invalid message format", Agent: systemAgent}) != nil {
				return
			}
			continue
		}

		if msg.Type == "ping" {
			if s.send(conn, frame{Type: "pong"}) != nil {
				return
			}
			continue
		}
		if strings.TrimSpace(msg.Message) == "" {
			continue
		}

		if s.send(conn, frame{Type: "typing", Content: thinking}) != nil {
			return
		}

		reply, err := s.assistant.Handle(r.Context(), assistant.Request{SessionID: sessionID, UserID: userID, Message: msg.Message})
		if err != nil {
			log.Error("chat turn failed", zap.Error(err))
			if reply == nil {
				if s.send(conn, frame{Type: "error", Content: "Sorry, I encountered an error processing your request.", Agent: systemAgent}) != nil {
					return
				}
				continue
			}
		}

		sessionID = reply.SessionID
		out := frame{
			Type:         "message",
			Content:      reply.Message,
			Agent:        reply.Agent,
			SessionID:    reply.SessionID,
			TaskProgress: reply.TaskProgress,
		}
		if s.send(conn, out) != nil {
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, f frame) error {
	f.Timestamp = s.now()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}

// ping keeps idle connections alive. WriteControl may run concurrently with
// the handler's writes.
func (s *Server) ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.pongWait / 4)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
