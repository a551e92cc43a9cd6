package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/claude/formcoach/internal/advisor"
	"github.com/claude/formcoach/internal/analysis"
	"github.com/claude/formcoach/internal/pose"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 16,
	WriteBufferSize: 1 << 16,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamRequest is one inbound WebSocket message.
type streamRequest struct {
	Type   string     `json:"type"`
	Frame  pose.Frame `json:"frame,omitempty"`
	Width  float64    `json:"width,omitempty"`
	Height float64    `json:"height,omitempty"`
	Image  string     `json:"image,omitempty"`
}

// streamResponse is one outbound WebSocket message.
type streamResponse struct {
	Type     string            `json:"type"`
	Analysis *analysis.Result  `json:"analysis,omitempty"`
	Critique *advisor.Critique `json:"critique,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// streamConn serializes writes; critique results arrive from a
// background goroutine while the read loop keeps writing analyses.
type streamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *streamConn) send(msg streamResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// handleStream runs the per-session WebSocket loop. Frames are analyzed
// in arrival order on this single goroutine; critique requests run in
// the background so analysis never stalls.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.log.Info("stream opened", "session", sess.ID, "exercise", sess.Exercise)
	sc := &streamConn{conn: conn}

	for {
		var req streamRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("stream closed unexpectedly", "session", sess.ID, "error", err)
			}
			return
		}

		switch req.Type {
		case "frame":
			if req.Image != "" {
				s.advisor.PushFrame(req.Image)
			}
			res := sess.Advance(req.Frame, analysis.Viewport{Width: req.Width, Height: req.Height})
			if res == nil {
				continue
			}
			if err := sc.send(streamResponse{Type: "analysis", Analysis: res}); err != nil {
				return
			}

		case "request_advice":
			go s.critiqueAsync(sc, sess.Exercise)

		case "reset":
			sess.Reset()
			if err := sc.send(streamResponse{Type: "reset"}); err != nil {
				return
			}

		default:
			if err := sc.send(streamResponse{Type: "error", Error: "unknown message type: " + req.Type}); err != nil {
				return
			}
		}
	}
}

// critiqueAsync requests a critique and pushes the result down the socket.
// A request already in flight is reported, not queued.
func (s *Server) critiqueAsync(sc *streamConn, exercise string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	crit, err := s.advisor.RequestCritique(ctx, exercise)
	if err != nil {
		msg := "critique unavailable"
		switch {
		case errors.Is(err, advisor.ErrBusy):
			msg = "critique already in progress"
		case errors.Is(err, advisor.ErrNotConfigured):
			msg = "critique not configured"
		case errors.Is(err, advisor.ErrNoFrames):
			msg = "no frames buffered yet"
		default:
			s.log.Error("critique failed", "error", err)
		}
		sc.send(streamResponse{Type: "error", Error: msg})
		return
	}
	sc.send(streamResponse{Type: "critique", Critique: crit})
}
