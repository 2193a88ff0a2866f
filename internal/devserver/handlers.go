package devserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// errorReply is sent back to an inspector whose message was rejected.
type errorReply struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func (s *Server) handleDevTools(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("failed to upgrade the websocket", "error", err)
		return
	}

	conn := s.register(ws)
	defer s.drop(conn)
	s.logger.Info("devtools inspector connected", "session", conn.id)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			s.logger.Info("devtools inspector disconnected", "session", conn.id, "error", err.Error())
			return
		}

		if err := s.bridge.ReceiveJSON(data); err != nil {
			s.logger.Warn("devtools message rejected", "session", conn.id, "error", err)
			if werr := conn.writeJSON(errorReply{Kind: "error", Error: err.Error()}, s.writeTimeout); werr != nil {
				return
			}
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"devtools":   s.bridge.Stats(),
		"inspectors": s.Inspectors(),
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no store history configured"})
		return
	}
	c.JSON(http.StatusOK, s.history())
}

func (c *inspector) writeJSON(v any, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(v)
}

