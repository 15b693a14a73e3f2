package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleV1ListMessages returns the newest messages first
// GET /api/v1/messages?limit=
func (s *Server) handleV1ListMessages(c *gin.Context) {
	limit, ok := limitParam(c, 100)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	msgs, err := s.deps.Messages.List(ctx, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": msgs,
		"meta": gin.H{"count": len(msgs), "limit": limit},
	})
}

type messageRequest struct {
	Text string `json:"text"`
}

// handleV1PostMessage posts a message under the session's role
// POST /api/v1/messages
func (s *Server) handleV1PostMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	msg, err := s.deps.Messages.Post(ctx, currentSession(c), req.Text)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": msg})
}
