package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/BlockShell/core/internal/pty"
	"github.com/GriffinCanCode/BlockShell/core/internal/shared/id"
	"github.com/GriffinCanCode/BlockShell/core/internal/shared/types"
	"github.com/GriffinCanCode/BlockShell/core/internal/term"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.registry.SessionCount(),
		"uptime":   s.metrics.Uptime().String(),
	})
}

type createSessionRequest struct {
	Name       string `json:"name"`
	Shell      string `json:"shell"`
	WorkingDir string `json:"working_dir"`
}

func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid, err := s.registry.CreateSession(req.Name, req.Shell, req.WorkingDir)
	if err != nil {
		var spawnErr *pty.SpawnError
		if errors.As(err, &spawnErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": spawnErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session_id": sid.String()})
}

func (s *Server) listSessions(c *gin.Context) {
	sessions := s.registry.ListSessions()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (s *Server) activateSession(c *gin.Context) {
	sid := id.SessionID(c.Param("id"))
	if !s.registry.SwitchActive(sid) {
		c.JSON(http.StatusNotFound, gin.H{"switched": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"switched": true})
}

func (s *Server) closeSession(c *gin.Context) {
	sid := id.SessionID(c.Param("id"))
	if !s.registry.CloseSession(sid) {
		c.JSON(http.StatusNotFound, gin.H{"closed": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

type resizeRequest struct {
	Cols int `json:"cols" binding:"required"`
	Rows int `json:"rows" binding:"required"`
}

func (s *Server) resizeSession(c *gin.Context) {
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.registry.Resize(id.SessionID(c.Param("id")), req.Cols, req.Rows)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type writeRequest struct {
	Input string `json:"input" binding:"required"`
}

func (s *Server) writeSession(c *gin.Context) {
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.registry.WriteTo(id.SessionID(c.Param("id")), req.Input); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) sessionBlocks(c *gin.Context) {
	blocks, ok := s.registry.BlocksOf(id.SessionID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks, "count": len(blocks)})
}

type commandRequest struct {
	Text      string `json:"text" binding:"required"`
	SessionID string `json:"session_id"`
}

func (s *Server) sendCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var target *id.SessionID
	if req.SessionID != "" {
		sid := id.SessionID(req.SessionID)
		target = &sid
	}

	block, err := s.provider.SendCommand(c.Request.Context(), target, req.Text)
	if err != nil {
		if errors.Is(err, term.ErrNoActiveSession) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"block_id":   block.ID.String(),
		"session_id": block.SessionID.String(),
	})
}

func (s *Server) undo(c *gin.Context) {
	undone := s.history.Undo()
	if undone {
		s.metrics.UndoOps.Inc()
	}
	c.JSON(http.StatusOK, gin.H{"undone": undone})
}

func (s *Server) redo(c *gin.Context) {
	redone := s.history.Redo()
	if redone {
		s.metrics.RedoOps.Inc()
	}
	c.JSON(http.StatusOK, gin.H{"redone": redone})
}

func (s *Server) getContext(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.Get(c.Request.Context()))
}

type askRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (s *Server) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	block, err := s.provider.Ask(c.Request.Context(), req.Prompt)
	if err != nil {
		if errors.Is(err, term.ErrNoActiveSession) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"block_id": block.ID.String(),
		"type":     string(block.Type),
		"content":  block.Content,
	})
}

func (s *Server) listServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services": s.services.List(nil),
		"stats":    s.services.Stats(),
	})
}

type executeRequest struct {
	ToolID string                 `json:"tool_id" binding:"required"`
	Params map[string]interface{} `json:"params"`
}

func (s *Server) executeService(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appCtx := &types.Context{}
	result, err := s.services.Execute(c.Request.Context(), req.ToolID, req.Params, appCtx)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "result": result})
		return
	}

	c.JSON(http.StatusOK, result)
}
