package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// intToString formats n without pulling in fmt for a single conversion.
func intToString(n int) string {
	return strconv.Itoa(n)
}

// healthHandler handles GET /api/v1/health
func (s *Server) healthHandler(c *gin.Context) {
	dbStats, err := s.db.GetStats()
	if err != nil {
		ErrorResponse(c, 503, "database unavailable")
		return
	}

	SuccessResponse(c, "ok", gin.H{
		"status":         "healthy",
		"session_id":     s.sessionID,
		"memory_count":   dbStats.MemoryCount,
		"schema_version": dbStats.SchemaVersion,
	})
}

// SessionData is the JSON shape for one agent session.
type SessionData struct {
	SessionID    string `json:"session_id"`
	AgentType    string `json:"agent_type,omitempty"`
	IsActive     bool   `json:"is_active"`
	MemoryCount  int    `json:"memory_count"`
	LastAccessed string `json:"last_accessed"`
}

// listSessions handles GET /api/v1/sessions
func (s *Server) listSessions(c *gin.Context) {
	sessions, err := s.db.ListSessions()
	if err != nil {
		InternalError(c, "Failed to list sessions: "+err.Error())
		return
	}

	out := make([]*SessionData, len(sessions))
	for i, sess := range sessions {
		count, err := s.db.GetMemoryCountBySession(sess.SessionID)
		if err != nil {
			count = 0
		}
		out[i] = &SessionData{
			SessionID:    sess.SessionID,
			AgentType:    sess.AgentType,
			IsActive:     sess.IsActive,
			MemoryCount:  count,
			LastAccessed: sess.LastAccessed.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	SuccessResponse(c, "Listed "+intToString(len(sessions))+" sessions", out)
}

// sessionStats handles GET /api/v1/sessions/stats
func (s *Server) sessionStats(c *gin.Context) {
	dbStats, err := s.db.GetStats()
	if err != nil {
		InternalError(c, "Failed to get session stats: "+err.Error())
		return
	}

	SuccessResponse(c, "Session stats retrieved successfully", gin.H{
		"current_session_id": s.sessionID,
		"total_sessions":      dbStats.SessionCount,
	})
}

// systemStats handles GET /api/v1/stats
func (s *Server) systemStats(c *gin.Context) {
	dbStats, err := s.db.GetStats()
	if err != nil {
		InternalError(c, "Failed to get stats: "+err.Error())
		return
	}

	SuccessResponse(c, "Stats retrieved successfully", gin.H{
		"memory_count":   dbStats.MemoryCount,
		"session_count":  dbStats.SessionCount,
		"domain_count":   dbStats.DomainCount,
		"category_count": dbStats.CategoryCount,
		"relation_count": dbStats.RelationCount,
		"schema_version": dbStats.SchemaVersion,
	})
}
