package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/speckit/cogmem/internal/engine"
	"github.com/speckit/cogmem/internal/orchestrator"
)

// GetContextRequest drives the orchestrator's single mode-dispatched entry
// point. Mode may be left empty (auto-resolved from Intent).
type GetContextRequest struct {
	Query     string `json:"query"`
	Intent    string `json:"intent"`
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
	Rerank    bool   `json:"rerank"`
}

// getContext handles POST /api/v1/context
func (s *Server) getContext(c *gin.Context) {
	var req GetContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, "Invalid request body: "+err.Error())
		return
	}

	envelope := s.orchestrator.GetContext(orchestrator.Input{
		Query:     req.Query,
		Intent:    req.Intent,
		SessionID: req.SessionID,
		Mode:      orchestrator.Mode(req.Mode),
		Rerank:    req.Rerank,
	})

	if envelope.Meta.IsError {
		BadRequestError(c, envelope.Summary)
		return
	}
	c.JSON(http.StatusOK, envelope)
}

// RememberRequest is a gate-aware write: the engine decides whether this
// creates a new memory, reinforces or updates an existing one, supersedes
// a prior version, or links it to related memories, before anything is
// written to the corrections ledger or relationship graph.
type RememberRequest struct {
	Content             string   `json:"content" binding:"required"`
	SessionID           string   `json:"session_id"`
	Tags                []string `json:"tags"`
	Domain              string   `json:"domain"`
	Importance          int      `json:"importance"`
	Source              string   `json:"source"`
	Actor               string   `json:"actor"`
	CheckContradictions bool     `json:"check_contradictions"`
}

// RememberResponse reports the gate's decision alongside whatever storage
// operation it triggered.
type RememberResponse struct {
	Action     string      `json:"action"`
	Reason     string      `json:"reason"`
	Similarity float64     `json:"similarity"`
	Memory     *MemoryData `json:"memory,omitempty"`
	LinkedIDs  []string    `json:"linked_ids,omitempty"`
}

// remember handles POST /api/v1/memories/remember
func (s *Server) remember(c *gin.Context) {
	var req RememberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.engine.Remember(c.Request.Context(), engine.RememberInput{
		Content:             req.Content,
		SessionID:           req.SessionID,
		Tags:                req.Tags,
		Domain:              req.Domain,
		Importance:          req.Importance,
		Source:              req.Source,
		Actor:               req.Actor,
		CheckContradictions: req.CheckContradictions,
	})
	if err != nil {
		InternalError(c, "Failed to remember content: "+err.Error())
		return
	}

	resp := RememberResponse{
		Action:     string(result.Decision.Action),
		Reason:     result.Decision.Reason,
		Similarity: result.Decision.Similarity,
		LinkedIDs:  result.LinkedIDs,
	}
	if result.Memory != nil {
		resp.Memory = toMemoryData(result.Memory)
	}
	CreatedResponse(c, "Memory processed", resp)
}

// getCorrection handles GET /api/v1/corrections/:id
func (s *Server) getCorrection(c *gin.Context) {
	id := c.Param("id")
	corr, err := s.db.GetCorrection(id)
	if err != nil || corr == nil {
		NotFoundErrorWithID(c, id)
		return
	}
	SuccessResponse(c, "", corr)
}

// getCorrectionChain handles GET /api/v1/corrections/:id/chain
func (s *Server) getCorrectionChain(c *gin.Context) {
	id := c.Param("id")
	chain, err := s.db.GetCorrectionChain(id)
	if err != nil {
		InternalError(c, "Failed to load correction chain: "+err.Error())
		return
	}
	SuccessResponse(c, "", chain)
}

// undoCorrection handles POST /api/v1/corrections/:id/undo
func (s *Server) undoCorrection(c *gin.Context) {
	id := c.Param("id")
	if err := s.engine.Corrections().Undo(id); err != nil {
		InternalError(c, "Failed to undo correction: "+err.Error())
		return
	}
	SuccessResponse(c, "Correction undone", nil)
}

// correctionStats handles GET /api/v1/corrections/stats
func (s *Server) correctionStats(c *gin.Context) {
	stats, err := s.db.GetCorrectionsStats()
	if err != nil {
		InternalError(c, "Failed to load correction stats: "+err.Error())
		return
	}
	SuccessResponse(c, "", stats)
}
