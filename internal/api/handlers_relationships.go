package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/speckit/cogmem/internal/database"
	"github.com/speckit/cogmem/internal/relationships"
)

// CreateRelationshipRequest represents a relationships creation request.
type CreateRelationshipRequest struct {
	SourceMemoryID   string  `json:"source_memory_id" binding:"required"`
	TargetMemoryID   string  `json:"target_memory_id" binding:"required"`
	RelationshipType string  `json:"relationship_type" binding:"required"`
	Strength         float64 `json:"strength"`
	Context          string  `json:"context"`
}

// RelationshipData is the JSON shape for one graph edge.
type RelationshipData struct {
	ID               string  `json:"id"`
	SourceMemoryID   string  `json:"source_memory_id"`
	TargetMemoryID   string  `json:"target_memory_id"`
	RelationshipType string  `json:"relationship_type"`
	Strength         float64 `json:"strength"`
	Context          string  `json:"context,omitempty"`
}

func toRelationshipData(r *database.Relationship) *RelationshipData {
	return &RelationshipData{
		ID:               r.ID,
		SourceMemoryID:   r.SourceMemoryID,
		TargetMemoryID:   r.TargetMemoryID,
		RelationshipType: r.RelationshipType,
		Strength:         r.Strength,
		Context:          r.Context,
	}
}

// createRelationship handles POST /api/v1/relationships
func (s *Server) createRelationship(c *gin.Context) {
	var req CreateRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, "Invalid request body: "+err.Error())
		return
	}

	rel, err := s.relService.Create(&relationships.CreateOptions{
		SourceMemoryID:   req.SourceMemoryID,
		TargetMemoryID:   req.TargetMemoryID,
		RelationshipType: req.RelationshipType,
		Strength:         req.Strength,
		Context:          req.Context,
	})
	if err != nil {
		BadRequestError(c, "Failed to create relationship: "+err.Error())
		return
	}

	CreatedResponse(c, "Relationship created successfully", toRelationshipData(rel))
}

// discoverRelationships handles POST /api/v1/relationships/discover
func (s *Server) discoverRelationships(c *gin.Context) {
	limit := clampLimit(parseIntQuery(c, "limit", 10))

	if s.aiManager == nil {
		SuccessResponse(c, "No suggestions available", []RelationshipData{})
		return
	}

	ctx := c.Request.Context()
	suggestions, err := s.aiManager.DiscoverRelationships(ctx, limit)
	if err != nil {
		InternalError(c, "Relationship discovery failed: "+err.Error())
		return
	}

	out := make([]RelationshipData, 0, len(suggestions))
	for _, sug := range suggestions {
		out = append(out, RelationshipData{
			SourceMemoryID:   sug.SourceID,
			TargetMemoryID:   sug.TargetID,
			RelationshipType: sug.Type,
			Strength:         sug.Confidence,
			Context:          sug.Reasoning,
		})
	}

	SuccessResponse(c, "Found "+intToString(len(out))+" relationship suggestions", out)
}

// findRelated handles GET /api/v1/memories/:id/related
func (s *Server) findRelated(c *gin.Context) {
	id := c.Param("id")
	limit := clampLimit(parseIntQuery(c, "limit", 10))
	relType := c.Query("relationship_type")

	related, err := s.relService.FindRelated(&relationships.FindRelatedOptions{
		MemoryID: id,
		Type:     relType,
		Limit:    limit,
	})
	if err != nil {
		NotFoundErrorWithID(c, id)
		return
	}

	response := make([]*MemoryResponse, len(related))
	for i, m := range related {
		response[i] = toMemoryResponse(m, m.ImportanceWeight, nil)
	}

	SuccessResponse(c, "Found "+intToString(len(related))+" related memories", response)
}

// GraphNodeData is one node in a getGraph response.
type GraphNodeData struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Importance int    `json:"importance"`
	Distance   int    `json:"distance"`
}

// GraphResponse is the JSON body for a graph-mapping request.
type GraphResponse struct {
	Nodes []GraphNodeData      `json:"nodes"`
	Edges []database.GraphEdge `json:"edges"`
}

// getGraph handles GET /api/v1/memories/:id/graph
func (s *Server) getGraph(c *gin.Context) {
	id := c.Param("id")
	depth := clampLimit(parseIntQuery(c, "depth", relationships.DefaultGraphDepth))
	if depth > relationships.MaxGraphDepth {
		depth = relationships.MaxGraphDepth
	}

	result, err := s.relService.MapGraph(&relationships.MapGraphOptions{
		RootID: id,
		Depth:  depth,
	})
	if err != nil {
		NotFoundErrorWithID(c, id)
		return
	}

	nodes := make([]GraphNodeData, len(result.Nodes))
	for i, n := range result.Nodes {
		nodes[i] = GraphNodeData{
			ID:         n.ID,
			Content:    n.Content,
			Importance: n.Importance,
			Distance:   n.Distance,
		}
	}

	SuccessResponse(c, "Graph retrieved successfully", &GraphResponse{
		Nodes: nodes,
		Edges: result.Edges,
	})
}

// CreateCategoryRequest represents a category creation request.
type CreateCategoryRequest struct {
	Name                string  `json:"name" binding:"required"`
	Description         string  `json:"description"`
	ParentID            string  `json:"parent_id"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// CategoryData is the JSON shape for one category.
type CategoryData struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Description         string  `json:"description,omitempty"`
	AutoGenerated       bool    `json:"auto_generated"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	CreatedAt           string  `json:"created_at"`
}

func toCategoryData(c *database.Category) *CategoryData {
	return &CategoryData{
		ID:                  c.ID,
		Name:                c.Name,
		Description:         c.Description,
		AutoGenerated:       c.AutoGenerated,
		ConfidenceThreshold: c.ConfidenceThreshold,
		CreatedAt:           c.CreatedAt.Format(time.RFC3339),
	}
}

// createCategory handles POST /api/v1/categories
func (s *Server) createCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, "Invalid request body: "+err.Error())
		return
	}

	cat := &database.Category{
		Name:                req.Name,
		Description:         req.Description,
		ParentCategoryID:    req.ParentID,
		ConfidenceThreshold: req.ConfidenceThreshold,
	}
	if err := s.db.CreateCategory(cat); err != nil {
		InternalError(c, "Failed to create category: "+err.Error())
		return
	}

	CreatedResponse(c, "Category created successfully", toCategoryData(cat))
}

// listCategories handles GET /api/v1/categories
func (s *Server) listCategories(c *gin.Context) {
	cats, err := s.db.ListCategories()
	if err != nil {
		InternalError(c, "Failed to list categories: "+err.Error())
		return
	}

	out := make([]*CategoryData, len(cats))
	for i, cat := range cats {
		out[i] = toCategoryData(cat)
	}

	SuccessResponse(c, "Listed "+intToString(len(cats))+" categories", out)
}

// CategorizeMemoryRequest assigns a memory to a category.
type CategorizeMemoryRequest struct {
	CategoryID string  `json:"category_id" binding:"required"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// categorizeMemory handles POST /api/v1/memories/:id/categorize
func (s *Server) categorizeMemory(c *gin.Context) {
	memoryID := c.Param("id")

	var req CategorizeMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, "Invalid request body: "+err.Error())
		return
	}

	confidence := req.Confidence
	if confidence == 0 {
		confidence = 0.7
	}

	if err := s.db.CategorizeMemory(memoryID, req.CategoryID, confidence, req.Reasoning); err != nil {
		InternalError(c, "Failed to categorize memory: "+err.Error())
		return
	}

	SuccessResponse(c, "Memory categorized successfully", gin.H{
		"memory_id":   memoryID,
		"category_id": req.CategoryID,
		"confidence":  confidence,
	})
}

// categoryStats handles GET /api/v1/categories/stats
func (s *Server) categoryStats(c *gin.Context) {
	cats, err := s.db.ListCategories()
	if err != nil {
		InternalError(c, "Failed to get category stats: "+err.Error())
		return
	}

	autoGenerated := 0
	for _, cat := range cats {
		if cat.AutoGenerated {
			autoGenerated++
		}
	}

	SuccessResponse(c, "Category stats retrieved successfully", gin.H{
		"total_categories": len(cats),
		"auto_generated":   autoGenerated,
	})
}

// CreateDomainRequest represents a domain creation request.
type CreateDomainRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// DomainData is the JSON shape for one domain.
type DomainData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toDomainData(d *database.Domain) *DomainData {
	return &DomainData{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
	}
}

// createDomain handles POST /api/v1/domains
func (s *Server) createDomain(c *gin.Context) {
	var req CreateDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, "Invalid request body: "+err.Error())
		return
	}

	dom := &database.Domain{Name: req.Name, Description: req.Description}
	if err := s.db.CreateDomain(dom); err != nil {
		InternalError(c, "Failed to create domain: "+err.Error())
		return
	}

	CreatedResponse(c, "Domain created successfully", toDomainData(dom))
}

// listDomains handles GET /api/v1/domains
func (s *Server) listDomains(c *gin.Context) {
	domains, err := s.db.ListDomains()
	if err != nil {
		InternalError(c, "Failed to list domains: "+err.Error())
		return
	}

	out := make([]*DomainData, len(domains))
	for i, d := range domains {
		out[i] = toDomainData(d)
	}

	SuccessResponse(c, "Listed "+intToString(len(domains))+" domains", out)
}

// domainStats handles GET /api/v1/domains/:domain/stats
func (s *Server) domainStats(c *gin.Context) {
	name := c.Param("domain")

	stats, err := s.db.GetDomainStats(name)
	if err != nil {
		InternalError(c, "Failed to get domain stats: "+err.Error())
		return
	}

	SuccessResponse(c, "Domain stats retrieved successfully", gin.H{
		"domain":             name,
		"memory_count":       stats.MemoryCount,
		"average_importance": stats.AverageImportance,
	})
}
