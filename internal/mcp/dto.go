package mcp

import (
	"time"

	"github.com/speckit/cogmem/internal/ai"
	"github.com/speckit/cogmem/internal/database"
)

// RateLimitExceeded is the JSON-RPC error code used when a tool call is
// rejected by the rate limiter, chosen outside the standard -32700..-32603
// range the protocol reserves.
const RateLimitExceeded = -32000

// RateLimitErrorData is the Error.Data payload for a RateLimitExceeded
// response.
type RateLimitErrorData struct {
	RetryAfterMs int64  `json:"retry_after_ms"`
	LimitType    string `json:"limit_type"`
	Message      string `json:"message"`
}

// MemoryLM is the wire shape a tool response embeds for one memory: every
// timestamp is a pre-formatted RFC3339 string so the formatter package
// never has to import database or parse time types itself.
type MemoryLM struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Importance int      `json:"importance"`
	Tags       []string `json:"tags,omitempty"`
	Domain     string   `json:"domain,omitempty"`
	SessionID  string   `json:"session_id,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

func newMemoryLM(m *database.Memory) MemoryLM {
	return MemoryLM{
		ID:         m.ID,
		Content:    m.Content,
		Importance: m.Importance,
		Tags:       m.Tags,
		Domain:     m.Domain,
		SessionID:  m.SessionID,
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  m.UpdatedAt.Format(time.RFC3339),
	}
}

// StoreMemoryResponse is the store_memory tool's result.
type StoreMemoryResponse struct {
	MemoryID  string `json:"memory_id"`
	Content   string `json:"content"`
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
	IsNew     bool   `json:"is_new"`
}

// SearchResultLM is one ranked hit in a SearchResponse.
type SearchResultLM struct {
	Memory         MemoryLM `json:"memory"`
	RelevanceScore float64  `json:"relevance_score"`
	MatchType      string   `json:"match_type"`
}

// SearchMetadataLM describes the query that produced a SearchResponse.
type SearchMetadataLM struct {
	Query      string `json:"query"`
	SearchType string `json:"search_type"`
	UsedAI     bool   `json:"used_ai"`
}

// SizeMetadataLM reports the formatted response's token budget accounting.
type SizeMetadataLM struct {
	EstimatedTokens      int  `json:"estimated_tokens"`
	EstimatedChars       int  `json:"estimated_chars"`
	IsWithinTokenBudget  bool `json:"is_within_token_budget"`
}

// SearchResponse is the search tool's result.
type SearchResponse struct {
	Results        []SearchResultLM  `json:"results"`
	Count          int               `json:"count"`
	SearchMetadata *SearchMetadataLM `json:"search_metadata,omitempty"`
	SizeMetadata   *SizeMetadataLM   `json:"size_metadata,omitempty"`
}

// MemoryResponse wraps a single memory for get/update/delete tool results.
type MemoryResponse struct {
	Success bool      `json:"success"`
	Memory  *MemoryLM `json:"memory,omitempty"`
	Message string    `json:"message,omitempty"`
}

// AnalysisQuestionResponse is the analysis tool's "question" result shape.
type AnalysisQuestionResponse struct {
	Answer     string     `json:"answer"`
	Reasoning  string     `json:"reasoning,omitempty"`
	Confidence float64    `json:"confidence"`
	Sources    []MemoryLM `json:"sources,omitempty"`
}

// AnalysisSummarizeResponse is the analysis tool's "summarize" result shape.
type AnalysisSummarizeResponse struct {
	Summary     string     `json:"summary"`
	KeyThemes   []string   `json:"key_themes,omitempty"`
	Timeframe   string     `json:"timeframe"`
	MemoryCount int        `json:"memory_count"`
	Sources     []MemoryLM `json:"sources,omitempty"`
}

// RelationshipDetail describes one created or discovered relationship edge.
type RelationshipDetail struct {
	ID               string  `json:"id"`
	SourceMemoryID   string  `json:"source_memory_id"`
	TargetMemoryID   string  `json:"target_memory_id"`
	RelationshipType string  `json:"relationship_type"`
	Strength         float64 `json:"strength"`
	Context          string  `json:"context,omitempty"`
}

func newRelationshipDetail(r *database.Relationship) *RelationshipDetail {
	return &RelationshipDetail{
		ID:               r.ID,
		SourceMemoryID:   r.SourceMemoryID,
		TargetMemoryID:   r.TargetMemoryID,
		RelationshipType: r.RelationshipType,
		Strength:         r.Strength,
		Context:          r.Context,
	}
}

// DiscoveredRelationship pairs a suggested edge with the two memories it
// connects and the reasoning behind the suggestion.
type DiscoveredRelationship struct {
	Relationship RelationshipDetail `json:"relationship"`
	SourceMemory MemoryLM           `json:"source_memory"`
	TargetMemory MemoryLM           `json:"target_memory"`
	Explanation  string             `json:"explanation"`
}

// DiscoverRelationshipsResponse is the relationships(discover) result shape.
type DiscoverRelationshipsResponse struct {
	Relationships    []DiscoveredRelationship `json:"relationships"`
	TotalFound       int                      `json:"total_found"`
	ProcessingTimeMs int64                    `json:"processing_time_ms"`
}

func newDiscoverRelationshipsResponse(suggestions []ai.RelationshipSuggestion, memByID map[string]*database.Memory, elapsed time.Duration) *DiscoverRelationshipsResponse {
	rels := make([]DiscoveredRelationship, 0, len(suggestions))
	for _, sug := range suggestions {
		src, ok := memByID[sug.SourceID]
		if !ok {
			continue
		}
		tgt, ok := memByID[sug.TargetID]
		if !ok {
			continue
		}
		rels = append(rels, DiscoveredRelationship{
			Relationship: RelationshipDetail{
				SourceMemoryID:   sug.SourceID,
				TargetMemoryID:   sug.TargetID,
				RelationshipType: sug.Type,
				Strength:         sug.Confidence,
			},
			SourceMemory: newMemoryLM(src),
			TargetMemory: newMemoryLM(tgt),
			Explanation:  sug.Reasoning,
		})
	}
	return &DiscoverRelationshipsResponse{
		Relationships:    rels,
		TotalFound:       len(rels),
		ProcessingTimeMs: elapsed.Milliseconds(),
	}
}

// FindRelatedResultLM is one hit from relationships(find_related).
type FindRelatedResultLM struct {
	Memory         MemoryLM `json:"memory"`
	RelevanceScore float64  `json:"relevance_score"`
}

// MapGraphNodeLM is one node in a MapGraphResponseLM, annotated with BFS
// distance from the central memory.
type MapGraphNodeLM struct {
	Memory   MemoryLM `json:"memory"`
	Distance int      `json:"distance"`
}

// MapGraphResponseLM is the relationships(map_graph) result shape.
type MapGraphResponseLM struct {
	CentralMemory MemoryLM               `json:"central_memory"`
	Nodes         []MapGraphNodeLM       `json:"nodes"`
	Edges         []database.GraphEdge   `json:"edges"`
	TotalNodes    int                    `json:"total_nodes"`
	Depth         int                    `json:"depth"`
}

// SessionInfoLM summarizes one tracked session for the sessions tool.
type SessionInfoLM struct {
	ID           string `json:"id"`
	MemoryCount  int    `json:"memory_count"`
	LastAccessed string `json:"last_accessed"`
}

// DomainFullLM describes one domain for the domains tool.
type DomainFullLM struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CategoryFullLM describes one category for the categories tool.
type CategoryFullLM struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Description         string  `json:"description,omitempty"`
	AutoGenerated       bool    `json:"auto_generated"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// StatsResponse is the stats tool's result.
type StatsResponse struct {
	StatsType     string `json:"stats_type"`
	MemoryCount   int    `json:"memory_count"`
	SessionCount  int    `json:"session_count"`
	DomainCount   int    `json:"domain_count,omitempty"`
	CategoryCount int    `json:"category_count,omitempty"`
}
