package database

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// ImportanceTier is a closed set of importance labels. Unknown tiers are
// treated as ImportanceNormal per the tier-multiplier invariant.
type ImportanceTier string

const (
	ImportanceConstitutional ImportanceTier = "constitutional"
	ImportanceCritical       ImportanceTier = "critical"
	ImportanceImportant      ImportanceTier = "important"
	ImportanceNormal         ImportanceTier = "normal"
	ImportanceTemporary      ImportanceTier = "temporary"
	ImportanceDeprecated     ImportanceTier = "deprecated"
)

// ImportanceMultipliers are the fixed, closed-set multipliers from the
// composite scorer's importance factor.
var ImportanceMultipliers = map[ImportanceTier]float64{
	ImportanceConstitutional: 2.0,
	ImportanceCritical:       1.5,
	ImportanceImportant:      1.3,
	ImportanceNormal:         1.0,
	ImportanceTemporary:      0.6,
	ImportanceDeprecated:     0.1,
}

// TierMultiplier returns the fixed multiplier for a tier, defaulting unknown
// tiers to the "normal" multiplier.
func TierMultiplier(tier string) float64 {
	if m, ok := ImportanceMultipliers[ImportanceTier(tier)]; ok {
		return m
	}
	return ImportanceMultipliers[ImportanceNormal]
}

// EmbeddingStatus tracks the lifecycle of a memory's dense vector.
type EmbeddingStatus string

const (
	EmbeddingPending EmbeddingStatus = "pending"
	EmbeddingSuccess EmbeddingStatus = "success"
	EmbeddingFailed  EmbeddingStatus = "failed"
)

// Memory is the primary entity: an annotated text artifact tracked by the
// cognitive memory engine, carrying both the teacher's original storage
// fields (session/domain/chunking/ingestion) and the spec's FSRS +
// importance + natural-key fields.
//
// Identity is a UUID string (ID), matching the teacher's id convention
// throughout the store; the natural key (SpecFolder, FilePath, AnchorID)
// is kept unique by the partial index idx_memories_natural_key added in
// MigrationV2ToV3; CreateMemory itself does no uniqueness check.
type Memory struct {
	ID      string
	Content string

	// Natural key / descriptive fields (spec data model §3)
	SpecFolder      string
	FilePath        string
	AnchorID        string
	Title           string
	TriggerPhrases  []string
	Summary         string
	ContentHash     string

	// Teacher storage fields
	Source       string
	Importance   int // 1-10 legacy scale, independent of ImportanceTier
	Tags         []string
	SessionID    string
	Domain       string
	Embedding    []byte
	AgentType    string
	AgentContext string
	AccessScope  string
	Slug         string

	// Hierarchical chunking
	ParentMemoryID string
	ChunkLevel     int
	ChunkIndex     int

	// Ingestion linkage
	SourceID    string
	ExternalID  string
	CCSessionID string

	// Importance tier (spec §3)
	ImportanceTier   string
	ImportanceWeight float64

	// FSRS state (spec §3, clamped per invariants by the fsrs package)
	Stability   float64
	Difficulty  float64
	LastReview  *time.Time
	ReviewCount int

	// Access telemetry
	AccessCount  int
	LastAccessed *time.Time
	LastCited    *time.Time

	// Embedding lifecycle
	EmbeddingStatus string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TagsJSON serializes Tags to a JSON array string for storage.
func (m *Memory) TagsJSON() string {
	if len(m.Tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(m.Tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// TriggerPhrasesJSON serializes TriggerPhrases to a JSON array string.
func (m *Memory) TriggerPhrasesJSON() string {
	if len(m.TriggerPhrases) == 0 {
		return "[]"
	}
	b, err := json.Marshal(m.TriggerPhrases)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// ParseTags deserializes a JSON array string (or legacy comma-separated
// string) into a tag slice.
func ParseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err == nil {
		return tags
	}
	// Legacy fallback: comma-separated
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MemoryHash computes the session-dedup hash: sha256(content_hash or
// id|anchor|path)[:16], matching C12's memory_hash definition.
func MemoryHash(m *Memory) string {
	var basis string
	if m.ContentHash != "" {
		basis = m.ContentHash
	} else {
		basis = m.ID + "|" + m.AnchorID + "|" + m.FilePath
	}
	sum := sha256.Sum256([]byte(basis))
	return hex.EncodeToString(sum[:])[:16]
}

// HashContent returns the canonical content hash used for ContentHash and
// for PE-gate duplicate-content comparisons.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(sum[:])
}

// MemoryUpdate represents optional updates to a memory (teacher fields).
type MemoryUpdate struct {
	Content    *string
	Importance *int
	Tags       []string
	Source     *string
	Domain     *string
}

// MemoryFilters narrows a ListMemories query.
type MemoryFilters struct {
	SessionID         string
	Domain            string
	SpecFolder        string
	Tags              []string
	MinImportance     int
	MaxImportance     int
	StartDate         *time.Time
	EndDate           *time.Time
	Limit             int
	Offset            int
}

// SearchFilters narrows a lexical (FTS/BM25) search.
type SearchFilters struct {
	Query      string
	SessionID  string
	Domain     string
	SpecFolder string
	Tags       []string
	UseAI      bool
	Limit      int
}

// SearchResult pairs a Memory with a relevance score from any single
// search backend (FTS, BM25, semantic, tag, date, list).
type SearchResult struct {
	Memory    *Memory `json:"memory"`
	Relevance float64 `json:"relevance"`
}

// Relationship is a typed, weighted graph edge between two memories.
type Relationship struct {
	ID                string
	SourceMemoryID    string
	TargetMemoryID    string
	RelationshipType  string
	Strength          float64
	Context           string
	AutoGenerated     bool
	CreatedAt         time.Time
}

// RelationshipFilters narrows FindRelated.
type RelationshipFilters struct {
	Type        string
	MinStrength float64
	Limit       int
}

// Graph is a BFS-expanded neighborhood around a root memory.
type Graph struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// GraphNode is one memory in a Graph, annotated with BFS distance.
type GraphNode struct {
	ID         string
	Content    string
	Importance int
	Distance   int
}

// GraphEdge is one relationship edge in a Graph.
type GraphEdge struct {
	SourceID string
	TargetID string
	Type     string
	Strength float64
}

// Category is a hierarchical organization label.
type Category struct {
	ID                   string
	Name                 string
	Description          string
	ParentCategoryID     string
	ConfidenceThreshold  float64
	AutoGenerated        bool
	CreatedAt            time.Time
}

// Domain is a named knowledge partition.
type Domain struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AgentSession is the teacher's lightweight agent-session tracking row
// (distinct from the spec's crash-recoverable SessionState, see SessionCheckpoint in operations_session.go).
type AgentSession struct {
	SessionID    string
	AgentType    string
	AgentContext string
	CreatedAt    time.Time
	LastAccessed time.Time
	IsActive     bool
	Metadata     string
}

// Data source ingestion (teacher supplemented feature: external
// transcript/document ingestion feeding the Memory store).

type DataSource struct {
	ID               string
	SourceType       string
	Name             string
	Config           string
	Status           string
	LastSyncAt       *time.Time
	LastSyncPosition string
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type DataSourceFilters struct {
	SourceType string
	Status     string
	Limit      int
	Offset     int
}

type DataSourceUpdate struct {
	Name             *string
	Config           *string
	Status           *string
	LastSyncPosition *string
	ErrorMessage     *string
}

type DataSourceSyncHistory struct {
	ID                string
	SourceID          string
	StartedAt         time.Time
	CompletedAt       *time.Time
	ItemsProcessed    int
	MemoriesCreated   int
	DuplicatesSkipped int
	Status            string
	Error             string
}

type DataSourceStats struct {
	TotalMemories   int
	TotalSyncs      int
	SuccessfulSyncs int
	FailedSyncs     int
	LastSyncAt      *time.Time
	LastError       string
}

// DataSourceTypes is the closed set of ingestible external source kinds.
var DataSourceTypes = []string{"slack", "discord", "email", "notion", "obsidian", "claude-code", "generic"}

// DataSourceStatuses is the closed set of data source health states.
var DataSourceStatuses = []string{"active", "paused", "error"}

// IsValidDataSourceType reports whether t is a recognized source type.
func IsValidDataSourceType(t string) bool {
	for _, v := range DataSourceTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsValidDataSourceStatus reports whether s is a recognized source status.
func IsValidDataSourceStatus(s string) bool {
	for _, v := range DataSourceStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IngestMetadata carries the per-item metadata supplied by an external
// data source adapter.
type IngestMetadata struct {
	SourceType string
	Author     string
	Channel    string
	ThreadID   string
	Domain     string
	Importance int
	Tags       []string
}

// IngestItem is one unit of externally-sourced content to be deduplicated
// and stored as a Memory via IngestMemory.
type IngestItem struct {
	ExternalID  string
	Content     string
	ContentType string
	Timestamp   time.Time
	Metadata    IngestMetadata
}

// Claude Code chat session ingestion (teacher supplemented feature).

type CCSession struct {
	ID                     string
	SessionID              string
	ProjectPath            string
	ProjectHash            string
	Model                  string
	Title                  string
	FirstPrompt            string
	Summary                string
	CreatedAt              time.Time
	UpdatedAt              time.Time
	LastActivity           *time.Time
	MessageCount           int
	UserMessageCount       int
	AssistantMessageCount  int
	ToolCallCount          int
	SourceID               string
	FilePath               string
	LastSyncPosition       string
	SummaryMemoryID        string
}

type CCSessionFilters struct {
	ProjectPath string
	MinMessages int
	Limit       int
	Offset      int
}

type CCSessionUpdate struct {
	Title             *string
	Summary           *string
	MessageCount      *int
	UserMsgCount      *int
	AssistantMsgCount *int
	ToolCallCount     *int
	LastSyncPosition  *string
	SummaryMemoryID   *string
}

type CCMessage struct {
	ID            string
	SessionID     string
	Role          string
	Content       string
	Timestamp     *time.Time
	SequenceIndex int
	HasToolUse    bool
	TokenCount    int
}

type CCToolCall struct {
	ID         string
	SessionID  string
	MessageID  string
	ToolName   string
	InputJSON  string
	ResultText string
	Success    bool
	FilePath   string
	Operation  string
	Timestamp  *time.Time
}

// CorrectionType is the closed set of ways one memory can correct another.
type CorrectionType string

const (
	CorrectionSuperseded CorrectionType = "superseded"
	CorrectionDeprecated CorrectionType = "deprecated"
	CorrectionRefined    CorrectionType = "refined"
	CorrectionMerged     CorrectionType = "merged"
)

// Correction is one entry in the corrections ledger: a record of an
// original memory being penalized (and optionally replaced) along with the
// stability snapshot needed to undo the operation.
type Correction struct {
	ID                         string
	OriginalMemoryID           string
	ReplacementMemoryID        string
	CorrectionType             CorrectionType
	OriginalStabilityBefore    float64
	OriginalStabilityAfter     float64
	ReplacementStabilityBefore *float64
	ReplacementStabilityAfter  *float64
	Reason                     string
	Actor                      string
	CreatedAt                  time.Time
	IsUndone                   bool
	UndoneAt                   *time.Time
}

// CorrectionEdge is a causal graph edge emitted alongside a Correction when
// relation tracking is enabled.
type CorrectionEdge struct {
	ID             string
	CorrectionID   string
	EdgeType       string
	FromMemoryID   string
	ToMemoryID     string
	CreatedAt      time.Time
}

// CorrectionStats summarizes the ledger for reporting.
type CorrectionStats struct {
	TotalCorrections int
	ByType           map[CorrectionType]int
	UndoneCount      int
}

// Conflict is one append-only entry in the prediction-error gate's conflict
// log.
type Conflict struct {
	ID                string
	NewContentHash    string
	ExistingMemoryID  string
	SimilarityScore   float64
	Action            string
	Notes             string
	CreatedAt         time.Time
}
