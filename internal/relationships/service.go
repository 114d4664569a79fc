// Package relationships provides graph algorithms and relationship
// management: typed edges between memories, BFS neighborhood mapping, and
// relationship-type validation. Service shape (validate, mutate, persist,
// log) follows internal/corrections.Service. MapGraph runs its own
// depth-capped breadth-first walk over internal/database's
// GetRelationshipsForMemory, filtering edges as it goes; FindRelated wraps
// database.FindRelated, which returns direct neighbours only.
package relationships

import (
	"fmt"
	"strings"

	"github.com/speckit/cogmem/internal/database"
	"github.com/speckit/cogmem/internal/logging"
	"github.com/speckit/cogmem/pkg/config"
)

var log = logging.GetLogger("relationships")

const (
	// DefaultStrength is applied when Strength is 0 or negative.
	DefaultStrength = 0.5
	// DefaultGraphDepth and MaxGraphDepth bound MapGraph's traversal.
	DefaultGraphDepth = 2
	MaxGraphDepth      = 5
	// DefaultFindRelatedLimit bounds FindRelated when no limit is given.
	DefaultFindRelatedLimit = 10
)

// Service wraps the memory_relationships store with validation, strength
// normalization, and BFS graph mapping.
type Service struct {
	db  *database.Database
	cfg *config.Config
}

// NewService constructs a relationships Service.
func NewService(db *database.Database, cfg *config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

// RelationshipTypeInfo describes one of the fixed relationship types.
type RelationshipTypeInfo struct {
	Name        string
	Description string
}

var relationshipTypeInfo = []RelationshipTypeInfo{
	{"references", "Memory references or cites another"},
	{"contradicts", "Memory contradicts another"},
	{"expands", "Memory expands on or elaborates another"},
	{"similar", "Memory is similar in content or topic to another"},
	{"sequential", "Memory follows another in sequence"},
	{"causes", "Memory describes a cause of another"},
	{"enables", "Memory describes something that enables another"},
}

// GetRelationshipTypes returns the fixed set of relationship types with
// their descriptions.
func GetRelationshipTypes() []RelationshipTypeInfo {
	return relationshipTypeInfo
}

// ValidateRelationshipType reports whether t (case-insensitive) is one of
// the fixed relationship types.
func ValidateRelationshipType(t string) error {
	if !database.IsValidRelationshipType(strings.ToLower(strings.TrimSpace(t))) {
		return fmt.Errorf("relationships: invalid relationship type %q", t)
	}
	return nil
}

// CreateOptions contains the fields needed to record a relationship edge.
type CreateOptions struct {
	SourceMemoryID   string
	TargetMemoryID   string
	RelationshipType string
	Strength         float64
	Context          string
	AutoGenerated    bool
}

// Create records a typed, weighted edge between two existing memories.
// Strength at or below 0 falls back to DefaultStrength; strength above 1.0
// is capped to 1.0.
func (s *Service) Create(opts *CreateOptions) (*database.Relationship, error) {
	relType := strings.ToLower(strings.TrimSpace(opts.RelationshipType))
	if err := ValidateRelationshipType(relType); err != nil {
		return nil, err
	}

	if src, err := s.db.GetMemory(opts.SourceMemoryID); err != nil {
		return nil, fmt.Errorf("relationships: source memory %s not found: %w", opts.SourceMemoryID, err)
	} else if src == nil {
		return nil, fmt.Errorf("relationships: source memory %s not found", opts.SourceMemoryID)
	}
	if tgt, err := s.db.GetMemory(opts.TargetMemoryID); err != nil {
		return nil, fmt.Errorf("relationships: target memory %s not found: %w", opts.TargetMemoryID, err)
	} else if tgt == nil {
		return nil, fmt.Errorf("relationships: target memory %s not found", opts.TargetMemoryID)
	}

	strength := opts.Strength
	switch {
	case strength <= 0:
		strength = DefaultStrength
	case strength > 1.0:
		strength = 1.0
	}

	rel := &database.Relationship{
		SourceMemoryID:   opts.SourceMemoryID,
		TargetMemoryID:   opts.TargetMemoryID,
		RelationshipType: relType,
		Strength:         strength,
		Context:          opts.Context,
		AutoGenerated:    opts.AutoGenerated,
	}

	if err := s.db.CreateRelationship(rel); err != nil {
		return nil, err
	}

	log.Info("created relationship", "type", relType, "source", opts.SourceMemoryID, "target", opts.TargetMemoryID)
	return rel, nil
}

// FindRelatedOptions narrows FindRelated.
type FindRelatedOptions struct {
	MemoryID    string
	Type        string
	MinStrength float64
	Limit       int
}

// FindRelated returns memories directly connected to MemoryID, optionally
// narrowed by relationship type and minimum strength.
func (s *Service) FindRelated(opts *FindRelatedOptions) ([]*database.Memory, error) {
	if opts.MemoryID == "" {
		return nil, fmt.Errorf("relationships: memory_id is required")
	}
	if mem, err := s.db.GetMemory(opts.MemoryID); err != nil {
		return nil, fmt.Errorf("relationships: memory %s not found: %w", opts.MemoryID, err)
	} else if mem == nil {
		return nil, fmt.Errorf("relationships: memory %s not found", opts.MemoryID)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultFindRelatedLimit
	}

	return s.db.FindRelated(opts.MemoryID, &database.RelationshipFilters{
		Type:        opts.Type,
		MinStrength: opts.MinStrength,
		Limit:       limit,
	})
}

// MapGraphOptions narrows MapGraph.
type MapGraphOptions struct {
	RootID       string
	Depth        int
	IncludeTypes []string
	MinStrength  float64
}

// MapGraphResult is the BFS-expanded neighborhood around RootID, after any
// type/strength filters have been applied.
type MapGraphResult struct {
	Nodes      []database.GraphNode
	Edges      []database.GraphEdge
	TotalNodes int
	MaxDepth   int
}

// MapGraph walks the relationship graph outward from RootID up to Depth
// hops (default DefaultGraphDepth, capped at MaxGraphDepth), keeping only
// edges that pass the type/strength filters. Filtering happens during the
// walk, so an edge excluded by a filter also excludes whatever it would
// have connected, matching a real graph traversal rather than a cosmetic
// post-filter over the unfiltered BFS.
func (s *Service) MapGraph(opts *MapGraphOptions) (*MapGraphResult, error) {
	if opts.RootID == "" {
		return nil, fmt.Errorf("relationships: root_id is required")
	}
	root, err := s.db.GetMemory(opts.RootID)
	if err != nil {
		return nil, fmt.Errorf("relationships: memory %s not found: %w", opts.RootID, err)
	}
	if root == nil {
		return nil, fmt.Errorf("relationships: memory %s not found", opts.RootID)
	}

	depth := opts.Depth
	if depth <= 0 {
		depth = DefaultGraphDepth
	}
	if depth > MaxGraphDepth {
		depth = MaxGraphDepth
	}

	includeTypes := make(map[string]bool, len(opts.IncludeTypes))
	for _, t := range opts.IncludeTypes {
		includeTypes[strings.ToLower(t)] = true
	}

	type queued struct {
		id       string
		distance int
	}

	visited := map[string]int{opts.RootID: 0}
	nodeContent := map[string]*database.Memory{opts.RootID: root}
	queue := []queued{{opts.RootID, 0}}
	edgeSeen := make(map[string]bool)
	var edges []database.GraphEdge

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.distance >= depth {
			continue
		}

		rels, err := s.db.GetRelationshipsForMemory(cur.id)
		if err != nil {
			return nil, err
		}

		for _, r := range rels {
			if len(includeTypes) > 0 && !includeTypes[strings.ToLower(r.RelationshipType)] {
				continue
			}
			if r.Strength < opts.MinStrength {
				continue
			}

			edgeKey := r.SourceMemoryID + "-" + r.TargetMemoryID
			if !edgeSeen[edgeKey] {
				edgeSeen[edgeKey] = true
				edges = append(edges, database.GraphEdge{
					SourceID: r.SourceMemoryID,
					TargetID: r.TargetMemoryID,
					Type:     r.RelationshipType,
					Strength: r.Strength,
				})
			}

			other := r.TargetMemoryID
			if other == cur.id {
				other = r.SourceMemoryID
			}
			if _, seen := visited[other]; seen {
				continue
			}
			mem, err := s.db.GetMemory(other)
			if err != nil {
				continue
			}
			visited[other] = cur.distance + 1
			nodeContent[other] = mem
			queue = append(queue, queued{other, cur.distance + 1})
		}
	}

	nodes := make([]database.GraphNode, 0, len(visited))
	for id, dist := range visited {
		mem := nodeContent[id]
		nodes = append(nodes, database.GraphNode{
			ID:         id,
			Content:    mem.Content,
			Importance: mem.Importance,
			Distance:   dist,
		})
	}

	log.Debug("mapped relationship graph", "root", opts.RootID, "depth", depth, "nodes", len(nodes), "edges", len(edges))
	return &MapGraphResult{
		Nodes:      nodes,
		Edges:      edges,
		TotalNodes: len(nodes),
		MaxDepth:   depth,
	}, nil
}

// DiscoverOptions narrows Discover.
type DiscoverOptions struct {
	Limit int
}

// Discover suggests new relationships by content similarity. It requires an
// embedding backend to compare memories pairwise, so this package (which is
// intentionally storage-only, with no internal/ai dependency) always
// returns an empty suggestion list; the ai.Manager.DiscoverRelationships
// path wired into internal/mcp and internal/api is the implementation that
// actually proposes edges.
func (s *Service) Discover(opts *DiscoverOptions) ([]*database.Relationship, error) {
	log.Debug("discover called with no embedding backend, returning no suggestions", "limit", opts.Limit)
	return nil, nil
}
