package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/speckit/cogmem/internal/ai"
	"github.com/speckit/cogmem/internal/database"
	"github.com/speckit/cogmem/internal/memory"
	"github.com/speckit/cogmem/internal/orchestrator"
	"github.com/speckit/cogmem/internal/relationships"
	"github.com/speckit/cogmem/internal/search"
)

// handleStoreMemory implements the store_memory tool.
func (s *Server) handleStoreMemory(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p StoreMemoryParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid store_memory params: %w", err)
	}
	if p.Content == "" {
		return nil, fmt.Errorf("content is required")
	}

	importance := p.Importance
	if importance == 0 {
		importance = 5
	}

	result, err := s.memSvc.Store(&memory.StoreOptions{
		Content:    p.Content,
		Importance: importance,
		Tags:       p.Tags,
		Domain:     p.Domain,
		Source:     p.Source,
	})
	if err != nil {
		return nil, err
	}

	if s.engine != nil {
		if err := s.engine.IndexForSearch(ctx, result.Memory); err != nil {
			s.log.Warn("failed to index stored memory", "memory_id", result.Memory.ID, "error", err)
		}
	}

	return &StoreMemoryResponse{
		MemoryID:  result.Memory.ID,
		Content:   result.Memory.Content,
		SessionID: result.SessionID,
		CreatedAt: result.Memory.CreatedAt.Format(time.RFC3339),
		IsNew:     result.IsNew,
	}, nil
}

// handleGetContext implements the get_context tool: a single mode-dispatched
// entry point over the hybrid retrieval and session-resume pipelines.
func (s *Server) handleGetContext(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p GetContextParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid get_context params: %w", err)
	}

	envelope := s.orchestrator.GetContext(orchestrator.Input{
		Query:     p.Query,
		Intent:    p.Intent,
		SessionID: p.SessionID,
		Mode:      orchestrator.Mode(p.Mode),
		Rerank:    p.Rerank,
	})
	return envelope, nil
}

// handleSearch implements the search tool.
func (s *Server) handleSearch(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p SearchParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid search params: %w", err)
	}

	searchType := p.SearchType
	if searchType == "" {
		searchType = "semantic"
	}
	limit := p.Limit
	if limit == 0 {
		limit = 10
	}

	var startDate, endDate *time.Time
	if p.StartDate != "" {
		if t, err := time.Parse(time.RFC3339, p.StartDate); err == nil {
			startDate = &t
		}
	}
	if p.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, p.EndDate); err == nil {
			endDate = &t
		}
	}

	if p.UseAI && s.searchEng.HasAI() == false && s.aiManager != nil {
		s.searchEng.SetAIManager(s.aiManager)
	}

	results, err := s.searchEng.Search(&search.SearchOptions{
		Query:             p.Query,
		SearchType:        search.SearchType(searchType),
		UseAI:             p.UseAI,
		Limit:             limit,
		Tags:              p.Tags,
		Domain:            p.Domain,
		StartDate:         startDate,
		EndDate:           endDate,
		SessionFilterMode: p.SessionFilterMode,
		ResponseFormat:    p.ResponseFormat,
	})
	if err != nil {
		return nil, err
	}

	lmResults := make([]SearchResultLM, 0, len(results))
	for _, r := range results {
		lmResults = append(lmResults, SearchResultLM{
			Memory:         newMemoryLM(r.Memory),
			RelevanceScore: r.Relevance,
			MatchType:      r.MatchType,
		})
	}

	estimatedChars := 0
	for _, r := range lmResults {
		estimatedChars += len(r.Memory.Content)
	}
	estimatedTokens := estimatedChars / 4

	return &SearchResponse{
		Results: lmResults,
		Count:   len(lmResults),
		SearchMetadata: &SearchMetadataLM{
			Query:      p.Query,
			SearchType: searchType,
			UsedAI:     p.UseAI && s.aiManager != nil,
		},
		SizeMetadata: &SizeMetadataLM{
			EstimatedTokens:     estimatedTokens,
			EstimatedChars:      estimatedChars,
			IsWithinTokenBudget: estimatedTokens <= 2000,
		},
	}, nil
}

// handleAnalysis implements the analysis tool.
func (s *Server) handleAnalysis(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p AnalysisParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid analysis params: %w", err)
	}

	analysisType := p.AnalysisType
	if analysisType == "" {
		analysisType = "question"
	}
	limit := p.Limit
	if limit == 0 {
		limit = 10
	}
	timeframe := p.Timeframe
	if timeframe == "" {
		timeframe = "all"
	}

	resp, err := s.aiManager.Analyze(ctx, &ai.AnalysisOptions{
		Type:      analysisType,
		Question:  p.Question,
		Query:     p.Query,
		Timeframe: timeframe,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}

	switch analysisType {
	case "summarize":
		sources := make([]MemoryLM, 0, len(resp.SourceMemories))
		for _, m := range resp.SourceMemories {
			sources = append(sources, newMemoryLM(m))
		}
		return &AnalysisSummarizeResponse{
			Summary:     resp.Summary,
			KeyThemes:   resp.KeyThemes,
			Timeframe:   timeframe,
			MemoryCount: resp.MemoryCount,
			Sources:     sources,
		}, nil
	default:
		sources := make([]MemoryLM, 0, len(resp.SourceMemories))
		for _, m := range resp.SourceMemories {
			sources = append(sources, newMemoryLM(m))
		}
		return &AnalysisQuestionResponse{
			Answer:     resp.Answer,
			Confidence: resp.Confidence,
			Sources:    sources,
		}, nil
	}
}

// handleRelationships implements the relationships tool, dispatching on
// relationship_type (find_related / discover / create / map_graph).
func (s *Server) handleRelationships(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p RelationshipsParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid relationships params: %w", err)
	}

	opType := p.RelationshipType
	if opType == "" {
		opType = "find_related"
	}

	switch opType {
	case "create":
		relType := p.RelationshipTypeEnum
		if relType == "" {
			relType = "references"
		}
		rel, err := s.relSvc.Create(&relationships.CreateOptions{
			SourceMemoryID:   p.SourceMemoryID,
			TargetMemoryID:   p.TargetMemoryID,
			RelationshipType: relType,
			Strength:         p.Strength,
			Context:          p.Context,
		})
		if err != nil {
			return nil, err
		}
		return newRelationshipDetail(rel), nil

	case "map_graph":
		depth := p.Depth
		if depth == 0 {
			depth = relationships.DefaultGraphDepth
		}
		g, err := s.relSvc.MapGraph(&relationships.MapGraphOptions{
			RootID:      p.MemoryID,
			Depth:       depth,
			MinStrength: p.MinStrength,
		})
		if err != nil {
			return nil, err
		}
		central, err := s.db.GetMemory(p.MemoryID)
		if err != nil {
			return nil, err
		}

		nodes := make([]MapGraphNodeLM, 0, len(g.Nodes))
		for _, n := range g.Nodes {
			if n.ID == p.MemoryID {
				continue
			}
			mem, err := s.db.GetMemory(n.ID)
			if err != nil {
				continue
			}
			nodes = append(nodes, MapGraphNodeLM{Memory: newMemoryLM(mem), Distance: n.Distance})
		}

		return &MapGraphResponseLM{
			CentralMemory: newMemoryLM(central),
			Nodes:         nodes,
			Edges:         g.Edges,
			TotalNodes:    g.TotalNodes,
			Depth:         g.MaxDepth,
		}, nil

	case "discover":
		start := time.Now()
		limit := p.Limit
		if limit == 0 {
			limit = 10
		}
		if s.aiManager == nil {
			return &DiscoverRelationshipsResponse{ProcessingTimeMs: time.Since(start).Milliseconds()}, nil
		}
		suggestions, err := s.aiManager.DiscoverRelationships(ctx, limit)
		if err != nil {
			return nil, err
		}
		memByID := make(map[string]*database.Memory)
		for _, sug := range suggestions {
			for _, id := range []string{sug.SourceID, sug.TargetID} {
				if _, ok := memByID[id]; ok {
					continue
				}
				if m, err := s.db.GetMemory(id); err == nil {
					memByID[id] = m
				}
			}
		}
		return newDiscoverRelationshipsResponse(suggestions, memByID, time.Since(start)), nil

	default: // find_related
		related, err := s.relSvc.FindRelated(&relationships.FindRelatedOptions{
			MemoryID:    p.MemoryID,
			Type:        p.RelationshipTypeEnum,
			MinStrength: p.MinStrength,
			Limit:       p.Limit,
		})
		if err != nil {
			return nil, err
		}
		out := make([]FindRelatedResultLM, 0, len(related))
		for _, m := range related {
			out = append(out, FindRelatedResultLM{
				Memory:         newMemoryLM(m),
				RelevanceScore: m.ImportanceWeight * 10,
			})
		}
		return out, nil
	}
}

// handleCategories implements the categories tool (list / create / categorize).
func (s *Server) handleCategories(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p CategoriesParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid categories params: %w", err)
	}

	op := p.CategoriesType
	if op == "" {
		op = "list"
	}

	switch op {
	case "create":
		if p.Name == "" {
			return nil, fmt.Errorf("name is required to create a category")
		}
		cat := &database.Category{
			Name:                p.Name,
			Description:         p.Description,
			ParentCategoryID:    p.ParentID,
			ConfidenceThreshold: p.ConfidenceThreshold,
			AutoGenerated:       p.AutoCreate,
		}
		if err := s.db.CreateCategory(cat); err != nil {
			return nil, err
		}
		return []CategoryFullLM{{
			ID:                  cat.ID,
			Name:                cat.Name,
			Description:         cat.Description,
			AutoGenerated:       cat.AutoGenerated,
			ConfidenceThreshold: cat.ConfidenceThreshold,
		}}, nil

	case "categorize":
		if p.MemoryID == "" {
			return nil, fmt.Errorf("memory_id is required to categorize a memory")
		}
		if p.Name == "" {
			return nil, fmt.Errorf("name is required to categorize a memory (the category to assign)")
		}
		cats, err := s.db.ListCategories()
		if err != nil {
			return nil, err
		}
		var target *database.Category
		for _, c := range cats {
			if c.Name == p.Name {
				target = c
				break
			}
		}
		if target == nil {
			target = &database.Category{Name: p.Name, Description: p.Description, AutoGenerated: true}
			if err := s.db.CreateCategory(target); err != nil {
				return nil, err
			}
		}
		confidence := p.ConfidenceThreshold
		if confidence == 0 {
			confidence = 0.7
		}
		if err := s.db.CategorizeMemory(p.MemoryID, target.ID, confidence, p.Description); err != nil {
			return nil, err
		}
		return []CategoryFullLM{{
			ID:                  target.ID,
			Name:                target.Name,
			Description:         target.Description,
			AutoGenerated:       target.AutoGenerated,
			ConfidenceThreshold: confidence,
		}}, nil

	default: // list
		cats, err := s.db.ListCategories()
		if err != nil {
			return nil, err
		}
		out := make([]CategoryFullLM, 0, len(cats))
		for _, c := range cats {
			out = append(out, CategoryFullLM{
				ID:                  c.ID,
				Name:                c.Name,
				Description:         c.Description,
				AutoGenerated:       c.AutoGenerated,
				ConfidenceThreshold: c.ConfidenceThreshold,
			})
		}
		return out, nil
	}
}

// handleDomains implements the domains tool (list / create / stats).
func (s *Server) handleDomains(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p DomainsParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid domains params: %w", err)
	}

	op := p.DomainsType
	if op == "" {
		op = "list"
	}

	switch op {
	case "create":
		if p.Name == "" {
			return nil, fmt.Errorf("name is required to create a domain")
		}
		dom := &database.Domain{Name: p.Name, Description: p.Description}
		if err := s.db.CreateDomain(dom); err != nil {
			return nil, err
		}
		return []DomainFullLM{{ID: dom.ID, Name: dom.Name, Description: dom.Description}}, nil

	case "stats":
		name := p.Domain
		if name == "" {
			name = p.Name
		}
		stats, err := s.db.GetDomainStats(name)
		if err != nil {
			return nil, err
		}
		return &StatsResponse{
			StatsType:   "domain",
			MemoryCount: stats.MemoryCount,
		}, nil

	default: // list
		domains, err := s.db.ListDomains()
		if err != nil {
			return nil, err
		}
		out := make([]DomainFullLM, 0, len(domains))
		for _, d := range domains {
			out = append(out, DomainFullLM{ID: d.ID, Name: d.Name, Description: d.Description})
		}
		return out, nil
	}
}

// handleSessions implements the sessions tool: it lists every session with
// its memory count; sessions_type is not consulted.
func (s *Server) handleSessions(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p SessionsParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid sessions params: %w", err)
	}

	sessions, err := s.db.ListSessions()
	if err != nil {
		return nil, err
	}

	out := make([]SessionInfoLM, 0, len(sessions))
	for _, sess := range sessions {
		count, err := s.db.GetMemoryCountBySession(sess.SessionID)
		if err != nil {
			count = 0
		}
		out = append(out, SessionInfoLM{
			ID:           sess.SessionID,
			MemoryCount:  count,
			LastAccessed: sess.LastAccessed.Format(time.RFC3339),
		})
	}
	return out, nil
}

// handleStats implements the stats tool: it returns the global database
// counts labelled with stats_type; domain and category_id are not consulted.
func (s *Server) handleStats(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p StatsParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid stats params: %w", err)
	}

	statsType := p.StatsType
	if statsType == "" {
		statsType = "session"
	}

	dbStats, err := s.db.GetStats()
	if err != nil {
		return nil, err
	}

	return &StatsResponse{
		StatsType:     statsType,
		MemoryCount:   dbStats.MemoryCount,
		SessionCount:  dbStats.SessionCount,
		DomainCount:   dbStats.DomainCount,
		CategoryCount: dbStats.CategoryCount,
	}, nil
}

// handleGetMemory implements the get_memory_by_id tool.
func (s *Server) handleGetMemory(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p GetMemoryParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid get_memory_by_id params: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("id is required")
	}

	m, err := s.memSvc.Get(&memory.GetOptions{ID: p.ID})
	if err != nil {
		return &MemoryResponse{Success: false, Message: err.Error()}, nil
	}
	mlm := newMemoryLM(m)
	return &MemoryResponse{Success: true, Memory: &mlm}, nil
}

// handleUpdateMemory implements the update_memory tool.
func (s *Server) handleUpdateMemory(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p UpdateMemoryParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid update_memory params: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("id is required")
	}

	opts := &memory.UpdateOptions{ID: p.ID, Tags: p.Tags}
	if p.Content != "" {
		opts.Content = &p.Content
	}
	if p.Importance != 0 {
		opts.Importance = &p.Importance
	}

	m, err := s.memSvc.Update(opts)
	if err != nil {
		return &MemoryResponse{Success: false, Message: err.Error()}, nil
	}
	mlm := newMemoryLM(m)
	return &MemoryResponse{Success: true, Memory: &mlm, Message: "memory updated"}, nil
}

// handleDeleteMemory implements the delete_memory tool.
func (s *Server) handleDeleteMemory(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p DeleteMemoryParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid delete_memory params: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("id is required")
	}

	if s.engine != nil {
		if err := s.engine.UnindexForSearch(ctx, p.ID); err != nil {
			s.log.Warn("failed to delete memory index", "memory_id", p.ID, "error", err)
		}
	}

	if err := s.memSvc.Delete(p.ID); err != nil {
		return &MemoryResponse{Success: false, Message: err.Error()}, nil
	}
	return &MemoryResponse{Success: true, Message: "memory deleted"}, nil
}
