package engine

import (
	"github.com/speckit/cogmem/internal/ai"
	"github.com/speckit/cogmem/internal/corrections"
	"github.com/speckit/cogmem/internal/database"
	"github.com/speckit/cogmem/internal/logging"
	"github.com/speckit/cogmem/internal/memory"
	"github.com/speckit/cogmem/internal/relationships"
	"github.com/speckit/cogmem/internal/rerank"
	"github.com/speckit/cogmem/internal/search"
	"github.com/speckit/cogmem/internal/session"
	"github.com/speckit/cogmem/internal/vectorindex"
	"github.com/speckit/cogmem/pkg/config"
)

var log = logging.GetLogger("engine")

// Engine is the integration point between the storage layer's services and
// the algorithm packages that have no storage dependency of their own
// (fuzzy, rrf, scoring, rerank, gate, fsrs). It implements
// orchestrator.Retriever and orchestrator.SessionResumer directly, so a
// caller need only construct one Engine and hand it to orchestrator.New.
type Engine struct {
	db         *database.Database
	cfg        *config.Config
	memSvc     *memory.Service
	searchEng  *search.Engine
	relSvc     *relationships.Service
	corrSvc    *corrections.Service
	sessionMgr *session.Manager
	aiManager  *ai.Manager
	reranker   *rerank.Reranker

	// vecIndex is the embedded C3 vector index (internal/vectorindex): the
	// fallback backend exercised when Qdrant isn't configured/available, and
	// the only backend that implements multi_concept_search (spec 4.3).
	vecIndex *vectorindex.Index
}

// New constructs an Engine with every collaborator wired from db/cfg,
// mirroring ai.NewManager's always-succeeds construction: degraded backends
// (no Ollama, no Qdrant) are handled per-call by falling back, not by
// failing New.
func New(db *database.Database, cfg *config.Config) *Engine {
	aiManager := ai.NewManager(db, cfg)
	searchEng := search.NewEngineWithAI(db, cfg, aiManager)

	return &Engine{
		db:         db,
		cfg:        cfg,
		memSvc:     memory.NewService(db, cfg),
		searchEng:  searchEng,
		relSvc:     relationships.NewService(db, cfg),
		corrSvc:    corrections.New(db, cfg.Relations.Enabled),
		sessionMgr: session.New(db),
		aiManager:  aiManager,
		// No voyage/cohere/local HTTP client exists anywhere in this
		// codebase's dependency set, so Reranker is constructed with no
		// registered providers; resolution always falls through to Rerank's
		// own no-provider-available fallback, which is never an error.
		reranker: rerank.New(nil),
		// Dimension inferred from the first insert; Ollama's nomic-embed-text
		// default is 768 but the embedding model is operator-configurable.
		vecIndex: vectorindex.New(0),
	}
}

// Sessions exposes the session layer so callers driving a process/daemon
// lifecycle can call ResetInterrupted at startup and Filter/Checkpoint
// during normal operation, without reaching past the Engine into
// internal/session directly.
func (e *Engine) Sessions() *session.Manager {
	return e.sessionMgr
}

// CompleteSession marks sessionID cleanly finished and resets the
// session-scoped rerank circuit breaker, so a subsequent session starts
// with a clean latency history instead of inheriting a trip from whatever
// session ran before it.
func (e *Engine) CompleteSession(sessionID string) error {
	e.reranker.ResetSession()
	return e.sessionMgr.Complete(sessionID)
}

// Corrections exposes the corrections ledger for undo/chain/stats callers.
func (e *Engine) Corrections() *corrections.Service {
	return e.corrSvc
}

// Relationships exposes the relationships service for graph-mapping callers.
func (e *Engine) Relationships() *relationships.Service {
	return e.relSvc
}
