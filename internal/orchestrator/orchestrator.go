// Package orchestrator implements the single entry point an external agent
// calls for memory context: get_context(input, mode, opts). It resolves an
// auto mode from intent, enforces each mode's token budget, and wraps
// whatever the underlying retrieval/session layers return in a fixed
// response envelope. Grounded on internal/api's handler-returns-envelope
// convention (internal/api/handlers_chat.go) generalized from HTTP
// responses to a mode-dispatch facade.
package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/speckit/cogmem/internal/logging"
)

var log = logging.GetLogger("orchestrator")

// Mode is the context-retrieval strategy to apply.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeQuick   Mode = "quick"
	ModeDeep    Mode = "deep"
	ModeFocused Mode = "focused"
	ModeResume  Mode = "resume"
)

// TokenBudget is the fixed approximate token ceiling for each mode's
// response payload.
var TokenBudget = map[Mode]int{
	ModeQuick:   800,
	ModeDeep:    2000,
	ModeFocused: 1500,
	ModeResume:  1200,
}

// intentModeTable is the closed-set mapping from a caller-declared intent
// to the mode auto-resolution picks when Mode==auto.
var intentModeTable = map[string]Mode{
	"add_feature":    ModeDeep,
	"refactor":       ModeDeep,
	"security_audit": ModeDeep,
	"fix_bug":        ModeFocused,
	"understand":     ModeFocused,
}

// Item is one piece of retrieved context, backend-agnostic.
type Item struct {
	ID      string
	Title   string
	Content string
	Score   float64
}

// Retriever is the hybrid-search facade the orchestrator drives. Concrete
// implementations live in internal/search, wired in at construction; tests
// use fakes.
type Retriever interface {
	Quick(sessionID, query string) ([]Item, error)
	Deep(sessionID, query string, rerank bool) ([]Item, error)
	Focused(sessionID, query, intent string) ([]Item, error)
}

// SessionResumer supplies the last checkpointed state for ModeResume.
type SessionResumer interface {
	LastState(sessionID string) (summary string, pendingWork string, err error)
}

// Input is a get_context call's parameters.
type Input struct {
	Query     string
	Intent    string
	SessionID string
	Mode      Mode
	Rerank    bool
}

// Meta is the fixed metadata block every envelope carries.
type Meta struct {
	Tool       string
	TokenCount int
	LatencyMS  float64
	CacheHit   bool
	IsError    bool
	Severity   string
}

// Envelope is get_context's fixed response shape.
type Envelope struct {
	Summary string
	Data    []Item
	Hints   []string
	Meta    Meta
}

// Orchestrator dispatches get_context across modes.
type Orchestrator struct {
	retriever Retriever
	resumer   SessionResumer
}

// New constructs an Orchestrator. resumer may be nil if ModeResume will
// never be invoked.
func New(retriever Retriever, resumer SessionResumer) *Orchestrator {
	return &Orchestrator{retriever: retriever, resumer: resumer}
}

// ResolveMode returns the effective mode for an input: the explicit mode,
// or (when input.Mode is empty/auto) the intent table's mapping, defaulting
// to ModeFocused when intent is unset or unrecognized.
func ResolveMode(in Input) Mode {
	if in.Mode != "" && in.Mode != ModeAuto {
		return in.Mode
	}
	if m, ok := intentModeTable[in.Intent]; ok {
		return m
	}
	return ModeFocused
}

// errorLayer identifies this package as the layer that rejected an
// invalid get_context call, per spec(4.13)'s "structured error referencing
// layer L1:Orchestration" contract.
const errorLayer = "L1:Orchestration"

// errorEnvelope builds an error response: Summary is prefixed "Error: " and
// hint is flattened into Hints, matching spec(6)'s envelope contract for
// error responses.
func errorEnvelope(reason, hint string) Envelope {
	return Envelope{
		Summary: "Error: " + reason,
		Hints:   []string{hint},
		Meta:    Meta{Tool: "get_context", IsError: true, Severity: "error"},
	}
}

// validationErrorEnvelope is errorEnvelope specialized for invalid-input
// rejections, which must reference errorLayer.
func validationErrorEnvelope(reason string) Envelope {
	return errorEnvelope(reason, fmt.Sprintf("%s: %s", errorLayer, reason))
}

// GetContext is the single entry point: validates input, resolves the
// mode, dispatches to the matching retrieval strategy, and truncates the
// result to the mode's token budget.
func (o *Orchestrator) GetContext(in Input) Envelope {
	start := time.Now()

	if strings.TrimSpace(in.Query) == "" && in.Mode != ModeResume {
		return validationErrorEnvelope("query must not be empty")
	}

	mode := ResolveMode(in)
	budget := TokenBudget[mode]

	var items []Item
	var err error
	var summary string

	switch mode {
	case ModeQuick:
		items, err = o.retriever.Quick(in.SessionID, in.Query)
		summary = "quick trigger-phrase match"
	case ModeDeep:
		items, err = o.retriever.Deep(in.SessionID, in.Query, in.Rerank)
		summary = "deep hybrid retrieval with composite scoring"
	case ModeFocused:
		items, err = o.retriever.Focused(in.SessionID, in.Query, in.Intent)
		summary = fmt.Sprintf("focused retrieval narrowed by intent %q", in.Intent)
	case ModeResume:
		if o.resumer == nil {
			return errorEnvelope("resume mode is unavailable: no session resumer configured", "configure a SessionResumer via orchestrator.New, or call get_context with a non-resume mode")
		}
		var pending string
		summary, pending, err = o.resumer.LastState(in.SessionID)
		if err == nil {
			items = []Item{{ID: in.SessionID, Title: "pending work", Content: pending}}
		}
	default:
		return validationErrorEnvelope(fmt.Sprintf("unknown mode: %s", mode))
	}

	if err != nil {
		log.Error("get_context retrieval failed", "mode", mode, "error", err)
		return errorEnvelope(fmt.Sprintf("retrieval failed: %v", err), "retry the call, or fall back to mode=quick for a cheaper trigger-phrase-only lookup")
	}

	items, truncated := truncateToBudget(items, budget)
	var hints []string
	if truncated {
		hints = append(hints, "results truncated to fit token budget")
	}

	latency := time.Since(start)
	return Envelope{
		Summary: summary,
		Data:    items,
		Hints:   hints,
		Meta: Meta{
			Tool:       "get_context",
			TokenCount: estimateTokens(items),
			LatencyMS:  float64(latency.Microseconds()) / 1000.0,
		},
	}
}

// estimateTokens approximates token count as content length / 4, the
// conventional rough ratio used for budget enforcement without a real
// tokenizer dependency.
func estimateTokens(items []Item) int {
	total := 0
	for _, it := range items {
		total += len(it.Content) / 4
	}
	return total
}

// truncateToBudget drops items from the tail until the estimated token
// count fits budget, reporting whether anything was dropped.
func truncateToBudget(items []Item, budget int) ([]Item, bool) {
	if budget <= 0 {
		return items, false
	}
	running := 0
	for i, it := range items {
		running += len(it.Content) / 4
		if running > budget {
			return items[:i], true
		}
	}
	return items, false
}
