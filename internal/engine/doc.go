// Package engine wires the independent algorithm packages (fuzzy query
// expansion, RRF fusion, composite scoring, cross-encoder reranking, the
// prediction-error write gate, FSRS strengthening, the corrections ledger,
// and the session layer) into the two pipelines a caller actually drives:
// a read pipeline satisfying internal/orchestrator.Retriever and
// internal/orchestrator.SessionResumer, and a write pipeline that decides
// whether new content should create, reinforce, update, supersede, or link
// against what is already stored. Grounded on internal/ai.Manager
// (internal/ai/manager.go), which wires Ollama/Qdrant behind the same
// "one struct holds every collaborator, New() constructs them all" shape
// this package generalizes to the retrieval/gate/fsrs/corrections stack.
package engine
