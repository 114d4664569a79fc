// Package search provides search engine implementations.
//
// Implements both FTS5 keyword search and semantic vector search with
// relevance scoring and result ranking.
package search
