// Package relationships provides graph algorithms and relationship management.
//
// Implements BFS graph traversal and typed, weighted relationship edges.
// Discover returns no suggestions here; this package does no similarity
// scoring.
package relationships
