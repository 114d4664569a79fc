// Package database provides SQLite database layer with FTS5 full-text search.
//
// This package implements the complete database schema with 23 tables plus the memories_fts index,
// including memories, relationships, categories, domains, and supporting tables.
// It provides CRUD operations, search functionality, and graph traversal capabilities.
package database
