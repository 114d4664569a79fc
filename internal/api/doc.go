// Package api provides the REST API server (53 routes under /api/v1).
//
// Implements HTTP REST API using Gin framework with standard response format,
// CORS support, and comprehensive endpoint coverage for all system operations.
package api
