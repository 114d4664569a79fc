// Package memory provides core memory service layer.
//
// Implements business logic for memory operations including validation,
// session detection, chunking, and domain auto-creation.
package memory
