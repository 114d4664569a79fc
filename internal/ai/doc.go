// Package ai provides Ollama AI service integration.
//
// Implements embedding generation (nomic-embed-text, 768-dim) and
// chat/summarization (qwen2.5:3b) with verified performance targets.
package ai
