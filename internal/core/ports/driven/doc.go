// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): PDF extraction, embedding and language
// model providers, the vector index, and metadata storage.
package driven
