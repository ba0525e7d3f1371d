// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IngestionService owns the document lifecycle: upload, extraction,
// chunking, embedding and indexing. Retriever and AnswerService make
// up the query path: similarity search, context assembly and answer
// generation.
package services
