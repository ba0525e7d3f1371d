// Package domain contains the core business entities for ragdoc.
// These types have no dependencies on infrastructure and represent
// the ubiquitous language of the PDF question-answering pipeline:
// documents, chunks, search results and citation sources.
package domain
