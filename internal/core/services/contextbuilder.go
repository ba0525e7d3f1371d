package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
)

// Context length caps, in characters of assembled context.
const (
	// DefaultMaxContextQA caps question-answering context.
	DefaultMaxContextQA = 4000

	// DefaultMaxContextSummary caps summary context; summaries span
	// whole documents and need more room.
	DefaultMaxContextSummary = 6000
)

// truncationSuffix marks a block cut off at the length cap.
const truncationSuffix = "..."

// contextBlock is one source-labelled excerpt in assembled context.
type contextBlock struct {
	label   string
	content string
}

// assembleContext concatenates labelled excerpts up to maxLength
// characters. Blocks are separated by blank lines; the block that
// crosses the cap is truncated with a "..." suffix and assembly stops.
func assembleContext(blocks []contextBlock, maxLength int) string {
	var b strings.Builder
	for _, block := range blocks {
		text := block.label + "\n" + block.content

		if b.Len() > 0 {
			text = "\n\n" + text
		}

		remaining := maxLength - b.Len()
		if len(text) > remaining {
			cut := remaining - len(truncationSuffix)
			if cut > 0 {
				b.WriteString(truncateRuneSafe(text, cut))
				b.WriteString(truncationSuffix)
			}
			break
		}
		b.WriteString(text)
	}
	return b.String()
}

// truncateRuneSafe shortens s to at most n bytes without splitting a
// multi-byte rune.
func truncateRuneSafe(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// searchResultBlocks converts retrieval results into labelled context
// blocks with citation markers the prompt instructs the model to use.
func searchResultBlocks(results []domain.SearchResult) []contextBlock {
	blocks := make([]contextBlock, len(results))
	for i, res := range results {
		blocks[i] = contextBlock{
			label:   fmt.Sprintf("[source %d: %s - page %d]", i+1, res.DocumentTitle, res.Page),
			content: res.Content,
		}
	}
	return blocks
}
