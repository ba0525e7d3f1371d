// Package textclean normalises raw page text extracted from PDFs.
// Cleaning is deterministic and never fails; empty input yields empty
// output, which callers treat as "page contributed nothing".
package textclean

import (
	"regexp"
	"strings"
)

var (
	// Runs of spaces and tabs collapse to a single space. Newlines are
	// preserved so line-level boilerplate can still be detected.
	spaceRun = regexp.MustCompile(`[ \t\r\f\v]+`)

	// A line consisting solely of digits is a page number.
	pageNumberLine = regexp.MustCompile(`^\d+$`)
)

// minLineLength drops residual header/footer fragments. Lines of this
// length or shorter (after trimming) carry no retrievable content.
const minLineLength = 3

// Clean normalises whitespace, strips control characters, and removes
// boilerplate lines: page-number-only lines and lines of length <= 3.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = stripControl(text)
	text = spaceRun.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			// Preserve paragraph boundaries for the chunker.
			if n := len(cleaned); n > 0 && cleaned[n-1] != "" {
				cleaned = append(cleaned, "")
			}
			continue
		}
		if pageNumberLine.MatchString(line) {
			continue
		}
		if len(line) <= minLineLength {
			continue
		}
		cleaned = append(cleaned, line)
	}

	// Drop a trailing blank kept as a paragraph boundary.
	for len(cleaned) > 0 && cleaned[len(cleaned)-1] == "" {
		cleaned = cleaned[:len(cleaned)-1]
	}

	return strings.Join(cleaned, "\n")
}

// stripControl removes control characters except newline and tab.
func stripControl(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, text)
}
