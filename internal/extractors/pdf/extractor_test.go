package pdf

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
)

func TestExtractRejectsGarbage(t *testing.T) {
	data := []byte("this is not a pdf stream at all")

	_, err := New().Extract(context.Background(), bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("got %v, want ErrExtraction", err)
	}
}

func TestExtractRejectsEmptyStream(t *testing.T) {
	_, err := New().Extract(context.Background(), bytes.NewReader(nil), 0)
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("got %v, want ErrExtraction", err)
	}
}

func TestFallbackTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "first line",
			text: "A Study of Chunking\nby somebody",
			want: "A Study of Chunking",
		},
		{
			name: "skips leading blank lines",
			text: "\n   \nActual Title Line\nbody",
			want: "Actual Title Line",
		},
		{
			name: "trims surrounding whitespace",
			text: "   Padded Title   \n",
			want: "Padded Title",
		},
		{
			name: "truncates long lines",
			text: strings.Repeat("x", 150),
			want: strings.Repeat("x", 100),
		},
		{
			name: "empty text",
			text: "  \n \n",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FallbackTitle(tt.text); got != tt.want {
				t.Errorf("FallbackTitle(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestParsePDFDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{
			name: "full date with timezone suffix",
			in:   "D:20210315120530+02'00'",
			want: time.Date(2021, 3, 15, 12, 5, 30, 0, time.UTC),
		},
		{
			name: "date only",
			in:   "D:20210315",
			want: time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "year only pads to january first",
			in:   "D:2021",
			want: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "no prefix",
			in:   "20210315120530",
			want: time.Date(2021, 3, 15, 12, 5, 30, 0, time.UTC),
		},
		{
			name: "zulu suffix",
			in:   "D:20210315120530Z",
			want: time.Date(2021, 3, 15, 12, 5, 30, 0, time.UTC),
		},
		{
			name: "garbage",
			in:   "not a date",
			want: time.Time{},
		},
		{
			name: "too short",
			in:   "D:20",
			want: time.Time{},
		},
		{
			name: "empty",
			in:   "",
			want: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parsePDFDate(tt.in); !got.Equal(tt.want) {
				t.Errorf("parsePDFDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
