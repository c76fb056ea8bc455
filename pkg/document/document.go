// Package document turns source files into page-tagged text chunks for the shredder.
package document

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ekaya-inc/rfp-shredder/pkg/apperrors"
)

// Status of a processing run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ChunkMetadata describes where a chunk came from. Page is 1-based; 0 means unknown.
type ChunkMetadata struct {
	Page int `json:"page,omitempty"`
}

// Chunk is one contiguous slice of document text, usually a page.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Result is the outcome of processing one file. Callers must treat any
// Status other than StatusSuccess as fatal for that file.
type Result struct {
	Status Status  `json:"status"`
	Chunks []Chunk `json:"chunks"`
	Error  string  `json:"error,omitempty"`
}

// Err returns nil on success and an ErrDocumentProcessing-wrapped error otherwise.
func (r *Result) Err() error {
	if r.Status == StatusSuccess {
		return nil
	}
	return fmt.Errorf("%w: %s", apperrors.ErrDocumentProcessing, r.Error)
}

func failure(format string, args ...any) *Result {
	return &Result{Status: StatusError, Error: fmt.Sprintf(format, args...)}
}

// Processor extracts text from a file. Implementations never return nil.
type Processor interface {
	Process(ctx context.Context, path string) *Result
}

// PageMap locates byte offsets of joined text on their source pages.
type PageMap struct {
	offsets []int
	pages   []int
}

// Page returns the page containing offset, or 0 when pages are unknown.
func (m *PageMap) Page(offset int) int {
	if m == nil || len(m.offsets) == 0 {
		return 0
	}
	i := sort.Search(len(m.offsets), func(i int) bool { return m.offsets[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return m.pages[i]
}

// JoinChunks concatenates chunk texts with newlines and returns the page
// map for the joined string.
func JoinChunks(chunks []Chunk) (string, *PageMap) {
	var b strings.Builder
	m := &PageMap{}
	for i, c := range chunks {
		if i > 0 {
			b.WriteByte('\n')
		}
		if c.Metadata.Page > 0 {
			m.offsets = append(m.offsets, b.Len())
			m.pages = append(m.pages, c.Metadata.Page)
		}
		b.WriteString(c.Text)
	}
	return b.String(), m
}

// PageRange returns the text of pages start through end inclusive.
// A zero end means through the last page.
func PageRange(chunks []Chunk, start, end int) string {
	var parts []string
	for _, c := range chunks {
		p := c.Metadata.Page
		if p < start || (end > 0 && p > end) {
			continue
		}
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n")
}

// splitPages splits text on form feeds, the page separator emitted by
// pdftotext and kept in plain-text exports.
func splitPages(text string) []Chunk {
	raw := strings.Split(text, "\f")
	chunks := make([]Chunk, 0, len(raw))
	for i, page := range raw {
		// pdftotext terminates the last page with a form feed
		if i == len(raw)-1 && strings.TrimSpace(page) == "" && i > 0 {
			break
		}
		chunks = append(chunks, Chunk{Text: page, Metadata: ChunkMetadata{Page: i + 1}})
	}
	return chunks
}
