package document

import (
	"context"
	"path/filepath"
	"strings"
)

// Registry dispatches to a Processor by file extension.
type Registry struct {
	byExt map[string]Processor
}

var _ Processor = (*Registry)(nil)

// NewRegistry returns a registry serving .txt/.md with TextProcessor and
// .pdf with pdftotext.
func NewRegistry(pdftotextPath string) *Registry {
	r := &Registry{byExt: make(map[string]Processor)}
	text := NewTextProcessor()
	r.Register(".txt", text)
	r.Register(".md", text)
	r.Register(".pdf", NewPdfToTextProcessor(pdftotextPath))
	return r
}

// Register maps ext (with leading dot, any case) to p.
func (r *Registry) Register(ext string, p Processor) {
	r.byExt[strings.ToLower(ext)] = p
}

// Process implements Processor.
func (r *Registry) Process(ctx context.Context, path string) *Result {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.byExt[ext]
	if !ok {
		return failure("unsupported document type %q: %s", ext, path)
	}
	return p.Process(ctx, path)
}
