package document

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"unicode/utf8"
)

// TextProcessor reads plain-text or markdown exports of an RFP.
type TextProcessor struct{}

// NewTextProcessor creates a TextProcessor.
func NewTextProcessor() *TextProcessor {
	return &TextProcessor{}
}

// Process implements Processor.
func (p *TextProcessor) Process(ctx context.Context, path string) *Result {
	if err := ctx.Err(); err != nil {
		return failure("%s: %v", path, err)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return failure("file not found: %s", path)
	}
	if err != nil {
		return failure("read %s: %v", path, err)
	}
	if !utf8.Valid(data) {
		return failure("%s is not valid UTF-8 text", path)
	}

	return &Result{Status: StatusSuccess, Chunks: splitPages(string(data))}
}
