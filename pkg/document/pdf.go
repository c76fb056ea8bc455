package document

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"strings"
)

// PdfToTextProcessor extracts PDF text with poppler's pdftotext.
type PdfToTextProcessor struct {
	binary string
}

// NewPdfToTextProcessor creates a processor that runs binary (usually "pdftotext").
func NewPdfToTextProcessor(binary string) *PdfToTextProcessor {
	if binary == "" {
		binary = "pdftotext"
	}
	return &PdfToTextProcessor{binary: binary}
}

// Process implements Processor. Pages are split on the form feeds pdftotext emits.
func (p *PdfToTextProcessor) Process(ctx context.Context, path string) *Result {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return failure("file not found: %s", path)
	} else if err != nil {
		return failure("stat %s: %v", path, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.binary, "-layout", "-enc", "UTF-8", path, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return failure("%s not found on PATH; install poppler-utils", p.binary)
		}
		if ctx.Err() != nil {
			return failure("%s timed out on %s: %v", p.binary, path, ctx.Err())
		}
		return failure("%s failed on %s: %v (%s)", p.binary, path, err, strings.TrimSpace(stderr.String()))
	}

	chunks := splitPages(stdout.String())
	if strings.TrimSpace(stdout.String()) == "" {
		return failure("%s has no extractable text (scanned image?)", path)
	}
	return &Result{Status: StatusSuccess, Chunks: chunks}
}
