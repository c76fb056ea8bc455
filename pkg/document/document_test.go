package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/rfp-shredder/pkg/apperrors"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestTextProcessor_SplitsPagesOnFormFeed(t *testing.T) {
	path := writeFile(t, "rfp.txt", "SECTION C\nfirst page\fsecond page\f")

	res := NewTextProcessor().Process(context.Background(), path)
	require.Equal(t, StatusSuccess, res.Status, res.Error)
	require.NoError(t, res.Err())
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, 1, res.Chunks[0].Metadata.Page)
	assert.Equal(t, "second page", res.Chunks[1].Text)
	assert.Equal(t, 2, res.Chunks[1].Metadata.Page)
}

func TestTextProcessor_MissingFile(t *testing.T) {
	res := NewTextProcessor().Process(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Error, "file not found")
	assert.ErrorIs(t, res.Err(), apperrors.ErrDocumentProcessing)
}

func TestTextProcessor_RejectsBinary(t *testing.T) {
	path := writeFile(t, "rfp.txt", string([]byte{0xff, 0xfe, 0x00}))
	res := NewTextProcessor().Process(context.Background(), path)
	assert.Equal(t, StatusError, res.Status)
}

func TestRegistry_Dispatch(t *testing.T) {
	reg := NewRegistry("pdftotext")

	res := reg.Process(context.Background(), writeFile(t, "rfp.MD", "## 1.1 Scope"))
	assert.Equal(t, StatusSuccess, res.Status)

	res = reg.Process(context.Background(), writeFile(t, "rfp.docx", "x"))
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Error, "unsupported document type")
}

func TestPdfToTextProcessor_MissingBinary(t *testing.T) {
	path := writeFile(t, "rfp.pdf", "%PDF-1.4")
	res := NewPdfToTextProcessor("definitely-not-a-real-pdftotext").Process(context.Background(), path)
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Error, "not found")
}

func TestPdfToTextProcessor_MissingFile(t *testing.T) {
	res := NewPdfToTextProcessor("").Process(context.Background(), "/no/such/file.pdf")
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Error, "file not found")
}

func TestJoinChunks_PageMap(t *testing.T) {
	chunks := []Chunk{
		{Text: "page one", Metadata: ChunkMetadata{Page: 1}},
		{Text: "page two", Metadata: ChunkMetadata{Page: 2}},
		{Text: "page three", Metadata: ChunkMetadata{Page: 3}},
	}

	text, pages := JoinChunks(chunks)
	assert.Equal(t, "page one\npage two\npage three", text)
	assert.Equal(t, 1, pages.Page(0))
	assert.Equal(t, 1, pages.Page(8))
	assert.Equal(t, 2, pages.Page(9))
	assert.Equal(t, 3, pages.Page(len(text)-1))
}

func TestJoinChunks_UnknownPages(t *testing.T) {
	_, pages := JoinChunks([]Chunk{{Text: "no metadata"}})
	assert.Equal(t, 0, pages.Page(3))

	var nilMap *PageMap
	assert.Equal(t, 0, nilMap.Page(3))
}

func TestPageRange(t *testing.T) {
	chunks := []Chunk{
		{Text: "a", Metadata: ChunkMetadata{Page: 1}},
		{Text: "b", Metadata: ChunkMetadata{Page: 2}},
		{Text: "c", Metadata: ChunkMetadata{Page: 3}},
	}
	assert.Equal(t, "b\nc", PageRange(chunks, 2, 3))
	assert.Equal(t, "b\nc", PageRange(chunks, 2, 0))
	assert.Equal(t, "a", PageRange(chunks, 1, 1))
	assert.Equal(t, "", PageRange(chunks, 5, 9))
}
