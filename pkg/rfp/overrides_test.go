package rfp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/rfp-shredder/pkg/document"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
)

func TestLoadPageOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sections:
  c: {start_page: 2, end_page: 3}
  L:
    start_page: 4
    title: "Proposal Instructions"
`), 0o644))

	o, err := LoadPageOverrides(path)
	require.NoError(t, err)
	require.Len(t, o.Sections, 2)
	assert.Equal(t, PageRange{StartPage: 2, EndPage: 3}, o.Sections["C"], "letters are upper-cased")
	assert.Equal(t, "Proposal Instructions", o.Sections["L"].Title)
}

func TestParsePageOverrides_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "sections: {}", "no sections"},
		{"unknown letter", "sections: {Z: {start_page: 1}}", "unknown section"},
		{"zero start", "sections: {C: {start_page: 0}}", "start_page"},
		{"end before start", "sections: {C: {start_page: 5, end_page: 2}}", "before start_page"},
		{"bad yaml", "sections: [", "parse page overrides"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePageOverrides([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSectionsFromPageRanges(t *testing.T) {
	chunks := []document.Chunk{
		{Text: "cover page", Metadata: document.ChunkMetadata{Page: 1}},
		{Text: "The contractor shall do A.", Metadata: document.ChunkMetadata{Page: 2}},
		{Text: "The contractor shall do B.", Metadata: document.ChunkMetadata{Page: 3}},
		{Text: "Offerors shall submit C.", Metadata: document.ChunkMetadata{Page: 4}},
	}
	o := &PageOverrides{Sections: map[string]PageRange{
		"C": {StartPage: 2, EndPage: 3},
		"L": {StartPage: 4, Title: "Proposal Instructions"},
	}}

	sections := SectionsFromPageRanges(chunks, o)
	require.Equal(t, []string{"C", "L"}, sections.Letters())

	assert.Equal(t, "The contractor shall do A.\nThe contractor shall do B.", sections["C"].Text)
	assert.Equal(t, SectionName("C"), sections["C"].Title)
	assert.Equal(t, models.DocumentFormatManual, sections["C"].Format)
	assert.Equal(t, "Offerors shall submit C.", sections["L"].Text)
	assert.Equal(t, "Proposal Instructions", sections["L"].Title)
}
