package rfp

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/rfp-shredder/pkg/document"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
)

// PageRange is a hand-corrected page span for one section. EndPage 0 means
// through the end of the document.
type PageRange struct {
	StartPage int    `yaml:"start_page" json:"start_page"`
	EndPage   int    `yaml:"end_page" json:"end_page"`
	Title     string `yaml:"title,omitempty" json:"title,omitempty"`
}

// PageOverrides replaces pattern detection with explicit page ranges.
//
//	sections:
//	  C: {start_page: 5, end_page: 40}
//	  L: {start_page: 41, end_page: 52, title: "Proposal Instructions"}
type PageOverrides struct {
	Sections map[string]PageRange `yaml:"sections" json:"sections"`
}

// LoadPageOverrides reads and validates an overrides YAML file.
func LoadPageOverrides(path string) (*PageOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page overrides: %w", err)
	}
	return ParsePageOverrides(data)
}

// ParsePageOverrides decodes and validates overrides YAML.
func ParsePageOverrides(data []byte) (*PageOverrides, error) {
	var o PageOverrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse page overrides: %w", err)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

// Validate checks letters and page bounds, normalizing letters to upper case.
func (o *PageOverrides) Validate() error {
	if len(o.Sections) == 0 {
		return fmt.Errorf("page overrides: no sections given")
	}
	normalized := make(map[string]PageRange, len(o.Sections))
	for letter, r := range o.Sections {
		l := strings.ToUpper(strings.TrimSpace(letter))
		if _, ok := sectionNames[l]; !ok {
			return fmt.Errorf("page overrides: unknown section %q", letter)
		}
		if r.StartPage < 1 {
			return fmt.Errorf("page overrides: section %s start_page must be >= 1", l)
		}
		if r.EndPage != 0 && r.EndPage < r.StartPage {
			return fmt.Errorf("page overrides: section %s end_page %d before start_page %d", l, r.EndPage, r.StartPage)
		}
		normalized[l] = r
	}
	o.Sections = normalized
	return nil
}

// SectionsFromPageRanges builds sections verbatim from the given page ranges,
// bypassing format detection.
func SectionsFromPageRanges(chunks []document.Chunk, o *PageOverrides) Sections {
	sections := make(Sections, len(o.Sections))
	for letter, r := range o.Sections {
		title := r.Title
		if title == "" {
			title = sectionNames[letter]
		}
		sections[letter] = &models.Section{
			Letter:    letter,
			Title:     title,
			StartPage: r.StartPage,
			EndPage:   r.EndPage,
			Text:      strings.TrimSpace(document.PageRange(chunks, r.StartPage, r.EndPage)),
			Format:    models.DocumentFormatManual,
		}
	}
	return sections
}
