package rfp

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/ekaya-inc/rfp-shredder/pkg/models"
)

// DefaultSentencesPerPage approximates page numbers in sentence mode. It has
// never been calibrated against real documents.
const DefaultSentencesPerPage = 50

const (
	minParagraphWords      = 3
	maxHeadingWords        = 10
	minSentenceWords       = 5
	requirementIDSeqDigits = 3
)

// ExtractedRequirement is a requirement candidate before classification and
// persistence. ID is "{SECTION}-{NNN}", sequential within the section.
type ExtractedRequirement struct {
	ID              string                `json:"id"`
	Section         string                `json:"section"`
	PageNumber      *int                  `json:"page_number,omitempty"`
	ParagraphID     string                `json:"paragraph_id,omitempty"`
	Text            string                `json:"text"`
	ComplianceType  models.ComplianceType `json:"compliance_type"`
	MatchedKeywords []string              `json:"matched_keywords"`
	Depth           int                   `json:"depth,omitempty"`
}

var (
	// paragraph numbers at line start: "3.1", "3.1.2", "## 2.4.1."
	paragraphPattern = regexp.MustCompile(`(?m)^[ \t]*(?:#{1,6}[ \t]*)?(\d+(?:\.\d+)+)\.?[ \t]+`)

	negativeSentencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(?:page|figure|fig\.|table|exhibit|attachment)\s+[\dIVX]+\b`),
		regexp.MustCompile(`^[\s\d.()a-zA-Z]{0,6}$`),
		regexp.MustCompile(`^[\d.\s\-]+$`),
	}

	// abbreviations whose trailing period is not a sentence end
	abbreviations = map[string]bool{
		"u.s.": true, "e.g.": true, "i.e.": true, "etc.": true, "inc.": true,
		"no.": true, "nos.": true, "vs.": true, "mr.": true, "ms.": true, "mrs.": true,
		"dr.": true, "st.": true, "co.": true, "corp.": true, "ltd.": true, "approx.": true,
		"sec.": true, "para.": true, "fig.": true, "u.s.c.": true, "c.f.r.": true, "al.": true,
		"a.m.": true, "p.m.": true,
	}
)

// RequirementExtractor turns section text into requirement candidates.
type RequirementExtractor struct {
	logger           *zap.Logger
	sentencesPerPage int
}

// NewRequirementExtractor creates an extractor. A non-positive
// sentencesPerPage uses DefaultSentencesPerPage.
func NewRequirementExtractor(logger *zap.Logger, sentencesPerPage int) *RequirementExtractor {
	if sentencesPerPage <= 0 {
		sentencesPerPage = DefaultSentencesPerPage
	}
	return &RequirementExtractor{
		logger:           logger.Named("requirement-extractor"),
		sentencesPerPage: sentencesPerPage,
	}
}

// Extract returns the requirements in one section's text. Numbered paragraphs
// are preferred; text without any falls back to sentence splitting.
// startPage 0 means unknown and leaves page numbers unset.
func (e *RequirementExtractor) Extract(text, section string, startPage int) []ExtractedRequirement {
	section = strings.ToUpper(section)

	var reqs []ExtractedRequirement
	mode := "numbered"
	if paragraphs := splitNumberedParagraphs(text); len(paragraphs) > 0 {
		reqs = e.fromParagraphs(paragraphs, section, startPage)
	} else {
		mode = "sentence"
		reqs = e.fromSentences(text, section, startPage)
	}

	for i := range reqs {
		reqs[i].ID = FormatRequirementID(section, i+1)
	}

	e.logger.Debug("Extracted requirements",
		zap.String("section", section),
		zap.String("mode", mode),
		zap.Int("count", len(reqs)))
	return reqs
}

// FormatRequirementID renders "{SECTION}-{NNN}".
func FormatRequirementID(section string, seq int) string {
	return fmt.Sprintf("%s-%0*d", section, requirementIDSeqDigits, seq)
}

type numberedParagraph struct {
	number string
	text   string
}

func splitNumberedParagraphs(text string) []numberedParagraph {
	matches := paragraphPattern.FindAllStringSubmatchIndex(text, -1)
	paragraphs := make([]numberedParagraph, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		paragraphs = append(paragraphs, numberedParagraph{
			number: text[m[2]:m[3]],
			text:   collapseWhitespace(text[m[1]:end]),
		})
	}
	return paragraphs
}

func (e *RequirementExtractor) fromParagraphs(paragraphs []numberedParagraph, section string, startPage int) []ExtractedRequirement {
	var reqs []ExtractedRequirement
	for _, p := range paragraphs {
		words := len(strings.Fields(p.text))
		if words < minParagraphWords {
			continue
		}
		if words < maxHeadingWords && isAllUpper(p.text) {
			continue
		}

		c := ClassifyCompliance(p.text)
		if !c.IsRequirement() {
			continue
		}
		reqs = append(reqs, ExtractedRequirement{
			Section:         section,
			PageNumber:      pagePtr(startPage),
			ParagraphID:     p.number,
			Text:            p.text,
			ComplianceType:  c.ComplianceType,
			MatchedKeywords: c.MatchedKeywords,
			Depth:           strings.Count(p.number, ".") + 1,
		})
	}
	return reqs
}

func (e *RequirementExtractor) fromSentences(text, section string, startPage int) []ExtractedRequirement {
	var reqs []ExtractedRequirement
	for i, sentence := range SplitSentences(text) {
		if len(strings.Fields(sentence)) < minSentenceWords || isNegativeSentence(sentence) {
			continue
		}

		c := ClassifyCompliance(sentence)
		if !c.IsRequirement() {
			continue
		}

		var page *int
		if startPage > 0 {
			page = pagePtr(startPage + i/e.sentencesPerPage)
		}
		reqs = append(reqs, ExtractedRequirement{
			Section:         section,
			PageNumber:      page,
			Text:            sentence,
			ComplianceType:  c.ComplianceType,
			MatchedKeywords: c.MatchedKeywords,
		})
	}
	return reqs
}

// SplitSentences breaks text at '.', '!' or '?' followed by whitespace and an
// upper-case letter. Periods ending a known abbreviation do not split.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) || !unicode.IsUpper(runes[j]) {
			continue
		}
		if r == '.' && endsWithAbbreviation(runes[start:i+1]) {
			continue
		}
		if s := collapseWhitespace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = j
		i = j - 1
	}
	if s := collapseWhitespace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func endsWithAbbreviation(span []rune) bool {
	k := len(span) - 1
	for k > 0 && !unicode.IsSpace(span[k-1]) && span[k-1] != '(' {
		k--
	}
	token := strings.ToLower(string(span[k:]))
	return abbreviations[token]
}

func isNegativeSentence(s string) bool {
	for _, p := range negativeSentencePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func pagePtr(page int) *int {
	if page <= 0 {
		return nil
	}
	return &page
}
