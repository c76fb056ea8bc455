package rfp

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/ekaya-inc/rfp-shredder/pkg/document"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
)

// DefaultCSOMarkerThreshold is the marker count at which a document is read as a CSO.
const DefaultCSOMarkerThreshold = 3

// sectionNames is the Uniform Contract Format section table. Header matches
// for letters outside it are discarded.
var sectionNames = map[string]string{
	"A": "Solicitation/Contract Form",
	"B": "Supplies or Services and Prices/Costs",
	"C": "Description/Specifications/Statement of Work",
	"D": "Packaging and Marking",
	"E": "Inspection and Acceptance",
	"F": "Deliveries or Performance",
	"G": "Contract Administration Data",
	"H": "Special Contract Requirements",
	"I": "Contract Clauses",
	"J": "List of Attachments",
	"K": "Representations, Certifications, and Other Statements of Offerors",
	"L": "Instructions, Conditions, and Notices to Offerors",
	"M": "Evaluation Factors for Award",
}

// SectionName returns the standard title for a section letter.
func SectionName(letter string) string {
	return sectionNames[strings.ToUpper(letter)]
}

var romanToLetter = map[string]string{
	"I": "A", "II": "B", "III": "C", "IV": "D", "V": "E", "VI": "F", "VII": "G",
	"VIII": "H", "IX": "I", "X": "J", "XI": "K", "XII": "L", "XIII": "M",
}

type headerPattern struct {
	re    *regexp.Regexp
	roman bool
	// bare "X. TITLE" lines are common sub-headings, so the title must
	// share a word with the standard section name
	nameMatch bool
}

// farHeaderPatterns are tried in order against each trimmed line. Group 1 is
// the letter (or roman numeral), group 2 the remainder of the line.
var farHeaderPatterns = []headerPattern{
	{re: regexp.MustCompile(`(?i)^SECTION\s+([A-M])\b(.*)$`)},
	{re: regexp.MustCompile(`(?i)^SEC\.\s*([A-M])\b(.*)$`)},
	// PART I..IV are UCF parts grouping several sections, not sections
	{re: regexp.MustCompile(`(?i)^PART\s+([A-HJ-M])\b(.*)$`)},
	{re: regexp.MustCompile(`(?i)^SECTION\s+(XIII|XII|XI|X|IX|VIII|VII|VI|V|IV|III|II)\b(.*)$`), roman: true},
	{re: regexp.MustCompile(`^([A-M])\.\s+([A-Z][A-Z0-9 ,&/()'\-]{2,})$`), nameMatch: true},
	{re: regexp.MustCompile(`^([A-M])-1\b(.*)$`)},
}

var (
	csoPhrasePattern = regexp.MustCompile(`(?i)commercial\s+solutions?\s+opening|\bCSO\s+(?:number|no\.|#)`)

	// "2.1 Proposal Content" or "## 2.1 Proposal Content"
	csoHeadingPattern = regexp.MustCompile(`(?m)^[ \t]*(?:#{1,6}[ \t]*)?(\d+\.\d+)\.?[ \t]+([A-Z][^\n]*?)[ \t]*$`)

	csoEvaluationKeywords  = []string{"evaluation", "evaluate", "criteria", "criterion", "award", "selection", "scoring", "rating"}
	csoInstructionKeywords = []string{"submission", "submit", "proposal", "content", "instruction", "format", "preparation", "volume"}
)

const (
	maxCSOHeadingWords  = 12
	maxHeaderTitleWords = 16
)

// Sections maps a section letter to its detected section.
type Sections map[string]*models.Section

// Letters returns the detected letters in alphabetical order.
func (s Sections) Letters() []string {
	letters := make([]string, 0, len(s))
	for l := range s {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	return letters
}

// SectionParser splits raw RFP text into lettered sections.
type SectionParser struct {
	logger             *zap.Logger
	csoMarkerThreshold int
}

// NewSectionParser creates a parser. A non-positive threshold uses DefaultCSOMarkerThreshold.
func NewSectionParser(logger *zap.Logger, csoMarkerThreshold int) *SectionParser {
	if csoMarkerThreshold <= 0 {
		csoMarkerThreshold = DefaultCSOMarkerThreshold
	}
	return &SectionParser{
		logger:             logger.Named("section-parser"),
		csoMarkerThreshold: csoMarkerThreshold,
	}
}

// DetectFormat classifies text as CSO when it carries at least the configured
// number of CSO markers and FAR headers do not outnumber them, as FAR when any
// FAR header is present, and UNKNOWN otherwise. Numbered "N.N Title" headings
// only count as CSO markers when no FAR header is present, since FAR sections
// routinely carry numbered subheadings of their own.
func (p *SectionParser) DetectFormat(text string) models.DocumentFormat {
	far := 0
	forEachLine(text, func(line string, _ int) {
		if _, _, ok := matchFARHeader(line); ok {
			far++
		}
	})

	cso := len(csoPhrasePattern.FindAllStringIndex(text, -1))
	if far == 0 {
		cso += len(findCSOHeadings(text))
	}

	p.logger.Debug("Format markers",
		zap.Int("cso_markers", cso),
		zap.Int("far_markers", far))

	switch {
	case cso >= p.csoMarkerThreshold && far < cso:
		return models.DocumentFormatCSO
	case far > 0:
		return models.DocumentFormatFAR
	default:
		return models.DocumentFormatUnknown
	}
}

// ExtractSections detects the format and splits text accordingly. pages may
// be nil, in which case page bounds are left zero. An UNKNOWN document yields
// an empty map.
func (p *SectionParser) ExtractSections(text string, pages *document.PageMap) Sections {
	format := p.DetectFormat(text)

	var sections Sections
	switch format {
	case models.DocumentFormatFAR:
		sections = p.extractFAR(text, pages)
	case models.DocumentFormatCSO:
		sections = p.extractCSO(text, pages)
	default:
		p.logger.Warn("Unrecognized document format; no sections extracted")
		return Sections{}
	}

	p.logger.Info("Sections extracted",
		zap.String("format", string(format)),
		zap.Strings("letters", sections.Letters()))
	return sections
}

type sectionSpan struct {
	letter      string
	title       string
	headerStart int
	bodyStart   int
	end         int
}

func (p *SectionParser) extractFAR(text string, pages *document.PageMap) Sections {
	var spans []sectionSpan
	var current *sectionSpan

	forEachLine(text, func(line string, offset int) {
		letter, title, ok := matchFARHeader(line)
		if !ok || (current != nil && current.letter == letter) {
			return
		}
		if current != nil {
			current.end = offset
			spans = append(spans, *current)
		}
		current = &sectionSpan{
			letter:      letter,
			title:       title,
			headerStart: offset,
			bodyStart:   min(offset+len(line)+1, len(text)),
		}
	})
	if current != nil {
		current.end = len(text)
		spans = append(spans, *current)
	}

	sections := make(Sections)
	for _, s := range spans {
		body := strings.TrimSpace(text[s.bodyStart:max(s.bodyStart, s.end)])
		// a table of contents repeats every header; the real section has the longer body
		if existing, ok := sections[s.letter]; ok && len(existing.Text) >= len(body) {
			continue
		}
		sections[s.letter] = &models.Section{
			Letter:    s.letter,
			Title:     s.title,
			StartPage: pages.Page(s.headerStart),
			EndPage:   pages.Page(max(s.end-1, s.headerStart)),
			Text:      body,
			Format:    models.DocumentFormatFAR,
		}
	}
	return sections
}

// matchFARHeader reports the section letter and title of a header line.
func matchFARHeader(line string) (letter, title string, ok bool) {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimSpace(strings.TrimRight(strings.TrimLeft(trimmed, "#*"), "*"))
	if trimmed == "" {
		return "", "", false
	}

	for _, hp := range farHeaderPatterns {
		m := hp.re.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		letter = strings.ToUpper(m[1])
		if hp.roman {
			letter = romanToLetter[letter]
		}
		name, known := sectionNames[letter]
		if !known {
			continue
		}
		rest := strings.TrimSpace(m[2])
		if rest != "" && unicode.IsLower([]rune(rest)[0]) {
			// "Section L of this solicitation ..." is prose, not a header
			continue
		}
		title = strings.Trim(rest, " \t-–—:.")
		if len(strings.Fields(title)) > maxHeaderTitleWords {
			continue
		}
		if hp.nameMatch && !sharesWord(title, name) {
			continue
		}
		if title == "" {
			title = name
		}
		return letter, title, true
	}
	return "", "", false
}

// sharesWord reports whether a and b have a word of four or more letters in common.
func sharesWord(a, b string) bool {
	split := func(s string) []string {
		return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return !unicode.IsLetter(r) })
	}
	words := make(map[string]bool)
	for _, w := range split(b) {
		if len(w) >= 4 {
			words[w] = true
		}
	}
	for _, w := range split(a) {
		if words[w] {
			return true
		}
	}
	return false
}

type csoHeading struct {
	start int
	title string
}

func findCSOHeadings(text string) []csoHeading {
	var headings []csoHeading
	for _, m := range csoHeadingPattern.FindAllStringSubmatchIndex(text, -1) {
		title := text[m[4]:m[5]]
		if strings.HasSuffix(title, ".") || len(strings.Fields(title)) > maxCSOHeadingWords {
			continue
		}
		headings = append(headings, csoHeading{start: m[0], title: text[m[2]:m[3]] + " " + title})
	}
	return headings
}

// csoBucket maps a CSO block title onto a virtual FAR letter.
func csoBucket(title string) string {
	lower := strings.ToLower(title)
	for _, kw := range csoEvaluationKeywords {
		if strings.Contains(lower, kw) {
			return models.SectionEvaluation
		}
	}
	for _, kw := range csoInstructionKeywords {
		if strings.Contains(lower, kw) {
			return models.SectionInstructions
		}
	}
	return models.SectionTechnical
}

func (p *SectionParser) extractCSO(text string, pages *document.PageMap) Sections {
	headings := findCSOHeadings(text)

	type bucket struct {
		titles []string
		texts  []string
		start  int
		end    int
	}
	buckets := make(map[string]*bucket)

	for i, h := range headings {
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1].start
		}
		letter := csoBucket(h.title)
		b, ok := buckets[letter]
		if !ok {
			b = &bucket{start: h.start}
			buckets[letter] = b
		}
		b.titles = append(b.titles, h.title)
		b.texts = append(b.texts, strings.TrimSpace(text[h.start:end]))
		b.end = end
	}

	sections := make(Sections, len(buckets))
	for letter, b := range buckets {
		sections[letter] = &models.Section{
			Letter:    letter,
			Title:     strings.Join(b.titles, "; "),
			StartPage: pages.Page(b.start),
			EndPage:   pages.Page(max(b.end-1, b.start)),
			Text:      strings.Join(b.texts, "\n\n"),
			Format:    models.DocumentFormatCSO,
		}
	}
	return sections
}

// ValidateSections reports which critical sections are present. Missing
// sections are a warning, never an error.
func ValidateSections(sections Sections) models.SectionValidation {
	v := models.SectionValidation{}
	for _, letter := range models.CriticalSections {
		s, ok := sections[letter]
		present := ok && s != nil
		switch letter {
		case models.SectionTechnical:
			v.HasSectionC = present
		case models.SectionInstructions:
			v.HasSectionL = present
		case models.SectionEvaluation:
			v.HasSectionM = present
		}
		if !present {
			v.Missing = append(v.Missing, letter)
		}
	}
	v.IsComplete = len(v.Missing) == 0
	return v
}

// forEachLine calls fn with every line of text and its byte offset.
func forEachLine(text string, fn func(line string, offset int)) {
	offset := 0
	for {
		idx := strings.IndexByte(text[offset:], '\n')
		if idx < 0 {
			fn(text[offset:], offset)
			return
		}
		fn(text[offset:offset+idx], offset)
		offset += idx + 1
	}
}
