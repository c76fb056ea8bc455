package models

// DocumentFormat is the solicitation layout detected in an RFP.
type DocumentFormat string

const (
	DocumentFormatFAR     DocumentFormat = "FAR"
	DocumentFormatCSO     DocumentFormat = "CSO"
	DocumentFormatUnknown DocumentFormat = "UNKNOWN"
	// DocumentFormatManual marks sections built from caller-supplied page ranges.
	DocumentFormatManual DocumentFormat = "MANUAL"
)

// Section letters that carry requirements.
const (
	SectionTechnical    = "C"
	SectionInstructions = "L"
	SectionEvaluation   = "M"
)

// CriticalSections are the sections a shred run extracts requirements from, in order.
var CriticalSections = []string{SectionTechnical, SectionInstructions, SectionEvaluation}

// Section is a transient slice of an RFP keyed by FAR letter (or the virtual
// letter a CSO block was mapped to). It is never persisted.
type Section struct {
	Letter    string         `json:"letter"`
	Title     string         `json:"title"`
	StartPage int            `json:"start_page,omitempty"`
	EndPage   int            `json:"end_page,omitempty"`
	Text      string         `json:"-"`
	Format    DocumentFormat `json:"format"`
}

// SectionValidation reports which critical sections were found.
type SectionValidation struct {
	HasSectionC bool     `json:"has_section_c"`
	HasSectionL bool     `json:"has_section_l"`
	HasSectionM bool     `json:"has_section_m"`
	IsComplete  bool     `json:"is_complete"`
	Missing     []string `json:"missing,omitempty"`
}
