package models

// ClassificationSource records which strategy produced a classification.
type ClassificationSource string

const (
	ClassificationSourceLLM      ClassificationSource = "llm"
	ClassificationSourceFallback ClassificationSource = "fallback"
)

// Entity classes produced by local entity extraction.
const (
	EntityDates     = "dates"
	EntityStandards = "standards"
	EntityAcronyms  = "acronyms"
)

// RequirementClassification is the classifier's verdict for one requirement
// before it is merged into a Requirement record.
type RequirementClassification struct {
	ComplianceType       ComplianceType       `json:"compliance_type"`
	Category             RequirementCategory  `json:"category"`
	Priority             Priority             `json:"priority"`
	RiskLevel            RiskLevel            `json:"risk_level"`
	Keywords             []string             `json:"keywords"`
	ImplicitRequirements []string             `json:"implicit_requirements"`
	ExtractedEntities    map[string][]string  `json:"extracted_entities"`
	Source               ClassificationSource `json:"source"`
}
