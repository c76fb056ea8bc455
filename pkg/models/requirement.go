package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Compliance Type
// ============================================================================

// ComplianceType is the obligation strength of a requirement.
type ComplianceType string

const (
	ComplianceTypeMandatory   ComplianceType = "mandatory"
	ComplianceTypeRecommended ComplianceType = "recommended"
	ComplianceTypeOptional    ComplianceType = "optional"
	ComplianceTypeUnknown     ComplianceType = "unknown"
)

// ValidComplianceTypes contains all valid compliance type values.
var ValidComplianceTypes = []ComplianceType{
	ComplianceTypeMandatory,
	ComplianceTypeRecommended,
	ComplianceTypeOptional,
	ComplianceTypeUnknown,
}

// IsValidComplianceType checks if the given compliance type is valid.
func IsValidComplianceType(t ComplianceType) bool {
	for _, v := range ValidComplianceTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ============================================================================
// Category, Priority, Risk
// ============================================================================

// RequirementCategory buckets a requirement by the proposal volume that answers it.
type RequirementCategory string

const (
	CategoryTechnical   RequirementCategory = "technical"
	CategoryManagement  RequirementCategory = "management"
	CategoryCost        RequirementCategory = "cost"
	CategoryDeliverable RequirementCategory = "deliverable"
	CategoryCompliance  RequirementCategory = "compliance"
	CategoryUnknown     RequirementCategory = "unknown"
)

// ValidRequirementCategories contains the categories a classifier may assign.
var ValidRequirementCategories = []RequirementCategory{
	CategoryTechnical,
	CategoryManagement,
	CategoryCost,
	CategoryDeliverable,
	CategoryCompliance,
}

// IsValidRequirementCategory reports whether c is an assignable category.
func IsValidRequirementCategory(c RequirementCategory) bool {
	for _, v := range ValidRequirementCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Priority is the response priority of a requirement.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ValidPriorities contains all valid priority values.
var ValidPriorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// IsValidPriority checks if the given priority is valid.
func IsValidPriority(p Priority) bool {
	for _, v := range ValidPriorities {
		if v == p {
			return true
		}
	}
	return false
}

// RiskLevel is a red/yellow/green compliance risk rating.
type RiskLevel string

const (
	RiskRed    RiskLevel = "red"
	RiskYellow RiskLevel = "yellow"
	RiskGreen  RiskLevel = "green"
)

// ValidRiskLevels contains all valid risk level values.
var ValidRiskLevels = []RiskLevel{RiskRed, RiskYellow, RiskGreen}

// IsValidRiskLevel checks if the given risk level is valid.
func IsValidRiskLevel(r RiskLevel) bool {
	for _, v := range ValidRiskLevels {
		if v == r {
			return true
		}
	}
	return false
}

// ============================================================================
// Compliance Status
// ============================================================================

// ComplianceStatus tracks how well the proposal addresses a requirement.
// The shredder only ever writes ComplianceStatusNotStarted.
type ComplianceStatus string

const (
	ComplianceStatusNotStarted         ComplianceStatus = "not_started"
	ComplianceStatusPartiallyCompliant ComplianceStatus = "partially_compliant"
	ComplianceStatusFullyCompliant     ComplianceStatus = "fully_compliant"
	ComplianceStatusNonCompliant       ComplianceStatus = "non_compliant"
)

// ValidComplianceStatuses contains all valid compliance status values.
var ValidComplianceStatuses = []ComplianceStatus{
	ComplianceStatusNotStarted,
	ComplianceStatusPartiallyCompliant,
	ComplianceStatusFullyCompliant,
	ComplianceStatusNonCompliant,
}

// IsValidComplianceStatus checks if the given compliance status is valid.
func IsValidComplianceStatus(s ComplianceStatus) bool {
	for _, v := range ValidComplianceStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ============================================================================
// Requirement
// ============================================================================

// Requirement is one atomic compliance obligation extracted from an RFP.
// ID has the form "{SECTION}-{NNN}" and is unique within its opportunity.
type Requirement struct {
	ID            string    `json:"id"`
	OpportunityID uuid.UUID `json:"opportunity_id"`
	Section       string    `json:"section"`
	PageNumber    *int      `json:"page_number,omitempty"`
	ParagraphID   string    `json:"paragraph_id,omitempty"`
	SourceText    string    `json:"source_text"`

	ComplianceType       ComplianceType       `json:"compliance_type"`
	Category             RequirementCategory  `json:"requirement_category"`
	Priority             Priority             `json:"priority"`
	RiskLevel            RiskLevel            `json:"risk_level"`
	Keywords             []string             `json:"keywords"`
	ExtractedEntities    map[string][]string  `json:"extracted_entities"`
	ImplicitRequirements []string             `json:"implicit_requirements,omitempty"`
	ClassificationSource ClassificationSource `json:"classification_source,omitempty"`

	ComplianceStatus ComplianceStatus `json:"compliance_status"`
	ProposalSection  string           `json:"proposal_section,omitempty"`
	ProposalPage     string           `json:"proposal_page,omitempty"`
	AssigneeID       string           `json:"assignee_id,omitempty"`
	AssigneeType     string           `json:"assignee_type,omitempty"`
	AssigneeName     string           `json:"assignee_name,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	DueDate          *time.Time       `json:"due_date,omitempty"`
	TaskID           *uuid.UUID       `json:"task_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplyClassification copies classifier output onto the requirement.
func (r *Requirement) ApplyClassification(c *RequirementClassification) {
	if c == nil {
		return
	}
	r.ComplianceType = c.ComplianceType
	r.Category = c.Category
	r.Priority = c.Priority
	r.RiskLevel = c.RiskLevel
	r.Keywords = c.Keywords
	r.ExtractedEntities = c.ExtractedEntities
	r.ImplicitRequirements = c.ImplicitRequirements
	r.ClassificationSource = c.Source
}

// RequirementFilter narrows requirement listings. Empty fields match everything.
type RequirementFilter struct {
	Sections         []string
	ComplianceType   ComplianceType
	ComplianceStatus ComplianceStatus
}

// ComplianceUpdate carries the fields a proposal team changes while tracking
// compliance. Nil fields are left untouched.
type ComplianceUpdate struct {
	ComplianceStatus *ComplianceStatus `json:"compliance_status,omitempty"`
	ProposalSection  *string           `json:"proposal_section,omitempty"`
	ProposalPage     *string           `json:"proposal_page,omitempty"`
	AssigneeID       *string           `json:"assignee_id,omitempty"`
	AssigneeType     *string           `json:"assignee_type,omitempty"`
	AssigneeName     *string           `json:"assignee_name,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u *ComplianceUpdate) IsEmpty() bool {
	return u.ComplianceStatus == nil && u.ProposalSection == nil && u.ProposalPage == nil &&
		u.AssigneeID == nil && u.AssigneeType == nil && u.AssigneeName == nil && u.Notes == nil
}
