// Package models contains domain types for rfp-shredder.
package models

import (
	"time"

	"github.com/google/uuid"
)

// OpportunityStatus tracks where a proposal effort stands.
type OpportunityStatus string

const (
	OpportunityStatusActive    OpportunityStatus = "active"
	OpportunityStatusSubmitted OpportunityStatus = "submitted"
	OpportunityStatusAwarded   OpportunityStatus = "awarded"
	OpportunityStatusClosed    OpportunityStatus = "closed"
	OpportunityStatusCancelled OpportunityStatus = "cancelled"
)

// Metadata keys written by the shredder into Opportunity.Metadata.
const (
	MetadataRFPNumber         = "rfp_number"
	MetadataSourceFile        = "source_file"
	MetadataSections          = "sections"
	MetadataTotalRequirements = "total_requirements"
	MetadataDocumentFormat    = "document_format"
)

// Opportunity is one RFP solicitation under analysis.
type Opportunity struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      OpportunityStatus `json:"status"`
	DueDate     time.Time         `json:"due_date"`
	Agency      string            `json:"agency,omitempty"`
	NAICSCode   string            `json:"naics_code,omitempty"`
	SetAside    string            `json:"set_aside,omitempty"`
	Metadata    map[string]any    `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// RFPNumber returns the solicitation number recorded at shred time.
func (o *Opportunity) RFPNumber() string {
	if o.Metadata == nil {
		return ""
	}
	if v, ok := o.Metadata[MetadataRFPNumber].(string); ok {
		return v
	}
	return ""
}
