package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a proposal task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Task metadata keys linking a task back to its requirement.
const (
	TaskMetadataRequirementID  = "requirement_id"
	TaskMetadataSection        = "section"
	TaskMetadataComplianceType = "compliance_type"
	TaskMetadataCategory       = "category"
)

// Task is an actionable unit of proposal work, at most one per requirement.
type Task struct {
	ID            uuid.UUID      `json:"id"`
	OpportunityID uuid.UUID      `json:"opportunity_id"`
	RequirementID string         `json:"requirement_id,omitempty"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Status        TaskStatus     `json:"status"`
	Priority      Priority       `json:"priority"`
	DueDate       *time.Time     `json:"due_date,omitempty"`
	Assignee      string         `json:"assignee,omitempty"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
