package models

// OpportunityStatusReport is the read-only progress view over one opportunity.
type OpportunityStatusReport struct {
	Opportunity  *Opportunity          `json:"opportunity"`
	Requirements RequirementStatusView `json:"requirements"`
	Tasks        TaskStatusView        `json:"tasks"`
}

// RequirementStatusView summarizes compliance progress.
// CompletionRate is a percentage rounded to one decimal, 0 when Total is 0.
type RequirementStatusView struct {
	Total          int     `json:"total"`
	Mandatory      int     `json:"mandatory"`
	Compliant      int     `json:"compliant"`
	Partial        int     `json:"partial"`
	NonCompliant   int     `json:"non_compliant"`
	NotStarted     int     `json:"not_started"`
	CompletionRate float64 `json:"completion_rate"`
}

// TaskStatusView summarizes task progress.
type TaskStatusView struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
}

// RequirementCounts are aggregate counts used to build a status report.
type RequirementCounts struct {
	Total        int
	Mandatory    int
	Compliant    int
	Partial      int
	NonCompliant int
	NotStarted   int
}

// TaskCounts are aggregate task counts used to build a status report.
type TaskCounts struct {
	Total      int
	Completed  int
	InProgress int
	Pending    int
}
