package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/rfp-shredder/pkg/apperrors"
	"github.com/ekaya-inc/rfp-shredder/pkg/database"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
)

// RequirementRepository provides data access for requirements.
// Requirement ids are only unique within an opportunity, so every lookup is
// keyed by (opportunityID, id).
type RequirementRepository interface {
	CreateBatch(ctx context.Context, reqs []*models.Requirement) error
	GetByID(ctx context.Context, opportunityID uuid.UUID, id string) (*models.Requirement, error)
	ListByOpportunity(ctx context.Context, opportunityID uuid.UUID, filter models.RequirementFilter) ([]*models.Requirement, error)
	UpdateCompliance(ctx context.Context, opportunityID uuid.UUID, id string, update *models.ComplianceUpdate) (*models.Requirement, error)
	SetTaskIDs(ctx context.Context, opportunityID uuid.UUID, taskIDs map[string]uuid.UUID) error
	CountByOpportunity(ctx context.Context, opportunityID uuid.UUID) (*models.RequirementCounts, error)
}

type requirementRepository struct{}

// NewRequirementRepository creates a new RequirementRepository.
func NewRequirementRepository() RequirementRepository {
	return &requirementRepository{}
}

var _ RequirementRepository = (*requirementRepository)(nil)

const requirementColumns = `
	id, opportunity_id, section, page_number, paragraph_id, source_text,
	compliance_type, requirement_category, priority, risk_level, compliance_status,
	proposal_section, proposal_page, assignee_id, assignee_type, assignee_name,
	keywords, extracted_entities, implicit_requirements, classification_source,
	notes, due_date, task_id, created_at, updated_at`

// CreateBatch inserts reqs in one round trip. Run it inside a transaction so a
// failing row leaves nothing behind.
func (r *requirementRepository) CreateBatch(ctx context.Context, reqs []*models.Requirement) error {
	if len(reqs) == 0 {
		return nil
	}

	q, err := database.MustQuerier(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO requirements (
			id, opportunity_id, section, page_number, paragraph_id, source_text,
			compliance_type, requirement_category, priority, risk_level, compliance_status,
			proposal_section, proposal_page, assignee_id, assignee_type, assignee_name,
			keywords, extracted_entities, implicit_requirements, classification_source,
			notes, due_date, task_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25
		)`

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, req := range reqs {
		if req.ComplianceStatus == "" {
			req.ComplianceStatus = models.ComplianceStatusNotStarted
		}
		req.CreatedAt = now
		req.UpdatedAt = now

		batch.Queue(query,
			req.ID,
			req.OpportunityID,
			req.Section,
			req.PageNumber,
			nullString(req.ParagraphID),
			req.SourceText,
			string(req.ComplianceType),
			string(req.Category),
			string(req.Priority),
			string(req.RiskLevel),
			string(req.ComplianceStatus),
			nullString(req.ProposalSection),
			nullString(req.ProposalPage),
			nullString(req.AssigneeID),
			nullString(req.AssigneeType),
			nullString(req.AssigneeName),
			jsonList(req.Keywords),
			jsonObject(req.ExtractedEntities),
			jsonList(req.ImplicitRequirements),
			nullString(string(req.ClassificationSource)),
			nullString(req.Notes),
			req.DueDate,
			req.TaskID,
			req.CreatedAt,
			req.UpdatedAt,
		)
	}

	return execBatch(q.SendBatch(ctx, batch), len(reqs), "create requirement")
}

func (r *requirementRepository) GetByID(ctx context.Context, opportunityID uuid.UUID, id string) (*models.Requirement, error) {
	q, err := database.MustQuerier(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + requirementColumns + ` FROM requirements WHERE opportunity_id = $1 AND id = $2`

	req, err := scanRequirement(q.QueryRow(ctx, query, opportunityID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

// ListByOpportunity returns matching requirements ordered by section, then id.
func (r *requirementRepository) ListByOpportunity(ctx context.Context, opportunityID uuid.UUID, filter models.RequirementFilter) ([]*models.Requirement, error) {
	q, err := database.MustQuerier(ctx)
	if err != nil {
		return nil, err
	}

	conditions := []string{"opportunity_id = $1"}
	args := []any{opportunityID}

	if len(filter.Sections) > 0 {
		sections := make([]string, len(filter.Sections))
		for i, s := range filter.Sections {
			sections[i] = strings.ToUpper(s)
		}
		args = append(args, sections)
		conditions = append(conditions, fmt.Sprintf("section = ANY($%d)", len(args)))
	}
	if filter.ComplianceType != "" {
		args = append(args, string(filter.ComplianceType))
		conditions = append(conditions, fmt.Sprintf("compliance_type = $%d", len(args)))
	}
	if filter.ComplianceStatus != "" {
		args = append(args, string(filter.ComplianceStatus))
		conditions = append(conditions, fmt.Sprintf("compliance_status = $%d", len(args)))
	}

	query := `SELECT ` + requirementColumns + ` FROM requirements WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY section, id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requirements: %w", err)
	}
	defer rows.Close()

	var reqs []*models.Requirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requirements: %w", err)
	}

	return reqs, nil
}

// UpdateCompliance applies the non-nil fields of update and bumps updated_at.
func (r *requirementRepository) UpdateCompliance(ctx context.Context, opportunityID uuid.UUID, id string, update *models.ComplianceUpdate) (*models.Requirement, error) {
	q, err := database.MustQuerier(ctx)
	if err != nil {
		return nil, err
	}

	var status *string
	if update.ComplianceStatus != nil {
		s := string(*update.ComplianceStatus)
		status = &s
	}

	query := `
		UPDATE requirements
		SET compliance_status = COALESCE($3, compliance_status),
		    proposal_section  = COALESCE($4, proposal_section),
		    proposal_page     = COALESCE($5, proposal_page),
		    assignee_id       = COALESCE($6, assignee_id),
		    assignee_type     = COALESCE($7, assignee_type),
		    assignee_name     = COALESCE($8, assignee_name),
		    notes             = COALESCE($9, notes),
		    updated_at        = now()
		WHERE opportunity_id = $1 AND id = $2
		RETURNING ` + requirementColumns

	req, err := scanRequirement(q.QueryRow(ctx, query,
		opportunityID,
		id,
		status,
		update.ProposalSection,
		update.ProposalPage,
		update.AssigneeID,
		update.AssigneeType,
		update.AssigneeName,
		update.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update requirement compliance: %w", err)
	}

	return req, nil
}

// SetTaskIDs links requirements to the tasks created for them.
func (r *requirementRepository) SetTaskIDs(ctx context.Context, opportunityID uuid.UUID, taskIDs map[string]uuid.UUID) error {
	if len(taskIDs) == 0 {
		return nil
	}

	q, err := database.MustQuerier(ctx)
	if err != nil {
		return err
	}

	query := `UPDATE requirements SET task_id = $3, updated_at = now() WHERE opportunity_id = $1 AND id = $2`

	batch := &pgx.Batch{}
	for reqID, taskID := range taskIDs {
		batch.Queue(query, opportunityID, reqID, taskID)
	}

	return execBatch(q.SendBatch(ctx, batch), len(taskIDs), "link requirement to task")
}

func (r *requirementRepository) CountByOpportunity(ctx context.Context, opportunityID uuid.UUID) (*models.RequirementCounts, error) {
	q, err := database.MustQuerier(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE compliance_type = 'mandatory'),
			count(*) FILTER (WHERE compliance_status = 'fully_compliant'),
			count(*) FILTER (WHERE compliance_status = 'partially_compliant'),
			count(*) FILTER (WHERE compliance_status = 'non_compliant'),
			count(*) FILTER (WHERE compliance_status = 'not_started')
		FROM requirements
		WHERE opportunity_id = $1`

	var c models.RequirementCounts
	err = q.QueryRow(ctx, query, opportunityID).Scan(
		&c.Total,
		&c.Mandatory,
		&c.Compliant,
		&c.Partial,
		&c.NonCompliant,
		&c.NotStarted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count requirements: %w", err)
	}

	return &c, nil
}

func scanRequirement(row pgx.Row) (*models.Requirement, error) {
	var req models.Requirement
	var complianceType, category, priority, risk, status string
	var paragraphID, proposalSection, proposalPage *string
	var assigneeID, assigneeType, assigneeName, source, notes *string
	var keywords, entities, implicit []byte

	err := row.Scan(
		&req.ID,
		&req.OpportunityID,
		&req.Section,
		&req.PageNumber,
		&paragraphID,
		&req.SourceText,
		&complianceType,
		&category,
		&priority,
		&risk,
		&status,
		&proposalSection,
		&proposalPage,
		&assigneeID,
		&assigneeType,
		&assigneeName,
		&keywords,
		&entities,
		&implicit,
		&source,
		&notes,
		&req.DueDate,
		&req.TaskID,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan requirement: %w", err)
	}

	req.ComplianceType = models.ComplianceType(complianceType)
	req.Category = models.RequirementCategory(category)
	req.Priority = models.Priority(priority)
	req.RiskLevel = models.RiskLevel(risk)
	req.ComplianceStatus = models.ComplianceStatus(status)
	req.ClassificationSource = models.ClassificationSource(derefString(source))
	req.ParagraphID = derefString(paragraphID)
	req.ProposalSection = derefString(proposalSection)
	req.ProposalPage = derefString(proposalPage)
	req.AssigneeID = derefString(assigneeID)
	req.AssigneeType = derefString(assigneeType)
	req.AssigneeName = derefString(assigneeName)
	req.Notes = derefString(notes)

	if err := jsonUnmarshal(keywords, &req.Keywords, "keywords"); err != nil {
		return nil, err
	}
	if err := jsonUnmarshal(entities, &req.ExtractedEntities, "extracted_entities"); err != nil {
		return nil, err
	}
	if err := jsonUnmarshal(implicit, &req.ImplicitRequirements, "implicit_requirements"); err != nil {
		return nil, err
	}

	return &req, nil
}
