//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/rfp-shredder/pkg/apperrors"
	"github.com/ekaya-inc/rfp-shredder/pkg/database"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
	"github.com/ekaya-inc/rfp-shredder/pkg/testhelpers"
)

// repoTestContext holds one freshly created opportunity per test.
type repoTestContext struct {
	t     *testing.T
	ctx   context.Context
	opps  OpportunityRepository
	reqs  RequirementRepository
	tasks TaskRepository
	opp   *models.Opportunity
}

func setupRepoTest(t *testing.T) *repoTestContext {
	tdb := testhelpers.GetTestDB(t)
	tc := &repoTestContext{
		t:     t,
		ctx:   tdb.Context(t),
		opps:  NewOpportunityRepository(),
		reqs:  NewRequirementRepository(),
		tasks: NewTaskRepository(),
	}

	tc.opp = &models.Opportunity{
		Title:   "Cloud Hosting Services",
		DueDate: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Agency:  "GSA",
		Metadata: map[string]any{
			models.MetadataRFPNumber: "RFP-" + uuid.NewString()[:8],
			models.MetadataSections:  []string{"C", "L", "M"},
		},
	}
	require.NoError(t, tc.opps.Create(tc.ctx, tc.opp))

	t.Cleanup(func() {
		q, err := database.MustQuerier(tc.ctx)
		if err == nil {
			_, _ = q.Exec(context.Background(), "DELETE FROM opportunities WHERE id = $1", tc.opp.ID)
		}
	})
	return tc
}

func (tc *repoTestContext) requirement(id, section string, ct models.ComplianceType) *models.Requirement {
	page := 3
	return &models.Requirement{
		ID:             id,
		OpportunityID:  tc.opp.ID,
		Section:        section,
		PageNumber:     &page,
		ParagraphID:    "3.1." + id[len(id)-1:],
		SourceText:     "The contractor shall provide " + id + ".",
		ComplianceType: ct,
		Category:       models.CategoryTechnical,
		Priority:       models.PriorityHigh,
		RiskLevel:      models.RiskYellow,
		Keywords:       []string{"contractor", "provide"},
		ExtractedEntities: map[string][]string{
			models.EntityDates:     {},
			models.EntityStandards: {"NIST 800-53"},
			models.EntityAcronyms:  {},
		},
		ClassificationSource: models.ClassificationSourceFallback,
	}
}

func TestOpportunityRepository_CreateAndGet(t *testing.T) {
	tc := setupRepoTest(t)

	got, err := tc.opps.GetByID(tc.ctx, tc.opp.ID)
	require.NoError(t, err)

	assert.Equal(t, "Cloud Hosting Services", got.Title)
	assert.Equal(t, models.OpportunityStatusActive, got.Status)
	assert.Equal(t, "GSA", got.Agency)
	assert.Empty(t, got.NAICSCode)
	assert.Equal(t, tc.opp.RFPNumber(), got.RFPNumber())
	assert.Equal(t, []any{"C", "L", "M"}, got.Metadata[models.MetadataSections])
	assert.True(t, got.DueDate.Equal(tc.opp.DueDate))
}

func TestOpportunityRepository_GetByID_NotFound(t *testing.T) {
	tc := setupRepoTest(t)

	_, err := tc.opps.GetByID(tc.ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRequirementRepository_CreateBatchAndList(t *testing.T) {
	tc := setupRepoTest(t)

	reqs := []*models.Requirement{
		tc.requirement("L-001", "L", models.ComplianceTypeMandatory),
		tc.requirement("C-002", "C", models.ComplianceTypeRecommended),
		tc.requirement("C-001", "C", models.ComplianceTypeMandatory),
	}
	require.NoError(t, tc.reqs.CreateBatch(tc.ctx, reqs))

	all, err := tc.reqs.ListByOpportunity(tc.ctx, tc.opp.ID, models.RequirementFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	var ids []string
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"C-001", "C-002", "L-001"}, ids)

	first := all[0]
	assert.Equal(t, models.ComplianceStatusNotStarted, first.ComplianceStatus)
	assert.Equal(t, models.ClassificationSourceFallback, first.ClassificationSource)
	assert.Equal(t, []string{"NIST 800-53"}, first.ExtractedEntities[models.EntityStandards])
	assert.Equal(t, []string{"contractor", "provide"}, first.Keywords)
	require.NotNil(t, first.PageNumber)
	assert.Equal(t, 3, *first.PageNumber)
	assert.Nil(t, first.TaskID)

	mandatoryC, err := tc.reqs.ListByOpportunity(tc.ctx, tc.opp.ID, models.RequirementFilter{
		Sections:       []string{"c"},
		ComplianceType: models.ComplianceTypeMandatory,
	})
	require.NoError(t, err)
	require.Len(t, mandatoryC, 1)
	assert.Equal(t, "C-001", mandatoryC[0].ID)
}

func TestRequirementRepository_CreateBatch_DuplicateIDFails(t *testing.T) {
	tc := setupRepoTest(t)

	err := tc.reqs.CreateBatch(tc.ctx, []*models.Requirement{
		tc.requirement("C-001", "C", models.ComplianceTypeMandatory),
		tc.requirement("C-001", "C", models.ComplianceTypeMandatory),
	})
	assert.Error(t, err)
}

func TestRequirementRepository_UpdateCompliance(t *testing.T) {
	tc := setupRepoTest(t)
	require.NoError(t, tc.reqs.CreateBatch(tc.ctx, []*models.Requirement{
		tc.requirement("C-001", "C", models.ComplianceTypeMandatory),
	}))

	status := models.ComplianceStatusFullyCompliant
	section := "Vol I, 2.3"
	updated, err := tc.reqs.UpdateCompliance(tc.ctx, tc.opp.ID, "C-001", &models.ComplianceUpdate{
		ComplianceStatus: &status,
		ProposalSection:  &section,
	})
	require.NoError(t, err)
	assert.Equal(t, status, updated.ComplianceStatus)
	assert.Equal(t, section, updated.ProposalSection)
	assert.Empty(t, updated.Notes)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	notes := "covered by the security plan"
	updated, err = tc.reqs.UpdateCompliance(tc.ctx, tc.opp.ID, "C-001", &models.ComplianceUpdate{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, status, updated.ComplianceStatus, "untouched fields keep their value")
	assert.Equal(t, notes, updated.Notes)

	_, err = tc.reqs.UpdateCompliance(tc.ctx, tc.opp.ID, "C-999", &models.ComplianceUpdate{Notes: &notes})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRequirementRepository_CountByOpportunity(t *testing.T) {
	tc := setupRepoTest(t)

	empty, err := tc.reqs.CountByOpportunity(tc.ctx, tc.opp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequirementCounts{}, *empty)

	require.NoError(t, tc.reqs.CreateBatch(tc.ctx, []*models.Requirement{
		tc.requirement("C-001", "C", models.ComplianceTypeMandatory),
		tc.requirement("C-002", "C", models.ComplianceTypeOptional),
	}))
	status := models.ComplianceStatusFullyCompliant
	_, err = tc.reqs.UpdateCompliance(tc.ctx, tc.opp.ID, "C-001", &models.ComplianceUpdate{ComplianceStatus: &status})
	require.NoError(t, err)

	counts, err := tc.reqs.CountByOpportunity(tc.ctx, tc.opp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Total)
	assert.Equal(t, 1, counts.Mandatory)
	assert.Equal(t, 1, counts.Compliant)
	assert.Equal(t, 1, counts.NotStarted)
}

func TestTaskRepository_CreateBatchLinksRequirements(t *testing.T) {
	tc := setupRepoTest(t)
	require.NoError(t, tc.reqs.CreateBatch(tc.ctx, []*models.Requirement{
		tc.requirement("C-001", "C", models.ComplianceTypeMandatory),
	}))

	due := tc.opp.DueDate.AddDate(0, 0, -7)
	task := &models.Task{
		OpportunityID: tc.opp.ID,
		RequirementID: "C-001",
		Title:         "Address C-001",
		Priority:      models.PriorityHigh,
		DueDate:       &due,
		Assignee:      "agent-technical",
		Metadata:      map[string]any{models.TaskMetadataRequirementID: "C-001"},
	}
	require.NoError(t, tc.tasks.CreateBatch(tc.ctx, []*models.Task{task}))
	require.NotEqual(t, uuid.Nil, task.ID)

	require.NoError(t, tc.reqs.SetTaskIDs(tc.ctx, tc.opp.ID, map[string]uuid.UUID{"C-001": task.ID}))

	req, err := tc.reqs.GetByID(tc.ctx, tc.opp.ID, "C-001")
	require.NoError(t, err)
	require.NotNil(t, req.TaskID)
	assert.Equal(t, task.ID, *req.TaskID)

	tasks, err := tc.tasks.ListByOpportunity(tc.ctx, tc.opp.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "C-001", tasks[0].RequirementID)
	assert.Equal(t, models.TaskStatusPending, tasks[0].Status)
	assert.Equal(t, "agent-technical", tasks[0].Assignee)

	counts, err := tc.tasks.CountByOpportunity(tc.ctx, tc.opp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCounts{Total: 1, Pending: 1}, *counts)
}

func TestTaskRepository_RejectsUnknownRequirement(t *testing.T) {
	tc := setupRepoTest(t)

	err := tc.tasks.CreateBatch(tc.ctx, []*models.Task{{
		OpportunityID: tc.opp.ID,
		RequirementID: "Z-404",
		Title:         "orphan",
		Priority:      models.PriorityLow,
	}})
	assert.Error(t, err)
}
