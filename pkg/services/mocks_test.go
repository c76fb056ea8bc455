package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/rfp-shredder/pkg/apperrors"
	"github.com/ekaya-inc/rfp-shredder/pkg/database"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
	"github.com/ekaya-inc/rfp-shredder/pkg/repositories"
)

// fakeTxManager runs fn directly and counts calls.
type fakeTxManager struct {
	mu    sync.Mutex
	txs   int
	conns int
}

var _ database.TxManager = (*fakeTxManager)(nil)

func (f *fakeTxManager) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	f.txs++
	f.mu.Unlock()
	return fn(ctx)
}

func (f *fakeTxManager) WithConn(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	f.conns++
	f.mu.Unlock()
	return fn(ctx)
}

// memoryStore backs all three fake repositories.
type memoryStore struct {
	mu            sync.Mutex
	opportunities map[uuid.UUID]*models.Opportunity
	requirements  map[uuid.UUID][]*models.Requirement
	tasks         map[uuid.UUID][]*models.Task

	createOpportunityErr error
	createRequirementErr error
	createTaskErr        error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		opportunities: make(map[uuid.UUID]*models.Opportunity),
		requirements:  make(map[uuid.UUID][]*models.Requirement),
		tasks:         make(map[uuid.UUID][]*models.Task),
	}
}

type fakeOpportunityRepo struct{ s *memoryStore }

var _ repositories.OpportunityRepository = (*fakeOpportunityRepo)(nil)

func (r *fakeOpportunityRepo) Create(ctx context.Context, opp *models.Opportunity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createOpportunityErr != nil {
		return r.s.createOpportunityErr
	}
	if opp.ID == uuid.Nil {
		opp.ID = uuid.New()
	}
	opp.CreatedAt = time.Now().UTC()
	opp.UpdatedAt = opp.CreatedAt
	r.s.opportunities[opp.ID] = opp
	return nil
}

func (r *fakeOpportunityRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	opp, ok := r.s.opportunities[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return opp, nil
}

func (r *fakeOpportunityRepo) List(ctx context.Context) ([]*models.Opportunity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Opportunity, 0, len(r.s.opportunities))
	for _, o := range r.s.opportunities {
		out = append(out, o)
	}
	return out, nil
}

type fakeRequirementRepo struct{ s *memoryStore }

var _ repositories.RequirementRepository = (*fakeRequirementRepo)(nil)

func (r *fakeRequirementRepo) CreateBatch(ctx context.Context, reqs []*models.Requirement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createRequirementErr != nil {
		return r.s.createRequirementErr
	}
	for _, req := range reqs {
		r.s.requirements[req.OpportunityID] = append(r.s.requirements[req.OpportunityID], req)
	}
	return nil
}

func (r *fakeRequirementRepo) find(oppID uuid.UUID, id string) *models.Requirement {
	for _, req := range r.s.requirements[oppID] {
		if req.ID == id {
			return req
		}
	}
	return nil
}

func (r *fakeRequirementRepo) GetByID(ctx context.Context, oppID uuid.UUID, id string) (*models.Requirement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if req := r.find(oppID, id); req != nil {
		return req, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeRequirementRepo) ListByOpportunity(ctx context.Context, oppID uuid.UUID, filter models.RequirementFilter) ([]*models.Requirement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sections := make(map[string]bool)
	for _, s := range filter.Sections {
		sections[strings.ToUpper(s)] = true
	}
	var out []*models.Requirement
	for _, req := range r.s.requirements[oppID] {
		if len(sections) > 0 && !sections[req.Section] {
			continue
		}
		if filter.ComplianceType != "" && req.ComplianceType != filter.ComplianceType {
			continue
		}
		if filter.ComplianceStatus != "" && req.ComplianceStatus != filter.ComplianceStatus {
			continue
		}
		out = append(out, req)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Section != out[j].Section {
			return out[i].Section < out[j].Section
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeRequirementRepo) UpdateCompliance(ctx context.Context, oppID uuid.UUID, id string, u *models.ComplianceUpdate) (*models.Requirement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req := r.find(oppID, id)
	if req == nil {
		return nil, apperrors.ErrNotFound
	}
	if u.ComplianceStatus != nil {
		req.ComplianceStatus = *u.ComplianceStatus
	}
	if u.ProposalSection != nil {
		req.ProposalSection = *u.ProposalSection
	}
	if u.ProposalPage != nil {
		req.ProposalPage = *u.ProposalPage
	}
	if u.AssigneeID != nil {
		req.AssigneeID = *u.AssigneeID
	}
	if u.AssigneeType != nil {
		req.AssigneeType = *u.AssigneeType
	}
	if u.AssigneeName != nil {
		req.AssigneeName = *u.AssigneeName
	}
	if u.Notes != nil {
		req.Notes = *u.Notes
	}
	req.UpdatedAt = time.Now().UTC()
	return req, nil
}

func (r *fakeRequirementRepo) SetTaskIDs(ctx context.Context, oppID uuid.UUID, taskIDs map[string]uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for reqID, taskID := range taskIDs {
		req := r.find(oppID, reqID)
		if req == nil {
			return apperrors.ErrNotFound
		}
		id := taskID
		req.TaskID = &id
	}
	return nil
}

func (r *fakeRequirementRepo) CountByOpportunity(ctx context.Context, oppID uuid.UUID) (*models.RequirementCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := &models.RequirementCounts{}
	for _, req := range r.s.requirements[oppID] {
		c.Total++
		if req.ComplianceType == models.ComplianceTypeMandatory {
			c.Mandatory++
		}
		switch req.ComplianceStatus {
		case models.ComplianceStatusFullyCompliant:
			c.Compliant++
		case models.ComplianceStatusPartiallyCompliant:
			c.Partial++
		case models.ComplianceStatusNonCompliant:
			c.NonCompliant++
		default:
			c.NotStarted++
		}
	}
	return c, nil
}

type fakeTaskRepo struct{ s *memoryStore }

var _ repositories.TaskRepository = (*fakeTaskRepo)(nil)

func (r *fakeTaskRepo) CreateBatch(ctx context.Context, tasks []*models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createTaskErr != nil {
		return r.s.createTaskErr
	}
	for _, t := range tasks {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		r.s.tasks[t.OpportunityID] = append(r.s.tasks[t.OpportunityID], t)
	}
	return nil
}

func (r *fakeTaskRepo) ListByOpportunity(ctx context.Context, oppID uuid.UUID) ([]*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.tasks[oppID], nil
}

func (r *fakeTaskRepo) CountByOpportunity(ctx context.Context, oppID uuid.UUID) (*models.TaskCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := &models.TaskCounts{}
	for _, t := range r.s.tasks[oppID] {
		c.Total++
		switch t.Status {
		case models.TaskStatusCompleted:
			c.Completed++
		case models.TaskStatusInProgress:
			c.InProgress++
		default:
			c.Pending++
		}
	}
	return c, nil
}
