package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/rfp-shredder/pkg/apperrors"
	"github.com/ekaya-inc/rfp-shredder/pkg/database"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
	"github.com/ekaya-inc/rfp-shredder/pkg/repositories"
)

// ComplianceService is the proposal team's view of stored requirements:
// listing them and recording how the proposal answers each one.
type ComplianceService interface {
	ListRequirements(ctx context.Context, opportunityID uuid.UUID, filter models.RequirementFilter) ([]*models.Requirement, error)
	UpdateRequirement(ctx context.Context, opportunityID uuid.UUID, requirementID string, update *models.ComplianceUpdate) (*models.Requirement, error)
}

type complianceService struct {
	db          database.TxManager
	opportunity repositories.OpportunityRepository
	requirement repositories.RequirementRepository
	logger      *zap.Logger
}

// NewComplianceService creates a ComplianceService.
func NewComplianceService(
	db database.TxManager,
	opportunityRepo repositories.OpportunityRepository,
	requirementRepo repositories.RequirementRepository,
	logger *zap.Logger,
) ComplianceService {
	return &complianceService{
		db:          db,
		opportunity: opportunityRepo,
		requirement: requirementRepo,
		logger:      logger.Named("compliance"),
	}
}

var _ ComplianceService = (*complianceService)(nil)

func (s *complianceService) ListRequirements(ctx context.Context, opportunityID uuid.UUID, filter models.RequirementFilter) ([]*models.Requirement, error) {
	if filter.ComplianceType != "" && !models.IsValidComplianceType(filter.ComplianceType) {
		return nil, fmt.Errorf("%w: compliance_type %q", apperrors.ErrInvalidInput, filter.ComplianceType)
	}
	if filter.ComplianceStatus != "" && !models.IsValidComplianceStatus(filter.ComplianceStatus) {
		return nil, fmt.Errorf("%w: compliance_status %q", apperrors.ErrInvalidInput, filter.ComplianceStatus)
	}

	var reqs []*models.Requirement
	err := s.db.WithConn(ctx, func(ctx context.Context) error {
		// distinguishes an unknown opportunity from one with no matches
		if _, err := s.opportunity.GetByID(ctx, opportunityID); err != nil {
			return err
		}
		var err error
		reqs, err = s.requirement.ListByOpportunity(ctx, opportunityID, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *complianceService) UpdateRequirement(ctx context.Context, opportunityID uuid.UUID, requirementID string, update *models.ComplianceUpdate) (*models.Requirement, error) {
	if update == nil || update.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", apperrors.ErrInvalidInput)
	}
	if update.ComplianceStatus != nil && !models.IsValidComplianceStatus(*update.ComplianceStatus) {
		return nil, fmt.Errorf("%w: compliance_status %q", apperrors.ErrInvalidInput, *update.ComplianceStatus)
	}

	requirementID = strings.ToUpper(strings.TrimSpace(requirementID))

	var updated *models.Requirement
	err := s.db.InTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.requirement.UpdateCompliance(ctx, opportunityID, requirementID, update)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Updated requirement compliance",
		zap.String("opportunity_id", opportunityID.String()),
		zap.String("requirement_id", requirementID),
		zap.String("compliance_status", string(updated.ComplianceStatus)))

	return updated, nil
}
