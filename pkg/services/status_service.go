package services

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/rfp-shredder/pkg/database"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
	"github.com/ekaya-inc/rfp-shredder/pkg/repositories"
)

// OpportunityStatusService reports compliance and task progress for an opportunity.
type OpportunityStatusService interface {
	// GetOpportunityStatus returns apperrors.ErrNotFound for unknown ids.
	GetOpportunityStatus(ctx context.Context, opportunityID uuid.UUID) (*models.OpportunityStatusReport, error)
}

type opportunityStatusService struct {
	db          database.TxManager
	opportunity repositories.OpportunityRepository
	requirement repositories.RequirementRepository
	task        repositories.TaskRepository
	logger      *zap.Logger
}

// NewOpportunityStatusService creates a status service.
func NewOpportunityStatusService(
	db database.TxManager,
	opportunityRepo repositories.OpportunityRepository,
	requirementRepo repositories.RequirementRepository,
	taskRepo repositories.TaskRepository,
	logger *zap.Logger,
) OpportunityStatusService {
	return &opportunityStatusService{
		db:          db,
		opportunity: opportunityRepo,
		requirement: requirementRepo,
		task:        taskRepo,
		logger:      logger.Named("opportunity-status"),
	}
}

var _ OpportunityStatusService = (*opportunityStatusService)(nil)

func (s *opportunityStatusService) GetOpportunityStatus(ctx context.Context, opportunityID uuid.UUID) (*models.OpportunityStatusReport, error) {
	var report *models.OpportunityStatusReport

	err := s.db.WithConn(ctx, func(ctx context.Context) error {
		opp, err := s.opportunity.GetByID(ctx, opportunityID)
		if err != nil {
			return err
		}

		reqCounts, err := s.requirement.CountByOpportunity(ctx, opportunityID)
		if err != nil {
			return fmt.Errorf("count requirements: %w", err)
		}

		taskCounts, err := s.task.CountByOpportunity(ctx, opportunityID)
		if err != nil {
			return fmt.Errorf("count tasks: %w", err)
		}

		report = &models.OpportunityStatusReport{
			Opportunity: opp,
			Requirements: models.RequirementStatusView{
				Total:          reqCounts.Total,
				Mandatory:      reqCounts.Mandatory,
				Compliant:      reqCounts.Compliant,
				Partial:        reqCounts.Partial,
				NonCompliant:   reqCounts.NonCompliant,
				NotStarted:     reqCounts.NotStarted,
				CompletionRate: CompletionRate(reqCounts.Compliant, reqCounts.Total),
			},
			Tasks: models.TaskStatusView{
				Total:      taskCounts.Total,
				Completed:  taskCounts.Completed,
				InProgress: taskCounts.InProgress,
				Pending:    taskCounts.Pending,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Opportunity status",
		zap.String("opportunity_id", opportunityID.String()),
		zap.Int("requirements", report.Requirements.Total),
		zap.Float64("completion_rate", report.Requirements.CompletionRate))

	return report, nil
}

// CompletionRate is compliant/total as a percentage rounded to one decimal.
// It is 0 when total is 0.
func CompletionRate(compliant, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(compliant)/float64(total)*1000) / 10
}
