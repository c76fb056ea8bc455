package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/rfp-shredder/pkg/database"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
	"github.com/ekaya-inc/rfp-shredder/pkg/repositories"
)

// MatrixColumns is the compliance matrix header, in column order.
var MatrixColumns = []string{
	"Req ID",
	"Section",
	"Page",
	"Paragraph",
	"Requirement Text",
	"Compliance Type",
	"Category",
	"Priority",
	"Risk",
	"Compliance Status",
	"Proposal Section",
	"Proposal Page",
	"Assigned To",
	"Assignee Type",
	"Assignee Name",
	"Keywords",
	"Notes",
	"Due Date",
}

const matrixDateLayout = "2006-01-02"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// MatrixFilename returns "{rfp_number}_compliance_matrix.csv" with path
// separators and other unsafe characters replaced.
func MatrixFilename(rfpNumber string) string {
	name := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(rfpNumber), "_")
	if name == "" {
		name = "rfp"
	}
	return name + "_compliance_matrix.csv"
}

// ComplianceMatrix renders requirements as a CSV compliance matrix.
type ComplianceMatrix interface {
	// Write renders reqs to w. Callers pass requirements ordered by section then id.
	Write(w io.Writer, reqs []*models.Requirement) error
	// WriteFile writes the matrix into outputDir and returns the file path.
	WriteFile(outputDir, rfpNumber string, reqs []*models.Requirement) (string, error)
	// Export regenerates the matrix for a stored opportunity.
	Export(ctx context.Context, opportunityID uuid.UUID, outputDir string) (string, error)
}

type complianceMatrix struct {
	db          database.TxManager
	opportunity repositories.OpportunityRepository
	requirement repositories.RequirementRepository
	logger      *zap.Logger
}

// NewComplianceMatrix creates a matrix writer.
func NewComplianceMatrix(
	db database.TxManager,
	opportunityRepo repositories.OpportunityRepository,
	requirementRepo repositories.RequirementRepository,
	logger *zap.Logger,
) ComplianceMatrix {
	return &complianceMatrix{
		db:          db,
		opportunity: opportunityRepo,
		requirement: requirementRepo,
		logger:      logger.Named("compliance-matrix"),
	}
}

var _ ComplianceMatrix = (*complianceMatrix)(nil)

func (m *complianceMatrix) Write(w io.Writer, reqs []*models.Requirement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MatrixColumns); err != nil {
		return fmt.Errorf("write matrix header: %w", err)
	}
	for _, req := range reqs {
		if err := cw.Write(matrixRow(req)); err != nil {
			return fmt.Errorf("write matrix row %s: %w", req.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (m *complianceMatrix) WriteFile(outputDir, rfpNumber string, reqs []*models.Requirement) (string, error) {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(outputDir, MatrixFilename(rfpNumber))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create matrix file: %w", err)
	}

	if err := m.Write(f, reqs); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close matrix file: %w", err)
	}

	m.logger.Info("Wrote compliance matrix",
		zap.String("path", path),
		zap.Int("rows", len(reqs)))
	return path, nil
}

func (m *complianceMatrix) Export(ctx context.Context, opportunityID uuid.UUID, outputDir string) (string, error) {
	var (
		opp  *models.Opportunity
		reqs []*models.Requirement
	)
	err := m.db.WithConn(ctx, func(ctx context.Context) error {
		var err error
		if opp, err = m.opportunity.GetByID(ctx, opportunityID); err != nil {
			return err
		}
		reqs, err = m.requirement.ListByOpportunity(ctx, opportunityID, models.RequirementFilter{})
		if err != nil {
			return fmt.Errorf("list requirements: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	rfpNumber := opp.RFPNumber()
	if rfpNumber == "" {
		rfpNumber = opp.ID.String()
	}
	return m.WriteFile(outputDir, rfpNumber, reqs)
}

func matrixRow(req *models.Requirement) []string {
	page := ""
	if req.PageNumber != nil {
		page = strconv.Itoa(*req.PageNumber)
	}
	due := ""
	if req.DueDate != nil {
		due = req.DueDate.Format(matrixDateLayout)
	}
	return []string{
		req.ID,
		req.Section,
		page,
		req.ParagraphID,
		req.SourceText,
		string(req.ComplianceType),
		string(req.Category),
		string(req.Priority),
		string(req.RiskLevel),
		string(req.ComplianceStatus),
		req.ProposalSection,
		req.ProposalPage,
		req.AssigneeID,
		req.AssigneeType,
		req.AssigneeName,
		strings.Join(req.Keywords, ", "),
		req.Notes,
		due,
	}
}
