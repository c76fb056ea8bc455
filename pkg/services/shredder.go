package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/rfp-shredder/pkg/apperrors"
	"github.com/ekaya-inc/rfp-shredder/pkg/database"
	"github.com/ekaya-inc/rfp-shredder/pkg/document"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
	"github.com/ekaya-inc/rfp-shredder/pkg/repositories"
	"github.com/ekaya-inc/rfp-shredder/pkg/rfp"
)

// DefaultTaskDueBufferDays is how many days before the opportunity due date
// generated tasks fall due.
const DefaultTaskDueBufferDays = 7

const (
	ShredStatusSuccess = "success"
	ShredStatusError   = "error"

	// AssigneeTypeAgent marks requirements routed to an automated agent.
	AssigneeTypeAgent = "agent"

	maxTaskTitleRunes = 80
)

// categoryAgents routes auto-assigned tasks. Categories without an entry stay unassigned.
var categoryAgents = map[models.RequirementCategory]string{
	models.CategoryTechnical:  "agent-technical",
	models.CategoryManagement: "agent-management",
	models.CategoryCost:       "agent-cost",
}

// ShredRequest describes one RFP to shred.
type ShredRequest struct {
	FilePath        string
	RFPNumber       string
	OpportunityName string
	DueDate         time.Time
	Agency          string
	NAICSCode       string
	SetAside        string
	CreateTasks     bool
	AutoAssign      bool
	// OutputDir receives the compliance matrix. Empty uses the configured default.
	OutputDir string
	// PageOverrides replaces section detection when set.
	PageOverrides *rfp.PageOverrides
}

// ShredResult summarizes a shred run. On failure only Status and Error are set.
type ShredResult struct {
	Status             string                   `json:"status"`
	Error              string                   `json:"error,omitempty"`
	OpportunityID      string                   `json:"opportunity_id,omitempty"`
	TotalRequirements  int                      `json:"total_requirements"`
	Mandatory          int                      `json:"mandatory"`
	Recommended        int                      `json:"recommended"`
	Optional           int                      `json:"optional"`
	LLMClassified      int                      `json:"llm_classified"`
	FallbackClassified int                      `json:"fallback_classified"`
	TasksCreated       int                      `json:"tasks_created"`
	MatrixFile         string                   `json:"matrix_file,omitempty"`
	DocumentFormat     models.DocumentFormat    `json:"document_format,omitempty"`
	Sections           []*models.Section        `json:"sections,omitempty"`
	Validation         models.SectionValidation `json:"validation"`

	err error
}

// Err returns the failure as an error, or nil for a successful run.
func (r *ShredResult) Err() error {
	if r.Status == ShredStatusSuccess {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return fmt.Errorf("shred failed: %s", r.Error)
}

// NewShredFailure builds an error result carrying err.
func NewShredFailure(err error) *ShredResult {
	return &ShredResult{Status: ShredStatusError, Error: err.Error(), err: err}
}

// Extraction is the parse-only outcome of a document: its sections and the
// deduplicated requirement candidates from C, L and M.
type Extraction struct {
	Format       models.DocumentFormat
	Sections     rfp.Sections
	Validation   models.SectionValidation
	Requirements []rfp.ExtractedRequirement
}

// ShredderConfig carries the tunable parts of a shred run.
type ShredderConfig struct {
	CSOMarkerThreshold int
	SentencesPerPage   int
	TaskDueBufferDays  int
	OutputDir          string
}

// RFPShredder turns an RFP document into a tracked opportunity with
// classified requirements, optional tasks and a compliance matrix.
type RFPShredder interface {
	// Shred never returns nil. Failures are reported through ShredResult.Status.
	Shred(ctx context.Context, req *ShredRequest) *ShredResult
	// Extract runs document processing, section detection and requirement
	// extraction without classifying or persisting anything.
	Extract(ctx context.Context, filePath string, overrides *rfp.PageOverrides) (*Extraction, error)
}

type rfpShredder struct {
	db          database.TxManager
	documents   document.Processor
	parser      *rfp.SectionParser
	extractor   *rfp.RequirementExtractor
	classifier  RequirementClassifier
	matrix      ComplianceMatrix
	opportunity repositories.OpportunityRepository
	requirement repositories.RequirementRepository
	task        repositories.TaskRepository
	config      ShredderConfig
	logger      *zap.Logger
}

// NewRFPShredder wires a shredder from its collaborators.
func NewRFPShredder(
	db database.TxManager,
	documents document.Processor,
	classifier RequirementClassifier,
	matrix ComplianceMatrix,
	opportunityRepo repositories.OpportunityRepository,
	requirementRepo repositories.RequirementRepository,
	taskRepo repositories.TaskRepository,
	cfg ShredderConfig,
	logger *zap.Logger,
) RFPShredder {
	if cfg.TaskDueBufferDays < 0 {
		cfg.TaskDueBufferDays = DefaultTaskDueBufferDays
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	return &rfpShredder{
		db:          db,
		documents:   documents,
		parser:      rfp.NewSectionParser(logger, cfg.CSOMarkerThreshold),
		extractor:   rfp.NewRequirementExtractor(logger, cfg.SentencesPerPage),
		classifier:  classifier,
		matrix:      matrix,
		opportunity: opportunityRepo,
		requirement: requirementRepo,
		task:        taskRepo,
		config:      cfg,
		logger:      logger.Named("rfp-shredder"),
	}
}

var _ RFPShredder = (*rfpShredder)(nil)

func (s *rfpShredder) Extract(ctx context.Context, filePath string, overrides *rfp.PageOverrides) (*Extraction, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrDocumentProcessing, filePath, err)
	}

	s.logger.Info("Processing document", zap.String("file", filePath))
	doc := s.documents.Process(ctx, filePath)
	if err := doc.Err(); err != nil {
		return nil, err
	}
	s.logger.Info("Document processed", zap.Int("chunks", len(doc.Chunks)))

	out := &Extraction{}
	if overrides != nil {
		out.Format = models.DocumentFormatManual
		out.Sections = rfp.SectionsFromPageRanges(doc.Chunks, overrides)
	} else {
		text, pages := document.JoinChunks(doc.Chunks)
		out.Format = s.parser.DetectFormat(text)
		out.Sections = s.parser.ExtractSections(text, pages)
	}

	out.Validation = rfp.ValidateSections(out.Sections)
	if !out.Validation.IsComplete {
		s.logger.Warn("RFP is missing critical sections; continuing with what was found",
			zap.Strings("missing", out.Validation.Missing),
			zap.Strings("found", out.Sections.Letters()))
	}

	var reqs []rfp.ExtractedRequirement
	for _, letter := range models.CriticalSections {
		sec, ok := out.Sections[letter]
		if !ok {
			continue
		}
		found := s.extractor.Extract(sec.Text, letter, sec.StartPage)
		s.logger.Info("Extracted section requirements",
			zap.String("section", letter),
			zap.Int("requirements", len(found)))
		reqs = append(reqs, found...)
	}

	out.Requirements = rfp.Deduplicate(reqs)
	if dropped := len(reqs) - len(out.Requirements); dropped > 0 {
		s.logger.Info("Removed duplicate requirements", zap.Int("duplicates", dropped))
	}
	return out, nil
}

func (s *rfpShredder) Shred(ctx context.Context, req *ShredRequest) *ShredResult {
	if err := validateShredRequest(req); err != nil {
		return NewShredFailure(err)
	}

	start := time.Now()
	logger := s.logger.With(zap.String("rfp_number", req.RFPNumber))
	logger.Info("Shredding RFP", zap.String("file", req.FilePath))

	// Steps 1-2: sections and requirement candidates
	extraction, err := s.Extract(ctx, req.FilePath, req.PageOverrides)
	if err != nil {
		logger.Error("Document extraction failed", zap.Error(err))
		return NewShredFailure(err)
	}

	// Step 3: classification never fails
	logger.Info("Classifying requirements", zap.Int("requirements", len(extraction.Requirements)))
	classifications := s.classifier.ClassifyBatch(ctx, extraction.Requirements)
	logger.Info("Classification complete")

	// Step 4: opportunity
	opp := &models.Opportunity{
		Title:       req.OpportunityName,
		Description: fmt.Sprintf("RFP %s shredded from %s", req.RFPNumber, req.FilePath),
		Status:      models.OpportunityStatusActive,
		DueDate:     req.DueDate,
		Agency:      req.Agency,
		NAICSCode:   req.NAICSCode,
		SetAside:    req.SetAside,
		Metadata: map[string]any{
			models.MetadataRFPNumber:         req.RFPNumber,
			models.MetadataSourceFile:        req.FilePath,
			models.MetadataSections:          extraction.Sections.Letters(),
			models.MetadataTotalRequirements: len(extraction.Requirements),
			models.MetadataDocumentFormat:    string(extraction.Format),
		},
	}
	if err := s.db.InTx(ctx, func(ctx context.Context) error {
		return s.opportunity.Create(ctx, opp)
	}); err != nil {
		logger.Error("Failed to create opportunity", zap.Error(err))
		return NewShredFailure(fmt.Errorf("create opportunity: %w", err))
	}
	logger = logger.With(zap.String("opportunity_id", opp.ID.String()))
	logger.Info("Created opportunity")

	// Step 5: requirements
	requirements := buildRequirements(opp.ID, extraction.Requirements, classifications)
	var taskDue *time.Time
	if req.CreateTasks {
		due := req.DueDate.AddDate(0, 0, -s.config.TaskDueBufferDays)
		taskDue = &due
		for _, r := range requirements {
			r.DueDate = taskDue
			if req.AutoAssign {
				if agent, ok := categoryAgents[r.Category]; ok {
					r.AssigneeID = agent
					r.AssigneeType = AssigneeTypeAgent
				}
			}
		}
	}
	if err := s.db.InTx(ctx, func(ctx context.Context) error {
		return s.requirement.CreateBatch(ctx, requirements)
	}); err != nil {
		logger.Error("Failed to persist requirements", zap.Error(err))
		return NewShredFailure(fmt.Errorf("persist requirements: %w", err))
	}
	logger.Info("Persisted requirements", zap.Int("requirements", len(requirements)))

	// Step 6: tasks
	tasksCreated := 0
	if req.CreateTasks && len(requirements) > 0 {
		tasks := buildTasks(opp.ID, requirements, taskDue, req.AutoAssign)
		if err := s.db.InTx(ctx, func(ctx context.Context) error {
			if err := s.task.CreateBatch(ctx, tasks); err != nil {
				return err
			}
			links := make(map[string]uuid.UUID, len(tasks))
			for _, t := range tasks {
				links[t.RequirementID] = t.ID
			}
			return s.requirement.SetTaskIDs(ctx, opp.ID, links)
		}); err != nil {
			logger.Error("Failed to create tasks", zap.Error(err))
			return NewShredFailure(fmt.Errorf("create tasks: %w", err))
		}
		for i, t := range tasks {
			id := t.ID
			requirements[i].TaskID = &id
		}
		tasksCreated = len(tasks)
		logger.Info("Created tasks", zap.Int("tasks", tasksCreated))
	}

	// Step 7: compliance matrix
	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = s.config.OutputDir
	}
	sortRequirements(requirements)
	matrixFile, err := s.matrix.WriteFile(outputDir, req.RFPNumber, requirements)
	if err != nil {
		logger.Error("Failed to write compliance matrix", zap.Error(err))
		return NewShredFailure(fmt.Errorf("write compliance matrix: %w", err))
	}

	// Step 8: summary
	result := &ShredResult{
		Status:            ShredStatusSuccess,
		OpportunityID:     opp.ID.String(),
		TotalRequirements: len(requirements),
		TasksCreated:      tasksCreated,
		MatrixFile:        matrixFile,
		DocumentFormat:    extraction.Format,
		Validation:        extraction.Validation,
	}
	for _, r := range requirements {
		switch r.ComplianceType {
		case models.ComplianceTypeMandatory:
			result.Mandatory++
		case models.ComplianceTypeRecommended:
			result.Recommended++
		case models.ComplianceTypeOptional:
			result.Optional++
		}
		if r.ClassificationSource == models.ClassificationSourceLLM {
			result.LLMClassified++
		} else {
			result.FallbackClassified++
		}
	}
	for _, letter := range extraction.Sections.Letters() {
		result.Sections = append(result.Sections, extraction.Sections[letter])
	}

	logger.Info("RFP shredded",
		zap.Int("requirements", result.TotalRequirements),
		zap.Int("mandatory", result.Mandatory),
		zap.Int("llm_classified", result.LLMClassified),
		zap.Int("fallback_classified", result.FallbackClassified),
		zap.Int("tasks", result.TasksCreated),
		zap.String("matrix_file", matrixFile),
		zap.Duration("elapsed", time.Since(start)))

	return result
}

// dueDateLayouts are the accepted due date formats, most specific first.
var dueDateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02", "01/02/2006"}

// ParseDueDate parses an RFP due date. The wall clock of the input is kept
// and relabeled as UTC, so the calendar date stored matches the date written
// in the input's own offset. Date-only values are midnight UTC.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: due date %q must be YYYY-MM-DD or RFC 3339", apperrors.ErrInvalidInput, s)
}

func validateShredRequest(req *ShredRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", apperrors.ErrInvalidInput)
	}
	var missing []string
	if strings.TrimSpace(req.FilePath) == "" {
		missing = append(missing, "file_path")
	}
	if strings.TrimSpace(req.RFPNumber) == "" {
		missing = append(missing, "rfp_number")
	}
	if strings.TrimSpace(req.OpportunityName) == "" {
		missing = append(missing, "opportunity_name")
	}
	if req.DueDate.IsZero() {
		missing = append(missing, "due_date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", apperrors.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// buildRequirements zips extracted candidates with their classifications by position.
func buildRequirements(opportunityID uuid.UUID, extracted []rfp.ExtractedRequirement, classifications []*models.RequirementClassification) []*models.Requirement {
	out := make([]*models.Requirement, len(extracted))
	for i, e := range extracted {
		r := &models.Requirement{
			ID:               e.ID,
			OpportunityID:    opportunityID,
			Section:          e.Section,
			PageNumber:       e.PageNumber,
			ParagraphID:      e.ParagraphID,
			SourceText:       e.Text,
			ComplianceType:   e.ComplianceType,
			ComplianceStatus: models.ComplianceStatusNotStarted,
		}
		if i < len(classifications) {
			r.ApplyClassification(classifications[i])
		}
		out[i] = r
	}
	return out
}

func buildTasks(opportunityID uuid.UUID, reqs []*models.Requirement, due *time.Time, autoAssign bool) []*models.Task {
	tasks := make([]*models.Task, len(reqs))
	for i, r := range reqs {
		t := &models.Task{
			ID:            uuid.New(),
			OpportunityID: opportunityID,
			RequirementID: r.ID,
			Title:         fmt.Sprintf("Address %s: %s", r.ID, truncate(r.SourceText, maxTaskTitleRunes)),
			Description:   r.SourceText,
			Status:        models.TaskStatusPending,
			Priority:      r.Priority,
			DueDate:       due,
			Metadata: map[string]any{
				models.TaskMetadataRequirementID:  r.ID,
				models.TaskMetadataSection:        r.Section,
				models.TaskMetadataComplianceType: string(r.ComplianceType),
				models.TaskMetadataCategory:       string(r.Category),
			},
		}
		if autoAssign {
			t.Assignee = categoryAgents[r.Category]
		}
		tasks[i] = t
	}
	return tasks
}

// sortRequirements orders by section then by the numeric id sequence, so
// C-1000 follows C-999.
func sortRequirements(reqs []*models.Requirement) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].Section != reqs[j].Section {
			return reqs[i].Section < reqs[j].Section
		}
		si, okI := requirementSeq(reqs[i].ID)
		sj, okJ := requirementSeq(reqs[j].ID)
		if okI && okJ && si != sj {
			return si < sj
		}
		return reqs[i].ID < reqs[j].ID
	})
}

// requirementSeq returns the number after the last '-' of a requirement id.
func requirementSeq(id string) (int, bool) {
	idx := strings.LastIndex(id, "-")
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
