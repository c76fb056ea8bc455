package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/rfp-shredder/pkg/database"
	"github.com/ekaya-inc/rfp-shredder/pkg/mcp"
	"github.com/ekaya-inc/rfp-shredder/pkg/mcp/tools"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
	"github.com/ekaya-inc/rfp-shredder/pkg/rfp"
	"github.com/ekaya-inc/rfp-shredder/pkg/services"
)

var (
	// shred flags
	shredRFPNumber     string
	shredName          string
	shredDueDate       string
	shredAgency        string
	shredNAICS         string
	shredSetAside      string
	shredNoTasks       bool
	shredAutoAssign    bool
	shredOutputDir     string
	shredOverridesPath string

	// requirement update flags
	updateStatus          string
	updateProposalSection string
	updateProposalPage    string
	updateAssigneeID      string
	updateAssigneeType    string
	updateAssigneeName    string
	updateNotes           string

	// list flags
	listSections []string
	listType     string
	listStatus   string

	matrixOutputDir string
	mcpHTTPAddr     string
)

func init() {
	shredCmd.Flags().StringVar(&shredRFPNumber, "rfp-number", "", "Solicitation number (required)")
	shredCmd.Flags().StringVar(&shredName, "name", "", "Opportunity name (required)")
	shredCmd.Flags().StringVar(&shredDueDate, "due", "", "Proposal due date, YYYY-MM-DD or RFC 3339 (required)")
	shredCmd.Flags().StringVar(&shredAgency, "agency", "", "Issuing agency")
	shredCmd.Flags().StringVar(&shredNAICS, "naics", "", "NAICS code")
	shredCmd.Flags().StringVar(&shredSetAside, "set-aside", "", "Set-aside designation")
	shredCmd.Flags().BoolVar(&shredNoTasks, "no-tasks", false, "Do not create a task per requirement")
	shredCmd.Flags().BoolVar(&shredAutoAssign, "auto-assign", false, "Assign tasks to category agents")
	shredCmd.Flags().StringVar(&shredOutputDir, "output-dir", "", "Directory for the compliance matrix (default from config)")
	shredCmd.Flags().StringVar(&shredOverridesPath, "page-overrides", "", "YAML file with manual section page ranges")
	_ = shredCmd.MarkFlagRequired("rfp-number")
	_ = shredCmd.MarkFlagRequired("name")
	_ = shredCmd.MarkFlagRequired("due")

	for _, c := range []*cobra.Command{sectionsCmd, extractCmd} {
		c.Flags().StringVar(&shredOverridesPath, "page-overrides", "", "YAML file with manual section page ranges")
	}

	matrixCmd.Flags().StringVar(&matrixOutputDir, "output-dir", "", "Directory for the compliance matrix (default from config)")

	requirementListCmd.Flags().StringSliceVar(&listSections, "section", nil, "Section letters to include (repeatable)")
	requirementListCmd.Flags().StringVar(&listType, "type", "", "Compliance type filter")
	requirementListCmd.Flags().StringVar(&listStatus, "status", "", "Compliance status filter")

	requirementUpdateCmd.Flags().StringVar(&updateStatus, "status", "", "Compliance status")
	requirementUpdateCmd.Flags().StringVar(&updateProposalSection, "proposal-section", "", "Proposal section answering the requirement")
	requirementUpdateCmd.Flags().StringVar(&updateProposalPage, "proposal-page", "", "Proposal page reference")
	requirementUpdateCmd.Flags().StringVar(&updateAssigneeID, "assignee-id", "", "Assignee identifier")
	requirementUpdateCmd.Flags().StringVar(&updateAssigneeType, "assignee-type", "", "Assignee type")
	requirementUpdateCmd.Flags().StringVar(&updateAssigneeName, "assignee-name", "", "Assignee display name")
	requirementUpdateCmd.Flags().StringVar(&updateNotes, "notes", "", "Notes")
	requirementCmd.AddCommand(requirementListCmd, requirementUpdateCmd)

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)

	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "Serve streamable HTTP on this address instead of stdio, e.g. :8090")

	rootCmd.AddCommand(shredCmd, sectionsCmd, extractCmd, statusCmd, matrixCmd, requirementCmd, migrateCmd, mcpCmd)
}

var shredCmd = &cobra.Command{
	Use:   "shred <file>",
	Short: "Shred an RFP into requirements, tasks and a compliance matrix",
	Long: `Shred an RFP document end to end and print the summary as JSON.

Examples:
  # Shred a PDF with tasks assigned to category agents
  rfp-shredder shred rfp.pdf --rfp-number W912-25-R-0001 --name "Base Ops" --due 2025-03-15 --auto-assign

  # Use manual page ranges for a document without recognizable headers
  rfp-shredder shred rfp.pdf --rfp-number X --name Y --due 2025-03-15 --page-overrides pages.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runShred,
}

var sectionsCmd = &cobra.Command{
	Use:   "sections <file>",
	Short: "Show the detected sections of an RFP without storing anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runSections,
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print extracted requirement candidates without classifying or storing them",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var statusCmd = &cobra.Command{
	Use:   "status <opportunity-id>",
	Short: "Show compliance progress for an opportunity",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var matrixCmd = &cobra.Command{
	Use:   "matrix <opportunity-id>",
	Short: "Regenerate the CSV compliance matrix for an opportunity",
	Args:  cobra.ExactArgs(1),
	RunE:  runMatrix,
}

var requirementCmd = &cobra.Command{
	Use:   "requirement",
	Short: "List and update stored requirements",
}

var requirementListCmd = &cobra.Command{
	Use:   "list <opportunity-id>",
	Short: "List requirements ordered by section then id",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequirementList,
}

var requirementUpdateCmd = &cobra.Command{
	Use:   "update <opportunity-id> <requirement-id>",
	Short: "Record compliance tracking for a requirement",
	Long: `Update compliance tracking fields. Only flags that are given change.

Examples:
  rfp-shredder requirement update 3f0c... C-001 --status fully_compliant --proposal-section "Vol I 3.2"`,
	Args: cobra.ExactArgs(2),
	RunE: runRequirementUpdate,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE:  runMigrateDown,
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE:  runMigrateVersion,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the shredder tools over the Model Context Protocol",
	Long: `Serve shred_rfp, get_opportunity_status, list_requirements,
update_requirement_compliance and export_compliance_matrix over MCP.

Stdio is the default transport. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadOverrides() (*rfp.PageOverrides, error) {
	if shredOverridesPath == "" {
		return nil, nil
	}
	return rfp.LoadPageOverrides(shredOverridesPath)
}

func parseOpportunityID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid opportunity id %q: %w", raw, err)
	}
	return id, nil
}

func runShred(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	due, err := services.ParseDueDate(shredDueDate)
	if err != nil {
		return err
	}
	overrides, err := loadOverrides()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	result := a.shredder.Shred(ctx, &services.ShredRequest{
		FilePath:        args[0],
		RFPNumber:       shredRFPNumber,
		OpportunityName: shredName,
		DueDate:         due,
		Agency:          shredAgency,
		NAICSCode:       shredNAICS,
		SetAside:        shredSetAside,
		CreateTasks:     !shredNoTasks,
		AutoAssign:      shredAutoAssign,
		OutputDir:       shredOutputDir,
		PageOverrides:   overrides,
	})
	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	return result.Err()
}

func runSections(cmd *cobra.Command, args []string) error {
	overrides, err := loadOverrides()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	extraction, err := a.shredder.Extract(cmd.Context(), args[0], overrides)
	if err != nil {
		return err
	}

	sections := make([]*models.Section, 0, len(extraction.Sections))
	for _, letter := range extraction.Sections.Letters() {
		sections = append(sections, extraction.Sections[letter])
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"format":     extraction.Format,
		"sections":   sections,
		"validation": extraction.Validation,
	})
}

func runExtract(cmd *cobra.Command, args []string) error {
	overrides, err := loadOverrides()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	extraction, err := a.shredder.Extract(cmd.Context(), args[0], overrides)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), rfp.Serialize(extraction.Requirements))
}

func runStatus(cmd *cobra.Command, args []string) error {
	id, err := parseOpportunityID(args[0])
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.status.GetOpportunityStatus(cmd.Context(), id)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), report)
}

func runMatrix(cmd *cobra.Command, args []string) error {
	id, err := parseOpportunityID(args[0])
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.close()

	outputDir := matrixOutputDir
	if outputDir == "" {
		outputDir = a.cfg.Shredder.OutputDir
	}
	path, err := a.matrix.Export(cmd.Context(), id, outputDir)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runRequirementList(cmd *cobra.Command, args []string) error {
	id, err := parseOpportunityID(args[0])
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.close()

	reqs, err := a.compliance.ListRequirements(cmd.Context(), id, models.RequirementFilter{
		Sections:         listSections,
		ComplianceType:   models.ComplianceType(strings.ToLower(listType)),
		ComplianceStatus: models.ComplianceStatus(strings.ToLower(listStatus)),
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), reqs)
}

func runRequirementUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseOpportunityID(args[0])
	if err != nil {
		return err
	}

	update := &models.ComplianceUpdate{}
	flags := cmd.Flags()
	if flags.Changed("status") {
		status := models.ComplianceStatus(strings.ToLower(updateStatus))
		update.ComplianceStatus = &status
	}
	for name, field := range map[string]struct {
		value *string
		dst   **string
	}{
		"proposal-section": {&updateProposalSection, &update.ProposalSection},
		"proposal-page":    {&updateProposalPage, &update.ProposalPage},
		"assignee-id":      {&updateAssigneeID, &update.AssigneeID},
		"assignee-type":    {&updateAssigneeType, &update.AssigneeType},
		"assignee-name":    {&updateAssigneeName, &update.AssigneeName},
		"notes":            {&updateNotes, &update.Notes},
	} {
		if flags.Changed(name) {
			*field.dst = field.value
		}
	}

	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.close()

	req, err := a.compliance.UpdateRequirement(cmd.Context(), id, args[1], update)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), req)
}

// withMigrations opens a database/sql handle for golang-migrate, which does
// not use the pgx pool.
func withMigrations(cmd *cobra.Command, fn func(a *app, db *sql.DB) error) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	sqlDB, err := database.OpenSQL(a.cfg.Database.URL())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return fn(a, sqlDB)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	return withMigrations(cmd, func(a *app, db *sql.DB) error {
		return database.RunMigrations(db, a.logger)
	})
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	return withMigrations(cmd, func(a *app, db *sql.DB) error {
		return database.MigrateDown(db, a.logger)
	})
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	return withMigrations(cmd, func(a *app, db *sql.DB) error {
		version, dirty, err := database.MigrationVersion(db, a.logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
		return nil
	})
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	srv := mcp.NewServer("rfp-shredder", Version, a.logger)
	tools.RegisterHealthTool(srv.MCP(), Version, a.llmModel())
	tools.RegisterShredderTools(srv.MCP(), &tools.ShredderToolDeps{
		Shredder:   a.shredder,
		Status:     a.status,
		Compliance: a.compliance,
		Matrix:     a.matrix,
		Logger:     a.logger.Named("mcp-tools"),
	})

	if mcpHTTPAddr != "" {
		return srv.ServeHTTP(ctx, mcpHTTPAddr)
	}
	a.logger.Info("Starting MCP stdio server", zap.String("version", Version))
	return srv.ServeStdio()
}
