// Package tools provides MCP tool implementations for the RFP shredder.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/rfp-shredder/pkg/models"
	"github.com/ekaya-inc/rfp-shredder/pkg/rfp"
	"github.com/ekaya-inc/rfp-shredder/pkg/services"
)

// ShredderToolDeps contains dependencies for the shredder tools.
type ShredderToolDeps struct {
	Shredder   services.RFPShredder
	Status     services.OpportunityStatusService
	Compliance services.ComplianceService
	Matrix     services.ComplianceMatrix
	Logger     *zap.Logger
}

// RegisterShredderTools registers the shredding, status and compliance tools.
func RegisterShredderTools(s *server.MCPServer, deps *ShredderToolDeps) {
	registerShredRFPTool(s, deps)
	registerGetOpportunityStatusTool(s, deps)
	registerListRequirementsTool(s, deps)
	registerUpdateRequirementComplianceTool(s, deps)
	registerExportComplianceMatrixTool(s, deps)
}

// handleServiceError returns a tool error result for expected failures and a
// Go error for everything else.
func handleServiceError(deps *ShredderToolDeps, tool string, err error) (*mcp.CallToolResult, error) {
	if result := ServiceErrorResult(err); result != nil {
		if IsInputError(err) {
			deps.Logger.Debug("Tool input error", zap.String("tool", tool), zap.Error(err))
		} else {
			deps.Logger.Warn("Tool request rejected", zap.String("tool", tool), zap.Error(err))
		}
		return result, nil
	}
	deps.Logger.Error("Tool failed", zap.String("tool", tool), zap.Error(err))
	return nil, fmt.Errorf("%s failed: %w", tool, err)
}

func parseOpportunityID(req mcp.CallToolRequest) (uuid.UUID, *mcp.CallToolResult) {
	raw, errResult := requireNonEmpty(req, "opportunity_id")
	if errResult != nil {
		return uuid.Nil, errResult
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, NewErrorResult("invalid_parameters", fmt.Sprintf("opportunity_id %q is not a valid UUID", raw))
	}
	return id, nil
}

func registerShredRFPTool(s *server.MCPServer, deps *ShredderToolDeps) {
	tool := mcp.NewTool(
		"shred_rfp",
		mcp.WithDescription(
			"Shred an RFP document into individually tracked compliance requirements. "+
				"Detects FAR sections C, L and M (or CSO numbered sections), extracts every shall/should/may statement, "+
				"classifies each requirement, creates an opportunity with tasks, and writes a CSV compliance matrix. "+
				"Returns the opportunity_id and requirement counts.",
		),
		mcp.WithString("file_path", mcp.Required(),
			mcp.Description("Path to the RFP on the server (.pdf, .txt or .md)")),
		mcp.WithString("rfp_number", mcp.Required(),
			mcp.Description("Solicitation number, e.g. 'W912-25-R-0001'. Also names the matrix file.")),
		mcp.WithString("opportunity_name", mcp.Required(),
			mcp.Description("Human-readable opportunity title")),
		mcp.WithString("due_date", mcp.Required(),
			mcp.Description("Proposal due date, YYYY-MM-DD or RFC 3339")),
		mcp.WithString("agency", mcp.Description("Optional - Issuing agency")),
		mcp.WithString("naics_code", mcp.Description("Optional - NAICS code")),
		mcp.WithString("set_aside", mcp.Description("Optional - Set-aside designation")),
		mcp.WithBoolean("create_tasks", mcp.Description("Create one task per requirement (default true)")),
		mcp.WithBoolean("auto_assign", mcp.Description("Assign tasks to category agents (default false)")),
		mcp.WithString("output_dir", mcp.Description("Optional - Directory for the compliance matrix")),
		mcp.WithString("page_overrides", mcp.Description(
			"Optional - YAML page ranges replacing section detection, e.g. "+
				"'sections: {C: {start_page: 5, end_page: 40}}'")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		shredReq := &services.ShredRequest{
			CreateTasks: getOptionalBoolWithDefault(req, "create_tasks", true),
			AutoAssign:  getOptionalBoolWithDefault(req, "auto_assign", false),
		}

		var errResult *mcp.CallToolResult
		if shredReq.FilePath, errResult = requireNonEmpty(req, "file_path"); errResult != nil {
			return errResult, nil
		}
		if shredReq.RFPNumber, errResult = requireNonEmpty(req, "rfp_number"); errResult != nil {
			return errResult, nil
		}
		if shredReq.OpportunityName, errResult = requireNonEmpty(req, "opportunity_name"); errResult != nil {
			return errResult, nil
		}
		dueRaw, errResult := requireNonEmpty(req, "due_date")
		if errResult != nil {
			return errResult, nil
		}
		due, err := services.ParseDueDate(dueRaw)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		shredReq.DueDate = due

		shredReq.Agency, _ = getOptionalString(req, "agency")
		shredReq.NAICSCode, _ = getOptionalString(req, "naics_code")
		shredReq.SetAside, _ = getOptionalString(req, "set_aside")
		shredReq.OutputDir, _ = getOptionalString(req, "output_dir")

		if raw, ok := getOptionalString(req, "page_overrides"); ok && trimString(raw) != "" {
			overrides, err := rfp.ParsePageOverrides([]byte(raw))
			if err != nil {
				return NewErrorResult("invalid_parameters", err.Error()), nil
			}
			shredReq.PageOverrides = overrides
		}

		result := deps.Shredder.Shred(ctx, shredReq)
		if result.Status != services.ShredStatusSuccess {
			if errResult := ServiceErrorResult(result.Err()); errResult != nil {
				return errResult, nil
			}
			return NewErrorResult("shred_failed", result.Error), nil
		}
		return jsonResult(result)
	})
}

func registerGetOpportunityStatusTool(s *server.MCPServer, deps *ShredderToolDeps) {
	tool := mcp.NewTool(
		"get_opportunity_status",
		mcp.WithDescription(
			"Get compliance progress for a shredded opportunity: requirement counts by compliance status, "+
				"completion_rate (percent fully compliant) and task counts.",
		),
		mcp.WithString("opportunity_id", mcp.Required(),
			mcp.Description("Opportunity UUID returned by shred_rfp")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		oppID, errResult := parseOpportunityID(req)
		if errResult != nil {
			return errResult, nil
		}

		report, err := deps.Status.GetOpportunityStatus(ctx, oppID)
		if err != nil {
			return handleServiceError(deps, "get_opportunity_status", err)
		}
		return jsonResult(report)
	})
}

func registerListRequirementsTool(s *server.MCPServer, deps *ShredderToolDeps) {
	tool := mcp.NewTool(
		"list_requirements",
		mcp.WithDescription(
			"List requirements of an opportunity ordered by section then id. "+
				"Filter by sections, compliance_type or compliance_status.",
		),
		mcp.WithString("opportunity_id", mcp.Required(),
			mcp.Description("Opportunity UUID returned by shred_rfp")),
		mcp.WithArray("sections", mcp.Description("Optional - Section letters, e.g. ['C', 'L']")),
		mcp.WithString("compliance_type", mcp.Description("Optional - mandatory, recommended, optional or unknown")),
		mcp.WithString("compliance_status", mcp.Description(
			"Optional - not_started, partially_compliant, fully_compliant or non_compliant")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		oppID, errResult := parseOpportunityID(req)
		if errResult != nil {
			return errResult, nil
		}

		filter := models.RequirementFilter{Sections: getOptionalStringSlice(req, "sections")}
		if v, ok := getOptionalString(req, "compliance_type"); ok {
			filter.ComplianceType = models.ComplianceType(strings.ToLower(trimString(v)))
		}
		if v, ok := getOptionalString(req, "compliance_status"); ok {
			filter.ComplianceStatus = models.ComplianceStatus(strings.ToLower(trimString(v)))
		}

		reqs, err := deps.Compliance.ListRequirements(ctx, oppID, filter)
		if err != nil {
			return handleServiceError(deps, "list_requirements", err)
		}

		result := struct {
			Requirements []*models.Requirement `json:"requirements"`
			Count        int                   `json:"count"`
		}{
			Requirements: reqs,
			Count:        len(reqs),
		}
		if result.Requirements == nil {
			result.Requirements = []*models.Requirement{}
		}
		return jsonResult(result)
	})
}

func registerUpdateRequirementComplianceTool(s *server.MCPServer, deps *ShredderToolDeps) {
	tool := mcp.NewTool(
		"update_requirement_compliance",
		mcp.WithDescription(
			"Record how the proposal answers a requirement. Only provided fields change. "+
				"Example: update_requirement_compliance(opportunity_id='...', requirement_id='C-001', "+
				"compliance_status='fully_compliant', proposal_section='Vol I 3.2', proposal_page='14')",
		),
		mcp.WithString("opportunity_id", mcp.Required(),
			mcp.Description("Opportunity UUID returned by shred_rfp")),
		mcp.WithString("requirement_id", mcp.Required(),
			mcp.Description("Requirement id such as 'C-001'")),
		mcp.WithString("compliance_status", mcp.Description(
			"Optional - not_started, partially_compliant, fully_compliant or non_compliant")),
		mcp.WithString("proposal_section", mcp.Description("Optional - Proposal section answering the requirement")),
		mcp.WithString("proposal_page", mcp.Description("Optional - Proposal page reference")),
		mcp.WithString("assignee_id", mcp.Description("Optional - Assignee identifier")),
		mcp.WithString("assignee_type", mcp.Description("Optional - Assignee type, e.g. 'person' or 'agent'")),
		mcp.WithString("assignee_name", mcp.Description("Optional - Assignee display name")),
		mcp.WithString("notes", mcp.Description("Optional - Free-form notes")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		oppID, errResult := parseOpportunityID(req)
		if errResult != nil {
			return errResult, nil
		}
		reqID, errResult := requireNonEmpty(req, "requirement_id")
		if errResult != nil {
			return errResult, nil
		}

		update := &models.ComplianceUpdate{}
		if v, ok := getOptionalString(req, "compliance_status"); ok {
			status := models.ComplianceStatus(strings.ToLower(trimString(v)))
			if !models.IsValidComplianceStatus(status) {
				return NewErrorResultWithDetails(
					"invalid_parameters",
					fmt.Sprintf("compliance_status %q is not valid", v),
					map[string]any{"allowed": models.ValidComplianceStatuses},
				), nil
			}
			update.ComplianceStatus = &status
		}
		for key, dst := range map[string]**string{
			"proposal_section": &update.ProposalSection,
			"proposal_page":    &update.ProposalPage,
			"assignee_id":      &update.AssigneeID,
			"assignee_type":    &update.AssigneeType,
			"assignee_name":    &update.AssigneeName,
			"notes":            &update.Notes,
		} {
			if v, ok := getOptionalString(req, key); ok {
				*dst = &v
			}
		}

		updated, err := deps.Compliance.UpdateRequirement(ctx, oppID, reqID, update)
		if err != nil {
			return handleServiceError(deps, "update_requirement_compliance", err)
		}
		return jsonResult(updated)
	})
}

func registerExportComplianceMatrixTool(s *server.MCPServer, deps *ShredderToolDeps) {
	tool := mcp.NewTool(
		"export_compliance_matrix",
		mcp.WithDescription(
			"Regenerate the CSV compliance matrix for an opportunity from its current requirement data. "+
				"Returns the written file path.",
		),
		mcp.WithString("opportunity_id", mcp.Required(),
			mcp.Description("Opportunity UUID returned by shred_rfp")),
		mcp.WithString("output_dir", mcp.Description("Optional - Directory for the matrix (default '.')")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		oppID, errResult := parseOpportunityID(req)
		if errResult != nil {
			return errResult, nil
		}
		outputDir, _ := getOptionalString(req, "output_dir")

		path, err := deps.Matrix.Export(ctx, oppID, outputDir)
		if err != nil {
			return handleServiceError(deps, "export_compliance_matrix", err)
		}
		return jsonResult(map[string]string{"matrix_file": path})
	})
}
