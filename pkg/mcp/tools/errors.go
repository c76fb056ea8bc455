package tools

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/rfp-shredder/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Returning errors as successful tool results keeps the details visible to
// the model instead of being swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for recoverable errors the caller can fix (bad parameters,
// unknown ids). System failures should still return Go errors.
//
// Example:
//
//	if opp == nil {
//	    return NewErrorResult("opportunity_not_found", "no opportunity with that id"), nil
//	}
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// ServiceErrorResult converts an expected service failure into a tool error
// result. It returns nil for anything else; the caller should return that as
// a Go error.
func ServiceErrorResult(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrNotFound):
		return NewErrorResult("not_found", err.Error())
	case errors.Is(err, apperrors.ErrInvalidInput):
		return NewErrorResult("invalid_parameters", err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		return NewErrorResult("conflict", err.Error())
	case errors.Is(err, apperrors.ErrDocumentProcessing):
		return NewErrorResult("document_error", err.Error())
	}
	if code := ConstraintErrorCode(err); code != "" {
		return NewErrorResult(code, ExtractSQLErrorMessage(err))
	}
	return nil
}

// ConstraintErrorCode maps PostgreSQL integrity violations (SQLSTATE class 23)
// to an error code. Returns empty string for any other error.
func ConstraintErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || !strings.HasPrefix(pgErr.Code, "23") {
		return ""
	}
	switch pgErr.Code {
	case "23505":
		return "unique_violation"
	case "23503":
		return "foreign_key_violation"
	case "23502":
		return "not_null_violation"
	case "23514":
		return "check_violation"
	}
	return "constraint_violation"
}

// ExtractSQLErrorMessage returns the server message of a PostgreSQL error,
// or the error text with any SQLSTATE suffix removed.
func ExtractSQLErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}

	msg := err.Error()
	if idx := strings.Index(msg, " (SQLSTATE"); idx != -1 {
		msg = msg[:idx]
	}
	return strings.TrimPrefix(msg, "ERROR: ")
}

// IsInputError reports whether err was caused by caller input rather than a
// server failure. Input errors are logged at Debug, not Error.
func IsInputError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrInvalidInput) ||
		errors.Is(err, apperrors.ErrDocumentProcessing) ||
		ConstraintErrorCode(err) != ""
}
