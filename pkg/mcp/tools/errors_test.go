package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/rfp-shredder/pkg/apperrors"
)

// getTextContent extracts the text string from the first text content item
func getTextContent(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	jsonBytes, _ := json.Marshal(result.Content[0])
	var textContent struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	json.Unmarshal(jsonBytes, &textContent)
	return textContent.Text
}

func decodeError(t *testing.T, result *mcp.CallToolResult) ErrorResponse {
	t.Helper()
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(getTextContent(result)), &resp))
	return resp
}

func TestNewErrorResult(t *testing.T) {
	resp := decodeError(t, NewErrorResult("test_error", "this is a test error"))

	assert.True(t, resp.Error)
	assert.Equal(t, "test_error", resp.Code)
	assert.Equal(t, "this is a test error", resp.Message)
	assert.Nil(t, resp.Details)
}

func TestNewErrorResultWithDetails(t *testing.T) {
	result := NewErrorResultWithDetails("invalid_parameters", "bad status",
		map[string]any{"allowed": []string{"not_started", "fully_compliant"}})

	resp := decodeError(t, result)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Len(t, details["allowed"], 2)
}

func TestServiceErrorResult(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"not found", fmt.Errorf("get opportunity: %w", apperrors.ErrNotFound), "not_found"},
		{"invalid input", fmt.Errorf("%w: missing rfp_number", apperrors.ErrInvalidInput), "invalid_parameters"},
		{"conflict", apperrors.ErrConflict, "conflict"},
		{"document", fmt.Errorf("%w: file not found", apperrors.ErrDocumentProcessing), "document_error"},
		{"unique violation", &pgconn.PgError{Code: "23505", Message: "duplicate key value"}, "unique_violation"},
		{"other constraint", &pgconn.PgError{Code: "23P01", Message: "exclusion"}, "constraint_violation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeError(t, ServiceErrorResult(tt.err))
			assert.Equal(t, tt.code, resp.Code)
			assert.True(t, IsInputError(tt.err))
		})
	}
}

func TestServiceErrorResult_SystemErrors(t *testing.T) {
	assert.Nil(t, ServiceErrorResult(nil))
	assert.Nil(t, ServiceErrorResult(errors.New("connection refused")))
	assert.Nil(t, ServiceErrorResult(&pgconn.PgError{Code: "57P01", Message: "terminating connection"}))
	assert.False(t, IsInputError(errors.New("connection refused")))
}

func TestExtractSQLErrorMessage(t *testing.T) {
	assert.Equal(t, "", ExtractSQLErrorMessage(nil))
	assert.Equal(t, "duplicate key value",
		ExtractSQLErrorMessage(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", Message: "duplicate key value"})))
	assert.Equal(t, "relation does not exist",
		ExtractSQLErrorMessage(errors.New("ERROR: relation does not exist (SQLSTATE 42P01)")))
}
