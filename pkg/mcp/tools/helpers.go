package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// requireNonEmpty returns the trimmed string argument key, or an error result
// when it is missing or blank.
func requireNonEmpty(req mcp.CallToolRequest, key string) (string, *mcp.CallToolResult) {
	val, err := req.RequireString(key)
	if err != nil {
		return "", NewErrorResult("invalid_parameters", fmt.Sprintf("parameter '%s' is required", key))
	}
	val = trimString(val)
	if val == "" {
		return "", NewErrorResult("invalid_parameters", fmt.Sprintf("parameter '%s' cannot be empty", key))
	}
	return val, nil
}

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) (string, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return "", false
	}
	val, ok := args[key].(string)
	return val, ok
}

// getOptionalBoolWithDefault extracts an optional boolean argument with a default value.
func getOptionalBoolWithDefault(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		if val, ok := args[key].(bool); ok {
			return val
		}
	}
	return defaultVal
}

// getOptionalStringSlice accepts a JSON array of strings, a stringified JSON
// array, or a single comma-separated string.
func getOptionalStringSlice(req mcp.CallToolRequest, key string) []string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}
	var out []string
	switch v := args[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && trimString(s) != "" {
				out = append(out, trimString(s))
			}
		}
	case string:
		var arr []string
		if strings.HasPrefix(trimString(v), "[") && json.Unmarshal([]byte(v), &arr) == nil {
			for _, s := range arr {
				if trimString(s) != "" {
					out = append(out, trimString(s))
				}
			}
			return out
		}
		for _, s := range strings.Split(v, ",") {
			if trimString(s) != "" {
				out = append(out, trimString(s))
			}
		}
	}
	return out
}

// jsonResult marshals v into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
