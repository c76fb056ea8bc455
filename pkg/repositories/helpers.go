// Package repositories persists opportunities, requirements and tasks in PostgreSQL.
// Every method runs on the querier stored in ctx (see database.SetQuerier).
package repositories

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// nullString returns nil if the string is empty, otherwise returns the string pointer.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// derefString maps a NULL text column to "".
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// jsonList keeps JSONB list columns non-NULL.
func jsonList(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// jsonObject keeps JSONB object columns non-NULL.
func jsonObject[V any](v map[string]V) map[string]V {
	if v == nil {
		return map[string]V{}
	}
	return v
}

// jsonUnmarshal decodes a JSONB column, treating NULL and empty as no-ops.
func jsonUnmarshal(data []byte, v any, column string) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", column, err)
	}
	return nil
}

// execBatch drains every queued statement so the first failure is reported.
func execBatch(results pgx.BatchResults, n int, what string) error {
	for i := 0; i < n; i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to %s (item %d): %w", what, i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	return nil
}
