package rfp

import "strings"

// Deduplicate drops requirements whose normalized text (lower case, collapsed
// whitespace) was already seen, keeping the first occurrence across all
// sections. Surviving IDs are left unchanged, so numbering may have gaps.
func Deduplicate(reqs []ExtractedRequirement) []ExtractedRequirement {
	seen := make(map[string]bool, len(reqs))
	out := make([]ExtractedRequirement, 0, len(reqs))
	for _, r := range reqs {
		key := normalizeForDedup(r.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// FilterBySection keeps requirements whose section is one of letters.
func FilterBySection(reqs []ExtractedRequirement, letters ...string) []ExtractedRequirement {
	want := make(map[string]bool, len(letters))
	for _, l := range letters {
		want[strings.ToUpper(l)] = true
	}
	out := make([]ExtractedRequirement, 0, len(reqs))
	for _, r := range reqs {
		if want[r.Section] {
			out = append(out, r)
		}
	}
	return out
}

// Serialize converts requirements to plain maps for JSON output and persistence.
func Serialize(reqs []ExtractedRequirement) []map[string]any {
	out := make([]map[string]any, 0, len(reqs))
	for _, r := range reqs {
		m := map[string]any{
			"id":               r.ID,
			"section":          r.Section,
			"paragraph_id":     r.ParagraphID,
			"text":             r.Text,
			"compliance_type":  string(r.ComplianceType),
			"matched_keywords": append([]string{}, r.MatchedKeywords...),
		}
		if r.PageNumber != nil {
			m["page_number"] = *r.PageNumber
		} else {
			m["page_number"] = nil
		}
		out = append(out, m)
	}
	return out
}
