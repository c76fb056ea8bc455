// Package rfp detects RFP sections and extracts compliance requirements from
// their text using an ordered keyword rule table.
package rfp

import (
	"regexp"
	"strings"

	"github.com/ekaya-inc/rfp-shredder/pkg/models"
)

// ConditionalMarker is appended to matched keywords when a mandatory
// requirement only applies under a condition ("if ... shall").
const ConditionalMarker = "conditional"

type keywordRule struct {
	keyword string
	pattern *regexp.Regexp
}

// complianceTier is one row of the rule table. Tiers are evaluated in order
// and the first tier with a hit decides the compliance type.
type complianceTier struct {
	complianceType models.ComplianceType
	rules          []keywordRule
}

func word(keyword string) keywordRule {
	return keywordRule{
		keyword: keyword,
		pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`),
	}
}

var complianceTiers = []complianceTier{
	{
		complianceType: models.ComplianceTypeMandatory,
		rules: []keywordRule{
			word("shall"),
			word("must"),
			word("will"),
			word("required"),
			word("mandatory"),
		},
	},
	{
		complianceType: models.ComplianceTypeRecommended,
		rules: []keywordRule{
			word("should"),
			word("encouraged"),
			word("recommended"),
			word("preferred"),
		},
	},
	{
		complianceType: models.ComplianceTypeOptional,
		rules: []keywordRule{
			word("may"),
			word("can"),
			word("could"),
			word("optional"),
			{keyword: "discretion", pattern: regexp.MustCompile(`(?i)\bat\s+(?:[\w'’]+\s+){0,3}discretion\b`)},
		},
	},
}

var conditionalPattern = regexp.MustCompile(`(?i)\b(?:if|when|in\s+the\s+event)\b.*?\b(?:shall|must|will|should)\b`)

// Classification is the rule table's verdict for one span of text.
type Classification struct {
	ComplianceType  models.ComplianceType
	MatchedKeywords []string
}

// IsRequirement reports whether the span carries any obligation keyword.
func (c Classification) IsRequirement() bool {
	return c.ComplianceType != models.ComplianceTypeUnknown
}

// ClassifyCompliance applies the tiered keyword rule to text. Text with no
// hit in any tier is ComplianceTypeUnknown.
func ClassifyCompliance(text string) Classification {
	for _, tier := range complianceTiers {
		var matched []string
		for _, r := range tier.rules {
			if r.pattern.MatchString(text) {
				matched = append(matched, r.keyword)
			}
		}
		if len(matched) == 0 {
			continue
		}
		if tier.complianceType == models.ComplianceTypeMandatory && conditionalPattern.MatchString(text) {
			matched = append(matched, ConditionalMarker)
		}
		return Classification{ComplianceType: tier.complianceType, MatchedKeywords: matched}
	}
	return Classification{ComplianceType: models.ComplianceTypeUnknown}
}

// normalizeForDedup lowercases and collapses whitespace.
func normalizeForDedup(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
