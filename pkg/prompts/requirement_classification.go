package prompts

import (
	"fmt"
	"strings"
)

// RequirementClassificationSystemMessage frames the model as a proposal
// compliance analyst that answers only in JSON.
const RequirementClassificationSystemMessage = "You are a government proposal compliance analyst. " +
	"You classify RFP requirements precisely and respond with a single JSON object and nothing else."

// RequirementContext is the requirement being classified.
type RequirementContext struct {
	Text       string
	Section    string
	PageNumber *int
}

// BuildRequirementClassificationPrompt creates the prompt for classifying one
// requirement into compliance type, category, priority, risk, keywords and
// implicit requirements.
func BuildRequirementClassificationPrompt(req RequirementContext) string {
	var prompt strings.Builder

	prompt.WriteString("# RFP Requirement Classification\n\n")
	prompt.WriteString("Analyze the following requirement from a government Request for Proposal.\n\n")

	prompt.WriteString("## Requirement\n\n")
	prompt.WriteString(fmt.Sprintf("Section: %s\n", req.Section))
	if req.PageNumber != nil {
		prompt.WriteString(fmt.Sprintf("Page: %d\n", *req.PageNumber))
	} else {
		prompt.WriteString("Page: unknown\n")
	}
	prompt.WriteString(fmt.Sprintf("Text: \"\"\"%s\"\"\"\n\n", req.Text))

	prompt.WriteString("## Field Definitions\n\n")
	prompt.WriteString("- compliance_type: \"mandatory\" (shall/must/will/required), \"recommended\" (should/encouraged/preferred), or \"optional\" (may/can/at discretion)\n")
	prompt.WriteString("- category: one of \"technical\", \"management\", \"cost\", \"deliverable\", \"compliance\"\n")
	prompt.WriteString("- priority: \"high\", \"medium\", or \"low\" based on impact on proposal evaluation\n")
	prompt.WriteString("- risk_level: \"red\" (hard to meet or disqualifying if missed), \"yellow\" (needs attention), or \"green\" (routine)\n")
	prompt.WriteString("- keywords: 3 to 5 short terms that capture the requirement\n")
	prompt.WriteString("- implicit_requirements: obligations implied but not stated, or an empty list\n\n")

	prompt.WriteString("## Response Format\n\n")
	prompt.WriteString("Respond with ONLY this JSON object, no prose and no markdown fences:\n\n")
	prompt.WriteString(`{
  "compliance_type": "mandatory",
  "category": "technical",
  "priority": "high",
  "risk_level": "yellow",
  "keywords": ["encryption", "data at rest", "AES-256"],
  "implicit_requirements": ["Maintain key management procedures"]
}
`)

	return prompt.String()
}
