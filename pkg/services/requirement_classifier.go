package services

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/ekaya-inc/rfp-shredder/pkg/jsonutil"
	"github.com/ekaya-inc/rfp-shredder/pkg/llm"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
	"github.com/ekaya-inc/rfp-shredder/pkg/prompts"
	"github.com/ekaya-inc/rfp-shredder/pkg/retry"
	"github.com/ekaya-inc/rfp-shredder/pkg/rfp"
)

const (
	// DefaultClassificationTimeout bounds one requirement's LLM call, retries included.
	DefaultClassificationTimeout = 60 * time.Second

	classificationTemperature = 0.1
	maxKeywords               = 5
	progressLogInterval       = 10
)

// RequirementClassifier assigns category, priority, risk, keywords and
// entities to requirements. It never fails: any LLM problem degrades to the
// keyword rules.
type RequirementClassifier interface {
	Classify(ctx context.Context, req rfp.ExtractedRequirement) *models.RequirementClassification
	// ClassifyBatch returns exactly one classification per input, in input order.
	ClassifyBatch(ctx context.Context, reqs []rfp.ExtractedRequirement) []*models.RequirementClassification
}

// ClassifierConfig tunes the LLM path of the classifier.
type ClassifierConfig struct {
	Timeout       time.Duration
	MaxConcurrent int
}

type requirementClassifier struct {
	client         llm.LLMClient
	workerPool     *llm.WorkerPool
	circuitBreaker *llm.CircuitBreaker
	timeout        time.Duration
	logger         *zap.Logger
}

// NewRequirementClassifier creates a classifier. A nil client classifies
// everything with the keyword rules.
func NewRequirementClassifier(client llm.LLMClient, cfg ClassifierConfig, logger *zap.Logger) RequirementClassifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClassificationTimeout
	}
	return &requirementClassifier{
		client:         client,
		workerPool:     llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: cfg.MaxConcurrent}, logger),
		circuitBreaker: llm.NewCircuitBreaker(llm.DefaultCircuitBreakerConfig()),
		timeout:        cfg.Timeout,
		logger:         logger.Named("requirement-classifier"),
	}
}

var _ RequirementClassifier = (*requirementClassifier)(nil)

// classificationResponse is decoded leniently; models send lists as strings
// and enums in odd casing.
type classificationResponse struct {
	ComplianceType       json.RawMessage `json:"compliance_type"`
	Category             json.RawMessage `json:"category"`
	Priority             json.RawMessage `json:"priority"`
	RiskLevel            json.RawMessage `json:"risk_level"`
	Keywords             json.RawMessage `json:"keywords"`
	ImplicitRequirements json.RawMessage `json:"implicit_requirements"`
}

func (s *requirementClassifier) Classify(ctx context.Context, req rfp.ExtractedRequirement) *models.RequirementClassification {
	entities := rfp.ExtractEntities(req.Text)

	if s.client == nil {
		return fallbackClassification(req.Text, entities)
	}

	if allowed, err := s.circuitBreaker.Allow(); !allowed {
		s.logger.Debug("Circuit breaker open, using keyword classification",
			zap.String("requirement_id", req.ID),
			zap.String("circuit_state", s.circuitBreaker.State().String()),
			zap.Error(err))
		return fallbackClassification(req.Text, entities)
	}

	prompt := prompts.BuildRequirementClassificationPrompt(prompts.RequirementContext{
		Text:       req.Text,
		Section:    req.Section,
		PageNumber: req.PageNumber,
	})

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := retry.DoIfRetryable(callCtx, retry.LLMConfig(), func() (*llm.GenerateResponseResult, error) {
		return s.client.GenerateResponse(callCtx, prompt, prompts.RequirementClassificationSystemMessage, classificationTemperature, true)
	})
	if err != nil {
		s.circuitBreaker.RecordFailure()
		s.logger.Warn("LLM classification failed, using keyword classification",
			zap.String("requirement_id", req.ID),
			zap.String("error_type", string(llm.ClassifyError(err).Type)),
			zap.Int("consecutive_failures", s.circuitBreaker.ConsecutiveFailures()),
			zap.Error(err))
		return fallbackClassification(req.Text, entities)
	}
	s.circuitBreaker.RecordSuccess()

	resp, err := llm.ParseJSONResponse[classificationResponse](result.Content)
	if err != nil {
		s.logger.Warn("LLM returned unparseable classification, using keyword classification",
			zap.String("requirement_id", req.ID),
			zap.String("error_type", string(llm.ErrorTypeParse)),
			zap.String("response_preview", truncate(result.Content, 200)),
			zap.Error(err))
		return fallbackClassification(req.Text, entities)
	}

	return mergeLLMClassification(req, resp, entities)
}

func (s *requirementClassifier) ClassifyBatch(ctx context.Context, reqs []rfp.ExtractedRequirement) []*models.RequirementClassification {
	if len(reqs) == 0 {
		return []*models.RequirementClassification{}
	}

	items := make([]llm.WorkItem[*models.RequirementClassification], len(reqs))
	for i, req := range reqs {
		items[i] = llm.WorkItem[*models.RequirementClassification]{
			ID: req.ID,
			Execute: func(ctx context.Context) (*models.RequirementClassification, error) {
				return s.Classify(ctx, req), nil
			},
		}
	}

	results := llm.ProcessOrdered(ctx, s.workerPool, items, func(completed, total int) {
		if completed%progressLogInterval == 0 || completed == total {
			s.logger.Info("Classification progress",
				zap.Int("completed", completed),
				zap.Int("total", total))
		}
	})

	out := make([]*models.RequirementClassification, len(reqs))
	for i, r := range results {
		if r.Result == nil {
			// cancelled before it ran
			out[i] = fallbackClassification(reqs[i].Text, rfp.ExtractEntities(reqs[i].Text))
			continue
		}
		out[i] = r.Result
	}
	return out
}

// mergeLLMClassification fills gaps in the model's answer with safe defaults.
// compliance_type falls back to the rule table rather than a fixed value.
func mergeLLMClassification(req rfp.ExtractedRequirement, resp classificationResponse, entities map[string][]string) *models.RequirementClassification {
	c := &models.RequirementClassification{
		ComplianceType:       models.ComplianceType(enumValue(resp.ComplianceType)),
		Category:             models.RequirementCategory(enumValue(resp.Category)),
		Priority:             models.Priority(enumValue(resp.Priority)),
		RiskLevel:            models.RiskLevel(enumValue(resp.RiskLevel)),
		Keywords:             limitKeywords(jsonutil.FlexibleStringList(resp.Keywords)),
		ImplicitRequirements: jsonutil.FlexibleStringList(resp.ImplicitRequirements),
		ExtractedEntities:    entities,
		Source:               models.ClassificationSourceLLM,
	}

	if c.ComplianceType == models.ComplianceTypeUnknown || !models.IsValidComplianceType(c.ComplianceType) {
		c.ComplianceType = req.ComplianceType
		if !models.IsValidComplianceType(c.ComplianceType) || c.ComplianceType == "" {
			c.ComplianceType = rfp.ClassifyCompliance(req.Text).ComplianceType
		}
	}
	if !models.IsValidRequirementCategory(c.Category) {
		c.Category = models.CategoryUnknown
	}
	if !models.IsValidPriority(c.Priority) {
		c.Priority = models.PriorityMedium
	}
	if !models.IsValidRiskLevel(c.RiskLevel) {
		c.RiskLevel = models.RiskYellow
	}
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	if c.ImplicitRequirements == nil {
		c.ImplicitRequirements = []string{}
	}
	return c
}

func enumValue(raw json.RawMessage) string {
	return strings.ToLower(strings.TrimSpace(jsonutil.FlexibleStringValue(raw)))
}

func limitKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	var out []string
	for _, k := range keywords {
		key := strings.ToLower(k)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, k)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// ============================================================================
// Keyword fallback
// ============================================================================

type categoryBucket struct {
	category models.RequirementCategory
	stems    []*regexp.Regexp
}

func stems(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\w*`)
	}
	return out
}

// categoryBuckets is scanned in order; the bucket with the most stem hits
// wins and earlier buckets win ties.
var categoryBuckets = []categoryBucket{
	{models.CategoryTechnical, stems("system", "software", "hardware", "network", "secur", "encrypt",
		"architect", "integrat", "infrastructure", "cloud", "data", "technical", "interface", "perform")},
	{models.CategoryManagement, stems("manag", "staff", "personnel", "schedul", "oversight",
		"coordinat", "project", "program", "transition", "subcontract", "quality")},
	{models.CategoryCost, stems("cost", "pric", "budget", "fee", "invoic", "payment", "labor rate",
		"dollar", "fund", "financ")},
	{models.CategoryDeliverable, stems("deliver", "report", "submi", "document", "train", "briefing",
		"milestone", "draft")},
	{models.CategoryCompliance, stems("compl", "regulat", "FAR ", "DFARS", "certif", "clause",
		"statut", "accredit", "section 508", "licens")},
}

func fallbackCategory(text string) models.RequirementCategory {
	best := models.CategoryTechnical
	bestHits := 0
	for _, b := range categoryBuckets {
		hits := 0
		for _, re := range b.stems {
			if re.MatchString(text) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = b.category, hits
		}
	}
	return best
}

var termPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9\-]+`)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "all": true, "any": true, "can": true, "her": true, "was": true,
	"one": true, "our": true, "out": true, "has": true, "have": true, "been": true,
	"this": true, "that": true, "with": true, "from": true, "they": true, "their": true,
	"them": true, "then": true, "than": true, "into": true, "its": true, "such": true,
	"each": true, "other": true, "which": true, "these": true, "those": true, "there": true,
	"where": true, "when": true, "what": true, "who": true, "whom": true, "while": true,
	"also": true, "only": true, "upon": true, "within": true, "without": true, "under": true,
	"over": true, "after": true, "before": true, "between": true, "through": true, "during": true,
	"including": true, "include": true, "provide": true, "provided": true, "ensure": true,
	"contractor": true, "offeror": true, "government": true, "section": true, "per": true,
	"shall": true, "must": true, "will": true, "required": true, "mandatory": true,
	"should": true, "encouraged": true, "recommended": true, "preferred": true,
	"may": true, "could": true, "optional": true, "discretion": true, "would": true,
	"being": true, "does": true, "did": true, "had": true, "his": true, "she": true,
	"about": true, "more": true, "most": true, "some": true, "very": true, "own": true,
}

// fallbackKeywords returns up to five of the most frequent non-stop-word
// terms, merging singular and plural forms. Ties keep first-seen order.
func fallbackKeywords(text string) []string {
	type term struct {
		word  string
		count int
		first int
	}
	terms := make(map[string]*term)
	for i, tok := range termPattern.FindAllString(text, -1) {
		w := strings.ToLower(tok)
		if len(w) < 3 || stopWords[w] {
			continue
		}
		w = inflection.Singular(w)
		if stopWords[w] {
			continue
		}
		if t, ok := terms[w]; ok {
			t.count++
			continue
		}
		terms[w] = &term{word: w, count: 1, first: i}
	}

	ranked := make([]*term, 0, len(terms))
	for _, t := range terms {
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	out := make([]string, 0, maxKeywords)
	for _, t := range ranked {
		if len(out) == maxKeywords {
			break
		}
		out = append(out, t.word)
	}
	return out
}

// fallbackClassification derives every field from deterministic rules.
func fallbackClassification(text string, entities map[string][]string) *models.RequirementClassification {
	ct := rfp.ClassifyCompliance(text).ComplianceType

	priority := models.PriorityMedium
	risk := models.RiskGreen
	if ct == models.ComplianceTypeMandatory {
		priority = models.PriorityHigh
		risk = models.RiskYellow
	}

	return &models.RequirementClassification{
		ComplianceType:       ct,
		Category:             fallbackCategory(text),
		Priority:             priority,
		RiskLevel:            risk,
		Keywords:             fallbackKeywords(text),
		ImplicitRequirements: []string{},
		ExtractedEntities:    entities,
		Source:               models.ClassificationSourceFallback,
	}
}

// truncate shortens s to at most n runes for log previews.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
