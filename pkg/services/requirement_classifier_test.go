package services

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/rfp-shredder/pkg/llm"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
	"github.com/ekaya-inc/rfp-shredder/pkg/rfp"
)

func extracted(id, text string) rfp.ExtractedRequirement {
	c := rfp.ClassifyCompliance(text)
	return rfp.ExtractedRequirement{
		ID:              id,
		Section:         "C",
		Text:            text,
		ComplianceType:  c.ComplianceType,
		MatchedKeywords: c.MatchedKeywords,
	}
}

func newTestClassifier(client llm.LLMClient, maxConcurrent int) RequirementClassifier {
	return NewRequirementClassifier(client, ClassifierConfig{
		Timeout:       5 * time.Second,
		MaxConcurrent: maxConcurrent,
	}, zap.NewNop())
}

func TestClassify_UsesLLMResponse(t *testing.T) {
	mock := llm.NewStaticMockLLMClient(`{
		"compliance_type": "Mandatory",
		"category": "management",
		"priority": "HIGH",
		"risk_level": "red",
		"keywords": "staffing, key personnel",
		"implicit_requirements": ["resumes for key personnel"]
	}`)
	c := newTestClassifier(mock, 1)

	got := c.Classify(context.Background(), extracted("C-001", "The contractor shall provide key personnel by 01/15/2025."))

	assert.Equal(t, models.ClassificationSourceLLM, got.Source)
	assert.Equal(t, models.ComplianceTypeMandatory, got.ComplianceType)
	assert.Equal(t, models.CategoryManagement, got.Category)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, models.RiskRed, got.RiskLevel)
	assert.Equal(t, []string{"staffing", "key personnel"}, got.Keywords)
	assert.Equal(t, []string{"resumes for key personnel"}, got.ImplicitRequirements)
	assert.Contains(t, got.ExtractedEntities[models.EntityDates], "01/15/2025")
	assert.Equal(t, 1, mock.GenerateResponseCalls())
}

func TestClassify_FillsInvalidLLMFields(t *testing.T) {
	mock := llm.NewStaticMockLLMClient(`{"category": "bogus", "priority": 3, "keywords": null}`)
	c := newTestClassifier(mock, 1)

	got := c.Classify(context.Background(), extracted("C-001", "Reports should be submitted monthly."))

	assert.Equal(t, models.ClassificationSourceLLM, got.Source)
	assert.Equal(t, models.ComplianceTypeRecommended, got.ComplianceType)
	assert.Equal(t, models.CategoryUnknown, got.Category)
	assert.Equal(t, models.PriorityMedium, got.Priority)
	assert.Equal(t, models.RiskYellow, got.RiskLevel)
	assert.NotNil(t, got.Keywords)
	assert.Empty(t, got.Keywords)
	assert.NotNil(t, got.ImplicitRequirements)
}

func TestClassify_KeywordsCapped(t *testing.T) {
	mock := llm.NewStaticMockLLMClient(`{"keywords": ["a1", "b2", "A1", "c3", "d4", "e5", "f6"]}`)
	c := newTestClassifier(mock, 1)

	got := c.Classify(context.Background(), extracted("C-001", "The system must log events."))
	assert.Equal(t, []string{"a1", "b2", "c3", "d4", "e5"}, got.Keywords)
}

func TestClassify_UnparseableResponseFallsBack(t *testing.T) {
	mock := llm.NewStaticMockLLMClient("I think this is a mandatory requirement.")
	c := newTestClassifier(mock, 1)

	got := c.Classify(context.Background(), extracted("C-001", "The contractor shall encrypt all data at rest using AES-256."))

	assert.Equal(t, models.ClassificationSourceFallback, got.Source)
	assert.Equal(t, models.ComplianceTypeMandatory, got.ComplianceType)
	assert.Equal(t, models.CategoryTechnical, got.Category)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, models.RiskYellow, got.RiskLevel)
	assert.Contains(t, got.ExtractedEntities[models.EntityAcronyms], "AES")
}

func TestClassify_ProviderErrorFallsBack(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(context.Context, string, string, float64, bool) (*llm.GenerateResponseResult, error) {
		return nil, llm.NewError(llm.ErrorTypeAuth, "invalid api key", false, nil)
	}
	c := newTestClassifier(mock, 1)

	got := c.Classify(context.Background(), extracted("L-001", "Offerors may include an optional appendix."))

	assert.Equal(t, models.ClassificationSourceFallback, got.Source)
	assert.Equal(t, models.ComplianceTypeOptional, got.ComplianceType)
	assert.Equal(t, models.PriorityMedium, got.Priority)
	assert.Equal(t, models.RiskGreen, got.RiskLevel)
	assert.Equal(t, 1, mock.GenerateResponseCalls(), "non-retryable errors are not retried")
}

func TestClassify_NilClientUsesRules(t *testing.T) {
	c := newTestClassifier(nil, 1)

	got := c.Classify(context.Background(), extracted("C-001", "The offeror shall submit pricing for each labor category."))

	assert.Equal(t, models.ClassificationSourceFallback, got.Source)
	assert.Equal(t, models.CategoryCost, got.Category)
}

func TestClassifyBatch_TotalLLMFailure(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(context.Context, string, string, float64, bool) (*llm.GenerateResponseResult, error) {
		return nil, llm.NewError(llm.ErrorTypeAuth, "invalid api key", false, nil)
	}
	c := newTestClassifier(mock, 1)

	reqs := make([]rfp.ExtractedRequirement, 12)
	for i := range reqs {
		reqs[i] = extracted(fmt.Sprintf("C-%03d", i+1), fmt.Sprintf("The contractor shall deliver item %d.", i+1))
	}

	got := c.ClassifyBatch(context.Background(), reqs)

	require.Len(t, got, len(reqs))
	for i, cl := range got {
		require.NotNil(t, cl, "classification %d", i)
		assert.Equal(t, models.ComplianceTypeMandatory, cl.ComplianceType)
		assert.Equal(t, models.ClassificationSourceFallback, cl.Source)
	}
	// the breaker opens after five consecutive failures
	assert.Equal(t, llm.DefaultCircuitBreakerConfig().Threshold, mock.GenerateResponseCalls())
}

func TestClassifyBatch_PreservesOrder(t *testing.T) {
	tokenPattern := regexp.MustCompile(`token-\d+`)
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(_ context.Context, prompt string, _ string, _ float64, _ bool) (*llm.GenerateResponseResult, error) {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
		token := tokenPattern.FindString(prompt)
		return &llm.GenerateResponseResult{
			Content: fmt.Sprintf(`{"category": "technical", "keywords": [%q]}`, token),
		}, nil
	}
	c := newTestClassifier(mock, 4)

	reqs := make([]rfp.ExtractedRequirement, 25)
	for i := range reqs {
		reqs[i] = extracted(fmt.Sprintf("C-%03d", i+1), fmt.Sprintf("The system shall support token-%d.", i))
	}

	got := c.ClassifyBatch(context.Background(), reqs)

	require.Len(t, got, len(reqs))
	for i, cl := range got {
		require.Len(t, cl.Keywords, 1)
		assert.Equal(t, fmt.Sprintf("token-%d", i), cl.Keywords[0])
	}
}

func TestClassifyBatch_Empty(t *testing.T) {
	got := newTestClassifier(nil, 1).ClassifyBatch(context.Background(), nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClassifyBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reqs := []rfp.ExtractedRequirement{
		extracted("C-001", "The contractor shall encrypt backups."),
		extracted("C-002", "Reports should be submitted monthly."),
	}
	got := newTestClassifier(nil, 1).ClassifyBatch(ctx, reqs)

	require.Len(t, got, 2)
	assert.Equal(t, models.ComplianceTypeMandatory, got[0].ComplianceType)
	assert.Equal(t, models.ComplianceTypeRecommended, got[1].ComplianceType)
}

func TestFallbackCategory(t *testing.T) {
	tests := []struct {
		text string
		want models.RequirementCategory
	}{
		{"The contractor shall encrypt all data at rest.", models.CategoryTechnical},
		{"The program manager shall coordinate staffing.", models.CategoryManagement},
		{"The offeror shall submit pricing for each labor category.", models.CategoryCost},
		{"Monthly status reports shall be delivered.", models.CategoryDeliverable},
		{"The contractor shall maintain FedRAMP certification under DFARS clauses.", models.CategoryCompliance},
		{"Something shall happen.", models.CategoryTechnical},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, fallbackCategory(tt.text))
		})
	}
}

func TestFallbackKeywords(t *testing.T) {
	got := fallbackKeywords("Reports and report templates shall include reports.")
	assert.Equal(t, []string{"report", "template"}, got)

	assert.Empty(t, fallbackKeywords("The contractor shall."))
}

func TestFallbackKeywords_Limit(t *testing.T) {
	got := fallbackKeywords("alpha bravo charlie delta echo foxtrot golf alpha")
	assert.Len(t, got, maxKeywords)
	assert.Equal(t, "alpha", got[0])
}
