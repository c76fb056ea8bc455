package rfp

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/rfp-shredder/pkg/models"
)

func newExtractor() *RequirementExtractor {
	return NewRequirementExtractor(zap.NewNop(), DefaultSentencesPerPage)
}

func TestExtract_NumberedParagraphs(t *testing.T) {
	text := "3.1.1 The contractor shall encrypt all data at rest using AES-256.\n" +
		"3.1.2 Reports should be submitted monthly.\n" +
		"3.1.3 Additional briefings may be requested."

	reqs := newExtractor().Extract(text, "C", 0)
	require.Len(t, reqs, 3)

	assert.Equal(t, []string{"C-001", "C-002", "C-003"}, []string{reqs[0].ID, reqs[1].ID, reqs[2].ID})
	assert.Equal(t, models.ComplianceTypeMandatory, reqs[0].ComplianceType)
	assert.Equal(t, models.ComplianceTypeRecommended, reqs[1].ComplianceType)
	assert.Equal(t, models.ComplianceTypeOptional, reqs[2].ComplianceType)

	assert.Equal(t, "3.1.1", reqs[0].ParagraphID)
	assert.Equal(t, 3, reqs[0].Depth)
	assert.Equal(t, "The contractor shall encrypt all data at rest using AES-256.", reqs[0].Text)
	assert.Nil(t, reqs[0].PageNumber, "no start page means no page number")
}

func TestExtract_NumberedParagraphsInheritStartPage(t *testing.T) {
	text := "1.1 The contractor shall provide a kickoff briefing.\n1.2 The contractor shall provide weekly reports."

	reqs := newExtractor().Extract(text, "c", 12)
	require.Len(t, reqs, 2)
	for _, r := range reqs {
		require.NotNil(t, r.PageNumber)
		assert.Equal(t, 12, *r.PageNumber)
		assert.Equal(t, "C", r.Section)
	}
}

func TestExtract_SkipsHeadingsAndShortBlocks(t *testing.T) {
	text := "1.1 SCOPE OF WORK\n" +
		"1.2 The contractor shall deliver monthly status reports.\n" +
		"1.3 Yes shall.\n" +
		"1.4 The sky is blue over the facility."

	reqs := newExtractor().Extract(text, "C", 0)
	require.Len(t, reqs, 1)
	assert.Equal(t, "C-001", reqs[0].ID)
	assert.Equal(t, "1.2", reqs[0].ParagraphID)
}

func TestExtract_SentenceFallback(t *testing.T) {
	text := "The contractor shall provide monthly reports. The building is located downtown near the river. " +
		"Offerors should include resumes for key staff. Short one may."

	reqs := newExtractor().Extract(text, "L", 0)
	require.Len(t, reqs, 2)

	assert.Equal(t, "L-001", reqs[0].ID)
	assert.Equal(t, models.ComplianceTypeMandatory, reqs[0].ComplianceType)
	assert.Equal(t, "The contractor shall provide monthly reports.", reqs[0].Text)
	assert.Equal(t, "L-002", reqs[1].ID)
	assert.Equal(t, models.ComplianceTypeRecommended, reqs[1].ComplianceType)
	assert.Empty(t, reqs[0].ParagraphID)
}

func TestExtract_NoMatchNeverEmitted(t *testing.T) {
	text := "The facility is open on weekdays from eight to five. Parking is available in the north lot for visitors."
	assert.Empty(t, newExtractor().Extract(text, "C", 1))
}

func TestExtract_SentencePageEstimate(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&b, "Item %d requires that the contractor shall deliver widget %d. ", i, i)
	}

	reqs := NewRequirementExtractor(zap.NewNop(), 50).Extract(b.String(), "C", 10)
	require.Len(t, reqs, 120)
	assert.Equal(t, 10, *reqs[0].PageNumber)
	assert.Equal(t, 10, *reqs[49].PageNumber)
	assert.Equal(t, 11, *reqs[50].PageNumber)
	assert.Equal(t, 12, *reqs[119].PageNumber)
	assert.Equal(t, "C-120", reqs[119].ID)
}

func TestSplitSentences_Abbreviations(t *testing.T) {
	text := "The U.S. Government shall receive all deliverables on time. " +
		"Offerors may propose alternate schedules, e.g. Phased delivery plans. Is that clear? Yes!"

	sentences := SplitSentences(text)
	require.Len(t, sentences, 4)
	assert.Equal(t, "The U.S. Government shall receive all deliverables on time.", sentences[0])
	assert.Equal(t, "Offerors may propose alternate schedules, e.g. Phased delivery plans.", sentences[1])
	assert.Equal(t, "Is that clear?", sentences[2])
	assert.Equal(t, "Yes!", sentences[3])
}

func TestSplitSentences_SingleLetterBeforePeriodEndsSentence(t *testing.T) {
	sentences := SplitSentences("All deliverables are listed in Attachment J. The contractor shall submit a monthly status report to the COR.")
	require.Len(t, sentences, 2)
	assert.Equal(t, "All deliverables are listed in Attachment J.", sentences[0])
	assert.Equal(t, "The contractor shall submit a monthly status report to the COR.", sentences[1])
}

func TestSplitSentences_TimeOfDay(t *testing.T) {
	sentences := SplitSentences("Proposals are due by 5 p.m. Eastern time on the closing date.")
	assert.Equal(t, []string{"Proposals are due by 5 p.m. Eastern time on the closing date."}, sentences)
}

func TestExtract_SentenceEndingInLetterReferenceKeepsItsOwnType(t *testing.T) {
	text := "Offerors may propose alternate staffing as described in Appendix A. " +
		"The contractor shall perform all work described in Section C."

	reqs := newExtractor().Extract(text, "L", 0)
	require.Len(t, reqs, 2)
	assert.Equal(t, models.ComplianceTypeOptional, reqs[0].ComplianceType)
	assert.Equal(t, "Offerors may propose alternate staffing as described in Appendix A.", reqs[0].Text)
	assert.Equal(t, models.ComplianceTypeMandatory, reqs[1].ComplianceType)
	assert.Equal(t, "The contractor shall perform all work described in Section C.", reqs[1].Text)
}

func TestSplitSentences_NoBreakBeforeLowercase(t *testing.T) {
	sentences := SplitSentences("Version 2.0 is current. see attachment for details.")
	assert.Len(t, sentences, 1)
}

func TestIsNegativeSentence(t *testing.T) {
	assert.True(t, isNegativeSentence("Page 12 of 40 shall not be blank"))
	assert.True(t, isNegativeSentence("Figure 3 The contractor shall follow the diagram"))
	assert.True(t, isNegativeSentence("3.2.1"))
	assert.False(t, isNegativeSentence("The contractor shall provide all labor."))
}

func TestFormatRequirementID(t *testing.T) {
	assert.Equal(t, "C-001", FormatRequirementID("C", 1))
	assert.Equal(t, "M-042", FormatRequirementID("M", 42))
	assert.Equal(t, "L-1000", FormatRequirementID("L", 1000))
}
