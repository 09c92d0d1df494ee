package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/repurpose/internal/agents"
)

type recordingNotifier struct {
	mu      sync.Mutex
	url     string
	payload map[string]any
	err     error
}

func (r *recordingNotifier) Send(_ context.Context, url string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.url = url
	r.payload, _ = payload.(map[string]any)
	return r.err
}

func newAssessor(t *testing.T, n Notifier) *Assessor {
	a := NewAssessor(newFailingSuite(t), n, "http://n8n.local/analysis", nil)
	a.now = fixedNow
	return a
}

func TestAssessorRunsEveryAgent(t *testing.T) {
	notifier := &recordingNotifier{}
	out, err := newAssessor(t, notifier).Run(context.Background(), "Metformin", " Breast Cancer ")
	require.NoError(t, err)

	assert.Equal(t, "Breast Cancer", out.Indication)
	assert.Len(t, out.Results.Results(), 13)
	assert.Equal(t, []string{"GENE1", "GENE2", "GENE3"}, out.Results.PPI.DiseaseGenes)

	h := out.Highlights
	assert.Equal(t, out.Results.Clinical.TotalTrials, h.TotalTrials)
	assert.Equal(t, out.Results.Patent.TotalPatents, h.TotalPatents)
	assert.Equal(t, "82%", h.ApprovalProbability)
	assert.Equal(t, "$50M", h.InvestmentRequired)
	assert.Equal(t, out.Verdict.FeasibilityScore, h.FeasibilityScore)
	assert.GreaterOrEqual(t, h.FeasibilityScore, 0)
	assert.LessOrEqual(t, h.FeasibilityScore, 100)

	assert.Empty(t, out.Verdict.LiveSources)
	assert.Equal(t, "Comprehensive therapeutic area analysis", out.Verdict.DataFoundation)
	assert.Contains(t, out.ExecutiveSummary, "EXECUTIVE INTELLIGENCE REPORT: Metformin for Breast Cancer")
	assert.Contains(t, out.ExecutiveSummary, "Analysis Date: 2025-03-14")
	assert.Contains(t, out.ExecutiveSummary, "STRATEGIC RECOMMENDATION: "+out.Verdict.Recommendation)
	assert.NotContains(t, out.ExecutiveSummary, "<no value>")

	assert.Equal(t, "http://n8n.local/analysis", notifier.url)
	assert.Equal(t, "completed", notifier.payload["status"])
	assert.Equal(t, "Metformin", notifier.payload["drug"])
	assert.Equal(t, out.Verdict.FeasibilityScore, notifier.payload["feasibility_score"])
}

func TestAssessorIsDeterministic(t *testing.T) {
	a := newAssessor(t, nil)
	first, err := a.Run(context.Background(), "Aspirin", "Colorectal Cancer")
	require.NoError(t, err)
	second, err := a.Run(context.Background(), "Aspirin", "Colorectal Cancer")
	require.NoError(t, err)

	assert.Equal(t, first.Verdict, second.Verdict)
	assert.Equal(t, first.ExecutiveSummary, second.ExecutiveSummary)
}

func TestAssessorIgnoresNotificationFailure(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("n8n down")}
	_, err := newAssessor(t, notifier).Run(context.Background(), "Aspirin", "Asthma")
	require.NoError(t, err)
}

func TestAssessorRejectsBlankInput(t *testing.T) {
	_, err := newAssessor(t, nil).Run(context.Background(), "  ", "Asthma")
	require.ErrorIs(t, err, ErrInvalidInput)
}

// fullIntelligence builds a complete result set where every evidence agent
// reports confidence c.
func fullIntelligence(c float64, signals int) *Intelligence {
	base := func(conf float64) agents.Base { return agents.Base{Confidence: conf, DataSource: agents.SourceSynthetic} }
	return &Intelligence{
		Clinical:   &agents.ClinicalResult{Base: base(c), TotalTrials: 20, TotalPatients: 5000},
		Literature: &agents.LiteratureResult{Base: base(c)},
		Patent:     &agents.PatentResult{Base: base(c), TotalPatents: 10, PrimaryExpiry: "2040"},
		Market:     &agents.MarketResult{Base: base(c)},
		Safety:     &agents.SafetyResult{Base: base(c), TotalSafetySignals: signals},
		Regulatory: &agents.RegulatoryResult{Base: base(c)},
		Internal:   &agents.InternalResult{Base: base(c), TotalInvestment: "$50M", TimelineToLaunch: "12 months"},
		MoA:        &agents.MoAResult{Base: base(0.7), MoAScore: 80},
		PPI:        &agents.PPIResult{Base: base(0.7), PPIScore: 80},
		Similarity: &agents.SimilarityResult{Base: base(0.7), SimilarityScore: 60},
	}
}

func TestEvaluateStrongCase(t *testing.T) {
	in := fullIntelligence(0.8, 2)
	in.Clinical.Confidence = 0.9
	in.Clinical.DataSource = agents.SourceLive
	in.Regulatory.Confidence = 0.85
	in.Internal.Confidence = 0.84

	v := Evaluate(in)

	// 18 + 12 + 8 + 12 + 12 + 12 + 6 - 4
	assert.Equal(t, 76, v.FeasibilityScore)
	assert.InDelta(t, 0.79, v.AvgConfidence, 1e-9)
	assert.InDelta(t, 82.7, v.OverallConfidence, 1e-9)
	assert.Equal(t, 83, v.RepurposingScore)
	assert.Equal(t, "SAFE - Well-characterized profile", v.SafetyClass)
	assert.Equal(t, "LOW - Clear pathway with IP protection", v.MarketDifficulty)
	assert.Equal(t, "GREEN - STRONG GO", v.Recommendation)
	assert.Equal(t, []string{"ClinicalTrials.gov"}, v.LiveSources)
	assert.Equal(t, "Real-time data from: ClinicalTrials.gov", v.DataFoundation)

	assert.Equal(t, "Clinical evidence: 20 trials with 5,000 patients demonstrate feasibility", v.ReasonsToPursue[0])
	assert.Equal(t, "Safety profile: Well-characterized profile based on real-world data", v.ReasonsToPursue[2])
	assert.Equal(t, "IP protection: 10 patents providing market exclusivity to 2040", v.ReasonsToPursue[3])
	assert.Equal(t, "Clinical validation: Minimal additional trials may be required", v.Blockers[0])
	assert.Equal(t, "Investment requirement: $50M over 12 months", v.Blockers[4])
	assert.Equal(t, "Proceed to Phase 3 planning", v.NextSteps[0])
}

func TestEvaluateBands(t *testing.T) {
	tests := []struct {
		conf           float64
		signals        int
		safety, market string
		recommendation string
	}{
		{0.6, 5, "MODERATE - Manageable with monitoring", "MODERATE - Competitive but feasible", "YELLOW - PROCEED WITH CAUTION"},
		{0.4, 1, "REQUIRES EVALUATION - Enhanced pharmacovigilance needed", "HIGH - Significant barriers require strategy", "RED - HIGH RISK"},
		{0.8, 4, "MODERATE - Manageable with monitoring", "LOW - Clear pathway with IP protection", "GREEN - STRONG GO"},
	}
	for _, tt := range tests {
		v := Evaluate(fullIntelligence(tt.conf, tt.signals))
		assert.Equal(t, tt.safety, v.SafetyClass)
		assert.Equal(t, tt.market, v.MarketDifficulty)
		assert.Equal(t, tt.recommendation, v.Recommendation)
		assert.Len(t, v.ReasonsToPursue, 5)
		assert.Len(t, v.Blockers, 5)
		assert.Len(t, v.NextSteps, 5)
	}
}

func TestEvaluateClampsFeasibility(t *testing.T) {
	in := fullIntelligence(0, 40)
	in.MoA.MoAScore, in.PPI.PPIScore, in.Similarity.SimilarityScore = 0, 0, 0

	assert.Equal(t, 0, Evaluate(in).FeasibilityScore)
}
