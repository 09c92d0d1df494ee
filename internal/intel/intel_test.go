package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLegacyPrompt(t *testing.T) {
	p := Parse("Analyze repurposing potential for Metformin in Breast Cancer")

	assert.Equal(t, []string{"repurposing"}, p.Intents)
	assert.Equal(t, []string{"Metformin", "Breast", "Cancer"}, p.Entities.Molecules)
	assert.Equal(t, []string{"oncology"}, p.Entities.DiseaseAreas)
	assert.Equal(t, []string{"antidiabetic"}, p.Entities.DrugClasses)
	assert.Equal(t, MoleculeSpecific, p.QueryType)
	assert.Equal(t, "high", p.Confidence)
	assert.False(t, p.RequiresClarification)

	assert.Equal(t, []string{
		StepClassification,
		StepClinical, StepLiterature, StepMoA, StepPPI, StepSimilarity,
		StepSafety,
		StepInternal,
	}, p.ExecutionPlan)
}

func TestQueryTypePrecedence(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"Which respiratory diseases show low competition?", DiseaseAreaExploration},
		{"Where are antibiotic gaps?", DiseaseAreaExploration},
		{"review corticosteroid positioning", DrugClassAnalysis},
		{"find a market opportunity with high unmet need", MarketOpportunityScan},
		{"which molecules face patent expiry soon", PatentCliffAnalysis},
		{"look for new indication ideas", RepurposingExploration},
		{"opportunities in emerging market portfolios", ComprehensiveAnalysis},
		{"what should we do next", StrategicExploration},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.prompt).QueryType)
		})
	}
}

func TestShortKeywordsMatchWholeWords(t *testing.T) {
	p := Parse("focus on gi disorders for the us market")
	assert.Equal(t, []string{"gastrointestinal"}, p.Entities.DiseaseAreas)
	assert.Equal(t, []string{"us"}, p.Entities.Geographies)

	p = Parse("focus on diverse regions")
	assert.Empty(t, p.Entities.Geographies)
	assert.Empty(t, p.Entities.DiseaseAreas)
}

func TestResultsFollowLexiconOrder(t *testing.T) {
	p := Parse("competitor pressure, supply chain risk and novel market opportunity in cancer and asthma")

	assert.Equal(t, []string{"market_opportunity", "trade_risk", "innovation", "competitive_analysis"}, p.Intents)
	assert.Equal(t, []string{"respiratory", "oncology"}, p.Entities.DiseaseAreas)
}

func TestCommandVerbsAreNotMolecules(t *testing.T) {
	p := Parse("Evaluate, Compare and Identify Aspirin options. What about Europe?")
	assert.Equal(t, []string{"Aspirin"}, p.Entities.Molecules)
}

func TestStrategicPlanRunsEverything(t *testing.T) {
	p := Parse("what should we do next")

	assert.True(t, p.RequiresClarification)
	assert.Equal(t, "moderate", p.Confidence)
	assert.Equal(t, []string{
		StepClassification,
		StepClinical, StepLiterature, StepIQVIA, StepEXIM, StepPatent, StepMoA,
		StepPPI, StepSimilarity, StepCompetitive, StepSafety, StepHypothesis,
		StepInternal,
	}, p.ExecutionPlan)
	assert.Empty(t, Clarification(p))
}

func TestPlanDeduplicatesSteps(t *testing.T) {
	p := Parse("market opportunity for a novel reformulation with trade exposure")

	seen := map[string]int{}
	for _, step := range p.ExecutionPlan {
		seen[step]++
	}
	for step, n := range seen {
		assert.Equal(t, 1, n, step)
	}
	assert.Equal(t, StepClassification, p.ExecutionPlan[0])
	assert.Equal(t, StepInternal, p.ExecutionPlan[len(p.ExecutionPlan)-1])
	assert.True(t, p.Plans(StepSupplyChain))
	assert.True(t, p.HasIntent("reformulation"))
}

func TestTradeIntentPlansSupplyChain(t *testing.T) {
	p := Parse("assess supply chain exposure for Metformin")

	require.True(t, p.HasIntent("trade_risk"))
	assert.Equal(t, MoleculeSpecific, p.QueryType)
	assert.Equal(t, []string{
		StepClassification,
		StepEXIM, StepSupplyChain,
		StepSafety,
		StepInternal,
	}, p.ExecutionPlan)
}

func TestLoadLexiconRejectsEmptyKeyword(t *testing.T) {
	_, err := LoadLexicon([]byte("intents:\n  - name: broken\n    keywords: ['']\n"))
	require.Error(t, err)
}
