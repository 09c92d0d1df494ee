package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Skufu/repurpose/internal/agents"
	"github.com/Skufu/repurpose/internal/intel"
)

const (
	defaultMolecule = "Generic Molecule"
	defaultDisease  = "Target Indication"

	maxInsights      = 8
	insightsPerAgent = 2
	maxFlagRisks     = 3
)

// Recommendation classes.
const (
	WorthPursuing      = "Worth Pursuing"
	RequiresValidation = "Requires Validation"
	HighRisk           = "High Risk / Exploratory"
)

type Recommendation struct {
	Classification string `json:"classification"`
	Rationale      string `json:"rationale"`
	ConfidenceBand string `json:"confidence_band"`
}

// StrategicResponse is the answer to a strategic prompt. It reports
// qualitative bands rather than percentages.
type StrategicResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
	OriginalPrompt string `json:"original_prompt"`
	QueryType      string `json:"query_type,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`

	EvidenceStrength         string `json:"evidence_strength,omitempty"`
	InnovationAttractiveness string `json:"innovation_attractiveness,omitempty"`
	ScientificPlausibility   string `json:"scientific_plausibility,omitempty"`
	CommercialFeasibility    string `json:"commercial_feasibility,omitempty"`

	ExecutiveSummary        string         `json:"executive_summary,omitempty"`
	KeyInsights             []string       `json:"key_insights"`
	RisksAndUnknowns        []string       `json:"risks_and_unknowns"`
	StrategicRecommendation Recommendation `json:"strategic_recommendation"`
	SuggestedNextSteps      []string       `json:"suggested_next_steps"`

	DetailedIntelligence *Intelligence `json:"detailed_intelligence,omitempty"`

	AgentsActivated    []string       `json:"agents_activated"`
	EntitiesIdentified intel.Entities `json:"entities_identified"`
}

// Strategic answers free-form portfolio questions.
type Strategic struct {
	agents *agents.Suite
	logger *zap.Logger
	now    func() time.Time
}

func NewStrategic(suite *agents.Suite, logger *zap.Logger) *Strategic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategic{agents: suite, logger: logger, now: time.Now}
}

// Run parses prompt, runs the agents its execution plan names and
// synthesises the strategic response. It fails only when ctx is done.
func (s *Strategic) Run(ctx context.Context, prompt string) (*StrategicResponse, error) {
	parsed := intel.Parse(prompt)
	s.logger.Info("strategic analysis started",
		zap.String("query_type", parsed.QueryType),
		zap.Strings("intents", parsed.Intents),
		zap.Strings("plan", parsed.ExecutionPlan))

	if msg := intel.Clarification(parsed); msg != "" {
		return &StrategicResponse{Status: "clarification_needed", Message: msg, OriginalPrompt: prompt}, nil
	}

	drug, disease := defaultMolecule, defaultDisease
	if len(parsed.Entities.Molecules) > 0 {
		drug = parsed.Entities.Molecules[0]
	}
	if len(parsed.Entities.DiseaseAreas) > 0 {
		disease = parsed.Entities.DiseaseAreas[0]
	}

	timestamp := s.now().Format(time.RFC3339)
	in, err := gather(ctx, s.agents, drug, disease, planSelection(parsed), nil)
	if err != nil {
		return nil, err
	}

	resp := Synthesize(prompt, parsed, in)
	resp.Timestamp = timestamp
	s.logger.Info("strategic analysis finished",
		zap.String("evidence_strength", resp.EvidenceStrength),
		zap.String("recommendation", resp.StrategicRecommendation.Classification),
		zap.Int("agents", len(in.Results())))
	return resp, nil
}

func planSelection(p intel.Parsed) selection {
	return selection{
		iqvia:      p.Plans(intel.StepIQVIA),
		exim:       p.Plans(intel.StepEXIM),
		clinical:   p.Plans(intel.StepClinical),
		literature: p.Plans(intel.StepLiterature),
		patent:     p.Plans(intel.StepPatent, intel.StepReformulation),
		market:     p.Plans(intel.StepCompetitive, intel.StepMarket),
		safety:     p.Plans(intel.StepSafety),
		moa:        p.Plans(intel.StepMoA),
		ppi:        p.Plans(intel.StepPPI),
		similarity: p.Plans(intel.StepSimilarity),
		hypotheses: p.Plans(intel.StepHypothesis),
		internal:   p.Plans(intel.StepInternal),
		regulatory: len(p.Entities.Molecules) > 0,
	}
}

// Synthesize builds the response for already gathered intelligence.
func Synthesize(prompt string, parsed intel.Parsed, in *Intelligence) *StrategicResponse {
	evidence := EvidenceStrength(in)
	innovation := InnovationAttractiveness(in)
	plausibility := ScientificPlausibility(in)
	commercial := CommercialFeasibility(in)
	rec := Recommend(evidence, innovation, plausibility)

	return &StrategicResponse{
		Status:                   "success",
		OriginalPrompt:           prompt,
		QueryType:                parsed.QueryType,
		EvidenceStrength:         evidence,
		InnovationAttractiveness: innovation,
		ScientificPlausibility:   plausibility,
		CommercialFeasibility:    commercial,
		ExecutiveSummary:         executiveNarrative(parsed, in, evidence, innovation, plausibility, commercial),
		KeyInsights:              keyInsights(in),
		RisksAndUnknowns:         risks(in),
		StrategicRecommendation:  rec,
		SuggestedNextSteps:       nextSteps(rec.Classification),
		DetailedIntelligence:     in,
		AgentsActivated:          parsed.ExecutionPlan,
		EntitiesIdentified:       parsed.Entities,
	}
}

// EvidenceStrength counts the evidence sources present and the ones of high
// quality: more than ten trials, literature confidence above 0.70.
func EvidenceStrength(in *Intelligence) string {
	count, quality := 0, 0
	if in.Clinical != nil {
		count++
		if in.Clinical.TotalTrials > 10 {
			quality++
		}
	}
	if in.Literature != nil {
		count++
		if in.Literature.Confidence > 0.70 {
			quality++
		}
	}
	if in.Patent != nil {
		count++
	}
	if in.Safety != nil {
		count++
	}

	switch {
	case quality >= 3:
		return "High"
	case count >= 3 && quality >= 1:
		return "Moderate"
	case count >= 2:
		return "Low"
	default:
		return "Very Low"
	}
}

func InnovationAttractiveness(in *Intelligence) string {
	signals := 0
	if in.IQVIA != nil {
		switch {
		case in.IQVIA.CAGRPercent > 10:
			signals += 2
		case in.IQVIA.CAGRPercent > 5:
			signals++
		}
	}
	if in.Patent != nil && in.Patent.ExpiringSoon > 0 {
		signals++
	}
	if in.Market != nil {
		switch in.Market.CompetitiveDensity {
		case "low":
			signals += 2
		case "moderate":
			signals++
		}
	}

	switch {
	case signals >= 4:
		return "Strong"
	case signals >= 2:
		return "Promising"
	default:
		return "Weak"
	}
}

// ScientificPlausibility averages the mechanistic scores. Without an MoA
// score there is nothing to average and the verdict is Unsupported.
func ScientificPlausibility(in *Intelligence) string {
	var moa, ppi, sim int
	if in.MoA != nil {
		moa = in.MoA.MoAScore
	}
	if in.PPI != nil {
		ppi = in.PPI.PPIScore
	}
	if in.Similarity != nil {
		sim = in.Similarity.SimilarityScore
	}

	var avg float64
	if moa != 0 {
		avg = float64(moa+ppi+sim) / 3
	}
	switch {
	case avg >= 75:
		return "Mechanistically Supported"
	case avg >= 50:
		return "Hypothesis-Level"
	default:
		return "Unsupported"
	}
}

func CommercialFeasibility(in *Intelligence) string {
	score := 0
	if in.Market != nil {
		switch {
		case in.Market.Confidence > 0.7:
			score += 2
		case in.Market.Confidence > 0.5:
			score++
		}
	}
	if in.Patent != nil && in.Patent.Confidence > 0.7 {
		score++
	}
	if in.Regulatory != nil && in.Regulatory.Confidence > 0.7 {
		score++
	}

	switch {
	case score >= 3:
		return "High"
	case score >= 2:
		return "Medium"
	default:
		return "Low"
	}
}

func Recommend(evidence, innovation, plausibility string) Recommendation {
	strongEvidence := evidence == "High" || evidence == "Moderate"
	attractive := innovation == "Strong" || innovation == "Promising"

	switch {
	case strongEvidence && attractive && plausibility == "Mechanistically Supported":
		return Recommendation{
			Classification: WorthPursuing,
			Rationale:      "Strong evidence base, attractive market opportunity, and solid scientific rationale support further investment.",
			ConfidenceBand: "High Confidence",
		}
	case (evidence == "Moderate" || evidence == "Low") && attractive:
		return Recommendation{
			Classification: RequiresValidation,
			Rationale:      "Market opportunity exists but evidence gaps require targeted research before major investment.",
			ConfidenceBand: "Moderate Confidence",
		}
	default:
		return Recommendation{
			Classification: HighRisk,
			Rationale:      "Significant uncertainties and limited evidence. Consider only for early-stage exploration.",
			ConfidenceBand: "Low Confidence",
		}
	}
}

func nextSteps(classification string) []string {
	switch classification {
	case WorthPursuing:
		return []string{
			"Conduct detailed competitive intelligence and market sizing",
			"Engage regulatory consultants for pathway optimization",
			"Develop comprehensive development timeline and budget",
		}
	case RequiresValidation:
		return []string{
			"Commission targeted literature review and expert consultation",
			"Conduct preliminary market research and payer interviews",
			"Evaluate preclinical validation requirements",
		}
	default:
		return []string{
			"Monitor therapeutic area for emerging evidence",
			"Consider alternative indications or formulations",
			"Reassess if new clinical data becomes available",
		}
	}
}

func keyInsights(in *Intelligence) []string {
	insights := []string{}
	for _, r := range in.Results() {
		findings := r.Common().KeyFindings
		insights = append(insights, findings[:min(insightsPerAgent, len(findings))]...)
	}
	return insights[:min(maxInsights, len(insights))]
}

func risks(in *Intelligence) []string {
	out := []string{}
	if in.Clinical == nil {
		out = append(out, "No clinical trial data available - efficacy unvalidated")
	}
	if in.Safety == nil {
		out = append(out, "Safety profile not fully characterized")
	}
	if in.Hypotheses != nil {
		flags := in.Hypotheses.UncertaintyFlags
		for _, f := range flags[:min(maxFlagRisks, len(flags))] {
			out = append(out, orUnknown(f.Flag))
		}
	}
	return out
}

func orUnknown(flag string) string {
	if flag == "" {
		return "Unknown risk"
	}
	return flag
}

func executiveNarrative(parsed intel.Parsed, in *Intelligence, evidence, innovation, plausibility, commercial string) string {
	var lead string
	switch e := parsed.Entities; {
	case len(e.Molecules) > 0:
		lead = "Analysis of " + strings.Join(e.Molecules, ", ")
	case len(e.DiseaseAreas) > 0:
		lead = "Strategic exploration of " + strings.Join(e.DiseaseAreas, ", ") + " therapeutic area"
	default:
		lead = "Portfolio strategy analysis"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n", lead)
	fmt.Fprintf(&b, "**Query Intent**: %s\n\n", TitleCase(parsed.QueryType))
	b.WriteString("**Evidence Assessment**:\n")
	fmt.Fprintf(&b, "• Evidence Strength: %s\n", evidence)
	fmt.Fprintf(&b, "• Scientific Plausibility: %s\n", plausibility)
	fmt.Fprintf(&b, "• Innovation Attractiveness: %s\n", innovation)
	fmt.Fprintf(&b, "• Commercial Feasibility: %s\n\n", commercial)
	fmt.Fprintf(&b, "**Strategic Context**:\n%s\n\n", strategicContext(in))
	fmt.Fprintf(&b, "**Key Considerations**:\n%s", strings.Join(considerations(in, evidence), "\n"))
	return b.String()
}

func strategicContext(in *Intelligence) string {
	points := []string{}
	if in.Clinical != nil && in.Clinical.TotalTrials > 0 {
		points = append(points, fmt.Sprintf("%d clinical trials identified in relevant therapeutic areas", in.Clinical.TotalTrials))
	}
	if in.IQVIA != nil && in.IQVIA.MarketSizeMillions > 0 {
		points = append(points, fmt.Sprintf("Market size estimated at $%sM with observable growth trends",
			strconv.FormatFloat(in.IQVIA.MarketSizeMillions, 'f', -1, 64)))
	}
	if in.Patent != nil && in.Patent.TotalPatents > 0 {
		points = append(points, fmt.Sprintf("%d relevant patents identified in IP landscape", in.Patent.TotalPatents))
	}
	if len(points) == 0 {
		return "Limited direct evidence available in current datasets. Analysis based on therapeutic area patterns and mechanistic rationale."
	}
	return strings.Join(points, " • ")
}

func considerations(in *Intelligence, evidence string) []string {
	out := []string{}
	if evidence == "Very Low" || evidence == "Low" {
		out = append(out, "Limited direct evidence - conclusions are exploratory")
	}
	if in.Safety != nil && in.Safety.TotalSafetySignals > 5 {
		out = append(out, "Notable safety signals require careful evaluation")
	}
	if in.Hypotheses != nil {
		out = append(out, "AI-generated hypotheses require experimental validation")
	}
	if len(out) == 0 {
		out = append(out, "Evidence base supports further strategic evaluation")
	}
	return out
}

// TitleCase turns an identifier like "molecule_specific" into
// "Molecule Specific".
func TitleCase(id string) string {
	words := strings.Fields(strings.ReplaceAll(id, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
