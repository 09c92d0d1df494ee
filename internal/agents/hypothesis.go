package agents

import (
	"fmt"
	"strings"
)

const hypothesisDisclaimer = "These are speculative research hypotheses. NOT clinical recommendations. Requires experimental validation."

// EvidenceFeatures are the confidence scores of the evidence agents that fed a
// hypothesis run. Missing agents contribute 0.5.
type EvidenceFeatures struct {
	ClinicalConfidence   float64 `json:"clinical_confidence"`
	LiteratureConfidence float64 `json:"literature_confidence"`
	SafetyConfidence     float64 `json:"safety_confidence"`
	MarketConfidence     float64 `json:"market_confidence"`
}

type Hypothesis struct {
	ID          string   `json:"hypothesis_id"`
	Type        string   `json:"type"`
	Statement   string   `json:"statement"`
	Evidence    []string `json:"supporting_evidence"`
	Predictions []string `json:"testable_predictions"`
	Confidence  string   `json:"confidence"`
	Priority    string   `json:"priority"`
}

type HypothesisStrength struct {
	Overall                int    `json:"overall_strength"`
	Category               string `json:"category"`
	Description            string `json:"description"`
	EvidenceIntegration    int    `json:"evidence_integration_score"`
	MechanisticCoherence   int    `json:"mechanistic_coherence"`
	TranslationalPotential int    `json:"translational_potential"`
}

type UncertaintyFlag struct {
	Category   string `json:"category"`
	Flag       string `json:"flag"`
	Impact     string `json:"impact"`
	Mitigation string `json:"mitigation"`
}

type HypothesisResult struct {
	Base
	Hypotheses       []Hypothesis       `json:"hypotheses"`
	Strength         HypothesisStrength `json:"hypothesis_strength"`
	UncertaintyFlags []UncertaintyFlag  `json:"uncertainty_flags"`
	EvidenceFeatures EvidenceFeatures   `json:"evidence_features"`
	Disclaimer       string             `json:"disclaimer"`
}

// Hypotheses proposes testable research hypotheses from the mechanistic
// results. Any of moa, ppi and sim may be nil; their scores then count as 50.
func (s *Suite) Hypotheses(drug, indication string, moa *MoAResult, ppi *PPIResult, sim *SimilarityResult, features EvidenceFeatures) *HypothesisResult {
	seed := ArithSeed(drug, indication, "hyp")

	moaScore, ppiScore, simScore := 50, 50, 50
	target, targetCount := "molecular target", 0
	if moa != nil {
		moaScore = moa.MoAScore
		targetCount = len(moa.Targets)
		if targetCount > 0 {
			target = moa.Targets[0].Name
		}
	}
	interactions, centrality := 0, 50
	if ppi != nil {
		ppiScore = ppi.PPIScore
		interactions = len(ppi.Direct)
		centrality = ppi.Metrics.CentralityScore
	}
	approved, patho, shared := "approved indication", 50, 3
	if sim != nil {
		simScore = sim.SimilarityScore
		patho = sim.Metrics.Pathophysiology
		shared = sim.Metrics.SharedPathways
		if len(sim.ApprovedIndications) > 0 {
			approved = sim.ApprovedIndications[0].Indication
		}
	}

	hypotheses := []Hypothesis{
		{
			ID:   "H1",
			Type: "Mechanistic",
			Statement: fmt.Sprintf("%s may exert therapeutic effects in %s through modulation of %s, "+
				"leading to downstream regulation of disease-relevant pathways identified in the MoA analysis.",
				drug, indication, target),
			Evidence: []string{
				fmt.Sprintf("MoA score: %d/100", moaScore),
				fmt.Sprintf("Target engagement with %d key proteins", targetCount),
				"Pathway modulation aligned with disease biology",
			},
			Predictions: []string{
				fmt.Sprintf("Treatment should modulate %s activity in disease models", target),
				"Downstream pathway markers should show dose-dependent changes",
				"Efficacy should correlate with target engagement levels",
			},
			Confidence: ifElse(moaScore > 60, "Moderate", "Low"),
			Priority:   "High",
		},
		{
			ID:   "H2",
			Type: "Network-based",
			Statement: fmt.Sprintf("The %d direct protein-protein interactions between drug targets and "+
				"disease proteins suggest that %s may modulate disease-critical protein complexes "+
				"and signaling networks in %s.", interactions, drug, indication),
			Evidence: []string{
				fmt.Sprintf("PPI score: %d/100", ppiScore),
				fmt.Sprintf("%d direct interactions identified", interactions),
				fmt.Sprintf("Network centrality score: %d/100", centrality),
			},
			Predictions: []string{
				"Protein complex formation should be altered in disease models",
				"Network-level changes should precede phenotypic effects",
				"Combination with network-adjacent targets may show synergy",
			},
			Confidence: ifElse(ppiScore > 60, "Moderate", "Low"),
			Priority:   "Medium",
		},
		{
			ID:   "H3",
			Type: "Translational",
			Statement: fmt.Sprintf("Given the %d%% disease similarity between %s and %s, "+
				"the established therapeutic effects of %s may translate to the target indication "+
				"through shared pathophysiological mechanisms.", simScore, indication, approved, drug),
			Evidence: []string{
				fmt.Sprintf("Disease similarity score: %d/100", simScore),
				fmt.Sprintf("Pathophysiology overlap: %d%%", patho),
				fmt.Sprintf("Shared pathways: %d", shared),
			},
			Predictions: []string{
				"Clinical endpoints should mirror those in approved indications",
				"Patient stratification by similarity biomarkers may predict response",
				"Safety profile should be comparable to approved uses",
			},
			Confidence: ifElse(simScore > 65, "Moderate", "Low"),
			Priority:   "High",
		},
	}

	overall := int(round(0.35*float64(moaScore)+0.30*float64(ppiScore)+0.35*float64(simScore), 0))
	strength := HypothesisStrength{
		Overall:                overall,
		Category:               "Weak",
		Description:            "Preliminary mechanistic rationale requiring substantial additional validation",
		EvidenceIntegration:    min(100, 50+seed%50),
		MechanisticCoherence:   min(100, moaScore+seed%20),
		TranslationalPotential: min(100, simScore+seed%15),
	}
	switch {
	case overall >= 75:
		strength.Category = "Strong"
		strength.Description = "High confidence in mechanistic rationale with robust supporting evidence"
	case overall >= 60:
		strength.Category = "Moderate"
		strength.Description = "Reasonable mechanistic rationale with moderate supporting evidence"
	}

	res := &HypothesisResult{
		Base: Base{
			Agent:        "hypotheses",
			Section:      "AI-Driven Hypothesis Generation",
			DataSource:   SourceSynthetic,
			Confidence:   min(0.85, 0.50+float64(seed%35)/100),
			QualityNotes: "AI-generated hypotheses based on integrated evidence analysis",
		},
		Hypotheses:       hypotheses,
		Strength:         strength,
		UncertaintyFlags: uncertaintyFlags(moaScore, ppiScore, simScore),
		EvidenceFeatures: features,
		Disclaimer:       hypothesisDisclaimer,
	}

	table := Table{Title: "Research Hypotheses", Columns: []string{"ID", "Type", "Confidence", "Priority"}}
	for _, h := range hypotheses {
		table.Rows = append(table.Rows, []string{h.ID, h.Type, h.Confidence, h.Priority})
	}
	flags := Table{Title: "Uncertainty Flags", Columns: []string{"Category", "Flag", "Impact", "Mitigation"}}
	for _, f := range res.UncertaintyFlags {
		flags.Rows = append(flags.Rows, []string{f.Category, f.Flag, f.Impact, f.Mitigation})
	}
	res.Tables = []Table{table, flags}
	res.KeyFindings = []string{
		fmt.Sprintf("Generated %d testable research hypotheses", len(hypotheses)),
		fmt.Sprintf("Hypothesis strength: %d/100", overall),
		"Conservative approach with explicit uncertainty acknowledgment",
		"Requires experimental validation before clinical translation",
	}
	res.Summary = fmt.Sprintf("%d hypotheses for %s in %s, overall strength %d/100 (%s).",
		len(hypotheses), drug, indication, overall, strength.Category)

	var b strings.Builder
	fmt.Fprintf(&b, "AI-DRIVEN HYPOTHESIS GENERATION\n\n")
	fmt.Fprintf(&b, "Overall hypothesis strength: %d/100 (%s). %s.\n\n", overall, strength.Category, strength.Description)
	for _, h := range hypotheses {
		fmt.Fprintf(&b, "%s (%s, %s priority): %s\n\n", h.ID, h.Type, h.Priority, h.Statement)
	}
	fmt.Fprintf(&b, "Mechanistic coherence: %d/100. Translational potential: %d/100. Evidence integration: %d/100.\n\n",
		strength.MechanisticCoherence, strength.TranslationalPotential, strength.EvidenceIntegration)
	b.WriteString(hypothesisDisclaimer)
	res.Narrative = b.String()
	return res
}

func uncertaintyFlags(moaScore, ppiScore, simScore int) []UncertaintyFlag {
	var flags []UncertaintyFlag
	if moaScore < 70 {
		flags = append(flags, UncertaintyFlag{"Mechanistic", "Incomplete target characterization", "Medium", "Conduct additional target validation studies"})
	}
	if ppiScore < 65 {
		flags = append(flags, UncertaintyFlag{"Network", "Limited interaction evidence", "Medium", "Perform experimental PPI validation"})
	}
	if simScore < 70 {
		flags = append(flags, UncertaintyFlag{"Translational", "Moderate disease similarity", "High", "Conduct comparative disease biology studies"})
	}
	return append(flags, UncertaintyFlag{
		"Clinical", "Hypotheses require experimental validation", "Critical",
		"Design and execute preclinical validation studies before clinical translation",
	})
}
