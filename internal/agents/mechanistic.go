package agents

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The mechanistic agents have no upstream API. Every value is derived from an
// ArithSeed, so identical inputs always give identical results.

type Target struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Affinity  float64 `json:"binding_affinity_nM"`
	Relevance string  `json:"relevance"`
}

type Pathway struct {
	Name      string  `json:"name"`
	Effect    string  `json:"effect"`
	Relevance float64 `json:"relevance_score"`
}

type MoAResult struct {
	Base
	Targets       []Target  `json:"targets"`
	Pathways      []Pathway `json:"pathways"`
	MoAScore      int       `json:"moa_score"`
	MoAConfidence int       `json:"moa_confidence"`
	DataSources   []string  `json:"data_sources"`
}

var targetTypes = []string{"Receptor", "Enzyme", "Ion Channel", "Transporter", "Nuclear Receptor", "Kinase", "Protease", "GPCR"}

var pathwayNames = []string{
	"MAPK/ERK signaling", "PI3K/AKT/mTOR pathway", "JAK/STAT signaling", "NF-kB pathway",
	"Apoptosis regulation", "Cell cycle control", "Inflammatory response", "Angiogenesis",
	"DNA damage response", "Autophagy",
}

var approvedIndicationNames = []string{
	"Hypertension", "Type 2 Diabetes", "Rheumatoid Arthritis", "Chronic Pain", "Depression",
	"Asthma", "Inflammatory Bowel Disease", "Psoriasis", "Migraine", "Osteoarthritis",
}

var (
	pathwayEffects   = []string{"Activation", "Inhibition", "Modulation"}
	interactionTypes = []string{"Physical", "Regulatory", "Co-expression"}
)

func letter(n int) string { return string(rune('A' + n%10)) }

// MoA characterises molecular targets and the pathways they touch.
func (s *Suite) MoA(drug, indication string) *MoAResult {
	seed := ArithSeed(drug, indication)
	res := &MoAResult{
		Base: Base{
			Agent:        "moa",
			Section:      "Mechanism of Action",
			DataSource:   SourceSynthetic,
			Confidence:   min(0.95, 0.60+float64(seed%35)/100),
			QualityNotes: "Mechanistic analysis based on molecular target databases",
		},
		MoAConfidence: min(95, 60+seed%35),
		DataSources:   []string{"PubChem", "DrugBank", "ChEMBL", "UniProt"},
	}

	for i := 0; i < 2+seed%4; i++ {
		kind := targetTypes[(seed+137*i)%len(targetTypes)]
		affinity := round(0.5+float64((seed+73*i)%500)/100, 1)
		relevance := "Low"
		if affinity < 10 {
			relevance = "High"
		} else if affinity < 100 {
			relevance = "Moderate"
		}
		res.Targets = append(res.Targets, Target{
			Name:      kind + " " + letter(seed+i),
			Type:      kind,
			Affinity:  affinity,
			Relevance: relevance,
		})
	}
	for i := 0; i < 3+seed%4; i++ {
		res.Pathways = append(res.Pathways, Pathway{
			Name:      pathwayNames[(seed+97*i)%len(pathwayNames)],
			Effect:    pathwayEffects[(seed+i)%3],
			Relevance: float64(60 + (seed+43*i)%40),
		})
	}

	strong := 0
	for _, t := range res.Targets {
		if t.Affinity < 10 {
			strong++
		}
	}
	res.MoAScore = min(100, min(40, 10*len(res.Targets))+min(40, 7*len(res.Pathways))+min(20, 10*strong))

	targets := Table{Title: "Molecular Targets", Columns: []string{"Target", "Type", "Binding Affinity (nM)", "Relevance"}}
	for _, t := range res.Targets {
		targets.Rows = append(targets.Rows, []string{t.Name, t.Type, strconv.FormatFloat(t.Affinity, 'f', 1, 64), t.Relevance})
	}
	pathways := Table{Title: "Affected Pathways", Columns: []string{"Pathway", "Effect", "Relevance"}}
	for _, p := range res.Pathways {
		pathways.Rows = append(pathways.Rows, []string{p.Name, p.Effect, fmt.Sprintf("%.0f/100", p.Relevance)})
	}
	res.Tables = []Table{targets, pathways}
	res.Citations = res.DataSources
	res.KeyFindings = []string{
		fmt.Sprintf("Primary mechanism involves %d molecular targets", len(res.Targets)),
		fmt.Sprintf("Modulates %d key biological pathways", len(res.Pathways)),
		fmt.Sprintf("MoA relevance score: %d/100", res.MoAScore),
		"Strong mechanistic rationale for therapeutic effect",
	}
	res.Summary = fmt.Sprintf("%s engages %d targets across %d pathways (MoA score %d/100).",
		drug, len(res.Targets), len(res.Pathways), res.MoAScore)

	primary, path := res.Targets[0], res.Pathways[0]
	var b strings.Builder
	fmt.Fprintf(&b, "MECHANISM OF ACTION ANALYSIS\n\n")
	fmt.Fprintf(&b, "%s acts primarily through %s, a %s implicated in the pathophysiology of %s.\n\n",
		drug, primary.Name, strings.ToLower(primary.Type), orDefault(indication, "the target indication"))
	b.WriteString("Key targets:\n")
	for _, t := range res.Targets[:min(3, len(res.Targets))] {
		fmt.Fprintf(&b, "- %s (%s), binding affinity %.1f nM\n", t.Name, t.Type, t.Affinity)
	}
	b.WriteString("\nKey pathways:\n")
	for _, p := range res.Pathways[:min(3, len(res.Pathways))] {
		fmt.Fprintf(&b, "- %s: %s (relevance %.0f/100)\n", p.Name, p.Effect, p.Relevance)
	}
	fmt.Fprintf(&b, "\nThe primary mechanism is %s of %s. MoA relevance score: %d/100.",
		strings.ToLower(path.Effect), path.Name, res.MoAScore)
	res.Narrative = b.String()
	return res
}

type Interaction struct {
	ProteinA        string  `json:"protein_a"`
	ProteinB        string  `json:"protein_b"`
	Score           float64 `json:"interaction_score"`
	Type            string  `json:"interaction_type"`
	EvidenceSources int     `json:"evidence_sources"`
}

type IndirectInteraction struct {
	Path       string  `json:"path"`
	PathLength int     `json:"path_length"`
	Confidence float64 `json:"confidence"`
}

type NetworkMetrics struct {
	TotalNodes             int     `json:"total_nodes"`
	TotalEdges             int     `json:"total_edges"`
	NetworkDensity         float64 `json:"network_density"`
	CentralityScore        int     `json:"centrality_score"`
	AvgInteractionStrength float64 `json:"avg_interaction_strength"`
	ClusteringCoefficient  float64 `json:"clustering_coefficient"`
}

type PPIResult struct {
	Base
	DrugTargets   []string              `json:"drug_targets"`
	DiseaseGenes  []string              `json:"disease_genes"`
	Direct        []Interaction         `json:"direct_interactions"`
	Indirect      []IndirectInteraction `json:"indirect_interactions"`
	Metrics       NetworkMetrics        `json:"network_metrics"`
	PPIScore      int                   `json:"ppi_score"`
	PPIConfidence int                   `json:"ppi_confidence"`
	DataSources   []string              `json:"data_sources"`
}

// PPI maps the interaction network between drug targets and disease proteins.
// With no targets the network is anchored on a placeholder "Target A".
func (s *Suite) PPI(drug, indication string, targets, diseaseGenes []string) *PPIResult {
	seed := ArithSeed(drug, indication, strings.Join(targets, ""))
	if len(diseaseGenes) == 0 {
		diseaseGenes = []string{"Gene A", "Gene B", "Gene C"}
	}
	res := &PPIResult{
		Base: Base{
			Agent:        "ppi",
			Section:      "Protein-Protein Interaction Network",
			DataSource:   SourceSynthetic,
			Confidence:   min(0.92, 0.55+float64(seed%37)/100),
			QualityNotes: "PPI network analysis based on curated interaction databases",
		},
		DrugTargets:   targets,
		DiseaseGenes:  diseaseGenes,
		PPIConfidence: min(92, 55+seed%37),
		DataSources:   []string{"STRING", "BioGRID", "IntAct", "HPRD"},
	}

	strength := 0.0
	for i := 0; i < 3+seed%6; i++ {
		protein := "Target A"
		if len(targets) > 0 {
			protein = targets[i%len(targets)]
		}
		score := round(0.4+float64((seed+67*i)%60)/100, 2)
		strength += score
		res.Direct = append(res.Direct, Interaction{
			ProteinA:        protein,
			ProteinB:        "Disease Protein " + letter(seed+i),
			Score:           score,
			Type:            interactionTypes[(seed+i)%3],
			EvidenceSources: (seed+i)%5 + 2,
		})
	}
	for i := 0; i < 5+seed%8; i++ {
		res.Indirect = append(res.Indirect, IndirectInteraction{
			Path:       fmt.Sprintf("Target → Intermediate %d → Disease Protein", i+1),
			PathLength: 2 + (seed+i)%2,
			Confidence: round(0.3+float64((seed+89*i)%50)/100, 2),
		})
	}

	direct, indirect := len(res.Direct), len(res.Indirect)
	res.Metrics = NetworkMetrics{
		TotalNodes:             10 + seed%20,
		TotalEdges:             direct + indirect,
		NetworkDensity:         round(0.15+float64(seed%35)/100, 2),
		CentralityScore:        min(100, 8*direct+2*indirect),
		AvgInteractionStrength: round(strength/float64(max(1, direct)), 2),
		ClusteringCoefficient:  round(0.25+float64(seed%45)/100, 2),
	}
	total := float64(min(40, 6*direct)) +
		math.Min(30, 0.3*float64(res.Metrics.CentralityScore)) +
		math.Min(30, 40*res.Metrics.AvgInteractionStrength)
	res.PPIScore = min(100, int(round(total, 0)))

	interactions := Table{Title: "Direct Interactions", Columns: []string{"Protein A", "Protein B", "Score", "Type", "Evidence Sources"}}
	for _, in := range res.Direct {
		interactions.Rows = append(interactions.Rows, []string{
			in.ProteinA, in.ProteinB, strconv.FormatFloat(in.Score, 'f', 2, 64), in.Type, strconv.Itoa(in.EvidenceSources),
		})
	}
	m := res.Metrics
	metrics := Table{
		Title:   "Network Metrics",
		Columns: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total Nodes", strconv.Itoa(m.TotalNodes)},
			{"Total Edges", strconv.Itoa(m.TotalEdges)},
			{"Network Density", strconv.FormatFloat(m.NetworkDensity, 'f', 2, 64)},
			{"Centrality Score", fmt.Sprintf("%d/100", m.CentralityScore)},
			{"Avg Interaction Strength", strconv.FormatFloat(m.AvgInteractionStrength, 'f', 2, 64)},
			{"Clustering Coefficient", strconv.FormatFloat(m.ClusteringCoefficient, 'f', 2, 64)},
		},
	}
	res.Tables = []Table{interactions, metrics}
	res.Citations = res.DataSources
	res.KeyFindings = []string{
		fmt.Sprintf("Identified %d direct protein interactions", direct),
		fmt.Sprintf("Network centrality score: %d/100", m.CentralityScore),
		fmt.Sprintf("PPI relevance score: %d/100", res.PPIScore),
		"Strong network connectivity supports therapeutic mechanism",
	}
	res.Summary = fmt.Sprintf("%d direct and %d indirect interactions link %s targets to %s proteins (PPI score %d/100).",
		direct, indirect, drug, orDefault(indication, "disease"), res.PPIScore)

	var b strings.Builder
	fmt.Fprintf(&b, "PROTEIN-PROTEIN INTERACTION NETWORK ANALYSIS\n\n")
	fmt.Fprintf(&b, "The network connecting %s targets to proteins associated with %s has %d nodes and %d edges "+
		"(%d direct, %d indirect), density %.2f and clustering coefficient %.2f.\n\n",
		drug, orDefault(indication, "the target condition"), m.TotalNodes, m.TotalEdges, direct, indirect,
		m.NetworkDensity, m.ClusteringCoefficient)
	b.WriteString("Strongest direct interactions:\n")
	for _, in := range res.Direct[:min(3, direct)] {
		fmt.Fprintf(&b, "- %s <-> %s (score %.2f, %s)\n", in.ProteinA, in.ProteinB, in.Score, in.Type)
	}
	fmt.Fprintf(&b, "\nThe targets sit at central positions (centrality %d/100) with an average interaction strength of %.2f. "+
		"PPI network relevance score: %d/100.", m.CentralityScore, m.AvgInteractionStrength, res.PPIScore)
	res.Narrative = b.String()
	return res
}

type ApprovedIndication struct {
	Indication   string `json:"indication"`
	ApprovalYear int    `json:"approval_year"`
	MarketStatus string `json:"market_status"`
}

type SimilarityMetrics struct {
	Pathophysiology    int `json:"pathophysiology_similarity"`
	MechanismOverlap   int `json:"mechanism_overlap"`
	SymptomSimilarity  int `json:"symptom_similarity"`
	GeneticOverlap     int `json:"genetic_overlap"`
	PathwayConvergence int `json:"pathway_convergence"`
	SharedBiomarkers   int `json:"shared_biomarkers"`
	SharedPathways     int `json:"shared_pathways"`
}

type SimilarityResult struct {
	Base
	ApprovedIndications  []ApprovedIndication `json:"approved_indications"`
	Metrics              SimilarityMetrics    `json:"similarity_metrics"`
	SimilarityScore      int                  `json:"similarity_score"`
	SimilarityConfidence int                  `json:"similarity_confidence"`
	DataSources          []string             `json:"data_sources"`
}

// Similarity compares indication against the drug's approved indications.
func (s *Suite) Similarity(drug, indication string) *SimilarityResult {
	seed := ArithSeed(drug, indication)
	res := &SimilarityResult{
		Base: Base{
			Agent:        "similarity",
			Section:      "Disease Similarity Analysis",
			DataSource:   SourceSynthetic,
			Confidence:   min(0.90, 0.58+float64(seed%32)/100),
			QualityNotes: "Disease similarity analysis based on ontology and pathway databases",
		},
		SimilarityConfidence: min(90, 58+seed%32),
		DataSources:          []string{"DisGeNET", "OMIM", "MeSH", "Disease Ontology"},
		Metrics: SimilarityMetrics{
			Pathophysiology:    45 + seed%50,
			MechanismOverlap:   50 + seed%45,
			SymptomSimilarity:  40 + seed%55,
			GeneticOverlap:     35 + seed%60,
			PathwayConvergence: 55 + seed%40,
			SharedBiomarkers:   2 + seed%5,
			SharedPathways:     3 + seed%6,
		},
	}
	for i := 0; i < 1+seed%3; i++ {
		res.ApprovedIndications = append(res.ApprovedIndications, ApprovedIndication{
			Indication:   approvedIndicationNames[(seed+127*i)%len(approvedIndicationNames)],
			ApprovalYear: 2010 + (seed+i)%14,
			MarketStatus: "Active",
		})
	}

	m := res.Metrics
	weighted := 0.30*float64(m.Pathophysiology) + 0.25*float64(m.MechanismOverlap) +
		0.20*float64(m.PathwayConvergence) + 0.15*float64(m.GeneticOverlap) + 0.10*float64(m.SymptomSimilarity)
	res.SimilarityScore = min(100, int(round(weighted, 0)))

	approved := Table{Title: "Approved Indications", Columns: []string{"Indication", "Approval Year", "Status"}}
	for _, a := range res.ApprovedIndications {
		approved.Rows = append(approved.Rows, []string{a.Indication, strconv.Itoa(a.ApprovalYear), a.MarketStatus})
	}
	metrics := Table{
		Title:   "Similarity Metrics",
		Columns: []string{"Dimension", "Score"},
		Rows: [][]string{
			{"Pathophysiological Similarity", fmt.Sprintf("%d/100", m.Pathophysiology)},
			{"Molecular Mechanism Overlap", fmt.Sprintf("%d/100", m.MechanismOverlap)},
			{"Pathway Convergence", fmt.Sprintf("%d/100", m.PathwayConvergence)},
			{"Genetic/Biomarker Overlap", fmt.Sprintf("%d/100", m.GeneticOverlap)},
			{"Symptom Profile Similarity", fmt.Sprintf("%d/100", m.SymptomSimilarity)},
		},
	}
	res.Tables = []Table{approved, metrics}
	res.Citations = res.DataSources
	res.KeyFindings = []string{
		fmt.Sprintf("Pathophysiological similarity: %d/100", m.Pathophysiology),
		fmt.Sprintf("Molecular mechanism overlap: %d/100", m.MechanismOverlap),
		fmt.Sprintf("Overall similarity score: %d/100", res.SimilarityScore),
		"Strong biological rationale for repurposing",
	}
	res.Summary = fmt.Sprintf("%s shares %d%% overall similarity with %s (%d shared pathways, %d shared biomarkers).",
		orDefault(indication, "The target indication"), res.SimilarityScore, res.ApprovedIndications[0].Indication,
		m.SharedPathways, m.SharedBiomarkers)

	var b strings.Builder
	fmt.Fprintf(&b, "DISEASE SIMILARITY ANALYSIS\n\n")
	fmt.Fprintf(&b, "%s is approved for:\n", drug)
	for _, a := range res.ApprovedIndications {
		fmt.Fprintf(&b, "- %s (approved %d)\n", a.Indication, a.ApprovalYear)
	}
	fmt.Fprintf(&b, "\nCompared with %s, the target indication shows %d%% pathophysiological similarity, "+
		"%d%% mechanism overlap across %d shared pathways and %d common biomarkers, %d%% pathway convergence, "+
		"%d%% genetic overlap and %d%% symptom similarity.\n\n",
		res.ApprovedIndications[0].Indication, m.Pathophysiology, m.MechanismOverlap, m.SharedPathways,
		m.SharedBiomarkers, m.PathwayConvergence, m.GeneticOverlap, m.SymptomSimilarity)
	fmt.Fprintf(&b, "Overall disease similarity score: %d/100.", res.SimilarityScore)
	res.Narrative = b.String()
	return res
}
