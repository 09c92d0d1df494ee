// Package intel turns a free-form strategic prompt into intents, entities and
// an ordered execution plan using the keyword lexicon in lexicon.yaml.
package intel

import (
	_ "embed"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var lexiconYAML []byte

// Query types, in precedence order.
const (
	MoleculeSpecific       = "molecule_specific"
	DiseaseAreaExploration = "disease_area_exploration"
	DrugClassAnalysis      = "drug_class_analysis"
	MarketOpportunityScan  = "market_opportunity_scan"
	PatentCliffAnalysis    = "patent_cliff_analysis"
	RepurposingExploration = "repurposing_exploration"
	ComprehensiveAnalysis  = "comprehensive_analysis"
	StrategicExploration   = "strategic_exploration"
)

// Execution plan steps.
const (
	StepClassification = "prompt_classification"
	StepIQVIA          = "iqvia_market"
	StepEXIM           = "exim_trade"
	StepCompetitive    = "competitive_analysis"
	StepClinical       = "clinical_trials"
	StepLiterature     = "literature_review"
	StepMoA            = "moa_analysis"
	StepPPI            = "ppi_network"
	StepSimilarity     = "disease_similarity"
	StepPatent         = "patent_landscape"
	StepMarket         = "market_analysis"
	StepReformulation  = "reformulation_opportunities"
	StepSupplyChain    = "supply_chain_analysis"
	StepSafety         = "safety_profile"
	StepHypothesis     = "hypothesis_generation"
	StepInternal       = "internal_rag"
)

type Entities struct {
	Molecules    []string `json:"molecules"`
	DiseaseAreas []string `json:"disease_areas"`
	DrugClasses  []string `json:"drug_classes"`
	Geographies  []string `json:"geographies"`
	Populations  []string `json:"populations"`
}

type Parsed struct {
	OriginalPrompt        string   `json:"original_prompt"`
	Intents               []string `json:"intents"`
	Entities              Entities `json:"entities"`
	ExecutionPlan         []string `json:"execution_plan"`
	QueryType             string   `json:"query_type"`
	Confidence            string   `json:"confidence"`
	RequiresClarification bool     `json:"requires_clarification"`
}

// HasIntent reports whether name was detected.
func (p Parsed) HasIntent(name string) bool { return slices.Contains(p.Intents, name) }

// Plans reports whether any of steps is in the execution plan.
func (p Parsed) Plans(steps ...string) bool {
	for _, s := range steps {
		if slices.Contains(p.ExecutionPlan, s) {
			return true
		}
	}
	return false
}

type category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`

	matchers []*regexp.Regexp
}

func (c *category) compile() error {
	for _, kw := range c.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return fmt.Errorf("category %q has an empty keyword", c.Name)
		}
		expr := regexp.QuoteMeta(kw)
		if len([]rune(kw)) <= 3 {
			expr = `\b` + expr + `\b`
		}
		c.matchers = append(c.matchers, regexp.MustCompile(expr))
	}
	return nil
}

func (c *category) matches(lower string) bool {
	for _, m := range c.matchers {
		if m.MatchString(lower) {
			return true
		}
	}
	return false
}

// Lexicon is the parsed keyword vocabulary.
type Lexicon struct {
	Intents      []category `yaml:"intents"`
	DiseaseAreas []category `yaml:"disease_areas"`
	Geographies  []category `yaml:"geographies"`
	Populations  []category `yaml:"populations"`
	DrugClasses  []category `yaml:"drug_classes"`
	StopWords    []string   `yaml:"stop_words"`

	stop map[string]bool
}

func LoadLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	for _, group := range [][]category{lex.Intents, lex.DiseaseAreas, lex.Geographies, lex.Populations, lex.DrugClasses} {
		for i := range group {
			if err := group[i].compile(); err != nil {
				return nil, err
			}
		}
	}
	lex.stop = make(map[string]bool, len(lex.StopWords))
	for _, w := range lex.StopWords {
		lex.stop[strings.ToLower(w)] = true
	}
	return &lex, nil
}

type Parser struct {
	lex *Lexicon
}

func NewParser(lex *Lexicon) *Parser { return &Parser{lex: lex} }

var defaultParser = func() *Parser {
	lex, err := LoadLexicon(lexiconYAML)
	if err != nil {
		panic(err)
	}
	return NewParser(lex)
}()

// Parse uses the embedded lexicon.
func Parse(prompt string) Parsed { return defaultParser.Parse(prompt) }

// Clarification returns the follow-up question for a vague prompt. Every
// prompt is accepted and vague ones get the comprehensive plan, so it is
// always empty.
func Clarification(Parsed) string { return "" }

func (p *Parser) Parse(prompt string) Parsed {
	lower := strings.ToLower(prompt)
	out := Parsed{
		OriginalPrompt: prompt,
		Intents:        matchAll(p.lex.Intents, lower),
		Entities: Entities{
			Molecules:    p.molecules(prompt),
			DiseaseAreas: matchAll(p.lex.DiseaseAreas, lower),
			DrugClasses:  matchAll(p.lex.DrugClasses, lower),
			Geographies:  matchAll(p.lex.Geographies, lower),
			Populations:  matchAll(p.lex.Populations, lower),
		},
	}
	out.QueryType = queryType(out.Intents, out.Entities)
	out.ExecutionPlan = executionPlan(out)
	out.Confidence = "moderate"
	if len(out.Intents) > 0 && (len(out.Entities.Molecules) > 0 || len(out.Entities.DiseaseAreas) > 0) {
		out.Confidence = "high"
	}
	out.RequiresClarification = len(out.Intents) == 0 && len(out.Entities.DiseaseAreas) == 0
	return out
}

func matchAll(cats []category, lower string) []string {
	found := []string{}
	for i := range cats {
		if cats[i].matches(lower) {
			found = append(found, cats[i].Name)
		}
	}
	return found
}

// molecules treats capitalised words longer than three characters as
// candidate drug names.
func (p *Parser) molecules(prompt string) []string {
	found := []string{}
	for _, word := range strings.Fields(prompt) {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
				return r
			}
			return -1
		}, word)
		runes := []rune(clean)
		if len(runes) <= 3 || !unicode.IsUpper(runes[0]) {
			continue
		}
		if p.lex.stop[strings.ToLower(clean)] || slices.Contains(found, clean) {
			continue
		}
		found = append(found, clean)
	}
	return found
}

func queryType(intents []string, e Entities) string {
	switch {
	case len(e.Molecules) > 0:
		return MoleculeSpecific
	case len(e.DiseaseAreas) > 0:
		return DiseaseAreaExploration
	case len(e.DrugClasses) > 0:
		return DrugClassAnalysis
	case slices.Contains(intents, "market_opportunity"):
		return MarketOpportunityScan
	case slices.Contains(intents, "patent_cliff"):
		return PatentCliffAnalysis
	case slices.Contains(intents, "repurposing"):
		return RepurposingExploration
	case len(e.Geographies) > 0:
		return ComprehensiveAnalysis
	default:
		return StrategicExploration
	}
}

func executionPlan(p Parsed) []string {
	plan := []string{StepClassification}
	has, qt := p.HasIntent, p.QueryType

	if has("market_opportunity") || qt == MarketOpportunityScan {
		plan = append(plan, StepIQVIA, StepEXIM, StepCompetitive)
	}
	if has("repurposing") || qt == RepurposingExploration {
		plan = append(plan, StepClinical, StepLiterature, StepMoA, StepPPI, StepSimilarity)
	}
	if has("patent_cliff") || qt == PatentCliffAnalysis {
		plan = append(plan, StepPatent, StepMarket, StepReformulation)
	}
	if has("innovation") || has("reformulation") {
		plan = append(plan, StepPatent, StepMoA, StepCompetitive)
	}
	if has("trade_risk") {
		plan = append(plan, StepEXIM, StepSupplyChain)
	}
	if qt == ComprehensiveAnalysis || qt == StrategicExploration || len(plan) <= 1 {
		plan = append(plan,
			StepClinical, StepLiterature, StepIQVIA, StepEXIM, StepPatent, StepMoA,
			StepPPI, StepSimilarity, StepCompetitive, StepSafety, StepHypothesis)
	}
	if len(p.Entities.Molecules) > 0 {
		plan = append(plan, StepSafety)
	}
	if qt == RepurposingExploration || qt == StrategicExploration || qt == ComprehensiveAnalysis {
		plan = append(plan, StepHypothesis)
	}
	plan = append(plan, StepInternal)

	seen := map[string]bool{}
	unique := plan[:0]
	for _, step := range plan {
		if !seen[step] {
			seen[step] = true
			unique = append(unique, step)
		}
	}
	return unique
}

