package orchestrator

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Skufu/repurpose/internal/agents"
)

//go:embed summary.tmpl
var summaryTemplate string

var summaryTmpl = template.Must(template.New("summary").Funcs(template.FuncMap{
	"rule":      func() string { return strings.Repeat("=", 79) },
	"pct":       func(v float64) string { return strconv.FormatFloat(v, 'f', 0, 64) },
	"num":       func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
	"bar":       func(v float64) string { return strings.Repeat("#", max(0, int(v/10))) },
	"thousands": thousands,
	"band":      band,
	"bullets":   bullets,
	"numbered":  numbered,
}).Parse(summaryTemplate))

// band picks a when v > high, b when v > mid and c otherwise.
func band(v, high, mid float64, a, b, c string) string {
	switch {
	case v > high:
		return a
	case v > mid:
		return b
	default:
		return c
	}
}

func bullets(items []string, limit int) string {
	items = items[:min(limit, len(items))]
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func numbered(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, item)
	}
	return strings.Join(lines, "\n")
}

var printer = message.NewPrinter(language.English)

func thousands(n int) string { return printer.Sprintf("%d", n) }

// ErrInvalidInput is returned when the drug or indication is blank.
var ErrInvalidInput = errors.New("drug and indication are required")

// diseaseGenes seeds the PPI network for a single-indication assessment.
var diseaseGenes = []string{"GENE1", "GENE2", "GENE3"}

// Highlights are the headline numbers of an assessment.
type Highlights struct {
	TotalTrials         int     `json:"total_trials"`
	TotalPatients       int     `json:"total_patients"`
	TotalPatents        int     `json:"total_patents"`
	SafetySignals       int     `json:"safety_signals"`
	MarketSize          string  `json:"market_size"`
	ApprovalProbability string  `json:"approval_probability"`
	InvestmentRequired  string  `json:"investment_required"`
	AvgConfidence       float64 `json:"avg_confidence"`
	FeasibilityScore    int     `json:"feasibility_score"`
	MoAScore            int     `json:"moa_score"`
	PPIScore            int     `json:"ppi_score"`
	SimilarityScore     int     `json:"similarity_score"`
}

type Verdict struct {
	FeasibilityScore     int      `json:"feasibility_score"`
	AvgConfidence        float64  `json:"avg_confidence"`
	OverallConfidence    float64  `json:"overall_confidence"`
	RepurposingScore     int      `json:"repurposing_score"`
	SafetyClass          string   `json:"safety_class"`
	MarketDifficulty     string   `json:"market_difficulty"`
	Recommendation       string   `json:"recommendation"`
	RecommendationDetail string   `json:"recommendation_detail"`
	DataFoundation       string   `json:"data_foundation"`
	LiveSources          []string `json:"live_sources"`
	ReasonsToPursue      []string `json:"reasons_to_pursue"`
	Blockers             []string `json:"blockers"`
	NextSteps            []string `json:"next_steps"`
}

type Assessment struct {
	Drug             string        `json:"drug"`
	Indication       string        `json:"indication"`
	Timestamp        string        `json:"timestamp"`
	ExecutiveSummary string        `json:"executive_summary"`
	Highlights       Highlights    `json:"highlights"`
	Verdict          Verdict       `json:"verdict"`
	Results          *Intelligence `json:"results"`
}

// confidences are agent confidences on a 0..100 scale.
type confidences struct {
	Clinical, Literature, Market, Patent, Regulatory, Safety, Internal float64
}

func confidencesOf(in *Intelligence) confidences {
	return confidences{
		Clinical:   in.Clinical.Confidence * 100,
		Literature: in.Literature.Confidence * 100,
		Market:     in.Market.Confidence * 100,
		Patent:     in.Patent.Confidence * 100,
		Regulatory: in.Regulatory.Confidence * 100,
		Safety:     in.Safety.Confidence * 100,
		Internal:   in.Internal.Confidence * 100,
	}
}

func (c confidences) mean() float64 {
	return (c.Clinical + c.Literature + c.Market + c.Patent + c.Regulatory + c.Safety + c.Internal) / 7
}

// Assessor runs the full repurposing assessment of one drug/indication pair.
type Assessor struct {
	agents     *agents.Suite
	notifier   Notifier
	webhookURL string
	logger     *zap.Logger
	now        func() time.Time
}

// NewAssessor returns an Assessor. notifier may be nil, and an empty
// webhookURL disables the completion notification.
func NewAssessor(suite *agents.Suite, notifier Notifier, webhookURL string, logger *zap.Logger) *Assessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assessor{agents: suite, notifier: notifier, webhookURL: webhookURL, logger: logger, now: time.Now}
}

func (a *Assessor) Run(ctx context.Context, drug, indication string) (*Assessment, error) {
	drug, indication = strings.TrimSpace(drug), strings.TrimSpace(indication)
	if drug == "" || indication == "" {
		return nil, ErrInvalidInput
	}

	start := a.now()
	in, err := gather(ctx, a.agents, drug, indication, everyAgent(), diseaseGenes)
	if err != nil {
		return nil, err
	}

	verdict := Evaluate(in)
	out := &Assessment{
		Drug:       drug,
		Indication: indication,
		Timestamp:  start.Format(time.RFC3339),
		Highlights: Highlights{
			TotalTrials:         in.Clinical.TotalTrials,
			TotalPatients:       in.Clinical.TotalPatients,
			TotalPatents:        in.Patent.TotalPatents,
			SafetySignals:       in.Safety.TotalSafetySignals,
			MarketSize:          in.Market.PeakSalesProjection,
			ApprovalProbability: in.Regulatory.ApprovalProbability,
			InvestmentRequired:  in.Internal.TotalInvestment,
			AvgConfidence:       verdict.AvgConfidence,
			FeasibilityScore:    verdict.FeasibilityScore,
			MoAScore:            in.MoA.MoAScore,
			PPIScore:            in.PPI.PPIScore,
			SimilarityScore:     in.Similarity.SimilarityScore,
		},
		Verdict: verdict,
		Results: in,
	}

	summary, err := renderSummary(drug, indication, start, in, verdict)
	if err != nil {
		return nil, err
	}
	out.ExecutiveSummary = summary

	a.logger.Info("assessment finished",
		zap.String("drug", drug),
		zap.String("indication", indication),
		zap.Int("feasibility_score", verdict.FeasibilityScore),
		zap.Float64("avg_confidence", verdict.AvgConfidence),
		zap.Duration("elapsed", a.now().Sub(start)))

	a.notify(ctx, out)
	return out, nil
}

func (a *Assessor) notify(ctx context.Context, out *Assessment) {
	if a.notifier == nil || a.webhookURL == "" {
		return
	}
	payload := map[string]any{
		"drug":              out.Drug,
		"indication":        out.Indication,
		"feasibility_score": out.Verdict.FeasibilityScore,
		"avg_confidence":    out.Verdict.AvgConfidence,
		"timestamp":         a.now().Format(time.RFC3339),
		"status":            "completed",
	}
	if err := a.notifier.Send(ctx, a.webhookURL, payload); err != nil {
		a.logger.Warn("analysis notification failed", zap.Error(err))
	}
}

// Evaluate scores a complete set of agent results. Every agent except
// hypotheses must be present.
func Evaluate(in *Intelligence) Verdict {
	conf := confidencesOf(in)
	signals := in.Safety.TotalSafetySignals

	feasibility := conf.Clinical*0.20 +
		conf.Literature*0.15 +
		conf.Patent*0.10 +
		conf.Safety*0.15 +
		float64(in.MoA.MoAScore)*0.15 +
		float64(in.PPI.PPIScore)*0.15 +
		float64(in.Similarity.SimilarityScore)*0.10 -
		float64(min(20, 2*signals))

	all := []float64{
		in.Clinical.Confidence, in.Literature.Confidence, in.Market.Confidence,
		in.Patent.Confidence, in.Regulatory.Confidence, in.Safety.Confidence,
		in.Internal.Confidence, in.MoA.Confidence, in.PPI.Confidence, in.Similarity.Confidence,
	}
	var sum float64
	for _, c := range all {
		sum += c
	}

	v := Verdict{
		FeasibilityScore:  max(0, min(100, int(math.Round(feasibility)))),
		AvgConfidence:     roundTo(sum/float64(len(all)), 2),
		OverallConfidence: roundTo(conf.mean(), 1),
		RepurposingScore: min(100, int(math.Round(
			conf.Clinical*0.30+conf.Literature*0.20+conf.Safety*0.20+conf.Patent*0.15+conf.Market*0.15))),
	}

	switch {
	case conf.Safety >= 75 && signals <= 3:
		v.SafetyClass = "SAFE - Well-characterized profile"
	case conf.Safety >= 60 && signals <= 6:
		v.SafetyClass = "MODERATE - Manageable with monitoring"
	default:
		v.SafetyClass = "REQUIRES EVALUATION - Enhanced pharmacovigilance needed"
	}

	switch {
	case conf.Market >= 70 && conf.Patent >= 70:
		v.MarketDifficulty = "LOW - Clear pathway with IP protection"
	case conf.Market >= 55 || conf.Patent >= 55:
		v.MarketDifficulty = "MODERATE - Competitive but feasible"
	default:
		v.MarketDifficulty = "HIGH - Significant barriers require strategy"
	}

	switch {
	case v.RepurposingScore >= 75 && conf.Safety >= 70:
		v.Recommendation = "GREEN - STRONG GO"
		v.RecommendationDetail = "High confidence in therapeutic potential with favorable risk-benefit profile"
	case v.RepurposingScore >= 60 && conf.Safety >= 55:
		v.Recommendation = "YELLOW - PROCEED WITH CAUTION"
		v.RecommendationDetail = "Moderate confidence; additional validation studies recommended"
	default:
		v.Recommendation = "RED - HIGH RISK"
		v.RecommendationDetail = "Significant uncertainties require substantial additional evidence"
	}

	v.LiveSources = liveSources(in)
	v.DataFoundation = "Comprehensive therapeutic area analysis"
	if len(v.LiveSources) > 0 {
		v.DataFoundation = "Real-time data from: " + strings.Join(v.LiveSources, ", ")
	}

	_, safetyProfile, _ := strings.Cut(v.SafetyClass, " - ")
	v.ReasonsToPursue = []string{
		fmt.Sprintf("Clinical evidence: %d trials with %s patients demonstrate feasibility",
			in.Clinical.TotalTrials, thousands(in.Clinical.TotalPatients)),
		fmt.Sprintf("Mechanism validation: %s scientific rationale from published literature",
			pick(conf.Literature > 70, "Strong", "Moderate")),
		fmt.Sprintf("Safety profile: %s based on real-world data", safetyProfile),
		fmt.Sprintf("IP protection: %d patents providing market exclusivity to %s",
			in.Patent.TotalPatents, orFallback(in.Patent.PrimaryExpiry, "2035+")),
		fmt.Sprintf("Market opportunity: %s commercial pathway identified",
			pick(conf.Market > 70, "Established", "Emerging")),
	}

	clinicalGap := "Significant"
	switch {
	case conf.Clinical > 80:
		clinicalGap = "Minimal"
	case conf.Clinical > 60:
		clinicalGap = "Moderate"
	}
	v.Blockers = []string{
		fmt.Sprintf("Clinical validation: %s additional trials may be required", clinicalGap),
		fmt.Sprintf("Safety monitoring: %d safety signals require ongoing pharmacovigilance", signals),
		fmt.Sprintf("Competitive landscape: %s competition in therapeutic area", pick(conf.Market > 60, "Moderate", "High")),
		fmt.Sprintf("Regulatory pathway: %s approval process anticipated", pick(conf.Regulatory > 70, "Standard", "Complex")),
		fmt.Sprintf("Investment requirement: %s over %s",
			orFallback(in.Internal.TotalInvestment, "$50M+"), orFallback(in.Internal.TimelineToLaunch, "12-24 months")),
	}

	firstStep := "Reassess strategic fit"
	switch {
	case v.RepurposingScore > 75:
		firstStep = "Proceed to Phase 3 planning"
	case v.RepurposingScore > 60:
		firstStep = "Conduct additional validation studies"
	}
	v.NextSteps = []string{
		firstStep,
		pick(conf.Regulatory > 70, "Finalize regulatory strategy", "Engage regulatory consultants for pathway optimization"),
		pick(conf.Market > 65, "Develop payer value proposition", "Conduct market research and competitive analysis"),
		pick(conf.Safety > 75, "Implement standard pharmacovigilance", "Design enhanced safety monitoring protocols"),
		pick(v.RepurposingScore > 75, "Secure funding and initiate launch preparation", "Present findings to investment committee for go/no-go decision"),
	}
	return v
}

func liveSources(in *Intelligence) []string {
	sources := []string{}
	for _, s := range []struct {
		result agents.Result
		name   string
	}{
		{in.Clinical, "ClinicalTrials.gov"},
		{in.Literature, "Europe PMC"},
		{in.Patent, "USPTO PatentsView"},
		{in.Safety, "FDA FAERS"},
		{in.Market, "OpenFDA"},
	} {
		if s.result.Common().DataSource == agents.SourceLive {
			sources = append(sources, s.name)
		}
	}
	return sources
}

type summaryData struct {
	Drug       string
	Indication string
	Date       string
	In         *Intelligence
	Verdict    Verdict
	Conf       confidences
}

func renderSummary(drug, indication string, at time.Time, in *Intelligence, v Verdict) (string, error) {
	data := summaryData{
		Drug:       drug,
		Indication: indication,
		Date:       at.Format("2006-01-02"),
		In:         in,
		Verdict:    v,
		Conf:       confidencesOf(in),
	}

	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render executive summary: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

func orFallback(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
