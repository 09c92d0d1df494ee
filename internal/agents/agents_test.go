package agents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }

// newTestSuite points every upstream at one httptest server. Unrouted paths
// answer 500, which drives the agents into their synthetic fallback.
func newTestSuite(t *testing.T, routes map[string]http.HandlerFunc) *Suite {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.URL.Path]; ok {
			h(w, r)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	return NewSuite(Options{
		HTTPClient: srv.Client(),
		Retry:      fastRetry(),
		Endpoints: Endpoints{
			ClinicalTrials: srv.URL + "/ctgov",
			EuropePMC:      srv.URL + "/epmc",
			PatentsView:    srv.URL + "/patents",
			OpenFDA:        srv.URL + "/fda",
			IQVIA:          srv.URL + "/iqvia",
			EXIM:           srv.URL + "/exim",
		},
		Now: fixedNow,
	})
}

func jsonBody(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

const ctgovFixture = `{"studies": [
  {"protocolSection": {
    "identificationModule": {"nctId": "NCT01", "briefTitle": "Metformin in Breast Cancer"},
    "statusModule": {"overallStatus": "COMPLETED", "enrollmentInfo": {"count": 300}, "startDateStruct": {"date": "2019-04"}},
    "designModule": {"phases": ["PHASE3"]}}},
  {"protocolSection": {
    "identificationModule": {"nctId": "NCT02", "briefTitle": "Metformin Adjuvant Study"},
    "statusModule": {"overallStatus": "RECRUITING", "enrollmentInfo": {"count": 120}},
    "designModule": {"phases": ["PHASE2", "PHASE3"]}}},
  {"protocolSection": {
    "identificationModule": {"nctId": "NCT03", "briefTitle": "Withdrawn before enrollment"},
    "statusModule": {"overallStatus": "WITHDRAWN", "enrollmentInfo": {"count": 0}}}}
]}`

const epmcFixture = `{"resultList": {"result": [
  {"title": "Metformin and tumour metabolism", "authorString": "Smith J, Lee K", "journalTitle": "Nature Medicine", "pubYear": "2021", "pmid": "111"},
  {"title": "AMPK signalling review", "authorString": "Patel R", "journalTitle": "The Lancet", "pubYear": "2016", "pmid": "222"}
]}}`

func TestClinicalParsesLiveTrials(t *testing.T) {
	s := newTestSuite(t, map[string]http.HandlerFunc{
		"/ctgov": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Metformin AND Breast Cancer", r.URL.Query().Get("query.term"))
			jsonBody(ctgovFixture)(w, r)
		},
		"/epmc": jsonBody(epmcFixture),
	})

	res := s.Clinical(context.Background(), "Metformin", "Breast Cancer")

	assert.Equal(t, SourceLive, res.DataSource)
	assert.Equal(t, 2, res.TotalTrials)
	assert.Equal(t, 420, res.TotalPatients)
	assert.Equal(t, 2, res.Phase3)
	assert.Equal(t, 1, res.Phase2)
	assert.Equal(t, 1, res.Completed)
	assert.Equal(t, 1, res.Active)
	assert.InDelta(t, 0.71, res.Confidence, 1e-9)
	assert.Equal(t, "Real-time data from ClinicalTrials.gov API (2 trials, 420 patients)", res.QualityNotes)
	assert.Equal(t, "Smith J, Lee K (2021) - Metformin and tumour metabolism, Nature Medicine", res.Citations[0])

	require.Len(t, res.Tables, 2)
	assert.Equal(t, "Efficacy Summary", res.Tables[0].Title)
	assert.Equal(t, []string{"Evidence Maturity", "50% Complete", "High"}, res.Tables[0].Rows[5])
	assert.Len(t, res.Tables[1].Rows, 2)
	assert.Equal(t, "PHASE2, PHASE3", res.Tables[1].Rows[1][2])
}

func TestClinicalFallsBackDeterministically(t *testing.T) {
	s := newTestSuite(t, nil)

	a := s.Clinical(context.Background(), "Metformin", "Breast Cancer")
	b := s.Clinical(context.Background(), "Metformin", "Breast Cancer")

	assert.Equal(t, a, b)
	assert.Equal(t, SourceSynthetic, a.DataSource)
	assert.InDelta(t, 0.72, a.Confidence, 1e-9)
	assert.GreaterOrEqual(t, a.TotalTrials, 8)
	assert.LessOrEqual(t, a.TotalTrials, 25)
	assert.Equal(t, a.TotalTrials, a.Completed+a.Active+a.Terminated)
	assert.GreaterOrEqual(t, a.TotalPatients, 2500)
	assert.Equal(t, "ClinicalTrials.gov - Metformin Clinical Trial Registry (accessed 2025-03-14)", a.Citations[0])
	assert.Len(t, a.KeyFindings, 5)
	for _, row := range a.Tables[1].Rows {
		assert.True(t, strings.HasPrefix(row[0], "NCT0"))
	}
}

func TestLiteratureCountsRecentPapers(t *testing.T) {
	s := newTestSuite(t, map[string]http.HandlerFunc{"/epmc": jsonBody(epmcFixture)})

	res := s.Literature(context.Background(), "Metformin", "Breast Cancer")

	assert.Equal(t, SourceLive, res.DataSource)
	assert.Equal(t, 2, res.TotalPapers)
	assert.Equal(t, 1, res.RecentPapers)
	assert.InDelta(t, 0.64, res.Confidence, 1e-9)
	assert.Len(t, res.Tables[0].Rows, 2)
}

func TestLiteratureFallback(t *testing.T) {
	res := newTestSuite(t, nil).Literature(context.Background(), "Aspirin", "Colorectal Cancer")

	assert.Equal(t, SourceSynthetic, res.DataSource)
	assert.InDelta(t, 0.70, res.Confidence, 1e-9)
	assert.Len(t, res.Tables[0].Rows, 12)
	assert.Equal(t, "Cochrane Database - Systematic Reviews", res.Citations[2])
}

func TestPatentDerivesExpiryFromGrantDates(t *testing.T) {
	s := newTestSuite(t, map[string]http.HandlerFunc{
		"/patents": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			jsonBody(`{"patents": [
			  {"patent_number": "1", "patent_title": "Formulation", "patent_date": "2010-05-01", "patent_type": "utility"},
			  {"patent_number": "2", "patent_title": "Method of use", "patent_date": "2021-01-01", "patent_type": "utility"},
			  {"patent_number": "3", "patent_title": "Composition", "patent_date": "2007-03-01", "patent_type": "utility"}
			]}`)(w, r)
		},
	})

	res := s.Patent(context.Background(), "Metformin", "Breast Cancer")

	assert.Equal(t, SourceLive, res.DataSource)
	assert.Equal(t, 3, res.TotalPatents)
	assert.Equal(t, "2041", res.PrimaryExpiry)
	assert.Equal(t, "2027", res.EarliestExpiry)
	assert.Equal(t, 1, res.RecentPatents)
	assert.Equal(t, 1, res.ActivePatents)
	assert.Equal(t, 1, res.MaturePatents)
	assert.Equal(t, 2, res.ExpiringSoon)
	assert.InDelta(t, 0.645, res.Confidence, 1e-9)
	assert.Equal(t, []string{"Composition of Matter", "Medium", "Clearance analysis"}, res.Tables[1].Rows[0])
}

func TestPatentExpiringSoonCoversFiveYears(t *testing.T) {
	s := newTestSuite(t, map[string]http.HandlerFunc{
		"/patents": jsonBody(`{"patents": [
		  {"patent_number": "1", "patent_title": "Formulation", "patent_date": "2009-06-01", "patent_type": "utility"},
		  {"patent_number": "2", "patent_title": "Method of use", "patent_date": "2010-02-01", "patent_type": "utility"},
		  {"patent_number": "3", "patent_title": "Composition", "patent_date": "2011-02-01", "patent_type": "utility"},
		  {"patent_number": "4", "patent_title": "Salt form", "patent_date": "2004-02-01", "patent_type": "utility"}
		]}`),
	})

	res := s.Patent(context.Background(), "Metformin", "Breast Cancer")

	// 2029 and 2030 fall inside the window; 2031 is six years out and 2024 has lapsed.
	assert.Equal(t, 2, res.ExpiringSoon)
	assert.Contains(t, res.Narrative, "2 patents expire within five years")
}

func TestPatentFallback(t *testing.T) {
	res := newTestSuite(t, nil).Patent(context.Background(), "Metformin", "Breast Cancer")

	assert.Equal(t, SourceSynthetic, res.DataSource)
	assert.InDelta(t, 0.72, res.Confidence, 1e-9)
	assert.GreaterOrEqual(t, res.ActivePatents, 0)
	assert.Len(t, res.Tables[1].Rows, 4)
	assert.LessOrEqual(t, len(res.Tables[0].Rows), 15)
}

func TestMarketUsesDefaultCompetitorsWhenLookupFails(t *testing.T) {
	s := newTestSuite(t, map[string]http.HandlerFunc{
		"/fda/drug/ndc.json": jsonBody(`{"results": [
		  {"brand_name": "Glucophage", "labeler_name": "Merck", "dosage_form": "TABLET", "route": ["ORAL"], "marketing_status": "Prescription"},
		  {"generic_name": "metformin", "labeler_name": "Teva", "dosage_form": "TABLET"}
		]}`),
		"/fda/drug/drugsfda.json": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
	})

	res := s.Market(context.Background(), "Metformin", "Breast Cancer")

	assert.Equal(t, SourceLive, res.DataSource)
	assert.Equal(t, 2, res.TotalProducts)
	assert.Equal(t, 2, res.Manufacturers)
	assert.Equal(t, 2, res.Competitors)
	assert.Equal(t, "low", res.CompetitiveDensity)
	assert.Equal(t, "$500M-1.2B", res.PeakSalesProjection)
	assert.Equal(t, "20-35%", res.MarketShareTarget)
	assert.InDelta(t, 0.64, res.Confidence, 1e-9)

	require.Len(t, res.Tables, 3)
	assert.Equal(t, []string{"Competitor A", "2020-01-15"}, res.Tables[0].Rows[0])
	assert.Equal(t, []string{"2025", "0.8", "15%"}, res.Tables[1].Rows[0])
	assert.Equal(t, []string{"metformin", "Teva", "TABLET", "N/A", "Unknown"}, res.Tables[2].Rows[1])
}

func TestSafetyClassifiesSignalsByShare(t *testing.T) {
	s := newTestSuite(t, map[string]http.HandlerFunc{
		"/fda/drug/event.json": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("count") == "serious" {
				jsonBody(`{"results": [{"term": "1", "count": 20}]}`)(w, r)
				return
			}
			jsonBody(`{"results": [
			  {"term": "HEADACHE", "count": 30},
			  {"term": "NAUSEA", "count": 50},
			  {"term": "RASH", "count": 12},
			  {"term": "FATIGUE", "count": 5},
			  {"term": "DIZZINESS", "count": 3}
			]}`)(w, r)
		},
	})

	res := s.Safety(context.Background(), "Metformin", "Breast Cancer")

	assert.Equal(t, SourceLive, res.DataSource)
	assert.Equal(t, 100, res.TotalReports)
	assert.Equal(t, "NAUSEA", res.AdverseEvents[0].Event)
	assert.Equal(t, "50.0%", res.AdverseEvents[0].Percentage)
	assert.Equal(t, "20.0%", res.SeriousRate)
	assert.Equal(t, "25.0%", res.DiscontinuationRate)
	assert.InDelta(t, 0.56, res.Confidence, 1e-9)

	require.Len(t, res.Signals, 5)
	assert.Equal(t, "High", res.Signals[2].Severity)
	assert.Equal(t, "Monitor", res.Signals[3].Severity)
	assert.Equal(t, "Routine surveillance", res.Signals[3].Action)
	assert.Equal(t, 5, res.TotalSafetySignals)
	assert.Equal(t, []string{"Deaths", "1.6%", "Comprehensive investigation"}, res.Tables[2].Rows[3])
}

func TestSafetyFallback(t *testing.T) {
	res := newTestSuite(t, nil).Safety(context.Background(), "Metformin", "Breast Cancer")

	assert.Equal(t, SourceSynthetic, res.DataSource)
	assert.Len(t, res.AdverseEvents, 12)
	require.Len(t, res.Signals, 5)
	assert.Equal(t, "High", res.Signals[0].Severity)
	assert.Equal(t, "Enhanced monitoring", res.Signals[0].Action)
	assert.Equal(t, "Moderate", res.Signals[2].Severity)
	assert.Equal(t, "Routine surveillance", res.Signals[2].Action)
	assert.Equal(t, "Monitor", res.Signals[4].Severity)
	assert.InDelta(t, 0.68, res.Confidence, 1e-9)
}

func TestStaticAgents(t *testing.T) {
	s := NewSuite(Options{})

	reg := s.Regulatory("Metformin", "Breast Cancer")
	assert.Equal(t, SourceStatic, reg.DataSource)
	assert.Equal(t, "82%", reg.ApprovalProbability)
	assert.Contains(t, reg.Narrative, "Metformin in Breast Cancer")

	in := s.Internal("Metformin", "Breast Cancer")
	assert.Equal(t, "$50M", in.TotalInvestment)
	assert.Equal(t, "12 months", in.TimelineToLaunch)
	assert.Len(t, in.Tables, 3)
}

func TestMoAScoreMatchesComponents(t *testing.T) {
	s := NewSuite(Options{})
	res := s.MoA("Metformin", "Breast Cancer")

	assert.Equal(t, res, s.MoA("Metformin", "Breast Cancer"))
	seed := ArithSeed("Metformin", "Breast Cancer")
	assert.Len(t, res.Targets, 2+seed%4)
	assert.Len(t, res.Pathways, 3+seed%4)

	strong := 0
	for _, tg := range res.Targets {
		if tg.Affinity < 10 {
			strong++
			assert.Equal(t, "High", tg.Relevance)
		}
	}
	want := min(40, 10*len(res.Targets)) + min(40, 7*len(res.Pathways)) + min(20, 10*strong)
	assert.Equal(t, min(100, want), res.MoAScore)
	assert.Equal(t, min(95, 60+seed%35), res.MoAConfidence)
}

func TestPPIWithoutTargets(t *testing.T) {
	res := NewSuite(Options{}).PPI("Metformin", "Breast Cancer", nil, nil)

	assert.Equal(t, []string{"Gene A", "Gene B", "Gene C"}, res.DiseaseGenes)
	for _, in := range res.Direct {
		assert.Equal(t, "Target A", in.ProteinA)
		assert.GreaterOrEqual(t, in.Score, 0.4)
		assert.Less(t, in.Score, 1.0)
	}
	assert.Equal(t, len(res.Direct)+len(res.Indirect), res.Metrics.TotalEdges)
	assert.LessOrEqual(t, res.PPIScore, 100)
}

func TestPPISeedIncludesTargets(t *testing.T) {
	s := NewSuite(Options{})
	a := s.PPI("Metformin", "Breast Cancer", []string{"Kinase A"}, nil)
	b := s.PPI("Metformin", "Breast Cancer", []string{"Kinase B"}, nil)
	assert.Equal(t, "Kinase A", a.Direct[0].ProteinA)
	assert.Equal(t, "Kinase B", b.Direct[0].ProteinA)
}

func TestSimilarityScoreIsWeightedSum(t *testing.T) {
	res := NewSuite(Options{}).Similarity("Metformin", "Breast Cancer")
	m := res.Metrics

	weighted := 0.30*float64(m.Pathophysiology) + 0.25*float64(m.MechanismOverlap) +
		0.20*float64(m.PathwayConvergence) + 0.15*float64(m.GeneticOverlap) + 0.10*float64(m.SymptomSimilarity)
	assert.InDelta(t, weighted, float64(res.SimilarityScore), 0.5)
	assert.NotEmpty(t, res.ApprovedIndications)
	assert.LessOrEqual(t, len(res.ApprovedIndications), 3)
}

func TestHypothesesWithoutMechanisticInputs(t *testing.T) {
	res := NewSuite(Options{}).Hypotheses("Metformin", "Breast Cancer", nil, nil, nil, EvidenceFeatures{})

	require.Len(t, res.Hypotheses, 3)
	assert.Contains(t, res.Hypotheses[0].Statement, "through modulation of molecular target")
	assert.Contains(t, res.Hypotheses[2].Statement, "between Breast Cancer and approved indication")
	assert.Equal(t, "Low", res.Hypotheses[0].Confidence)
	assert.Equal(t, 50, res.Strength.Overall)
	assert.Equal(t, "Weak", res.Strength.Category)

	require.Len(t, res.UncertaintyFlags, 4)
	last := res.UncertaintyFlags[3]
	assert.Equal(t, "Clinical", last.Category)
	assert.Equal(t, "Critical", last.Impact)
	assert.Equal(t, hypothesisDisclaimer, res.Disclaimer)
}

func TestHypothesesUseMechanisticResults(t *testing.T) {
	s := NewSuite(Options{})
	moa := s.MoA("Metformin", "Breast Cancer")
	moa.MoAScore = 90
	sim := s.Similarity("Metformin", "Breast Cancer")
	sim.SimilarityScore = 90
	ppi := s.PPI("Metformin", "Breast Cancer", []string{moa.Targets[0].Name}, nil)
	ppi.PPIScore = 70

	res := s.Hypotheses("Metformin", "Breast Cancer", moa, ppi, sim, EvidenceFeatures{ClinicalConfidence: 0.8})

	assert.Contains(t, res.Hypotheses[0].Statement, moa.Targets[0].Name)
	assert.Equal(t, "Moderate", res.Hypotheses[0].Confidence)
	// 0.35*90 + 0.30*70 + 0.35*90
	assert.Equal(t, 84, res.Strength.Overall)
	assert.Equal(t, "Strong", res.Strength.Category)
	require.Len(t, res.UncertaintyFlags, 1)
	assert.InDelta(t, 0.8, res.EvidenceFeatures.ClinicalConfidence, 1e-9)
}

func TestIQVIAWithoutWebhookUsesSyntheticData(t *testing.T) {
	s := NewSuite(Options{})
	res := s.IQVIA(context.Background(), "Metformin", "Breast Cancer")

	seed := ArithSeed("Metformin", "Breast Cancer")
	assert.Equal(t, SourceSynthetic, res.DataSource)
	assert.Equal(t, float64(500+seed%5000), res.MarketSizeMillions)
	assert.InDelta(t, res.MarketSizeMillions*1.45, res.Forecast2030, 1e-9)
	assert.Len(t, res.TopCompetitors, 3)
	assert.InDelta(t, 0.65, res.Confidence, 1e-9)
}

func TestIQVIAWebhook(t *testing.T) {
	s := newTestSuite(t, map[string]http.HandlerFunc{
		"/iqvia": jsonBody(`{"market_size_usd_millions": 1200, "cagr_percent": 7.5, "key_insights": ["from n8n"]}`),
	})
	res := s.IQVIA(context.Background(), "Metformin", "Breast Cancer")

	assert.Equal(t, SourceLive, res.DataSource)
	assert.Equal(t, 1200.0, res.MarketSizeMillions)
	assert.Equal(t, []string{"from n8n"}, res.KeyInsights)
}

func TestEXIMFallsBackWhenWebhookFails(t *testing.T) {
	res := newTestSuite(t, nil).EXIM(context.Background(), "Metformin", "Breast Cancer")

	seed := ArithSeed("Metformin", "Breast Cancer", "exim")
	assert.Equal(t, SourceSynthetic, res.DataSource)
	assert.Equal(t, float64(50+seed%500), res.ExportsMillions)
	assert.Equal(t, res.ExportsMillions-res.ImportsMillions, res.BalanceMillions)
	assert.Equal(t, "EXIM Trade Intelligence", res.Section)
}
