package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Skufu/repurpose/internal/agents"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"))
}

var fixedNow = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }

// newFailingSuite points every upstream at a server that always answers 500,
// so every agent falls back to its synthetic data.
func newFailingSuite(t *testing.T) *agents.Suite {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	return agents.NewSuite(agents.Options{
		HTTPClient: &http.Client{Transport: &http.Transport{DisableKeepAlives: true}},
		Retry:      agents.RetryConfig{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond},
		Endpoints: agents.Endpoints{
			ClinicalTrials: srv.URL + "/ctgov",
			EuropePMC:      srv.URL + "/epmc",
			PatentsView:    srv.URL + "/patents",
			OpenFDA:        srv.URL + "/fda",
		},
		Now: fixedNow,
	})
}

func TestGatherChainsMoAIntoPPI(t *testing.T) {
	sel := selection{moa: true, ppi: true, similarity: true, hypotheses: true}
	in, err := gather(context.Background(), newFailingSuite(t), "Metformin", "Breast Cancer", sel, nil)
	require.NoError(t, err)

	require.NotNil(t, in.MoA)
	require.NotNil(t, in.PPI)
	require.NotNil(t, in.Hypotheses)
	assert.Nil(t, in.Clinical)

	names := make([]string, len(in.MoA.Targets))
	for i, target := range in.MoA.Targets {
		names[i] = target.Name
	}
	assert.Equal(t, names, in.PPI.DrugTargets)
	assert.Len(t, in.Results(), 4)
}

func TestGatherUsesEvidenceDefaultsForHypotheses(t *testing.T) {
	in, err := gather(context.Background(), newFailingSuite(t), "Aspirin", "Asthma", selection{hypotheses: true, safety: true}, nil)
	require.NoError(t, err)

	f := in.Hypotheses.EvidenceFeatures
	assert.Equal(t, 0.5, f.ClinicalConfidence)
	assert.Equal(t, 0.5, f.LiteratureConfidence)
	assert.Equal(t, 0.5, f.MarketConfidence)
	assert.Equal(t, in.Safety.Confidence, f.SafetyConfidence)
}

func TestGatherStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gather(ctx, newFailingSuite(t), "Aspirin", "Asthma", everyAgent(), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestResultsFollowAssemblyOrder(t *testing.T) {
	in := &Intelligence{
		Regulatory: &agents.RegulatoryResult{Base: agents.Base{Agent: "regulatory"}},
		Clinical:   &agents.ClinicalResult{Base: agents.Base{Agent: "clinical"}},
		IQVIA:      &agents.IQVIAResult{Base: agents.Base{Agent: "iqvia"}},
	}

	var order []string
	for _, r := range in.Results() {
		order = append(order, r.Common().Agent)
	}
	assert.Equal(t, []string{"iqvia", "clinical", "regulatory"}, order)

	var nilIntel *Intelligence
	assert.Empty(t, nilIntel.Results())
}
