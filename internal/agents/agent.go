// Package agents implements the evidence agents behind a repurposing
// analysis. Each agent queries one public source and, when the source fails
// or returns nothing, substitutes deterministic synthetic data seeded from the
// drug and indication strings. Results always say which of the two they hold.
package agents

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Skufu/repurpose/internal/cache"
)

type DataSource string

const (
	SourceLive      DataSource = "live"
	SourceSynthetic DataSource = "synthetic"
	SourceStatic    DataSource = "static"
)

type Table struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Base is the part of every agent result the orchestrator and the report
// generator read without knowing the agent.
type Base struct {
	Agent        string     `json:"agent"`
	Section      string     `json:"section"`
	Summary      string     `json:"summary,omitempty"`
	Narrative    string     `json:"narrative,omitempty"`
	KeyFindings  []string   `json:"key_findings,omitempty"`
	Tables       []Table    `json:"tables,omitempty"`
	Citations    []string   `json:"citations,omitempty"`
	Confidence   float64    `json:"confidence_score"`
	QualityNotes string     `json:"quality_notes,omitempty"`
	DataSource   DataSource `json:"data_source"`
}

func (b *Base) Common() *Base { return b }

// Result is implemented by every agent result through its embedded Base.
type Result interface {
	Common() *Base
}

// Endpoints holds the base URLs of the upstream APIs.
type Endpoints struct {
	ClinicalTrials string
	EuropePMC      string
	PatentsView    string
	OpenFDA        string
	IQVIA          string
	EXIM           string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		ClinicalTrials: "https://clinicaltrials.gov/api/v2/studies",
		EuropePMC:      "https://www.ebi.ac.uk/europepmc/webservices/rest/search",
		PatentsView:    "https://api.patentsview.org/patents/query",
		OpenFDA:        "https://api.fda.gov",
	}
}

// Suite runs the agents. It is safe for concurrent use.
type Suite struct {
	fetch     *Fetcher
	webhooks  *Fetcher
	endpoints Endpoints
	logger    *zap.Logger
	now       func() time.Time
}

type Options struct {
	HTTPClient     *http.Client
	WebhookTimeout time.Duration
	Retry          RetryConfig
	Cache          cache.Cache
	Endpoints      Endpoints
	Logger         *zap.Logger
	Now            func() time.Time
}

func NewSuite(opts Options) *Suite {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	webhookTimeout := opts.WebhookTimeout
	if webhookTimeout <= 0 {
		webhookTimeout = 10 * time.Second
	}
	return &Suite{
		fetch: NewFetcher(opts.HTTPClient, opts.Retry, opts.Cache, logger),
		// n8n webhooks get a single attempt with their own timeout and no cache.
		webhooks:  NewFetcher(&http.Client{Timeout: webhookTimeout}, RetryConfig{}, cache.Nop{}, logger),
		endpoints: opts.Endpoints,
		logger:    logger,
		now:       now,
	}
}

func (s *Suite) fallback(agent string, err error) {
	s.logger.Warn("upstream unavailable, using synthetic data",
		zap.String("agent", agent),
		zap.Error(err))
}

func (s *Suite) today() string {
	return s.now().Format("2006-01-02")
}

// ErrNoData reports an upstream answer that parsed but held nothing usable.
var ErrNoData = errors.New("no usable records")

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func ifElse(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

// percent returns part/total as a percentage rounded to one place.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(part)/float64(total)*100, 1)
}
