package agents

import (
	"context"
	"errors"
	"fmt"
)

var errNoWebhook = errors.New("webhook url not configured")

type CompetitorShare struct {
	Name        string  `json:"name"`
	MarketShare float64 `json:"market_share"`
}

type IQVIAResult struct {
	Base
	MarketSizeMillions float64            `json:"market_size_usd_millions"`
	CAGRPercent        float64            `json:"cagr_percent"`
	MarketSharePercent float64            `json:"current_market_share_percent"`
	TopCompetitors     []CompetitorShare  `json:"top_competitors"`
	RegionalBreakdown  map[string]float64 `json:"regional_breakdown"`
	Forecast2025       float64            `json:"forecast_2025"`
	Forecast2030       float64            `json:"forecast_2030"`
	KeyInsights        []string           `json:"key_insights"`
}

type TradePartner struct {
	Country       string  `json:"country"`
	ValueMillions float64 `json:"value_usd_millions"`
}

type TradeTrends struct {
	ExportGrowthPercent float64 `json:"export_growth_yoy_percent"`
	ImportGrowthPercent float64 `json:"import_growth_yoy_percent"`
	BalanceTrend        string  `json:"trade_balance_trend"`
}

type EXIMResult struct {
	Base
	ExportsMillions    float64        `json:"total_exports_usd_millions"`
	ImportsMillions    float64        `json:"total_imports_usd_millions"`
	BalanceMillions    float64        `json:"trade_balance_usd_millions"`
	ExportDestinations []TradePartner `json:"top_export_destinations"`
	ImportSources      []TradePartner `json:"top_import_sources"`
	Trends             TradeTrends    `json:"trade_trends"`
	KeyInsights        []string       `json:"key_insights"`
}

type webhookRequest struct {
	Drug       string `json:"drug"`
	Indication string `json:"indication"`
}

func (s *Suite) callWebhook(ctx context.Context, source, url, drug, indication string, out any) error {
	if url == "" {
		return errNoWebhook
	}
	return s.webhooks.PostJSON(ctx, source, url, webhookRequest{Drug: drug, Indication: indication}, out)
}

// IQVIA fetches market intelligence through the n8n IQVIA webhook.
func (s *Suite) IQVIA(ctx context.Context, drug, indication string) *IQVIAResult {
	res := &IQVIAResult{}
	if err := s.callWebhook(ctx, "n8n-iqvia", s.endpoints.IQVIA, drug, indication, res); err == nil {
		res.Agent, res.Section, res.DataSource = "iqvia", "IQVIA Market Intelligence", SourceLive
		if res.Confidence == 0 {
			res.Confidence = 0.65
		}
		s.iqviaTables(res)
		return res
	} else if !errors.Is(err, errNoWebhook) {
		s.fallback("iqvia", err)
	}

	seed := ArithSeed(drug, indication)
	size := float64(500 + seed%5000)
	growth := round(3.5+float64(seed%15), 1)
	share := float64(5 + seed%30)
	res = &IQVIAResult{
		Base: Base{
			Agent:        "iqvia",
			Section:      "IQVIA Market Intelligence",
			DataSource:   SourceSynthetic,
			Confidence:   0.65,
			QualityNotes: "Synthetic IQVIA-style market data (n8n webhook unavailable)",
		},
		MarketSizeMillions: size,
		CAGRPercent:        growth,
		MarketSharePercent: share,
		TopCompetitors: []CompetitorShare{
			{"Competitor A", 25.3},
			{"Competitor B", 18.7},
			{"Competitor C", 15.2},
		},
		RegionalBreakdown: map[string]float64{
			"North America": 45,
			"Europe":        30,
			"Asia Pacific":  20,
			"Rest of World": 5,
		},
		Forecast2025: size * 1.15,
		Forecast2030: size * 1.45,
		KeyInsights: []string{
			fmt.Sprintf("Market size estimated at $%.0fM with %.1f%% CAGR", size, growth),
			fmt.Sprintf("Current market share opportunity: %.1f%%", share),
			"Strong growth in emerging markets",
			"Increasing demand for innovative therapies",
		},
	}
	s.iqviaTables(res)
	return res
}

func (s *Suite) iqviaTables(res *IQVIAResult) {
	res.Summary = fmt.Sprintf("Market size $%.0fM growing at %.1f%% CAGR; forecast $%.0fM by 2030.",
		res.MarketSizeMillions, res.CAGRPercent, res.Forecast2030)
	competitors := Table{Title: "Top Competitors", Columns: []string{"Competitor", "Market Share (%)"}}
	for _, c := range res.TopCompetitors {
		competitors.Rows = append(competitors.Rows, []string{c.Name, fmt.Sprintf("%.1f", c.MarketShare)})
	}
	regions := Table{Title: "Regional Breakdown", Columns: []string{"Region", "Share (%)"}}
	for _, region := range []string{"North America", "Europe", "Asia Pacific", "Rest of World"} {
		if v, ok := res.RegionalBreakdown[region]; ok {
			regions.Rows = append(regions.Rows, []string{region, fmt.Sprintf("%.0f", v)})
		}
	}
	res.Tables = []Table{competitors, regions}
}

// EXIM fetches import/export intelligence through the n8n EXIM webhook.
func (s *Suite) EXIM(ctx context.Context, drug, indication string) *EXIMResult {
	res := &EXIMResult{}
	if err := s.callWebhook(ctx, "n8n-exim", s.endpoints.EXIM, drug, indication, res); err == nil {
		res.Agent, res.Section, res.DataSource = "exim", "EXIM Trade Intelligence", SourceLive
		if res.Confidence == 0 {
			res.Confidence = 0.60
		}
		s.eximTables(res)
		return res
	} else if !errors.Is(err, errNoWebhook) {
		s.fallback("exim", err)
	}

	seed := ArithSeed(drug, indication, "exim")
	exports := float64(50 + seed%500)
	imports := float64(30 + seed%300)
	balance := exports - imports
	res = &EXIMResult{
		Base: Base{
			Agent:        "exim",
			Section:      "EXIM Trade Intelligence",
			DataSource:   SourceSynthetic,
			Confidence:   0.60,
			QualityNotes: "Synthetic EXIM-style trade data (n8n webhook unavailable)",
		},
		ExportsMillions: exports,
		ImportsMillions: imports,
		BalanceMillions: balance,
		ExportDestinations: []TradePartner{
			{"United States", exports * 0.35},
			{"Germany", exports * 0.25},
			{"United Kingdom", exports * 0.20},
		},
		ImportSources: []TradePartner{
			{"China", imports * 0.40},
			{"India", imports * 0.30},
			{"Switzerland", imports * 0.20},
		},
		Trends: TradeTrends{
			ExportGrowthPercent: 8.5 + float64(seed%10),
			ImportGrowthPercent: 6.2 + float64(seed%8),
			BalanceTrend:        ifElse(exports > imports, "Positive", "Negative"),
		},
		KeyInsights: []string{
			fmt.Sprintf("Total pharmaceutical exports: $%.0fM", exports),
			fmt.Sprintf("Trade balance: $%.0fM %s", balance, ifElse(exports > imports, "surplus", "deficit")),
			"Strong export growth in developed markets",
			"Increasing import competition from Asia",
		},
	}
	s.eximTables(res)
	return res
}

func (s *Suite) eximTables(res *EXIMResult) {
	res.Summary = fmt.Sprintf("Exports $%.0fM, imports $%.0fM, trade balance $%.0fM (%s).",
		res.ExportsMillions, res.ImportsMillions, res.BalanceMillions, res.Trends.BalanceTrend)
	partners := Table{Title: "Trade Partners", Columns: []string{"Flow", "Country", "Value ($M)"}}
	for _, p := range res.ExportDestinations {
		partners.Rows = append(partners.Rows, []string{"Export", p.Country, fmt.Sprintf("%.1f", p.ValueMillions)})
	}
	for _, p := range res.ImportSources {
		partners.Rows = append(partners.Rows, []string{"Import", p.Country, fmt.Sprintf("%.1f", p.ValueMillions)})
	}
	res.Tables = []Table{partners}
}
