// Package orchestrator runs the evidence agents for a prompt or a
// drug/indication pair and turns their results into a strategic verdict.
package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Skufu/repurpose/internal/agents"
)

// Notifier delivers best-effort workflow notifications.
type Notifier interface {
	Send(ctx context.Context, url string, payload any) error
}

// Intelligence holds the results of one run. Agents that were not planned
// stay nil and are omitted from JSON. Field order is the assembly order used
// for insight extraction.
type Intelligence struct {
	IQVIA      *agents.IQVIAResult      `json:"iqvia,omitempty"`
	EXIM       *agents.EXIMResult       `json:"exim,omitempty"`
	Clinical   *agents.ClinicalResult   `json:"clinical,omitempty"`
	Literature *agents.LiteratureResult `json:"literature,omitempty"`
	Patent     *agents.PatentResult     `json:"patent,omitempty"`
	Market     *agents.MarketResult     `json:"market,omitempty"`
	Safety     *agents.SafetyResult     `json:"safety,omitempty"`
	MoA        *agents.MoAResult        `json:"moa,omitempty"`
	PPI        *agents.PPIResult        `json:"ppi,omitempty"`
	Similarity *agents.SimilarityResult `json:"similarity,omitempty"`
	Hypotheses *agents.HypothesisResult `json:"hypotheses,omitempty"`
	Internal   *agents.InternalResult   `json:"internal,omitempty"`
	Regulatory *agents.RegulatoryResult `json:"regulatory,omitempty"`
}

// Results lists the non-nil results in assembly order.
func (in *Intelligence) Results() []agents.Result {
	if in == nil {
		return nil
	}
	var out []agents.Result
	add := func(present bool, r agents.Result) {
		if present {
			out = append(out, r)
		}
	}
	add(in.IQVIA != nil, in.IQVIA)
	add(in.EXIM != nil, in.EXIM)
	add(in.Clinical != nil, in.Clinical)
	add(in.Literature != nil, in.Literature)
	add(in.Patent != nil, in.Patent)
	add(in.Market != nil, in.Market)
	add(in.Safety != nil, in.Safety)
	add(in.MoA != nil, in.MoA)
	add(in.PPI != nil, in.PPI)
	add(in.Similarity != nil, in.Similarity)
	add(in.Hypotheses != nil, in.Hypotheses)
	add(in.Internal != nil, in.Internal)
	add(in.Regulatory != nil, in.Regulatory)
	return out
}

// selection says which agents a run needs.
type selection struct {
	iqvia, exim, clinical, literature, patent, market, safety bool
	moa, ppi, similarity, hypotheses, internal, regulatory    bool
}

func everyAgent() selection {
	return selection{
		iqvia: true, exim: true, clinical: true, literature: true, patent: true, market: true, safety: true,
		moa: true, ppi: true, similarity: true, hypotheses: true, internal: true, regulatory: true,
	}
}

// gather runs the selected agents. Independent agents run concurrently; MoA
// feeds PPI inside one goroutine and hypotheses run last because they read
// the mechanistic and evidence results.
func gather(ctx context.Context, suite *agents.Suite, drug, indication string, sel selection, diseaseGenes []string) (*Intelligence, error) {
	in := &Intelligence{}
	g, gctx := errgroup.WithContext(ctx)
	run := func(enabled bool, fn func(ctx context.Context)) {
		if !enabled {
			return
		}
		g.Go(func() error {
			fn(gctx)
			return gctx.Err()
		})
	}

	run(sel.iqvia, func(ctx context.Context) { in.IQVIA = suite.IQVIA(ctx, drug, indication) })
	run(sel.exim, func(ctx context.Context) { in.EXIM = suite.EXIM(ctx, drug, indication) })
	run(sel.clinical, func(ctx context.Context) { in.Clinical = suite.Clinical(ctx, drug, indication) })
	run(sel.literature, func(ctx context.Context) { in.Literature = suite.Literature(ctx, drug, indication) })
	run(sel.patent, func(ctx context.Context) { in.Patent = suite.Patent(ctx, drug, indication) })
	run(sel.market, func(ctx context.Context) { in.Market = suite.Market(ctx, drug, indication) })
	run(sel.safety, func(ctx context.Context) { in.Safety = suite.Safety(ctx, drug, indication) })
	run(sel.similarity, func(context.Context) { in.Similarity = suite.Similarity(drug, indication) })
	run(sel.internal, func(context.Context) { in.Internal = suite.Internal(drug, indication) })
	run(sel.regulatory, func(context.Context) { in.Regulatory = suite.Regulatory(drug, indication) })
	run(sel.moa || sel.ppi, func(context.Context) {
		var targets []string
		if sel.moa {
			in.MoA = suite.MoA(drug, indication)
			for _, t := range in.MoA.Targets {
				targets = append(targets, t.Name)
			}
		}
		if sel.ppi {
			in.PPI = suite.PPI(drug, indication, targets, diseaseGenes)
		}
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gather intelligence: %w", err)
	}

	if sel.hypotheses {
		in.Hypotheses = suite.Hypotheses(drug, indication, in.MoA, in.PPI, in.Similarity, evidenceFeatures(in))
	}
	return in, nil
}

func evidenceFeatures(in *Intelligence) agents.EvidenceFeatures {
	f := agents.EvidenceFeatures{
		ClinicalConfidence:   0.5,
		LiteratureConfidence: 0.5,
		SafetyConfidence:     0.5,
		MarketConfidence:     0.5,
	}
	if in.Clinical != nil {
		f.ClinicalConfidence = in.Clinical.Confidence
	}
	if in.Literature != nil {
		f.LiteratureConfidence = in.Literature.Confidence
	}
	if in.Safety != nil {
		f.SafetyConfidence = in.Safety.Confidence
	}
	if in.Market != nil {
		f.MarketConfidence = in.Market.Confidence
	}
	return f
}
