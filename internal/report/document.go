package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/Skufu/repurpose/internal/agents"
	"github.com/Skufu/repurpose/internal/orchestrator"
)

// The core fonts only cover cp1252; the rest is mapped to ASCII first.
var asciiFallback = strings.NewReplacer(
	"→", "->",
	"←", "<-",
	"≥", ">=",
	"≤", "<=",
	"⚠", "!",
	"✓", "+",
	"✗", "x",
	"×", "x",
	"α", "alpha",
	"β", "beta",
	"γ", "gamma",
	"κ", "kappa",
)

type document struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	width float64
}

func newDocument() *document {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(25, 25, 25)
	pdf.SetAutoPageBreak(true, 25)
	pdf.SetTitle("Strategic Intelligence Report", true)

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	return &document{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		width: pageW - left - right,
	}
}

func (d *document) text(s string) string {
	return d.tr(asciiFallback.Replace(s))
}

func (d *document) heading(title string) {
	d.pdf.Ln(4)
	d.pdf.SetFont("Helvetica", "B", 16)
	d.pdf.SetTextColor(37, 99, 235)
	d.pdf.CellFormat(0, headingHeight, d.text(title), "", 1, "L", false, 0, "")
	d.pdf.Ln(2)
	d.body()
}

func (d *document) subheading(title string) {
	d.pdf.Ln(2)
	d.pdf.SetFont("Helvetica", "B", 13)
	d.pdf.SetTextColor(30, 64, 175)
	d.pdf.CellFormat(0, 7, d.text(title), "", 1, "L", false, 0, "")
	d.body()
}

func (d *document) body() {
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.SetTextColor(0, 0, 0)
}

func (d *document) paragraph(s string) {
	d.pdf.MultiCell(0, lineHeight, d.text(s), "", "J", false)
	d.pdf.Ln(1.5)
}

// rich writes one line where **text** spans are set in bold.
func (d *document) rich(line string) {
	for i, part := range strings.Split(line, "**") {
		if part == "" {
			continue
		}
		style := ""
		if i%2 == 1 {
			style = "B"
		}
		d.pdf.SetFont("Helvetica", style, 11)
		d.pdf.Write(lineHeight, d.text(part))
	}
	d.body()
	d.pdf.Ln(lineHeight)
}

func (d *document) labelled(label, value string) {
	d.rich("**" + label + ":** " + orNA(value))
}

func (d *document) titlePage(prompt string, resp *orchestrator.StrategicResponse, at time.Time) {
	d.pdf.AddPage()
	d.pdf.Ln(45)
	d.pdf.SetFont("Helvetica", "B", 24)
	d.pdf.SetTextColor(30, 64, 175)
	d.pdf.CellFormat(0, 12, "Strategic Intelligence Report", "", 1, "C", false, 0, "")
	d.pdf.Ln(12)

	d.body()
	d.labelled("Query", prompt)
	d.pdf.Ln(6)
	d.labelled("Report Generated", at.Format("January 02, 2006 at 03:04 PM"))
	d.labelled("Query Type", orchestrator.TitleCase(resp.QueryType))
	d.labelled("Agents Activated", fmt.Sprint(len(resp.AgentsActivated)))
}

func (d *document) executiveSummary(summary string) {
	d.pdf.AddPage()
	d.heading("Executive Summary")
	if strings.TrimSpace(summary) == "" {
		summary = "No summary available"
	}
	for _, para := range strings.Split(summary, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for _, line := range strings.Split(para, "\n") {
			d.rich(line)
		}
		d.pdf.Ln(2)
	}
}

func (d *document) classifications(resp *orchestrator.StrategicResponse) {
	d.pdf.AddPage()
	d.heading("Strategic Assessment")
	d.table([]string{"Dimension", "Classification"}, [][]string{
		{"Evidence Strength", orNA(resp.EvidenceStrength)},
		{"Scientific Plausibility", orNA(resp.ScientificPlausibility)},
		{"Innovation Attractiveness", orNA(resp.InnovationAttractiveness)},
		{"Commercial Feasibility", orNA(resp.CommercialFeasibility)},
	})
}

func (d *document) recommendation(rec orchestrator.Recommendation) {
	if rec.Classification == "" {
		return
	}
	d.heading("Strategic Recommendation")
	d.pdf.SetTextColor(5, 150, 105)
	d.labelled("Classification", rec.Classification)
	d.labelled("Rationale", rec.Rationale)
	d.labelled("Confidence Band", rec.ConfidenceBand)
}

func (d *document) bulletSection(title string, items []string, marker string) {
	if len(items) == 0 {
		return
	}
	d.heading(title)
	for _, item := range items {
		d.paragraph(marker + " " + item)
	}
}

func (d *document) numberedSection(title string, items []string) {
	if len(items) == 0 {
		return
	}
	d.heading(title)
	for i, item := range items {
		d.paragraph(fmt.Sprintf("%d. %s", i+1, item))
	}
}

func (d *document) detailedIntelligence(in *orchestrator.Intelligence) {
	results := in.Results()
	if len(results) == 0 {
		return
	}
	d.pdf.AddPage()
	d.heading("Detailed Intelligence")
	d.paragraph("The following sections contain detailed data from each intelligence agent.")

	for _, r := range results {
		d.agentSection(r.Common())
	}
}

func (d *document) agentSection(b *agents.Base) {
	title := b.Section
	if title == "" {
		title = orchestrator.TitleCase(b.Agent)
	}
	d.subheading(title)
	d.labelled("Data Source", string(b.DataSource))
	d.labelled("Confidence", fmt.Sprintf("%.0f%%", b.Confidence*100))
	if b.Summary != "" {
		d.paragraph(b.Summary)
	}
	for _, finding := range b.KeyFindings {
		d.paragraph("- " + finding)
	}
	if len(b.Tables) > 0 {
		t := b.Tables[0]
		if t.Title != "" {
			d.rich("**" + t.Title + "**")
		}
		rows := t.Rows
		if len(rows) > maxTableRows {
			rows = rows[:maxTableRows]
		}
		d.table(t.Columns, rows)
	}
	d.pdf.Ln(4)
}

// table draws a grid with equal column widths. Cell text that does not fit
// is cut with an ellipsis.
func (d *document) table(columns []string, rows [][]string) {
	if len(columns) == 0 {
		return
	}
	w := d.width / float64(len(columns))

	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.SetFillColor(37, 99, 235)
	d.pdf.SetTextColor(255, 255, 255)
	for _, col := range columns {
		d.pdf.CellFormat(w, 7, d.fit(col, w), "1", 0, "L", true, 0, "")
	}
	d.pdf.Ln(-1)

	d.pdf.SetFont("Helvetica", "", 9)
	d.pdf.SetFillColor(245, 245, 220)
	d.pdf.SetTextColor(0, 0, 0)
	for _, row := range rows {
		for i := range columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			d.pdf.CellFormat(w, 6, d.fit(cell, w), "1", 0, "L", true, 0, "")
		}
		d.pdf.Ln(-1)
	}
	d.body()
	d.pdf.Ln(3)
}

func (d *document) fit(s string, w float64) string {
	s = d.text(s)
	limit := w - 2
	if d.pdf.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 0 && d.pdf.GetStringWidth(s+"...") > limit {
		s = s[:len(s)-1]
	}
	return s + "..."
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
