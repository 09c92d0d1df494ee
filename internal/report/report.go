// Package report renders a strategic analysis as a PDF and serves the files
// back out of the reports directory.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/Skufu/repurpose/internal/orchestrator"
)

var (
	ErrNotFound    = errors.New("report not found")
	ErrInvalidName = errors.New("invalid report name")
)

const (
	filePrefix    = "Strategic_Analysis_"
	promptChars   = 50
	maxTableRows  = 10
	lineHeight    = 5.5
	headingHeight = 9.0
)

type Notifier interface {
	Send(ctx context.Context, url string, payload any) error
}

type Generator struct {
	dir        string
	notifier   Notifier
	webhookURL string
	logger     *zap.Logger
	now        func() time.Time
}

func NewGenerator(dir string, notifier Notifier, webhookURL string, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		dir:        dir,
		notifier:   notifier,
		webhookURL: webhookURL,
		logger:     logger,
		now:        time.Now,
	}
}

// Generate writes the PDF for resp and returns its path. Once the file is on
// disk a report-created notification is sent; its failure is only logged.
func (g *Generator) Generate(ctx context.Context, prompt string, resp *orchestrator.StrategicResponse) (string, error) {
	if resp == nil {
		return "", errors.New("generate report: nil analysis")
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	now := g.now()
	name := FileName(prompt, now)
	path := filepath.Join(g.dir, name)

	doc := newDocument()
	doc.titlePage(prompt, resp, now)
	doc.executiveSummary(resp.ExecutiveSummary)
	doc.classifications(resp)
	doc.recommendation(resp.StrategicRecommendation)
	doc.bulletSection("Key Insights", resp.KeyInsights, "-")
	doc.bulletSection("Risks & Knowledge Gaps", resp.RisksAndUnknowns, "!")
	doc.numberedSection("Suggested Next Steps", resp.SuggestedNextSteps)
	doc.detailedIntelligence(resp.DetailedIntelligence)

	if err := doc.pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write report %s: %w", name, err)
	}

	g.logger.Info("report generated", zap.String("file", name))
	g.notify(ctx, name, prompt, now)
	return path, nil
}

func (g *Generator) notify(ctx context.Context, name, prompt string, now time.Time) {
	if g.notifier == nil || g.webhookURL == "" {
		return
	}
	payload := map[string]any{
		"filename":  name,
		"prompt":    prompt,
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	if err := g.notifier.Send(ctx, g.webhookURL, payload); err != nil {
		g.logger.Warn("report notification failed", zap.String("file", name), zap.Error(err))
	}
}

// Open resolves name inside the reports directory. Names that would escape
// it are rejected before the filesystem is consulted.
func (g *Generator) Open(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return "", ErrInvalidName
	}

	path := filepath.Join(g.dir, name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("stat report: %w", err)
	}
	if info.IsDir() {
		return "", ErrNotFound
	}
	return path, nil
}

// FileName builds Strategic_Analysis_{slug}_{YYYYMMDD_HHMMSS}.pdf from the
// first 50 characters of the prompt.
func FileName(prompt string, at time.Time) string {
	head := prompt
	if utf8.RuneCountInString(head) > promptChars {
		head = string([]rune(head)[:promptChars])
	}
	s := strings.ReplaceAll(slug.Make(head), "-", "_")
	if s == "" {
		s = "report"
	}
	return filePrefix + s + "_" + at.Format("20060102_150405") + ".pdf"
}
