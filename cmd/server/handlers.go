package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Skufu/repurpose/internal/identity"
	"github.com/Skufu/repurpose/internal/orchestrator"
	"github.com/Skufu/repurpose/internal/report"
	"github.com/Skufu/repurpose/internal/store"
)

type Analyzer interface {
	Run(ctx context.Context, prompt string) (*orchestrator.StrategicResponse, error)
}

type Assessor interface {
	Run(ctx context.Context, drug, indication string) (*orchestrator.Assessment, error)
}

type Reporter interface {
	Generate(ctx context.Context, prompt string, resp *orchestrator.StrategicResponse) (string, error)
	Open(name string) (string, error)
}

type Quota interface {
	ConsumeAnalysis(ctx context.Context, username string) (store.User, error)
	Status(ctx context.Context, username string) (store.SubscriptionStatus, error)
}

type api struct {
	analyzer Analyzer
	assessor Assessor
	reports  Reporter
	// quota and db are nil when ENABLE_DB=false.
	quota Quota
	db    HealthChecker

	auth        gin.HandlerFunc
	freeLimit   int
	corsOrigins []string
	logger      *zap.Logger
}

type analysisRequest struct {
	DrugName        string `json:"drug_name"`
	Indication      string `json:"indication"`
	StrategicPrompt string `json:"strategic_prompt"`
}

// prompt prefers the free-form strategic prompt and otherwise phrases the
// drug/indication pair as one.
func (r analysisRequest) prompt() (string, bool) {
	if p := strings.TrimSpace(r.StrategicPrompt); p != "" {
		return p, true
	}
	drug, indication := strings.TrimSpace(r.DrugName), strings.TrimSpace(r.Indication)
	if drug != "" && indication != "" {
		return fmt.Sprintf("Analyze repurposing potential for %s in %s", drug, indication), true
	}
	return "", false
}

type reportRequest struct {
	Prompt  string                          `json:"prompt"`
	Results *orchestrator.StrategicResponse `json:"results"`
}

func (a *api) analyze(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, "invalid payload")
		return
	}
	prompt, ok := req.prompt()
	if !ok {
		validationFailed(c, "Either drug_name + indication or strategic_prompt must be provided")
		return
	}

	if !a.consumeQuota(c) {
		return
	}

	results, err := a.analyzer.Run(c.Request.Context(), prompt)
	if err != nil {
		a.internalError(c, "analysis failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report_id": uuid.NewString(),
		"prompt":    prompt,
		"results":   results,
	})
}

func (a *api) assess(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, "invalid payload")
		return
	}
	if strings.TrimSpace(req.DrugName) == "" || strings.TrimSpace(req.Indication) == "" {
		validationFailed(c, "drug_name and indication are required")
		return
	}

	if !a.consumeQuota(c) {
		return
	}

	out, err := a.assessor.Run(c.Request.Context(), req.DrugName, req.Indication)
	if errors.Is(err, orchestrator.ErrInvalidInput) {
		validationFailed(c, err.Error())
		return
	}
	if err != nil {
		a.internalError(c, "assessment failed", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) generateReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, "invalid payload")
		return
	}
	if req.Results == nil {
		validationFailed(c, "results are required")
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = req.Results.OriginalPrompt
	}

	if a.quota != nil {
		status, ok := a.subscription(c)
		if !ok {
			return
		}
		if !status.CanGeneratePDF {
			c.JSON(http.StatusForbidden, gin.H{"detail": "PDF generation requires a PRO subscription"})
			return
		}
	}

	path, err := a.reports.Generate(c.Request.Context(), prompt, req.Results)
	if err != nil {
		a.internalError(c, "PDF generation failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "PDF generated successfully",
		"pdf_path": path,
		"filename": filepath.Base(path),
	})
}

func (a *api) downloadReport(c *gin.Context) {
	name := c.Param("filename")
	path, err := a.reports.Open(name)
	if errors.Is(err, report.ErrNotFound) || errors.Is(err, report.ErrInvalidName) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Report not found"})
		return
	}
	if err != nil {
		a.internalError(c, "report lookup failed", err)
		return
	}
	c.FileAttachment(path, name)
}

func (a *api) usage(c *gin.Context) {
	if a.quota == nil {
		c.JSON(http.StatusOK, store.StatusOf(store.User{Tier: store.TierFree, SubscriptionStatus: "inactive"}, a.freeLimit))
		return
	}
	status, ok := a.subscription(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, status)
}

// consumeQuota counts the request against the caller's monthly limit. It
// writes the error response itself and reports whether to continue.
func (a *api) consumeQuota(c *gin.Context) bool {
	if a.quota == nil {
		return true
	}
	username, ok := a.username(c)
	if !ok {
		return false
	}

	_, err := a.quota.ConsumeAnalysis(c.Request.Context(), username)
	var quotaErr store.QuotaError
	switch {
	case err == nil:
		return true
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"detail": fmt.Sprintf("Monthly analysis limit reached (%d). Upgrade to PRO for unlimited analyses.", quotaErr.Limit),
			"limit":  quotaErr.Limit,
			"used":   quotaErr.Used,
		})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not found"})
	default:
		a.internalError(c, "quota check failed", err)
	}
	return false
}

func (a *api) subscription(c *gin.Context) (store.SubscriptionStatus, bool) {
	username, ok := a.username(c)
	if !ok {
		return store.SubscriptionStatus{}, false
	}
	status, err := a.quota.Status(c.Request.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not found"})
		return store.SubscriptionStatus{}, false
	}
	if err != nil {
		a.internalError(c, "usage lookup failed", err)
		return store.SubscriptionStatus{}, false
	}
	return status, true
}

func (a *api) username(c *gin.Context) (string, bool) {
	claims, ok := identity.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return "", false
	}
	return claims.Username, true
}

func (a *api) internalError(c *gin.Context, msg string, err error) {
	a.logger.Error(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": msg})
}

func validationFailed(c *gin.Context, detail string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "detail": detail})
}
