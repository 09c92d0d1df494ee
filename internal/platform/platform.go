// Package platform wires configuration into the running services shared by
// the HTTP server and the CLI.
package platform

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Skufu/repurpose/internal/agents"
	"github.com/Skufu/repurpose/internal/cache"
	"github.com/Skufu/repurpose/internal/config"
	"github.com/Skufu/repurpose/internal/notify"
	"github.com/Skufu/repurpose/internal/orchestrator"
	"github.com/Skufu/repurpose/internal/report"
	"github.com/Skufu/repurpose/internal/store"
)

type Services struct {
	Strategic *orchestrator.Strategic
	Assessor  *orchestrator.Assessor
	Reports   *report.Generator
	// Store is nil unless ENABLE_DB=true.
	Store *store.Store

	closers []func()
}

// Close releases the cache and database connections in reverse order.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Services, error) {
	svc := &Services{}

	c, closeCache, err := cache.Connect(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.CacheTTL,
	})
	if err != nil {
		return nil, err
	}
	svc.closers = append(svc.closers, func() {
		if err := closeCache(); err != nil {
			logger.Warn("close cache", zap.Error(err))
		}
	})
	if cfg.RedisAddr != "" {
		logger.Info("upstream cache enabled", zap.String("redis", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	}

	endpoints := agents.DefaultEndpoints()
	endpoints.IQVIA = cfg.N8NIQVIAURL
	endpoints.EXIM = cfg.N8NEXIMURL

	suite := agents.NewSuite(agents.Options{
		HTTPClient:     &http.Client{Timeout: cfg.HTTPTimeout},
		WebhookTimeout: cfg.WebhookTimeout,
		Retry: agents.RetryConfig{
			MaxRetries:     cfg.RetryAttempts - 1,
			InitialBackoff: cfg.RetryMinWait,
			MaxBackoff:     cfg.RetryMaxWait,
		},
		Cache:     c,
		Endpoints: endpoints,
		Logger:    logger,
	})
	notifier := notify.New(cfg.WebhookTimeout, logger)

	svc.Strategic = orchestrator.NewStrategic(suite, logger)
	svc.Assessor = orchestrator.NewAssessor(suite, notifier, cfg.N8NAnalysisWebhookURL, logger)
	svc.Reports = report.NewGenerator(cfg.ReportsDir, notifier, cfg.N8NReportWebhookURL, logger)

	if cfg.EnableDB {
		pool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		st := store.New(pool, cfg.FreeTierLimit)
		svc.closers = append(svc.closers, st.Close)
		if err := st.Migrate(ctx); err != nil {
			svc.Close()
			return nil, err
		}
		svc.Store = st
	}

	return svc, nil
}
