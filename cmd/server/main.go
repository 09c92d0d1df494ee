package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/repurpose/internal/config"
	"github.com/Skufu/repurpose/internal/identity"
	"github.com/Skufu/repurpose/internal/logging"
	"github.com/Skufu/repurpose/internal/platform"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

func main() {
	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	svc, err := platform.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer svc.Close()

	a, err := newAPI(cfg, svc, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	router := setupRouter(a)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// A full analysis fans out to every upstream with retries.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("server listening",
		zap.String("port", cfg.Port),
		zap.Bool("db", cfg.EnableDB),
		zap.Bool("auth_disabled", cfg.AuthDisabled))
	waitForShutdown(server, logger)
}

// newAPI assembles the handler dependencies. Without a database there is no
// quota to enforce, so authentication becomes optional.
func newAPI(cfg *config.Config, svc *platform.Services, logger *zap.Logger) (*api, error) {
	var verifier *identity.Verifier
	if cfg.JWTSecret != "" {
		v, err := identity.NewVerifier(cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("jwt verifier: %w", err)
		}
		verifier = v
	}

	a := &api{
		analyzer:    svc.Strategic,
		assessor:    svc.Assessor,
		reports:     svc.Reports,
		freeLimit:   cfg.FreeTierLimit,
		corsOrigins: cfg.CORSOrigins,
		logger:      logger,
		auth: identity.Middleware(verifier, identity.MiddlewareConfig{
			DisableAuth: cfg.AuthDisabled,
			Optional:    svc.Store == nil,
			Logger:      logger,
		}),
	}
	if svc.Store != nil {
		a.quota = svc.Store
		a.db = svc.Store
	}
	return a, nil
}

func setupRouter(a *api) *gin.Engine {
	origins := a.corsOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Drug Analysis Platform API"})
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if a.db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "ok"
		if err := a.db.Ping(ctx); err != nil {
			dbStatus = fmt.Sprintf("unhealthy: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     dbStatus,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"db":     dbStatus,
		})
	})

	group := router.Group("/api")
	if a.auth != nil {
		group.Use(a.auth)
	}
	group.POST("/analysis", a.analyze)
	group.POST("/assessments", a.assess)
	group.POST("/reports", a.generateReport)
	group.GET("/reports/:filename", a.downloadReport)
	group.GET("/usage", a.usage)

	return router
}

func waitForShutdown(server *http.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
