package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/amadolemli/factureman-sub000/docs"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/config"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/logger"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/telemetry"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/handler"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/middleware"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceVersion = "1.0.0"

//	@title			Factureman Ledger API
//	@version		1.0
//	@description	Customer credit ledgers, documents and offline-first reconciliation

//	@BasePath	/api/v1

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	providers, err := telemetry.NewProviders(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = providers.BridgeLogger(log, zapcore.InfoLevel)

	log.Info("Starting ledger service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("owner_id", cfg.Local.OwnerID.String()),
		zap.String("remote", cfg.Remote.Driver),
	)

	a, err := newApp(ctx, cfg, providers, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.close()

	if err := a.start(ctx); err != nil {
		log.Fatal("Failed to start background services", zap.Error(err))
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup custom validator for consistent error messages
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	// Middleware order matters: request id first so every later layer can log it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     providers.Enabled(),
		SkipPaths:   []string{"/health"},
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(providers.Meter("factureman/http")))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", healthHandler(a))

	scanLimiter := middleware.NewRateLimiter(cfg.HTTP.ScanRateLimit, cfg.HTTP.ScanRateWindow)
	defer scanLimiter.Stop()

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithSwagger(cfg.HTTP.SwaggerEnabled),
	)
	r.Use(middleware.Owner(cfg.Local.OwnerID), middleware.TracingAttributeInjector())
	if cfg.Idempotency.Enabled {
		r.Use(middleware.Idempotency(a.idempotency, cfg.Idempotency.TTL))
	}
	router.RegisterAPI(r, router.Handlers{
		System:    handler.NewSystemHandler(cfg.App.Name, serviceVersion, cfg.Local.OwnerID),
		Ledger:    handler.NewLedgerHandler(a.ledgers, a.finalization),
		Document:  handler.NewDocumentHandler(a.finalization),
		Product:   handler.NewProductHandler(a.stock),
		Profile:   handler.NewProfileHandler(a.profile),
		Billing:   handler.NewBillingHandler(a.quota),
		Sync:      a.syncHandler(),
		ScanLimit: middleware.RateLimit(scanLimiter),
	}).Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.stop(shutdownCtx)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports the local store and, when configured, the remote one
func healthHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		body := gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"local":  "ok",
			"online": a.monitor.IsOnline(),
		}
		status := http.StatusOK

		if err := a.local.Ping(c.Request.Context()); err != nil {
			reqLog.Warn("Health check failed", zap.String("store", "local"), zap.Error(err))
			body["status"] = "unhealthy"
			body["local"] = "error"
			status = http.StatusServiceUnavailable
		}
		if a.remotePing != nil {
			body["remote"] = "ok"
			if err := a.remotePing(c.Request.Context()); err != nil {
				// The device keeps working offline; a dead remote only degrades sync
				reqLog.Warn("Remote store unreachable", zap.Error(err))
				body["remote"] = "error"
				if status == http.StatusOK {
					body["status"] = "degraded"
				}
			}
		}
		c.JSON(status, body)
	}
}
