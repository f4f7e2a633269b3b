// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/eudyespinoza/MyPOS/internal/domain/billing"
	"github.com/eudyespinoza/MyPOS/internal/domain/fiscalconfig"
	"github.com/eudyespinoza/MyPOS/internal/domain/sequence"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/http/v1/handlers"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/http/v1/middleware"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/storage/postgres"
	"github.com/eudyespinoza/MyPOS/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (health checks).
	Pool *postgres.Pool

	// Logger for request logging.
	Logger *logger.Logger

	// TokenValidator for operator token validation.
	TokenValidator middleware.TokenValidator

	// Services.
	Sequences *sequence.Service
	Fiscal    *fiscalconfig.Service
	Billing   *billing.Service

	// Audit records authorization attempts; may be nil.
	Audit *postgres.AuditLog
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	// API v1, operator token required
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.TokenValidator))

	sequenceHandler := handlers.NewSequenceHandler(cfg.Sequences)
	sequences := api.Group("/sequences")
	{
		sequences.GET("", sequenceHandler.List)
		sequences.PUT("", middleware.RequireAdmin(), sequenceHandler.Configure)
		sequences.POST("/allocate", sequenceHandler.Allocate)
	}

	fiscalHandler := handlers.NewFiscalHandler(cfg.Fiscal)
	fiscal := api.Group("/fiscal")
	{
		fiscal.GET("/config/:storeId", fiscalHandler.Get)
		fiscal.PUT("/config", middleware.RequireAdmin(), fiscalHandler.Save)
	}

	invoiceHandler := handlers.NewInvoiceHandler(cfg.Billing, cfg.Audit)
	invoices := api.Group("/invoices")
	{
		invoices.POST("", invoiceHandler.Issue)
		invoices.POST("/caea", middleware.RequireAdmin(), invoiceHandler.RequestPeriodAllocation)
	}

	return router
}
