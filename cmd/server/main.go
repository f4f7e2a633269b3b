// Package main is the entry point for the MyPOS fiscal API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eudyespinoza/MyPOS/internal/domain/auth"
	"github.com/eudyespinoza/MyPOS/internal/domain/billing"
	"github.com/eudyespinoza/MyPOS/internal/domain/fiscalconfig"
	"github.com/eudyespinoza/MyPOS/internal/domain/sequence"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/arca/wsaa"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/arca/wsfe"
	v1 "github.com/eudyespinoza/MyPOS/internal/infrastructure/http/v1"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/storage/postgres"
	"github.com/eudyespinoza/MyPOS/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting mypos fiscal server")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	// --- Repositories ---
	sequenceRepo := postgres.NewSequenceRepo(pool)
	fiscalRepo := postgres.NewFiscalConfigRepo(pool)

	ticketStore, err := postgres.NewTicketStore(pool)
	if err != nil {
		log.Fatalw("failed to create ticket store", "error", err)
	}

	auditLog, err := postgres.NewAuditLog(pool)
	if err != nil {
		log.Fatalw("failed to create audit log", "error", err)
	}

	// --- Authority clients ---
	wsaaClient := wsaa.NewClient(wsaa.DefaultConfig(), ticketStore)
	wsfeClient := wsfe.NewClient(wsfe.Config{
		Timeout: getEnvDuration("ARCA_TIMEOUT", 30*time.Second),
	})

	// --- Services ---
	sequenceService := sequence.NewService(sequenceRepo)
	fiscalService := fiscalconfig.NewService(fiscalRepo)
	billingService := billing.NewService(
		fiscalService,
		sequenceService,
		wsaa.NewSource(wsaaClient),
		wsfeClient,
	)

	// --- JWT ---
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(mustEnv("JWT_SECRET")))

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		TokenValidator: jwtService,
		Sequences:      sequenceService,
		Fiscal:         fiscalService,
		Billing:        billingService,
		Audit:          auditLog,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
