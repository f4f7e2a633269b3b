// Package main is the bulk-authorization job. Invoked by cron near each
// half-period boundary, it requests the CAEA code covering the current
// half-period for every configured store and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/eudyespinoza/MyPOS/internal/domain/billing"
	"github.com/eudyespinoza/MyPOS/internal/domain/fiscalconfig"
	"github.com/eudyespinoza/MyPOS/internal/domain/sequence"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/arca/wsaa"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/arca/wsfe"
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

	storeIDs := splitStoreIDs(mustEnv("CAEA_STORE_IDS"))
	if len(storeIDs) == 0 {
		log.Fatal("CAEA_STORE_IDS is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	ticketStore, err := postgres.NewTicketStore(pool)
	if err != nil {
		log.Fatalw("failed to create ticket store", "error", err)
	}

	billingService := billing.NewService(
		fiscalconfig.NewService(postgres.NewFiscalConfigRepo(pool)),
		sequence.NewService(postgres.NewSequenceRepo(pool)),
		wsaa.NewSource(wsaa.NewClient(wsaa.DefaultConfig(), ticketStore)),
		wsfe.NewClient(wsfe.Config{}),
	)

	now := time.Now()
	period, order := billing.PeriodOrder(now)
	log.Infow("requesting bulk authorization codes",
		"period", period,
		"order", order,
		"stores", len(storeIDs),
	)

	failed := 0
	for _, storeID := range storeIDs {
		alloc, err := billingService.RequestPeriodAllocation(ctx, storeID, now)
		if err != nil {
			log.Errorw("bulk code request failed",
				"store_id", storeID,
				"error", err,
			)
			failed++
			continue
		}
		log.Infow("bulk code obtained",
			"store_id", storeID,
			"period", alloc.Period,
			"order", alloc.Order,
			"valid_until", alloc.ValidUntil,
		)
	}

	if failed > 0 {
		log.Fatalw("bulk authorization incomplete", "failed", failed)
	}
	log.Info("bulk authorization complete")
}

func splitStoreIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
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
