//go:build ignore

// Проверка кэша тарифов на живом Redis:
//
//	REDIS_HOST=localhost go run scripts/check_tariff_cache.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/config"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
	"github.com/frontandrew/parkpos/internal/pkg/redis"
	"github.com/frontandrew/parkpos/internal/repository/cached"
)

// memoryTariffs - источник тарифов вместо БД, считает обращения
type memoryTariffs struct {
	tariffs domain.Tariffs
	reads   int
}

func (m *memoryTariffs) Get(_ context.Context) (domain.Tariffs, error) {
	m.reads++
	return m.tariffs.Clone(), nil
}

func (m *memoryTariffs) Replace(_ context.Context, tariffs domain.Tariffs) error {
	m.tariffs = tariffs.Clone()
	return nil
}

func main() {
	fmt.Println("=========================================")
	fmt.Println("Tariff cache check")
	fmt.Println("=========================================")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fail("Failed to load config", err)
	}

	client, err := redis.NewClient(redis.Config{
		Addr:      cfg.Redis.Address(),
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix + "check:",
	})
	if err != nil {
		fail("Failed to connect to Redis", err)
	}
	defer client.Close()

	fmt.Printf("✅ Connected to Redis at %s\n\n", cfg.Redis.Address())

	ctx := context.Background()
	source := &memoryTariffs{tariffs: domain.DefaultTariffs()}
	repo := cached.NewTariffRepository(source, client, logger.NewConsole("warn"))

	// Test 1: промах, затем попадание
	fmt.Println("Test 1: miss then hit")
	if err := repo.Replace(ctx, source.tariffs); err != nil {
		fail("Replace failed", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := repo.Get(ctx); err != nil {
			fail("Get failed", err)
		}
	}
	if source.reads != 1 {
		fail("Second read should come from cache", fmt.Errorf("source reads = %d", source.reads))
	}
	fmt.Println("✅ Second read served by Redis")
	fmt.Println()

	// Test 2: замена тарифов инвалидирует кэш
	fmt.Println("Test 2: replace invalidates cache")
	updated := domain.Tariffs{"Sedán": 2500, "Moto": 1200}
	if err := repo.Replace(ctx, updated); err != nil {
		fail("Replace failed", err)
	}
	got, err := repo.Get(ctx)
	if err != nil {
		fail("Get failed", err)
	}
	if got.RateFor("Sedán") != 2500 {
		fail("Stale tariffs returned", fmt.Errorf("Sedán = %.0f", got.RateFor("Sedán")))
	}
	fmt.Println("✅ Fresh tariffs after replace")
	fmt.Println()

	// Cleanup
	_ = repo.Replace(ctx, updated)

	fmt.Println("=========================================")
	fmt.Println("✅ Tariff cache works")
	fmt.Println("=========================================")
}

func fail(msg string, err error) {
	fmt.Printf("❌ %s: %v\n", msg, err)
	os.Exit(1)
}
