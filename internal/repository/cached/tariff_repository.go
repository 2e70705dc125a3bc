package cached

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	redisv9 "github.com/redis/go-redis/v9"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
	"github.com/frontandrew/parkpos/internal/repository"
)

const (
	tariffsCacheKey = "tariffs:all"
	tariffsCacheTTL = 1 * time.Hour
)

// Cache - операции кэша, которые нужны декоратору
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// TariffRepository добавляет кэширование к tariff repository
// Тарифы читаются при каждом расчете стоянки, а меняются редко.
type TariffRepository struct {
	repo   repository.TariffRepository
	cache  Cache
	logger logger.Logger
}

// NewTariffRepository создает новый кэшируемый tariff repository
func NewTariffRepository(repo repository.TariffRepository, cache Cache, log logger.Logger) *TariffRepository {
	return &TariffRepository{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

// Get возвращает тарифы (с кэшированием)
func (r *TariffRepository) Get(ctx context.Context) (domain.Tariffs, error) {
	// 1. Проверяем кэш
	cached, err := r.cache.Get(ctx, tariffsCacheKey)
	if err == nil {
		var tariffs domain.Tariffs
		if jsonErr := json.Unmarshal([]byte(cached), &tariffs); jsonErr == nil {
			return tariffs, nil
		}
		// Битое значение - удаляем и идем в БД
		_ = r.cache.Del(ctx, tariffsCacheKey)
	} else if !errors.Is(err, redisv9.Nil) {
		// Ошибка кэша не ломает расчет, работаем с БД
		r.logger.Warn("Tariffs cache read failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// 2. Cache miss - идем в БД
	tariffs, err := r.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	// 3. Сохраняем результат в кэш
	if raw, err := json.Marshal(tariffs); err == nil {
		_ = r.cache.Set(ctx, tariffsCacheKey, string(raw), tariffsCacheTTL)
	}

	return tariffs, nil
}

// Replace заменяет тарифы и инвалидирует кэш
func (r *TariffRepository) Replace(ctx context.Context, tariffs domain.Tariffs) error {
	if err := r.repo.Replace(ctx, tariffs); err != nil {
		return err
	}

	_ = r.cache.Del(ctx, tariffsCacheKey)

	return nil
}
