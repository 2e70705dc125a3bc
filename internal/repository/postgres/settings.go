package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/repository"
)

// Ключи таблицы app_settings
const (
	printSettingsKey = "print_settings"
	currencyKey      = "currency"
)

type settingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) repository.SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetPrintSettings(ctx context.Context) (*domain.PrintSettings, error) {
	var settings domain.PrintSettings
	if err := r.get(ctx, printSettingsKey, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SavePrintSettings сохраняет настройки; сессия устройства в БД не попадает
func (r *settingsRepository) SavePrintSettings(ctx context.Context, settings *domain.PrintSettings) error {
	stored := *settings
	stored.Hardware = settings.Hardware.Detached()
	return r.set(ctx, printSettingsKey, stored)
}

func (r *settingsRepository) GetCurrency(ctx context.Context) (string, error) {
	var currency string
	if err := r.get(ctx, currencyKey, &currency); err != nil {
		return "", err
	}
	return currency, nil
}

func (r *settingsRepository) SaveCurrency(ctx context.Context, currency string) error {
	return r.set(ctx, currencyKey, currency)
}

func (r *settingsRepository) get(ctx context.Context, key string, dest interface{}) error {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrSettingsNotFound
		}
		return err
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return nil
}

func (r *settingsRepository) set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}

	query := `
		INSERT INTO app_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	_, err = r.db.Exec(ctx, query, key, raw)
	return err
}
