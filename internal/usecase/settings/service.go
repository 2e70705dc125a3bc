package settings

import (
	"context"
	"errors"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
	"github.com/frontandrew/parkpos/internal/repository"
)

// HardwareSource возвращает текущий привязанный принтер
type HardwareSource interface {
	Current() *domain.HardwareHandle
}

// SyncTrigger запускает фоновую выгрузку в облако
type SyncTrigger interface {
	TriggerPush()
}

// Publisher рассылает события экранам кассы
type Publisher interface {
	Publish(event domain.Event)
}

// Service управляет тарифами, реквизитами билета и валютой
type Service struct {
	tariffRepo   repository.TariffRepository
	settingsRepo repository.SettingsRepository
	hardware     HardwareSource
	sync         SyncTrigger
	publisher    Publisher
	logger       logger.Logger
}

// NewService создает новый экземпляр SettingsService
func NewService(
	tariffRepo repository.TariffRepository,
	settingsRepo repository.SettingsRepository,
	hardware HardwareSource,
	sync SyncTrigger,
	publisher Publisher,
	logger logger.Logger,
) *Service {
	return &Service{
		tariffRepo:   tariffRepo,
		settingsRepo: settingsRepo,
		hardware:     hardware,
		sync:         sync,
		publisher:    publisher,
		logger:       logger,
	}
}

// Get возвращает настройки; принтер - текущая привязка, а не сохраненная копия
func (s *Service) Get(ctx context.Context) (*domain.AppSettings, error) {
	out := domain.DefaultAppSettings()

	tariffs, err := s.tariffRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(tariffs) > 0 {
		out.Tariffs = tariffs
	}

	printSettings, err := s.settingsRepo.GetPrintSettings(ctx)
	switch {
	case err == nil:
		out.PrintSettings = *printSettings
	case !errors.Is(err, domain.ErrSettingsNotFound):
		return nil, err
	}

	currency, err := s.settingsRepo.GetCurrency(ctx)
	switch {
	case err == nil:
		out.Currency = currency
	case !errors.Is(err, domain.ErrSettingsNotFound):
		return nil, err
	}

	if s.hardware != nil {
		out.PrintSettings.Hardware = s.hardware.Current()
	}

	return &out, nil
}

// Update сохраняет тарифы, реквизиты и валюту одной операцией
// Привязка принтера меняется только через поиск устройства, здесь она сохраняется как есть.
func (s *Service) Update(ctx context.Context, settings *domain.AppSettings) (*domain.AppSettings, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	if s.hardware != nil {
		settings.PrintSettings.Hardware = s.hardware.Current()
	}

	if err := s.save(ctx, settings); err != nil {
		return nil, err
	}

	s.logger.Info("Settings updated", map[string]interface{}{
		"tariffs":     len(settings.Tariffs),
		"currency":    settings.Currency,
		"paper_width": settings.PrintSettings.PaperWidth,
	})

	if s.publisher != nil {
		s.publisher.Publish(domain.NewEvent(domain.EventSettingsUpdated, settings))
	}
	if s.sync != nil {
		s.sync.TriggerPush()
	}

	return settings, nil
}

// Apply сохраняет настройки, пришедшие из облака, без запуска выгрузки обратно
func (s *Service) Apply(ctx context.Context, settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if s.hardware != nil {
		// Привязка принтера локальна для этой кассы
		settings.PrintSettings.Hardware = s.hardware.Current()
	}
	if err := s.save(ctx, settings); err != nil {
		return err
	}
	if s.publisher != nil {
		s.publisher.Publish(domain.NewEvent(domain.EventSettingsUpdated, settings))
	}
	return nil
}

// Seed записывает начальные настройки только туда, где еще ничего не сохранено
func (s *Service) Seed(ctx context.Context, seed *domain.AppSettings) error {
	if err := seed.Validate(); err != nil {
		return err
	}

	tariffs, err := s.tariffRepo.Get(ctx)
	if err != nil {
		return err
	}
	if len(tariffs) == 0 {
		if err := s.tariffRepo.Replace(ctx, seed.Tariffs); err != nil {
			return err
		}
	}

	if _, err := s.settingsRepo.GetPrintSettings(ctx); errors.Is(err, domain.ErrSettingsNotFound) {
		if err := s.settingsRepo.SavePrintSettings(ctx, &seed.PrintSettings); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if _, err := s.settingsRepo.GetCurrency(ctx); errors.Is(err, domain.ErrSettingsNotFound) {
		if err := s.settingsRepo.SaveCurrency(ctx, seed.Currency); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return nil
}

// Currencies возвращает список поддерживаемых валют
func (s *Service) Currencies() []domain.CurrencyOption {
	return domain.CurrencyOptions
}

func (s *Service) save(ctx context.Context, settings *domain.AppSettings) error {
	if err := s.tariffRepo.Replace(ctx, settings.Tariffs); err != nil {
		return err
	}
	if err := s.settingsRepo.SavePrintSettings(ctx, &settings.PrintSettings); err != nil {
		return err
	}
	return s.settingsRepo.SaveCurrency(ctx, settings.Currency)
}
