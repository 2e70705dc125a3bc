package cloudsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/infrastructure/sheets"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
	"github.com/frontandrew/parkpos/internal/repository"
)

// SettingsStore - настройки, которые выгружаются вместе с записями
type SettingsStore interface {
	Get(ctx context.Context) (*domain.AppSettings, error)
	Apply(ctx context.Context, settings *domain.AppSettings) error
}

// Publisher рассылает события экранам кассы
type Publisher interface {
	Publish(event domain.Event)
}

// Status - состояние синхронизации для экрана
type Status struct {
	Enabled    bool       `json:"enabled"`
	Syncing    bool       `json:"syncing"`
	LastSynced *time.Time `json:"lastSynced,omitempty"`
	LastError  string     `json:"lastError,omitempty"`
}

// PullResult - итог загрузки из облака
type PullResult struct {
	Records         int  `json:"records"`
	Skipped         int  `json:"skipped"`         // Строки, не прошедшие проверку
	RecordsReplaced bool `json:"recordsReplaced"` // Пустая облачная копия записи не трогает
	SettingsApplied bool `json:"settingsApplied"`
}

// Service синхронизирует данные кассы с таблицей Google
// Одновременно выполняется не больше одной синхронизации.
type Service struct {
	client    sheets.Client
	records   repository.RecordRepository
	settings  SettingsStore
	publisher Publisher
	logger    logger.Logger
	timeout   time.Duration
	now       func() time.Time

	running atomic.Bool
	wg      sync.WaitGroup

	mu         sync.RWMutex
	lastSynced *time.Time
	lastError  string
}

// NewService создает сервис синхронизации; client == nil - синхронизация выключена
func NewService(
	client sheets.Client,
	records repository.RecordRepository,
	settings SettingsStore,
	publisher Publisher,
	logger logger.Logger,
	timeout time.Duration,
) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		client:    client,
		records:   records,
		settings:  settings,
		publisher: publisher,
		logger:    logger,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Enabled проверяет, настроена ли таблица
func (s *Service) Enabled() bool {
	return s.client != nil
}

// SetSettings подключает хранилище настроек после создания сервиса
// Сервис настроек сам запускает выгрузку, поэтому зависимость взаимная.
func (s *Service) SetSettings(settings SettingsStore) {
	s.settings = settings
}

// Push выгружает все записи и настройки в таблицу
func (s *Service) Push(ctx context.Context) error {
	if !s.Enabled() {
		return domain.ErrSyncNotEnabled
	}
	if !s.running.CompareAndSwap(false, true) {
		return domain.ErrSyncInProgress
	}

	err := s.push(ctx)
	s.finish("push", err)
	return err
}

func (s *Service) push(ctx context.Context) error {
	records, err := s.records.List(ctx)
	if err != nil {
		return err
	}

	payload := &sheets.Payload{Data: records}

	if s.settings != nil {
		settings, err := s.settings.Get(ctx)
		if err != nil {
			return err
		}
		ps := settings.PrintSettings
		ps.Hardware = ps.Hardware.Detached()
		payload.Settings = &sheets.Settings{
			Tariffs:       settings.Tariffs,
			PrintSettings: &ps,
			Currency:      settings.Currency,
		}
	}

	return s.client.Save(ctx, payload)
}

// TriggerPush запускает выгрузку в фоне; если выгрузка уже идет, запрос пропускается
func (s *Service) TriggerPush() {
	if !s.Enabled() || s.running.Load() {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.Push(ctx); err != nil && !errors.Is(err, domain.ErrSyncInProgress) {
			s.logger.Error("Background sync push failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
}

// Pull загружает записи и настройки из таблицы
// Пустой список строк не затирает локальные записи; привязка принтера остается локальной.
func (s *Service) Pull(ctx context.Context) (*PullResult, error) {
	if !s.Enabled() {
		return nil, domain.ErrSyncNotEnabled
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrSyncInProgress
	}

	result, err := s.pull(ctx)
	s.finish("pull", err)
	return result, err
}

func (s *Service) pull(ctx context.Context) (*PullResult, error) {
	payload, err := s.client.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	result := &PullResult{}

	if len(payload.Data) > 0 {
		valid := make([]*domain.ParkingRecord, 0, len(payload.Data))
		for _, r := range payload.Data {
			if err := r.Validate(); err != nil {
				result.Skipped++
				s.logger.Warn("Skipping invalid remote row", map[string]interface{}{
					"record_id": r.ID,
					"plate":     r.Plate,
					"error":     err.Error(),
				})
				continue
			}
			valid = append(valid, r)
		}

		if err := s.records.ReplaceAll(ctx, valid); err != nil {
			return nil, err
		}
		result.Records = len(valid)
		result.RecordsReplaced = true

		if s.publisher != nil {
			s.publisher.Publish(domain.NewEvent(domain.EventRecordsReplaced, map[string]int{"count": len(valid)}))
		}
	}

	if payload.Settings != nil && s.settings != nil {
		applied, err := s.applySettings(ctx, payload.Settings)
		if err != nil {
			return nil, err
		}
		result.SettingsApplied = applied
	}

	return result, nil
}

// applySettings накладывает облачные настройки на текущие; незаданные поля не меняются
func (s *Service) applySettings(ctx context.Context, remote *sheets.Settings) (bool, error) {
	current, err := s.settings.Get(ctx)
	if err != nil {
		return false, err
	}

	merged := *current
	if len(remote.Tariffs) > 0 {
		merged.Tariffs = remote.Tariffs
	}
	if remote.PrintSettings != nil {
		ps := *remote.PrintSettings
		ps.Hardware = current.PrintSettings.Hardware
		merged.PrintSettings = ps
	}
	if remote.Currency != "" {
		merged.Currency = remote.Currency
	}

	if err := merged.Validate(); err != nil {
		s.logger.Warn("Remote settings rejected", map[string]interface{}{
			"error": err.Error(),
		})
		return false, nil
	}

	if err := s.settings.Apply(ctx, &merged); err != nil {
		return false, err
	}
	return true, nil
}

// Status возвращает состояние синхронизации
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		Enabled:    s.Enabled(),
		Syncing:    s.running.Load(),
		LastSynced: s.lastSynced,
		LastError:  s.lastError,
	}
}

// Wait ждет завершения фоновых выгрузок
func (s *Service) Wait() {
	s.wg.Wait()
}

// finish снимает флаг выполнения и рассылает итог
// Флаг снимается до рассылки: экраны не должны увидеть syncing=true после завершения.
func (s *Service) finish(op string, err error) {
	s.running.Store(false)

	s.mu.Lock()
	if err != nil {
		s.lastError = err.Error()
	} else {
		now := s.now().UTC()
		s.lastSynced = &now
		s.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("Cloud sync failed", map[string]interface{}{
			"op":    op,
			"error": err.Error(),
		})
	} else {
		s.logger.Info("Cloud sync completed", map[string]interface{}{
			"op": op,
		})
	}

	if s.publisher != nil {
		s.publisher.Publish(domain.NewEvent(domain.EventSyncStatus, s.Status()))
	}
}
