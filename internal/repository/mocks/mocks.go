// Package mocks содержит testify моки репозиториев для тестов use case слоя
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/frontandrew/parkpos/internal/domain"
)

// RecordRepository - мок repository.RecordRepository
type RecordRepository struct {
	mock.Mock
}

func (m *RecordRepository) Create(ctx context.Context, record *domain.ParkingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *RecordRepository) GetByID(ctx context.Context, id string) (*domain.ParkingRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParkingRecord), args.Error(1)
}

func (m *RecordRepository) GetActiveByPlate(ctx context.Context, plate string) (*domain.ParkingRecord, error) {
	args := m.Called(ctx, plate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParkingRecord), args.Error(1)
}

func (m *RecordRepository) Upsert(ctx context.Context, record *domain.ParkingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *RecordRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RecordRepository) List(ctx context.Context) ([]*domain.ParkingRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ParkingRecord), args.Error(1)
}

func (m *RecordRepository) ListActive(ctx context.Context) ([]*domain.ParkingRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ParkingRecord), args.Error(1)
}

func (m *RecordRepository) ReplaceAll(ctx context.Context, records []*domain.ParkingRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

// TariffRepository - мок repository.TariffRepository
type TariffRepository struct {
	mock.Mock
}

func (m *TariffRepository) Get(ctx context.Context) (domain.Tariffs, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Tariffs), args.Error(1)
}

func (m *TariffRepository) Replace(ctx context.Context, tariffs domain.Tariffs) error {
	args := m.Called(ctx, tariffs)
	return args.Error(0)
}

// SettingsRepository - мок repository.SettingsRepository
type SettingsRepository struct {
	mock.Mock
}

func (m *SettingsRepository) GetPrintSettings(ctx context.Context) (*domain.PrintSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrintSettings), args.Error(1)
}

func (m *SettingsRepository) SavePrintSettings(ctx context.Context, settings *domain.PrintSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *SettingsRepository) GetCurrency(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *SettingsRepository) SaveCurrency(ctx context.Context, currency string) error {
	args := m.Called(ctx, currency)
	return args.Error(0)
}

// PrintHistoryRepository - мок repository.PrintHistoryRepository
type PrintHistoryRepository struct {
	mock.Mock
}

func (m *PrintHistoryRepository) Add(ctx context.Context, item *domain.PrintHistoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *PrintHistoryRepository) List(ctx context.Context) ([]*domain.PrintHistoryItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PrintHistoryItem), args.Error(1)
}

func (m *PrintHistoryRepository) GetByID(ctx context.Context, id string) (*domain.PrintHistoryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrintHistoryItem), args.Error(1)
}

// Publisher записывает опубликованные события
type Publisher struct {
	Events []domain.Event
}

func (p *Publisher) Publish(event domain.Event) {
	p.Events = append(p.Events, event)
}

// Types возвращает типы опубликованных событий по порядку
func (p *Publisher) Types() []domain.EventType {
	out := make([]domain.EventType, len(p.Events))
	for i, e := range p.Events {
		out[i] = e.Type
	}
	return out
}
