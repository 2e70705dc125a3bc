package repository

import (
	"context"

	"github.com/frontandrew/parkpos/internal/domain"
)

// RecordRepository определяет методы для работы с записями стоянок
type RecordRepository interface {
	// Create создает новую запись
	// Вторая активная запись с тем же номером - ErrVehicleAlreadyParked
	Create(ctx context.Context, record *domain.ParkingRecord) error

	// GetByID возвращает запись по ID
	GetByID(ctx context.Context, id string) (*domain.ParkingRecord, error)

	// GetActiveByPlate возвращает активную запись по номеру
	GetActiveByPlate(ctx context.Context, plate string) (*domain.ParkingRecord, error)

	// Upsert создает или полностью перезаписывает запись (ручное редактирование)
	Upsert(ctx context.Context, record *domain.ParkingRecord) error

	// Delete удаляет запись
	Delete(ctx context.Context, id string) error

	// List возвращает все записи, новые сверху
	List(ctx context.Context) ([]*domain.ParkingRecord, error)

	// ListActive возвращает автомобили, которые сейчас на парковке
	ListActive(ctx context.Context) ([]*domain.ParkingRecord, error)

	// ReplaceAll атомарно заменяет все записи (загрузка из облака, импорт CSV)
	ReplaceAll(ctx context.Context, records []*domain.ParkingRecord) error
}

// TariffRepository определяет методы для работы с тарифами
type TariffRepository interface {
	// Get возвращает таблицу тарифов; пустая таблица - не ошибка
	Get(ctx context.Context) (domain.Tariffs, error)

	// Replace заменяет таблицу тарифов целиком
	Replace(ctx context.Context, tariffs domain.Tariffs) error
}

// SettingsRepository определяет методы для работы с настройками печати и валютой
type SettingsRepository interface {
	// GetPrintSettings возвращает настройки печати или ErrSettingsNotFound
	GetPrintSettings(ctx context.Context) (*domain.PrintSettings, error)

	// SavePrintSettings сохраняет настройки печати (без сессии устройства)
	SavePrintSettings(ctx context.Context, settings *domain.PrintSettings) error

	// GetCurrency возвращает код валюты или ErrSettingsNotFound
	GetCurrency(ctx context.Context) (string, error)

	// SaveCurrency сохраняет код валюты
	SaveCurrency(ctx context.Context, currency string) error
}

// PrintHistoryRepository определяет методы для работы с историей печати
type PrintHistoryRepository interface {
	// Add добавляет запись и оставляет только последние PrintHistoryLimit
	Add(ctx context.Context, item *domain.PrintHistoryItem) error

	// List возвращает историю, новые сверху
	List(ctx context.Context) ([]*domain.PrintHistoryItem, error)

	// GetByID возвращает запись истории или ErrPrintHistoryEmpty
	GetByID(ctx context.Context, id string) (*domain.PrintHistoryItem, error)
}
