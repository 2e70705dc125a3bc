package parking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/csvio"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
	"github.com/frontandrew/parkpos/internal/repository"
	"github.com/frontandrew/parkpos/internal/usecase/ticket"
)

// EntryRequest - запрос на регистрацию въезда
type EntryRequest struct {
	VehicleType string `json:"tipo" validate:"required,max=40"`
	Plate       string `json:"placa" validate:"required,max=15"`
	Vehicle     string `json:"vehiculo" validate:"max=80"`
}

// EntryResult - результат регистрации въезда
type EntryResult struct {
	Record *domain.ParkingRecord `json:"record"`
	Print  *ticket.Outcome       `json:"print,omitempty"` // Только при autoPrintEntry
}

// ExitResult - результат регистрации выезда
type ExitResult struct {
	Record *domain.ParkingRecord `json:"record"`
	Stats  domain.StayStats      `json:"stats"`
	Print  *ticket.Outcome       `json:"print,omitempty"`
}

// ActiveVehicle - автомобиль на парковке с текущей стоимостью
type ActiveVehicle struct {
	Record *domain.ParkingRecord `json:"record"`
	Stats  domain.StayStats      `json:"stats"`
}

// Summary - сводка кассы
type Summary struct {
	Active    int     `json:"active"`
	Finalized int     `json:"finalized"`
	CashTotal float64 `json:"cashTotal"` // Сумма Total по завершенным стоянкам
}

// TicketPrinter печатает билет записи
type TicketPrinter interface {
	PrintRecord(ctx context.Context, record *domain.ParkingRecord) (*ticket.Outcome, error)
}

// SyncTrigger запускает фоновую выгрузку в облако
type SyncTrigger interface {
	TriggerPush()
}

// Publisher рассылает события экранам кассы
type Publisher interface {
	Publish(event domain.Event)
}

// Service содержит бизнес-логику въезда и выезда
type Service struct {
	recordRepo   repository.RecordRepository
	tariffRepo   repository.TariffRepository
	settingsRepo repository.SettingsRepository
	printer      TicketPrinter
	sync         SyncTrigger
	publisher    Publisher
	logger       logger.Logger
	now          func() time.Time
}

// NewService создает новый экземпляр ParkingService
// sync и publisher могут быть nil.
func NewService(
	recordRepo repository.RecordRepository,
	tariffRepo repository.TariffRepository,
	settingsRepo repository.SettingsRepository,
	printer TicketPrinter,
	sync SyncTrigger,
	publisher Publisher,
	logger logger.Logger,
) *Service {
	return &Service{
		recordRepo:   recordRepo,
		tariffRepo:   tariffRepo,
		settingsRepo: settingsRepo,
		printer:      printer,
		sync:         sync,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

// RegisterEntry регистрирует въезд автомобиля
// У номера может быть только одна активная стоянка.
func (s *Service) RegisterEntry(ctx context.Context, req *EntryRequest) (*EntryResult, error) {
	plate := domain.NormalizePlate(req.Plate)
	if plate == "" {
		return nil, domain.ErrInvalidPlate
	}
	vehicleType := strings.TrimSpace(req.VehicleType)
	if vehicleType == "" {
		return nil, domain.ErrInvalidRecordData
	}

	existing, err := s.recordRepo.GetActiveByPlate(ctx, plate)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		s.logger.Info("Entry rejected, vehicle already parked", map[string]interface{}{
			"plate":     plate,
			"record_id": existing.ID,
		})
		return nil, domain.ErrVehicleAlreadyParked
	}

	record := &domain.ParkingRecord{
		ID:          uuid.NewString(),
		Plate:       plate,
		Vehicle:     strings.TrimSpace(req.Vehicle),
		VehicleType: vehicleType,
		EntryAt:     domain.FormatTimestamp(s.now()),
		ExitAt:      domain.NoExit,
		Status:      domain.StatusActive,
		Total:       0,
	}

	if err := s.recordRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("Vehicle entry registered", map[string]interface{}{
		"record_id": record.ID,
		"plate":     record.Plate,
		"type":      record.VehicleType,
	})

	s.changed(domain.EventRecordCreated, record)

	result := &EntryResult{Record: record}

	settings, err := s.settingsRepo.GetPrintSettings(ctx)
	if err != nil && !errors.Is(err, domain.ErrSettingsNotFound) {
		s.logger.Warn("Failed to read print settings", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if settings != nil && settings.AutoPrintEntry {
		result.Print = s.print(ctx, record)
	}

	return result, nil
}

// RegisterExit оформляет выезд: считает сумму на текущий момент и печатает билет
func (s *Service) RegisterExit(ctx context.Context, recordID string) (*ExitResult, error) {
	record, err := s.recordRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if !record.IsActive() {
		return nil, domain.ErrRecordAlreadyFinalized
	}

	tariffs, err := s.tariffs(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := domain.ParseTimestamp(record.EntryAt)
	if err != nil {
		return nil, domain.ErrInvalidTimestamp
	}

	// Въезд с опережающих часов: выезд не раньше въезда, оплачивается минимальный час
	exit := s.now()
	if exit.Before(entry) {
		exit = entry
	}
	stats := domain.CalculateStayBetween(entry, exit, record.VehicleType, tariffs)
	if stats.Total <= 0 {
		return nil, domain.ErrInvalidTariff
	}

	if err := record.Finalize(exit, stats.Total); err != nil {
		return nil, err
	}
	if err := s.recordRepo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("Vehicle exit registered", map[string]interface{}{
		"record_id": record.ID,
		"plate":     record.Plate,
		"minutes":   stats.ElapsedMinutes,
		"total":     stats.Total,
	})

	s.changed(domain.EventRecordUpdated, record)

	return &ExitResult{
		Record: record,
		Stats:  stats,
		Print:  s.print(ctx, record),
	}, nil
}

// Save создает или перезаписывает запись (ручное редактирование)
func (s *Service) Save(ctx context.Context, record *domain.ParkingRecord) (*domain.ParkingRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if err := record.ValidateAt(s.now()); err != nil {
		return nil, err
	}

	if err := s.recordRepo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("Parking record saved", map[string]interface{}{
		"record_id": record.ID,
		"plate":     record.Plate,
		"status":    record.Status,
	})

	s.changed(domain.EventRecordUpdated, record)

	return record, nil
}

// Delete удаляет запись
func (s *Service) Delete(ctx context.Context, recordID string) error {
	if err := s.recordRepo.Delete(ctx, recordID); err != nil {
		return err
	}

	s.logger.Info("Parking record deleted", map[string]interface{}{
		"record_id": recordID,
	})

	s.changed(domain.EventRecordDeleted, map[string]string{"id": recordID})

	return nil
}

// Get возвращает запись по ID
func (s *Service) Get(ctx context.Context, recordID string) (*domain.ParkingRecord, error) {
	return s.recordRepo.GetByID(ctx, recordID)
}

// List возвращает все записи, новые сверху
func (s *Service) List(ctx context.Context) ([]*domain.ParkingRecord, error) {
	return s.recordRepo.List(ctx)
}

// ListActive возвращает автомобили на парковке с текущей стоимостью
func (s *Service) ListActive(ctx context.Context) ([]*ActiveVehicle, error) {
	records, err := s.recordRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	tariffs, err := s.tariffs(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]*ActiveVehicle, 0, len(records))
	for _, r := range records {
		out = append(out, &ActiveVehicle{
			Record: r,
			Stats:  domain.StatsForRecord(r, tariffs, now),
		})
	}

	return out, nil
}

// Summary считает сводку кассы по всем записям
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	records, err := s.recordRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, r := range records {
		switch {
		case r.IsActive():
			summary.Active++
		case r.IsFinalized():
			summary.Finalized++
			summary.CashTotal += r.Total
		}
	}

	return summary, nil
}

// ImportResult - итог загрузки CSV
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Export пишет все записи в CSV
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	records, err := s.recordRepo.List(ctx)
	if err != nil {
		return err
	}
	return csvio.Export(w, records)
}

// Import заменяет все записи строками из CSV
// Файл без единой валидной строки записи не трогает.
func (s *Service) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	parsed, err := csvio.Import(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}

	result := &ImportResult{Imported: len(parsed.Records), Skipped: parsed.Skipped}
	if len(parsed.Records) == 0 {
		return result, nil
	}

	if err := s.recordRepo.ReplaceAll(ctx, parsed.Records); err != nil {
		return nil, err
	}

	s.logger.Info("Parking records imported", map[string]interface{}{
		"imported": result.Imported,
		"skipped":  result.Skipped,
	})

	s.changed(domain.EventRecordsReplaced, map[string]int{"count": result.Imported})

	return result, nil
}

// tariffs возвращает таблицу тарифов; пустая таблица заменяется тарифами по умолчанию
func (s *Service) tariffs(ctx context.Context) (domain.Tariffs, error) {
	tariffs, err := s.tariffRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(tariffs) == 0 {
		return domain.DefaultTariffs(), nil
	}
	return tariffs, nil
}

// print печатает билет; ошибка печати не отменяет уже сохраненную операцию
func (s *Service) print(ctx context.Context, record *domain.ParkingRecord) *ticket.Outcome {
	if s.printer == nil {
		return nil
	}

	outcome, err := s.printer.PrintRecord(ctx, record)
	if err != nil {
		s.logger.Error("Failed to print ticket", map[string]interface{}{
			"record_id": record.ID,
			"error":     err.Error(),
		})
		return nil
	}

	return outcome
}

// changed рассылает событие и запускает выгрузку в облако
func (s *Service) changed(t domain.EventType, payload interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(domain.NewEvent(t, payload))
	}
	if s.sync != nil {
		s.sync.TriggerPush()
	}
}
