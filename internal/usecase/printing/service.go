package printing

import (
	"context"
	"errors"
	"time"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/infrastructure/escpos"
	"github.com/frontandrew/parkpos/internal/infrastructure/printer"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
	"github.com/frontandrew/parkpos/internal/repository"
)

// Scanner ищет принтеры на хосте
type Scanner interface {
	ScanBluetooth(ctx context.Context) (*domain.HardwareHandle, error)
	ScanSerial(ctx context.Context, portName string) (*domain.HardwareHandle, error)
	Ports() ([]printer.PortInfo, error)
}

// Binding хранит привязанный принтер
type Binding interface {
	Current() *domain.HardwareHandle
	Bind(h *domain.HardwareHandle)
	Restore(h *domain.HardwareHandle)
	Clear()
}

// Printer отправляет байты на устройство
type Printer interface {
	Send(ctx context.Context, data []byte, hw *domain.HardwareHandle) domain.PrintResult
}

// Publisher рассылает события экранам кассы
type Publisher interface {
	Publish(event domain.Event)
}

// Service управляет привязкой принтера к кассе
type Service struct {
	scanner      Scanner
	binding      Binding
	settingsRepo repository.SettingsRepository
	printer      Printer
	encoder      *escpos.Encoder
	publisher    Publisher
	logger       logger.Logger
}

// NewService создает новый экземпляр PrintingService
func NewService(
	scanner Scanner,
	binding Binding,
	settingsRepo repository.SettingsRepository,
	printer Printer,
	encoder *escpos.Encoder,
	publisher Publisher,
	logger logger.Logger,
) *Service {
	return &Service{
		scanner:      scanner,
		binding:      binding,
		settingsRepo: settingsRepo,
		printer:      printer,
		encoder:      encoder,
		publisher:    publisher,
		logger:       logger,
	}
}

// Current возвращает привязанный принтер
func (s *Service) Current() *domain.HardwareHandle {
	return s.binding.Current()
}

// Restore подставляет принтер из сохраненных настроек при старте
func (s *Service) Restore(ctx context.Context) error {
	settings, err := s.settingsRepo.GetPrintSettings(ctx)
	if errors.Is(err, domain.ErrSettingsNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.binding.Restore(settings.Hardware)

	current := s.binding.Current()
	s.logger.Info("Printer binding restored", map[string]interface{}{
		"type": current.Kind,
		"name": current.Name,
	})

	return nil
}

// ScanBluetooth ищет BLE принтер и привязывает его
func (s *Service) ScanBluetooth(ctx context.Context) (*domain.HardwareHandle, error) {
	h, err := s.scanner.ScanBluetooth(ctx)
	if err != nil {
		s.logger.Warn("Bluetooth scan failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	return h, s.bind(ctx, h)
}

// ScanSerial открывает последовательный порт и привязывает его
func (s *Service) ScanSerial(ctx context.Context, portName string) (*domain.HardwareHandle, error) {
	h, err := s.scanner.ScanSerial(ctx, portName)
	if err != nil {
		s.logger.Warn("Serial scan failed", map[string]interface{}{
			"port":  portName,
			"error": err.Error(),
		})
		return nil, err
	}
	return h, s.bind(ctx, h)
}

// Ports возвращает последовательные порты хоста
func (s *Service) Ports() ([]printer.PortInfo, error) {
	return s.scanner.Ports()
}

// Disconnect отвязывает принтер; печать снова идет через системный диалог
func (s *Service) Disconnect(ctx context.Context) error {
	s.binding.Clear()
	return s.persist(ctx, s.binding.Current())
}

// TestPrint печатает пробный билет на привязанный принтер
func (s *Service) TestPrint(ctx context.Context) domain.PrintResult {
	hw := s.binding.Current()
	if !hw.IsHardware() {
		return domain.PrintFailed(domain.ErrPrinterNotConnected)
	}

	settings := domain.DefaultPrintSettings()
	if stored, err := s.settingsRepo.GetPrintSettings(ctx); err == nil {
		settings = *stored
	}

	data := s.encoder.Encode(SampleRecord(time.Now()), settings, domain.DefaultTariffs(), domain.DefaultCurrency)
	return s.printer.Send(ctx, data, hw)
}

// SampleRecord - запись для пробной печати
func SampleRecord(at time.Time) *domain.ParkingRecord {
	return &domain.ParkingRecord{
		ID:          "test",
		Plate:       "TEST01",
		Vehicle:     "Prueba de impresión",
		VehicleType: "Sedán",
		EntryAt:     domain.FormatTimestamp(at),
		ExitAt:      domain.NoExit,
		Status:      domain.StatusActive,
	}
}

func (s *Service) bind(ctx context.Context, h *domain.HardwareHandle) error {
	s.binding.Bind(h)

	s.logger.Info("Printer bound", map[string]interface{}{
		"type":    h.Kind,
		"name":    h.Name,
		"address": h.Address,
	})

	return s.persist(ctx, h)
}

// persist сохраняет привязку в настройках печати (без сессии устройства)
func (s *Service) persist(ctx context.Context, h *domain.HardwareHandle) error {
	settings := domain.DefaultPrintSettings()
	stored, err := s.settingsRepo.GetPrintSettings(ctx)
	switch {
	case err == nil:
		settings = *stored
	case !errors.Is(err, domain.ErrSettingsNotFound):
		return err
	}

	settings.Hardware = h
	if err := s.settingsRepo.SavePrintSettings(ctx, &settings); err != nil {
		return err
	}

	if s.publisher != nil {
		s.publisher.Publish(domain.NewEvent(domain.EventPrinterChanged, h))
	}

	return nil
}
