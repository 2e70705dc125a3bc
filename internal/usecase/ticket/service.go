package ticket

import (
	"context"
	"errors"
	"time"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/infrastructure/escpos"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
	"github.com/frontandrew/parkpos/internal/repository"
)

// Printer отправляет готовые байты на привязанное устройство
type Printer interface {
	Send(ctx context.Context, data []byte, hw *domain.HardwareHandle) domain.PrintResult
}

// HardwareSource возвращает текущий привязанный принтер
type HardwareSource interface {
	Current() *domain.HardwareHandle
}

// Publisher рассылает события экранам кассы
type Publisher interface {
	Publish(event domain.Event)
}

// Preview - билет для показа на экране
type Preview struct {
	RecordID string           `json:"recordId"`
	IsExit   bool             `json:"isExit"`
	Columns  int              `json:"columns"`
	Text     string           `json:"text"`
	Stats    domain.StayStats `json:"stats"`
}

// Outcome - итог печати билета
type Outcome struct {
	Method        domain.HardwareKind      `json:"method"` // Чем в итоге напечатано
	Result        domain.PrintResult       `json:"result"`
	Fallback      bool                     `json:"fallback"` // Принтер не сработал, нужен системный диалог
	HardwareError string                   `json:"hardwareError,omitempty"`
	Text          string                   `json:"text,omitempty"` // Текст для системной печати
	History       *domain.PrintHistoryItem `json:"history,omitempty"`
}

// Service содержит бизнес-логику печати билетов
type Service struct {
	recordRepo   repository.RecordRepository
	tariffRepo   repository.TariffRepository
	settingsRepo repository.SettingsRepository
	historyRepo  repository.PrintHistoryRepository
	encoder      *escpos.Encoder
	printer      Printer
	hardware     HardwareSource
	publisher    Publisher
	logger       logger.Logger
	now          func() time.Time
}

// NewService создает новый экземпляр TicketService
func NewService(
	recordRepo repository.RecordRepository,
	tariffRepo repository.TariffRepository,
	settingsRepo repository.SettingsRepository,
	historyRepo repository.PrintHistoryRepository,
	encoder *escpos.Encoder,
	printer Printer,
	hardware HardwareSource,
	publisher Publisher,
	logger logger.Logger,
) *Service {
	return &Service{
		recordRepo:   recordRepo,
		tariffRepo:   tariffRepo,
		settingsRepo: settingsRepo,
		historyRepo:  historyRepo,
		encoder:      encoder,
		printer:      printer,
		hardware:     hardware,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

// printContext - все, что нужно для сборки билета
type printContext struct {
	settings domain.PrintSettings
	tariffs  domain.Tariffs
	currency string
}

// loadContext читает настройки; отсутствующие заменяются значениями по умолчанию
func (s *Service) loadContext(ctx context.Context) (*printContext, error) {
	pc := &printContext{
		settings: domain.DefaultPrintSettings(),
		tariffs:  domain.DefaultTariffs(),
		currency: domain.DefaultCurrency,
	}

	settings, err := s.settingsRepo.GetPrintSettings(ctx)
	switch {
	case err == nil:
		pc.settings = *settings
	case !errors.Is(err, domain.ErrSettingsNotFound):
		return nil, err
	}

	tariffs, err := s.tariffRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(tariffs) > 0 {
		pc.tariffs = tariffs
	}

	currency, err := s.settingsRepo.GetCurrency(ctx)
	switch {
	case err == nil:
		pc.currency = currency
	case !errors.Is(err, domain.ErrSettingsNotFound):
		return nil, err
	}

	return pc, nil
}

// Preview возвращает билет записи в виде текста для экрана
func (s *Service) Preview(ctx context.Context, recordID string) (*Preview, error) {
	record, err := s.recordRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	pc, err := s.loadContext(ctx)
	if err != nil {
		return nil, err
	}

	columns := pc.settings.PaperWidth.Columns()
	t := s.encoder.Ticket(record, pc.settings, pc.tariffs, pc.currency)

	return &Preview{
		RecordID: record.ID,
		IsExit:   t.Exit,
		Columns:  columns,
		Text:     escpos.RenderText(t, columns),
		Stats:    t.Stats,
	}, nil
}

// Print печатает билет записи по ID
func (s *Service) Print(ctx context.Context, recordID string) (*Outcome, error) {
	record, err := s.recordRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return s.PrintRecord(ctx, record)
}

// PrintRecord печатает билет: на привязанный принтер, при сбое - через системный диалог
// Ошибка принтера не является ошибкой метода, она возвращается в Outcome.
func (s *Service) PrintRecord(ctx context.Context, record *domain.ParkingRecord) (*Outcome, error) {
	pc, err := s.loadContext(ctx)
	if err != nil {
		return nil, err
	}

	columns := pc.settings.PaperWidth.Columns()
	t := s.encoder.Ticket(record, pc.settings, pc.tariffs, pc.currency)

	outcome := s.dispatch(ctx, t, columns)

	item := domain.NewPrintHistoryItem(record, s.now().UTC())
	if err := s.historyRepo.Add(ctx, item); err != nil {
		// Билет уже напечатан, потеря строки истории не повод сообщать об ошибке
		s.logger.Error("Failed to save print history", map[string]interface{}{
			"record_id": record.ID,
			"error":     err.Error(),
		})
	} else {
		outcome.History = item
	}

	s.logger.Info("Ticket printed", map[string]interface{}{
		"record_id": record.ID,
		"plate":     record.Plate,
		"method":    outcome.Method,
		"fallback":  outcome.Fallback,
	})

	s.publish(domain.EventTicketPrinted, outcome)

	return outcome, nil
}

// dispatch выбирает путь печати для собранного билета
func (s *Service) dispatch(ctx context.Context, t escpos.Ticket, columns int) *Outcome {
	hw := s.hardware.Current()

	if hw.IsHardware() && hw.Connected {
		result := s.printer.Send(ctx, s.encoder.EncodeTicket(t, columns), hw)
		if result.Success {
			return &Outcome{Method: hw.Kind, Result: result}
		}

		s.logger.Warn("Hardware print failed, falling back to system print", map[string]interface{}{
			"hardware": hw.Kind,
			"name":     hw.Name,
			"error":    result.Error,
		})

		return &Outcome{
			Method:        domain.HardwareSystem,
			Result:        domain.PrintOK(),
			Fallback:      true,
			HardwareError: result.Error,
			Text:          escpos.RenderText(t, columns),
		}
	}

	return &Outcome{
		Method: domain.HardwareSystem,
		Result: domain.PrintOK(),
		Text:   escpos.RenderText(t, columns),
	}
}

// History возвращает историю печати, новые сверху
func (s *Service) History(ctx context.Context) ([]*domain.PrintHistoryItem, error) {
	return s.historyRepo.List(ctx)
}

// Reprint повторно печатает билет из истории по текущему состоянию записи
func (s *Service) Reprint(ctx context.Context, historyID string) (*Outcome, error) {
	item, err := s.historyRepo.GetByID(ctx, historyID)
	if err != nil {
		return nil, err
	}

	record, err := s.recordRepo.GetByID(ctx, item.RowID)
	if err != nil {
		return nil, err
	}

	return s.PrintRecord(ctx, record)
}

func (s *Service) publish(t domain.EventType, payload interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(domain.NewEvent(t, payload))
	}
}
