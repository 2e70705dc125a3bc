package http

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
	"github.com/frontandrew/parkpos/internal/usecase/parking"
	"github.com/frontandrew/parkpos/internal/usecase/ticket"
)

// maxImportSize ограничивает размер загружаемого CSV
const maxImportSize = 10 << 20

// ParkingService определяет интерфейс для сервиса стоянок
type ParkingService interface {
	RegisterEntry(ctx context.Context, req *parking.EntryRequest) (*parking.EntryResult, error)
	RegisterExit(ctx context.Context, recordID string) (*parking.ExitResult, error)
	Save(ctx context.Context, record *domain.ParkingRecord) (*domain.ParkingRecord, error)
	Delete(ctx context.Context, recordID string) error
	Get(ctx context.Context, recordID string) (*domain.ParkingRecord, error)
	List(ctx context.Context) ([]*domain.ParkingRecord, error)
	ListActive(ctx context.Context) ([]*parking.ActiveVehicle, error)
	Summary(ctx context.Context) (*parking.Summary, error)
	Export(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, r io.Reader) (*parking.ImportResult, error)
}

// TicketService определяет интерфейс для сервиса билетов
type TicketService interface {
	Preview(ctx context.Context, recordID string) (*ticket.Preview, error)
	Print(ctx context.Context, recordID string) (*ticket.Outcome, error)
	History(ctx context.Context) ([]*domain.PrintHistoryItem, error)
	Reprint(ctx context.Context, historyID string) (*ticket.Outcome, error)
}

// RecordHandler обрабатывает запросы по записям стоянок
type RecordHandler struct {
	parkingService ParkingService
	ticketService  TicketService
	logger         logger.Logger
}

// NewRecordHandler создает новый handler
func NewRecordHandler(parkingService ParkingService, ticketService TicketService, logger logger.Logger) *RecordHandler {
	return &RecordHandler{
		parkingService: parkingService,
		ticketService:  ticketService,
		logger:         logger,
	}
}

// List возвращает все записи, новые сверху
// GET /api/v1/records
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.parkingService.List(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to list records")
		return
	}

	respondData(w, http.StatusOK, records)
}

// Active возвращает автомобили на парковке с текущей стоимостью
// GET /api/v1/records/active
func (h *RecordHandler) Active(w http.ResponseWriter, r *http.Request) {
	active, err := h.parkingService.ListActive(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to list active vehicles")
		return
	}

	respondData(w, http.StatusOK, active)
}

// Summary возвращает сводку кассы
// GET /api/v1/records/summary
func (h *RecordHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.parkingService.Summary(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to build summary")
		return
	}

	respondData(w, http.StatusOK, summary)
}

// Get возвращает запись по ID
// GET /api/v1/records/{id}
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.parkingService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to get record")
		return
	}

	respondData(w, http.StatusOK, record)
}

// Entry регистрирует въезд
// POST /api/v1/records/entry
func (h *RecordHandler) Entry(w http.ResponseWriter, r *http.Request) {
	var req parking.EntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.parkingService.RegisterEntry(r.Context(), &req)
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to register entry")
		return
	}

	respondData(w, http.StatusCreated, result)
}

// Exit оформляет выезд и печатает билет
// POST /api/v1/records/{id}/exit
func (h *RecordHandler) Exit(w http.ResponseWriter, r *http.Request) {
	result, err := h.parkingService.RegisterExit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to register exit")
		return
	}

	respondData(w, http.StatusOK, result)
}

// Save создает или перезаписывает запись вручную
// POST /api/v1/records
func (h *RecordHandler) Save(w http.ResponseWriter, r *http.Request) {
	var record domain.ParkingRecord
	if !decodeJSON(w, r, &record) {
		return
	}

	saved, err := h.parkingService.Save(r.Context(), &record)
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to save record")
		return
	}

	respondData(w, http.StatusOK, saved)
}

// Delete удаляет запись
// DELETE /api/v1/records/{id}
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.parkingService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, h.logger, err, "Failed to delete record")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Record deleted",
	})
}

// Ticket возвращает текст билета для экрана
// GET /api/v1/records/{id}/ticket
func (h *RecordHandler) Ticket(w http.ResponseWriter, r *http.Request) {
	preview, err := h.ticketService.Preview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to render ticket")
		return
	}

	respondData(w, http.StatusOK, preview)
}

// Print печатает билет записи
// POST /api/v1/records/{id}/print
func (h *RecordHandler) Print(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.ticketService.Print(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to print ticket")
		return
	}

	respondData(w, http.StatusOK, outcome)
}

// History возвращает историю печати
// GET /api/v1/print/history
func (h *RecordHandler) History(w http.ResponseWriter, r *http.Request) {
	items, err := h.ticketService.History(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to get print history")
		return
	}

	respondData(w, http.StatusOK, items)
}

// Reprint повторяет печать из истории
// POST /api/v1/print/history/{id}/reprint
func (h *RecordHandler) Reprint(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.ticketService.Reprint(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to reprint ticket")
		return
	}

	respondData(w, http.StatusOK, outcome)
}

// Export выгружает записи в CSV
// GET /api/v1/export.csv
func (h *RecordHandler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="parqueadero.csv"`)

	if err := h.parkingService.Export(r.Context(), w); err != nil {
		// Заголовки уже могли уйти, пишем только в лог
		h.logger.Error("Failed to export records", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Import заменяет записи строками CSV (тело запроса или поле file формы)
// POST /api/v1/import.csv
func (h *RecordHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

	var src io.Reader = r.Body
	if isMultipart(r) {
		file, _, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "File field is required")
			return
		}
		defer file.Close()
		src = file
	}

	result, err := h.parkingService.Import(r.Context(), src)
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to import records")
		return
	}

	respondData(w, http.StatusOK, result)
}
