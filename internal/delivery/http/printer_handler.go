package http

import (
	"context"
	"net/http"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/infrastructure/printer"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
)

// PrinterService определяет интерфейс для сервиса привязки принтера
type PrinterService interface {
	Current() *domain.HardwareHandle
	ScanBluetooth(ctx context.Context) (*domain.HardwareHandle, error)
	ScanSerial(ctx context.Context, portName string) (*domain.HardwareHandle, error)
	Ports() ([]printer.PortInfo, error)
	Disconnect(ctx context.Context) error
	TestPrint(ctx context.Context) domain.PrintResult
}

// ScanSerialRequest - запрос на подключение порта
type ScanSerialRequest struct {
	Port string `json:"port" validate:"max=255"` // Пусто - первый USB порт
}

// PrinterHandler обрабатывает запросы поиска и привязки принтера
type PrinterHandler struct {
	printerService PrinterService
	logger         logger.Logger
}

// NewPrinterHandler создает новый handler
func NewPrinterHandler(printerService PrinterService, logger logger.Logger) *PrinterHandler {
	return &PrinterHandler{
		printerService: printerService,
		logger:         logger,
	}
}

// Current возвращает привязанный принтер
// GET /api/v1/printer
func (h *PrinterHandler) Current(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.printerService.Current())
}

// ScanBluetooth ищет BLE принтер и привязывает его
// POST /api/v1/printer/scan/bluetooth
func (h *PrinterHandler) ScanBluetooth(w http.ResponseWriter, r *http.Request) {
	hw, err := h.printerService.ScanBluetooth(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to connect bluetooth printer")
		return
	}

	respondData(w, http.StatusOK, hw)
}

// ScanSerial открывает порт и привязывает принтер
// POST /api/v1/printer/scan/serial
func (h *PrinterHandler) ScanSerial(w http.ResponseWriter, r *http.Request) {
	var req ScanSerialRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	hw, err := h.printerService.ScanSerial(r.Context(), req.Port)
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to connect serial printer")
		return
	}

	respondData(w, http.StatusOK, hw)
}

// Ports возвращает доступные последовательные порты
// GET /api/v1/printer/ports
func (h *PrinterHandler) Ports(w http.ResponseWriter, r *http.Request) {
	ports, err := h.printerService.Ports()
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to list serial ports")
		return
	}

	respondData(w, http.StatusOK, ports)
}

// Disconnect отвязывает принтер, печать идет через систему
// DELETE /api/v1/printer
func (h *PrinterHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.printerService.Disconnect(r.Context()); err != nil {
		respondDomainError(w, h.logger, err, "Failed to disconnect printer")
		return
	}

	respondData(w, http.StatusOK, h.printerService.Current())
}

// TestPrint печатает пробный билет
// POST /api/v1/printer/test
func (h *PrinterHandler) TestPrint(w http.ResponseWriter, r *http.Request) {
	result := h.printerService.TestPrint(r.Context())

	code := http.StatusOK
	if !result.Success {
		code = http.StatusBadGateway
	}

	respondJSON(w, code, map[string]interface{}{
		"success": result.Success,
		"data":    result,
	})
}
