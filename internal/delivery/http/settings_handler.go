package http

import (
	"context"
	"net/http"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
)

// SettingsService определяет интерфейс для сервиса настроек
type SettingsService interface {
	Get(ctx context.Context) (*domain.AppSettings, error)
	Update(ctx context.Context, settings *domain.AppSettings) (*domain.AppSettings, error)
	Currencies() []domain.CurrencyOption
}

// SettingsHandler обрабатывает запросы настроек кассы
type SettingsHandler struct {
	settingsService SettingsService
	logger          logger.Logger
}

// NewSettingsHandler создает новый handler
func NewSettingsHandler(settingsService SettingsService, logger logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		logger:          logger,
	}
}

// Get возвращает тарифы, параметры печати и валюту
// GET /api/v1/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.Get(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to get settings")
		return
	}

	respondData(w, http.StatusOK, settings)
}

// Update сохраняет настройки целиком
// PUT /api/v1/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.AppSettings
	if !decodeJSON(w, r, &req) {
		return
	}

	settings, err := h.settingsService.Update(r.Context(), &req)
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to update settings")
		return
	}

	respondData(w, http.StatusOK, settings)
}

// Currencies возвращает поддерживаемые валюты
// GET /api/v1/settings/currencies
func (h *SettingsHandler) Currencies(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.settingsService.Currencies())
}
