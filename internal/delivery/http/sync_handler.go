package http

import (
	"context"
	"net/http"

	"github.com/frontandrew/parkpos/internal/pkg/logger"
	"github.com/frontandrew/parkpos/internal/usecase/cloudsync"
)

// SyncService определяет интерфейс для сервиса облачной синхронизации
type SyncService interface {
	Push(ctx context.Context) error
	Pull(ctx context.Context) (*cloudsync.PullResult, error)
	Status() cloudsync.Status
}

// SyncHandler обрабатывает запросы синхронизации с таблицей
type SyncHandler struct {
	syncService SyncService
	logger      logger.Logger
}

// NewSyncHandler создает новый handler
func NewSyncHandler(syncService SyncService, logger logger.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		logger:      logger,
	}
}

// Push выгружает записи и настройки в таблицу
// POST /api/v1/sync/push
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	if err := h.syncService.Push(r.Context()); err != nil {
		respondDomainError(w, h.logger, err, "Failed to push to cloud")
		return
	}

	respondData(w, http.StatusOK, h.syncService.Status())
}

// Pull загружает записи и настройки из таблицы
// POST /api/v1/sync/pull
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	result, err := h.syncService.Pull(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to pull from cloud")
		return
	}

	respondData(w, http.StatusOK, result)
}

// Status возвращает состояние синхронизации
// GET /api/v1/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.syncService.Status())
}
