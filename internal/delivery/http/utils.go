package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
)

// maxBodySize ограничивает тело JSON запроса
const maxBodySize = 1 << 20

var validate = validator.New()

// respondJSON отправляет JSON ответ
func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Failed to marshal response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondData отправляет успешный ответ с данными
func respondData(w http.ResponseWriter, code int, data interface{}) {
	respondJSON(w, code, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// respondError отправляет JSON ответ с ошибкой
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// respondValidation отправляет ошибки проверки полей
func respondValidation(w http.ResponseWriter, errs validator.ValidationErrors) {
	fields := make(map[string][]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = append(fields[fe.Field()], fe.Tag())
	}
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"success": false,
		"error":   "Validation failed",
		"fields":  fields,
	})
}

// decodeJSON читает тело запроса и проверяет validate теги
// При ошибке ответ уже отправлен.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := io.LimitReader(r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondValidation(w, verrs)
			return false
		}
		// Не структура (например, map) - проверять нечего
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			respondError(w, http.StatusBadRequest, err.Error())
			return false
		}
	}

	return true
}

// errorStatus сопоставляет доменную ошибку с HTTP статусом
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound),
		errors.Is(err, domain.ErrPrintHistoryEmpty),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrVehicleAlreadyParked),
		errors.Is(err, domain.ErrRecordAlreadyFinalized),
		errors.Is(err, domain.ErrSyncInProgress),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict

	case errors.Is(err, domain.ErrInvalidRecordData),
		errors.Is(err, domain.ErrInvalidPlate),
		errors.Is(err, domain.ErrInvalidTimestamp),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrEntryInFuture),
		errors.Is(err, domain.ErrInvalidRecordStatus),
		errors.Is(err, domain.ErrInvalidTotal),
		errors.Is(err, domain.ErrInvalidTariff),
		errors.Is(err, domain.ErrInvalidPaperWidth),
		errors.Is(err, domain.ErrUnknownCurrency),
		errors.Is(err, domain.ErrUnknownHardwareType),
		errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, domain.ErrSyncNotEnabled),
		errors.Is(err, domain.ErrBluetoothUnavailable),
		errors.Is(err, domain.ErrSerialUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, domain.ErrSelectionCancelled),
		errors.Is(err, domain.ErrNotAPrinter),
		errors.Is(err, domain.ErrNoGATT),
		errors.Is(err, domain.ErrNoWriteChannel):
		return http.StatusUnprocessableEntity

	case errors.Is(err, domain.ErrPermissionBlocked):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrRemoteRejected),
		errors.Is(err, domain.ErrInvalidSheetURL):
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// respondDomainError отправляет ошибку use case слоя
// Неизвестные ошибки логируются, клиенту уходит общий текст.
func respondDomainError(w http.ResponseWriter, log logger.Logger, err error, message string) {
	code := errorStatus(err)
	if code == http.StatusInternalServerError {
		log.Error(message, map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, code, message)
		return
	}

	respondError(w, code, err.Error())
}

// isMultipart проверяет, пришел ли файл формой
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
