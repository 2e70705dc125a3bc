package middleware

import (
	"net/http"
	"runtime/debug"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/frontandrew/parkpos/internal/pkg/logger"
)

// RecoveryMiddleware восстанавливается после panic в обработчике и отвечает 500
// http.ErrAbortHandler пробрасывается дальше: им сервер обрывает ответ намеренно.
func RecoveryMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error("Panic recovered", map[string]interface{}{
					"panic":       rec,
					"stack":       string(debug.Stack()),
					"request_id":  chiMiddleware.GetReqID(r.Context()),
					"method":      r.Method,
					"path":        r.URL.Path,
					"remote_addr": r.RemoteAddr,
				})

				respondError(w, http.StatusInternalServerError, "Internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
