package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/frontandrew/parkpos/internal/delivery/http/middleware"
	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/config"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
)

// Handlers - обработчики, которые монтирует роутер
type Handlers struct {
	Auth     *AuthHandler
	Records  *RecordHandler
	Settings *SettingsHandler
	Printer  *PrinterHandler
	Sync     *SyncHandler
	Events   http.Handler // websocket hub
}

// Router содержит все зависимости для HTTP роутера
type Router struct {
	handlers Handlers
	tokens   middleware.TokenValidator // nil - API без аутентификации
	config   *config.Config
	logger   logger.Logger
}

// NewRouter создает новый HTTP router
func NewRouter(
	handlers Handlers,
	tokens middleware.TokenValidator,
	config *config.Config,
	logger logger.Logger,
) *Router {
	return &Router{
		handlers: handlers,
		tokens:   tokens,
		config:   config,
		logger:   logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware(middleware.CORSConfig{
		AllowedOrigins: rt.config.CORS.AllowedOrigins,
		AllowedMethods: rt.config.CORS.AllowedMethods,
		AllowedHeaders: rt.config.CORS.AllowedHeaders,
	}))

	// Health check endpoint (публичный)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	if rt.handlers.Events != nil {
		r.Method(http.MethodGet, "/ws", rt.handlers.Events)
	}

	authenticate := middleware.Anonymous()
	if rt.tokens != nil {
		authenticate = middleware.AuthMiddleware(rt.tokens)
	}
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (без аутентификации)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", rt.handlers.Auth.Login)
			r.Post("/refresh", rt.handlers.Auth.Refresh)
			r.With(authenticate).Get("/me", rt.handlers.Auth.Me)
		})

		// Protected routes (требуют аутентификации)
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			records := rt.handlers.Records
			r.Route("/records", func(r chi.Router) {
				r.Get("/", records.List)
				r.Post("/", records.Save)
				r.Get("/active", records.Active)
				r.Get("/summary", records.Summary)
				r.Post("/entry", records.Entry)
				r.Get("/{id}", records.Get)
				r.Post("/{id}/exit", records.Exit)
				r.Get("/{id}/ticket", records.Ticket)
				r.Post("/{id}/print", records.Print)
				r.With(adminOnly).Delete("/{id}", records.Delete)
			})

			r.Route("/print/history", func(r chi.Router) {
				r.Get("/", records.History)
				r.Post("/{id}/reprint", records.Reprint)
			})

			r.Get("/export.csv", records.Export)
			r.With(adminOnly).Post("/import.csv", records.Import)

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", rt.handlers.Settings.Get)
				r.Get("/currencies", rt.handlers.Settings.Currencies)
				r.With(adminOnly).Put("/", rt.handlers.Settings.Update)
			})

			r.Route("/printer", func(r chi.Router) {
				r.Get("/", rt.handlers.Printer.Current)
				r.Get("/ports", rt.handlers.Printer.Ports)
				r.Post("/test", rt.handlers.Printer.TestPrint)

				// Привязка принтера меняет общую настройку кассы
				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					r.Delete("/", rt.handlers.Printer.Disconnect)
					r.Post("/scan/bluetooth", rt.handlers.Printer.ScanBluetooth)
					r.Post("/scan/serial", rt.handlers.Printer.ScanSerial)
				})
			})

			r.Route("/sync", func(r chi.Router) {
				r.Get("/status", rt.handlers.Sync.Status)
				r.Post("/push", rt.handlers.Sync.Push)
				r.With(adminOnly).Post("/pull", rt.handlers.Sync.Pull)
			})
		})
	})

	return r
}
