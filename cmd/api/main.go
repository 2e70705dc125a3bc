package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	deliveryHTTP "github.com/frontandrew/parkpos/internal/delivery/http"
	"github.com/frontandrew/parkpos/internal/delivery/http/middleware"
	"github.com/frontandrew/parkpos/internal/delivery/ws"
	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/infrastructure/escpos"
	"github.com/frontandrew/parkpos/internal/infrastructure/printer"
	"github.com/frontandrew/parkpos/internal/infrastructure/printer/bluetooth"
	"github.com/frontandrew/parkpos/internal/infrastructure/printer/serialport"
	"github.com/frontandrew/parkpos/internal/infrastructure/sheets"
	"github.com/frontandrew/parkpos/internal/pkg/config"
	"github.com/frontandrew/parkpos/internal/pkg/database"
	"github.com/frontandrew/parkpos/internal/pkg/jwt"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
	"github.com/frontandrew/parkpos/internal/pkg/profile"
	"github.com/frontandrew/parkpos/internal/pkg/redis"
	"github.com/frontandrew/parkpos/internal/repository"
	"github.com/frontandrew/parkpos/internal/repository/cached"
	"github.com/frontandrew/parkpos/internal/repository/postgres"
	"github.com/frontandrew/parkpos/internal/usecase/auth"
	"github.com/frontandrew/parkpos/internal/usecase/cloudsync"
	"github.com/frontandrew/parkpos/internal/usecase/parking"
	"github.com/frontandrew/parkpos/internal/usecase/printing"
	"github.com/frontandrew/parkpos/internal/usecase/settings"
	"github.com/frontandrew/parkpos/internal/usecase/ticket"
	"github.com/frontandrew/parkpos/migrations"
)

func main() {
	// =========================================================================
	// Загрузка конфигурации
	// =========================================================================

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// =========================================================================
	// Инициализация logger
	// =========================================================================

	log := logger.New(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.Output)
	logger.SetGlobalLogger(log)
	log.Info("Starting parking POS server", map[string]interface{}{
		"version":  "1.0.0",
		"timezone": cfg.Ticket.Timezone,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// Подключение к PostgreSQL и миграции
	// =========================================================================

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer database.Close(db)

	log.Info("Connected to PostgreSQL", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Database,
	})

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db, migrations.FS)
		if err != nil {
			log.Fatal("Failed to apply migrations", map[string]interface{}{
				"error": err.Error(),
			})
		}
		log.Info("Migrations applied", map[string]interface{}{
			"applied": applied,
		})
	}

	// =========================================================================
	// Создание repositories
	// =========================================================================

	recordRepo := postgres.NewRecordRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)
	historyRepo := postgres.NewPrintHistoryRepository(db)

	var tariffRepo repository.TariffRepository = postgres.NewTariffRepository(db)

	// Redis необязателен: без него тарифы читаются напрямую из БД
	rdb, err := redis.NewClient(redis.Config{
		Addr:      cfg.Redis.Address(),
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
	})
	if err != nil {
		log.Warn("Redis is not available, tariffs cache disabled", map[string]interface{}{
			"error": err.Error(),
			"addr":  cfg.Redis.Address(),
		})
	} else {
		defer rdb.Close()
		tariffRepo = cached.NewTariffRepository(tariffRepo, rdb, log)
		log.Info("Tariffs cache enabled", map[string]interface{}{
			"addr": cfg.Redis.Address(),
		})
	}

	log.Info("Repositories initialized")

	// =========================================================================
	// Принтер: кодировщик билетов, транспорт и поиск устройств
	// =========================================================================

	hub := ws.NewHub(cfg.CORS.AllowedOrigins, log.With("component", "events"))
	printerLog := log.With("component", "printer")

	encoder := escpos.NewEncoder(escpos.WithLocation(cfg.Ticket.Location()))

	printerOpts := printer.Options{
		ChunkSize:   cfg.Printer.ChunkSize,
		ChunkDelay:  cfg.Printer.ChunkDelay,
		BaudRate:    cfg.Printer.BaudRate,
		ServiceUUID: cfg.Printer.ServiceUUID,
		ScanTimeout: cfg.Printer.ScanTimeout,
	}
	dispatcher := printer.NewDispatcher(printerOpts, printerLog)
	binding := printer.NewBinding()
	defer binding.Clear()

	// Выключенный бэкенд передается как nil интерфейс
	var central printer.BluetoothCentral
	if cfg.Printer.BluetoothEnabled {
		central = bluetooth.NewCentral(cfg.Printer.WriteUUIDs, printerLog)
	}
	var ports printer.SerialProvider
	if cfg.Printer.SerialEnabled {
		ports = serialport.NewProvider(printerLog)
	}
	scanner := printer.NewScanner(central, ports, printerOpts, printerLog)

	// =========================================================================
	// Облачная синхронизация
	// =========================================================================

	var sheetClient sheets.Client
	if cfg.Sync.Enabled() {
		sheetClient, err = sheets.NewHTTPClient(cfg.Sync.SheetURL, cfg.Sync.Timeout)
		if err != nil {
			log.Fatal("Invalid sync sheet URL", map[string]interface{}{
				"error": err.Error(),
			})
		}
	} else {
		log.Warn("Cloud sync is disabled, SYNC_SHEET_URL is not set")
	}

	// =========================================================================
	// Создание use case services
	// =========================================================================

	syncLog := log.With("component", "sync")
	syncService := cloudsync.NewService(sheetClient, recordRepo, nil, hub, syncLog, cfg.Sync.Timeout)
	settingsService := settings.NewService(tariffRepo, settingsRepo, binding, syncService, hub, log)
	syncService.SetSettings(settingsService)

	seed, err := profile.LoadFile(cfg.Ticket.ProfilePath)
	if err != nil {
		log.Fatal("Failed to load profile", map[string]interface{}{
			"path":  cfg.Ticket.ProfilePath,
			"error": err.Error(),
		})
	}
	if err := settingsService.Seed(ctx, seed); err != nil {
		log.Fatal("Failed to seed settings", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ticketService := ticket.NewService(recordRepo, tariffRepo, settingsRepo, historyRepo, encoder, dispatcher, binding, hub, log)
	parkingService := parking.NewService(recordRepo, tariffRepo, settingsRepo, ticketService, syncService, hub, log)
	printingService := printing.NewService(scanner, binding, settingsRepo, dispatcher, encoder, hub, log)

	if err := printingService.Restore(ctx); err != nil {
		log.Warn("Failed to restore printer binding", map[string]interface{}{
			"error": err.Error(),
		})
	}

	tokenService := jwt.NewTokenService(cfg.JWT.SecretKey, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	authService := auth.NewService(domain.Operator{
		Username:     cfg.Operator.Username,
		PasswordHash: cfg.Operator.PasswordHash,
		Role:         domain.OperatorRole(cfg.Operator.Role),
	}, tokenService, log)

	log.Info("Use case services initialized")

	// =========================================================================
	// Создание и настройка HTTP router
	// =========================================================================

	handlers := deliveryHTTP.Handlers{
		Auth:     deliveryHTTP.NewAuthHandler(authService, log),
		Records:  deliveryHTTP.NewRecordHandler(parkingService, ticketService, log),
		Settings: deliveryHTTP.NewSettingsHandler(settingsService, log),
		Printer:  deliveryHTTP.NewPrinterHandler(printingService, log),
		Sync:     deliveryHTTP.NewSyncHandler(syncService, log),
		Events:   hub,
	}

	var tokens middleware.TokenValidator
	if authService.Enabled() {
		tokens = authService
	} else {
		log.Warn("OPERATOR_PASSWORD_HASH is not set, API is not protected")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      deliveryHTTP.NewRouter(handlers, tokens, cfg, log).Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	scheduler, err := cloudsync.NewScheduler(cfg.Sync.Schedule, syncService, syncLog)
	if err != nil {
		log.Fatal("Failed to create sync scheduler", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// =========================================================================
	// Запуск: HTTP сервер, websocket hub и планировщик
	// =========================================================================

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	g.Go(func() error {
		log.Info("API server listening", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// =========================================================================
	// Graceful shutdown
	// =========================================================================

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")

		// Даем серверу 30 секунд на graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Дожидаемся фоновых выгрузок в облако
	syncService.Wait()

	log.Info("Server stopped gracefully")
}
