package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Operator OperatorConfig
	Printer  PrinterConfig
	Sync     SyncConfig
	Ticket   TicketConfig
	CORS     CORSConfig
	Logger   LoggerConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
}

// JWTConfig содержит настройки JWT аутентификации
type JWTConfig struct {
	SecretKey     string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// OperatorConfig - учетная запись оператора кассы
type OperatorConfig struct {
	Username     string
	PasswordHash string // bcrypt
	Role         string
}

// PrinterConfig содержит настройки транспорта до термопринтера
type PrinterConfig struct {
	ChunkSize        int
	ChunkDelay       time.Duration
	BaudRate         int
	ServiceUUID      string
	ScanTimeout      time.Duration
	WriteUUIDs       []string
	BluetoothEnabled bool
	SerialEnabled    bool
}

// SyncConfig содержит настройки синхронизации с Google Sheets
type SyncConfig struct {
	SheetURL string
	Schedule string // cron выражение, пусто - только вручную
	Timeout  time.Duration
}

// Enabled проверяет, задан ли адрес таблицы
func (c *SyncConfig) Enabled() bool {
	return c.SheetURL != ""
}

// TicketConfig содержит настройки билетов
type TicketConfig struct {
	Timezone    string
	ProfilePath string // YAML с тарифами и реквизитами для первой установки
}

// CORSConfig содержит настройки CORS
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// LoggerConfig содержит настройки логирования
type LoggerConfig struct {
	Level  string
	Format string // json или console
	Output string // stdout или путь к файлу
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку, если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "parkpos"),
			Password:        getEnv("DB_PASSWORD", "parkpos"),
			Database:        getEnv("DB_NAME", "parkpos"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			AutoMigrate:     getBoolEnv("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnv("REDIS_PORT", "6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getIntEnv("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "parkpos:"),
		},
		JWT: JWTConfig{
			SecretKey:     getEnv("JWT_SECRET", "your-secret-key-change-this-in-production"),
			AccessExpiry:  getDurationEnv("JWT_ACCESS_EXPIRY", 12*time.Hour),
			RefreshExpiry: getDurationEnv("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		Operator: OperatorConfig{
			Username:     getEnv("OPERATOR_USERNAME", "caja"),
			PasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),
			Role:         getEnv("OPERATOR_ROLE", "admin"),
		},
		Printer: PrinterConfig{
			ChunkSize:        getIntEnv("PRINTER_CHUNK_SIZE", 100),
			ChunkDelay:       getDurationEnv("PRINTER_CHUNK_DELAY", 20*time.Millisecond),
			BaudRate:         getIntEnv("PRINTER_BAUD_RATE", 9600),
			ServiceUUID:      getEnv("PRINTER_SERVICE_UUID", "000018f0-0000-1000-8000-00805f9b34fb"),
			ScanTimeout:      getDurationEnv("PRINTER_SCAN_TIMEOUT", 15*time.Second),
			WriteUUIDs:       getListEnv("PRINTER_WRITE_UUIDS", nil),
			BluetoothEnabled: getBoolEnv("PRINTER_BLUETOOTH_ENABLED", true),
			SerialEnabled:    getBoolEnv("PRINTER_SERIAL_ENABLED", true),
		},
		Sync: SyncConfig{
			SheetURL: getEnv("SYNC_SHEET_URL", ""),
			Schedule: getEnv("SYNC_SCHEDULE", "@every 5m"),
			Timeout:  getDurationEnv("SYNC_TIMEOUT", 30*time.Second),
		},
		Ticket: TicketConfig{
			Timezone:    getEnv("TICKET_TIMEZONE", "America/Bogota"),
			ProfilePath: getEnv("PROFILE_PATH", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет значения, без которых сервис не сможет работать
func (c *Config) Validate() error {
	if c.Printer.ChunkSize <= 0 {
		return fmt.Errorf("PRINTER_CHUNK_SIZE must be positive, got %d", c.Printer.ChunkSize)
	}
	if c.Printer.BaudRate <= 0 {
		return fmt.Errorf("PRINTER_BAUD_RATE must be positive, got %d", c.Printer.BaudRate)
	}
	if _, err := time.LoadLocation(c.Ticket.Timezone); err != nil {
		return fmt.Errorf("invalid TICKET_TIMEZONE %q: %w", c.Ticket.Timezone, err)
	}
	return nil
}

// Location возвращает временную зону билетов
func (c *TicketConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN возвращает строку подключения к PostgreSQL
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Address возвращает адрес сервера
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Address возвращает адрес Redis
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv читает список через запятую
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
