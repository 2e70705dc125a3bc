// Package profile читает YAML профиль первой установки кассы:
// тарифы, реквизиты для билета и валюту.
package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/frontandrew/parkpos/internal/domain"
)

// document - форма файла; отсутствующие разделы берутся из настроек по умолчанию
type document struct {
	Tariffs       domain.Tariffs `yaml:"tariffs"`
	PrintSettings yaml.Node      `yaml:"printSettings"`
	Currency      string         `yaml:"currency"`
}

// Load разбирает профиль поверх настроек по умолчанию
// Таблица тарифов из профиля заменяет таблицу по умолчанию целиком.
func Load(data []byte) (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}

	if len(doc.Tariffs) > 0 {
		settings.Tariffs = doc.Tariffs
	}
	if doc.PrintSettings.Kind != 0 {
		if err := doc.PrintSettings.Decode(&settings.PrintSettings); err != nil {
			return nil, fmt.Errorf("decoding printSettings: %w", err)
		}
	}
	if doc.Currency != "" {
		settings.Currency = doc.Currency
	}

	// Сессия устройства в файле не хранится
	settings.PrintSettings.Hardware = settings.PrintSettings.Hardware.Detached()
	if settings.PrintSettings.Hardware == nil {
		settings.PrintSettings.Hardware = domain.SystemHardware()
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return &settings, nil
}

// LoadFile читает профиль с диска; пустой путь - настройки по умолчанию
func LoadFile(path string) (*domain.AppSettings, error) {
	if path == "" {
		settings := domain.DefaultAppSettings()
		return &settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %q: %w", path, err)
	}

	return Load(data)
}

// Marshal сериализует настройки в формат профиля
func Marshal(settings *domain.AppSettings) ([]byte, error) {
	out := *settings
	out.PrintSettings.Hardware = out.PrintSettings.Hardware.Detached()
	return yaml.Marshal(&out)
}
