package domain

// AppSettings - настройки, которые редактируются вместе и синхронизируются в облако
type AppSettings struct {
	Tariffs       Tariffs       `json:"tariffs" yaml:"tariffs"`
	PrintSettings PrintSettings `json:"printSettings" yaml:"printSettings"`
	Currency      string        `json:"currency" yaml:"currency"`
}

// DefaultAppSettings - настройки новой установки
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Tariffs:       DefaultTariffs(),
		PrintSettings: DefaultPrintSettings(),
		Currency:      DefaultCurrency,
	}
}

// Validate проверяет настройки целиком
func (s *AppSettings) Validate() error {
	if err := s.Tariffs.Validate(); err != nil {
		return err
	}
	if err := s.PrintSettings.Validate(); err != nil {
		return err
	}
	if s.Currency == "" {
		s.Currency = DefaultCurrency
	}
	if _, ok := LookupCurrency(s.Currency); !ok {
		return ErrUnknownCurrency
	}
	return nil
}
