package domain

import (
	"fmt"
	"math"
	"time"
)

const (
	// DefaultTariffKey - ключ тарифа, используемого для неизвестных типов
	DefaultTariffKey = "Default"

	// BaselineRate - часовая ставка, если нет ни тарифа типа, ни Default
	BaselineRate = 2000
)

// Tariffs - часовые ставки по типу транспортного средства
type Tariffs map[string]float64

// DefaultTariffs - тарифы новой установки
func DefaultTariffs() Tariffs {
	return Tariffs{
		"Sedán":  2000,
		"SUV":    3500,
		"Moto":   1000,
		"Camión": 5000,
	}
}

// RateFor возвращает ставку: тариф типа -> Default -> BaselineRate
func (t Tariffs) RateFor(vehicleType string) float64 {
	if rate, ok := t[vehicleType]; ok {
		return rate
	}
	if rate, ok := t[DefaultTariffKey]; ok {
		return rate
	}
	return BaselineRate
}

// Validate проверяет, что все ставки положительны
// Нулевая ставка дала бы завершенную стоянку с Total = 0
func (t Tariffs) Validate() error {
	for vehicleType, rate := range t {
		if vehicleType == "" || rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
			return ErrInvalidTariff
		}
	}
	return nil
}

// Clone возвращает копию таблицы тарифов
func (t Tariffs) Clone() Tariffs {
	out := make(Tariffs, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// StayStats - результат расчета стоянки, никогда не сохраняется
type StayStats struct {
	ElapsedMinutes int64     `json:"elapsed_minutes"`
	ChargedHours   int64     `json:"charged_hours"`
	Rate           float64   `json:"rate"`
	Total          float64   `json:"total"`
	DurationText   string    `json:"duration_text"`
	EntryFormatted string    `json:"entry_formatted,omitempty"`
	ExitFormatted  string    `json:"exit_formatted,omitempty"`
	EntryAt        time.Time `json:"-"`
	ExitAt         time.Time `json:"-"`
}

// displayLayout - формат даты на билете: день/месяц часы:минуты
const displayLayout = "02/01 15:04"

// zeroStay - вырожденный результат для некорректных данных и отрицательного интервала
func zeroStay() StayStats {
	return StayStats{DurationText: "0m"}
}

// CalculateStay - калькулятор стоимости стоянки
// Если exit == nil, расчет ведется на текущий момент.
// Некорректная метка входа или выезд раньше въезда дают нулевой результат, а не ошибку.
func CalculateStay(entry string, vehicleType string, tariffs Tariffs, exit *time.Time) StayStats {
	entryAt, err := ParseTimestamp(entry)
	if err != nil {
		return zeroStay()
	}

	exitAt := time.Now()
	if exit != nil {
		exitAt = *exit
	}

	return CalculateStayBetween(entryAt, exitAt, vehicleType, tariffs)
}

// CalculateStayBetween считает стоянку между двумя моментами времени
func CalculateStayBetween(entryAt, exitAt time.Time, vehicleType string, tariffs Tariffs) StayStats {
	elapsed := exitAt.Sub(entryAt)
	if elapsed < 0 {
		return zeroStay()
	}

	minutes := int64(elapsed / time.Minute)

	// Любая стоянка оплачивается минимум за один час, округление всегда вверх
	charged := (minutes + 59) / 60
	if charged < 1 {
		charged = 1
	}

	rate := tariffs.RateFor(vehicleType)

	return StayStats{
		ElapsedMinutes: minutes,
		ChargedHours:   charged,
		Rate:           rate,
		Total:          float64(charged) * rate,
		DurationText:   FormatDuration(minutes),
		EntryFormatted: entryAt.Format(displayLayout),
		ExitFormatted:  exitAt.Format(displayLayout),
		EntryAt:        entryAt,
		ExitAt:         exitAt,
	}
}

// In переформатирует даты результата в указанной временной зоне
func (s StayStats) In(loc *time.Location) StayStats {
	if loc == nil || s.EntryAt.IsZero() {
		return s
	}
	s.EntryFormatted = s.EntryAt.In(loc).Format(displayLayout)
	s.ExitFormatted = s.ExitAt.In(loc).Format(displayLayout)
	return s
}

// FormatDuration форматирует минуты как "{ч}h {м}m"
func FormatDuration(minutes int64) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// StatsForRecord считает стоянку записи: до выезда для Finalizado, до now для Activo
func StatsForRecord(record *ParkingRecord, tariffs Tariffs, now time.Time) StayStats {
	if exit, ok := record.ExitTime(); ok {
		return CalculateStay(record.EntryAt, record.VehicleType, tariffs, exit)
	}
	return CalculateStay(record.EntryAt, record.VehicleType, tariffs, &now)
}
