package domain

import (
	"strings"
	"time"
)

// RecordStatus представляет состояние стоянки автомобиля
type RecordStatus string

const (
	StatusActive    RecordStatus = "Activo"     // Автомобиль на парковке
	StatusFinalized RecordStatus = "Finalizado" // Выезд оформлен, сумма рассчитана
)

// NoExit - значение поля Salida, пока выезд не зарегистрирован
const NoExit = "-"

// ParkingRecord - одна стоянка одного автомобиля
// Форма JSON совпадает со строкой таблицы (Placa, Vehiculo, Tipo, ...)
type ParkingRecord struct {
	ID          string       `json:"id"`
	Plate       string       `json:"Placa"`
	Vehicle     string       `json:"Vehiculo"`
	VehicleType string       `json:"Tipo"`
	EntryAt     string       `json:"Entrada"` // ISO instant
	ExitAt      string       `json:"Salida"`  // ISO instant или NoExit
	Status      RecordStatus `json:"Estado"`
	Total       float64      `json:"Total"`
}

// NormalizePlate приводит номер к верхнему регистру и убирает крайние пробелы
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// IsActive проверяет, находится ли автомобиль на парковке
func (r *ParkingRecord) IsActive() bool {
	return r.Status == StatusActive
}

// IsFinalized проверяет, оформлен ли выезд
func (r *ParkingRecord) IsFinalized() bool {
	return r.Status == StatusFinalized
}

// HasExit проверяет, заполнено ли время выезда
func (r *ParkingRecord) HasExit() bool {
	return r.ExitAt != "" && r.ExitAt != NoExit
}

// ExitTime возвращает время выезда, если оно есть и корректно
func (r *ParkingRecord) ExitTime() (*time.Time, bool) {
	if !r.HasExit() {
		return nil, false
	}
	t, err := ParseTimestamp(r.ExitAt)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// Finalize оформляет выезд: один раз переводит запись из Activo в Finalizado
// При ошибке запись не меняется
func (r *ParkingRecord) Finalize(exit time.Time, total float64) error {
	if !r.IsActive() {
		return ErrRecordAlreadyFinalized
	}
	entry, err := ParseTimestamp(r.EntryAt)
	if err != nil {
		return ErrInvalidTimestamp
	}
	if exit.Before(entry) {
		return ErrInvalidDateRange
	}
	if total <= 0 {
		return ErrInvalidTotal
	}
	r.ExitAt = FormatTimestamp(exit)
	r.Status = StatusFinalized
	r.Total = total
	return nil
}

// MaxClockSkew - насколько въезд может опережать часы сервера
// (расхождение часов между кассой и сервером)
const MaxClockSkew = 5 * time.Minute

// Validate проверяет инварианты записи на текущий момент
func (r *ParkingRecord) Validate() error {
	return r.ValidateAt(time.Now())
}

// ValidateAt проверяет инварианты записи
// Activo <=> Salida == "-"; Finalizado => Salida >= Entrada и Total > 0;
// въезд не позже now + MaxClockSkew
func (r *ParkingRecord) ValidateAt(now time.Time) error {
	if r.ID == "" {
		return ErrInvalidRecordData
	}
	r.Plate = NormalizePlate(r.Plate)
	if r.Plate == "" {
		return ErrInvalidPlate
	}
	if r.Total < 0 {
		return ErrInvalidTotal
	}

	entry, err := ParseTimestamp(r.EntryAt)
	if err != nil {
		return ErrInvalidTimestamp
	}
	if entry.After(now.Add(MaxClockSkew)) {
		return ErrEntryInFuture
	}

	switch r.Status {
	case StatusActive:
		if r.HasExit() {
			return ErrInvalidRecordStatus
		}
		r.ExitAt = NoExit
		r.Total = 0
	case StatusFinalized:
		exit, ok := r.ExitTime()
		if !ok {
			return ErrInvalidTimestamp
		}
		if exit.Before(entry) {
			return ErrInvalidDateRange
		}
		if r.Total <= 0 {
			return ErrInvalidTotal
		}
	default:
		return ErrInvalidRecordStatus
	}

	return nil
}

// timestampLayouts - поддерживаемые форматы меток времени (с зоной и без)
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp разбирает ISO метку времени; метки без зоны считаются UTC
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, value, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// FormatTimestamp форматирует время так же, как Date.toISOString
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
