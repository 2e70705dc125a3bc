package domain

import (
	"time"

	"github.com/google/uuid"
)

// PrintHistoryLimit - сколько последних печатей хранится в истории
const PrintHistoryLimit = 50

// PrintHistoryItem - запись истории печати билетов
type PrintHistoryItem struct {
	ID        string    `json:"id"`
	RowID     string    `json:"rowId"`
	Plate     string    `json:"placa"`
	Type      string    `json:"tipo"`
	Timestamp time.Time `json:"timestamp"`
	IsExit    bool      `json:"isExit"`
	Total     float64   `json:"total"`
}

// NewPrintHistoryItem создает запись истории для напечатанной записи
func NewPrintHistoryItem(record *ParkingRecord, at time.Time) *PrintHistoryItem {
	return &PrintHistoryItem{
		ID:        uuid.NewString(),
		RowID:     record.ID,
		Plate:     record.Plate,
		Type:      record.VehicleType,
		Timestamp: at,
		IsExit:    record.IsFinalized(),
		Total:     record.Total,
	}
}
