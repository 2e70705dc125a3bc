// Package csvio выгружает и загружает записи стоянок в CSV
package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/frontandrew/parkpos/internal/domain"
)

// Columns - колонки выгрузки, совпадают с колонками таблицы
var Columns = []string{"Placa", "Vehiculo", "Tipo", "Entrada", "Salida", "Estado", "Total"}

var newID = uuid.NewString

// ErrEmptyFile - в файле нет даже заголовка
var ErrEmptyFile = errors.New("csv file is empty")

// Export пишет заголовок и строки; все значения берутся в кавычки
func Export(w io.Writer, records []*domain.ParkingRecord) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(strings.Join(Columns, ",")); err != nil {
		return err
	}

	for _, r := range records {
		cells := make([]string, len(Columns))
		for i, col := range Columns {
			cells[i] = quote(cellValue(r, col))
		}
		if _, err := bw.WriteString("\n" + strings.Join(cells, ",")); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ImportResult - итог разбора файла
type ImportResult struct {
	Columns []string
	Records []*domain.ParkingRecord
	Skipped int // Строки с другим числом колонок или невалидные
}

// Import разбирает CSV с заголовком; каждая строка получает новый ID
// Неизвестные колонки игнорируются, числовые ячейки Total становятся числами.
func Import(r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	result := &ImportResult{Columns: header}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if len(row) != len(header) {
			result.Skipped++
			continue
		}

		record := &domain.ParkingRecord{ID: newID()}
		for i, col := range header {
			setCell(record, col, strings.TrimSpace(row[i]))
		}
		if err := record.Validate(); err != nil {
			result.Skipped++
			continue
		}

		result.Records = append(result.Records, record)
	}

	return result, nil
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func cellValue(r *domain.ParkingRecord, col string) string {
	switch col {
	case "Placa":
		return r.Plate
	case "Vehiculo":
		return r.Vehicle
	case "Tipo":
		return r.VehicleType
	case "Entrada":
		return r.EntryAt
	case "Salida":
		return r.ExitAt
	case "Estado":
		return string(r.Status)
	case "Total":
		return strconv.FormatFloat(r.Total, 'f', -1, 64)
	}
	return ""
}

func setCell(r *domain.ParkingRecord, col, value string) {
	switch col {
	case "Placa":
		r.Plate = value
	case "Vehiculo":
		r.Vehicle = value
	case "Tipo":
		r.VehicleType = value
	case "Entrada":
		r.EntryAt = value
	case "Salida":
		r.ExitAt = value
	case "Estado":
		r.Status = domain.RecordStatus(value)
	case "Total":
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			r.Total = n
		}
	}
}
