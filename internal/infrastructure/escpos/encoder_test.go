package escpos

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontandrew/parkpos/internal/domain"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestEncoder() *Encoder {
	return NewEncoder(WithClock(func() time.Time { return fixedNow }))
}

func activeRecord() *domain.ParkingRecord {
	return &domain.ParkingRecord{
		ID:          "row-1",
		Plate:       "ABC123",
		Vehicle:     "Mazda 3 gris metalizado edición especial",
		VehicleType: "Sedán",
		EntryAt:     "2024-05-10T08:00:00.000Z",
		ExitAt:      domain.NoExit,
		Status:      domain.StatusActive,
	}
}

func finalizedRecord() *domain.ParkingRecord {
	r := activeRecord()
	r.ExitAt = "2024-05-10T10:05:00.000Z"
	r.Status = domain.StatusFinalized
	r.Total = 6000
	return r
}

func TestEncoder_Encode_Deterministic(t *testing.T) {
	enc := newTestEncoder()
	settings := domain.DefaultPrintSettings()
	tariffs := domain.DefaultTariffs()

	for _, record := range []*domain.ParkingRecord{activeRecord(), finalizedRecord()} {
		first := enc.Encode(record, settings, tariffs, "COP")
		second := NewEncoder().Encode(record, settings, tariffs, "COP")
		assert.Equal(t, first, second)
	}
}

func TestEncoder_Encode_Sections(t *testing.T) {
	enc := newTestEncoder()
	settings := domain.DefaultPrintSettings()
	tariffs := domain.Tariffs{"Sedán": 2000}

	tests := []struct {
		name        string
		record      *domain.ParkingRecord
		contains    []string
		notContains []string
		totalLines  int
	}{
		{
			name:   "билет въезда",
			record: activeRecord(),
			contains: []string{
				titleEntry, stampLine, stampText, "ENTRADA: 10/05 08:00", "TIPO:     Sedan",
			},
			notContains: []string{TotalLabel, titleExit, "SALIDA:", "VALOR HORA"},
			totalLines:  0,
		},
		{
			name:   "билет выезда",
			record: finalizedRecord(),
			contains: []string{
				titleExit, "SALIDA:  10/05 10:05", "TIEMPO:  2h 5m", "VALOR HORA: $ 2.000", "TOTAL: $ 6.000",
			},
			notContains: []string{stampText, stampLine, titleEntry},
			totalLines:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(enc.Encode(tt.record, settings, tariffs, "COP"))

			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, out, s)
			}
			assert.Equal(t, tt.totalLines, strings.Count(out, TotalLabel))
		})
	}
}

func TestEncoder_Encode_Framing(t *testing.T) {
	out := newTestEncoder().Encode(finalizedRecord(), domain.DefaultPrintSettings(), domain.DefaultTariffs(), "COP")

	require.True(t, bytes.HasPrefix(out, CmdInit))

	tail := append([]byte{LF, LF, LF}, CmdCut...)
	assert.True(t, bytes.HasSuffix(out, tail), "буфер должен заканчиваться пустыми строками и отрезкой")

	// Итог печатается крупным шрифтом
	big := append(CmdSize(SizeBig), []byte(TotalLabel)...)
	assert.True(t, bytes.Contains(out, big))

	// Номер выделен жирным только в значении
	plate := append(append([]byte("PLACA:    "), CmdBoldOn...), []byte("ABC123")...)
	assert.True(t, bytes.Contains(out, append(plate, CmdBoldOff...)))
}

func TestEncoder_Encode_Sanitized(t *testing.T) {
	settings := domain.DefaultPrintSettings()
	settings.BusinessName = "Parqueadero Peñalosa"
	settings.Address = "Cra. 7 # 45 - Bogotá"

	record := activeRecord()
	record.VehicleType = "Camión"

	out := newTestEncoder().Encode(record, settings, domain.DefaultTariffs(), "COP")

	assert.True(t, bytes.Contains(out, []byte("Parqueadero Penalosa")))
	assert.True(t, bytes.Contains(out, []byte("Bogota")))
	assert.True(t, bytes.Contains(out, []byte("TIPO:     Camion")))
	for _, b := range out {
		assert.Less(t, b, byte(0x80), "после очистки в буфере только ASCII")
	}
}

func TestEncoder_Encode_SeparatorFollowsPaperWidth(t *testing.T) {
	enc := newTestEncoder()
	settings := domain.DefaultPrintSettings()

	settings.PaperWidth = domain.PaperWidth58mm
	narrow := string(enc.Encode(activeRecord(), settings, domain.DefaultTariffs(), "COP"))
	settings.PaperWidth = domain.PaperWidth80mm
	wide := string(enc.Encode(activeRecord(), settings, domain.DefaultTariffs(), "COP"))

	assert.Contains(t, narrow, strings.Repeat("-", 32)+"\n")
	assert.NotContains(t, narrow, strings.Repeat("-", 33))
	assert.Contains(t, wide, strings.Repeat("-", 48)+"\n")
}

func TestEncoder_Encode_MalformedFields(t *testing.T) {
	record := finalizedRecord()
	record.EntryAt = "no es una fecha"
	record.ExitAt = "tampoco"
	record.Vehicle = ""

	settings := domain.PrintSettings{}

	var out []byte
	assert.NotPanics(t, func() {
		out = newTestEncoder().Encode(record, settings, nil, "COP")
	})
	assert.Contains(t, string(out), "ENTRADA: \n")
	assert.Contains(t, string(out), "VEHICULO: \n")
	assert.Equal(t, 1, strings.Count(string(out), TotalLabel))
}

func TestBuildTicket_VehicleTruncated(t *testing.T) {
	ticket := BuildTicket(activeRecord(), domain.DefaultPrintSettings(), domain.DefaultTariffs(), "COP", time.UTC, fixedNow)

	for _, line := range ticket.Lines {
		if line.Label == "VEHICULO: " {
			assert.Equal(t, "Mazda 3 gris metaliz", line.Value)
			return
		}
	}
	t.Fatal("строка VEHICULO не найдена")
}

func TestBuildTicket_Location(t *testing.T) {
	bogota := time.FixedZone("COT", -5*60*60)

	ticket := BuildTicket(finalizedRecord(), domain.DefaultPrintSettings(), domain.DefaultTariffs(), "COP", bogota, fixedNow)

	assert.Equal(t, "10/05 03:00", ticket.Stats.EntryFormatted)
	assert.Equal(t, "10/05 05:05", ticket.Stats.ExitFormatted)
}

func TestRenderText(t *testing.T) {
	settings := domain.DefaultPrintSettings()
	settings.PaperWidth = domain.PaperWidth58mm
	record := finalizedRecord()
	record.VehicleType = "Camión"

	ticket := BuildTicket(record, settings, domain.DefaultTariffs(), "COP", time.UTC, fixedNow)
	text := RenderText(ticket, settings.PaperWidth.Columns())

	// Экранная версия не очищает диакритику и не содержит управляющих кодов
	assert.Contains(t, text, "TIPO:     Camión")
	assert.NotContains(t, text, string(rune(ESC)))
	assert.NotContains(t, text, string(rune(GS)))
	assert.Equal(t, 1, strings.Count(text, TotalLabel))
	assert.Contains(t, text, "\n        TICKET DE SALIDA\n")
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{in: "Sedán", expected: "Sedan"},
		{in: "Camión", expected: "Camion"},
		{in: "Peñalosa", expected: "Penalosa"},
		{in: "ÀÉÎÕÜ", expected: "AEIOU"},
		{in: "ABC-123", expected: "ABC-123"},
		{in: "", expected: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Sanitize(tt.in))
	}
}
