package csvio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontandrew/parkpos/internal/domain"
)

func TestExport(t *testing.T) {
	records := []*domain.ParkingRecord{
		{
			ID: "a", Plate: "ABC123", Vehicle: `Mazda "3"`, VehicleType: "Sedán",
			EntryAt: "2024-05-10T08:00:00.000Z", ExitAt: "2024-05-10T10:05:00.000Z",
			Status: domain.StatusFinalized, Total: 10500,
		},
		{
			ID: "b", Plate: "XYZ987", Vehicle: "", VehicleType: "Moto",
			EntryAt: "2024-05-10T09:00:00.000Z", ExitAt: domain.NoExit, Status: domain.StatusActive,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, records))

	want := "Placa,Vehiculo,Tipo,Entrada,Salida,Estado,Total\n" +
		`"ABC123","Mazda ""3""","Sedán","2024-05-10T08:00:00.000Z","2024-05-10T10:05:00.000Z","Finalizado","10500"` + "\n" +
		`"XYZ987","","Moto","2024-05-10T09:00:00.000Z","-","Activo","0"`
	assert.Equal(t, want, buf.String())
}

func TestImport(t *testing.T) {
	prev := newID
	n := 0
	newID = func() string {
		n++
		return "id-" + string(rune('0'+n))
	}
	t.Cleanup(func() { newID = prev })

	input := "\ufeffPlaca,Vehiculo,Tipo,Entrada,Salida,Estado,Total\n" +
		`"abc123","Mazda, 3","Sedán","2024-05-10T08:00:00.000Z","2024-05-10T10:05:00.000Z","Finalizado","10500"` + "\n" +
		`"SHORT","row"` + "\n" +
		`"XYZ987","","Moto","ayer","-","Activo","0"` + "\n" +
		`"QWE111","","Moto","2024-05-10T09:00:00.000Z","-","Activo",""` + "\n"

	result, err := Import(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, Columns, result.Columns)
	assert.Equal(t, 2, result.Skipped, "короткая строка и битая дата")
	require.Len(t, result.Records, 2)

	first := result.Records[0]
	assert.Equal(t, "id-1", first.ID)
	assert.Equal(t, "ABC123", first.Plate)
	assert.Equal(t, "Mazda, 3", first.Vehicle)
	assert.Equal(t, domain.StatusFinalized, first.Status)
	assert.Equal(t, float64(10500), first.Total)

	assert.Equal(t, "QWE111", result.Records[1].Plate)
	assert.Equal(t, domain.NoExit, result.Records[1].ExitAt)
}

func TestImport_RoundTrip(t *testing.T) {
	records := []*domain.ParkingRecord{{
		ID: "a", Plate: "ABC123", Vehicle: "Hilux", VehicleType: "SUV",
		EntryAt: "2024-05-10T08:00:00.000Z", ExitAt: "2024-05-10T10:05:00.000Z",
		Status: domain.StatusFinalized, Total: 10500.5,
	}}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, records))

	result, err := Import(&buf)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	got := result.Records[0]
	assert.NotEqual(t, "a", got.ID)
	got.ID = "a"
	assert.Equal(t, records[0], got)
}

func TestImport_Empty(t *testing.T) {
	_, err := Import(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}
