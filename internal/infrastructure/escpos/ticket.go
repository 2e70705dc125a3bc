package escpos

import (
	"time"
	"unicode/utf8"

	"github.com/frontandrew/parkpos/internal/domain"
)

const (
	// VehicleWidth - сколько символов описания авто попадает на билет
	VehicleWidth = 20

	stampLine = "___________________________"
	stampText = "ESPACIO PARA SELLO"

	titleEntry = "TICKET DE INGRESO"
	titleExit  = "TICKET DE SALIDA"

	// TotalLabel - метка строки итога; на билете выезда она ровно одна
	TotalLabel = "TOTAL: "
)

// Line - одна строка билета
// Value печатается сразу за Label, ValueBold выделяет только Value.
type Line struct {
	Align     Align
	Size      Size
	Bold      bool
	Label     string
	Value     string
	ValueBold bool
	Separator bool
}

// Text возвращает текст строки без управляющих кодов
func (l Line) Text() string {
	return l.Label + l.Value
}

// Ticket - разметка билета, общая для термопринтера и экрана
type Ticket struct {
	Exit  bool
	Stats domain.StayStats
	Lines []Line
}

// BuildTicket раскладывает запись по секциям билета
// Вид билета определяется статусом: Activo - въезд, Finalizado - выезд.
func BuildTicket(
	record *domain.ParkingRecord,
	settings domain.PrintSettings,
	tariffs domain.Tariffs,
	currency string,
	loc *time.Location,
	now time.Time,
) Ticket {
	isExit := record.IsFinalized()

	stats := domain.StatsForRecord(record, tariffs, now).In(loc)
	if isExit {
		if _, ok := record.ExitTime(); !ok {
			stats.ExitFormatted = ""
			stats.DurationText = ""
		}
	}

	t := Ticket{Exit: isExit, Stats: stats}
	add := func(l Line) { t.Lines = append(t.Lines, l) }
	center := func(text string) { add(Line{Align: AlignCenter, Value: text}) }
	left := func(label, value string) { add(Line{Align: AlignLeft, Label: label, Value: value}) }
	sep := func(a Align) { add(Line{Align: a, Separator: true}) }

	// Шапка
	add(Line{Align: AlignCenter, Bold: true, Value: settings.BusinessName})
	add(Line{Align: AlignCenter, Label: "NIT: ", Value: settings.NIT})
	center(settings.Address)
	add(Line{Align: AlignCenter, Label: "Tel: ", Value: settings.Phone})
	sep(AlignCenter)

	// Заголовок
	title := titleEntry
	if isExit {
		title = titleExit
	}
	add(Line{Align: AlignCenter, Bold: true, Size: SizeDoubleHeight, Value: title})
	add(Line{Align: AlignCenter})

	// Автомобиль
	add(Line{Align: AlignLeft, Label: "PLACA:    ", Value: record.Plate, ValueBold: true})
	left("VEHICULO: ", truncate(record.Vehicle, VehicleWidth))
	left("TIPO:     ", record.VehicleType)
	sep(AlignLeft)

	// Время
	left("ENTRADA: ", stats.EntryFormatted)
	if isExit {
		left("SALIDA:  ", stats.ExitFormatted)
		left("TIEMPO:  ", stats.DurationText)
		left("VALOR HORA: ", domain.FormatCurrency(stats.Rate, currency))
		sep(AlignLeft)

		add(Line{Align: AlignCenter, Size: SizeBig, Label: TotalLabel, Value: domain.FormatCurrency(record.Total, currency)})
	} else {
		add(Line{Align: AlignLeft})
		add(Line{Align: AlignLeft})
		left("", stampLine)
		center(stampText)
	}

	// Подвал
	add(Line{Align: AlignCenter})
	center(settings.FooterMessage)

	return t
}

// truncate обрезает строку до n символов (не байт)
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
