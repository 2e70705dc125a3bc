package escpos

import (
	"bytes"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/frontandrew/parkpos/internal/domain"
)

// trailingFeeds - пустые строки перед отрезкой бумаги
const trailingFeeds = 3

// Encoder - кодировщик билетов в команды ESC/POS
// Кодировщик не делает I/O и безопасен для конкурентного использования.
type Encoder struct {
	location *time.Location
	charset  encoding.Encoding
	now      func() time.Time
}

// Option - опция кодировщика
type Option func(*Encoder)

// WithLocation задает временную зону для дат на билете
func WithLocation(loc *time.Location) Option {
	return func(e *Encoder) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithCharset задает однобайтовую кодовую страницу принтера
func WithCharset(cs encoding.Encoding) Option {
	return func(e *Encoder) {
		if cs != nil {
			e.charset = cs
		}
	}
}

// WithClock подменяет часы (для тестов)
func WithClock(now func() time.Time) Option {
	return func(e *Encoder) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEncoder создает кодировщик; по умолчанию UTC и CP437
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		location: time.UTC,
		charset:  charmap.CodePage437,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location возвращает временную зону билетов
func (e *Encoder) Location() *time.Location {
	return e.location
}

// Ticket раскладывает запись в билет с часами и зоной кодировщика
func (e *Encoder) Ticket(record *domain.ParkingRecord, settings domain.PrintSettings, tariffs domain.Tariffs, currency string) Ticket {
	return BuildTicket(record, settings, tariffs, currency, e.location, e.now())
}

// Encode формирует буфер команд для термопринтера
func (e *Encoder) Encode(record *domain.ParkingRecord, settings domain.PrintSettings, tariffs domain.Tariffs, currency string) []byte {
	t := e.Ticket(record, settings, tariffs, currency)
	return e.EncodeTicket(t, settings.PaperWidth.Columns())
}

// EncodeTicket переводит готовую разметку в байты
func (e *Encoder) EncodeTicket(t Ticket, columns int) []byte {
	return e.toBytes(Commands(t, columns))
}

// Commands возвращает текст билета с управляющими кодами (до кодирования в байты)
// Текст очищается от диакритики: кодовые страницы принтеров ненадежны для акцентов.
func Commands(t Ticket, columns int) string {
	var b strings.Builder

	b.Write(CmdInit)

	align := Align(0xFF)
	size := SizeNormal
	for _, line := range t.Lines {
		if line.Align != align {
			b.Write(CmdAlign(line.Align))
			align = line.Align
		}
		if line.Size != size {
			b.Write(CmdSize(line.Size))
			size = line.Size
		}

		if line.Separator {
			b.WriteString(strings.Repeat("-", columns))
			b.WriteByte(LF)
			continue
		}

		if line.Bold {
			b.Write(CmdBoldOn)
		}
		b.WriteString(Sanitize(line.Label))
		if line.ValueBold && !line.Bold {
			b.Write(CmdBoldOn)
			b.WriteString(Sanitize(line.Value))
			b.Write(CmdBoldOff)
		} else {
			b.WriteString(Sanitize(line.Value))
		}
		b.WriteByte(LF)
		if line.Bold {
			b.Write(CmdBoldOff)
		}
	}

	if size != SizeNormal {
		b.Write(CmdSize(SizeNormal))
	}
	b.WriteString(strings.Repeat(string(rune(LF)), trailingFeeds))
	b.Write(CmdCut)

	return b.String()
}

// Sanitize убирает диакритику: раскладывает символы (NFD) и удаляет комбинирующие знаки
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// toBytes кодирует команды однобайтовой кодовой страницей
// Символы вне страницы заменяются символом замены кодировки.
func (e *Encoder) toBytes(commands string) []byte {
	out, err := encoding.ReplaceUnsupported(e.charset.NewEncoder()).Bytes([]byte(commands))
	if err == nil {
		return out
	}

	// Невалидный UTF-8: оставляем только ASCII
	var buf bytes.Buffer
	for _, r := range commands {
		if r < utf8.RuneSelf {
			buf.WriteByte(byte(r))
		} else {
			buf.WriteByte('?')
		}
	}
	return buf.Bytes()
}
