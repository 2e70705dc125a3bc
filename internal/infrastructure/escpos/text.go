package escpos

import (
	"strings"
	"unicode/utf8"
)

// RenderText - экранная версия билета для системного диалога печати
// Диакритика сохраняется, выравнивание делается пробелами по ширине ленты.
func RenderText(t Ticket, columns int) string {
	var b strings.Builder

	for _, line := range t.Lines {
		if line.Separator {
			b.WriteString(strings.Repeat("-", columns))
			b.WriteByte('\n')
			continue
		}
		b.WriteString(pad(line.Text(), line.Align, columns))
		b.WriteByte('\n')
	}

	return b.String()
}

// pad выравнивает строку по ширине; длинные строки не обрезаются
func pad(text string, align Align, columns int) string {
	n := utf8.RuneCountInString(text)
	if n >= columns || text == "" {
		return text
	}

	switch align {
	case AlignCenter:
		return strings.Repeat(" ", (columns-n)/2) + text
	case AlignRight:
		return strings.Repeat(" ", columns-n) + text
	default:
		return text
	}
}
