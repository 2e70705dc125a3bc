package domain

import (
	"math"
	"strconv"
	"strings"
)

// DefaultCurrency - валюта новой установки
const DefaultCurrency = "COP"

// CurrencyOption - поддерживаемая валюта
type CurrencyOption struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Label  string `json:"label"`
}

// CurrencyOptions - список валют, доступных в настройках
var CurrencyOptions = []CurrencyOption{
	{Code: "COP", Symbol: "$", Label: "Peso Colombiano"},
	{Code: "USD", Symbol: "$", Label: "Dólar Estadounidense"},
	{Code: "MXN", Symbol: "$", Label: "Peso Mexicano"},
	{Code: "EUR", Symbol: "€", Label: "Euro"},
	{Code: "ARS", Symbol: "$", Label: "Peso Argentino"},
	{Code: "CLP", Symbol: "$", Label: "Peso Chileno"},
	{Code: "PEN", Symbol: "S/", Label: "Sol Peruano"},
}

// LookupCurrency ищет валюту по коду
func LookupCurrency(code string) (CurrencyOption, bool) {
	for _, opt := range CurrencyOptions {
		if opt.Code == code {
			return opt, true
		}
	}
	return CurrencyOption{}, false
}

// FormatCurrency форматирует сумму без дробной части с разделителем тысяч "."
// Ноль выводится как "<символ> 0", неизвестная валюта - как "<код> <сумма>".
func FormatCurrency(amount float64, code string) string {
	opt, known := LookupCurrency(code)

	if amount == 0 || math.IsNaN(amount) {
		if !known {
			return "$ 0"
		}
		return opt.Symbol + " 0"
	}

	if !known {
		return code + " " + strconv.FormatFloat(amount, 'f', -1, 64)
	}

	return opt.Symbol + " " + groupThousands(int64(math.Round(amount)))
}

// groupThousands расставляет "." между группами разрядов
func groupThousands(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	digits := strconv.FormatInt(n, 10)
	if len(digits) <= 3 {
		return sign + digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}

	return sign + b.String()
}
