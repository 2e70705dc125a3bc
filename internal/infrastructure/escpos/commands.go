package escpos

// Управляющие байты ESC/POS
const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

// Align - выравнивание строки (ESC a n)
type Align byte

const (
	AlignLeft   Align = 0x00
	AlignCenter Align = 0x01
	AlignRight  Align = 0x02
)

// Size - масштаб текста (GS ! n)
type Size byte

const (
	SizeNormal       Size = 0x00
	SizeDoubleHeight Size = 0x10
	SizeDoubleWidth  Size = 0x20
	SizeBig          Size = 0x30
)

// Команды принтера
var (
	CmdInit    = []byte{ESC, '@'}
	CmdBoldOn  = []byte{ESC, 'E', 0x01}
	CmdBoldOff = []byte{ESC, 'E', 0x00}
	CmdCut     = []byte{GS, 'V', 0x41, 0x03} // Частичная отрезка
)

// CmdAlign возвращает команду выравнивания
func CmdAlign(a Align) []byte {
	return []byte{ESC, 'a', byte(a)}
}

// CmdSize возвращает команду масштаба текста
func CmdSize(s Size) []byte {
	return []byte{GS, '!', byte(s)}
}
