package domain

// PaperWidth - ширина бумажной ленты термопринтера
type PaperWidth string

const (
	PaperWidth58mm PaperWidth = "58mm"
	PaperWidth80mm PaperWidth = "80mm"
)

// Columns возвращает число печатаемых символов в строке
func (w PaperWidth) Columns() int {
	if w == PaperWidth58mm {
		return 32
	}
	return 48
}

// Valid проверяет, что ширина из поддерживаемого набора
func (w PaperWidth) Valid() bool {
	return w == PaperWidth58mm || w == PaperWidth80mm
}

// HardwareKind - тип транспорта до принтера
type HardwareKind string

const (
	HardwareSystem    HardwareKind = "system"    // Системный диалог печати
	HardwareBluetooth HardwareKind = "bluetooth" // BLE GATT
	HardwareSerial    HardwareKind = "serial"    // Serial / USB
)

// DeviceSession - непрозрачная сессия устройства, которой владеет ОС
// Ядро хранит только ссылку и не рассчитывает на эксклюзивное владение:
// соединение может молча закрыться между печатями.
type DeviceSession interface {
	Kind() HardwareKind
}

// HardwareHandle - привязанный к приложению принтер
type HardwareHandle struct {
	Kind      HardwareKind  `json:"type" yaml:"type" validate:"required,oneof=system bluetooth serial"`
	Name      string        `json:"name" yaml:"name"`
	Connected bool          `json:"connected" yaml:"connected"`
	Address   string        `json:"address,omitempty" yaml:"address,omitempty"` // MAC или путь порта
	Device    DeviceSession `json:"-" yaml:"-"`                                 // Никогда не сериализуется
}

// IsHardware проверяет, что печать идет не через системный диалог
func (h *HardwareHandle) IsHardware() bool {
	return h != nil && h.Kind != HardwareSystem
}

// Detached возвращает копию без сессии устройства (для хранения)
func (h *HardwareHandle) Detached() *HardwareHandle {
	if h == nil {
		return nil
	}
	out := *h
	out.Device = nil
	out.Connected = false
	return &out
}

// SystemHardware - принтер по умолчанию
func SystemHardware() *HardwareHandle {
	return &HardwareHandle{
		Kind:      HardwareSystem,
		Name:      "Impresora del Sistema",
		Connected: true,
	}
}

// PrintSettings - реквизиты бизнеса и параметры печати
type PrintSettings struct {
	BusinessName   string          `json:"businessName" yaml:"businessName"`
	NIT            string          `json:"nit" yaml:"nit"`
	Address        string          `json:"address" yaml:"address"`
	Phone          string          `json:"phone" yaml:"phone"`
	FooterMessage  string          `json:"footerMessage" yaml:"footerMessage"`
	AutoPrintEntry bool            `json:"autoPrintEntry" yaml:"autoPrintEntry"`
	PaperWidth     PaperWidth      `json:"paperWidth" yaml:"paperWidth"`
	Hardware       *HardwareHandle `json:"hardware,omitempty" yaml:"hardware,omitempty"`
}

// DefaultPrintSettings - параметры печати новой установки
func DefaultPrintSettings() PrintSettings {
	return PrintSettings{
		BusinessName:   "PARKING MASTER AI",
		NIT:            "900.000.000-1",
		Address:        "Calle Principal #123",
		Phone:          "300 000 0000",
		FooterMessage:  "Gracias por su confianza. No nos hacemos responsables por objetos de valor no reportados.",
		AutoPrintEntry: false,
		PaperWidth:     PaperWidth80mm,
		Hardware:       SystemHardware(),
	}
}

// Validate проверяет параметры печати
func (s *PrintSettings) Validate() error {
	if s.PaperWidth == "" {
		s.PaperWidth = PaperWidth80mm
	}
	if !s.PaperWidth.Valid() {
		return ErrInvalidPaperWidth
	}
	if s.Hardware != nil {
		switch s.Hardware.Kind {
		case HardwareSystem, HardwareBluetooth, HardwareSerial:
		default:
			return ErrUnknownHardwareType
		}
	}
	return nil
}

// PrintResult - результат отправки на принтер, ошибка передается значением
type PrintResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PrintOK - успешный результат печати
func PrintOK() PrintResult {
	return PrintResult{Success: true}
}

// PrintFailed - неуспешный результат печати с причиной
func PrintFailed(err error) PrintResult {
	if err == nil {
		return PrintResult{Success: false, Error: ErrUnknownPrintFailure.Error()}
	}
	return PrintResult{Success: false, Error: err.Error()}
}
