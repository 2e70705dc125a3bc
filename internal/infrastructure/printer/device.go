package printer

import (
	"context"
	"io"
	"time"

	"github.com/frontandrew/parkpos/internal/domain"
)

// PrinterServiceUUID - стандартный GATT сервис термопринтеров
const PrinterServiceUUID = "000018f0-0000-1000-8000-00805f9b34fb"

// Параметры транспорта по умолчанию
const (
	DefaultChunkSize   = 100 // Безопасный размер пакета для большинства BLE принтеров
	DefaultChunkDelay  = 20 * time.Millisecond
	DefaultBaudRate    = 9600
	DefaultScanTimeout = 15 * time.Second
)

// BluetoothDevice - сессия BLE устройства
// Соединение может закрыться само между печатями, поэтому Connected проверяется перед каждой отправкой.
type BluetoothDevice interface {
	domain.DeviceSession

	Name() string
	Address() string
	Connected() bool
	Connect(ctx context.Context) error
	Disconnect() error

	// PrimaryService возвращает сервис по UUID (быстрый путь)
	PrimaryService(ctx context.Context, uuid string) (GATTService, error)
	// PrimaryServices перечисляет все сервисы устройства (медленный путь)
	PrimaryServices(ctx context.Context) ([]GATTService, error)
}

// GATTService - первичный сервис GATT
type GATTService interface {
	UUID() string
	Characteristics(ctx context.Context) ([]GATTCharacteristic, error)
}

// CharacteristicProperties - флаги характеристики, важные для печати
type CharacteristicProperties struct {
	Write                bool
	WriteWithoutResponse bool
}

// Writable проверяет, можно ли писать в характеристику
func (p CharacteristicProperties) Writable() bool {
	return p.Write || p.WriteWithoutResponse
}

// GATTCharacteristic - характеристика, через которую данные уходят на принтер
type GATTCharacteristic interface {
	UUID() string
	Properties() CharacteristicProperties
	WriteValue(ctx context.Context, data []byte) error
}

// SerialPort - сессия последовательного порта
type SerialPort interface {
	domain.DeviceSession

	Name() string
	IsOpen() bool
	Open(baudRate int) error
	Close() error

	// AcquireWriter выдает эксклюзивный писатель; его нужно освободить через Release
	AcquireWriter() (PortWriter, error)
}

// PortWriter - эксклюзивный писатель порта
type PortWriter interface {
	io.Writer
	Release()
}

// firstWritable возвращает первую характеристику с правом записи
func firstWritable(ctx context.Context, svc GATTService) (GATTCharacteristic, error) {
	chars, err := svc.Characteristics(ctx)
	if err != nil {
		return nil, err
	}
	for _, ch := range chars {
		if ch.Properties().Writable() {
			return ch, nil
		}
	}
	return nil, nil
}
