package printer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
)

// BluetoothCentral - BLE адаптер хоста
type BluetoothCentral interface {
	// Available возвращает ошибку, если на хосте нет Bluetooth
	Available() error
	// RequestDevice ищет устройство с указанным сервисом и возвращает первое найденное
	RequestDevice(ctx context.Context, serviceUUID string) (BluetoothDevice, error)
}

// PortInfo - описание последовательного порта
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// SerialProvider - последовательные порты хоста
type SerialProvider interface {
	Ports() ([]PortInfo, error)
	// RequestPort выбирает порт по имени; пустое имя - первый USB порт
	RequestPort(ctx context.Context, name string) (SerialPort, error)
}

// Scanner - поиск и проверка принтеров
// Результат - HardwareHandle, который потом передается в Dispatcher.
type Scanner struct {
	bluetooth BluetoothCentral
	serial    SerialProvider
	opts      Options
	logger    logger.Logger
}

// NewScanner создает сканер; любой из бэкендов может быть nil (нет на хосте)
func NewScanner(bt BluetoothCentral, serial SerialProvider, opts Options, log logger.Logger) *Scanner {
	return &Scanner{
		bluetooth: bt,
		serial:    serial,
		opts:      opts.normalize(),
		logger:    log,
	}
}

// ScanBluetooth выбирает BLE принтер и проверяет, что в него можно писать
// После проверки соединение закрывается: Dispatcher переподключится при первой печати.
func (s *Scanner) ScanBluetooth(ctx context.Context) (*domain.HardwareHandle, error) {
	if s.bluetooth == nil {
		return nil, domain.ErrBluetoothUnavailable
	}
	if err := s.bluetooth.Available(); err != nil {
		return nil, classifyScanError(err, domain.ErrBluetoothUnavailable)
	}

	scanCtx, cancel := context.WithTimeout(ctx, s.opts.ScanTimeout)
	defer cancel()

	dev, err := s.bluetooth.RequestDevice(scanCtx, s.opts.ServiceUUID)
	if err != nil {
		return nil, classifyScanError(err, nil)
	}
	if isNilSession(dev) {
		return nil, domain.ErrSelectionCancelled
	}

	s.logger.Info("Bluetooth device selected", map[string]interface{}{
		"name":    dev.Name(),
		"address": dev.Address(),
	})

	if err := s.validate(ctx, dev); err != nil {
		s.logger.Warn("Bluetooth device rejected", map[string]interface{}{
			"name":  dev.Name(),
			"error": err.Error(),
		})
		return nil, err
	}

	name := dev.Name()
	if name == "" {
		name = "Impresora BT"
	}

	return &domain.HardwareHandle{
		Kind:      domain.HardwareBluetooth,
		Name:      name,
		Connected: true,
		Address:   dev.Address(),
		Device:    dev,
	}, nil
}

// validate - пробное подключение: устройство без характеристики записи не принтер
func (s *Scanner) validate(ctx context.Context, dev BluetoothDevice) error {
	if err := dev.Connect(ctx); err != nil {
		if errors.Is(err, domain.ErrNoGATT) {
			return err
		}
		return classifyScanError(err, nil)
	}
	defer func() { _ = dev.Disconnect() }()

	svc, err := dev.PrimaryService(ctx, s.opts.ServiceUUID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotAPrinter, err)
	}

	ch, err := firstWritable(ctx, svc)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotAPrinter, err)
	}
	if ch == nil {
		return domain.ErrNotAPrinter
	}

	return nil
}

// ScanSerial выбирает порт и сразу открывает его; порт остается открытым
func (s *Scanner) ScanSerial(ctx context.Context, portName string) (*domain.HardwareHandle, error) {
	if s.serial == nil {
		return nil, domain.ErrSerialUnavailable
	}

	port, err := s.serial.RequestPort(ctx, portName)
	if err != nil {
		return nil, classifyScanError(err, nil)
	}
	if isNilSession(port) {
		return nil, domain.ErrSelectionCancelled
	}

	if err := port.Open(s.opts.BaudRate); err != nil {
		return nil, classifyScanError(fmt.Errorf("failed to open serial port %s: %w", port.Name(), err), nil)
	}

	s.logger.Info("Serial printer opened", map[string]interface{}{
		"port":      port.Name(),
		"baud_rate": s.opts.BaudRate,
	})

	return &domain.HardwareHandle{
		Kind:      domain.HardwareSerial,
		Name:      "USB Printer",
		Connected: true,
		Address:   port.Name(),
		Device:    port,
	}, nil
}

// Ports перечисляет последовательные порты хоста
func (s *Scanner) Ports() ([]PortInfo, error) {
	if s.serial == nil {
		return nil, domain.ErrSerialUnavailable
	}
	return s.serial.Ports()
}

// classifyScanError разделяет отмену выбора, блокировку политикой и отсутствие возможности
// Каждому классу соответствует свой текст, чтобы оператор знал, что делать.
func classifyScanError(err error, fallback error) error {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, domain.ErrSelectionCancelled):
		return fmt.Errorf("%w: %v", domain.ErrSelectionCancelled, err)
	case errors.Is(err, domain.ErrPermissionBlocked),
		errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", domain.ErrPermissionBlocked, err)
	case errors.Is(err, domain.ErrBluetoothUnavailable),
		errors.Is(err, domain.ErrSerialUnavailable),
		errors.Is(err, domain.ErrNotAPrinter),
		errors.Is(err, domain.ErrNoGATT):
		return err
	case fallback != nil:
		return fmt.Errorf("%w: %v", fallback, err)
	default:
		return err
	}
}
