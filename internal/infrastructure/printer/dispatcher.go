package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
)

// Options - параметры транспорта до принтера
type Options struct {
	ChunkSize   int
	ChunkDelay  time.Duration
	BaudRate    int
	ServiceUUID string
	ScanTimeout time.Duration
}

// DefaultOptions возвращает параметры, подобранные под типовые термопринтеры
func DefaultOptions() Options {
	return Options{
		ChunkSize:   DefaultChunkSize,
		ChunkDelay:  DefaultChunkDelay,
		BaudRate:    DefaultBaudRate,
		ServiceUUID: PrinterServiceUUID,
		ScanTimeout: DefaultScanTimeout,
	}
}

// normalize подставляет значения по умолчанию вместо нулевых
func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.ChunkSize <= 0 {
		o.ChunkSize = def.ChunkSize
	}
	if o.ChunkDelay < 0 {
		o.ChunkDelay = def.ChunkDelay
	}
	if o.BaudRate <= 0 {
		o.BaudRate = def.BaudRate
	}
	if o.ServiceUUID == "" {
		o.ServiceUUID = def.ServiceUUID
	}
	if o.ScanTimeout <= 0 {
		o.ScanTimeout = def.ScanTimeout
	}
	return o
}

// Dispatcher - отправка готового буфера на привязанный принтер
// Все отправки идут по одной: пакеты двух заданий не смешиваются в одном канале,
// кто бы ни печатал (билеты, пробная печать).
type Dispatcher struct {
	opts   Options
	logger logger.Logger
	sleep  func(time.Duration)

	mu sync.Mutex
}

// DispatcherOption - опция диспетчера
type DispatcherOption func(*Dispatcher)

// WithSleep подменяет паузу между пакетами (для тестов)
func WithSleep(sleep func(time.Duration)) DispatcherOption {
	return func(d *Dispatcher) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

// NewDispatcher создает диспетчер печати
func NewDispatcher(opts Options, log logger.Logger, options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		opts:   opts.normalize(),
		logger: log,
		sleep:  time.Sleep,
	}
	for _, o := range options {
		o(d)
	}
	return d
}

// Options возвращает действующие параметры транспорта
func (d *Dispatcher) Options() Options {
	return d.opts
}

// Send пишет буфер на принтер
// Никогда не паникует и не возвращает ошибку: любой сбой превращается в PrintResult.
func (d *Dispatcher) Send(ctx context.Context, data []byte, hw *domain.HardwareHandle) (result domain.PrintResult) {
	// Без сессии устройства к состоянию соединения не обращаемся
	if hw == nil || isNilSession(hw.Device) {
		return domain.PrintFailed(domain.ErrPrinterNotConnected)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Printer adapter panicked", map[string]interface{}{
				"kind":  hw.Kind,
				"panic": fmt.Sprint(r),
			})
			result = domain.PrintFailed(fmt.Errorf("%w: %v", domain.ErrUnknownPrintFailure, r))
		}
	}()

	// Начатая передача не отменяется
	ctx = context.WithoutCancel(ctx)

	var err error
	switch hw.Kind {
	case domain.HardwareBluetooth:
		dev, ok := hw.Device.(BluetoothDevice)
		if !ok {
			err = fmt.Errorf("%w: session is not a bluetooth device", domain.ErrUnknownHardwareType)
			break
		}
		err = d.sendBluetooth(ctx, dev, data)
	case domain.HardwareSerial:
		port, ok := hw.Device.(SerialPort)
		if !ok {
			err = fmt.Errorf("%w: session is not a serial port", domain.ErrUnknownHardwareType)
			break
		}
		err = d.sendSerial(port, data)
	default:
		err = domain.ErrUnknownHardwareType
	}

	if err != nil {
		d.logger.Warn("Hardware print failed", map[string]interface{}{
			"kind":  hw.Kind,
			"name":  hw.Name,
			"bytes": len(data),
			"error": err.Error(),
		})
		return domain.PrintFailed(err)
	}

	d.logger.Debug("Ticket sent to printer", map[string]interface{}{
		"kind":  hw.Kind,
		"name":  hw.Name,
		"bytes": len(data),
	})

	return domain.PrintOK()
}

// sendBluetooth: переподключение -> поиск канала записи -> запись пакетами
func (d *Dispatcher) sendBluetooth(ctx context.Context, dev BluetoothDevice, data []byte) error {
	// Одна попытка переподключения, без повторов
	if !dev.Connected() {
		if err := dev.Connect(ctx); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrReconnectFailed, err)
		}
	}

	ch, err := d.writeChannel(ctx, dev)
	if err != nil {
		return err
	}

	return d.writeChunks(ctx, ch, data)
}

// writeChannel ищет характеристику записи
// Сначала известный сервис принтера, затем перебор всех сервисов устройства.
func (d *Dispatcher) writeChannel(ctx context.Context, dev BluetoothDevice) (GATTCharacteristic, error) {
	svc, err := dev.PrimaryService(ctx, d.opts.ServiceUUID)
	if err == nil {
		ch, err := firstWritable(ctx, svc)
		if err == nil && ch != nil {
			return ch, nil
		}
	}

	d.logger.Debug("Printer service lookup failed, enumerating all services", map[string]interface{}{
		"device":  dev.Name(),
		"service": d.opts.ServiceUUID,
	})

	services, err := dev.PrimaryServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNoWriteChannel, err)
	}

	for _, s := range services {
		ch, err := firstWritable(ctx, s)
		if err != nil {
			continue
		}
		if ch != nil {
			return ch, nil
		}
	}

	return nil, domain.ErrNoWriteChannel
}

// writeChunks пишет буфер пакетами строго по порядку
// Сбой любого пакета прерывает отправку: следующий пакет не пишется.
func (d *Dispatcher) writeChunks(ctx context.Context, ch GATTCharacteristic, data []byte) error {
	size := d.opts.ChunkSize
	total := (len(data) + size - 1) / size

	for i := 0; i < total; i++ {
		if i > 0 && d.opts.ChunkDelay > 0 {
			d.sleep(d.opts.ChunkDelay)
		}

		start := i * size
		end := start + size
		if end > len(data) {
			end = len(data)
		}

		if err := ch.WriteValue(ctx, data[start:end]); err != nil {
			return fmt.Errorf("%w: chunk %d/%d: %v", domain.ErrChunkWriteFailed, i+1, total, err)
		}
	}

	return nil
}

// sendSerial открывает порт при необходимости и пишет буфер целиком
func (d *Dispatcher) sendSerial(port SerialPort, data []byte) error {
	if !port.IsOpen() {
		if err := port.Open(d.opts.BaudRate); err != nil {
			return fmt.Errorf("failed to open serial port %s: %w", port.Name(), err)
		}
	}

	w, err := port.AcquireWriter()
	if err != nil {
		return err
	}
	defer w.Release()

	n, err := w.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		if errors.Is(err, domain.ErrPortLocked) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrChunkWriteFailed, err)
	}

	return nil
}

// isNilSession ловит и nil-интерфейс, и интерфейс с nil-указателем внутри
func isNilSession(s domain.DeviceSession) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
