// Package serialport - адаптер последовательных/USB принтеров на go.bug.st/serial
package serialport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/infrastructure/printer"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
)

// Provider - последовательные порты хоста
type Provider struct {
	logger logger.Logger
}

// NewProvider создает провайдер портов
func NewProvider(log logger.Logger) *Provider {
	return &Provider{logger: log}
}

// Ports перечисляет порты с USB атрибутами
func (p *Provider) Ports() ([]printer.PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSerialUnavailable, err)
	}

	ports := make([]printer.PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, printer.PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return ports, nil
}

// RequestPort выбирает порт по имени; без имени берется первый USB порт
func (p *Provider) RequestPort(ctx context.Context, name string) (printer.SerialPort, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ports, err := p.Ports()
	if err != nil {
		return nil, err
	}

	for _, info := range ports {
		if (name == "" && info.IsUSB) || info.Name == name {
			p.logger.Debug("Serial port selected", map[string]interface{}{
				"port": info.Name,
				"vid":  info.VID,
				"pid":  info.PID,
			})
			return NewPort(info.Name), nil
		}
	}

	if name == "" {
		return nil, fmt.Errorf("%w: no USB serial ports found", domain.ErrSelectionCancelled)
	}
	return nil, fmt.Errorf("%w: port %s not found", domain.ErrSelectionCancelled, name)
}

// Port - сессия последовательного порта
type Port struct {
	name string

	mu   sync.Mutex
	port serial.Port

	writeMu sync.Mutex
}

// NewPort создает закрытую сессию порта
func NewPort(name string) *Port {
	return &Port{name: name}
}

func (p *Port) Kind() domain.HardwareKind { return domain.HardwareSerial }
func (p *Port) Name() string              { return p.name }

func (p *Port) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port != nil
}

// Open открывает порт 8N1 на заданной скорости
func (p *Port) Open(baudRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port != nil {
		return nil
	}

	port, err := serial.Open(p.name, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return classify(err)
	}

	p.port = port
	return nil
}

// Close закрывает порт
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}

// AcquireWriter выдает эксклюзивный писатель; второй писатель получает ErrPortLocked
func (p *Port) AcquireWriter() (printer.PortWriter, error) {
	if !p.writeMu.TryLock() {
		return nil, domain.ErrPortLocked
	}

	p.mu.Lock()
	port := p.port
	p.mu.Unlock()

	if port == nil {
		p.writeMu.Unlock()
		return nil, domain.ErrPrinterNotConnected
	}

	return &writer{owner: p, port: port}, nil
}

// writer - писатель, удерживающий порт до Release
type writer struct {
	owner    *Port
	port     serial.Port
	released bool
}

// Write пишет буфер целиком и дожидается отправки
// Ошибка записи закрывает порт: следующая печать откроет его заново.
func (w *writer) Write(data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := w.port.Write(data[written:])
		written += n
		if err != nil {
			_ = w.owner.Close()
			return written, err
		}
		if n == 0 {
			_ = w.owner.Close()
			return written, errors.New("serial port accepted no data")
		}
	}

	if err := w.port.Drain(); err != nil {
		return written, err
	}
	return written, nil
}

// Release освобождает писатель; повторный вызов ничего не делает
func (w *writer) Release() {
	if w.released {
		return
	}
	w.released = true
	w.owner.writeMu.Unlock()
}

// classify переводит ошибки go.bug.st/serial в доменные
func classify(err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return err
	}

	switch portErr.Code() {
	case serial.PermissionDenied:
		return fmt.Errorf("%w: %v", domain.ErrPermissionBlocked, err)
	case serial.PortNotFound:
		return fmt.Errorf("%w: %v", domain.ErrSerialUnavailable, err)
	default:
		return err
	}
}
