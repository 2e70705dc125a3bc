package bluetooth

import (
	"context"
	"fmt"
	"sync"

	ble "tinygo.org/x/bluetooth"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/infrastructure/printer"
)

// Device - сессия BLE принтера
// Состояние соединения ведется здесь: при любой ошибке GATT сессия считается разорванной,
// и следующая печать переподключится.
type Device struct {
	central *Central
	address ble.Address
	name    string

	mu         sync.Mutex
	connected  bool
	discover   func(uuids []ble.UUID) ([]ble.DeviceService, error)
	disconnect func() error
}

func (d *Device) Kind() domain.HardwareKind { return domain.HardwareBluetooth }
func (d *Device) Name() string              { return d.name }
func (d *Device) Address() string           { return d.address.String() }

func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Connect устанавливает GATT соединение
func (d *Device) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := d.central.adapter.Connect(d.address, ble.ConnectionParams{})
	if err != nil {
		return classifyConnect(err)
	}

	d.mu.Lock()
	d.discover = conn.DiscoverServices
	d.disconnect = conn.Disconnect
	d.connected = true
	d.mu.Unlock()

	return nil
}

// Disconnect закрывает соединение
func (d *Device) Disconnect() error {
	d.mu.Lock()
	disconnect := d.disconnect
	d.connected = false
	d.discover = nil
	d.disconnect = nil
	d.mu.Unlock()

	if disconnect == nil {
		return nil
	}
	return disconnect()
}

// PrimaryService ищет сервис по UUID
func (d *Device) PrimaryService(_ context.Context, uuid string) (printer.GATTService, error) {
	u, err := ble.ParseUUID(uuid)
	if err != nil {
		return nil, fmt.Errorf("invalid service uuid %q: %w", uuid, err)
	}

	services, err := d.services([]ble.UUID{u})
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("service %s not found", uuid)
	}
	return services[0], nil
}

// PrimaryServices перечисляет все сервисы устройства
func (d *Device) PrimaryServices(_ context.Context) ([]printer.GATTService, error) {
	return d.services(nil)
}

func (d *Device) services(filter []ble.UUID) ([]printer.GATTService, error) {
	d.mu.Lock()
	discover := d.discover
	d.mu.Unlock()

	if discover == nil {
		return nil, domain.ErrPrinterNotConnected
	}

	found, err := discover(filter)
	if err != nil {
		d.markDisconnected()
		return nil, fmt.Errorf("failed to discover services: %w", err)
	}

	out := make([]printer.GATTService, 0, len(found))
	for i := range found {
		out = append(out, &service{device: d, svc: &found[i]})
	}
	return out, nil
}

func (d *Device) markDisconnected() {
	d.mu.Lock()
	d.connected = false
	d.mu.Unlock()
}

// service - обертка над сервисом GATT
type service struct {
	device *Device
	svc    *ble.DeviceService
}

func (s *service) UUID() string { return s.svc.UUID().String() }

func (s *service) Characteristics(_ context.Context) ([]printer.GATTCharacteristic, error) {
	chars, err := s.svc.DiscoverCharacteristics(nil)
	if err != nil {
		s.device.markDisconnected()
		return nil, fmt.Errorf("failed to discover characteristics: %w", err)
	}

	out := make([]printer.GATTCharacteristic, 0, len(chars))
	for i := range chars {
		ch := &chars[i]
		out = append(out, &characteristic{
			device:   s.device,
			ch:       ch,
			writable: s.device.central.isWritable(ch.UUID()),
		})
	}
	return out, nil
}

// characteristic - обертка над характеристикой GATT
type characteristic struct {
	device   *Device
	ch       *ble.DeviceCharacteristic
	writable bool
}

func (c *characteristic) UUID() string { return c.ch.UUID().String() }

func (c *characteristic) Properties() printer.CharacteristicProperties {
	return printer.CharacteristicProperties{WriteWithoutResponse: c.writable}
}

// WriteValue пишет один пакет
func (c *characteristic) WriteValue(_ context.Context, data []byte) error {
	if _, err := c.ch.WriteWithoutResponse(data); err != nil {
		c.device.markDisconnected()
		return err
	}
	return nil
}
