// Package bluetooth - BLE адаптер принтеров на tinygo.org/x/bluetooth
package bluetooth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ble "tinygo.org/x/bluetooth"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/infrastructure/printer"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
)

// DefaultWriteUUIDs - характеристики записи распространенных термопринтеров
// Стек BLE хоста не отдает флаги характеристик переносимо, поэтому право записи
// определяется по известным UUID.
var DefaultWriteUUIDs = []string{
	"00002af1-0000-1000-8000-00805f9b34fb", // Сервис 18f0
	"49535343-8841-43f4-a8d4-ecbe34729bb3", // ISSC / Microchip transparent UART
	"0000ff02-0000-1000-8000-00805f9b34fb", // Китайские принтеры на ff00
	"0000fff2-0000-1000-8000-00805f9b34fb",
}

// Central - BLE адаптер хоста
type Central struct {
	adapter  *ble.Adapter
	writable map[string]bool
	logger   logger.Logger

	enableOnce sync.Once
	enableErr  error
	scanMu     sync.Mutex

	devMu   sync.Mutex
	devices map[string]*Device // По адресу: для обработчика разрыва соединения
}

// NewCentral создает адаптер поверх системного BLE стека
func NewCentral(writeUUIDs []string, log logger.Logger) *Central {
	if len(writeUUIDs) == 0 {
		writeUUIDs = DefaultWriteUUIDs
	}

	writable := make(map[string]bool, len(writeUUIDs))
	for _, u := range writeUUIDs {
		writable[strings.ToLower(strings.TrimSpace(u))] = true
	}

	c := &Central{
		adapter:  ble.DefaultAdapter,
		writable: writable,
		logger:   log,
		devices:  make(map[string]*Device),
	}
	c.adapter.SetConnectHandler(func(device ble.Device, connected bool) {
		c.linkChanged(device.Address.String(), connected)
	})
	return c
}

// Available включает адаптер (один раз) и сообщает, есть ли Bluetooth
func (c *Central) Available() error {
	c.enableOnce.Do(func() {
		c.enableErr = c.adapter.Enable()
	})
	if c.enableErr != nil {
		return classify(c.enableErr)
	}
	return nil
}

// RequestDevice сканирует эфир и возвращает первое устройство с сервисом serviceUUID
// Сканирование останавливается при находке или по завершении ctx.
func (c *Central) RequestDevice(ctx context.Context, serviceUUID string) (printer.BluetoothDevice, error) {
	uuid, err := ble.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid service uuid %q: %w", serviceUUID, err)
	}

	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	found := make(chan ble.ScanResult, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.adapter.Scan(func(a *ble.Adapter, result ble.ScanResult) {
			if !result.HasServiceUUID(uuid) {
				return
			}
			select {
			case found <- result:
				_ = a.StopScan()
			default:
			}
		})
	}()

	select {
	case result := <-found:
		<-done
		c.logger.Debug("BLE printer advertised", map[string]interface{}{
			"address": result.Address.String(),
			"name":    result.LocalName(),
			"rssi":    result.RSSI,
		})
		return c.track(&Device{
			central: c,
			address: result.Address,
			name:    result.LocalName(),
		}), nil
	case err := <-done:
		if err != nil {
			return nil, classify(err)
		}
		return nil, domain.ErrSelectionCancelled
	case <-ctx.Done():
		_ = c.adapter.StopScan()
		<-done
		return nil, ctx.Err()
	}
}

// track запоминает устройство; повторная находка того же адреса заменяет старую сессию
func (c *Central) track(d *Device) *Device {
	c.devMu.Lock()
	c.devices[d.Address()] = d
	c.devMu.Unlock()
	return d
}

// linkChanged - уведомление стека о смене состояния соединения
// Разрыв сразу снимает флаг connected, и следующая печать переподключится.
func (c *Central) linkChanged(address string, connected bool) {
	if connected {
		return
	}

	c.devMu.Lock()
	d := c.devices[address]
	c.devMu.Unlock()
	if d == nil {
		return
	}

	d.markDisconnected()
	c.logger.Debug("BLE printer link dropped", map[string]interface{}{
		"address": address,
		"name":    d.name,
	})
}

// isWritable проверяет UUID характеристики по списку известных каналов записи
func (c *Central) isWritable(u ble.UUID) bool {
	return c.writable[strings.ToLower(u.String())]
}

// classify переводит ошибки BlueZ/D-Bus в доменные
func classify(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "AccessDenied"), strings.Contains(msg, "NotPermitted"), strings.Contains(msg, "permission"):
		return fmt.Errorf("%w: %v", domain.ErrPermissionBlocked, err)
	case strings.Contains(msg, "NotReady"), strings.Contains(msg, "no such"), strings.Contains(msg, "not found"):
		return fmt.Errorf("%w: %v", domain.ErrBluetoothUnavailable, err)
	default:
		return err
	}
}

// classifyConnect - как classify, но отказ в GATT означает, что устройство не BLE принтер
func classifyConnect(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "NotSupported") || strings.Contains(strings.ToLower(msg), "not supported") {
		return fmt.Errorf("%w: %v", domain.ErrNoGATT, err)
	}
	return classify(err)
}
