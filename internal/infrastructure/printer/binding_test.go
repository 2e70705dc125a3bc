package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/frontandrew/parkpos/internal/domain"
)

func TestBinding(t *testing.T) {
	b := NewBinding()
	assert.Equal(t, domain.HardwareSystem, b.Current().Kind)

	first, _ := printerDevice()
	b.Bind(&domain.HardwareHandle{Kind: domain.HardwareBluetooth, Name: "MPT-II", Connected: true, Device: first})
	assert.Same(t, first, b.Current().Device)

	// Сохраненная привязка не затирает живую сессию
	b.Restore(&domain.HardwareHandle{Kind: domain.HardwareSerial, Name: "USB Printer", Connected: true})
	assert.Same(t, first, b.Current().Device)

	port := &fakeSerial{name: "/dev/ttyUSB0", open: true}
	b.Bind(&domain.HardwareHandle{Kind: domain.HardwareSerial, Device: port})
	assert.Equal(t, 1, first.disconnectCalls, "прежняя BLE сессия закрыта")

	b.Clear()
	assert.Equal(t, 1, port.closeCalls, "порт закрыт при отвязке")
	assert.Equal(t, domain.HardwareSystem, b.Current().Kind)
	assert.Nil(t, b.Current().Device)
}

func TestBinding_Restore(t *testing.T) {
	tests := []struct {
		name         string
		stored       *domain.HardwareHandle
		expectedKind domain.HardwareKind
		connected    bool
	}{
		{name: "нет сохраненного принтера", stored: nil, expectedKind: domain.HardwareSystem, connected: true},
		{name: "системный принтер", stored: domain.SystemHardware(), expectedKind: domain.HardwareSystem, connected: true},
		{
			name:         "bluetooth после перезапуска не подключен",
			stored:       &domain.HardwareHandle{Kind: domain.HardwareBluetooth, Name: "MPT-II", Connected: true},
			expectedKind: domain.HardwareBluetooth,
			connected:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBinding()
			b.Restore(tt.stored)

			current := b.Current()
			assert.Equal(t, tt.expectedKind, current.Kind)
			assert.Equal(t, tt.connected, current.Connected)
			assert.Nil(t, current.Device)
		})
	}
}
