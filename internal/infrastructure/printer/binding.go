package printer

import (
	"sync"

	"github.com/frontandrew/parkpos/internal/domain"
)

// Binding - принтер, привязанный к текущей сессии приложения
// Сессия устройства живет только в памяти: после перезапуска принтер нужно привязать заново.
type Binding struct {
	mu     sync.RWMutex
	handle *domain.HardwareHandle
}

// NewBinding создает привязку с системным принтером
func NewBinding() *Binding {
	return &Binding{handle: domain.SystemHardware()}
}

// Current возвращает текущий принтер
func (b *Binding) Current() *domain.HardwareHandle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handle
}

// Bind привязывает принтер, найденный сканером
// Сессия прежнего принтера закрывается, если это другое устройство.
func (b *Binding) Bind(h *domain.HardwareHandle) {
	if h == nil {
		h = domain.SystemHardware()
	}

	b.mu.Lock()
	prev := b.handle
	b.handle = h
	b.mu.Unlock()

	if prev != nil && prev.Device != nil && prev.Device != h.Device {
		release(prev.Device)
	}
}

// Restore подставляет сохраненный принтер без сессии устройства
// Connected сбрасывается: до повторного сканирования печать идет через систему.
func (b *Binding) Restore(h *domain.HardwareHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handle != nil && b.handle.Device != nil {
		return
	}
	if h == nil || h.Kind == domain.HardwareSystem {
		b.handle = domain.SystemHardware()
		return
	}
	b.handle = h.Detached()
}

// Clear отвязывает принтер и возвращает системную печать
func (b *Binding) Clear() {
	b.Bind(nil)
}

// release закрывает сессию устройства
func release(dev domain.DeviceSession) {
	switch d := dev.(type) {
	case BluetoothDevice:
		_ = d.Disconnect()
	case SerialPort:
		_ = d.Close()
	}
}
