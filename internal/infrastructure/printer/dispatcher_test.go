package printer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
)

func newTestDispatcher(sleeps *[]time.Duration) *Dispatcher {
	return NewDispatcher(DefaultOptions(), logger.NewNoop(), WithSleep(func(d time.Duration) {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
	}))
}

func payload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func bluetoothHandle(dev BluetoothDevice) *domain.HardwareHandle {
	return &domain.HardwareHandle{Kind: domain.HardwareBluetooth, Name: "MPT-II", Connected: true, Device: dev}
}

func TestDispatcher_Send_NoDevice(t *testing.T) {
	d := newTestDispatcher(nil)

	tests := []struct {
		name string
		hw   *domain.HardwareHandle
	}{
		{name: "нет привязки", hw: nil},
		{name: "bluetooth без сессии", hw: &domain.HardwareHandle{Kind: domain.HardwareBluetooth, Connected: true}},
		{name: "serial без сессии", hw: &domain.HardwareHandle{Kind: domain.HardwareSerial}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.Send(context.Background(), payload(10), tt.hw)

			assert.False(t, result.Success)
			assert.Equal(t, domain.ErrPrinterNotConnected.Error(), result.Error)
		})
	}
}

func TestDispatcher_Send_TypedNilSession(t *testing.T) {
	d := newTestDispatcher(nil)

	var dev *fakeBluetooth
	var port *fakeSerial

	tests := []struct {
		name string
		hw   *domain.HardwareHandle
	}{
		{name: "nil-указатель bluetooth", hw: &domain.HardwareHandle{Kind: domain.HardwareBluetooth, Connected: true, Device: dev}},
		{name: "nil-указатель serial", hw: &domain.HardwareHandle{Kind: domain.HardwareSerial, Connected: true, Device: port}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.Send(context.Background(), payload(10), tt.hw)

			assert.False(t, result.Success)
			assert.Equal(t, domain.ErrPrinterNotConnected.Error(), result.Error)
		})
	}
}

func TestDispatcher_Send_OneAtATime(t *testing.T) {
	// Пауза между пакетами отдает управление второму заданию
	d := NewDispatcher(DefaultOptions(), logger.NewNoop(), WithSleep(func(time.Duration) {
		time.Sleep(time.Millisecond)
	}))
	dev, ch := printerDevice()
	hw := bluetoothHandle(dev)

	first := bytes.Repeat([]byte{0xAA}, 450)
	second := bytes.Repeat([]byte{0xBB}, 450)

	var wg sync.WaitGroup
	results := make([]domain.PrintResult, 2)
	for i, data := range [][]byte{first, second} {
		wg.Add(1)
		go func(i int, data []byte) {
			defer wg.Done()
			results[i] = d.Send(context.Background(), data, hw)
		}(i, data)
	}
	wg.Wait()

	require.True(t, results[0].Success, results[0].Error)
	require.True(t, results[1].Success, results[1].Error)
	require.Len(t, ch.chunks, 10)

	// Пакеты одного задания идут подряд: смена задания ровно одна
	switches := 0
	for i := 1; i < len(ch.chunks); i++ {
		if ch.chunks[i][0] != ch.chunks[i-1][0] {
			switches++
		}
	}
	assert.Equal(t, 1, switches)
}

func TestDispatcher_Send_Chunking(t *testing.T) {
	tests := []struct {
		name           string
		size           int
		expectedChunks int
	}{
		{name: "пустой буфер", size: 0, expectedChunks: 0},
		{name: "меньше пакета", size: 37, expectedChunks: 1},
		{name: "ровно пакет", size: 100, expectedChunks: 1},
		{name: "пакет и байт", size: 101, expectedChunks: 2},
		{name: "типовой билет", size: 433, expectedChunks: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sleeps []time.Duration
			d := newTestDispatcher(&sleeps)
			dev, ch := printerDevice()
			data := payload(tt.size)

			result := d.Send(context.Background(), data, bluetoothHandle(dev))

			require.True(t, result.Success, result.Error)
			require.Len(t, ch.chunks, tt.expectedChunks)
			for _, c := range ch.chunks {
				assert.LessOrEqual(t, len(c), DefaultChunkSize)
			}
			assert.Equal(t, data, bytes.Join(ch.chunks, nil), "пакеты пишутся по порядку")

			if tt.expectedChunks > 1 {
				assert.Len(t, sleeps, tt.expectedChunks-1)
				assert.Equal(t, DefaultChunkDelay, sleeps[0])
			} else {
				assert.Empty(t, sleeps)
			}
		})
	}
}

func TestDispatcher_Send_ChunkFailureAborts(t *testing.T) {
	d := newTestDispatcher(nil)
	dev, ch := printerDevice()
	ch.failAt = 3

	result := d.Send(context.Background(), payload(450), bluetoothHandle(dev))

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, domain.ErrChunkWriteFailed.Error())
	assert.Contains(t, result.Error, "chunk 3/5")
	assert.Len(t, ch.chunks, 2, "после сбоя пакета 3 следующие не пишутся")
}

func TestDispatcher_Send_Reconnect(t *testing.T) {
	t.Run("переподключение при разрыве", func(t *testing.T) {
		d := newTestDispatcher(nil)
		dev, ch := printerDevice()
		dev.connected = false

		result := d.Send(context.Background(), payload(120), bluetoothHandle(dev))

		assert.True(t, result.Success)
		assert.Equal(t, 1, dev.connectCalls)
		assert.Len(t, ch.chunks, 2)
		assert.True(t, dev.Connected(), "соединение остается открытым после печати")
	})

	t.Run("сбой переподключения окончателен", func(t *testing.T) {
		d := newTestDispatcher(nil)
		dev, ch := printerDevice()
		dev.connected = false
		dev.connectErr = errors.New("gatt connect timeout")

		result := d.Send(context.Background(), payload(120), bluetoothHandle(dev))

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, domain.ErrReconnectFailed.Error())
		assert.Equal(t, 1, dev.connectCalls, "без повторных попыток")
		assert.Zero(t, dev.serviceCalls)
		assert.Empty(t, ch.chunks)
	})

	t.Run("подключенное устройство не переподключается", func(t *testing.T) {
		d := newTestDispatcher(nil)
		dev, _ := printerDevice()

		result := d.Send(context.Background(), payload(10), bluetoothHandle(dev))

		assert.True(t, result.Success)
		assert.Zero(t, dev.connectCalls)
	})
}

func TestDispatcher_Send_WriteChannelDiscovery(t *testing.T) {
	t.Run("быстрый путь через сервис принтера", func(t *testing.T) {
		d := newTestDispatcher(nil)
		dev, _ := printerDevice()

		result := d.Send(context.Background(), payload(10), bluetoothHandle(dev))

		assert.True(t, result.Success)
		assert.Zero(t, dev.enumerateCalls)
	})

	t.Run("перебор всех сервисов, если сервиса принтера нет", func(t *testing.T) {
		d := newTestDispatcher(nil)
		vendor := &fakeCharacteristic{uuid: "49535343-8841-43f4-a8d4-ecbe34729bb3", props: CharacteristicProperties{Write: true}}
		dev := &fakeBluetooth{
			name:      "Generic",
			connected: true,
			services: []*fakeService{
				{uuid: "0000180a-0000-1000-8000-00805f9b34fb", chars: []GATTCharacteristic{&fakeCharacteristic{uuid: "2a29"}}},
				{uuid: "broken", err: errors.New("gatt error")},
				{uuid: "49535343-fe7d-4ae5-8fa9-9fafd205e455", chars: []GATTCharacteristic{vendor}},
			},
		}

		result := d.Send(context.Background(), payload(150), bluetoothHandle(dev))

		assert.True(t, result.Success, result.Error)
		assert.Equal(t, 1, dev.enumerateCalls)
		assert.Len(t, vendor.chunks, 2)
	})

	t.Run("сервис принтера без записи - тоже перебор", func(t *testing.T) {
		d := newTestDispatcher(nil)
		writer := &fakeCharacteristic{uuid: "ff02", props: CharacteristicProperties{Write: true}}
		dev := &fakeBluetooth{
			connected: true,
			services: []*fakeService{
				{uuid: PrinterServiceUUID, chars: []GATTCharacteristic{&fakeCharacteristic{uuid: "2af0"}}},
				{uuid: "ff00", chars: []GATTCharacteristic{writer}},
			},
		}

		result := d.Send(context.Background(), payload(10), bluetoothHandle(dev))

		assert.True(t, result.Success)
		assert.Len(t, writer.chunks, 1)
	})

	t.Run("нет канала записи", func(t *testing.T) {
		d := newTestDispatcher(nil)
		dev := &fakeBluetooth{
			connected: true,
			services: []*fakeService{
				{uuid: "0000180f-0000-1000-8000-00805f9b34fb", chars: []GATTCharacteristic{&fakeCharacteristic{uuid: "2a19"}}},
			},
		}

		result := d.Send(context.Background(), payload(10), bluetoothHandle(dev))

		assert.False(t, result.Success)
		assert.Equal(t, domain.ErrNoWriteChannel.Error(), result.Error)
	})

	t.Run("ошибка перечисления сервисов", func(t *testing.T) {
		d := newTestDispatcher(nil)
		dev := &fakeBluetooth{connected: true, servicesEr: errors.New("disconnected")}

		result := d.Send(context.Background(), payload(10), bluetoothHandle(dev))

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, domain.ErrNoWriteChannel.Error())
	})
}

func TestDispatcher_Send_Serial(t *testing.T) {
	serialHandle := func(p *fakeSerial) *domain.HardwareHandle {
		return &domain.HardwareHandle{Kind: domain.HardwareSerial, Name: "USB Printer", Connected: true, Device: p}
	}

	t.Run("открывает закрытый порт", func(t *testing.T) {
		d := newTestDispatcher(nil)
		port := &fakeSerial{name: "/dev/ttyUSB0"}
		data := payload(512)

		result := d.Send(context.Background(), data, serialHandle(port))

		assert.True(t, result.Success)
		assert.Equal(t, 1, port.openCalls)
		assert.Equal(t, DefaultBaudRate, port.baud)
		assert.Equal(t, data, port.written, "буфер пишется целиком, без пакетов")
		assert.Equal(t, 1, port.acquired)
		assert.Equal(t, 1, port.released)
	})

	t.Run("переиспользует открытый порт", func(t *testing.T) {
		d := newTestDispatcher(nil)
		port := &fakeSerial{name: "/dev/ttyUSB0", open: true}

		result := d.Send(context.Background(), payload(10), serialHandle(port))

		assert.True(t, result.Success)
		assert.Zero(t, port.openCalls)
	})

	t.Run("писатель освобождается при ошибке записи", func(t *testing.T) {
		d := newTestDispatcher(nil)
		port := &fakeSerial{name: "/dev/ttyUSB0", open: true, writeErr: errors.New("device unplugged")}

		result := d.Send(context.Background(), payload(10), serialHandle(port))

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, domain.ErrChunkWriteFailed.Error())
		assert.Equal(t, 1, port.released)

		// Порт снова доступен для записи
		port.writeErr = nil
		assert.True(t, d.Send(context.Background(), payload(10), serialHandle(port)).Success)
	})

	t.Run("ошибка открытия порта", func(t *testing.T) {
		d := newTestDispatcher(nil)
		port := &fakeSerial{name: "/dev/ttyUSB0", openErr: errors.New("busy")}

		result := d.Send(context.Background(), payload(10), serialHandle(port))

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "/dev/ttyUSB0")
		assert.Zero(t, port.acquired)
	})
}

func TestDispatcher_Send_UnknownKind(t *testing.T) {
	d := newTestDispatcher(nil)
	dev, _ := printerDevice()

	tests := []struct {
		name string
		hw   *domain.HardwareHandle
	}{
		{name: "системный принтер", hw: &domain.HardwareHandle{Kind: domain.HardwareSystem, Device: dev}},
		{name: "неизвестный тип", hw: &domain.HardwareHandle{Kind: "wifi", Device: dev}},
		{name: "сессия не совпадает с типом", hw: &domain.HardwareHandle{Kind: domain.HardwareSerial, Device: dev}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.Send(context.Background(), payload(10), tt.hw)

			assert.False(t, result.Success)
			assert.Contains(t, result.Error, domain.ErrUnknownHardwareType.Error())
		})
	}
}

func TestDispatcher_Send_RecoversPanic(t *testing.T) {
	d := newTestDispatcher(nil)
	dev, ch := printerDevice()
	ch.panicOn = true

	var result domain.PrintResult
	assert.NotPanics(t, func() {
		result = d.Send(context.Background(), payload(10), bluetoothHandle(dev))
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "gatt stack crashed")
}

func TestDispatcher_Send_IgnoresCancellation(t *testing.T) {
	d := newTestDispatcher(nil)
	dev, ch := printerDevice()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := d.Send(ctx, payload(250), bluetoothHandle(dev))

	assert.True(t, result.Success)
	assert.Len(t, ch.chunks, 3)
}

func TestOptions_Normalize(t *testing.T) {
	opts := Options{ChunkSize: -1, BaudRate: 0, ChunkDelay: -time.Second}.normalize()

	assert.Equal(t, DefaultOptions(), opts)

	custom := Options{ChunkSize: 20, ChunkDelay: 0, BaudRate: 19200, ServiceUUID: "ff00", ScanTimeout: time.Second}.normalize()
	assert.Equal(t, 20, custom.ChunkSize)
	assert.Equal(t, time.Duration(0), custom.ChunkDelay)
	assert.Equal(t, 19200, custom.BaudRate)
}
