package printer

import (
	"context"
	"errors"
	"sync"

	"github.com/frontandrew/parkpos/internal/domain"
)

var errFake = errors.New("fake failure")

// fakeCharacteristic запоминает записанные пакеты
type fakeCharacteristic struct {
	uuid    string
	props   CharacteristicProperties
	chunks  [][]byte
	failAt  int // номер пакета (с 1), на котором запись падает; 0 - никогда
	panicOn bool
}

func (c *fakeCharacteristic) UUID() string                         { return c.uuid }
func (c *fakeCharacteristic) Properties() CharacteristicProperties { return c.props }

func (c *fakeCharacteristic) WriteValue(_ context.Context, data []byte) error {
	if c.panicOn {
		panic("gatt stack crashed")
	}
	if c.failAt > 0 && len(c.chunks)+1 == c.failAt {
		return errFake
	}
	c.chunks = append(c.chunks, append([]byte(nil), data...))
	return nil
}

type fakeService struct {
	uuid  string
	chars []GATTCharacteristic
	err   error
}

func (s *fakeService) UUID() string { return s.uuid }

func (s *fakeService) Characteristics(context.Context) ([]GATTCharacteristic, error) {
	return s.chars, s.err
}

// fakeBluetooth - BLE устройство в памяти
type fakeBluetooth struct {
	name       string
	connected  bool
	connectErr error
	services   []*fakeService
	servicesEr error

	connectCalls    int
	disconnectCalls int
	serviceCalls    int
	enumerateCalls  int
}

func (d *fakeBluetooth) Kind() domain.HardwareKind { return domain.HardwareBluetooth }
func (d *fakeBluetooth) Name() string              { return d.name }
func (d *fakeBluetooth) Address() string           { return "AA:BB:CC:DD:EE:FF" }
func (d *fakeBluetooth) Connected() bool           { return d.connected }

func (d *fakeBluetooth) Connect(context.Context) error {
	d.connectCalls++
	if d.connectErr != nil {
		return d.connectErr
	}
	d.connected = true
	return nil
}

func (d *fakeBluetooth) Disconnect() error {
	d.disconnectCalls++
	d.connected = false
	return nil
}

func (d *fakeBluetooth) PrimaryService(_ context.Context, uuid string) (GATTService, error) {
	d.serviceCalls++
	for _, s := range d.services {
		if s.uuid == uuid {
			return s, nil
		}
	}
	return nil, errors.New("service not found")
}

func (d *fakeBluetooth) PrimaryServices(context.Context) ([]GATTService, error) {
	d.enumerateCalls++
	if d.servicesEr != nil {
		return nil, d.servicesEr
	}
	out := make([]GATTService, 0, len(d.services))
	for _, s := range d.services {
		out = append(out, s)
	}
	return out, nil
}

// fakeSerial - последовательный порт в памяти
type fakeSerial struct {
	mu       sync.Mutex
	name     string
	open     bool
	openErr  error
	writeErr error
	baud     int
	written  []byte

	openCalls  int
	acquired   int
	released   int
	closeCalls int
}

func (p *fakeSerial) Kind() domain.HardwareKind { return domain.HardwareSerial }
func (p *fakeSerial) Name() string              { return p.name }
func (p *fakeSerial) IsOpen() bool              { return p.open }

func (p *fakeSerial) Open(baud int) error {
	p.openCalls++
	if p.openErr != nil {
		return p.openErr
	}
	p.open = true
	p.baud = baud
	return nil
}

func (p *fakeSerial) Close() error {
	p.closeCalls++
	p.open = false
	return nil
}

func (p *fakeSerial) AcquireWriter() (PortWriter, error) {
	if !p.mu.TryLock() {
		return nil, domain.ErrPortLocked
	}
	p.acquired++
	return &fakeWriter{port: p}, nil
}

type fakeWriter struct {
	port *fakeSerial
}

func (w *fakeWriter) Write(data []byte) (int, error) {
	if w.port.writeErr != nil {
		return 0, w.port.writeErr
	}
	w.port.written = append(w.port.written, data...)
	return len(data), nil
}

func (w *fakeWriter) Release() {
	w.port.released++
	w.port.mu.Unlock()
}

// printerDevice - типовой принтер с сервисом 18f0 и характеристикой записи
func printerDevice() (*fakeBluetooth, *fakeCharacteristic) {
	ch := &fakeCharacteristic{uuid: "2af1", props: CharacteristicProperties{WriteWithoutResponse: true}}
	notify := &fakeCharacteristic{uuid: "2af0"}
	dev := &fakeBluetooth{
		name:      "MPT-II",
		connected: true,
		services: []*fakeService{
			{uuid: PrinterServiceUUID, chars: []GATTCharacteristic{notify, ch}},
		},
	}
	return dev, ch
}

type fakeCentral struct {
	unavailable error
	device      BluetoothDevice
	err         error
	waitCtx     bool
}

func (c *fakeCentral) Available() error { return c.unavailable }

func (c *fakeCentral) RequestDevice(ctx context.Context, _ string) (BluetoothDevice, error) {
	if c.waitCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return c.device, c.err
}

type fakeProvider struct {
	port  *fakeSerial
	err   error
	ports []PortInfo
}

func (p *fakeProvider) Ports() ([]PortInfo, error) { return p.ports, p.err }

func (p *fakeProvider) RequestPort(context.Context, string) (SerialPort, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.port == nil {
		return nil, nil
	}
	return p.port, nil
}
