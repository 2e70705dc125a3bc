package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/infrastructure/printer"
	"github.com/frontandrew/parkpos/internal/usecase/auth"
	"github.com/frontandrew/parkpos/internal/usecase/cloudsync"
	"github.com/frontandrew/parkpos/internal/usecase/parking"
	"github.com/frontandrew/parkpos/internal/usecase/ticket"
)

// MockParkingService - мок для parking service
type MockParkingService struct {
	mock.Mock
}

func (m *MockParkingService) RegisterEntry(ctx context.Context, req *parking.EntryRequest) (*parking.EntryResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*parking.EntryResult), args.Error(1)
}

func (m *MockParkingService) RegisterExit(ctx context.Context, recordID string) (*parking.ExitResult, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*parking.ExitResult), args.Error(1)
}

func (m *MockParkingService) Save(ctx context.Context, record *domain.ParkingRecord) (*domain.ParkingRecord, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParkingRecord), args.Error(1)
}

func (m *MockParkingService) Delete(ctx context.Context, recordID string) error {
	args := m.Called(ctx, recordID)
	return args.Error(0)
}

func (m *MockParkingService) Get(ctx context.Context, recordID string) (*domain.ParkingRecord, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParkingRecord), args.Error(1)
}

func (m *MockParkingService) List(ctx context.Context) ([]*domain.ParkingRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ParkingRecord), args.Error(1)
}

func (m *MockParkingService) ListActive(ctx context.Context) ([]*parking.ActiveVehicle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*parking.ActiveVehicle), args.Error(1)
}

func (m *MockParkingService) Summary(ctx context.Context) (*parking.Summary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*parking.Summary), args.Error(1)
}

func (m *MockParkingService) Export(ctx context.Context, w io.Writer) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockParkingService) Import(ctx context.Context, r io.Reader) (*parking.ImportResult, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*parking.ImportResult), args.Error(1)
}

// MockTicketService - мок для ticket service
type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) Preview(ctx context.Context, recordID string) (*ticket.Preview, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Preview), args.Error(1)
}

func (m *MockTicketService) Print(ctx context.Context, recordID string) (*ticket.Outcome, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Outcome), args.Error(1)
}

func (m *MockTicketService) History(ctx context.Context) ([]*domain.PrintHistoryItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PrintHistoryItem), args.Error(1)
}

func (m *MockTicketService) Reprint(ctx context.Context, historyID string) (*ticket.Outcome, error) {
	args := m.Called(ctx, historyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Outcome), args.Error(1)
}

// MockSettingsService - мок для settings service
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get(ctx context.Context) (*domain.AppSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AppSettings), args.Error(1)
}

func (m *MockSettingsService) Update(ctx context.Context, settings *domain.AppSettings) (*domain.AppSettings, error) {
	args := m.Called(ctx, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AppSettings), args.Error(1)
}

func (m *MockSettingsService) Currencies() []domain.CurrencyOption {
	return domain.CurrencyOptions
}

// MockPrinterService - мок для printing service
type MockPrinterService struct {
	mock.Mock
}

func (m *MockPrinterService) Current() *domain.HardwareHandle {
	args := m.Called()
	return args.Get(0).(*domain.HardwareHandle)
}

func (m *MockPrinterService) ScanBluetooth(ctx context.Context) (*domain.HardwareHandle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HardwareHandle), args.Error(1)
}

func (m *MockPrinterService) ScanSerial(ctx context.Context, portName string) (*domain.HardwareHandle, error) {
	args := m.Called(ctx, portName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HardwareHandle), args.Error(1)
}

func (m *MockPrinterService) Ports() ([]printer.PortInfo, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]printer.PortInfo), args.Error(1)
}

func (m *MockPrinterService) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPrinterService) TestPrint(ctx context.Context) domain.PrintResult {
	args := m.Called(ctx)
	return args.Get(0).(domain.PrintResult)
}

// MockSyncService - мок для cloudsync service
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) Push(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSyncService) Pull(ctx context.Context) (*cloudsync.PullResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudsync.PullResult), args.Error(1)
}

func (m *MockSyncService) Status() cloudsync.Status {
	args := m.Called()
	return args.Get(0).(cloudsync.Status)
}

// MockAuthService - мок для auth service
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.LoginResponse), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, req *auth.RefreshRequest) (*auth.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.LoginResponse), args.Error(1)
}

// newJSONRequest создает запрос с JSON телом; строка передается как есть
func newJSONRequest(method, target string, body interface{}) *http.Request {
	var raw []byte
	switch v := body.(type) {
	case nil:
	case string:
		raw = []byte(v)
	default:
		raw, _ = json.Marshal(v)
	}

	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withURLParam добавляет параметр chi маршрута
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// decodeResponse разбирает JSON ответ
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}
