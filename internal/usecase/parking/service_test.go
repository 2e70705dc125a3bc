package parking

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
	"github.com/frontandrew/parkpos/internal/repository/mocks"
	"github.com/frontandrew/parkpos/internal/usecase/ticket"
)

type MockTicketPrinter struct {
	mock.Mock
}

func (m *MockTicketPrinter) PrintRecord(ctx context.Context, record *domain.ParkingRecord) (*ticket.Outcome, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Outcome), args.Error(1)
}

// countingSync считает запросы на выгрузку в облако
type countingSync struct {
	pushes int
}

func (c *countingSync) TriggerPush() { c.pushes++ }

var fixedNow = time.Date(2024, 5, 10, 10, 5, 0, 0, time.UTC)

type fixture struct {
	records  *mocks.RecordRepository
	tariffs  *mocks.TariffRepository
	settings *mocks.SettingsRepository
	printer  *MockTicketPrinter
	sync     *countingSync
	events   *mocks.Publisher
}

func newFixture() *fixture {
	return &fixture{
		records:  new(mocks.RecordRepository),
		tariffs:  new(mocks.TariffRepository),
		settings: new(mocks.SettingsRepository),
		printer:  new(MockTicketPrinter),
		sync:     &countingSync{},
		events:   new(mocks.Publisher),
	}
}

func (f *fixture) service() *Service {
	svc := NewService(f.records, f.tariffs, f.settings, f.printer, f.sync, f.events, logger.NewNoop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func systemOutcome() *ticket.Outcome {
	return &ticket.Outcome{Method: domain.HardwareSystem, Result: domain.PrintOK(), Text: "ticket"}
}

func TestService_RegisterEntry(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		req       *EntryRequest
		mockSetup func(*fixture)
		wantErr   error
		wantPrint bool
	}{
		{
			name: "успешный въезд, номер в верхнем регистре",
			req:  &EntryRequest{VehicleType: "Sedán", Plate: " abc123 ", Vehicle: "Mazda 3"},
			mockSetup: func(f *fixture) {
				f.records.On("GetActiveByPlate", ctx, "ABC123").Return(nil, domain.ErrRecordNotFound)
				f.records.On("Create", ctx, mock.MatchedBy(func(r *domain.ParkingRecord) bool {
					return r.Plate == "ABC123" && r.IsActive() && r.ExitAt == domain.NoExit &&
						r.Total == 0 && r.EntryAt == "2024-05-10T10:05:00.000Z" && r.ID != ""
				})).Return(nil)
				f.settings.On("GetPrintSettings", ctx).Return(&domain.PrintSettings{AutoPrintEntry: false}, nil)
			},
		},
		{
			name: "автопечать билета въезда",
			req:  &EntryRequest{VehicleType: "Moto", Plate: "XYZ12A"},
			mockSetup: func(f *fixture) {
				f.records.On("GetActiveByPlate", ctx, "XYZ12A").Return(nil, domain.ErrRecordNotFound)
				f.records.On("Create", ctx, mock.Anything).Return(nil)
				f.settings.On("GetPrintSettings", ctx).Return(&domain.PrintSettings{AutoPrintEntry: true}, nil)
				f.printer.On("PrintRecord", ctx, mock.Anything).Return(systemOutcome(), nil).Once()
			},
			wantPrint: true,
		},
		{
			name: "номер уже на парковке",
			req:  &EntryRequest{VehicleType: "Sedán", Plate: "abc123"},
			mockSetup: func(f *fixture) {
				f.records.On("GetActiveByPlate", ctx, "ABC123").
					Return(&domain.ParkingRecord{ID: "old", Plate: "ABC123", Status: domain.StatusActive}, nil)
			},
			wantErr: domain.ErrVehicleAlreadyParked,
		},
		{
			name: "гонка: уникальный индекс отклонил вторую запись",
			req:  &EntryRequest{VehicleType: "Sedán", Plate: "abc123"},
			mockSetup: func(f *fixture) {
				f.records.On("GetActiveByPlate", ctx, "ABC123").Return(nil, domain.ErrRecordNotFound)
				f.records.On("Create", ctx, mock.Anything).Return(domain.ErrVehicleAlreadyParked)
			},
			wantErr: domain.ErrVehicleAlreadyParked,
		},
		{
			name:      "пустой номер",
			req:       &EntryRequest{VehicleType: "Sedán", Plate: "   "},
			mockSetup: func(f *fixture) {},
			wantErr:   domain.ErrInvalidPlate,
		},
		{
			name:      "не указан тип",
			req:       &EntryRequest{Plate: "ABC123"},
			mockSetup: func(f *fixture) {},
			wantErr:   domain.ErrInvalidRecordData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.mockSetup(f)

			result, err := f.service().RegisterEntry(ctx, tt.req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, f.sync.pushes)
				assert.Empty(t, f.events.Events)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantPrint, result.Print != nil)
				assert.Equal(t, 1, f.sync.pushes)
				assert.Equal(t, []domain.EventType{domain.EventRecordCreated}, f.events.Types())
			}
			f.records.AssertExpectations(t)
			f.printer.AssertExpectations(t)
		})
	}
}

func TestService_RegisterExit(t *testing.T) {
	ctx := context.Background()

	active := func() *domain.ParkingRecord {
		return &domain.ParkingRecord{
			ID: "rec-1", Plate: "ABC123", VehicleType: "Sedán",
			EntryAt: "2024-05-10T08:00:00.000Z", ExitAt: domain.NoExit, Status: domain.StatusActive,
		}
	}

	t.Run("выезд через 2ч 5м оплачивается за 3 часа", func(t *testing.T) {
		f := newFixture()
		f.records.On("GetByID", ctx, "rec-1").Return(active(), nil)
		f.tariffs.On("Get", ctx).Return(domain.Tariffs{"Sedán": 2000}, nil)
		f.records.On("Upsert", ctx, mock.MatchedBy(func(r *domain.ParkingRecord) bool {
			return r.IsFinalized() && r.Total == 6000 && r.ExitAt == "2024-05-10T10:05:00.000Z"
		})).Return(nil)
		f.printer.On("PrintRecord", ctx, mock.Anything).Return(systemOutcome(), nil)

		result, err := f.service().RegisterExit(ctx, "rec-1")

		require.NoError(t, err)
		assert.Equal(t, int64(125), result.Stats.ElapsedMinutes)
		assert.Equal(t, int64(3), result.Stats.ChargedHours)
		assert.Equal(t, "2h 5m", result.Stats.DurationText)
		assert.Equal(t, float64(6000), result.Record.Total)
		assert.NotNil(t, result.Print)
		assert.Equal(t, 1, f.sync.pushes)
	})

	t.Run("ошибка печати не отменяет выезд", func(t *testing.T) {
		f := newFixture()
		f.records.On("GetByID", ctx, "rec-1").Return(active(), nil)
		f.tariffs.On("Get", ctx).Return(domain.Tariffs{}, nil)
		f.records.On("Upsert", ctx, mock.Anything).Return(nil)
		f.printer.On("PrintRecord", ctx, mock.Anything).Return(nil, errors.New("settings unavailable"))

		result, err := f.service().RegisterExit(ctx, "rec-1")

		require.NoError(t, err)
		assert.Nil(t, result.Print)
		// Пустая таблица - тарифы по умолчанию, Sedán = 2000
		assert.Equal(t, float64(6000), result.Record.Total)
	})

	t.Run("въезд с опережающих часов оплачивается за минимальный час", func(t *testing.T) {
		f := newFixture()
		ahead := active()
		ahead.EntryAt = "2024-05-10T10:08:00.000Z"
		f.records.On("GetByID", ctx, "rec-1").Return(ahead, nil)
		f.tariffs.On("Get", ctx).Return(domain.Tariffs{"Sedán": 2000}, nil)
		f.records.On("Upsert", ctx, mock.MatchedBy(func(r *domain.ParkingRecord) bool {
			return r.ExitAt == "2024-05-10T10:08:00.000Z" && r.Total == 2000 && r.ValidateAt(fixedNow) == nil
		})).Return(nil)
		f.printer.On("PrintRecord", ctx, mock.Anything).Return(systemOutcome(), nil)

		result, err := f.service().RegisterExit(ctx, "rec-1")

		require.NoError(t, err)
		assert.Equal(t, int64(0), result.Stats.ElapsedMinutes)
		assert.Equal(t, int64(1), result.Stats.ChargedHours)
		assert.Equal(t, float64(2000), result.Record.Total)
		f.records.AssertExpectations(t)
	})

	t.Run("нулевой тариф не завершает стоянку", func(t *testing.T) {
		f := newFixture()
		record := active()
		f.records.On("GetByID", ctx, "rec-1").Return(record, nil)
		f.tariffs.On("Get", ctx).Return(domain.Tariffs{"Sedán": 0}, nil)

		_, err := f.service().RegisterExit(ctx, "rec-1")

		assert.ErrorIs(t, err, domain.ErrInvalidTariff)
		assert.True(t, record.IsActive())
		f.records.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		assert.Zero(t, f.sync.pushes)
	})

	t.Run("повторный выезд", func(t *testing.T) {
		f := newFixture()
		done := active()
		done.Status = domain.StatusFinalized
		f.records.On("GetByID", ctx, "rec-1").Return(done, nil)

		_, err := f.service().RegisterExit(ctx, "rec-1")

		assert.ErrorIs(t, err, domain.ErrRecordAlreadyFinalized)
		f.records.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("неизвестная запись", func(t *testing.T) {
		f := newFixture()
		f.records.On("GetByID", ctx, "nope").Return(nil, domain.ErrRecordNotFound)

		_, err := f.service().RegisterExit(ctx, "nope")

		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})
}

func TestService_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("новая запись получает ID", func(t *testing.T) {
		f := newFixture()
		f.records.On("Upsert", ctx, mock.Anything).Return(nil)

		saved, err := f.service().Save(ctx, &domain.ParkingRecord{
			Plate: "kjh45e", VehicleType: "Moto", EntryAt: "2024-05-10T08:00:00Z", Status: domain.StatusActive,
		})

		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		assert.Equal(t, "KJH45E", saved.Plate)
		assert.Equal(t, domain.NoExit, saved.ExitAt)
	})

	t.Run("невалидная запись не сохраняется", func(t *testing.T) {
		f := newFixture()

		_, err := f.service().Save(ctx, &domain.ParkingRecord{
			ID: "x", Plate: "ABC", VehicleType: "Moto", EntryAt: "2024-05-10T08:00:00Z",
			ExitAt: "2024-05-10T07:00:00Z", Status: domain.StatusFinalized, Total: 1000,
		})

		assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
		f.records.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		assert.Zero(t, f.sync.pushes)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.records.On("Delete", ctx, "rec-1").Return(nil)
	f.records.On("Delete", ctx, "nope").Return(domain.ErrRecordNotFound)

	require.NoError(t, f.service().Delete(ctx, "rec-1"))
	assert.ErrorIs(t, f.service().Delete(ctx, "nope"), domain.ErrRecordNotFound)
	assert.Equal(t, 1, f.sync.pushes)
	assert.Equal(t, []domain.EventType{domain.EventRecordDeleted}, f.events.Types())
}

func TestService_ListActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.records.On("ListActive", ctx).Return([]*domain.ParkingRecord{
		{ID: "a", Plate: "AAA111", VehicleType: "SUV", EntryAt: "2024-05-10T10:00:00.000Z", ExitAt: domain.NoExit, Status: domain.StatusActive},
		{ID: "b", Plate: "BBB222", VehicleType: "Bus", EntryAt: "2024-05-10T07:00:00.000Z", ExitAt: domain.NoExit, Status: domain.StatusActive},
	}, nil)
	f.tariffs.On("Get", ctx).Return(domain.Tariffs{"SUV": 3500, "Default": 1500}, nil)

	active, err := f.service().ListActive(ctx)

	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, float64(3500), active[0].Stats.Total, "5 минут - минимум один час")
	assert.Equal(t, float64(4*1500), active[1].Stats.Total, "неизвестный тип - Default")
}

func TestService_Summary(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.records.On("List", ctx).Return([]*domain.ParkingRecord{
		{ID: "a", Status: domain.StatusActive},
		{ID: "b", Status: domain.StatusFinalized, Total: 6000},
		{ID: "c", Status: domain.StatusFinalized, Total: 3500},
	}, nil)

	summary, err := f.service().Summary(ctx)

	require.NoError(t, err)
	assert.Equal(t, &Summary{Active: 1, Finalized: 2, CashTotal: 9500}, summary)
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	header := "Placa,Vehiculo,Tipo,Entrada,Salida,Estado,Total\n"

	tests := []struct {
		name       string
		input      string
		mockSetup  func(*fixture)
		want       *ImportResult
		wantErr    error
		wantEvents int
	}{
		{
			name:  "валидные строки заменяют записи",
			input: header + `"abc123","","Sedán","2024-05-10T08:00:00.000Z","-","Activo","0"` + "\n" + `"bad"` + "\n",
			mockSetup: func(f *fixture) {
				f.records.On("ReplaceAll", ctx, mock.MatchedBy(func(rs []*domain.ParkingRecord) bool {
					return len(rs) == 1 && rs[0].Plate == "ABC123" && rs[0].ID != ""
				})).Return(nil)
			},
			want:       &ImportResult{Imported: 1, Skipped: 1},
			wantEvents: 1,
		},
		{
			name:      "нет валидных строк - записи не трогаем",
			input:     header + `"bad"` + "\n",
			mockSetup: func(f *fixture) {},
			want:      &ImportResult{Imported: 0, Skipped: 1},
		},
		{
			name:      "пустой файл",
			input:     "",
			mockSetup: func(f *fixture) {},
			wantErr:   domain.ErrBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.mockSetup(f)

			got, err := f.service().Import(ctx, strings.NewReader(tt.input))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, f.events.Events, tt.wantEvents)
			assert.Equal(t, tt.wantEvents, f.sync.pushes)
			f.records.AssertExpectations(t)
		})
	}
}

func TestService_Export(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.records.On("List", ctx).Return([]*domain.ParkingRecord{
		{ID: "a", Plate: "AAA111", VehicleType: "SUV", EntryAt: "2024-05-10T10:00:00.000Z", ExitAt: domain.NoExit, Status: domain.StatusActive},
	}, nil)

	var buf bytes.Buffer
	require.NoError(t, f.service().Export(ctx, &buf))

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"AAA111","","SUV","2024-05-10T10:00:00.000Z","-","Activo","0"`, lines[1])
}
