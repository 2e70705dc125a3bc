package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/repository"
)

// uniqueViolation - код ошибки PostgreSQL для нарушения уникального индекса
const uniqueViolation = "23505"

const recordColumns = `id, plate, vehicle, vehicle_type, entry_at, exit_at, status, total`

type recordRepository struct {
	db *pgxpool.Pool
}

func NewRecordRepository(db *pgxpool.Pool) repository.RecordRepository {
	return &recordRepository{db: db}
}

// recordRow - строка таблицы parking_records
type recordRow struct {
	ID          string
	Plate       string
	Vehicle     string
	VehicleType string
	EntryAt     time.Time
	ExitAt      *time.Time
	Status      string
	Total       float64
}

// toRow переводит запись в строку таблицы; "-" в Salida становится NULL
func toRow(r *domain.ParkingRecord) (recordRow, error) {
	entry, err := domain.ParseTimestamp(r.EntryAt)
	if err != nil {
		return recordRow{}, domain.ErrInvalidTimestamp
	}

	row := recordRow{
		ID:          r.ID,
		Plate:       domain.NormalizePlate(r.Plate),
		Vehicle:     r.Vehicle,
		VehicleType: r.VehicleType,
		EntryAt:     entry.UTC(),
		Status:      string(r.Status),
		Total:       r.Total,
	}

	if r.HasExit() {
		exit, ok := r.ExitTime()
		if !ok {
			return recordRow{}, domain.ErrInvalidTimestamp
		}
		utc := exit.UTC()
		row.ExitAt = &utc
	}

	return row, nil
}

// toRecord переводит строку таблицы в запись
func (row recordRow) toRecord() *domain.ParkingRecord {
	r := &domain.ParkingRecord{
		ID:          row.ID,
		Plate:       row.Plate,
		Vehicle:     row.Vehicle,
		VehicleType: row.VehicleType,
		EntryAt:     domain.FormatTimestamp(row.EntryAt),
		ExitAt:      domain.NoExit,
		Status:      domain.RecordStatus(row.Status),
		Total:       row.Total,
	}
	if row.ExitAt != nil {
		r.ExitAt = domain.FormatTimestamp(*row.ExitAt)
	}
	return r
}

func (row recordRow) values() []interface{} {
	return []interface{}{row.ID, row.Plate, row.Vehicle, row.VehicleType, row.EntryAt, row.ExitAt, row.Status, row.Total}
}

func scanRecord(s pgx.Row) (*domain.ParkingRecord, error) {
	var row recordRow
	if err := s.Scan(
		&row.ID,
		&row.Plate,
		&row.Vehicle,
		&row.VehicleType,
		&row.EntryAt,
		&row.ExitAt,
		&row.Status,
		&row.Total,
	); err != nil {
		return nil, err
	}
	return row.toRecord(), nil
}

func (r *recordRepository) Create(ctx context.Context, record *domain.ParkingRecord) error {
	query := `
		INSERT INTO parking_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	row, err := toRow(record)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, row.values()...)
	if err != nil {
		// Частичный уникальный индекс по номеру среди активных записей
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrVehicleAlreadyParked
		}
		return err
	}

	return nil
}

func (r *recordRepository) GetByID(ctx context.Context, id string) (*domain.ParkingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM parking_records WHERE id = $1`

	record, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}

	return record, nil
}

func (r *recordRepository) GetActiveByPlate(ctx context.Context, plate string) (*domain.ParkingRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM parking_records
		WHERE plate = $1 AND status = $2
		LIMIT 1
	`

	record, err := scanRecord(r.db.QueryRow(ctx, query, domain.NormalizePlate(plate), string(domain.StatusActive)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}

	return record, nil
}

func (r *recordRepository) Upsert(ctx context.Context, record *domain.ParkingRecord) error {
	query := `
		INSERT INTO parking_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			plate = EXCLUDED.plate,
			vehicle = EXCLUDED.vehicle,
			vehicle_type = EXCLUDED.vehicle_type,
			entry_at = EXCLUDED.entry_at,
			exit_at = EXCLUDED.exit_at,
			status = EXCLUDED.status,
			total = EXCLUDED.total,
			updated_at = NOW()
	`

	row, err := toRow(record)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, row.values()...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrVehicleAlreadyParked
		}
		return err
	}

	return nil
}

func (r *recordRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM parking_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *recordRepository) List(ctx context.Context) ([]*domain.ParkingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM parking_records ORDER BY entry_at DESC`
	return r.query(ctx, query)
}

func (r *recordRepository) ListActive(ctx context.Context) ([]*domain.ParkingRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM parking_records
		WHERE status = $1
		ORDER BY entry_at ASC
	`
	return r.query(ctx, query, string(domain.StatusActive))
}

func (r *recordRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.ParkingRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*domain.ParkingRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// ReplaceAll заменяет таблицу в одной транзакции через COPY
func (r *recordRepository) ReplaceAll(ctx context.Context, records []*domain.ParkingRecord) error {
	rows := make([][]interface{}, 0, len(records))
	for _, record := range records {
		row, err := toRow(record)
		if err != nil {
			return fmt.Errorf("record %s: %w", record.ID, err)
		}
		rows = append(rows, row.values())
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM parking_records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"parking_records"},
		[]string{"id", "plate", "vehicle", "vehicle_type", "entry_at", "exit_at", "status", "total"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: duplicate id or active plate", domain.ErrConflict)
		}
		return fmt.Errorf("failed to copy records: %w", err)
	}

	return tx.Commit(ctx)
}
