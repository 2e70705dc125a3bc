package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/repository"
)

type tariffRepository struct {
	db *pgxpool.Pool
}

func NewTariffRepository(db *pgxpool.Pool) repository.TariffRepository {
	return &tariffRepository{db: db}
}

func (r *tariffRepository) Get(ctx context.Context) (domain.Tariffs, error) {
	rows, err := r.db.Query(ctx, `SELECT vehicle_type, rate FROM tariffs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tariffs := domain.Tariffs{}
	for rows.Next() {
		var (
			vehicleType string
			rate        float64
		)
		if err := rows.Scan(&vehicleType, &rate); err != nil {
			return nil, err
		}
		tariffs[vehicleType] = rate
	}

	return tariffs, rows.Err()
}

func (r *tariffRepository) Replace(ctx context.Context, tariffs domain.Tariffs) error {
	if err := tariffs.Validate(); err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM tariffs`); err != nil {
		return fmt.Errorf("failed to clear tariffs: %w", err)
	}

	batch := &pgx.Batch{}
	for vehicleType, rate := range tariffs {
		batch.Queue(`INSERT INTO tariffs (vehicle_type, rate) VALUES ($1, $2)`, vehicleType, rate)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert tariffs: %w", err)
	}

	return tx.Commit(ctx)
}
