package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/repository"
)

const historyColumns = `id, row_id, plate, vehicle_type, printed_at, is_exit, total`

type printHistoryRepository struct {
	db *pgxpool.Pool
}

func NewPrintHistoryRepository(db *pgxpool.Pool) repository.PrintHistoryRepository {
	return &printHistoryRepository{db: db}
}

// Add добавляет запись и обрезает историю до PrintHistoryLimit
func (r *printHistoryRepository) Add(ctx context.Context, item *domain.PrintHistoryItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO print_history (`+historyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		item.ID,
		item.RowID,
		item.Plate,
		item.Type,
		item.Timestamp,
		item.IsExit,
		item.Total,
	)
	if err != nil {
		return fmt.Errorf("failed to insert print history: %w", err)
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM print_history
		WHERE id NOT IN (
			SELECT id FROM print_history ORDER BY printed_at DESC LIMIT $1
		)
	`, domain.PrintHistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to trim print history: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *printHistoryRepository) List(ctx context.Context) ([]*domain.PrintHistoryItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+historyColumns+`
		FROM print_history
		ORDER BY printed_at DESC
		LIMIT $1
	`, domain.PrintHistoryLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*domain.PrintHistoryItem{}
	for rows.Next() {
		item, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *printHistoryRepository) GetByID(ctx context.Context, id string) (*domain.PrintHistoryItem, error) {
	item, err := scanHistory(r.db.QueryRow(ctx, `SELECT `+historyColumns+` FROM print_history WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPrintHistoryEmpty
		}
		return nil, err
	}
	return item, nil
}

func scanHistory(s pgx.Row) (*domain.PrintHistoryItem, error) {
	item := &domain.PrintHistoryItem{}
	err := s.Scan(
		&item.ID,
		&item.RowID,
		&item.Plate,
		&item.Type,
		&item.Timestamp,
		&item.IsExit,
		&item.Total,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}
