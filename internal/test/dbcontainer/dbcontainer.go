// Package dbcontainer поднимает временный PostgreSQL 16 в контейнере
// для интеграционных тестов репозиториев.
//
// Нужен docker или podman; для podman задайте
// DOCKER_HOST=unix://$XDG_RUNTIME_DIR/podman/podman.sock
package dbcontainer

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/bitcomplete/sqltestutil"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"

	"github.com/frontandrew/parkpos/internal/pkg/database"
	"github.com/frontandrew/parkpos/migrations"
)

// New запускает контейнер, ждет готовности БД и применяет миграции
// timeout действует только на запуск; функции из dfrs нужно вызвать в defer.
func New(ctx context.Context, timeout time.Duration, t *testing.T) (
	pool *pgxpool.Pool,
	dfrs []func(),
	ok bool,
) {
	startCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pg, err := sqltestutil.StartPostgresContainer(startCtx, "16")
	if ok = assert.NoError(t, err, "failed to set up a test database"); !ok {
		return
	}
	dfrs = append(dfrs, func() {
		assert.NoError(t, pg.Shutdown(ctx), "failed to shutdown test database")
	})

	for pool == nil {
		pool, err = connect(startCtx, pg.ConnectionString())
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.SQLState() == "57P03" {
			continue // the database system is starting up
		}
		var netErr net.Error
		if startCtx.Err() == nil && errors.As(err, &netErr) {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if ok = assert.NoError(t, err, "cannot connect to test database"); !ok {
			return
		}
	}
	dfrs = append(dfrs, pool.Close)

	_, err = database.Migrate(startCtx, pool, migrations.FS)
	ok = assert.NoError(t, err, "failed to apply migrations")
	return
}

func connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
