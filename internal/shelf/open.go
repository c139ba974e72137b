package shelf

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bookfinder/internal/config"
)

// OpenRepository opens the store selected by cfg.ShelfDriver. The returned
// func releases it.
func OpenRepository(ctx context.Context, cfg config.Config) (Repository, func(), error) {
	switch cfg.ShelfDriver {
	case config.ShelfDriverPostgres:
		pool, err := openPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres (%s): %w", config.RedactDSN(cfg.DatabaseDSN), err)
		}
		return NewPostgresRepo(pool, 3*time.Second), pool.Close, nil
	case config.ShelfDriverSQLite, "":
		repo, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown shelf driver %q", cfg.ShelfDriver)
	}
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
