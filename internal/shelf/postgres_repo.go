package shelf

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookfinder/internal/book"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) Load(ctx context.Context, slot string) ([]book.Record, error) {
	const q = `SELECT payload FROM shelves WHERE slot = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var payload []byte
	err := r.db.QueryRow(timeoutCtx, q, slot).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return []book.Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(payload)
}

func (r *PostgresRepo) Save(ctx context.Context, slot string, records []book.Record) error {
	const q = `
		INSERT INTO shelves (slot, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (slot)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`
	payload, err := encode(records)
	if err != nil {
		return err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err = r.db.Exec(timeoutCtx, q, slot, payload)
	return err
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.Ping(timeoutCtx)
}
