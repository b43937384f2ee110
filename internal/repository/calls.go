package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dharsanguruparan/CallLogCSV/internal/model"
)

// CallRepository stores the call log and serves it back in the provider's
// default order, most recent first.
type CallRepository struct {
	pool DB
}

// NewCallRepository constructs a repository.
func NewCallRepository(pool DB) *CallRepository {
	return &CallRepository{pool: pool}
}

// Calls returns every stored call, newest first. It satisfies source.Source.
func (r *CallRepository) Calls(ctx context.Context) ([]model.RawCall, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT type, number, cached_name, date, duration
		FROM calls
		ORDER BY date DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("select calls: %w", err)
	}
	calls, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.RawCall])
	if err != nil {
		return nil, fmt.Errorf("scan calls: %w", err)
	}
	return calls, nil
}

// Insert appends calls in one batch and returns how many rows were written.
func (r *CallRepository) Insert(ctx context.Context, calls []model.RawCall) (int, error) {
	if len(calls) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, c := range calls {
		batch.Queue(`
			INSERT INTO calls (type, number, cached_name, date, duration)
			VALUES ($1,$2,$3,$4,$5)
		`, c.Type, c.Number, c.CachedName, c.Date, c.Duration)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	// The batch runs as one implicit transaction: a failure stores nothing.
	for i := range calls {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("insert call %d: %w", i, err)
		}
	}
	return len(calls), nil
}
