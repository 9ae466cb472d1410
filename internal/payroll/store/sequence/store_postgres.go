package sequence

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the counter table. One row per calendar year.
const Schema = `
CREATE TABLE IF NOT EXISTS payment_sequences (
	year  INTEGER PRIMARY KEY,
	value BIGINT NOT NULL
);
`

// PostgresAllocator allocates from a counter row per year. The upsert
// runs as a single statement, so the row lock serializes concurrent
// allocations without an explicit transaction.
//
// Unlike the payment store, the allocator never joins an ambient
// transaction: holding the counter row lock until a caller commits would
// stall every other allocation, and a rolled-back caller only burns a
// number, which the reference format tolerates.
type PostgresAllocator struct {
	db *sql.DB
}

// NewPostgresAllocator constructs a PostgreSQL-backed sequence allocator.
func NewPostgresAllocator(db *sql.DB) *PostgresAllocator {
	return &PostgresAllocator{db: db}
}

// Next increments and returns the year's counter, creating it at 1.
func (a *PostgresAllocator) Next(ctx context.Context, year int) (int64, error) {
	query := `
		INSERT INTO payment_sequences (year, value)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET value = payment_sequences.value + 1
		RETURNING value
	`
	var seq int64
	if err := a.db.QueryRowContext(ctx, query, year).Scan(&seq); err != nil {
		return 0, fmt.Errorf("increment payment sequence for %d: %w", year, err)
	}
	return seq, nil
}
