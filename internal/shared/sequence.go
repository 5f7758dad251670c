package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// NextDocumentNumber claims the next PREFIX-YYYYMM-NNNN number for the
// month of date. The counter lives in document_sequences and is bumped with a
// single atomic upsert, so two transactions claiming numbers concurrently
// can never observe the same value. seed is the highest sequence already in
// use for the prefix and month (0 when none); it only matters the first time
// a month's row is created, letting the counter pick up behind documents that
// predate the sequence table.
func NextDocumentNumber(ctx context.Context, tx pgx.Tx, prefix string, date time.Time, seed int64) (string, error) {
	period := PeriodKey(date)
	var counter int64
	err := tx.QueryRow(ctx, `INSERT INTO document_sequences (prefix, period, counter, updated_at)
VALUES ($1, $2, $3 + 1, NOW())
ON CONFLICT (prefix, period)
DO UPDATE SET counter = document_sequences.counter + 1, updated_at = NOW()
RETURNING counter`, prefix, period, seed).Scan(&counter)
	if err != nil {
		return "", fmt.Errorf("shared: next document number %s-%s: %w", prefix, period, err)
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, period, counter), nil
}
