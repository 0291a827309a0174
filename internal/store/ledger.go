package store

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerStore is append-only. Re-appending an already stored sequence
// number is ignored.
type LedgerStore struct {
	db *pgxpool.Pool
}

func NewLedgerStore(db *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Append(ctx context.Context, entries []domain.LedgerEntry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, e := range entries {
		record, err := e.ToRecord()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO ledger_entries (seq, event_type, event_id, record, logged_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (seq) DO NOTHING`,
			e.Seq, e.EventType, e.EventID, record, e.Timestamp,
		); err != nil {
			return fmt.Errorf("append ledger entry %d: %w", e.Seq, err)
		}
	}
	return tx.Commit(ctx)
}

// List returns every entry in sequence order.
func (s *LedgerStore) List(ctx context.Context) ([]domain.LedgerEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT record FROM ledger_entries ORDER BY seq`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.LedgerEntry
	for rows.Next() {
		var record domain.Record
		if err := rows.Scan(&record); err != nil {
			return nil, err
		}
		e, err := domain.LedgerEntryFromRecord(record)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
