package store

import (
	"context"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContradictionStore struct {
	db *pgxpool.Pool
}

func NewContradictionStore(db *pgxpool.Pool) *ContradictionStore {
	return &ContradictionStore{db: db}
}

func (s *ContradictionStore) Upsert(ctx context.Context, e *domain.ContradictionEvent) error {
	record, err := e.ToRecord()
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO contradiction_events (id, geoid_a, geoid_b, intensity, resolved, record, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   intensity = EXCLUDED.intensity,
		   resolved = EXCLUDED.resolved,
		   record = EXCLUDED.record,
		   updated_at = NOW()`,
		e.ID, e.GeoidIDs[0], e.GeoidIDs[1], e.Intensity, e.Resolved, record, e.CreatedAt,
	)
	return err
}

// List returns every event, resolved or not, in creation order.
func (s *ContradictionStore) List(ctx context.Context) ([]*domain.ContradictionEvent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT record FROM contradiction_events ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.ContradictionEvent
	for rows.Next() {
		var record domain.Record
		if err := rows.Scan(&record); err != nil {
			return nil, err
		}
		e, err := domain.ContradictionEventFromRecord(record)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
