package store

import (
	"context"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/vecmath"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type ScarStore struct {
	db *pgxpool.Pool
}

func NewScarStore(db *pgxpool.Pool) *ScarStore {
	return &ScarStore{db: db}
}

func (s *ScarStore) Upsert(ctx context.Context, sc *domain.Scar) error {
	record, err := sc.ToRecord()
	if err != nil {
		return err
	}

	var signature *pgvector.Vector
	if len(sc.ResonanceSignature) > 0 {
		v := pgvector.NewVector(vecmath.ToFloat32(sc.ResonanceSignature))
		signature = &v
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO scars (id, contradiction_event_id, echo_strength, resonance_signature, record, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   echo_strength = EXCLUDED.echo_strength,
		   record = EXCLUDED.record,
		   updated_at = NOW()`,
		sc.ID, sc.ContradictionEventID, sc.EchoStrength, signature, record, sc.Timestamp,
	)
	return err
}

// List returns every scar in creation order.
func (s *ScarStore) List(ctx context.Context) ([]*domain.Scar, error) {
	rows, err := s.db.Query(ctx,
		`SELECT record FROM scars ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Scar
	for rows.Next() {
		var record domain.Record
		if err := rows.Scan(&record); err != nil {
			return nil, err
		}
		sc, err := domain.ScarFromRecord(record)
		if err != nil {
			return nil, err
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}
