package store

import (
	"context"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/vecmath"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type GeoidStore struct {
	db *pgxpool.Pool
}

func NewGeoidStore(db *pgxpool.Pool) *GeoidStore {
	return &GeoidStore{db: db}
}

func (s *GeoidStore) Upsert(ctx context.Context, g *domain.Geoid) error {
	record, err := g.ToRecord()
	if err != nil {
		return err
	}
	essence := pgvector.NewVector(vecmath.ToFloat32(g.Essence))

	_, err = s.db.Exec(ctx,
		`INSERT INTO geoids (id, modality, essence, mutation_count, record, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   essence = EXCLUDED.essence,
		   mutation_count = EXCLUDED.mutation_count,
		   record = EXCLUDED.record,
		   updated_at = NOW()`,
		g.ID, g.Modality, essence, g.MutationCount, record, g.CreatedAt,
	)
	return err
}

// List returns every Geoid in creation order.
func (s *GeoidStore) List(ctx context.Context) ([]*domain.Geoid, error) {
	rows, err := s.db.Query(ctx,
		`SELECT record FROM geoids ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Geoid
	for rows.Next() {
		var record domain.Record
		if err := rows.Scan(&record); err != nil {
			return nil, err
		}
		g, err := domain.GeoidFromRecord(record)
		if err != nil {
			return nil, err
		}
		results = append(results, g)
	}
	return results, rows.Err()
}
