package domain

import "context"

// GeoidStore persists Geoid records outside the process.
type GeoidStore interface {
	Upsert(ctx context.Context, g *Geoid) error
	List(ctx context.Context) ([]*Geoid, error)
}

type ScarStore interface {
	Upsert(ctx context.Context, s *Scar) error
	List(ctx context.Context) ([]*Scar, error)
}

type ContradictionStore interface {
	Upsert(ctx context.Context, e *ContradictionEvent) error
	List(ctx context.Context) ([]*ContradictionEvent, error)
}

// LedgerStore is append-only: entries are never updated once written.
type LedgerStore interface {
	Append(ctx context.Context, entries []LedgerEntry) error
	List(ctx context.Context) ([]LedgerEntry, error)
}

// EmbeddingClient is the encoder boundary: it turns a unit of content into
// a fixed-length vector. The substrate itself never calls it.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
