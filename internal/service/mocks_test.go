package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Harshitk-cp/substrate/internal/booklaw"
	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mockGeoidStore struct {
	mu     sync.Mutex
	geoids map[uuid.UUID]*domain.Geoid
	err    error
}

func newMockGeoidStore() *mockGeoidStore {
	return &mockGeoidStore{geoids: make(map[uuid.UUID]*domain.Geoid)}
}

func (m *mockGeoidStore) Upsert(ctx context.Context, g *domain.Geoid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.geoids[g.ID] = g.Clone()
	return nil
}

func (m *mockGeoidStore) List(ctx context.Context) ([]*domain.Geoid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Geoid
	for _, g := range m.geoids {
		out = append(out, g.Clone())
	}
	return out, nil
}

type mockScarStore struct {
	mu    sync.Mutex
	scars map[uuid.UUID]domain.Scar
}

func newMockScarStore() *mockScarStore {
	return &mockScarStore{scars: make(map[uuid.UUID]domain.Scar)}
}

func (m *mockScarStore) Upsert(ctx context.Context, s *domain.Scar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scars[s.ID] = *s
	return nil
}

func (m *mockScarStore) List(ctx context.Context) ([]*domain.Scar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Scar
	for _, s := range m.scars {
		c := s
		out = append(out, &c)
	}
	return out, nil
}

type mockContradictionStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]domain.ContradictionEvent
}

func newMockContradictionStore() *mockContradictionStore {
	return &mockContradictionStore{events: make(map[uuid.UUID]domain.ContradictionEvent)}
}

func (m *mockContradictionStore) Upsert(ctx context.Context, e *domain.ContradictionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = *e
	return nil
}

func (m *mockContradictionStore) List(ctx context.Context) ([]*domain.ContradictionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ContradictionEvent
	for _, e := range m.events {
		c := e
		out = append(out, &c)
	}
	return out, nil
}

type mockLedgerStore struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
	appends int
}

func (m *mockLedgerStore) Append(ctx context.Context, entries []domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	m.appends++
	return nil
}

func (m *mockLedgerStore) List(ctx context.Context) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LedgerEntry(nil), m.entries...), nil
}

type mockStores struct {
	geoids         *mockGeoidStore
	scars          *mockScarStore
	contradictions *mockContradictionStore
	ledger         *mockLedgerStore
}

func newMockStores() *mockStores {
	return &mockStores{
		geoids:         newMockGeoidStore(),
		scars:          newMockScarStore(),
		contradictions: newMockContradictionStore(),
		ledger:         &mockLedgerStore{},
	}
}

func (m *mockStores) Stores() Stores {
	return Stores{
		Geoids:         m.geoids,
		Scars:          m.scars,
		Contradictions: m.contradictions,
		Ledger:         m.ledger,
	}
}

type mockEmbeddingClient struct {
	vector []float32
	err    error
	calls  []string
}

func (m *mockEmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls = append(m.calls, text)
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

var errEncoderDown = errors.New("encoder down")

func newTestService(t *testing.T, embedder domain.EmbeddingClient) *SubstrateService {
	t.Helper()
	reg := booklaw.NewRegistry()
	rules, err := booklaw.DefaultRules(reg)
	require.NoError(t, err)
	law, err := booklaw.New(zap.NewNop(), rules...)
	require.NoError(t, err)

	svc := NewSubstrateService(law, reg, embedder, zap.NewNop(), DefaultOptions())
	svc.SetClock(func() time.Time { return epoch })
	return svc
}

func mustAdd(t *testing.T, svc *SubstrateService, essence ...float64) *domain.Geoid {
	t.Helper()
	g, err := svc.AddGeoid(GeoidInput{Essence: essence, Modality: "language"})
	require.NoError(t, err)
	return g
}
