package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/substrate/internal/audit"
	"github.com/Harshitk-cp/substrate/internal/booklaw"
	"github.com/Harshitk-cp/substrate/internal/consensus"
	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/reactor"
	"github.com/Harshitk-cp/substrate/internal/scar"
	"github.com/Harshitk-cp/substrate/internal/substrate"
	"github.com/Harshitk-cp/substrate/internal/vecmath"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultDetectThreshold = 0.5
	DefaultMinDensity      = 0.1
	DefaultReactivateBoost = 0.2
)

type Options struct {
	DriftRate       float64
	DetectThreshold float64
	MinDensity      float64
}

func DefaultOptions() Options {
	return Options{
		DriftRate:       reactor.DefaultDriftRate,
		DetectThreshold: DefaultDetectThreshold,
		MinDensity:      DefaultMinDensity,
	}
}

// Stores groups the persistence backends. A zero Stores disables
// persistence.
type Stores struct {
	Geoids         domain.GeoidStore
	Scars          domain.ScarStore
	Contradictions domain.ContradictionStore
	Ledger         domain.LedgerStore
}

func (s Stores) enabled() bool {
	return s.Geoids != nil && s.Scars != nil && s.Contradictions != nil && s.Ledger != nil
}

// ContradictionSummary is the dashboard view of one active event.
type ContradictionSummary struct {
	ID        uuid.UUID    `json:"id"`
	GeoidIDs  [2]uuid.UUID `json:"geoid_ids"`
	Intensity float64      `json:"intensity"`
	Resolved  bool         `json:"resolved"`
}

// Snapshot is a side-effect free projection of the whole substrate.
type Snapshot struct {
	Substrate            substrate.Stats        `json:"substrate"`
	Vault                scar.Stats             `json:"vault"`
	ActiveContradictions []ContradictionSummary `json:"active_contradictions"`
	ContradictionDensity float64                `json:"contradiction_density"`
	TotalContradictions  int                    `json:"total_contradictions"`
	LedgerEntries        int                    `json:"ledger_entries"`
	Rules                []string               `json:"rules"`
}

// SubstrateService serializes every operation on one substrate + vault
// pairing behind a single mutex and records state changes in the ledger.
type SubstrateService struct {
	mu sync.Mutex

	substrate *substrate.Substrate
	vault     *scar.Vault
	reactor   *reactor.Reactor
	engine    *consensus.Engine
	law       *booklaw.Booklaw
	registry  *booklaw.Registry
	grid      *booklaw.Grid
	ledger    *audit.Ledger

	embedder domain.EmbeddingClient
	stores   Stores
	logger   *zap.Logger
	opts     Options
	now      func() time.Time

	persistedSeq int64
}

func NewSubstrateService(law *booklaw.Booklaw, registry *booklaw.Registry, embedder domain.EmbeddingClient, logger *zap.Logger, opts Options) *SubstrateService {
	sub := substrate.New()
	vault := scar.NewVault()
	ledger := audit.NewLedger()
	grid := booklaw.NewGrid(law)

	r := reactor.New(sub, vault, logger)
	r.SetDriftRate(opts.DriftRate)

	return &SubstrateService{
		substrate: sub,
		vault:     vault,
		reactor:   r,
		engine:    consensus.NewEngine(sub, grid, ledger, logger),
		law:       law,
		registry:  registry,
		grid:      grid,
		ledger:    ledger,
		embedder:  embedder,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// SetClock replaces the time source of every component.
func (s *SubstrateService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.now = now
	s.vault.SetClock(now)
	s.reactor.SetClock(now)
	s.engine.SetClock(now)
	s.ledger.SetClock(now)
}

func (s *SubstrateService) SetStores(stores Stores) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores = stores
}

type GeoidInput struct {
	Essence   []float64
	Modality  string
	Symbols   []string
	Relations map[string][]uuid.UUID
}

// AddGeoid builds a Geoid from in and inserts it. Relation targets must
// already exist.
func (s *SubstrateService) AddGeoid(in GeoidInput) (*domain.Geoid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.substrate.CheckDim(in.Essence); err != nil {
		return nil, err
	}
	for _, targets := range in.Relations {
		for _, t := range targets {
			if _, err := s.substrate.Get(t); err != nil {
				return nil, fmt.Errorf("relation target: %w", err)
			}
		}
	}

	g, err := domain.NewGeoidAt(s.now(), in.Essence, in.Modality, in.Symbols...)
	if err != nil {
		return nil, err
	}
	for relType, targets := range in.Relations {
		for _, t := range targets {
			g.AddRelation(relType, t)
		}
	}

	if _, err := s.substrate.Add(g); err != nil {
		return nil, err
	}

	s.ledger.LogEvent(domain.EventGeoidAdded, g.ID.String(), map[string]any{
		"modality": g.Modality,
		"symbols":  g.Symbols.Sorted(),
		"dim":      g.Dim(),
	})
	return g.Clone(), nil
}

// Ingest encodes content with the configured encoder and adds the result.
// The encoder runs outside the critical section.
func (s *SubstrateService) Ingest(ctx context.Context, content, modality string, symbols []string) (*domain.Geoid, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidArgument)
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no encoder configured", domain.ErrInvalidArgument)
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}

	return s.AddGeoid(GeoidInput{
		Essence:  vecmath.FromFloat32(vec),
		Modality: modality,
		Symbols:  symbols,
	})
}

// AddRelation records from --relType--> to.
func (s *SubstrateService) AddRelation(from uuid.UUID, relType string, to uuid.UUID) error {
	if relType == "" {
		return fmt.Errorf("%w: relation type is required", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.substrate.Get(from)
	if err != nil {
		return err
	}
	if _, err := s.substrate.Get(to); err != nil {
		return err
	}

	src.AddRelation(relType, to)
	s.ledger.LogEvent(domain.EventRelationAdded, from.String(), map[string]any{
		"relation_type": relType,
		"target_id":     to.String(),
	})
	return nil
}

func (s *SubstrateService) Geoid(id uuid.UUID) (*domain.Geoid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.substrate.Get(id)
	if err != nil {
		return nil, err
	}
	return g.Clone(), nil
}

func (s *SubstrateService) FindResonant(id uuid.UUID, threshold float64, limit int) ([]substrate.ScoredID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.substrate.Get(id)
	if err != nil {
		return nil, err
	}
	return s.substrate.FindResonant(g, threshold, limit)
}

func (s *SubstrateService) FindContradictory(id uuid.UUID, threshold float64, limit int) ([]substrate.ScoredID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.substrate.Get(id)
	if err != nil {
		return nil, err
	}
	return s.substrate.FindContradictory(g, threshold, limit)
}

func (s *SubstrateService) ResonanceField() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return vecmath.Clone(s.substrate.GlobalResonanceField())
}

func (s *SubstrateService) InjectContradiction(a, b uuid.UUID, intensity float64, notes string) (domain.ContradictionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.reactor.InjectContradiction(a, b, intensity, notes)
	if err != nil {
		return e, err
	}

	s.ledger.LogEvent(domain.EventContradictionInjected, e.ID.String(), map[string]any{
		"geoid_ids": pairStrings(e.GeoidIDs),
		"intensity": e.Intensity,
		"notes":     notes,
	})
	return e, nil
}

// DetectContradictions runs detection at the configured threshold.
func (s *SubstrateService) DetectContradictions() []domain.ContradictionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detectLocked()
}

func (s *SubstrateService) detectLocked() []domain.ContradictionEvent {
	created := s.reactor.DetectContradictions(s.opts.DetectThreshold)
	if len(created) == 0 {
		return created
	}

	ids := make([]string, len(created))
	for i, e := range created {
		ids[i] = e.ID.String()
	}
	s.ledger.LogEvent(domain.EventContradictionsDetected, "", map[string]any{
		"threshold": s.opts.DetectThreshold,
		"count":     len(created),
		"event_ids": ids,
	})
	return created
}

func (s *SubstrateService) AmplifyContradictions(factor float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.reactor.AmplifyContradictions(factor)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.ledger.LogEvent(domain.EventContradictionsAmplified, "", map[string]any{
			"factor": factor,
			"count":  n,
		})
	}
	return n, nil
}

// MetabolizeContradictions resolves active events through the Compliance
// Grid and returns the scars created.
func (s *SubstrateService) MetabolizeContradictions() ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metabolizeLocked()
}

func (s *SubstrateService) metabolizeLocked() ([]uuid.UUID, error) {
	scarIDs, err := s.reactor.MetabolizeContradictions(s.grid.MutationCheck())
	for _, id := range scarIDs {
		sc, getErr := s.vault.Get(id)
		if getErr != nil {
			continue
		}
		s.ledger.LogEvent(domain.EventContradictionMetabolized, sc.ContradictionEventID.String(), map[string]any{
			"scar_id":   id.String(),
			"geoid_ids": uuidStrings(sc.GeoidIDs),
			"intensity": sc.Intensity,
		})
	}
	return scarIDs, err
}

// EnforceConservation applies the conservation law at the configured
// minimum density.
func (s *SubstrateService) EnforceConservation() (*domain.ContradictionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conserveLocked()
}

func (s *SubstrateService) conserveLocked() (*domain.ContradictionEvent, error) {
	e, err := s.reactor.EnforceContradictionConservation(s.opts.MinDensity)
	if err != nil || e == nil {
		return e, err
	}
	s.ledger.LogEvent(domain.EventConservationInjected, e.ID.String(), map[string]any{
		"geoid_ids":   pairStrings(e.GeoidIDs),
		"intensity":   e.Intensity,
		"min_density": s.opts.MinDensity,
	})
	return e, nil
}

func (s *SubstrateService) Contradiction(id uuid.UUID) (domain.ContradictionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reactor.Event(id)
}

func (s *SubstrateService) ActiveContradictions() []domain.ContradictionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reactor.ActiveEvents()
}

type ScarInput struct {
	GeoidIDs  []uuid.UUID
	EventID   uuid.UUID
	Intensity float64
	Signature []float64
	Metadata  map[string]any
}

// CreateScar records a scar directly, bypassing metabolism. Every
// participant must exist; the scar is linked from each of them.
func (s *SubstrateService) CreateScar(in ScarInput) (*domain.Scar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(in.Signature) > 0 {
		if err := s.substrate.CheckDim(in.Signature); err != nil {
			return nil, fmt.Errorf("scar signature: %w", err)
		}
	}

	participants := make([]*domain.Geoid, len(in.GeoidIDs))
	for i, id := range in.GeoidIDs {
		g, err := s.substrate.Get(id)
		if err != nil {
			return nil, err
		}
		participants[i] = g
	}

	id, err := s.vault.CreateScar(in.GeoidIDs, in.EventID, in.Intensity, in.Signature, in.Metadata)
	if err != nil {
		return nil, err
	}
	for _, g := range participants {
		g.AttachScar(id)
	}

	s.ledger.LogEvent(domain.EventScarCreated, id.String(), map[string]any{
		"geoid_ids": uuidStrings(in.GeoidIDs),
		"event_id":  in.EventID.String(),
		"intensity": in.Intensity,
	})
	return s.vault.Get(id)
}

func (s *SubstrateService) Scar(id uuid.UUID) (*domain.Scar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vault.Get(id)
}

func (s *SubstrateService) ScarsForGeoid(id uuid.UUID) ([]*domain.Scar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.substrate.Get(id); err != nil {
		return nil, err
	}
	return s.vault.ScarsForGeoid(id), nil
}

func (s *SubstrateService) ReactivateScar(id uuid.UUID, boost float64) (*domain.Scar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := s.vault.ReactivateScar(id, boost)
	if err != nil {
		return nil, err
	}
	s.ledger.LogEvent(domain.EventScarReactivated, id.String(), map[string]any{
		"boost":              boost,
		"echo_strength":      sc.EchoStrength,
		"reactivation_count": sc.ReactivationCount,
	})
	return sc, nil
}

// DecayScars decays every scar to the current time.
func (s *SubstrateService) DecayScars() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decayLocked()
}

func (s *SubstrateService) decayLocked() int {
	n := s.vault.DecayAll(s.now())
	if n > 0 {
		s.ledger.LogEvent(domain.EventScarsDecayed, "", map[string]any{"count": n})
	}
	return n
}

// SearchScars ranks scars by resonance with vector, which must match the
// substrate dimension.
func (s *SubstrateService) SearchScars(vector []float64, topK int) ([]scar.Scored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.substrate.CheckDim(vector); err != nil {
		return nil, fmt.Errorf("scar query: %w", err)
	}
	return s.vault.RetrieveByResonance(vector, topK)
}

func (s *SubstrateService) GenerateConsensus(req consensus.Request) (*consensus.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.engine.GenerateConsensus(req)
	if err != nil {
		return nil, err
	}
	res.Geoid = res.Geoid.Clone()
	return res, nil
}

// AddRule builds a rule from spec and appends it to the Booklaw.
func (s *SubstrateService) AddRule(spec booklaw.RuleSpec) error {
	rule, err := s.registry.Build(spec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.law.AddRule(rule.Name, rule.Check); err != nil {
		return err
	}
	s.ledger.LogEvent(domain.EventRuleAdded, rule.Name, map[string]any{
		"kind":       spec.Kind,
		"applies_to": spec.AppliesTo,
	})
	return nil
}

// Snapshot aggregates substrate stats, vault stats and the active
// contradictions. It changes nothing.
func (s *SubstrateService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.reactor.ActiveEvents()
	summaries := make([]ContradictionSummary, len(active))
	for i, e := range active {
		summaries[i] = ContradictionSummary{
			ID:        e.ID,
			GeoidIDs:  e.GeoidIDs,
			Intensity: e.Intensity,
			Resolved:  e.Resolved,
		}
	}

	return Snapshot{
		Substrate:            s.substrate.Stats(),
		Vault:                s.vault.Stats(),
		ActiveContradictions: summaries,
		ContradictionDensity: s.reactor.Density(),
		TotalContradictions:  len(s.reactor.Events()),
		LedgerEntries:        s.ledger.Len(),
		Rules:                s.law.Rules(),
	}
}

// AuditEvents returns ledger entries of eventType, or all of them when
// eventType is empty.
func (s *SubstrateService) AuditEvents(eventType string) []domain.LedgerEntry {
	return s.ledger.GetEvents(eventType)
}

func pairStrings(ids [2]uuid.UUID) []string {
	return uuidStrings(ids[:])
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
