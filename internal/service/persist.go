package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"go.uber.org/zap"
)

// PersistResult counts the records written by one Persist call.
type PersistResult struct {
	Geoids         int `json:"geoids"`
	Scars          int `json:"scars"`
	Contradictions int `json:"contradictions"`
	LedgerEntries  int `json:"ledger_entries"`
}

// Persist copies the current state under the lock and then writes it to the
// configured stores. Geoids, scars and events are upserted; only ledger
// entries not yet written are appended. Without stores it is a no-op.
func (s *SubstrateService) Persist(ctx context.Context) (*PersistResult, error) {
	s.mu.Lock()
	stores := s.stores
	if !stores.enabled() {
		s.mu.Unlock()
		return &PersistResult{}, nil
	}

	all := s.substrate.All()
	geoids := make([]*domain.Geoid, len(all))
	for i, g := range all {
		geoids[i] = g.Clone()
	}
	scars := s.vault.All()
	events := s.reactor.Events()
	entries := s.ledger.Since(s.persistedSeq)
	s.mu.Unlock()

	result := &PersistResult{}
	for _, g := range geoids {
		if err := stores.Geoids.Upsert(ctx, g); err != nil {
			s.logger.Error("failed to persist geoid", zap.String("geoid_id", g.ID.String()), zap.Error(err))
			return result, fmt.Errorf("persist geoid %s: %w", g.ID, err)
		}
		result.Geoids++
	}
	for _, sc := range scars {
		if err := stores.Scars.Upsert(ctx, sc); err != nil {
			s.logger.Error("failed to persist scar", zap.String("scar_id", sc.ID.String()), zap.Error(err))
			return result, fmt.Errorf("persist scar %s: %w", sc.ID, err)
		}
		result.Scars++
	}
	for i := range events {
		if err := stores.Contradictions.Upsert(ctx, &events[i]); err != nil {
			s.logger.Error("failed to persist contradiction", zap.String("event_id", events[i].ID.String()), zap.Error(err))
			return result, fmt.Errorf("persist contradiction %s: %w", events[i].ID, err)
		}
		result.Contradictions++
	}

	if len(entries) > 0 {
		if err := stores.Ledger.Append(ctx, entries); err != nil {
			s.logger.Error("failed to persist ledger", zap.Int("entries", len(entries)), zap.Error(err))
			return result, fmt.Errorf("persist ledger: %w", err)
		}
		result.LedgerEntries = len(entries)

		s.mu.Lock()
		if last := entries[len(entries)-1].Seq; last > s.persistedSeq {
			s.persistedSeq = last
		}
		s.mu.Unlock()
	}

	s.logger.Debug("persisted substrate",
		zap.Int("geoids", result.Geoids),
		zap.Int("scars", result.Scars),
		zap.Int("contradictions", result.Contradictions),
		zap.Int("ledger_entries", result.LedgerEntries))
	return result, nil
}

// Restore rebuilds the substrate, vault, reactor history and ledger from
// the stores. It is meant to run once, on an empty service, before any
// other operation.
func (s *SubstrateService) Restore(ctx context.Context) error {
	s.mu.Lock()
	stores := s.stores
	s.mu.Unlock()
	if !stores.enabled() {
		return nil
	}

	geoids, err := stores.Geoids.List(ctx)
	if err != nil {
		return fmt.Errorf("list geoids: %w", err)
	}
	scars, err := stores.Scars.List(ctx)
	if err != nil {
		return fmt.Errorf("list scars: %w", err)
	}
	events, err := stores.Contradictions.List(ctx)
	if err != nil {
		return fmt.Errorf("list contradictions: %w", err)
	}
	entries, err := stores.Ledger.List(ctx)
	if err != nil {
		return fmt.Errorf("list ledger: %w", err)
	}

	sort.SliceStable(geoids, func(i, j int) bool { return geoids[i].CreatedAt.Before(geoids[j].CreatedAt) })
	sort.SliceStable(scars, func(i, j int) bool { return scars[i].Timestamp.Before(scars[j].Timestamp) })
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.substrate.Len() > 0 || s.vault.Len() > 0 {
		return fmt.Errorf("%w: restore requires an empty substrate", domain.ErrCollision)
	}

	for _, g := range geoids {
		if _, err := s.substrate.Add(g); err != nil {
			return fmt.Errorf("restore geoid %s: %w", g.ID, err)
		}
	}
	for _, sc := range scars {
		if err := s.vault.Restore(sc); err != nil {
			return fmt.Errorf("restore scar %s: %w", sc.ID, err)
		}
	}
	for _, e := range events {
		if err := s.reactor.Restore(e); err != nil {
			return fmt.Errorf("restore contradiction %s: %w", e.ID, err)
		}
	}
	s.ledger.Restore(entries)
	if n := len(entries); n > 0 {
		s.persistedSeq = entries[n-1].Seq
	}

	s.logger.Info("restored substrate",
		zap.Int("geoids", len(geoids)),
		zap.Int("scars", len(scars)),
		zap.Int("contradictions", len(events)),
		zap.Int("ledger_entries", len(entries)))
	return nil
}
