package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstrateService_PersistAndRestore(t *testing.T) {
	ctx := context.Background()
	stores := newMockStores()

	now := epoch
	svc := newTestService(t, nil)
	svc.SetClock(func() time.Time { now = now.Add(time.Second); return now })
	svc.SetStores(stores.Stores())

	a := mustAdd(t, svc, 1, 0)
	b := mustAdd(t, svc, -1, 0)
	c := mustAdd(t, svc, 0, 1)

	_, err := svc.InjectContradiction(a.ID, b.ID, 1.0, "")
	require.NoError(t, err)
	scars, err := svc.MetabolizeContradictions()
	require.NoError(t, err)
	require.Len(t, scars, 1)
	open, err := svc.InjectContradiction(a.ID, c.ID, 0.3, "left open")
	require.NoError(t, err)

	res, err := svc.Persist(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Geoids)
	assert.Equal(t, 1, res.Scars)
	assert.Equal(t, 2, res.Contradictions)
	ledgerLen := len(svc.AuditEvents(""))
	assert.Equal(t, ledgerLen, res.LedgerEntries)

	res, err = svc.Persist(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.LedgerEntries)
	assert.Equal(t, 1, stores.ledger.appends)

	restored := newTestService(t, nil)
	restored.SetStores(stores.Stores())
	require.NoError(t, restored.Restore(ctx))

	want := svc.Snapshot()
	got := restored.Snapshot()
	assert.Equal(t, want.Substrate, got.Substrate)
	assert.Equal(t, want.Vault, got.Vault)
	assert.Equal(t, want.TotalContradictions, got.TotalContradictions)
	assert.Equal(t, want.LedgerEntries, got.LedgerEntries)
	require.Len(t, got.ActiveContradictions, 1)
	assert.Equal(t, open.ID, got.ActiveContradictions[0].ID)

	ga, err := restored.Geoid(a.ID)
	require.NoError(t, err)
	wantA, err := svc.Geoid(a.ID)
	require.NoError(t, err)
	assert.Equal(t, wantA.Essence, ga.Essence)
	assert.Equal(t, wantA.ScarIndex, ga.ScarIndex)
	assert.Equal(t, 1, ga.MutationCount)

	sc, err := restored.Scar(scars[0])
	require.NoError(t, err)
	assert.Equal(t, 1.0, sc.EchoStrength)

	assert.Equal(t, svc.AuditEvents(""), restored.AuditEvents(""))

	res, err = restored.Persist(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.LedgerEntries)

	d := mustAdd(t, restored, 0.5, 0.5)
	entries := restored.AuditEvents(domain.EventGeoidAdded)
	last := entries[len(entries)-1]
	assert.Equal(t, d.ID.String(), last.EventID)
	assert.Equal(t, int64(ledgerLen+1), last.Seq)
}

func TestSubstrateService_RestoreRequiresEmptySubstrate(t *testing.T) {
	stores := newMockStores()
	svc := newTestService(t, nil)
	svc.SetStores(stores.Stores())
	mustAdd(t, svc, 1, 0)

	err := svc.Restore(context.Background())
	assert.True(t, errors.Is(err, domain.ErrCollision))
}

func TestSubstrateService_PersistWithoutStores(t *testing.T) {
	svc := newTestService(t, nil)
	mustAdd(t, svc, 1, 0)

	res, err := svc.Persist(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Geoids)
	require.NoError(t, svc.Restore(context.Background()))
}

func TestSubstrateService_PersistFailureKeepsLedgerPending(t *testing.T) {
	ctx := context.Background()
	stores := newMockStores()
	stores.geoids.err = errors.New("connection reset")

	svc := newTestService(t, nil)
	svc.SetStores(stores.Stores())
	mustAdd(t, svc, 1, 0)

	_, err := svc.Persist(ctx)
	require.Error(t, err)
	assert.Empty(t, stores.ledger.entries)

	stores.geoids.err = nil
	res, err := svc.Persist(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LedgerEntries)
}
