package service

import (
	"context"
	"testing"
	"time"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubstrateService_RunCycle(t *testing.T) {
	stores := newMockStores()
	svc := newTestService(t, nil)
	svc.SetStores(stores.Stores())

	mustAdd(t, svc, 1, 0)
	mustAdd(t, svc, -1, 0)

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Detected)
	assert.Equal(t, 1, res.Metabolized)
	assert.True(t, res.Persisted)

	assert.Len(t, stores.scars.scars, 1)
	assert.Len(t, stores.contradictions.events, 1)
	assert.Len(t, svc.AuditEvents(domain.EventContradictionsDetected), 1)
}

func TestSubstrateService_RunCycleConservation(t *testing.T) {
	svc := newTestService(t, nil)
	mustAdd(t, svc, 1, 0)
	mustAdd(t, svc, 1, 0.1)
	mustAdd(t, svc, 1, 0.2)

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Detected)
	assert.Zero(t, res.Metabolized)
	assert.True(t, res.ConservationInjection)
	assert.False(t, res.Persisted)

	injected := svc.AuditEvents(domain.EventConservationInjected)
	require.Len(t, injected, 1)
	assert.Len(t, svc.ActiveContradictions(), 1)
}

func TestCycleService_RunOnceAndStop(t *testing.T) {
	svc := newTestService(t, nil)
	mustAdd(t, svc, 1, 0)
	mustAdd(t, svc, -1, 0)

	worker := NewCycleService(svc, zap.NewNop())
	res := worker.RunOnce(context.Background())
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Metabolized)

	worker.SetInterval(10 * time.Millisecond)
	worker.Start()
	worker.Stop()
}
