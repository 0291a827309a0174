package scar

import (
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestVault(at *time.Time) *Vault {
	v := NewVault()
	v.SetClock(func() time.Time { return *at })
	return v
}

func pair() []uuid.UUID {
	return []uuid.UUID{uuid.New(), uuid.New()}
}

func TestVault_CreateScar(t *testing.T) {
	now := epoch
	v := newTestVault(&now)
	ids := pair()
	eventID := uuid.New()

	id, err := v.CreateScar(ids, eventID, 0.7, []float64{1, 0}, map[string]any{"k": "v"})
	require.NoError(t, err)

	s, err := v.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.EchoStrength)
	assert.Equal(t, domain.DefaultScarDecayRate, s.DecayRate)
	assert.Equal(t, eventID, s.ContradictionEventID)
	assert.Equal(t, 0.7, s.Intensity)
	assert.Equal(t, epoch, s.Timestamp)
	assert.Zero(t, s.ReactivationCount)
	assert.Nil(t, s.LastReactivated)

	assert.Len(t, v.ScarsForGeoid(ids[0]), 1)
	assert.Len(t, v.ScarsForGeoid(ids[1]), 1)
	assert.Empty(t, v.ScarsForGeoid(uuid.New()))
}

func TestVault_CreateScarValidation(t *testing.T) {
	now := epoch
	v := newTestVault(&now)

	_, err := v.CreateScar([]uuid.UUID{uuid.New()}, uuid.New(), 0.5, nil, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = v.CreateScar(pair(), uuid.New(), 1.5, nil, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = v.CreateScar(pair(), uuid.New(), 0.5, []float64{1, 0}, nil)
	require.NoError(t, err)
	_, err = v.CreateScar(pair(), uuid.New(), 0.5, []float64{1, 0, 0}, nil)
	assert.True(t, errors.Is(err, domain.ErrDimension))

	assert.Equal(t, 1, v.Len())
}

func TestVault_DecaySplitEqualsWhole(t *testing.T) {
	now := epoch
	split := newTestVault(&now)
	whole := newTestVault(&now)

	splitID, err := split.CreateScar(pair(), uuid.New(), 1, nil, nil)
	require.NoError(t, err)
	wholeID, err := whole.CreateScar(pair(), uuid.New(), 1, nil, nil)
	require.NoError(t, err)

	split.DecayAll(epoch.Add(30 * time.Second))
	split.DecayAll(epoch.Add(100 * time.Second))
	whole.DecayAll(epoch.Add(100 * time.Second))

	a, _ := split.Get(splitID)
	b, _ := whole.Get(wholeID)
	assert.InDelta(t, b.EchoStrength, a.EchoStrength, 1e-12)
	assert.InDelta(t, 0.36787944117144233, b.EchoStrength, 1e-9, "exp(-0.01 × 100)")

	// Immediate repeat changes nothing.
	assert.Equal(t, 0, whole.DecayAll(epoch.Add(100*time.Second)))
	c, _ := whole.Get(wholeID)
	assert.Equal(t, b.EchoStrength, c.EchoStrength)
}

func TestVault_DecayClampsToZero(t *testing.T) {
	now := epoch
	v := newTestVault(&now)
	id, err := v.CreateScar(pair(), uuid.New(), 1, nil, nil)
	require.NoError(t, err)

	v.DecayAll(epoch.Add(10000 * time.Second))
	s, _ := v.Get(id)
	assert.Equal(t, 0.0, s.EchoStrength)
	assert.Equal(t, 1, v.Len(), "exhausted scars are retained")
	assert.Equal(t, 0, v.Stats().ActiveScars)
}

func TestVault_ReactivateNeverExceedsOne(t *testing.T) {
	now := epoch
	v := newTestVault(&now)
	id, err := v.CreateScar(pair(), uuid.New(), 1, nil, nil)
	require.NoError(t, err)

	for _, boost := range []float64{0, 0.3, 5, 1e9} {
		s, err := v.ReactivateScar(id, boost)
		require.NoError(t, err)
		assert.LessOrEqual(t, s.EchoStrength, 1.0)
	}

	s, _ := v.Get(id)
	assert.Equal(t, 4, s.ReactivationCount)
	assert.Equal(t, 1.0, s.EchoStrength)

	_, err = v.ReactivateScar(uuid.New(), 0.1)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = v.ReactivateScar(id, -1)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestVault_ReactivateMovesDecayAnchor(t *testing.T) {
	now := epoch
	v := newTestVault(&now)
	id, err := v.CreateScar(pair(), uuid.New(), 1, nil, nil)
	require.NoError(t, err)

	v.DecayAll(epoch.Add(100 * time.Second))
	decayed, _ := v.Get(id)

	now = epoch.Add(100 * time.Second)
	s, err := v.ReactivateScar(id, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, decayed.EchoStrength+0.1, s.EchoStrength, 1e-12)
	require.NotNil(t, s.LastReactivated)
	assert.Equal(t, now, *s.LastReactivated)

	// No time has passed since the new anchor.
	v.DecayAll(now)
	after, _ := v.Get(id)
	assert.InDelta(t, s.EchoStrength, after.EchoStrength, 1e-12)

	v.DecayAll(now.Add(50 * time.Second))
	later, _ := v.Get(id)
	assert.Less(t, later.EchoStrength, after.EchoStrength)
}

func TestVault_RetrieveByResonanceIgnoresRecency(t *testing.T) {
	now := epoch
	v := newTestVault(&now)

	oldBest, err := v.CreateScar(pair(), uuid.New(), 1, []float64{1, 0}, nil)
	require.NoError(t, err)
	now = epoch.Add(time.Hour)
	_, err = v.CreateScar(pair(), uuid.New(), 1, nil, nil)
	require.NoError(t, err)
	now = epoch.Add(2 * time.Hour)
	newWorse, err := v.CreateScar(pair(), uuid.New(), 1, []float64{0, 1}, nil)
	require.NoError(t, err)
	now = epoch.Add(3 * time.Hour)
	opposite, err := v.CreateScar(pair(), uuid.New(), 1, []float64{-1, 0}, nil)
	require.NoError(t, err)

	hits, err := v.RetrieveByResonance([]float64{1, 0.1}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3, "unsigned scars are skipped and there is no cutoff")
	assert.Equal(t, oldBest, hits[0].Scar.ID)
	assert.Equal(t, newWorse, hits[1].Scar.ID)
	assert.Equal(t, opposite, hits[2].Scar.ID)
	assert.Less(t, hits[2].Score, 0.0)

	top, err := v.RetrieveByResonance([]float64{1, 0.1}, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, oldBest, top[0].Scar.ID)
}

func TestVault_RetrieveByResonanceRejectsWrongDimension(t *testing.T) {
	now := epoch
	v := newTestVault(&now)
	_, err := v.CreateScar(pair(), uuid.New(), 1, []float64{1, 0, 0}, nil)
	require.NoError(t, err)

	hits, err := v.RetrieveByResonance([]float64{1, 0, 0, 0, 0}, 10)
	assert.True(t, errors.Is(err, domain.ErrDimension))
	assert.Nil(t, hits)

	_, err = v.RetrieveByResonance(nil, 10)
	assert.True(t, errors.Is(err, domain.ErrDimension))
}

func TestVault_ReactivateAppliesPendingDecay(t *testing.T) {
	now := epoch
	v := newTestVault(&now)
	id, err := v.CreateScar(pair(), uuid.New(), 1, nil, nil)
	require.NoError(t, err)

	// No DecayAll since creation; the elapsed decay still counts.
	now = epoch.Add(100 * time.Second)
	s, err := v.ReactivateScar(id, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.36787944117144233+0.1, s.EchoStrength, 1e-12)
	assert.Equal(t, s.EchoStrength, s.AnchorStrength)
}

func TestVault_RestoreAndStats(t *testing.T) {
	now := epoch
	v := newTestVault(&now)
	rec := &domain.Scar{
		ID:                uuid.New(),
		Timestamp:         epoch,
		GeoidIDs:          pair(),
		EchoStrength:      0.5,
		DecayRate:         domain.DefaultScarDecayRate,
		ReactivationCount: 2,
	}
	require.NoError(t, v.Restore(rec))
	assert.True(t, errors.Is(v.Restore(rec), domain.ErrCollision))

	got, err := v.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.AnchorStrength)

	_, err = v.CreateScar(pair(), uuid.New(), 1, []float64{1}, nil)
	require.NoError(t, err)

	st := v.Stats()
	assert.Equal(t, 2, st.TotalScars)
	assert.Equal(t, 2, st.ActiveScars)
	assert.Equal(t, 1, st.WithSignature)
	assert.Equal(t, 2, st.TotalReactivations)
	assert.InDelta(t, 0.75, st.AvgEchoStrength, 1e-12)
}
