package substrate

import (
	"errors"
	"testing"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/vecmath"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstrate_AddAndIndex(t *testing.T) {
	s := New()
	a := newGeoid(t, []float64{1, 0}, "language", "cat", "animal")
	b := newGeoid(t, []float64{0, 1}, "image", "animal")

	id, err := s.Add(a)
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)
	_, err = s.Add(b)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2, s.Dim())
	assert.Len(t, s.ByModality("language"), 1)
	assert.Len(t, s.ByModality("image"), 1)
	assert.Len(t, s.BySymbol("animal"), 2)
	assert.Len(t, s.BySymbol("cat"), 1)
	assert.Empty(t, s.BySymbol("dog"))

	got, err := s.Get(b.ID)
	require.NoError(t, err)
	assert.Same(t, b, got)
}

func TestSubstrate_AddErrors(t *testing.T) {
	s := New()
	a := newGeoid(t, []float64{1, 0}, "language")
	_, err := s.Add(a)
	require.NoError(t, err)

	_, err = s.Add(a)
	assert.True(t, errors.Is(err, domain.ErrCollision))

	wide := newGeoid(t, []float64{1, 0, 0}, "language")
	_, err = s.Add(wide)
	assert.True(t, errors.Is(err, domain.ErrDimension))
	assert.Equal(t, 1, s.Len(), "failed inserts leave state unchanged")

	_, err = s.Get(uuid.New())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSubstrate_FindResonantOrdering(t *testing.T) {
	s := New()
	query := newGeoid(t, []float64{1, 0}, "language")
	near := newGeoid(t, []float64{1, 0.1}, "language")
	tieA := newGeoid(t, []float64{1, 1}, "language")
	tieB := newGeoid(t, []float64{2, 2}, "language")
	far := newGeoid(t, []float64{-1, 0}, "language")

	for _, g := range []*domain.Geoid{query, tieA, near, tieB, far} {
		_, err := s.Add(g)
		require.NoError(t, err)
	}

	res, err := s.FindResonant(query, 0.5, 0)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, near.ID, res[0].ID)
	assert.Equal(t, tieA.ID, res[1].ID, "ties keep insertion order")
	assert.Equal(t, tieB.ID, res[2].ID)

	limited, err := s.FindResonant(query, -1, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
	for _, r := range limited {
		assert.NotEqual(t, query.ID, r.ID)
	}

	contra, err := s.FindContradictory(query, 0.9, 5)
	require.NoError(t, err)
	require.Len(t, contra, 1)
	assert.Equal(t, far.ID, contra[0].ID)
}

func TestSubstrate_FindResonantDimensionMismatch(t *testing.T) {
	s := New()
	_, err := s.Add(newGeoid(t, []float64{1, 0}, "language"))
	require.NoError(t, err)

	_, err = s.FindResonant(newGeoid(t, []float64{1, 0, 0}, "language"), 0, 0)
	assert.True(t, errors.Is(err, domain.ErrDimension))
}

func TestSubstrate_GlobalResonanceField(t *testing.T) {
	s := New()
	assert.Nil(t, s.GlobalResonanceField())

	a := newGeoid(t, []float64{1, 0}, "language")
	b := newGeoid(t, []float64{0, 1}, "language")
	_, _ = s.Add(a)
	_, _ = s.Add(b)

	field := s.GlobalResonanceField()
	assert.InDelta(t, 1.0, vecmath.Norm(field), 1e-9)
	assert.InDelta(t, field[0], field[1], 1e-9)

	// A mutation is not visible until the cache expires.
	ok, err := a.Mutate([]float64{1, 0}, domain.AllowAll)
	require.NoError(t, err)
	require.True(t, ok)

	for i := 1; i < FieldRefreshReads; i++ {
		stale := s.GlobalResonanceField()
		assert.InDelta(t, stale[0], stale[1], 1e-9)
	}

	fresh := s.GlobalResonanceField()
	assert.Greater(t, fresh[0], fresh[1], "recomputed after the read budget is spent")

	s.InvalidateField()
	again := s.GlobalResonanceField()
	assert.InDeltaSlice(t, fresh, again, 1e-12)
}

func TestSubstrate_FieldWeightsMutations(t *testing.T) {
	s := New()
	a := newGeoid(t, []float64{1, 0}, "language")
	b := newGeoid(t, []float64{0, 1}, "language")
	a.MutationCount = 3
	_, _ = s.Add(a)
	_, _ = s.Add(b)

	field := s.GlobalResonanceField()
	assert.Greater(t, field[0], field[1])
}

func TestSubstrate_RefreshLinksAndStats(t *testing.T) {
	s := New()
	a := newGeoid(t, []float64{1, 0}, "language")
	b := newGeoid(t, []float64{1, 0.05}, "language")
	c := newGeoid(t, []float64{-1, 0}, "image")
	for _, g := range []*domain.Geoid{a, b, c} {
		_, err := s.Add(g)
		require.NoError(t, err)
	}
	a.ScarIndex = append(a.ScarIndex, uuid.New())
	a.MutationCount = 2

	require.NoError(t, s.RefreshLinks(a.ID, 0.5))
	assert.Contains(t, a.ResonanceLinks, b.ID)
	assert.NotContains(t, a.ResonanceLinks, c.ID)
	assert.Contains(t, a.ContradictionLinks, c.ID)

	st := s.Stats()
	assert.Equal(t, 3, st.TotalGeoids)
	assert.Equal(t, 2, st.ModalityCounts["language"])
	assert.Equal(t, 1, st.ModalityCounts["image"])
	assert.Equal(t, 1, st.ResonanceLinks)
	assert.Equal(t, 1, st.ContradictionLinks)
	assert.Equal(t, 1, st.ScarReferences)
	assert.InDelta(t, 2.0/3.0, st.AvgMutationCount, 1e-9)

	assert.True(t, errors.Is(s.RefreshLinks(uuid.New(), 0.5), domain.ErrNotFound))
}
