package substrate

import (
	"math/rand/v2"
	"testing"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeoid(t *testing.T, essence []float64, modality string, symbols ...string) *domain.Geoid {
	t.Helper()
	g, err := domain.NewGeoid(essence, modality, symbols...)
	require.NoError(t, err)
	return g
}

func TestResonance_SelfIsOne(t *testing.T) {
	cases := []struct {
		name    string
		essence []float64
		symbols []string
	}{
		{"no symbols", []float64{0.3, -1.2, 4}, nil},
		{"one symbol", []float64{1, 2, 3}, []string{"alpha"}},
		{"many symbols", []float64{-5, 0.1, 0.2}, []string{"a", "b", "c", "d", "e", "f"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newGeoid(t, tc.essence, "language", tc.symbols...)
			assert.InDelta(t, 1.0, Resonance(g, g), 1e-9)
		})
	}
}

func TestResonance_Terms(t *testing.T) {
	a := newGeoid(t, []float64{1, 0}, "language", "x", "y")
	b := newGeoid(t, []float64{0, 1}, "language", "x", "y")
	// orthogonal, same modality, two shared symbols
	assert.InDelta(t, 0.1, Resonance(a, b), 1e-9)

	c := newGeoid(t, []float64{1, 0}, "image")
	d := newGeoid(t, []float64{2, 0}, "language")
	assert.InDelta(t, 0.8, Resonance(c, d), 1e-9)

	many := newGeoid(t, []float64{1, 0}, "code", "a", "b", "c", "d", "e", "f")
	many2 := newGeoid(t, []float64{0, 1}, "code", "a", "b", "c", "d", "e", "f")
	assert.InDelta(t, MaxSymbolBonus, Resonance(many, many2), 1e-9, "symbol bonus is capped")
}

func TestResonance_ZeroVector(t *testing.T) {
	a := newGeoid(t, []float64{0, 0}, "language")
	b := newGeoid(t, []float64{1, 1}, "language")
	assert.Equal(t, 0.0, Resonance(a, b))
}

func TestContradiction_Terms(t *testing.T) {
	a := newGeoid(t, []float64{1, 0}, "language")
	b := newGeoid(t, []float64{-1, 0}, "language")
	assert.InDelta(t, 1.0, Contradiction(a, b), 1e-9)

	c := newGeoid(t, []float64{1, 0}, "language")
	d := newGeoid(t, []float64{0, 1}, "language")
	assert.InDelta(t, 0.0, Contradiction(c, d), 1e-9)

	c.AddRelation("negates", d.ID)
	assert.InDelta(t, NegationBonus, Contradiction(c, d), 1e-9)
	assert.InDelta(t, NegationBonus, Contradiction(d, c), 1e-9, "negation counts in either direction")

	e := newGeoid(t, []float64{1, 0}, "language")
	f := newGeoid(t, []float64{0, 1}, "image")
	e.AddRelation("contradicts_claim", f.ID)
	// R = 0, so cross-modal tension adds the full 0.2
	assert.InDelta(t, NegationBonus+CrossModalTension, Contradiction(e, f), 1e-9)

	g := newGeoid(t, []float64{1, 0}, "language")
	h := newGeoid(t, []float64{0, 1}, "language")
	g.AddRelation("supports", h.ID)
	assert.InDelta(t, 0.0, Contradiction(g, h), 1e-9)
}

func TestScores_BoundedForRandomPairs(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	modalities := []string{"language", "image", "code"}
	symbols := []string{"a", "b", "c", "d", "e"}

	randomGeoid := func() *domain.Geoid {
		v := make([]float64, 8)
		for i := range v {
			v[i] = rng.NormFloat64() * 3
		}
		var syms []string
		for _, s := range symbols {
			if rng.IntN(2) == 0 {
				syms = append(syms, s)
			}
		}
		return newGeoid(t, v, modalities[rng.IntN(len(modalities))], syms...)
	}

	for i := 0; i < 10000; i++ {
		a, b := randomGeoid(), randomGeoid()
		if rng.IntN(4) == 0 {
			a.AddRelation("negates", b.ID)
		}
		r := Resonance(a, b)
		c := Contradiction(a, b)
		if r < -1 || r > 1 {
			t.Fatalf("resonance %v out of [-1,1]", r)
		}
		if c < 0 || c > 1 {
			t.Fatalf("contradiction %v out of [0,1]", c)
		}
	}
}
