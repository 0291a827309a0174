package substrate

import (
	"math"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/vecmath"
)

const (
	CrossModalFactor  = 0.8
	SymbolBonusStep   = 0.05
	MaxSymbolBonus    = 0.2
	NegationBonus     = 0.5
	CrossModalTension = 0.2
)

// Resonance scores how strongly a and b agree, in [-1, 1]:
//
//	clip(cos(a, b) × modality_factor + min(0.2, 0.05 × |shared symbols|), -1, 1)
//
// modality_factor is 1 for equal modalities and 0.8 otherwise. Essences are
// normalized at read time; a zero vector contributes a cosine of 0.
func Resonance(a, b *domain.Geoid) float64 {
	base := vecmath.Cosine(a.Essence, b.Essence)

	modalityFactor := 1.0
	if a.Modality != b.Modality {
		modalityFactor = CrossModalFactor
	}

	symbolBonus := math.Min(MaxSymbolBonus, SymbolBonusStep*float64(a.Symbols.Overlap(b.Symbols)))

	return vecmath.Clip(base*modalityFactor+symbolBonus, -1, 1)
}

// Contradiction scores the tension between a and b, in [0, 1]. The terms
// are additive and clipped once at the end:
//
//	max(0, -R) + 0.5 (explicit negation either way) + 0.2 × (1 - |R|) (modalities differ)
func Contradiction(a, b *domain.Geoid) float64 {
	r := Resonance(a, b)
	score := math.Max(0, -r)

	if a.Negates(b.ID) || b.Negates(a.ID) {
		score += NegationBonus
	}

	if a.Modality != b.Modality {
		score += CrossModalTension * (1 - math.Abs(r))
	}

	return vecmath.Clip(score, 0, 1)
}
