package vectfit

import (
	"fmt"
	"math/cmplx"
)

// PoleClass tags the role a pole plays in the real-valued partial-fraction
// basis. Conjugate pairs are stored adjacently: the first member carries the
// pair's real-combination column, the second the imaginary-combination column.
type PoleClass uint8

const (
	// RealPole is a pole with zero imaginary part.
	RealPole PoleClass = iota

	// ConjugateFirst is the leading member of a conjugate pair; its exact
	// conjugate sits at the next index.
	ConjugateFirst

	// ConjugateSecond is the trailing member of a conjugate pair.
	ConjugateSecond
)

// classifyPoles walks the pole sequence and tags every entry. A pole with a
// nonzero imaginary part must be followed immediately by its exact complex
// conjugate, otherwise ErrConjugatePair is returned.
//
// Classification is recomputed before each stage because the pole set differs
// between them: the relocation stage classifies the input poles, the residue
// stage the relocated ones.
func classifyPoles(poles []complex128) ([]PoleClass, error) {
	classes := make([]PoleClass, len(poles))
	for m := 0; m < len(poles); m++ {
		if imag(poles[m]) == 0 {
			continue
		}
		if m == len(poles)-1 || cmplx.Conj(poles[m]) != poles[m+1] {
			return nil, fmt.Errorf("%w: pole %d (%v) is complex but pole %d is not its exact conjugate",
				ErrConjugatePair, m, poles[m], m+1)
		}
		classes[m] = ConjugateFirst
		classes[m+1] = ConjugateSecond
		m++
	}
	return classes, nil
}
