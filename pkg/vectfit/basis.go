package vectfit

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// buildBasis constructs the Ns x (N + polyCols) complex basis matrix of
// partial-fraction terms, one column per pole, followed by polyCols columns
// of ascending powers of s (column 0 is the constant 1).
//
// The pole columns depend on the pole's class:
//
//	RealPole:        1/(s-p)
//	ConjugateFirst:  1/(s-p) + 1/(s-conj(p))   (twice the real part)
//	ConjugateSecond: i/(s-conj(p)) - i/(s-p)   (twice the imaginary part)
//
// so that a real linear combination of the pair's two columns reproduces the
// real-valued contribution of the conjugate residue pair.
//
// A sample point coinciding with a pole would produce an infinite entry;
// those are replaced with a large finite sentinel so the least-squares solve
// stays finite.
func buildBasis(s []float64, poles []complex128, classes []PoleClass, polyCols int) *mat.CDense {
	ns := len(s)
	n := len(poles)

	dk := mat.NewCDense(ns, n+polyCols, nil)
	for m := 0; m < n; m++ {
		p := poles[m]
		for k := 0; k < ns; k++ {
			sk := complex(s[k], 0)
			var v complex128
			switch classes[m] {
			case RealPole:
				v = 1 / (sk - p)
			case ConjugateFirst:
				v = 1/(sk-p) + 1/(sk-cmplx.Conj(p))
			case ConjugateSecond:
				v = 1i/(sk-cmplx.Conj(p)) - 1i/(sk-p)
			}
			dk.Set(k, m, clampInf(v))
		}
	}

	for c := 0; c < polyCols; c++ {
		for k := 0; k < ns; k++ {
			dk.Set(k, n+c, complex(math.Pow(s[k], float64(c)), 0))
		}
	}

	return dk
}

// clampInf replaces an infinite basis value with the tolHigh sentinel.
func clampInf(v complex128) complex128 {
	if math.IsInf(real(v), 0) || math.IsInf(imag(v), 0) {
		return complex(tolHigh, 0)
	}
	return v
}
