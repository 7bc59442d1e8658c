package vectfit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// relocatePoles performs the pole identification stage: it solves, jointly
// across all channels, for an auxiliary function sigma whose zeros become the
// relocated poles.
//
// Per channel the stacked real system has 2*Ns rows (real parts over
// imaginary parts) and N+Nc+N+1 columns: the sigma-numerator unknowns on the
// left, the N+1 sigma-denominator unknowns on the right. The last channel
// carries one extra row, the integral criterion that keeps the denominator's
// constant term away from the trivial zero solution. Each channel system is
// QR-compressed to the trailing (N+1)x(N+1) block of R, so the combined
// system has only Nv*(N+1) rows instead of Nv*2*Ns.
func relocatePoles(f *mat.Dense, s []float64, weight *mat.Dense, poles []complex128, nc, workers int) ([]complex128, error) {
	nv, ns := f.Dims()
	n := len(poles)

	classes, err := classifyPoles(poles)
	if err != nil {
		return nil, err
	}

	if 2*ns < n+nc+n+1 {
		return nil, fmt.Errorf("%w: %d samples cannot determine the relaxed pole system for %d poles and %d polynomial terms",
			ErrShape, ns, n, nc)
	}

	// The relocation basis always reserves at least one polynomial-like
	// column: it holds the constant term d of sigma.
	dk := buildBasis(s, poles, classes, max(nc, 1))

	// Global magnitude reference weighting the integral criterion row.
	scale := 0.0
	for ch := 0; ch < nv; ch++ {
		for k := 0; k < ns; k++ {
			wf := weight.At(ch, k) * f.At(ch, k)
			scale += wf * wf
		}
	}
	scale = math.Sqrt(scale) / float64(ns)

	aa := mat.NewDense(nv*(n+1), n+1, nil)
	bb := mat.NewVecDense(nv*(n+1), nil)

	err = forEachChannel(nv, workers, func(ch int) error {
		last := ch == nv-1
		rows := 2 * ns
		if last {
			rows++
		}

		a := mat.NewDense(rows, n+nc+n+1, nil)
		for m := 0; m < n+nc; m++ {
			for k := 0; k < ns; k++ {
				v := dk.At(k, m) * complex(weight.At(ch, k), 0)
				a.Set(k, m, real(v))
				a.Set(ns+k, m, imag(v))
			}
		}
		for m := 0; m <= n; m++ {
			for k := 0; k < ns; k++ {
				v := dk.At(k, m) * complex(-weight.At(ch, k)*f.At(ch, k), 0)
				a.Set(k, n+nc+m, real(v))
				a.Set(ns+k, n+nc+m, imag(v))
			}
		}
		if last {
			for m := 0; m <= n; m++ {
				var sum complex128
				for k := 0; k < ns; k++ {
					sum += dk.At(k, m)
				}
				a.Set(2*ns, n+nc+m, scale*real(sum))
			}
		}

		var qr mat.QR
		qr.Factorize(a)

		var r mat.Dense
		qr.RTo(&r)
		for i := 0; i <= n; i++ {
			for j := 0; j <= n; j++ {
				aa.Set(ch*(n+1)+i, j, r.At(n+nc+i, n+nc+j))
			}
		}

		if last {
			var q mat.Dense
			qr.QTo(&q)
			for j := 0; j <= n; j++ {
				bb.SetVec(ch*(n+1)+j, float64(ns)*scale*q.At(rows-1, n+nc+j))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	x, err := solveScaledLS(aa, bb)
	if err != nil {
		return nil, fmt.Errorf("relaxed pole identification: %w", err)
	}

	c := make([]float64, n)
	for m := 0; m < n; m++ {
		c[m] = x.AtVec(m)
	}
	d := x.AtVec(n)

	// The relaxation degenerated: snap D to a fixed reference value and
	// redo the identification without the relaxation unknown.
	if math.Abs(d) < tolLow || math.Abs(d) > tolHigh {
		switch {
		case d == 0:
			d = 1
		case math.Abs(d) < tolLow:
			d = math.Copysign(tolLow, d)
		default:
			d = math.Copysign(tolHigh, d)
		}

		c, err = relocateNonRelaxed(f, weight, dk, n, nc, d, workers)
		if err != nil {
			return nil, err
		}
	}

	return sigmaZeros(poles, classes, c, d)
}

// relocateNonRelaxed redoes the pole identification with the relaxation
// unknown removed. D is fixed at its snapped reference value and moved to the
// right-hand side, which decouples the channels: each contributes its
// QR-compressed N-row block independently.
func relocateNonRelaxed(f, weight *mat.Dense, dk *mat.CDense, n, nc int, d float64, workers int) ([]float64, error) {
	nv, ns := f.Dims()

	aa := mat.NewDense(nv*n, n, nil)
	bb := mat.NewVecDense(nv*n, nil)

	err := forEachChannel(nv, workers, func(ch int) error {
		a := mat.NewDense(2*ns, n+nc+n, nil)
		for m := 0; m < n+nc; m++ {
			for k := 0; k < ns; k++ {
				v := dk.At(k, m) * complex(weight.At(ch, k), 0)
				a.Set(k, m, real(v))
				a.Set(ns+k, m, imag(v))
			}
		}
		for m := 0; m < n; m++ {
			for k := 0; k < ns; k++ {
				v := dk.At(k, m) * complex(-weight.At(ch, k)*f.At(ch, k), 0)
				a.Set(k, n+nc+m, real(v))
				a.Set(ns+k, n+nc+m, imag(v))
			}
		}

		// The stacked right-hand side D*w.*f is real, so its imaginary
		// half stays zero.
		b := mat.NewVecDense(2*ns, nil)
		for k := 0; k < ns; k++ {
			b.SetVec(k, d*weight.At(ch, k)*f.At(ch, k))
		}

		var qr mat.QR
		qr.Factorize(a)

		var r, q mat.Dense
		qr.RTo(&r)
		qr.QTo(&q)

		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				aa.Set(ch*n+i, j, r.At(n+nc+i, n+nc+j))
			}
		}
		for i := 0; i < n; i++ {
			var sum float64
			for k := 0; k < 2*ns; k++ {
				sum += q.At(k, n+nc+i) * b.AtVec(k)
			}
			bb.SetVec(ch*n+i, sum)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	x, err := solveScaledLS(aa, bb)
	if err != nil {
		return nil, fmt.Errorf("non-relaxed pole identification: %w", err)
	}

	c := make([]float64, n)
	for m := 0; m < n; m++ {
		c[m] = x.AtVec(m)
	}
	return c, nil
}

// sigmaZeros computes the zeros of sigma, which become the relocated poles.
// The original poles are encoded as a real block-diagonal matrix (2x2
// rotation blocks for conjugate pairs) perturbed by the rank-one term
// b*c'/D; the zeros are its eigenvalues. No conjugate re-pairing is applied
// here: the residue stage's classifier re-validates pairing and fails loudly
// if the eigenvalue step broke it.
func sigmaZeros(poles []complex128, classes []PoleClass, c []float64, d float64) ([]complex128, error) {
	n := len(poles)

	lambd := mat.NewDense(n, n, nil)
	bcol := make([]float64, n)
	for m := range bcol {
		bcol[m] = 1
	}
	for m := 0; m < n; m++ {
		switch classes[m] {
		case RealPole:
			lambd.Set(m, m, real(poles[m]))
		case ConjugateFirst:
			x, y := real(poles[m]), imag(poles[m])
			lambd.Set(m, m, x)
			lambd.Set(m+1, m+1, x)
			lambd.Set(m, m+1, y)
			lambd.Set(m+1, m, -y)
			bcol[m] = 2
			bcol[m+1] = 0
		}
	}

	zer := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			zer.Set(i, j, lambd.At(i, j)-bcol[i]*c[j]/d)
		}
	}

	var eig mat.Eigen
	if ok := eig.Factorize(zer, mat.EigenNone); !ok {
		return nil, fmt.Errorf("%w: eigenvalue factorization of the sigma zero matrix failed", ErrSolve)
	}
	return eig.Values(nil), nil
}
