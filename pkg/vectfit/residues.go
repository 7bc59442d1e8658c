package vectfit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// extractResidues performs the residue identification stage against a fixed
// pole set. With the poles fixed the channels decouple completely: each is an
// independent weighted least-squares problem over the real/imaginary-stacked
// basis. The first N solution entries per channel are half-residues in the
// real-combination basis; they are reassembled into exact conjugate residue
// pairs afterwards. The stage also reconstructs the fitted curves and the
// RMS error, written into res.
func extractResidues(f *mat.Dense, s []float64, weight *mat.Dense, poles []complex128, nc, workers int, res *Result) error {
	nv, ns := f.Dims()
	n := len(poles)

	classes, err := classifyPoles(poles)
	if err != nil {
		return err
	}

	if 2*ns < n+nc {
		return fmt.Errorf("%w: %d samples cannot determine %d poles and %d polynomial terms",
			ErrShape, ns, n, nc)
	}

	dk := buildBasis(s, poles, classes, nc)

	var cr *mat.Dense
	if n > 0 {
		cr = mat.NewDense(nv, n, nil)
	}

	err = forEachChannel(nv, workers, func(ch int) error {
		a := mat.NewDense(2*ns, n+nc, nil)
		for m := 0; m < n+nc; m++ {
			for k := 0; k < ns; k++ {
				v := dk.At(k, m) * complex(weight.At(ch, k), 0)
				a.Set(k, m, real(v))
				a.Set(ns+k, m, imag(v))
			}
		}

		// w.*f is real; the imaginary half of the stacked right-hand
		// side stays zero.
		b := mat.NewVecDense(2*ns, nil)
		for k := 0; k < ns; k++ {
			b.SetVec(k, weight.At(ch, k)*f.At(ch, k))
		}

		x, err := solveScaledLS(a, b)
		if err != nil {
			return fmt.Errorf("residue identification, channel %d: %w", ch, err)
		}

		for m := 0; m < n; m++ {
			cr.Set(ch, m, x.AtVec(m))
		}
		for c := 0; c < nc; c++ {
			res.Polys.Set(ch, c, x.AtVec(n+c))
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Reassemble complex residues from the real-combination coefficients;
	// pair members come out as exact conjugates by construction.
	for m := 0; m < n; m++ {
		switch classes[m] {
		case RealPole:
			for ch := 0; ch < nv; ch++ {
				res.Residues.Set(ch, m, complex(cr.At(ch, m), 0))
			}
		case ConjugateFirst:
			for ch := 0; ch < nv; ch++ {
				r1 := cr.At(ch, m)
				r2 := cr.At(ch, m+1)
				res.Residues.Set(ch, m, complex(r1, r2))
				res.Residues.Set(ch, m+1, complex(r1, -r2))
			}
		}
	}

	// Reconstruct the fit; the imaginary parts cancel across conjugate
	// pairs up to floating-point error, so only the real part is kept.
	for ch := 0; ch < nv; ch++ {
		for k := 0; k < ns; k++ {
			var sum complex128
			for m := 0; m < n; m++ {
				sum += res.Residues.At(ch, m) / (complex(s[k], 0) - poles[m])
			}
			v := real(sum)
			for c := 0; c < nc; c++ {
				v += res.Polys.At(ch, c) * math.Pow(s[k], float64(c))
			}
			res.Fit.Set(ch, k, v)
		}
	}

	var diff mat.Dense
	diff.Sub(res.Fit, f)
	res.RMSErr = mat.Norm(&diff, 2) / math.Sqrt(float64(nv*ns))

	return nil
}
