package vectfit

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// validateInputs checks the dimension compatibility of all arrays and the
// polynomial-order bound. It has no side effects; on failure the returned
// error names the violated constraint.
//
// The reference formulation also rejects a response array that is not
// 2-dimensional; with *mat.Dense that shape is enforced by the type system
// and needs no runtime check.
func validateInputs(f *mat.Dense, s []float64, weight *mat.Dense, nPolys int) (nv, ns int, err error) {
	if f == nil {
		return 0, 0, fmt.Errorf("%w: response matrix f is nil", ErrShape)
	}
	nv, ns = f.Dims()

	if len(s) != ns {
		return 0, 0, fmt.Errorf("%w: f has %d columns but s has length %d", ErrShape, ns, len(s))
	}

	if weight == nil {
		return 0, 0, fmt.Errorf("%w: weight matrix is nil", ErrShape)
	}
	wr, wc := weight.Dims()
	if wr != nv || wc != ns {
		return 0, 0, fmt.Errorf("%w: weight is %dx%d but f is %dx%d", ErrShape, wr, wc, nv, ns)
	}

	if nPolys < 0 || nPolys > maxNPolys {
		return 0, 0, fmt.Errorf("%w: got %d, want [0, %d]", ErrNPolysRange, nPolys, maxNPolys)
	}

	return nv, ns, nil
}
