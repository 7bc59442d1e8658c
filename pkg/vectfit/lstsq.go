package vectfit

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// solveScaledLS divides every column of a by its Euclidean norm, solves the
// least-squares problem a*x = b, and undoes the scaling on the solution.
// Column scaling keeps the system well conditioned when basis columns differ
// in magnitude by many orders. a is modified in place; it is stage-local
// scratch in every caller.
//
// An ill-conditioned system is reported by gonum as a mat.Condition error
// with the solution still computed; that matches the reference behavior of
// carrying on with the least-squares answer, so it is not treated as failure.
func solveScaledLS(a *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	ar, ac := a.Dims()

	col := make([]float64, ar)
	escale := make([]float64, ac)
	for j := 0; j < ac; j++ {
		mat.Col(col, j, a)
		escale[j] = 1 / floats.Norm(col, 2)
		for i := 0; i < ar; i++ {
			a.Set(i, j, a.At(i, j)*escale[j])
		}
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, fmt.Errorf("%w: %v", ErrSolve, err)
		}
	}

	for j := 0; j < ac; j++ {
		x.SetVec(j, x.AtVec(j)*escale[j])
	}
	return &x, nil
}
