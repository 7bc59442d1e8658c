package vectfit

import "errors"

// Sentinel errors returned by Fit and its stages. Callers can match them with
// errors.Is; the wrapped message names the argument and the expectation that
// was violated.
var (
	// ErrShape indicates that the dimensions of f, s, and weight do not
	// agree, or that there are too few samples for the requested model.
	ErrShape = errors.New("vectfit: argument shape mismatch")

	// ErrNPolysRange indicates that the number of polynomial terms is
	// outside the supported range [0, 11].
	ErrNPolysRange = errors.New("vectfit: n_polys out of range")

	// ErrConjugatePair indicates a complex pole that is not immediately
	// followed by its exact complex conjugate.
	ErrConjugatePair = errors.New("vectfit: complex poles are not conjugate pairs")

	// ErrSolve indicates that a least-squares or eigenvalue computation
	// failed beyond recovery.
	ErrSolve = errors.New("vectfit: numerical solve failed")
)
