// Package vectfit implements the fast relaxed vector fitting algorithm for
// rational approximation of sampled responses.
//
// Given Nv real-valued responses sampled at Ns common points, Fit computes a
// shared-pole rational model
//
//	f_n(s) ~ sum_m R[n,m]/(s - pole[m]) + sum_k P[n,k]*s^k
//
// by relocating an initial pole guess through a relaxed auxiliary
// least-squares problem and then solving per-channel weighted least squares
// for the residues. The method follows:
//
//	[1] B. Gustavsen and A. Semlyen, "Rational approximation of frequency
//	    domain responses by Vector Fitting", IEEE Trans. Power Delivery,
//	    vol. 14, no. 3, July 1999.
//	[2] B. Gustavsen, "Improving the pole relocating properties of vector
//	    fitting", IEEE Trans. Power Delivery, vol. 21, no. 3, July 2006.
//	[3] D. Deschrijver, M. Mrozowski, T. Dhaene, D. De Zutter,
//	    "Macromodeling of Multiport Systems Using a Fast Implementation of
//	    the Vector Fitting Method", IEEE Microwave and Wireless Components
//	    Letters, vol. 18, no. 6, June 2008.
package vectfit

import (
	"math"
	"runtime"

	"gonum.org/v1/gonum/mat"
)

// Version identifies the algorithm implementation exposed by this package.
const Version = "0.1.0"

const (
	// tolLow and tolHigh bound the relaxation coefficient D; a value
	// outside this band triggers the non-relaxed fallback solve. tolHigh
	// doubles as the finite sentinel for infinite basis entries. These
	// exact thresholds are part of the reference numerical behavior and
	// must not be tuned.
	tolLow  = 1e-18
	tolHigh = 1e+18

	// maxNPolys bounds the number of polynomial terms in the model.
	maxNPolys = 11
)

// Options controls a single Fit call.
type Options struct {
	// NPolys is the number of polynomial basis terms (constant plus
	// ascending powers of s) appended to the model. Valid range [0, 11].
	NPolys int

	// SkipPole skips the pole relocation stage; the input poles are used
	// unchanged for residue extraction.
	SkipPole bool

	// SkipRes skips the residue extraction stage; residues, polynomial
	// coefficients, fit, and RMS error are left at their zero values.
	SkipRes bool

	// Workers caps how many goroutines process response channels in
	// parallel. Zero or negative means runtime.NumCPU().
	Workers int
}

// Result holds the output of one Fit call.
type Result struct {
	// Residues is the Nv x N complex residue matrix, conjugate-symmetric
	// across every conjugate pole pair. Nil when there are no poles.
	Residues *mat.CDense

	// Polys is the Nv x Nc matrix of polynomial coefficients. Nil when
	// NPolys is zero.
	Polys *mat.Dense

	// Poles is the pole set the residues were fitted against: relocated
	// unless the pole stage was skipped.
	Poles []complex128

	// RMSErr is the root-mean-square deviation between Fit and f,
	// normalized by the total element count.
	RMSErr float64

	// Fit is the Nv x Ns model reconstruction at the sample points.
	Fit *mat.Dense
}

// Fit approximates the Nv x Ns response matrix f, sampled at s, with a
// rational function sharing one pole set across all rows. weight scales each
// fitting equation and must have the shape of f. The initial poles are
// refined by one relocation pass unless opts.SkipPole is set; complex poles
// must form adjacent exact-conjugate pairs.
//
// Fit is a pure function of its inputs and safe for concurrent use. The
// input slices and matrices are not modified.
func Fit(f *mat.Dense, s []float64, poles []complex128, weight *mat.Dense, opts Options) (*Result, error) {
	nv, ns, err := validateInputs(f, s, weight, opts.NPolys)
	if err != nil {
		return nil, err
	}

	n := len(poles)
	nc := opts.NPolys

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > nv {
		workers = nv
	}

	outPoles := append([]complex128(nil), poles...)

	// Degenerate "no model" request: nothing to identify, the error is
	// the weighted-out norm of f itself.
	if n == 0 && nc == 0 {
		return &Result{
			Poles:  outPoles,
			Fit:    mat.NewDense(nv, ns, nil),
			RMSErr: mat.Norm(f, 2) / math.Sqrt(float64(nv*ns)),
		}, nil
	}

	if !opts.SkipPole && n > 0 {
		outPoles, err = relocatePoles(f, s, weight, outPoles, nc, workers)
		if err != nil {
			return nil, err
		}
	}

	res := &Result{
		Poles: outPoles,
		Fit:   mat.NewDense(nv, ns, nil),
	}
	if n > 0 {
		res.Residues = mat.NewCDense(nv, n, nil)
	}
	if nc > 0 {
		res.Polys = mat.NewDense(nv, nc, nil)
	}

	if !opts.SkipRes {
		if err := extractResidues(f, s, weight, outPoles, nc, workers, res); err != nil {
			return nil, err
		}
	}

	return res, nil
}
