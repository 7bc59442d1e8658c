package models

import (
	"fmt"
)

// Pole is a complex number in YAML-friendly form.
type Pole struct {
	// Re is the real part
	Re float64 `yaml:"re"`

	// Im is the imaginary part
	Im float64 `yaml:"im"`
}

// Complex returns the pole as a complex128.
func (p Pole) Complex() complex128 {
	return complex(p.Re, p.Im)
}

// PolesToComplex converts a slice of YAML poles to complex values.
func PolesToComplex(poles []Pole) []complex128 {
	out := make([]complex128, len(poles))
	for i, p := range poles {
		out[i] = p.Complex()
	}
	return out
}

// PolesFromComplex converts complex values back to YAML poles.
func PolesFromComplex(poles []complex128) []Pole {
	out := make([]Pole, len(poles))
	for i, p := range poles {
		out[i] = Pole{Re: real(p), Im: imag(p)}
	}
	return out
}

// Dataset is the on-disk description of one fitting job: the sample points,
// the responses to be fitted, optional per-equation weights, and the initial
// pole guess supplied by the caller.
type Dataset struct {
	// Samples is the independent variable at which the responses were
	// sampled, length Ns
	Samples []float64 `yaml:"samples"`

	// Responses holds one sampled response per row, each of length Ns.
	// All rows are fitted with a single shared pole set.
	Responses [][]float64 `yaml:"responses"`

	// Weights optionally scales each fitting equation; same shape as
	// Responses. When omitted, every equation is weighted 1.
	Weights [][]float64 `yaml:"weights,omitempty"`

	// InitialPoles is the starting pole guess. Complex poles must appear
	// as adjacent conjugate pairs.
	InitialPoles []Pole `yaml:"initialPoles"`
}

// Validate checks the internal consistency of the dataset before it is
// handed to the fitting core.
func (d *Dataset) Validate() error {
	if len(d.Samples) == 0 {
		return fmt.Errorf("dataset: no sample points")
	}
	if len(d.Responses) == 0 {
		return fmt.Errorf("dataset: no responses")
	}
	for i, row := range d.Responses {
		if len(row) != len(d.Samples) {
			return fmt.Errorf("dataset: response %d has %d values but there are %d sample points",
				i, len(row), len(d.Samples))
		}
	}
	if d.Weights != nil {
		if len(d.Weights) != len(d.Responses) {
			return fmt.Errorf("dataset: %d weight rows for %d responses",
				len(d.Weights), len(d.Responses))
		}
		for i, row := range d.Weights {
			if len(row) != len(d.Samples) {
				return fmt.Errorf("dataset: weight row %d has %d values but there are %d sample points",
					i, len(row), len(d.Samples))
			}
		}
	}
	return nil
}

// ResultDoc is the on-disk form of a completed fit.
type ResultDoc struct {
	// Version of the fitting implementation that produced this document
	Version string `yaml:"version"`

	// Iterations is how many relocation passes the driver ran
	Iterations int `yaml:"iterations"`

	// RMSError is the final root-mean-square deviation of the fit
	RMSError float64 `yaml:"rmsError"`

	// Poles is the final relocated pole set
	Poles []Pole `yaml:"poles"`

	// Residues holds one row of complex residues per response
	Residues [][]Pole `yaml:"residues,omitempty"`

	// Polynomials holds one row of polynomial coefficients per response,
	// constant term first
	Polynomials [][]float64 `yaml:"polynomials,omitempty"`

	// Fit is the model evaluated at the sample points, one row per
	// response
	Fit [][]float64 `yaml:"fit,omitempty"`
}
