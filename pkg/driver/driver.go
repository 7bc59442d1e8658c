// Package driver orchestrates iterative vector fitting jobs: it loads a
// dataset document, repeatedly calls the fitting core so that poles are
// relocated across calls, and writes the final model back out. Pole guessing
// and model-order selection stay with whoever wrote the dataset; the driver
// only drives.
package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"vectfit/internal/models"
	"vectfit/pkg/vectfit"
)

// Params holds the driver configuration for one job.
type Params struct {
	// InputFile is the YAML dataset describing samples, responses,
	// optional weights, and the initial pole guess.
	InputFile string

	// OutputFile is where the result document is written. Empty means
	// no file output.
	OutputFile string

	// NumCores specifies how many CPU cores to use for the per-channel
	// least-squares solves.
	NumCores int

	// Iterations is the number of fitting passes. Each pass relocates
	// the poles of the previous one; more passes let badly seeded poles
	// migrate further.
	Iterations int

	// NPolys is the number of polynomial terms in the model, [0, 11].
	NPolys int

	// SkipPole disables pole relocation entirely; every pass fits
	// residues against the initial poles.
	SkipPole bool

	// IncludeFit embeds the reconstructed curves in the result document.
	IncludeFit bool
}

// Metrics summarizes a completed job.
type Metrics struct {
	// RMSHistory is the RMS error after each pass.
	RMSHistory []float64

	// FinalRMS is the RMS error of the last pass.
	FinalRMS float64

	// Iterations is the number of passes actually run.
	Iterations int

	// Elapsed is the total fitting time, excluding file I/O.
	Elapsed time.Duration
}

// Driver runs one vector fitting job end to end.
type Driver struct {
	params  *Params
	dataset *models.Dataset
	result  *vectfit.Result
	metrics Metrics
}

// New creates a driver for the given parameters.
func New(params *Params) *Driver {
	return &Driver{params: params}
}

// Run loads the dataset, performs the configured number of fitting passes,
// and writes the result document if an output file is configured.
func (d *Driver) Run() error {
	if err := d.loadDataset(); err != nil {
		return err
	}

	f, weight, s, poles := d.matrices()

	iters := d.params.Iterations
	if iters < 1 {
		iters = 1
	}

	opts := vectfit.Options{
		NPolys:   d.params.NPolys,
		SkipPole: d.params.SkipPole,
		Workers:  d.params.NumCores,
	}

	start := time.Now()
	d.metrics = Metrics{}
	for it := 0; it < iters; it++ {
		res, err := vectfit.Fit(f, s, poles, weight, opts)
		if err != nil {
			return fmt.Errorf("fitting pass %d: %w", it+1, err)
		}
		d.result = res
		poles = res.Poles
		d.metrics.RMSHistory = append(d.metrics.RMSHistory, res.RMSErr)
	}
	d.metrics.Elapsed = time.Since(start)
	d.metrics.Iterations = iters
	d.metrics.FinalRMS = d.result.RMSErr

	if d.params.OutputFile != "" {
		if err := d.WriteResult(d.params.OutputFile); err != nil {
			return err
		}
	}
	return nil
}

// Metrics returns the summary of the last Run.
func (d *Driver) Metrics() Metrics {
	return d.metrics
}

// Result returns the fit produced by the last pass of Run.
func (d *Driver) Result() *vectfit.Result {
	return d.result
}

// WriteResult marshals the last fit into a result document at path.
func (d *Driver) WriteResult(path string) error {
	if d.result == nil {
		return fmt.Errorf("driver: no result to write; call Run first")
	}

	doc := d.resultDoc()
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshaling result: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating result directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing result file: %w", err)
	}
	return nil
}

// loadDataset reads and validates the input document.
func (d *Driver) loadDataset() error {
	data, err := os.ReadFile(d.params.InputFile)
	if err != nil {
		return fmt.Errorf("error reading dataset file: %w", err)
	}

	ds := &models.Dataset{}
	if err := yaml.Unmarshal(data, ds); err != nil {
		return fmt.Errorf("error parsing dataset file: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return err
	}

	d.dataset = ds
	return nil
}

// matrices converts the dataset into the core's gonum inputs. A missing
// weight block becomes the all-ones matrix.
func (d *Driver) matrices() (f, weight *mat.Dense, s []float64, poles []complex128) {
	nv := len(d.dataset.Responses)
	ns := len(d.dataset.Samples)

	f = mat.NewDense(nv, ns, nil)
	for i, row := range d.dataset.Responses {
		f.SetRow(i, row)
	}

	weight = mat.NewDense(nv, ns, nil)
	if d.dataset.Weights != nil {
		for i, row := range d.dataset.Weights {
			weight.SetRow(i, row)
		}
	} else {
		for i := 0; i < nv; i++ {
			for j := 0; j < ns; j++ {
				weight.Set(i, j, 1)
			}
		}
	}

	s = d.dataset.Samples
	poles = models.PolesToComplex(d.dataset.InitialPoles)
	return f, weight, s, poles
}

// resultDoc builds the on-disk form of the last fit.
func (d *Driver) resultDoc() *models.ResultDoc {
	doc := &models.ResultDoc{
		Version:    vectfit.Version,
		Iterations: d.metrics.Iterations,
		RMSError:   d.result.RMSErr,
		Poles:      models.PolesFromComplex(d.result.Poles),
	}

	if d.result.Residues != nil {
		nv, n := d.result.Residues.Dims()
		doc.Residues = make([][]models.Pole, nv)
		for i := 0; i < nv; i++ {
			row := make([]models.Pole, n)
			for j := 0; j < n; j++ {
				r := d.result.Residues.At(i, j)
				row[j] = models.Pole{Re: real(r), Im: imag(r)}
			}
			doc.Residues[i] = row
		}
	}

	if d.result.Polys != nil {
		nv, _ := d.result.Polys.Dims()
		doc.Polynomials = make([][]float64, nv)
		for i := 0; i < nv; i++ {
			doc.Polynomials[i] = mat.Row(nil, i, d.result.Polys)
		}
	}

	if d.params.IncludeFit && d.result.Fit != nil {
		nv, _ := d.result.Fit.Dims()
		doc.Fit = make([][]float64, nv)
		for i := 0; i < nv; i++ {
			doc.Fit[i] = mat.Row(nil, i, d.result.Fit)
		}
	}

	return doc
}
