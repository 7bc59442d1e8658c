package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"vectfit/pkg/config"
	"vectfit/pkg/driver"
	"vectfit/pkg/vectfit"
)

func main() {
	// Parse command line arguments
	inputFile := flag.String("input", "", "YAML dataset with samples, responses, and initial poles")
	outputFile := flag.String("output", "", "Output result filename (default: from config)")
	configFile := flag.String("config", "vectfit.yaml", "Optional configuration file")
	iterations := flag.Int("iterations", 0, "Number of pole relocation passes (default: from config)")
	nPolys := flag.Int("npolys", -1, "Number of polynomial terms, 0-11 (default: from config)")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (default: from config)")
	skipPole := flag.Bool("skip-pole", false, "Fit residues against the initial poles without relocation")
	flag.Parse()

	// Validate inputs
	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Command line flags override the configuration file
	if *iterations > 0 {
		cfg.Fitting.Iterations = *iterations
	}
	if *nPolys >= 0 {
		cfg.Fitting.NPolys = *nPolys
	}
	if *numCores > 0 {
		cfg.Fitting.NumCores = *numCores
	}
	if *skipPole {
		cfg.Fitting.SkipPole = true
	}
	if *outputFile != "" {
		cfg.Output.ResultFile = *outputFile
	}

	params := &driver.Params{
		InputFile:  *inputFile,
		OutputFile: cfg.Output.ResultFile,
		NumCores:   cfg.Fitting.NumCores,
		Iterations: cfg.Fitting.Iterations,
		NPolys:     cfg.Fitting.NPolys,
		SkipPole:   cfg.Fitting.SkipPole,
		IncludeFit: cfg.Output.IncludeFit,
	}

	d := driver.New(params)

	if cfg.Output.Verbose {
		fmt.Printf("vectfit %s: fitting %s (%d passes, %d polynomial terms)\n",
			vectfit.Version, *inputFile, params.Iterations, params.NPolys)
	}

	if err := d.Run(); err != nil {
		log.Fatalf("Fitting failed: %v", err)
	}

	metrics := d.Metrics()
	if cfg.Output.Verbose {
		for i, rms := range metrics.RMSHistory {
			fmt.Printf("  pass %d: rms error %.6e\n", i+1, rms)
		}
	}
	fmt.Printf("Final RMS error: %.6e (%d passes in %.3fs)\n",
		metrics.FinalRMS, metrics.Iterations, metrics.Elapsed.Seconds())
	if params.OutputFile != "" {
		fmt.Printf("Result written to: %s\n", params.OutputFile)
	}
}
