// iteproc runs the image-text-enhancement pipeline over a single image
// file, optionally repeating it for benchmarking and emitting a
// per-stage timing chart.
//
// Grounded on rescribe-bookpipeline's preproc/cmd/preproc/main.go and
// binarize/main.go for their flag-based CLI style; errors go to standard
// error and end the run with os.Exit (2 for argument errors, 1 otherwise).
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log"
	"os"
	"time"

	"rescribe.xyz/ite"
	"rescribe.xyz/ite/binarize"
	"rescribe.xyz/ite/raster"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: iteproc --input <path> --output <path> [options]\n")
		fmt.Fprintf(os.Stderr, "Run the image-text-enhancement pipeline over an image.\n\n")
		flag.PrintDefaults()
	}

	input := flag.String("input", "", "Input image path (required)")
	output := flag.String("output", "", "Output image path (required)")

	method := flag.String("method", "bataineh", "Binarization method: otsu, sauvola or bataineh")
	doDeskew := flag.Bool("deskew", false, "Run skew detection and correction before contrast-stretch")

	doGaussian := flag.Bool("gaussian", false, "Apply a simple Gaussian blur")
	sigma := flag.Float64("sigma", 1.0, "Sigma for -gaussian")

	doAdaptiveGaussian := flag.Bool("adaptive-gaussian", false, "Apply the edge-adaptive Gaussian blend (overrides -gaussian)")
	sigmaLow := flag.Float64("adaptive-sigma-low", 0.5, "Low sigma for -adaptive-gaussian")
	sigmaHigh := flag.Float64("adaptive-sigma-high", 2.0, "High sigma for -adaptive-gaussian")
	edgeThresh := flag.Float64("adaptive-edge-thresh", 30.0, "Edge threshold for -adaptive-gaussian")

	doMedian := flag.Bool("median", false, "Apply a median filter")
	medianKernelSize := flag.Int("median-kernel-size", 3, "Odd kernel size for -median")
	medianThreshold := flag.Int("median-threshold", 0, "Only replace a pixel if it differs from the window median by more than this for -median")
	doAdaptiveMedian := flag.Bool("adaptive-median", false, "Apply the adaptive median filter")
	adaptiveMedianMaxWindow := flag.Int("adaptive-median-max-window", 7, "Maximum odd window size for -adaptive-median")

	boundaryConditions := flag.Int("boundary-conditions", 1, "Gaussian blur boundary: 0 = zero/Dirichlet, 1 = replicate/Neumann")

	sauvolaWindow := flag.Int("sauvola-window", 15, "Window size for Sauvola binarization")
	sauvolaK := flag.Float64("sauvola-k", 0.2, "K for Sauvola binarization")
	sauvolaDelta := flag.Float64("sauvola-delta", 0.0, "Delta for Sauvola binarization")

	doDespeckle := flag.Bool("despeckle", true, "Remove small connected components after binarization")
	despeckleThreshold := flag.Int("despeckle-threshold", 0, "Minimum surviving component size for -despeckle")
	diagonalConnections := flag.Bool("diagonal-connections", true, "Use 8-connectivity (rather than 4) for despeckle's component labelling")

	doDilation := flag.Bool("dilation", false, "Apply morphological dilation after binarization")
	doErosion := flag.Bool("erosion", false, "Apply morphological erosion after binarization")
	kernelSize := flag.Int("kernel-size", 5, "Structuring element side for -dilation/-erosion")

	doColourPass := flag.Bool("colour-pass", false, "Composite the binary mask back onto the original colour image")

	trials := flag.Int("trials", 1, "Number of times to repeat the pipeline, for benchmarking")
	warmup := flag.Int("warmup", 0, "Number of untimed warmup runs before the timed trials")
	timeLimitMinutes := flag.Float64("time-limit", 0, "Abort remaining trials after this many minutes (0 = unlimited)")
	verbose := flag.Bool("verbose", false, "Print progress to standard error")
	showTime := flag.Bool("time", false, "Print a per-stage timing breakdown, and write a bar chart to <output base>.timing.png")

	flag.Parse()

	if *input == "" || *output == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *trials < 1 {
		fmt.Fprintln(os.Stderr, "iteproc: -trials must be a positive integer")
		os.Exit(2)
	}

	m, err := parseMethod(*method)
	if err != nil {
		fmt.Fprintf(os.Stderr, "iteproc: %v\n", err)
		os.Exit(2)
	}

	opts := ite.Defaults()
	opts.Method = m
	opts.DoDeskew = *doDeskew
	opts.DoGaussianBlur = *doGaussian
	opts.Sigma = *sigma
	opts.DoAdaptiveGaussianBlur = *doAdaptiveGaussian
	opts.AdaptiveSigmaLow = *sigmaLow
	opts.AdaptiveSigmaHigh = *sigmaHigh
	opts.AdaptiveEdgeThresh = *edgeThresh
	opts.DoMedianBlur = *doMedian
	opts.MedianKernelSize = *medianKernelSize
	opts.MedianThreshold = *medianThreshold
	opts.DoAdaptiveMedian = *doAdaptiveMedian
	opts.AdaptiveMedianMaxWindow = *adaptiveMedianMaxWindow
	opts.BoundaryConditions = *boundaryConditions
	opts.SauvolaWindowSize = *sauvolaWindow
	opts.SauvolaK = *sauvolaK
	opts.SauvolaDelta = *sauvolaDelta
	opts.DoDespeckle = *doDespeckle
	opts.DespeckleThreshold = *despeckleThreshold
	opts.DiagonalConnections = *diagonalConnections
	opts.DoDilation = *doDilation
	opts.DoErosion = *doErosion
	opts.KernelSize = *kernelSize
	opts.DoColourPass = *doColourPass

	src, err := loadRaster(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "iteproc: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < *warmup; i++ {
		if *verbose {
			log.Printf("warmup %d/%d", i+1, *warmup)
		}
		if _, err := ite.Enhance(src, opts, nil); err != nil {
			fmt.Fprintf(os.Stderr, "iteproc: warmup run failed: %v\n", err)
			os.Exit(1)
		}
	}

	var timeLimit time.Duration
	if *timeLimitMinutes > 0 {
		timeLimit = time.Duration(*timeLimitMinutes * float64(time.Minute))
	}

	var result *raster.Raster
	var log_ *ite.TimingLog
	runStart := time.Now()

	for i := 0; i < *trials; i++ {
		if timeLimit > 0 && time.Since(runStart) > timeLimit {
			if *verbose {
				fmt.Fprintf(os.Stderr, "iteproc: time limit reached after %d/%d trials\n", i, *trials)
			}
			break
		}
		if *verbose {
			log.Printf("trial %d/%d", i+1, *trials)
		}

		var tl *ite.TimingLog
		if *showTime {
			tl = &ite.TimingLog{}
		}

		out, err := ite.Enhance(src, opts, tl)
		if err != nil {
			fmt.Fprintf(os.Stderr, "iteproc: %v\n", err)
			os.Exit(1)
		}
		result = out
		log_ = tl
	}

	if err := saveRaster(*output, result); err != nil {
		fmt.Fprintf(os.Stderr, "iteproc: %v\n", err)
		os.Exit(1)
	}

	if *showTime && log_ != nil {
		printTiming(log_)
		if err := writeTimingChart(*output, log_); err != nil {
			fmt.Fprintf(os.Stderr, "iteproc: could not write timing chart: %v\n", err)
		}
	}
}

func parseMethod(s string) (binarize.Method, error) {
	switch s {
	case "otsu":
		return binarize.Otsu, nil
	case "sauvola":
		return binarize.Sauvola, nil
	case "bataineh":
		return binarize.Bataineh, nil
	default:
		return 0, fmt.Errorf("unknown -method %q (want otsu, sauvola or bataineh)", s)
	}
}

func printTiming(log *ite.TimingLog) {
	for _, s := range log.Stages {
		fmt.Fprintf(os.Stderr, "%-24s %v\n", s.Stage, s.Duration)
	}
	fmt.Fprintf(os.Stderr, "%-24s %v\n", "total", log.Total())
}

func loadRaster(path string) (*raster.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", path, err)
	}

	return imageToRaster(img), nil
}

func saveRaster(path string, r *raster.Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", path, err)
	}
	defer f.Close()

	return png.Encode(f, rasterToImage(r))
}
