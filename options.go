// Package ite drives the image-text-enhancement pipeline: it takes a
// decoded raster and an Options record, runs the fixed ordered sequence
// of stages the option record enables, and returns the enhanced raster.
// It owns no ambient state; every parameter arrives through Options.
//
// Grounded on rescribe-bookpipeline's internal/pipeline package for its
// stage-sequencing and typed-error-propagation style, generalized from
// a channel-driven OCR job pipeline to a synchronous raster-in,
// raster-out function.
package ite

import "rescribe.xyz/ite/binarize"

// Options configures a single Enhance call. Every field is optional;
// the zero value plus Defaults() gives the documented default pipeline.
type Options struct {
	Method binarize.Method

	DoDeskew bool

	DoGaussianBlur bool
	Sigma          float64

	DoAdaptiveGaussianBlur bool // overrides DoGaussianBlur when true
	AdaptiveSigmaLow       float64
	AdaptiveSigmaHigh      float64
	AdaptiveEdgeThresh     float64

	DoMedianBlur      bool
	MedianKernelSize  int
	MedianThreshold   int

	DoAdaptiveMedian         bool
	AdaptiveMedianMaxWindow  int

	SauvolaWindowSize int
	SauvolaK          float64
	SauvolaDelta      float64

	DoDespeckle          bool
	DespeckleThreshold   int
	DiagonalConnections  bool

	DoDilation bool
	DoErosion  bool
	KernelSize int

	DoColourPass bool

	// BoundaryConditions selects the Gaussian/adaptive-Gaussian blur's
	// out-of-raster sample policy: 0 = zero/Dirichlet, 1 =
	// replicate/Neumann (see filter.BoundaryZero/filter.BoundaryReplicate).
	BoundaryConditions int
}

// Defaults returns the documented default option record: Bataineh
// binarization, despeckling enabled with diagonal connectivity and a
// zero size threshold, every optional filter/morphology stage off.
func Defaults() Options {
	return Options{
		Method: binarize.Bataineh,

		Sigma: 1.0,

		AdaptiveSigmaLow:   0.5,
		AdaptiveSigmaHigh:  2.0,
		AdaptiveEdgeThresh: 30.0,

		MedianKernelSize: 3,
		MedianThreshold:  0,

		AdaptiveMedianMaxWindow: 7,

		SauvolaWindowSize: 15,
		SauvolaK:          0.2,
		SauvolaDelta:      0.0,

		DoDespeckle:         true,
		DespeckleThreshold:  0,
		DiagonalConnections: true,

		KernelSize: 5,

		BoundaryConditions: 1,
	}
}
