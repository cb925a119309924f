package ite

import (
	"time"

	"rescribe.xyz/ite/binarize"
	"rescribe.xyz/ite/colour"
	"rescribe.xyz/ite/filter"
	"rescribe.xyz/ite/geometry"
	"rescribe.xyz/ite/morph"
	"rescribe.xyz/ite/raster"
)

// Enhance runs the fixed pipeline
//
//	load -> luma -> [deskew] -> contrast-stretch -> [adaptive-gaussian|gaussian]
//	     -> [median] -> [adaptive-median] -> binarize -> [despeckle]
//	     -> [dilation] -> [erosion] -> [colour-pass] -> save
//
// over src according to opts, recording per-stage timings into log if
// log is non-nil. It never mutates src; on any precondition failure it
// returns a *Error naming the offending stage and leaves no partial
// state behind.
func Enhance(src *raster.Raster, opts Options, log *TimingLog) (*raster.Raster, error) {
	r := src.Clone()

	var colourCopy *raster.Raster
	if opts.DoColourPass && r.C >= 3 {
		colourCopy = r.Clone()
	}

	if opts.DoDeskew {
		start := time.Now()
		deskewed, err := geometry.Deskew(r)
		if err != nil {
			return nil, newError("deskew", InvalidParameter, err)
		}
		r = deskewed
		if colourCopy != nil {
			colourCopy, err = geometry.Deskew(colourCopy)
			if err != nil {
				return nil, newError("deskew", InvalidParameter, err)
			}
		}
		log.record("deskew", start)
	}

	start := time.Now()
	luma, err := colour.ToLuma(r)
	if err != nil {
		return nil, newError("to_luma", WrongChannelCount, err)
	}
	r = luma
	log.record("to_luma", start)

	start = time.Now()
	stretched, err := colour.ContrastStretch(r)
	if err != nil {
		return nil, newError("contrast_stretch", WrongChannelCount, err)
	}
	r = stretched
	log.record("contrast_stretch", start)

	if opts.DoAdaptiveGaussianBlur {
		start = time.Now()
		r = filter.AdaptiveGaussian(r, opts.AdaptiveSigmaLow, opts.AdaptiveSigmaHigh, opts.AdaptiveEdgeThresh, opts.BoundaryConditions)
		log.record("adaptive_gaussian_blur", start)
	} else if opts.DoGaussianBlur {
		if opts.Sigma <= 0 {
			return nil, newError("gaussian_blur", InvalidParameter, nil)
		}
		start = time.Now()
		r = filter.Gaussian(r, opts.Sigma, opts.BoundaryConditions)
		log.record("gaussian_blur", start)
	}

	if opts.DoMedianBlur {
		if opts.MedianKernelSize <= 0 {
			return nil, newError("median_blur", InvalidParameter, nil)
		}
		start = time.Now()
		r = filter.Median(r, opts.MedianKernelSize, opts.MedianThreshold)
		log.record("median_blur", start)
	}

	if opts.DoAdaptiveMedian {
		if opts.AdaptiveMedianMaxWindow%2 == 0 {
			return nil, newError("adaptive_median", InvalidParameter, nil)
		}
		start = time.Now()
		r = filter.AdaptiveMedian(r, opts.AdaptiveMedianMaxWindow)
		log.record("adaptive_median", start)
	}

	start = time.Now()
	binary, err := binarize.Run(r, opts.Method, binarize.Params{
		Window: opts.SauvolaWindowSize,
		K:      opts.SauvolaK,
		Delta:  opts.SauvolaDelta,
	})
	if err != nil {
		return nil, newError("binarize", WrongChannelCount, err)
	}
	r = binary
	log.record("binarize", start)

	if opts.DoDespeckle {
		start = time.Now()
		despeckled, err := morph.Despeckle(r, opts.DespeckleThreshold, opts.DiagonalConnections)
		if err != nil {
			return nil, newError("despeckle", WrongChannelCount, err)
		}
		r = despeckled
		log.record("despeckle", start)
	}

	if opts.DoDilation {
		radius := opts.KernelSize / 2
		start = time.Now()
		r = morph.Dilate(r, radius)
		log.record("dilation", start)
	}

	if opts.DoErosion {
		radius := opts.KernelSize / 2
		start = time.Now()
		r = morph.Erode(r, radius)
		log.record("erosion", start)
	}

	if opts.DoColourPass {
		if colourCopy == nil {
			// Silently disabled per the driver's documented state
			// machine: colour-pass has no effect on a single-channel
			// source, so there is nothing to composite onto.
			return r, nil
		}
		start = time.Now()
		composited, err := colour.Pass(r, colourCopy)
		if err != nil {
			return nil, newError("colour_pass", DimensionMismatch, err)
		}
		r = composited
		log.record("colour_pass", start)
	}

	return r, nil
}
