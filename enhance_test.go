package ite

import (
	"testing"

	"rescribe.xyz/ite/binarize"
	"rescribe.xyz/ite/raster"
)

func solidRaster(w, h, c int, v uint16) *raster.Raster {
	r, _ := raster.New(w, h, c)
	for i := range r.Pix {
		r.Pix[i] = v
	}
	return r
}

func TestEnhanceDefaultsProducesBinaryOutput(t *testing.T) {
	r := solidRaster(40, 40, 3, 180)
	// a dark square to give Bataineh/Otsu something to threshold
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			for c := 0; c < 3; c++ {
				r.Set(x, y, c, 20)
			}
		}
	}

	opts := Defaults()
	out, err := Enhance(r, opts, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !raster.IsBinary(out) {
		t.Error("default pipeline ends in binarize+despeckle, output must be binary")
	}
}

func TestEnhanceRecordsTimingForEachRunStage(t *testing.T) {
	r := solidRaster(20, 20, 1, 128)
	opts := Defaults()
	opts.DoGaussianBlur = true
	opts.Sigma = 1.0
	opts.DoDespeckle = false

	log := &TimingLog{}
	_, err := Enhance(r, opts, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawGaussian, sawBinarize bool
	for _, s := range log.Stages {
		if s.Stage == "gaussian_blur" {
			sawGaussian = true
		}
		if s.Stage == "binarize" {
			sawBinarize = true
		}
	}
	if !sawGaussian {
		t.Error("expected a gaussian_blur timing entry")
	}
	if !sawBinarize {
		t.Error("expected a binarize timing entry")
	}
}

func TestEnhanceRejectsInvalidAdaptiveMedianWindow(t *testing.T) {
	r := solidRaster(10, 10, 1, 100)
	opts := Defaults()
	opts.DoAdaptiveMedian = true
	opts.AdaptiveMedianMaxWindow = 6 // even: invalid

	_, err := Enhance(r, opts, nil)
	if err == nil {
		t.Fatal("expected an error for an even adaptive-median window")
	}
	ierr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *ite.Error, got %T", err)
	}
	if ierr.Kind != InvalidParameter {
		t.Errorf("Kind = %v, want InvalidParameter", ierr.Kind)
	}
}

func TestEnhanceColourPassWhitensBackground(t *testing.T) {
	r := solidRaster(30, 30, 3, 200)
	for y := 13; y < 17; y++ {
		for x := 13; x < 17; x++ {
			for c := 0; c < 3; c++ {
				r.Set(x, y, c, 10)
			}
		}
	}

	opts := Defaults()
	opts.Method = binarize.Otsu
	opts.DoColourPass = true
	opts.DoDespeckle = false

	out, err := Enhance(r, opts, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.C != 3 {
		t.Fatalf("colour-pass output must stay 3-channel, got %d", out.C)
	}
	// a corner far from the dark square should end up forced white
	if out.At(0, 0, 0) != 255 || out.At(0, 0, 1) != 255 || out.At(0, 0, 2) != 255 {
		t.Error("background corner should be forced white by colour-pass")
	}
}

func TestEnhanceDoesNotMutateSource(t *testing.T) {
	r := solidRaster(10, 10, 1, 128)
	original := r.Clone()
	opts := Defaults()
	_, err := Enhance(r, opts, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range r.Pix {
		if r.Pix[i] != original.Pix[i] {
			t.Fatal("Enhance must not mutate its source raster")
		}
	}
}
