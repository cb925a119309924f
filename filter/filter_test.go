package filter

import (
	"testing"

	"rescribe.xyz/ite/raster"
)

func TestGaussianEnergyBounds(t *testing.T) {
	r, _ := raster.New(9, 9, 1)
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			r.Set(x, y, 0, 100)
		}
	}
	out := Gaussian(r, 1.5, BoundaryReplicate)
	for i, v := range out.Pix {
		if v != 100 {
			t.Fatalf("pixel %d = %d, want 100 for a constant field (energy-preserving blur)", i, v)
		}
	}
}

func TestGaussianZeroSigmaIsNoOp(t *testing.T) {
	r, _ := raster.New(4, 4, 1)
	r.Set(1, 1, 0, 77)
	out := Gaussian(r, 0, BoundaryReplicate)
	if out.At(1, 1, 0) != 77 {
		t.Errorf("sigma<=0 should be a no-op copy, got %d", out.At(1, 1, 0))
	}
}

func TestGaussianZeroBoundaryDarkensEdge(t *testing.T) {
	r, _ := raster.New(9, 9, 1)
	for i := range r.Pix {
		r.Pix[i] = 200
	}
	replicate := Gaussian(r, 2.0, BoundaryReplicate)
	zero := Gaussian(r, 2.0, BoundaryZero)
	if replicate.At(0, 0, 0) != 200 {
		t.Errorf("replicate boundary corner = %d, want 200 (constant field unchanged)", replicate.At(0, 0, 0))
	}
	if zero.At(0, 0, 0) >= 200 {
		t.Errorf("zero boundary corner = %d, want < 200 (pulled toward the implicit 0 border)", zero.At(0, 0, 0))
	}
}

func TestAdaptiveGaussianFallsBackWhenNotAdaptive(t *testing.T) {
	r, _ := raster.New(5, 5, 1)
	for i := range r.Pix {
		r.Pix[i] = 50
	}
	got := AdaptiveGaussian(r, 1.0, 1.0, 40, BoundaryReplicate) // sigmaHigh == sigmaLow: not > , falls back
	want := Gaussian(r, 1.0, BoundaryReplicate)
	for i := range got.Pix {
		if got.Pix[i] != want.Pix[i] {
			t.Fatalf("fallback mismatch at %d: got %d want %d", i, got.Pix[i], want.Pix[i])
		}
	}
}

func TestMedianRemovesImpulse(t *testing.T) {
	r, _ := raster.New(5, 5, 1)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			r.Set(x, y, 0, 100)
		}
	}
	r.Set(2, 2, 0, 0) // salt-and-pepper impulse at the centre
	out := Median(r, 3, 0)
	if out.At(2, 2, 0) != 100 {
		t.Errorf("centre impulse = %d, want 100 (removed by neighbourhood median)", out.At(2, 2, 0))
	}
}

func TestMedianLargerKernelRemovesWiderImpulse(t *testing.T) {
	r, _ := raster.New(9, 9, 1)
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			r.Set(x, y, 0, 100)
		}
	}
	for y := 3; y <= 5; y++ {
		for x := 3; x <= 5; x++ {
			r.Set(x, y, 0, 0)
		}
	}
	out := Median(r, 5, 0)
	if out.At(4, 4, 0) != 100 {
		t.Errorf("centre of 3x3 impulse block under a 5x5 median = %d, want 100", out.At(4, 4, 0))
	}
}

func TestMedianThresholdPreservesSmallDeviations(t *testing.T) {
	r, _ := raster.New(5, 5, 1)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			r.Set(x, y, 0, 100)
		}
	}
	r.Set(2, 2, 0, 95) // within threshold of the neighbourhood median
	out := Median(r, 3, 10)
	if out.At(2, 2, 0) != 95 {
		t.Errorf("pixel within threshold of median = %d, want 95 (left untouched)", out.At(2, 2, 0))
	}
}

func TestAdaptiveMedianMajorityVote(t *testing.T) {
	w, h := 11, 11
	r, _ := raster.New(w, h, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.Set(x, y, 0, 200)
		}
	}
	// a cluster of impulses wider than 3x3 so the filter must grow its
	// window past the fast path to recover the majority value
	for y := 4; y <= 6; y++ {
		for x := 4; x <= 6; x++ {
			r.Set(x, y, 0, 0)
		}
	}
	out := AdaptiveMedian(r, 9)
	if out.At(5, 5, 0) != 200 {
		t.Errorf("centre of impulse cluster = %d, want 200 after window growth", out.At(5, 5, 0))
	}
}

func TestAdaptiveMedianLeavesCleanPixelsUnchanged(t *testing.T) {
	r, _ := raster.New(7, 7, 1)
	for y := 0; y < 7; y++ {
		for x := 0; x < 7; x++ {
			r.Set(x, y, 0, uint16((x+y)%5*10+50))
		}
	}
	out := AdaptiveMedian(r, 7)
	// (3,3) is 60 and its 3x3 neighbourhood spans 50..90 with median 60,
	// so the window is informative and the Stage B "keep original"
	// branch leaves the pixel as it was
	if out.At(3, 3, 0) != r.At(3, 3, 0) {
		t.Errorf("clean pixel changed: got %d, want %d", out.At(3, 3, 0), r.At(3, 3, 0))
	}
}

func TestPickParamsStaysInBounds(t *testing.T) {
	r, _ := raster.New(20, 20, 1)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			v := uint16(128)
			if (x+y)%7 == 0 {
				v = 255
			}
			r.Set(x, y, 0, v)
		}
	}
	p := PickParams(r)
	if p.SigmaLow < 0.50 || p.SigmaLow > 1.25 {
		t.Errorf("SigmaLow = %v out of bounds", p.SigmaLow)
	}
	if p.SigmaHigh < 1.10*0.85 || p.SigmaHigh > 2.80 {
		t.Errorf("SigmaHigh = %v out of bounds", p.SigmaHigh)
	}
	if p.EdgeThresh < 25.0 || p.EdgeThresh > 160.0 {
		t.Errorf("EdgeThresh = %v out of bounds", p.EdgeThresh)
	}
}
