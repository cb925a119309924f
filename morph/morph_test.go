package morph

import (
	"testing"

	"rescribe.xyz/ite/raster"
)

func TestDilateErodeOnImpulse(t *testing.T) {
	r, _ := raster.New(9, 9, 1)
	r.Set(4, 4, 0, 255)

	dilated := Dilate(r, 1)
	// a single bright impulse should spread to its full 3x3
	// neighbourhood under dilation with r=1
	for y := 3; y <= 5; y++ {
		for x := 3; x <= 5; x++ {
			if dilated.At(x, y, 0) != 255 {
				t.Errorf("Dilate: (%d,%d) = %d, want 255", x, y, dilated.At(x, y, 0))
			}
		}
	}
	if dilated.At(0, 0, 0) != 0 {
		t.Error("Dilate should not affect pixels far from the impulse")
	}

	eroded := Erode(dilated, 1)
	if eroded.At(4, 4, 0) != 255 {
		t.Error("Erode after Dilate should still keep the centre bright")
	}
}

func TestDilateIdentityForNonPositiveRadius(t *testing.T) {
	r, _ := raster.New(4, 4, 1)
	r.Set(1, 1, 0, 100)
	out := Dilate(r, 0)
	if out.At(1, 1, 0) != 100 {
		t.Error("r<=0 should be identity")
	}
}

func TestErodeRemovesThinImpulseToZero(t *testing.T) {
	r, _ := raster.New(9, 9, 1)
	for i := range r.Pix {
		r.Pix[i] = 255
	}
	r.Set(4, 4, 0, 0) // a single dark speck on a white field
	eroded := Erode(r, 1)
	// min over any 3x3 window touching the speck includes the 0, so
	// every pixel in that neighbourhood should erode to 0
	if eroded.At(4, 4, 0) != 0 {
		t.Error("centre should erode to 0")
	}
	if eroded.At(0, 0, 0) != 255 {
		t.Error("far corner should remain 255")
	}
}

func TestDespeckleRemovesBelowThreshold(t *testing.T) {
	w, h := 10, 10
	r, _ := raster.New(w, h, 1)
	for i := range r.Pix {
		r.Pix[i] = 255
	}
	// a 1-pixel speck (size 1, foreground = 0)
	r.Set(1, 1, 0, 0)
	// a 3x3 solid block (size 9, should survive)
	for y := 5; y <= 7; y++ {
		for x := 5; x <= 7; x++ {
			r.Set(x, y, 0, 0)
		}
	}

	out, err := Despeckle(r, 4, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.At(1, 1, 0) != 255 {
		t.Error("1-pixel speck should be removed (set back to background)")
	}
	if out.At(6, 6, 0) != 0 {
		t.Error("3x3 block should survive the size threshold")
	}
	if !raster.IsBinary(out) {
		t.Error("Despeckle output must remain binary")
	}
}

func TestDespeckleRejectsNonBinary(t *testing.T) {
	r, _ := raster.New(4, 4, 1)
	r.Set(0, 0, 0, 128)
	if _, err := Despeckle(r, 1, false); err == nil {
		t.Error("expected error for non-binary input")
	}
}

func TestDespeckleDiagonalConnectivity(t *testing.T) {
	w, h := 6, 6
	r, _ := raster.New(w, h, 1)
	for i := range r.Pix {
		r.Pix[i] = 255
	}
	// two diagonally-touching pixels: connected under 8-connectivity
	// (one component, size 2) but separate under 4-connectivity (two
	// components, size 1 each)
	r.Set(2, 2, 0, 0)
	r.Set(3, 3, 0, 0)

	out4, _ := Despeckle(r, 2, false)
	if out4.At(2, 2, 0) != 255 || out4.At(3, 3, 0) != 255 {
		t.Error("under 4-connectivity both diagonal specks are size 1 and should be removed at threshold 2")
	}

	out8, _ := Despeckle(r, 2, true)
	if out8.At(2, 2, 0) != 0 || out8.At(3, 3, 0) != 0 {
		t.Error("under 8-connectivity the diagonal pair is one component of size 2 and should survive threshold 2")
	}
}
