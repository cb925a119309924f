package raster

import "testing"

func TestNewValidatesDims(t *testing.T) {
	if _, err := New(0, 5, 1); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := New(5, 5, 2); err == nil {
		t.Error("expected error for invalid channel count 2")
	}
	r, err := New(3, 2, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Pix) != 3*2*3 {
		t.Errorf("got %d pixels, want %d", len(r.Pix), 3*2*3)
	}
}

func TestAtSet(t *testing.T) {
	r, _ := New(4, 3, 3)
	r.Set(1, 2, 0, 10)
	r.Set(1, 2, 2, 99)
	if got := r.At(1, 2, 0); got != 10 {
		t.Errorf("At(1,2,0)=%d, want 10", got)
	}
	if got := r.At(1, 2, 2); got != 99 {
		t.Errorf("At(1,2,2)=%d, want 99", got)
	}
	// channels are independent planes
	if got := r.At(1, 2, 1); got != 0 {
		t.Errorf("At(1,2,1)=%d, want 0", got)
	}
}

func TestSwap(t *testing.T) {
	a, _ := New(2, 2, 1)
	b, _ := New(2, 2, 1)
	a.Set(0, 0, 0, 5)
	b.Set(0, 0, 0, 9)
	a.Swap(b)
	if a.At(0, 0, 0) != 9 || b.At(0, 0, 0) != 5 {
		t.Error("Swap did not exchange backing state")
	}
}

func TestChannelSplitAppend(t *testing.T) {
	r, _ := New(2, 2, 3)
	for c := 0; c < 3; c++ {
		r.Set(0, 0, c, uint16(c+1))
	}
	planes := r.ChannelSplit()
	if len(planes) != 3 {
		t.Fatalf("got %d planes, want 3", len(planes))
	}
	joined, err := ChannelAppend(planes...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for c := 0; c < 3; c++ {
		if joined.At(0, 0, c) != uint16(c+1) {
			t.Errorf("channel %d = %d, want %d", c, joined.At(0, 0, c), c+1)
		}
	}
}

func TestIsBinary(t *testing.T) {
	r, _ := New(2, 2, 1)
	r.Set(0, 0, 0, 255)
	if !IsBinary(r) {
		t.Error("all-zero-and-255 raster should be binary")
	}
	r.Set(1, 1, 0, 128)
	if IsBinary(r) {
		t.Error("raster with a 128 sample should not be binary")
	}
	rgb, _ := New(2, 2, 3)
	if IsBinary(rgb) {
		t.Error("3-channel raster should never be considered binary")
	}
}
