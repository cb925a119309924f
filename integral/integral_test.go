package integral

import (
	"math"
	"math/rand"
	"testing"

	"rescribe.xyz/ite/raster"
)

func naiveSum(r *raster.Raster, z, x1, y1, x2, y2 int) float64 {
	var sum float64
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			sum += float64(r.At(x, y, z))
		}
	}
	return sum
}

func TestRectSumMatchesNaive(t *testing.T) {
	r, _ := raster.New(17, 13, 1)
	rng := rand.New(rand.NewSource(1))
	for i := range r.Pix {
		r.Pix[i] = uint16(rng.Intn(256))
	}
	tab := Build(r, 0)

	rects := [][4]int{
		{0, 0, 0, 0},
		{0, 0, 16, 12},
		{3, 2, 9, 8},
		{16, 12, 16, 12},
		{1, 1, 1, 10},
	}
	for _, rect := range rects {
		x1, y1, x2, y2 := rect[0], rect[1], rect[2], rect[3]
		got := tab.RectSum(x1, y1, x2, y2)
		want := naiveSum(r, 0, x1, y1, x2, y2)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("RectSum(%v) = %v, want %v", rect, got, want)
		}
	}
}

func TestMeanStdDevWindow(t *testing.T) {
	r, _ := raster.New(5, 5, 1)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			r.Set(x, y, 0, 100)
		}
	}
	pair := BuildSumAndSq(r, 0)
	mean, std := pair.MeanStdDev(2, 2, 2)
	if mean != 100 {
		t.Errorf("mean = %v, want 100", mean)
	}
	if std != 0 {
		t.Errorf("std = %v, want 0 for a constant image", std)
	}
}

func TestBuildMaskCount(t *testing.T) {
	r, _ := raster.New(4, 4, 1)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if (x+y)%2 == 0 {
				r.Set(x, y, 0, 10)
			} else {
				r.Set(x, y, 0, 200)
			}
		}
	}
	tab := BuildMaskCount(r, 0, func(v uint16) bool { return v < 100 })
	got := tab.RectSum(0, 0, 3, 3)
	want := 8.0 // half of 16 pixels satisfy v < 100
	if got != want {
		t.Errorf("mask count = %v, want %v", got, want)
	}
}
