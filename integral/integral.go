// Package integral builds and queries summed-area tables (integral
// images). Every adaptive binarizer and local-statistics filter in ite
// depends on O(1) rectangle sums, rather than re-scanning a window per
// pixel; this package is the one place that cost is paid, once per
// source raster.
//
// Grounded on rescribe-bookpipeline/integralimg/integralimg.go's
// ToIntegralImg/ToSqIntegralImg, generalized from image.Gray to
// raster.Raster planes and parallelized row-then-column.
package integral

import (
	"math"

	"rescribe.xyz/ite/internal/workpool"
	"rescribe.xyz/ite/raster"
)

// Table is a (W+1) x (H+1) summed-area table, row-major. Table[0][*] and
// Table[*][0] are always 0, so a rectangle sum reduces to four lookups.
type Table struct {
	W, H int
	Sum  []float64
}

// Pair bundles a table of raw sums with a table of squared-sample sums,
// the combination Sauvola and Bataineh both need to get a local mean and
// standard deviation in O(1).
type Pair struct {
	Sum   Table
	SumSq Table
}

func newTable(w, h int) Table {
	return Table{W: w, H: h, Sum: make([]float64, (w+1)*(h+1))}
}

func (t Table) at(x, y int) float64 {
	return t.Sum[y*(t.W+1)+x]
}

func (t Table) set(x, y int, v float64) {
	t.Sum[y*(t.W+1)+x] = v
}

// Build constructs the integral image of a single-channel raster plane.
func Build(src *raster.Raster, z int) Table {
	return build(src, z, false)
}

// BuildSq constructs the integral image of the squares of a single-channel
// raster plane.
func BuildSq(src *raster.Raster, z int) Table {
	return build(src, z, true)
}

// BuildSumAndSq builds both the sum and sum-of-squares tables for plane z
// in one call, the form Sauvola and Bataineh consume.
func BuildSumAndSq(src *raster.Raster, z int) Pair {
	return Pair{Sum: Build(src, z), SumSq: BuildSq(src, z)}
}

func build(src *raster.Raster, z int, squared bool) Table {
	w, h := src.W, src.H
	t := newTable(w, h)
	plane := src.Plane(z)

	// Pass 1: row-prefix scan, parallel over rows (each row is
	// independent).
	rowPrefix := make([]float64, w*h)
	workpool.Rows(h, 0, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			var running float64
			row := plane[y*w : y*w+w]
			out := rowPrefix[y*w : y*w+w]
			for x := 0; x < w; x++ {
				v := float64(row[x])
				if squared {
					v *= v
				}
				running += v
				out[x] = running
			}
		}
	})

	// Pass 2: column-prefix scan over the row-prefixed values, parallel
	// over columns (each column is independent). Writes directly into
	// the padded table, offset by one in both axes.
	workpool.Rows(w, 0, func(x0, x1 int) {
		for x := x0; x < x1; x++ {
			var running float64
			for y := 0; y < h; y++ {
				running += rowPrefix[y*w+x]
				t.set(x+1, y+1, running)
			}
		}
	})

	return t
}

// RectSum returns the inclusive sum of the rectangle [x1,x2] x [y1,y2],
//0 <= x1 <= x2 < W, 0 <= y1 <= y2 < H, in O(1).
func (t Table) RectSum(x1, y1, x2, y2 int) float64 {
	return t.at(x2+1, y2+1) - t.at(x1, y2+1) - t.at(x2+1, y1) + t.at(x1, y1)
}

// MeanStdDev returns the mean and standard deviation of the window
// clamped to [x-half, x+half] x [y-half, y+half] within the raster's
// bounds, using the paired sum/sum-of-squares tables.
func (p Pair) MeanStdDev(x, y, half int) (mean, stddev float64) {
	w, h := p.Sum.W, p.Sum.H
	x1, y1 := clampLo(x-half), clampLo(y-half)
	x2, y2 := clampHi(x+half, w), clampHi(y+half, h)
	n := float64((x2 - x1 + 1) * (y2 - y1 + 1))
	sum := p.Sum.RectSum(x1, y1, x2, y2)
	sumSq := p.SumSq.RectSum(x1, y1, x2, y2)
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// MeanStdDevRect is like MeanStdDev but takes an explicit, already-clamped
// rectangle instead of a centre and half-window, for callers (Bataineh)
// that need asymmetric or sub-windows.
func (p Pair) MeanStdDevRect(x1, y1, x2, y2 int) (mean, stddev float64) {
	n := float64((x2 - x1 + 1) * (y2 - y1 + 1))
	sum := p.Sum.RectSum(x1, y1, x2, y2)
	sumSq := p.SumSq.RectSum(x1, y1, x2, y2)
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// BuildMaskCount constructs an integral count table over a boolean
// predicate evaluated per-sample of plane z, so that the number of
// pixels satisfying the predicate within any rectangle can be looked up
// in O(1). Used by Bataineh binarization to count black/red-classified
// pixels inside a candidate window without a per-pixel rescan.
func BuildMaskCount(src *raster.Raster, z int, pred func(sample uint16) bool) Table {
	w, h := src.W, src.H
	t := newTable(w, h)
	plane := src.Plane(z)

	rowPrefix := make([]float64, w*h)
	workpool.Rows(h, 0, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			var running float64
			row := plane[y*w : y*w+w]
			out := rowPrefix[y*w : y*w+w]
			for x := 0; x < w; x++ {
				if pred(row[x]) {
					running += 1
				}
				out[x] = running
			}
		}
	})

	workpool.Rows(w, 0, func(x0, x1 int) {
		for x := x0; x < x1; x++ {
			var running float64
			for y := 0; y < h; y++ {
				running += rowPrefix[y*w+x]
				t.set(x+1, y+1, running)
			}
		}
	})

	return t
}

func clampLo(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clampHi(v, limit int) int {
	if v > limit-1 {
		return limit - 1
	}
	return v
}
