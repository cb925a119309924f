package binarize

import (
	"fmt"

	"rescribe.xyz/ite/integral"
	"rescribe.xyz/ite/internal/workpool"
	"rescribe.xyz/ite/raster"
)

// sauvolaR is the normalization constant for local standard deviation
// (max expected std. dev. for 8-bit samples), matching
// PreCalcedSauvola's original choice.
const sauvolaR = 128.0

// Sauvola_ implements Sauvola's algorithm ("Adaptive document image
// binarization", 2000) using precalculated integral images, the same
// O(1)-per-pixel approach rescribe-bookpipeline's
// preproc.PreCalcedSauvola uses, generalized to raster.Raster.
func Sauvola_(src *raster.Raster, window int, k, delta float64) (*raster.Raster, error) {
	if window < 3 {
		return nil, fmt.Errorf("binarize: Sauvola window must be >= 3, got %d", window)
	}
	half := window / 2

	pair := integral.BuildSumAndSq(src, 0)
	out := newBinary(src.W, src.H)
	plane := src.Plane(0)
	dst := out.Plane(0)

	workpool.Rows(src.H, 0, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < src.W; x++ {
				mean, stddev := pair.MeanStdDev(x, y, half)
				threshold := mean*(1+k*((stddev/sauvolaR)-1)) - delta
				i := y*src.W + x
				if float64(plane[i]) > threshold {
					dst[i] = 255
				} else {
					dst[i] = 0
				}
			}
		}
	})

	return out, nil
}
