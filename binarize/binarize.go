// Package binarize implements the three adaptive thresholding variants:
// Otsu with border-polarity detection, Sauvola, and Bataineh. Each takes
// a single-channel raster and returns a fresh binary raster (every
// sample exactly 0 or 255); none of them mutate their input.
//
// Sauvola is grounded on rescribe-bookpipeline's
// preproc/sauvola.go:PreCalcedSauvola, generalized from image.Gray to
// raster.Raster and from integralimg.WithSq to integral.Pair. Otsu and
// Bataineh are grounded on
// original_source/src/lib/binarization/binarization.cpp's
// compute_otsu_threshold/binarize_otsu/binarize_bataineh.
package binarize

import (
	"fmt"

	"rescribe.xyz/ite/internal/workpool"
	"rescribe.xyz/ite/raster"
)

// Method selects which binarization variant Run dispatches to.
type Method int

const (
	Bataineh Method = iota
	Otsu
	Sauvola
)

func (m Method) String() string {
	switch m {
	case Otsu:
		return "otsu"
	case Sauvola:
		return "sauvola"
	case Bataineh:
		return "bataineh"
	default:
		return fmt.Sprintf("binarize.Method(%d)", int(m))
	}
}

// Params bundles the tunables each variant reads; fields not relevant to
// the selected Method are ignored.
type Params struct {
	// Sauvola
	Window int     // odd window side, >= 3
	K      float64 // typical 0.2
	Delta  float64
}

// DefaultSauvolaParams matches the window/k/delta the geometry package
// uses internally to binarize its downscaled skew-detection copy.
func DefaultSauvolaParams() Params {
	return Params{Window: 15, K: 0.2, Delta: 0}
}

// Run dispatches to the selected binarization method. src must be
// single-channel.
func Run(src *raster.Raster, method Method, p Params) (*raster.Raster, error) {
	if src.C != 1 {
		return nil, fmt.Errorf("binarize: %s requires a single-channel raster, got %d channels", method, src.C)
	}
	switch method {
	case Otsu:
		return Otsu_(src)
	case Sauvola:
		return Sauvola_(src, p.Window, p.K, p.Delta)
	case Bataineh:
		return Bataineh_(src)
	default:
		return nil, fmt.Errorf("binarize: unknown method %d", int(method))
	}
}

func newBinary(w, h int) *raster.Raster {
	out, _ := raster.New(w, h, 1)
	return out
}

// Otsu_ computes Otsu's threshold from a 256-bin histogram, maximising
// the between-class variance, then decides foreground polarity from the
// mean sample value of a thin border strip: if the border is brighter
// than the threshold the background is light and dark pixels are
// foreground, and vice versa.
func Otsu_(src *raster.Raster) (*raster.Raster, error) {
	t := otsuThreshold(src)
	borderMean := borderMean(src)
	lightBackground := borderMean > float64(t)

	out := newBinary(src.W, src.H)
	plane := src.Plane(0)
	dst := out.Plane(0)

	workpool.Rows(src.H, 0, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := plane[y*src.W : y*src.W+src.W]
			outRow := dst[y*src.W : y*src.W+src.W]
			for x, v := range row {
				var isForeground bool
				if lightBackground {
					isForeground = int(v) <= t
				} else {
					isForeground = int(v) > t
				}
				if isForeground {
					outRow[x] = 0
				} else {
					outRow[x] = 255
				}
			}
		}
	})

	return out, nil
}

func otsuThreshold(src *raster.Raster) int {
	var hist [256]uint64
	for _, v := range src.Plane(0) {
		hist[v]++
	}

	n := len(src.Plane(0))
	if n <= 0 {
		return 128
	}

	var sumAll float64
	for t := 0; t < 256; t++ {
		sumAll += float64(t) * float64(hist[t])
	}

	var sumB float64
	var wB uint64
	maxBetween := -1.0
	bestT := 128

	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := uint64(n) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])

		mB := sumB / float64(wB)
		mF := (sumAll - sumB) / float64(wF)

		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > maxBetween {
			maxBetween = between
			bestT = t
		}
	}
	return bestT
}

// borderMean averages a 5%-wide border strip, subsampled every other
// pixel for speed, the way compute_border_mean does.
func borderMean(src *raster.Raster) float64 {
	w, h := src.W, src.H
	if w <= 0 || h <= 0 {
		return 0
	}
	b := int(0.05 * float64(minInt(w, h)))
	if b < 1 {
		b = 1
	}
	const step = 2
	plane := src.Plane(0)

	var sum, cnt uint64
	add := func(x, y int) {
		sum += uint64(plane[y*w+x])
		cnt++
	}

	for y := 0; y < b; y += step {
		for x := 0; x < w; x += step {
			add(x, y)
		}
	}
	for y := h - b; y < h; y += step {
		for x := 0; x < w; x += step {
			add(x, y)
		}
	}
	for y := b; y < h-b; y += step {
		for x := 0; x < b; x += step {
			add(x, y)
		}
		for x := w - b; x < w; x += step {
			add(x, y)
		}
	}

	if cnt == 0 {
		return 0
	}
	return float64(sum) / float64(cnt)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
