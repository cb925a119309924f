// Package colour implements the RGB<->luma conversion, the robust
// contrast-stretch histogram transform, and the final colour-pass
// compositing step, grounded on rescribe-bookpipeline's habit of doing
// this with image/draw.Draw into an image.Gray (see
// preproc/preprocmulti.go), generalized to raster.Raster planes with
// explicit Rec.601 weights and an auxiliary robust-stretch lookup table.
package colour

import (
	"fmt"

	"rescribe.xyz/ite/internal/workpool"
	"rescribe.xyz/ite/raster"
)

// Rec.601 luma weights.
const (
	wR = 0.299
	wG = 0.587
	wB = 0.114
)

// ToLuma converts a 3- or 4-channel raster to single-channel luma. If src
// already has one channel it is returned unchanged (identity).
func ToLuma(src *raster.Raster) (*raster.Raster, error) {
	if src.C == 1 {
		return src, nil
	}
	if src.C != 3 && src.C != 4 {
		return nil, fmt.Errorf("colour: ToLuma requires 1, 3 or 4 channels, got %d", src.C)
	}

	out, err := raster.New(src.W, src.H, 1)
	if err != nil {
		return nil, err
	}

	rPlane, gPlane, bPlane := src.Plane(0), src.Plane(1), src.Plane(2)
	dst := out.Plane(0)

	workpool.Rows(src.H, 0, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			rowStart := y * src.W
			for x := 0; x < src.W; x++ {
				i := rowStart + x
				v := wR*float64(rPlane[i]) + wG*float64(gPlane[i]) + wB*float64(bPlane[i])
				dst[i] = clampU16(roundHalfAway(v))
			}
		}
	})

	return out, nil
}

// ContrastStretch builds a 256-bin histogram of a single-channel raster,
// finds the 1st/99th percentile intensities (by cumulative count, not by
// value), and linearly remaps [p1, p99] to [0, 255], clamping outside
// that range. If p99 <= p1 the raster is returned unchanged (numerical
// no-op per spec, not an error).
func ContrastStretch(src *raster.Raster) (*raster.Raster, error) {
	if src.C != 1 {
		return nil, fmt.Errorf("colour: ContrastStretch requires a single-channel raster, got %d channels", src.C)
	}

	plane := src.Plane(0)
	n := len(plane)

	type histAcc struct {
		bins [256]uint64
	}
	acc := workpool.Reduce(src.H, 0,
		func() *histAcc { return &histAcc{} },
		func(y0, y1 int, local *histAcc) {
			for y := y0; y < y1; y++ {
				row := src.RowPtr(y, 0)
				for _, v := range row {
					local.bins[clampU8(v)]++
				}
			}
		},
		func(dst, src *histAcc) {
			for i := range dst.bins {
				dst.bins[i] += src.bins[i]
			}
		},
	)

	threshold := uint64(float64(n) * 0.01)
	var cum uint64
	p1 := -1
	for i := 0; i < 256; i++ {
		cum += acc.bins[i]
		if cum > threshold {
			p1 = i
			break
		}
	}
	cum = 0
	p99 := -1
	for i := 255; i >= 0; i-- {
		cum += acc.bins[i]
		if cum > threshold {
			p99 = i
			break
		}
	}
	if p1 < 0 {
		p1 = 0
	}
	if p99 < 0 {
		p99 = 255
	}

	if p99 <= p1 {
		// Degenerate range: no-op per spec, not an error.
		return src.Clone(), nil
	}

	var lut [256]uint16
	span := float64(p99 - p1)
	for i := 0; i < 256; i++ {
		switch {
		case i <= p1:
			lut[i] = 0
		case i >= p99:
			lut[i] = 255
		default:
			lut[i] = clampU16(roundHalfAway(255 * float64(i-p1) / span))
		}
	}

	out, err := raster.New(src.W, src.H, 1)
	if err != nil {
		return nil, err
	}
	dst := out.Plane(0)
	workpool.Rows(src.H, 0, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			rowStart := y * src.W
			for x := 0; x < src.W; x++ {
				i := rowStart + x
				dst[i] = lut[clampU8(plane[i])]
			}
		}
	})

	return out, nil
}

// Pass composites colour onto a white background wherever mask is 255
// (background), leaving it untouched wherever mask is 0 (foreground).
// mask must be single channel; colour must have at least 3 channels and
// the same W/H as mask. This hard-codes white, it is not a general alpha
// compositor (see spec's Open Question on this point).
func Pass(mask, colourImg *raster.Raster) (*raster.Raster, error) {
	if mask.C != 1 {
		return nil, fmt.Errorf("colour: Pass requires a single-channel mask, got %d channels", mask.C)
	}
	if colourImg.C < 3 {
		return nil, fmt.Errorf("colour: Pass requires a colour image with >= 3 channels, got %d", colourImg.C)
	}
	if !mask.SameDims(colourImg) {
		return nil, fmt.Errorf("colour: Pass dimension mismatch: mask %dx%d vs colour %dx%d", mask.W, mask.H, colourImg.W, colourImg.H)
	}

	out := colourImg.Clone()
	maskPlane := mask.Plane(0)

	workpool.Rows(mask.H, 0, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			rowStart := y * mask.W
			for x := 0; x < mask.W; x++ {
				if maskPlane[rowStart+x] == 255 {
					for c := 0; c < 3; c++ {
						out.Set(x, y, c, 255)
					}
				}
			}
		}
	})

	return out, nil
}

func clampU8(v uint16) uint16 {
	if v > 255 {
		return 255
	}
	return v
}

func clampU16(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint16(v)
}

func roundHalfAway(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v - 0.5))
}
