package geometry

import (
	"image"
	"math"

	"rescribe.xyz/ite/raster"
)

// Rotate rotates src by angleDeg degrees about its centre, producing a
// raster of the same dimensions. Sample points that fall outside the
// source are clamped to the nearest edge (replicate / "Neumann"
// boundary), and each output sample is bilinearly interpolated from its
// four nearest source samples.
func Rotate(src *raster.Raster, angleDeg float64) *raster.Raster {
	w, h := src.W, src.H
	out, _ := raster.New(w, h, src.C)

	theta := angleDeg * math.Pi / 180.0
	sinT, cosT := math.Sin(theta), math.Cos(theta)
	cx, cy := float64(w-1)/2.0, float64(h-1)/2.0

	for c := 0; c < src.C; c++ {
		plane := src.Plane(c)
		dst := out.Plane(c)

		for y := 0; y < h; y++ {
			dy := float64(y) - cy
			for x := 0; x < w; x++ {
				dx := float64(x) - cx

				// Inverse-map the output pixel back into source space:
				// rotating the source by +theta corresponds to sampling
				// it at the point rotated by -theta from (dx, dy).
				sx := cx + dx*cosT + dy*sinT
				sy := cy - dx*sinT + dy*cosT

				dst[y*w+x] = bilinearSample(plane, w, h, sx, sy)
			}
		}
	}

	return out
}

func bilinearSample(plane []uint16, w, h int, sx, sy float64) uint16 {
	x0 := int(math.Floor(sx))
	y0 := int(math.Floor(sy))
	fx := sx - float64(x0)
	fy := sy - float64(y0)

	x0c, x1c := clampi(x0, 0, w-1), clampi(x0+1, 0, w-1)
	y0c, y1c := clampi(y0, 0, h-1), clampi(y0+1, 0, h-1)

	p00 := float64(plane[y0c*w+x0c])
	p10 := float64(plane[y0c*w+x1c])
	p01 := float64(plane[y1c*w+x0c])
	p11 := float64(plane[y1c*w+x1c])

	top := p00*(1-fx) + p10*fx
	bottom := p01*(1-fx) + p11*fx
	v := top*(1-fy) + bottom*fy

	return clampToU16(v)
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampToU16(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return uint16(v + 0.5)
}

// -------- raster <-> image.Image adapters, for golang.org/x/image/draw --------

func rasterToGray(src *raster.Raster) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, src.W, src.H))
	plane := src.Plane(0)
	for i, v := range plane {
		img.Pix[i] = uint8(clampi(int(v), 0, 255))
	}
	return img
}

func grayToRaster(img *image.Gray) *raster.Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out, _ := raster.New(w, h, 1)
	plane := out.Plane(0)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x, v := range row {
			plane[y*w+x] = uint16(v)
		}
	}
	return out
}

func rasterToRGBA(src *raster.Raster) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, src.W, src.H))
	n := src.W * src.H
	rPlane := src.Plane(0)
	gPlane := src.Plane(1)
	bPlane := src.Plane(2)
	var aPlane []uint16
	if src.C == 4 {
		aPlane = src.Plane(3)
	}
	for i := 0; i < n; i++ {
		a := uint8(255)
		if aPlane != nil {
			a = uint8(clampi(int(aPlane[i]), 0, 255))
		}
		img.Pix[i*4+0] = uint8(clampi(int(rPlane[i]), 0, 255))
		img.Pix[i*4+1] = uint8(clampi(int(gPlane[i]), 0, 255))
		img.Pix[i*4+2] = uint8(clampi(int(bPlane[i]), 0, 255))
		img.Pix[i*4+3] = a
	}
	return img
}

func rgbaToRaster(img *image.RGBA, channels int) *raster.Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out, _ := raster.New(w, h, channels)
	rPlane, gPlane, bPlane := out.Plane(0), out.Plane(1), out.Plane(2)
	var aPlane []uint16
	if channels == 4 {
		aPlane = out.Plane(3)
	}
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			i := y*w + x
			rPlane[i] = uint16(row[x*4+0])
			gPlane[i] = uint16(row[x*4+1])
			bPlane[i] = uint16(row[x*4+2])
			if aPlane != nil {
				aPlane[i] = uint16(row[x*4+3])
			}
		}
	}
	return out
}
