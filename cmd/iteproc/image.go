package main

import (
	"image"
	"image/color"

	"rescribe.xyz/ite/raster"
)

// imageToRaster converts a decoded image.Image to a raster.Raster,
// preserving colour (RGB, 3 channels) unless the source is already
// grayscale, in which case it becomes a single-channel luma raster.
func imageToRaster(img image.Image) *raster.Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if gray, ok := img.(*image.Gray); ok {
		out, _ := raster.New(w, h, 1)
		plane := out.Plane(0)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				plane[y*w+x] = uint16(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return out
	}

	out, _ := raster.New(w, h, 3)
	rPlane, gPlane, bPlane := out.Plane(0), out.Plane(1), out.Plane(2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*w + x
			rPlane[i] = uint16(r >> 8)
			gPlane[i] = uint16(g >> 8)
			bPlane[i] = uint16(bb >> 8)
		}
	}
	return out
}

// rasterToImage converts a raster.Raster back to an image.Image for
// encoding: single-channel becomes image.Gray, 3- or 4-channel becomes
// image.NRGBA.
func rasterToImage(r *raster.Raster) image.Image {
	if r.C == 1 {
		img := image.NewGray(image.Rect(0, 0, r.W, r.H))
		plane := r.Plane(0)
		for y := 0; y < r.H; y++ {
			for x := 0; x < r.W; x++ {
				img.SetGray(x, y, color.Gray{Y: uint8(clampi(int(plane[y*r.W+x]), 0, 255))})
			}
		}
		return img
	}

	img := image.NewNRGBA(image.Rect(0, 0, r.W, r.H))
	rPlane, gPlane, bPlane := r.Plane(0), r.Plane(1), r.Plane(2)
	var aPlane []uint16
	if r.C == 4 {
		aPlane = r.Plane(3)
	}
	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			i := y*r.W + x
			a := uint8(255)
			if aPlane != nil {
				a = uint8(clampi(int(aPlane[i]), 0, 255))
			}
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(clampi(int(rPlane[i]), 0, 255)),
				G: uint8(clampi(int(gPlane[i]), 0, 255)),
				B: uint8(clampi(int(bPlane[i]), 0, 255)),
				A: a,
			})
		}
	}
	return img
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
