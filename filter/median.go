package filter

import (
	"sort"

	"rescribe.xyz/ite/raster"
)

// pixSort swaps a and b in place so that a <= b, the building block of
// the median-of-9 sorting network below.
func pixSort(a, b *uint16) {
	if *a > *b {
		*a, *b = *b, *a
	}
}

// median9 returns the median of a fixed 3x3 neighbourhood using the
// proven-correct opt_med9 sorting network: 19 compare-swaps, no
// branches on the general case.
func median9(p0, p1, p2, p3, p4, p5, p6, p7, p8 uint16) uint16 {
	pixSort(&p1, &p2)
	pixSort(&p4, &p5)
	pixSort(&p7, &p8)
	pixSort(&p0, &p1)
	pixSort(&p3, &p4)
	pixSort(&p6, &p7)
	pixSort(&p1, &p2)
	pixSort(&p4, &p5)
	pixSort(&p7, &p8)
	pixSort(&p0, &p3)
	pixSort(&p5, &p8)
	pixSort(&p4, &p7)
	pixSort(&p3, &p6)
	pixSort(&p1, &p4)
	pixSort(&p2, &p5)
	pixSort(&p4, &p7)
	pixSort(&p4, &p2)
	pixSort(&p6, &p4)
	pixSort(&p4, &p2)
	return p4
}

// Median applies a k x k median filter to every channel of src, replicate
// boundary conditions. k must be odd and >= 3; k <= 1 is identity and an
// even k is rounded up to the next odd size. The 3x3 case is routed
// through the median9 sorting network; larger k fall back to an exact
// sort of the k*k window.
//
// threshold implements the original's simple_median_blur(kernel_size,
// threshold) call into CImg's blur_median: when threshold > 0, a pixel is
// only replaced by the window median if it differs from that median by
// more than threshold, so near-flat regions are left untouched and only
// outliers get smoothed. threshold == 0 always replaces.
func Median(src *raster.Raster, k, threshold int) *raster.Raster {
	out := src.Clone()
	w, h := src.W, src.H
	if k <= 1 || w < 2 || h < 2 {
		return out
	}
	if k%2 == 0 {
		k++
	}
	r := k / 2

	var buf []uint16
	if k != 3 {
		buf = make([]uint16, k*k)
	}

	for c := 0; c < src.C; c++ {
		plane := src.Plane(c)
		dst := out.Plane(c)
		for y := 0; y < h; y++ {
			dstRow := dst[y*w : y*w+w]
			for x := 0; x < w; x++ {
				orig := plane[y*w+x]

				var med uint16
				if k == 3 {
					up := clampi(y-1, 0, h-1)
					down := clampi(y+1, 0, h-1)
					xl := clampi(x-1, 0, w-1)
					xr := clampi(x+1, 0, w-1)
					rUp := plane[up*w : up*w+w]
					rMid := plane[y*w : y*w+w]
					rDown := plane[down*w : down*w+w]
					med = median9(
						rUp[xl], rUp[x], rUp[xr],
						rMid[xl], rMid[x], rMid[xr],
						rDown[xl], rDown[x], rDown[xr],
					)
				} else {
					i := 0
					for dy := -r; dy <= r; dy++ {
						yy := clampi(y+dy, 0, h-1)
						row := plane[yy*w : yy*w+w]
						for dx := -r; dx <= r; dx++ {
							buf[i] = row[clampi(x+dx, 0, w-1)]
							i++
						}
					}
					sort.Slice(buf, func(i, j int) bool { return buf[i] < buf[j] })
					med = buf[len(buf)/2]
				}

				if threshold > 0 {
					diff := int(orig) - int(med)
					if diff < 0 {
						diff = -diff
					}
					if diff <= threshold {
						dstRow[x] = orig
						continue
					}
				}
				dstRow[x] = med
			}
		}
	}
	return out
}

// amfHist is a reusable, O(touched)-resettable 256-bin histogram, so the
// adaptive median filter's window growth never pays an O(window) reset
// per pixel.
type amfHist struct {
	bins    [256]uint16
	touched [256]uint8
	n       int
}

func (h *amfHist) add(v uint16) {
	b := uint8(v)
	if h.bins[b] == 0 {
		h.touched[h.n] = b
		h.n++
	}
	h.bins[b]++
}

func (h *amfHist) reset() {
	for i := 0; i < h.n; i++ {
		h.bins[h.touched[i]] = 0
	}
	h.n = 0
}

// minMedMax scans the histogram for its minimum, maximum, and median
// (by cumulative count) given the known total sample count.
func (h *amfHist) minMedMax(total int) (zmin, zmed, zmax uint16) {
	i := 0
	for i < 256 && h.bins[i] == 0 {
		i++
	}
	if i < 256 {
		zmin = uint16(i)
	}
	j := 255
	for j >= 0 && h.bins[j] == 0 {
		j--
	}
	if j >= 0 {
		zmax = uint16(j)
	} else {
		zmax = 255
	}

	target := (total + 1) / 2
	cum := 0
	for k := 0; k < 256; k++ {
		cum += int(h.bins[k])
		if cum >= target {
			return zmin, uint16(k), zmax
		}
	}
	return zmin, zmax, zmax
}

// AdaptiveMedian implements the Adaptive Median Filter (AMF): it starts
// each pixel with a 3x3 median-of-9 decision, and only pays for a
// growing histogram-backed window (5x5, 7x7, ... up to maxWindow) when
// the fast 3x3 stage looks like impulse noise. This preserves text
// edges much better than a fixed-size median, since most non-impulse
// pixels never leave the cheap 3x3 path.
//
// maxWindow must be odd and >= 3; even values are rounded up.
func AdaptiveMedian(src *raster.Raster, maxWindow int) *raster.Raster {
	out := src.Clone()
	w, h := src.W, src.H
	if w < 2 || h < 2 {
		return out
	}
	if maxWindow < 3 {
		maxWindow = 3
	}
	if maxWindow%2 == 0 {
		maxWindow++
	}
	maxR := (maxWindow - 1) / 2

	for c := 0; c < src.C; c++ {
		plane := src.Plane(c)
		dst := out.Plane(c)
		var hist amfHist

		for y := 0; y < h; y++ {
			up := clampi(y-1, 0, h-1)
			down := clampi(y+1, 0, h-1)
			rUp := plane[up*w : up*w+w]
			rMid := plane[y*w : y*w+w]
			rDown := plane[down*w : down*w+w]
			outRow := dst[y*w : y*w+w]

			for x := 0; x < w; x++ {
				xl := clampi(x-1, 0, w-1)
				xr := clampi(x+1, 0, w-1)
				zxy := rMid[x]

				p0, p1, p2 := rUp[xl], rUp[x], rUp[xr]
				p3, p4, p5 := rMid[xl], rMid[x], rMid[xr]
				p6, p7, p8 := rDown[xl], rDown[x], rDown[xr]

				zmed := median9(p0, p1, p2, p3, p4, p5, p6, p7, p8)
				zmin, zmax := p0, p0
				for _, v := range [8]uint16{p1, p2, p3, p4, p5, p6, p7, p8} {
					if v < zmin {
						zmin = v
					}
					if v > zmax {
						zmax = v
					}
				}

				if zmed > zmin && zmed < zmax {
					if zxy > zmin && zxy < zmax {
						outRow[x] = zxy
					} else {
						outRow[x] = zmed
					}
					continue
				}

				if maxR < 2 {
					outRow[x] = zmed
					continue
				}

				hist.add(p0)
				hist.add(p1)
				hist.add(p2)
				hist.add(p3)
				hist.add(p4)
				hist.add(p5)
				hist.add(p6)
				hist.add(p7)
				hist.add(p8)

				outv := zmed
				for r := 2; r <= maxR; r++ {
					xl := clampi(x-r, 0, w-1)
					xr := clampi(x+r, 0, w-1)
					for dy := -r; dy <= r; dy++ {
						yy := clampi(y+dy, 0, h-1)
						row := plane[yy*w : yy*w+w]
						hist.add(row[xl])
						hist.add(row[xr])
					}
					yt := clampi(y-r, 0, h-1)
					yb := clampi(y+r, 0, h-1)
					rowt := plane[yt*w : yt*w+w]
					rowb := plane[yb*w : yb*w+w]
					for dx := -(r - 1); dx <= r-1; dx++ {
						xx := clampi(x+dx, 0, w-1)
						hist.add(rowt[xx])
						hist.add(rowb[xx])
					}

					total := (2*r + 1) * (2*r + 1)
					zmin, zmed, zmax = hist.minMedMax(total)
					if zmed > zmin && zmed < zmax {
						if zxy > zmin && zxy < zmax {
							outv = zxy
						} else {
							outv = zmed
						}
						break
					}
					outv = zmed
				}

				outRow[x] = outv
				hist.reset()
			}
		}
	}

	return out
}
