// Package morph implements separable grayscale dilation/erosion via
// monotonic-deque sliding window min/max, and connected-component
// despeckling for binary rasters.
//
// Grounded on original_source/src/lib/morphology/morphology.cpp's
// sliding_window_max/sliding_window_min (amortized O(1) per output
// element via a monotonic deque of indices), carried over in the
// row/column-stripe parallel style internal/workpool already
// establishes for the integral and filter packages.
package morph

import (
	"fmt"

	"rescribe.xyz/ite/internal/workpool"
	"rescribe.xyz/ite/raster"
)

// Labels is a transient W x H map of connected-component ids built by
// Despeckle: 0 is background, ids 1..K are dense foreground components.
type Labels struct {
	W, H int
	L    []int32
}

// Dilate grows foreground regions: each output sample is the max over a
// (2r+1)x(2r+1) square neighbourhood, clamped to the raster at the
// boundary (replicate). r<=0 is identity.
func Dilate(src *raster.Raster, r int) *raster.Raster {
	return slidingSeparable(src, r, true)
}

// Erode shrinks foreground regions: each output sample is the min over
// a (2r+1)x(2r+1) square neighbourhood. r<=0 is identity.
func Erode(src *raster.Raster, r int) *raster.Raster {
	return slidingSeparable(src, r, false)
}

func slidingSeparable(src *raster.Raster, r int, dilate bool) *raster.Raster {
	if r <= 0 {
		return src.Clone()
	}
	w, h := src.W, src.H
	out, _ := raster.New(w, h, src.C)

	for c := 0; c < src.C; c++ {
		plane := src.Plane(c)

		// Horizontal pass into an intermediate buffer.
		mid := make([]uint16, w*h)
		workpool.Rows(h, 0, func(y0, y1 int) {
			buf := make([]uint16, w)
			for y := y0; y < y1; y++ {
				row := plane[y*w : y*w+w]
				slidingWindow1D(row, buf, r, dilate)
				copy(mid[y*w:y*w+w], buf)
			}
		})

		// Vertical pass, column-major traversal, into the final plane.
		dst := out.Plane(c)
		workpool.Rows(w, 0, func(x0, x1 int) {
			col := make([]uint16, h)
			buf := make([]uint16, h)
			for x := x0; x < x1; x++ {
				for y := 0; y < h; y++ {
					col[y] = mid[y*w+x]
				}
				slidingWindow1D(col, buf, r, dilate)
				for y := 0; y < h; y++ {
					dst[y*w+x] = buf[y]
				}
			}
		})
	}

	return out
}

// slidingWindow1D computes, for every index i of src, the max (dilate)
// or min (erode) over [i-r, i+r] clamped to the slice bounds, using a
// monotonic deque of indices so that each element enters and leaves the
// deque at most once: amortized O(1) per output element.
func slidingWindow1D(src, dst []uint16, r int, dilate bool) {
	n := len(src)
	deque := make([]int, 0, n)
	head := 0 // logical head index into deque (avoids O(n) pop-front)

	better := func(a, b uint16) bool {
		if dilate {
			return a >= b
		}
		return a <= b
	}

	push := func(i int) {
		for len(deque) > head && better(src[i], src[deque[len(deque)-1]]) {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)
	}

	nextPush := 0
	for i := 0; i < n; i++ {
		hi := i + r
		if hi >= n {
			hi = n - 1
		}
		for nextPush <= hi {
			push(nextPush)
			nextPush++
		}
		lo := i - r
		for len(deque) > head && deque[head] < lo {
			head++
		}
		dst[i] = src[deque[head]]
	}
}

// Despeckle removes foreground connected components smaller than
// minSize from a binary raster: it labels 4- or 8-connected components,
// tallies their sizes, and sets every pixel of a component whose size
// falls below the threshold back to background (255). src must already
// be binary (every sample 0 or 255).
func Despeckle(src *raster.Raster, minSize int, diagonal bool) (*raster.Raster, error) {
	if src.C != 1 {
		return nil, fmt.Errorf("morph: Despeckle requires a single-channel raster, got %d channels", src.C)
	}
	if !raster.IsBinary(src) {
		return nil, fmt.Errorf("morph: Despeckle requires a binary raster")
	}

	labels, sizes := label(src, diagonal)

	out := src.Clone()
	dst := out.Plane(0)
	for i, l := range labels.L {
		if l > 0 && sizes[l] < minSize {
			dst[i] = 255
		}
	}
	return out, nil
}

// label runs classical two-pass connected-component labelling with
// union-find over the foreground (sample==0, i.e. dark text) pixels of
// a binary raster, returning dense labels 1..K and each component's
// pixel count in sizes[1..K].
func label(src *raster.Raster, diagonal bool) (Labels, []int) {
	w, h := src.W, src.H
	plane := src.Plane(0)
	labels := make([]int32, w*h)

	uf := newUnionFind(w * h)

	neighbourOffsets := [][2]int{{-1, 0}, {0, -1}}
	if diagonal {
		neighbourOffsets = append(neighbourOffsets, [2]int{-1, -1}, [2]int{1, -1})
	}

	isFG := func(i int) bool { return plane[i] == 0 }

	// Pass 1: provisional labels + union equivalences.
	next := int32(1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if !isFG(i) {
				continue
			}
			var neighbourLabels []int32
			for _, off := range neighbourOffsets {
				nx, ny := x+off[0], y+off[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				ni := ny*w + nx
				if isFG(ni) && labels[ni] != 0 {
					neighbourLabels = append(neighbourLabels, labels[ni])
				}
			}
			if len(neighbourLabels) == 0 {
				labels[i] = next
				uf.add(next)
				next++
			} else {
				minLabel := neighbourLabels[0]
				for _, l := range neighbourLabels[1:] {
					if l < minLabel {
						minLabel = l
					}
				}
				labels[i] = minLabel
				for _, l := range neighbourLabels {
					uf.union(minLabel, l)
				}
			}
		}
	}

	// Pass 2: resolve to dense final labels via union-find roots.
	rootToFinal := map[int32]int32{}
	var nextFinal int32 = 1
	final := make([]int32, w*h)
	for i, l := range labels {
		if l == 0 {
			continue
		}
		root := uf.find(l)
		f, ok := rootToFinal[root]
		if !ok {
			f = nextFinal
			rootToFinal[root] = f
			nextFinal++
		}
		final[i] = f
	}

	sizes := make([]int, nextFinal)
	for _, l := range final {
		sizes[l]++
	}
	// sizes[0] counts background pixels; callers only look at sizes[1:].

	return Labels{W: w, H: h, L: final}, sizes
}

type unionFind struct {
	parent map[int32]int32
}

func newUnionFind(capacityHint int) *unionFind {
	return &unionFind{parent: make(map[int32]int32, capacityHint)}
}

func (u *unionFind) add(x int32) {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
	}
}

func (u *unionFind) find(x int32) int32 {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int32) {
	u.add(a)
	u.add(b)
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}
