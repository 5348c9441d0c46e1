package tile

import (
	"fmt"
	"unsafe"

	"github.com/tilekit-ml/tilekit/internal/inttuple"
	"github.com/tilekit-ml/tilekit/internal/layout"
)

// AccessPattern is the physical shape of one element transfer, derived from
// the element sub-layout when the view is vectorized. Keeping the three
// cases as distinct code paths preserves the performance contract of the
// specialized kernels this models.
type AccessPattern int

const (
	// AccessVector moves the whole element as one contiguous vector.
	AccessVector AccessPattern = iota
	// AccessRowVector moves one contiguous vector per outer index.
	AccessRowVector
	// AccessScalar gathers element by element.
	AccessScalar
)

// String returns a human-readable pattern name.
func (p AccessPattern) String() string {
	switch p {
	case AccessVector:
		return "vector"
	case AccessRowVector:
		return "row-vector"
	default:
		return "scalar"
	}
}

// patternOf classifies an element layout. Rank above 2 is unsupported.
func patternOf(elem layout.Layout) AccessPattern {
	if elem.Rank() > 2 {
		panic(fmt.Sprintf("tile: element layout %v has rank > 2", elem))
	}
	flat := elem.Coalesce()
	if flat.Rank() == 1 && flat.Stride().At(0).Value() <= 1 {
		return AccessVector
	}
	if flat.Rank() == 2 &&
		(flat.Stride().At(0).Value() == 1 || flat.Stride().At(1).Value() == 1) {
		return AccessRowVector
	}
	return AccessScalar
}

// Element is one fixed-width vector load/store unit: the values of an
// m-by-n element block in colexicographic order. Ephemeral: produced by a
// load, consumed by a store.
type Element[T Scalar] struct {
	vals []T
	lay  layout.Layout
}

// Values returns the element's lanes in colexicographic order.
func (e Element[T]) Values() []T { return e.vals }

// Fill returns an element of the given layout with every lane set to val.
func Fill[T Scalar](elem layout.Layout, val T) Element[T] {
	vals := make([]T, elem.Size())
	for i := range vals {
		vals[i] = val
	}
	return Element[T]{vals: vals, lay: elem}
}

// laneOffset returns the absolute element-granular buffer offset of lane i
// of the element anchored at base.
func laneOffset(v View, base, lane int) int {
	return v.sw.Apply(v.base + base + v.elem.OffsetLinear(lane))
}

// vectorGuard checks that a contiguous run of n elements cannot be torn by
// the view's swizzle: the run must fit below the swizzle's untouched low
// bits.
func vectorGuard(v View, n int) {
	if v.sw.IsIdentity() {
		return
	}
	if n > 1<<v.sw.Base {
		panic(fmt.Sprintf("tile: %d-element vector crosses swizzle %v atom", n, v.sw))
	}
}

// Load reads the element block anchored at coord, selecting the access
// pattern the element layout was classified into.
func Load[T Scalar](v View, coord inttuple.IntTuple) Element[T] {
	n := v.elem.Size()
	e := Element[T]{vals: make([]T, n), lay: v.elem}
	base := v.lay.Offset(coord)

	switch patternOf(v.elem) {
	case AccessVector:
		vectorGuard(v, n)
		start := v.sw.Apply(v.base + base)
		copy(e.vals, typedSlice[T](v, start, n))
	case AccessRowVector:
		runs, run, lane := rowVectorDims(v.elem)
		vectorGuard(v, run.len)
		for r := 0; r < runs; r++ {
			start := laneOffset(v, base, lane(r, 0))
			src := typedSlice[T](v, start, run.len)
			for c := 0; c < run.len; c++ {
				e.vals[lane(r, c)] = src[c]
			}
		}
	default:
		for i := 0; i < n; i++ {
			e.vals[i] = typedSlice[T](v, laneOffset(v, base, i), 1)[0]
		}
	}
	return e
}

// Store writes the element block anchored at coord.
func Store[T Scalar](v View, coord inttuple.IntTuple, e Element[T]) {
	n := v.elem.Size()
	if len(e.vals) != n {
		panic(fmt.Sprintf("tile: element carries %d lanes, view expects %d", len(e.vals), n))
	}
	base := v.lay.Offset(coord)

	switch patternOf(v.elem) {
	case AccessVector:
		vectorGuard(v, n)
		start := v.sw.Apply(v.base + base)
		copy(typedSlice[T](v, start, n), e.vals)
	case AccessRowVector:
		runs, run, lane := rowVectorDims(v.elem)
		vectorGuard(v, run.len)
		for r := 0; r < runs; r++ {
			start := laneOffset(v, base, lane(r, 0))
			dst := typedSlice[T](v, start, run.len)
			for c := 0; c < run.len; c++ {
				dst[c] = e.vals[lane(r, c)]
			}
		}
	default:
		for i := 0; i < n; i++ {
			typedSlice[T](v, laneOffset(v, base, i), 1)[0] = e.vals[i]
		}
	}
}

// MaskedLoad is Load with per-axis element bounds. Lanes whose coordinate
// falls outside bounds are filled with fill instead of being read; when
// every lane is in bounds the unmasked fast path runs unchanged.
func MaskedLoad[T Scalar](v View, coord inttuple.IntTuple, bounds []int, fill T) Element[T] {
	if fullyInBounds(v.elem, bounds) {
		return Load[T](v, coord)
	}
	n := v.elem.Size()
	e := Element[T]{vals: make([]T, n), lay: v.elem}
	base := v.lay.Offset(coord)
	for i := 0; i < n; i++ {
		if laneInBounds(v.elem, i, bounds) {
			e.vals[i] = typedSlice[T](v, laneOffset(v, base, i), 1)[0]
		} else {
			e.vals[i] = fill
		}
	}
	return e
}

// MaskedStore is Store with per-axis element bounds: out-of-bounds lanes
// are never written.
func MaskedStore[T Scalar](v View, coord inttuple.IntTuple, e Element[T], bounds []int) {
	if fullyInBounds(v.elem, bounds) {
		Store(v, coord, e)
		return
	}
	base := v.lay.Offset(coord)
	for i := 0; i < len(e.vals); i++ {
		if laneInBounds(v.elem, i, bounds) {
			typedSlice[T](v, laneOffset(v, base, i), 1)[0] = e.vals[i]
		}
	}
}

// fullyInBounds reports whether every lane of the element shape is covered
// by the per-axis bounds.
func fullyInBounds(elem layout.Layout, bounds []int) bool {
	shape := elem.Shape()
	for i := 0; i < shape.Rank() && i < len(bounds); i++ {
		if inttuple.Product(shape.At(i)) > bounds[i] {
			return false
		}
	}
	return true
}

// laneInBounds reports whether lane i's per-axis coordinate is within
// bounds.
func laneInBounds(elem layout.Layout, lane int, bounds []int) bool {
	shape := elem.Shape()
	for axis := 0; axis < shape.Rank(); axis++ {
		extent := inttuple.Product(shape.At(axis))
		c := lane % extent
		lane /= extent
		if axis < len(bounds) && c >= bounds[axis] {
			return false
		}
	}
	return true
}

type runDim struct{ len int }

// rowVectorDims decomposes a rank-2 element layout with one contiguous axis
// into (number of runs, run descriptor, lane indexer). lane(r, c) is the
// colexicographic lane index of position c within run r, whichever axis the
// contiguous one is.
func rowVectorDims(elem layout.Layout) (int, runDim, func(r, c int) int) {
	flat := elem.Coalesce()
	s0 := inttuple.Product(flat.Shape().At(0))
	s1 := inttuple.Product(flat.Shape().At(1))
	if flat.Stride().At(0).Value() == 1 {
		// Runs along the fast axis: lanes of one run are adjacent.
		return s1, runDim{len: s0}, func(r, c int) int { return r*s0 + c }
	}
	// Runs along the slow axis: lanes of one run are s0 apart.
	return s0, runDim{len: s1}, func(r, c int) int { return r + c*s0 }
}

// typedSlice reinterprets n elements starting at element offset off as a
// []T over the view's buffer.
func typedSlice[T Scalar](v View, off, n int) []T {
	lo := off * v.elemSize
	hi := lo + n*v.elemSize
	b := v.buf.Bytes()[lo:hi]
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n)
}

// Copy transfers src to dst element by element through both layouts. The
// synchronous counterpart of the bulk async path: domains must have equal
// size and element shape.
func Copy[T Scalar](dst, src View) {
	if dst.lay.Size() != src.lay.Size() {
		panic(fmt.Sprintf("tile: copy between domains of size %d and %d", dst.lay.Size(), src.lay.Size()))
	}
	if dst.elem.Size() != src.elem.Size() {
		panic(fmt.Sprintf("tile: copy between element shapes %v and %v", dst.elem.Shape(), src.elem.Shape()))
	}
	for idx := 0; idx < src.lay.Size(); idx++ {
		crdS := src.lay.Coord(idx)
		crdD := dst.lay.Coord(idx)
		Store(dst, crdD, Load[T](src, crdS))
	}
}
