// Package tile implements non-owning views over raw buffers: a buffer
// pointer plus a layout, with tiling, distribution across parallel workers,
// transposition, reshape, and vectorized element access on top.
package tile

import (
	"fmt"
	"unsafe"

	"github.com/tilekit-ml/tilekit/internal/buffer"
	"github.com/tilekit-ml/tilekit/internal/inttuple"
	"github.com/tilekit-ml/tilekit/internal/layout"
	"github.com/tilekit-ml/tilekit/internal/swizzle"
)

// Scalar is the set of element types a view can carry.
type Scalar interface {
	~float32 | ~float64 | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32
}

// View pairs a buffer with a layout. It is a cheap, copyable descriptor and
// never owns the backing storage.
//
// Offsets are element-granular: a coordinate runs through the layout, the
// base offset is added, and the swizzle (identity unless attached) permutes
// the result before it is scaled to bytes.
type View struct {
	buf      *buffer.Buffer
	elemSize int
	base     int // element offset added before the swizzle
	lay      layout.Layout
	sw       swizzle.Swizzle
	elem     layout.Layout // element sub-layout for vectorized access
}

// NewView attaches a layout to a buffer with elemSize-byte elements. The
// buffer must cover the layout's codomain.
func NewView(buf *buffer.Buffer, elemSize int, lay layout.Layout) View {
	if elemSize <= 0 {
		panic(fmt.Sprintf("tile: element size %d", elemSize))
	}
	if need := lay.Cosize() * elemSize; need > buf.Len() {
		panic(fmt.Sprintf("tile: layout %v needs %d bytes, buffer has %d", lay, need, buf.Len()))
	}
	return View{
		buf:      buf,
		elemSize: elemSize,
		lay:      lay,
		elem:     layout.ColMajor(1),
	}
}

// Of builds a view whose element size is derived from T.
func Of[T Scalar](buf *buffer.Buffer, lay layout.Layout) View {
	var zero T
	return NewView(buf, int(unsafe.Sizeof(zero)), lay)
}

// WithSwizzle returns a copy of the view with an offset swizzle attached.
// The swizzle permutes element-granular offsets; shape decomposition always
// happens first.
func (v View) WithSwizzle(sw swizzle.Swizzle) View {
	// Swizzled offsets stay within span-aligned windows, so the buffer must
	// cover the codomain rounded up to a full window.
	span := sw.Span()
	limit := (v.base + v.lay.Cosize() + span - 1) / span * span
	if limit*v.elemSize > v.buf.Len() {
		panic(fmt.Sprintf("tile: swizzle %v window of %d elements exceeds buffer %v", sw, limit, v.buf))
	}
	v.sw = sw
	return v
}

// Buffer returns the backing buffer.
func (v View) Buffer() *buffer.Buffer { return v.buf }

// Layout returns the view's layout.
func (v View) Layout() layout.Layout { return v.lay }

// ElemLayout returns the element sub-layout attached by Vectorize.
func (v View) ElemLayout() layout.Layout { return v.elem }

// ElemSize returns the element width in bytes.
func (v View) ElemSize() int { return v.elemSize }

// Space returns the buffer's address space.
func (v View) Space() buffer.AddressSpace { return v.buf.Space() }

// Size returns the number of elements addressed by the layout.
func (v View) Size() int { return v.lay.Size() }

// ElemOffset maps a coordinate to its element-granular buffer offset.
func (v View) ElemOffset(coord inttuple.IntTuple) int {
	return v.sw.Apply(v.base + v.lay.Offset(coord))
}

// ElemOffsetLinear is ElemOffset for a linear domain index.
func (v View) ElemOffsetLinear(idx int) int {
	return v.sw.Apply(v.base + v.lay.OffsetLinear(idx))
}

// byteRange returns the byte span of the element at off.
func (v View) byteRange(off int) (int, int) {
	start := off * v.elemSize
	return start, start + v.elemSize
}

// Get reads one element.
func Get[T Scalar](v View, coord inttuple.IntTuple) T {
	lo, hi := v.byteRange(v.ElemOffset(coord))
	return *(*T)(unsafe.Pointer(&v.buf.Bytes()[lo:hi][0]))
}

// Set writes one element.
func Set[T Scalar](v View, coord inttuple.IntTuple, val T) {
	lo, hi := v.byteRange(v.ElemOffset(coord))
	*(*T)(unsafe.Pointer(&v.buf.Bytes()[lo:hi][0])) = val
}

// GetLinear reads the element at a linear domain index.
func GetLinear[T Scalar](v View, idx int) T {
	lo, hi := v.byteRange(v.ElemOffsetLinear(idx))
	return *(*T)(unsafe.Pointer(&v.buf.Bytes()[lo:hi][0]))
}

// SetLinear writes the element at a linear domain index.
func SetLinear[T Scalar](v View, idx int, val T) {
	lo, hi := v.byteRange(v.ElemOffsetLinear(idx))
	*(*T)(unsafe.Pointer(&v.buf.Bytes()[lo:hi][0])) = val
}

// Transpose swaps the view's two top-level modes.
func (v View) Transpose() View {
	if v.lay.Rank() != 2 {
		panic(fmt.Sprintf("tile: Transpose of rank-%d view", v.lay.Rank()))
	}
	v.lay = layout.Append(v.lay.Mode(1), v.lay.Mode(0))
	return v
}

// Reshape reinterprets a contiguous view under a new shape of equal size.
// Non-contiguous views cannot be reshaped without a copy and panic.
func (v View) Reshape(shape inttuple.IntTuple) View {
	if inttuple.Product(shape) != v.lay.Size() {
		panic(fmt.Sprintf("tile: reshape %v to %v changes size", v.lay.Shape(), shape))
	}
	flat := v.lay.Coalesce()
	contiguous := flat.Rank() == 1 && flat.Stride().At(0).Value() <= 1
	if !contiguous {
		panic(fmt.Sprintf("tile: reshape of non-contiguous layout %v", v.lay))
	}
	v.lay = layout.FromShape(shape)
	return v
}

// Tiler addresses the (M, N) tiles of a parent view. Produced by View.Tile;
// every tile shares the parent's storage.
type Tiler struct {
	parent View
	inner  layout.Layout // layout within one tile
	outer  layout.Layout // tile origin strides
}

// Tile splits a rank-2 view into M-by-N element tiles. Both tile extents
// must divide the view's extents.
func (v View) Tile(m, n int) Tiler {
	if v.lay.Rank() != 2 {
		panic(fmt.Sprintf("tile: Tile of rank-%d view", v.lay.Rank()))
	}
	z := layout.ZippedDivide(v.lay, []layout.Layout{layout.ColMajor(m), layout.ColMajor(n)})
	return Tiler{parent: v, inner: z.Mode(0), outer: z.Mode(1)}
}

// At returns the (m, n) tile. Out-of-range indices are the caller's
// responsibility and address memory outside the tile grid.
func (t Tiler) At(m, n int) View {
	v := t.parent
	v.base += t.outer.Offset(inttuple.Is(m, n))
	v.lay = t.inner
	return v
}

// Shape returns the number of tiles per axis.
func (t Tiler) Shape() (int, int) {
	return inttuple.Product(t.outer.Shape().At(0)), inttuple.Product(t.outer.Shape().At(1))
}

// Distribute partitions the view across a worker grid described by
// threadLayout: worker tid receives the fragment of every
// threadShape-strided element starting at its own coordinate. Fragments of
// distinct workers are disjoint, and when the thread shape divides the data
// shape their union covers the whole view.
func (v View) Distribute(threadLayout layout.Layout, tid int) View {
	rank := threadLayout.Rank()
	if rank > v.lay.Rank() {
		panic(fmt.Sprintf("tile: thread layout rank %d exceeds data rank %d", rank, v.lay.Rank()))
	}

	tiler := make([]layout.Layout, rank)
	for i := 0; i < rank; i++ {
		tiler[i] = layout.ColMajor(inttuple.Product(threadLayout.Shape().At(i)))
	}
	z := layout.ZippedDivide(v.lay, tiler)
	inner, outer := z.Mode(0), z.Mode(1)

	// Per axis, the worker's coordinate is (tid / stride) % shape of the
	// thread layout; its fragment origin accumulates through the inner
	// (per-tile) strides.
	coords := make([]inttuple.IntTuple, rank)
	for i := 0; i < rank; i++ {
		tShape := inttuple.Product(threadLayout.Shape().At(i))
		tStride := threadLayout.Stride().At(i).Value()
		coords[i] = inttuple.I((tid / tStride) % tShape)
	}
	v.base += inner.Offset(inttuple.T(coords...))
	v.lay = outer
	return v
}

// Vectorize groups each axis of a rank-2 view into m-by-n elements,
// attaching the grouped sub-layout as the view's element layout. Element
// access then moves whole m-by-n vectors.
func (v View) Vectorize(m, n int) View {
	if v.lay.Rank() != 2 {
		panic(fmt.Sprintf("tile: Vectorize of rank-%d view", v.lay.Rank()))
	}
	z := layout.ZippedDivide(v.lay, []layout.Layout{layout.ColMajor(m), layout.ColMajor(n)})
	v.elem = z.Mode(0)
	v.lay = z.Mode(1)
	return v
}

// Sub returns a view over the same buffer with layout lay anchored delta
// elements past the parent's base. The delta is applied before the swizzle,
// like every other base offset.
func (v View) Sub(lay layout.Layout, delta int) View {
	v.base += delta
	v.lay = lay
	return v
}

// String describes the view.
func (v View) String() string {
	return fmt.Sprintf("view{%v, elem %v, %s}", v.lay, v.elem, v.buf.Space())
}
