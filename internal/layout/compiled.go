package layout

import "fmt"

// Index is the offset integer width of a compiled layout. The width is
// selected by an address-space policy: 32-bit arithmetic for shared/scratch
// windows, 64-bit for global memory.
type Index interface {
	~int32 | ~int64
}

// Compiled is the fully-resolved fast path of a Layout: shape and stride
// flattened into fixed-width slices with the offset fold closed over them.
// It drops the hierarchy, so it answers only linear-index and flat-coordinate
// queries; hierarchical queries stay on Layout.
type Compiled[I Index] struct {
	shape  []I
	stride []I
	size   I
	cosize I
}

// Compile flattens a fully known layout. Layouts carrying Unknown leaves
// cannot be compiled and must evaluate through the recursive path.
func Compile[I Index](l Layout) Compiled[I] {
	if !l.AllDimsKnown() {
		panic(fmt.Sprintf("layout: cannot compile layout %v with unknown dims", l))
	}
	shapes := l.Shape().Flatten()
	strides := l.Stride().Flatten()

	c := Compiled[I]{
		shape:  make([]I, len(shapes)),
		stride: make([]I, len(strides)),
		size:   1,
	}
	maxOff := I(0)
	for i := range shapes {
		s, d := I(shapes[i]), I(strides[i])
		c.shape[i] = s
		c.stride[i] = d
		c.size *= s
		maxOff += (s - 1) * d
	}
	c.cosize = maxOff + 1
	return c
}

// Rank returns the number of flattened modes.
func (c Compiled[I]) Rank() int { return len(c.shape) }

// Size returns the domain size.
func (c Compiled[I]) Size() I { return c.size }

// Cosize returns one past the maximum reachable offset.
func (c Compiled[I]) Cosize() I { return c.cosize }

// Offset folds a linear index to an offset, peeling modes
// colexicographically. Equivalent to Layout.OffsetLinear on the source
// layout for every index in [0, Size()).
func (c Compiled[I]) Offset(idx I) I {
	var off I
	for i := range c.shape {
		off += (idx % c.shape[i]) * c.stride[i]
		idx /= c.shape[i]
	}
	return off
}

// OffsetCrd folds a flat per-mode coordinate to an offset. The coordinate
// must have exactly Rank() entries.
func (c Compiled[I]) OffsetCrd(crd []I) I {
	if len(crd) != len(c.shape) {
		panic(fmt.Sprintf("layout: coordinate rank %d does not match compiled rank %d", len(crd), len(c.shape)))
	}
	var off I
	for i := range crd {
		off += crd[i] * c.stride[i]
	}
	return off
}
