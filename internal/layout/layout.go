// Package layout implements the hierarchical layout algebra: a Layout is a
// pure function from a (possibly nested) coordinate to a linear memory
// offset, defined by a congruent shape/stride pair of IntTuples.
package layout

import (
	"fmt"

	"github.com/tilekit-ml/tilekit/internal/inttuple"
)

// Unknown marks a shape or stride leaf whose value is only known at run
// time. Layouts containing Unknown leaves cannot be compiled to the static
// fast path and always evaluate through the recursive tuple walk.
const Unknown = -1

// Layout maps a coordinate to a linear offset via crd2idx(coord, shape,
// stride). Shape and stride always have identical nesting structure.
type Layout struct {
	shape  inttuple.IntTuple
	stride inttuple.IntTuple
}

// New builds a layout from a shape and a stride. The two must be congruent;
// a mismatched nesting is a programming error and panics.
func New(shape, stride inttuple.IntTuple) Layout {
	if !inttuple.Congruent(shape, stride) {
		panic(fmt.Sprintf("layout: shape %v and stride %v are not congruent", shape, stride))
	}
	return Layout{shape: shape, stride: stride}
}

// FromShape builds a layout with the canonical colexicographic strides
// (exclusive prefix product of the shape, first mode fastest).
func FromShape(shape inttuple.IntTuple) Layout {
	return Layout{shape: shape, stride: inttuple.PrefixProduct(shape)}
}

// ColMajor builds a rank-len(dims) layout with the first mode fastest.
// A single extent yields the leaf layout d:1, the form Complement and the
// divide entry points take their tiles in.
func ColMajor(dims ...int) Layout {
	if len(dims) == 1 {
		return Layout{shape: inttuple.I(dims[0]), stride: inttuple.I(1)}
	}
	return FromShape(inttuple.Is(dims...))
}

// RowMajor builds a rank-len(dims) layout with the last mode fastest.
// A single extent yields the leaf layout d:1, same as ColMajor.
func RowMajor(dims ...int) Layout {
	if len(dims) == 1 {
		return Layout{shape: inttuple.I(dims[0]), stride: inttuple.I(1)}
	}
	strides := make([]int, len(dims))
	running := 1
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = running
		running *= dims[i]
	}
	return Layout{shape: inttuple.Is(dims...), stride: inttuple.Is(strides...)}
}

// Shape returns the shape tuple.
func (l Layout) Shape() inttuple.IntTuple { return l.shape }

// Stride returns the stride tuple.
func (l Layout) Stride() inttuple.IntTuple { return l.stride }

// Rank returns the number of top-level modes.
func (l Layout) Rank() int { return l.shape.Rank() }

// Mode returns the i-th top-level sub-layout.
func (l Layout) Mode(i int) Layout {
	return Layout{shape: l.shape.At(i), stride: l.stride.At(i)}
}

// Size returns the number of coordinates in the domain: the product of all
// shape leaves.
func (l Layout) Size() int {
	return inttuple.Product(l.shape)
}

// Cosize returns one past the maximum reachable offset.
func (l Layout) Cosize() int {
	shapes := l.shape.Flatten()
	strides := l.stride.Flatten()
	max := 0
	for i := range shapes {
		max += (shapes[i] - 1) * strides[i]
	}
	return max + 1
}

// Offset evaluates the layout at a coordinate.
func (l Layout) Offset(coord inttuple.IntTuple) int {
	return inttuple.Crd2Idx(coord, l.shape, l.stride)
}

// OffsetLinear evaluates the layout at a linear index, decomposing it
// colexicographically through the shape first.
func (l Layout) OffsetLinear(idx int) int {
	return inttuple.Crd2Idx(inttuple.I(idx), l.shape, l.stride)
}

// Coord inverts a linear domain index into a coordinate congruent to the
// shape.
func (l Layout) Coord(idx int) inttuple.IntTuple {
	return inttuple.Idx2CrdDefault(idx, l.shape)
}

// AllDimsKnown reports whether every shape and stride leaf holds a concrete
// value. Only fully known layouts can take the compiled fast path.
func (l Layout) AllDimsKnown() bool {
	for _, v := range l.shape.Flatten() {
		if v < 0 {
			return false
		}
	}
	for _, v := range l.stride.Flatten() {
		if v < 0 {
			return false
		}
	}
	return true
}

// Equal reports shape and stride equality.
func (l Layout) Equal(o Layout) bool {
	return l.shape.Equal(o.shape) && l.stride.Equal(o.stride)
}

// String renders the layout as "shape:stride".
func (l Layout) String() string {
	return l.shape.String() + ":" + l.stride.String()
}

// Coalesce flattens the layout and merges adjacent modes that describe one
// contiguous run (stride2 == shape1*stride1). Size-1 modes are dropped. The
// result is offset-equivalent to the input on every linear index.
func (l Layout) Coalesce() Layout {
	shapes := l.shape.Flatten()
	strides := l.stride.Flatten()

	outShapes := make([]int, 0, len(shapes))
	outStrides := make([]int, 0, len(strides))
	for i := range shapes {
		s, d := shapes[i], strides[i]
		if s == 1 {
			continue
		}
		if n := len(outShapes); n > 0 && d == outShapes[n-1]*outStrides[n-1] {
			outShapes[n-1] *= s
			continue
		}
		outShapes = append(outShapes, s)
		outStrides = append(outStrides, d)
	}
	if len(outShapes) == 0 {
		return New(inttuple.I(1), inttuple.I(0))
	}
	if len(outShapes) == 1 {
		return New(inttuple.I(outShapes[0]), inttuple.I(outStrides[0]))
	}
	return New(inttuple.Is(outShapes...), inttuple.Is(outStrides...))
}

// Append returns a layout whose top-level modes are those of l followed by
// those of o.
func Append(layouts ...Layout) Layout {
	shapes := make([]inttuple.IntTuple, len(layouts))
	strides := make([]inttuple.IntTuple, len(layouts))
	for i, l := range layouts {
		shapes[i] = l.shape
		strides[i] = l.stride
	}
	return Layout{shape: inttuple.T(shapes...), stride: inttuple.T(strides...)}
}
