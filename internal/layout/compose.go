package layout

import (
	"fmt"

	"github.com/tilekit-ml/tilekit/internal/inttuple"
)

// Composition builds a layout whose coordinate space is a's domain and whose
// offsets are computed by treating a's outputs as linear coordinates into b.
// The result mirrors a's nesting; each leaf mode of a may expand into
// several modes of b it strides across.
//
// Divisibility between a's modes and b's shape is a hard precondition; an
// unsatisfiable composition panics.
func Composition(a, b Layout) Layout {
	bShapes := b.shape.Flatten()
	bStrides := b.stride.Flatten()
	shape, stride := composeTuple(a.shape, a.stride, bShapes, bStrides)
	return Layout{shape: shape, stride: stride}
}

func composeTuple(shape, stride inttuple.IntTuple, bShapes, bStrides []int) (inttuple.IntTuple, inttuple.IntTuple) {
	if shape.IsLeaf() {
		return composeLeaf(shape.Value(), stride.Value(), bShapes, bStrides)
	}
	outShapes := make([]inttuple.IntTuple, shape.Rank())
	outStrides := make([]inttuple.IntTuple, shape.Rank())
	for i := 0; i < shape.Rank(); i++ {
		outShapes[i], outStrides[i] = composeTuple(shape.At(i), stride.At(i), bShapes, bStrides)
	}
	return inttuple.T(outShapes...), inttuple.T(outStrides...)
}

// composeLeaf composes the single mode n:r through the flattened target
// layout. Walking the target's modes colexicographically, the first r
// elements are skipped and the next n are kept, which may span several
// target modes.
func composeLeaf(n, r int, bShapes, bStrides []int) (inttuple.IntTuple, inttuple.IntTuple) {
	if n == 1 || r == 0 {
		if n == 1 {
			return inttuple.I(1), inttuple.I(0)
		}
		return inttuple.I(n), inttuple.I(0)
	}

	restN, restR := n, r
	var shapes, strides []int
	for i := 0; i < len(bShapes) && restN > 1; i++ {
		s, d := bShapes[i], bStrides[i]
		if restR >= s {
			if restR%s != 0 {
				panic(fmt.Sprintf("layout: composition stride %d does not fold through mode extent %d", r, s))
			}
			restR /= s
			continue
		}
		if s%restR != 0 {
			panic(fmt.Sprintf("layout: composition stride %d does not divide mode extent %d", restR, s))
		}
		avail := s / restR
		take := avail
		if restN < take {
			take = restN
		}
		if avail%take != 0 && take%avail != 0 {
			panic(fmt.Sprintf("layout: composition extent %d does not tile mode extent %d", restN, avail))
		}
		shapes = append(shapes, take)
		strides = append(strides, d*restR)
		if restN%take != 0 {
			panic(fmt.Sprintf("layout: composition extent %d is not divisible by %d", restN, take))
		}
		restN /= take
		restR = 1
	}
	if restN > 1 {
		panic(fmt.Sprintf("layout: composition %d:%d exceeds target domain", n, r))
	}

	switch len(shapes) {
	case 0:
		return inttuple.I(1), inttuple.I(0)
	case 1:
		return inttuple.I(shapes[0]), inttuple.I(strides[0])
	default:
		return inttuple.Is(shapes...), inttuple.Is(strides...)
	}
}

// Complement returns the layout of everything a rank-1 tile m:s leaves
// uncovered within a mode of the given extent: repetitions below the tile's
// stride and repetitions of the whole tile up to the extent. extent must be
// a multiple of m*s.
func Complement(tile Layout, extent int) Layout {
	if !tile.shape.IsLeaf() || !tile.stride.IsLeaf() {
		panic("layout: Complement requires a rank-1 tile")
	}
	m, s := tile.shape.Value(), tile.stride.Value()
	if m <= 0 || s <= 0 {
		panic(fmt.Sprintf("layout: Complement of degenerate tile %v", tile))
	}
	if extent%(m*s) != 0 {
		panic(fmt.Sprintf("layout: tile %v does not divide extent %d", tile, extent))
	}

	rep := extent / (m * s)
	switch {
	case s == 1 && rep == 1:
		return New(inttuple.I(1), inttuple.I(0))
	case s == 1:
		return New(inttuple.I(rep), inttuple.I(m))
	case rep == 1:
		return New(inttuple.I(s), inttuple.I(1))
	default:
		return New(inttuple.Is(s, rep), inttuple.Is(1, m*s))
	}
}

// LogicalDivide splits each top-level mode of l into (tile, rest) against
// the corresponding rank-1 tiler mode. Modes beyond len(tiler) pass through
// untouched. The divided mode i becomes ((tile_i), (rest_i)).
func LogicalDivide(l Layout, tiler []Layout) Layout {
	if len(tiler) > l.Rank() {
		panic(fmt.Sprintf("layout: tiler rank %d exceeds layout rank %d", len(tiler), l.Rank()))
	}
	modes := make([]Layout, l.Rank())
	for i := 0; i < l.Rank(); i++ {
		mode := l.Mode(i)
		if i >= len(tiler) {
			modes[i] = mode
			continue
		}
		t := tiler[i]
		divider := Append(t, Complement(t, mode.Size()))
		modes[i] = Composition(divider, mode)
	}
	return Append(modes...)
}

// ZippedDivide is LogicalDivide with the per-mode (tile, rest) pairs
// regrouped into ((tile_0, ..., tile_k), (rest_0, ..., rest_k, untouched)):
// the inner half indexes within one tile, the outer half across tiles.
func ZippedDivide(l Layout, tiler []Layout) Layout {
	divided := LogicalDivide(l, tiler)

	inner := make([]Layout, len(tiler))
	outer := make([]Layout, 0, divided.Rank())
	for i := 0; i < divided.Rank(); i++ {
		mode := divided.Mode(i)
		if i < len(tiler) {
			inner[i] = mode.Mode(0)
			outer = append(outer, mode.Mode(1))
			continue
		}
		outer = append(outer, mode)
	}
	return Append(Append(inner...), Append(outer...))
}
