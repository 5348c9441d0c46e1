// Copyright 2026 TileKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package layout

import (
	"github.com/tilekit-ml/tilekit/internal/inttuple"
	"github.com/tilekit-ml/tilekit/internal/layout"
	"github.com/tilekit-ml/tilekit/internal/swizzle"
)

// Type aliases for public API

// IntTuple is a hierarchical integer tuple: a leaf value or a node of
// sub-tuples. Shapes, strides, and coordinates are all IntTuples.
type IntTuple = inttuple.IntTuple

// I builds a leaf tuple.
func I(v int) IntTuple { return inttuple.I(v) }

// T builds a node tuple from sub-tuples.
//
// Example:
//
//	layout.T(layout.I(4), layout.Is(2, 3))  // (4,(2,3))
func T(elems ...IntTuple) IntTuple { return inttuple.T(elems...) }

// Is builds a flat node tuple from integers.
func Is(vs ...int) IntTuple { return inttuple.Is(vs...) }

// Product multiplies all leaves of t.
func Product(t IntTuple) int { return inttuple.Product(t) }

// PrefixProduct computes the exclusive prefix product of t in colexicographic
// order, congruent to t. These are the default (compact column-major) strides
// of a shape.
func PrefixProduct(t IntTuple) IntTuple { return inttuple.PrefixProduct(t) }

// ShapeDiv divides shape a by b, folding quotients leaf by leaf. Panics
// unless at every step a%b == 0 or b%a == 0.
func ShapeDiv(a, b IntTuple) IntTuple { return inttuple.ShapeDiv(a, b) }

// Congruent reports whether a and b share the same hierarchical structure.
func Congruent(a, b IntTuple) bool { return inttuple.Congruent(a, b) }

// Compatible reports whether shape a can be indexed by coordinates of
// shape b.
func Compatible(a, b IntTuple) bool { return inttuple.Compatible(a, b) }

// Unknown marks a dimension whose extent is not statically known.
const Unknown = layout.Unknown

// Layout is a congruent (shape, stride) pair mapping hierarchical
// coordinates to linear offsets.
//
// Example:
//
//	l := layout.ColMajor(4, 3)
//	l.Offset(layout.Is(2, 1))  // 6
type Layout = layout.Layout

// New builds a layout from congruent shape and stride tuples. Panics when
// the tuples are not congruent.
func New(shape, stride IntTuple) Layout { return layout.New(shape, stride) }

// FromShape builds a compact column-major layout over shape.
func FromShape(shape IntTuple) Layout { return layout.FromShape(shape) }

// ColMajor builds a column-major layout over the given extents.
func ColMajor(dims ...int) Layout { return layout.ColMajor(dims...) }

// RowMajor builds a row-major layout over the given extents.
func RowMajor(dims ...int) Layout { return layout.RowMajor(dims...) }

// Append concatenates layouts into one multi-mode layout.
func Append(layouts ...Layout) Layout { return layout.Append(layouts...) }

// Composition builds the layout with a's coordinate space whose offsets run
// through b. Panics when the shapes do not divide.
func Composition(a, b Layout) Layout { return layout.Composition(a, b) }

// Complement builds the layout covering everything in [0, extent) that tile
// does not reach.
func Complement(tile Layout, extent int) Layout { return layout.Complement(tile, extent) }

// LogicalDivide splits each mode of l by the tiler into (tile, rest) pairs.
func LogicalDivide(l Layout, tiler []Layout) Layout { return layout.LogicalDivide(l, tiler) }

// ZippedDivide is LogicalDivide regrouped into ((tiles...), (rests...)):
// mode 0 addresses within one tile, mode 1 addresses across tiles.
//
// Example:
//
//	z := layout.ZippedDivide(layout.ColMajor(8, 8), []layout.Layout{layout.ColMajor(4), layout.ColMajor(2)})
//	inner, outer := z.Mode(0), z.Mode(1)
func ZippedDivide(l Layout, tiler []Layout) Layout { return layout.ZippedDivide(l, tiler) }

// Index constrains the integer width of a compiled layout.
type Index = layout.Index

// Compiled is the flattened fast path of a fully known layout: fixed-width
// shape and stride slices with a closed-form offset fold.
type Compiled[I Index] = layout.Compiled[I]

// Compile flattens l into a compiled layout. Panics when any dimension is
// Unknown; check AllDimsKnown first.
func Compile[I Index](l Layout) Compiled[I] { return layout.Compile[I](l) }

// Swizzle is an XOR permutation of layout offsets, used to spread
// shared-memory accesses across banks.
type Swizzle = swizzle.Swizzle

// NewSwizzle builds a swizzle from its (bits, base, shift) parameters.
// Panics when bits or base is negative or |shift| < bits.
func NewSwizzle(bits, base, shift int) Swizzle { return swizzle.New(bits, base, shift) }

// IdentitySwizzle returns the swizzle that leaves offsets untouched.
func IdentitySwizzle() Swizzle { return swizzle.Identity() }

// MakeLdmatrixSwizzle derives the bank-conflict-free swizzle for ldmatrix
// access to rows of rowSize elements of elemBytes bytes each.
//
// Example:
//
//	layout.MakeLdmatrixSwizzle(2, 64)  // S<3,3,3> for fp16 64-wide rows
func MakeLdmatrixSwizzle(elemBytes, rowSize int) Swizzle {
	return swizzle.MakeLdmatrixSwizzle(elemBytes, rowSize)
}

// ComposedLayout pairs an outer layout, a static offset, and an inner
// swizzle: coordinates decompose through the layout first, then the swizzle
// permutes the offset.
type ComposedLayout = swizzle.ComposedLayout

// NewComposed builds a composed layout. The offset must be non-negative.
func NewComposed(outer Layout, offset int, inner Swizzle) ComposedLayout {
	return swizzle.NewComposed(outer, offset, inner)
}

// FromSwizzle builds a composed layout with no outer shape: offsets are
// swizzled directly.
func FromSwizzle(inner Swizzle) ComposedLayout { return swizzle.FromSwizzle(inner) }
