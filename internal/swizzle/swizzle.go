// Package swizzle implements XOR-based bit permutations of linear offsets
// and their composition with layouts.
//
// A swizzle remaps offsets inside a shared-memory tile so that parallel
// workers walking the tile land in distinct memory banks. The permutation
// XORs a masked group of high bits onto a lower group, which preserves
// distinctness: equal swizzled offsets imply equal inputs.
package swizzle

import (
	"fmt"

	"github.com/tilekit-ml/tilekit/internal/layout"
)

// Swizzle is the (bits, base, shift) bit permutation
//
//	offset ^ ((offset & yyy) >> shift)
//
// where yyy masks bits [base+max(0,shift), base+max(0,shift)+bits) and a
// negative shift moves the masked bits left instead of right. Bits below
// base are never touched.
type Swizzle struct {
	Bits  int
	Base  int
	Shift int
}

// New validates and builds a swizzle. Bits and Base must be non-negative
// and |Shift| must be at least Bits so the mask and its XOR target never
// overlap; violating either is a programming error.
func New(bits, base, shift int) Swizzle {
	if bits < 0 || base < 0 {
		panic(fmt.Sprintf("swizzle: negative bits %d or base %d", bits, base))
	}
	abs := shift
	if abs < 0 {
		abs = -abs
	}
	if abs < bits {
		panic(fmt.Sprintf("swizzle: |shift| %d < bits %d would overlap the mask", shift, bits))
	}
	return Swizzle{Bits: bits, Base: base, Shift: shift}
}

// Identity returns the no-op swizzle.
func Identity() Swizzle { return Swizzle{} }

// IsIdentity reports whether the swizzle permutes nothing.
func (s Swizzle) IsIdentity() bool { return s.Bits == 0 }

// YYYMask returns the mask of source bits.
func (s Swizzle) YYYMask() int {
	shift := s.Shift
	if shift < 0 {
		shift = 0
	}
	return ((1 << s.Bits) - 1) << (s.Base + shift)
}

// Apply permutes one offset.
func (s Swizzle) Apply(offset int) int {
	masked := offset & s.YYYMask()
	if s.Shift >= 0 {
		return offset ^ (masked >> s.Shift)
	}
	return offset ^ (masked << -s.Shift)
}

// Span returns the size of the smallest aligned window the swizzle permutes
// within: any multiple of Span() is mapped onto the same window. Both the
// masked source bits and their XOR target fall below Base + |Shift| + Bits.
func (s Swizzle) Span() int {
	abs := s.Shift
	if abs < 0 {
		abs = -abs
	}
	return 1 << (s.Base + abs + s.Bits)
}

// String renders the swizzle as "S<bits,base,shift>".
func (s Swizzle) String() string {
	return fmt.Sprintf("S<%d,%d,%d>", s.Bits, s.Base, s.Shift)
}

// ldmatrixAccessBytes is the byte width of one per-worker vector access of
// the load-matrix instruction, and bankRowBytes the bytes covered by one
// full sweep of the 32 4-byte shared-memory banks.
const (
	ldmatrixAccessBytes = 16
	bankRowBytes        = 128
)

// MakeLdmatrixSwizzle derives the swizzle for load-matrix accesses into a
// row-major shared-memory tile with rowSize elements of elemBytes each. The
// number of swizzle bits equals log2 of the conflict ways
//
//	conflict_ways = min(8 * rowSize * elemBytes / 128, 8)
//
// so consecutive workers reading down a column land in distinct banks.
func MakeLdmatrixSwizzle(elemBytes, rowSize int) Swizzle {
	rowBytes := rowSize * elemBytes
	if rowBytes%ldmatrixAccessBytes != 0 {
		panic(fmt.Sprintf("swizzle: row of %d bytes is not a multiple of the %d-byte access", rowBytes, ldmatrixAccessBytes))
	}
	ways := 8 * rowBytes / bankRowBytes
	if ways > 8 {
		ways = 8
	}
	if ways <= 1 {
		return Identity()
	}
	bits := intLog2(ways)
	base := intLog2(ldmatrixAccessBytes / elemBytes)
	shift := intLog2(rowBytes / ldmatrixAccessBytes)
	return New(bits, base, shift)
}

func intLog2(n int) int {
	if n <= 0 || n&(n-1) != 0 {
		panic(fmt.Sprintf("swizzle: %d is not a positive power of two", n))
	}
	log := 0
	for n > 1 {
		n >>= 1
		log++
	}
	return log
}

// ComposedLayout chains a layout with a swizzle: the index is first reduced
// through the layout's flattened shape/stride, a non-negative base offset is
// added, and the swizzle permutes the result. The second component is
// restricted to a swizzle; general layout-through-layout chaining goes
// through layout.Composition instead.
type ComposedLayout struct {
	outer    layout.Layout
	hasOuter bool
	offset   int
	inner    Swizzle
}

// NewComposed builds a layout-then-swizzle chain. The base offset must be
// non-negative.
func NewComposed(outer layout.Layout, offset int, inner Swizzle) ComposedLayout {
	if offset < 0 {
		panic(fmt.Sprintf("swizzle: negative composed base offset %d", offset))
	}
	return ComposedLayout{outer: outer, hasOuter: true, offset: offset, inner: inner}
}

// FromSwizzle builds a composed layout with no shape component: the swizzle
// applies directly to the incoming index.
func FromSwizzle(inner Swizzle) ComposedLayout {
	return ComposedLayout{inner: inner}
}

// Layout returns the shape component and whether one is present.
func (c ComposedLayout) Layout() (layout.Layout, bool) { return c.outer, c.hasOuter }

// Inner returns the swizzle component.
func (c ComposedLayout) Inner() Swizzle { return c.inner }

// Size returns the domain size of the shape component.
func (c ComposedLayout) Size() int {
	if !c.hasOuter {
		panic("swizzle: Size of a composed layout without a shape component")
	}
	return c.outer.Size()
}

// Cosize returns one past the maximum offset the chain can produce: the
// shape component's cosize plus the base offset, rounded up to the swizzle's
// permutation window.
func (c ComposedLayout) Cosize() int {
	if !c.hasOuter {
		return c.inner.Span()
	}
	n := c.outer.Cosize() + c.offset
	span := c.inner.Span()
	if span <= 1 {
		return n
	}
	return (n + span - 1) / span * span
}

// Offset maps a linear domain index to its swizzled offset. Shape
// decomposition always precedes swizzling.
func (c ComposedLayout) Offset(idx int) int {
	if !c.hasOuter {
		return c.inner.Apply(idx)
	}
	return c.inner.Apply(c.outer.OffsetLinear(idx) + c.offset)
}

// String renders the chain in evaluation order.
func (c ComposedLayout) String() string {
	if !c.hasOuter {
		return c.inner.String()
	}
	return fmt.Sprintf("%v o %v +%d", c.outer, c.inner, c.offset)
}
