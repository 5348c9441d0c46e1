package swizzle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilekit-ml/tilekit/internal/layout"
)

func TestNewRejectsBadParameters(t *testing.T) {
	assert.Panics(t, func() { New(-1, 0, 3) })
	assert.Panics(t, func() { New(2, -1, 3) })
	assert.Panics(t, func() { New(3, 0, 2) })  // |shift| < bits
	assert.Panics(t, func() { New(3, 0, -2) }) // |shift| < bits, negative
	assert.NotPanics(t, func() { New(3, 0, 3) })
	assert.NotPanics(t, func() { New(2, 3, -2) })
}

func TestApplyScenario(t *testing.T) {
	// Swizzle(2,0,3) has yyy mask 0b11000; offset 8 picks up bit 3, shifted
	// down by 3 onto bit 0.
	s := New(2, 0, 3)
	require.Equal(t, 0b11000, s.YYYMask())
	assert.Equal(t, 9, s.Apply(8))
	assert.Equal(t, 0, s.Apply(0))
}

func TestApplyNegativeShift(t *testing.T) {
	// A negative shift moves the masked bits left.
	s := New(1, 0, -2)
	// yyy masks bit 0; offset 1 flips bit 2.
	assert.Equal(t, 0b101, s.Apply(0b001))
	assert.Equal(t, 0b010, s.Apply(0b010))
}

func TestSwizzleIsPermutation(t *testing.T) {
	swizzles := []Swizzle{
		New(2, 0, 3),
		New(3, 3, 3),
		New(2, 3, 2),
		New(1, 0, -2),
		Identity(),
	}
	for _, s := range swizzles {
		span := s.Span()
		// A permutation over two full windows: no two inputs may collide.
		seen := make(map[int]int, 2*span)
		for o := 0; o < 2*span; o++ {
			got := s.Apply(o)
			prev, dup := seen[got]
			require.False(t, dup, "%v maps both %d and %d to %d", s, prev, o, got)
			seen[got] = o
			assert.Less(t, got, 2*span, "%v maps %d out of its window", s, o)
		}
	}
}

func TestSwizzleSelfInverse(t *testing.T) {
	s := New(3, 3, 3)
	for o := 0; o < s.Span(); o++ {
		assert.Equal(t, o, s.Apply(s.Apply(o)))
	}
}

func TestMakeLdmatrixSwizzle(t *testing.T) {
	tests := []struct {
		name      string
		elemBytes int
		rowSize   int
		want      Swizzle
	}{
		// 64 half-precision elements per row: 128 bytes, fully 8-way.
		{"half 64", 2, 64, Swizzle{Bits: 3, Base: 3, Shift: 3}},
		// 32 half-precision elements per row: 4 conflict ways.
		{"half 32", 2, 32, Swizzle{Bits: 2, Base: 3, Shift: 2}},
		// 32 float elements per row: 128 bytes again, 8-way at base 2.
		{"float 32", 4, 32, Swizzle{Bits: 3, Base: 2, Shift: 3}},
		// 8 half elements per row is a single 16-byte access per row.
		{"half 8", 2, 8, Identity()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MakeLdmatrixSwizzle(tt.elemBytes, tt.rowSize)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMakeLdmatrixSwizzleBankSpread(t *testing.T) {
	// 8 workers each load a 16-byte vector from consecutive rows of a
	// 64-element half-precision tile. Unswizzled they all hit banks 0..3;
	// swizzled they must hit 8 disjoint bank groups.
	const elemBytes, rowSize = 2, 64
	s := MakeLdmatrixSwizzle(elemBytes, rowSize)

	banks := make(map[int]bool)
	for worker := 0; worker < 8; worker++ {
		elemOff := s.Apply(worker * rowSize)
		byteOff := elemOff * elemBytes
		banks[(byteOff%128)/4] = true
	}
	assert.Len(t, banks, 8, "each worker must start in a distinct bank group")
}

func TestComposedLayoutOffset(t *testing.T) {
	// Shape decomposition precedes swizzling.
	l := layout.RowMajor(8, 8)
	s := New(2, 0, 3)
	c := NewComposed(l, 0, s)

	require.Equal(t, 64, c.Size())
	for idx := 0; idx < c.Size(); idx++ {
		assert.Equal(t, s.Apply(l.OffsetLinear(idx)), c.Offset(idx))
	}
}

func TestComposedLayoutBaseOffset(t *testing.T) {
	l := layout.ColMajor(4)
	s := Identity()
	c := NewComposed(l, 16, s)
	assert.Equal(t, 16, c.Offset(0))
	assert.Equal(t, 19, c.Offset(3))
}

func TestComposedLayoutRejectsNegativeOffset(t *testing.T) {
	assert.Panics(t, func() { NewComposed(layout.ColMajor(4), -1, Identity()) })
}

func TestComposedLayoutSwizzleOnly(t *testing.T) {
	s := New(2, 0, 3)
	c := FromSwizzle(s)
	for idx := 0; idx < s.Span(); idx++ {
		assert.Equal(t, s.Apply(idx), c.Offset(idx))
	}
}

func TestComposedLayoutRemainsPermutation(t *testing.T) {
	// Composing a bijective layout with a swizzle must keep offsets within
	// [0, Cosize()) and collision-free.
	l := layout.ColMajor(8, 8)
	c := NewComposed(l, 0, New(3, 0, 3))

	seen := make(map[int]bool)
	for idx := 0; idx < c.Size(); idx++ {
		off := c.Offset(idx)
		require.False(t, seen[off], "offset %d produced twice", off)
		require.Less(t, off, c.Cosize())
		seen[off] = true
	}
}
