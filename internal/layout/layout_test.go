package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilekit-ml/tilekit/internal/inttuple"
)

func TestNewRejectsNonCongruent(t *testing.T) {
	assert.Panics(t, func() {
		New(inttuple.Is(4, 3), inttuple.T(inttuple.I(3), inttuple.Is(1, 1)))
	})
	assert.Panics(t, func() {
		New(inttuple.Is(4, 3), inttuple.I(1))
	})
}

func TestRowMajorOffsets(t *testing.T) {
	// The 4x3 row-major layout: stride (3,1).
	l := RowMajor(4, 3)
	require.True(t, l.Stride().Equal(inttuple.Is(3, 1)))

	assert.Equal(t, 7, l.Offset(inttuple.Is(2, 1)))
	assert.Equal(t, 0, l.Offset(inttuple.Is(0, 0)))
	assert.Equal(t, 11, l.Offset(inttuple.Is(3, 2)))
	assert.Equal(t, 12, l.Size())
	assert.Equal(t, 12, l.Cosize())
}

func TestColMajorOffsets(t *testing.T) {
	l := ColMajor(4, 3)
	require.True(t, l.Stride().Equal(inttuple.Is(1, 4)))
	assert.Equal(t, 6, l.Offset(inttuple.Is(2, 1)))
}

func TestSingleDimFactoriesAreTilerShaped(t *testing.T) {
	// Complement and the divide entry points take rank-1 tiles in leaf
	// form, so a one-extent factory result must feed them directly.
	l := ColMajor(4)
	require.True(t, l.Shape().IsLeaf())
	require.True(t, l.Stride().IsLeaf())
	assert.Equal(t, "2:4", Complement(l, 8).String())

	r := RowMajor(4)
	require.True(t, r.Shape().IsLeaf())
	assert.Equal(t, "4:1", r.String())
}

func TestCoordInvertsOffsetLinear(t *testing.T) {
	layouts := []Layout{
		ColMajor(4, 3),
		FromShape(inttuple.T(inttuple.I(4), inttuple.Is(2, 3))),
	}
	for _, l := range layouts {
		for idx := 0; idx < l.Size(); idx++ {
			crd := l.Coord(idx)
			assert.Equal(t, idx, inttuple.Crd2IdxDefault(crd, l.Shape()),
				"layout %v index %d", l, idx)
		}
	}
}

func TestOffsetLinearMatchesCoordinateForm(t *testing.T) {
	l := RowMajor(4, 6)
	for idx := 0; idx < l.Size(); idx++ {
		crd := l.Coord(idx)
		assert.Equal(t, l.Offset(crd), l.OffsetLinear(idx))
	}
}

func TestCosizeWithGaps(t *testing.T) {
	// 4x3 with a padded row stride leaves a hole after each row.
	l := New(inttuple.Is(4, 3), inttuple.Is(4, 1))
	assert.Equal(t, 12, l.Size())
	assert.Equal(t, 15, l.Cosize())
}

func TestAllDimsKnown(t *testing.T) {
	known := RowMajor(4, 3)
	assert.True(t, known.AllDimsKnown())

	dynamic := New(inttuple.Is(Unknown, 3), inttuple.Is(3, 1))
	assert.False(t, dynamic.AllDimsKnown())
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name string
		in   Layout
		want Layout
	}{
		{
			"contiguous modes merge",
			New(inttuple.Is(4, 3), inttuple.Is(1, 4)),
			New(inttuple.I(12), inttuple.I(1)),
		},
		{
			"size one modes drop",
			New(inttuple.Is(4, 1, 3), inttuple.Is(1, 99, 4)),
			New(inttuple.I(12), inttuple.I(1)),
		},
		{
			"gap survives",
			New(inttuple.Is(4, 3), inttuple.Is(1, 8)),
			New(inttuple.Is(4, 3), inttuple.Is(1, 8)),
		},
		{
			"all ones",
			New(inttuple.Is(1, 1), inttuple.Is(3, 7)),
			New(inttuple.I(1), inttuple.I(0)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Coalesce()
			assert.True(t, tt.want.Equal(got), "Coalesce(%v) = %v, want %v", tt.in, got, tt.want)
		})
	}
}

func TestCoalescePreservesOffsets(t *testing.T) {
	l := New(inttuple.Is(2, 2, 3), inttuple.Is(1, 2, 8))
	c := l.Coalesce()
	for idx := 0; idx < l.Size(); idx++ {
		assert.Equal(t, l.OffsetLinear(idx), c.OffsetLinear(idx), "index %d", idx)
	}
}

func TestComposition(t *testing.T) {
	// Taking every second element of a contiguous run of 8: 4 elements with
	// stride 2.
	a := New(inttuple.I(4), inttuple.I(2))
	b := ColMajor(8)
	r := Composition(a, b)
	assert.Equal(t, "4:2", r.String())

	// a's domain, b's offsets: the composed layout walks b at a's positions.
	for idx := 0; idx < r.Size(); idx++ {
		assert.Equal(t, b.OffsetLinear(a.OffsetLinear(idx)), r.OffsetLinear(idx))
	}
}

func TestCompositionSpansModes(t *testing.T) {
	// 8 consecutive domain positions of a (4,4):(1,4) layout cross the mode
	// boundary; the composed result must agree pointwise.
	a := ColMajor(8)
	b := ColMajor(4, 4)
	r := Composition(a, b)
	for idx := 0; idx < 8; idx++ {
		assert.Equal(t, b.OffsetLinear(idx), r.OffsetLinear(idx))
	}
}

func TestCompositionRejectsNonDivisible(t *testing.T) {
	assert.Panics(t, func() {
		Composition(New(inttuple.I(4), inttuple.I(3)), ColMajor(8, 8))
	})
}

func TestComplement(t *testing.T) {
	// Tile 4:1 inside extent 8 leaves the outer repetition 2:4.
	c := Complement(New(inttuple.I(4), inttuple.I(1)), 8)
	assert.Equal(t, "2:4", c.String())

	// Tile 2:4 inside extent 16 leaves the sub-stride run and the outer
	// repetition.
	c = Complement(New(inttuple.I(2), inttuple.I(4)), 16)
	assert.Equal(t, "(4,2):(1,8)", c.String())
}

func TestZippedDivide(t *testing.T) {
	// The canonical tiling example: an 8x8 column-major matrix divided into
	// 4x2 tiles.
	l := ColMajor(8, 8)
	tiler := []Layout{ColMajor(4), ColMajor(2)}
	z := ZippedDivide(l, tiler)

	require.Equal(t, 2, z.Rank())
	assert.Equal(t, "(4,2):(1,8)", z.Mode(0).String())
	assert.Equal(t, "(2,4):(4,16)", z.Mode(1).String())
}

func TestZippedDividePartitions(t *testing.T) {
	// Every (inner, outer) pair must land on a distinct offset and the
	// union must cover the whole matrix.
	l := ColMajor(8, 8)
	z := ZippedDivide(l, []Layout{ColMajor(4), ColMajor(2)})
	inner, outer := z.Mode(0), z.Mode(1)

	seen := make(map[int]bool)
	for o := 0; o < outer.Size(); o++ {
		base := outer.OffsetLinear(o)
		for i := 0; i < inner.Size(); i++ {
			off := base + inner.OffsetLinear(i)
			require.False(t, seen[off], "offset %d visited twice", off)
			seen[off] = true
		}
	}
	assert.Equal(t, l.Size(), len(seen))
}

func TestCompiledMatchesLayout(t *testing.T) {
	layouts := []Layout{
		RowMajor(4, 3),
		ColMajor(8, 8),
		New(inttuple.Is(4, 3), inttuple.Is(4, 1)),
		FromShape(inttuple.T(inttuple.I(4), inttuple.Is(2, 3))),
	}
	for _, l := range layouts {
		c32 := Compile[int32](l)
		c64 := Compile[int64](l)
		assert.Equal(t, int32(l.Size()), c32.Size())
		assert.Equal(t, int64(l.Cosize()), c64.Cosize())
		for idx := 0; idx < l.Size(); idx++ {
			want := l.OffsetLinear(idx)
			assert.Equal(t, int32(want), c32.Offset(int32(idx)), "layout %v index %d", l, idx)
			assert.Equal(t, int64(want), c64.Offset(int64(idx)), "layout %v index %d", l, idx)
		}
	}
}

func TestCompileRejectsUnknownDims(t *testing.T) {
	dynamic := New(inttuple.Is(Unknown, 3), inttuple.Is(3, 1))
	assert.Panics(t, func() { Compile[int64](dynamic) })
}
