package inttuple

import (
	"testing"
)

func assertTupleEqual(t *testing.T, expected, actual IntTuple, msg string) {
	t.Helper()
	if !expected.Equal(actual) {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

func TestLeafAndNodeBasics(t *testing.T) {
	leaf := I(7)
	if !leaf.IsLeaf() {
		t.Fatal("I(7) should be a leaf")
	}
	if leaf.Value() != 7 {
		t.Errorf("leaf value = %d, want 7", leaf.Value())
	}
	if leaf.Rank() != 1 || leaf.Depth() != 0 {
		t.Errorf("leaf rank/depth = %d/%d, want 1/0", leaf.Rank(), leaf.Depth())
	}

	node := T(I(4), T(I(2), I(3)))
	if node.IsLeaf() {
		t.Fatal("T(...) should not be a leaf")
	}
	if node.Rank() != 2 {
		t.Errorf("node rank = %d, want 2", node.Rank())
	}
	if node.Depth() != 2 {
		t.Errorf("node depth = %d, want 2", node.Depth())
	}
	if node.String() != "(4,(2,3))" {
		t.Errorf("node string = %q, want (4,(2,3))", node.String())
	}
}

func TestEmptyNodePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("T() should panic")
		}
	}()
	T()
}

func TestFlattenAndReducers(t *testing.T) {
	tests := []struct {
		name    string
		in      IntTuple
		flat    []int
		product int
		sum     int
		max     int
	}{
		{"leaf", I(5), []int{5}, 5, 5, 5},
		{"flat", Is(4, 3), []int{4, 3}, 12, 7, 4},
		{"nested", T(I(4), T(I(2), I(3))), []int{4, 2, 3}, 24, 9, 4},
		{"deep", T(T(I(2), I(2)), T(I(8), T(I(1), I(5)))), []int{2, 2, 8, 1, 5}, 160, 18, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flat := tt.in.Flatten()
			if len(flat) != len(tt.flat) {
				t.Fatalf("Flatten() = %v, want %v", flat, tt.flat)
			}
			for i := range flat {
				if flat[i] != tt.flat[i] {
					t.Errorf("Flatten()[%d] = %d, want %d", i, flat[i], tt.flat[i])
				}
			}
			if got := Product(tt.in); got != tt.product {
				t.Errorf("Product = %d, want %d", got, tt.product)
			}
			if got := Sum(tt.in); got != tt.sum {
				t.Errorf("Sum = %d, want %d", got, tt.sum)
			}
			if got := Max(tt.in); got != tt.max {
				t.Errorf("Max = %d, want %d", got, tt.max)
			}
		})
	}
}

func TestPrefixProduct(t *testing.T) {
	tests := []struct {
		name string
		in   IntTuple
		want IntTuple
	}{
		{"leaf", I(4), I(1)},
		{"flat", Is(4, 3, 2), Is(1, 4, 12)},
		{"nested", T(I(4), T(I(2), I(3))), T(I(1), T(I(4), I(8)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PrefixProduct(tt.in)
			assertTupleEqual(t, tt.want, got, "PrefixProduct")
			if !Congruent(tt.in, got) {
				t.Errorf("PrefixProduct(%v) = %v is not congruent to input", tt.in, got)
			}
		})
	}
}

func TestCongruent(t *testing.T) {
	tests := []struct {
		name string
		a, b IntTuple
		want bool
	}{
		{"leaf leaf", I(3), I(9), true},
		{"leaf node", I(3), Is(3, 1), false},
		{"same structure", T(I(4), T(I(2), I(3))), T(I(9), T(I(9), I(9))), true},
		{"rank mismatch", Is(4, 3), Is(4, 3, 2), false},
		{"nesting mismatch", T(I(4), Is(2, 3)), Is(4, 6), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Congruent(tt.a, tt.b); got != tt.want {
				t.Errorf("Congruent(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		name   string
		a, b   IntTuple
		want   bool
		weakly bool
	}{
		{"leaf equal size", I(6), Is(2, 3), true, true},
		{"leaf wrong size", I(4), Is(2, 3), false, false},
		{"leaf divides", I(3), Is(2, 3), false, true},
		{"node refines", Is(4, 3), T(Is(2, 2), I(3)), true, true},
		{"node against leaf", Is(4, 3), I(12), false, false},
		{"rank mismatch", Is(4, 3), Is(4, 3, 1), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compatible(tt.a, tt.b); got != tt.want {
				t.Errorf("Compatible(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := WeaklyCompatible(tt.a, tt.b); got != tt.weakly {
				t.Errorf("WeaklyCompatible(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.weakly)
			}
		})
	}
}

func TestCompatibleIsReflexive(t *testing.T) {
	shapes := []IntTuple{I(1), I(12), Is(4, 3), T(I(4), T(I(2), I(3)))}
	for _, s := range shapes {
		if !Compatible(s, s) {
			t.Errorf("Compatible(%v, %v) = false, want true", s, s)
		}
		if !WeaklyCompatible(s, s) {
			t.Errorf("WeaklyCompatible(%v, %v) = false, want true", s, s)
		}
	}
}

func TestShapeDiv(t *testing.T) {
	tests := []struct {
		name string
		a    IntTuple
		b    IntTuple
		want IntTuple
	}{
		{"scalar divides", I(8), I(2), I(4)},
		{"scalar divided", I(2), I(8), I(1)},
		{"folds across modes", Is(4, 5, 6), I(40), Is(1, 1, 3)},
		{"exact front", Is(4, 6), I(4), Is(1, 6)},
		{"nested", T(Is(2, 2), I(6)), I(4), T(Is(1, 1), I(6))},
		{"congruent tuples", Is(8, 6), Is(2, 3), Is(4, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShapeDiv(tt.a, tt.b)
			assertTupleEqual(t, tt.want, got, "ShapeDiv")
		})
	}
}

func TestShapeDivPanicsOnNonDivisible(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("ShapeDiv(6, 4) should panic")
		}
	}()
	ShapeDiv(I(6), I(4))
}

func TestCrd2Idx(t *testing.T) {
	tests := []struct {
		name   string
		coord  IntTuple
		shape  IntTuple
		stride IntTuple
		want   int
	}{
		{"row-major 4x3", Is(2, 1), Is(4, 3), Is(3, 1), 7},
		{"col-major 4x3", Is(2, 1), Is(4, 3), Is(1, 4), 6},
		{"zero coord", Is(0, 0), Is(4, 3), Is(3, 1), 0},
		{"last coord", Is(3, 2), Is(4, 3), Is(3, 1), 11},
		{"nested", T(I(1), Is(1, 1)), T(I(4), Is(2, 3)), T(I(1), Is(4, 8)), 13},
		{"linear into node", I(7), Is(4, 3), Is(1, 4), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Crd2Idx(tt.coord, tt.shape, tt.stride); got != tt.want {
				t.Errorf("Crd2Idx(%v, %v, %v) = %d, want %d", tt.coord, tt.shape, tt.stride, got, tt.want)
			}
		})
	}
}

func TestIdx2Crd(t *testing.T) {
	// Matches the row-major 4x3 layout: index 7 sits at row 2, column 1.
	got := Idx2Crd(7, Is(4, 3), Is(3, 1))
	assertTupleEqual(t, Is(2, 1), got, "Idx2Crd row-major")

	got = Idx2CrdDefault(7, Is(4, 3))
	assertTupleEqual(t, Is(3, 1), got, "Idx2CrdDefault colex")
}

func TestCrd2IdxIdx2CrdRoundTrip(t *testing.T) {
	shapes := []IntTuple{
		Is(4, 3),
		Is(2, 3, 4),
		T(I(4), Is(2, 3)),
	}
	for _, shape := range shapes {
		stride := PrefixProduct(shape)
		size := Product(shape)
		for linear := 0; linear < size; linear++ {
			crd := Idx2Crd(linear, shape, stride)
			back := Crd2Idx(crd, shape, stride)
			if back != linear {
				t.Errorf("shape %v: round trip of %d gave coord %v then index %d", shape, linear, crd, back)
			}
		}
	}
}
