// Package inttuple implements the hierarchical integer tuple algebra that
// shapes, strides, and coordinates are all built from.
//
// An IntTuple is either a leaf integer or a non-empty ordered sequence of
// IntTuples, never both. Using one recursive type for shapes, strides, and
// coordinates lets the same reduction functions serve all three.
package inttuple

import (
	"fmt"
	"strings"
)

// IntTuple is a scalar integer or a nested sequence of IntTuples.
// The zero value is the leaf 0.
type IntTuple struct {
	sub []IntTuple // nil for a leaf
	v   int        // leaf value; unused for a node
}

// I returns a leaf tuple holding v.
func I(v int) IntTuple {
	return IntTuple{v: v}
}

// T returns a node tuple with the given children.
// A node must have at least one child.
func T(elems ...IntTuple) IntTuple {
	if len(elems) == 0 {
		panic("inttuple: empty tuple node")
	}
	return IntTuple{sub: elems}
}

// Is returns a node tuple of leaf values, e.g. Is(4, 3) == T(I(4), I(3)).
func Is(vs ...int) IntTuple {
	elems := make([]IntTuple, len(vs))
	for i, v := range vs {
		elems[i] = I(v)
	}
	return T(elems...)
}

// IsLeaf reports whether t is a scalar.
func (t IntTuple) IsLeaf() bool {
	return t.sub == nil
}

// Value returns the scalar value of a leaf.
func (t IntTuple) Value() int {
	if !t.IsLeaf() {
		panic("inttuple: Value on non-leaf tuple")
	}
	return t.v
}

// Rank returns the number of children of a node, or 1 for a leaf.
func (t IntTuple) Rank() int {
	if t.IsLeaf() {
		return 1
	}
	return len(t.sub)
}

// At returns the i-th child of a node. At(0) of a leaf is the leaf itself.
func (t IntTuple) At(i int) IntTuple {
	if t.IsLeaf() {
		if i != 0 {
			panic(fmt.Sprintf("inttuple: index %d on leaf", i))
		}
		return t
	}
	return t.sub[i]
}

// Depth returns 0 for a leaf and 1 + the maximum child depth for a node.
func (t IntTuple) Depth() int {
	if t.IsLeaf() {
		return 0
	}
	d := 0
	for _, c := range t.sub {
		if cd := c.Depth(); cd > d {
			d = cd
		}
	}
	return 1 + d
}

// Equal reports structural and value equality.
func (t IntTuple) Equal(o IntTuple) bool {
	if t.IsLeaf() != o.IsLeaf() {
		return false
	}
	if t.IsLeaf() {
		return t.v == o.v
	}
	if len(t.sub) != len(o.sub) {
		return false
	}
	for i := range t.sub {
		if !t.sub[i].Equal(o.sub[i]) {
			return false
		}
	}
	return true
}

// String renders a leaf as its value and a node as "(a,b,...)".
func (t IntTuple) String() string {
	if t.IsLeaf() {
		return fmt.Sprintf("%d", t.v)
	}
	parts := make([]string, len(t.sub))
	for i, c := range t.sub {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Flatten returns all leaf values in depth-first order.
func (t IntTuple) Flatten() []int {
	out := make([]int, 0, 4)
	return t.appendLeaves(out)
}

func (t IntTuple) appendLeaves(out []int) []int {
	if t.IsLeaf() {
		return append(out, t.v)
	}
	for _, c := range t.sub {
		out = c.appendLeaves(out)
	}
	return out
}

// NumLeaves returns the number of leaf values in t.
func (t IntTuple) NumLeaves() int {
	if t.IsLeaf() {
		return 1
	}
	n := 0
	for _, c := range t.sub {
		n += c.NumLeaves()
	}
	return n
}

// Product returns the product of all leaves.
func Product(t IntTuple) int {
	if t.IsLeaf() {
		return t.v
	}
	p := 1
	for _, c := range t.sub {
		p *= Product(c)
	}
	return p
}

// Sum returns the sum of all leaves.
func Sum(t IntTuple) int {
	if t.IsLeaf() {
		return t.v
	}
	s := 0
	for _, c := range t.sub {
		s += Sum(c)
	}
	return s
}

// Max returns the maximum leaf value.
func Max(t IntTuple) int {
	if t.IsLeaf() {
		return t.v
	}
	m := Max(t.sub[0])
	for _, c := range t.sub[1:] {
		if cm := Max(c); cm > m {
			m = cm
		}
	}
	return m
}

// PrefixProduct returns the exclusive prefix product of t's leaves, congruent
// to t. The first leaf maps to 1 and each subsequent leaf to the product of
// all earlier leaves (the colexicographic default stride of a shape).
func PrefixProduct(t IntTuple) IntTuple {
	out, _ := prefixProduct(t, 1)
	return out
}

func prefixProduct(t IntTuple, running int) (IntTuple, int) {
	if t.IsLeaf() {
		return I(running), running * t.v
	}
	elems := make([]IntTuple, len(t.sub))
	for i, c := range t.sub {
		elems[i], running = prefixProduct(c, running)
	}
	return T(elems...), running
}

// Congruent reports whether a and b have identical nesting structure.
// Leaf values are ignored; only the tree shape matters.
func Congruent(a, b IntTuple) bool {
	if a.IsLeaf() || b.IsLeaf() {
		return a.IsLeaf() == b.IsLeaf()
	}
	if len(a.sub) != len(b.sub) {
		return false
	}
	for i := range a.sub {
		if !Congruent(a.sub[i], b.sub[i]) {
			return false
		}
	}
	return true
}

// Compatible reports whether every coordinate of shape a is a coordinate of
// shape b. A leaf a is compatible with any b of equal size; a node is
// compatible only with a node of equal rank whose children are pairwise
// compatible. Compatible is a partial order over shapes.
func Compatible(a, b IntTuple) bool {
	if a.IsLeaf() {
		return a.v == Product(b)
	}
	if b.IsLeaf() {
		return false
	}
	if len(a.sub) != len(b.sub) {
		return false
	}
	for i := range a.sub {
		if !Compatible(a.sub[i], b.sub[i]) {
			return false
		}
	}
	return true
}

// WeaklyCompatible is Compatible with the size equality relaxed to
// divisibility: a leaf a is weakly compatible with b when size(b) is a
// multiple of a.
func WeaklyCompatible(a, b IntTuple) bool {
	if a.IsLeaf() {
		return a.v != 0 && Product(b)%a.v == 0
	}
	if b.IsLeaf() {
		return false
	}
	if len(a.sub) != len(b.sub) {
		return false
	}
	for i := range a.sub {
		if !WeaklyCompatible(a.sub[i], b.sub[i]) {
			return false
		}
	}
	return true
}

// ShapeDiv divides shape a by b, folding the divisor across a's leaves in
// order. Each leaf pair must satisfy a%b == 0 || b%a == 0; anything else is
// an unrepresentable tiling and aborts.
//
// ShapeDiv(Is(4,5,6), I(40)) == Is(1,1,3): mode 0 absorbs 4 of the 40,
// mode 1 the remaining 10 down to 2, mode 2 divides 6 by 2.
func ShapeDiv(a, b IntTuple) IntTuple {
	if !b.IsLeaf() {
		if !Congruent(a, b) {
			panic(fmt.Sprintf("inttuple: ShapeDiv of non-congruent tuples %v / %v", a, b))
		}
		elems := make([]IntTuple, len(a.sub))
		for i := range a.sub {
			elems[i] = ShapeDiv(a.sub[i], b.sub[i])
		}
		return T(elems...)
	}
	out, _ := shapeDivCarry(a, b.Value())
	return out
}

// shapeDivCarry divides each leaf of a by the running divisor and threads the
// unconsumed remainder left to right.
func shapeDivCarry(a IntTuple, div int) (IntTuple, int) {
	if a.IsLeaf() {
		return I(leafDiv(a.v, div)), leafDiv(div, a.v)
	}
	elems := make([]IntTuple, len(a.sub))
	for i, c := range a.sub {
		elems[i], div = shapeDivCarry(c, div)
	}
	return T(elems...), div
}

// leafDiv is the scalar shape division: a/b when b divides a, 1 when a
// divides b, fatal otherwise.
func leafDiv(a, b int) int {
	if b != 0 && a%b == 0 {
		return a / b
	}
	if a != 0 && b%a == 0 {
		return 1
	}
	panic(fmt.Sprintf("inttuple: ShapeDiv(%d, %d): neither divides the other", a, b))
}

// Crd2Idx reduces a (possibly nested) coordinate to a linear offset under
// shape and stride. A leaf coordinate against a node shape is first
// decomposed colexicographically. Stride must be congruent to shape.
func Crd2Idx(coord, shape, stride IntTuple) int {
	if coord.IsLeaf() && !shape.IsLeaf() {
		// Linear index into a hierarchical shape: peel modes off
		// colexicographically and recurse per mode.
		idx := coord.Value()
		total := 0
		for i, sh := range shape.sub {
			sz := Product(sh)
			total += Crd2Idx(I(idx%sz), sh, stride.sub[i])
			idx /= sz
		}
		return total
	}
	if coord.IsLeaf() {
		return coord.Value() * stride.Value()
	}
	if shape.IsLeaf() {
		panic(fmt.Sprintf("inttuple: coordinate %v deeper than shape %v", coord, shape))
	}
	if len(coord.sub) != len(shape.sub) {
		panic(fmt.Sprintf("inttuple: coordinate %v does not match shape %v", coord, shape))
	}
	total := 0
	for i := range coord.sub {
		total += Crd2Idx(coord.sub[i], shape.sub[i], stride.sub[i])
	}
	return total
}

// Crd2IdxDefault is Crd2Idx with the canonical colexicographic stride
// (the exclusive prefix product of shape).
func Crd2IdxDefault(coord, shape IntTuple) int {
	return Crd2Idx(coord, shape, PrefixProduct(shape))
}

// Idx2Crd inverts a linear index into a coordinate congruent to shape:
// each leaf becomes (idx / stride) % shape. Inverse of Crd2Idx whenever the
// strides describe a bijective layout over [0, size).
func Idx2Crd(idx int, shape, stride IntTuple) IntTuple {
	if shape.IsLeaf() {
		return I((idx / stride.Value()) % shape.v)
	}
	if !Congruent(shape, stride) {
		panic(fmt.Sprintf("inttuple: Idx2Crd with non-congruent shape %v and stride %v", shape, stride))
	}
	elems := make([]IntTuple, len(shape.sub))
	for i, sh := range shape.sub {
		elems[i] = Idx2Crd(idx, sh, stride.sub[i])
	}
	return T(elems...)
}

// Idx2CrdDefault is Idx2Crd with the canonical colexicographic stride.
func Idx2CrdDefault(idx int, shape IntTuple) IntTuple {
	return Idx2Crd(idx, shape, PrefixProduct(shape))
}
