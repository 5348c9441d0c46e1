package tile

// Mask is the per-axis boundary predicate guarding vectorized accesses at
// tensor edges. It is a pure function of an access point: maxDim holds the
// valid extent per axis and offset the tile's origin within it.
type Mask struct {
	maxDim []int
	offset []int
}

// NewMask builds a mask for a tile whose origin sits at offset inside a
// tensor of extent maxDim.
func NewMask(maxDim, offset []int) Mask {
	if len(maxDim) != len(offset) {
		panic("tile: mask extents and offsets differ in rank")
	}
	return Mask{maxDim: maxDim, offset: offset}
}

// Rank returns the number of masked axes.
func (m Mask) Rank() int { return len(m.maxDim) }

// AccessMask reports, per axis, whether the access at point with the given
// element span is fully in bounds. An axis with element size 1 only needs
// its start index inside the extent; a wider element needs its whole span.
func (m Mask) AccessMask(point, elemSize []int) []bool {
	out := make([]bool, len(m.maxDim))
	for i := range m.maxDim {
		start := m.offset[i] + point[i]*elemSize[i]
		if elemSize[i] == 1 {
			out[i] = start < m.maxDim[i]
		} else {
			out[i] = start+elemSize[i] <= m.maxDim[i]
		}
	}
	return out
}

// InBounds reports whether every axis of the access is in bounds.
func (m Mask) InBounds(point, elemSize []int) bool {
	for _, ok := range m.AccessMask(point, elemSize) {
		if !ok {
			return false
		}
	}
	return true
}

// AccessSize returns, per axis, the clamped number of valid positions from
// the access start: max(0, maxDim - start). A partially out-of-bounds
// access narrows rather than fails.
func (m Mask) AccessSize(point, elemSize []int) []int {
	out := make([]int, len(m.maxDim))
	for i := range m.maxDim {
		start := m.offset[i] + point[i]*elemSize[i]
		size := m.maxDim[i] - start
		if size < 0 {
			size = 0
		}
		if size > elemSize[i] {
			size = elemSize[i]
		}
		out[i] = size
	}
	return out
}
