// Copyright 2026 TileKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tile

import (
	"github.com/tilekit-ml/tilekit/internal/buffer"
	"github.com/tilekit-ml/tilekit/internal/inttuple"
	"github.com/tilekit-ml/tilekit/internal/layout"
	"github.com/tilekit-ml/tilekit/internal/tile"
)

// Type aliases for public API

// AddressSpace tags where a buffer's storage logically lives.
type AddressSpace = buffer.AddressSpace

// Address space constants.
const (
	Generic  AddressSpace = buffer.Generic
	Global   AddressSpace = buffer.Global
	Shared   AddressSpace = buffer.Shared
	Register AddressSpace = buffer.Register
)

// BulkCopyAlign is the byte alignment the async copy engine requires of its
// shared-memory endpoints.
const BulkCopyAlign = buffer.BulkCopyAlign

// Buffer is a raw byte slice tagged with an address space. Views reference
// buffers and never own them.
type Buffer = buffer.Buffer

// Wrap tags an existing byte slice with an address space.
func Wrap(data []byte, space AddressSpace) *Buffer { return buffer.Wrap(data, space) }

// NewHost allocates a 128-byte aligned global-memory buffer.
func NewHost(size int) *Buffer { return buffer.NewHost(size) }

// NewShared allocates a 128-byte aligned shared-memory buffer.
func NewShared(size int) *Buffer { return buffer.NewShared(size) }

// Scalar is the set of element types a view can carry.
type Scalar = tile.Scalar

// View is a non-owning window over a buffer: a layout, an optional swizzle,
// and an element sub-layout.
//
// Example:
//
//	buf := tile.NewHost(64 * 4)
//	v := tile.Of[float32](buf, layout.ColMajor(8, 8))
//	tile.Set(v, layout.Is(2, 1), 3.5)
type View = tile.View

// Tiler addresses the (M, N) tiles of a parent view.
type Tiler = tile.Tiler

// NewView attaches a layout to a buffer with elemSize-byte elements.
func NewView(buf *Buffer, elemSize int, lay layout.Layout) View {
	return tile.NewView(buf, elemSize, lay)
}

// Of builds a view whose element size is derived from T.
func Of[T Scalar](buf *Buffer, lay layout.Layout) View {
	return tile.Of[T](buf, lay)
}

// Get reads one element.
func Get[T Scalar](v View, coord inttuple.IntTuple) T { return tile.Get[T](v, coord) }

// Set writes one element.
func Set[T Scalar](v View, coord inttuple.IntTuple, val T) { tile.Set(v, coord, val) }

// GetLinear reads the element at a linear domain index.
func GetLinear[T Scalar](v View, idx int) T { return tile.GetLinear[T](v, idx) }

// SetLinear writes the element at a linear domain index.
func SetLinear[T Scalar](v View, idx int, val T) { tile.SetLinear(v, idx, val) }

// Copy moves every element of src to the same domain position of dst.
func Copy[T Scalar](dst, src View) { tile.Copy[T](dst, src) }

// AccessPattern classifies how an element moves through memory.
type AccessPattern = tile.AccessPattern

// Access pattern constants.
const (
	AccessVector    AccessPattern = tile.AccessVector
	AccessRowVector AccessPattern = tile.AccessRowVector
	AccessScalar    AccessPattern = tile.AccessScalar
)

// Element is an in-register fragment loaded from or stored to a view, at
// most rank 2.
type Element[T Scalar] = tile.Element[T]

// Fill builds an element of the given layout with every lane set to val.
func Fill[T Scalar](elem layout.Layout, val T) Element[T] { return tile.Fill(elem, val) }

// Load reads the element anchored at coord from a vectorized view.
//
// Example:
//
//	v := tile.Of[float32](buf, layout.ColMajor(8, 8)).Vectorize(4, 1)
//	e := tile.Load[float32](v, layout.Is(2, 3))
func Load[T Scalar](v View, coord inttuple.IntTuple) Element[T] {
	return tile.Load[T](v, coord)
}

// Store writes an element anchored at coord into a vectorized view.
func Store[T Scalar](v View, coord inttuple.IntTuple, e Element[T]) {
	tile.Store(v, coord, e)
}

// MaskedLoad is Load with per-axis bounds: out-of-bounds lanes read fill and
// never touch memory.
func MaskedLoad[T Scalar](v View, coord inttuple.IntTuple, bounds []int, fill T) Element[T] {
	return tile.MaskedLoad(v, coord, bounds, fill)
}

// MaskedStore is Store with per-axis bounds: out-of-bounds lanes are
// skipped.
func MaskedStore[T Scalar](v View, coord inttuple.IntTuple, e Element[T], bounds []int) {
	tile.MaskedStore(v, coord, e, bounds)
}

// Mask carries per-axis valid extents and a tile offset for boundary tiles.
type Mask = tile.Mask

// NewMask builds a mask from per-axis maximums and the tile's offset within
// them.
func NewMask(maxDim, offset []int) Mask { return tile.NewMask(maxDim, offset) }
