package pipeline

import (
	"fmt"

	"github.com/tilekit-ml/tilekit/internal/arch"
	"github.com/tilekit-ml/tilekit/internal/buffer"
	"github.com/tilekit-ml/tilekit/internal/inttuple"
	"github.com/tilekit-ml/tilekit/internal/layout"
	"github.com/tilekit-ml/tilekit/internal/tile"
)

// SwizzleMode selects the shared-memory swizzle pattern a bulk copy
// descriptor is built for.
type SwizzleMode int

// Bulk-copy swizzle modes.
const (
	SwizzleNone SwizzleMode = iota
	Swizzle32B
	Swizzle64B
	Swizzle128B
)

// Bytes returns the mode's byte budget, 0 for SwizzleNone.
func (m SwizzleMode) Bytes() int {
	switch m {
	case Swizzle32B:
		return 32
	case Swizzle64B:
		return 64
	case Swizzle128B:
		return 128
	default:
		return 0
	}
}

// String returns a human-readable mode name.
func (m SwizzleMode) String() string {
	if m == SwizzleNone {
		return "none"
	}
	return fmt.Sprintf("%dB", m.Bytes())
}

// maxBulkExtent is the hardware cap on a single bulk-copy instruction's
// extent per dimension.
const maxBulkExtent = 256

// Descriptor is the opaque handle describing a fixed source tensor and tile
// shape for repeated asynchronous transfers. Created once on the host,
// immutable for its lifetime, reused across many copy invocations.
//
// The descriptor's own chunk tile may be smaller than the requested tile:
// the swizzle mode caps the innermost extent in bytes and the hardware caps
// every extent at 256 elements, so one logical tile may take several
// hardware copy instructions.
type Descriptor struct {
	src       tile.View
	elemSize  int
	tileShape []int
	chunk     []int // per-dim chunk extents
	copies    []int // per-dim chunk counts
	mode      SwizzleMode
	target    arch.Target
}

// NewDescriptor validates and builds a bulk-copy descriptor over the source
// view for the given tile shape. Rank must be 2 or 3 within the target's
// bulk-rank limit, the tile must divide the source extents, and with a
// swizzle mode set the innermost dimension in bytes must not exceed the
// mode's byte budget and must divide it evenly. All violations are
// programmer errors.
func NewDescriptor(src tile.View, tileShape []int, mode SwizzleMode) *Descriptor {
	return NewDescriptorFor(arch.Default(), src, tileShape, mode)
}

// NewDescriptorFor is NewDescriptor against an explicit target table entry.
func NewDescriptorFor(target arch.Target, src tile.View, tileShape []int, mode SwizzleMode) *Descriptor {
	rank := len(tileShape)
	if rank < 2 || rank > 3 {
		panic(fmt.Sprintf("pipeline: bulk copy rank %d, want 2 or 3", rank))
	}
	if rank > target.MaxBulkRank {
		panic(fmt.Sprintf("pipeline: rank %d exceeds target %s bulk rank %d", rank, target.Name, target.MaxBulkRank))
	}
	if src.Layout().Rank() != rank {
		panic(fmt.Sprintf("pipeline: tile rank %d does not match source rank %d", rank, src.Layout().Rank()))
	}
	if src.Space() != buffer.Global && src.Space() != buffer.Generic {
		panic(fmt.Sprintf("pipeline: descriptor source in %s memory, want global", src.Space()))
	}
	elemSize := src.ElemSize()
	for i, ext := range tileShape {
		if ext <= 0 {
			panic(fmt.Sprintf("pipeline: tile extent %d on dim %d", ext, i))
		}
		dim := inttuple.Product(src.Layout().Shape().At(i))
		if dim%ext != 0 {
			panic(fmt.Sprintf("pipeline: tile extent %d does not divide source extent %d on dim %d", ext, dim, i))
		}
	}
	if mode != SwizzleNone {
		innerBytes := tileShape[0] * elemSize
		budget := mode.Bytes()
		if innerBytes > budget {
			panic(fmt.Sprintf("pipeline: innermost tile dim of %d bytes exceeds %v swizzle budget", innerBytes, mode))
		}
		if budget%innerBytes != 0 {
			panic(fmt.Sprintf("pipeline: innermost tile dim of %d bytes does not divide %v swizzle budget", innerBytes, mode))
		}
	}

	chunk := make([]int, rank)
	copies := make([]int, rank)
	for i, ext := range tileShape {
		c := ext
		if c > maxBulkExtent {
			if c%maxBulkExtent != 0 {
				panic(fmt.Sprintf("pipeline: tile extent %d on dim %d is not chunkable at %d", c, i, maxBulkExtent))
			}
			c = maxBulkExtent
		}
		chunk[i] = c
		copies[i] = ext / c
	}

	return &Descriptor{
		src:       src,
		elemSize:  elemSize,
		tileShape: append([]int(nil), tileShape...),
		chunk:     chunk,
		copies:    copies,
		mode:      mode,
		target:    target,
	}
}

// TileShape returns the logical tile extents.
func (d *Descriptor) TileShape() []int { return append([]int(nil), d.tileShape...) }

// ChunkShape returns the per-instruction chunk extents.
func (d *Descriptor) ChunkShape() []int { return append([]int(nil), d.chunk...) }

// NumChunks returns the number of hardware copies per logical tile.
func (d *Descriptor) NumChunks() int {
	n := 1
	for _, c := range d.copies {
		n *= c
	}
	return n
}

// TileBytes returns the byte volume of one logical tile.
func (d *Descriptor) TileBytes() int {
	n := d.elemSize
	for _, ext := range d.tileShape {
		n *= ext
	}
	return n
}

// Mode returns the descriptor's swizzle mode.
func (d *Descriptor) Mode() SwizzleMode { return d.mode }

// tileBase returns the source element offset of the tile at the given
// per-dim tile coordinates.
func (d *Descriptor) tileBase(coords []int) int {
	if len(coords) != len(d.tileShape) {
		panic(fmt.Sprintf("pipeline: %d tile coordinates for rank-%d descriptor", len(coords), len(d.tileShape)))
	}
	off := 0
	for i, c := range coords {
		stride := d.src.Layout().Stride().At(i)
		off += c * d.tileShape[i] * stride.Value()
	}
	return off
}

// tileLayout returns the source-side layout of one logical tile.
func (d *Descriptor) tileLayout() layout.Layout {
	modes := make([]layout.Layout, len(d.tileShape))
	for i, ext := range d.tileShape {
		stride := d.src.Layout().Stride().At(i).Value()
		modes[i] = layout.New(inttuple.I(ext), inttuple.I(stride))
	}
	return layout.Append(modes...)
}
