// Package buffer supplies the backing allocations that layout views attach
// to. The layout and copy layers never allocate or free memory themselves;
// they only require a raw byte region plus an address-space tag.
package buffer

import (
	"fmt"
	"unsafe"
)

// AddressSpace tags which memory tier a buffer models.
type AddressSpace int

// Supported address spaces.
const (
	Generic AddressSpace = iota
	Global
	Shared
	Register
)

// String returns a human-readable address-space name.
func (s AddressSpace) String() string {
	switch s {
	case Generic:
		return "generic"
	case Global:
		return "global"
	case Shared:
		return "shared"
	case Register:
		return "register"
	default:
		return "unknown"
	}
}

// IndexWidth returns the offset arithmetic width policy for the space:
// 32-bit indices suffice inside a shared or register window, global and
// generic pointers need 64.
func (s AddressSpace) IndexWidth() int {
	switch s {
	case Shared, Register:
		return 32
	default:
		return 64
	}
}

// BulkCopyAlign is the destination alignment the bulk-copy hardware
// requires.
const BulkCopyAlign = 128

// Buffer is a raw byte region with an address-space tag. It never owns the
// region: lifetime belongs to whoever allocated it.
type Buffer struct {
	data  []byte
	space AddressSpace
}

// Wrap attaches a tag to an existing region.
func Wrap(data []byte, space AddressSpace) *Buffer {
	return &Buffer{data: data, space: space}
}

// NewHost allocates a host-resident region tagged as global memory.
func NewHost(size int) *Buffer {
	return &Buffer{data: alignedAlloc(size), space: Global}
}

// NewShared allocates a region modeling the worker group's shared scratch
// memory. Bulk-copy destinations live here, so it is 128-byte aligned.
func NewShared(size int) *Buffer {
	return &Buffer{data: alignedAlloc(size), space: Shared}
}

// Bytes returns the backing region.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the region size in bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Space returns the address-space tag.
func (b *Buffer) Space() AddressSpace { return b.space }

// Alignment returns the largest power of two (up to BulkCopyAlign) that the
// region's base address is aligned to.
func (b *Buffer) Alignment() int {
	if len(b.data) == 0 {
		return BulkCopyAlign
	}
	addr := uintptr(unsafe.Pointer(&b.data[0]))
	align := 1
	for align < BulkCopyAlign && addr%uintptr(align*2) == 0 {
		align *= 2
	}
	return align
}

// String describes the buffer for diagnostics.
func (b *Buffer) String() string {
	return fmt.Sprintf("buffer{%s, %d bytes}", b.space, len(b.data))
}

// alignedAlloc returns a size-byte slice whose base address is 128-byte
// aligned. Go's allocator only guarantees pointer-size alignment for byte
// slices, so over-allocate and re-slice.
func alignedAlloc(size int) []byte {
	raw := make([]byte, size+BulkCopyAlign)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	pad := 0
	if rem := int(addr % BulkCopyAlign); rem != 0 {
		pad = BulkCopyAlign - rem
	}
	return raw[pad : pad+size : pad+size]
}
