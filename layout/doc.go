// Copyright 2026 TileKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layout provides the public API for the hierarchical layout
// algebra.
//
// # Overview
//
// This package contains:
//   - IntTuple: hierarchical integer tuples for shapes, strides, coordinates
//   - Layout: congruent (shape, stride) pairs mapping coordinates to offsets
//   - Composition, Complement, ZippedDivide: the tiling algebra
//   - Compiled: flattened fixed-width fast path for fully known layouts
//   - Swizzle, ComposedLayout: XOR offset permutations for bank-conflict-free
//     shared-memory access
//
// # Basic Usage
//
//	import "github.com/tilekit-ml/tilekit/layout"
//
//	l := layout.ColMajor(8, 8)
//	z := layout.ZippedDivide(l, []layout.Layout{layout.ColMajor(4), layout.ColMajor(2)})
//	inner, outer := z.Mode(0), z.Mode(1)
//	// inner addresses within one 4x2 tile, outer addresses across tiles
//
// # Swizzles
//
// A swizzle permutes offsets so parallel workers hit distinct memory banks:
//
//	sw := layout.MakeLdmatrixSwizzle(2, 64) // fp16, 64-element rows
//	off := sw.Apply(l.Offset(layout.Is(r, c)))
package layout
