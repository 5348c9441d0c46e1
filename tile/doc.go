// Copyright 2026 TileKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tile provides the public API for non-owning tile views over raw
// buffers.
//
// # Overview
//
// This package contains:
//   - Buffer: address-space-tagged byte storage with aligned allocators
//   - View: a buffer plus a layout, with Tile, Distribute, Transpose,
//     Reshape, and Vectorize on top
//   - Element: in-register fragments with vectorized Load/Store and masked
//     boundary variants
//   - Mask: per-axis bounds for partial edge tiles
//
// # Basic Usage
//
//	import (
//	    "github.com/tilekit-ml/tilekit/layout"
//	    "github.com/tilekit-ml/tilekit/tile"
//	)
//
//	buf := tile.NewHost(64 * 64 * 4)
//	v := tile.Of[float32](buf, layout.ColMajor(64, 64))
//
//	// Split into 8x8 tiles and take one
//	tl := v.Tile(8, 8).At(2, 3)
//
//	// Hand each of 64 workers its fragment
//	frag := tl.Distribute(layout.ColMajor(8, 8), workerID)
//
// # Boundary Tiles
//
// Edge tiles use masks so no access ever lands outside the valid region:
//
//	m := tile.NewMask([]int{rows, cols}, []int{tileRow * 8, tileCol * 8})
//	e := tile.MaskedLoad[float32](v, coord, bounds, 0)
package tile
