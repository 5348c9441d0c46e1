// Copyright 2026 TileKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pipeline provides the public API for the asynchronous tile-copy
// engine.
//
// # Overview
//
// This package contains:
//   - State: circular stage/phase counter for multi-buffered pipelines
//   - Barrier: software memory barrier with arrival and byte counters
//   - Descriptor: immutable bulk-copy descriptor, created once and reused
//   - Engine: worker-pool copy engine with AsyncCopy, AsyncMulticast,
//     AsyncStore, and AsyncReduce
//
// # Basic Usage
//
//	import (
//	    "github.com/tilekit-ml/tilekit/layout"
//	    "github.com/tilekit-ml/tilekit/pipeline"
//	    "github.com/tilekit-ml/tilekit/tile"
//	)
//
//	src := tile.Of[float32](globalBuf, layout.ColMajor(1024, 1024))
//	desc := pipeline.NewDescriptor(src, []int{128, 64}, pipeline.SwizzleNone)
//
//	e := pipeline.NewEngine()
//	defer e.Close()
//
//	bar := pipeline.NewBarrier()
//	bar.Init(0)
//	e.AsyncCopy(desc, sharedTile, bar, 0, 0)   // returns immediately
//	bar.Wait(0)                                // completion point
//
// # Multi-Stage Pipelines
//
// Keep several copies in flight with a State per producer and consumer:
//
//	ps := pipeline.NewState(2)
//	bars[ps.Index()].Wait(ps.Phase())
//	// ... consume stage, reissue, ps.Step()
package pipeline
