package device

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// bucket is a size class for pooled buffers.
type bucket int

const (
	smallBucket  bucket = iota // < 4KB
	mediumBucket               // 4KB to 1MB
	largeBucket                // > 1MB
)

const (
	smallThreshold  = 4 * 1024
	mediumThreshold = 1024 * 1024
	maxPerBucket    = 64
)

type pooled struct {
	buf   *wgpu.Buffer
	size  uint64
	usage wgpu.BufferUsage
}

// Pool recycles device buffers across staging operations. Tile pipelines
// re-stage same-shaped tensors constantly, so reuse by size class removes
// most allocations.
type Pool struct {
	device *wgpu.Device

	mu      sync.Mutex
	buckets [3][]pooled

	allocated uint64
	released  uint64
	hits      uint64
	misses    uint64
}

// NewPool creates an empty pool for the given device.
func NewPool(device *wgpu.Device) *Pool {
	return &Pool{device: device}
}

func bucketOf(size uint64) bucket {
	switch {
	case size < smallThreshold:
		return smallBucket
	case size < mediumThreshold:
		return mediumBucket
	default:
		return largeBucket
	}
}

// Acquire returns a pooled buffer that covers size with the exact usage, or
// allocates a fresh one.
func (p *Pool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := bucketOf(size)
	for i, pb := range p.buckets[b] {
		if pb.size >= size && pb.usage == usage {
			p.buckets[b] = append(p.buckets[b][:i], p.buckets[b][i+1:]...)
			p.hits++
			return pb.buf
		}
	}

	p.misses++
	p.allocated++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  size,
	})
}

// Release returns a buffer to its size class, or frees it when the class is
// full.
func (p *Pool) Release(buf *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.released++
	b := bucketOf(size)
	if len(p.buckets[b]) >= maxPerBucket {
		buf.Release()
		return
	}
	p.buckets[b] = append(p.buckets[b], pooled{buf: buf, size: size, usage: usage})
}

// Clear frees every pooled buffer.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for b := range p.buckets {
		for _, pb := range p.buckets[b] {
			pb.buf.Release()
		}
		p.buckets[b] = nil
	}
}

// Stats reports allocation, release, and reuse counters plus the number of
// buffers currently pooled.
func (p *Pool) Stats() (allocated, released, hits, misses uint64, pooledCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.buckets[0]) + len(p.buckets[1]) + len(p.buckets[2])
	return p.allocated, p.released, p.hits, p.misses, n
}
