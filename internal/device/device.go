// Package device implements the WebGPU staging tier: device-resident
// buffers backing the global-memory side of bulk transfers, with explicit
// upload and readback synchronization. Everything in the copy engine works
// on host buffers; this package is the optional path that keeps the source
// tensor on an actual GPU.
package device

import (
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tilekit-ml/tilekit/internal/buffer"
)

// Device wraps a WebGPU instance/adapter/device/queue plus a buffer pool.
// One Device serves many staged buffers; Release tears everything down.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	info     *wgpu.AdapterInfoGo
	pool     *Pool
}

// Staged is a device-resident buffer produced by Upload. It stays valid
// until Free or the owning Device's Release.
type Staged struct {
	buf   *wgpu.Buffer
	size  uint64
	usage wgpu.BufferUsage
}

// Size returns the staged buffer's byte size.
func (s *Staged) Size() int { return int(s.size) }

// New initializes the WebGPU stack.
// Returns an error if WebGPU is not available or initialization fails.
func New() (dev *Device, err error) {
	// Recover from panic if the wgpu native library is not found.
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = fmt.Errorf("device: native library not available: %v", r)
		}
	}()

	instance, instErr := wgpu.CreateInstance(nil)
	if instErr != nil {
		return nil, fmt.Errorf("device: failed to create instance: %w", instErr)
	}
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("device: failed to request adapter: %w", adapterErr)
	}

	info, infoErr := adapter.GetInfo()
	if infoErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("device: failed to get adapter info: %w", infoErr)
	}

	wdev, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("device: failed to request device: %w", deviceErr)
	}

	queue := wdev.GetQueue()
	if queue == nil {
		wdev.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("device: failed to get queue")
	}

	d := &Device{
		instance: instance,
		adapter:  adapter,
		device:   wdev,
		queue:    queue,
		info:     info,
	}
	d.pool = NewPool(wdev)
	return d, nil
}

// IsAvailable checks whether WebGPU can be initialized on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, instErr := wgpu.CreateInstance(nil)
	if instErr != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Name returns the adapter's human-readable name.
func (d *Device) Name() string {
	return fmt.Sprintf("WebGPU (%s %s)", d.info.Device, d.info.Vendor)
}

// Pool returns the device's buffer pool.
func (d *Device) Pool() *Pool { return d.pool }

// stagedUsage is the usage every staged buffer carries: addressable from
// compute shaders and copyable in both directions.
const stagedUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// Upload stages a host buffer onto the device. The returned buffer holds a
// snapshot; later writes to src are not reflected.
func (d *Device) Upload(src *buffer.Buffer) (*Staged, error) {
	data := src.Bytes()
	size := uint64(len(data))
	if size == 0 {
		return nil, fmt.Errorf("device: upload of empty buffer")
	}

	buf := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            stagedUsage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buf.GetMappedRange(0, size)
	mapped := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mapped, data)
	buf.Unmap()

	return &Staged{buf: buf, size: size, usage: stagedUsage}, nil
}

// Download reads a staged buffer back into dst, which must be at least as
// large. The copy goes through a map-readable staging buffer since storage
// buffers cannot be mapped directly; the submit+map pair is the explicit
// synchronization point.
func (d *Device) Download(st *Staged, dst *buffer.Buffer) error {
	if int(st.size) > dst.Len() {
		return fmt.Errorf("device: staged buffer holds %d bytes, destination has %d", st.size, dst.Len())
	}

	staging := d.pool.Acquire(st.size, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
	defer d.pool.Release(staging, st.size, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)

	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(st.buf, 0, staging, 0, st.size)
	cmd := encoder.Finish(nil)
	d.queue.Submit(cmd)

	if err := staging.MapAsync(d.device, wgpu.MapModeRead, 0, st.size); err != nil {
		return fmt.Errorf("device: failed to map staging buffer: %w", err)
	}
	mappedPtr := staging.GetMappedRange(0, st.size)
	mapped := unsafe.Slice((*byte)(mappedPtr), st.size)
	copy(dst.Bytes(), mapped)
	staging.Unmap()

	return nil
}

// Free returns a staged buffer to the pool.
func (d *Device) Free(st *Staged) {
	if st == nil || st.buf == nil {
		return
	}
	d.pool.Release(st.buf, st.size, st.usage)
	st.buf = nil
}

// Release tears down the pool and all WebGPU objects. The Device is
// unusable afterwards.
func (d *Device) Release() {
	if d.pool != nil {
		d.pool.Clear()
		d.pool = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
