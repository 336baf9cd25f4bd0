//go:build windows && webgpu

package webgpu

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"github.com/born-ml/simdnn/internal/backend"
	"github.com/go-webgpu/webgpu/wgpu"
)

// Compiled reports whether the accelerator is part of this binary.
const Compiled = true

// Device owns the WebGPU device and caches compiled shaders and pipelines.
// Dispatches are serialized.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	pipelines map[string]*wgpu.ComputePipeline
	pool      *bufferPool
	mu        sync.Mutex
}

var (
	sharedOnce sync.Once
	shared     *Device
	sharedErr  error
)

// Shared opens the process-wide device on first use.
func Shared() (*Device, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = Open()
	})
	return shared, sharedErr
}

// Open creates a device on the high-performance adapter.
func Open() (dev *Device, err error) {
	// wgpu_native is loaded lazily and panics when missing.
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = fmt.Errorf("webgpu: native library not available: %v: %w", r, ErrAcceleratorUnavailable)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %v: %w", err, ErrAcceleratorUnavailable)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %v: %w", err, ErrAcceleratorUnavailable)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue: %w", ErrAcceleratorUnavailable)
	}

	return &Device{
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     queue,
		pipelines: make(map[string]*wgpu.ComputePipeline),
		pool:      newBufferPool(device),
	}, nil
}

// IsAvailable reports whether a GPU adapter can be opened.
func IsAvailable() bool {
	_, err := Shared()
	return err == nil
}

// Release frees the pipelines, pooled buffers and the device.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.pipelines {
		p.Release()
	}
	d.pipelines = nil
	d.pool.clear()
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
}

// pipeline returns the cached pipeline for name, compiling code on first use.
func (d *Device) pipeline(name, code string) *wgpu.ComputePipeline {
	if p, ok := d.pipelines[name]; ok {
		return p
	}
	shader := d.device.CreateShaderModuleWGSL(code)
	defer shader.Release()
	p := d.device.CreateComputePipelineSimple(nil, shader, "main")
	d.pipelines[name] = p
	return p
}

// upload creates a storage buffer holding data.
func (d *Device) upload(data []float32) *wgpu.Buffer {
	size := uint64(len(data)) * 4
	buffer := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mapped := unsafe.Slice((*float32)(mappedPtr), len(data))
	copy(mapped, data)
	buffer.Unmap()
	return buffer
}

// uniform creates a 16-byte aligned uniform buffer of u32 parameters.
func (d *Device) uniform(params []uint32) (*wgpu.Buffer, uint64) {
	size := (uint64(len(params))*4 + 15) &^ 15
	buffer := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mapped := unsafe.Slice((*byte)(mappedPtr), size)
	for i, p := range params {
		binary.LittleEndian.PutUint32(mapped[i*4:], p)
	}
	buffer.Unmap()
	return buffer, size
}

// read copies size bytes of src back to out through a staging buffer.
func (d *Device) read(src *wgpu.Buffer, out []float32) error {
	size := uint64(len(out)) * 4
	usage := wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
	staging := d.pool.acquire(size, usage)
	defer d.pool.release(staging, size, usage)

	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	d.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(d.device, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}
	mappedPtr := staging.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(out, unsafe.Slice((*float32)(mappedPtr), len(out)))
	staging.Unmap()
	return nil
}

// checkDispatch rejects geometries whose largest pass would need more than
// maxWorkgroups workgroups.
func checkDispatch(op string, sizes ...int) error {
	for _, n := range sizes {
		if n > maxWorkgroups*workgroupSize {
			return fmt.Errorf("%w: %s: %d outputs exceed %d per dispatch",
				backend.ErrInvalidGeometry, op, n, maxWorkgroups*workgroupSize)
		}
	}
	return nil
}

// dispatch runs one invocation per output element of a shader whose bindings
// are the inputs in order, then the output, then the parameters, and writes
// the result into out.
func (d *Device) dispatch(name, code string, params []uint32, out []float32, inputs ...[]float32) error {
	if len(out) == 0 {
		return nil
	}
	if err := checkDispatch(name, len(out)); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	pipeline := d.pipeline(name, code)

	entries := make([]wgpu.BindGroupEntry, 0, len(inputs)+2)
	for i, in := range inputs {
		buf := d.upload(in)
		defer buf.Release()
		//nolint:gosec // G115: binding indices are small
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), buf, 0, uint64(len(in))*4))
	}

	outSize := uint64(len(out)) * 4
	outUsage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	result := d.pool.acquire(outSize, outUsage)
	defer d.pool.release(result, outSize, outUsage)
	//nolint:gosec // G115: binding indices are small
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(inputs)), result, 0, outSize))

	uniform, uniformSize := d.uniform(params)
	defer uniform.Release()
	//nolint:gosec // G115: binding indices are small
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(inputs)+1), uniform, 0, uniformSize))

	bindGroup := d.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := d.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	//nolint:gosec // G115: workgroup count is non-negative
	pass.DispatchWorkgroups(uint32((len(out)+workgroupSize-1)/workgroupSize), 1, 1)
	pass.End()
	d.queue.Submit(encoder.Finish(nil))

	return d.read(result, out)
}
