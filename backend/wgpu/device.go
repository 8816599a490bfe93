// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	_ "embed"
	"fmt"
	"log"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/channelmask/graphics"
)

//go:embed shaders/channel_mask.wgsl
var channelMaskShaderSource string

// Device is a graphics.Device backed by wgpu/hal. Targets and the
// pass-through effect are CPU-staged; NewChannelMixEffect returns a
// GPU compute evaluation of the mixing pass when a device is available
// and the CPU evaluation otherwise.
type Device struct {
	soft *graphics.SoftwareDevice

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	gpuReady       bool
	externalDevice bool // shared device, don't destroy on Close
}

var _ graphics.Device = (*Device)(nil)

// New creates a device with its own GPU instance. When no adapter can
// be opened the device still works, evaluating the mixing pass on the
// CPU.
func New() *Device {
	d := &Device{soft: graphics.NewSoftwareDevice()}
	if err := d.initGPU(); err != nil {
		log.Printf("wgpu: GPU init failed, using CPU evaluation: %v", err)
	}
	return d
}

// NewWithProvider creates a device on a shared GPU context. The
// provider must additionally expose the underlying HAL device and
// queue, which gogpu contexts do.
func NewWithProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}

	d := &Device{
		soft:           graphics.NewSoftwareDevice(),
		device:         device,
		queue:          queue,
		externalDevice: true,
	}
	if err := d.createPipeline(); err != nil {
		return nil, fmt.Errorf("wgpu: create pipeline with shared device: %w", err)
	}
	d.gpuReady = true
	return d, nil
}

// Close releases the pipeline and, for self-owned devices, the GPU
// instance. Safe to call more than once.
func (d *Device) Close() {
	d.destroyPipeline()
	if !d.externalDevice {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.instance = nil
	d.queue = nil
	d.gpuReady = false
}

// NewRenderTarget creates a CPU-staged render target.
func (d *Device) NewRenderTarget(format gputypes.TextureFormat) (graphics.RenderTarget, error) {
	return d.soft.NewRenderTarget(format)
}

// NewChannelMixEffect returns the GPU compute evaluation of the channel
// mixing shader, or the CPU evaluation when no GPU is available.
func (d *Device) NewChannelMixEffect() (graphics.Effect, error) {
	if !d.gpuReady {
		return d.soft.NewChannelMixEffect()
	}
	return &mixEffect{dev: d}, nil
}

// DefaultEffect returns the device-owned pass-through effect.
func (d *Device) DefaultEffect() (graphics.Effect, error) {
	return d.soft.DefaultEffect()
}

// GPUReady reports whether the mixing pass runs on the GPU.
func (d *Device) GPUReady() bool { return d.gpuReady }

func (d *Device) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	d.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		d.instance = nil
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		d.instance = nil
		return fmt.Errorf("open device: %w", err)
	}
	d.device = openDev.Device
	d.queue = openDev.Queue

	if err := d.createPipeline(); err != nil {
		d.device.Destroy()
		instance.Destroy()
		d.device = nil
		d.instance = nil
		d.queue = nil
		return fmt.Errorf("create pipeline: %w", err)
	}
	d.gpuReady = true
	return nil
}

// createPipeline compiles the WGSL mixing shader to SPIR-V and builds
// the compute pipeline: one uniform buffer plus three pixel storage
// buffers.
func (d *Device) createPipeline() error {
	spirv, err := compileToSPIRV(channelMaskShaderSource)
	if err != nil {
		return fmt.Errorf("compile channel_mask shader: %w", err)
	}
	shader, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "channel_mask",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create channel_mask shader module: %w", err)
	}
	d.shader = shader

	bindLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "channel_mask_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create channel_mask bind group layout: %w", err)
	}
	d.bindLayout = bindLayout

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "channel_mask_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create channel_mask pipeline layout: %w", err)
	}
	d.pipeLayout = pipeLayout

	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   "channel_mask_pipeline",
		Layout:  d.pipeLayout,
		Compute: hal.ComputeState{Module: d.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create channel_mask compute pipeline: %w", err)
	}
	d.pipeline = pipeline
	return nil
}

func (d *Device) destroyPipeline() {
	if d.device == nil {
		return
	}
	if d.pipeline != nil {
		d.device.DestroyComputePipeline(d.pipeline)
		d.pipeline = nil
	}
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.bindLayout != nil {
		d.device.DestroyBindGroupLayout(d.bindLayout)
		d.bindLayout = nil
	}
	if d.shader != nil {
		d.device.DestroyShaderModule(d.shader)
		d.shader = nil
	}
}

// compileToSPIRV compiles WGSL source to the little-endian uint32 words
// the shader module descriptor takes.
func compileToSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
