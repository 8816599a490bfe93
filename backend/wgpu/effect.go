// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/channelmask/graphics"
)

// paramsSize is the byte size of the Params uniform block in
// shaders/channel_mask.wgsl: two vec4<u32> plus six vec4<f32>.
const paramsSize = 128

// gpuWaitTimeout bounds how long a single dispatch may take before the
// draw fails instead of stalling the render thread.
const gpuWaitTimeout = 5 * time.Second

// mixEffect evaluates the channel mixing shader on the GPU. Stage
// pixels are uploaded as storage buffers, the compute pass runs one
// invocation per destination pixel, and the result is read back into
// the CPU-staged target.
type mixEffect struct {
	dev *Device

	inputA graphics.Texture
	inputB graphics.Texture
	srgbA  bool
	srgbB  bool

	base       f32.Vec4
	matrix     f32.Mat4
	multiplier f32.Vec4
}

var _ graphics.Effect = (*mixEffect)(nil)

// Parameter looks up a uniform by name.
func (e *mixEffect) Parameter(name string) (graphics.Parameter, bool) {
	switch name {
	case graphics.ParamInputA, graphics.ParamInputB,
		graphics.ParamBase, graphics.ParamMatrix, graphics.ParamMultiplier:
		return &mixParam{fx: e, name: name}, true
	}
	return nil, false
}

// DrawTriangle dispatches the mixing pass over the current draw op.
func (e *mixEffect) DrawTriangle(ctx *graphics.Context, technique string) error {
	if technique != graphics.TechniqueMask {
		return fmt.Errorf("wgpu: effect has no technique %q", technique)
	}
	op, ok := ctx.CurrentOp().(interface{ Texture() *graphics.SoftwareTexture })
	if !ok || op == nil {
		return graphics.ErrNoDrawOp
	}
	dst := op.Texture()
	a, okA := e.inputA.(*graphics.SoftwareTexture)
	b, okB := e.inputB.(*graphics.SoftwareTexture)
	if !okA || !okB {
		return fmt.Errorf("wgpu: channel mix effect requires both input textures")
	}
	return e.dispatch(ctx, dst, a, b)
}

// DrawSprite is not supported; the mixing pass always covers the full
// target.
func (e *mixEffect) DrawSprite(ctx *graphics.Context, technique string, width, height int) error {
	return fmt.Errorf("wgpu: channel mix effect does not draw sprites")
}

// Destroy releases nothing per effect. The pipeline is owned by the
// device and shared by every instance.
func (e *mixEffect) Destroy() {}

// dispatch uploads the inputs, runs the compute pass and reads the
// result back into dst.
func (e *mixEffect) dispatch(ctx *graphics.Context, dst, a, b *graphics.SoftwareTexture) error {
	d := e.dev
	outSize := uint64(dst.W*dst.H) * 16

	uniformBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "channel_mask_params",
		Size:  paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create params buffer: %w", err)
	}
	defer d.device.DestroyBuffer(uniformBuf)

	bufA, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "channel_mask_input_a",
		Size:  uint64(len(a.Pix)) * 4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create input_a buffer: %w", err)
	}
	defer d.device.DestroyBuffer(bufA)

	bufB, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "channel_mask_input_b",
		Size:  uint64(len(b.Pix)) * 4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create input_b buffer: %w", err)
	}
	defer d.device.DestroyBuffer(bufB)

	outBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "channel_mask_output",
		Size:  outSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create output buffer: %w", err)
	}
	defer d.device.DestroyBuffer(outBuf)

	stagingBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "channel_mask_staging",
		Size:  outSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(stagingBuf)

	d.queue.WriteBuffer(uniformBuf, 0, e.packParams(ctx, dst, a, b))
	d.queue.WriteBuffer(bufA, 0, packPixels(a.Pix))
	d.queue.WriteBuffer(bufB, 0, packPixels(b.Pix))

	bindGroup, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "channel_mask_bind",
		Layout: d.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: paramsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: bufA.NativeHandle(), Offset: 0, Size: uint64(len(a.Pix)) * 4}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: bufB.NativeHandle(), Offset: 0, Size: uint64(len(b.Pix)) * 4}},
			{Binding: 3, Resource: gputypes.BufferBinding{Buffer: outBuf.NativeHandle(), Offset: 0, Size: outSize}},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(bindGroup)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "channel_mask_encoder"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	encoder.BeginEncoding("channel_mask")

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "channel_mask_pass"})
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(uint32((dst.W+7)/8), uint32((dst.H+7)/8), 1)
	pass.End()

	encoder.CopyBufferToBuffer(outBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: outSize},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	signaled, err := d.device.Wait(fence, 1, gpuWaitTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for dispatch: %w", err)
	}
	if !signaled {
		return fmt.Errorf("wgpu: dispatch timed out after %v", gpuWaitTimeout)
	}

	readback := make([]byte, outSize)
	if err := d.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return fmt.Errorf("wgpu: read back output: %w", err)
	}
	unpackPixels(readback, dst)
	return nil
}

// packParams lays out the Params uniform block exactly as the WGSL
// struct expects.
func (e *mixEffect) packParams(ctx *graphics.Context, dst, a, b *graphics.SoftwareTexture) []byte {
	var flags uint32
	if e.srgbA {
		flags |= 1
	}
	if e.srgbB {
		flags |= 2
	}
	if ctx.FramebufferSRGBEnabled() {
		flags |= 4
	}

	buf := make([]byte, paramsSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], uint32(dst.W))
	le.PutUint32(buf[4:], uint32(dst.H))
	le.PutUint32(buf[8:], uint32(b.W))
	le.PutUint32(buf[12:], uint32(b.H))
	le.PutUint32(buf[16:], uint32(a.W))
	le.PutUint32(buf[20:], uint32(a.H))
	le.PutUint32(buf[24:], flags)

	off := 32
	for c := 0; c < 4; c++ {
		le.PutUint32(buf[off:], math.Float32bits(e.base[c]))
		off += 4
	}
	for c := 0; c < 4; c++ {
		le.PutUint32(buf[off:], math.Float32bits(e.multiplier[c]))
		off += 4
	}
	for i := 0; i < 16; i++ {
		le.PutUint32(buf[off:], math.Float32bits(e.matrix[i]))
		off += 4
	}
	return buf
}

// packPixels serializes a float32 pixel buffer to little-endian bytes.
func packPixels(pix []float32) []byte {
	buf := make([]byte, len(pix)*4)
	for i, v := range pix {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// unpackPixels writes the read-back bytes into dst through Set so the
// target's format quantization applies.
func unpackPixels(data []byte, dst *graphics.SoftwareTexture) {
	le := binary.LittleEndian
	for y := 0; y < dst.H; y++ {
		for x := 0; x < dst.W; x++ {
			i := (y*dst.W + x) * 16
			dst.Set(x, y, [4]float32{
				math.Float32frombits(le.Uint32(data[i:])),
				math.Float32frombits(le.Uint32(data[i+4:])),
				math.Float32frombits(le.Uint32(data[i+8:])),
				math.Float32frombits(le.Uint32(data[i+12:])),
			})
		}
	}
}

// mixParam binds a named uniform slot of a mixEffect.
type mixParam struct {
	fx   *mixEffect
	name string
}

var _ graphics.Parameter = (*mixParam)(nil)

// SetTexture binds an input texture with its sRGB-linearization flag.
func (p *mixParam) SetTexture(t graphics.Texture, srgb bool) {
	switch p.name {
	case graphics.ParamInputA:
		p.fx.inputA = t
		p.fx.srgbA = srgb
	case graphics.ParamInputB:
		p.fx.inputB = t
		p.fx.srgbB = srgb
	}
}

// SetFloat4 sets a vector uniform.
func (p *mixParam) SetFloat4(v f32.Vec4) {
	switch p.name {
	case graphics.ParamBase:
		p.fx.base = v
	case graphics.ParamMultiplier:
		p.fx.multiplier = v
	}
}

// SetMatrix sets the mixing matrix uniform.
func (p *mixParam) SetMatrix(m f32.Mat4) {
	if p.name == graphics.ParamMatrix {
		p.fx.matrix = m
	}
}
