// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/channelmask/graphics"
)

func TestPackParamsLayout(t *testing.T) {
	e := &mixEffect{
		srgbA:      true,
		base:       f32.Vec4{0.1, 0.2, 0.3, 0.4},
		multiplier: f32.Vec4{1, 2, 3, 4},
	}
	for i := range e.matrix {
		e.matrix[i] = float32(i)
	}
	dst := graphics.NewSoftwareTexture(7, 5, gputypes.TextureFormatRGBA16Float)
	a := graphics.NewSoftwareTexture(7, 5, gputypes.TextureFormatRGBA16Float)
	b := graphics.NewSoftwareTexture(3, 2, gputypes.TextureFormatRGBA8Unorm)

	ctx := graphics.NewContext()
	ctx.EnableFramebufferSRGB(true)
	buf := e.packParams(ctx, dst, a, b)

	if len(buf) != paramsSize {
		t.Fatalf("params size = %d, want %d", len(buf), paramsSize)
	}
	le := binary.LittleEndian
	wantDims := []uint32{7, 5, 3, 2, 7, 5}
	for i, want := range wantDims {
		if got := le.Uint32(buf[i*4:]); got != want {
			t.Errorf("dims word %d = %d, want %d", i, got, want)
		}
	}
	// bit 0: linearize input_a, bit 2: encode output
	if got := le.Uint32(buf[24:]); got != 5 {
		t.Errorf("flags = %d, want 5", got)
	}
	if got := math.Float32frombits(le.Uint32(buf[32:])); got != 0.1 {
		t.Errorf("base[0] = %v, want 0.1", got)
	}
	if got := math.Float32frombits(le.Uint32(buf[48:])); got != 1 {
		t.Errorf("multiplier[0] = %v, want 1", got)
	}
	if got := math.Float32frombits(le.Uint32(buf[64:])); got != 0 {
		t.Errorf("matrix[0] = %v, want 0", got)
	}
	if got := math.Float32frombits(le.Uint32(buf[124:])); got != 15 {
		t.Errorf("matrix[15] = %v, want 15", got)
	}
}

func TestPixelPackRoundTrip(t *testing.T) {
	src := graphics.NewSoftwareTexture(2, 2, gputypes.TextureFormatRGBA16Float)
	vals := []float32{0, 0.25, -1.5, 2, 0.5, 1, 0.75, 0.125,
		3, -0.5, 0.0625, 1, 0.2, 0.4, 0.6, 0.8}
	copy(src.Pix, vals)

	data := packPixels(src.Pix)
	if len(data) != len(vals)*4 {
		t.Fatalf("packed size = %d, want %d", len(data), len(vals)*4)
	}

	dst := graphics.NewSoftwareTexture(2, 2, gputypes.TextureFormatRGBA16Float)
	unpackPixels(data, dst)
	for i, want := range vals {
		if dst.Pix[i] != want {
			t.Errorf("pixel word %d = %v, want %v", i, dst.Pix[i], want)
		}
	}
}

func TestUnpackQuantizesUnormTargets(t *testing.T) {
	data := packPixels([]float32{1.5, -0.25, 0.5, 1})
	dst := graphics.NewSoftwareTexture(1, 1, gputypes.TextureFormatRGBA8Unorm)
	unpackPixels(data, dst)

	got := dst.At(0, 0)
	want := [4]float32{1, 0, 128.0 / 255.0, 1}
	for c := range want {
		if diff := got[c] - want[c]; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("channel %d = %v, want %v", c, got[c], want[c])
		}
	}
}

func TestMixEffectParameters(t *testing.T) {
	e := &mixEffect{}
	for _, name := range []string{
		graphics.ParamInputA, graphics.ParamInputB,
		graphics.ParamBase, graphics.ParamMatrix, graphics.ParamMultiplier,
	} {
		if _, ok := e.Parameter(name); !ok {
			t.Errorf("Parameter(%q) not found", name)
		}
	}
	if _, ok := e.Parameter(graphics.ParamImage); ok {
		t.Error("mix effect should not expose an image parameter")
	}

	p, _ := e.Parameter(graphics.ParamInputA)
	tex := graphics.NewSoftwareTexture(1, 1, gputypes.TextureFormatRGBA8Unorm)
	p.SetTexture(tex, true)
	if e.inputA != tex || !e.srgbA {
		t.Error("input_a binding not stored")
	}

	p, _ = e.Parameter(graphics.ParamMultiplier)
	p.SetFloat4(f32.Vec4{1, 2, 3, 4})
	if e.multiplier != (f32.Vec4{1, 2, 3, 4}) {
		t.Errorf("multiplier = %v", e.multiplier)
	}
}

func TestMixEffectDrawWithoutOp(t *testing.T) {
	e := &mixEffect{}
	ctx := graphics.NewContext()
	if err := e.DrawTriangle(ctx, graphics.TechniqueMask); err != graphics.ErrNoDrawOp {
		t.Errorf("DrawTriangle without op = %v, want ErrNoDrawOp", err)
	}
	if err := e.DrawTriangle(ctx, "Nope"); err == nil {
		t.Error("unknown technique should fail")
	}
	if err := e.DrawSprite(ctx, graphics.TechniqueMask, 4, 4); err == nil {
		t.Error("DrawSprite should fail for the mix effect")
	}
}

func TestDeviceFallsBackToCPU(t *testing.T) {
	d := &Device{soft: graphics.NewSoftwareDevice()}
	if d.GPUReady() {
		t.Fatal("device without GPU init reports ready")
	}
	fx, err := d.NewChannelMixEffect()
	if err != nil {
		t.Fatalf("NewChannelMixEffect: %v", err)
	}
	if _, ok := fx.(*graphics.SoftwareEffect); !ok {
		t.Errorf("fallback effect = %T, want *graphics.SoftwareEffect", fx)
	}
}

// mockProvider implements gpucontext.DeviceProvider without exposing
// the underlying HAL types.
type mockProvider struct{}

type mockCtxDevice struct{}

func (mockCtxDevice) Poll(wait bool) {}
func (mockCtxDevice) Destroy()       {}

func (mockProvider) Device() gpucontext.Device             { return mockCtxDevice{} }
func (mockProvider) Queue() gpucontext.Queue               { return struct{}{} }
func (mockProvider) Adapter() gpucontext.Adapter           { return struct{}{} }
func (mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }
func (mockProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }

func TestNewWithProviderRequiresHALTypes(t *testing.T) {
	if _, err := NewWithProvider(mockProvider{}); err == nil {
		t.Error("provider without HAL accessors should be rejected")
	}
}
