// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

// ErrNoDrawOp is returned when an effect draw is issued without an open
// render target operation.
var ErrNoDrawOp = errors.New("graphics: no draw operation is open")

// SoftwareDevice is a CPU implementation of Device. It backs textures
// with float32 pixel buffers and evaluates the channel mixing shader in
// Go, mirroring the WGSL program in backend/wgpu. It is used by the
// package tests and by hosts without GPU access.
type SoftwareDevice struct {
	defaultFx *SoftwareEffect
}

// NewSoftwareDevice creates a CPU rendering device.
func NewSoftwareDevice() *SoftwareDevice {
	return &SoftwareDevice{}
}

// NewRenderTarget creates a CPU render target with the given format.
func (d *SoftwareDevice) NewRenderTarget(format gputypes.TextureFormat) (RenderTarget, error) {
	return &SoftwareTarget{format: format}, nil
}

// NewChannelMixEffect returns a CPU evaluation of the channel mixing
// shader.
func (d *SoftwareDevice) NewChannelMixEffect() (Effect, error) {
	return newSoftwareEffect(effectChannelMix), nil
}

// DefaultEffect returns the device-owned pass-through effect.
func (d *SoftwareDevice) DefaultEffect() (Effect, error) {
	if d.defaultFx == nil {
		d.defaultFx = newSoftwareEffect(effectPassThrough)
	}
	return d.defaultFx, nil
}

var _ Device = (*SoftwareDevice)(nil)

// SoftwareTexture is a CPU texture holding straight (non-premultiplied)
// RGBA float32 pixels.
type SoftwareTexture struct {
	W, H   int
	Pix    []float32 // len == W*H*4
	format gputypes.TextureFormat
}

// NewSoftwareTexture creates a zeroed CPU texture.
func NewSoftwareTexture(width, height int, format gputypes.TextureFormat) *SoftwareTexture {
	return &SoftwareTexture{
		W:      width,
		H:      height,
		Pix:    make([]float32, width*height*4),
		format: format,
	}
}

// Width returns the texture width in pixels.
func (t *SoftwareTexture) Width() int { return t.W }

// Height returns the texture height in pixels.
func (t *SoftwareTexture) Height() int { return t.H }

// Format returns the texture pixel format.
func (t *SoftwareTexture) Format() gputypes.TextureFormat { return t.format }

// At returns the RGBA value of the pixel at (x, y).
func (t *SoftwareTexture) At(x, y int) [4]float32 {
	i := (y*t.W + x) * 4
	return [4]float32{t.Pix[i], t.Pix[i+1], t.Pix[i+2], t.Pix[i+3]}
}

// Set stores an RGBA value at (x, y), applying the format's range:
// unsigned-normalized 8-bit formats clamp to [0, 1] and quantize to
// 8-bit steps, float formats store the value unchanged.
func (t *SoftwareTexture) Set(x, y int, v [4]float32) {
	i := (y*t.W + x) * 4
	for c := 0; c < 4; c++ {
		t.Pix[i+c] = quantize(t.format, v[c])
	}
}

func quantize(format gputypes.TextureFormat, v float32) float32 {
	if format != gputypes.TextureFormatRGBA8Unorm {
		return v
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return math32.Round(v*255) / 255
}

// sample returns the nearest pixel at normalized coordinates (u, v).
func (t *SoftwareTexture) sample(u, v float32) [4]float32 {
	x := int(u * float32(t.W))
	y := int(v * float32(t.H))
	if x < 0 {
		x = 0
	} else if x >= t.W {
		x = t.W - 1
	}
	if y < 0 {
		y = 0
	} else if y >= t.H {
		y = t.H - 1
	}
	return t.At(x, y)
}

var _ Texture = (*SoftwareTexture)(nil)

// SoftwareTarget is a CPU render target. The backing texture is
// reallocated lazily when the requested dimensions change.
type SoftwareTarget struct {
	format gputypes.TextureFormat
	tex    *SoftwareTexture
	space  ColorSpace
}

// Render begins a scoped CPU drawing operation.
func (t *SoftwareTarget) Render(ctx *Context, width, height int, space ColorSpace) (DrawOp, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("graphics: invalid render target size %dx%d", width, height)
	}
	if t.tex == nil || t.tex.W != width || t.tex.H != height {
		t.tex = NewSoftwareTexture(width, height, t.format)
	}
	t.space = space
	op := &softwareOp{ctx: ctx, target: t}
	ctx.PushOp(op)
	return op, nil
}

// ColorFormat returns the pixel format the target was created with.
func (t *SoftwareTarget) ColorFormat() gputypes.TextureFormat { return t.format }

// Texture returns the texture holding the most recent render.
func (t *SoftwareTarget) Texture() (Texture, error) {
	if t.tex == nil {
		return nil, errors.New("graphics: render target has no texture yet")
	}
	return t.tex, nil
}

// Destroy drops the backing texture.
func (t *SoftwareTarget) Destroy() { t.tex = nil }

var _ RenderTarget = (*SoftwareTarget)(nil)

// softwareOp is the scoped CPU drawing operation.
type softwareOp struct {
	ctx    *Context
	target *SoftwareTarget
	closed bool
}

// Clear fills the target with the given color.
func (op *softwareOp) Clear(r, g, b, a float32) {
	tex := op.target.tex
	for y := 0; y < tex.H; y++ {
		for x := 0; x < tex.W; x++ {
			tex.Set(x, y, [4]float32{r, g, b, a})
		}
	}
}

// Close ends the operation. Safe to call more than once.
func (op *softwareOp) Close() {
	if op.closed {
		return
	}
	op.closed = true
	op.ctx.PopOp()
}

// Texture exposes the destination texture so host source stubs can draw
// themselves during capture.
func (op *softwareOp) Texture() *SoftwareTexture { return op.target.tex }

var _ DrawOp = (*softwareOp)(nil)

// effectKind selects the program a SoftwareEffect evaluates.
type effectKind uint8

const (
	effectChannelMix effectKind = iota
	effectPassThrough
)

// Uniform parameter names shared with the WGSL program.
const (
	ParamInputA     = "input_a"
	ParamInputB     = "input_b"
	ParamBase       = "base"
	ParamMatrix     = "matrix"
	ParamMultiplier = "multiplier"
	ParamImage      = "image"
)

// Technique names shared with the WGSL program.
const (
	TechniqueMask = "Mask"
	TechniqueDraw = "Draw"
)

// boundTexture is a texture binding plus its sRGB-linearization flag.
type boundTexture struct {
	tex  Texture
	srgb bool
}

// SoftwareEffect evaluates either the channel mixing program or the
// pass-through program on the CPU. The arithmetic mirrors
// backend/wgpu/shaders/channel_mask.wgsl; keep the two in sync.
type SoftwareEffect struct {
	kind effectKind

	inputA boundTexture
	inputB boundTexture
	image  boundTexture

	base       f32.Vec4
	matrix     f32.Mat4
	multiplier f32.Vec4
}

func newSoftwareEffect(kind effectKind) *SoftwareEffect {
	return &SoftwareEffect{kind: kind}
}

// Parameter looks up a uniform by name.
func (e *SoftwareEffect) Parameter(name string) (Parameter, bool) {
	switch e.kind {
	case effectChannelMix:
		switch name {
		case ParamInputA, ParamInputB, ParamBase, ParamMatrix, ParamMultiplier:
			return &softwareParam{fx: e, name: name}, true
		}
	case effectPassThrough:
		if name == ParamImage {
			return &softwareParam{fx: e, name: name}, true
		}
	}
	return nil, false
}

// DrawTriangle runs the named technique over the full current target.
func (e *SoftwareEffect) DrawTriangle(ctx *Context, technique string) error {
	return e.draw(ctx, technique, 0, 0)
}

// DrawSprite runs the named technique over a width x height quad. The
// software rasterizer draws into the full target, so the sprite size
// only bounds the written region.
func (e *SoftwareEffect) DrawSprite(ctx *Context, technique string, width, height int) error {
	return e.draw(ctx, technique, width, height)
}

// Destroy releases nothing for the CPU effect; present for interface
// symmetry with GPU backends.
func (e *SoftwareEffect) Destroy() {}

func (e *SoftwareEffect) draw(ctx *Context, technique string, width, height int) error {
	op, ok := ctx.CurrentOp().(*softwareOp)
	if !ok || op == nil {
		return ErrNoDrawOp
	}
	dst := op.target.tex

	switch {
	case e.kind == effectChannelMix && technique == TechniqueMask:
		return e.drawMix(ctx, dst)
	case e.kind == effectPassThrough && technique == TechniqueDraw:
		return e.drawImage(ctx, dst, width, height)
	default:
		return fmt.Errorf("graphics: effect has no technique %q", technique)
	}
}

// drawMix evaluates out = (a*base + matrix*b) * multiplier per pixel.
func (e *SoftwareEffect) drawMix(ctx *Context, dst *SoftwareTexture) error {
	a, okA := e.inputA.tex.(*SoftwareTexture)
	b, okB := e.inputB.tex.(*SoftwareTexture)
	if !okA || !okB {
		return errors.New("graphics: channel mix effect requires both input textures")
	}
	mask := ctx.ColorMask()
	for y := 0; y < dst.H; y++ {
		v := (float32(y) + 0.5) / float32(dst.H)
		for x := 0; x < dst.W; x++ {
			u := (float32(x) + 0.5) / float32(dst.W)
			av := decode(a.sample(u, v), e.inputA.srgb)
			bv := decode(b.sample(u, v), e.inputB.srgb)

			var out [4]float32
			for c := 0; c < 4; c++ {
				sum := av[c] * e.base[c]
				for k := 0; k < 4; k++ {
					sum += e.matrix[4*c+k] * bv[k]
				}
				out[c] = sum * e.multiplier[c]
			}
			writeMasked(ctx, dst, x, y, encode(out, ctx.FramebufferSRGBEnabled()), mask)
		}
	}
	return nil
}

// drawImage copies the bound image texture into the destination.
func (e *SoftwareEffect) drawImage(ctx *Context, dst *SoftwareTexture, width, height int) error {
	src, ok := e.image.tex.(*SoftwareTexture)
	if !ok {
		return errors.New("graphics: pass-through effect has no image bound")
	}
	w, h := dst.W, dst.H
	if width > 0 && width < w {
		w = width
	}
	if height > 0 && height < h {
		h = height
	}
	mask := ctx.ColorMask()
	for y := 0; y < h; y++ {
		v := (float32(y) + 0.5) / float32(h)
		for x := 0; x < w; x++ {
			u := (float32(x) + 0.5) / float32(w)
			px := decode(src.sample(u, v), e.image.srgb)
			writeMasked(ctx, dst, x, y, encode(px, ctx.FramebufferSRGBEnabled()), mask)
		}
	}
	return nil
}

// writeMasked writes a pixel honoring the channel write mask and the
// current blend state. Stage draws run with blending disabled; present
// runs with whatever the host set.
func writeMasked(ctx *Context, dst *SoftwareTexture, x, y int, v [4]float32, mask ColorMask) {
	prev := dst.At(x, y)
	if ctx.BlendingEnabled() {
		sa := v[3]
		for c := 0; c < 4; c++ {
			v[c] = v[c]*blendFactor(ctx.blend.src, sa) + prev[c]*blendFactor(ctx.blend.dst, sa)
		}
	}
	if !mask.R {
		v[0] = prev[0]
	}
	if !mask.G {
		v[1] = prev[1]
	}
	if !mask.B {
		v[2] = prev[2]
	}
	if !mask.A {
		v[3] = prev[3]
	}
	dst.Set(x, y, v)
}

func blendFactor(f gputypes.BlendFactor, srcAlpha float32) float32 {
	switch f {
	case gputypes.BlendFactorZero:
		return 0
	case gputypes.BlendFactorSrcAlpha:
		return srcAlpha
	case gputypes.BlendFactorOneMinusSrcAlpha:
		return 1 - srcAlpha
	default:
		return 1
	}
}

// decode linearizes an sRGB-encoded color when the binding asks for it.
// Alpha is always linear.
func decode(v [4]float32, srgb bool) [4]float32 {
	if !srgb {
		return v
	}
	for c := 0; c < 3; c++ {
		v[c] = srgbToLinear(v[c])
	}
	return v
}

// encode re-applies sRGB encoding when the framebuffer expects it.
func encode(v [4]float32, srgb bool) [4]float32 {
	if !srgb {
		return v
	}
	for c := 0; c < 3; c++ {
		v[c] = linearToSRGB(v[c])
	}
	return v
}

func srgbToLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math32.Pow((v+0.055)/1.055, 2.4)
}

func linearToSRGB(v float32) float32 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*math32.Pow(v, 1/2.4) - 0.055
}

// softwareParam binds a named uniform slot of a SoftwareEffect.
type softwareParam struct {
	fx   *SoftwareEffect
	name string
}

// SetTexture binds a texture with its sRGB-linearization flag.
func (p *softwareParam) SetTexture(t Texture, srgb bool) {
	b := boundTexture{tex: t, srgb: srgb}
	switch p.name {
	case ParamInputA:
		p.fx.inputA = b
	case ParamInputB:
		p.fx.inputB = b
	case ParamImage:
		p.fx.image = b
	}
}

// SetFloat4 sets a vector uniform.
func (p *softwareParam) SetFloat4(v f32.Vec4) {
	switch p.name {
	case ParamBase:
		p.fx.base = v
	case ParamMultiplier:
		p.fx.multiplier = v
	}
}

// SetMatrix sets the mixing matrix uniform.
func (p *softwareParam) SetMatrix(m f32.Mat4) {
	if p.name == ParamMatrix {
		p.fx.matrix = m
	}
}

var (
	_ Effect    = (*SoftwareEffect)(nil)
	_ Parameter = (*softwareParam)(nil)
)
