// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package channelmask

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/channelmask/graphics"
)

// renderStage runs one capture stage: it opens a scoped draw op on the
// stage's render target, forces the stage render state (blending off
// with one/zero factors, all channels writable, no culling, no depth or
// stencil, pixel-space ortho, the given sRGB flags), clears to
// transparent black, and runs draw. The ambient context state is
// restored on every exit path.
//
// The capture stages read sRGB content linearized but store raw values
// (linear reads, no framebuffer encoding); the composite re-encodes its
// output when the final stage is sRGB-sampled, so the final texture
// matches the base texture when the transform is the identity.
//
// On success the stage's texture is refreshed and its state is Ready;
// on failure the state is Failed and the texture keeps its previous
// content.
func (f *Filter) renderStage(st *stagedTexture, width, height int, linearSRGB, encodeSRGB bool, draw func() error) error {
	st.state = TextureCapturing

	if err := st.ensureTarget(f.dev, st.format); err != nil {
		st.state = TextureFailed
		return err
	}

	saved := f.g.Save()
	defer f.g.Restore(saved)

	op, err := st.target.Render(f.g, width, height, st.space)
	if err != nil {
		st.state = TextureFailed
		return fmt.Errorf("begin stage render: %w", err)
	}
	defer op.Close()

	f.g.BlendPush()
	defer f.g.BlendPop()
	f.g.ResetBlend()
	f.g.EnableBlending(false)
	f.g.SetBlendFunction(gputypes.BlendFactorOne, gputypes.BlendFactorZero)
	f.g.EnableColor(true, true, true, true)
	f.g.SetCullMode(gputypes.CullModeNone)
	f.g.EnableDepthTest(false)
	f.g.EnableStencilTest(false)
	f.g.EnableStencilWrite(false)
	f.g.SetLinearSRGB(linearSRGB)
	f.g.EnableFramebufferSRGB(encodeSRGB)
	f.g.SetOrtho(0, float32(width), 0, float32(height), -100, 100)

	op.Clear(0, 0, 0, 0)

	if err := draw(); err != nil {
		st.state = TextureFailed
		return err
	}

	tex, err := st.target.Texture()
	if err != nil {
		st.state = TextureFailed
		return fmt.Errorf("fetch stage texture: %w", err)
	}
	st.tex = tex
	st.state = TextureReady
	return nil
}

// captureBase renders the upstream filter chain into the base texture.
// It runs at most once per frame; repeat calls report the first
// attempt's outcome.
func (f *Filter) captureBase(width, height int) bool {
	st := &f.base
	if st.state != TextureStale {
		return st.ready()
	}

	defaultFx, err := f.dev.DefaultEffect()
	if err != nil {
		st.state = TextureFailed
		f.logger().Warn("failed to capture base texture", "error", err)
		return false
	}

	if !f.chain.ProcessBegin(st.format, st.space) {
		st.state = TextureFailed
		return false
	}
	f.stats.BaseCaptures++

	// ProcessEnd must run exactly once per successful ProcessBegin,
	// even when the draw op could not be opened.
	ended := false
	err = f.renderStage(st, width, height, st.srgb, false, func() error {
		ended = true
		return f.chain.ProcessEnd(f.g, defaultFx, width, height)
	})
	if !ended {
		if endErr := f.chain.ProcessEnd(f.g, defaultFx, width, height); endErr != nil {
			f.logger().Warn("failed to unwind filter chain", "error", endErr)
		}
	}
	if err != nil {
		f.logger().Warn("failed to capture base texture", "error", err)
		return false
	}
	return true
}

// captureInput renders the selected input source into the input
// texture. When no input is selected, the input stage aliases the base
// texture so the mixing matrix reads the base source on both sides. It
// runs at most once per frame.
func (f *Filter) captureInput(width, height int) bool {
	st := &f.in
	if st.state != TextureStale {
		return st.ready()
	}

	src, ok := f.input.Lock()
	if !ok {
		if f.input.Selected() {
			// Selected but gone. Fail this frame; selection state is
			// only changed by Update.
			st.state = TextureFailed
			f.logger().Warn("input source is gone", "name", f.input.Name())
			return false
		}
		if !f.base.ready() {
			st.state = TextureFailed
			return false
		}
		st.tex = f.base.tex
		st.space = f.base.space
		st.srgb = f.base.srgb
		st.state = TextureReady
		return true
	}

	sw, sh := src.Width(), src.Height()
	f.stats.InputCaptures++
	err := f.renderStage(st, sw, sh, st.srgb, false, func() error {
		return src.VideoRender(f.g)
	})
	if err != nil {
		f.logger().Warn("failed to capture input texture", "name", src.Name(), "error", err)
		return false
	}
	return true
}

// composite mixes the base and input textures into the final texture
// with the channel transform. Both captures must be Ready. It runs at
// most once per frame.
func (f *Filter) composite(width, height int) bool {
	st := &f.final
	if st.state != TextureStale {
		return st.ready()
	}
	if !f.base.ready() || !f.in.ready() {
		st.state = TextureFailed
		return false
	}

	if err := f.bindMixParameters(); err != nil {
		st.state = TextureFailed
		f.logger().Warn("failed to composite", "error", err)
		return false
	}

	f.stats.Composites++
	err := f.renderStage(st, width, height, st.srgb, st.srgb, func() error {
		return f.mixEffect.DrawTriangle(f.g, graphics.TechniqueMask)
	})
	if err != nil {
		f.logger().Warn("failed to composite", "error", err)
		return false
	}
	return true
}

// bindMixParameters sets the mixing effect's uniforms: the two capture
// textures with their per-texture sRGB flags and the packed transform.
func (f *Filter) bindMixParameters() error {
	bind := func(name string, set func(graphics.Parameter)) error {
		p, ok := f.mixEffect.Parameter(name)
		if !ok {
			return fmt.Errorf("mixing effect has no parameter %q", name)
		}
		set(p)
		return nil
	}

	if err := bind(graphics.ParamInputA, func(p graphics.Parameter) {
		p.SetTexture(f.base.tex, f.base.srgb)
	}); err != nil {
		return err
	}
	if err := bind(graphics.ParamInputB, func(p graphics.Parameter) {
		p.SetTexture(f.in.tex, f.in.srgb)
	}); err != nil {
		return err
	}
	if err := bind(graphics.ParamBase, func(p graphics.Parameter) {
		p.SetFloat4(f.transform.Bias())
	}); err != nil {
		return err
	}
	if err := bind(graphics.ParamMatrix, func(p graphics.Parameter) {
		p.SetMatrix(f.transform.Matrix())
	}); err != nil {
		return err
	}
	return bind(graphics.ParamMultiplier, func(p graphics.Parameter) {
		p.SetFloat4(f.transform.Multiplier())
	})
}
