// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package channelmask

import (
	"errors"

	"github.com/gogpu/channelmask/graphics"
)

// errMissingImageParam reports a present effect without the standard
// image parameter. Presenting skips the frame and logs instead of
// rendering garbage.
var errMissingImageParam = errors.New("channelmask: present effect has no image parameter")

// VideoRender renders one output frame: capture the upstream chain into
// the base texture, capture the selected input (or alias the base),
// composite through the mixing matrix, then present the result with
// effect. A nil effect presents with the device default.
//
// When the filter has no parent, no target, or a zero-area target, the
// frame passes through unmodified. After the chain has been consumed a
// failing stage drops the frame instead.
func (f *Filter) VideoRender(effect graphics.Effect) {
	parent := f.chain.Parent()
	target := f.chain.Target()
	if parent == nil || target == nil {
		f.skipFrame()
		return
	}
	width, height := target.Width(), target.Height()
	if width <= 0 || height <= 0 {
		f.skipFrame()
		return
	}
	// A selected input that has no area yet is checked before the chain
	// is consumed, so the frame can still pass through.
	if src, ok := f.input.Lock(); ok && (src.Width() <= 0 || src.Height() <= 0) {
		f.skipFrame()
		return
	}

	if !f.captureBase(width, height) {
		f.dropFrame()
		return
	}
	if !f.captureInput(width, height) {
		f.dropFrame()
		return
	}
	if !f.composite(width, height) {
		f.dropFrame()
		return
	}

	tex := f.presentTexture()
	if tex == nil {
		f.dropFrame()
		return
	}
	if err := f.present(effect, tex, width, height); err != nil {
		f.logger().Error("failed to present frame", "error", err)
		f.dropFrame()
		return
	}
	f.stats.PresentedFrames++
}

// presentTexture selects the texture to present according to the debug
// selector. All three stages are Ready by the time this runs.
func (f *Filter) presentTexture() graphics.Texture {
	switch f.debugTexture {
	case DebugTextureBase:
		return f.base.tex
	case DebugTextureInput:
		return f.in.tex
	default:
		return f.final.tex
	}
}

// present draws tex into the host's current draw destination as a
// width x height sprite. The host's blend state is left untouched; both
// the texture binding and the framebuffer encoding follow the ambient
// linear-sRGB mode, so a linear host decodes and re-encodes while a
// plain host copies the stored values through.
func (f *Filter) present(effect graphics.Effect, tex graphics.Texture, width, height int) error {
	fx := effect
	if fx == nil {
		var err error
		fx, err = f.dev.DefaultEffect()
		if err != nil {
			return err
		}
	}

	img, ok := fx.Parameter(graphics.ParamImage)
	if !ok {
		return errMissingImageParam
	}
	img.SetTexture(tex, f.g.LinearSRGB())

	saved := f.g.Save()
	defer f.g.Restore(saved)
	f.g.EnableFramebufferSRGB(f.g.LinearSRGB())

	return fx.DrawSprite(f.g, graphics.TechniqueDraw, width, height)
}

// skipFrame passes the frame through the chain unmodified.
func (f *Filter) skipFrame() {
	f.chain.SkipVideoFilter()
	f.stats.SkippedFrames++
}

// dropFrame records a frame that could not be rendered after the chain
// was already consumed.
func (f *Filter) dropFrame() {
	f.stats.SkippedFrames++
}
