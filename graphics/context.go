// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import "github.com/gogpu/gputypes"

// blendState is one entry of the blend state stack.
type blendState struct {
	enabled bool
	src     gputypes.BlendFactor
	dst     gputypes.BlendFactor
}

func defaultBlendState() blendState {
	return blendState{
		enabled: true,
		src:     gputypes.BlendFactorSrcAlpha,
		dst:     gputypes.BlendFactorOneMinusSrcAlpha,
	}
}

// ColorMask selects which color channels a draw writes.
type ColorMask struct {
	R, G, B, A bool
}

// Ortho describes an orthographic projection in target pixel coordinates.
type Ortho struct {
	Left, Right, Top, Bottom float32
	Near, Far                float32
}

// Context tracks the ambient render state shared by all draws: the blend
// state stack, sRGB flags, color mask, cull/depth/stencil switches, the
// current projection, and the stack of active draw operations.
//
// Context is not safe for concurrent use. All filter rendering happens on
// the render thread within a single frame, matching the host compositor's
// execution model.
type Context struct {
	blendStack []blendState
	blend      blendState

	linearSRGB      bool
	framebufferSRGB bool

	colorMask   ColorMask
	cullMode    gputypes.CullMode
	depthTest   bool
	depthFn     gputypes.CompareFunction
	stencilTest bool
	stencilWr   bool

	proj Ortho

	ops []DrawOp
}

// NewContext creates a context with host-default render state.
func NewContext() *Context {
	return &Context{
		blend:     defaultBlendState(),
		colorMask: ColorMask{R: true, G: true, B: true, A: true},
		cullMode:  gputypes.CullModeNone,
		depthFn:   gputypes.CompareFunctionAlways,
	}
}

// State is a snapshot of the ambient flags taken by Save. Restore brings
// the context back to it unconditionally, including unwinding any blend
// states pushed after the snapshot, so a failed capture stage can never
// leave the renderer state corrupted.
type State struct {
	linearSRGB      bool
	framebufferSRGB bool
	blendDepth      int
}

// Save snapshots the sRGB flags and the blend stack depth.
func (c *Context) Save() State {
	return State{
		linearSRGB:      c.linearSRGB,
		framebufferSRGB: c.framebufferSRGB,
		blendDepth:      len(c.blendStack),
	}
}

// Restore reverts the context to a previously saved state. Blend states
// pushed since the snapshot are popped; the sRGB flags are reset.
func (c *Context) Restore(s State) {
	for len(c.blendStack) > s.blendDepth {
		c.BlendPop()
	}
	c.linearSRGB = s.linearSRGB
	c.framebufferSRGB = s.framebufferSRGB
}

// SetLinearSRGB sets whether texture reads linearize sRGB content.
func (c *Context) SetLinearSRGB(v bool) { c.linearSRGB = v }

// LinearSRGB reports whether linear-sRGB texture reads are enabled.
func (c *Context) LinearSRGB() bool { return c.linearSRGB }

// EnableFramebufferSRGB sets whether writes to the framebuffer are
// sRGB-encoded.
func (c *Context) EnableFramebufferSRGB(v bool) { c.framebufferSRGB = v }

// FramebufferSRGBEnabled reports whether framebuffer sRGB encoding is on.
func (c *Context) FramebufferSRGBEnabled() bool { return c.framebufferSRGB }

// BlendPush pushes the current blend state onto the stack.
func (c *Context) BlendPush() {
	c.blendStack = append(c.blendStack, c.blend)
}

// BlendPop restores the most recently pushed blend state. Popping an
// empty stack resets to the default blend state.
func (c *Context) BlendPop() {
	if n := len(c.blendStack); n > 0 {
		c.blend = c.blendStack[n-1]
		c.blendStack = c.blendStack[:n-1]
		return
	}
	c.blend = defaultBlendState()
}

// ResetBlend resets the current blend state to the host default without
// touching the stack.
func (c *Context) ResetBlend() { c.blend = defaultBlendState() }

// EnableBlending switches blending on or off for subsequent draws.
func (c *Context) EnableBlending(v bool) { c.blend.enabled = v }

// BlendingEnabled reports whether blending is currently enabled.
func (c *Context) BlendingEnabled() bool { return c.blend.enabled }

// SetBlendFunction sets the source and destination blend factors.
func (c *Context) SetBlendFunction(src, dst gputypes.BlendFactor) {
	c.blend.src = src
	c.blend.dst = dst
}

// BlendStackDepth returns the number of pushed blend states.
func (c *Context) BlendStackDepth() int { return len(c.blendStack) }

// EnableColor sets the channel write mask for subsequent draws.
func (c *Context) EnableColor(r, g, b, a bool) {
	c.colorMask = ColorMask{R: r, G: g, B: b, A: a}
}

// ColorMask returns the current channel write mask.
func (c *Context) ColorMask() ColorMask { return c.colorMask }

// SetCullMode sets the face culling mode.
func (c *Context) SetCullMode(m gputypes.CullMode) { c.cullMode = m }

// CullMode returns the current face culling mode.
func (c *Context) CullMode() gputypes.CullMode { return c.cullMode }

// EnableDepthTest switches depth testing on or off.
func (c *Context) EnableDepthTest(v bool) { c.depthTest = v }

// SetDepthFunction sets the depth comparison function.
func (c *Context) SetDepthFunction(fn gputypes.CompareFunction) { c.depthFn = fn }

// EnableStencilTest switches stencil testing on or off.
func (c *Context) EnableStencilTest(v bool) { c.stencilTest = v }

// EnableStencilWrite switches stencil writes on or off.
func (c *Context) EnableStencilWrite(v bool) { c.stencilWr = v }

// SetOrtho sets an orthographic projection in target pixel coordinates.
func (c *Context) SetOrtho(left, right, top, bottom, near, far float32) {
	c.proj = Ortho{Left: left, Right: right, Top: top, Bottom: bottom, Near: near, Far: far}
}

// Projection returns the current orthographic projection.
func (c *Context) Projection() Ortho { return c.proj }

// PushOp makes op the current draw destination. Render target
// implementations call this from Render; filter code never does.
func (c *Context) PushOp(op DrawOp) {
	c.ops = append(c.ops, op)
}

// PopOp removes the current draw destination. Called by DrawOp.Close.
func (c *Context) PopOp() {
	if n := len(c.ops); n > 0 {
		c.ops = c.ops[:n-1]
	}
}

// CurrentOp returns the active draw destination, or nil when no render
// target is open.
func (c *Context) CurrentOp() DrawOp {
	if n := len(c.ops); n > 0 {
		return c.ops[n-1]
	}
	return nil
}
