// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

// Texture is a GPU texture handle produced by a render target.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() int

	// Height returns the texture height in pixels.
	Height() int

	// Format returns the texture pixel format.
	Format() gputypes.TextureFormat
}

// DrawOp is a scoped drawing operation into a render target. While the
// op is open it is the current draw destination of its Context. Close
// must be called on every exit path; closing twice is safe.
type DrawOp interface {
	// Clear fills the target with the given non-premultiplied color.
	Clear(r, g, b, a float32)

	// Close ends the scoped operation and detaches it from the context.
	Close()
}

// RenderTarget is an offscreen rendering destination with a fixed pixel
// format. Targets size themselves lazily on Render and keep their
// backing texture between frames.
type RenderTarget interface {
	// Render begins a scoped drawing operation of the given size in the
	// given color space. The previous contents are undefined until the
	// caller clears the target.
	Render(ctx *Context, width, height int, space ColorSpace) (DrawOp, error)

	// ColorFormat returns the pixel format the target was created with.
	ColorFormat() gputypes.TextureFormat

	// Texture returns the texture holding the most recent render.
	Texture() (Texture, error)

	// Destroy releases the target's resources.
	Destroy()
}

// Parameter is a uniform setter on an effect.
type Parameter interface {
	// SetTexture binds a texture. When srgb is true the binding
	// linearizes sRGB content on sampling.
	SetTexture(t Texture, srgb bool)

	// SetFloat4 sets a 4-component float vector.
	SetFloat4(v f32.Vec4)

	// SetMatrix sets a 4x4 row-major matrix.
	SetMatrix(m f32.Mat4)
}

// Effect is a compiled shader program with named techniques and named
// uniform parameters.
type Effect interface {
	// Parameter looks up a uniform by name. The second return value is
	// false when the program has no such parameter.
	Parameter(name string) (Parameter, bool)

	// DrawTriangle runs the named technique over a single full-screen
	// triangle into the current draw op.
	DrawTriangle(ctx *Context, technique string) error

	// DrawSprite runs the named technique over a width x height quad
	// into the current draw op.
	DrawSprite(ctx *Context, technique string, width, height int) error

	// Destroy releases the effect's resources.
	Destroy()
}

// Device creates the rendering resources the filter needs. One Device is
// typically shared by every filter instance running on the same GPU
// context.
type Device interface {
	// NewRenderTarget creates an offscreen render target with the given
	// pixel format. The target allocates its texture lazily on first
	// Render.
	NewRenderTarget(format gputypes.TextureFormat) (RenderTarget, error)

	// NewChannelMixEffect compiles the channel mixing shader. Callers
	// own the returned effect and must Destroy it; the filter core
	// shares one compiled instance per device across filter instances.
	NewChannelMixEffect() (Effect, error)

	// DefaultEffect returns the device-owned pass-through effect used
	// for chain rendering and presentation. The device retains
	// ownership; callers must not Destroy it.
	DefaultEffect() (Effect, error)
}
