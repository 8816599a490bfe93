// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package channelmask

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/channelmask/graphics"
)

// TextureState tracks one staged texture through a frame. All three
// stages reset to Stale at the start of every output frame; a stage
// runs at most once per frame, ending Ready or Failed. A Failed stage
// is retried naturally on the next frame's reset.
type TextureState uint8

const (
	// TextureStale means the texture has not been captured this frame.
	TextureStale TextureState = iota

	// TextureCapturing means the capture stage is running.
	TextureCapturing

	// TextureReady means the texture was captured this frame.
	TextureReady

	// TextureFailed means the capture stage failed this frame.
	TextureFailed
)

// String returns a human-readable name for the state.
func (s TextureState) String() string {
	switch s {
	case TextureStale:
		return "Stale"
	case TextureCapturing:
		return "Capturing"
	case TextureReady:
		return "Ready"
	case TextureFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// stagedTexture is one of the filter's three intermediate textures
// (base, input, final) together with its owning render target and
// negotiated format.
type stagedTexture struct {
	target graphics.RenderTarget
	tex    graphics.Texture

	space  graphics.ColorSpace
	format gputypes.TextureFormat
	srgb   bool

	state TextureState
}

func (st *stagedTexture) ready() bool { return st.state == TextureReady }

// reset marks the texture stale for a new frame. The render target and
// the previous texture are kept so targets are only reallocated on
// format changes, never per frame.
func (st *stagedTexture) reset() { st.state = TextureStale }

// ensureTarget reallocates the render target when its format no longer
// matches the negotiated format.
func (st *stagedTexture) ensureTarget(dev graphics.Device, format gputypes.TextureFormat) error {
	if st.target != nil && st.target.ColorFormat() == format {
		return nil
	}
	if st.target != nil {
		st.target.Destroy()
		st.target = nil
	}
	rt, err := dev.NewRenderTarget(format)
	if err != nil {
		return fmt.Errorf("allocate render target: %w", err)
	}
	st.target = rt
	return nil
}

// release destroys the render target and drops the texture.
func (st *stagedTexture) release() {
	if st.target != nil {
		st.target.Destroy()
		st.target = nil
	}
	st.tex = nil
	st.state = TextureStale
}
