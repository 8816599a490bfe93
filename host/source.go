// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package host

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/channelmask/graphics"
)

// OutputFlags describes capabilities a source advertises to the
// compositor.
type OutputFlags uint32

const (
	// FlagVideo marks a source that produces video output.
	FlagVideo OutputFlags = 1 << iota

	// FlagSRGB marks a source whose output is sRGB-aware.
	FlagSRGB
)

// Source is a handle to a host video source.
type Source interface {
	// Name returns the source's unique name.
	Name() string

	// Width returns the source's base width in pixels.
	Width() int

	// Height returns the source's base height in pixels.
	Height() int

	// OutputFlags returns the source's capability flags.
	OutputFlags() OutputFlags

	// ColorSpace negotiates the source's output color space against the
	// caller's preference list.
	ColorSpace(preferred []graphics.ColorSpace) graphics.ColorSpace

	// VideoRender draws the source into the current draw op.
	VideoRender(ctx *graphics.Context) error

	// Showing reports whether the source is currently shown anywhere.
	Showing() bool

	// Active reports whether the source is active in the output.
	Active() bool
}

// WeakSource is a non-owning handle to a Source. Lock fails once the
// host has destroyed the source.
type WeakSource interface {
	// Lock upgrades to a strong handle for the duration of a call.
	Lock() (Source, bool)

	// Name returns the name the handle was resolved from.
	Name() string
}

// Resolver resolves source names to weak handles.
type Resolver interface {
	// Resolve returns a weak handle to the named source or an error if
	// no such source exists.
	Resolve(name string) (WeakSource, error)
}

// ChildRegistration is an established parent/child link in the host's
// source tree. Close is idempotent.
type ChildRegistration interface {
	Close()
}

// ChildRegistrar tracks render-graph parent/child relationships.
type ChildRegistrar interface {
	// RegisterChild links child under parent. It fails when accepting
	// the link would create a cycle in the render graph, that is when
	// child transitively contains parent.
	RegisterChild(parent, child Source) (ChildRegistration, error)
}

// Token is a scoped liveness reference. Releasing twice is safe.
type Token interface {
	Release()
}

// Liveness hands out visibility and activity references that keep a
// source counted as shown or active while the token exists.
type Liveness interface {
	// AddShowingRef marks src as shown until the token is released.
	AddShowingRef(src Source) (Token, error)

	// AddActiveRef marks src as active until the token is released.
	AddActiveRef(src Source) (Token, error)
}

// Host bundles the compositor capabilities the filter consumes.
type Host interface {
	Resolver
	ChildRegistrar
	Liveness
}

// Chain describes the filter's position in the host render chain and
// drives upstream rendering during base capture.
type Chain interface {
	// Self returns the filter's own source handle.
	Self() Source

	// Parent returns the source the filter is attached to.
	Parent() Source

	// Target returns the upstream rendering target of the filter chain.
	Target() Source

	// ProcessBegin starts rendering the upstream chain with the given
	// format and color space. A false return means the chain cannot
	// render this frame.
	ProcessBegin(format gputypes.TextureFormat, space graphics.ColorSpace) bool

	// ProcessEnd finishes upstream chain rendering, drawing the result
	// at the given size with the given effect into the current draw op.
	// It must be called exactly once for every successful ProcessBegin.
	ProcessEnd(ctx *graphics.Context, effect graphics.Effect, width, height int) error

	// SkipVideoFilter passes this frame through unmodified.
	SkipVideoFilter()
}
