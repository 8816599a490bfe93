// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package host

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/channelmask/graphics"
)

// ErrSourceNotFound is returned by StubHost.Resolve for unknown names.
var ErrSourceNotFound = errors.New("host: source not found")

// ErrWouldCycle is returned by StubHost.RegisterChild when the link
// would create a render-graph cycle.
var ErrWouldCycle = errors.New("host: child registration would create a cycle")

// StubSource is an in-memory Source for tests and examples. It renders
// as a solid fill into software draw ops.
type StubSource struct {
	SourceName string
	W, H       int
	Flags      OutputFlags
	Space      graphics.ColorSpace
	IsShowing  bool
	IsActive   bool

	// Fill is the solid color VideoRender writes.
	Fill [4]float32

	// Embeds lists names of sources this source contains, used by
	// StubHost for cycle detection.
	Embeds []string

	// RenderErr, when set, makes VideoRender fail.
	RenderErr error

	// RenderCount counts VideoRender calls.
	RenderCount int
}

// Name returns the source's unique name.
func (s *StubSource) Name() string { return s.SourceName }

// Width returns the source's base width in pixels.
func (s *StubSource) Width() int { return s.W }

// Height returns the source's base height in pixels.
func (s *StubSource) Height() int { return s.H }

// OutputFlags returns the source's capability flags.
func (s *StubSource) OutputFlags() OutputFlags { return s.Flags }

// ColorSpace returns the source's fixed color space regardless of the
// preference list.
func (s *StubSource) ColorSpace(preferred []graphics.ColorSpace) graphics.ColorSpace {
	return s.Space
}

// VideoRender fills the current draw op with the source's color.
func (s *StubSource) VideoRender(ctx *graphics.Context) error {
	s.RenderCount++
	if s.RenderErr != nil {
		return s.RenderErr
	}
	op, ok := ctx.CurrentOp().(interface{ Texture() *graphics.SoftwareTexture })
	if !ok {
		return errors.New("host: stub source requires a software draw op")
	}
	tex := op.Texture()
	for y := 0; y < tex.H; y++ {
		for x := 0; x < tex.W; x++ {
			tex.Set(x, y, s.Fill)
		}
	}
	return nil
}

// Showing reports whether the source is currently shown.
func (s *StubSource) Showing() bool { return s.IsShowing }

// Active reports whether the source is active in the output.
func (s *StubSource) Active() bool { return s.IsActive }

var _ Source = (*StubSource)(nil)

// StubWeakSource is a weak handle to a StubSource whose liveness the
// test controls.
type StubWeakSource struct {
	Source *StubSource
	Dead   bool
}

// Lock upgrades to a strong handle unless the source was destroyed.
func (w *StubWeakSource) Lock() (Source, bool) {
	if w.Dead || w.Source == nil {
		return nil, false
	}
	return w.Source, true
}

// Name returns the name the handle was resolved from.
func (w *StubWeakSource) Name() string {
	if w.Source == nil {
		return ""
	}
	return w.Source.SourceName
}

var _ WeakSource = (*StubWeakSource)(nil)

// StubHost is an in-memory Host with name resolution, transitive cycle
// detection, and liveness reference counting.
type StubHost struct {
	Sources map[string]*StubSource

	// ShowingRefs and ActiveRefs count outstanding tokens per source
	// name.
	ShowingRefs map[string]int
	ActiveRefs  map[string]int
}

// NewStubHost creates an empty stub host.
func NewStubHost() *StubHost {
	return &StubHost{
		Sources:     make(map[string]*StubSource),
		ShowingRefs: make(map[string]int),
		ActiveRefs:  make(map[string]int),
	}
}

// Add registers a source under its name.
func (h *StubHost) Add(src *StubSource) {
	h.Sources[src.SourceName] = src
}

// Resolve returns a weak handle to the named source.
func (h *StubHost) Resolve(name string) (WeakSource, error) {
	src, ok := h.Sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotFound, name)
	}
	return &StubWeakSource{Source: src}, nil
}

// contains reports whether the subtree rooted at name embeds target.
func (h *StubHost) contains(name, target string, seen map[string]bool) bool {
	if name == target {
		return true
	}
	if seen[name] {
		return false
	}
	seen[name] = true
	src, ok := h.Sources[name]
	if !ok {
		return false
	}
	for _, child := range src.Embeds {
		if h.contains(child, target, seen) {
			return true
		}
	}
	return false
}

// RegisterChild links child under parent, failing when child
// transitively contains parent.
func (h *StubHost) RegisterChild(parent, child Source) (ChildRegistration, error) {
	if parent == nil || child == nil {
		return nil, errors.New("host: nil source in child registration")
	}
	if h.contains(child.Name(), parent.Name(), make(map[string]bool)) {
		return nil, fmt.Errorf("%w: %q embeds %q", ErrWouldCycle, child.Name(), parent.Name())
	}
	return &stubRegistration{}, nil
}

// AddShowingRef marks src as shown until the token is released.
func (h *StubHost) AddShowingRef(src Source) (Token, error) {
	h.ShowingRefs[src.Name()]++
	return &stubToken{release: func() { h.ShowingRefs[src.Name()]-- }}, nil
}

// AddActiveRef marks src as active until the token is released.
func (h *StubHost) AddActiveRef(src Source) (Token, error) {
	h.ActiveRefs[src.Name()]++
	return &stubToken{release: func() { h.ActiveRefs[src.Name()]-- }}, nil
}

var _ Host = (*StubHost)(nil)

type stubRegistration struct{ closed bool }

func (r *stubRegistration) Close() { r.closed = true }

type stubToken struct {
	release  func()
	released bool
}

func (t *stubToken) Release() {
	if t.released {
		return
	}
	t.released = true
	t.release()
}

// StubChain is an in-memory Chain. ProcessEnd renders the chain target
// with the supplied effect semantics replaced by the target's own
// VideoRender, which is how the stub compositor draws upstream content.
type StubChain struct {
	SelfSrc   *StubSource
	ParentSrc *StubSource
	TargetSrc *StubSource

	// BeginOK controls whether ProcessBegin accepts this frame.
	BeginOK bool

	BeginCount int
	EndCount   int
	SkipCount  int
}

// Self returns the filter's own source handle.
func (c *StubChain) Self() Source { return sourceOrNil(c.SelfSrc) }

// Parent returns the source the filter is attached to.
func (c *StubChain) Parent() Source { return sourceOrNil(c.ParentSrc) }

// Target returns the upstream rendering target of the filter chain.
func (c *StubChain) Target() Source { return sourceOrNil(c.TargetSrc) }

func sourceOrNil(s *StubSource) Source {
	if s == nil {
		return nil
	}
	return s
}

// ProcessBegin starts upstream chain rendering.
func (c *StubChain) ProcessBegin(format gputypes.TextureFormat, space graphics.ColorSpace) bool {
	if !c.BeginOK {
		return false
	}
	c.BeginCount++
	return true
}

// ProcessEnd draws the upstream chain into the current draw op.
func (c *StubChain) ProcessEnd(ctx *graphics.Context, effect graphics.Effect, width, height int) error {
	c.EndCount++
	if c.TargetSrc == nil {
		return errors.New("host: no chain target")
	}
	return c.TargetSrc.VideoRender(ctx)
}

// SkipVideoFilter records a pass-through frame.
func (c *StubChain) SkipVideoFilter() { c.SkipCount++ }

var _ Chain = (*StubChain)(nil)
