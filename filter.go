// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package channelmask

import (
	"errors"
	"log/slog"

	"github.com/gogpu/channelmask/graphics"
	"github.com/gogpu/channelmask/host"
)

// Construction errors. These are fatal: a Filter is never partially
// constructed.
var (
	ErrNoDevice   = errors.New("channelmask: options require a graphics device")
	ErrNoGraphics = errors.New("channelmask: options require a graphics context")
	ErrNoHost     = errors.New("channelmask: options require a host")
	ErrNoChain    = errors.New("channelmask: options require a filter chain")
)

// Options configures a Filter.
type Options struct {
	// Device creates render targets and compiles effects. One device is
	// typically shared by every filter on the same GPU context.
	Device graphics.Device

	// Graphics is the host's ambient render state.
	Graphics *graphics.Context

	// Host provides source resolution, child registration, and liveness
	// references.
	Host host.Host

	// Chain describes the filter's position in the render chain.
	Chain host.Chain

	// Name labels this instance in log records. Optional.
	Name string
}

// Stats counts per-stage work since the filter was created. Each
// counter increments once per frame at most, so BaseCaptures equal to
// the frame count demonstrates the capture-once discipline.
type Stats struct {
	BaseCaptures    uint64
	InputCaptures   uint64
	Composites      uint64
	PresentedFrames uint64
	SkippedFrames   uint64
}

// Filter recombines the color channels of its filtered source and a
// selectable input source through a 4x4 mixing matrix with per-channel
// bias and multiplier.
//
// A Filter is driven frame-synchronously by the host render thread:
// VideoTick once per output frame, then VideoRender. Settings updates
// and lifecycle notifications are serialized by the host against
// rendering. The only cross-instance shared state is the compiled
// mixing effect, which is guarded internally.
type Filter struct {
	dev   graphics.Device
	g     *graphics.Context
	host  host.Host
	chain host.Chain
	name  string

	transform *Transform
	input     *InputReference
	mixEffect graphics.Effect

	base  stagedTexture
	in    stagedTexture
	final stagedTexture

	debugTexture int64

	stats  Stats
	closed bool
}

// New creates a filter and loads its state from settings. The shared
// mixing effect is compiled on first use per device; a compile failure
// is fatal and no filter is returned.
func New(opts Options, s host.Settings) (*Filter, error) {
	switch {
	case opts.Device == nil:
		return nil, ErrNoDevice
	case opts.Graphics == nil:
		return nil, ErrNoGraphics
	case opts.Host == nil:
		return nil, ErrNoHost
	case opts.Chain == nil:
		return nil, ErrNoChain
	}

	fx, err := acquireMixEffect(opts.Device)
	if err != nil {
		return nil, err
	}

	f := &Filter{
		dev:          opts.Device,
		g:            opts.Graphics,
		host:         opts.Host,
		chain:        opts.Chain,
		name:         opts.Name,
		transform:    NewTransform(),
		mixEffect:    fx,
		debugTexture: DebugTextureOff,
	}
	f.input = newInputReference(opts.Host, opts.Chain)

	RegisterDefaults(s)
	f.Update(s)
	return f, nil
}

// Close releases the input source reference, the staged textures, and
// this filter's share of the mixing effect. Close is idempotent.
func (f *Filter) Close() {
	if f.closed {
		return
	}
	f.closed = true

	f.input.Release()
	f.base.release()
	f.in.release()
	f.final.release()

	f.mixEffect = nil
	releaseMixEffect(f.dev)
}

// Update applies settings: the 20 transform scalars, the debug texture
// selector, and the input source selection. Selecting a source that
// cannot be acquired rolls back to no input selected.
func (f *Filter) Update(s host.Settings) {
	f.transform.Update(s)
	f.debugTexture = s.Int(KeyDebugTexture)

	name := s.String(KeyInput)
	switch {
	case name == "":
		f.input.Release()
	case name != f.input.Name() || !f.input.Selected():
		f.input.Acquire(name)
	}
}

// Load restores the filter from persisted settings. Loading and
// updating apply identical state, so Load simply delegates.
func (f *Filter) Load(s host.Settings) { f.Update(s) }

// Save writes the filter's current state to settings in the persisted
// layout. Save followed by Update restores identical state.
func (f *Filter) Save(s host.Settings) {
	f.transform.Save(s)
	s.SetInt(KeyDebugTexture, f.debugTexture)
	s.SetString(KeyInput, f.input.Name())
}

// Migrate upgrades persisted settings from older layouts. The layout
// has never changed, so it is currently a no-op.
func Migrate(s host.Settings) {}

// Show notifies the filter that it became visible.
func (f *Filter) Show() { f.input.Show() }

// Hide notifies the filter that it is no longer visible.
func (f *Filter) Hide() { f.input.Hide() }

// Activate notifies the filter that its parent entered the output.
func (f *Filter) Activate() { f.input.Activate() }

// Deactivate notifies the filter that its parent left the output.
func (f *Filter) Deactivate() { f.input.Deactivate() }

// EnumerateSources calls cb for every child source of the filter, which
// is at most the selected input source.
func (f *Filter) EnumerateSources(cb func(host.Source)) {
	if src, ok := f.input.Lock(); ok {
		cb(src)
	}
}

// InputName returns the selected input source's name, or "" when the
// filter masks by itself.
func (f *Filter) InputName() string { return f.input.Name() }

// DebugTexture returns the current debug texture selector.
func (f *Filter) DebugTexture() int64 { return f.debugTexture }

// Transform returns the filter's channel transform.
func (f *Filter) Transform() *Transform { return f.transform }

// Stats returns the per-stage work counters.
func (f *Filter) Stats() Stats { return f.stats }

// VideoTick begins a new output frame: all three staged textures become
// stale and the frame's color spaces, formats, and sRGB flags are
// renegotiated. Every capture stage afterwards runs at most once until
// the next tick.
func (f *Filter) VideoTick() {
	f.base.reset()
	f.in.reset()
	f.final.reset()
	f.negotiate()
}

// VideoColorSpace reports the color space the filter renders in, which
// is the space negotiated with the upstream chain for the base capture.
func (f *Filter) VideoColorSpace() graphics.ColorSpace { return f.base.space }

// preferredSpaces is the negotiation preference for every stage.
var preferredSpaces = []graphics.ColorSpace{graphics.ColorSpaceSRGB}

// negotiate derives each stage's color space, texture format, and sRGB
// flag for the coming frame.
//
// The input stage's sRGB flag deliberately tests the base stage's
// space: an sRGB-capable input feeding an HDR base is sampled without
// linearization, matching the established rendering of existing scenes.
func (f *Filter) negotiate() {
	target := f.chain.Target()

	f.base.space = graphics.ColorSpaceSRGB
	if target != nil {
		f.base.space = target.ColorSpace(preferredSpaces)
	}
	f.base.format = graphics.FormatFor(f.base.space)
	f.base.srgb = target != nil &&
		target.OutputFlags()&host.FlagSRGB != 0 &&
		f.base.space.LowDynamicRange()

	f.in.space = f.base.space
	f.in.format = f.base.format
	f.in.srgb = f.base.srgb
	if src, ok := f.input.Lock(); ok {
		f.in.space = src.ColorSpace(preferredSpaces)
		f.in.format = graphics.FormatFor(f.in.space)
		f.in.srgb = src.OutputFlags()&host.FlagSRGB != 0 &&
			f.base.space.LowDynamicRange()
	}

	// The composite inherits the base stage: the mixed result replaces
	// the base source in the chain.
	f.final.space = f.base.space
	f.final.format = f.base.format
	f.final.srgb = f.base.srgb
}

// logger returns the package logger labeled with this instance's name.
func (f *Filter) logger() *slog.Logger {
	if f.name == "" {
		return Logger()
	}
	return Logger().With("filter", f.name)
}
