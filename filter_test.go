// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package channelmask

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/channelmask/graphics"
	"github.com/gogpu/channelmask/host"
)

// rig wires a filter to a software device and stub host for pixel-level
// frame tests.
type rig struct {
	dev   *graphics.SoftwareDevice
	g     *graphics.Context
	h     *host.StubHost
	chain *host.StubChain
	s     *host.MapSettings
	f     *Filter
	out   graphics.RenderTarget
}

func newRig(t *testing.T) *rig {
	t.Helper()

	dev := graphics.NewSoftwareDevice()
	g := graphics.NewContext()
	h := host.NewStubHost()

	self := &host.StubSource{SourceName: "mask", IsShowing: true, IsActive: true}
	parent := &host.StubSource{
		SourceName: "camera",
		W:          4, H: 4,
		Flags:     host.FlagVideo,
		Space:     graphics.ColorSpaceSRGB,
		IsShowing: true, IsActive: true,
		Fill: [4]float32{0.25, 0.5, 0.75, 1},
	}
	h.Add(self)
	h.Add(parent)

	chain := &host.StubChain{SelfSrc: self, ParentSrc: parent, TargetSrc: parent, BeginOK: true}
	s := host.NewMapSettings()

	f, err := New(Options{Device: dev, Graphics: g, Host: h, Chain: chain, Name: "test"}, s)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(f.Close)

	out, err := dev.NewRenderTarget(gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("NewRenderTarget: %v", err)
	}
	return &rig{dev: dev, g: g, h: h, chain: chain, s: s, f: f, out: out}
}

// renderFrame runs one tick and render into the rig's output target and
// returns the presented pixels.
func (r *rig) renderFrame(t *testing.T) *graphics.SoftwareTexture {
	t.Helper()

	r.f.VideoTick()

	w, h := r.chain.TargetSrc.W, r.chain.TargetSrc.H
	op, err := r.out.Render(r.g, w, h, graphics.ColorSpaceSRGB)
	if err != nil {
		t.Fatalf("output Render: %v", err)
	}
	op.Clear(0, 0, 0, 0)
	r.f.VideoRender(nil)
	op.Close()

	tex, err := r.out.Texture()
	if err != nil {
		t.Fatalf("output Texture: %v", err)
	}
	return tex.(*graphics.SoftwareTexture)
}

func stageTexture(t *testing.T, st *stagedTexture) *graphics.SoftwareTexture {
	t.Helper()
	tex, ok := st.tex.(*graphics.SoftwareTexture)
	if !ok {
		t.Fatalf("stage texture is %T, want *graphics.SoftwareTexture", st.tex)
	}
	return tex
}

func TestNewValidation(t *testing.T) {
	dev := graphics.NewSoftwareDevice()
	g := graphics.NewContext()
	h := host.NewStubHost()
	chain := &host.StubChain{}

	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"no device", Options{Graphics: g, Host: h, Chain: chain}, ErrNoDevice},
		{"no graphics", Options{Device: dev, Host: h, Chain: chain}, ErrNoGraphics},
		{"no host", Options{Device: dev, Graphics: g, Chain: chain}, ErrNoHost},
		{"no chain", Options{Device: dev, Graphics: g, Host: h}, ErrNoChain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts, host.NewMapSettings())
			if !errors.Is(err, tt.want) {
				t.Errorf("New error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFilterPassThroughDefaults(t *testing.T) {
	r := newRig(t)
	got := r.renderFrame(t)

	base := stageTexture(t, &r.f.base)
	for y := 0; y < got.H; y++ {
		for x := 0; x < got.W; x++ {
			if got.At(x, y) != base.At(x, y) {
				t.Fatalf("pixel (%d,%d) = %v, want base %v", x, y, got.At(x, y), base.At(x, y))
			}
		}
	}
	if r.f.Stats().PresentedFrames != 1 {
		t.Errorf("presented frames = %d, want 1", r.f.Stats().PresentedFrames)
	}
}

func TestFilterChannelSwap(t *testing.T) {
	r := newRig(t)
	r.h.Add(&host.StubSource{
		SourceName: "overlay",
		W:          4, H: 4,
		Flags:     host.FlagVideo,
		Space:     graphics.ColorSpaceSRGB,
		IsShowing: true, IsActive: true,
		Fill: [4]float32{0.8, 0.6, 0.4, 1},
	})

	// Red output channel reads the input's green channel; everything
	// else passes the base through.
	r.s.SetString(KeyInput, "overlay")
	r.s.SetFloat(KeyChannelValue(ChannelRed), 0)
	r.s.SetFloat(KeyChannelInput(ChannelRed, ChannelGreen), 1)
	r.f.Update(r.s)

	got := r.renderFrame(t)
	base := stageTexture(t, &r.f.base)
	input := stageTexture(t, &r.f.in)

	for y := 0; y < got.H; y++ {
		for x := 0; x < got.W; x++ {
			px := got.At(x, y)
			bp := base.At(x, y)
			ip := input.At(x, y)
			want := [4]float32{ip[1], bp[1], bp[2], bp[3]}
			if px != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, px, want)
			}
		}
	}
	if r.f.Stats().InputCaptures != 1 {
		t.Errorf("input captures = %d, want 1", r.f.Stats().InputCaptures)
	}
}

func TestFilterDebugTextureSelector(t *testing.T) {
	r := newRig(t)
	r.h.Add(&host.StubSource{
		SourceName: "overlay",
		W:          4, H: 4,
		Flags:     host.FlagVideo,
		Space:     graphics.ColorSpaceSRGB,
		IsShowing: true, IsActive: true,
		Fill: [4]float32{0.8, 0.6, 0.4, 1},
	})
	r.s.SetString(KeyInput, "overlay")
	r.s.SetFloat(KeyChannelValue(ChannelRed), 0)
	r.s.SetFloat(KeyChannelInput(ChannelRed, ChannelGreen), 1)

	tests := []struct {
		name     string
		selector int64
		stage    func() *stagedTexture
	}{
		{"base", DebugTextureBase, func() *stagedTexture { return &r.f.base }},
		{"input", DebugTextureInput, func() *stagedTexture { return &r.f.in }},
		{"off", DebugTextureOff, func() *stagedTexture { return &r.f.final }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r.s.SetInt(KeyDebugTexture, tt.selector)
			r.f.Update(r.s)

			got := r.renderFrame(t)
			want := stageTexture(t, tt.stage())
			for y := 0; y < got.H; y++ {
				for x := 0; x < got.W; x++ {
					if got.At(x, y) != want.At(x, y) {
						t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got.At(x, y), want.At(x, y))
					}
				}
			}
		})
	}
}

func TestFilterCapturesOncePerFrame(t *testing.T) {
	r := newRig(t)

	r.f.VideoTick()
	w, h := r.chain.TargetSrc.W, r.chain.TargetSrc.H
	for i := 0; i < 3; i++ {
		op, err := r.out.Render(r.g, w, h, graphics.ColorSpaceSRGB)
		if err != nil {
			t.Fatalf("output Render: %v", err)
		}
		r.f.VideoRender(nil)
		op.Close()
	}

	stats := r.f.Stats()
	if stats.BaseCaptures != 1 {
		t.Errorf("base captures = %d, want 1", stats.BaseCaptures)
	}
	if stats.Composites != 1 {
		t.Errorf("composites = %d, want 1", stats.Composites)
	}
	if stats.PresentedFrames != 3 {
		t.Errorf("presented frames = %d, want 3", stats.PresentedFrames)
	}
	if r.chain.BeginCount != 1 {
		t.Errorf("chain begin count = %d, want 1", r.chain.BeginCount)
	}

	r.renderFrame(t)
	if got := r.f.Stats().BaseCaptures; got != 2 {
		t.Errorf("base captures after new tick = %d, want 2", got)
	}
}

func TestFilterZeroAreaSkip(t *testing.T) {
	r := newRig(t)
	r.chain.TargetSrc.W = 0

	r.f.VideoTick()
	r.f.VideoRender(nil)

	if r.chain.SkipCount != 1 {
		t.Errorf("skip count = %d, want 1", r.chain.SkipCount)
	}
	if r.chain.BeginCount != 0 {
		t.Errorf("begin count = %d, want 0", r.chain.BeginCount)
	}
	if got := r.f.Stats().SkippedFrames; got != 1 {
		t.Errorf("skipped frames = %d, want 1", got)
	}
}

func TestFilterSRGBPassThrough(t *testing.T) {
	r := newRig(t)
	r.chain.TargetSrc.Flags = host.FlagVideo | host.FlagSRGB
	r.chain.TargetSrc.Fill = [4]float32{0.5, 0.5, 0.5, 1}

	got := r.renderFrame(t)
	base := stageTexture(t, &r.f.base)
	final := stageTexture(t, &r.f.final)

	// Identity transform on an sRGB-sampled base: the composite decodes,
	// mixes, and re-encodes, so both the final texture and the presented
	// frame hold the base values unchanged.
	for y := 0; y < got.H; y++ {
		for x := 0; x < got.W; x++ {
			if final.At(x, y) != base.At(x, y) {
				t.Fatalf("final (%d,%d) = %v, want base %v", x, y, final.At(x, y), base.At(x, y))
			}
			if got.At(x, y) != base.At(x, y) {
				t.Fatalf("presented (%d,%d) = %v, want base %v", x, y, got.At(x, y), base.At(x, y))
			}
		}
	}
}

func TestFilterInputSRGBFollowsBaseRange(t *testing.T) {
	tests := []struct {
		name       string
		baseSpace  graphics.ColorSpace
		inputSpace graphics.ColorSpace
		wantSRGB   bool
	}{
		{"hdr input, ldr base", graphics.ColorSpaceSRGB, graphics.ColorSpaceRec709SCRGB, true},
		{"ldr input, hdr base", graphics.ColorSpaceRec709SCRGB, graphics.ColorSpaceSRGB, false},
		{"ldr input, ldr base", graphics.ColorSpaceSRGB, graphics.ColorSpaceSRGB, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			r.chain.TargetSrc.Space = tt.baseSpace
			r.chain.TargetSrc.Flags = host.FlagVideo | host.FlagSRGB
			r.h.Add(&host.StubSource{
				SourceName: "overlay",
				W:          4, H: 4,
				Flags:     host.FlagVideo | host.FlagSRGB,
				Space:     tt.inputSpace,
				IsShowing: true, IsActive: true,
			})
			r.s.SetString(KeyInput, "overlay")
			r.f.Update(r.s)

			r.f.VideoTick()

			// The input's sRGB sampling is gated on the base stage's
			// dynamic range, not the input's own space.
			if r.f.in.srgb != tt.wantSRGB {
				t.Errorf("input srgb = %v, want %v", r.f.in.srgb, tt.wantSRGB)
			}
		})
	}
}

func TestFilterZeroAreaInputSkip(t *testing.T) {
	r := newRig(t)
	r.h.Add(&host.StubSource{
		SourceName: "overlay",
		IsShowing:  true, IsActive: true,
	})
	r.s.SetString(KeyInput, "overlay")
	r.f.Update(r.s)

	r.f.VideoTick()
	r.f.VideoRender(nil)

	// The zero-area input is detected before the chain is consumed, so
	// the frame passes through instead of being dropped mid-render.
	if r.chain.SkipCount != 1 {
		t.Errorf("skip count = %d, want 1", r.chain.SkipCount)
	}
	if r.chain.BeginCount != 0 {
		t.Errorf("begin count = %d, want 0", r.chain.BeginCount)
	}
	if got := r.f.Stats().SkippedFrames; got != 1 {
		t.Errorf("skipped frames = %d, want 1", got)
	}
}

func TestFilterInputSwitchMovesTokens(t *testing.T) {
	r := newRig(t)
	r.h.Add(&host.StubSource{SourceName: "first", W: 4, H: 4, IsShowing: true, IsActive: true})
	r.h.Add(&host.StubSource{SourceName: "second", W: 4, H: 4, IsShowing: true, IsActive: true})

	r.s.SetString(KeyInput, "first")
	r.f.Update(r.s)
	r.s.SetString(KeyInput, "second")
	r.f.Update(r.s)

	if got := r.f.InputName(); got != "second" {
		t.Fatalf("InputName = %q, want second", got)
	}
	if r.h.ShowingRefs["first"] != 0 || r.h.ActiveRefs["first"] != 0 {
		t.Errorf("previous selection kept tokens: showing %d, active %d",
			r.h.ShowingRefs["first"], r.h.ActiveRefs["first"])
	}
	if r.h.ShowingRefs["second"] != 1 || r.h.ActiveRefs["second"] != 1 {
		t.Errorf("new selection holds showing %d, active %d, want 1 each",
			r.h.ShowingRefs["second"], r.h.ActiveRefs["second"])
	}
}

func TestFilterChainBeginFailure(t *testing.T) {
	r := newRig(t)
	r.chain.BeginOK = false

	r.f.VideoTick()
	r.f.VideoRender(nil)
	r.f.VideoRender(nil)

	if r.chain.EndCount != 0 {
		t.Errorf("end count = %d, want 0", r.chain.EndCount)
	}
	if r.f.base.state != TextureFailed {
		t.Errorf("base state = %v, want %v", r.f.base.state, TextureFailed)
	}
	if got := r.f.Stats().PresentedFrames; got != 0 {
		t.Errorf("presented frames = %d, want 0", got)
	}

	// The failed stage retries on the next frame once the chain
	// recovers.
	r.chain.BeginOK = true
	r.renderFrame(t)
	if got := r.f.Stats().PresentedFrames; got != 1 {
		t.Errorf("presented frames after recovery = %d, want 1", got)
	}
}

func TestFilterProcessEndBalanced(t *testing.T) {
	r := newRig(t)
	r.renderFrame(t)
	r.renderFrame(t)

	if r.chain.BeginCount != r.chain.EndCount {
		t.Errorf("begin count %d != end count %d", r.chain.BeginCount, r.chain.EndCount)
	}
}

func TestFilterInputSelectionLifecycle(t *testing.T) {
	r := newRig(t)
	r.h.Add(&host.StubSource{
		SourceName: "overlay",
		W:          4, H: 4,
		IsShowing: true, IsActive: true,
	})

	r.s.SetString(KeyInput, "overlay")
	r.f.Update(r.s)
	if got := r.f.InputName(); got != "overlay" {
		t.Fatalf("InputName = %q, want overlay", got)
	}
	if r.h.ShowingRefs["overlay"] != 1 || r.h.ActiveRefs["overlay"] != 1 {
		t.Error("selection did not acquire liveness tokens")
	}

	var enumerated []string
	r.f.EnumerateSources(func(src host.Source) { enumerated = append(enumerated, src.Name()) })
	if len(enumerated) != 1 || enumerated[0] != "overlay" {
		t.Errorf("EnumerateSources = %v, want [overlay]", enumerated)
	}

	r.s.SetString(KeyInput, "")
	r.f.Update(r.s)
	if r.f.InputName() != "" {
		t.Error("clearing the input kept a selection")
	}
	if r.h.ShowingRefs["overlay"] != 0 || r.h.ActiveRefs["overlay"] != 0 {
		t.Error("cleared selection leaked liveness tokens")
	}
}

func TestFilterAcquireFailureFallsBackToAlias(t *testing.T) {
	r := newRig(t)

	r.s.SetString(KeyInput, "missing")
	r.f.Update(r.s)
	if r.f.input.Selected() {
		t.Fatal("failed acquire left a selection")
	}

	// With no selection the input stage aliases the base and defaults
	// pass the base through.
	got := r.renderFrame(t)
	base := stageTexture(t, &r.f.base)
	if got.At(1, 1) != base.At(1, 1) {
		t.Errorf("pixel = %v, want base %v", got.At(1, 1), base.At(1, 1))
	}
	if r.f.in.tex != r.f.base.tex {
		t.Error("input stage did not alias the base texture")
	}
	if r.f.Stats().InputCaptures != 0 {
		t.Errorf("input captures = %d, want 0", r.f.Stats().InputCaptures)
	}
}

func TestFilterSaveRoundTrip(t *testing.T) {
	r := newRig(t)
	r.h.Add(&host.StubSource{SourceName: "overlay", W: 4, H: 4, IsShowing: true, IsActive: true})

	r.s.SetString(KeyInput, "overlay")
	r.s.SetInt(KeyDebugTexture, DebugTextureInput)
	r.s.SetFloat(KeyChannelValue(ChannelGreen), 0.5)
	r.s.SetFloat(KeyChannelInput(ChannelBlue, ChannelRed), 0.25)
	r.f.Update(r.s)

	out := host.NewMapSettings()
	r.f.Save(out)

	if got := out.String(KeyInput); got != "overlay" {
		t.Errorf("saved input = %q, want overlay", got)
	}
	if got := out.Int(KeyDebugTexture); got != DebugTextureInput {
		t.Errorf("saved debug texture = %d, want %d", got, DebugTextureInput)
	}
	if got := out.Float(KeyChannelValue(ChannelGreen)); got != 0.5 {
		t.Errorf("saved green bias = %v, want 0.5", got)
	}
	if got := out.Float(KeyChannelInput(ChannelBlue, ChannelRed)); got != 0.25 {
		t.Errorf("saved blue<-red weight = %v, want 0.25", got)
	}
}

func TestFilterRestoresRenderState(t *testing.T) {
	r := newRig(t)

	r.g.SetLinearSRGB(true)
	depth := r.g.BlendStackDepth()
	r.renderFrame(t)

	if got := r.g.BlendStackDepth(); got != depth {
		t.Errorf("blend stack depth = %d, want %d", got, depth)
	}
	if !r.g.LinearSRGB() {
		t.Error("linear sRGB flag was not restored")
	}
	if r.g.FramebufferSRGBEnabled() {
		t.Error("framebuffer sRGB flag was not restored")
	}
}

func TestFilterColorSpaceNegotiation(t *testing.T) {
	tests := []struct {
		name       string
		space      graphics.ColorSpace
		flags      host.OutputFlags
		wantFormat gputypes.TextureFormat
		wantSRGB   bool
	}{
		{"srgb with flag", graphics.ColorSpaceSRGB, host.FlagVideo | host.FlagSRGB, gputypes.TextureFormatRGBA8Unorm, true},
		{"srgb without flag", graphics.ColorSpaceSRGB, host.FlagVideo, gputypes.TextureFormatRGBA8Unorm, false},
		{"linear 16f", graphics.ColorSpaceSRGB16F, host.FlagVideo | host.FlagSRGB, gputypes.TextureFormatRGBA16Float, true},
		{"scrgb is never srgb-sampled", graphics.ColorSpaceRec709SCRGB, host.FlagVideo | host.FlagSRGB, gputypes.TextureFormatRGBA16Float, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			r.chain.TargetSrc.Space = tt.space
			r.chain.TargetSrc.Flags = tt.flags

			r.f.VideoTick()

			if got := r.f.VideoColorSpace(); got != tt.space {
				t.Errorf("VideoColorSpace = %v, want %v", got, tt.space)
			}
			if r.f.base.format != tt.wantFormat {
				t.Errorf("base format = %v, want %v", r.f.base.format, tt.wantFormat)
			}
			if r.f.base.srgb != tt.wantSRGB {
				t.Errorf("base srgb = %v, want %v", r.f.base.srgb, tt.wantSRGB)
			}
			if r.f.final.srgb != r.f.base.srgb || r.f.final.space != r.f.base.space {
				t.Error("final stage does not track the base stage")
			}
		})
	}
}

func TestFilterSharedMixEffect(t *testing.T) {
	dev := graphics.NewSoftwareDevice()
	g := graphics.NewContext()
	h := host.NewStubHost()
	self := &host.StubSource{SourceName: "mask"}
	parent := &host.StubSource{SourceName: "camera", W: 4, H: 4}
	h.Add(self)
	h.Add(parent)
	chain := &host.StubChain{SelfSrc: self, ParentSrc: parent, TargetSrc: parent, BeginOK: true}

	f1, err := New(Options{Device: dev, Graphics: g, Host: h, Chain: chain}, host.NewMapSettings())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f2, err := New(Options{Device: dev, Graphics: g, Host: h, Chain: chain}, host.NewMapSettings())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if f1.mixEffect != f2.mixEffect {
		t.Error("filters on one device compiled separate mix effects")
	}

	f1.Close()
	mixEffectMu.Lock()
	_, alive := mixEffects[dev]
	mixEffectMu.Unlock()
	if !alive {
		t.Error("shared effect destroyed while a holder remains")
	}

	f2.Close()
	mixEffectMu.Lock()
	_, alive = mixEffects[dev]
	mixEffectMu.Unlock()
	if alive {
		t.Error("shared effect not destroyed after last Close")
	}
}

func TestFilterCloseIdempotent(t *testing.T) {
	r := newRig(t)
	r.renderFrame(t)
	r.f.Close()
	r.f.Close()

	if r.f.base.target != nil || r.f.in.target != nil || r.f.final.target != nil {
		t.Error("Close left render targets alive")
	}
}

func TestTextureStateString(t *testing.T) {
	tests := []struct {
		s    TextureState
		want string
	}{
		{TextureStale, "Stale"},
		{TextureCapturing, "Capturing"},
		{TextureReady, "Ready"},
		{TextureFailed, "Failed"},
		{TextureState(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("TextureState(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
