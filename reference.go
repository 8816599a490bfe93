// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package channelmask

import "github.com/gogpu/channelmask/host"

// InputReference manages the filter's weak handle to the selected input
// source together with the cycle-guarded child registration and the
// visibility/activity liveness tokens. Tokens exist only while the
// filter itself and its parent are showing respectively active, so the
// filter never keeps a host source alive past its own visibility.
type InputReference struct {
	host  host.Host
	chain host.Chain

	source host.WeakSource
	child  host.ChildRegistration

	visibility host.Token
	activity   host.Token
}

// newInputReference creates a reference manager with nothing selected.
func newInputReference(h host.Host, chain host.Chain) *InputReference {
	return &InputReference{host: h, chain: chain}
}

// Acquire resolves name and selects it as the input source. Any
// previous selection is released first, dropping its tokens and child
// registration. It returns false, leaving the no-input state, when the
// name does not resolve, the source is gone, or registering the child
// link would create a render-graph cycle. On success the visibility and
// activity tokens are re-derived from the filter's current show/active
// state.
func (r *InputReference) Acquire(name string) bool {
	r.Release()

	weak, err := r.host.Resolve(name)
	if err != nil {
		Logger().Warn("failed to resolve input source", "name", name, "error", err)
		return false
	}
	src, ok := weak.Lock()
	if !ok {
		Logger().Warn("input source is gone", "name", name)
		return false
	}

	r.source = weak

	child, err := r.host.RegisterChild(r.chain.Self(), src)
	if err != nil {
		Logger().Warn("rejected input source", "name", name, "error", err)
		r.Release()
		return false
	}
	r.child = child

	r.Activate()
	r.Show()
	return true
}

// Release drops the selection. It is unconditional and idempotent:
// activity and visibility tokens are dropped first (deactivate before
// hide, mirroring acquisition order reversed), then the child
// registration, then the weak handle.
func (r *InputReference) Release() {
	r.Deactivate()
	r.Hide()
	if r.child != nil {
		r.child.Close()
		r.child = nil
	}
	r.source = nil
}

// Show acquires a visibility token for the input if an input is
// selected and both the filter and its parent are currently showing.
// Otherwise it is a no-op. Holding at most one token, repeated calls
// are safe.
func (r *InputReference) Show() {
	if r.source == nil || r.visibility != nil {
		return
	}
	self, parent := r.chain.Self(), r.chain.Parent()
	if self == nil || !self.Showing() || parent == nil || !parent.Showing() {
		return
	}
	src, ok := r.source.Lock()
	if !ok {
		return
	}
	tok, err := r.host.AddShowingRef(src)
	if err != nil {
		Logger().Warn("failed to add showing reference", "name", r.source.Name(), "error", err)
		return
	}
	r.visibility = tok
}

// Hide releases the visibility token if one is held.
func (r *InputReference) Hide() {
	if r.visibility != nil {
		r.visibility.Release()
		r.visibility = nil
	}
}

// Activate acquires an activity token for the input if an input is
// selected and both the filter and its parent are currently active.
// Otherwise it is a no-op.
func (r *InputReference) Activate() {
	if r.source == nil || r.activity != nil {
		return
	}
	self, parent := r.chain.Self(), r.chain.Parent()
	if self == nil || !self.Active() || parent == nil || !parent.Active() {
		return
	}
	src, ok := r.source.Lock()
	if !ok {
		return
	}
	tok, err := r.host.AddActiveRef(src)
	if err != nil {
		Logger().Warn("failed to add active reference", "name", r.source.Name(), "error", err)
		return
	}
	r.activity = tok
}

// Deactivate releases the activity token if one is held.
func (r *InputReference) Deactivate() {
	if r.activity != nil {
		r.activity.Release()
		r.activity = nil
	}
}

// Selected reports whether an input source is selected.
func (r *InputReference) Selected() bool { return r.source != nil }

// Name returns the selected input source's name, or "" when none is
// selected.
func (r *InputReference) Name() string {
	if r.source == nil {
		return ""
	}
	return r.source.Name()
}

// Lock upgrades the weak handle for the duration of a call. The second
// return value is false when no input is selected or the source is
// gone.
func (r *InputReference) Lock() (host.Source, bool) {
	if r.source == nil {
		return nil, false
	}
	return r.source.Lock()
}
