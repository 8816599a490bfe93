// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package host defines the compositor-side capabilities the channel mask
// filter consumes: sources and their render-chain position, weak source
// resolution, cycle-guarded child registration, visibility/activity
// liveness tokens, and the typed settings store.
//
// The filter never owns host resources; it holds weak handles and scoped
// tokens whose lifetime is driven by the filter's own show/hide and
// activate/deactivate transitions.
package host
