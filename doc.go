// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package channelmask implements a per-frame compositing filter that
// recombines the four color channels of two sources, a filtered base
// source and a user-selectable input source, through a general 4x4
// linear transform with per-channel bias and multiplier.
//
// Each output channel is an arbitrary weighted sum of the input source's
// channels added to the biased base channel:
//
//	out[c] = (base[c]*bias[c] + dot(weights[c], input)) * multiplier[c]
//
// This enables channel swapping, luminance-driven alpha masks, and
// cross-source channel blending. With no input selected the filter
// masks by itself: the input texture aliases the base texture.
//
// The filter renders in three staged captures per output frame (base,
// input, final composite), each performed at most once per frame no
// matter how often the host asks the filter to render. Hosts provide
// sources, settings, and GPU primitives through the host and graphics
// packages; a software device ships with graphics, a WebGPU device with
// backend/wgpu.
package channelmask
