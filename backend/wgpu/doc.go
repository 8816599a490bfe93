// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpu provides a WebGPU-accelerated rendering device for the
// channel mask filter. Render targets are CPU-staged; the channel
// mixing pass is dispatched as a compute shader through wgpu/hal with
// the result read back into the target. Hosts without a usable GPU
// fall back to the CPU evaluation transparently.
package wgpu
