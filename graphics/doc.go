// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package graphics defines the rendering capabilities the channel mask
// filter consumes: render targets, textures, shader effects, and the
// ambient render state (blend stack, sRGB flags, projection).
//
// The package ships a complete software implementation used for testing
// and CPU-only hosts. A WebGPU implementation lives in backend/wgpu.
package graphics
