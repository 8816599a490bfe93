// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import "github.com/gogpu/gputypes"

// ColorSpace identifies the color space a source renders in.
type ColorSpace uint8

const (
	// ColorSpaceSRGB is gamma-encoded 8-bit sRGB.
	ColorSpaceSRGB ColorSpace = iota

	// ColorSpaceSRGB16F is linear sRGB with 16-bit float channels.
	ColorSpaceSRGB16F

	// ColorSpaceRec709Extended is extended-range Rec. 709.
	ColorSpaceRec709Extended

	// ColorSpaceRec709SCRGB is scRGB with Rec. 709 primaries.
	ColorSpaceRec709SCRGB
)

// String returns a human-readable name for the color space.
func (cs ColorSpace) String() string {
	switch cs {
	case ColorSpaceSRGB:
		return "sRGB"
	case ColorSpaceSRGB16F:
		return "sRGB16F"
	case ColorSpaceRec709Extended:
		return "Rec709Extended"
	case ColorSpaceRec709SCRGB:
		return "Rec709SCRGB"
	default:
		return "Unknown"
	}
}

// LowDynamicRange reports whether the space is within the LDR set.
// Only LDR spaces participate in sRGB linearization.
func (cs ColorSpace) LowDynamicRange() bool {
	return cs <= ColorSpaceSRGB16F
}

// FormatFor maps a negotiated color space to the pixel format used for
// intermediate render targets: gamma-encoded spaces use 8 bits per
// channel, extended and linear spaces use 16-bit float, and anything
// unrecognized falls back to explicit unsigned-normalized 8-bit.
func FormatFor(cs ColorSpace) gputypes.TextureFormat {
	switch cs {
	case ColorSpaceSRGB:
		return gputypes.TextureFormatRGBA8Unorm
	case ColorSpaceSRGB16F, ColorSpaceRec709Extended, ColorSpaceRec709SCRGB:
		return gputypes.TextureFormatRGBA16Float
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}
