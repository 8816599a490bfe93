// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package channelmask

import "github.com/gogpu/channelmask/host"

// Settings keys. The layout is stable across save/load: one string for
// the selected input source, per channel one bias ("value") and one
// multiplier, per channel pair one mixing weight, and one integer debug
// texture selector.
const (
	// KeyInput stores the selected input source name. Empty means no
	// input is selected and the filter masks by itself.
	KeyInput = "input"

	// KeyDebugTexture stores the debug texture selector. See the
	// DebugTexture constants.
	KeyDebugTexture = "debug.texture"

	keyChannelValue      = "channel.value."
	keyChannelMultiplier = "channel.multiplier."
	keyChannelInput      = "channel.input."
)

// Debug texture selector values.
const (
	// DebugTextureOff presents the normal composited result.
	DebugTextureOff int64 = -1

	// DebugTextureBase presents the captured base texture unmixed.
	DebugTextureBase int64 = 0

	// DebugTextureInput presents the captured input texture unmixed.
	DebugTextureInput int64 = 1
)

// KeyChannelValue returns the settings key for a channel's bias.
func KeyChannelValue(c Channel) string {
	return keyChannelValue + c.String()
}

// KeyChannelMultiplier returns the settings key for a channel's
// multiplier.
func KeyChannelMultiplier(c Channel) string {
	return keyChannelMultiplier + c.String()
}

// KeyChannelInput returns the settings key for the weight of input
// channel sec in output channel pri.
func KeyChannelInput(pri, sec Channel) string {
	return keyChannelInput + pri.String() + "." + sec.String()
}

// RegisterDefaults registers the filter's default settings: bias and
// multiplier 1.0, all mixing weights 0.0, no input selected, debug
// selector off. With these defaults the filter passes the base source
// through unchanged.
func RegisterDefaults(s host.Settings) {
	s.SetDefaultString(KeyInput, "")
	s.SetDefaultInt(KeyDebugTexture, DebugTextureOff)
	for _, c := range Channels() {
		s.SetDefaultFloat(KeyChannelValue(c), 1.0)
		s.SetDefaultFloat(KeyChannelMultiplier(c), 1.0)
		for _, k := range Channels() {
			s.SetDefaultFloat(KeyChannelInput(c, k), 0.0)
		}
	}
}
