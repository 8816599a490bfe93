// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package channelmask

import (
	"golang.org/x/image/math/f32"

	"github.com/gogpu/channelmask/host"
)

// ChannelSetting holds the user-facing mixing parameters of one output
// channel.
type ChannelSetting struct {
	// Bias scales the base source's contribution to this channel.
	Bias float32

	// Multiplier scales the channel's final value.
	Multiplier float32

	// Weights holds the contribution of each input source channel to
	// this channel, indexed by Channel ordinal.
	Weights [channelCount]float32
}

// Transform is the channel transform model: per-channel settings plus
// the packed form consumed by the compositing shader. Update keeps both
// representations consistent in a single pass; there is no window where
// they disagree after Update returns.
//
// Transform is not safe for concurrent use. The host serializes
// settings updates against render-thread reads.
type Transform struct {
	channels [channelCount]ChannelSetting

	bias       f32.Vec4
	matrix     f32.Mat4
	multiplier f32.Vec4
}

// NewTransform creates a zero transform. Call Update to load values
// from settings.
func NewTransform() *Transform {
	return &Transform{}
}

// Update reads bias, multiplier, and the four mixing weights for every
// channel from settings and writes them into both the per-channel
// settings and the packed form.
func (t *Transform) Update(s host.Settings) {
	for _, c := range Channels() {
		cs := &t.channels[c]

		cs.Bias = float32(s.Float(KeyChannelValue(c)))
		t.bias[c] = cs.Bias

		cs.Multiplier = float32(s.Float(KeyChannelMultiplier(c)))
		t.multiplier[c] = cs.Multiplier

		for _, k := range Channels() {
			w := float32(s.Float(KeyChannelInput(c, k)))
			cs.Weights[k] = w
			t.matrix[4*int(c)+int(k)] = w
		}
	}
}

// Save writes the current per-channel settings back to the settings
// sink. It is the exact inverse of Update and is used for persistence
// round-trips.
func (t *Transform) Save(s host.Settings) {
	for _, c := range Channels() {
		cs := &t.channels[c]
		s.SetFloat(KeyChannelValue(c), float64(cs.Bias))
		s.SetFloat(KeyChannelMultiplier(c), float64(cs.Multiplier))
		for _, k := range Channels() {
			s.SetFloat(KeyChannelInput(c, k), float64(cs.Weights[k]))
		}
	}
}

// Setting returns the per-channel settings of c.
func (t *Transform) Setting(c Channel) ChannelSetting {
	return t.channels[c]
}

// Bias returns the packed bias vector, bias[c] == Setting(c).Bias.
func (t *Transform) Bias() f32.Vec4 { return t.bias }

// Matrix returns the packed mixing matrix in row-major order, row c
// holding the weights of output channel c.
func (t *Transform) Matrix() f32.Mat4 { return t.matrix }

// Multiplier returns the packed multiplier vector.
func (t *Transform) Multiplier() f32.Vec4 { return t.multiplier }

// Apply evaluates the transform for one pixel:
//
//	out[c] = (base[c]*bias[c] + dot(weights[c], input)) * multiplier[c]
//
// This is the reference for what the shader computes per pixel.
func (t *Transform) Apply(base, input [channelCount]float32) [channelCount]float32 {
	var out [channelCount]float32
	for c := 0; c < channelCount; c++ {
		sum := base[c] * t.bias[c]
		for k := 0; k < channelCount; k++ {
			sum += t.matrix[4*c+k] * input[k]
		}
		out[c] = sum * t.multiplier[c]
	}
	return out
}
