// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package channelmask

// Channel identifies one of the four color channels. The ordinal is
// used both as a settings key suffix and as a vector/matrix index.
type Channel uint8

const (
	// ChannelRed is the red channel.
	ChannelRed Channel = iota

	// ChannelGreen is the green channel.
	ChannelGreen

	// ChannelBlue is the blue channel.
	ChannelBlue

	// ChannelAlpha is the alpha channel.
	ChannelAlpha
)

// channelCount is the number of color channels.
const channelCount = 4

// Channels returns all channels in ordinal order.
func Channels() [channelCount]Channel {
	return [channelCount]Channel{ChannelRed, ChannelGreen, ChannelBlue, ChannelAlpha}
}

// String returns the channel's settings-key name.
func (c Channel) String() string {
	switch c {
	case ChannelRed:
		return "red"
	case ChannelGreen:
		return "green"
	case ChannelBlue:
		return "blue"
	case ChannelAlpha:
		return "alpha"
	default:
		return "unknown"
	}
}
