// Package packing pads a tensor's channel axis to the three channels video
// frames carry and crops it back on decode.
package packing

import (
	"fmt"

	"videotable/internal/services"
	"videotable/internal/tensor"
)

// FrameChannels is the channel count of every encoded frame.
const FrameChannels = 3

// Pad appends zero channels until p has FrameChannels. It is a no-op when p
// already has three channels and fails when it has more.
func Pad(p tensor.Pixels) (tensor.Pixels, error) {
	channels := p.Shape.Channels()
	if channels > FrameChannels {
		return tensor.Pixels{}, fmt.Errorf("%w: %d channels exceed the %d a frame can carry; reduce with n_components", services.ErrValidation, channels, FrameChannels)
	}
	if channels == FrameChannels {
		return p, nil
	}
	return resize(p, FrameChannels), nil
}

// Crop keeps the first channels channels of p.
func Crop(p tensor.Pixels, channels int) (tensor.Pixels, error) {
	if channels < 1 || channels > p.Shape.Channels() {
		return tensor.Pixels{}, fmt.Errorf("%w: cannot crop %d channels to %d", services.ErrValidation, p.Shape.Channels(), channels)
	}
	if channels == p.Shape.Channels() {
		return p, nil
	}
	return resize(p, channels), nil
}

func resize(p tensor.Pixels, channels int) tensor.Pixels {
	out := tensor.NewPixels(p.Shape.WithChannels(channels), p.BitDepth)
	keep := min(channels, p.Shape.Channels())
	for px := 0; px < p.Shape.Pixels(); px++ {
		for c := 0; c < keep; c++ {
			out.Set(px, c, p.At(px, c))
		}
	}
	return out
}
