package reduction

import (
	"encoding/json"
	"fmt"
	"strings"

	"videotable/internal/services"
	"videotable/internal/tensor"
)

// Model is a fitted linear transform over the channel axis of a tensor.
// A model is fitted once on encode and rebuilt from its parameter blob on
// decode; it is never re-fitted from reconstructed data.
type Model interface {
	// FitTransform fits the model on d (leading axes flattened) and returns d
	// projected onto Components() channels.
	FitTransform(d tensor.Dense) (tensor.Dense, error)
	// InverseTransform maps reduced channels back to Features() channels.
	// Channels beyond Components() are discarded as padding artifacts and
	// missing channels are zero-filled.
	InverseTransform(d tensor.Dense) (tensor.Dense, error)
	// MarshalParams returns the JSON parameter set needed for an exact inverse.
	MarshalParams() (string, error)
	Components() int
	Features() int
}

// TechniquePCA identifies principal component analysis parameter sets.
const TechniquePCA = "pca"

type envelope struct {
	Technique string `json:"technique"`
}

// Restore rebuilds a model from a parameter blob produced by Serialize.
// Both plain JSON and zstd-compressed blobs are accepted.
func Restore(blob string) (Model, error) {
	raw, err := decodeBlob(blob)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: parse reduction params: %w", services.ErrValidation, err)
	}
	switch strings.ToLower(env.Technique) {
	case TechniquePCA:
		model, err := restorePCA(raw)
		if err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("%w: unknown reduction technique %q", services.ErrValidation, env.Technique)
	}
}

// Serialize renders the model's parameter blob, zstd-compressing it when
// compress is set.
func Serialize(m Model, compress bool) (string, error) {
	params, err := m.MarshalParams()
	if err != nil {
		return "", err
	}
	if !compress {
		return params, nil
	}
	return encodeBlob([]byte(params)), nil
}

func resizeChannels(d tensor.Dense, channels int) tensor.Dense {
	have := d.Shape.Channels()
	if have == channels {
		return d
	}
	out := tensor.NewDense(d.Shape.WithChannels(channels), d.Kind)
	keep := min(have, channels)
	for p := 0; p < d.Shape.Pixels(); p++ {
		for c := 0; c < keep; c++ {
			out.Set(p, c, d.At(p, c))
		}
	}
	return out
}
