package reduction

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"videotable/internal/services"
)

// compressedPrefix marks a base64 zstd frame holding the JSON parameters.
const compressedPrefix = "zstd:"

var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("create zstd decoder: %v", err))
		}
		return decoder
	},
}

var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			panic(fmt.Sprintf("create zstd encoder: %v", err))
		}
		return encoder
	},
}

func encodeBlob(data []byte) string {
	encoder := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(encoder)
	return compressedPrefix + base64.StdEncoding.EncodeToString(encoder.EncodeAll(data, nil))
}

func decodeBlob(blob string) ([]byte, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, fmt.Errorf("%w: empty reduction params", services.ErrValidation)
	}
	if !strings.HasPrefix(blob, compressedPrefix) {
		return []byte(blob), nil
	}
	compressed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(blob, compressedPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: decode reduction params: %w", services.ErrValidation, err)
	}
	decoder := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)
	raw, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decompression failed: %w", services.ErrValidation, err)
	}
	return raw, nil
}
