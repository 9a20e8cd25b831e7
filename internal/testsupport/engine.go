package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"videotable/internal/pixfmt"
	"videotable/internal/services"
	"videotable/internal/tensor"
)

// MemoryEngine is an in-process codec engine. It keeps decoded frames in
// memory keyed by container path and writes the raw request bytes to disk so
// size and checksum logic sees a real file.
type MemoryEngine struct {
	mu sync.Mutex
	// Substitute maps a requested pixel format to the one the engine reports.
	Substitute map[string]string
	// PadRows aligns bgr0 rows to 16 bytes on decode.
	PadRows bool
	// FailEncode makes Encode fail for the named container base names.
	FailEncode map[string]bool

	containers map[string]*memoryContainer
	Encodes    []pixfmt.EncodeRequest
}

type memoryContainer struct {
	codec  string
	format string
	pixels tensor.Pixels
	tags   map[string]string
}

// NewMemoryEngine returns an engine that honours every requested format.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		Substitute: map[string]string{},
		FailEncode: map[string]bool{},
		containers: map[string]*memoryContainer{},
	}
}

func (e *MemoryEngine) Encode(_ context.Context, req pixfmt.EncodeRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.FailEncode[filepath.Base(req.Path)] {
		return services.Wrap(services.ErrExternalTool, "encode", "memory engine", "forced failure for "+filepath.Base(req.Path), nil)
	}
	layout, ok := pixfmt.Describe(req.PixelFormat)
	if !ok {
		return fmt.Errorf("memory engine: unsupported input format %q", req.PixelFormat)
	}
	shape := tensor.Shape{req.Frames, req.Height, req.Width, 3}
	pixels, err := pixfmt.Deinterleave(req.Data, layout, shape)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(req.Path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(req.Path, req.Data, 0o644); err != nil {
		return err
	}
	actual := req.PixelFormat
	if substitute, ok := e.Substitute[req.PixelFormat]; ok {
		actual = substitute
	}
	e.containers[req.Path] = &memoryContainer{
		codec:  req.CodecParams["c:v"],
		format: actual,
		pixels: pixels,
		tags:   map[string]string{},
	}
	e.Encodes = append(e.Encodes, req)
	return nil
}

func (e *MemoryEngine) Decode(_ context.Context, path string, pixelFormat string) ([]byte, error) {
	container, err := e.lookup(path)
	if err != nil {
		return nil, err
	}
	layout, ok := pixfmt.Describe(pixelFormat)
	if !ok {
		return nil, fmt.Errorf("memory engine: cannot decode to %q", pixelFormat)
	}
	buf := pixfmt.Interleave(container.pixels, layout)
	if pixelFormat != pixfmt.BGR0 || !e.PadRows {
		return buf, nil
	}
	return padRows(buf, container.pixels.Shape), nil
}

func (e *MemoryEngine) Probe(_ context.Context, path string) (pixfmt.Probe, error) {
	container, err := e.lookup(path)
	if err != nil {
		return pixfmt.Probe{}, err
	}
	tags := make(map[string]string, len(container.tags))
	for key, value := range container.tags {
		tags[key] = value
	}
	shape := container.pixels.Shape
	return pixfmt.Probe{
		Codec:       container.codec,
		Width:       shape.Width(),
		Height:      shape.Height(),
		Frames:      shape.Frames(),
		PixelFormat: container.format,
		Tags:        tags,
	}, nil
}

func (e *MemoryEngine) Retag(_ context.Context, path string, tags map[string]string) error {
	container, err := e.lookup(path)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, value := range tags {
		container.tags[key] = value
	}
	return nil
}

// Forget drops a container from memory, as if its file were unreadable.
func (e *MemoryEngine) Forget(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.containers, path)
}

func (e *MemoryEngine) lookup(path string) (*memoryContainer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	container, ok := e.containers[path]
	if !ok {
		return nil, fmt.Errorf("%w: memory engine has no container %s", services.ErrNotFound, path)
	}
	return container, nil
}

func padRows(buf []byte, shape tensor.Shape) []byte {
	natural := shape.Width() * 4
	stride := (natural + 15) / 16 * 16
	rows := shape.Frames() * shape.Height()
	out := make([]byte, rows*stride)
	for r := 0; r < rows; r++ {
		copy(out[r*stride:], buf[r*natural:(r+1)*natural])
		for i := natural; i < stride; i++ {
			out[r*stride+i] = 0xEE
		}
	}
	return out
}
