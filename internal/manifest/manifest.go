package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"videotable/internal/fileutil"
	"videotable/internal/quantize"
	"videotable/internal/services"
	"videotable/internal/tensor"
)

const (
	// Version is the current manifest layout.
	Version = 1

	sidecarSuffix = ".manifest.json"
)

// Manifest is the persisted record of one array conversion.
type Manifest struct {
	Version              int               `json:"version"`
	Name                 string            `json:"name"`
	Shape                []int             `json:"shape"`
	EncodedChannels      int               `json:"encoded_channels"`
	ValueRange           []float64         `json:"value_range"`
	Columns              []string          `json:"columns"`
	SourceKind           string            `json:"source_kind"`
	BitDepth             int               `json:"bit_depth"`
	IsQuantized          bool              `json:"is_quantized"`
	ReductionParams      *string           `json:"reduction_params"`
	CodecID              string            `json:"codec_id"`
	CodecParams          map[string]string `json:"codec_params"`
	RequestedPixelFormat string            `json:"requested_pixel_format"`
	ActualPixelFormat    string            `json:"actual_pixel_format"`
	Container            string            `json:"container"`
	ContainerChecksum    string            `json:"container_checksum,omitempty"`
}

// TensorShape returns the stored (T,H,W,C) shape.
func (m *Manifest) TensorShape() (tensor.Shape, error) {
	return tensor.ShapeFromSlice(m.Shape)
}

// Range returns the stored value range.
func (m *Manifest) Range() (quantize.Range, error) {
	return quantize.RangeFromSlice(m.ValueRange)
}

// Kind returns the stored source element kind.
func (m *Manifest) Kind() (tensor.Kind, error) {
	return tensor.ParseKind(m.SourceKind)
}

// State reconstructs the quantization state recorded at encode time.
func (m *Manifest) State() (quantize.State, error) {
	r, err := m.Range()
	if err != nil {
		return quantize.State{}, err
	}
	return quantize.State{Range: r, BitDepth: m.BitDepth, Quantized: m.IsQuantized}, nil
}

// HasReduction reports whether a reduction model was applied before encoding.
func (m *Manifest) HasReduction() bool {
	return m.ReductionParams != nil && strings.TrimSpace(*m.ReductionParams) != ""
}

// Validate checks internal consistency.
func (m *Manifest) Validate() error {
	if m == nil {
		return services.Wrap(services.ErrValidation, "manifest", "validate", "manifest is nil", nil)
	}
	if m.Version != Version {
		return services.Wrap(services.ErrValidation, "manifest", "validate",
			fmt.Sprintf("unsupported manifest version %d (want %d)", m.Version, Version), nil)
	}
	if strings.TrimSpace(m.Name) == "" {
		return services.Wrap(services.ErrValidation, "manifest", "validate", "name is empty", nil)
	}
	shape, err := m.TensorShape()
	if err == nil {
		err = shape.Validate()
	}
	if err != nil {
		return services.Wrap(services.ErrValidation, "manifest", "validate", "shape", err)
	}
	if m.EncodedChannels < 1 || m.EncodedChannels > 3 {
		return services.Wrap(services.ErrValidation, "manifest", "validate",
			fmt.Sprintf("encoded_channels %d outside 1..3", m.EncodedChannels), nil)
	}
	if !m.HasReduction() && m.EncodedChannels != shape.Channels() {
		return services.Wrap(services.ErrValidation, "manifest", "validate",
			fmt.Sprintf("encoded_channels %d does not match shape channels %d", m.EncodedChannels, shape.Channels()), nil)
	}
	if _, err := m.Range(); err != nil {
		return services.Wrap(services.ErrValidation, "manifest", "validate", "value_range", err)
	}
	if _, err := m.Kind(); err != nil {
		return services.Wrap(services.ErrValidation, "manifest", "validate", "source_kind", err)
	}
	if err := quantize.ValidateBitDepth(m.BitDepth); err != nil {
		return services.Wrap(services.ErrValidation, "manifest", "validate", "bit_depth", err)
	}
	if len(m.Columns) == 0 {
		return services.Wrap(services.ErrValidation, "manifest", "validate", "columns are empty", nil)
	}
	if strings.TrimSpace(m.CodecID) == "" {
		return services.Wrap(services.ErrValidation, "manifest", "validate", "codec_id is empty", nil)
	}
	if strings.TrimSpace(m.Container) == "" {
		return services.Wrap(services.ErrValidation, "manifest", "validate", "container is empty", nil)
	}
	return nil
}

// SidecarPath returns the sidecar location for an array inside dir.
func SidecarPath(dir, name string) string {
	return filepath.Join(dir, name+sidecarSuffix)
}

// Save validates m and writes it atomically to path.
func Save(m *Manifest, path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	return nil
}

// Load reads the sidecar at path. A missing file yields MissingManifestError.
func Load(path string) (*Manifest, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingManifestError{Name: nameFromSidecar(path), Location: path}
		}
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	return decode(payload, path)
}

// Checksum returns the container checksum recorded in sidecar manifests.
func Checksum(path string) (string, error) {
	return fileutil.Checksum(path)
}

// VerifyChecksum compares the container at path with the recorded checksum.
// Manifests without a checksum always verify.
func (m *Manifest) VerifyChecksum(path string) error {
	if strings.TrimSpace(m.ContainerChecksum) == "" {
		return nil
	}
	got, err := Checksum(path)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "manifest", "verify checksum", path, err)
	}
	if !strings.EqualFold(got, m.ContainerChecksum) {
		return services.Wrap(services.ErrValidation, "manifest", "verify checksum",
			fmt.Sprintf("container %s is partial or corrupt: checksum %s, manifest %s", filepath.Base(path), got, m.ContainerChecksum), nil)
	}
	return nil
}

func decode(payload []byte, location string) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, services.Wrap(services.ErrValidation, "manifest", "decode", location, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func nameFromSidecar(path string) string {
	return strings.TrimSuffix(filepath.Base(path), sidecarSuffix)
}
