package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"videotable/internal/config"
	"videotable/internal/quantize"
	"videotable/internal/services"
	"videotable/internal/tensor"
)

// Job is one named conversion unit.
type Job struct {
	Name        string
	Columns     []string
	Shape       tensor.Shape
	Components  int
	CodecParams map[string]string
	BitDepth    int
	ValueRange  *quantize.Range
	NaNFill     string
}

type rulesFile struct {
	Arrays map[string]rule `toml:"arrays"`
}

type rule struct {
	Columns     []string       `toml:"columns"`
	Shape       []int          `toml:"shape"`
	Components  int            `toml:"n_components"`
	CodecParams map[string]any `toml:"codec_params"`
	BitDepth    int            `toml:"bit_depth"`
	ValueRange  []float64      `toml:"value_range"`
	NaNFill     any            `toml:"nan_fill"`
}

// LoadRules reads a TOML rules file of [arrays.<name>] tables. Jobs are
// returned sorted by name.
func LoadRules(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "rules", "load", path, err)
		}
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes rules from TOML bytes.
func ParseRules(data []byte) ([]Job, error) {
	var file rulesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "rules", "parse", "", err)
	}
	if len(file.Arrays) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "rules", "parse", "no [arrays.<name>] tables defined", nil)
	}
	names := make([]string, 0, len(file.Arrays))
	for name := range file.Arrays {
		names = append(names, name)
	}
	sort.Strings(names)

	jobs := make([]Job, 0, len(names))
	for _, name := range names {
		job, err := file.Arrays[name].toJob(name)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (r rule) toJob(name string) (Job, error) {
	job := Job{
		Name:       strings.TrimSpace(name),
		Columns:    r.Columns,
		Components: r.Components,
		BitDepth:   r.BitDepth,
		NaNFill:    config.FormatParam(r.NaNFill),
	}
	shape, err := tensor.ShapeFromSlice(r.Shape)
	if err != nil {
		return Job{}, services.Wrap(services.ErrConfiguration, "rules", name, "shape", err)
	}
	job.Shape = shape
	if len(r.CodecParams) > 0 {
		job.CodecParams = make(map[string]string, len(r.CodecParams))
		for key, value := range r.CodecParams {
			job.CodecParams[strings.TrimSpace(key)] = config.FormatParam(value)
		}
	}
	if r.ValueRange != nil {
		vr, err := quantize.RangeFromSlice(r.ValueRange)
		if err != nil {
			return Job{}, services.Wrap(services.ErrConfiguration, "rules", name, "value_range", err)
		}
		job.ValueRange = &vr
	}
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Validate checks the job in isolation. Zero bit depth and empty codec
// params are accepted here and resolved from configuration later.
func (j Job) Validate() error {
	fail := func(msg string) error {
		return services.Wrap(services.ErrConfiguration, "rules", j.Name, msg, nil)
	}
	if j.Name == "" || j.Name != filepath.Base(j.Name) || j.Name == "." || j.Name == ".." {
		return fail(fmt.Sprintf("invalid array name %q", j.Name))
	}
	if len(j.Columns) == 0 {
		return fail("columns are empty")
	}
	if err := j.Shape.Validate(); err != nil {
		return services.Wrap(services.ErrConfiguration, "rules", j.Name, "shape", err)
	}
	if len(j.Columns) != j.Shape.FrameSize() {
		return fail(fmt.Sprintf("%d columns do not fill one %dx%dx%d frame (%d values)",
			len(j.Columns), j.Shape.Height(), j.Shape.Width(), j.Shape.Channels(), j.Shape.FrameSize()))
	}
	if j.Components < 0 {
		return fail(fmt.Sprintf("n_components %d is negative", j.Components))
	}
	if j.Components > 0 {
		if j.Components > 3 {
			return fail(fmt.Sprintf("n_components %d exceeds 3 frame channels", j.Components))
		}
		if j.Components > j.Shape.Channels() {
			return fail(fmt.Sprintf("n_components %d exceeds %d source channels", j.Components, j.Shape.Channels()))
		}
	} else if j.Shape.Channels() > 3 {
		return fail(fmt.Sprintf("%d channels need n_components <= 3", j.Shape.Channels()))
	}
	if j.BitDepth != 0 {
		if err := quantize.ValidateBitDepth(j.BitDepth); err != nil {
			return services.Wrap(services.ErrConfiguration, "rules", j.Name, "bit_depth", err)
		}
	}
	if j.ValueRange != nil {
		if err := j.ValueRange.Validate(); err != nil {
			return err
		}
	}
	if err := config.ValidateNaNFill(j.NaNFill); err != nil {
		return services.Wrap(services.ErrConfiguration, "rules", j.Name, "nan_fill", err)
	}
	return nil
}

// withDefaults fills unset options from cfg. Job codec params override the
// configured defaults key by key.
func (j Job) withDefaults(cfg *config.Config) Job {
	params := cfg.CodecParams()
	for key, value := range j.CodecParams {
		params[key] = value
	}
	j.CodecParams = params
	j.CodecParams["c:v"] = j.codec()
	if j.BitDepth == 0 {
		j.BitDepth = cfg.Codec.BitDepth
	}
	if strings.TrimSpace(j.NaNFill) == "" {
		j.NaNFill = cfg.Pipeline.NaNFill
	}
	return j
}

// codec returns the lower-cased c:v selector.
func (j Job) codec() string {
	return strings.ToLower(strings.TrimSpace(j.CodecParams["c:v"]))
}

// containerExt picks .mp4 for libx264 and .mkv for everything else.
func containerExt(codec string) string {
	if codec == "libx264" {
		return ".mp4"
	}
	return ".mkv"
}
