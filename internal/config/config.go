// Package config holds the run configuration: YAML on disk, defaults in
// code, and a Validate pass that runs before any frame is touched.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"cellquant/internal/region"

	"gopkg.in/yaml.v3"
)

const maxFileSize = 1 << 20

// ConfigError reports an invalid setting by its YAML path.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// Config is the full run configuration.
type Config struct {
	Topology    string            `yaml:"topology"`
	Nuclear     NuclearConfig     `yaml:"nuclear"`
	Consolidate ConsolidateConfig `yaml:"consolidate"`
	Classifier  ClassifierConfig  `yaml:"classifier"`
	Proximity   ProximityConfig   `yaml:"proximity"`
	Synapse     SynapseConfig     `yaml:"synapse"`
	Preprocess  PreprocessConfig  `yaml:"preprocess"`
	Workers     int               `yaml:"workers"`
	Output      OutputConfig      `yaml:"output"`
}

type NuclearConfig struct {
	MinArea float64 `yaml:"min_area"`
}

// ConsolidateConfig controls the optional merge of nearby nuclear regions.
type ConsolidateConfig struct {
	Enabled       bool    `yaml:"enabled"`
	MinArea       float64 `yaml:"min_area"`
	MergeRadius   float64 `yaml:"merge_radius"`
	ApproxEpsilon float64 `yaml:"approx_epsilon"`
}

type ClassifierConfig struct {
	MinArcLength      float64 `yaml:"min_arc_length"`
	MinVertices       int     `yaml:"min_vertices"`
	CoverageThreshold float64 `yaml:"coverage_threshold"`
	AspectThreshold   float64 `yaml:"aspect_threshold"`
}

type ProximityConfig struct {
	ROIFactor float64 `yaml:"roi_factor"`
}

type SynapseConfig struct {
	MinArea  float64 `yaml:"min_area"`
	BinWidth float64 `yaml:"bin_width"`
	BinCount int     `yaml:"bin_count"`
}

// PreprocessConfig drives conversion of a merged RGB frame into masks.
// A threshold of 0 selects Otsu's method for that channel.
type PreprocessConfig struct {
	BlurKernel int        `yaml:"blur_kernel"`
	Equalize   bool       `yaml:"equalize"`
	Thresholds Thresholds `yaml:"thresholds"`
}

type Thresholds struct {
	Nuclear float64 `yaml:"nuclear"`  // blue
	Cross   float64 `yaml:"cross"`    // green
	RedLow  float64 `yaml:"red_low"`  // synapse, low intensity
	RedHigh float64 `yaml:"red_high"` // synapse, high intensity
}

type OutputConfig struct {
	Dir      string `yaml:"dir"`
	CSV      string `yaml:"csv"`
	SQLite   string `yaml:"sqlite"`
	Plot     string `yaml:"plot"`
	Overlays bool   `yaml:"overlays"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Topology: region.WithHoles.String(),
		Nuclear:  NuclearConfig{MinArea: 100},
		Consolidate: ConsolidateConfig{
			Enabled:       false,
			MinArea:       100,
			MergeRadius:   20,
			ApproxEpsilon: region.DefaultApproxEpsilon,
		},
		Classifier: ClassifierConfig{
			MinArcLength:      250,
			MinVertices:       5,
			CoverageThreshold: 0.25,
			AspectThreshold:   0.1,
		},
		Proximity: ProximityConfig{ROIFactor: 3},
		Synapse:   SynapseConfig{MinArea: 1, BinWidth: 25, BinCount: 21},
		Preprocess: PreprocessConfig{
			BlurKernel: 3,
			Equalize:   false,
			Thresholds: Thresholds{Nuclear: 50, Cross: 50, RedLow: 40, RedHigh: 120},
		},
		Workers: 4,
		Output: OutputConfig{
			Dir:    "out",
			CSV:    "frames.csv",
			SQLite: "results.db",
			Plot:   "synapse_bins.png",
		},
	}
}

// Load reads a YAML file over Default. Keys missing from the file keep
// their default values. The result is validated.
func Load(path string) (*Config, error) {
	clean := filepath.Clean(path)
	switch ext := strings.ToLower(filepath.Ext(clean)); ext {
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	info, err := os.Stat(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates it. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML, e.g. for recording the
// settings of a run next to its results.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// TopologyMode returns the parsed topology. Validate guarantees it parses.
func (c *Config) TopologyMode() region.Topology {
	t, _ := region.ParseTopology(c.Topology)
	return t
}

// Validate returns every problem found, joined, each as a *ConfigError.
func (c *Config) Validate() error {
	var errs []error
	bad := func(field, format string, args ...interface{}) {
		errs = append(errs, &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}
	nonNeg := func(field string, v float64) {
		if v < 0 || math.IsNaN(v) {
			bad(field, "must be >= 0, got %g", v)
		}
	}

	if _, ok := region.ParseTopology(c.Topology); !ok {
		bad("topology", "unknown mode %q (want with_holes or external_only)", c.Topology)
	}

	nonNeg("nuclear.min_area", c.Nuclear.MinArea)
	nonNeg("consolidate.min_area", c.Consolidate.MinArea)
	nonNeg("consolidate.merge_radius", c.Consolidate.MergeRadius)
	nonNeg("consolidate.approx_epsilon", c.Consolidate.ApproxEpsilon)

	nonNeg("classifier.min_arc_length", c.Classifier.MinArcLength)
	if c.Classifier.MinVertices < 0 {
		bad("classifier.min_vertices", "must be >= 0, got %d", c.Classifier.MinVertices)
	}
	if t := c.Classifier.CoverageThreshold; t < 0 || t > 1 || math.IsNaN(t) {
		bad("classifier.coverage_threshold", "must be in [0, 1], got %g", t)
	}
	if t := c.Classifier.AspectThreshold; t < 0 || t > 1 || math.IsNaN(t) {
		bad("classifier.aspect_threshold", "must be in [0, 1], got %g", t)
	}

	nonNeg("proximity.roi_factor", c.Proximity.ROIFactor)

	nonNeg("synapse.min_area", c.Synapse.MinArea)
	if !(c.Synapse.BinWidth > 0) || math.IsInf(c.Synapse.BinWidth, 0) {
		bad("synapse.bin_width", "must be > 0, got %g", c.Synapse.BinWidth)
	}
	if c.Synapse.BinCount <= 0 {
		bad("synapse.bin_count", "must be > 0, got %d", c.Synapse.BinCount)
	}

	if k := c.Preprocess.BlurKernel; k < 0 || (k > 0 && k%2 == 0) {
		bad("preprocess.blur_kernel", "must be 0 or an odd positive size, got %d", k)
	}
	th := c.Preprocess.Thresholds
	for _, t := range []struct {
		field string
		v     float64
	}{
		{"preprocess.thresholds.nuclear", th.Nuclear},
		{"preprocess.thresholds.cross", th.Cross},
		{"preprocess.thresholds.red_low", th.RedLow},
		{"preprocess.thresholds.red_high", th.RedHigh},
	} {
		if t.v < 0 || t.v > 255 || math.IsNaN(t.v) {
			bad(t.field, "must be in [0, 255], got %g", t.v)
		}
	}

	if c.Workers < 1 {
		bad("workers", "must be >= 1, got %d", c.Workers)
	}

	return errors.Join(errs...)
}
