package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cellquant/internal/region"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func fields(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		var ce *ConfigError
		if errors.As(e, &ce) {
			out = append(out, ce.Field)
		}
	}
	walk(err)
	return out
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, region.WithHoles, cfg.TopologyMode())
	assert.Equal(t, 21, cfg.Synapse.BinCount)
	assert.Equal(t, 25.0, cfg.Synapse.BinWidth)
	assert.Equal(t, 0.25, cfg.Classifier.CoverageThreshold)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	p := writeFile(t, "run.yaml", `
topology: external_only
synapse:
  bin_width: 10
workers: 2
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, region.ExternalOnly, cfg.TopologyMode())
	assert.Equal(t, 10.0, cfg.Synapse.BinWidth)
	assert.Equal(t, 21, cfg.Synapse.BinCount)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, Default().Classifier, cfg.Classifier)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yml", "\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsExtension(t *testing.T) {
	_, err := Load(writeFile(t, "run.json", "{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extension")
}

func TestLoadRejectsLargeFile(t *testing.T) {
	body := "# " + strings.Repeat("x", maxFileSize) + "\n"
	_, err := Load(writeFile(t, "big.yaml", body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("synapse:\n  bin_widht: 5\n"))
	assert.Error(t, err)
}

func TestValidateCollectsConfigErrors(t *testing.T) {
	cfg := Default()
	cfg.Topology = "nested"
	cfg.Synapse.BinCount = 0
	cfg.Synapse.BinWidth = -1
	cfg.Nuclear.MinArea = -5
	cfg.Workers = 0
	cfg.Preprocess.BlurKernel = 4
	cfg.Preprocess.Thresholds.RedHigh = 300

	err := cfg.Validate()
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{
		"topology",
		"nuclear.min_area",
		"synapse.bin_width",
		"synapse.bin_count",
		"preprocess.blur_kernel",
		"preprocess.thresholds.red_high",
		"workers",
	}, fields(err))
}

func TestParseWrapsValidation(t *testing.T) {
	_, err := Parse([]byte("synapse:\n  bin_count: -3\n"))
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "synapse.bin_count", ce.Field)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestMarshalLoadsBack(t *testing.T) {
	cfg := Default()
	cfg.Consolidate.Enabled = true
	cfg.Output.Overlays = true

	data, err := cfg.Marshal()
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestParseCommentOnly(t *testing.T) {
	cfg, err := Parse([]byte("# nothing set\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
