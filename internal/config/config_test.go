package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "roles.json", cfg.Input.RolesFile)
	assert.Equal(t, ".", cfg.Output.Dir)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, int64(32<<20), cfg.Fetch.MaxBytes)
	assert.Equal(t, 95, cfg.Output.JPEGQuality)
	assert.Equal(t, 5, cfg.Foreground.BlurKernel)
	assert.Equal(t, 120.0, cfg.Foreground.ThresholdSeed)
	assert.Equal(t, 20.0, cfg.Foreground.SecondaryRatio)
	assert.Equal(t, ScanLegacy, cfg.Foreground.ContourScan)
	assert.Equal(t, PolicyAbort, cfg.Run.FailurePolicy)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CUTOUT_ROLES_FILE", "/tmp/heroes.json")
	t.Setenv("CUTOUT_FAILURE_POLICY", "Continue")
	t.Setenv("CUTOUT_FETCH_TIMEOUT", "5s")
	t.Setenv("CUTOUT_CONTOUR_SCAN", "scan_all")
	t.Setenv("CUTOUT_JPEG_QUALITY", "80")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "/tmp/heroes.json", cfg.Input.RolesFile)
	assert.Equal(t, PolicyContinue, cfg.Run.FailurePolicy)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, ScanAll, cfg.Foreground.ContourScan)
	assert.Equal(t, 80, cfg.Output.JPEGQuality)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "even kernel", key: "CUTOUT_BLUR_KERNEL", val: "4"},
		{name: "quality above range", key: "CUTOUT_JPEG_QUALITY", val: "101"},
		{name: "unknown policy", key: "CUTOUT_FAILURE_POLICY", val: "retry"},
		{name: "unknown scan", key: "CUTOUT_CONTOUR_SCAN", val: "nested"},
		{name: "ratio too small", key: "CUTOUT_SECONDARY_RATIO", val: "1"},
		{name: "negative dimension", key: "CUTOUT_MAX_DIMENSION", val: "-1"},
		{name: "unknown log format", key: "CUTOUT_LOG_FORMAT", val: "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadFrom(viper.New())
			assert.Error(t, err)
		})
	}
}
