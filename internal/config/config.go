package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "CUTOUT"

// Failure policies for a record that fails mid-pipeline.
const (
	PolicyAbort    = "abort"
	PolicyContinue = "continue"
)

// Contour scan modes; see contour.Mode.
const (
	ScanLegacy = "legacy"
	ScanAll    = "scan_all"
)

type Config struct {
	Input      InputConfig
	Fetch      FetchConfig
	Foreground ForegroundConfig
	Output     OutputConfig
	Log        LogConfig
	Run        RunConfig
}

type InputConfig struct {
	RolesFile string
}

type FetchConfig struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

type ForegroundConfig struct {
	BlurKernel     int
	ThresholdSeed  float64
	SecondaryRatio float64
	ContourScan    string
	MaxDimension   int
	OpenCVThreads  int
}

type OutputConfig struct {
	Dir         string
	JPEGQuality int
}

type LogConfig struct {
	Level  string
	Format string
}

type RunConfig struct {
	FailurePolicy string
}

// Load reads defaults overlaid with CUTOUT_* environment variables.
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom is Load against a caller-supplied viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Input: InputConfig{
			RolesFile: v.GetString("roles_file"),
		},
		Fetch: FetchConfig{
			Timeout:   v.GetDuration("fetch_timeout"),
			MaxBytes:  v.GetInt64("fetch_max_bytes"),
			UserAgent: v.GetString("user_agent"),
		},
		Foreground: ForegroundConfig{
			BlurKernel:     v.GetInt("blur_kernel"),
			ThresholdSeed:  v.GetFloat64("threshold_seed"),
			SecondaryRatio: v.GetFloat64("secondary_ratio"),
			ContourScan:    strings.ToLower(v.GetString("contour_scan")),
			MaxDimension:   v.GetInt("max_dimension"),
			OpenCVThreads:  v.GetInt("opencv_threads"),
		},
		Output: OutputConfig{
			Dir:         v.GetString("output_dir"),
			JPEGQuality: v.GetInt("jpeg_quality"),
		},
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: strings.ToLower(v.GetString("log_format")),
		},
		Run: RunConfig{
			FailurePolicy: strings.ToLower(v.GetString("failure_policy")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("roles_file", "roles.json")
	v.SetDefault("output_dir", ".")
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("fetch_max_bytes", 32<<20) // 32MB
	v.SetDefault("user_agent", "cutout/1.0")
	v.SetDefault("jpeg_quality", 95)
	v.SetDefault("max_dimension", 0)
	v.SetDefault("blur_kernel", 5)
	v.SetDefault("threshold_seed", 120)
	v.SetDefault("secondary_ratio", 20)
	v.SetDefault("contour_scan", ScanLegacy)
	v.SetDefault("failure_policy", PolicyAbort)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("opencv_threads", 0)
}

func (c *Config) Validate() error {
	if c.Input.RolesFile == "" {
		return fmt.Errorf("roles_file must not be empty")
	}
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch_timeout must not be negative, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch_max_bytes must be positive, got %d", c.Fetch.MaxBytes)
	}
	if k := c.Foreground.BlurKernel; k < 1 || k%2 == 0 {
		return fmt.Errorf("blur_kernel must be a positive odd number, got %d", k)
	}
	if s := c.Foreground.ThresholdSeed; s < 0 || s > 255 {
		return fmt.Errorf("threshold_seed must be within [0,255], got %v", s)
	}
	if c.Foreground.SecondaryRatio <= 1 {
		return fmt.Errorf("secondary_ratio must be greater than 1, got %v", c.Foreground.SecondaryRatio)
	}
	if c.Foreground.MaxDimension < 0 {
		return fmt.Errorf("max_dimension must not be negative, got %d", c.Foreground.MaxDimension)
	}
	if c.Foreground.OpenCVThreads < 0 {
		return fmt.Errorf("opencv_threads must not be negative, got %d", c.Foreground.OpenCVThreads)
	}
	switch c.Foreground.ContourScan {
	case ScanLegacy, ScanAll:
	default:
		return fmt.Errorf("contour_scan must be %q or %q, got %q", ScanLegacy, ScanAll, c.Foreground.ContourScan)
	}
	if q := c.Output.JPEGQuality; q < 1 || q > 100 {
		return fmt.Errorf("jpeg_quality must be within [1,100], got %d", q)
	}
	switch c.Run.FailurePolicy {
	case PolicyAbort, PolicyContinue:
	default:
		return fmt.Errorf("failure_policy must be %q or %q, got %q", PolicyAbort, PolicyContinue, c.Run.FailurePolicy)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
