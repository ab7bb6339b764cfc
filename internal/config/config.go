package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Output locations
	OutputDir  string `yaml:"output_dir"`
	ReportFile string `yaml:"report_file"`

	// Sampling and detection knobs. MotionThreshold is the mean absolute
	// grayscale difference (0-255) above which a sampled frame pair counts
	// as a motion cut candidate; it is content- and resolution-dependent.
	FrameStride         int     `yaml:"frame_stride"`
	BatchSize           int     `yaml:"batch_size"`
	MotionThreshold     float64 `yaml:"motion_threshold"`
	MinSeparationFrames int     `yaml:"min_separation_frames"`

	// Semantic judge settings
	Judge JudgeConfig `yaml:"judge"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`
}

// JudgeConfig configures the external vision judge
type JudgeConfig struct {
	Disabled    bool   `yaml:"disabled"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	MaxInFlight int    `yaml:"max_in_flight"`
	MaxAttempts int    `yaml:"max_attempts"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	Threads    int    `yaml:"threads"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		OutputDir:           "scenes",
		ReportFile:          "scene_analysis.txt",
		FrameStride:         15,
		BatchSize:           4,
		MotionThreshold:     30.0,
		MinSeparationFrames: 30,
		Judge: JudgeConfig{
			Disabled:    false,
			Model:       "gpt-4o-mini",
			MaxInFlight: 4,
			MaxAttempts: 3,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			Threads:    0,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".scenesplit", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
