// Package config loads rig descriptions for the camsync command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/camsync/camsync/pkg/codec/ffmpeg"
	"github.com/camsync/camsync/pkg/codec/rawlog"
	"github.com/camsync/camsync/pkg/driver/cmdsource"
	"github.com/camsync/camsync/pkg/frame"
	"github.com/camsync/camsync/pkg/trigger"
)

// Config describes a rig: one primary and any number of secondaries.
type Config struct {
	OutputDir string `yaml:"output_dir"`
	// Backend is the default recording backend, "native" or "ffmpeg".
	Backend        string        `yaml:"backend"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	StopTimeout    time.Duration `yaml:"stop_timeout"`
	QueueSize      int           `yaml:"queue_size"`
	// Dummy binds every camera to a synthetic device.
	Dummy       bool           `yaml:"dummy"`
	TriggerLine string         `yaml:"trigger_line"`
	FFmpeg      FFmpegConfig   `yaml:"ffmpeg"`
	// Sources registers command-backed devices before the cameras are
	// bound, so a camera may name a source identity.
	Sources []SourceConfig `yaml:"sources"`
	Cameras []CameraConfig `yaml:"cameras"`
}

// SourceConfig is a device fed by an external command writing raw frames
// to its standard output.
type SourceConfig struct {
	Identity  string  `yaml:"identity"`
	Command   string  `yaml:"command"`
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Format    string  `yaml:"format"` // GREY (default) or YUY2
	FrameRate float64 `yaml:"framerate"`
}

// FFmpegConfig tunes the ffmpeg backend.
type FFmpegConfig struct {
	Binary    string `yaml:"binary"`
	CRF       int    `yaml:"crf"`
	ExtraArgs string `yaml:"extra_args"`
}

// CameraConfig is one device of the rig. Zero property values keep the
// camera defaults.
type CameraConfig struct {
	Identity  string     `yaml:"identity"` // serial number or "#N"
	Role      string     `yaml:"role"`
	Color     bool       `yaml:"color"`
	FrameRate float64    `yaml:"framerate"`
	Exposure  float64    `yaml:"exposure"` // microseconds
	BinSize   int        `yaml:"binsize"`
	Mode      string     `yaml:"mode"`
	ROI       *frame.ROI `yaml:"roi"`
	// Output is the recording path, relative to OutputDir. Empty derives
	// one from the identity.
	Output string `yaml:"output"`
	// Backend overrides Config.Backend for this camera.
	Backend string `yaml:"backend"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		OutputDir:      ".",
		Backend:        rawlog.Name,
		CommandTimeout: 5 * time.Second,
		StopTimeout:    30 * time.Second,
		QueueSize:      256,
		TriggerLine:    trigger.DefaultLine,
		FFmpeg:         FFmpegConfig{Binary: "ffmpeg", CRF: 18},
	}
}

// Load reads the YAML rig description at path over the defaults, applies
// environment overrides and validates the result. An empty path loads only
// defaults and the environment.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	return Parse(data)
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.CommandTimeout, err = getEnvAsDurationOrDefault("CAMSYNC_COMMAND_TIMEOUT", c.CommandTimeout); err != nil {
		return err
	}
	if c.StopTimeout, err = getEnvAsDurationOrDefault("CAMSYNC_STOP_TIMEOUT", c.StopTimeout); err != nil {
		return err
	}
	c.Backend = getEnvOrDefault("CAMSYNC_BACKEND", c.Backend)
	c.OutputDir = getEnvOrDefault("CAMSYNC_OUTPUT_DIR", c.OutputDir)
	return nil
}

// Validate checks that the rig has exactly one primary, unique identities
// and known roles and backends.
func (c *Config) Validate() error {
	if c.CommandTimeout <= 0 || c.StopTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("invalid queue size %d", c.QueueSize)
	}
	if err := checkBackend(c.Backend); err != nil {
		return err
	}
	if len(c.Cameras) == 0 {
		return fmt.Errorf("no cameras configured")
	}
	for i, src := range c.Sources {
		if src.Identity == "" || src.Command == "" {
			return fmt.Errorf("source %d: identity and command are required", i)
		}
		if src.Width <= 0 || src.Height <= 0 {
			return fmt.Errorf("source %s: invalid frame size %dx%d", src.Identity, src.Width, src.Height)
		}
		switch frame.Format(src.Format) {
		case "", frame.FormatGREY, frame.FormatYUY2:
		default:
			return fmt.Errorf("source %s: unsupported format %q", src.Identity, src.Format)
		}
	}

	primaries := 0
	seen := make(map[string]bool)
	for i, cam := range c.Cameras {
		if cam.Identity == "" {
			return fmt.Errorf("camera %d: missing identity", i)
		}
		if seen[cam.Identity] {
			return fmt.Errorf("camera %s: duplicate identity", cam.Identity)
		}
		seen[cam.Identity] = true

		role, err := trigger.ParseRole(cam.Role)
		if err != nil {
			return fmt.Errorf("camera %s: %w", cam.Identity, err)
		}
		if role == trigger.Primary {
			primaries++
		}
		if cam.Backend != "" {
			if err := checkBackend(cam.Backend); err != nil {
				return fmt.Errorf("camera %s: %w", cam.Identity, err)
			}
		}
	}
	if primaries != 1 {
		return fmt.Errorf("a rig needs exactly one primary, got %d", primaries)
	}
	return nil
}

func checkBackend(name string) error {
	switch name {
	case rawlog.Name, ffmpeg.Name:
		return nil
	}
	return fmt.Errorf("unknown backend %q", name)
}

// FFmpegOptions returns the encoder options of the ffmpeg backend.
func (c *Config) FFmpegOptions() ffmpeg.Options {
	return ffmpeg.Options{
		Binary:    c.FFmpeg.Binary,
		CRF:       c.FFmpeg.CRF,
		ExtraArgs: c.FFmpeg.ExtraArgs,
	}
}

// CommandOptions returns the binding options of src.
func (c *Config) CommandOptions(src SourceConfig) cmdsource.Options {
	return cmdsource.Options{
		Command:     src.Command,
		Width:       src.Width,
		Height:      src.Height,
		Format:      frame.Format(src.Format),
		FrameRate:   src.FrameRate,
		StopTimeout: c.StopTimeout,
	}
}

// BackendOf returns the recording backend of cam.
func (c *Config) BackendOf(cam CameraConfig) string {
	if cam.Backend != "" {
		return cam.Backend
	}
	return c.Backend
}

// OutputPath returns where cam records.
func (c *Config) OutputPath(cam CameraConfig) string {
	out := cam.Output
	if out == "" {
		ext := ".camraw"
		if c.BackendOf(cam) == ffmpeg.Name {
			ext = ".mp4"
		}
		out = sanitize(cam.Identity) + ext
	}
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(c.OutputDir, out)
}

func sanitize(identity string) string {
	if len(identity) > 0 && identity[0] == '#' {
		return "device" + identity[1:]
	}
	return identity
}

// Properties returns the initial property values set in cam.
func (cam CameraConfig) Properties() map[string]interface{} {
	props := map[string]interface{}{"color": cam.Color}
	if cam.FrameRate != 0 {
		props["framerate"] = cam.FrameRate
	}
	if cam.Exposure != 0 {
		props["exposure"] = cam.Exposure
	}
	if cam.BinSize != 0 {
		props["binsize"] = cam.BinSize
	}
	if cam.Mode != "" {
		props["mode"] = cam.Mode
	}
	if cam.ROI != nil {
		props["roi"] = *cam.ROI
	}
	return props
}

// getEnvOrDefault returns the environment variable key, or defaultValue
// when it is unset.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
